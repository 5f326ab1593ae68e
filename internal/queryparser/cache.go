package queryparser

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ignite/audience-estimator/internal/pkg/logger"
)

// Cache stores parse results keyed by query text.
type Cache interface {
	Get(ctx context.Context, query string) (*ParsedQuery, bool)
	Set(ctx context.Context, query string, parsed *ParsedQuery)
}

// NoopCache never stores anything.
type NoopCache struct{}

func (NoopCache) Get(context.Context, string) (*ParsedQuery, bool) { return nil, false }
func (NoopCache) Set(context.Context, string, *ParsedQuery) {}

// RedisCache stores parse results as JSON in Redis with a TTL.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
}

// NewRedisCache creates a Redis-backed parse cache.
func NewRedisCache(client *redis.Client, ttl time.Duration, prefix string) *RedisCache {
	return &RedisCache{client: client, ttl: ttl, prefix: prefix}
}

// CacheKey returns the Redis key for query: prefix plus the SHA-256 of the
// lower-cased, whitespace-collapsed query.
func (c *RedisCache) CacheKey(query string) string {
	normalized := strings.Join(strings.Fields(strings.ToLower(query)), " ")
	sum := sha256.Sum256([]byte(normalized))
	return c.prefix + hex.EncodeToString(sum[:])
}

// Get returns a cached parse. Redis errors are logged and reported as a miss.
func (c *RedisCache) Get(ctx context.Context, query string) (*ParsedQuery, bool) {
	data, err := c.client.Get(ctx, c.CacheKey(query)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			logger.Warn("parse cache read failed", "error", err)
		}
		return nil, false
	}

	var parsed ParsedQuery
	if err := json.Unmarshal(data, &parsed); err != nil {
		logger.Warn("parse cache entry corrupt", "error", err)
		return nil, false
	}
	return &parsed, true
}

// Set stores a parse. Failures are logged and otherwise ignored.
func (c *RedisCache) Set(ctx context.Context, query string, parsed *ParsedQuery) {
	data, err := json.Marshal(parsed)
	if err != nil {
		logger.Warn("parse cache encode failed", "error", err)
		return
	}
	if err := c.client.Set(ctx, c.CacheKey(query), data, c.ttl).Err(); err != nil {
		logger.Warn("parse cache write failed", "error", err)
	}
}

// CachingParser answers repeated queries from a Cache.
type CachingParser struct {
	parser Parser
	cache  Cache
}

// NewCachingParser wraps parser with cache. A nil cache disables caching.
func NewCachingParser(parser Parser, cache Cache) *CachingParser {
	if cache == nil {
		cache = NoopCache{}
	}
	return &CachingParser{parser: parser, cache: cache}
}

// Name implements Parser.
func (c *CachingParser) Name() string { return c.parser.Name() }

// Parse implements Parser.
func (c *CachingParser) Parse(ctx context.Context, query string) (*ParsedQuery, error) {
	if parsed, ok := c.cache.Get(ctx, query); ok {
		logger.Debug("parse cache hit", "query", query)
		return parsed, nil
	}

	parsed, err := c.parser.Parse(ctx, query)
	if err != nil {
		return nil, err
	}
	c.cache.Set(ctx, query, parsed)
	return parsed, nil
}
