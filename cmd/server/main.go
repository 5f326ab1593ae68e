package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/redis/go-redis/v9"

	"github.com/ignite/audience-estimator/internal/api"
	"github.com/ignite/audience-estimator/internal/audience"
	"github.com/ignite/audience-estimator/internal/config"
	"github.com/ignite/audience-estimator/internal/estimation"
	"github.com/ignite/audience-estimator/internal/pkg/distlock"
	"github.com/ignite/audience-estimator/internal/pkg/logger"
	"github.com/ignite/audience-estimator/internal/queryparser"
	"github.com/ignite/audience-estimator/internal/repository/postgres"
)

// checkPortAvailable verifies that the target port is not already in use.
func checkPortAvailable(host string, port int) error {
	addr := fmt.Sprintf("%s:%d", host, port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("port %d is already in use (addr %s): %v\n"+
			"  Hint: Run 'lsof -i :%d' to find the blocking process", port, addr, err, port)
	}
	ln.Close()
	return nil
}

// extractHost returns the host part of a DSN for logging without credentials.
func extractHost(dsn string) string {
	at := strings.Index(dsn, "@")
	if at < 0 {
		return "(unknown)"
	}
	rest := dsn[at+1:]
	if slash := strings.Index(rest, "/"); slash >= 0 {
		rest = rest[:slash]
	}
	return rest
}

func openDatabase(ctx context.Context, cfg config.DatabaseConfig) *sql.DB {
	if !cfg.Enabled() {
		logger.Info("no database configured, saved audiences disabled")
		return nil
	}
	db, err := sql.Open("postgres", cfg.URL)
	if err != nil {
		logger.Warn("failed to open database, saved audiences disabled", "error", err)
		return nil
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(30 * time.Second)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		logger.Warn("database ping failed, saved audiences disabled", "host", extractHost(cfg.URL), "error", err)
		db.Close()
		return nil
	}
	logger.Info("database connected", "host", extractHost(cfg.URL))
	return db
}

func openRedis(ctx context.Context, redisURL string) *redis.Client {
	if redisURL == "" {
		return nil
	}
	var client *redis.Client
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		client = redis.NewClient(&redis.Options{Addr: redisURL})
	} else {
		client = redis.NewClient(opts)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		logger.Warn("redis connection failed, parse cache disabled", "error", err)
		client.Close()
		return nil
	}
	logger.Info("redis connected", "addr", client.Options().Addr)
	return client
}

func main() {
	cfg, err := config.LoadFromEnv("config/config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	logger.SetLevel(logger.ParseLevel(cfg.Log.Level))
	logger.SetRedactPII(cfg.Log.ShouldRedactPII())

	host := cfg.Server.GetHost()
	if err := checkPortAvailable(host, cfg.Server.Port); err != nil {
		log.Fatalf("Pre-flight check FAILED: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db := openDatabase(ctx, cfg.Database)
	redisClient := openRedis(ctx, cfg.Cache.RedisURL)

	engine := estimation.NewEngine(estimation.NewCalculator(nil))

	parser, err := queryparser.New(ctx, cfg.Parser)
	if err != nil {
		log.Fatalf("Failed to initialize query parser: %v", err)
	}
	var cache queryparser.Cache
	if redisClient != nil {
		cache = queryparser.NewRedisCache(redisClient, cfg.Cache.TTL(), cfg.Cache.KeyPrefix)
	}
	parser = queryparser.NewCachingParser(parser, cache)
	builder := queryparser.NewBuilder(parser, engine)

	var audiences *audience.Service
	if db != nil {
		audiences = audience.NewService(postgres.NewAudienceRepo(db), engine, cfg.Audience.RefreshConcurrency).
			WithLocks(func(key string) distlock.DistLock {
				return distlock.NewLock(redisClient, db, key, audience.RefreshLockTTL)
			})
	}

	health := api.NewHealthChecker(db, redisClient, parser.Name())
	server := api.NewServer(cfg.Server, api.NewHandlers(engine, builder, audiences, health))

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		addr := fmt.Sprintf("%s:%d", host, cfg.Server.Port)
		logger.Info("starting server", "addr", addr, "parser", parser.Name(), "saved_audiences", audiences != nil)
		if err := server.ListenAndServe(addr); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	<-done
	logger.Info("shutting down")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}
	if err := queryparser.Close(parser); err != nil {
		logger.Warn("parser close error", "error", err)
	}
	if redisClient != nil {
		redisClient.Close()
	}
	if db != nil {
		db.Close()
	}

	logger.Info("server stopped")
}
