//go:build ignore
// +build ignore

// Load test for the estimate and parse endpoints.
//
// Usage:
//   go run scripts/estimate_loadtest.go \
//     --url=http://localhost:8080 \
//     --duration=1m \
//     --workers=32 \
//     --parse-ratio=0.1
//
// Each worker loops over randomized estimate requests (and a share of parse
// requests) until the duration elapses, then latency percentiles are printed.

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"math/rand"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// LoadTestConfig holds load test parameters
type LoadTestConfig struct {
	BaseURL    string
	Duration   time.Duration
	Workers    int
	ParseRatio float64
	Timeout    time.Duration
}

// LoadTestMetrics collects per-endpoint results
type LoadTestMetrics struct {
	Start time.Time
	End   time.Time

	Latencies map[string][]time.Duration
	Requests  map[string]int64
	Errors    map[string]int64
	Status    map[int]int64

	mu sync.Mutex
}

func NewLoadTestMetrics() *LoadTestMetrics {
	return &LoadTestMetrics{
		Latencies: make(map[string][]time.Duration),
		Requests:  make(map[string]int64),
		Errors:    make(map[string]int64),
		Status:    make(map[int]int64),
	}
}

// Record records one request outcome
func (m *LoadTestMetrics) Record(endpoint string, status int, latency time.Duration, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Requests[endpoint]++
	if err != nil {
		m.Errors[endpoint]++
		return
	}
	m.Status[status]++
	if status >= 400 {
		m.Errors[endpoint]++
	}
	if len(m.Latencies[endpoint]) < 100000 {
		m.Latencies[endpoint] = append(m.Latencies[endpoint], latency)
	}
}

func percentile(durations []time.Duration, p int) time.Duration {
	if len(durations) == 0 {
		return 0
	}

	sorted := make([]time.Duration, len(durations))
	copy(sorted, durations)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	idx := int(float64(len(sorted)-1) * float64(p) / 100)
	return sorted[idx]
}

var (
	markets   = []string{"US", "UK", "DE", "FR", "JP", "BR", "AU", "CA", "IN", "MX", "Global"}
	ageBands  = []string{"18-24", "25-34", "35-44", "45-54", "55-64", "65+"}
	interests = []string{"technology", "gaming", "travel", "fitness", "finance", "fashion", "sports"}
	queries   = []string{
		"urban millennials into gaming in the US",
		"women aged 25-34 interested in fitness in the UK and Germany",
		"high income travelers over 45",
		"rural parents in Brazil",
	}
)

type attribute struct {
	Dimension string `json:"dimension"`
	Operator  string `json:"operator"`
	Value     string `json:"value"`
}

func randomEstimateBody(rng *rand.Rand) []byte {
	n := 1 + rng.Intn(3)
	body := map[string]interface{}{
		"markets": pick(rng, markets, n),
	}
	var attrs []attribute
	if rng.Intn(2) == 0 {
		attrs = append(attrs, attribute{"age", "between", ageBands[rng.Intn(len(ageBands))]})
	}
	if rng.Intn(2) == 0 {
		attrs = append(attrs, attribute{"interests", "in", strings.Join(pick(rng, interests, 1+rng.Intn(2)), ",")})
	}
	if rng.Intn(3) == 0 {
		attrs = append(attrs, attribute{"income", "gte", fmt.Sprint(25000 * (1 + rng.Intn(6)))})
	}
	body["attributes"] = append([]attribute{}, attrs...)
	data, _ := json.Marshal(body)
	return data
}

func pick(rng *rand.Rand, from []string, n int) []string {
	idx := rng.Perm(len(from))[:n]
	out := make([]string, n)
	for i, j := range idx {
		out[i] = from[j]
	}
	return out
}

func post(ctx context.Context, client *http.Client, url string, body []byte) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	return resp.StatusCode, nil
}

func run(ctx context.Context, cfg LoadTestConfig, metrics *LoadTestMetrics) error {
	client := &http.Client{Timeout: cfg.Timeout}
	ctx, cancel := context.WithTimeout(ctx, cfg.Duration)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)
	for w := 0; w < cfg.Workers; w++ {
		seed := time.Now().UnixNano() + int64(w)
		g.Go(func() error {
			rng := rand.New(rand.NewSource(seed))
			for ctx.Err() == nil {
				endpoint, body := "estimate", randomEstimateBody(rng)
				if rng.Float64() < cfg.ParseRatio {
					endpoint = "parse"
					body, _ = json.Marshal(map[string]string{"query": queries[rng.Intn(len(queries))]})
				}

				start := time.Now()
				status, err := post(ctx, client, cfg.BaseURL+"/api/v1/audiences/"+endpoint, body)
				if ctx.Err() != nil {
					return nil
				}
				metrics.Record(endpoint, status, time.Since(start), err)
			}
			return nil
		})
	}
	return g.Wait()
}

func report(m *LoadTestMetrics) string {
	var sb strings.Builder
	elapsed := m.End.Sub(m.Start)
	fmt.Fprintf(&sb, "\n=== Estimate load test (%s) ===\n", elapsed.Round(time.Millisecond))
	for _, endpoint := range []string{"estimate", "parse"} {
		n := m.Requests[endpoint]
		if n == 0 {
			continue
		}
		lat := m.Latencies[endpoint]
		fmt.Fprintf(&sb, "%-9s requests=%d errors=%d rps=%.1f p50=%s p95=%s p99=%s\n",
			endpoint, n, m.Errors[endpoint], float64(n)/elapsed.Seconds(),
			percentile(lat, 50), percentile(lat, 95), percentile(lat, 99))
	}
	fmt.Fprintf(&sb, "status codes: %v\n", m.Status)
	return sb.String()
}

func main() {
	cfg := LoadTestConfig{}
	flag.StringVar(&cfg.BaseURL, "url", "http://localhost:8080", "server base URL")
	flag.DurationVar(&cfg.Duration, "duration", time.Minute, "test duration")
	flag.IntVar(&cfg.Workers, "workers", 32, "concurrent workers")
	flag.Float64Var(&cfg.ParseRatio, "parse-ratio", 0.1, "share of requests sent to the parse endpoint")
	flag.DurationVar(&cfg.Timeout, "timeout", 30*time.Second, "per-request timeout")
	flag.Parse()

	metrics := NewLoadTestMetrics()
	metrics.Start = time.Now()
	if err := run(context.Background(), cfg, metrics); err != nil {
		log.Fatalf("load test failed: %v", err)
	}
	metrics.End = time.Now()

	fmt.Print(report(metrics))
}
