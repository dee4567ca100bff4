// Command loadtest drives a running search service with a mix of listing,
// lookup, related and search requests and prints a latency report.
//
// Post ids, categories and tags are discovered from the service before the
// run starts, so every generated request targets real catalogue content.
//
// Usage:
//
//	go run ./cmd/loadtest [-url http://localhost:8080] [-concurrency 10] [-duration 30s]
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

type Config struct {
	BaseURL     string
	Concurrency int
	Duration    time.Duration
	PageSize    int
	Queries     []string
}

// Target is one kind of request in the generated mix.
type Target struct {
	Name   string
	Weight int
	URLs   []string
}

type endpointStats struct {
	requests atomic.Int64
	errors   atomic.Int64
}

type Stats struct {
	totalRequests atomic.Int64
	successCount  atomic.Int64
	errorCount    atomic.Int64
	latencies     []time.Duration
	latenciesMu   sync.Mutex
	statusCodes   map[int]*atomic.Int64
	statusCodesMu sync.Mutex
	endpoints     map[string]*endpointStats
}

func NewStats(targets []Target) *Stats {
	s := &Stats{
		latencies:   make([]time.Duration, 0, 100000),
		statusCodes: make(map[int]*atomic.Int64),
		endpoints:   make(map[string]*endpointStats, len(targets)),
	}
	for _, t := range targets {
		s.endpoints[t.Name] = &endpointStats{}
	}
	return s
}

func (s *Stats) RecordRequest(endpoint string, duration time.Duration, statusCode int, err error) {
	s.totalRequests.Add(1)
	ep := s.endpoints[endpoint]
	ep.requests.Add(1)

	if err != nil {
		s.errorCount.Add(1)
		ep.errors.Add(1)
		return
	}

	if statusCode >= 200 && statusCode < 300 {
		s.successCount.Add(1)
	} else {
		s.errorCount.Add(1)
		ep.errors.Add(1)
	}

	s.latenciesMu.Lock()
	s.latencies = append(s.latencies, duration)
	s.latenciesMu.Unlock()

	s.statusCodesMu.Lock()
	if _, ok := s.statusCodes[statusCode]; !ok {
		s.statusCodes[statusCode] = &atomic.Int64{}
	}
	s.statusCodes[statusCode].Add(1)
	s.statusCodesMu.Unlock()
}

func main() {
	baseURL := flag.String("url", "http://localhost:8080", "base URL of the search service")
	concurrency := flag.Int("concurrency", 10, "number of concurrent workers")
	duration := flag.Duration("duration", 30*time.Second, "test duration")
	pageSize := flag.Int("page-size", 10, "pageSize sent with listing and search requests")
	flag.Parse()

	cfg := Config{
		BaseURL:     *baseURL,
		Concurrency: *concurrency,
		Duration:    *duration,
		PageSize:    *pageSize,
		Queries: []string{
			"json",
			"security",
			"json security",
			"api design",
			"database performance",
			"testing",
			"kubernetes deployment",
			"go concurrency",
			"caching strategies",
			"observability",
		},
	}

	client := &http.Client{
		Timeout: 10 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        cfg.Concurrency * 2,
			MaxIdleConnsPerHost: cfg.Concurrency * 2,
			IdleConnTimeout:     90 * time.Second,
		},
	}

	targets, err := discover(client, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "discovering catalogue: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("=== Content Search Load Test ===")
	fmt.Printf("Target:      %s\n", cfg.BaseURL)
	fmt.Printf("Concurrency: %d\n", cfg.Concurrency)
	fmt.Printf("Duration:    %s\n", cfg.Duration)
	for _, t := range targets {
		fmt.Printf("  %-10s weight %d, %d urls\n", t.Name, t.Weight, len(t.URLs))
	}
	fmt.Println()

	stats := runLoadTest(client, cfg, targets)
	printReport(stats, targets, cfg.Duration)
}

type listPage struct {
	Items []struct {
		ID string `json:"id"`
	} `json:"items"`
}

type facetList struct {
	Items []struct {
		Name string `json:"name"`
	} `json:"items"`
}

// discover reads the first page of posts and the facets and turns them into
// the weighted request mix.
func discover(client *http.Client, cfg Config) ([]Target, error) {
	var posts listPage
	if err := getJSON(client, fmt.Sprintf("%s/api/v1/posts?pageSize=%d", cfg.BaseURL, cfg.PageSize), &posts); err != nil {
		return nil, err
	}
	var categories, tags facetList
	if err := getJSON(client, cfg.BaseURL+"/api/v1/categories", &categories); err != nil {
		return nil, err
	}
	if err := getJSON(client, cfg.BaseURL+"/api/v1/tags", &tags); err != nil {
		return nil, err
	}

	search := Target{Name: "search", Weight: 5}
	for _, q := range cfg.Queries {
		search.URLs = append(search.URLs, fmt.Sprintf("%s/api/v1/search?q=%s&pageSize=%d",
			cfg.BaseURL, url.QueryEscape(q), cfg.PageSize))
	}
	list := Target{Name: "list", Weight: 2, URLs: []string{
		fmt.Sprintf("%s/api/v1/posts?pageSize=%d", cfg.BaseURL, cfg.PageSize),
		fmt.Sprintf("%s/api/v1/posts?pageSize=%d&order=oldest", cfg.BaseURL, cfg.PageSize),
		fmt.Sprintf("%s/api/v1/posts?page=2&pageSize=%d", cfg.BaseURL, cfg.PageSize),
	}}
	targets := []Target{search, list}

	get := Target{Name: "get", Weight: 2}
	related := Target{Name: "related", Weight: 1}
	for _, p := range posts.Items {
		escaped := url.PathEscape(p.ID)
		get.URLs = append(get.URLs, fmt.Sprintf("%s/api/v1/posts/%s", cfg.BaseURL, escaped))
		related.URLs = append(related.URLs, fmt.Sprintf("%s/api/v1/posts/%s/related?n=3", cfg.BaseURL, escaped))
	}
	category := Target{Name: "category", Weight: 1}
	for _, c := range categories.Items {
		category.URLs = append(category.URLs, fmt.Sprintf("%s/api/v1/categories/%s/posts?pageSize=%d",
			cfg.BaseURL, url.PathEscape(c.Name), cfg.PageSize))
	}
	tag := Target{Name: "tag", Weight: 1}
	for _, t := range tags.Items {
		tag.URLs = append(tag.URLs, fmt.Sprintf("%s/api/v1/tags/%s/posts?pageSize=%d",
			cfg.BaseURL, url.PathEscape(t.Name), cfg.PageSize))
	}
	for _, t := range []Target{get, related, category, tag} {
		if len(t.URLs) > 0 {
			targets = append(targets, t)
		}
	}
	return targets, nil
}

func getJSON(client *http.Client, rawURL string, out any) error {
	resp, err := client.Get(rawURL)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s: status %d", rawURL, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// schedule expands targets by weight into a round-robin order.
func schedule(targets []Target) []int {
	var order []int
	for i, t := range targets {
		for w := 0; w < t.Weight; w++ {
			order = append(order, i)
		}
	}
	return order
}

func runLoadTest(client *http.Client, cfg Config, targets []Target) *Stats {
	stats := NewStats(targets)
	order := schedule(targets)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Duration)
	defer cancel()

	var wg sync.WaitGroup
	fmt.Print("Running")

	for w := 0; w < cfg.Concurrency; w++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			n := workerID

			for {
				select {
				case <-ctx.Done():
					return
				default:
				}

				target := targets[order[n%len(order)]]
				rawURL := target.URLs[(n/len(order))%len(target.URLs)]
				n++

				start := time.Now()
				resp, err := client.Do(mustNewRequest(ctx, rawURL))
				duration := time.Since(start)

				if err != nil {
					if ctx.Err() != nil {
						return
					}
					stats.RecordRequest(target.Name, duration, 0, err)
					continue
				}
				io.Copy(io.Discard, resp.Body)
				resp.Body.Close()

				stats.RecordRequest(target.Name, duration, resp.StatusCode, nil)
			}
		}(w)
	}

	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				fmt.Print(".")
			}
		}
	}()

	wg.Wait()
	fmt.Println(" done!")
	fmt.Println()
	return stats
}

func mustNewRequest(ctx context.Context, rawURL string) *http.Request {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		panic(fmt.Sprintf("creating request: %v", err))
	}
	return req
}

func printReport(stats *Stats, targets []Target, duration time.Duration) {
	total := stats.totalRequests.Load()
	success := stats.successCount.Load()
	errors := stats.errorCount.Load()

	fmt.Println("=== Results ===")
	fmt.Printf("Total Requests:  %d\n", total)
	fmt.Printf("Successful:      %d\n", success)
	fmt.Printf("Errors:          %d\n", errors)

	if total > 0 {
		errorRate := float64(errors) / float64(total) * 100
		fmt.Printf("Error Rate:      %.2f%%\n", errorRate)
		rps := float64(total) / duration.Seconds()
		fmt.Printf("Requests/sec:    %.2f\n", rps)
	}

	fmt.Println()
	fmt.Println("=== Endpoints ===")
	for _, t := range targets {
		ep := stats.endpoints[t.Name]
		fmt.Printf("  %-10s %8d requests %6d errors\n", t.Name, ep.requests.Load(), ep.errors.Load())
	}

	stats.latenciesMu.Lock()
	latencies := make([]time.Duration, len(stats.latencies))
	copy(latencies, stats.latencies)
	stats.latenciesMu.Unlock()

	if len(latencies) > 0 {
		sort.Slice(latencies, func(i, j int) bool {
			return latencies[i] < latencies[j]
		})

		var sum time.Duration
		for _, l := range latencies {
			sum += l
		}
		avg := sum / time.Duration(len(latencies))

		fmt.Println()
		fmt.Println("=== Latency ===")
		fmt.Printf("Min:    %s\n", latencies[0])
		fmt.Printf("Avg:    %s\n", avg)
		fmt.Printf("P50:    %s\n", percentile(latencies, 50))
		fmt.Printf("P90:    %s\n", percentile(latencies, 90))
		fmt.Printf("P95:    %s\n", percentile(latencies, 95))
		fmt.Printf("P99:    %s\n", percentile(latencies, 99))
		fmt.Printf("Max:    %s\n", latencies[len(latencies)-1])

		var sumSquared float64
		avgFloat := float64(avg)
		for _, l := range latencies {
			diff := float64(l) - avgFloat
			sumSquared += diff * diff
		}
		stddev := time.Duration(math.Sqrt(sumSquared / float64(len(latencies))))
		fmt.Printf("StdDev: %s\n", stddev)
	}

	fmt.Println()
	fmt.Println("=== Status Codes ===")
	stats.statusCodesMu.Lock()
	codes := make([]int, 0, len(stats.statusCodes))
	for code := range stats.statusCodes {
		codes = append(codes, code)
	}
	sort.Ints(codes)
	for _, code := range codes {
		count := stats.statusCodes[code].Load()
		fmt.Printf("  %d: %d\n", code, count)
	}
	stats.statusCodesMu.Unlock()

	if total == 0 {
		fmt.Println()
		fmt.Println("WARNING: No requests completed. Is the service running?")
		os.Exit(1)
	}
}

func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(math.Ceil(p/100*float64(len(sorted)))) - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}
