// Command load drives a running matcher with a mixed workload: order
// submits plus a configurable fraction of modifies and cancels against
// ids the generator knows to be resting.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"math"
	"math/rand"
	"net"
	"net/http"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

type orderReply struct {
	OrderID string `json:"order_id"`
	Status  string `json:"status"`
}

type summary struct {
	TotalRequests int64   `json:"total_requests"`
	Concurrency   int     `json:"concurrency"`
	DurationSec   float64 `json:"duration_sec"`
	ReqPerSec     float64 `json:"req_per_sec"`
	MeanMs        float64 `json:"mean_ms"`
	MaxMs         float64 `json:"max_ms"`
	P50Ms         float64 `json:"p50_ms"`
	P90Ms         float64 `json:"p90_ms"`
	P99Ms         float64 `json:"p99_ms"`
}

type loadgen struct {
	base    string
	symbol  string
	fakPct  int
	modPct  int
	cxlPct  int
	budget  int64
	sleep   time.Duration
	record  bool
	client  *http.Client
	sent    int64
	errored int64

	mu        sync.Mutex
	latencies []float64 // ms
}

func main() {
	var (
		base      = flag.String("url", "http://127.0.0.1:8080/api/v1", "API base URL")
		conns     = flag.Int("c", 50, "concurrency (goroutines)")
		total     = flag.Int("n", 1000, "total requests")
		symbol    = flag.String("sym", "LOAD", "symbol")
		fakPct    = flag.Int("fak", 10, "percent of submits sent as FILL_AND_KILL")
		modPct    = flag.Int("modify", 10, "percent of requests issued as modifies")
		cxlPct    = flag.Int("cancel", 10, "percent of requests issued as cancels")
		sleepMs   = flag.Int("sleep", 0, "ms sleep between requests per goroutine")
		statsMode = flag.Bool("stats", false, "record per-request latency and print p50/p90/p99")
	)
	flag.Parse()

	if *modPct+*cxlPct > 90 {
		fmt.Fprintln(os.Stderr, "-modify and -cancel together must leave room for submits (<= 90)")
		os.Exit(2)
	}

	lg := &loadgen{
		base:   *base,
		symbol: *symbol,
		fakPct: *fakPct,
		modPct: *modPct,
		cxlPct: *cxlPct,
		budget: int64(*total),
		sleep:  time.Duration(*sleepMs) * time.Millisecond,
		record: *statsMode,
		client: newClient(*conns),
	}

	start := time.Now()
	var wg sync.WaitGroup
	for i := 0; i < *conns; i++ {
		wg.Add(1)
		go func(seed int64) {
			defer wg.Done()
			lg.worker(rand.New(rand.NewSource(time.Now().UnixNano() ^ seed<<32)))
		}(int64(i))
	}
	wg.Wait()

	lg.report(*conns, time.Since(start).Seconds())
}

func newClient(conns int) *http.Client {
	if conns < 100 {
		conns = 100
	}
	return &http.Client{
		Timeout: 30 * time.Second,
		Transport: &http.Transport{
			DialContext: (&net.Dialer{
				Timeout:   30 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			MaxIdleConnsPerHost: conns,
			MaxConnsPerHost:     conns,
			IdleConnTimeout:     90 * time.Second,
		},
	}
}

// worker consumes the shared request budget. Each iteration rolls for
// an operation: cancel or modify when this worker still knows resting
// ids, otherwise submit. Ids may go stale when the other side consumes
// them; the server answers those with a 404, which is fine here.
func (lg *loadgen) worker(rng *rand.Rand) {
	var resting []string
	for atomic.AddInt64(&lg.sent, 1) <= lg.budget {
		roll := rng.Intn(100)
		switch {
		case roll < lg.cxlPct && len(resting) > 0:
			id := resting[len(resting)-1]
			resting = resting[:len(resting)-1]
			lg.request(http.MethodDelete, "/orders/"+id, nil)
		case roll < lg.cxlPct+lg.modPct && len(resting) > 0:
			id := resting[rng.Intn(len(resting))]
			lg.request(http.MethodPut, "/orders/"+id, map[string]interface{}{
				"side":     pick(rng, "BUY", "SELL"),
				"quantity": 1 + rng.Int63n(50),
				"price":    95 + rng.Int63n(11),
			})
		default:
			typ := "GOOD_TILL_CANCEL"
			if rng.Intn(100) < lg.fakPct {
				typ = "FILL_AND_KILL"
			}
			reply := lg.request(http.MethodPost, "/orders", map[string]interface{}{
				"symbol":   lg.symbol,
				"side":     pick(rng, "BUY", "SELL"),
				"type":     typ,
				"price":    95 + rng.Int63n(11),
				"quantity": 1 + rng.Int63n(50),
			})
			if reply != nil && (reply.Status == "RESTING" || reply.Status == "PARTIALLY_FILLED") {
				resting = append(resting, reply.OrderID)
			}
		}
		if lg.sleep > 0 {
			time.Sleep(lg.sleep)
		}
	}
}

func pick(rng *rand.Rand, a, b string) string {
	if rng.Intn(2) == 0 {
		return a
	}
	return b
}

// request times one HTTP call, retrying transport errors with jittered
// backoff, and decodes the order reply when there is one.
func (lg *loadgen) request(method, path string, payload interface{}) *orderReply {
	var body []byte
	if payload != nil {
		body, _ = json.Marshal(payload)
	}

	t0 := time.Now()
	resp, err := lg.send(method, path, body)
	if lg.record {
		ms := float64(time.Since(t0).Microseconds()) / 1000.0
		lg.mu.Lock()
		lg.latencies = append(lg.latencies, ms)
		lg.mu.Unlock()
	}
	if err != nil {
		atomic.AddInt64(&lg.errored, 1)
		fmt.Fprintf(os.Stderr, "%s %s: %v\n", method, path, err)
		return nil
	}
	defer resp.Body.Close()

	var out orderReply
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil
	}
	return &out
}

func (lg *loadgen) send(method, path string, body []byte) (*http.Response, error) {
	var lastErr error
	delay := 50 * time.Millisecond
	for attempt := 0; attempt < 5; attempt++ {
		req, err := http.NewRequest(method, lg.base+path, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		resp, err := lg.client.Do(req)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		time.Sleep(delay + time.Duration(rand.Int63n(int64(delay))))
		delay *= 2
	}
	return nil, lastErr
}

func (lg *loadgen) report(conns int, elapsed float64) {
	n := atomic.LoadInt64(&lg.sent)
	if n > lg.budget {
		n = lg.budget
	}
	errs := atomic.LoadInt64(&lg.errored)

	if !lg.record {
		fmt.Printf("done: total=%d errors=%d concurrency=%d duration=%.2fs req/s=%.2f\n",
			n, errs, conns, elapsed, float64(n)/elapsed)
		return
	}

	lg.mu.Lock()
	ds := lg.latencies
	lg.mu.Unlock()
	sort.Float64s(ds)

	var sum float64
	for _, d := range ds {
		sum += d
	}
	mean, max := 0.0, 0.0
	if len(ds) > 0 {
		mean = sum / float64(len(ds))
		max = ds[len(ds)-1]
	}

	s := summary{
		TotalRequests: n,
		Concurrency:   conns,
		DurationSec:   elapsed,
		ReqPerSec:     float64(n) / elapsed,
		MeanMs:        mean,
		MaxMs:         max,
		P50Ms:         percentile(ds, 0.50),
		P90Ms:         percentile(ds, 0.90),
		P99Ms:         percentile(ds, 0.99),
	}
	fmt.Printf("done: total=%d errors=%d concurrency=%d duration=%.2fs req/s=%.2f\n",
		s.TotalRequests, errs, s.Concurrency, s.DurationSec, s.ReqPerSec)
	fmt.Printf("latency ms: mean=%.2f p50=%.2f p90=%.2f p99=%.2f max=%.2f\n",
		s.MeanMs, s.P50Ms, s.P90Ms, s.P99Ms, s.MaxMs)
	b, _ := json.Marshal(s)
	fmt.Println(string(b))
}

// percentile uses nearest-rank on a sorted slice.
func percentile(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(math.Floor(q*float64(len(sorted)-1) + 0.5))
	if idx < 0 {
		idx = 0
	}
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}
