// Package main - agitator
// Load generator for the conversion server: many concurrent players spamming
// websocket actions while the simulation runs.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"net/url"
	"os"
	"os/signal"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gorilla/websocket"

	"github.com/MRamiBalles/Conversion/server/internal/engine"
	"github.com/MRamiBalles/Conversion/server/internal/network"
)

// Config for the agitator
type Config struct {
	ServerURL      string
	NumClients     int
	ActionInterval time.Duration
	TestDuration   time.Duration
	Regions        int
	Output         string
}

// Stats tracks performance metrics
type Stats struct {
	MessagesSent     int64
	MessagesReceived int64
	Accepted         int64
	Rejected         int64
	Errors           int64
	Latencies        []time.Duration
	mu               sync.Mutex
}

func (s *Stats) addLatency(d time.Duration) {
	s.mu.Lock()
	s.Latencies = append(s.Latencies, d)
	s.mu.Unlock()
}

func main() {
	serverURL := flag.String("url", "ws://localhost:8080/ws", "WebSocket server URL")
	numClients := flag.Int("clients", 50, "Number of concurrent clients")
	interval := flag.Duration("interval", 100*time.Millisecond, "Action interval per client")
	duration := flag.Duration("duration", 60*time.Second, "Test duration")
	regions := flag.Int("regions", 50, "Number of regions on the server")
	output := flag.String("out", "stress_test_results.json", "Where to write the JSON summary; empty skips it")
	flag.Parse()

	config := Config{
		ServerURL:      *serverURL,
		NumClients:     *numClients,
		ActionInterval: *interval,
		TestDuration:   *duration,
		Regions:        *regions,
		Output:         *output,
	}

	fmt.Println("=========================================")
	fmt.Println("AGITATOR - conversion load generator")
	fmt.Println("=========================================")
	fmt.Printf("Server:   %s\n", config.ServerURL)
	fmt.Printf("Clients:  %d\n", config.NumClients)
	fmt.Printf("Interval: %v\n", config.ActionInterval)
	fmt.Printf("Duration: %v\n", config.TestDuration)
	fmt.Println("=========================================")

	ctx, cancel := context.WithTimeout(context.Background(), config.TestDuration)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt)
	go func() {
		<-sigChan
		fmt.Println("\nInterrupt received, stopping...")
		cancel()
	}()

	started := time.Now()
	stats := runStressTest(ctx, config)
	printResults(stats, config, time.Since(started))
}

func runStressTest(ctx context.Context, config Config) *Stats {
	stats := &Stats{
		Latencies: make([]time.Duration, 0, 10000),
	}

	var wg sync.WaitGroup

	fmt.Println("\nStarting clients...")

	for i := 0; i < config.NumClients; i++ {
		wg.Add(1)
		go func(clientID int) {
			defer wg.Done()
			runClient(ctx, clientID, config, stats)
		}(i)

		// Stagger client starts to avoid thundering herd
		time.Sleep(10 * time.Millisecond)
	}

	fmt.Printf("All %d clients started\n\n", config.NumClients)

	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				fmt.Printf("Progress: sent=%s recv=%s accepted=%s rejected=%s errors=%d\n",
					humanize.Comma(atomic.LoadInt64(&stats.MessagesSent)),
					humanize.Comma(atomic.LoadInt64(&stats.MessagesReceived)),
					humanize.Comma(atomic.LoadInt64(&stats.Accepted)),
					humanize.Comma(atomic.LoadInt64(&stats.Rejected)),
					atomic.LoadInt64(&stats.Errors))
			}
		}
	}()

	wg.Wait()
	return stats
}

func runClient(ctx context.Context, clientID int, config Config, stats *Stats) {
	actor := fmt.Sprintf("agitator-%03d", clientID)

	u, err := url.Parse(config.ServerURL)
	if err != nil {
		log.Printf("Client %d: URL parse error: %v", clientID, err)
		atomic.AddInt64(&stats.Errors, 1)
		return
	}
	q := u.Query()
	q.Set("actor", actor)
	u.RawQuery = q.Encode()

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		log.Printf("Client %d: Connection failed: %v", clientID, err)
		atomic.AddInt64(&stats.Errors, 1)
		return
	}
	defer conn.Close()

	// Results come back in send order, so a FIFO of send times gives latency.
	var (
		pendingMu sync.Mutex
		pending   []time.Time
	)
	rng := rand.New(rand.NewSource(int64(clientID) + time.Now().UnixNano()))

	go func() {
		for {
			var msg struct {
				Type    network.MessageType `json:"type"`
				Payload json.RawMessage     `json:"payload"`
			}
			if err := conn.ReadJSON(&msg); err != nil {
				return
			}
			atomic.AddInt64(&stats.MessagesReceived, 1)

			switch msg.Type {
			case network.MsgTypeResult, network.MsgTypeError:
				pendingMu.Lock()
				if len(pending) > 0 {
					stats.addLatency(time.Since(pending[0]))
					pending = pending[1:]
				}
				pendingMu.Unlock()
			}
			switch msg.Type {
			case network.MsgTypeResult:
				var res engine.Result
				if json.Unmarshal(msg.Payload, &res) == nil && res.OK {
					atomic.AddInt64(&stats.Accepted, 1)
				} else {
					atomic.AddInt64(&stats.Rejected, 1)
				}
			case network.MsgTypeError:
				atomic.AddInt64(&stats.Errors, 1)
			}
		}
	}()

	ticker := time.NewTicker(config.ActionInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		case <-ticker.C:
			action := generateRandomAction(rng, config.Regions)

			pendingMu.Lock()
			pending = append(pending, time.Now())
			pendingMu.Unlock()

			if err := conn.WriteJSON(action); err != nil {
				atomic.AddInt64(&stats.Errors, 1)
				return
			}
			atomic.AddInt64(&stats.MessagesSent, 1)
		}
	}
}

// generateRandomAction favours clicks the way a real player would.
func generateRandomAction(rng *rand.Rand, regions int) network.PlayerAction {
	var (
		typ     engine.ActionType
		payload network.ActionPayload
	)
	switch roll := rng.Intn(20); {
	case roll < 15:
		typ = engine.ActionClick
		payload.RegionID = rng.Intn(regions) + 1
	case roll < 17:
		typ = engine.ActionCreateUnit
	case roll < 19:
		typ = engine.ActionAssignUnit
		payload.UnitID = rng.Intn(20) + 1
		payload.RegionID = rng.Intn(regions) + 1
	default:
		typ = engine.ActionTransferUnit
		payload.RegionID = rng.Intn(regions) + 1
		payload.TargetRegionID = rng.Intn(regions) + 1
	}

	raw, _ := json.Marshal(payload)
	return network.PlayerAction{Type: string(typ), Payload: raw}
}

func printResults(stats *Stats, config Config, elapsed time.Duration) {
	fmt.Println("\n=========================================")
	fmt.Println("STRESS TEST RESULTS")
	fmt.Println("=========================================")

	sent := atomic.LoadInt64(&stats.MessagesSent)
	recv := atomic.LoadInt64(&stats.MessagesReceived)
	accepted := atomic.LoadInt64(&stats.Accepted)
	rejected := atomic.LoadInt64(&stats.Rejected)
	errs := atomic.LoadInt64(&stats.Errors)

	fmt.Printf("Messages Sent:     %s\n", humanize.Comma(sent))
	fmt.Printf("Messages Received: %s\n", humanize.Comma(recv))
	fmt.Printf("Accepted:          %s\n", humanize.Comma(accepted))
	fmt.Printf("Rejected:          %s\n", humanize.Comma(rejected))
	fmt.Printf("Errors:            %d\n", errs)
	errorRate := float64(errs) / float64(sent+1) * 100
	fmt.Printf("Error Rate:        %s%%\n", humanize.FtoaWithDigits(errorRate, 2))

	throughput := float64(sent) / elapsed.Seconds()
	fmt.Printf("Throughput:        %s msg/sec\n", humanize.CommafWithDigits(throughput, 2))

	var p50, p99 time.Duration
	stats.mu.Lock()
	if n := len(stats.Latencies); n > 0 {
		sort.Slice(stats.Latencies, func(i, j int) bool { return stats.Latencies[i] < stats.Latencies[j] })
		p50 = stats.Latencies[n/2]
		p99 = stats.Latencies[n*99/100]
		fmt.Printf("\nRound-trip latency:\n")
		fmt.Printf("  Min: %v\n", stats.Latencies[0])
		fmt.Printf("  P50: %v\n", p50)
		fmt.Printf("  P99: %v\n", p99)
		fmt.Printf("  Max: %v\n", stats.Latencies[n-1])
	}
	stats.mu.Unlock()

	fmt.Println("\n-----------------------------------------")
	switch {
	case errs == 0 && sent > 0:
		fmt.Println("TEST PASSED: server kept up with the load")
	case errorRate < 5:
		fmt.Println("TEST WARNING: some actions were dropped or failed")
	default:
		fmt.Println("TEST FAILED: high error rate")
	}
	fmt.Println("=========================================")

	if config.Output == "" {
		return
	}
	results := map[string]interface{}{
		"messages_sent":      sent,
		"messages_received":  recv,
		"accepted":           accepted,
		"rejected":           rejected,
		"errors":             errs,
		"throughput_per_sec": throughput,
		"latency_p50_ms":     float64(p50.Microseconds()) / 1000,
		"latency_p99_ms":     float64(p99.Microseconds()) / 1000,
		"config": map[string]interface{}{
			"clients":  config.NumClients,
			"interval": config.ActionInterval.String(),
			"duration": config.TestDuration.String(),
		},
	}

	jsonData, _ := json.MarshalIndent(results, "", "  ")
	if err := os.WriteFile(config.Output, jsonData, 0644); err != nil {
		log.Printf("failed to write results: %v", err)
		return
	}
	fmt.Printf("\nResults saved to %s\n", config.Output)
}
