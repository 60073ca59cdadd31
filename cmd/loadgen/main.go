// Command loadgen exercises a running cellcover server: it can seed entity
// events into the ingest topic and fire randomized covering queries,
// reporting latency percentiles.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/IBM/sarama"
)

func getenv(key, def string) string {
	value := os.Getenv(key)
	if value != "" {
		return value
	}
	return def
}

type entityEvent struct {
	Op      string  `json:"op"`
	ID      string  `json:"id"`
	Lat     float64 `json:"lat"`
	Lng     float64 `json:"lng"`
	Payload string  `json:"payload,omitempty"`
	Version int64   `json:"version"`
}

func seedEntities(brokers []string, topic string, n int, rng *rand.Rand) error {
	fmt.Printf("seeding %d entities into %s\n", n, topic)

	cfg := sarama.NewConfig()
	cfg.Producer.Return.Successes = true
	cfg.Version = sarama.V2_5_0_0
	prod, err := sarama.NewSyncProducer(brokers, cfg)
	if err != nil {
		return fmt.Errorf("producer create: %w", err)
	}
	defer func() { _ = prod.Close() }()

	for i := 0; i < n; i++ {
		// Cluster points around San Francisco so coverings hit them.
		ev := entityEvent{
			Op:      "upsert",
			ID:      fmt.Sprintf("loadgen-%06d", i),
			Lat:     37.7749 + rng.NormFloat64()*0.2,
			Lng:     -122.4194 + rng.NormFloat64()*0.2,
			Payload: fmt.Sprintf("seed-%d", i),
			Version: time.Now().UnixNano(),
		}
		msg, _ := json.Marshal(ev)
		if _, _, err := prod.SendMessage(&sarama.ProducerMessage{
			Topic: topic, Value: sarama.ByteEncoder(msg),
		}); err != nil {
			return fmt.Errorf("send message %d: %w", i, err)
		}
	}
	fmt.Println("seed complete")
	return nil
}

func coveringURL(base string, rng *rand.Rand, engine string) string {
	lat := 37.7749 + rng.NormFloat64()*0.1
	lng := -122.4194 + rng.NormFloat64()*0.1
	radius := 1000 + rng.Float64()*29000

	v := url.Values{}
	v.Set("lat", fmt.Sprintf("%.6f", lat))
	v.Set("lng", fmt.Sprintf("%.6f", lng))
	v.Set("radius_m", fmt.Sprintf("%.0f", radius))
	if engine != "" {
		v.Set("engine", engine)
	}
	return strings.TrimRight(base, "/") + "/covering?" + v.Encode()
}

func fire(base, engine string, requests, workers int, seed int64) {
	var mu sync.Mutex
	var latencies []time.Duration
	errs := 0

	jobs := make(chan string)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			client := &http.Client{Timeout: 10 * time.Second}
			for u := range jobs {
				start := time.Now()
				resp, err := client.Get(u)
				took := time.Since(start)
				if err != nil {
					mu.Lock()
					errs++
					mu.Unlock()
					continue
				}
				_, _ = io.Copy(io.Discard, resp.Body)
				_ = resp.Body.Close()
				mu.Lock()
				if resp.StatusCode != http.StatusOK {
					errs++
				} else {
					latencies = append(latencies, took)
				}
				mu.Unlock()
			}
		}()
	}

	rng := rand.New(rand.NewSource(seed))
	started := time.Now()
	for i := 0; i < requests; i++ {
		jobs <- coveringURL(base, rng, engine)
	}
	close(jobs)
	wg.Wait()
	elapsed := time.Since(started)

	sort.Slice(latencies, func(a, b int) bool { return latencies[a] < latencies[b] })
	pct := func(p float64) time.Duration {
		if len(latencies) == 0 {
			return 0
		}
		i := int(p * float64(len(latencies)-1))
		return latencies[i]
	}

	fmt.Printf("requests=%d ok=%d errors=%d elapsed=%s rps=%.1f\n",
		requests, len(latencies), errs, elapsed.Round(time.Millisecond),
		float64(requests)/elapsed.Seconds())
	fmt.Printf("latency p50=%s p90=%s p99=%s\n",
		pct(0.50).Round(time.Microsecond),
		pct(0.90).Round(time.Microsecond),
		pct(0.99).Round(time.Microsecond))
}

func main() {
	requests := flag.Int("n", 1000, "number of covering requests")
	workers := flag.Int("c", 8, "concurrent workers")
	engine := flag.String("engine", "", "engine override (hex, quad, h3)")
	seedN := flag.Int("seed-entities", 0, "entities to produce into the ingest topic before the run")
	seed := flag.Int64("seed", 42, "random seed")
	flag.Parse()

	base := getenv("CELLCOVER_URL", "http://localhost:8090")
	brokers := strings.Split(getenv("KAFKA_BROKERS", "localhost:9092"), ",")
	topic := getenv("KAFKA_TOPIC", "cell-entities")

	if *seedN > 0 {
		rng := rand.New(rand.NewSource(*seed))
		if err := seedEntities(brokers, topic, *seedN, rng); err != nil {
			fmt.Println("seed error:", err)
			return
		}
	}

	fire(base, *engine, *requests, *workers, *seed)
}
