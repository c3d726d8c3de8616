package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/joho/godotenv"

	"github.com/hackgods/salon-booking-assistant/internal/dialogue"
	"github.com/hackgods/salon-booking-assistant/internal/session"
	"github.com/hackgods/salon-booking-assistant/internal/temporal"
)

type SimConfig struct {
	APIBaseURL string
	Duration   time.Duration
	Workers    int
	BookRatio  float64
	Timezone   string
}

type OperationMetrics struct {
	Total     int64
	Success   int64
	Error     int64
	Latencies []time.Duration
	mu        sync.Mutex
}

func (om *OperationMetrics) Record(latency time.Duration, success bool) {
	atomic.AddInt64(&om.Total, 1)
	if success {
		atomic.AddInt64(&om.Success, 1)
	} else {
		atomic.AddInt64(&om.Error, 1)
	}

	om.mu.Lock()
	om.Latencies = append(om.Latencies, latency)
	om.mu.Unlock()
}

func (om *OperationMetrics) Stats() (avg, min, max, p50, p95 time.Duration) {
	om.mu.Lock()
	defer om.mu.Unlock()

	if len(om.Latencies) == 0 {
		return 0, 0, 0, 0, 0
	}

	latencies := make([]time.Duration, len(om.Latencies))
	copy(latencies, om.Latencies)
	sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })

	var sum time.Duration
	for _, l := range latencies {
		sum += l
	}

	avg = sum / time.Duration(len(latencies))
	min = latencies[0]
	max = latencies[len(latencies)-1]
	p50 = latencies[percentileIndex(len(latencies), 50)]
	p95 = latencies[percentileIndex(len(latencies), 95)]
	return avg, min, max, p50, p95
}

func percentileIndex(n, p int) int {
	idx := n * p / 100
	if idx >= n {
		idx = n - 1
	}
	return idx
}

type Metrics struct {
	Turn    OperationMetrics // every /api/chat call
	Booking OperationMetrics // complete booking conversations
	View    OperationMetrics // login plus view conversations
}

type Simulator struct {
	config  SimConfig
	loc     *time.Location
	client  *http.Client
	metrics Metrics

	mu     sync.RWMutex
	phones []string // customers that completed registration
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("simulator starting")

	cfg := loadConfig()
	if err := validateConfig(cfg); err != nil {
		log.Fatalf("invalid config: %v", err)
	}
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		log.Fatalf("invalid timezone %q: %v", cfg.Timezone, err)
	}

	log.Printf("config: base=%s duration=%s workers=%d book=%.2f",
		cfg.APIBaseURL, cfg.Duration, cfg.Workers, cfg.BookRatio)

	sim := &Simulator{
		config: cfg,
		loc:    loc,
		client: &http.Client{Timeout: 10 * time.Second},
	}

	sim.Run()
	sim.PrintReport()
}

func loadConfig() SimConfig {
	_ = godotenv.Load()

	return SimConfig{
		APIBaseURL: strings.TrimRight(getEnv("SIM_API_BASE_URL", "http://localhost:8011"), "/"),
		Duration:   getDuration("SIM_DURATION", 30*time.Second),
		Workers:    getInt("SIM_WORKERS", 10),
		BookRatio:  getFloat("SIM_BOOK_RATIO", 0.7),
		Timezone:   getEnv("TIMEZONE", "Asia/Kolkata"),
	}
}

func validateConfig(cfg SimConfig) error {
	if cfg.Workers <= 0 {
		return fmt.Errorf("SIM_WORKERS must be > 0")
	}
	if cfg.Duration <= 0 {
		return fmt.Errorf("SIM_DURATION must be > 0")
	}
	if cfg.BookRatio < 0 || cfg.BookRatio > 1 {
		return fmt.Errorf("SIM_BOOK_RATIO must be within [0, 1]")
	}
	return nil
}

func (s *Simulator) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), s.config.Duration)
	defer cancel()

	log.Printf("starting simulation for %s with %d workers", s.config.Duration, s.config.Workers)

	var wg sync.WaitGroup
	for i := 0; i < s.config.Workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			s.worker(ctx, workerID)
		}(i)
	}

	wg.Wait()
	log.Println("simulation complete")
}

func (s *Simulator) worker(ctx context.Context, workerID int) {
	rng := rand.New(rand.NewSource(time.Now().UnixNano() + int64(workerID)))

	for ctx.Err() == nil {
		if rng.Float64() < s.config.BookRatio {
			s.doBooking(ctx, rng)
		} else {
			s.doView(ctx, rng)
		}
	}
}

// conversation walks one scripted chat, echoing state between turns.
type conversation struct {
	sim  *Simulator
	last dialogue.Response
}

func (c *conversation) say(ctx context.Context, text string) error {
	body, _ := json.Marshal(dialogue.Request{
		Text:        text,
		Step:        c.last.NextStep,
		Phone:       c.last.Phone,
		TempBooking: c.last.TempBooking,
		Version:     c.last.Version,
	})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.sim.config.APIBaseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.sim.client.Do(req)
	if err != nil {
		c.sim.metrics.Turn.Record(time.Since(start), false)
		return err
	}
	defer resp.Body.Close()

	var out dialogue.Response
	decErr := json.NewDecoder(resp.Body).Decode(&out)
	ok := resp.StatusCode == http.StatusOK && decErr == nil
	c.sim.metrics.Turn.Record(time.Since(start), ok)
	if !ok {
		return fmt.Errorf("turn %q: status %d", text, resp.StatusCode)
	}
	c.last = out
	return nil
}

func (c *conversation) expect(step session.Step) error {
	if c.last.NextStep != step {
		return fmt.Errorf("expected step %s, got %s: %q", step, c.last.NextStep, c.last.Reply)
	}
	return nil
}

// login enters phone and, for new customers, a name.
func (c *conversation) login(ctx context.Context, phone string, rng *rand.Rand) error {
	if err := c.say(ctx, phone); err != nil {
		return err
	}
	if c.last.NextStep == session.StepNewUserName {
		if err := c.say(ctx, fmt.Sprintf("Sim Customer %d", rng.Intn(10000))); err != nil {
			return err
		}
	}
	return c.expect(session.StepMainMenu)
}

func (s *Simulator) doBooking(ctx context.Context, rng *rand.Rand) {
	phone := s.pickPhone(rng, true)
	date := time.Now().In(s.loc).AddDate(0, 0, 1+rng.Intn(14)).Format("02-01-2006")
	hour := 10 + rng.Intn(13)

	c := &conversation{sim: s}
	start := time.Now()
	err := func() error {
		if err := c.login(ctx, phone, rng); err != nil {
			return err
		}
		script := []struct {
			text string
			next session.Step
		}{
			{"1", session.StepBookService},
			{strconv.Itoa(1 + rng.Intn(6)), session.StepBookService},
			{"done", session.StepBookBranch},
			{strconv.Itoa(1 + rng.Intn(4)), session.StepBookDate},
			{date, session.StepBookTime},
			{temporal.Label(hour), session.StepMainMenu},
		}
		for _, step := range script {
			if err := c.say(ctx, step.text); err != nil {
				return err
			}
			if err := c.expect(step.next); err != nil {
				return err
			}
		}
		if !strings.Contains(c.last.Reply, "confirmed") {
			return fmt.Errorf("booking not confirmed: %q", c.last.Reply)
		}
		return nil
	}()

	if err != nil && ctx.Err() != nil {
		return
	}
	if err == nil {
		s.addPhone(phone)
	} else {
		log.Printf("booking conversation failed: %v", err)
	}
	s.metrics.Booking.Record(time.Since(start), err == nil)
}

func (s *Simulator) doView(ctx context.Context, rng *rand.Rand) {
	phone := s.pickPhone(rng, false)
	if phone == "" {
		return
	}

	c := &conversation{sim: s}
	start := time.Now()
	err := func() error {
		if err := c.login(ctx, phone, rng); err != nil {
			return err
		}
		if err := c.say(ctx, "2"); err != nil {
			return err
		}
		return c.expect(session.StepMainMenu)
	}()

	if err != nil && ctx.Err() != nil {
		return
	}
	if err != nil {
		log.Printf("view conversation failed: %v", err)
	}
	s.metrics.View.Record(time.Since(start), err == nil)
}

// pickPhone returns a known customer, or a fresh number when allowNew and
// the coin lands that way.
func (s *Simulator) pickPhone(rng *rand.Rand, allowNew bool) string {
	s.mu.RLock()
	n := len(s.phones)
	var known string
	if n > 0 {
		known = s.phones[rng.Intn(n)]
	}
	s.mu.RUnlock()

	if allowNew && (known == "" || rng.Intn(2) == 0) {
		return fmt.Sprintf("%d%09d", 6+rng.Intn(4), rng.Intn(1_000_000_000))
	}
	return known
}

func (s *Simulator) addPhone(phone string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.phones = append(s.phones, phone)
}

func (s *Simulator) PrintReport() {
	fmt.Println("\n" + strings.Repeat("=", 80))
	fmt.Println("SIMULATION REPORT")
	fmt.Println(strings.Repeat("=", 80))
	fmt.Printf("Duration: %s\n", s.config.Duration)
	fmt.Printf("Workers: %d\n", s.config.Workers)
	fmt.Println()

	printOperationReport("Chat turn", &s.metrics.Turn)
	printOperationReport("Booking conversation", &s.metrics.Booking)
	printOperationReport("View conversation", &s.metrics.View)
}

func printOperationReport(name string, om *OperationMetrics) {
	total := atomic.LoadInt64(&om.Total)
	if total == 0 {
		return
	}

	success := atomic.LoadInt64(&om.Success)
	failed := atomic.LoadInt64(&om.Error)
	avg, min, max, p50, p95 := om.Stats()

	fmt.Printf("%s:\n", name)
	fmt.Printf("  Total: %d\n", total)
	fmt.Printf("  Success: %d (%.1f%%)\n", success, float64(success)/float64(total)*100)
	if failed > 0 {
		fmt.Printf("  Errors: %d (%.1f%%)\n", failed, float64(failed)/float64(total)*100)
	}
	fmt.Printf("  Latency: avg=%s min=%s max=%s p50=%s p95=%s\n",
		avg.Round(time.Millisecond), min.Round(time.Millisecond), max.Round(time.Millisecond),
		p50.Round(time.Millisecond), p95.Round(time.Millisecond))
	fmt.Println()
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func getInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}
