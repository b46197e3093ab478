package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net"
	"net/http"
	"os"
	"runtime"
	"sort"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/vango-dev/silo/internal/config"
	"github.com/vango-dev/silo/internal/errors"
	"github.com/vango-dev/silo/pkg/instrument"
	"github.com/vango-dev/silo/pkg/silo"
)

type profile struct {
	Name        string
	Dispatches  int
	Subscribers int
	Observers   int
	Children    int
}

var profiles = map[string]profile{
	config.ProfileFast: {
		Name:        config.ProfileFast,
		Dispatches:  10_000,
		Subscribers: 4,
		Observers:   2,
		Children:    2,
	},
	config.ProfileStandard: {
		Name:        config.ProfileStandard,
		Dispatches:  100_000,
		Subscribers: 16,
		Observers:   8,
		Children:    4,
	},
	config.ProfileStress: {
		Name:        config.ProfileStress,
		Dispatches:  1_000_000,
		Subscribers: 64,
		Observers:   32,
		Children:    8,
	},
}

// benchFlags holds command-line overrides. Negative counts mean unset.
type benchFlags struct {
	profile     string
	dispatches  int
	subscribers int
	observers   int
	children    int
	jsonOutput  string
	metricsAddr string
	linger      time.Duration
	tracing     bool
}

type benchConfig struct {
	Profile     string
	Dispatches  int
	Subscribers int
	Observers   int
	Children    int
	JSONOutput  string
	MetricsAddr string
	Namespace   string
	Linger      time.Duration
	Tracing     bool
	TracerName  string
}

type benchReport struct {
	RunID     string         `json:"run_id"`
	Timestamp string         `json:"timestamp"`
	GoVersion string         `json:"go_version"`
	Workload  workloadInfo   `json:"workload"`
	Results   throughputInfo `json:"throughput"`
	LatencyUS latencyInfo    `json:"latency_us"`
	Memory    memoryInfo     `json:"memory"`
}

type workloadInfo struct {
	Profile     string `json:"profile"`
	Dispatches  int    `json:"dispatches"`
	Subscribers int    `json:"subscribers"`
	Observers   int    `json:"observers"`
	Children    int    `json:"children"`
}

type throughputInfo struct {
	Completed        int     `json:"completed"`
	ElapsedMS        float64 `json:"elapsed_ms"`
	DispatchesPerSec float64 `json:"dispatches_per_sec"`
	Notifications    uint64  `json:"notifications"`
	ObserverCalls    uint64  `json:"observer_calls"`
}

type latencyInfo struct {
	Min float64 `json:"min"`
	P50 float64 `json:"p50"`
	P95 float64 `json:"p95"`
	P99 float64 `json:"p99"`
	Max float64 `json:"max"`
}

type memoryInfo struct {
	BytesPerDispatch  float64 `json:"bytes_per_dispatch"`
	AllocsPerDispatch float64 `json:"allocs_per_dispatch"`
	NumGC             uint32  `json:"num_gc"`
}

func benchCmd(load func() (*config.Config, error)) *cobra.Command {
	var flags benchFlags

	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Measure dispatch throughput and latency",
		Long: `Measure dispatch throughput and latency.

Each dispatch increments one child silo; every child is combined into one
composite watched by the configured subscribers and observers.

Profiles:
  fast       10k dispatches, 4 subscribers, 2 observers, 2 children
  standard   100k dispatches, 16 subscribers, 8 observers, 4 children
  stress     1M dispatches, 64 subscribers, 32 observers, 8 children

Examples:
  silo bench --profile=fast
  silo bench --metrics-addr=localhost:9464 --linger=30s
  silo bench --json=report.json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			bc, err := resolveBenchConfig(cfg, flags)
			if err != nil {
				return err
			}
			logger := cfg.Logger(cmd.ErrOrStderr())

			report, err := runBench(cmd.Context(), bc, logger)
			if err != nil {
				return err
			}

			writeSummary(cmd.ErrOrStderr(), report)
			return writeJSON(cmd.OutOrStdout(), bc.JSONOutput, report)
		},
	}

	cmd.Flags().StringVarP(&flags.profile, "profile", "p", "", "Profile: fast|standard|stress (default from config)")
	cmd.Flags().IntVar(&flags.dispatches, "dispatches", -1, "Number of dispatches")
	cmd.Flags().IntVar(&flags.subscribers, "subscribers", -1, "Subscribers on the combined silo")
	cmd.Flags().IntVar(&flags.observers, "observers", -1, "Observers on the combined silo")
	cmd.Flags().IntVar(&flags.children, "children", -1, "Child silos in the combined silo")
	cmd.Flags().StringVar(&flags.jsonOutput, "json", "-", "JSON output path ('-' for stdout, '' to disable)")
	cmd.Flags().StringVar(&flags.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address while running")
	cmd.Flags().DurationVar(&flags.linger, "linger", 0, "Keep the metrics endpoint up this long after the run")
	cmd.Flags().BoolVar(&flags.tracing, "tracing", false, "Trace every dispatch with OpenTelemetry")

	return cmd
}

// resolveBenchConfig merges profile, config file and flags, in that order of
// increasing precedence.
func resolveBenchConfig(cfg *config.Config, flags benchFlags) (benchConfig, error) {
	name := strings.ToLower(strings.TrimSpace(flags.profile))
	if name == "" {
		name = cfg.Bench.Profile
	}

	base, ok := profiles[name]
	if !ok {
		return benchConfig{}, errors.New("S030").
			WithDetail(fmt.Sprintf("Profile %q is not defined", name))
	}

	bc := benchConfig{
		Profile:     base.Name,
		Dispatches:  pick(flags.dispatches, cfg.Bench.Dispatches, base.Dispatches),
		Subscribers: pick(flags.subscribers, cfg.Bench.Subscribers, base.Subscribers),
		Observers:   pick(flags.observers, cfg.Bench.Observers, base.Observers),
		Children:    pick(flags.children, cfg.Bench.Children, base.Children),
		JSONOutput:  strings.TrimSpace(flags.jsonOutput),
		MetricsAddr: flags.metricsAddr,
		Namespace:   cfg.Metrics.Namespace,
		Linger:      flags.linger,
		Tracing:     flags.tracing || cfg.Tracing.Enabled,
		TracerName:  cfg.Tracing.TracerName,
	}
	if bc.MetricsAddr == "" && cfg.Metrics.Enabled {
		bc.MetricsAddr = cfg.Metrics.Addr
	}

	if bc.Dispatches <= 0 {
		return benchConfig{}, errors.Newf(errors.CategoryCLI, "--dispatches must be > 0")
	}
	if bc.Children <= 0 {
		return benchConfig{}, errors.Newf(errors.CategoryCLI, "--children must be > 0")
	}
	if bc.Subscribers < 0 || bc.Observers < 0 {
		return benchConfig{}, errors.Newf(errors.CategoryCLI, "--subscribers and --observers must be >= 0")
	}

	return bc, nil
}

// pick returns the flag value when set, then the configured value when set,
// then the profile default.
func pick(flag, configured, def int) int {
	if flag >= 0 {
		return flag
	}
	if configured > 0 {
		return configured
	}
	return def
}

func runBench(ctx context.Context, cfg benchConfig, logger *slog.Logger) (benchReport, error) {
	runID := uuid.NewString()
	logger = logger.With("run", runID)

	registry := prometheus.NewRegistry()
	var instruments []silo.Instrument
	if cfg.MetricsAddr != "" {
		instruments = append(instruments, instrument.Prometheus(
			instrument.WithRegistry(registry),
			instrument.WithNamespace(cfg.Namespace),
		))
	}
	if cfg.Tracing {
		instruments = append(instruments, instrument.OpenTelemetry(
			instrument.WithTracerName(cfg.TracerName),
			instrument.WithBaseContext(ctx),
		))
	}

	var stopServer func()
	if cfg.MetricsAddr != "" {
		addr, stop, err := serveMetrics(cfg.MetricsAddr, registry)
		if err != nil {
			return benchReport{}, err
		}
		stopServer = stop
		logger.Info("serving metrics", "addr", "http://"+addr+"/metrics")
	}

	opts := []silo.Option{silo.WithLogger(logger)}
	if len(instruments) > 0 {
		opts = append(opts, silo.WithInstrument(instrument.Multi(instruments...)))
	}

	children := make([]silo.Action[int], cfg.Children)
	members := make(map[string]silo.Member, cfg.Children)
	names := make([]string, cfg.Children)
	for i := range children {
		names[i] = fmt.Sprintf("child-%d", i)
		child := silo.New(0, append([]silo.Option{silo.WithName(names[i])}, opts...)...)
		children[i] = silo.Bind(child, "add", func(n, delta int) int { return n + delta })
		members[names[i]] = child
	}
	combined := silo.Combine(members, silo.WithName("bench"), silo.WithLogger(logger))
	defer combined.Destroy()

	var notifications, observerCalls uint64
	for i := 0; i < cfg.Subscribers; i++ {
		combined.Subscribe(func(next, prev *silo.CombinedState) {
			notifications++
		})
	}
	for i := 0; i < cfg.Observers; i++ {
		name := names[i%len(names)]
		silo.Observe[*silo.CombinedState, int](combined,
			func(state *silo.CombinedState) int {
				n, _ := silo.Child[int](state, name)
				return n
			},
			func(int) { observerCalls++ },
		)
	}
	observerCalls = 0

	logger.Info("bench started",
		"profile", cfg.Profile,
		"dispatches", cfg.Dispatches,
		"subscribers", cfg.Subscribers,
		"observers", cfg.Observers,
		"children", cfg.Children,
	)

	latencies := make([]time.Duration, 0, cfg.Dispatches)

	var before runtime.MemStats
	runtime.GC()
	runtime.ReadMemStats(&before)

	start := time.Now()
	for i := 0; i < cfg.Dispatches; i++ {
		if i&1023 == 0 && ctx.Err() != nil {
			logger.Warn("bench interrupted", "completed", i)
			break
		}
		t0 := time.Now()
		children[i%len(children)](1)
		latencies = append(latencies, time.Since(t0))
	}
	elapsed := time.Since(start)

	var after runtime.MemStats
	runtime.ReadMemStats(&after)

	sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })
	report := buildReport(runID, cfg, elapsed, latencies, notifications, observerCalls, before, after)

	if stopServer != nil {
		if cfg.Linger > 0 {
			logger.Info("lingering for metrics scrape", "duration", cfg.Linger)
			select {
			case <-ctx.Done():
			case <-time.After(cfg.Linger):
			}
		}
		stopServer()
	}

	return report, nil
}

// metricsRouter exposes the registry on /metrics.
func metricsRouter(registry *prometheus.Registry) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	return r
}

// serveMetrics starts the metrics endpoint and returns its address and a
// function shutting it down.
func serveMetrics(addr string, registry *prometheus.Registry) (string, func(), error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return "", nil, errors.New("S031").
			WithDetail(fmt.Sprintf("Could not listen on %s", addr)).
			Wrap(err)
	}

	httpServer := &http.Server{
		Handler:           metricsRouter(registry),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		_ = httpServer.Serve(ln)
	}()

	stop := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = httpServer.Shutdown(ctx)
	}
	return ln.Addr().String(), stop, nil
}

func buildReport(
	runID string,
	cfg benchConfig,
	elapsed time.Duration,
	latencies []time.Duration,
	notifications uint64,
	observerCalls uint64,
	before runtime.MemStats,
	after runtime.MemStats,
) benchReport {
	completed := len(latencies)
	elapsedSeconds := math.Max(0.000001, elapsed.Seconds())

	latency := latencyInfo{}
	if completed > 0 {
		latency = latencyInfo{
			Min: us(latencies[0]),
			P50: us(percentile(latencies, 0.50)),
			P95: us(percentile(latencies, 0.95)),
			P99: us(percentile(latencies, 0.99)),
			Max: us(latencies[completed-1]),
		}
	}

	memory := memoryInfo{NumGC: after.NumGC - before.NumGC}
	if completed > 0 {
		memory.BytesPerDispatch = float64(after.TotalAlloc-before.TotalAlloc) / float64(completed)
		memory.AllocsPerDispatch = float64(after.Mallocs-before.Mallocs) / float64(completed)
	}

	return benchReport{
		RunID:     runID,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		GoVersion: runtime.Version(),
		Workload: workloadInfo{
			Profile:     cfg.Profile,
			Dispatches:  cfg.Dispatches,
			Subscribers: cfg.Subscribers,
			Observers:   cfg.Observers,
			Children:    cfg.Children,
		},
		Results: throughputInfo{
			Completed:        completed,
			ElapsedMS:        float64(elapsed) / float64(time.Millisecond),
			DispatchesPerSec: float64(completed) / elapsedSeconds,
			Notifications:    notifications,
			ObserverCalls:    observerCalls,
		},
		LatencyUS: latency,
		Memory:    memory,
	}
}

func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	if p <= 0 {
		return sorted[0]
	}
	if p >= 1 {
		return sorted[len(sorted)-1]
	}
	idx := int(math.Ceil(float64(len(sorted))*p)) - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

func us(d time.Duration) float64 {
	return float64(d) / float64(time.Microsecond)
}

func writeSummary(w io.Writer, report benchReport) {
	fmt.Fprintln(w, "=== Silo Dispatch Benchmark ===")
	fmt.Fprintf(w, "Run: %s\n", report.RunID)
	fmt.Fprintf(w, "Profile: %s\n", report.Workload.Profile)
	fmt.Fprintf(w, "Children: %d, subscribers: %d, observers: %d\n",
		report.Workload.Children, report.Workload.Subscribers, report.Workload.Observers)
	fmt.Fprintln(w)

	fmt.Fprintf(w, "Dispatches: %d of %d\n", report.Results.Completed, report.Workload.Dispatches)
	fmt.Fprintf(w, "Throughput: %.0f dispatches/s\n", report.Results.DispatchesPerSec)
	fmt.Fprintf(w, "Notifications: %d, observer calls: %d\n", report.Results.Notifications, report.Results.ObserverCalls)
	fmt.Fprintln(w)

	if report.Results.Completed == 0 {
		fmt.Fprintln(w, "No latency samples recorded.")
	} else {
		fmt.Fprintln(w, "Dispatch latency (modifier + combined fan-out):")
		fmt.Fprintf(w, "  min: %.2f µs\n", report.LatencyUS.Min)
		fmt.Fprintf(w, "  p50: %.2f µs\n", report.LatencyUS.P50)
		fmt.Fprintf(w, "  p95: %.2f µs\n", report.LatencyUS.P95)
		fmt.Fprintf(w, "  p99: %.2f µs\n", report.LatencyUS.P99)
		fmt.Fprintf(w, "  max: %.2f µs\n", report.LatencyUS.Max)
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "Memory: %.1f B/dispatch, %.2f allocs/dispatch, %d GCs\n",
		report.Memory.BytesPerDispatch, report.Memory.AllocsPerDispatch, report.Memory.NumGC)
}

// writeJSON writes report to path, to stdout when path is "-", or nowhere
// when path is empty.
func writeJSON(stdout io.Writer, path string, report benchReport) error {
	if path == "" {
		return nil
	}

	var out io.Writer
	if path == "-" {
		out = stdout
	} else {
		file, err := os.Create(path)
		if err != nil {
			return err
		}
		defer file.Close()
		out = file
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}
