package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.etcd.io/bbolt"

	"github.com/alorle/iptv-checker/analyze"
	"github.com/alorle/iptv-checker/cache"
	"github.com/alorle/iptv-checker/config"
	"github.com/alorle/iptv-checker/fetch"
	"github.com/alorle/iptv-checker/m3u"
	"github.com/alorle/iptv-checker/output"
	"github.com/alorle/iptv-checker/pipeline"
	"github.com/alorle/iptv-checker/probe"
	"github.com/alorle/iptv-checker/store"
)

func main() {
	// .env is optional; real environment wins over it.
	_ = godotenv.Load()

	configPath := flag.String("config", "", "path to config.yaml")
	inputPath := flag.String("input", "", "file with playlist urls or free text containing them (default: stdin)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}))
	slog.SetDefault(logger)

	logger.Info("starting iptv-checker",
		"http", cfg.HTTP.Address+":"+cfg.HTTP.Port,
		"cache_dir", cfg.Cache.Dir,
		"output_dir", cfg.Output.Dir,
		"db_path", cfg.DBPath,
	)

	text, err := readInput(*inputPath)
	if err != nil {
		log.Fatalf("failed to read input: %v", err)
	}

	db, err := bbolt.Open(cfg.DBPath, 0600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Printf("error closing database: %v", err)
		}
	}()

	probeStore, err := store.NewProbeStore(db)
	if err != nil {
		log.Fatalf("failed to create probe store: %v", err)
	}

	cacheStore, err := cache.NewStore(cfg.Cache.Dir, cfg.Cache.TTL)
	if err != nil {
		log.Fatalf("failed to create cache store: %v", err)
	}

	saver, err := output.NewSaver(cfg.Output.Dir)
	if err != nil {
		log.Fatalf("failed to create output saver: %v", err)
	}

	httpClient := &http.Client{Timeout: cfg.Fetch.Timeout}
	fetcher := fetch.NewFetcher(httpClient, cfg.Fetch.UserAgent, cacheStore, uint(cfg.Fetch.Attempts), logger)
	prober := probe.New(httpClient, cfg.Fetch.UserAgent, nil, 0, 0)
	orchestrator := analyze.NewOrchestrator(
		recordingTester{prober: prober, store: probeStore, logger: logger},
		logger, 0,
	)

	runner := pipeline.NewRunner(fetcher, orchestrator, saver, logger)

	srv := startMetricsServer(cfg, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	opts := pipeline.Options{
		Countries:   cfg.Countries,
		ForceFormat: cfg.Output.Format != "",
		Format:      m3u.ParseFormat(cfg.Output.Format),
		Test: analyze.Options{
			SampleSize:        cfg.Test.SampleSize,
			Timeout:           cfg.Test.Timeout,
			MinPlayableToPass: cfg.Test.MinPlayableToPass,
			Delay:             cfg.Test.Delay,
			SkipAdultGroups:   cfg.Test.SkipAdultGroups,
			Shuffle:           cfg.Test.Shuffle,
			MaxGroupsToTest:   cfg.Test.MaxGroupsToTest,
			StreamsPerGroup:   cfg.Test.StreamsPerGroup,
			MaxConcurrent:     cfg.Test.MaxConcurrent,
		},
	}

	report, err := runner.Run(ctx, text, opts, func(p pipeline.Progress) {
		logger.Info("run progress",
			"run_id", p.RunID, "step", p.Step, "percent", p.Percent, "detail", p.Detail)
	})
	if err != nil {
		logger.Error("run failed", "error", err)
		shutdownServer(srv, logger)
		os.Exit(1)
	}

	logger.Info("run finished",
		"run_id", report.RunID,
		"working", report.Working,
		"failing", report.Failing,
		"channels", report.Channels,
		"saved", report.Saved.Name,
		"end_date", report.EndDate,
	)
	for _, rename := range report.Renames {
		logger.Info("group renamed", "rename", rename)
	}

	shutdownServer(srv, logger)
}

func readInput(path string) (string, error) {
	if path == "" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("failed to read stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func startMetricsServer(cfg *config.Config, logger *slog.Logger) *http.Server {
	router := mux.NewRouter()
	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	router.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}).Methods(http.MethodGet)

	srv := &http.Server{
		Addr:         cfg.HTTP.Address + ":" + cfg.HTTP.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("http server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server error", "error", err)
		}
	}()
	return srv
}

func shutdownServer(srv *http.Server, logger *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}
}

// recordingTester probes through the real prober and persists every
// deep probe result.
type recordingTester struct {
	prober *probe.Prober
	store  *store.ProbeStore
	logger *slog.Logger
}

func (t recordingTester) IsPlayable(ctx context.Context, url string) bool {
	return t.prober.IsPlayable(ctx, url)
}

func (t recordingTester) Check(ctx context.Context, url string) probe.Result {
	res := t.prober.Check(ctx, url)
	if err := t.store.Save(context.WithoutCancel(ctx), time.Now(), res); err != nil {
		t.logger.Warn("failed to record probe", "url", url, "error", err)
	}
	return res
}

var _ analyze.StreamTester = recordingTester{}
