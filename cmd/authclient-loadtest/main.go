package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"slices"
	"sync/atomic"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/MrEthical07/authclient"
	"github.com/MrEthical07/authclient/internal/logging"
	"github.com/MrEthical07/authclient/internal/testbackend"
	"github.com/MrEthical07/authclient/metrics/export/prometheus"
)

func main() {
	var (
		requests    = flag.Int("requests", 20000, "total requests to send")
		concurrency = flag.Int("concurrency", 64, "number of concurrent callers")
		expireEvery = flag.Int("expire-every", 2000, "invalidate access tokens every N requests (in-process backend only, 0 disables)")
		target      = flag.String("target", "", "backend base URL; if empty an in-process fake backend is started")
		path        = flag.String("path", testbackend.ItemsPath, "request path")
		configPath  = flag.String("config", "", "optional YAML config file")
		redisAddr   = flag.String("redis", "", "redis address for credentials; if empty, REDIS_ADDR env or miniredis is used")
		username    = flag.String("user", "admin", "login username")
		password    = flag.String("password", "secret", "login password")
		logFile     = flag.String("log-file", "", "write logs to a rotating file instead of discarding them")
		logLevel    = flag.String("log-level", "info", "log level")
		promOut     = flag.Bool("prometheus", false, "print metrics in Prometheus text format after the run")
	)
	flag.Parse()

	if *requests <= 0 || *concurrency <= 0 {
		fmt.Fprintln(os.Stderr, "requests and concurrency must be > 0")
		os.Exit(2)
	}

	var logOut io.Writer = io.Discard
	if *logFile != "" {
		rotator, err := logging.RotatingFile(*logFile, 50, 3)
		if err != nil {
			fmt.Fprintf(os.Stderr, "open log file: %v\n", err)
			os.Exit(1)
		}
		defer rotator.Close()
		logOut = rotator
	}
	log := logging.New(logOut, logging.ParseLevel(*logLevel))

	var backend *testbackend.Server
	base := *target
	if base == "" {
		backend = testbackend.New(testbackend.Options{RefreshDelay: 5 * time.Millisecond})
		defer backend.Close()
		base = backend.URL
		fmt.Printf("using in-process backend at %s\n", base)
	}

	rdb, cleanup, err := redisClient(*redisAddr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "redis: %v\n", err)
		os.Exit(1)
	}
	defer cleanup()

	cfg := authclient.DefaultConfig()
	if *configPath != "" {
		if cfg, err = authclient.LoadConfig(*configPath); err != nil {
			fmt.Fprintf(os.Stderr, "load config: %v\n", err)
			os.Exit(1)
		}
	}
	cfg.Backend.BaseURL = base
	cfg.Metrics.Enabled = true
	cfg.Metrics.EnableLatencyHistograms = true
	cfg.Session.RedirectDelay = 0

	client, err := authclient.New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithLogger(log).
		Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "build client: %v\n", err)
		os.Exit(1)
	}
	defer client.Close()

	ctx := context.Background()
	if resp := client.Login(ctx, authclient.LoginRequest{Username: *username, Password: *password}); !resp.Success {
		fmt.Fprintf(os.Stderr, "login failed: %s\n", resp.Message)
		os.Exit(1)
	}

	stats := runPhase(ctx, client, backend, *path, *requests, *concurrency, *expireEvery)

	fmt.Println("---- results ----")
	stats.print(os.Stdout, "requests")
	snap := client.MetricsSnapshot()
	fmt.Printf("refresh: exchanges=%d joined=%d failures=%d replays=%d replay_rejected=%d\n",
		client.RefreshExchanges(),
		snap.Counters[authclient.MetricRefreshJoined],
		snap.Counters[authclient.MetricRefreshFailure],
		snap.Counters[authclient.MetricReplay],
		snap.Counters[authclient.MetricReplayRejected],
	)
	if backend != nil {
		s := backend.Stats()
		fmt.Printf("backend: api=%d unauthorized=%d refresh=%d\n", s.API, s.Unauthorized, s.Refresh)
	}
	if *promOut {
		fmt.Print(prometheus.NewPrometheusExporter(client).Render())
	}
}

func redisClient(addr string) (redis.UniversalClient, func(), error) {
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}
	if addr != "" {
		client := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
		fmt.Printf("using redis at %s\n", addr)
		return client, func() { _ = client.Close() }, nil
	}

	mr, err := miniredis.Run()
	if err != nil {
		return nil, nil, fmt.Errorf("start miniredis: %w", err)
	}
	client := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{mr.Addr()}})
	fmt.Printf("using miniredis at %s\n", mr.Addr())
	return client, func() {
		_ = client.Close()
		mr.Close()
	}, nil
}

func runPhase(ctx context.Context, client *authclient.Client, backend *testbackend.Server, path string, requests, concurrency, expireEvery int) runSummary {
	var (
		next     atomic.Int64
		failures atomic.Int64
	)
	perWorker := make([][]time.Duration, concurrency)

	g, gctx := errgroup.WithContext(ctx)
	began := time.Now()
	for w := range concurrency {
		g.Go(func() error {
			samples := make([]time.Duration, 0, requests/concurrency+1)
			defer func() { perWorker[w] = samples }()
			for {
				i := int(next.Add(1)) - 1
				if i >= requests {
					return nil
				}
				if backend != nil && expireEvery > 0 && i > 0 && i%expireEvery == 0 {
					backend.ExpireAccess()
				}
				sent := time.Now()
				resp := client.Get(gctx, path)
				samples = append(samples, time.Since(sent))
				if resp.Success {
					continue
				}
				failures.Add(1)
				if !client.Authenticated(gctx) {
					return fmt.Errorf("session ended after request %d: %s", i, resp.Message)
				}
			}
		})
	}
	if err := g.Wait(); err != nil {
		fmt.Fprintf(os.Stderr, "run aborted: %v\n", err)
	}
	return summarize(time.Since(began), slices.Concat(perWorker...), failures.Load())
}
