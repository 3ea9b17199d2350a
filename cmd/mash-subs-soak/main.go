// Command mash-subs-soak races many connections and subscription streams
// through start, stop, self-completion and close, and reports whether every
// stream was disposed exactly once.
//
// Usage:
//
//	mash-subs-soak [flags]
//
// Examples:
//
//	# Default run with the built-in configuration
//	mash-subs-soak
//
//	# Larger run, lifecycle log and /metrics taken from a config file
//	mash-subs-soak -config soak.yaml -connections 500 -streams 100
//
//	# Keep serving /metrics for a minute after the run
//	mash-subs-soak -config soak.yaml -hold 1m
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mash-protocol/mash-subs/cmd/mash-subs-soak/soak"
	"github.com/mash-protocol/mash-subs/pkg/config"
	"github.com/mash-protocol/mash-subs/pkg/connection"
)

func main() {
	defaults := soak.DefaultOptions()

	configPath := flag.String("config", "", "Configuration file (YAML)")
	connections := flag.Int("connections", defaults.Connections, "Number of connections")
	streams := flag.Int("streams", defaults.Streams, "Streams started per connection")
	workers := flag.Int("workers", defaults.Workers, "Connections running concurrently")
	duplicates := flag.Float64("duplicates", defaults.DuplicateRatio, "Chance a stream reuses an existing id")
	complete := flag.Float64("complete", defaults.CompleteRatio, "Chance a stream completes on its own")
	stop := flag.Float64("stop", defaults.StopRatio, "Chance a running stream is stopped during close")
	seed := flag.Uint64("seed", defaults.Seed, "Random seed")
	hold := flag.Duration("hold", 0, "Keep serving /metrics this long after the run")
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		var err error
		cfg, err = config.Load(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	}

	rt, err := cfg.Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, rt, cfg, soak.Options{
		Connections:    *connections,
		Streams:        *streams,
		Workers:        *workers,
		DuplicateRatio: *duplicates,
		CompleteRatio:  *complete,
		StopRatio:      *stop,
		Notifications:  defaults.Notifications,
		Seed:           *seed,
		NewConfig: func(i int) connection.Config {
			return rt.ConnectionConfig(fmt.Sprintf("soak-%d", i))
		},
	}, *hold)
	cancel()

	if err := rt.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: close runtime: %v\n", err)
		code = 1
	}
	os.Exit(code)
}

func run(ctx context.Context, rt *config.Runtime, cfg *config.Config, opts soak.Options, hold time.Duration) int {
	var server *http.Server
	if rt.Registry != nil {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(rt.Registry, promhttp.HandlerOpts{}))
		server = &http.Server{
			Addr:              cfg.Metrics.Address,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				rt.Logger.Error("metrics server error", "error", err)
			}
		}()
		rt.Logger.Info("serving metrics", "address", cfg.Metrics.Address)
	}

	rt.Logger.Info("soak started",
		"connections", opts.Connections,
		"streams", opts.Streams,
		"workers", opts.Workers,
		"seed", opts.Seed)

	res, err := soak.Run(ctx, opts)
	fmt.Println(res)

	code := 0
	if err != nil {
		rt.Logger.Error("soak failed", "error", err)
		code = 1
	} else {
		rt.Logger.Info("soak passed", "elapsed", res.Elapsed)
	}

	if server != nil {
		if hold > 0 {
			select {
			case <-time.After(hold):
			case <-ctx.Done():
			}
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}
	return code
}
