// rigwatchd ingests drilling telemetry, runs the risk and optimization
// agents each cycle, and serves alerts and recommendations over HTTP.
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"rigwatch/pkg/api"
	"rigwatch/pkg/config"
	"rigwatch/pkg/ingest"
	"rigwatch/pkg/pipeline"
	"rigwatch/pkg/regression"
	"rigwatch/pkg/store"
)

func main() {
	configPath := flag.String("config", os.Getenv("RIGWATCH_CONFIG"), "path to YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("rigwatchd: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var db pipeline.CycleStore
	var repo *store.Repository
	if cfg.Database.DSN != "" {
		repo, err = store.OpenRepository(ctx, cfg.Database.DSN)
		if err != nil {
			log.Fatalf("rigwatchd: %v", err)
		}
		defer repo.Close()
		db = repo
	}

	ropBuf := regression.NewSampleBuffer(256)
	var cache *store.SampleCache
	if cfg.Redis.Addr != "" {
		cache, err = store.NewSampleCache(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			log.Fatalf("rigwatchd: %v", err)
		}
		defer cache.Close()
		if err := cache.LoadSamples(ctx, ropBuf); err != nil {
			log.Printf("rigwatchd: sample restore failed, starting cold: %v", err)
		} else if n := ropBuf.Len(); n > 0 {
			log.Printf("rigwatchd: restored %d training samples", n)
		}
	}

	source := ingest.NewSimulator(cfg.Simulator.Seed, cfg.Simulator.Volatility)
	runner := pipeline.NewRunner(cfg, source, ropBuf, db)

	httpSrv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           api.NewServer(runner, cfg.JWTSecret).Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Printf("rigwatchd: listening on %s", cfg.HTTPAddr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("rigwatchd: http server: %v", err)
		}
	}()

	if repo != nil {
		go retentionLoop(ctx, repo, cfg.Database.RetentionDays)
	}
	if cache != nil {
		go snapshotLoop(ctx, cache, runner)
	}

	log.Printf("rigwatchd: pipeline running every %v", cfg.PollInterval)
	if err := runner.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Printf("rigwatchd: pipeline stopped: %v", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Printf("rigwatchd: http shutdown: %v", err)
	}
	if cache != nil {
		if buf := runner.ROPBuffer(); buf != nil {
			if err := cache.SaveSamples(shutdownCtx, buf); err != nil {
				log.Printf("rigwatchd: sample snapshot failed: %v", err)
			}
		}
	}
	log.Printf("rigwatchd: stopped")
}

// retentionLoop purges rows past the retention horizon once an hour.
func retentionLoop(ctx context.Context, repo *store.Repository, days int) {
	if days <= 0 {
		return
	}
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := repo.Purge(ctx, time.Duration(days)*24*time.Hour)
			if err != nil {
				log.Printf("rigwatchd: retention purge: %v", err)
				continue
			}
			if n > 0 {
				log.Printf("rigwatchd: purged %d readings past retention", n)
			}
		}
	}
}

// snapshotLoop persists the ROP training buffer and latest reading every
// five minutes, so restarts resume with a warm model.
func snapshotLoop(ctx context.Context, cache *store.SampleCache, runner *pipeline.Runner) {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if buf := runner.ROPBuffer(); buf != nil {
				if err := cache.SaveSamples(ctx, buf); err != nil {
					log.Printf("rigwatchd: sample snapshot: %v", err)
				}
			}
			if snap := runner.Snapshot(); snap.Cycles > 0 {
				if err := cache.SaveReading(ctx, snap.Reading); err != nil {
					log.Printf("rigwatchd: reading snapshot: %v", err)
				}
			}
		}
	}
}
