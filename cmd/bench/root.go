package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	_ "net/http/pprof" // registers /debug/pprof/* on DefaultServeMux
	"os"
	"os/signal"
	"strconv"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/IvanBrykalov/catscache/cache"
	"github.com/IvanBrykalov/catscache/internal/util"
	"github.com/IvanBrykalov/catscache/metrics"
	"github.com/IvanBrykalov/catscache/metrics/memory"
	pmet "github.com/IvanBrykalov/catscache/metrics/prom"
	"github.com/IvanBrykalov/catscache/metrics/zaplog"
	"github.com/IvanBrykalov/catscache/policy"
	"github.com/IvanBrykalov/catscache/policy/lru"
	"github.com/IvanBrykalov/catscache/policy/twoq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Drive a synthetic workload through the entity cache",
		Long: `Run concurrent merge, evict and get operations against an in-memory
entity cache and report them through Prometheus, an in-process counter
backend and, optionally, structured logs.

Examples:
  # Ten seconds of 80% reads over three types
  bench --duration 10s --reads 80

  # 2Q policy, metrics on :9090
  bench --policy 2q --http :9090

  # Environment overrides
  CATSCACHE_WORKERS=4 CATSCACHE_LOG_LEVEL=debug bench`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd.Flags())
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return run(ctx, cfg)
		},
	}
	bindFlags(cmd.Flags())
	return cmd
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	zc := zap.NewProductionConfig()
	zc.EncoderConfig.TimeKey = "timestamp"
	zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	zc.Level = zap.NewAtomicLevelAt(lvl)
	return zc.Build()
}

func newPolicy(cfg config) policy.Policy {
	if cfg.Policy == "2q" {
		return twoq.New(twoQSizes(cfg))
	}
	return lru.New()
}

// twoQSizes returns per-shard queue sizes: A1in ≈ 25%, ghosts ≈ 50% of the
// shard's capacity, using the same shard count the cache will pick.
func twoQSizes(cfg config) (capIn, capGhost int) {
	shards := util.ShardCount(cfg.Shards)
	per := (cfg.Capacity + shards - 1) / shards
	return per / 4, per / 2
}

// counters are the bench-side totals, independent of what the reporters saw.
type counters struct {
	merges, evicts, reads, asyncReads, errs atomic.Uint64
}

func run(ctx context.Context, cfg config) error {
	log, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	// ---- Servers (on DefaultServeMux) ----
	if cfg.Pprof != "" {
		go serve(log, "pprof", cfg.Pprof)
	}
	promRep := pmet.New(nil, "cats", "bench", nil)
	if cfg.HTTP != "" {
		http.Handle("/metrics", promhttp.Handler())
		go serve(log, "metrics", cfg.HTTP)
	}

	// ---- Reporters ----
	mem := memory.New()
	reporters := []metrics.Reporter{promRep, mem}
	if cfg.LogEach {
		reporters = append(reporters, zaplog.New(log, zapcore.DebugLevel))
	}

	c := cache.New(cache.Options{
		Prefix:         cfg.Prefix,
		Capacity:       cfg.Capacity,
		Shards:         cfg.Shards,
		Policy:         newPolicy(cfg),
		ReadBatchSize:  cfg.ReadBatch,
		WriteBatchSize: cfg.WriteBatch,
		DefaultTTL:     cfg.TTL,
		Reporter:       metrics.Multi(log, reporters...),
		Logger:         log,
	})
	defer func() { _ = c.Close() }()

	preload(c, cfg)
	log.Info("preload done", zap.Int("per_type", cfg.Preload), zap.Strings("types", cfg.Types))

	// ---- Load generation ----
	var n counters
	ctx, cancel := context.WithTimeout(ctx, cfg.Duration)
	defer cancel()

	start := time.Now()
	var wg sync.WaitGroup
	wg.Add(cfg.Workers)
	for w := 0; w < cfg.Workers; w++ {
		go func(id int) {
			defer wg.Done()
			work(ctx, c, cfg, id, &n)
		}(w)
	}
	wg.Wait()
	elapsed := time.Since(start)

	report(os.Stdout, cfg, c, mem, &n, elapsed)
	return nil
}

func serve(log *zap.Logger, name, addr string) {
	log.Info("serving", zap.String("endpoint", name), zap.String("addr", addr))
	if err := http.ListenAndServe(addr, nil); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error("http server stopped", zap.String("endpoint", name), zap.Error(err))
	}
}

func preload(c cache.Cache, cfg config) {
	batch := make([]cache.Resource, 0, cfg.WriteBatch)
	for _, typ := range cfg.Types {
		for i := 0; i < cfg.Preload; i++ {
			batch = append(batch, resource(typ, i, 0))
			if len(batch) == cap(batch) {
				c.MergeAll(typ, batch)
				batch = batch[:0]
			}
		}
		if len(batch) > 0 {
			c.MergeAll(typ, batch)
			batch = batch[:0]
		}
	}
}

// resource builds a synthetic entity with a couple of relationships.
func resource(typ string, i, gen int) cache.Resource {
	return cache.Resource{
		ID:         "k:" + strconv.Itoa(i),
		Attributes: map[string]any{"type": typ, "gen": gen},
		Relationships: map[string][]string{
			"applications": {"app-" + strconv.Itoa(i%97)},
			"accounts":     {"acct-" + strconv.Itoa(i%7)},
		},
	}
}

func work(ctx context.Context, c cache.Cache, cfg config, id int, n *counters) {
	// rand.Rand is not goroutine-safe: one per worker.
	r := rand.New(rand.NewSource(cfg.Seed + int64(id)*9973))
	zipf := rand.NewZipf(r, cfg.ZipfS, cfg.ZipfV, uint64(cfg.Keys-1))

	ids := make([]string, cfg.Batch)
	items := make([]cache.Resource, cfg.Batch)
	for ctx.Err() == nil {
		typ := cfg.Types[r.Intn(len(cfg.Types))]
		op := r.Intn(100)
		switch {
		case op < cfg.Reads:
			for i := range ids {
				ids[i] = "k:" + strconv.FormatUint(zipf.Uint64(), 10)
			}
			if r.Intn(100) < cfg.Async {
				n.asyncReads.Add(1)
				if _, err := c.GetAllAsync(ctx, typ, ids, "applications"); err != nil && ctx.Err() == nil {
					n.errs.Add(1)
				}
			} else {
				n.reads.Add(1)
				c.GetAll(typ, ids)
			}
		case op < cfg.Reads+cfg.Evicts:
			for i := range ids {
				ids[i] = "k:" + strconv.FormatUint(zipf.Uint64(), 10)
			}
			n.evicts.Add(1)
			c.EvictAll(typ, ids)
		default:
			for i := range items {
				items[i] = resource(typ, int(zipf.Uint64()), r.Intn(4))
			}
			n.merges.Add(1)
			c.MergeAll(typ, items)
		}
	}
}
