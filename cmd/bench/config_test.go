package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/IvanBrykalov/catscache/cache"
	"github.com/IvanBrykalov/catscache/internal/util"
	"github.com/spf13/pflag"
)

func newFlags(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	fs := pflag.NewFlagSet("bench", pflag.ContinueOnError)
	bindFlags(fs)
	if err := fs.Parse(args); err != nil {
		t.Fatal(err)
	}
	return fs
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := loadConfig(newFlags(t))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Policy != "lru" || cfg.Capacity != 100_000 || cfg.Preload != 50_000 {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if len(cfg.Types) != 3 {
		t.Fatalf("types = %v", cfg.Types)
	}
}

func TestLoadConfig_EnvOverridesDefault(t *testing.T) {
	t.Setenv("CATSCACHE_READ_BATCH", "7")
	cfg, err := loadConfig(newFlags(t))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.ReadBatch != 7 {
		t.Fatalf("ReadBatch = %d, want 7", cfg.ReadBatch)
	}
}

func TestLoadConfig_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bench.yaml")
	if err := os.WriteFile(path, []byte("policy: 2q\nreads: 60\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg, err := loadConfig(newFlags(t, "--config", path, "--reads", "50"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Policy != "2q" {
		t.Fatalf("Policy = %q, want file value", cfg.Policy)
	}
	if cfg.Reads != 50 {
		t.Fatalf("Reads = %d, explicit flag must win over the file", cfg.Reads)
	}
}

func TestLoadConfig_Invalid(t *testing.T) {
	_, err := loadConfig(newFlags(t, "--reads", "90", "--evicts", "20", "--policy", "lfu"))
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{"reads+evicts", "unknown policy"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %q", err, want)
		}
	}
}

func TestLoadConfig_NonPositiveBatchesDefault(t *testing.T) {
	cfg, err := loadConfig(newFlags(t, "--read-batch", "0", "--write-batch", "-1", "--capacity", "10", "--types", "serverGroup"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.ReadBatch != cache.DefaultBatchSize || cfg.WriteBatch != cache.DefaultBatchSize {
		t.Fatalf("batches = %d/%d, want %d", cfg.ReadBatch, cfg.WriteBatch, cache.DefaultBatchSize)
	}

	c := cache.New(cache.Options{Capacity: cfg.Capacity, Shards: 1})
	t.Cleanup(func() { _ = c.Close() })
	preload(c, cfg)
	if n := c.Len("serverGroup"); n != cfg.Preload {
		t.Fatalf("preloaded %d, want %d", n, cfg.Preload)
	}
}

func TestTwoQSizes_FollowCacheShardCount(t *testing.T) {
	cfg := config{Capacity: 1024}
	shards := util.ShardCount(0)
	per := (1024 + shards - 1) / shards

	capIn, capGhost := twoQSizes(cfg)
	if capIn != per/4 || capGhost != per/2 {
		t.Fatalf("sizes = %d/%d, want %d/%d for %d shards", capIn, capGhost, per/4, per/2, shards)
	}

	cfg.Shards = 4
	if capIn, capGhost = twoQSizes(cfg); capIn != 64 || capGhost != 128 {
		t.Fatalf("sizes with 4 shards = %d/%d, want 64/128", capIn, capGhost)
	}
}
