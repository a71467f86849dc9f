package main

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/IvanBrykalov/catscache/cache"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// config holds every bench setting. Values come from flags, then
// CATSCACHE_* environment variables, then an optional config file.
type config struct {
	Prefix   string        `mapstructure:"prefix"`
	Types    []string      `mapstructure:"types"`
	Capacity int           `mapstructure:"capacity"`
	Shards   int           `mapstructure:"shards"`
	Policy   string        `mapstructure:"policy"`
	TTL      time.Duration `mapstructure:"ttl"`

	ReadBatch  int `mapstructure:"read-batch"`
	WriteBatch int `mapstructure:"write-batch"`

	Workers  int           `mapstructure:"workers"`
	Duration time.Duration `mapstructure:"duration"`
	Reads    int           `mapstructure:"reads"`
	Evicts   int           `mapstructure:"evicts"`
	Async    int           `mapstructure:"async"`
	Batch    int           `mapstructure:"batch"`

	Keys    int     `mapstructure:"keys"`
	ZipfS   float64 `mapstructure:"zipf-s"`
	ZipfV   float64 `mapstructure:"zipf-v"`
	Seed    int64   `mapstructure:"seed"`
	Preload int     `mapstructure:"preload"`

	HTTP     string `mapstructure:"http"`
	Pprof    string `mapstructure:"pprof"`
	LogLevel string `mapstructure:"log-level"`
	LogEach  bool   `mapstructure:"log-reports"`
}

func bindFlags(fs *pflag.FlagSet) {
	fs.String("config", "", "config file (yaml, json or toml)")
	fs.String("prefix", "bench", "namespace reported with every metric")
	fs.StringSlice("types", []string{"instance", "serverGroup", "loadBalancer"}, "entity types to spread the workload over")
	fs.Int("capacity", 100_000, "entity capacity per type")
	fs.Int("shards", 0, "shards per type (0=auto)")
	fs.String("policy", "lru", "eviction policy: lru | 2q")
	fs.Duration("ttl", 0, "entity TTL (0=none)")
	fs.Int("read-batch", 100, "read batch size")
	fs.Int("write-batch", 100, "write batch size")

	fs.Int("workers", 2*runtime.GOMAXPROCS(0), "number of worker goroutines")
	fs.Duration("duration", 10*time.Second, "benchmark duration")
	fs.Int("reads", 80, "read percentage [0..100]")
	fs.Int("evicts", 5, "evict percentage [0..100]; the rest are merges")
	fs.Int("async", 20, "percentage of reads served by the async path [0..100]")
	fs.Int("batch", 10, "ids per operation")

	fs.Int("keys", 1_000_000, "id space size")
	fs.Float64("zipf-s", 1.1, "Zipf s > 1 (skew)")
	fs.Float64("zipf-v", 1.0, "Zipf v >= 1")
	fs.Int64("seed", time.Now().UnixNano(), "random seed")
	fs.Int("preload", 0, "entities preloaded per type (0 = capacity/2)")

	fs.String("http", ":8080", "serve Prometheus metrics at addr (empty = disabled)")
	fs.String("pprof", "", "serve pprof at addr (e.g. :6060); empty = disabled")
	fs.String("log-level", "info", "log level: debug | info | warn | error")
	fs.Bool("log-reports", false, "log every metrics report at debug level")
}

// loadConfig resolves the configuration from fs, the environment and the
// optional --config file.
func loadConfig(fs *pflag.FlagSet) (config, error) {
	v := viper.New()
	v.SetEnvPrefix("CATSCACHE")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	if err := v.BindPFlags(fs); err != nil {
		return config{}, fmt.Errorf("bind flags: %w", err)
	}
	if path := v.GetString("config"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg config
	if err := v.Unmarshal(&cfg); err != nil {
		return config{}, fmt.Errorf("decode config: %w", err)
	}
	return cfg, cfg.validate()
}

func (c *config) validate() error {
	var errs []error
	pct := func(name string, v int) {
		if v < 0 || v > 100 {
			errs = append(errs, fmt.Errorf("%s must be in [0..100], got %d", name, v))
		}
	}
	pct("reads", c.Reads)
	pct("evicts", c.Evicts)
	pct("async", c.Async)
	if c.Reads+c.Evicts > 100 {
		errs = append(errs, fmt.Errorf("reads+evicts must not exceed 100, got %d", c.Reads+c.Evicts))
	}
	if c.Capacity <= 0 {
		errs = append(errs, errors.New("capacity must be > 0"))
	}
	if c.Keys < 1 {
		errs = append(errs, errors.New("keys must be >= 1"))
	}
	if c.ZipfS <= 1 || c.ZipfV < 1 {
		errs = append(errs, fmt.Errorf("zipf parameters need s > 1 and v >= 1, got s=%v v=%v", c.ZipfS, c.ZipfV))
	}
	if len(c.Types) == 0 {
		errs = append(errs, errors.New("at least one type is required"))
	}
	if c.Policy != "lru" && c.Policy != "2q" {
		errs = append(errs, fmt.Errorf("unknown policy %q (use lru or 2q)", c.Policy))
	}
	if c.Workers <= 0 {
		c.Workers = 1
	}
	if c.Batch <= 0 {
		c.Batch = 1
	}
	if c.ReadBatch <= 0 {
		c.ReadBatch = cache.DefaultBatchSize
	}
	if c.WriteBatch <= 0 {
		c.WriteBatch = cache.DefaultBatchSize
	}
	if c.Preload <= 0 {
		c.Preload = c.Capacity / 2
	}
	return errors.Join(errs...)
}
