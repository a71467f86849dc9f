package cache

import (
	"context"
	"errors"
	"time"

	"github.com/IvanBrykalov/catscache/metrics"
	"github.com/IvanBrykalov/catscache/policy"
	"go.uber.org/zap"
)

// EvictReason explains why an entity left the cache without an explicit EvictAll.
type EvictReason int

const (
	// EvictPolicy: chosen by the eviction policy (for example 2Q's A1in overflow).
	EvictPolicy EvictReason = iota
	// EvictTTL: expired, noticed lazily on read.
	EvictTTL
	// EvictCapacity: removed to keep the partition within Capacity.
	EvictCapacity
)

func (r EvictReason) String() string {
	switch r {
	case EvictTTL:
		return "ttl"
	case EvictCapacity:
		return "capacity"
	default:
		return "policy"
	}
}

// DefaultBatchSize is used when ReadBatchSize or WriteBatchSize is not set.
const DefaultBatchSize = 100

// DefaultPrefix names the cache when Options.Prefix is empty.
const DefaultPrefix = "default"

// ErrNotFound may be returned by a Loader to report a missing entity
// without it being logged as a failure.
var ErrNotFound = errors.New("cache: entity not found")

// Loader fetches an entity from the backing store on a read miss.
type Loader func(ctx context.Context, typ, id string) (Resource, error)

// Clock provides time in UnixNano; useful for deterministic tests.
type Clock interface{ NowUnixNano() int64 }

// Options configures a Cache. Zero values are safe; New applies:
//   - empty Prefix        => DefaultPrefix
//   - Shards <= 0         => auto (rounded up to power of two)
//   - nil Policy          => LRU
//   - batch sizes <= 0    => DefaultBatchSize
//   - nil Reporter        => metrics.Noop
//   - nil Logger          => zap.NewNop()
type Options struct {
	// Prefix is the namespace reported with every metric, e.g. a region or
	// provider name.
	Prefix string

	// Capacity is the entity limit of each type partition.
	Capacity int

	// Shards per type partition. If 0, about 2*GOMAXPROCS.
	Shards int

	Policy policy.Policy

	// ReadBatchSize and WriteBatchSize size the batches that select, write
	// and delete operation counts are derived from.
	ReadBatchSize  int
	WriteBatchSize int

	// DefaultTTL applies to merged entities (0 = no TTL).
	DefaultTTL time.Duration

	// Loader fills read misses. Concurrent loads of the same entity are coalesced.
	Loader Loader

	// Observability
	// Reporter receives merge/evict/get counts; it is wrapped with metrics.Safe.
	Reporter metrics.Reporter
	Logger   *zap.Logger
	// OnEvict is called under the shard lock for every non-explicit removal.
	OnEvict func(typ string, r Resource, reason EvictReason)

	// Clock allows overriding time source (tests). Nil => time.Now().
	Clock Clock
}

func (o *Options) applyDefaults() {
	if o.Prefix == "" {
		o.Prefix = DefaultPrefix
	}
	if o.ReadBatchSize <= 0 {
		o.ReadBatchSize = DefaultBatchSize
	}
	if o.WriteBatchSize <= 0 {
		o.WriteBatchSize = DefaultBatchSize
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	o.Reporter = metrics.Safe(metrics.Default(o.Reporter), o.Logger)
}
