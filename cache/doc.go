// Package cache is an in-memory entity cache partitioned by (prefix, type)
// that reports every merge, evict and get through a metrics.Reporter.
//
// Design
//
//   - Partitions: one Cache serves one prefix. Each entity type gets its own
//     partition, split into power-of-two shards guarded by a mutex. Shard
//     selection hashes the entity id with xxhash.
//
//   - Entities: a Resource carries attributes and relationships (directed
//     edges grouped by target type). Merging a resource whose content digest
//     equals the resident copy counts as a duplicate and does not rewrite it.
//
//   - Policies: eviction is pluggable via the policy package. LRU is the
//     default; 2Q resists scan pollution.
//
//   - TTL: DefaultTTL sets a deadline on merged entities. Expiration is lazy
//     on read and on re-merge.
//
//   - Loader: read misses may be filled from a backing store; concurrent
//     loads of the same entity are coalesced.
//
//   - Metrics: Options.Reporter receives one report per operation, computed
//     after the operation finished. Select, write and delete operation counts
//     are batches of ReadBatchSize/WriteBatchSize. Without a Reporter,
//     metrics.Noop is used; any Reporter is wrapped with metrics.Safe so a
//     failing backend never breaks a cache call.
//
// Basic usage
//
//	c := cache.New(cache.Options{Prefix: "aws", Capacity: 10_000})
//	c.MergeAll("instances", []cache.Resource{{
//	    ID:            "i-123",
//	    Attributes:    map[string]any{"state": "running"},
//	    Relationships: map[string][]string{"serverGroups": {"app-v001"}},
//	}})
//	rs := c.GetAll("instances", []string{"i-123"}, "serverGroups")
//	c.EvictAll("instances", []string{"i-123"})
//
// Exporting metrics
//
//	rep := prom.New(nil, "cats", "cache", nil)
//	c := cache.New(cache.Options{Prefix: "aws", Capacity: 10_000, Reporter: rep})
package cache
