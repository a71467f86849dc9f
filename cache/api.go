package cache

import (
	"context"

	"github.com/IvanBrykalov/catscache/metrics"
)

// Cache stores entities partitioned by type under a single prefix and
// reports every merge, evict and get to Options.Reporter.
// All methods are safe for concurrent use by multiple goroutines.
type Cache interface {
	// MergeAll inserts or updates items of typ. Items whose content equals
	// the resident copy count as duplicates and are not rewritten.
	MergeAll(typ string, items []Resource) MergeResult

	// Merge is MergeAll for a single item.
	Merge(typ string, item Resource) MergeResult

	// EvictAll removes ids from typ and returns how many were present.
	EvictAll(typ string, ids []string) int

	// Get returns one entity with all of its relationships.
	Get(typ, id string) (Resource, bool)

	// GetAll returns the entities of typ found for ids, in request order.
	// relFilter limits the relationship types returned (empty = all).
	GetAll(typ string, ids []string, relFilter ...string) []Resource

	// GetAllAsync is GetAll with batches read concurrently. It returns the
	// entities read so far and ctx.Err() if ctx ends first.
	GetAllAsync(ctx context.Context, typ string, ids []string, relFilter ...string) ([]Resource, error)

	// Len returns the number of resident entities of typ.
	Len(typ string) int

	// RelationshipCount returns the number of edges held by entities of typ.
	RelationshipCount(typ string) int

	// Stats returns counters for the typ partition.
	Stats(typ string) Stats

	// Types returns the known types, sorted.
	Types() []string

	// Prefix returns the namespace this cache reports under.
	Prefix() string

	// Close marks the cache closed. Later calls are ignored and
	// GetAllAsync returns ErrClosed.
	Close() error
}

// Stats describes one type partition. Hits, Misses and Evictions count
// since the partition was created; Evictions excludes EvictAll.
type Stats struct {
	Items         int
	Relationships int
	Hits          uint64
	Misses        uint64
	Evictions     uint64
}

// MergeResult is what MergeAll reported, plus the capacity evictions the
// merge caused.
type MergeResult struct {
	metrics.MergeStats
	Evicted int
	// Skipped counts items rejected for having an empty ID.
	Skipped int
}
