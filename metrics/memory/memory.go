// Package memory records cache reports in process, as atomic counters keyed
// by (prefix, type). It backs tests and command-line summaries where a full
// metrics pipeline is not available.
package memory

import (
	"sort"
	"sync"

	"github.com/IvanBrykalov/catscache/internal/util"
	"github.com/IvanBrykalov/catscache/metrics"
)

// Partition identifies a (prefix, type) pair.
type Partition struct {
	Prefix string
	Type   string
}

// counters holds the running totals of one partition. Every quantity has its
// own cache line so concurrent reporters on the same partition do not contend.
type counters struct {
	mergeCalls          util.PaddedAtomicInt64
	itemsStored         util.PaddedAtomicInt64
	relationshipsStored util.PaddedAtomicInt64
	mergeSelects        util.PaddedAtomicInt64
	mergeWrites         util.PaddedAtomicInt64
	mergeDeletes        util.PaddedAtomicInt64
	duplicates          util.PaddedAtomicInt64

	evictCalls   util.PaddedAtomicInt64
	itemsDeleted util.PaddedAtomicInt64
	evictDeletes util.PaddedAtomicInt64

	// Read counters, indexed by read mode: [0]=sync, [1]=async.
	getCalls      [2]util.PaddedAtomicInt64
	requested     [2]util.PaddedAtomicInt64
	relsRequested [2]util.PaddedAtomicInt64
	getSelects    [2]util.PaddedAtomicInt64

	itemCount         util.PaddedAtomicInt64
	relationshipCount util.PaddedAtomicInt64
}

// Reporter implements metrics.Reporter with in-memory counters.
// The zero value is ready to use. Safe for concurrent use.
type Reporter struct {
	parts sync.Map // Partition -> *counters
}

// New returns an empty Reporter.
func New() *Reporter { return &Reporter{} }

func (r *Reporter) partition(prefix, typ string) *counters {
	k := Partition{Prefix: prefix, Type: typ}
	if c, ok := r.parts.Load(k); ok {
		return c.(*counters)
	}
	c, _ := r.parts.LoadOrStore(k, &counters{})
	return c.(*counters)
}

func add(c *util.PaddedAtomicInt64, n int) {
	if n > 0 {
		c.Add(int64(n))
	}
}

func mode(async bool) int {
	if async {
		return 1
	}
	return 0
}

// ReportMerge implements metrics.Reporter.
func (r *Reporter) ReportMerge(prefix, typ string, s metrics.MergeStats) {
	c := r.partition(prefix, typ)
	c.mergeCalls.Add(1)
	add(&c.itemsStored, s.ItemsStored)
	add(&c.relationshipsStored, s.RelationshipsStored)
	add(&c.mergeSelects, s.SelectOperations)
	add(&c.mergeWrites, s.WriteOperations)
	add(&c.mergeDeletes, s.DeleteOperations)
	add(&c.duplicates, s.Duplicates)
	c.itemCount.Store(int64(metrics.NonNegative(s.ItemCount)))
	c.relationshipCount.Store(int64(metrics.NonNegative(s.RelationshipCount)))
}

// ReportEvict implements metrics.Reporter.
func (r *Reporter) ReportEvict(prefix, typ string, s metrics.EvictStats) {
	c := r.partition(prefix, typ)
	c.evictCalls.Add(1)
	add(&c.itemsDeleted, s.ItemsDeleted)
	add(&c.evictDeletes, s.DeleteOperations)
	c.itemCount.Store(int64(metrics.NonNegative(s.ItemCount)))
}

// ReportGet implements metrics.Reporter. Sync and async reads are kept in
// separate buckets.
func (r *Reporter) ReportGet(prefix, typ string, s metrics.GetStats) {
	c := r.partition(prefix, typ)
	m := mode(s.Async)
	c.getCalls[m].Add(1)
	add(&c.requested[m], s.RequestedSize)
	add(&c.relsRequested[m], s.RelationshipsRequested)
	add(&c.getSelects[m], s.SelectOperations)
	c.itemCount.Store(int64(metrics.NonNegative(s.ItemCount)))
}

// Reads aggregates the read counters of one read mode.
type Reads struct {
	Calls                  int64
	RequestedSize          int64
	RelationshipsRequested int64
	SelectOperations       int64
}

// Stats is a point-in-time copy of one partition's counters.
type Stats struct {
	Partition

	MergeCalls          int64
	ItemsStored         int64
	RelationshipsStored int64
	MergeSelects        int64
	MergeWrites         int64
	MergeDeletes        int64
	Duplicates          int64

	EvictCalls   int64
	ItemsDeleted int64
	EvictDeletes int64

	Sync  Reads
	Async Reads

	// Last reported gauges.
	ItemCount         int64
	RelationshipCount int64
}

func (c *counters) stats(p Partition) Stats {
	reads := func(m int) Reads {
		return Reads{
			Calls:                  c.getCalls[m].Load(),
			RequestedSize:          c.requested[m].Load(),
			RelationshipsRequested: c.relsRequested[m].Load(),
			SelectOperations:       c.getSelects[m].Load(),
		}
	}
	return Stats{
		Partition:           p,
		MergeCalls:          c.mergeCalls.Load(),
		ItemsStored:         c.itemsStored.Load(),
		RelationshipsStored: c.relationshipsStored.Load(),
		MergeSelects:        c.mergeSelects.Load(),
		MergeWrites:         c.mergeWrites.Load(),
		MergeDeletes:        c.mergeDeletes.Load(),
		Duplicates:          c.duplicates.Load(),
		EvictCalls:          c.evictCalls.Load(),
		ItemsDeleted:        c.itemsDeleted.Load(),
		EvictDeletes:        c.evictDeletes.Load(),
		Sync:                reads(0),
		Async:               reads(1),
		ItemCount:           c.itemCount.Load(),
		RelationshipCount:   c.relationshipCount.Load(),
	}
}

// Partition returns the counters recorded for (prefix, typ).
// ok is false when nothing was reported for it yet.
func (r *Reporter) Partition(prefix, typ string) (Stats, bool) {
	p := Partition{Prefix: prefix, Type: typ}
	c, ok := r.parts.Load(p)
	if !ok {
		return Stats{Partition: p}, false
	}
	return c.(*counters).stats(p), true
}

// Snapshot returns the counters of every partition, sorted by prefix then type.
// Counters of one partition are read individually, so a snapshot taken during
// concurrent reporting may mix values from adjacent calls.
func (r *Reporter) Snapshot() []Stats {
	var out []Stats
	r.parts.Range(func(k, v any) bool {
		out = append(out, v.(*counters).stats(k.(Partition)))
		return true
	})
	sort.Slice(out, func(i, j int) bool {
		if out[i].Prefix != out[j].Prefix {
			return out[i].Prefix < out[j].Prefix
		}
		return out[i].Type < out[j].Type
	})
	return out
}

// Reset drops all recorded partitions.
func (r *Reporter) Reset() {
	r.parts.Range(func(k, _ any) bool {
		r.parts.Delete(k)
		return true
	})
}

var _ metrics.Reporter = (*Reporter)(nil)
