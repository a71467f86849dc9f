// Package prom exports cache reports as Prometheus counters and gauges.
package prom

import (
	"strings"

	"github.com/IvanBrykalov/catscache/metrics"
	"github.com/prometheus/client_golang/prometheus"
)

// Adapter implements metrics.Reporter on top of Prometheus collectors.
// Safe for concurrent use; all Prometheus metric types are goroutine-safe.
type Adapter struct {
	mergeCalls      *prometheus.CounterVec
	mergeStored     *prometheus.CounterVec
	mergeRelStored  *prometheus.CounterVec
	mergeSelects    *prometheus.CounterVec
	mergeWrites     *prometheus.CounterVec
	mergeDeletes    *prometheus.CounterVec
	mergeDuplicates *prometheus.CounterVec
	evictCalls      *prometheus.CounterVec
	evictDeleted    *prometheus.CounterVec
	evictDeletes    *prometheus.CounterVec
	getCalls        *prometheus.CounterVec
	getRequested    *prometheus.CounterVec
	getRelRequested *prometheus.CounterVec
	getSelects      *prometheus.CounterVec
	items           *prometheus.GaugeVec
	relationships   *prometheus.GaugeVec
}

var (
	partitionLabels = []string{"prefix", "type"}
	readLabels      = []string{"prefix", "type", "mode"}
)

// New constructs a Prometheus reporter.
//   - reg:          registry to register metrics with (nil => prometheus.DefaultRegisterer)
//   - ns, sub:      Prometheus namespace and subsystem
//   - constLabels:  static labels applied to all metrics (may be nil)
//
// New panics if the collectors are already registered on reg.
func New(reg prometheus.Registerer, ns, sub string, constLabels prometheus.Labels) *Adapter {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	counter := func(name, help string, labels []string) *prometheus.CounterVec {
		return prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   ns,
			Subsystem:   sub,
			Name:        name,
			Help:        help,
			ConstLabels: constLabels,
		}, labels)
	}
	gauge := func(name, help string) *prometheus.GaugeVec {
		return prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace:   ns,
			Subsystem:   sub,
			Name:        name,
			Help:        help,
			ConstLabels: constLabels,
		}, partitionLabels)
	}

	a := &Adapter{
		mergeCalls:      counter("merge_calls_total", "Merge operations reported", partitionLabels),
		mergeStored:     counter("merge_items_stored_total", "Entities written by merges", partitionLabels),
		mergeRelStored:  counter("merge_relationships_stored_total", "Relationship edges written by merges", partitionLabels),
		mergeSelects:    counter("merge_select_operations_total", "Storage reads issued by merges", partitionLabels),
		mergeWrites:     counter("merge_write_operations_total", "Storage writes issued by merges", partitionLabels),
		mergeDeletes:    counter("merge_delete_operations_total", "Storage deletes issued by merges", partitionLabels),
		mergeDuplicates: counter("merge_duplicates_total", "Entities skipped by merges because they were current", partitionLabels),
		evictCalls:      counter("evict_calls_total", "Evict operations reported", partitionLabels),
		evictDeleted:    counter("evict_items_deleted_total", "Entities removed by evictions", partitionLabels),
		evictDeletes:    counter("evict_delete_operations_total", "Storage deletes issued by evictions", partitionLabels),
		getCalls:        counter("get_calls_total", "Read operations reported, by read mode", readLabels),
		getRequested:    counter("get_requested_items_total", "Entities requested by reads, by read mode", readLabels),
		getRelRequested: counter("get_relationships_requested_total", "Relationship edges requested by reads, by read mode", readLabels),
		getSelects:      counter("get_select_operations_total", "Storage reads issued by reads, by read mode", readLabels),
		items:           gauge("items", "Entities known for the partition at the last report"),
		relationships:   gauge("relationships", "Relationship edges known for the partition at the last merge"),
	}
	reg.MustRegister(
		a.mergeCalls, a.mergeStored, a.mergeRelStored, a.mergeSelects, a.mergeWrites, a.mergeDeletes, a.mergeDuplicates,
		a.evictCalls, a.evictDeleted, a.evictDeletes,
		a.getCalls, a.getRequested, a.getRelRequested, a.getSelects,
		a.items, a.relationships,
	)
	return a
}

// ReportMerge adds the merge counts to the partition's counters.
func (a *Adapter) ReportMerge(prefix, typ string, s metrics.MergeStats) {
	prefix, typ = label(prefix), label(typ)
	add(a.mergeCalls, 1, prefix, typ)
	add(a.mergeStored, s.ItemsStored, prefix, typ)
	add(a.mergeRelStored, s.RelationshipsStored, prefix, typ)
	add(a.mergeSelects, s.SelectOperations, prefix, typ)
	add(a.mergeWrites, s.WriteOperations, prefix, typ)
	add(a.mergeDeletes, s.DeleteOperations, prefix, typ)
	add(a.mergeDuplicates, s.Duplicates, prefix, typ)
	set(a.items, s.ItemCount, prefix, typ)
	set(a.relationships, s.RelationshipCount, prefix, typ)
}

// ReportEvict adds the eviction counts to the partition's counters.
func (a *Adapter) ReportEvict(prefix, typ string, s metrics.EvictStats) {
	prefix, typ = label(prefix), label(typ)
	add(a.evictCalls, 1, prefix, typ)
	add(a.evictDeleted, s.ItemsDeleted, prefix, typ)
	add(a.evictDeletes, s.DeleteOperations, prefix, typ)
	set(a.items, s.ItemCount, prefix, typ)
}

// ReportGet adds the read counts under the read-mode label, so async and
// sync reads always land in different series.
func (a *Adapter) ReportGet(prefix, typ string, s metrics.GetStats) {
	prefix, typ = label(prefix), label(typ)
	mode := s.Mode()
	add(a.getCalls, 1, prefix, typ, mode)
	add(a.getRequested, s.RequestedSize, prefix, typ, mode)
	add(a.getRelRequested, s.RelationshipsRequested, prefix, typ, mode)
	add(a.getSelects, s.SelectOperations, prefix, typ, mode)
	set(a.items, s.ItemCount, prefix, typ)
}

// label replaces invalid UTF-8, which Prometheus rejects in label values.
func label(v string) string { return strings.ToValidUTF8(v, "\uFFFD") }

// add increments c by n. Counter.Add panics on negative values, so n is clamped.
// Label errors drop the sample.
func add(c *prometheus.CounterVec, n int, lvs ...string) {
	if m, err := c.GetMetricWithLabelValues(lvs...); err == nil {
		m.Add(float64(metrics.NonNegative(n)))
	}
}

func set(g *prometheus.GaugeVec, n int, lvs ...string) {
	if m, err := g.GetMetricWithLabelValues(lvs...); err == nil {
		m.Set(float64(metrics.NonNegative(n)))
	}
}

// Compile-time check: ensure Adapter implements metrics.Reporter.
var _ metrics.Reporter = (*Adapter)(nil)
