// Package metrics defines the reporting contract a cache engine uses to
// publish counters for its merge (write), evict (delete) and get (read) paths.
//
// The engine calls a Reporter synchronously after each operation against a
// (prefix, type) partition. Reporters never return errors and must not block:
// a telemetry failure shows up as missing metrics, never as a cache error.
//
// Noop is the default when no backend is wired in. Concrete backends live in
// subpackages (prom, memory, zaplog).
package metrics

// Reporter receives operational counters from a cache engine.
// Implementations must be safe for concurrent use, must return quickly,
// and must never panic out of a call (see Safe).
type Reporter interface {
	// ReportMerge is called after a write-merge completes for one partition.
	ReportMerge(prefix, typ string, s MergeStats)
	// ReportEvict is called after entities were removed from one partition.
	ReportEvict(prefix, typ string, s EvictStats)
	// ReportGet is called after a read against one partition completes,
	// including reads that returned partial results.
	ReportGet(prefix, typ string, s GetStats)
}

// MergeStats describes a single merge.
type MergeStats struct {
	ItemCount           int // entities of this type known after the merge
	ItemsStored         int // entities actually written
	RelationshipCount   int // relationship edges known after the merge
	RelationshipsStored int // relationship edges written
	SelectOperations    int // storage reads issued
	WriteOperations     int // storage writes issued
	DeleteOperations    int // storage deletes issued
	Duplicates          int // entities skipped because they were already current
}

// EvictStats describes a single eviction pass.
type EvictStats struct {
	ItemCount        int // entities of this type known after the eviction
	ItemsDeleted     int
	DeleteOperations int
}

// GetStats describes a single read.
// The zero value of Async (false) marks an ordinary synchronous read.
type GetStats struct {
	ItemCount              int
	RequestedSize          int // entities requested, regardless of how many existed
	RelationshipsRequested int
	SelectOperations       int
	Async                  bool // served by a background/non-blocking path
}

// Mode returns the read-mode label for s: "async" or "sync".
func (s GetStats) Mode() string {
	if s.Async {
		return "async"
	}
	return "sync"
}

// Noop is a Reporter that does nothing. It allocates nothing and is safe
// for concurrent use.
type Noop struct{}

func (Noop) ReportMerge(string, string, MergeStats) {}
func (Noop) ReportEvict(string, string, EvictStats) {}
func (Noop) ReportGet(string, string, GetStats)     {}

// Default returns r, or Noop when r is nil.
func Default(r Reporter) Reporter {
	if r == nil {
		return Noop{}
	}
	return r
}

// Funcs implements Reporter from optional callbacks. Nil fields are no-ops,
// so a caller can override only the operations it cares about.
type Funcs struct {
	Merge func(prefix, typ string, s MergeStats)
	Evict func(prefix, typ string, s EvictStats)
	Get   func(prefix, typ string, s GetStats)
}

func (f Funcs) ReportMerge(prefix, typ string, s MergeStats) {
	if f.Merge != nil {
		f.Merge(prefix, typ, s)
	}
}

func (f Funcs) ReportEvict(prefix, typ string, s EvictStats) {
	if f.Evict != nil {
		f.Evict(prefix, typ, s)
	}
}

func (f Funcs) ReportGet(prefix, typ string, s GetStats) {
	if f.Get != nil {
		f.Get(prefix, typ, s)
	}
}

// NonNegative clamps n to zero. Backends use it before recording, since
// counters cannot go down.
func NonNegative(n int) int {
	if n < 0 {
		return 0
	}
	return n
}

// Compile-time checks.
var (
	_ Reporter = Noop{}
	_ Reporter = Funcs{}
)
