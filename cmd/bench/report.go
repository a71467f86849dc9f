package main

import (
	"fmt"
	"io"
	"time"

	"github.com/IvanBrykalov/catscache/cache"
	"github.com/IvanBrykalov/catscache/metrics/memory"
)

func report(w io.Writer, cfg config, c cache.Cache, mem *memory.Reporter, n *counters, elapsed time.Duration) {
	merges, evicts := n.merges.Load(), n.evicts.Load()
	reads, async := n.reads.Load(), n.asyncReads.Load()
	ops := merges + evicts + reads + async

	fmt.Fprintf(w, "policy=%s cap=%d shards=%d workers=%d keys=%d batch=%d dur=%v seed=%d\n",
		cfg.Policy, cfg.Capacity, cfg.Shards, cfg.Workers, cfg.Keys, cfg.Batch, elapsed.Round(time.Millisecond), cfg.Seed)
	fmt.Fprintf(w, "ops=%d (%.0f ops/s)  merges=%d  evicts=%d  reads=%d  async=%d  errors=%d\n",
		ops, float64(ops)/elapsed.Seconds(), merges, evicts, reads, async, n.errs.Load())

	for _, st := range mem.Snapshot() {
		requested := st.Sync.RequestedSize + st.Async.RequestedSize
		cs := c.Stats(st.Type)
		hitRate := 0.0
		if lookups := cs.Hits + cs.Misses; lookups > 0 {
			hitRate = float64(cs.Hits) / float64(lookups) * 100
		}
		fmt.Fprintf(w, "%s/%s: len=%d rels=%d hit-rate=%.2f%% stored=%d dup=%d deleted=%d requested=%d (sync=%d async=%d) selects=%d\n",
			st.Prefix, st.Type, cs.Items, cs.Relationships, hitRate,
			st.ItemsStored, st.Duplicates, st.ItemsDeleted,
			requested, st.Sync.RequestedSize, st.Async.RequestedSize,
			st.MergeSelects+st.Sync.SelectOperations+st.Async.SelectOperations)
	}
}
