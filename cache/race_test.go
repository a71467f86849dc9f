package cache

import (
	"context"
	"math/rand"
	"runtime"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/IvanBrykalov/catscache/metrics/memory"
)

// A mixed workload of concurrent merges, evictions and reads across a few
// types. Should pass under `-race` without detector reports, and the memory
// reporter must see exactly the merges and reads issued.
func TestRace_MixedWorkload(t *testing.T) {
	mem := memory.New()
	c := New(Options{
		Prefix:     "race",
		Capacity:   2_048,
		Shards:     16,
		DefaultTTL: 50 * time.Millisecond,
		Reporter:   mem,
	})
	t.Cleanup(func() { _ = c.Close() })

	types := []string{"instance", "serverGroup", "loadBalancer"}
	workers := 4 * runtime.GOMAXPROCS(0)
	deadline := time.Now().Add(time.Second)

	var (
		mu     sync.Mutex
		merges = map[string]int64{}
		reads  = map[string]int64{}
	)

	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func(id int) {
			defer wg.Done()
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(id)*9973))
			localMerges := map[string]int64{}
			localReads := map[string]int64{}
			for time.Now().Before(deadline) {
				typ := types[r.Intn(len(types))]
				k := "id:" + strconv.Itoa(r.Intn(10_000))
				switch r.Intn(100) {
				case 0, 1, 2, 3, 4: // ~5% evict
					c.EvictAll(typ, []string{k})
				case 5, 6, 7, 8, 9, 10, 11, 12, 13, 14: // ~10% merge
					c.Merge(typ, Resource{ID: k, Relationships: map[string][]string{"x": {strconv.Itoa(r.Intn(4))}}})
					localMerges[typ]++
				case 15, 16, 17, 18, 19: // ~5% async read
					_, _ = c.GetAllAsync(context.Background(), typ, []string{k, k + "b"})
					localReads[typ]++
				default: // ~80% read
					c.GetAll(typ, []string{k})
					localReads[typ]++
				}
			}
			mu.Lock()
			for typ, n := range localMerges {
				merges[typ] += n
			}
			for typ, n := range localReads {
				reads[typ] += n
			}
			mu.Unlock()
		}(w)
	}
	wg.Wait()

	for _, typ := range types {
		st, _ := mem.Partition("race", typ)
		if st.MergeCalls != merges[typ] {
			t.Errorf("%s: MergeCalls = %d, want %d", typ, st.MergeCalls, merges[typ])
		}
		if got := st.Sync.Calls + st.Async.Calls; got != reads[typ] {
			t.Errorf("%s: get calls = %d, want %d", typ, got, reads[typ])
		}
		if st.ItemsStored+st.Duplicates != merges[typ] {
			t.Errorf("%s: stored+duplicates = %d, want %d", typ, st.ItemsStored+st.Duplicates, merges[typ])
		}
		if n := c.Len(typ); n > 2_048 {
			t.Errorf("%s: Len = %d exceeds capacity", typ, n)
		}
	}
}
