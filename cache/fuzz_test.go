package cache

import (
	"strings"
	"testing"

	"github.com/IvanBrykalov/catscache/metrics/memory"
)

// Fuzz merge/get/evict round trips under arbitrary ids and attribute values.
// Reported counts must match what the cache did.
func FuzzCache_MergeGetEvict(f *testing.F) {
	f.Add("a", "1", "rel")
	f.Add("αβγ", "δ", "")
	f.Add("emoji🙂", "🙂🙂", "x")
	f.Add("long", strings.Repeat("x", 1024), "y")

	f.Fuzz(func(t *testing.T, id, val, rel string) {
		const limit = 1 << 12
		if len(id) > limit {
			id = id[:limit]
		}
		if len(val) > limit {
			val = val[:limit]
		}
		if id == "" {
			t.Skip("empty ids are rejected by design")
		}

		mem := memory.New()
		c := New(Options{Prefix: "fuzz", Capacity: 16, Shards: 1, Reporter: mem})
		t.Cleanup(func() { _ = c.Close() })

		r := Resource{ID: id, Attributes: map[string]any{"v": val}, Relationships: map[string][]string{"t": {rel}}}
		c.Merge("typ", r)
		c.Merge("typ", r) // identical: a duplicate

		got, ok := c.Get("typ", id)
		if !ok || got.Attributes["v"] != val || got.Relationships["t"][0] != rel {
			t.Fatalf("after merge: got %+v ok=%v", got, ok)
		}
		if c.EvictAll("typ", []string{id}) != 1 {
			t.Fatal("EvictAll must remove the entity once")
		}
		if _, ok := c.Get("typ", id); ok {
			t.Fatal("entity must be absent after EvictAll")
		}

		st, _ := mem.Partition("fuzz", "typ")
		if st.ItemsStored != 1 || st.Duplicates != 1 || st.ItemsDeleted != 1 || st.ItemCount != 0 {
			t.Fatalf("unexpected stats: %+v", st)
		}
		if st.Sync.Calls != 2 || st.Sync.RequestedSize != 2 {
			t.Fatalf("unexpected reads: %+v", st.Sync)
		}
	})
}
