package cache

import (
	"math/rand"
	"strconv"
	"sync/atomic"
	"testing"

	"github.com/IvanBrykalov/catscache/metrics/memory"
)

// benchmarkMix runs a read/merge mix against a warm cache.
func benchmarkMix(b *testing.B, readsPct int, opt Options) {
	opt.Capacity = 100_000
	c := New(opt)
	b.Cleanup(func() { _ = c.Close() })

	// Preload half the capacity to get a realistic hit-rate.
	batch := make([]Resource, 0, 100)
	for i := 0; i < 50_000; i++ {
		batch = append(batch, Resource{ID: "k:" + strconv.Itoa(i)})
		if len(batch) == cap(batch) {
			c.MergeAll("serverGroup", batch)
			batch = batch[:0]
		}
	}

	b.ReportAllocs()
	b.ResetTimer()

	var seed int64 = 1
	keyMask := (1 << 16) - 1

	b.RunParallel(func(pb *testing.PB) {
		r := rand.New(rand.NewSource(atomic.AddInt64(&seed, 1)))
		i := 0
		for pb.Next() {
			k := "k:" + strconv.Itoa(i&keyMask)
			if r.Intn(100) < readsPct {
				c.GetAll("serverGroup", []string{k})
			} else {
				c.Merge("serverGroup", Resource{ID: k, Attributes: map[string]any{"n": i}})
			}
			i++
		}
	})
}

func BenchmarkCache_90r10w_Noop(b *testing.B) { benchmarkMix(b, 90, Options{}) }
func BenchmarkCache_50r50w_Noop(b *testing.B) { benchmarkMix(b, 50, Options{}) }

func BenchmarkCache_90r10w_Memory(b *testing.B) {
	benchmarkMix(b, 90, Options{Reporter: memory.New()})
}
