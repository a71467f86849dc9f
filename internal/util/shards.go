package util

import "runtime"

// MaxShards caps the automatic shard count.
const MaxShards = 256

// ShardCount normalizes a requested shard count: n <= 0 picks
// nextPow2(2*GOMAXPROCS); any other value is rounded up to a power of two.
// The result is clamped to [1..MaxShards].
func ShardCount(n int) int {
	if n <= 0 {
		p := runtime.GOMAXPROCS(0)
		if p < 1 {
			p = 1
		}
		n = 2 * p
	}
	n = int(NextPow2(uint64(n)))
	if n > MaxShards {
		n = MaxShards
	}
	return n
}

// ShardIndex maps a 64-bit hash to a shard index. shards must be a power of two.
func ShardIndex(hash uint64, shards int) int {
	if shards <= 1 {
		return 0
	}
	return int(hash & uint64(shards-1))
}

// Batches returns how many batches of size batch are needed for n items.
// Zero items need zero batches.
func Batches(n, batch int) int {
	if n <= 0 {
		return 0
	}
	if batch <= 0 {
		return 1
	}
	return (n + batch - 1) / batch
}
