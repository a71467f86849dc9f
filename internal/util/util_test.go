package util

import "testing"

func TestNextPow2(t *testing.T) {
	t.Parallel()

	cases := map[uint64]uint64{0: 1, 1: 1, 2: 2, 3: 4, 5: 8, 64: 64, 65: 128, 1<<63 + 1: 1 << 63}
	for in, want := range cases {
		if got := NextPow2(in); got != want {
			t.Errorf("NextPow2(%d) = %d, want %d", in, got, want)
		}
		if !IsPowerOfTwo(NextPow2(in)) {
			t.Errorf("NextPow2(%d) is not a power of two", in)
		}
	}
}

func TestShardCount(t *testing.T) {
	t.Parallel()

	if got := ShardCount(3); got != 4 {
		t.Fatalf("ShardCount(3) = %d, want 4", got)
	}
	if got := ShardCount(10_000); got != MaxShards {
		t.Fatalf("ShardCount(10000) = %d, want %d", got, MaxShards)
	}
	if got := ShardCount(0); !IsPowerOfTwo(uint64(got)) || got > MaxShards {
		t.Fatalf("ShardCount(0) = %d", got)
	}
}

func TestBatches(t *testing.T) {
	t.Parallel()

	for _, tc := range []struct{ n, batch, want int }{
		{0, 100, 0}, {1, 100, 1}, {100, 100, 1}, {101, 100, 2}, {5, 0, 1}, {-1, 10, 0},
	} {
		if got := Batches(tc.n, tc.batch); got != tc.want {
			t.Errorf("Batches(%d, %d) = %d, want %d", tc.n, tc.batch, got, tc.want)
		}
	}
}

func TestHashString_Deterministic(t *testing.T) {
	t.Parallel()

	if HashString("x") != HashString("x") {
		t.Fatal("hash must be deterministic")
	}
	if HashString("sg-1") == HashString("sg-2") {
		t.Fatal("distinct ids should hash apart")
	}
}
