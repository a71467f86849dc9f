package cache

// entry is an intrusive doubly linked list element owned by a shard.
type entry struct {
	res    Resource
	digest uint64
	rels   int // edges in res, cached for shard accounting

	// Intrusive list links: head is MRU, tail is LRU.
	prev *entry
	next *entry

	// Absolute expiration deadline in UnixNano. Zero means no TTL.
	exp int64
}

// ID implements policy.Entry.
func (e *entry) ID() string { return e.res.ID }
