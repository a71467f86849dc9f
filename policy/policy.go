// Package policy defines pluggable per-shard eviction policies for the
// entity cache.
package policy

// Entry is the view of a resident cache entry a policy gets to see.
type Entry interface {
	// ID returns the entity id.
	ID() string
}

// Hooks expose O(1) operations on the shard's recency list (head=MRU,
// tail=LRU). The shard implements them and owns the id->entry map.
//
// All hook calls happen under the shard lock.
type Hooks interface {
	MoveToFront(Entry)
	// PushFront links a newly admitted entry at MRU.
	PushFront(Entry)
	// Remove unlinks the entry from the list.
	Remove(Entry)
	// Back returns the LRU entry, or nil if the shard is empty.
	Back() Entry
	Len() int
}

// ShardPolicy is a policy instance bound to one shard. All methods are
// invoked under the shard lock.
//
//   - OnAdd may return an eviction candidate. The shard evicts it and then
//     calls OnRemove for it.
//   - OnGet/OnUpdate usually promote the entry.
//   - OnRemove notifies the policy that the entry left the shard, for any
//     reason. The shard performs the actual removal.
type ShardPolicy interface {
	OnAdd(Entry) (evict Entry)
	OnGet(Entry)
	OnUpdate(Entry)
	OnRemove(Entry)
}

// Policy creates shard-local policy instances.
type Policy interface {
	New(Hooks) ShardPolicy
	// Name identifies the policy in logs and flags.
	Name() string
}
