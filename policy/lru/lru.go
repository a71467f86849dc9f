// Package lru implements the LRU eviction policy.
package lru

import "github.com/IvanBrykalov/catscache/policy"

// lru is a classic move-to-front policy. Capacity is enforced by the shard,
// which evicts from the list tail.
type lru struct {
	h policy.Hooks
}

type lruPolicy struct{}

// New returns a Policy that builds per-shard LRU instances.
func New() policy.Policy { return lruPolicy{} }

func (lruPolicy) New(h policy.Hooks) policy.ShardPolicy { return &lru{h: h} }

func (lruPolicy) Name() string { return "lru" }

func (p *lru) OnAdd(e policy.Entry) policy.Entry {
	p.h.PushFront(e)
	return nil
}

func (p *lru) OnGet(e policy.Entry) { p.h.MoveToFront(e) }

// OnUpdate treats a merge of an existing entity as recent use.
func (p *lru) OnUpdate(e policy.Entry) { p.h.MoveToFront(e) }

func (p *lru) OnRemove(policy.Entry) {}
