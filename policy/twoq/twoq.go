// Package twoq implements the 2Q eviction policy, which keeps one-off
// entities (for example a single full-scan read) from flushing entities
// that are merged or read repeatedly.
package twoq

import (
	"container/list"

	"github.com/IvanBrykalov/catscache/policy"
)

// twoQ keeps two resident queues plus a ghost queue:
//
//   - A1in: entities seen once; own list plus an index by entry
//   - Am:   entities seen again; ordered by the shard list only
//   - A1out: ids recently dropped from A1in, without values
//
// An id found in A1out on admission skips A1in and goes straight to Am.
// All methods run under the shard lock.
type twoQ struct {
	h policy.Hooks

	capIn    int
	capGhost int

	inList *list.List // MRU at Front
	inIdx  map[policy.Entry]*list.Element

	ghostList *list.List // ids, MRU at Front
	ghostIdx  map[string]*list.Element
}

type twoQPolicy struct {
	capIn    int
	capGhost int
}

// New returns a 2Q policy. capIn and capGhost are per-shard sizes;
// about 25% and 50% of the shard capacity are common choices.
func New(capIn, capGhost int) policy.Policy {
	if capIn < 1 {
		capIn = 1
	}
	if capGhost < 1 {
		capGhost = 1
	}
	return twoQPolicy{capIn: capIn, capGhost: capGhost}
}

func (p twoQPolicy) New(h policy.Hooks) policy.ShardPolicy {
	return &twoQ{
		h:         h,
		capIn:     p.capIn,
		capGhost:  p.capGhost,
		inList:    list.New(),
		inIdx:     make(map[policy.Entry]*list.Element),
		ghostList: list.New(),
		ghostIdx:  make(map[string]*list.Element),
	}
}

func (twoQPolicy) Name() string { return "2q" }

// OnAdd admits e into Am if its id is a ghost, otherwise into A1in.
// An A1in overflow returns the A1in LRU as the eviction candidate.
func (q *twoQ) OnAdd(e policy.Entry) policy.Entry {
	id := e.ID()
	if ge, ok := q.ghostIdx[id]; ok {
		q.ghostList.Remove(ge)
		delete(q.ghostIdx, id)
		q.h.PushFront(e)
		return nil
	}

	q.h.PushFront(e)
	q.inIdx[e] = q.inList.PushFront(e)

	if q.inList.Len() > q.capIn {
		if tail := q.inList.Back(); tail != nil {
			return tail.Value.(policy.Entry)
		}
	}
	return nil
}

// OnGet promotes an A1in entry to Am and moves it to MRU.
func (q *twoQ) OnGet(e policy.Entry) {
	if el, ok := q.inIdx[e]; ok {
		q.inList.Remove(el)
		delete(q.inIdx, e)
	}
	q.h.MoveToFront(e)
}

func (q *twoQ) OnUpdate(e policy.Entry) { q.OnGet(e) }

// OnRemove records entries leaving A1in as ghosts. Removals from Am
// leave no ghost.
func (q *twoQ) OnRemove(e policy.Entry) {
	el, ok := q.inIdx[e]
	if !ok {
		return
	}
	q.inList.Remove(el)
	delete(q.inIdx, e)

	id := e.ID()
	if old := q.ghostIdx[id]; old != nil {
		q.ghostList.Remove(old)
	}
	q.ghostIdx[id] = q.ghostList.PushFront(id)

	for q.ghostList.Len() > q.capGhost {
		tail := q.ghostList.Back()
		delete(q.ghostIdx, tail.Value.(string))
		q.ghostList.Remove(tail)
	}
}
