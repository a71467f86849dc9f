package cache

import (
	"sync"
	"time"

	"github.com/IvanBrykalov/catscache/internal/util"
	"github.com/IvanBrykalov/catscache/policy"
)

// shard is an independent slice of one type partition with its own lock,
// map and intrusive recency list (head=MRU, tail=LRU).
type shard struct {
	// ---- guarded by mu ----
	mu   sync.Mutex
	m    map[string]*entry
	head *entry
	tail *entry
	len  int
	rels int // relationship edges held by resident entries
	cap  int

	pol policy.ShardPolicy
	typ string
	opt *Options

	// ---- hot counters ----
	_      util.CacheLinePad
	hits   util.PaddedAtomicUint64
	misses util.PaddedAtomicUint64
	evicts util.PaddedAtomicUint64
}

// mergeOutcome summarizes the effect of one merge on a shard.
type mergeOutcome struct {
	stored    bool
	duplicate bool
	dropped   int // edges the update removed
	evicted   int
}

func newShard(typ string, capacity int, pol policy.Policy, opt *Options) *shard {
	s := &shard{
		m:   make(map[string]*entry, capacity),
		cap: capacity,
		typ: typ,
		opt: opt,
	}
	s.pol = pol.New(shardHooks{s: s})
	return s
}

// merge inserts or updates r. exp is an absolute UnixNano deadline (0 = none).
func (s *shard) merge(r Resource, digest uint64, exp int64) mergeOutcome {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out mergeOutcome
	if e, ok := s.m[r.ID]; ok && !s.expiredLocked(e) {
		if e.digest == digest {
			// Content is current; refresh the deadline only.
			e.exp = exp
			s.pol.OnUpdate(e)
			out.duplicate = true
			return out
		}
		out.dropped = droppedEdges(e.res, r)
		n := r.RelationshipCount()
		s.rels += n - e.rels
		e.res, e.digest, e.rels, e.exp = r, digest, n, exp
		s.pol.OnUpdate(e)
		out.stored = true
		return out
	} else if ok {
		out.evicted += s.evictLocked(e, EvictTTL)
	}

	e := &entry{res: r, digest: digest, rels: r.RelationshipCount(), exp: exp}
	s.m[r.ID] = e
	s.rels += e.rels
	if ev := s.pol.OnAdd(e); ev != nil {
		out.evicted += s.evictLocked(ev.(*entry), EvictPolicy)
	}
	out.evicted += s.enforceLimitsLocked()
	out.stored = true
	return out
}

// get returns a filtered copy of the entity. expired is true when the entity
// was found past its deadline and evicted.
func (s *shard) get(id string, filter []string) (r Resource, edges int, ok, expired bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, found := s.m[id]
	if !found {
		s.misses.Add(1)
		return Resource{}, 0, false, false
	}
	if s.expiredLocked(e) {
		s.evictLocked(e, EvictTTL)
		s.misses.Add(1)
		return Resource{}, 0, false, true
	}
	s.pol.OnGet(e)
	s.hits.Add(1)
	r, edges = e.res.filtered(filter)
	return r, edges, true, false
}

// remove deletes id. Explicit removals do not invoke OnEvict.
func (s *shard) remove(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.m[id]
	if !ok {
		return false
	}
	s.pol.OnRemove(e)
	s.unlink(e)
	delete(s.m, id)
	s.rels -= e.rels
	return true
}

// counts returns the resident entities and edges.
func (s *shard) counts() (items, rels int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.len, s.rels
}

// -------------------- internals (mu held) --------------------

func (s *shard) expiredLocked(e *entry) bool {
	return e.exp != 0 && s.now() > e.exp
}

func (s *shard) now() int64 {
	if s.opt.Clock != nil {
		return s.opt.Clock.NowUnixNano()
	}
	return time.Now().UnixNano()
}

// insertFront links e at MRU in O(1).
func (s *shard) insertFront(e *entry) {
	e.prev = nil
	e.next = s.head
	if s.head != nil {
		s.head.prev = e
	}
	s.head = e
	if s.tail == nil {
		s.tail = e
	}
	s.len++
}

// moveToFront promotes e to MRU in O(1).
func (s *shard) moveToFront(e *entry) {
	if e == s.head {
		return
	}
	if e.prev != nil {
		e.prev.next = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	}
	if s.tail == e {
		s.tail = e.prev
	}
	e.prev = nil
	e.next = s.head
	if s.head != nil {
		s.head.prev = e
	}
	s.head = e
	if s.tail == nil {
		s.tail = e
	}
}

// unlink removes e from the list in O(1).
func (s *shard) unlink(e *entry) {
	if e.prev != nil {
		e.prev.next = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	}
	if s.head == e {
		s.head = e.next
	}
	if s.tail == e {
		s.tail = e.prev
	}
	e.prev, e.next = nil, nil
	s.len--
}

// evictLocked removes e, runs OnEvict and returns 1.
func (s *shard) evictLocked(e *entry, reason EvictReason) int {
	s.pol.OnRemove(e)
	s.unlink(e)
	delete(s.m, e.res.ID)
	s.rels -= e.rels
	s.evicts.Add(1)
	if cb := s.opt.OnEvict; cb != nil {
		cb(s.typ, e.res, reason)
	}
	return 1
}

// enforceLimitsLocked evicts from the tail until the shard fits its capacity.
func (s *shard) enforceLimitsLocked() int {
	n := 0
	for s.len > s.cap && s.tail != nil {
		n += s.evictLocked(s.tail, EvictCapacity)
	}
	return n
}

// -------------------- policy hooks --------------------

// shardHooks adapts the shard's list operations to policy.Hooks.
type shardHooks struct{ s *shard }

func (h shardHooks) MoveToFront(e policy.Entry) { h.s.moveToFront(e.(*entry)) }
func (h shardHooks) PushFront(e policy.Entry)   { h.s.insertFront(e.(*entry)) }
func (h shardHooks) Remove(e policy.Entry)      { h.s.unlink(e.(*entry)) }
func (h shardHooks) Back() policy.Entry {
	if h.s.tail == nil {
		return nil
	}
	return h.s.tail
}
func (h shardHooks) Len() int { return h.s.len }
