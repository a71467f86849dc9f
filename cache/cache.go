package cache

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/IvanBrykalov/catscache/internal/singleflight"
	"github.com/IvanBrykalov/catscache/internal/util"
	"github.com/IvanBrykalov/catscache/metrics"
	"github.com/IvanBrykalov/catscache/policy/lru"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ErrClosed is returned by GetAllAsync after Close.
var ErrClosed = errors.New("cache: closed")

// partition holds the shards of one entity type.
type partition struct {
	typ    string
	shards []*shard
}

func (p *partition) shardFor(id string) *shard {
	return p.shards[util.ShardIndex(util.HashString(id), len(p.shards))]
}

// counts sums resident entities and edges across shards. Shards are read one
// at a time, so concurrent writers may make the totals slightly stale.
func (p *partition) counts() (items, rels int) {
	for _, s := range p.shards {
		i, r := s.counts()
		items += i
		rels += r
	}
	return items, rels
}

// cache is a sharded in-memory entity store with a pluggable eviction policy.
type cache struct {
	mu    sync.RWMutex
	parts map[string]*partition

	nshards     int
	perShardCap int
	closed      atomic.Bool

	opt Options
	rep metrics.Reporter
	log *zap.Logger

	// coalesces concurrent Loader calls for the same (type, id).
	sf singleflight.Group[string, Resource]
}

// New constructs a cache with the provided Options.
func New(opt Options) Cache {
	if opt.Capacity <= 0 {
		panic("cache: Capacity must be > 0")
	}
	opt.applyDefaults()
	if opt.Policy == nil {
		opt.Policy = lru.New()
	}

	sh := util.ShardCount(opt.Shards)
	c := &cache{
		parts:       make(map[string]*partition),
		nshards:     sh,
		perShardCap: (opt.Capacity + sh - 1) / sh, // split capacity evenly (ceil)
		opt:         opt,
		rep:         opt.Reporter,
		log:         opt.Logger.Named("cache").With(zap.String("prefix", opt.Prefix)),
	}
	c.log.Debug("cache created",
		zap.Int("capacity", opt.Capacity),
		zap.Int("shards", sh),
		zap.String("policy", opt.Policy.Name()),
	)
	return c
}

func (c *cache) Prefix() string { return c.opt.Prefix }

// partition returns the partition for typ, creating it when create is set.
func (c *cache) partition(typ string, create bool) *partition {
	c.mu.RLock()
	p := c.parts[typ]
	c.mu.RUnlock()
	if p != nil || !create {
		return p
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if p = c.parts[typ]; p != nil {
		return p
	}
	p = &partition{typ: typ, shards: make([]*shard, c.nshards)}
	for i := range p.shards {
		p.shards[i] = newShard(typ, c.perShardCap, c.opt.Policy, &c.opt)
	}
	c.parts[typ] = p
	return p
}

// ---- Cache implementation ----

func (c *cache) Merge(typ string, item Resource) MergeResult {
	return c.MergeAll(typ, []Resource{item})
}

// MergeAll writes items and reports one merge for typ. Capacity and TTL
// evictions caused by the merge are reported as a separate evict.
func (c *cache) MergeAll(typ string, items []Resource) MergeResult {
	if c.closed.Load() {
		return MergeResult{}
	}
	p := c.partition(typ, true)
	exp := c.deadline(c.opt.DefaultTTL)

	var res MergeResult
	dropped := 0
	for _, it := range items {
		if it.ID == "" {
			res.Skipped++
			continue
		}
		r := it.clone()
		out := p.shardFor(r.ID).merge(r, r.digest(), exp)
		switch {
		case out.duplicate:
			res.Duplicates++
		case out.stored:
			res.ItemsStored++
			res.RelationshipsStored += r.RelationshipCount()
		}
		dropped += out.dropped
		res.Evicted += out.evicted
	}
	if res.Skipped > 0 {
		c.log.Debug("merge skipped items without id", zap.String("type", typ), zap.Int("skipped", res.Skipped))
	}

	res.ItemCount, res.RelationshipCount = p.counts()
	res.SelectOperations = util.Batches(len(items)-res.Skipped, c.opt.ReadBatchSize)
	res.WriteOperations = util.Batches(res.ItemsStored, c.opt.WriteBatchSize)
	res.DeleteOperations = util.Batches(dropped, c.opt.WriteBatchSize)

	c.rep.ReportMerge(c.opt.Prefix, typ, res.MergeStats)
	if res.Evicted > 0 {
		c.rep.ReportEvict(c.opt.Prefix, typ, metrics.EvictStats{ItemCount: res.ItemCount, ItemsDeleted: res.Evicted})
	}
	return res
}

// EvictAll removes ids and reports the eviction, even when nothing matched.
func (c *cache) EvictAll(typ string, ids []string) int {
	if c.closed.Load() {
		return 0
	}
	p := c.partition(typ, false)
	deleted, items := 0, 0
	if p != nil {
		for _, id := range ids {
			if p.shardFor(id).remove(id) {
				deleted++
			}
		}
		items, _ = p.counts()
	}
	c.rep.ReportEvict(c.opt.Prefix, typ, metrics.EvictStats{
		ItemCount:        items,
		ItemsDeleted:     deleted,
		DeleteOperations: util.Batches(deleted, c.opt.WriteBatchSize),
	})
	return deleted
}

func (c *cache) Get(typ, id string) (Resource, bool) {
	out := c.GetAll(typ, []string{id})
	if len(out) == 0 {
		return Resource{}, false
	}
	return out[0], true
}

func (c *cache) GetAll(typ string, ids []string, relFilter ...string) []Resource {
	if c.closed.Load() {
		return nil
	}
	out, _ := c.getAll(context.Background(), typ, ids, relFilter, false)
	return out
}

func (c *cache) GetAllAsync(ctx context.Context, typ string, ids []string, relFilter ...string) ([]Resource, error) {
	if c.closed.Load() {
		return nil, ErrClosed
	}
	return c.getAll(ctx, typ, ids, relFilter, true)
}

// readBatch is the result of reading one batch of ids.
type readBatch struct {
	found   []Resource
	edges   int
	expired int
	loaded  []Resource
}

// getAll reads ids in ReadBatchSize batches, concurrently when async is set,
// then reports one get (plus a merge for loaded entities and an evict for
// expired ones).
func (c *cache) getAll(ctx context.Context, typ string, ids []string, filter []string, async bool) ([]Resource, error) {
	// Reads only create a partition when a Loader may populate it.
	p := c.partition(typ, c.opt.Loader != nil)
	nb := util.Batches(len(ids), c.opt.ReadBatchSize)
	if p == nil {
		c.rep.ReportGet(c.opt.Prefix, typ, metrics.GetStats{RequestedSize: len(ids), SelectOperations: nb, Async: async})
		return nil, nil
	}
	batches := make([]readBatch, nb)

	var err error
	if async {
		g, gctx := errgroup.WithContext(ctx)
		for i := 0; i < nb; i++ {
			g.Go(func() error {
				return c.readBatch(gctx, p, c.batch(ids, i), filter, &batches[i])
			})
		}
		err = g.Wait()
	} else {
		for i := 0; i < nb && err == nil; i++ {
			err = c.readBatch(ctx, p, c.batch(ids, i), filter, &batches[i])
		}
	}

	var (
		out     []Resource
		loaded  []Resource
		edges   int
		expired int
	)
	for _, b := range batches {
		out = append(out, b.found...)
		loaded = append(loaded, b.loaded...)
		edges += b.edges
		expired += b.expired
	}

	if len(loaded) > 0 {
		c.MergeAll(typ, loaded)
	}
	items, _ := p.counts()
	if expired > 0 {
		c.rep.ReportEvict(c.opt.Prefix, typ, metrics.EvictStats{ItemCount: items, ItemsDeleted: expired})
	}
	c.rep.ReportGet(c.opt.Prefix, typ, metrics.GetStats{
		ItemCount:              items,
		RequestedSize:          len(ids),
		RelationshipsRequested: edges,
		SelectOperations:       nb,
		Async:                  async,
	})
	if err != nil {
		return out, fmt.Errorf("cache: read %s/%s: %w", c.opt.Prefix, typ, err)
	}
	return out, nil
}

func (c *cache) batch(ids []string, i int) []string {
	lo := i * c.opt.ReadBatchSize
	hi := lo + c.opt.ReadBatchSize
	if hi > len(ids) {
		hi = len(ids)
	}
	return ids[lo:hi]
}

func (c *cache) readBatch(ctx context.Context, p *partition, ids, filter []string, b *readBatch) error {
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return err
		}
		r, edges, ok, expired := p.shardFor(id).get(id, filter)
		if expired {
			b.expired++
		}
		if !ok {
			lr, found, err := c.load(ctx, p.typ, id)
			if err != nil {
				return err
			}
			if !found {
				continue
			}
			b.loaded = append(b.loaded, lr)
			r, edges = lr.filtered(filter)
		}
		b.found = append(b.found, r)
		b.edges += edges
	}
	return nil
}

// load fetches id through the Loader. Loader failures are logged and treated
// as a miss; only ctx errors abort the read.
func (c *cache) load(ctx context.Context, typ, id string) (Resource, bool, error) {
	if c.opt.Loader == nil {
		return Resource{}, false, nil
	}
	key := typ + "\x00" + id
	r, _, err := c.sf.Do(ctx, key, func(ctx context.Context) (Resource, error) {
		return c.opt.Loader(ctx, typ, id)
	})
	switch {
	case err == nil:
		if r.ID == "" {
			r.ID = id
		}
		return r.clone(), true, nil
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return Resource{}, false, err
	case !errors.Is(err, ErrNotFound):
		c.log.Warn("loader failed", zap.String("type", typ), zap.String("id", id), zap.Error(err))
	}
	return Resource{}, false, nil
}

func (c *cache) Len(typ string) int {
	p := c.partition(typ, false)
	if p == nil {
		return 0
	}
	n, _ := p.counts()
	return n
}

func (c *cache) RelationshipCount(typ string) int {
	p := c.partition(typ, false)
	if p == nil {
		return 0
	}
	_, n := p.counts()
	return n
}

func (c *cache) Stats(typ string) Stats {
	p := c.partition(typ, false)
	if p == nil {
		return Stats{}
	}
	var st Stats
	st.Items, st.Relationships = p.counts()
	for _, s := range p.shards {
		st.Hits += s.hits.Load()
		st.Misses += s.misses.Load()
		st.Evictions += s.evicts.Load()
	}
	return st
}

func (c *cache) Types() []string {
	c.mu.RLock()
	out := make([]string, 0, len(c.parts))
	for typ := range c.parts {
		out = append(out, typ)
	}
	c.mu.RUnlock()
	sort.Strings(out)
	return out
}

// Close marks the cache as closed. Future operations are ignored.
func (c *cache) Close() error {
	if c.closed.CompareAndSwap(false, true) {
		c.log.Debug("cache closed", zap.Int("loads_in_flight", c.sf.InFlight()))
	}
	return nil
}

// ---- helpers ----

// deadline converts a relative TTL into an absolute UnixNano deadline.
// A non-positive ttl returns 0 (no expiration).
func (c *cache) deadline(ttl time.Duration) int64 {
	if ttl <= 0 {
		return 0
	}
	now := time.Now().UnixNano()
	if c.opt.Clock != nil {
		now = c.opt.Clock.NowUnixNano()
	}
	return now + int64(ttl)
}
