package subst

import (
	"hash/maphash"
	"slices"
	"sync"
	"sync/atomic"

	"gsubst/internal/generics"
	"gsubst/internal/types"
)

// storage is the immutable backing of a non-empty Map.
type storage struct {
	ctx          *Context
	id           uint64
	sig          *generics.Signature
	replacements []types.TypeID
	conformances []ConformanceRef
	props        types.Properties

	canonical atomic.Pointer[storage]
}

func (s *storage) equal(sig *generics.Signature, repl []types.TypeID, confs []ConformanceRef) bool {
	return s.sig == sig && slices.Equal(s.replacements, repl) && slices.Equal(s.conformances, confs)
}

// PoolStats reports interning activity.
type PoolStats struct {
	Maps   int
	Hits   uint64
	Misses uint64
}

// Pool hash-conses map storage for one Context. Entries live as long as the
// Context.
type Pool struct {
	mu      sync.Mutex
	seed    maphash.Seed
	buckets map[uint64][]*storage
	count   int
	nextID  uint64

	hits   atomic.Uint64
	misses atomic.Uint64
}

func newPool() *Pool {
	return &Pool{
		seed:    maphash.MakeSeed(),
		buckets: make(map[uint64][]*storage, 64),
	}
}

func (p *Pool) hash(sig *generics.Signature, repl []types.TypeID, confs []ConformanceRef) uint64 {
	var h maphash.Hash
	h.SetSeed(p.seed)
	maphash.WriteComparable(&h, sig)
	for _, t := range repl {
		maphash.WriteComparable(&h, t)
	}
	for _, c := range confs {
		maphash.WriteComparable(&h, c)
	}
	return h.Sum64()
}

// intern returns the unique storage for the triple. Sizes must already be
// validated.
func (p *Pool) intern(ctx *Context, sig *generics.Signature, repl []types.TypeID, confs []ConformanceRef) (*storage, bool) {
	key := p.hash(sig, repl, confs)

	p.mu.Lock()
	defer p.mu.Unlock()
	for _, s := range p.buckets[key] {
		if s.equal(sig, repl, confs) {
			p.hits.Add(1)
			return s, false
		}
	}
	p.misses.Add(1)
	p.nextID++
	s := &storage{
		ctx:          ctx,
		id:           p.nextID,
		sig:          sig,
		replacements: slices.Clone(repl),
		conformances: slices.Clone(confs),
	}
	for _, t := range repl {
		s.props |= ctx.types.Props(t)
	}
	p.buckets[key] = append(p.buckets[key], s)
	p.count++
	return s, true
}

// Stats returns a snapshot of the pool counters.
func (p *Pool) Stats() PoolStats {
	p.mu.Lock()
	n := p.count
	p.mu.Unlock()
	return PoolStats{Maps: n, Hits: p.hits.Load(), Misses: p.misses.Load()}
}
