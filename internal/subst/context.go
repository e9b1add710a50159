package subst

import (
	"sync"

	"github.com/google/uuid"

	"gsubst/internal/generics"
	"gsubst/internal/trace"
	"gsubst/internal/types"
)

// Options configures a Context.
type Options struct {
	Tracer trace.Tracer
	// VerifyOnConstruct runs Verify on every newly interned map and hands
	// violations to VerifyHook.
	VerifyOnConstruct bool
	VerifyHook        func(Map, []Violation)
}

// Context is one substitution session: it owns the storage pool, the global
// conformance table and every interned conformance object. All methods are
// safe for concurrent use.
type Context struct {
	id     uuid.UUID
	types  *types.Interner
	opts   Options
	tracer trace.Tracer
	pool   *Pool
	table  *Table

	mu          sync.Mutex
	protoSigs   map[types.ProtocolID]*generics.Signature
	identities  map[*generics.Signature]Map
	specialized map[specializedKey]*Specialized
	packs       map[packKey][]*PackConformance
	selfConfs   map[types.TypeID]*SelfConformance
	builtins    map[builtinKey]*Builtin
}

// NewContext creates a session over in.
func NewContext(in *types.Interner, opts Options) *Context {
	tracer := opts.Tracer
	if tracer == nil {
		tracer = trace.Nop
	}
	c := &Context{
		id:          uuid.New(),
		types:       in,
		opts:        opts,
		tracer:      tracer,
		pool:        newPool(),
		protoSigs:   make(map[types.ProtocolID]*generics.Signature, 8),
		identities:  make(map[*generics.Signature]Map, 8),
		specialized: make(map[specializedKey]*Specialized, 16),
		packs:       make(map[packKey][]*PackConformance, 4),
		selfConfs:   make(map[types.TypeID]*SelfConformance, 4),
		builtins:    make(map[builtinKey]*Builtin, 8),
	}
	c.table = newTable(c)
	return c
}

// ID identifies the session in traces and reports.
func (c *Context) ID() string { return c.id.String() }

// Types returns the type interner.
func (c *Context) Types() *types.Interner { return c.types }

// Table returns the global conformance table.
func (c *Context) Table() *Table { return c.table }

// Pool returns the storage pool.
func (c *Context) Pool() *Pool { return c.pool }

// Tracer returns the session tracer.
func (c *Context) Tracer() trace.Tracer { return c.tracer }

// ProtocolSignature returns <Self where Self: proto>.
func (c *Context) ProtocolSignature(proto types.ProtocolID) *generics.Signature {
	c.mu.Lock()
	defer c.mu.Unlock()
	if sig, ok := c.protoSigs[proto]; ok {
		return sig
	}
	self := c.types.SelfParam()
	sig := generics.MustNew(c.types, []types.TypeID{self}, []generics.Requirement{generics.Conforms(self, proto)})
	c.protoSigs[proto] = sig
	return sig
}

// IdentityMap maps every parameter of sig to itself with abstract
// conformances.
func (c *Context) IdentityMap(sig *generics.Signature) Map {
	if sig == nil {
		return Map{}
	}
	c.mu.Lock()
	if m, ok := c.identities[sig]; ok {
		c.mu.Unlock()
		return m
	}
	c.mu.Unlock()

	in := c.types
	repl := make([]types.TypeID, 0, sig.NumParams())
	for _, p := range sig.Params() {
		if in.IsParameterPack(p) {
			repl = append(repl, in.SingletonPackExpansion(p))
			continue
		}
		repl = append(repl, p)
	}
	reqs := sig.ConformanceRequirements()
	confs := make([]ConformanceRef, len(reqs))
	for i, r := range reqs {
		confs[i] = Abstract(r.Proto)
	}
	m := c.Get(sig, repl, confs)

	c.mu.Lock()
	c.identities[sig] = m
	c.mu.Unlock()
	return m
}
