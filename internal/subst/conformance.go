package subst

import (
	"fmt"
	"sync"
	"sync/atomic"

	"gsubst/internal/generics"
	"gsubst/internal/types"
)

// Concrete is a witness bound to a specific conforming type. The set of
// implementations is closed: *Normal, *Specialized, *SelfConformance and
// *Builtin.
type Concrete interface {
	// Type is the conforming type.
	Type() types.TypeID
	Protocol() types.ProtocolID
	// Root returns the normal conformance this one derives from, or nil.
	Root() *Normal
	TypeWitness(rc *Resolution, assoc uint32) types.TypeID
	AssociatedConformance(rc *Resolution, subject types.TypeID, proto types.ProtocolID) ConformanceRef
	Subst(ifs *InFlight) Concrete
	IsCanonical() bool
	Canonical() Concrete
	Label() string

	// genericContext is the signature Type is written against, if any.
	genericContext() *generics.Signature
}

// AssociatedResolver computes one associated conformance of n lazily. It runs
// at most once per (n, step) and under the guard of rc.
type AssociatedResolver func(rc *Resolution, n *Normal, step generics.PathStep) ConformanceRef

// Normal is the declared conformance of a nominal type to a protocol. Its
// type is written against the declaration's generic signature.
type Normal struct {
	ctx      *Context
	typ      types.TypeID
	proto    types.ProtocolID
	sig      *generics.Signature
	resolver AssociatedResolver

	mu        sync.Mutex
	witnesses map[uint32]types.TypeID
	assoc     map[generics.PathStep]ConformanceRef
	complete  atomic.Bool
}

// NewNormal creates a normal conformance of typ to proto. For generic
// declarations typ is the declared interface type Name<τ...> and sig its
// signature; sig is nil otherwise.
func (c *Context) NewNormal(typ types.TypeID, proto types.ProtocolID, sig *generics.Signature) *Normal {
	return &Normal{
		ctx:       c,
		typ:       typ,
		proto:     proto,
		sig:       sig,
		witnesses: make(map[uint32]types.TypeID, 2),
		assoc:     make(map[generics.PathStep]ConformanceRef, 2),
	}
}

// SetTypeWitness records the witness of associated type assoc.
func (n *Normal) SetTypeWitness(assoc uint32, witness types.TypeID) *Normal {
	n.mu.Lock()
	n.witnesses[assoc] = witness
	n.mu.Unlock()
	return n
}

// SetAssociatedConformance records the conformance of subject to proto
// eagerly, bypassing the resolver.
func (n *Normal) SetAssociatedConformance(subject types.TypeID, proto types.ProtocolID, ref ConformanceRef) *Normal {
	step := generics.PathStep{Subject: n.ctx.types.Canonical(subject), Proto: proto}
	n.mu.Lock()
	n.assoc[step] = ref
	n.mu.Unlock()
	return n
}

// SetResolver installs the lazy associated-conformance resolver.
func (n *Normal) SetResolver(fn AssociatedResolver) *Normal {
	n.mu.Lock()
	n.resolver = fn
	n.mu.Unlock()
	return n
}

func (n *Normal) Type() types.TypeID                  { return n.typ }
func (n *Normal) Protocol() types.ProtocolID          { return n.proto }
func (n *Normal) Root() *Normal                       { return n }
func (n *Normal) Signature() *generics.Signature      { return n.sig }
func (n *Normal) genericContext() *generics.Signature { return n.sig }

func (n *Normal) TypeWitness(_ *Resolution, assoc uint32) types.TypeID {
	n.mu.Lock()
	defer n.mu.Unlock()
	if w, ok := n.witnesses[assoc]; ok {
		return w
	}
	return types.NoTypeID
}

// HasComputedAssociatedConformances reports whether every requirement of the
// protocol's requirement signature already has a recorded result.
func (n *Normal) HasComputedAssociatedConformances() bool {
	if n.complete.Load() {
		return true
	}
	info, ok := n.ctx.types.Protocol(n.proto)
	if !ok {
		return false
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, req := range info.Requirements {
		step := generics.PathStep{Subject: n.ctx.types.Canonical(req.Subject), Proto: req.Proto}
		if _, ok := n.assoc[step]; !ok {
			return false
		}
	}
	n.complete.Store(true)
	return true
}

// AssociatedConformance resolves subject: proto from the requirement signature
// of n's protocol. Results are cached; a computation already active in rc
// yields Invalid instead of recursing.
func (n *Normal) AssociatedConformance(rc *Resolution, subject types.TypeID, proto types.ProtocolID) ConformanceRef {
	step := generics.PathStep{Subject: n.ctx.types.Canonical(subject), Proto: proto}
	n.mu.Lock()
	if ref, ok := n.assoc[step]; ok {
		n.mu.Unlock()
		return ref
	}
	resolver := n.resolver
	n.mu.Unlock()

	if rc == nil {
		rc = NewResolution()
	}
	if !rc.begin(n, step) {
		return Invalid()
	}
	var ref ConformanceRef
	if resolver != nil {
		ref = resolver(rc, n, step)
	} else {
		ref = n.resolveDefault(rc, step)
	}
	rc.end(n, step)

	n.mu.Lock()
	if existing, ok := n.assoc[step]; ok {
		ref = existing
	} else {
		n.assoc[step] = ref
	}
	n.mu.Unlock()
	return ref
}

// resolveDefault projects the subject through the recorded type witnesses
// and asks the signature or the global table.
func (n *Normal) resolveDefault(rc *Resolution, step generics.PathStep) ConformanceRef {
	in := n.ctx.types
	subject := n.SubjectType(rc, step.Subject)
	if in.IsTypeParameter(subject) {
		if n.sig.RequiresProtocol(subject, step.Proto) {
			return Abstract(step.Proto)
		}
		return Invalid()
	}
	return n.ctx.lookupGlobal(rc, subject, step.Proto)
}

// SubjectType rewrites a type written against the protocol's Self in terms
// of n's conforming type and witnesses.
func (n *Normal) SubjectType(rc *Resolution, subject types.TypeID) types.TypeID {
	return projectSubject(n.ctx.types, rc, ForConcrete(n), n.typ, subject)
}

// Subst specializes a generic conformance. Non-generic conformances and
// identity substitutions return n itself.
func (n *Normal) Subst(ifs *InFlight) Concrete {
	if n.sig == nil {
		return n
	}
	subs := n.ctx.IdentityMap(n.sig).Subst(ifs)
	if subs.IsIdentity() {
		return n
	}
	return n.ctx.Specialize(n, subs)
}

// A normal conformance is a declaration and is canonical whatever sugar its
// conforming type was written with.
func (n *Normal) IsCanonical() bool   { return true }
func (n *Normal) Canonical() Concrete { return n }

func (n *Normal) Label() string {
	in := n.ctx.types
	return types.Label(in, n.typ) + ": " + in.ProtocolName(n.proto)
}

// projectSubject evaluates a Self-rooted subject against the conformance ref
// of conforming. Members without a known witness stay structural.
func projectSubject(in *types.Interner, rc *Resolution, ref ConformanceRef, conforming, subject types.TypeID) types.TypeID {
	self := in.SelfParam()
	if subject == self {
		return conforming
	}
	tt, ok := in.Lookup(subject)
	if !ok || tt.Kind != types.KindDependentMember {
		return generics.ReplaceSelf(in, subject, conforming)
	}
	proto := types.ProtocolID(tt.Payload)
	base := projectSubject(in, rc, ref, conforming, tt.Elem)
	baseConf := ref
	if tt.Elem != self || ref.Protocol() != proto {
		baseConf = ref.AssociatedConformance(rc, tt.Elem, proto)
	}
	if w := baseConf.TypeWitness(rc, tt.Index); w != types.NoTypeID {
		return w
	}
	return in.Member(base, proto, tt.Index)
}

// Specialized is a generic normal conformance with its signature substituted.
type Specialized struct {
	ctx     *Context
	generic *Normal
	subs    Map
	typ     types.TypeID
}

type specializedKey struct {
	generic *Normal
	subs    *storage
}

// Specialize returns the interned specialization of generic by subs.
func (c *Context) Specialize(generic *Normal, subs Map) *Specialized {
	key := specializedKey{generic: generic, subs: subs.s}
	c.mu.Lock()
	if s, ok := c.specialized[key]; ok {
		c.mu.Unlock()
		return s
	}
	c.mu.Unlock()

	s := &Specialized{ctx: c, generic: generic, subs: subs, typ: subs.SubstType(generic.typ)}

	c.mu.Lock()
	defer c.mu.Unlock()
	if existing, ok := c.specialized[key]; ok {
		return existing
	}
	c.specialized[key] = s
	return s
}

func (s *Specialized) Type() types.TypeID                  { return s.typ }
func (s *Specialized) Protocol() types.ProtocolID          { return s.generic.proto }
func (s *Specialized) Root() *Normal                       { return s.generic }
func (s *Specialized) Substitutions() Map                  { return s.subs }
func (s *Specialized) genericContext() *generics.Signature { return nil }

func (s *Specialized) TypeWitness(rc *Resolution, assoc uint32) types.TypeID {
	w := s.generic.TypeWitness(rc, assoc)
	if w == types.NoTypeID {
		return w
	}
	return s.subs.substTypeIn(rc, w)
}

func (s *Specialized) AssociatedConformance(rc *Resolution, subject types.TypeID, proto types.ProtocolID) ConformanceRef {
	ref := s.generic.AssociatedConformance(rc, subject, proto)
	if ref.IsInvalid() {
		return ref
	}
	orig := s.generic.SubjectType(rc, subject)
	return ref.Subst(orig, s.subs.inFlight(rc, 0))
}

func (s *Specialized) Subst(ifs *InFlight) Concrete {
	subs := s.subs.Subst(ifs)
	if subs.IsIdentity() {
		return s.generic
	}
	return s.ctx.Specialize(s.generic, subs)
}

func (s *Specialized) IsCanonical() bool { return s.subs.IsCanonical() }

func (s *Specialized) Canonical() Concrete {
	if s.IsCanonical() {
		return s
	}
	return s.ctx.Specialize(s.generic, s.subs.Canonical(false))
}

func (s *Specialized) Label() string {
	in := s.ctx.types
	return types.Label(in, s.typ) + ": " + in.ProtocolName(s.generic.proto)
}

// SelfConformance is the conformance of `any P` to a self-conforming P.
type SelfConformance struct {
	ctx   *Context
	typ   types.TypeID
	proto types.ProtocolID
}

func (c *Context) selfConformance(existential types.TypeID, proto types.ProtocolID) *SelfConformance {
	c.mu.Lock()
	defer c.mu.Unlock()
	if sc, ok := c.selfConfs[existential]; ok {
		return sc
	}
	sc := &SelfConformance{ctx: c, typ: existential, proto: proto}
	c.selfConfs[existential] = sc
	return sc
}

func (s *SelfConformance) Type() types.TypeID                  { return s.typ }
func (s *SelfConformance) Protocol() types.ProtocolID          { return s.proto }
func (s *SelfConformance) Root() *Normal                       { return nil }
func (s *SelfConformance) genericContext() *generics.Signature { return nil }
func (s *SelfConformance) Subst(*InFlight) Concrete            { return s }
func (s *SelfConformance) IsCanonical() bool                   { return true }
func (s *SelfConformance) Canonical() Concrete                 { return s }

func (s *SelfConformance) TypeWitness(*Resolution, uint32) types.TypeID { return types.NoTypeID }

// AssociatedConformance answers inherited protocols only; self-conforming
// protocols have no associated types.
func (s *SelfConformance) AssociatedConformance(rc *Resolution, subject types.TypeID, proto types.ProtocolID) ConformanceRef {
	if subject != s.ctx.types.SelfParam() {
		return Invalid()
	}
	return s.ctx.lookupGlobal(rc, s.typ, proto)
}

func (s *SelfConformance) Label() string {
	in := s.ctx.types
	return types.Label(in, s.typ) + ": " + in.ProtocolName(s.proto) + " (self)"
}

// Builtin is a conformance without a declaration: either synthesized for an
// invertible protocol or the marker for a missing conformance.
type Builtin struct {
	ctx     *Context
	typ     types.TypeID
	proto   types.ProtocolID
	missing bool
}

type builtinKey struct {
	typ     types.TypeID
	proto   types.ProtocolID
	missing bool
}

func (c *Context) builtin(typ types.TypeID, proto types.ProtocolID, missing bool) *Builtin {
	key := builtinKey{typ: typ, proto: proto, missing: missing}
	c.mu.Lock()
	defer c.mu.Unlock()
	if b, ok := c.builtins[key]; ok {
		return b
	}
	b := &Builtin{ctx: c, typ: typ, proto: proto, missing: missing}
	c.builtins[key] = b
	return b
}

func (b *Builtin) Type() types.TypeID                  { return b.typ }
func (b *Builtin) Protocol() types.ProtocolID          { return b.proto }
func (b *Builtin) Root() *Normal                       { return nil }
func (b *Builtin) Missing() bool                       { return b.missing }
func (b *Builtin) genericContext() *generics.Signature { return nil }

func (b *Builtin) TypeWitness(*Resolution, uint32) types.TypeID { return types.NoTypeID }

func (b *Builtin) AssociatedConformance(*Resolution, types.TypeID, types.ProtocolID) ConformanceRef {
	return Invalid()
}

func (b *Builtin) Subst(ifs *InFlight) Concrete {
	typ := ifs.Type(b.typ)
	if typ == b.typ {
		return b
	}
	return b.ctx.builtin(typ, b.proto, b.missing)
}

func (b *Builtin) IsCanonical() bool { return b.ctx.types.IsCanonical(b.typ) }

func (b *Builtin) Canonical() Concrete {
	return b.ctx.builtin(b.ctx.types.Canonical(b.typ), b.proto, b.missing)
}

func (b *Builtin) Label() string {
	in := b.ctx.types
	suffix := " (builtin)"
	if b.missing {
		suffix = " (missing)"
	}
	return fmt.Sprintf("%s: %s%s", types.Label(in, b.typ), in.ProtocolName(b.proto), suffix)
}
