package subst

import (
	"strings"

	"gsubst/internal/generics"
	"gsubst/internal/types"
)

// Map records a replacement for every parameter of a generic signature and
// the conformance evidence for every conformance requirement. The zero Map
// is the empty map. Maps from the same Context with equal contents are ==.
type Map struct {
	s *storage
}

// Empty reports whether no signature is attached.
func (m Map) Empty() bool { return m.s == nil }

// Context returns the owning session, or nil for the empty map.
func (m Map) Context() *Context {
	if m.s == nil {
		return nil
	}
	return m.s.ctx
}

// Signature returns the generic signature, or nil for the empty map.
func (m Map) Signature() *generics.Signature {
	if m.s == nil {
		return nil
	}
	return m.s.sig
}

// ReplacementTypes returns one replacement per signature parameter. The
// slice is shared and must not be modified.
func (m Map) ReplacementTypes() []types.TypeID {
	if m.s == nil {
		return nil
	}
	return m.s.replacements
}

// InnermostReplacementTypes returns the replacements of the innermost
// parameter depth.
func (m Map) InnermostReplacementTypes() []types.TypeID {
	if m.s == nil {
		return nil
	}
	n := len(m.s.sig.InnermostParams())
	return m.s.replacements[len(m.s.replacements)-n:]
}

// Conformances returns one conformance per conformance requirement. The
// slice is shared and must not be modified.
func (m Map) Conformances() []ConformanceRef {
	if m.s == nil {
		return nil
	}
	return m.s.conformances
}

// HasAnySubstitutableParams reports whether some parameter is not fixed to a
// concrete type by the signature.
func (m Map) HasAnySubstitutableParams() bool {
	return m.s != nil && !m.s.sig.AreAllParamsConcrete()
}

// RecursiveProperties is the union of the replacement types' properties.
func (m Map) RecursiveProperties() types.Properties {
	if m.s == nil {
		return 0
	}
	return m.s.props
}

// HasArchetypes reports whether any replacement mentions an archetype.
func (m Map) HasArchetypes() bool { return m.RecursiveProperties().Any(types.HasArchetype) }

// HasOpaqueArchetypes reports whether any replacement mentions an opaque archetype.
func (m Map) HasOpaqueArchetypes() bool {
	return m.RecursiveProperties().Has(types.HasOpaqueArchetype)
}

// IsCanonical reports whether the signature, every replacement and every
// conformance are canonical.
func (m Map) IsCanonical() bool {
	if m.s == nil {
		return true
	}
	if !m.s.sig.IsCanonical() {
		return false
	}
	in := m.s.ctx.types
	for _, t := range m.s.replacements {
		if !in.IsCanonical(t) {
			return false
		}
	}
	for _, c := range m.s.conformances {
		if !c.IsCanonical() {
			return false
		}
	}
	return true
}

// Canonical returns the map with every replacement and conformance
// canonicalized, optionally canonicalizing the signature too.
func (m Map) Canonical(canonicalizeSignature bool) Map {
	if m.s == nil {
		return m
	}
	if canonicalizeSignature {
		if cached := m.s.canonical.Load(); cached != nil {
			return Map{s: cached}
		}
	}
	ctx := m.s.ctx
	in := ctx.types
	sig := m.s.sig
	if canonicalizeSignature {
		sig = sig.Canonical()
	}
	repl := make([]types.TypeID, len(m.s.replacements))
	for i, t := range m.s.replacements {
		repl[i] = in.Canonical(t)
	}
	confs := make([]ConformanceRef, len(m.s.conformances))
	for i, c := range m.s.conformances {
		confs[i] = c.Canonical()
	}
	out := ctx.Get(sig, repl, confs)
	if canonicalizeSignature {
		m.s.canonical.Store(out.s)
	}
	return out
}

// IsIdentity reports whether the map substitutes every canonical parameter
// by itself with abstract evidence only.
func (m Map) IsIdentity() bool {
	if m.s == nil {
		return true
	}
	for _, c := range m.s.conformances {
		switch c.Kind() {
		case RefAbstract:
			continue
		case RefPack:
			if patterns := c.pack.patterns; len(patterns) == 1 && patterns[0].IsAbstract() {
				continue
			}
			return false
		case RefInvalid, RefConcrete:
			return false
		}
	}

	in := m.s.ctx.types
	identity := true
	i := 0
	m.s.sig.ForEachParam(func(param types.TypeID, canonical bool) {
		repl := m.s.replacements[i]
		i++
		if !canonical || !identity {
			return
		}
		want := param
		if in.IsParameterPack(param) {
			want = in.SingletonPackExpansion(param)
		}
		if repl != want {
			identity = false
		}
	})
	return identity
}

// Profile returns the identity of the backing storage for use in external
// uniquing keys. The empty map profiles as 0.
func (m Map) Profile() uint64 {
	if m.s == nil {
		return 0
	}
	return m.s.id
}

// String renders the map as "[τ_0_0 := Int] where [Int: Hashable]".
func (m Map) String() string {
	if m.s == nil {
		return "[]"
	}
	in := m.s.ctx.types
	var b strings.Builder
	b.WriteByte('[')
	for i, p := range m.s.sig.Params() {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(types.Label(in, p))
		b.WriteString(" := ")
		b.WriteString(types.Label(in, m.s.replacements[i]))
	}
	b.WriteByte(']')
	if len(m.s.conformances) > 0 {
		b.WriteString(" where [")
		for i, c := range m.s.conformances {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(c.Label(in))
		}
		b.WriteByte(']')
	}
	return b.String()
}

// SubstType substitutes t through the map.
func (m Map) SubstType(t types.TypeID) types.TypeID {
	return m.substTypeIn(NewResolution(), t)
}

func (m Map) substTypeIn(rc *Resolution, t types.TypeID) types.TypeID {
	if m.s == nil {
		return t
	}
	return types.Subst(m.s.ctx.types, t, m.inFlight(rc, 0))
}

func (m Map) inFlight(rc *Resolution, opts types.SubstOptions) *InFlight {
	return &InFlight{ctx: m.s.ctx, query: queryMap{m: m}, opts: opts, rc: rc}
}
