package subst

import (
	"slices"
	"strings"

	"gsubst/internal/types"
)

// PackConformance distributes a conformance over the elements of a pack
// type. Pattern i is the evidence for element i; for an expansion element it
// is the evidence for the expansion's pattern type.
type PackConformance struct {
	ctx      *Context
	packType types.TypeID
	proto    types.ProtocolID
	patterns []ConformanceRef
}

type packKey struct {
	packType types.TypeID
	proto    types.ProtocolID
}

// PackConformanceFor returns the interned pack conformance. len(patterns)
// must equal the number of elements of packType.
func (c *Context) PackConformanceFor(packType types.TypeID, proto types.ProtocolID, patterns []ConformanceRef) *PackConformance {
	key := packKey{packType: packType, proto: proto}
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, pc := range c.packs[key] {
		if slices.Equal(pc.patterns, patterns) {
			return pc
		}
	}
	pc := &PackConformance{ctx: c, packType: packType, proto: proto, patterns: slices.Clone(patterns)}
	c.packs[key] = append(c.packs[key], pc)
	return pc
}

func (p *PackConformance) Type() types.TypeID         { return p.packType }
func (p *PackConformance) Protocol() types.ProtocolID { return p.proto }

// Patterns returns the per-element conformances.
func (p *PackConformance) Patterns() []ConformanceRef { return p.patterns }

// element returns the pattern type and expansion count of element i.
func (p *PackConformance) element(i int) (types.TypeID, types.TypeID) {
	in := p.ctx.types
	elem := in.Elems(p.packType)[i]
	if tt, ok := in.Lookup(elem); ok && tt.Kind == types.KindPackExpansion {
		return tt.Elem, tt.Aux
	}
	return elem, types.NoTypeID
}

func (p *PackConformance) rewrap(pattern, count types.TypeID) types.TypeID {
	if count == types.NoTypeID {
		return pattern
	}
	return p.ctx.types.Expansion(pattern, count)
}

// TypeWitness returns the pack of element witnesses, or NoTypeID when any
// element has none.
func (p *PackConformance) TypeWitness(rc *Resolution, assoc uint32) types.TypeID {
	out := make([]types.TypeID, len(p.patterns))
	for i, ref := range p.patterns {
		w := ref.TypeWitness(rc, assoc)
		if w == types.NoTypeID {
			return types.NoTypeID
		}
		_, count := p.element(i)
		out[i] = p.rewrap(w, count)
	}
	return p.ctx.types.Pack(out)
}

// AssociatedConformance resolves the associated conformance element-wise.
// Any invalid element makes the whole result invalid.
func (p *PackConformance) AssociatedConformance(rc *Resolution, subject types.TypeID, proto types.ProtocolID) ConformanceRef {
	in := p.ctx.types
	elems := make([]types.TypeID, len(p.patterns))
	refs := make([]ConformanceRef, len(p.patterns))
	for i, ref := range p.patterns {
		assoc := ref.AssociatedConformance(rc, subject, proto)
		if assoc.IsInvalid() {
			return Invalid()
		}
		pattern, count := p.element(i)
		elems[i] = p.rewrap(projectSubject(in, rc, ref, pattern, subject), count)
		refs[i] = assoc
	}
	return ForPack(p.ctx.PackConformanceFor(in.Pack(elems), proto, refs))
}

// Subst substitutes every element. When an expansion element splices into a
// different number of elements, the new elements are resolved through the
// global table.
func (p *PackConformance) Subst(ifs *InFlight) *PackConformance {
	in := p.ctx.types
	newPack := ifs.Type(p.packType)
	newElems := in.Elems(newPack)
	refs := make([]ConformanceRef, len(newElems))
	if len(newElems) == len(p.patterns) {
		for i, ref := range p.patterns {
			pattern, _ := p.element(i)
			refs[i] = ref.Subst(pattern, ifs)
		}
		return p.ctx.PackConformanceFor(newPack, p.proto, refs)
	}
	for i, elem := range newElems {
		if tt, ok := in.Lookup(elem); ok && tt.Kind == types.KindPackExpansion {
			elem = tt.Elem
		}
		refs[i] = p.ctx.lookupGlobal(ifs.rc, elem, p.proto)
	}
	return p.ctx.PackConformanceFor(newPack, p.proto, refs)
}

func (p *PackConformance) IsCanonical() bool {
	if !p.ctx.types.IsCanonical(p.packType) {
		return false
	}
	for _, ref := range p.patterns {
		if !ref.IsCanonical() {
			return false
		}
	}
	return true
}

func (p *PackConformance) Canonical() *PackConformance {
	if p.IsCanonical() {
		return p
	}
	refs := make([]ConformanceRef, len(p.patterns))
	for i, ref := range p.patterns {
		refs[i] = ref.Canonical()
	}
	return p.ctx.PackConformanceFor(p.ctx.types.Canonical(p.packType), p.proto, refs)
}

func (p *PackConformance) Label() string {
	in := p.ctx.types
	parts := make([]string, len(p.patterns))
	for i, ref := range p.patterns {
		parts[i] = ref.Label(in)
	}
	return "pack " + in.ProtocolName(p.proto) + " {" + strings.Join(parts, ", ") + "}"
}
