package subst

import (
	"fmt"

	"gsubst/internal/types"
)

// RefKind tags the variants of ConformanceRef.
type RefKind uint8

const (
	RefInvalid RefKind = iota
	RefAbstract
	RefConcrete
	RefPack
)

func (k RefKind) String() string {
	switch k {
	case RefInvalid:
		return "invalid"
	case RefAbstract:
		return "abstract"
	case RefConcrete:
		return "concrete"
	case RefPack:
		return "pack"
	default:
		return "unknown"
	}
}

// ConformanceRef is evidence that a type conforms to a protocol. The zero
// value is the invalid reference. Refs are comparable; concrete and pack
// payloads are interned by their Context.
type ConformanceRef struct {
	kind     RefKind
	proto    types.ProtocolID
	concrete Concrete
	pack     *PackConformance
}

// Invalid returns the reference carrying no evidence.
func Invalid() ConformanceRef { return ConformanceRef{} }

// Abstract returns structural evidence that some conformance to proto exists.
func Abstract(proto types.ProtocolID) ConformanceRef {
	return ConformanceRef{kind: RefAbstract, proto: proto}
}

// ForConcrete wraps a concrete conformance. A nil c yields Invalid.
func ForConcrete(c Concrete) ConformanceRef {
	if c == nil {
		return Invalid()
	}
	return ConformanceRef{kind: RefConcrete, proto: c.Protocol(), concrete: c}
}

// ForPack wraps a pack conformance. A nil p yields Invalid.
func ForPack(p *PackConformance) ConformanceRef {
	if p == nil {
		return Invalid()
	}
	return ConformanceRef{kind: RefPack, proto: p.proto, pack: p}
}

func (r ConformanceRef) Kind() RefKind    { return r.kind }
func (r ConformanceRef) IsInvalid() bool  { return r.kind == RefInvalid }
func (r ConformanceRef) IsAbstract() bool { return r.kind == RefAbstract }
func (r ConformanceRef) IsConcrete() bool { return r.kind == RefConcrete }
func (r ConformanceRef) IsPack() bool     { return r.kind == RefPack }

// Protocol returns the protocol the evidence is for; NoProtocolID if invalid.
func (r ConformanceRef) Protocol() types.ProtocolID { return r.proto }

// Concrete returns the concrete payload or nil.
func (r ConformanceRef) Concrete() Concrete { return r.concrete }

// Pack returns the pack payload or nil.
func (r ConformanceRef) Pack() *PackConformance { return r.pack }

// IsMissing reports whether r is the builtin marker recorded when the global
// oracle found no conformance for a concrete type.
func (r ConformanceRef) IsMissing() bool {
	if r.kind != RefConcrete {
		return false
	}
	b, ok := r.concrete.(*Builtin)
	return ok && b.missing
}

// TypeWitness returns the witness for associated type assoc of the
// conformance's protocol. NoTypeID means no witness is known and the member
// should stay structural.
func (r ConformanceRef) TypeWitness(rc *Resolution, assoc uint32) types.TypeID {
	switch r.kind {
	case RefInvalid, RefAbstract:
		return types.NoTypeID
	case RefConcrete:
		return r.concrete.TypeWitness(rc, assoc)
	case RefPack:
		return r.pack.TypeWitness(rc, assoc)
	}
	panic(fmt.Sprintf("subst: unhandled conformance kind %d", r.kind))
}

// AssociatedConformance returns the conformance of subject, written against
// the protocol's Self, to proto.
func (r ConformanceRef) AssociatedConformance(rc *Resolution, subject types.TypeID, proto types.ProtocolID) ConformanceRef {
	switch r.kind {
	case RefInvalid:
		return r
	case RefAbstract:
		return Abstract(proto)
	case RefConcrete:
		return r.concrete.AssociatedConformance(rc, subject, proto)
	case RefPack:
		return r.pack.AssociatedConformance(rc, subject, proto)
	}
	panic(fmt.Sprintf("subst: unhandled conformance kind %d", r.kind))
}

// Subst re-substitutes the evidence. origType is the conforming type the
// evidence currently describes; abstract evidence is resolved again through
// ifs for its image.
func (r ConformanceRef) Subst(origType types.TypeID, ifs *InFlight) ConformanceRef {
	switch r.kind {
	case RefInvalid:
		return r
	case RefAbstract:
		in := ifs.ctx.types
		substType := ifs.Type(origType)
		if in.Kind(in.Canonical(origType)) == types.KindPack {
			return packOf(ifs, substType, r.proto)
		}
		return ifs.LookupConformance(in.Canonical(origType), substType, r.proto, 0)
	case RefConcrete:
		return ForConcrete(r.concrete.Subst(ifs))
	case RefPack:
		return ForPack(r.pack.Subst(ifs))
	}
	panic(fmt.Sprintf("subst: unhandled conformance kind %d", r.kind))
}

// packOf resolves abstract evidence for a pack element-wise.
func packOf(ifs *InFlight, pack types.TypeID, proto types.ProtocolID) ConformanceRef {
	in := ifs.ctx.types
	elems := in.Elems(pack)
	refs := make([]ConformanceRef, len(elems))
	for i, elem := range elems {
		if tt, ok := in.Lookup(elem); ok && tt.Kind == types.KindPackExpansion {
			elem = tt.Elem
		}
		refs[i] = ifs.ctx.lookupGlobal(ifs.rc, elem, proto)
		if refs[i].IsInvalid() {
			return Invalid()
		}
	}
	return ForPack(ifs.ctx.PackConformanceFor(pack, proto, refs))
}

// IsCanonical reports whether every type inside the evidence is canonical.
func (r ConformanceRef) IsCanonical() bool {
	switch r.kind {
	case RefInvalid, RefAbstract:
		return true
	case RefConcrete:
		return r.concrete.IsCanonical()
	case RefPack:
		return r.pack.IsCanonical()
	}
	panic(fmt.Sprintf("subst: unhandled conformance kind %d", r.kind))
}

// Canonical returns the evidence with every type canonicalized.
func (r ConformanceRef) Canonical() ConformanceRef {
	switch r.kind {
	case RefInvalid, RefAbstract:
		return r
	case RefConcrete:
		return ForConcrete(r.concrete.Canonical())
	case RefPack:
		return ForPack(r.pack.Canonical())
	}
	panic(fmt.Sprintf("subst: unhandled conformance kind %d", r.kind))
}

// Label renders the evidence for diagnostics.
func (r ConformanceRef) Label(in *types.Interner) string {
	switch r.kind {
	case RefInvalid:
		return "invalid"
	case RefAbstract:
		return "abstract " + in.ProtocolName(r.proto)
	case RefConcrete:
		return r.concrete.Label()
	case RefPack:
		return r.pack.Label()
	}
	panic(fmt.Sprintf("subst: unhandled conformance kind %d", r.kind))
}
