package subst

import (
	"gsubst/internal/generics"
	"gsubst/internal/types"
)

// Capability answers the two questions of a substitution: the replacement of
// a generic parameter or archetype, and the conformance of a replaced
// dependent type.
type Capability interface {
	// SubstituteType returns the replacement for t, or NoTypeID to keep it.
	SubstituteType(t types.TypeID) types.TypeID
	// LookupConformance returns the evidence that repl, the image of the
	// dependent type dep, conforms to proto.
	LookupConformance(rc *Resolution, dep, repl types.TypeID, proto types.ProtocolID) ConformanceRef
}

// TypeFunc computes the replacement of one parameter.
type TypeFunc func(t types.TypeID) types.TypeID

// ConformanceFunc resolves the conformance of a replaced dependent type.
type ConformanceFunc func(rc *Resolution, dep, repl types.TypeID, proto types.ProtocolID) ConformanceRef

// Funcs adapts a pair of functions to Capability. Nil functions keep types
// and produce invalid conformances.
type Funcs struct {
	Types        TypeFunc
	Conformances ConformanceFunc
}

func (f Funcs) SubstituteType(t types.TypeID) types.TypeID {
	if f.Types == nil {
		return types.NoTypeID
	}
	return f.Types(t)
}

func (f Funcs) LookupConformance(rc *Resolution, dep, repl types.TypeID, proto types.ProtocolID) ConformanceRef {
	if f.Conformances == nil {
		return Invalid()
	}
	return f.Conformances(rc, dep, repl, proto)
}

// GlobalLookup resolves conformances through the global table. Type
// parameters get abstract evidence; concrete types the table cannot answer
// get the missing marker.
func GlobalLookup(c *Context) ConformanceFunc {
	return func(rc *Resolution, _, repl types.TypeID, proto types.ProtocolID) ConformanceRef {
		if c.types.IsTypeParameter(repl) {
			return Abstract(proto)
		}
		ref := c.lookupGlobal(rc, repl, proto)
		if ref.IsInvalid() {
			return c.forMissingOrInvalid(repl, proto)
		}
		return ref
	}
}

// AbstractLookup answers every query with abstract evidence.
func AbstractLookup(_ *Resolution, _, _ types.TypeID, proto types.ProtocolID) ConformanceRef {
	return Abstract(proto)
}

// typeArray replaces parameters positionally.
type typeArray struct {
	ctx    *Context
	sig    *generics.Signature
	types  []types.TypeID
	lookup ConformanceFunc
}

func (q typeArray) SubstituteType(t types.TypeID) types.TypeID {
	key, ok := q.ctx.types.Key(t)
	if !ok {
		return types.NoTypeID
	}
	idx := q.sig.ParamIndex(key)
	if idx < 0 || idx >= len(q.types) {
		return types.NoTypeID
	}
	return q.types[idx]
}

func (q typeArray) LookupConformance(rc *Resolution, dep, repl types.TypeID, proto types.ProtocolID) ConformanceRef {
	if q.lookup == nil {
		return Invalid()
	}
	return q.lookup(rc, dep, repl, proto)
}

// queryMap answers through an existing map. Archetype replacements that
// conform through a superclass are resolved by the global table.
type queryMap struct {
	m Map
}

func (q queryMap) SubstituteType(t types.TypeID) types.TypeID {
	return q.m.LookupSubstitution(t)
}

func (q queryMap) LookupConformance(rc *Resolution, dep, repl types.TypeID, proto types.ProtocolID) ConformanceRef {
	if q.m.Empty() {
		return Invalid()
	}
	ctx := q.m.s.ctx
	if ctx.types.IsArchetype(repl) {
		ref := ctx.lookupGlobal(rc, repl, proto)
		if ref.IsInvalid() {
			return ctx.forMissingOrInvalid(repl, proto)
		}
		return ref
	}
	return q.m.lookupConformance(rc, dep, proto)
}

// outOfContext maps primary and pack archetypes back to interface types.
type outOfContext struct {
	in *types.Interner
}

func (q outOfContext) SubstituteType(t types.TypeID) types.TypeID {
	info, ok := q.in.ArchetypeInfo(t)
	if !ok || info.Kind == types.ArchetypeOpaque {
		return types.NoTypeID
	}
	if info.Kind == types.ArchetypePack {
		return q.in.SingletonPackExpansion(info.Interface)
	}
	return info.Interface
}

func (q outOfContext) LookupConformance(rc *Resolution, dep, repl types.TypeID, proto types.ProtocolID) ConformanceRef {
	return AbstractLookup(rc, dep, repl, proto)
}
