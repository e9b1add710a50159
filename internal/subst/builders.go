package subst

import (
	"gsubst/internal/decl"
	"gsubst/internal/generics"
	"gsubst/internal/trace"
	"gsubst/internal/types"
)

// ProtocolSubstitutions builds the map for <Self where Self: proto> binding
// Self to selfType with the given evidence.
func (c *Context) ProtocolSubstitutions(proto types.ProtocolID, selfType types.TypeID, conf ConformanceRef) Map {
	return c.Get(c.ProtocolSignature(proto), []types.TypeID{selfType}, []ConformanceRef{conf})
}

// OverrideSubstitutions builds the map translating the generic context of
// base into that of derived, which overrides it.
func (c *Context) OverrideSubstitutions(base, derived *decl.Member) Map {
	baseSig := base.InnermostSignature()
	if base.Parent.IsProtocol() {
		return c.IdentityMap(baseSig)
	}
	return c.OverrideSubstitutionsFor(base.Parent, derived.Parent, baseSig, derived.Params)
}

// OverrideSubstitutionsFor is OverrideSubstitutions for explicit nominals.
// derivedParams is the overriding member's own parameter list, or nil when
// it has none.
func (c *Context) OverrideSubstitutionsFor(baseNominal, derivedNominal *decl.Nominal, baseSig *generics.Signature, derivedParams []types.TypeID) Map {
	if baseSig == nil {
		return Map{}
	}
	span := trace.Begin(c.tracer, trace.ScopeBuild, "subst.override", 0).WithSession(c.ID())
	defer span.End("")

	info := c.newOverrideInfo(baseNominal, derivedNominal, derivedParams)
	return c.GetWith(baseSig, NewInFlight(c, overrideQuery{ctx: c, info: info}, 0))
}

// overrideInfo splits parameters at BaseDepth: below it they belong to the
// base class and go through BaseSubMap; at or above it they belong to the
// method and move to the derived method's depth.
type overrideInfo struct {
	BaseDepth     uint32
	OrigDepth     uint32
	DerivedParams []types.TypeID
	BaseSubMap    Map
}

func (c *Context) newOverrideInfo(baseNominal, derivedNominal *decl.Nominal, derivedParams []types.TypeID) overrideInfo {
	info := overrideInfo{DerivedParams: derivedParams}
	if baseNominal != nil && baseNominal.Sig != nil {
		info.BaseDepth = baseNominal.Sig.NextDepth()
		env := derivedNominal.Sig.Environment()
		info.BaseSubMap = c.ContextSubstitutionMap(derivedNominal, baseNominal, env).
			MapReplacementTypesOutOfContext()
	}
	if derivedNominal != nil && derivedNominal.Sig != nil {
		info.OrigDepth = derivedNominal.Sig.NextDepth()
	}
	return info
}

// ContextSubstitutionMap returns the map from target's generic parameters to
// the arguments nominal passes to target along its superclass chain, as seen
// from env.
func (c *Context) ContextSubstitutionMap(nominal, target *decl.Nominal, env *generics.Environment) Map {
	if target == nil || target.Sig == nil {
		return Map{}
	}
	in := c.types
	superTy, ok := nominal.SuperclassTypeOf(in, target)
	if !ok {
		return Map{}
	}
	args := in.Elems(env.MapTypeIntoContext(superTy))
	if len(args) != target.Sig.NumParams() {
		return Map{}
	}
	return c.GetWithTypes(target.Sig, args, GlobalLookup(c))
}

type overrideQuery struct {
	ctx  *Context
	info overrideInfo
}

func (q overrideQuery) SubstituteType(t types.TypeID) types.TypeID {
	in := q.ctx.types
	tt, ok := in.Lookup(t)
	if !ok || tt.Kind != types.KindGenericParam {
		return types.NoTypeID
	}
	if tt.Depth >= q.info.BaseDepth {
		if q.info.DerivedParams != nil {
			if int(tt.Index) >= len(q.info.DerivedParams) {
				return in.Builtins().Error
			}
			return q.info.DerivedParams[tt.Index]
		}
		return in.Param(tt.Depth-q.info.BaseDepth+q.info.OrigDepth, tt.Index, tt.Pack)
	}
	if repl := q.info.BaseSubMap.SubstType(t); repl != t {
		return repl
	}
	return types.NoTypeID
}

func (q overrideQuery) LookupConformance(rc *Resolution, dep, repl types.TypeID, proto types.ProtocolID) ConformanceRef {
	in := q.ctx.types
	if key, ok := in.Key(in.RootParam(dep)); ok && key.Depth >= q.info.BaseDepth {
		return Abstract(proto)
	}
	if ref := q.info.BaseSubMap.lookupConformance(rc, dep, proto); !ref.IsInvalid() {
		return ref
	}
	if in.IsTypeParameter(repl) {
		return Abstract(proto)
	}
	return q.ctx.lookupGlobal(rc, repl, proto)
}

// CombineKind selects how Combine splits parameters between its two maps.
type CombineKind uint8

const (
	// CombineAtDepth routes parameters at or beyond a depth to the second map.
	CombineAtDepth CombineKind = iota + 1
	// CombineAtIndex routes parameters at or beyond an index to the second map.
	CombineAtIndex
)

// Combine builds a map for sig that answers parameters before the boundary
// through first and parameters at or after it through second, after
// rebasing firstBoundary to secondBoundary. Conformances that neither map can
// supply fall back to the global table; some conformances cannot be
// reconstructed this way at all.
func (c *Context) Combine(first, second Map, how CombineKind, firstBoundary, secondBoundary uint32, sig *generics.Signature) Map {
	span := trace.Begin(c.tracer, trace.ScopeBuild, "subst.combine", 0).WithSession(c.ID())
	defer span.End("")
	q := combineQuery{ctx: c, first: first, second: second, how: how, from: firstBoundary, to: secondBoundary}
	return c.GetWith(sig, NewInFlight(c, q, 0))
}

type combineQuery struct {
	ctx           *Context
	first, second Map
	how           CombineKind
	from, to      uint32
}

// rebase moves a parameter at or after the boundary; NoTypeID means t stays
// with the first map.
func (q combineQuery) rebase(t types.TypeID) types.TypeID {
	in := q.ctx.types
	tt, ok := in.Lookup(t)
	if !ok || tt.Kind != types.KindGenericParam {
		return types.NoTypeID
	}
	switch q.how {
	case CombineAtDepth:
		if tt.Depth < q.from {
			return types.NoTypeID
		}
		return in.Param(tt.Depth-q.from+q.to, tt.Index, tt.Pack)
	case CombineAtIndex:
		if tt.Index < q.from {
			return types.NoTypeID
		}
		return in.Param(tt.Depth, tt.Index-q.from+q.to, tt.Pack)
	}
	return types.NoTypeID
}

func (q combineQuery) SubstituteType(t types.TypeID) types.TypeID {
	if rebased := q.rebase(t); rebased != types.NoTypeID {
		return nonIdentity(q.second.SubstType(rebased), t)
	}
	return nonIdentity(q.first.SubstType(t), t)
}

func (q combineQuery) LookupConformance(rc *Resolution, dep, repl types.TypeID, proto types.ProtocolID) ConformanceRef {
	in := q.ctx.types
	if root := in.RootParam(dep); root != types.NoTypeID {
		if rebasedRoot := q.rebase(root); rebasedRoot != types.NoTypeID {
			rebased := types.Transform(in, dep, func(id types.TypeID) types.TypeID {
				if id == root {
					return rebasedRoot
				}
				return types.NoTypeID
			}, 0)
			return q.second.lookupConformance(rc, rebased, proto)
		}
	}
	if ref := q.first.lookupConformance(rc, dep, proto); !ref.IsInvalid() {
		return ref
	}
	if in.IsTypeParameter(repl) {
		return Abstract(proto)
	}
	return q.ctx.lookupGlobal(rc, repl, proto)
}

func nonIdentity(repl, orig types.TypeID) types.TypeID {
	if repl == orig {
		return types.NoTypeID
	}
	return repl
}
