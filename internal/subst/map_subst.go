package subst

import (
	"gsubst/internal/trace"
	"gsubst/internal/types"
)

// Subst pushes every replacement and conformance of m through ifs. It panics
// with a *FaultError if the result breaks the pack-ness invariant.
func (m Map) Subst(ifs *InFlight) Map {
	out, err := m.TrySubst(ifs)
	if err != nil {
		panic(err)
	}
	return out
}

// TrySubst is Subst returning faults.
func (m Map) TrySubst(ifs *InFlight) (Map, error) {
	if m.s == nil {
		return m, nil
	}
	ctx := m.s.ctx
	in := ctx.types
	span := trace.Begin(ctx.tracer, trace.ScopeBuild, "subst.map", 0).WithSession(ctx.ID())

	repl := make([]types.TypeID, len(m.s.replacements))
	for i, t := range m.s.replacements {
		repl[i] = ifs.Type(t)
	}

	reqs := m.s.sig.ConformanceRequirements()
	confs := make([]ConformanceRef, len(reqs))
	for i, req := range reqs {
		conf := m.s.conformances[i]
		if conf.IsConcrete() && !ifs.ShouldSubstituteOpaqueArchetypes() {
			confs[i] = ForConcrete(conf.concrete.Subst(ifs))
			continue
		}
		origType := m.substTypeIn(ifs.rc, in.Canonical(req.Subject))
		confs[i] = conf.Subst(origType, ifs)
	}

	out, err := ctx.TryGet(m.s.sig, repl, confs)
	if err != nil {
		span.End(err.Error())
		return Map{}, err
	}
	span.End("")
	return out, nil
}

// SubstMap substitutes m through other.
func (m Map) SubstMap(other Map, opts types.SubstOptions) Map {
	if m.s == nil {
		return m
	}
	return m.Subst(&InFlight{ctx: m.s.ctx, query: queryMap{m: other}, opts: opts, rc: NewResolution()})
}

// SubstFuncs substitutes m with a pair of functions.
func (m Map) SubstFuncs(typeFn TypeFunc, lookup ConformanceFunc, opts types.SubstOptions) Map {
	if m.s == nil {
		return m
	}
	return m.Subst(NewInFlight(m.s.ctx, Funcs{Types: typeFn, Conformances: lookup}, opts))
}

// MapReplacementTypesOutOfContext replaces primary and pack archetypes in the
// replacements by their interface types, keeping pack expansions at their
// level.
func (m Map) MapReplacementTypesOutOfContext() Map {
	if m.s == nil {
		return m
	}
	ctx := m.s.ctx
	return m.Subst(NewInFlight(ctx, outOfContext{in: ctx.types},
		types.SubstitutePrimaryArchetypes|types.PreservePackExpansionLevel))
}

// ResilienceExpansion is how much of other modules' implementation detail a
// context may rely on.
type ResilienceExpansion uint8

const (
	ExpansionMinimal ResilienceExpansion = iota
	ExpansionMaximal
)

// ExpansionContext is the point of view from which opaque types are
// replaced by their underlying types.
type ExpansionContext struct {
	Module      string
	Expansion   ResilienceExpansion
	WholeModule bool
}

// CanSee reports whether the underlying type of op is visible. Opaque types
// of the same module are always visible; other modules' only when they are
// not resilient and the context is maximally expanded.
func (e ExpansionContext) CanSee(op types.OpaqueInfo) bool {
	if op.Underlying == types.NoTypeID {
		return false
	}
	if op.Module == e.Module {
		return true
	}
	return !op.Resilient && e.Expansion == ExpansionMaximal
}

// MapIntoTypeExpansionContext replaces every visible opaque archetype in the
// map by its underlying type.
func (m Map) MapIntoTypeExpansionContext(ec ExpansionContext) Map {
	if m.s == nil || !m.HasOpaqueArchetypes() {
		return m
	}
	ctx := m.s.ctx
	replacer := &opaqueReplacer{ctx: ctx, ec: ec, seen: make(map[types.OpaqueID]bool, 2)}
	ifs := NewInFlight(ctx, replacer, types.SubstituteOpaqueArchetypes|types.PreservePackExpansionLevel)
	replacer.ifs = ifs
	return m.Subst(ifs)
}

type opaqueReplacer struct {
	ctx  *Context
	ec   ExpansionContext
	ifs  *InFlight
	seen map[types.OpaqueID]bool
}

func (r *opaqueReplacer) SubstituteType(t types.TypeID) types.TypeID {
	in := r.ctx.types
	info, ok := in.ArchetypeInfo(t)
	if !ok || info.Kind != types.ArchetypeOpaque {
		return types.NoTypeID
	}
	op, ok := in.Opaque(info.Opaque)
	if !ok || !r.ec.CanSee(op) || r.seen[info.Opaque] {
		return types.NoTypeID
	}
	r.seen[info.Opaque] = true
	under := types.Subst(in, op.Underlying, r.ifs)
	delete(r.seen, info.Opaque)
	return under
}

func (r *opaqueReplacer) LookupConformance(rc *Resolution, _, repl types.TypeID, proto types.ProtocolID) ConformanceRef {
	in := r.ctx.types
	if in.IsTypeParameter(repl) {
		return Abstract(proto)
	}
	ref := r.ctx.lookupGlobal(rc, repl, proto)
	if ref.IsInvalid() {
		return r.ctx.forMissingOrInvalid(repl, proto)
	}
	return ref
}
