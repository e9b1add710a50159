package subst

import (
	"strconv"

	"gsubst/internal/generics"
	"gsubst/internal/trace"
	"gsubst/internal/types"
)

// LookupSubstitution returns the replacement of a generic parameter or of a
// root primary or pack archetype. NoTypeID means the map has no replacement
// and t should be treated as unresolved.
func (m Map) LookupSubstitution(t types.TypeID) types.TypeID {
	if m.s == nil {
		return types.NoTypeID
	}
	in := m.s.ctx.types
	t = in.Canonical(t)
	if info, ok := in.ArchetypeInfo(t); ok {
		if info.Kind == types.ArchetypeOpaque || !info.IsRoot(in) {
			return types.NoTypeID
		}
		t = in.Canonical(info.Interface)
	}
	key, ok := in.Key(t)
	if !ok {
		return types.NoTypeID
	}
	idx := m.s.sig.ParamIndex(key)
	if idx < 0 {
		return types.NoTypeID
	}
	return m.s.replacements[idx]
}

// LookupConformance returns the evidence that the type parameter t conforms
// to proto under this map, or Invalid.
func (m Map) LookupConformance(t types.TypeID, proto types.ProtocolID) ConformanceRef {
	return m.lookupConformance(NewResolution(), t, proto)
}

// LookupConformanceIn is LookupConformance sharing an existing resolution
// context, for use inside associated-conformance resolvers.
func (m Map) LookupConformanceIn(rc *Resolution, t types.TypeID, proto types.ProtocolID) ConformanceRef {
	if rc == nil {
		rc = NewResolution()
	}
	return m.lookupConformance(rc, t, proto)
}

func (m Map) lookupConformance(rc *Resolution, t types.TypeID, proto types.ProtocolID) ConformanceRef {
	if m.s == nil {
		return Invalid()
	}
	ctx := m.s.ctx
	in := ctx.types
	t = in.Canonical(t)
	if info, ok := in.ArchetypeInfo(t); ok && info.Kind != types.ArchetypeOpaque {
		t = in.Canonical(info.Interface)
	}
	if !in.IsTypeParameter(t) {
		return Invalid()
	}

	span := trace.Begin(ctx.tracer, trace.ScopeQuery, "lookup.conformance", 0)
	ref := m.resolveConformance(rc, t, proto, span.ID())
	detail := ""
	if ctx.tracer.Enabled() {
		detail = types.Label(in, t) + ": " + in.ProtocolName(proto) + " => " + ref.Label(in)
	}
	span.End(detail)
	return ref
}

// direct scans the stated conformance requirements.
func (m Map) direct(t types.TypeID, proto types.ProtocolID) (ConformanceRef, bool) {
	in := m.s.ctx.types
	i := 0
	for _, req := range m.s.sig.Requirements() {
		if req.Kind != generics.ReqConformance {
			continue
		}
		if req.Proto == proto && in.Canonical(req.Subject) == t {
			return m.s.conformances[i], true
		}
		i++
	}
	return Invalid(), false
}

func (m Map) resolveConformance(rc *Resolution, t types.TypeID, proto types.ProtocolID, parent uint64) ConformanceRef {
	ctx := m.s.ctx
	in := ctx.types
	sig := m.s.sig

	if ref, ok := m.direct(t, proto); ok {
		return ref
	}

	if !sig.RequiresProtocol(t, proto) {
		substType := m.substTypeIn(rc, t)
		ref := ctx.lookupGlobal(rc, substType, proto)
		if ref.IsInvalid() {
			return ctx.forMissingOrInvalid(substType, proto)
		}
		return ref
	}

	if info, ok := in.Protocol(proto); ok && info.Invertible != types.NotInvertible {
		substType := m.substTypeIn(rc, t)
		if !in.IsTypeParameter(substType) {
			return ctx.lookupGlobal(rc, substType, proto)
		}
		return Abstract(proto)
	}

	path, ok := sig.ConformancePath(t, proto)
	if !ok || len(path) == 0 {
		return Invalid()
	}
	current, ok := m.direct(in.Canonical(path[0].Subject), path[0].Proto)
	if !ok {
		return Invalid()
	}
	for i, step := range path[1:] {
		span := trace.Begin(ctx.tracer, trace.ScopeStep, "lookup.step", parent).
			WithExtra("step", strconv.Itoa(i+1)).
			WithExtra("kind", current.Kind().String())

		switch current.Kind() {
		case RefInvalid:
			span.End("invalid")
			return Invalid()

		case RefAbstract:
			span.End("abstract")
			return m.continueAbstract(rc, t, proto)

		case RefPack:
			current = current.pack.AssociatedConformance(rc, step.Subject, step.Proto)

		case RefConcrete:
			if normal := current.concrete.Root(); normal != nil {
				key := generics.PathStep{Subject: in.Canonical(step.Subject), Proto: step.Proto}
				if !normal.HasComputedAssociatedConformances() && rc.Active(normal, key) {
					span.End("self-reference")
					return Invalid()
				}
			}
			current = current.concrete.AssociatedConformance(rc, step.Subject, step.Proto)

		default:
			panic("subst: unhandled conformance kind " + current.Kind().String())
		}

		span.End(current.Kind().String())
		if current.IsInvalid() {
			return Invalid()
		}
	}
	return current
}

// continueAbstract decides what an abstract step composes to. Types that
// became concrete enough after substitution are resolved by the global
// table; everything else stays abstract.
func (m Map) continueAbstract(rc *Resolution, t types.TypeID, proto types.ProtocolID) ConformanceRef {
	ctx := m.s.ctx
	in := ctx.types
	substType := m.substTypeIn(rc, t)
	if in.HasError(substType) {
		return Abstract(proto)
	}
	viaSuperclass := true
	if info, ok := in.ArchetypeInfo(in.Canonical(substType)); ok {
		viaSuperclass = info.Superclass != types.NoTypeID
	}
	if viaSuperclass && !in.IsTypeParameter(substType) && !in.IsExistential(substType) {
		return ctx.lookupGlobal(rc, substType, proto)
	}
	return Abstract(proto)
}
