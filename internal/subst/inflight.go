package subst

import "gsubst/internal/types"

// InFlight is one substitution in progress: a Capability, the options that
// govern archetypes and pack expansions, and the resolution context threaded
// through conformance lookups. It implements types.Substituter.
type InFlight struct {
	ctx   *Context
	query Capability
	opts  types.SubstOptions
	rc    *Resolution
}

// NewInFlight starts a substitution with a fresh resolution context.
func NewInFlight(ctx *Context, query Capability, opts types.SubstOptions) *InFlight {
	return &InFlight{ctx: ctx, query: query, opts: opts, rc: NewResolution()}
}

// WithResolution returns a copy of f that shares rc.
func (f *InFlight) WithResolution(rc *Resolution) *InFlight {
	cp := *f
	if rc != nil {
		cp.rc = rc
	}
	return &cp
}

func (f *InFlight) Context() *Context           { return f.ctx }
func (f *InFlight) Capability() Capability      { return f.query }
func (f *InFlight) Resolution() *Resolution     { return f.rc }
func (f *InFlight) Options() types.SubstOptions { return f.opts }

// ShouldSubstituteOpaqueArchetypes reports whether opaque archetypes are
// replaced, which disables the concrete-conformance fast path of Map.Subst.
func (f *InFlight) ShouldSubstituteOpaqueArchetypes() bool {
	return f.opts.Has(types.SubstituteOpaqueArchetypes)
}

// SubstituteType implements types.Substituter.
func (f *InFlight) SubstituteType(id types.TypeID) types.TypeID {
	return f.query.SubstituteType(id)
}

// ProjectMember implements types.Substituter by resolving the conformance
// of the new base and reading its type witness.
func (f *InFlight) ProjectMember(origBase, newBase types.TypeID, proto types.ProtocolID, assoc uint32, level int) types.TypeID {
	in := f.ctx.types
	conf := f.LookupConformance(in.Canonical(origBase), newBase, proto, level)
	if conf.IsInvalid() {
		if in.IsTypeParameter(newBase) || in.IsArchetype(newBase) || in.HasError(newBase) {
			return types.NoTypeID
		}
		return in.Builtins().Error
	}
	return conf.TypeWitness(f.rc, assoc)
}

// Type substitutes t.
func (f *InFlight) Type(t types.TypeID) types.TypeID {
	return types.Subst(f.ctx.types, t, f)
}

// LookupConformance asks the capability for evidence. level is 0 outside
// pack expansions, otherwise one plus the index of the expanded element;
// pack evidence is then narrowed to that element.
func (f *InFlight) LookupConformance(dep, repl types.TypeID, proto types.ProtocolID, level int) ConformanceRef {
	ref := f.query.LookupConformance(f.rc, dep, repl, proto)
	if level <= 0 || !ref.IsPack() {
		return ref
	}
	patterns := ref.pack.patterns
	if level-1 >= len(patterns) {
		return Invalid()
	}
	return patterns[level-1]
}
