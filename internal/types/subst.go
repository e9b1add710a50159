package types

// SubstOptions tune how Subst treats archetypes and pack expansions.
type SubstOptions uint8

const (
	// PreservePackExpansionLevel never splices a pack expansion into its
	// elements; pack parameters inside the pattern that are replaced by a
	// forwarding pack Pack{repeat X} become X at the same expansion level.
	PreservePackExpansionLevel SubstOptions = 1 << iota
	// SubstitutePrimaryArchetypes routes primary and pack archetypes through
	// the substituter.
	SubstitutePrimaryArchetypes
	// SubstituteOpaqueArchetypes routes opaque archetypes through the substituter.
	SubstituteOpaqueArchetypes
)

// Has reports whether all flags in f are set.
func (o SubstOptions) Has(f SubstOptions) bool { return o&f == f }

// Substituter supplies replacements while Subst walks a type.
type Substituter interface {
	// SubstituteType returns the replacement for a generic parameter or an
	// archetype, or NoTypeID to leave it untouched.
	SubstituteType(id TypeID) TypeID
	// ProjectMember resolves origBase.assoc once origBase was replaced by
	// newBase. level is 0 outside pack expansions, otherwise one plus the
	// index of the pack element being expanded. NoTypeID keeps the member
	// structurally on newBase.
	ProjectMember(origBase, newBase TypeID, proto ProtocolID, assoc uint32, level int) TypeID
	Options() SubstOptions
}

// Subst applies s to every substitutable position of id.
func Subst(in *Interner, id TypeID, s Substituter) TypeID {
	if in == nil || s == nil || id == NoTypeID {
		return id
	}
	st := substState{in: in, s: s, opts: s.Options()}
	return st.typ(id)
}

type substState struct {
	in     *Interner
	s      Substituter
	opts   SubstOptions
	active []int
	cache  map[TypeID]TypeID
}

func (st *substState) level() int {
	if len(st.active) == 0 || st.active[len(st.active)-1] < 0 {
		return 0
	}
	return st.active[len(st.active)-1] + 1
}

func (st *substState) typ(id TypeID) TypeID {
	if len(st.active) == 0 {
		if st.cache == nil {
			st.cache = make(map[TypeID]TypeID, 16)
		} else if cached, ok := st.cache[id]; ok {
			return cached
		}
		out := st.typNoCache(id)
		st.cache[id] = out
		return out
	}
	return st.typNoCache(id)
}

func (st *substState) typNoCache(id TypeID) TypeID {
	in := st.in
	tt, ok := in.Lookup(id)
	if !ok {
		return id
	}

	switch tt.Kind {
	case KindGenericParam:
		repl := st.s.SubstituteType(id)
		if repl == NoTypeID {
			return id
		}
		if tt.Pack {
			return st.project(repl)
		}
		return repl

	case KindArchetype:
		kind := ArchetypeKind(tt.Index)
		switch {
		case kind == ArchetypeOpaque && st.opts.Has(SubstituteOpaqueArchetypes):
		case kind != ArchetypeOpaque && st.opts.Has(SubstitutePrimaryArchetypes):
		default:
			return id
		}
		repl := st.s.SubstituteType(id)
		if repl == NoTypeID {
			return id
		}
		if kind == ArchetypePack {
			return st.project(repl)
		}
		return repl

	case KindDependentMember:
		base := st.typ(tt.Elem)
		if base == tt.Elem {
			return id
		}
		if repl := st.s.ProjectMember(tt.Elem, base, ProtocolID(tt.Payload), tt.Index, st.level()); repl != NoTypeID {
			return repl
		}
		return in.Member(base, ProtocolID(tt.Payload), tt.Index)

	case KindNominal:
		args := in.List(tt.Payload)
		if len(args) == 0 {
			return id
		}
		newArgs := make([]TypeID, len(args))
		changed := false
		for i := range args {
			newArgs[i] = st.typ(args[i])
			changed = changed || newArgs[i] != args[i]
		}
		if !changed {
			return id
		}
		return in.Nominal(NominalID(tt.Index), newArgs)

	case KindTuple:
		elems, changed := st.expandList(in.List(tt.Payload))
		if !changed {
			return id
		}
		return in.Tuple(elems)

	case KindPack:
		elems, changed := st.expandList(in.List(tt.Payload))
		if !changed {
			return id
		}
		return in.Pack(elems)

	case KindFn:
		params, changed := st.expandList(in.List(tt.Payload))
		result := st.typ(tt.Elem)
		if !changed && result == tt.Elem {
			return id
		}
		return in.Fn(params, result)

	case KindPackExpansion:
		elems := st.expand(id)
		if len(elems) == 1 && in.Kind(elems[0]) == KindPackExpansion {
			return elems[0]
		}
		return in.Pack(elems)

	case KindAlias:
		under := st.typ(tt.Elem)
		if under == tt.Elem {
			return id
		}
		return under

	default:
		return id
	}
}

// project picks the active element out of a pack replacement. A negative
// active index marks a level-preserving expansion.
func (st *substState) project(repl TypeID) TypeID {
	if len(st.active) == 0 || st.in.Kind(repl) != KindPack {
		return repl
	}
	elems := st.in.Elems(repl)
	idx := st.active[len(st.active)-1]
	if idx < 0 {
		if len(elems) == 1 {
			if et, ok := st.in.Lookup(elems[0]); ok && et.Kind == KindPackExpansion {
				return et.Elem
			}
		}
		return repl
	}
	if idx >= len(elems) {
		return st.in.Builtins().Error
	}
	elem := elems[idx]
	if et, ok := st.in.Lookup(elem); ok && et.Kind == KindPackExpansion {
		return et.Elem
	}
	return elem
}

func (st *substState) expandList(elems []TypeID) ([]TypeID, bool) {
	out := make([]TypeID, 0, len(elems))
	changed := false
	for _, e := range elems {
		sub := st.expand(e)
		if len(sub) != 1 || sub[0] != e {
			changed = true
		}
		out = append(out, sub...)
	}
	return out, changed
}

// expand substitutes one element of a pack-like list; pack expansions whose
// count became a concrete pack splice into one element per pack element.
func (st *substState) expand(id TypeID) []TypeID {
	in := st.in
	tt, ok := in.Lookup(id)
	if !ok || tt.Kind != KindPackExpansion {
		return []TypeID{st.typ(id)}
	}
	if st.opts.Has(PreservePackExpansionLevel) {
		st.active = append(st.active, -1)
		pattern := st.typ(tt.Elem)
		count := st.typ(tt.Aux)
		st.active = st.active[:len(st.active)-1]
		return []TypeID{in.Expansion(pattern, count)}
	}
	count := st.typ(tt.Aux)
	if in.Kind(count) != KindPack {
		return []TypeID{in.Expansion(st.typ(tt.Elem), count)}
	}
	countElems := in.Elems(count)
	out := make([]TypeID, 0, len(countElems))
	for i, elem := range countElems {
		st.active = append(st.active, i)
		pattern := st.typ(tt.Elem)
		st.active = st.active[:len(st.active)-1]
		if et, ok := in.Lookup(elem); ok && et.Kind == KindPackExpansion {
			out = append(out, in.Expansion(pattern, et.Aux))
			continue
		}
		out = append(out, pattern)
	}
	return out
}

// Transform substitutes with a plain function over generic parameters and
// keeps dependent members structural.
func Transform(in *Interner, id TypeID, fn func(TypeID) TypeID, opts SubstOptions) TypeID {
	return Subst(in, id, funcSubstituter{fn: fn, opts: opts})
}

type funcSubstituter struct {
	fn   func(TypeID) TypeID
	opts SubstOptions
}

func (f funcSubstituter) SubstituteType(id TypeID) TypeID { return f.fn(id) }

func (f funcSubstituter) ProjectMember(TypeID, TypeID, ProtocolID, uint32, int) TypeID {
	return NoTypeID
}

func (f funcSubstituter) Options() SubstOptions { return f.opts }
