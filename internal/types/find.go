package types

// ParamKey addresses a generic parameter independently of its TypeID.
type ParamKey struct {
	Depth uint32
	Index uint32
}

// Key returns the (depth, index) key of a generic parameter type.
func (in *Interner) Key(id TypeID) (ParamKey, bool) {
	tt, ok := in.Lookup(id)
	if !ok || tt.Kind != KindGenericParam {
		return ParamKey{}, false
	}
	return ParamKey{Depth: tt.Depth, Index: tt.Index}, true
}

// IsTypeParameter reports whether id is a generic parameter or a dependent
// member rooted in one.
func (in *Interner) IsTypeParameter(id TypeID) bool {
	return in.RootParam(id) != NoTypeID
}

// RootParam returns the generic parameter a type parameter is rooted in.
func (in *Interner) RootParam(id TypeID) TypeID {
	for {
		tt, ok := in.Lookup(id)
		if !ok {
			return NoTypeID
		}
		switch tt.Kind {
		case KindGenericParam:
			return id
		case KindDependentMember:
			id = tt.Elem
		default:
			return NoTypeID
		}
	}
}

// IsParameterPack reports whether id is a pack generic parameter.
func (in *Interner) IsParameterPack(id TypeID) bool {
	tt, ok := in.Lookup(id)
	return ok && tt.Kind == KindGenericParam && tt.Pack
}

// IsPack reports whether id is a pack type.
func (in *Interner) IsPack(id TypeID) bool {
	return in.Kind(in.Canonical(id)) == KindPack
}

// IsArchetype reports whether id is an archetype of any kind.
func (in *Interner) IsArchetype(id TypeID) bool {
	return in.Kind(in.Canonical(id)) == KindArchetype
}

// IsOpaqueArchetype reports whether id is an opaque archetype.
func (in *Interner) IsOpaqueArchetype(id TypeID) bool {
	tt, ok := in.Lookup(in.Canonical(id))
	return ok && tt.Kind == KindArchetype && ArchetypeKind(tt.Index) == ArchetypeOpaque
}

// IsExistential reports whether id is an existential type.
func (in *Interner) IsExistential(id TypeID) bool {
	return in.Kind(in.Canonical(id)) == KindExistential
}

// IsTypeVariableOrMember reports whether id is an inference variable or a
// dependent member rooted in one.
func (in *Interner) IsTypeVariableOrMember(id TypeID) bool {
	for {
		tt, ok := in.Lookup(id)
		if !ok {
			return false
		}
		switch tt.Kind {
		case KindTypeVar:
			return true
		case KindDependentMember:
			id = tt.Elem
		default:
			return false
		}
	}
}

// HasError reports whether id mentions the error type.
func (in *Interner) HasError(id TypeID) bool {
	return in.Props(id).Has(HasError)
}

// HasTypeParameter reports whether id mentions any generic parameter.
func (in *Interner) HasTypeParameter(id TypeID) bool {
	return in.Props(id).Has(HasTypeParameter)
}
