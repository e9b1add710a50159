package types

// IsCanonical reports whether id carries no sugar.
func (in *Interner) IsCanonical(id TypeID) bool {
	return !in.Props(id).Has(HasSugar)
}

// Canonical strips sugar from id, rebuilding composite types as needed.
func (in *Interner) Canonical(id TypeID) TypeID {
	if id == NoTypeID || in.IsCanonical(id) {
		return id
	}
	tt, ok := in.Lookup(id)
	if !ok {
		return id
	}
	switch tt.Kind {
	case KindAlias:
		return in.Canonical(tt.Elem)
	case KindDependentMember:
		clone := tt
		clone.Elem = in.Canonical(tt.Elem)
		return in.Intern(clone)
	case KindPackExpansion:
		return in.Expansion(in.Canonical(tt.Elem), in.Canonical(tt.Aux))
	case KindNominal:
		return in.Nominal(NominalID(tt.Index), in.canonicalList(tt.Payload))
	case KindTuple:
		return in.Tuple(in.canonicalList(tt.Payload))
	case KindPack:
		return in.Pack(in.canonicalList(tt.Payload))
	case KindFn:
		return in.Fn(in.canonicalList(tt.Payload), in.Canonical(tt.Elem))
	default:
		return id
	}
}

func (in *Interner) canonicalList(slot uint32) []TypeID {
	elems := in.List(slot)
	out := make([]TypeID, len(elems))
	for i, e := range elems {
		out[i] = in.Canonical(e)
	}
	return out
}

// Equal compares two types modulo sugar.
func (in *Interner) Equal(a, b TypeID) bool {
	return a == b || in.Canonical(a) == in.Canonical(b)
}
