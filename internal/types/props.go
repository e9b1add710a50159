package types

import "strings"

// Properties are structural flags aggregated over a type and all of its
// components.
type Properties uint16

const (
	HasTypeVariable Properties = 1 << iota
	HasError
	HasUnresolved
	HasTypeParameter
	HasDependentMember
	HasPrimaryArchetype
	HasPackArchetype
	HasOpaqueArchetype
	HasPack
	HasSugar
)

// HasArchetype is the union of every archetype flag.
const HasArchetype = HasPrimaryArchetype | HasPackArchetype | HasOpaqueArchetype

// Has reports whether all flags in f are set.
func (p Properties) Has(f Properties) bool { return p&f == f }

// Any reports whether at least one flag in f is set.
func (p Properties) Any(f Properties) bool { return p&f != 0 }

func (p Properties) String() string {
	if p == 0 {
		return "none"
	}
	names := []struct {
		f    Properties
		name string
	}{
		{HasTypeVariable, "typevar"},
		{HasError, "error"},
		{HasUnresolved, "unresolved"},
		{HasTypeParameter, "param"},
		{HasDependentMember, "member"},
		{HasPrimaryArchetype, "primary-archetype"},
		{HasPackArchetype, "pack-archetype"},
		{HasOpaqueArchetype, "opaque-archetype"},
		{HasPack, "pack"},
		{HasSugar, "sugar"},
	}
	var parts []string
	for _, n := range names {
		if p.Has(n.f) {
			parts = append(parts, n.name)
		}
	}
	return strings.Join(parts, "|")
}

// Props returns the recursive properties of id.
func (in *Interner) Props(id TypeID) Properties {
	in.mu.RLock()
	defer in.mu.RUnlock()
	if id == NoTypeID || int(id) >= len(in.props) {
		return 0
	}
	return in.props[id]
}

func (in *Interner) computePropsLocked(t Type) Properties {
	child := func(id TypeID) Properties {
		if id == NoTypeID || int(id) >= len(in.props) {
			return 0
		}
		return in.props[id]
	}
	list := func(slot uint32) Properties {
		var p Properties
		if int(slot) < len(in.lists) {
			for _, id := range in.lists[slot] {
				p |= child(id)
			}
		}
		return p
	}
	switch t.Kind {
	case KindError:
		return HasError
	case KindUnresolved:
		return HasUnresolved
	case KindTypeVar:
		return HasTypeVariable
	case KindGenericParam:
		return HasTypeParameter
	case KindDependentMember:
		return child(t.Elem) | HasDependentMember
	case KindNominal, KindTuple:
		return list(t.Payload)
	case KindFn:
		return list(t.Payload) | child(t.Elem)
	case KindPack:
		return list(t.Payload) | HasPack
	case KindPackExpansion:
		return child(t.Elem) | child(t.Aux) | HasPack
	case KindArchetype:
		switch ArchetypeKind(t.Index) {
		case ArchetypePrimary:
			return HasPrimaryArchetype
		case ArchetypePack:
			return HasPackArchetype
		case ArchetypeOpaque:
			return HasOpaqueArchetype
		}
		return 0
	case KindExistential:
		return 0
	case KindAlias:
		return child(t.Elem) | HasSugar
	default:
		return 0
	}
}
