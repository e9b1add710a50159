package types

import "fmt"

// TypeID uniquely identifies a type inside the interner.
type TypeID uint32

// NoTypeID marks the absence of a type.
const NoTypeID TypeID = 0

// Kind enumerates all supported kinds of types.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindError
	KindUnresolved
	KindTypeVar
	KindGenericParam
	KindDependentMember
	KindNominal
	KindTuple
	KindFn
	KindPack
	KindPackExpansion
	KindArchetype
	KindExistential
	KindAlias
)

func (k Kind) String() string {
	switch k {
	case KindInvalid:
		return "invalid"
	case KindError:
		return "error"
	case KindUnresolved:
		return "unresolved"
	case KindTypeVar:
		return "typevar"
	case KindGenericParam:
		return "param"
	case KindDependentMember:
		return "member"
	case KindNominal:
		return "nominal"
	case KindTuple:
		return "tuple"
	case KindFn:
		return "fn"
	case KindPack:
		return "pack"
	case KindPackExpansion:
		return "expansion"
	case KindArchetype:
		return "archetype"
	case KindExistential:
		return "existential"
	case KindAlias:
		return "alias"
	default:
		return fmt.Sprintf("Kind(%d)", k)
	}
}

// ArchetypeKind distinguishes the environments an archetype can be bound to.
type ArchetypeKind uint8

const (
	ArchetypePrimary ArchetypeKind = iota + 1
	ArchetypePack
	ArchetypeOpaque
)

func (k ArchetypeKind) String() string {
	switch k {
	case ArchetypePrimary:
		return "primary"
	case ArchetypePack:
		return "pack"
	case ArchetypeOpaque:
		return "opaque"
	default:
		return "?"
	}
}

// Type is a compact descriptor for any supported type.
//
// Field usage per kind:
//   - GenericParam: Depth, Index, Pack
//   - TypeVar: Index
//   - DependentMember: Elem (base), Payload (protocol), Index (associated type)
//   - Nominal: Index (nominal decl), Payload (argument list)
//   - Tuple, Pack: Payload (element list)
//   - Fn: Payload (parameter list), Elem (result)
//   - PackExpansion: Elem (pattern), Aux (count type)
//   - Archetype: Index (ArchetypeKind), Elem (interface type), Payload (environment or opaque decl)
//   - Existential: Payload (protocol)
//   - Alias: Elem (underlying), Payload (name)
type Type struct {
	Kind    Kind
	Depth   uint32
	Index   uint32
	Pack    bool
	Elem    TypeID
	Aux     TypeID
	Payload uint32
}

// Descriptor helpers ---------------------------------------------------------

// MakeParam describes the generic parameter at (depth, index).
func MakeParam(depth, index uint32, pack bool) Type {
	return Type{Kind: KindGenericParam, Depth: depth, Index: index, Pack: pack}
}

// MakeTypeVar describes an inference variable.
func MakeTypeVar(n uint32) Type {
	return Type{Kind: KindTypeVar, Index: n}
}

// MakeExpansion describes `repeat pattern` counted by the pack in count.
func MakeExpansion(pattern, count TypeID) Type {
	return Type{Kind: KindPackExpansion, Elem: pattern, Aux: count}
}

// MakeExistential describes `any P`.
func MakeExistential(proto ProtocolID) Type {
	return Type{Kind: KindExistential, Payload: uint32(proto)}
}
