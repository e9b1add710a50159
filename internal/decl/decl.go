// Package decl models the declarations substitution builders consult:
// nominal types with their generic signatures and superclasses, and members
// with their own generic parameter lists.
package decl

import (
	"gsubst/internal/generics"
	"gsubst/internal/types"
)

// Kind enumerates nominal declaration kinds.
type Kind uint8

const (
	KindStruct Kind = iota + 1
	KindClass
	KindProtocol
)

func (k Kind) String() string {
	switch k {
	case KindStruct:
		return "struct"
	case KindClass:
		return "class"
	case KindProtocol:
		return "protocol"
	default:
		return "unknown"
	}
}

// Nominal is a type declaration that can contain members.
type Nominal struct {
	Name string
	Kind Kind
	// ID is the interner slot for struct and class declarations.
	ID types.NominalID
	// Protocol is set for protocol declarations.
	Protocol types.ProtocolID
	// Sig is the declaration's generic signature; nil when not generic.
	Sig *generics.Signature
	// Superclass is the superclass type written against Sig.
	Superclass types.TypeID
	// SuperclassDecl is the declaration Superclass refers to.
	SuperclassDecl *Nominal
}

// DeclaredInterfaceType returns Name<params...> written against Sig.
func (n *Nominal) DeclaredInterfaceType(in *types.Interner) types.TypeID {
	if n.Kind == KindProtocol {
		return in.SelfParam()
	}
	return in.Nominal(n.ID, n.Sig.Params())
}

// IsClass reports whether n is a class declaration.
func (n *Nominal) IsClass() bool { return n != nil && n.Kind == KindClass }

// IsProtocol reports whether n is a protocol declaration.
func (n *Nominal) IsProtocol() bool { return n != nil && n.Kind == KindProtocol }

// SuperclassTypeOf walks the superclass chain starting at n until it reaches
// target and returns target's type written against n's signature.
func (n *Nominal) SuperclassTypeOf(in *types.Interner, target *Nominal) (types.TypeID, bool) {
	if n == target {
		return n.DeclaredInterfaceType(in), true
	}
	current := n
	ty := n.DeclaredInterfaceType(in)
	for current != nil && current.SuperclassDecl != nil {
		// Re-express the next superclass in terms of the arguments reached so far.
		args := in.Elems(ty)
		next := current.Superclass
		if current.Sig != nil && len(args) == current.Sig.NumParams() {
			params := current.Sig.Params()
			next = types.Transform(in, next, func(id types.TypeID) types.TypeID {
				for i, p := range params {
					if p == id {
						return args[i]
					}
				}
				return types.NoTypeID
			}, 0)
		}
		current = current.SuperclassDecl
		ty = next
		if current == target {
			return ty, true
		}
	}
	return types.NoTypeID, false
}

// Member is a function, subscript or other value declaration inside a nominal.
type Member struct {
	Name   string
	Parent *Nominal
	// Sig is the member's full generic signature, including Parent's
	// parameters; equal to Parent.Sig for non-generic members.
	Sig *generics.Signature
	// Params is the member's own generic parameter list; nil when the member
	// declares none.
	Params []types.TypeID
}

// InnermostSignature returns the signature of the member's generic context.
func (m *Member) InnermostSignature() *generics.Signature {
	if m.Sig != nil {
		return m.Sig
	}
	if m.Parent != nil {
		return m.Parent.Sig
	}
	return nil
}
