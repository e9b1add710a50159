package generics

import (
	"testing"

	"gsubst/internal/types"
)

type protocols struct {
	iterator   types.ProtocolID
	sequence   types.ProtocolID
	collection types.ProtocolID
	equatable  types.ProtocolID
}

// stdlib registers a small Sequence/Collection hierarchy.
func stdlib(t *testing.T) (*types.Interner, protocols) {
	t.Helper()
	in := types.NewInterner()
	p := protocols{
		iterator:   in.RegisterProtocol("IteratorProtocol", "Element"),
		sequence:   in.RegisterProtocol("Sequence", "Element", "Iterator"),
		collection: in.RegisterProtocol("Collection", "Index"),
		equatable:  in.RegisterProtocol("Equatable"),
	}
	self := in.SelfParam()
	in.SetProtocolRequirements(p.sequence, []types.AssocRequirement{
		{Subject: in.Member(self, p.sequence, 1), Proto: p.iterator},
	})
	in.SetProtocolRequirements(p.collection, []types.AssocRequirement{
		{Subject: self, Proto: p.sequence},
	})
	return in, p
}
