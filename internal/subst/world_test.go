package subst

import (
	"errors"
	"testing"

	"gsubst/internal/generics"
	"gsubst/internal/types"
)

// world is a small standard library: Int, String, Bool, Array and its
// iterator, plus the Sequence/Collection and Equatable/Hashable hierarchies.
type world struct {
	in  *types.Interner
	ctx *Context

	iterator, sequence, collection types.ProtocolID
	equatable, hashable, copyable  types.ProtocolID

	intTy, stringTy, boolTy types.TypeID
	array, arrayIter        types.NominalID
	arraySig                *generics.Signature
	t0, t1                  types.TypeID
}

func newWorld(t *testing.T, opts Options) *world {
	t.Helper()
	in := types.NewInterner()
	w := &world{in: in}
	w.iterator = in.RegisterProtocol("IteratorProtocol", "Element")
	w.sequence = in.RegisterProtocol("Sequence", "Element", "Iterator")
	w.collection = in.RegisterProtocol("Collection")
	w.equatable = in.RegisterProtocol("Equatable")
	w.hashable = in.RegisterProtocol("Hashable")
	w.copyable = in.RegisterProtocol("Copyable")
	in.MarkInvertible(w.copyable, types.InvertibleCopyable)

	self := in.SelfParam()
	in.SetProtocolRequirements(w.sequence, []types.AssocRequirement{{Subject: in.Member(self, w.sequence, 1), Proto: w.iterator}})
	in.SetProtocolRequirements(w.collection, []types.AssocRequirement{{Subject: self, Proto: w.sequence}})
	in.SetProtocolRequirements(w.hashable, []types.AssocRequirement{{Subject: self, Proto: w.equatable}})

	w.ctx = NewContext(in, opts)
	w.intTy = in.Nominal(in.RegisterNominal("Int", false), nil)
	w.stringTy = in.Nominal(in.RegisterNominal("String", false), nil)
	w.boolTy = in.Nominal(in.RegisterNominal("Bool", false), nil)
	w.array = in.RegisterNominal("Array", false)
	w.arrayIter = in.RegisterNominal("ArrayIterator", false)
	w.t0 = in.Param(0, 0, false)
	w.t1 = in.Param(0, 1, false)
	w.arraySig = generics.MustNew(in, []types.TypeID{w.t0}, nil)

	for _, ty := range []types.TypeID{w.intTy, w.stringTy} {
		w.register(t, w.ctx.NewNormal(ty, w.equatable, nil))
		w.register(t, w.ctx.NewNormal(ty, w.hashable, nil))
	}
	arrayT := w.arrayOf(w.t0)
	iterT := in.Nominal(w.arrayIter, []types.TypeID{w.t0})
	w.register(t, w.ctx.NewNormal(iterT, w.iterator, w.arraySig).SetTypeWitness(0, w.t0))
	w.register(t, w.ctx.NewNormal(arrayT, w.sequence, w.arraySig).SetTypeWitness(0, w.t0).SetTypeWitness(1, iterT))
	w.register(t, w.ctx.NewNormal(arrayT, w.collection, w.arraySig))
	return w
}

func (w *world) register(t *testing.T, n *Normal) {
	t.Helper()
	if err := w.ctx.Table().Register(n); err != nil {
		t.Fatalf("register %s: %v", n.Label(), err)
	}
}

func (w *world) arrayOf(elem types.TypeID) types.TypeID {
	return w.in.Nominal(w.array, []types.TypeID{elem})
}

func (w *world) sig(params []types.TypeID, reqs ...generics.Requirement) *generics.Signature {
	return generics.MustNew(w.in, params, reqs)
}

func (w *world) label(id types.TypeID) string { return types.Label(w.in, id) }

// mustFault runs fn and returns the *FaultError it panics with.
func mustFault(t *testing.T, fn func()) (fault *FaultError) {
	t.Helper()
	defer func() {
		r := recover()
		err, ok := r.(error)
		if !ok || !errors.As(err, &fault) {
			t.Fatalf("expected *FaultError panic, got %v", r)
		}
	}()
	fn()
	return nil
}
