package generics

import (
	"testing"

	"gsubst/internal/types"
)

func TestMapTypeIntoAndOutOfContext(t *testing.T) {
	in, p := stdlib(t)
	t0 := in.Param(0, 0, false)
	sig := MustNew(in, []types.TypeID{t0}, []Requirement{Conforms(t0, p.collection)})
	env := sig.Environment()
	if sig.Environment() != env {
		t.Fatalf("environment should be memoized")
	}

	array := in.RegisterNominal("Array", false)
	iface := in.Nominal(array, []types.TypeID{in.Member(t0, p.sequence, 0)})
	ctxTy := env.MapTypeIntoContext(iface)
	if !in.Props(ctxTy).Has(types.HasPrimaryArchetype) || in.HasTypeParameter(ctxTy) {
		t.Fatalf("expected archetypes only, got %s", types.Label(in, ctxTy))
	}

	arch := env.MapTypeIntoContext(t0)
	info, ok := in.ArchetypeInfo(arch)
	if !ok || info.Kind != types.ArchetypePrimary || info.Env != env.ID() {
		t.Fatalf("unexpected archetype info: %+v", info)
	}
	if !info.Requires(p.collection) || !info.Requires(p.sequence) {
		t.Fatalf("archetype should carry implied conformances: %v", info.ConformsTo)
	}

	if back := MapTypeOutOfContext(in, ctxTy); back != iface {
		t.Fatalf("round trip: got %s want %s", types.Label(in, back), types.Label(in, iface))
	}
}

func TestMapPackParameterIntoContext(t *testing.T) {
	in, _ := stdlib(t)
	each := in.Param(0, 0, true)
	sig := MustNew(in, []types.TypeID{each}, nil)

	ctxTy := sig.Environment().MapTypeIntoContext(each)
	elems := in.Elems(ctxTy)
	if in.Kind(ctxTy) != types.KindPack || len(elems) != 1 {
		t.Fatalf("pack parameter should map to a forwarding pack, got %s", types.Label(in, ctxTy))
	}
	exp := in.MustLookup(elems[0])
	if exp.Kind != types.KindPackExpansion {
		t.Fatalf("expected pack expansion element")
	}
	info, ok := in.ArchetypeInfo(exp.Elem)
	if !ok || info.Kind != types.ArchetypePack {
		t.Fatalf("expected pack archetype pattern")
	}
	if back := MapTypeOutOfContext(in, ctxTy); back != in.SingletonPackExpansion(each) {
		t.Fatalf("round trip: got %s", types.Label(in, back))
	}
}

func TestConcreteParameterMapsToItsType(t *testing.T) {
	in, _ := stdlib(t)
	t0 := in.Param(0, 0, false)
	intTy := in.Nominal(in.RegisterNominal("Int", false), nil)
	sig := MustNew(in, []types.TypeID{t0}, []Requirement{SameType(t0, intTy)})
	if got := sig.Environment().MapTypeIntoContext(t0); got != intTy {
		t.Fatalf("got %s want Int", types.Label(in, got))
	}
}
