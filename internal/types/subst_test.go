package types

import "testing"

type mapSubstituter struct {
	in   *Interner
	repl map[TypeID]TypeID
	opts SubstOptions
}

func (m mapSubstituter) SubstituteType(id TypeID) TypeID { return m.repl[id] }

func (m mapSubstituter) ProjectMember(_, _ TypeID, _ ProtocolID, _ uint32, _ int) TypeID {
	return NoTypeID
}

func (m mapSubstituter) Options() SubstOptions { return m.opts }

func TestSubstReplacesParamsStructurally(t *testing.T) {
	in := NewInterner()
	intTy := in.Nominal(in.RegisterNominal("Int", false), nil)
	arr := in.RegisterNominal("Array", false)
	T := in.Param(0, 0, false)
	U := in.Param(0, 1, false)

	fn := in.Fn([]TypeID{in.Nominal(arr, []TypeID{T})}, U)
	out := Subst(in, fn, mapSubstituter{in: in, repl: map[TypeID]TypeID{T: intTy}})
	if got, want := Label(in, out), "(Array<Int>) -> τ_0_1"; got != want {
		t.Fatalf("got=%q want=%q", got, want)
	}
	if Subst(in, fn, mapSubstituter{in: in}) != fn {
		t.Fatalf("empty substitution must return the same type")
	}
}

func TestSubstExpandsPackExpansions(t *testing.T) {
	in := NewInterner()
	intTy := in.Nominal(in.RegisterNominal("Int", false), nil)
	strTy := in.Nominal(in.RegisterNominal("String", false), nil)
	arr := in.RegisterNominal("Array", false)
	each := in.Param(0, 0, true)

	tuple := in.Tuple([]TypeID{in.Expansion(in.Nominal(arr, []TypeID{each}), each)})
	repl := map[TypeID]TypeID{each: in.Pack([]TypeID{intTy, strTy})}
	out := Subst(in, tuple, mapSubstituter{in: in, repl: repl})
	if got, want := Label(in, out), "(Array<Int>, Array<String>)"; got != want {
		t.Fatalf("got=%q want=%q", got, want)
	}
}

func TestSubstForwardsPackExpansionElements(t *testing.T) {
	in := NewInterner()
	arr := in.RegisterNominal("Array", false)
	each := in.Param(0, 0, true)
	other := in.Param(1, 0, true)

	tuple := in.Tuple([]TypeID{in.Expansion(in.Nominal(arr, []TypeID{each}), each)})
	repl := map[TypeID]TypeID{each: in.SingletonPackExpansion(other)}
	out := Subst(in, tuple, mapSubstituter{in: in, repl: repl})
	if got, want := Label(in, out), "(repeat Array<each τ_1_0>)"; got != want {
		t.Fatalf("got=%q want=%q", got, want)
	}
}

func TestSubstLeavesArchetypesUnlessAsked(t *testing.T) {
	in := NewInterner()
	intTy := in.Nominal(in.RegisterNominal("Int", false), nil)
	T := in.Param(0, 0, false)
	arch := in.Archetype(ArchetypePrimary, T, 1, NoTypeID, nil)
	repl := map[TypeID]TypeID{arch: intTy}

	if out := Subst(in, arch, mapSubstituter{in: in, repl: repl}); out != arch {
		t.Fatalf("archetype replaced without SubstitutePrimaryArchetypes")
	}
	out := Subst(in, arch, mapSubstituter{in: in, repl: repl, opts: SubstitutePrimaryArchetypes})
	if out != intTy {
		t.Fatalf("got=%s want=Int", Label(in, out))
	}
}
