package types

import (
	"sync"
	"testing"
)

func TestInternerBuiltins(t *testing.T) {
	in := NewInterner()
	b := in.Builtins()
	if b.Error == NoTypeID || b.EmptyPack == NoTypeID {
		t.Fatalf("builtins not initialized")
	}
	errTy, _ := in.Lookup(b.Error)
	if errTy.Kind != KindError {
		t.Fatalf("expected error kind, got %v", errTy.Kind)
	}
	if !in.HasError(b.Error) {
		t.Fatalf("error type must carry the error property")
	}
}

func TestInternerDeduplicatesDescriptors(t *testing.T) {
	in := NewInterner()
	arrayDecl := in.RegisterNominal("Array", false)
	intDecl := in.RegisterNominal("Int", false)
	intTy := in.Nominal(intDecl, nil)
	a1 := in.Nominal(arrayDecl, []TypeID{intTy})
	a2 := in.Nominal(arrayDecl, []TypeID{intTy})
	if a1 != a2 {
		t.Fatalf("nominal instances should be deduplicated")
	}
	if in.Tuple([]TypeID{a1, intTy}) != in.Tuple([]TypeID{a2, intTy}) {
		t.Fatalf("tuples should be deduplicated")
	}
}

func TestPackFlagAffectsIdentity(t *testing.T) {
	in := NewInterner()
	if in.Param(0, 0, true) == in.Param(0, 0, false) {
		t.Fatalf("pack and scalar parameters must differ")
	}
}

func TestCanonicalStripsSugar(t *testing.T) {
	in := NewInterner()
	intTy := in.Nominal(in.RegisterNominal("Int", false), nil)
	alias := in.Alias("MyInt", intTy)
	arr := in.Nominal(in.RegisterNominal("Array", false), []TypeID{alias})

	if in.IsCanonical(arr) {
		t.Fatalf("array of alias must not be canonical")
	}
	canon := in.Canonical(arr)
	if got, want := Label(in, canon), "Array<Int>"; got != want {
		t.Fatalf("canonical label: got=%q want=%q", got, want)
	}
	if !in.Equal(arr, canon) {
		t.Fatalf("sugared and canonical types must compare equal")
	}
	if in.Canonical(canon) != canon {
		t.Fatalf("canonicalization must be idempotent")
	}
}

func TestRecursiveProperties(t *testing.T) {
	in := NewInterner()
	p := in.RegisterProtocol("Sequence", "Element")
	param := in.Param(0, 0, false)
	member, _ := in.MemberNamed(param, p, "Element")
	tv := in.FreshTypeVar()
	fn := in.Fn([]TypeID{member}, tv)

	props := in.Props(fn)
	if !props.Has(HasTypeParameter | HasDependentMember | HasTypeVariable) {
		t.Fatalf("unexpected properties %v", props)
	}
	if props.Any(HasError | HasArchetype) {
		t.Fatalf("unexpected properties %v", props)
	}
}

func TestTypeParameterPredicates(t *testing.T) {
	in := NewInterner()
	p := in.RegisterProtocol("Sequence", "Element")
	param := in.Param(1, 2, false)
	member, ok := in.MemberNamed(param, p, "Element")
	if !ok {
		t.Fatalf("associated type lookup failed")
	}
	if !in.IsTypeParameter(member) || in.RootParam(member) != param {
		t.Fatalf("member must be rooted in its parameter")
	}
	if got, want := Label(in, member), "τ_1_2.Element"; got != want {
		t.Fatalf("label: got=%q want=%q", got, want)
	}
	if in.IsTypeParameter(in.Existential(p)) {
		t.Fatalf("existential is not a type parameter")
	}
}

func TestInternerConcurrentIntern(t *testing.T) {
	in := NewInterner()
	decl := in.RegisterNominal("Box", false)
	const workers = 8
	ids := make([]TypeID, workers)
	var wg sync.WaitGroup
	for w := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			var last TypeID
			for d := range uint32(32) {
				last = in.Nominal(decl, []TypeID{in.Param(d, 0, false)})
			}
			ids[w] = last
		}()
	}
	wg.Wait()
	for i := 1; i < workers; i++ {
		if ids[i] != ids[0] {
			t.Fatalf("worker %d got %d, want %d", i, ids[i], ids[0])
		}
	}
}
