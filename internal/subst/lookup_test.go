package subst

import (
	"testing"

	"gsubst/internal/generics"
	"gsubst/internal/types"
)

func TestLookupFastPathReturnsStoredEvidence(t *testing.T) {
	w := newWorld(t, Options{})
	sig := w.sig([]types.TypeID{w.t0}, generics.Conforms(w.t0, w.equatable))
	stored := w.ctx.Table().Lookup(w.intTy, w.equatable)
	m := w.ctx.Get(sig, []types.TypeID{w.intTy}, []ConformanceRef{stored})

	if got := m.LookupSubstitution(w.t0); got != w.intTy {
		t.Fatalf("LookupSubstitution: got=%s want=Int", w.label(got))
	}
	if got := m.LookupConformance(w.t0, w.equatable); got != stored {
		t.Fatalf("LookupConformance: got=%s want=%s", got.Label(w.in), stored.Label(w.in))
	}
	if got := m.LookupSubstitution(w.t1); got != types.NoTypeID {
		t.Fatalf("unknown parameter must have no replacement, got %s", w.label(got))
	}
	if got := m.LookupConformance(w.intTy, w.equatable); !got.IsInvalid() {
		t.Fatalf("concrete subject must give Invalid, got %s", got.Label(w.in))
	}
}

func TestLookupSubstitutionThroughArchetype(t *testing.T) {
	w := newWorld(t, Options{})
	sig := w.sig([]types.TypeID{w.t0}, generics.Conforms(w.t0, w.sequence))
	m := w.ctx.GetWithTypes(sig, []types.TypeID{w.arrayOf(w.intTy)}, GlobalLookup(w.ctx))
	env := sig.Environment()

	arch := env.ArchetypeFor(w.t0)
	if got := m.LookupSubstitution(arch); got != w.arrayOf(w.intTy) {
		t.Fatalf("root archetype: got=%s", w.label(got))
	}
	nested := env.ArchetypeFor(w.in.Member(w.t0, w.sequence, 0))
	if got := m.LookupSubstitution(nested); got != types.NoTypeID {
		t.Fatalf("nested archetype must have no direct replacement, got %s", w.label(got))
	}
	if got := m.LookupConformance(arch, w.sequence); !got.IsConcrete() {
		t.Fatalf("archetype lookup must map out of context, got %s", got.Label(w.in))
	}
}

func TestLookupFollowsConformancePath(t *testing.T) {
	w := newWorld(t, Options{})
	sig := w.sig([]types.TypeID{w.t0}, generics.Conforms(w.t0, w.collection))
	arrayInt := w.arrayOf(w.intTy)
	stored := w.ctx.Table().Lookup(arrayInt, w.collection)
	if !stored.IsConcrete() {
		t.Fatalf("Array<Int>: Collection must resolve, got %s", stored.Label(w.in))
	}
	m := w.ctx.Get(sig, []types.TypeID{arrayInt}, []ConformanceRef{stored})

	seq := m.LookupConformance(w.t0, w.sequence)
	if got := seq.Label(w.in); got != "Array<Int>: Sequence" {
		t.Fatalf("inherited conformance: got=%q", got)
	}

	iterator := w.in.Member(w.t0, w.sequence, 1)
	ref := m.LookupConformance(iterator, w.iterator)
	if got := ref.Label(w.in); got != "ArrayIterator<Int>: IteratorProtocol" {
		t.Fatalf("associated conformance: got=%q", got)
	}
	if ref.Concrete().Root() != mustNormal(t, w, w.arrayIter, w.iterator) {
		t.Fatalf("specialization must be rooted at the declared conformance")
	}

	if got := m.SubstType(w.in.Member(w.t0, w.sequence, 0)); got != w.intTy {
		t.Fatalf("T.Element: got=%s want=Int", w.label(got))
	}
	if got := m.SubstType(w.in.Member(iterator, w.iterator, 0)); got != w.intTy {
		t.Fatalf("T.Iterator.Element: got=%s want=Int", w.label(got))
	}
}

func TestLookupThroughRefinedProtocol(t *testing.T) {
	w := newWorld(t, Options{})
	sig := w.sig([]types.TypeID{w.t0}, generics.Conforms(w.t0, w.hashable))
	m := w.ctx.Get(sig, []types.TypeID{w.intTy}, []ConformanceRef{w.ctx.Table().Lookup(w.intTy, w.hashable)})
	got := m.LookupConformance(w.t0, w.equatable)
	if got != w.ctx.Table().Lookup(w.intTy, w.equatable) {
		t.Fatalf("Hashable implies Equatable: got %s", got.Label(w.in))
	}
}

func TestLookupPropagatesInvalid(t *testing.T) {
	w := newWorld(t, Options{})
	broken := w.in.Nominal(w.in.RegisterNominal("Broken", false), nil)
	normal := w.ctx.NewNormal(broken, w.sequence, nil).
		SetTypeWitness(0, w.intTy).
		SetTypeWitness(1, w.intTy)
	w.register(t, normal)

	sig := w.sig([]types.TypeID{w.t0}, generics.Conforms(w.t0, w.sequence))
	m := w.ctx.Get(sig, []types.TypeID{broken}, []ConformanceRef{ForConcrete(normal)})
	got := m.LookupConformance(w.in.Member(w.t0, w.sequence, 1), w.iterator)
	if !got.IsInvalid() {
		t.Fatalf("Int is no IteratorProtocol; got %s", got.Label(w.in))
	}
}

func TestLookupExplicitAssociatedConformance(t *testing.T) {
	w := newWorld(t, Options{})
	custom := w.in.Nominal(w.in.RegisterNominal("Custom", false), nil)
	iterTy := w.in.Nominal(w.in.RegisterNominal("CustomIterator", false), nil)
	iterNormal := w.ctx.NewNormal(iterTy, w.iterator, nil).SetTypeWitness(0, w.stringTy)
	w.register(t, iterNormal)
	normal := w.ctx.NewNormal(custom, w.sequence, nil).
		SetTypeWitness(0, w.stringTy).
		SetTypeWitness(1, iterTy).
		SetAssociatedConformance(w.in.Member(w.in.SelfParam(), w.sequence, 1), w.iterator, ForConcrete(iterNormal))
	w.register(t, normal)
	if !normal.HasComputedAssociatedConformances() {
		t.Fatalf("every requirement was set explicitly")
	}

	sig := w.sig([]types.TypeID{w.t0}, generics.Conforms(w.t0, w.sequence))
	m := w.ctx.Get(sig, []types.TypeID{custom}, []ConformanceRef{ForConcrete(normal)})
	if got := m.LookupConformance(w.in.Member(w.t0, w.sequence, 1), w.iterator); got.Concrete() != Concrete(iterNormal) {
		t.Fatalf("explicit associated conformance: got %s", got.Label(w.in))
	}
}

func TestLookupSelfReferenceYieldsInvalid(t *testing.T) {
	w := newWorld(t, Options{})
	recursive := w.in.RegisterProtocol("Recursive", "Child")
	self := w.in.SelfParam()
	w.in.SetProtocolRequirements(recursive, []types.AssocRequirement{{Subject: w.in.Member(self, recursive, 0), Proto: recursive}})

	tree := w.in.Nominal(w.in.RegisterNominal("Tree", false), nil)
	sig := w.sig([]types.TypeID{w.t0}, generics.Conforms(w.t0, recursive))
	child := w.in.Member(w.t0, recursive, 0)

	var m Map
	calls := 0
	normal := w.ctx.NewNormal(tree, recursive, nil).
		SetTypeWitness(0, tree).
		SetResolver(func(rc *Resolution, _ *Normal, _ generics.PathStep) ConformanceRef {
			calls++
			return m.LookupConformanceIn(rc, child, recursive)
		})
	w.register(t, normal)
	m = w.ctx.Get(sig, []types.TypeID{tree}, []ConformanceRef{ForConcrete(normal)})

	if got := m.LookupConformance(child, recursive); !got.IsInvalid() {
		t.Fatalf("self-referential resolution must give Invalid, got %s", got.Label(w.in))
	}
	if got := m.LookupConformance(child, recursive); !got.IsInvalid() {
		t.Fatalf("second lookup: got %s", got.Label(w.in))
	}
	if calls != 1 {
		t.Fatalf("resolver calls: got=%d want=1", calls)
	}
}

func TestLookupAbstractStep(t *testing.T) {
	w := newWorld(t, Options{})
	animal := w.in.RegisterNominal("Animal", true)
	animalTy := w.in.Nominal(animal, nil)
	w.register(t, w.ctx.NewNormal(animalTy, w.equatable, nil))

	outer := w.sig([]types.TypeID{w.t0}, generics.Superclass(w.t0, animalTy))
	bounded := outer.Environment().ArchetypeFor(w.t0)
	plain := w.sig([]types.TypeID{w.t0}).Environment().ArchetypeFor(w.t0)

	sig := w.sig([]types.TypeID{w.t0}, generics.Conforms(w.t0, w.hashable))
	viaSuper := w.ctx.Get(sig, []types.TypeID{bounded}, []ConformanceRef{Abstract(w.hashable)})
	if got := viaSuper.LookupConformance(w.t0, w.equatable); got.Label(w.in) != "Animal: Equatable" {
		t.Fatalf("superclass-bound archetype: got %s", got.Label(w.in))
	}
	stays := w.ctx.Get(sig, []types.TypeID{plain}, []ConformanceRef{Abstract(w.hashable)})
	if got := stays.LookupConformance(w.t0, w.equatable); !got.IsAbstract() {
		t.Fatalf("unbounded archetype must stay abstract, got %s", got.Label(w.in))
	}
	param := w.ctx.IdentityMap(sig)
	if got := param.LookupConformance(w.t0, w.equatable); !got.IsAbstract() || got.Protocol() != w.equatable {
		t.Fatalf("identity map: got %s", got.Label(w.in))
	}
}

func TestLookupUnrequiredConformance(t *testing.T) {
	w := newWorld(t, Options{})
	sig := w.sig([]types.TypeID{w.t0})
	m := w.ctx.Get(sig, []types.TypeID{w.intTy}, nil)
	if got := m.LookupConformance(w.t0, w.hashable); got != w.ctx.Table().Lookup(w.intTy, w.hashable) {
		t.Fatalf("global fallback: got %s", got.Label(w.in))
	}
	missing := m.LookupConformance(w.t0, w.sequence)
	if !missing.IsMissing() || !missing.IsConcrete() {
		t.Fatalf("Int: Sequence must be the missing marker, got %s", missing.Label(w.in))
	}
	if got := w.ctx.IdentityMap(sig).LookupConformance(w.t0, w.sequence); !got.IsAbstract() {
		t.Fatalf("type parameter replacement defers to the oracle, got %s", got.Label(w.in))
	}
}

func TestLookupInvertibleProtocol(t *testing.T) {
	w := newWorld(t, Options{})
	sig := w.sig([]types.TypeID{w.t0}, generics.Conforms(w.t0, w.copyable))
	tuple := w.in.Tuple([]types.TypeID{w.intTy, w.stringTy})
	m := w.ctx.GetWithTypes(sig, []types.TypeID{tuple}, GlobalLookup(w.ctx))
	ref := m.LookupConformance(w.t0, w.copyable)
	if b, ok := ref.Concrete().(*Builtin); !ok || b.Missing() {
		t.Fatalf("tuple: Copyable must be builtin, got %s", ref.Label(w.in))
	}
}

func TestLookupPackElementWitness(t *testing.T) {
	w := newWorld(t, Options{})
	each := w.in.Param(0, 0, true)
	sig := w.sig([]types.TypeID{each}, generics.Conforms(each, w.sequence))
	pack := w.in.Pack([]types.TypeID{w.arrayOf(w.intTy), w.arrayOf(w.stringTy)})
	m := w.ctx.GetWithTypes(sig, []types.TypeID{pack}, GlobalLookup(w.ctx))

	ref := m.LookupConformance(each, w.sequence)
	if !ref.IsPack() || len(ref.Pack().Patterns()) != 2 {
		t.Fatalf("pack conformance: got %s", ref.Label(w.in))
	}
	elements := w.in.Tuple([]types.TypeID{w.in.Expansion(w.in.Member(each, w.sequence, 0), each)})
	if got := w.label(m.SubstType(elements)); got != "(Int, String)" {
		t.Fatalf("(repeat (each T).Element): got %s", got)
	}
}

func mustNormal(t *testing.T, w *world, decl types.NominalID, proto types.ProtocolID) *Normal {
	t.Helper()
	n, ok := w.ctx.Table().Normal(decl, proto)
	if !ok {
		t.Fatalf("no conformance of nominal %d to %s", decl, w.in.ProtocolName(proto))
	}
	return n
}
