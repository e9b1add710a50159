package subst

import (
	"errors"
	"slices"
	"testing"

	"golang.org/x/sync/errgroup"

	"gsubst/internal/generics"
	"gsubst/internal/types"
)

func TestGetRoundTrip(t *testing.T) {
	w := newWorld(t, Options{})
	sig := w.sig([]types.TypeID{w.t0, w.t1}, generics.Conforms(w.t0, w.hashable))
	repl := []types.TypeID{w.intTy, w.stringTy}
	confs := []ConformanceRef{w.ctx.Table().Lookup(w.intTy, w.hashable)}

	m := w.ctx.Get(sig, repl, confs)
	if !slices.Equal(m.ReplacementTypes(), repl) {
		t.Fatalf("replacements: got=%v want=%v", m.ReplacementTypes(), repl)
	}
	if !slices.Equal(m.Conformances(), confs) {
		t.Fatalf("conformances differ")
	}
	if m.Signature() != sig || m.Empty() {
		t.Fatalf("signature not attached")
	}
	if got, want := m.String(), "[τ_0_0 := Int, τ_0_1 := String] where [Int: Hashable]"; got != want {
		t.Fatalf("label: got=%q want=%q", got, want)
	}
}

func TestGetInternsEqualInputs(t *testing.T) {
	w := newWorld(t, Options{})
	sig := w.sig([]types.TypeID{w.t0})
	a := w.ctx.Get(sig, []types.TypeID{w.intTy}, nil)
	b := w.ctx.Get(sig, []types.TypeID{w.intTy}, nil)
	c := w.ctx.Get(sig, []types.TypeID{w.stringTy}, nil)
	if a != b || a.Profile() != b.Profile() {
		t.Fatalf("equal inputs must intern to the same map")
	}
	if a == c || a.Profile() == c.Profile() {
		t.Fatalf("different inputs must not share storage")
	}
	stats := w.ctx.Pool().Stats()
	if stats.Hits < 1 || stats.Maps < 2 {
		t.Fatalf("unexpected pool stats: %+v", stats)
	}
}

func TestGetInternsConcurrently(t *testing.T) {
	w := newWorld(t, Options{})
	sig := w.sig([]types.TypeID{w.t0}, generics.Conforms(w.t0, w.equatable))
	results := make([]Map, 32)
	var g errgroup.Group
	for i := range results {
		g.Go(func() error {
			results[i] = w.ctx.GetWithTypes(sig, []types.TypeID{w.arrayOf(w.intTy)}, GlobalLookup(w.ctx))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatal(err)
	}
	for _, m := range results[1:] {
		if m != results[0] {
			t.Fatalf("concurrent gets produced distinct maps")
		}
	}
}

func TestEmptyMap(t *testing.T) {
	w := newWorld(t, Options{})
	var m Map
	if !m.Empty() || m.Signature() != nil || len(m.ReplacementTypes()) != 0 {
		t.Fatalf("zero map must be empty")
	}
	if m.HasAnySubstitutableParams() || !m.IsIdentity() || !m.IsCanonical() {
		t.Fatalf("empty map predicates")
	}
	if !m.LookupConformance(w.t0, w.equatable).IsInvalid() {
		t.Fatalf("empty map has no evidence")
	}
	if got := w.ctx.Get(nil, nil, nil); !got.Empty() {
		t.Fatalf("nil signature must give the empty map")
	}
	if got := m.Subst(NewInFlight(w.ctx, Funcs{}, 0)); !got.Empty() {
		t.Fatalf("subst of empty map must be empty")
	}
}

func TestFaults(t *testing.T) {
	w := newWorld(t, Options{})
	each := w.in.Param(0, 0, true)
	packSig := w.sig([]types.TypeID{each})

	fault := mustFault(t, func() { w.ctx.Get(packSig, []types.TypeID{w.intTy}, nil) })
	if fault.Kind != FaultPackMismatch {
		t.Fatalf("kind: got=%s want=%s", fault.Kind, FaultPackMismatch)
	}

	scalarSig := w.sig([]types.TypeID{w.t0})
	if _, err := w.ctx.TryGet(scalarSig, []types.TypeID{w.in.Pack([]types.TypeID{w.intTy})}, nil); !errors.Is(err, ErrFault) {
		t.Fatalf("pack replacement of scalar parameter: got %v", err)
	}
	if _, err := w.ctx.TryGet(scalarSig, nil, nil); !errors.Is(err, ErrFault) {
		t.Fatalf("missing replacement: got %v", err)
	}
	eqSig := w.sig([]types.TypeID{w.t0}, generics.Conforms(w.t0, w.equatable))
	_, err := w.ctx.TryGet(eqSig, []types.TypeID{w.intTy}, nil)
	var fe *FaultError
	if !errors.As(err, &fe) || fe.Kind != FaultConformanceCount {
		t.Fatalf("conformance count: got %v", err)
	}
	if _, err := w.ctx.TryGet(packSig, []types.TypeID{w.in.Builtins().Error}, nil); err != nil {
		t.Fatalf("error placeholders are exempt from the pack check: %v", err)
	}
}

func TestIdentityLaw(t *testing.T) {
	w := newWorld(t, Options{})
	sig := w.sig([]types.TypeID{w.t0})
	if !w.ctx.Get(sig, []types.TypeID{w.t0}, nil).IsIdentity() {
		t.Fatalf("<T> with T := T must be the identity")
	}
	if w.ctx.Get(sig, []types.TypeID{w.intTy}, nil).IsIdentity() {
		t.Fatalf("<T> with T := Int must not be the identity")
	}

	each := w.in.Param(0, 0, true)
	packSig := w.sig([]types.TypeID{each})
	if !w.ctx.Get(packSig, []types.TypeID{w.in.SingletonPackExpansion(each)}, nil).IsIdentity() {
		t.Fatalf("pack parameter forwarded to itself must be the identity")
	}

	redundant := w.sig([]types.TypeID{w.t0, w.t1}, generics.SameType(w.t1, w.intTy))
	if !w.ctx.Get(redundant, []types.TypeID{w.t0, w.intTy}, nil).IsIdentity() {
		t.Fatalf("redundant parameters must be skipped")
	}

	eqSig := w.sig([]types.TypeID{w.t0}, generics.Conforms(w.t0, w.equatable))
	concrete := w.ctx.Get(eqSig, []types.TypeID{w.t0}, []ConformanceRef{w.ctx.Table().Lookup(w.intTy, w.equatable)})
	if concrete.IsIdentity() {
		t.Fatalf("concrete evidence is never the identity")
	}
	if !w.ctx.IdentityMap(eqSig).IsIdentity() {
		t.Fatalf("IdentityMap must be the identity")
	}
}

func TestCanonicalIsIdempotent(t *testing.T) {
	w := newWorld(t, Options{})
	alias := w.in.Alias("Count", w.intTy)
	sig := w.sig([]types.TypeID{w.t0}, generics.Conforms(w.t0, w.equatable))
	m := w.ctx.GetWithTypes(sig, []types.TypeID{w.arrayOf(alias)}, AbstractLookup)
	if m.IsCanonical() {
		t.Fatalf("map with alias must not be canonical")
	}
	c1 := m.Canonical(true)
	if !c1.IsCanonical() {
		t.Fatalf("canonical map must be canonical")
	}
	if c1.Canonical(true) != c1 || m.Canonical(false) != c1 {
		t.Fatalf("canonicalization must be idempotent")
	}
	if got := w.label(c1.ReplacementTypes()[0]); got != "Array<Int>" {
		t.Fatalf("canonical replacement: %s", got)
	}
}

func TestCanonicalWithConformanceOnAlias(t *testing.T) {
	w := newWorld(t, Options{})
	alias := w.in.Alias("MyInt", w.intTy)
	sig := w.sig([]types.TypeID{w.t0}, generics.Conforms(w.t0, w.equatable))
	conf := ForConcrete(w.ctx.NewNormal(alias, w.equatable, nil))
	m := w.ctx.Get(sig, []types.TypeID{alias}, []ConformanceRef{conf})

	c := m.Canonical(true)
	if !c.IsCanonical() {
		t.Fatalf("canonical form must be canonical: %s", c)
	}
	if c.Canonical(true) != c {
		t.Fatalf("canonicalization must be idempotent")
	}
	if got := w.label(c.ReplacementTypes()[0]); got != "Int" {
		t.Fatalf("canonical replacement: %s", got)
	}
	if len(c.Verify()) != 0 {
		t.Fatalf("declared conformance must still verify: %v", c.Verify())
	}
}

func TestMapIntrospection(t *testing.T) {
	w := newWorld(t, Options{})
	inner := w.in.Param(1, 0, false)
	sig := w.sig([]types.TypeID{w.t0, inner}, generics.SameType(w.t0, w.intTy))
	m := w.ctx.Get(sig, []types.TypeID{w.intTy, w.in.FreshTypeVar()}, nil)

	if got := m.InnermostReplacementTypes(); len(got) != 1 || got[0] != m.ReplacementTypes()[1] {
		t.Fatalf("innermost replacements: %v", got)
	}
	if !m.RecursiveProperties().Has(types.HasTypeVariable) {
		t.Fatalf("recursive properties must include the type variable")
	}
	if !m.HasAnySubstitutableParams() {
		t.Fatalf("inner parameter is substitutable")
	}
	allConcrete := w.ctx.Get(w.sig([]types.TypeID{w.t0}, generics.SameType(w.t0, w.intTy)), []types.TypeID{w.intTy}, nil)
	if allConcrete.HasAnySubstitutableParams() {
		t.Fatalf("fully concrete signature has nothing to substitute")
	}
}
