package subst

import (
	"errors"
	"testing"

	"gsubst/internal/generics"
	"gsubst/internal/types"
)

func TestTableRejectsDuplicates(t *testing.T) {
	w := newWorld(t, Options{})
	before := w.ctx.Table().Len()
	err := w.ctx.Table().Register(w.ctx.NewNormal(w.intTy, w.equatable, nil))
	if !errors.Is(err, ErrDuplicateConformance) {
		t.Fatalf("duplicate registration: got %v", err)
	}
	if w.ctx.Table().Len() != before {
		t.Fatalf("duplicate must not be stored")
	}
}

func TestTableLookupForms(t *testing.T) {
	w := newWorld(t, Options{})
	in := w.in
	errorProto := in.RegisterProtocol("Error")
	in.MarkSelfConforming(errorProto)
	table := w.ctx.Table()

	tests := []struct {
		name  string
		typ   types.TypeID
		proto types.ProtocolID
		want  string
	}{
		{"declared", w.intTy, w.equatable, "Int: Equatable"},
		{"specialized", w.arrayOf(w.stringTy), w.sequence, "Array<String>: Sequence"},
		{"declared generic", w.arrayOf(w.t0), w.sequence, "Array<τ_0_0>: Sequence"},
		{"type parameter", w.t0, w.equatable, "abstract Equatable"},
		{"self-conforming existential", in.Existential(errorProto), errorProto, "any Error: Error (self)"},
		{"existential", in.Existential(w.equatable), w.equatable, "invalid"},
		{"invertible tuple", in.Tuple(nil), w.copyable, "(): Copyable (builtin)"},
		{"invertible existential", in.Existential(w.equatable), w.copyable, "any Equatable: Copyable (builtin)"},
		{"no conformance", w.boolTy, w.equatable, "invalid"},
		{"error", in.Builtins().Error, w.equatable, "invalid"},
		{"pack", in.Pack([]types.TypeID{w.intTy, w.stringTy}), w.hashable, "pack Hashable {Int: Hashable, String: Hashable}"},
		{"pack with a hole", in.Pack([]types.TypeID{w.intTy, w.boolTy}), w.hashable, "invalid"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := table.Lookup(tt.typ, tt.proto).Label(in); got != tt.want {
				t.Fatalf("got=%q want=%q", got, tt.want)
			}
		})
	}
}

func TestTableConditionalConformance(t *testing.T) {
	w := newWorld(t, Options{})
	conditional := w.sig([]types.TypeID{w.t0}, generics.Conforms(w.t0, w.equatable))
	w.register(t, w.ctx.NewNormal(w.arrayOf(w.t0), w.equatable, conditional))
	table := w.ctx.Table()

	if got := table.Lookup(w.arrayOf(w.intTy), w.equatable); got.Label(w.in) != "Array<Int>: Equatable" {
		t.Fatalf("satisfied condition: got %s", got.Label(w.in))
	}
	if got := table.Lookup(w.arrayOf(w.boolTy), w.equatable); !got.IsInvalid() {
		t.Fatalf("unsatisfied condition: got %s", got.Label(w.in))
	}
	nested := table.Lookup(w.arrayOf(w.arrayOf(w.stringTy)), w.equatable)
	spec, ok := nested.Concrete().(*Specialized)
	if !ok {
		t.Fatalf("nested condition: got %s", nested.Label(w.in))
	}
	if inner := spec.Substitutions().Conformances()[0]; inner.Label(w.in) != "Array<String>: Equatable" {
		t.Fatalf("condition evidence: got %s", inner.Label(w.in))
	}
}

func TestTableArchetypeSuperclass(t *testing.T) {
	w := newWorld(t, Options{})
	animal := w.in.Nominal(w.in.RegisterNominal("Animal", true), nil)
	w.register(t, w.ctx.NewNormal(animal, w.hashable, nil))
	sig := w.sig([]types.TypeID{w.t0}, generics.Superclass(w.t0, animal), generics.Conforms(w.t0, w.equatable))
	arch := sig.Environment().ArchetypeFor(w.t0)

	if got := w.ctx.Table().Lookup(arch, w.equatable); !got.IsAbstract() {
		t.Fatalf("required protocol: got %s", got.Label(w.in))
	}
	if got := w.ctx.Table().Lookup(arch, w.hashable); got.Label(w.in) != "Animal: Hashable" {
		t.Fatalf("through superclass: got %s", got.Label(w.in))
	}
	if got := w.ctx.Table().Lookup(arch, w.copyable); !got.IsAbstract() {
		t.Fatalf("invertible: got %s", got.Label(w.in))
	}
}

func TestSpecializedWitnesses(t *testing.T) {
	w := newWorld(t, Options{})
	ref := w.ctx.Table().Lookup(w.arrayOf(w.stringTy), w.sequence)
	spec := ref.Concrete().(*Specialized)
	if got := w.label(spec.TypeWitness(NewResolution(), 0)); got != "String" {
		t.Fatalf("Element: got %s", got)
	}
	if got := w.label(ref.TypeWitness(NewResolution(), 1)); got != "ArrayIterator<String>" {
		t.Fatalf("Iterator: got %s", got)
	}
	again := w.ctx.Table().Lookup(w.arrayOf(w.stringTy), w.sequence)
	if again != ref {
		t.Fatalf("specializations must be uniqued")
	}
	if !spec.IsCanonical() || spec.Canonical() != Concrete(spec) {
		t.Fatalf("canonical specialization")
	}
}
