package generics

import (
	"testing"

	"gsubst/internal/types"
)

func TestConformancePathThroughInheritance(t *testing.T) {
	in, p := stdlib(t)
	t0 := in.Param(0, 0, false)
	sig := MustNew(in, []types.TypeID{t0}, []Requirement{Conforms(t0, p.collection)})

	iter := in.Member(t0, p.sequence, 1)
	path, ok := sig.ConformancePath(iter, p.iterator)
	if !ok {
		t.Fatalf("expected τ_0_0.Iterator: IteratorProtocol to be derivable")
	}
	self := in.SelfParam()
	want := Path{
		{Subject: t0, Proto: p.collection},
		{Subject: self, Proto: p.sequence},
		{Subject: in.Member(self, p.sequence, 1), Proto: p.iterator},
	}
	if len(path) != len(want) {
		t.Fatalf("path length: got=%d want=%d", len(path), len(want))
	}
	for i := range want {
		if path[i] != want[i] {
			t.Fatalf("step %d: got=%+v want=%+v", i, path[i], want[i])
		}
	}

	again, _ := sig.ConformancePath(iter, p.iterator)
	if &again[0] != &path[0] {
		t.Fatalf("conformance paths should be memoized")
	}
}

func TestRequiresProtocol(t *testing.T) {
	in, p := stdlib(t)
	t0 := in.Param(0, 0, false)
	t1 := in.Param(0, 1, false)
	sig := MustNew(in, []types.TypeID{t0, t1}, []Requirement{
		Conforms(t0, p.sequence),
		Conforms(in.Member(t0, p.sequence, 0), p.equatable),
	})

	cases := []struct {
		subject types.TypeID
		proto   types.ProtocolID
		want    bool
	}{
		{t0, p.sequence, true},
		{t0, p.collection, false},
		{t1, p.sequence, false},
		{in.Member(t0, p.sequence, 0), p.equatable, true},
		{in.Member(t0, p.sequence, 1), p.iterator, true},
		{in.Member(in.Member(t0, p.sequence, 1), p.iterator, 0), p.equatable, false},
	}
	for _, tc := range cases {
		if got := sig.RequiresProtocol(tc.subject, tc.proto); got != tc.want {
			t.Errorf("RequiresProtocol(%s, %s) = %v, want %v",
				types.Label(in, tc.subject), in.ProtocolName(tc.proto), got, tc.want)
		}
	}
	if got := sig.ConformsTo(t0); len(got) != 1 || got[0] != p.sequence {
		t.Fatalf("ConformsTo(τ_0_0) = %v", got)
	}
}
