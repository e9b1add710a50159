package diag

import "testing"

func TestFormatShortDiagnostics(t *testing.T) {
	diags := []Diagnostic{
		NewError(VerWrongType, Location{File: "./testdata/world.toml", Entry: "maps.bad", Line: 12}, "first line\nsecond").
			WithNote(Location{File: "testdata/world.toml", Entry: "conformances[0]", Line: 4}, "declared here"),
		New(SevWarning, QryIdentity, Location{File: "testdata/world.toml", Entry: "queries[1]", Line: 20}, "another"),
	}
	expected := "note VER3002 testdata/world.toml:4 conformances[0] declared here\n" +
		"error VER3002 testdata/world.toml:12 maps.bad first line second\n" +
		"warning QRY4003 testdata/world.toml:20 queries[1] another"
	if got := FormatShortDiagnostics(diags, true); got != expected {
		t.Fatalf("unexpected short diagnostics:\nwant:\n%s\n\ngot:\n%s", expected, got)
	}
}

func TestBagLimitSortDedup(t *testing.T) {
	b := NewBag(3)
	loc := Location{File: "b.toml", Entry: "maps.m"}
	b.Add(NewError(FixParse, loc, "x"))
	b.Add(New(SevWarning, FixParse, Location{File: "a.toml"}, "y"))
	b.Add(NewError(FixParse, loc, "x again"))
	if b.Add(NewError(FixParse, loc, "over")) {
		t.Fatalf("bag must respect its limit")
	}
	b.Dedup()
	if b.Len() != 2 {
		t.Fatalf("dedup: got=%d want=2", b.Len())
	}
	b.Sort()
	if b.Items()[0].Primary.File != "a.toml" {
		t.Fatalf("sort by file: %v", b.Items())
	}
	if !b.HasErrors() || !b.HasAtLeast(SevWarning) {
		t.Fatalf("severity predicates")
	}
}

func TestDedupReporter(t *testing.T) {
	bag := NewBag(8)
	r := NewDedupReporter(&BagReporter{Bag: bag})
	loc := Location{File: "w.yaml", Entry: "queries[0]"}
	ReportError(r, QryTypeMismatch, loc, "got Int").Emit()
	ReportError(r, QryTypeMismatch, loc, "got Int").Emit()
	b := ReportWarning(r, QryTypeMismatch, loc, "got String").WithNote(loc, "expected")
	b.Emit()
	b.Emit()
	if bag.Len() != 2 {
		t.Fatalf("reported: got=%d want=2", bag.Len())
	}
	if got := bag.Items()[1].Notes; len(got) != 1 {
		t.Fatalf("notes: %v", got)
	}
}

func TestCodeIDs(t *testing.T) {
	tests := []struct {
		code Code
		want string
	}{
		{FixBadType, "FIX1005"},
		{SubPackMismatch, "SUB2003"},
		{VerNotSelfConformance, "VER3003"},
		{QryConfMismatch, "QRY4002"},
		{IOLoadFileError, "IO5001"},
		{UnknownCode, "E0000"},
	}
	for _, tt := range tests {
		if got := tt.code.ID(); got != tt.want {
			t.Fatalf("ID(%d): got=%s want=%s", tt.code, got, tt.want)
		}
	}
	if Code(9999).Title() != "Unknown error" {
		t.Fatalf("unknown title")
	}
}
