package fuzztests

import (
	"testing"

	"gsubst/internal/diag"
	"gsubst/internal/fixture"
	"gsubst/internal/subst"
	"gsubst/internal/types"
)

const typeWorld = `
[[protocol]]
name = "Sequence"
assoc = ["Element"]

[[nominal]]
name = "Int"

[[nominal]]
name = "Array"
generic = "<T>"

[[conformance]]
type = "Array<T>"
protocol = "Sequence"
generic = "<T>"
witnesses = { Element = "T" }

[[map]]
name = "m"
signature = "<S, each T where S: Sequence>"
replacements = ["Array<Int>", "Pack{Int}"]
`

func FuzzTypeExpressions(f *testing.F) {
	for _, seed := range []string{
		"Int", "Array<Int>", "S.Element", "(Int, repeat each T)", "(Int) -> S",
		"Pack{Int, Int}", "any Sequence", "!", "Array<", ")", "",
	} {
		f.Add(seed)
	}
	file, err := fixture.Decode([]byte(typeWorld), fixture.FormatTOML)
	if err != nil {
		f.Fatalf("decode: %v", err)
	}
	bag := diag.NewBag(16)
	w := fixture.Build(file, "types.toml", subst.Options{}, &diag.BagReporter{Bag: bag})
	if bag.Len() > 0 {
		f.Fatalf("world:\n%s", diag.FormatShortDiagnostics(bag.Items(), false))
	}
	m := w.Map("m").Map

	f.Fuzz(func(t *testing.T, text string) {
		if len(text) > maxFuzzInput {
			text = text[:maxFuzzInput]
		}
		ty, err := w.ParseType(m.Signature(), text)
		if err != nil {
			return
		}
		if ty == types.NoTypeID {
			t.Fatalf("%q parsed without error to no type", text)
		}
		_ = types.Label(w.Types, ty)
		_ = m.SubstType(ty)
	})
}
