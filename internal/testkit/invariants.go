// Package testkit holds invariant checks shared by tests and fuzz harnesses.
package testkit

import (
	"fmt"

	"gsubst/internal/subst"
	"gsubst/internal/types"
)

// CheckMapInvariants runs the structural invariants every built map must
// satisfy:
// 1) one replacement per signature parameter
// 2) one conformance per conformance requirement
// 3) pack parameters are replaced by packs and only by packs
// 4) canonicalization yields a canonical map and is idempotent
func CheckMapInvariants(m subst.Map) error {
	if m.Empty() {
		if len(m.ReplacementTypes()) != 0 || len(m.Conformances()) != 0 {
			return fmt.Errorf("empty map carries data")
		}
		return nil
	}
	in := m.Context().Types()
	sig := m.Signature()

	// 1) replacements
	params := sig.Params()
	repl := m.ReplacementTypes()
	if len(repl) != len(params) {
		return fmt.Errorf("%d replacements for %d parameters", len(repl), len(params))
	}

	// 2) conformances
	if got, want := len(m.Conformances()), len(sig.ConformanceRequirements()); got != want {
		return fmt.Errorf("%d conformances for %d requirements", got, want)
	}

	// 3) pack-ness
	for i, p := range params {
		r := repl[i]
		if r == types.NoTypeID {
			return fmt.Errorf("no replacement for %s", types.Label(in, p))
		}
		if in.HasError(r) {
			continue
		}
		if in.IsParameterPack(p) != in.IsPack(r) {
			return fmt.Errorf("parameter %s replaced by %s", types.Label(in, p), types.Label(in, r))
		}
	}

	// 4) canonical form
	c := m.Canonical(true)
	if !c.IsCanonical() {
		return fmt.Errorf("canonical form %s is not canonical", c)
	}
	if again := c.Canonical(true); again.Profile() != c.Profile() {
		return fmt.Errorf("canonicalizing %s twice gave %s", c, again)
	}
	return nil
}
