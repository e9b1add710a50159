
// Package fuzztests houses Go fuzz harnesses for the fixture front end:
// world decoding, world building and the type expression parser. Inputs
// must never panic or hang; malformed worlds only produce diagnostics.
//
// Does not: generate corpora, write files, run the CLI.
//
// Depends on: internal/fixture, internal/check, internal/diag, internal/subst.

package fuzztests
