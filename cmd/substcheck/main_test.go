package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gsubst/internal/fixture"
	"gsubst/internal/report"
)

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	root := newRootCmd()
	var stdout, stderr bytes.Buffer
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(args)
	err := root.Execute()
	return stdout.String(), stderr.String(), err
}

func TestCheckPassingWorlds(t *testing.T) {
	out, _, err := execute(t, "check", "--color", "off", "--maps",
		filepath.Join("testdata", "stdlib.toml"),
		filepath.Join("testdata", "packs.yaml"))
	if err != nil {
		t.Fatalf("check: %v\n%s", err, out)
	}
	for _, want := range []string{
		"4 passed, 0 failed, 0 skipped",
		"3 passed, 0 failed, 0 skipped",
		"PASS iterator",
		"ints  get",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in:\n%s", want, out)
		}
	}
}

func TestCheckFailingWorld(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.toml")
	src := `
[[nominal]]
name = "Int"

[[map]]
name = "m"
signature = "<T>"
replacements = ["Int"]

[[query]]
name = "q"
map = "m"
kind = "subst"
type = "T"
expect = "T"
`
	if err := os.WriteFile(path, []byte(src), 0o600); err != nil {
		t.Fatal(err)
	}
	out, _, err := execute(t, "check", "--color", "off", path)
	if !errors.Is(err, errChecksFailed) {
		t.Fatalf("want errChecksFailed, got %v", err)
	}
	if !strings.Contains(out, "FAIL q") || !strings.Contains(out, "QRY4001") {
		t.Fatalf("failure must be reported:\n%s", out)
	}
}

func TestCheckMissingFile(t *testing.T) {
	out, _, err := execute(t, "check", "--color", "off", filepath.Join(t.TempDir(), "absent.toml"))
	if !errors.Is(err, errChecksFailed) {
		t.Fatalf("want errChecksFailed, got %v", err)
	}
	if !strings.Contains(out, "IO5001") {
		t.Fatalf("load error must be reported:\n%s", out)
	}
}

func TestCheckJSON(t *testing.T) {
	out, _, err := execute(t, "check", "--format", "json", "--timings", "-j", "2", filepath.Join("testdata", "stdlib.toml"))
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	var doc report.Document
	if err := json.Unmarshal([]byte(out), &doc); err != nil {
		t.Fatalf("decode: %v\n%s", err, out)
	}
	if doc.Outcome == nil || doc.Outcome.Passed != 4 || doc.Outcome.Module != "Main" {
		t.Fatalf("outcome: %+v", doc.Outcome)
	}
	if doc.Timings == nil || len(doc.Timings.Phases) != 3 {
		t.Fatalf("timings: %+v", doc.Timings)
	}
}

func TestCheckRejectsBadFlags(t *testing.T) {
	world := filepath.Join("testdata", "stdlib.toml")
	for _, args := range [][]string{
		{"check", "--format", "sarif", world},
		{"check", "--fail-on", "fatal", world},
		{"check", "--color", "sometimes", world},
		{"check", "--trace-level", "loud", world},
	} {
		if _, _, err := execute(t, args...); err == nil || errors.Is(err, errChecksFailed) {
			t.Errorf("%v: want a flag error, got %v", args, err)
		}
	}
}

func TestCheckTracesToRing(t *testing.T) {
	_, stderr, err := execute(t, "check", "--color", "off", "--trace-level", "query", "--trace-mode", "ring",
		filepath.Join("testdata", "stdlib.toml"))
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if !strings.Contains(stderr, "check.query") {
		t.Fatalf("ring dump must include query spans:\n%s", stderr)
	}
}

func TestDumpConvertsToTOML(t *testing.T) {
	out, _, err := execute(t, "dump", "--to", "toml", filepath.Join("testdata", "packs.yaml"))
	if err != nil {
		t.Fatalf("dump: %v", err)
	}
	f, err := fixture.Decode([]byte(out), fixture.FormatTOML)
	if err != nil {
		t.Fatalf("re-decode: %v\n%s", err, out)
	}
	if f.Module != "A" || len(f.Maps) != 4 || len(f.Queries) != 3 {
		t.Fatalf("converted world: %+v", f)
	}
}

func TestDumpMaps(t *testing.T) {
	out, _, err := execute(t, "dump", "--maps", filepath.Join("testdata", "stdlib.toml"))
	if err != nil {
		t.Fatalf("dump: %v", err)
	}
	if want := "ints: [τ_0_0 := Array<Int>] where [Array<Int>: Collection]\n"; out != want {
		t.Fatalf("dump: got=%q want=%q", out, want)
	}
}

func TestVersionJSON(t *testing.T) {
	out, _, err := execute(t, "version", "--format", "json", "--full")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	var payload versionPayload
	if err := json.Unmarshal([]byte(out), &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload.Tool != "substcheck" || payload.Version == "" || payload.GitCommit == "" {
		t.Fatalf("payload: %+v", payload)
	}
}
