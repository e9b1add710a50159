package report

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/mattn/go-runewidth"

	"gsubst/internal/check"
	"gsubst/internal/observ"
)

func sampleOutcome() *check.Outcome {
	return &check.Outcome{
		Session: "s-1",
		File:    "world.toml",
		Module:  "Main",
		Maps: []check.MapSummary{
			{Name: "ints", Kind: "get", Value: "[τ_0_0 := Int] where [Int: Equatable]", Canonical: true},
			{Name: "broken", Kind: "get", Fault: "pack mismatch"},
		},
		Results: []check.Result{
			{Query: "subst", Map: "ints", Kind: "subst", Got: "Int", Expect: "Int", Status: check.StatusPass},
			{Query: "wrong", Map: "ints", Kind: "subst", Got: "Int", Expect: "String", Status: check.StatusFail},
			{Query: "later", Map: "broken", Kind: "identity", Got: "fault: pack mismatch", Status: check.StatusSkip},
		},
		Passed: 1,
		Failed: 1,
		Diagnostics: []check.DiagRecord{
			{Severity: "ERROR", Code: "QRY4001", Entry: "query[wrong]", Message: "subst: got \"Int\", want \"String\"", Notes: []string{"see map ints"}},
		},
	}
}

func TestParseFormat(t *testing.T) {
	for _, f := range []Format{FormatPretty, FormatJSON, FormatMsgpack} {
		got, err := ParseFormat(strings.ToUpper(f.String()))
		if err != nil || got != f {
			t.Fatalf("ParseFormat(%s): got=%v err=%v", f, got, err)
		}
	}
	if _, err := ParseFormat("sarif"); err == nil {
		t.Fatalf("sarif must be rejected")
	}
}

func TestPrettyAlignsColumns(t *testing.T) {
	var buf bytes.Buffer
	err := Write(&buf, Document{Outcome: sampleOutcome()}, FormatPretty, Options{ShowMaps: true, ShowNotes: true})
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	got := buf.String()
	for _, want := range []string{
		"world.toml module Main session s-1\n",
		"  ints    get  [τ_0_0 := Int] where [Int: Equatable]\n",
		"  broken  get  fault: pack mismatch\n",
		"  PASS subst  ints    Int\n",
		"  FAIL wrong  ints    Int  want String\n",
		"  SKIP later  broken  fault: pack mismatch\n",
		"    note: see map ints\n",
		"1 passed, 1 failed, 1 skipped\n",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("missing %q in:\n%s", want, got)
		}
	}
	if strings.Contains(got, "\x1b[") {
		t.Errorf("colour must be off:\n%s", got)
	}
}

func TestPrettyTruncatesWideValues(t *testing.T) {
	var buf bytes.Buffer
	err := Write(&buf, Document{Outcome: sampleOutcome()}, FormatPretty, Options{ShowMaps: true, Width: 10})
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	if !strings.Contains(buf.String(), "[τ_0_0 ...") {
		t.Fatalf("value must be truncated to 10 cells:\n%s", buf.String())
	}
}

func TestTruncateFillsWidth(t *testing.T) {
	cases := []struct {
		value string
		width int
		want  string
	}{
		{"Array<Int>", 0, "Array<Int>"},
		{"Array<Int>", 10, "Array<Int>"},
		{"Array<Int>", 8, "Array..."},
		{"Array<Int>", 3, "Arr"},
		{"[τ_0_0 := Int]", 10, "[τ_0_0 ..."},
		{"型型型型", 7, "型型..."},
	}
	for _, tc := range cases {
		got := truncate(tc.value, tc.width)
		if got != tc.want {
			t.Errorf("truncate(%q, %d) = %q, want %q", tc.value, tc.width, got, tc.want)
		}
		if tc.width > 0 && runewidth.StringWidth(got) > tc.width {
			t.Errorf("truncate(%q, %d) is %d cells wide", tc.value, tc.width, runewidth.StringWidth(got))
		}
	}
}

func TestPrettyColours(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, Document{Outcome: sampleOutcome()}, FormatPretty, Options{Color: true}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if !strings.Contains(buf.String(), "\x1b[") {
		t.Fatalf("colour must be on:\n%q", buf.String())
	}
}

func TestJSONDocument(t *testing.T) {
	var buf bytes.Buffer
	timings := observ.Report{TotalMS: 1.5, Phases: []observ.PhaseReport{{Name: "load", DurationMS: 1.5}}}
	if err := Write(&buf, Document{Outcome: sampleOutcome(), Timings: &timings}, FormatJSON, Options{}); err != nil {
		t.Fatalf("write: %v", err)
	}
	var raw map[string]any
	if err := json.Unmarshal(buf.Bytes(), &raw); err != nil {
		t.Fatalf("decode: %v", err)
	}
	outcome, ok := raw["outcome"].(map[string]any)
	if !ok {
		t.Fatalf("outcome missing: %s", buf.String())
	}
	if outcome["session"] != "s-1" || outcome["failed"] != float64(1) {
		t.Fatalf("outcome fields: %v", outcome)
	}
	if _, ok := raw["timings"]; !ok {
		t.Fatalf("timings missing: %s", buf.String())
	}
}

func TestMsgpackDocument(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, Document{Outcome: sampleOutcome()}, FormatMsgpack, Options{}); err != nil {
		t.Fatalf("write: %v", err)
	}
	doc, err := Decode(&buf)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if doc.Outcome == nil || len(doc.Outcome.Results) != 3 {
		t.Fatalf("outcome: %+v", doc.Outcome)
	}
	if got := doc.Outcome.Results[1]; got.Status != check.StatusFail || got.Expect != "String" {
		t.Fatalf("second result: %+v", got)
	}
	if doc.Timings != nil {
		t.Fatalf("timings must stay absent")
	}
}
