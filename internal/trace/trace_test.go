package trace

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestLevelFiltersScopes(t *testing.T) {
	cases := []struct {
		level Level
		scope Scope
		want  bool
	}{
		{LevelOff, ScopeSession, false},
		{LevelError, ScopeSession, false},
		{LevelBuild, ScopeBuild, true},
		{LevelBuild, ScopeQuery, false},
		{LevelQuery, ScopeQuery, true},
		{LevelQuery, ScopeStep, false},
		{LevelDebug, ScopeStep, true},
	}
	for _, tc := range cases {
		if got := tc.level.ShouldEmit(tc.scope); got != tc.want {
			t.Errorf("%s.ShouldEmit(%s) = %v, want %v", tc.level, tc.scope, got, tc.want)
		}
	}
}

func TestParseLevel(t *testing.T) {
	for _, s := range []string{"off", "error", "build", "query", "debug", "QUERY"} {
		if _, err := ParseLevel(s); err != nil {
			t.Errorf("ParseLevel(%q): %v", s, err)
		}
	}
	if _, err := ParseLevel("verbose"); err == nil {
		t.Fatal("expected error for unknown level")
	}
}

func TestRingKeepsLastEvents(t *testing.T) {
	r := NewRingTracer(3, LevelDebug)
	for _, name := range []string{"a", "b", "c", "d"} {
		Point(r, ScopeQuery, name, "")
	}
	got := r.Snapshot()
	if len(got) != 3 {
		t.Fatalf("snapshot has %d events, want 3", len(got))
	}
	if got[0].Name != "b" || got[2].Name != "d" {
		t.Fatalf("unexpected order: %s..%s", got[0].Name, got[2].Name)
	}
}

func TestSpanRespectsLevel(t *testing.T) {
	r := NewRingTracer(16, LevelBuild)
	q := Begin(r, ScopeQuery, "lookup", 0)
	if q.ID() != 0 {
		t.Fatal("query span should be inert at build level")
	}
	q.End("")
	b := Begin(r, ScopeBuild, "subst.get", 0)
	b.WithExtra("params", "2").End("ok")
	events := r.Snapshot()
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}
	if events[1].Kind != KindSpanEnd || events[1].Extra["params"] != "2" {
		t.Fatalf("unexpected end event: %+v", events[1])
	}
}

func TestStreamNDJSON(t *testing.T) {
	var buf bytes.Buffer
	tr := NewStreamTracer(&buf, LevelDebug, FormatNDJSON)
	Begin(tr, ScopeSession, "check", 0).WithSession("s1").End("done")
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2", len(lines))
	}
	var ev map[string]any
	if err := json.Unmarshal([]byte(lines[1]), &ev); err != nil {
		t.Fatal(err)
	}
	if ev["kind"] != "end" || ev["session"] != "s1" || ev["detail"] != "done" {
		t.Fatalf("unexpected event: %v", ev)
	}
}

func TestNewOffIsNop(t *testing.T) {
	tr, err := New(Config{Level: LevelOff})
	if err != nil {
		t.Fatal(err)
	}
	if tr.Enabled() {
		t.Fatal("off tracer should be disabled")
	}
}
