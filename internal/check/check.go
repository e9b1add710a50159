// Package check evaluates a fixture world: it reconciles map construction
// faults with their expectations, optionally verifies every map and answers
// the queries in parallel.
package check

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strings"

	"golang.org/x/sync/errgroup"

	"gsubst/internal/diag"
	"gsubst/internal/fixture"
	"gsubst/internal/subst"
	"gsubst/internal/trace"
	"gsubst/internal/types"
)

// Options tune a run.
type Options struct {
	// Jobs bounds the number of queries answered at once; zero means
	// GOMAXPROCS.
	Jobs int
	// Verify runs Verify on every map that built.
	Verify   bool
	Reporter diag.Reporter
}

// Status classifies one query answer.
type Status string

const (
	StatusPass Status = "pass"
	StatusFail Status = "fail"
	// StatusInfo marks queries without an expectation.
	StatusInfo Status = "info"
	// StatusSkip marks queries on maps that failed to build.
	StatusSkip Status = "skip"
)

// Result is the answer to one query.
type Result struct {
	Query  string `json:"query" msgpack:"query"`
	Map    string `json:"map" msgpack:"map"`
	Kind   string `json:"kind" msgpack:"kind"`
	Got    string `json:"got" msgpack:"got"`
	Expect string `json:"expect,omitempty" msgpack:"expect,omitempty"`
	Status Status `json:"status" msgpack:"status"`
}

// MapSummary describes one map entry.
type MapSummary struct {
	Name      string `json:"name" msgpack:"name"`
	Kind      string `json:"kind" msgpack:"kind"`
	Value     string `json:"value,omitempty" msgpack:"value,omitempty"`
	Fault     string `json:"fault,omitempty" msgpack:"fault,omitempty"`
	Identity  bool   `json:"identity" msgpack:"identity"`
	Canonical bool   `json:"canonical" msgpack:"canonical"`
	Profile   uint64 `json:"profile" msgpack:"profile"`
}

// Outcome is everything a run produced.
type Outcome struct {
	Session string       `json:"session" msgpack:"session"`
	File    string       `json:"file" msgpack:"file"`
	Module  string       `json:"module,omitempty" msgpack:"module,omitempty"`
	Maps    []MapSummary `json:"maps" msgpack:"maps"`
	Results []Result     `json:"results" msgpack:"results"`
	Pool    PoolSummary  `json:"pool" msgpack:"pool"`
	Passed  int          `json:"passed" msgpack:"passed"`
	Failed  int          `json:"failed" msgpack:"failed"`

	Diagnostics []DiagRecord `json:"diagnostics,omitempty" msgpack:"diagnostics,omitempty"`
}

// DiagRecord is a diagnostic flattened for serialisation.
type DiagRecord struct {
	Severity string   `json:"severity" msgpack:"severity"`
	Code     string   `json:"code" msgpack:"code"`
	Entry    string   `json:"entry,omitempty" msgpack:"entry,omitempty"`
	Message  string   `json:"message" msgpack:"message"`
	Notes    []string `json:"notes,omitempty" msgpack:"notes,omitempty"`
}

// AddDiagnostics appends items to the outcome.
func (o *Outcome) AddDiagnostics(items []diag.Diagnostic) {
	for _, d := range items {
		rec := DiagRecord{
			Severity: d.Severity.String(),
			Code:     d.Code.ID(),
			Entry:    d.Primary.Entry,
			Message:  d.Message,
		}
		for _, n := range d.Notes {
			rec.Notes = append(rec.Notes, n.Msg)
		}
		o.Diagnostics = append(o.Diagnostics, rec)
	}
}

// PoolSummary mirrors subst.PoolStats for serialisation.
type PoolSummary struct {
	Maps   int    `json:"maps" msgpack:"maps"`
	Hits   uint64 `json:"hits" msgpack:"hits"`
	Misses uint64 `json:"misses" msgpack:"misses"`
}

// Run evaluates w. Problems become diagnostics on opts.Reporter; the error
// is reserved for cancellation. Spans go to the tracer carried by ctx, or to
// the world's session tracer when ctx has none.
func Run(ctx context.Context, w *fixture.World, opts Options) (*Outcome, error) {
	tracer := trace.FromContext(ctx)
	if !tracer.Enabled() {
		tracer = w.Ctx.Tracer()
	}
	span := trace.Begin(tracer, trace.ScopeSession, "check.run", 0).
		WithSession(w.Ctx.ID()).
		WithExtra("file", w.Path)
	defer span.End("")

	out := &Outcome{
		Session: w.Ctx.ID(),
		File:    w.Path,
		Module:  w.Module,
		Maps:    make([]MapSummary, len(w.Maps)),
		Results: make([]Result, len(w.Queries)),
	}
	for i, e := range w.Maps {
		out.Maps[i] = summarize(e)
		reconcileFault(e, opts.Reporter)
		if opts.Verify && e.Fault == nil {
			reportViolations(w, e, e.Map.Verify(), opts.Reporter)
		}
	}

	jobs := opts.Jobs
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}
	if len(w.Queries) > 0 {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(min(jobs, len(w.Queries)))
		for i, q := range w.Queries {
			g.Go(func() error {
				select {
				case <-gctx.Done():
					return gctx.Err()
				default:
				}
				// Each goroutine owns its slot.
				out.Results[i] = answer(w, q, tracer, span.ID(), opts.Reporter)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return out, err
		}
	}

	for _, r := range out.Results {
		switch r.Status {
		case StatusPass:
			out.Passed++
		case StatusFail:
			out.Failed++
		}
	}
	stats := w.Ctx.Pool().Stats()
	out.Pool = PoolSummary{Maps: stats.Maps, Hits: stats.Hits, Misses: stats.Misses}
	return out, nil
}

func summarize(e *fixture.MapEntry) MapSummary {
	s := MapSummary{Name: e.Name, Kind: string(e.Kind)}
	if e.Fault != nil {
		s.Fault = e.Fault.Kind.String()
		return s
	}
	s.Value = e.Map.String()
	s.Identity = e.Map.IsIdentity()
	s.Canonical = e.Map.IsCanonical()
	s.Profile = e.Map.Profile()
	return s
}

func faultCode(kind subst.FaultKind) diag.Code {
	switch kind {
	case subst.FaultReplacementCount:
		return diag.SubReplacementCount
	case subst.FaultConformanceCount:
		return diag.SubConformanceCount
	case subst.FaultPackMismatch:
		return diag.SubPackMismatch
	default:
		return diag.SubInfo
	}
}

// reconcileFault compares what happened while building e with what the
// fixture expected.
func reconcileFault(e *fixture.MapEntry, r diag.Reporter) {
	switch {
	case e.Fault != nil && e.ExpectFault == "":
		diag.ReportError(r, faultCode(e.Fault.Kind), e.Loc, e.Fault.Detail).Emit()
	case e.Fault != nil && e.ExpectFault != e.Fault.Kind.String():
		diag.ReportError(r, diag.QryUnexpectedFault, e.Loc,
			fmt.Sprintf("expected %q fault, got %q", e.ExpectFault, e.Fault.Kind)).
			WithNote(e.Loc, e.Fault.Detail).
			Emit()
	case e.Fault == nil && e.ExpectFault != "":
		diag.ReportError(r, diag.QryMissingFault, e.Loc,
			fmt.Sprintf("expected %q fault, map built as %s", e.ExpectFault, e.Map)).Emit()
	}
}

func violationCode(kind subst.ViolationKind) diag.Code {
	switch kind {
	case subst.ViolationNotConcrete:
		return diag.VerNotConcrete
	case subst.ViolationWrongType:
		return diag.VerWrongType
	case subst.ViolationNotSelfConformance:
		return diag.VerNotSelfConformance
	default:
		return diag.VerInfo
	}
}

func reportViolations(w *fixture.World, e *fixture.MapEntry, violations []subst.Violation, r diag.Reporter) {
	for _, v := range violations {
		diag.ReportError(r, violationCode(v.Kind), e.Loc, v.Message).
			WithNote(e.Loc, "requirement "+v.Requirement.Label(w.Types)).
			Emit()
	}
}

// answer evaluates q. Fault panics raised while substituting become the
// answer "fault: <kind>" so fixtures can expect them.
func answer(w *fixture.World, q *fixture.Query, tracer trace.Tracer, parent uint64, r diag.Reporter) (res Result) {
	res = Result{Query: q.Name, Map: q.Map.Name, Kind: string(q.Kind), Expect: q.Expect}
	if q.Map.Fault != nil {
		res.Status = StatusSkip
		res.Got = "fault: " + q.Map.Fault.Kind.String()
		return res
	}
	span := trace.Begin(tracer, trace.ScopeQuery, "check.query", parent).
		WithSession(w.Ctx.ID()).
		WithExtra("query", q.Name)
	defer func() { span.End(res.Got) }()

	got, err := evaluate(w, q)
	if err != nil {
		var fault *subst.FaultError
		if !errors.As(err, &fault) {
			panic(err)
		}
		got = "fault: " + fault.Kind.String()
		if !q.HasExpect || q.Expect != got {
			diag.ReportError(r, diag.QryUnexpectedFault, q.Loc, fault.Detail).Emit()
		}
	}
	res.Got = got
	switch {
	case !q.HasExpect:
		res.Status = StatusInfo
	case got == q.Expect:
		res.Status = StatusPass
	default:
		res.Status = StatusFail
		if err == nil {
			diag.ReportError(r, mismatchCode(q.Kind), q.Loc,
				fmt.Sprintf("%s: got %q, want %q", q.Kind, got, q.Expect)).Emit()
		}
	}
	return res
}

func mismatchCode(kind fixture.QueryKind) diag.Code {
	switch kind {
	case fixture.QuerySubst, fixture.QueryReplacement:
		return diag.QryTypeMismatch
	case fixture.QueryLookup:
		return diag.QryConfMismatch
	case fixture.QueryIdentity:
		return diag.QryIdentity
	default:
		return diag.QryValueMismatch
	}
}

func evaluate(w *fixture.World, q *fixture.Query) (got string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			e, ok := rec.(error)
			if !ok {
				panic(rec)
			}
			err = e
		}
	}()
	m := q.Map.Map
	in := w.Types
	switch q.Kind {
	case fixture.QuerySubst:
		return types.Label(in, m.SubstType(q.Type)), nil
	case fixture.QueryReplacement:
		return types.Label(in, m.LookupSubstitution(q.Type)), nil
	case fixture.QueryLookup:
		return m.LookupConformance(q.Type, q.Proto).Label(in), nil
	case fixture.QueryIdentity:
		return fmt.Sprint(m.IsIdentity()), nil
	case fixture.QueryCanonical:
		return fmt.Sprint(m.IsCanonical()), nil
	case fixture.QueryVerify:
		violations := m.Verify()
		if len(violations) == 0 {
			return "ok", nil
		}
		kinds := make([]string, len(violations))
		for i, v := range violations {
			kinds[i] = v.Kind.String()
		}
		return strings.Join(kinds, ", "), nil
	case fixture.QueryString:
		return m.String(), nil
	default:
		return "", fmt.Errorf("unknown query kind %q", q.Kind)
	}
}
