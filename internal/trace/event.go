package trace

import "time"

// Kind represents the type of trace event.
type Kind uint8

const (
	KindSpanBegin Kind = iota + 1 // span start
	KindSpanEnd                   // span end
	KindPoint                     // instant event
)

func (k Kind) String() string {
	switch k {
	case KindSpanBegin:
		return "begin"
	case KindSpanEnd:
		return "end"
	case KindPoint:
		return "point"
	default:
		return "unknown"
	}
}

// Scope indicates the granularity of an event.
// Lower values are coarser.
type Scope uint8

const (
	ScopeSession Scope = iota + 1 // CLI command or fixture
	ScopeBuild                    // map construction
	ScopeQuery                    // substitution and conformance lookups
	ScopeStep                     // conformance-path steps
)

func (s Scope) String() string {
	switch s {
	case ScopeSession:
		return "session"
	case ScopeBuild:
		return "build"
	case ScopeQuery:
		return "query"
	case ScopeStep:
		return "step"
	default:
		return "unknown"
	}
}

// Event is a single trace record.
type Event struct {
	Time     time.Time
	Seq      uint64 // global, monotonic
	Kind     Kind
	Scope    Scope
	SpanID   uint64
	ParentID uint64 // 0 for roots
	Session  string // context session id, if any
	Name     string // e.g. "subst.get", "lookup.conformance"
	Detail   string
	Extra    map[string]string
}
