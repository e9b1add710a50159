package subst

import (
	"errors"
	"fmt"
)

// ErrFault is the sentinel wrapped by every FaultError.
var ErrFault = errors.New("substitution map fault")

// FaultKind classifies structural precondition violations.
type FaultKind uint8

const (
	FaultReplacementCount FaultKind = iota + 1
	FaultConformanceCount
	FaultPackMismatch
)

func (k FaultKind) String() string {
	switch k {
	case FaultReplacementCount:
		return "replacement count"
	case FaultConformanceCount:
		return "conformance count"
	case FaultPackMismatch:
		return "pack mismatch"
	default:
		return "unknown"
	}
}

// FaultError reports inputs that violate the size or pack-ness invariants of
// a substitution map. Get panics with it; TryGet returns it.
type FaultError struct {
	Kind   FaultKind
	Detail string
}

func (e *FaultError) Error() string {
	return fmt.Sprintf("%s: %s: %s", ErrFault, e.Kind, e.Detail)
}

func (e *FaultError) Unwrap() error { return ErrFault }

func faultf(kind FaultKind, format string, args ...any) *FaultError {
	return &FaultError{Kind: kind, Detail: fmt.Sprintf(format, args...)}
}
