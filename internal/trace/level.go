package trace

import (
	"fmt"
	"strings"
)

// Level controls tracing verbosity.
type Level uint8

const (
	LevelOff   Level = iota // no tracing
	LevelError              // points only
	LevelBuild              // sessions and map construction
	LevelQuery              // plus lookups
	LevelDebug              // everything including path steps
)

func (l Level) String() string {
	switch l {
	case LevelOff:
		return "off"
	case LevelError:
		return "error"
	case LevelBuild:
		return "build"
	case LevelQuery:
		return "query"
	case LevelDebug:
		return "debug"
	default:
		return "unknown"
	}
}

// ParseLevel converts a flag value to a Level.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(s) {
	case "off", "":
		return LevelOff, nil
	case "error":
		return LevelError, nil
	case "build":
		return LevelBuild, nil
	case "query":
		return LevelQuery, nil
	case "debug":
		return LevelDebug, nil
	default:
		return LevelOff, fmt.Errorf("invalid trace level: %q (expected: off|error|build|query|debug)", s)
	}
}

// ShouldEmit reports whether spans of scope are recorded at this level.
func (l Level) ShouldEmit(scope Scope) bool {
	switch l {
	case LevelBuild:
		return scope <= ScopeBuild
	case LevelQuery:
		return scope <= ScopeQuery
	case LevelDebug:
		return true
	default:
		return false
	}
}
