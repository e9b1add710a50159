package diag

import (
	"fmt"
	"strconv"
)

// Location points into a fixture: the file, the entry path inside it
// (for example "maps.outer" or "queries[2]") and the line when known.
type Location struct {
	File  string
	Entry string
	Line  int
}

func (l Location) String() string {
	out := l.File
	if l.Line > 0 {
		out += ":" + strconv.Itoa(l.Line)
	}
	if l.Entry != "" {
		if out != "" {
			out += " "
		}
		out += l.Entry
	}
	if out == "" {
		return "<unknown>"
	}
	return out
}

type Note struct {
	Loc Location
	Msg string
}

type Diagnostic struct {
	Severity Severity
	Code     Code
	Message  string
	Primary  Location
	Notes    []Note
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s %s %s: %s", d.Severity, d.Code.ID(), d.Primary, d.Message)
}
