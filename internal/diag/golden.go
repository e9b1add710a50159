package diag

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
)

// FormatShortDiagnostics renders diagnostics one per line in a stable order,
// suitable for golden files and terse CLI output. Notes follow as "note"
// lines when includeNotes is set.
func FormatShortDiagnostics(diags []Diagnostic, includeNotes bool) string {
	if len(diags) == 0 {
		return ""
	}
	type line struct {
		sev, code, loc, msg string
		file                string
		row                 int
	}
	lines := make([]line, 0, len(diags))
	for _, d := range diags {
		loc := d.Primary
		loc.File = normalizePath(loc.File)
		lines = append(lines, line{
			sev: severityLabel(d.Severity), code: d.Code.ID(), loc: loc.String(),
			msg: sanitizeMessage(d.Message), file: loc.File, row: loc.Line,
		})
		if !includeNotes {
			continue
		}
		for _, n := range d.Notes {
			nloc := n.Loc
			nloc.File = normalizePath(nloc.File)
			lines = append(lines, line{
				sev: "note", code: d.Code.ID(), loc: nloc.String(),
				msg: sanitizeMessage(n.Msg), file: nloc.File, row: nloc.Line,
			})
		}
	}
	sort.SliceStable(lines, func(i, j int) bool {
		li, lj := lines[i], lines[j]
		if li.file != lj.file {
			return li.file < lj.file
		}
		if li.row != lj.row {
			return li.row < lj.row
		}
		return li.loc < lj.loc
	})

	var b strings.Builder
	for i, l := range lines {
		fmt.Fprintf(&b, "%s %s %s %s", l.sev, l.code, l.loc, l.msg)
		if i < len(lines)-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

func normalizePath(path string) string {
	p := filepath.ToSlash(path)
	for strings.HasPrefix(p, "./") {
		p = strings.TrimPrefix(p, "./")
	}
	return p
}

func severityLabel(sev Severity) string {
	switch sev {
	case SevError:
		return "error"
	case SevWarning:
		return "warning"
	default:
		return "info"
	}
}

func sanitizeMessage(msg string) string {
	msg = strings.ReplaceAll(msg, "\r\n", "\n")
	msg = strings.ReplaceAll(msg, "\r", "\n")
	msg = strings.ReplaceAll(msg, "\n", " ")
	return strings.TrimSpace(msg)
}
