package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"

	"gsubst/internal/check"
)

type palette struct {
	pass, fail, skip, info *color.Color
	header, dim            *color.Color
	sevError, sevWarning   *color.Color
}

func newPalette(enabled bool) palette {
	p := palette{
		pass:       color.New(color.FgGreen, color.Bold),
		fail:       color.New(color.FgRed, color.Bold),
		skip:       color.New(color.FgYellow),
		info:       color.New(color.FgCyan),
		header:     color.New(color.Bold),
		dim:        color.New(color.Faint),
		sevError:   color.New(color.FgRed),
		sevWarning: color.New(color.FgYellow),
	}
	for _, c := range []*color.Color{p.pass, p.fail, p.skip, p.info, p.header, p.dim, p.sevError, p.sevWarning} {
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return p
}

func (p palette) status(s check.Status) *color.Color {
	switch s {
	case check.StatusPass:
		return p.pass
	case check.StatusFail:
		return p.fail
	case check.StatusSkip:
		return p.skip
	default:
		return p.info
	}
}

func (p palette) severity(s string) *color.Color {
	switch s {
	case "ERROR":
		return p.sevError
	case "WARNING":
		return p.sevWarning
	default:
		return p.info
	}
}

// pad fills s with spaces up to width display cells.
func pad(s string, width int) string {
	if w := runewidth.StringWidth(s); w < width {
		return s + strings.Repeat(" ", width-w)
	}
	return s
}

func truncate(value string, width int) string {
	if width <= 0 {
		return value
	}
	if runewidth.StringWidth(value) <= width {
		return value
	}
	if width <= 3 {
		return runewidth.Truncate(value, width, "")
	}
	return runewidth.Truncate(value, width, "...")
}

func columnWidth[T any](rows []T, cell func(T) string) int {
	width := 0
	for _, r := range rows {
		width = max(width, runewidth.StringWidth(cell(r)))
	}
	return width
}

func writePretty(w io.Writer, doc Document, opts Options) error {
	out := doc.Outcome
	if out == nil {
		return nil
	}
	p := newPalette(opts.Color)
	var b strings.Builder

	b.WriteString(p.header.Sprint(out.File))
	if out.Module != "" {
		b.WriteString(" " + p.dim.Sprint("module "+out.Module))
	}
	b.WriteString(" " + p.dim.Sprint("session "+out.Session))
	b.WriteByte('\n')

	if opts.ShowMaps && len(out.Maps) > 0 {
		b.WriteString(p.header.Sprint("maps") + "\n")
		nameW := columnWidth(out.Maps, func(m check.MapSummary) string { return m.Name })
		kindW := columnWidth(out.Maps, func(m check.MapSummary) string { return m.Kind })
		for _, m := range out.Maps {
			value := m.Value
			if m.Fault != "" {
				value = p.fail.Sprint("fault: " + m.Fault)
			} else {
				value = truncate(value, opts.Width)
			}
			fmt.Fprintf(&b, "  %s  %s  %s\n", pad(m.Name, nameW), p.dim.Sprint(pad(m.Kind, kindW)), value)
		}
	}

	skipped := 0
	if len(out.Results) > 0 {
		b.WriteString(p.header.Sprint("queries") + "\n")
		nameW := columnWidth(out.Results, func(r check.Result) string { return r.Query })
		mapW := columnWidth(out.Results, func(r check.Result) string { return r.Map })
		for _, r := range out.Results {
			if r.Status == check.StatusSkip {
				skipped++
			}
			status := p.status(r.Status).Sprint(pad(strings.ToUpper(string(r.Status)), 4))
			line := truncate(r.Got, opts.Width)
			if r.Status == check.StatusFail {
				line += p.dim.Sprint("  want " + r.Expect)
			}
			fmt.Fprintf(&b, "  %s %s  %s  %s\n", status, pad(r.Query, nameW), p.dim.Sprint(pad(r.Map, mapW)), line)
		}
	}

	if len(out.Diagnostics) > 0 {
		b.WriteString(p.header.Sprint("diagnostics") + "\n")
		for _, d := range out.Diagnostics {
			fmt.Fprintf(&b, "  %s %s %s: %s\n", p.severity(d.Severity).Sprint(d.Severity), d.Code, d.Entry, d.Message)
			if !opts.ShowNotes {
				continue
			}
			for _, n := range d.Notes {
				b.WriteString("    " + p.dim.Sprint("note: "+n) + "\n")
			}
		}
	}

	fmt.Fprintf(&b, "%s, %s, %d skipped\n",
		p.pass.Sprintf("%d passed", out.Passed),
		p.fail.Sprintf("%d failed", out.Failed),
		skipped)
	if doc.Timings != nil && len(doc.Timings.Phases) > 0 {
		for _, ph := range doc.Timings.Phases {
			fmt.Fprintf(&b, "  %s %7.2f ms\n", pad(ph.Name, 12), ph.DurationMS)
		}
		fmt.Fprintf(&b, "  %s %7.2f ms\n", pad("total", 12), doc.Timings.TotalMS)
	}
	_, err := io.WriteString(w, b.String())
	return err
}
