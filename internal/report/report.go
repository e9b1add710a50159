// Package report renders check outcomes for people and for tools.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/vmihailenco/msgpack/v5"

	"gsubst/internal/check"
	"gsubst/internal/observ"
)

// Format selects the output encoding.
type Format uint8

const (
	FormatPretty Format = iota
	FormatJSON
	FormatMsgpack
)

func (f Format) String() string {
	switch f {
	case FormatPretty:
		return "pretty"
	case FormatJSON:
		return "json"
	case FormatMsgpack:
		return "msgpack"
	}
	return "unknown"
}

// ParseFormat accepts the names printed by Format.String.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "pretty", "":
		return FormatPretty, nil
	case "json":
		return FormatJSON, nil
	case "msgpack":
		return FormatMsgpack, nil
	}
	return FormatPretty, fmt.Errorf("unsupported format %q (must be pretty, json or msgpack)", s)
}

// Options configures rendering. Only FormatPretty reads Color, Width and
// ShowNotes.
type Options struct {
	Color bool
	// Width caps the value column; zero leaves it unbounded.
	Width     int
	ShowNotes bool
	// ShowMaps adds the map table to pretty output.
	ShowMaps bool
}

// Document is the machine-readable payload.
type Document struct {
	Outcome *check.Outcome `json:"outcome" msgpack:"outcome"`
	Timings *observ.Report `json:"timings,omitempty" msgpack:"timings,omitempty"`
}

// Write renders doc to w in the requested format.
func Write(w io.Writer, doc Document, format Format, opts Options) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(doc)
	case FormatMsgpack:
		return msgpack.NewEncoder(w).Encode(doc)
	default:
		return writePretty(w, doc, opts)
	}
}

// Decode reads a msgpack document written by Write.
func Decode(r io.Reader) (Document, error) {
	var doc Document
	err := msgpack.NewDecoder(r).Decode(&doc)
	return doc, err
}
