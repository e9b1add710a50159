// Package diag defines the diagnostic model shared by the fixture loader, the
// map checker and the CLI.
//
// # Data model
//
// Diagnostic is the central record:
//
//   - Severity: Info, Warning or Error.
//   - Code: compact numeric identifier with a stable string form (see codes.go).
//   - Message: short, human oriented text.
//   - Primary: the fixture Location the finding belongs to.
//   - Notes: optional secondary locations with extra context.
//
// # Emitting diagnostics
//
// Producers report through a Reporter. ReportBuilder chains notes before
// Emit; BagReporter collects into a bounded Bag, which supports sorting and
// deduplication. Rendering lives in internal/report.
package diag
