package core

import (
	"fmt"

	"github.com/f1r3fly-io/rholang-language-server/internal/analysis"
	"github.com/f1r3fly-io/rholang-language-server/internal/position"
)

// Severity mirrors the protocol's diagnostic severities.
type Severity int

const (
	SeverityError       Severity = 1
	SeverityWarning     Severity = 2
	SeverityInformation Severity = 3
	SeverityHint        Severity = 4
)

// Diagnostic is one published problem.
type Diagnostic struct {
	Range    position.Range
	Severity Severity
	Message  string
	Source   string
}

// PublishFunc receives diagnostics asynchronously after open, change, save
// and each incremental re-index.
type PublishFunc func(uri string, version int32, diags []Diagnostic)

func (e *Engine) publishDiagnostics(uri string, version int32, diags []Diagnostic) {
	if e.publish == nil {
		return
	}
	e.publish(uri, version, diags)
}

// diagnosticsFor converts a build result's errors into diagnostics: parse
// errors at their token, duplicate bindings at the surviving definition.
func diagnosticsFor(result *analysis.Result) []Diagnostic {
	if result == nil {
		return nil
	}
	diags := make([]Diagnostic, 0, len(result.ParseErrors)+len(result.Conflicts))
	for _, pe := range result.ParseErrors {
		start := position.Position{Line: pe.Line, Column: pe.Column}
		end := start
		end.Column += maxInt(len(pe.Token), 1)
		diags = append(diags, Diagnostic{
			Range:    position.Range{Start: start, End: end},
			Severity: SeverityError,
			Message:  pe.Message,
			Source:   "rholang-parser",
		})
	}
	for _, dup := range result.Conflicts {
		rng := position.Range{}
		if result.Doc != nil {
			for _, info := range result.Doc.Symbols.All() {
				if info.Name == dup.Name {
					rng = position.Range{Start: info.Pos, End: info.Pos}
					break
				}
			}
		}
		diags = append(diags, Diagnostic{
			Range:    rng,
			Severity: SeverityWarning,
			Message:  fmt.Sprintf("duplicate binding %q; the first definition wins", dup.Name),
			Source:   "rholang-index",
		})
	}
	return diags
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// TextChange is one incremental edit: replace the half-open byte span
// described by Range with NewText. A nil-range change (HasRange false)
// replaces the whole document.
type TextChange struct {
	HasRange bool
	Range    position.Range
	NewText  string
}

// applyChange applies one edit to a rope. Range positions are resolved by
// line/column against the current text, matching the protocol's
// incremental sync semantics.
func applyChange(text string, change TextChange) (string, error) {
	if !change.HasRange {
		return change.NewText, nil
	}
	lines := position.NewLineIndex([]byte(text))
	start, ok := lines.ByteFor(change.Range.Start.Line, change.Range.Start.Column)
	if !ok {
		return "", fmt.Errorf("edit start %s outside document", change.Range.Start)
	}
	end, ok := lines.ByteFor(change.Range.End.Line, change.Range.End.Column)
	if !ok {
		return "", fmt.Errorf("edit end %s outside document", change.Range.End)
	}
	if end < start {
		return "", fmt.Errorf("inverted edit range %s", change.Range)
	}
	return text[:start] + change.NewText + text[end:], nil
}
