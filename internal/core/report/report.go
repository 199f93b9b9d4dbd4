// Package report renders check results for humans and machines.
package report

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"

	"github.com/solatis/callwarden/internal/checker"
)

// Output formats accepted by Write.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// Record is the JSON Lines shape of one finding.
type Record struct {
	File     string   `json:"file"`
	Line     int      `json:"line"`
	Column   int      `json:"column"`
	Offender string   `json:"offender"`
	Caller   string   `json:"caller,omitempty"`
	Rule     int      `json:"rule"`
	Reason   string   `json:"reason,omitempty"`
	Excluded []string `json:"excludedCallers,omitempty"`
	RuleFile string   `json:"ruleFile,omitempty"`
	Message  string   `json:"message"`
	Hint     string   `json:"hint"`
}

// NewRecord converts a finding into its JSON Lines record.
func NewRecord(f checker.Finding) Record {
	v := f.Violation
	return Record{
		File:     f.Position.Filename,
		Line:     f.Position.Line,
		Column:   f.Position.Column,
		Offender: v.Offender,
		Caller:   v.CallerType,
		Rule:     v.RuleIndex,
		Reason:   v.Rule.Reason,
		Excluded: v.Rule.ExcludedCallers(),
		RuleFile: v.Source,
		Message:  v.Message(),
		Hint:     v.Hint(),
	}
}

// Write renders every finding of r to w in the given format.
// Text output is one "file:line:col: message" line per finding; JSON output
// is one Record object per line.
func Write(w io.Writer, format string, r *checker.Report) error {
	bw := bufio.NewWriter(w)

	switch format {
	case FormatText, "":
		for _, f := range r.Findings {
			if _, err := fmt.Fprintf(bw, "%s: %s\n", f.Position, f.Violation.Message()); err != nil {
				return err
			}
		}
	case FormatJSON:
		encoder := json.NewEncoder(bw)
		for _, f := range r.Findings {
			if err := encoder.Encode(NewRecord(f)); err != nil {
				return fmt.Errorf("failed to encode finding: %w", err)
			}
		}
	default:
		return fmt.Errorf("unknown output format %q", format)
	}

	return bw.Flush()
}

// Summary is the one-line totals printed after a text report.
func Summary(r *checker.Report) string {
	return fmt.Sprintf("%d unwanted method call(s) in %d package(s), %d call site(s) checked",
		len(r.Findings), r.Packages, r.CallSites)
}
