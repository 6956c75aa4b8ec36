// Package report aggregates violations for one file and renders them
// for machines (JSON) or humans (one line per violation, optionally
// colored).
package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/dhamidi/styler/rules"
	"github.com/heroku/color"
	"github.com/mattn/go-isatty"
)

// ViolationReport holds one file's analysis output. Violations stay in
// source-position order; rule failures from isolated formatting are
// carried alongside.
type ViolationReport struct {
	FilePath     string
	Violations   []rules.Violation
	RuleFailures map[string]string
}

func NewViolationReport(filePath string, violations []rules.Violation) *ViolationReport {
	sorted := make([]rules.Violation, len(violations))
	copy(sorted, violations)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Start < sorted[j].Start
	})
	return &ViolationReport{
		FilePath:     filePath,
		Violations:   sorted,
		RuleFailures: make(map[string]string),
	}
}

func (r *ViolationReport) AddRuleFailure(ruleID string, err error) {
	r.RuleFailures[ruleID] = err.Error()
}

// Counts tallies violations per rule.
func (r *ViolationReport) Counts() map[string]int {
	counts := make(map[string]int)
	for _, v := range r.Violations {
		counts[v.RuleID]++
	}
	return counts
}

// HighestSeverity returns the most severe level present, or false when
// the report is clean.
func (r *ViolationReport) HighestSeverity() (rules.Severity, bool) {
	if len(r.Violations) == 0 {
		return 0, false
	}
	highest := r.Violations[0].Severity
	for _, v := range r.Violations[1:] {
		if v.Severity > highest {
			highest = v.Severity
		}
	}
	return highest, true
}

// Renderer turns a report into output bytes.
type Renderer interface {
	Render(report *ViolationReport) ([]byte, error)
	MIMEType() string
}

// Format selection. Auto picks JSON when stdout is not a terminal or
// when the process appears to be driven by an agent.
const (
	FormatJSON  = "json"
	FormatHuman = "human"
	FormatAuto  = "auto"
)

// agentEnvVars are checked by Auto format selection: their presence
// means a machine, not a person, reads the output.
var agentEnvVars = []string{"STYLER_AGENT", "CLAUDECODE", "AGENT"}

// DetectRenderer resolves a format name to a renderer, applying the
// Auto policy against the real environment.
func DetectRenderer(format string) (Renderer, error) {
	switch format {
	case FormatJSON:
		return NewJSONRenderer(), nil
	case FormatHuman:
		return NewHumanRenderer(isatty.IsTerminal(os.Stdout.Fd())), nil
	case FormatAuto, "":
		for _, env := range agentEnvVars {
			if os.Getenv(env) != "" {
				return NewJSONRenderer(), nil
			}
		}
		if isatty.IsTerminal(os.Stdout.Fd()) {
			return NewHumanRenderer(true), nil
		}
		return NewJSONRenderer(), nil
	default:
		return nil, fmt.Errorf("unknown report format: %s", format)
	}
}

type jsonViolation struct {
	RuleID         string      `json:"rule_id"`
	Severity       string      `json:"severity"`
	Message        string      `json:"message"`
	Line           int         `json:"line"`
	Column         int         `json:"column"`
	Start          int32       `json:"start"`
	End            int32       `json:"end"`
	SuggestedFixes []rules.Fix `json:"suggested_fixes"`
}

type jsonReport struct {
	File         string            `json:"file"`
	Violations   []jsonViolation   `json:"violations"`
	Counts       map[string]int    `json:"counts"`
	RuleFailures map[string]string `json:"rule_failures,omitempty"`
}

type JSONRenderer struct{}

func NewJSONRenderer() *JSONRenderer { return &JSONRenderer{} }

func (r *JSONRenderer) MIMEType() string { return "application/json" }

func (r *JSONRenderer) Render(report *ViolationReport) ([]byte, error) {
	out := jsonReport{
		File:         report.FilePath,
		Violations:   make([]jsonViolation, 0, len(report.Violations)),
		Counts:       report.Counts(),
		RuleFailures: report.RuleFailures,
	}
	if len(out.RuleFailures) == 0 {
		out.RuleFailures = nil
	}
	for _, v := range report.Violations {
		fixes := v.SuggestedFixes
		if fixes == nil {
			fixes = []rules.Fix{}
		}
		out.Violations = append(out.Violations, jsonViolation{
			RuleID:         v.RuleID,
			Severity:       v.Severity.String(),
			Message:        v.Message,
			Line:           v.Line,
			Column:         v.Column,
			Start:          v.Start,
			End:            v.End,
			SuggestedFixes: fixes,
		})
	}
	return json.MarshalIndent(out, "", "  ")
}

// HumanRenderer prints file:line:column severity rule message, one
// violation per line, with ANSI colors when enabled.
type HumanRenderer struct {
	colored bool
}

func NewHumanRenderer(colored bool) *HumanRenderer {
	return &HumanRenderer{colored: colored}
}

func (r *HumanRenderer) MIMEType() string { return "text/plain" }

func (r *HumanRenderer) Render(report *ViolationReport) ([]byte, error) {
	var buf bytes.Buffer
	for _, v := range report.Violations {
		severity := v.Severity.String()
		if r.colored {
			severity = r.colorize(v.Severity, severity)
		}
		fmt.Fprintf(&buf, "%s:%d:%d %s %s %s\n",
			report.FilePath, v.Line, v.Column, severity, v.RuleID, v.Message)
	}
	keys := make([]string, 0, len(report.RuleFailures))
	for k := range report.RuleFailures {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, ruleID := range keys {
		fmt.Fprintf(&buf, "%s: rule %s failed: %s\n", report.FilePath, ruleID, report.RuleFailures[ruleID])
	}
	return buf.Bytes(), nil
}

func (r *HumanRenderer) colorize(severity rules.Severity, text string) string {
	switch severity {
	case rules.SeverityError:
		return color.New(color.FgRed).Sprint(text)
	case rules.SeverityWarning:
		return color.New(color.FgYellow).Sprint(text)
	default:
		return color.New(color.FgCyan).Sprint(text)
	}
}

