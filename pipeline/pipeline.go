// Package pipeline runs one file through the ordered formatting
// stages: read, parse, analyze, format, output. Each stage consumes
// the accumulated prior outputs and produces a typed result; the
// pipeline records every stage's outcome and composes them into a
// Result.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/dhamidi/styler/errs"
	"github.com/dhamidi/styler/java/parser"
	"github.com/dhamidi/styler/report"
	"github.com/dhamidi/styler/rules"
	"github.com/spf13/afero"
)

type StageStatus int

const (
	StageSuccess StageStatus = iota
	StageSkipped
	StageFailure
)

// StageResult is one stage's outcome. Exactly one of Err (failure) or
// Reason (skip) is meaningful for the non-success statuses.
type StageResult struct {
	Name     string
	Status   StageStatus
	Reason   string
	Err      error
	Duration time.Duration
}

// RecoveryStrategy selects the per-stage failure policy.
type RecoveryStrategy int

const (
	// FailFast aborts the remaining stages on the first failure.
	FailFast RecoveryStrategy = iota
	// Retry re-runs transient-looking failures; only I/O stages
	// retry, everything else fails fast.
	Retry
	// Skip marks the failed stage skipped and lets downstream stages
	// that tolerate a missing input continue.
	Skip
)

// Options configure a pipeline instance. A pipeline is stateless
// across files and may be reused.
type Options struct {
	FS             afero.Fs
	Engine         *rules.Engine
	Configs        []rules.RuleConfig
	Security       parser.SecurityLimits
	TypeResolution rules.TypeResolutionConfig
	Recovery       RecoveryStrategy
	RetryAttempts  uint64
	RetryInterval  time.Duration
	ValidationOnly bool
	Renderer       report.Renderer
}

type Pipeline struct {
	opts Options
}

func New(opts Options) *Pipeline {
	if opts.FS == nil {
		opts.FS = afero.NewOsFs()
	}
	if opts.Engine == nil {
		opts.Engine = rules.NewEngine(rules.DefaultRegistry, rules.WithIsolatedRules())
	}
	if opts.Security == (parser.SecurityLimits{}) {
		opts.Security = parser.DefaultSecurityLimits()
	}
	if opts.RetryAttempts == 0 {
		opts.RetryAttempts = 3
	}
	if opts.RetryInterval == 0 {
		opts.RetryInterval = 50 * time.Millisecond
	}
	if opts.Renderer == nil {
		opts.Renderer = report.NewJSONRenderer()
	}
	return &Pipeline{opts: opts}
}

// Result is the composed outcome for one file.
type Result struct {
	FilePath string
	Stages   []StageResult

	Source    []byte
	Parsed    *parser.Result
	Report    *report.ViolationReport
	NewSource string
	Changed   bool
	Rendered  []byte
}

// OverallSuccess is true iff no stage failed.
func (r *Result) OverallSuccess() bool {
	for _, s := range r.Stages {
		if s.Status == StageFailure {
			return false
		}
	}
	return true
}

// FirstError returns the first stage failure, or nil.
func (r *Result) FirstError() error {
	for _, s := range r.Stages {
		if s.Status == StageFailure {
			return s.Err
		}
	}
	return nil
}

// Run executes the stages in order for one file. deadline bounds the
// whole file; the zero time applies Security.Budget from the start of
// the parse stage, and leaves the file unbounded only when that budget
// is zero too. Cancelling ctx moves the
// rule deadline to now, so in-flight rules observe the interrupt at
// their next CheckDeadline poll.
func (p *Pipeline) Run(ctx context.Context, filePath string, deadline time.Time) *Result {
	result := &Result{FilePath: filePath}

	// Stage 1: read.
	source, stage := p.runRead(filePath)
	result.Stages = append(result.Stages, stage)
	if stage.Status == StageFailure && p.opts.Recovery != Skip {
		return result
	}
	if stage.Status != StageSuccess {
		return result
	}
	result.Source = source

	// Stage 2: parse.
	parsed, ruleCtx, stage := p.runParse(filePath, source, deadline)
	result.Stages = append(result.Stages, stage)
	result.Parsed = parsed
	if stage.Status == StageFailure {
		return result
	}

	if ctx != nil {
		stop := context.AfterFunc(ctx, func() {
			ruleCtx.SetDeadline(time.Now())
		})
		defer stop()
	}

	// Stage 3: analyze.
	rep, stage := p.runAnalyze(ruleCtx)
	result.Stages = append(result.Stages, stage)
	if stage.Status == StageFailure {
		return result
	}
	result.Report = rep

	// Stage 4: format, unless validation-only.
	if p.opts.ValidationOnly {
		result.Stages = append(result.Stages, StageResult{
			Name:   "format",
			Status: StageSkipped,
			Reason: "validation-only",
		})
		result.NewSource = string(source)
	} else {
		formatted, stage := p.runFormat(ruleCtx, rep)
		result.Stages = append(result.Stages, stage)
		if stage.Status == StageFailure {
			// A failed format never corrupts output: the original
			// text stands.
			result.NewSource = string(source)
			return result
		}
		result.NewSource = formatted.NewSource
		result.Changed = formatted.Changed
	}

	// Stage 5: output.
	rendered, stage := p.runOutput(rep)
	result.Stages = append(result.Stages, stage)
	result.Rendered = rendered
	return result
}

func (p *Pipeline) runRead(filePath string) ([]byte, StageResult) {
	start := time.Now()
	var source []byte

	read := func() error {
		data, err := afero.ReadFile(p.opts.FS, filePath)
		if err != nil {
			return errs.WrapFile(errs.KindIO, filePath, err)
		}
		source = data
		return nil
	}

	var err error
	if p.opts.Recovery == Retry {
		policy := backoff.WithMaxRetries(backoff.NewConstantBackOff(p.opts.RetryInterval), p.opts.RetryAttempts)
		err = backoff.Retry(read, policy)
	} else {
		err = read()
	}

	stage := StageResult{Name: "read", Duration: time.Since(start)}
	if err != nil {
		stage.Status = StageFailure
		stage.Err = err
		if p.opts.Recovery == Skip {
			stage.Status = StageSkipped
			stage.Reason = err.Error()
		}
	}
	return source, stage
}

func (p *Pipeline) runParse(filePath string, source []byte, deadline time.Time) (*parser.Result, *rules.Context, StageResult) {
	start := time.Now()
	stage := StageResult{Name: "parse"}

	opts := []parser.Option{
		parser.WithFile(filePath),
		parser.WithLimits(p.opts.Security),
	}
	if deadline.IsZero() && p.opts.Security.Budget > 0 {
		deadline = time.Now().Add(p.opts.Security.Budget)
	}
	if !deadline.IsZero() {
		opts = append(opts, parser.WithDeadline(deadline))
	}

	parsed := parser.Parse(source, opts...)
	stage.Duration = time.Since(start)

	if parsed.Fatal != nil {
		stage.Status = StageFailure
		switch parsed.Fatal {
		case parser.ErrDeadlineExceeded:
			stage.Err = errs.WrapFile(errs.KindTimeout, filePath, parsed.Fatal)
		case parser.ErrDepthExceeded, parser.ErrArenaFull:
			stage.Err = errs.WrapFile(errs.KindSecurity, filePath, parsed.Fatal)
		default:
			stage.Err = errs.WrapFile(errs.KindSecurity, filePath, parsed.Fatal)
		}
		return parsed, nil, stage
	}
	if len(parsed.Errors) > 0 || len(parsed.LexErrors) > 0 {
		stage.Status = StageFailure
		stage.Err = errs.WrapFile(errs.KindParse, filePath, fmt.Errorf("%s", describeParseFailure(parsed)))
		// The partial arena still travels with the result for
		// downstream diagnostics.
		return parsed, nil, stage
	}

	ctx := rules.NewContext(parsed, source, filePath, p.opts.Security, p.opts.TypeResolution)
	if !deadline.IsZero() {
		ctx.SetDeadline(deadline)
	}
	return parsed, ctx, stage
}

func describeParseFailure(parsed *parser.Result) string {
	if len(parsed.LexErrors) > 0 {
		e := parsed.LexErrors[0]
		return fmt.Sprintf("%s at offset %d", e.Error(), e.Offset)
	}
	return parsed.Errors[0].Error()
}

func (p *Pipeline) runAnalyze(ctx *rules.Context) (*report.ViolationReport, StageResult) {
	start := time.Now()
	stage := StageResult{Name: "analyze"}

	violations, err := p.opts.Engine.Analyze(ctx, p.opts.Configs)
	stage.Duration = time.Since(start)
	if err != nil {
		stage.Status = StageFailure
		stage.Err = err
		return nil, stage
	}
	return report.NewViolationReport(ctx.FilePath(), violations), stage
}

func (p *Pipeline) runFormat(ctx *rules.Context, rep *report.ViolationReport) (*rules.FormatResult, StageResult) {
	start := time.Now()
	stage := StageResult{Name: "format"}

	formatted, err := p.opts.Engine.Format(ctx, p.opts.Configs)
	stage.Duration = time.Since(start)
	if err != nil {
		stage.Status = StageFailure
		stage.Err = err
		return nil, stage
	}
	for id, ruleErr := range formatted.RuleErrors {
		rep.AddRuleFailure(id, ruleErr)
	}
	return formatted, stage
}

func (p *Pipeline) runOutput(rep *report.ViolationReport) ([]byte, StageResult) {
	start := time.Now()
	stage := StageResult{Name: "output"}

	rendered, err := p.opts.Renderer.Render(rep)
	stage.Duration = time.Since(start)
	if err != nil {
		stage.Status = StageFailure
		stage.Err = errs.Wrap(errs.KindInternal, err)
		return nil, stage
	}
	return rendered, stage
}
