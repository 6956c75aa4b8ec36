// Package batch fans per-file pipeline runs across goroutines under a
// concurrency cap and a memory-byte budget. Admission reserves each
// file's size against a shared pool before the task starts; sustained
// pressure throttles further admissions without ever starving the
// batch of forward progress.
package batch

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dhamidi/styler/pipeline"
	"github.com/dustin/go-humanize"
	"github.com/fatih/semgroup"
	"github.com/spf13/afero"
	"github.com/tliron/commonlog"
)

// ErrorStrategy decides how per-file failures affect submission of
// the remaining files. In-flight tasks always finish.
type ErrorStrategy int

const (
	// Continue collects all errors and processes every file.
	Continue ErrorStrategy = iota
	// FailFast stops submitting after the first failure.
	FailFast
	// AbortAfterThreshold stops submitting after the k-th failure.
	AbortAfterThreshold
)

const reservationPerTask = 5 << 20 // 5 MiB, sizing the default concurrency

type Options struct {
	// MaxConcurrency caps simultaneously running files. Zero derives
	// the default from the memory budget: max(1, budget / 5 MiB).
	MaxConcurrency int

	// MemoryBudget is the admission pool in bytes. Zero defaults to
	// 256 MiB.
	MemoryBudget int64

	// HighPressure is the pool usage fraction above which each
	// admission inserts ThrottlePause. Zero defaults to 0.8.
	HighPressure float64

	// ThrottlePause defaults to 100ms.
	ThrottlePause time.Duration

	Strategy       ErrorStrategy
	AbortThreshold int

	// FileBudget bounds each file's wall-clock time. Zero means the
	// pipeline's security budget applies.
	FileBudget time.Duration

	FS        afero.Fs
	Logger    commonlog.Logger
	Collector *ErrorCollector
}

// Result aggregates a batch run. SuccessCount+FailureCount == Total
// and len(Errors) == FailureCount always hold; files never submitted
// due to FailFast/AbortAfterThreshold count as failures with a
// canceled error.
type Result struct {
	Total        int
	SuccessCount int
	FailureCount int
	PerFile      map[string]*pipeline.Result
	Errors       map[string]error
	Duration     time.Duration
	Throughput   float64 // files per second
}

type Processor struct {
	pipe   *pipeline.Pipeline
	opts   Options
	memory *ReservationManager
}

func NewProcessor(pipe *pipeline.Pipeline, opts Options) *Processor {
	if opts.MemoryBudget <= 0 {
		opts.MemoryBudget = 256 << 20
	}
	if opts.MaxConcurrency <= 0 {
		opts.MaxConcurrency = int(opts.MemoryBudget / reservationPerTask)
		if opts.MaxConcurrency < 1 {
			opts.MaxConcurrency = 1
		}
	}
	if opts.HighPressure <= 0 {
		opts.HighPressure = 0.8
	}
	if opts.ThrottlePause <= 0 {
		opts.ThrottlePause = 100 * time.Millisecond
	}
	if opts.FS == nil {
		opts.FS = afero.NewOsFs()
	}
	if opts.Logger == nil {
		opts.Logger = commonlog.GetLogger("styler.batch")
	}
	return &Processor{
		pipe:   pipe,
		opts:   opts,
		memory: NewReservationManager(opts.MemoryBudget),
	}
}

// Process runs every file through the pipeline. Cancelling ctx stops
// new submissions and propagates the interrupt into in-flight rule
// code through the deadline mechanism; it does not kill tasks.
func (p *Processor) Process(ctx context.Context, files []string) *Result {
	start := time.Now()
	p.opts.Logger.Infof("processing %d files, concurrency %d, memory budget %s",
		len(files), p.opts.MaxConcurrency, humanize.IBytes(uint64(p.opts.MemoryBudget)))

	var (
		results   sync.Map // path -> *pipeline.Result
		errorsMap sync.Map // path -> error
		failures  atomic.Int64
		inFlight  atomic.Int64
	)

	group := semgroup.NewGroup(ctx, int64(p.opts.MaxConcurrency))

	for _, file := range files {
		if ctx.Err() != nil {
			errorsMap.Store(file, ctx.Err())
			failures.Add(1)
			continue
		}
		if p.aborted(failures.Load()) {
			errorsMap.Store(file, context.Canceled)
			failures.Add(1)
			continue
		}

		size := p.fileSize(file)
		release, err := p.memory.Reserve(ctx, size)
		if err != nil {
			// Context canceled while waiting for admission.
			errorsMap.Store(file, err)
			failures.Add(1)
			continue
		}
		if p.memory.Pressure() > p.opts.HighPressure && inFlight.Load() > 0 {
			// Let memory catch up before admitting more work; with
			// nothing in flight admission proceeds immediately so
			// the batch always makes progress.
			throttlePauses.Inc()
			p.opts.Logger.Debugf("memory pressure %.0f%%, pausing admissions", p.memory.Pressure()*100)
			select {
			case <-time.After(p.opts.ThrottlePause):
			case <-ctx.Done():
			}
		}

		file := file
		inFlight.Add(1)
		group.Go(func() error {
			defer release()
			defer inFlight.Add(-1)

			fileStart := time.Now()
			var deadline time.Time
			if p.opts.FileBudget > 0 {
				deadline = fileStart.Add(p.opts.FileBudget)
			}

			result := p.runSafely(ctx, file, deadline)
			fileDuration.Observe(time.Since(fileStart).Seconds())

			results.Store(file, result)
			if err := result.FirstError(); err != nil {
				filesTotal.WithLabelValues("failure").Inc()
				errorsMap.Store(file, err)
				failures.Add(1)
				if p.opts.Collector != nil {
					p.opts.Collector.Report(FileError{Path: file, Err: err})
				}
				p.opts.Logger.Errorf("%s: %v", file, err)
			} else {
				filesTotal.WithLabelValues("success").Inc()
			}
			// The group only sees nil: one file's failure must never
			// take a sibling down.
			return nil
		})
	}

	_ = group.Wait()
	if p.opts.Collector != nil {
		p.opts.Collector.Flush()
	}

	out := &Result{
		Total:   len(files),
		PerFile: make(map[string]*pipeline.Result),
		Errors:  make(map[string]error),
	}
	results.Range(func(k, v any) bool {
		out.PerFile[k.(string)] = v.(*pipeline.Result)
		return true
	})
	errorsMap.Range(func(k, v any) bool {
		out.Errors[k.(string)] = v.(error)
		return true
	})
	out.FailureCount = len(out.Errors)
	out.SuccessCount = out.Total - out.FailureCount
	out.Duration = time.Since(start)
	if seconds := out.Duration.Seconds(); seconds > 0 {
		out.Throughput = float64(out.Total) / seconds
	}
	return out
}

// runSafely converts a panicking task into a per-file failure so the
// batch survives contract violations in rule code.
func (p *Processor) runSafely(ctx context.Context, file string, deadline time.Time) (result *pipeline.Result) {
	defer func() {
		if r := recover(); r != nil {
			result = &pipeline.Result{
				FilePath: file,
				Stages: []pipeline.StageResult{{
					Name:   "internal",
					Status: pipeline.StageFailure,
					Err:    &panicError{value: r},
				}},
			}
		}
	}()
	return p.pipe.Run(ctx, file, deadline)
}

type panicError struct{ value any }

func (e *panicError) Error() string {
	return "internal error: " + stringify(e.value)
}

func stringify(v any) string {
	if err, ok := v.(error); ok {
		return err.Error()
	}
	if s, ok := v.(string); ok {
		return s
	}
	return "panic"
}

func (p *Processor) aborted(failures int64) bool {
	switch p.opts.Strategy {
	case FailFast:
		return failures > 0
	case AbortAfterThreshold:
		return int(failures) >= p.opts.AbortThreshold && p.opts.AbortThreshold > 0
	default:
		return false
	}
}

func (p *Processor) fileSize(file string) int64 {
	info, err := p.opts.FS.Stat(file)
	if err != nil || info.Size() < 1 {
		return 1
	}
	return info.Size()
}
