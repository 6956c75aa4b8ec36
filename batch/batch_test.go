package batch

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/dhamidi/styler/pipeline"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBatchFS(t *testing.T, files map[string]string) afero.Fs {
	t.Helper()
	fs := afero.NewMemMapFs()
	for path, content := range files {
		require.NoError(t, afero.WriteFile(fs, path, []byte(content), 0o644))
	}
	return fs
}

func TestBatchPartialFailure(t *testing.T) {
	files := make(map[string]string)
	var paths []string
	for i := 1; i <= 10; i++ {
		path := fmt.Sprintf("File%d.java", i)
		paths = append(paths, path)
		if i == 3 {
			files[path] = "class T { String s = \"unterminated\n}"
		} else {
			files[path] = fmt.Sprintf("class File%d {}", i)
		}
	}
	fs := newBatchFS(t, files)

	p := NewProcessor(pipeline.New(pipeline.Options{FS: fs, ValidationOnly: true}), Options{FS: fs})
	result := p.Process(context.Background(), paths)

	assert.Equal(t, 10, result.Total)
	assert.Equal(t, 9, result.SuccessCount)
	assert.Equal(t, 1, result.FailureCount)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors, "File3.java")

	// The other nine files still carry their pipeline results.
	for _, path := range paths {
		if path == "File3.java" {
			continue
		}
		require.Contains(t, result.PerFile, path)
		assert.True(t, result.PerFile[path].OverallSuccess(), path)
	}
}

func TestBatchCountInvariant(t *testing.T) {
	files := map[string]string{
		"A.java": "class A {}",
		"B.java": "class B { broken",
		"C.java": "class C {}",
	}
	fs := newBatchFS(t, files)

	p := NewProcessor(pipeline.New(pipeline.Options{FS: fs, ValidationOnly: true}), Options{FS: fs})
	result := p.Process(context.Background(), []string{"A.java", "B.java", "C.java"})

	assert.Equal(t, result.Total, result.SuccessCount+result.FailureCount)
	assert.Len(t, result.Errors, result.FailureCount)
	assert.GreaterOrEqual(t, result.Throughput, 0.0)
}

func TestBatchFailFast(t *testing.T) {
	files := make(map[string]string)
	var paths []string
	// The first file is broken; with FailFast, later files may be
	// skipped but the arithmetic still holds.
	files["A.java"] = "class A { broken"
	paths = append(paths, "A.java")
	for i := 0; i < 20; i++ {
		path := fmt.Sprintf("OK%d.java", i)
		files[path] = "class X {}"
		paths = append(paths, path)
	}
	fs := newBatchFS(t, files)

	p := NewProcessor(pipeline.New(pipeline.Options{FS: fs, ValidationOnly: true}), Options{
		FS:             fs,
		Strategy:       FailFast,
		MaxConcurrency: 1,
	})
	result := p.Process(context.Background(), paths)

	assert.Equal(t, len(paths), result.Total)
	assert.Equal(t, result.Total, result.SuccessCount+result.FailureCount)
	assert.GreaterOrEqual(t, result.FailureCount, 1)
	assert.Contains(t, result.Errors, "A.java")
}

func TestBatchAbortAfterThreshold(t *testing.T) {
	files := make(map[string]string)
	var paths []string
	for i := 0; i < 5; i++ {
		path := fmt.Sprintf("Bad%d.java", i)
		files[path] = "class { nope"
		paths = append(paths, path)
	}
	fs := newBatchFS(t, files)

	p := NewProcessor(pipeline.New(pipeline.Options{FS: fs, ValidationOnly: true}), Options{
		FS:             fs,
		Strategy:       AbortAfterThreshold,
		AbortThreshold: 2,
		MaxConcurrency: 1,
	})
	result := p.Process(context.Background(), paths)

	assert.Equal(t, 5, result.Total)
	assert.Equal(t, 5, result.FailureCount)
	assert.Equal(t, 0, result.SuccessCount)
}

func TestBatchCancellation(t *testing.T) {
	files := make(map[string]string)
	var paths []string
	for i := 0; i < 50; i++ {
		path := fmt.Sprintf("F%d.java", i)
		files[path] = "class X {}"
		paths = append(paths, path)
	}
	fs := newBatchFS(t, files)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := NewProcessor(pipeline.New(pipeline.Options{FS: fs, ValidationOnly: true}), Options{FS: fs})
	result := p.Process(ctx, paths)

	// Everything was refused admission; arithmetic still holds.
	assert.Equal(t, 50, result.Total)
	assert.Equal(t, result.Total, result.SuccessCount+result.FailureCount)
	assert.Equal(t, 50, result.FailureCount)
}

func TestReservationManager(t *testing.T) {
	m := NewReservationManager(100)

	release1, err := m.Reserve(context.Background(), 60)
	require.NoError(t, err)
	assert.Equal(t, int64(60), m.Used())
	assert.InDelta(t, 0.6, m.Pressure(), 0.001)

	// A request larger than the pool clamps instead of deadlocking.
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	release1()
	release1() // idempotent
	assert.Equal(t, int64(0), m.Used())

	release2, err := m.Reserve(ctx, 1000)
	require.NoError(t, err)
	assert.Equal(t, int64(100), m.Used())
	release2()
}

func TestReservationBlocksWhenSaturated(t *testing.T) {
	m := NewReservationManager(10)
	release, err := m.Reserve(context.Background(), 10)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = m.Reserve(ctx, 5)
	assert.Error(t, err, "saturated pool should block until the context gives up")

	release()
	release2, err := m.Reserve(context.Background(), 5)
	require.NoError(t, err)
	release2()
}

func TestErrorCollectorBatching(t *testing.T) {
	var batches [][]FileError
	c := NewErrorCollector(2, func(batch []FileError) {
		batches = append(batches, batch)
	})

	c.Report(FileError{Path: "a"})
	assert.Empty(t, batches)
	c.Report(FileError{Path: "b"})
	require.Len(t, batches, 1)
	assert.Len(t, batches[0], 2)

	c.Report(FileError{Path: "c"})
	c.Flush()
	require.Len(t, batches, 2)
	assert.Equal(t, "c", batches[1][0].Path)

	// Flushing an empty collector forwards nothing.
	c.Flush()
	assert.Len(t, batches, 2)
}

func TestDefaultConcurrencyFromBudget(t *testing.T) {
	p := NewProcessor(pipeline.New(pipeline.Options{FS: afero.NewMemMapFs()}), Options{
		MemoryBudget: 50 << 20,
		FS:           afero.NewMemMapFs(),
	})
	assert.Equal(t, 10, p.opts.MaxConcurrency)

	p = NewProcessor(pipeline.New(pipeline.Options{FS: afero.NewMemMapFs()}), Options{
		MemoryBudget: 1 << 20,
		FS:           afero.NewMemMapFs(),
	})
	assert.Equal(t, 1, p.opts.MaxConcurrency)
}
