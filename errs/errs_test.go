package errs

import (
	"errors"
	"fmt"
	"testing"
)

func TestExitCodes(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{nil, ExitOK},
		{New(KindUsage, "bad flag"), ExitUsage},
		{New(KindConfig, "bad width"), ExitConfig},
		{New(KindSecurity, "too deep"), ExitSecurity},
		{New(KindTimeout, "deadline"), ExitSecurity},
		{New(KindIO, "missing"), ExitIO},
		{New(KindParse, "bad token"), ExitViolations},
		{New(KindFormat, "rule broke"), ExitViolations},
		{New(KindInternal, "bug"), ExitInternal},
		{errors.New("untyped"), ExitInternal},
	}
	for _, tt := range tests {
		if got := ExitCode(tt.err); got != tt.want {
			t.Errorf("ExitCode(%v): got %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestWrappingPreservesKind(t *testing.T) {
	cause := errors.New("disk on fire")
	err := fmt.Errorf("reading config: %w", WrapFile(KindIO, "a.java", cause))

	if KindOf(err) != KindIO {
		t.Errorf("KindOf: got %v, want io", KindOf(err))
	}
	if !errors.Is(err, IO) {
		t.Error("errors.Is against the IO probe failed")
	}
	if errors.Is(err, Timeout) {
		t.Error("IO error matched the Timeout probe")
	}
	if !errors.Is(err, cause) {
		t.Error("cause lost through wrapping")
	}
}

func TestErrorMessageCarriesPath(t *testing.T) {
	err := WrapFile(KindParse, "src/T.java", errors.New("expected ;"))
	want := "parse: src/T.java: expected ;"
	if err.Error() != want {
		t.Errorf("got %q, want %q", err.Error(), want)
	}
}

func TestKindOfUntyped(t *testing.T) {
	if KindOf(errors.New("x")) != KindInternal {
		t.Error("untyped errors default to internal")
	}
}
