package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dhamidi/styler/errs"
	"github.com/tliron/commonlog"

	_ "github.com/tliron/commonlog/simple"
)

func main() {
	rootCmd := newRootCmd()
	rootCmd.AddCommand(newRulesCmd())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := rootCmd.ExecuteContext(ctx)
	if err == nil {
		if helpRequested(os.Args[1:]) {
			os.Exit(errs.ExitHelp)
		}
		os.Exit(errs.ExitOK)
	}

	var exit *exitError
	if errors.As(err, &exit) {
		os.Exit(exit.code)
	}
	fmt.Fprintln(os.Stderr, err)
	os.Exit(exitCodeFor(err))
}

// exitError carries an exit code without a message; the cause was
// already reported.
type exitError struct {
	code int
}

func (e *exitError) Error() string {
	return fmt.Sprintf("exit code %d", e.code)
}

func exitCodeFor(err error) int {
	var e *errs.Error
	if errors.As(err, &e) {
		return errs.ExitCode(err)
	}
	// Anything cobra produced itself is an argument-binding problem.
	return errs.ExitUsage
}

func setupLogging(verbosity int) {
	commonlog.Configure(verbosity, nil)
}

func helpRequested(args []string) bool {
	for _, arg := range args {
		if arg == "-h" || arg == "--help" || arg == "help" {
			return true
		}
		if arg == "--" {
			return false
		}
	}
	return false
}
