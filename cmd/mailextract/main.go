package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
)

// Exit codes for different failure modes.
const (
	ExitSuccess  = 0
	ExitError    = 1
	ExitCanceled = 130
)

func main() {
	os.Exit(run())
}

func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	err := newRootCommand().ExecuteContext(ctx)
	if err == nil {
		return ExitSuccess
	}

	// Action failures were already shown as a notification.
	var reported *reportedError
	if !errors.As(err, &reported) {
		fmt.Fprintln(os.Stderr, err)
	}
	if errors.Is(err, context.Canceled) {
		return ExitCanceled
	}
	return ExitError
}
