package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"practice/cmd"
	"practice/internal/audio"
	applog "practice/internal/log"
	"practice/pkg/build"
)

// main runs in three phases:
//
// 1. Startup: resolve build information and initialise PortAudio.
// 2. Run: execute the chosen subcommand until it finishes or a
// termination signal cancels its context.
// 3. Shutdown: subcommands release their streams, then PortAudio is
// terminated.
func main() {
	if err := build.Initialize(); err != nil {
		applog.Warnf("build information incomplete: %v", err)
	}

	if err := audio.Initialize(); err != nil {
		applog.Fatalf("%v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := cmd.Execute(ctx, os.Args[1:])
	stop()

	if tErr := audio.Terminate(); tErr != nil {
		applog.Errorf("%v", tErr)
	}
	if err != nil {
		applog.Errorf("%v", err)
		os.Exit(1)
	}
}
