package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	flags "github.com/jessevdk/go-flags"
)

// flakyworker is a stand-in unit for exercising the keeper by hand: it prints a
// heartbeat and exits with a chosen code after a chosen time.
type flagOptions struct {
	RunDuration int    `long:"run-duration" description:"Seconds to run before exiting, 0 runs until signalled"`
	ExitCode    int    `long:"exit-code" description:"Exit code used when the run duration elapses"`
	Heartbeat   int    `long:"heartbeat" default:"1" description:"Seconds between heartbeat lines"`
	Name        string `long:"name" default:"flakyworker" description:"Name printed in every line"`
}

func main() {
	var opts flagOptions
	var argv []string = os.Args[1:]
	var parser = flags.NewParser(&opts, flags.HelpFlag)
	var err error
	_, err = parser.ParseArgs(argv)
	if err != nil {
		fmt.Printf("Command line flags parsing failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Running %s, pid: %d, opts: %+v...\n", opts.Name, os.Getpid(), opts)

	ctx := context.Background()
	if opts.RunDuration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(opts.RunDuration)*time.Second)
		defer cancel()
	}

	sig := make(chan os.Signal, 1)
	if runtime.GOOS == "windows" {
		signal.Notify(sig) // Unix signals not implemented on Windows
	} else {
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	}

	heartbeat := time.Duration(opts.Heartbeat) * time.Second
	if heartbeat <= 0 {
		heartbeat = time.Second
	}
	ticker := time.NewTicker(heartbeat)
	defer ticker.Stop()

	for n := 1; ; n++ {
		select {
		case receivedSignal := <-sig:
			fmt.Printf("%s received signal: %v\n", opts.Name, receivedSignal)
			return
		case <-ctx.Done():
			fmt.Fprintf(os.Stderr, "%s exiting with code %d\n", opts.Name, opts.ExitCode)
			os.Exit(opts.ExitCode)
		case <-ticker.C:
			fmt.Printf("%s heartbeat %d\n", opts.Name, n)
		}
	}
}
