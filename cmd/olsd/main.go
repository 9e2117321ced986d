// Package main implements olsd, the log stream pipeline daemon. It loads a
// layered configuration, builds the element pipeline it describes and runs
// it until every source reaches end of stream or a shutdown signal arrives.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"runtime"
)

// Build information, overridden with -ldflags
var (
	Version   = "0.1.0"
	BuildTime = "dev"
)

const appName = "olsd"

func main() {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := newRootCmd().Execute(); err != nil {
		slog.Error("Command failed", "error", err, "exit_code", 1)
		os.Exit(1)
	}
}
