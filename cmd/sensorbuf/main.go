// Package main implements sensorbuf, which acquires configured sensors into ring
// buffers and consumes them the way an estimation loop does.
package main

import (
	"fmt"
	"os"
	"runtime"
)

// Build information
const (
	Version = "0.1.0"
	appName = "sensorbuf"
)

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
		_, _ = fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
