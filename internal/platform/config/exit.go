package config

import (
	"fmt"
	"os"
)

// Process exit codes used by CLI entry points.
const (
	ExitFailure  = 1
	ExitRejected = 2
)

// Exitf writes a formatted error message to stderr and exits with code.
func Exitf(code int, format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(code)
}
