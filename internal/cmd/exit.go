package cmd

import (
	"errors"

	"github.com/bloodstar/bcrelease/internal/builder"
)

// ExitCode maps a command error to the process exit status. A failed build
// propagates the build tool's own code.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}

	var exitErr *builder.ExitError
	if errors.As(err, &exitErr) && exitErr.Code > 0 {
		return exitErr.Code
	}
	return 1
}
