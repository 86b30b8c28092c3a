package build

import (
	"context"
	"fmt"
	"strings"
)

// Invoker runs an external build command
type Invoker interface {
	// Run starts command with args and waits for it to exit. Every output
	// line is handed to opts.OnOutput as soon as it is read. A non-zero exit
	// is reported through Result.ExitCode; it is an error only when
	// opts.FailOnNonZero is set.
	Run(ctx context.Context, command string, args []string, opts RunOptions) (Result, error)
}

type RunOptions struct {
	Dir           string
	OnOutput      func(line string)
	FailOnNonZero bool
}

type Result struct {
	ExitCode       int
	StandardOutput string
	StandardError  string
}

// CombinedOutput is stdout followed by stderr
func (r Result) CombinedOutput() string {
	return r.StandardOutput + r.StandardError
}

// ExitError is returned by Run when FailOnNonZero is set and the command
// exited with a non-zero code
type ExitError struct {
	Command string
	Result  Result
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("command %q exited with code %d", e.Command, e.Result.ExitCode)
}

// CommandLine renders command and args the way they would be typed in a
// shell, for echoing into logs
func CommandLine(command string, args []string) string {
	return strings.TrimSpace(command + " " + strings.Join(args, " "))
}
