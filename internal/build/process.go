package build

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"sync"
	"time"
)

const (
	// lines longer than this are delivered in pieces
	maxLineSize = 10 * 1024 * 1024

	defaultWaitDelay = 5 * time.Second
)

// ProcessInvoker runs commands as local processes
type ProcessInvoker struct {
	// Env, when non-nil, replaces the inherited process environment
	Env []string

	// WaitDelay bounds how long Run waits for output after the context is
	// done and the process was killed. Children that inherited the output
	// pipes are abandoned once it expires.
	WaitDelay time.Duration
}

func NewProcessInvoker() *ProcessInvoker {
	return &ProcessInvoker{WaitDelay: defaultWaitDelay}
}

func (p *ProcessInvoker) Run(ctx context.Context, command string, args []string, opts RunOptions) (Result, error) {
	cmd := exec.CommandContext(ctx, command, args...)
	cmd.Dir = opts.Dir
	cmd.WaitDelay = p.WaitDelay
	if p.Env != nil {
		cmd.Env = p.Env
	}

	// exec copies each stream on its own goroutine; deliver serializes
	// callbacks so OnOutput never runs on two goroutines at once
	var mu sync.Mutex
	deliver := func(line string) {
		if opts.OnOutput == nil {
			return
		}
		mu.Lock()
		defer mu.Unlock()
		opts.OnOutput(line)
	}

	stdout := &lineWriter{deliver: deliver}
	stderr := &lineWriter{deliver: deliver}
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	if err := cmd.Start(); err != nil {
		return Result{}, fmt.Errorf("starting %s: %w", CommandLine(command, args), err)
	}

	waitErr := cmd.Wait()
	stdout.Flush()
	stderr.Flush()

	result := Result{
		ExitCode:       cmd.ProcessState.ExitCode(),
		StandardOutput: stdout.String(),
		StandardError:  stderr.String(),
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		return result, ctxErr
	}
	var exitErr *exec.ExitError
	if waitErr != nil && !errors.As(waitErr, &exitErr) {
		return result, fmt.Errorf("waiting for %s: %w", command, waitErr)
	}
	if opts.FailOnNonZero && result.ExitCode != 0 {
		return result, &ExitError{Command: CommandLine(command, args), Result: result}
	}

	return result, nil
}

// lineWriter splits what a process writes into lines, capturing each one
// and handing it to deliver. It never fails a write, so the process is
// never left blocked on a full pipe.
type lineWriter struct {
	capture strings.Builder
	pending []byte
	deliver func(string)
}

func (w *lineWriter) Write(p []byte) (int, error) {
	w.pending = append(w.pending, p...)

	start := 0
	for {
		i := bytes.IndexByte(w.pending[start:], '\n')
		if i < 0 {
			break
		}
		w.emit(w.pending[start : start+i])
		start += i + 1
	}
	w.pending = append(w.pending[:0], w.pending[start:]...)

	if len(w.pending) >= maxLineSize {
		w.Flush()
	}
	return len(p), nil
}

// Flush emits a trailing line that was not terminated by a newline
func (w *lineWriter) Flush() {
	if len(w.pending) == 0 {
		return
	}
	w.emit(w.pending)
	w.pending = w.pending[:0]
}

func (w *lineWriter) String() string {
	return w.capture.String()
}

func (w *lineWriter) emit(raw []byte) {
	line := strings.TrimRight(string(raw), "\r")
	w.capture.WriteString(line)
	w.capture.WriteByte('\n')
	w.deliver(line)
}
