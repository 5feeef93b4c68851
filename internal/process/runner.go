// Package process launches external commands and streams their combined output
// back to the caller line by line.
package process

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/hbomb79/Mnemo/internal/pipeline"
	"github.com/hbomb79/Mnemo/pkg/logger"
)

var log = logger.Get("Process")

const (
	DefaultTailLines = 20
	maxLineBytes     = 1024 * 1024
)

type (
	// LineHandler is called for every line of output, in the order the
	// lines were produced.
	LineHandler func(line string)

	Result struct {
		Command  string
		ExitCode int
		Lines    int
	}

	// Runner executes external processes. It holds no state between
	// invocations and is safe for concurrent use.
	Runner struct {
		// TailLines is the number of trailing output lines attached to
		// a ProcessExitError. Defaults to DefaultTailLines when zero.
		TailLines int
	}
)

func NewRunner() *Runner {
	return &Runner{TailLines: DefaultTailLines}
}

// Run starts the command and delivers each line of its merged stdout/stderr
// to onLine as it arrives. Run blocks until the process exits.
//
// A command which cannot be started returns a LaunchError before any lines are
// delivered. A non-zero exit code returns a ProcessExitError carrying the tail
// of the output. Cancelling the context kills the process.
func (runner *Runner) Run(ctx context.Context, name string, args []string, onLine LineHandler) (*Result, error) {
	reader, writer, err := os.Pipe()
	if err != nil {
		return nil, &pipeline.LaunchError{Command: name, Err: fmt.Errorf("failed to create output pipe: %w", err)}
	}
	defer reader.Close()

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = writer
	cmd.Stderr = writer

	log.Debugf("Executing %s %s\n", name, strings.Join(args, " "))
	if err := cmd.Start(); err != nil {
		writer.Close()
		return nil, &pipeline.LaunchError{Command: name, Err: err}
	}

	// Our copy of the write end must be closed, otherwise the read loop below
	// will never observe EOF.
	writer.Close()

	// Children of the process may inherit the pipe and keep it open after the
	// process itself is killed, so closing the reader is what unblocks the scan.
	stop := context.AfterFunc(ctx, func() { reader.Close() })
	defer stop()

	tail := newTail(runner.tailLines())
	lineCount := 0
	scanner := bufio.NewScanner(reader)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	scanner.Split(scanTerminalLines)
	for scanner.Scan() {
		line := strings.TrimSpace(strings.ToValidUTF8(scanner.Text(), "�"))
		if line == "" {
			continue
		}

		lineCount++
		tail.push(line)
		if onLine != nil {
			onLine(line)
		}
	}

	// The scan stops early on an oversized line; the rest of the output must
	// still be consumed or the process blocks writing to a full pipe.
	if scanner.Err() != nil {
		_, _ = io.Copy(io.Discard, reader)
	}

	waitErr := cmd.Wait()
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, fmt.Errorf("'%s' was cancelled: %w", name, ctxErr)
	}

	if waitErr != nil {
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) {
			return nil, &pipeline.ProcessExitError{Command: name, Code: exitErr.ExitCode(), Tail: tail.lines()}
		}

		return nil, fmt.Errorf("failed to wait for '%s': %w", name, waitErr)
	}

	if err := scanner.Err(); err != nil {
		log.Warnf("Output of '%s' could not be fully read: %v\n", name, err)
	}

	return &Result{Command: name, ExitCode: 0, Lines: lineCount}, nil
}

// Output runs the command to completion and returns all of its output lines
// joined by newlines.
func (runner *Runner) Output(ctx context.Context, name string, args []string) (string, error) {
	lines := make([]string, 0)
	if _, err := runner.Run(ctx, name, args, func(line string) { lines = append(lines, line) }); err != nil {
		return strings.Join(lines, "\n"), err
	}

	return strings.Join(lines, "\n"), nil
}

func (runner *Runner) tailLines() int {
	if runner.TailLines <= 0 {
		return DefaultTailLines
	}

	return runner.TailLines
}

// scanTerminalLines is a bufio.SplitFunc which treats both '\n' and '\r' as
// line terminators, as tools which redraw a progress line use a bare carriage return.
func scanTerminalLines(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}

	if i := bytes.IndexAny(data, "\r\n"); i >= 0 {
		return i + 1, data[:i], nil
	}

	if atEOF {
		return len(data), data, nil
	}

	return 0, nil, nil
}

// tail is a fixed size ring of the most recent output lines.
type tail struct {
	buf  []string
	next int
	full bool
}

func newTail(size int) *tail {
	return &tail{buf: make([]string, size)}
}

func (t *tail) push(line string) {
	t.buf[t.next] = line
	t.next = (t.next + 1) % len(t.buf)
	if t.next == 0 {
		t.full = true
	}
}

func (t *tail) lines() []string {
	if !t.full {
		return append([]string{}, t.buf[:t.next]...)
	}

	return append(append([]string{}, t.buf[t.next:]...), t.buf[:t.next]...)
}
