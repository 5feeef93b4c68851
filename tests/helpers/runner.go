package helpers

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/hbomb79/Mnemo/internal/pipeline"
	"github.com/hbomb79/Mnemo/internal/process"
)

type (
	// FakeCommand describes how a FakeRunner behaves for a single invocation.
	FakeCommand struct {
		Lines     []string
		ExitCode  int
		LaunchErr error

		// Effect is run before any lines are delivered, allowing the fake
		// to write the files the real process would have produced.
		Effect func(args []string) error

		// Block causes the command to run until its context is cancelled.
		Block bool
	}

	FakeCall struct {
		Name string
		Args []string
	}

	// FakeRunner satisfies the command runner interfaces used by the pipeline
	// without launching any real processes. Every invocation is recorded.
	FakeRunner struct {
		*sync.Mutex
		calls  []FakeCall
		script func(name string, args []string) FakeCommand
	}
)

func NewFakeRunner(script func(name string, args []string) FakeCommand) *FakeRunner {
	return &FakeRunner{Mutex: &sync.Mutex{}, calls: make([]FakeCall, 0), script: script}
}

func (runner *FakeRunner) Run(ctx context.Context, name string, args []string, onLine process.LineHandler) (*process.Result, error) {
	runner.Lock()
	runner.calls = append(runner.calls, FakeCall{Name: name, Args: append([]string{}, args...)})
	runner.Unlock()

	command := runner.script(name, args)
	if command.LaunchErr != nil {
		return nil, &pipeline.LaunchError{Command: name, Err: command.LaunchErr}
	}

	if command.Effect != nil {
		if err := command.Effect(args); err != nil {
			return nil, fmt.Errorf("fake command effect failed: %w", err)
		}
	}

	for _, line := range command.Lines {
		if onLine != nil {
			onLine(line)
		}
	}

	if command.Block {
		<-ctx.Done()
		return nil, fmt.Errorf("'%s' was cancelled: %w", name, ctx.Err())
	}

	if command.ExitCode != 0 {
		tail := command.Lines[max(0, len(command.Lines)-process.DefaultTailLines):]
		return nil, &pipeline.ProcessExitError{Command: name, Code: command.ExitCode, Tail: tail}
	}

	return &process.Result{Command: name, ExitCode: 0, Lines: len(command.Lines)}, nil
}

func (runner *FakeRunner) Output(ctx context.Context, name string, args []string) (string, error) {
	lines := make([]string, 0)
	if _, err := runner.Run(ctx, name, args, func(line string) { lines = append(lines, line) }); err != nil {
		return "", err
	}

	return strings.Join(lines, "\n"), nil
}

// Calls returns every invocation made to the runner, in order.
func (runner *FakeRunner) Calls() []FakeCall {
	runner.Lock()
	defer runner.Unlock()

	return append([]FakeCall{}, runner.calls...)
}

// CallsTo returns the invocations made for the binary name given.
func (runner *FakeRunner) CallsTo(name string) []FakeCall {
	calls := make([]FakeCall, 0)
	for _, call := range runner.Calls() {
		if call.Name == name {
			calls = append(calls, call)
		}
	}

	return calls
}
