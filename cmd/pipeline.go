package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/hbomb79/Mnemo/internal"
	"github.com/hbomb79/Mnemo/internal/download"
	"github.com/hbomb79/Mnemo/internal/event"
	"github.com/hbomb79/Mnemo/internal/frames"
	"github.com/hbomb79/Mnemo/internal/progress"
)

var errPipelineStopped = errors.New("pipeline stopped before the work completed")

// pipelineRun runs the download and visual summary services in the
// background, allowing a command to wait for the work it queued.
type pipelineRun struct {
	mnemo      *internal.Mnemo
	events     event.HandlerChannel
	done       chan error
	cancel     context.CancelFunc
	framesDone map[uuid.UUID]struct{}
}

func startPipeline(parent context.Context, mnemo *internal.Mnemo) *pipelineRun {
	ctx, cancel := context.WithCancel(parent)
	run := &pipelineRun{
		mnemo:      mnemo,
		events:     make(event.HandlerChannel, 100),
		done:       make(chan error, 1),
		cancel:     cancel,
		framesDone: make(map[uuid.UUID]struct{}),
	}

	mnemo.EventBus().RegisterHandlerChannel(run.events, event.DOWNLOAD_PROGRESS, event.DOWNLOAD_COMPLETE, event.FRAMES_COMPLETE)
	go func() { run.done <- mnemo.RunPipeline(ctx) }()

	return run
}

// stop cancels the services and waits for them to exit.
func (run *pipelineRun) stop() error {
	run.cancel()
	return <-run.done
}

// awaitDownload blocks until the download operation completes, passing
// every progress update for it to onProgress.
func (run *pipelineRun) awaitDownload(id uuid.UUID, onProgress func(progress.Event)) (download.Operation, error) {
	for {
		select {
		case ev := <-run.events:
			switch ev.Event {
			case event.DOWNLOAD_PROGRESS:
				if payload := ev.Payload.(event.ProgressPayload); payload.OperationID == id {
					onProgress(payload.Progress)
				}
			case event.DOWNLOAD_COMPLETE:
				if ev.Payload.(uuid.UUID) == id {
					return run.mnemo.Downloads().Operation(id)
				}
			case event.FRAMES_COMPLETE:
				run.framesDone[ev.Payload.(uuid.UUID)] = struct{}{}
			}
		case err := <-run.done:
			run.done <- err
			return download.Operation{}, stoppedError(err)
		}
	}
}

// awaitFrames blocks until every visual summary task provided has completed,
// returning the final state of each.
func (run *pipelineRun) awaitFrames(ids []uuid.UUID) ([]frames.Task, error) {
	pending := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := run.framesDone[id]; !ok {
			pending[id] = struct{}{}
		}
	}

	for len(pending) > 0 {
		select {
		case ev := <-run.events:
			if ev.Event == event.FRAMES_COMPLETE {
				delete(pending, ev.Payload.(uuid.UUID))
			}
		case err := <-run.done:
			run.done <- err
			return nil, stoppedError(err)
		}
	}

	tasks := make([]frames.Task, 0, len(ids))
	for _, id := range ids {
		task, err := run.mnemo.Frames().Task(id)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}

	return tasks, nil
}

func stoppedError(err error) error {
	if err != nil {
		return fmt.Errorf("%w: %w", errPipelineStopped, err)
	}

	return errPipelineStopped
}
