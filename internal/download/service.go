package download

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/hbomb79/Mnemo/internal/event"
	"github.com/hbomb79/Mnemo/internal/pipeline"
	"github.com/hbomb79/Mnemo/internal/progress"
	"github.com/hbomb79/Mnemo/pkg/logger"
	"github.com/hbomb79/Mnemo/pkg/worker"
)

var (
	ErrOperationNotFound = errors.New("no download operation found")
	ErrOperationComplete = errors.New("download operation has already completed")
)

type (
	OperationState int

	// Operation is a download request, as tracked by the service.
	Operation struct {
		ID       uuid.UUID       `json:"id"`
		Request  Request         `json:"request"`
		State    OperationState  `json:"state"`
		Progress *progress.Event `json:"progress"`
		Result   *Result         `json:"result"`
		Error    string          `json:"error,omitempty"`

		cancel context.CancelFunc
	}

	// downloadService accepts download requests and runs them on a pool of
	// background workers. It is responsible for:
	//   - Validating and queueing incoming requests
	//   - Live-tracking and reporting of download progress over the event bus
	//   - Cancellation of queued and running downloads
	downloadService struct {
		*sync.Mutex
		config       Config
		orchestrator *Orchestrator
		validate     *validator.Validate
		eventBus     event.EventDispatcher
		operations   []*Operation
		workerPool   *worker.WorkerPool
		ctx          context.Context
	}
)

const (
	QUEUED OperationState = iota
	RUNNING
	COMPLETE
)

func (state OperationState) String() string {
	switch state {
	case QUEUED:
		return "QUEUED"
	case RUNNING:
		return "RUNNING"
	case COMPLETE:
		return "COMPLETE"
	}

	return "UNKNOWN"
}

func (state OperationState) MarshalJSON() ([]byte, error) {
	return json.Marshal(state.String())
}

// New creates a downloadService. The scheduler may be nil, in which case visual
// summaries are never scheduled. Downloads do not begin until the service is Run.
func New(config Config, runner CommandRunner, fetcher MetadataFetcher, store KnowledgeStore, scheduler SummaryScheduler, eventBus event.EventDispatcher) (*downloadService, error) {
	if err := config.validate(); err != nil {
		return nil, err
	}

	orchestrator := NewOrchestrator(config, runner, fetcher, store, scheduler)
	service := &downloadService{
		Mutex:        &sync.Mutex{},
		config:       config,
		orchestrator: orchestrator,
		validate:     orchestrator.validate,
		eventBus:     eventBus,
		operations:   make([]*Operation, 0),
		workerPool:   worker.NewWorkerPool(),
	}

	for i := 0; i < config.Parallelism; i++ {
		label := fmt.Sprintf("download-worker-%d", i)
		if err := service.workerPool.PushWorker(worker.NewWorker(label, service.executeTask)); err != nil {
			return nil, err
		}
	}

	return service, nil
}

// Run starts the worker pool and blocks until the context is cancelled. Cancelling
// the context kills any running downloads, and Run waits for the workers to exit
// before returning.
func (service *downloadService) Run(ctx context.Context) error {
	service.Lock()
	service.ctx = ctx
	service.Unlock()

	if err := service.workerPool.Start(); err != nil {
		return err
	}

	<-ctx.Done()
	log.Emit(logger.STOP, "Shutting down (context cancelled). Waiting for download workers to stop.\n")
	service.workerPool.Close()
	return nil
}

// Enqueue validates the request and queues it for download, returning the
// ID of the new operation. An invalid request is rejected before anything is
// queued.
func (service *downloadService) Enqueue(request Request) (uuid.UUID, error) {
	if err := request.Validate(service.validate); err != nil {
		return uuid.Nil, err
	}

	operation := &Operation{ID: uuid.New(), Request: request, State: QUEUED}
	service.Lock()
	service.operations = append(service.operations, operation)
	service.Unlock()

	log.Emit(logger.NEW, "Queued download %s for %s\n", operation.ID, request.SourceURL)
	service.eventBus.Dispatch(event.DOWNLOAD_UPDATE, operation.ID)
	if err := service.workerPool.WakeupWorkers(); err != nil {
		log.Debugf("Download %s queued before service start: %v\n", operation.ID, err)
	}

	return operation.ID, nil
}

// Operation returns a snapshot of the operation with the ID provided.
func (service *downloadService) Operation(id uuid.UUID) (Operation, error) {
	service.Lock()
	defer service.Unlock()

	if operation := service.find(id); operation != nil {
		return operation.snapshot(), nil
	}

	return Operation{}, ErrOperationNotFound
}

// Operations returns a snapshot of every operation known to the service.
func (service *downloadService) Operations() []Operation {
	service.Lock()
	defer service.Unlock()

	operations := make([]Operation, 0, len(service.operations))
	for _, operation := range service.operations {
		operations = append(operations, operation.snapshot())
	}

	return operations
}

// Cancel stops the operation with the ID provided. A queued operation is completed
// immediately without launching anything, and a running operation has its
// retrieval process killed.
func (service *downloadService) Cancel(id uuid.UUID) error {
	service.Lock()
	operation := service.find(id)
	if operation == nil {
		service.Unlock()
		return ErrOperationNotFound
	}

	switch operation.State {
	case COMPLETE:
		service.Unlock()
		return ErrOperationComplete
	case RUNNING:
		operation.cancel()
		service.Unlock()
		log.Emit(logger.STOP, "Cancelled running download %s\n", id)
		return nil
	}

	err := fmt.Errorf("download %s was cancelled: %w", id, context.Canceled)
	operation.State = COMPLETE
	operation.Error = err.Error()
	operation.Result = &Result{OperationID: id, Outcome: pipeline.FAILURE, Items: make([]ItemSummary, 0), Warnings: make(pipeline.Warnings, 0), Err: err}
	service.Unlock()

	log.Emit(logger.STOP, "Cancelled queued download %s\n", id)
	service.eventBus.Dispatch(event.DOWNLOAD_COMPLETE, id)
	return nil
}

// executeTask is the worker function for the downloadService. It claims the
// first QUEUED operation and runs it to completion.
func (service *downloadService) executeTask(_ worker.Worker) (bool, error) {
	ctx := service.context()
	if ctx.Err() != nil {
		return false, nil
	}

	operationCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	operation := service.claimQueuedOperation(cancel)
	if operation == nil {
		return false, nil
	}

	id := operation.ID
	service.eventBus.Dispatch(event.DOWNLOAD_UPDATE, id)

	result := service.orchestrator.Download(operationCtx, id, operation.Request, ListenerFuncs{
		Progress: func(ev progress.Event) {
			service.Lock()
			operation.Progress = &ev
			service.Unlock()

			service.eventBus.Dispatch(event.DOWNLOAD_PROGRESS, event.ProgressPayload{OperationID: id, Progress: ev})
		},
		Log: func(line string) {
			log.Verbosef("[%s] %s\n", id, line)
		},
	})

	service.Lock()
	operation.State = COMPLETE
	operation.Result = &result
	if result.Err != nil {
		operation.Error = result.Err.Error()
	}
	service.Unlock()

	service.eventBus.Dispatch(event.DOWNLOAD_COMPLETE, id)
	return true, nil
}

// claimQueuedOperation finds the first QUEUED operation and marks it as RUNNING
// to prevent another worker from claiming it once the mutex is released.
func (service *downloadService) claimQueuedOperation(cancel context.CancelFunc) *Operation {
	service.Lock()
	defer service.Unlock()

	for _, operation := range service.operations {
		if operation.State == QUEUED {
			operation.State = RUNNING
			operation.cancel = cancel
			return operation
		}
	}

	return nil
}

func (service *downloadService) find(id uuid.UUID) *Operation {
	for _, operation := range service.operations {
		if operation.ID == id {
			return operation
		}
	}

	return nil
}

func (service *downloadService) context() context.Context {
	service.Lock()
	defer service.Unlock()

	if service.ctx == nil {
		return context.Background()
	}

	return service.ctx
}

func (operation *Operation) snapshot() Operation {
	snapshot := *operation
	snapshot.cancel = nil
	if operation.Progress != nil {
		progress := *operation.Progress
		snapshot.Progress = &progress
	}

	return snapshot
}
