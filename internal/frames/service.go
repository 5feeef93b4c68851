package frames

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/hbomb79/Mnemo/internal/event"
	"github.com/hbomb79/Mnemo/internal/knowledge"
	"github.com/hbomb79/Mnemo/internal/pipeline"
	"github.com/hbomb79/Mnemo/pkg/logger"
	"github.com/hbomb79/Mnemo/pkg/worker"
	"github.com/mitchellh/go-homedir"
)

var (
	log = logger.Get("FramesServ")

	ErrTaskNotFound = errors.New("no frame extraction task found")
)

type (
	TaskState int

	// Job describes a single visual summary to be produced.
	Job struct {
		ItemID         string  `json:"item_id"`
		MediaPath      string  `json:"media_path"`
		Interval       float64 `json:"interval"`
		DestinationDir string  `json:"destination_dir"`
	}

	// Task is the state of a scheduled Job, as tracked by the service.
	Task struct {
		ID       uuid.UUID        `json:"id"`
		Job      Job              `json:"job"`
		State    TaskState        `json:"state"`
		Samples  int              `json:"samples"`
		Expected int              `json:"expected"`
		Outcome  pipeline.Outcome `json:"outcome"`
		Error    string           `json:"error,omitempty"`
	}

	itemStore interface {
		SampleStore
		GetItem(itemID string) (*knowledge.Item, error)
	}

	// frameService runs visual summary extractions on a pool of
	// background workers. It is responsible for:
	//   - Scheduling extractions for freshly downloaded videos
	//   - Manual summary requests for items already in the knowledge store
	//   - Reporting task progress and completion over the event bus
	frameService struct {
		*sync.Mutex
		config     Config
		outputDir  string
		extractor  *Extractor
		store      itemStore
		eventBus   event.EventDispatcher
		tasks      []*Task
		workerPool *worker.WorkerPool
		ctx        context.Context
	}
)

const (
	QUEUED TaskState = iota
	RUNNING
	COMPLETE
)

func (state TaskState) String() string {
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

func (state TaskState) MarshalJSON() ([]byte, error) {
	return json.Marshal(state.String())
}

// New creates a frameService which uses the runner provided to launch ffprobe and
// ffmpeg. Extractions do not begin until the service is Run.
func New(config Config, runner CommandRunner, store itemStore, eventBus event.EventDispatcher) (*frameService, error) {
	if err := config.validate(); err != nil {
		return nil, err
	}

	outputDir, err := homedir.Expand(config.OutputDir)
	if err != nil {
		return nil, fmt.Errorf("failed to expand screenshot output directory '%s': %w", config.OutputDir, err)
	}

	service := &frameService{
		Mutex:      &sync.Mutex{},
		config:     config,
		outputDir:  outputDir,
		extractor:  NewExtractor(config, runner, store),
		store:      store,
		eventBus:   eventBus,
		tasks:      make([]*Task, 0),
		workerPool: worker.NewWorkerPool(),
	}

	for i := 0; i < config.Parallelism; i++ {
		label := fmt.Sprintf("frames-worker-%d", i)
		if err := service.workerPool.PushWorker(worker.NewWorker(label, service.executeTask)); err != nil {
			return nil, err
		}
	}

	return service, nil
}

// Run starts the worker pool and blocks until the context is cancelled. Cancelling
// the context kills any running ffmpeg processes, and Run waits for the workers
// to exit before returning.
func (service *frameService) Run(ctx context.Context) error {
	service.Lock()
	service.ctx = ctx
	service.Unlock()

	if err := service.workerPool.Start(); err != nil {
		return err
	}

	<-ctx.Done()
	log.Emit(logger.STOP, "Shutting down (context cancelled). Waiting for extraction workers to stop.\n")
	service.workerPool.Close()
	return nil
}

// Schedule validates the job and queues it for extraction. A zero interval is
// replaced with the configured default, and an empty destination with the
// configured output directory.
func (service *frameService) Schedule(job Job) (uuid.UUID, error) {
	if job.ItemID == "" {
		return uuid.Nil, &pipeline.InvalidRequestError{Field: "item_id", Reason: "must not be empty"}
	}
	if job.MediaPath == "" {
		return uuid.Nil, &pipeline.InvalidRequestError{Field: "media_path", Reason: "must not be empty"}
	}
	if job.Interval == 0 {
		job.Interval = service.config.IntervalSeconds
	} else if job.Interval < 0 {
		return uuid.Nil, &pipeline.InvalidRequestError{Field: "interval", Reason: "must be greater than zero"}
	}
	if job.DestinationDir == "" {
		job.DestinationDir = service.outputDir
	}

	task := &Task{ID: uuid.New(), Job: job, State: QUEUED}
	service.Lock()
	service.tasks = append(service.tasks, task)
	service.Unlock()

	log.Emit(logger.NEW, "Scheduled visual summary %s for item %s (every %vs)\n", task.ID, job.ItemID, job.Interval)
	service.eventBus.Dispatch(event.FRAMES_UPDATE, task.ID)
	if err := service.workerPool.WakeupWorkers(); err != nil {
		log.Debugf("Visual summary %s queued before service start: %v\n", task.ID, err)
	}

	return task.ID, nil
}

// Summarize schedules a visual summary for an item already present in the
// knowledge store, using the media file recorded against it.
func (service *frameService) Summarize(itemID string, interval float64) (uuid.UUID, error) {
	item, err := service.store.GetItem(itemID)
	if err != nil {
		return uuid.Nil, err
	}

	if item.MediaPath == nil || *item.MediaPath == "" {
		return uuid.Nil, &pipeline.InvalidRequestError{Field: "media_path", Reason: fmt.Sprintf("item %s has no media file to summarize", itemID)}
	}

	return service.Schedule(Job{ItemID: itemID, MediaPath: *item.MediaPath, Interval: interval})
}

// Task returns a snapshot of the task with the ID provided.
func (service *frameService) Task(id uuid.UUID) (Task, error) {
	service.Lock()
	defer service.Unlock()

	for _, task := range service.tasks {
		if task.ID == id {
			return *task, nil
		}
	}

	return Task{}, ErrTaskNotFound
}

// Tasks returns a snapshot of every task known to the service.
func (service *frameService) Tasks() []Task {
	service.Lock()
	defer service.Unlock()

	tasks := make([]Task, 0, len(service.tasks))
	for _, task := range service.tasks {
		tasks = append(tasks, *task)
	}

	return tasks
}

// executeTask is the worker function for the frameService. It claims the first
// QUEUED task and runs the extraction to completion.
func (service *frameService) executeTask(_ worker.Worker) (bool, error) {
	ctx := service.context()
	if ctx.Err() != nil {
		return false, nil
	}

	task := service.claimQueuedTask()
	if task == nil {
		return false, nil
	}

	service.eventBus.Dispatch(event.FRAMES_UPDATE, task.ID)
	job := task.Job
	count, err := service.extractor.Extract(ctx, job.ItemID, job.MediaPath, job.DestinationDir, job.Interval, func(count int, total int) {
		service.updateTask(task, func(t *Task) {
			t.Samples = count
			t.Expected = total
		})
		service.eventBus.Dispatch(event.FRAMES_UPDATE, task.ID)
	})

	outcome := pipeline.OutcomeFor(err, nil)
	if err != nil {
		if count > 0 {
			outcome = pipeline.PARTIAL
		}
		log.Emit(logger.WARNING, "Visual summary %s for item %s stopped after %d samples: %v\n", task.ID, job.ItemID, count, err)
	} else {
		log.Emit(logger.SUCCESS, "Visual summary %s for item %s produced %d samples\n", task.ID, job.ItemID, count)
	}

	service.updateTask(task, func(t *Task) {
		t.State = COMPLETE
		t.Samples = count
		t.Outcome = outcome
		if err != nil {
			t.Error = err.Error()
		}
	})
	service.eventBus.Dispatch(event.FRAMES_COMPLETE, task.ID)

	return true, nil
}

// claimQueuedTask finds the first QUEUED task and marks it as RUNNING
// to prevent another worker from claiming it once the mutex is released.
func (service *frameService) claimQueuedTask() *Task {
	service.Lock()
	defer service.Unlock()

	for _, task := range service.tasks {
		if task.State == QUEUED {
			task.State = RUNNING
			return task
		}
	}

	return nil
}

func (service *frameService) updateTask(task *Task, update func(*Task)) {
	service.Lock()
	defer service.Unlock()

	update(task)
}

func (service *frameService) context() context.Context {
	service.Lock()
	defer service.Unlock()

	if service.ctx == nil {
		return context.Background()
	}

	return service.ctx
}
