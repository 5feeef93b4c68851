package worker

import (
	"sync"

	"github.com/hbomb79/Mnemo/pkg/logger"
)

var log = logger.Get("Worker")

type (
	WakeupChan   chan int
	WorkerStatus int

	// TaskFn is the function a worker repeatedly executes. The boolean
	// return indicates whether any work was performed; when false the worker
	// goes to sleep until it is woken by the pool. A returned error
	// is logged and the worker sleeps.
	TaskFn func(Worker) (bool, error)

	Worker interface {
		Start()
		Status() WorkerStatus
		WakeupChan() WakeupChan
		Label() string
		Close()
	}

	taskWorker struct {
		sync.Mutex
		label         string
		task          TaskFn
		wakeupChan    WakeupChan
		currentStatus WorkerStatus
	}
)

const (
	SLEEPING WorkerStatus = iota
	WORKING
	FINISHED
)

func NewWorker(label string, task TaskFn) *taskWorker {
	return &taskWorker{
		label:         label,
		task:          task,
		wakeupChan:    make(WakeupChan, 1),
		currentStatus: SLEEPING,
	}
}

// Start runs the workers task until no more work is available, at which
// point the worker sleeps until it's woken. The worker exits once its
// wakeup channel is closed.
func (worker *taskWorker) Start() {
	log.Emit(logger.NEW, "Starting worker with label %s\n", worker.label)
	for {
		worker.setStatus(WORKING)
		for {
			didWork, err := worker.task(worker)
			if err != nil {
				log.Emit(logger.ERROR, "Worker %s reported an error (%T): %v\n", worker.label, err, err)
				break
			}
			if !didWork {
				break
			}
		}

		if !worker.sleep() {
			break
		}
	}

	worker.setStatus(FINISHED)
	log.Emit(logger.STOP, "Worker with label %s has stopped\n", worker.label)
}

func (worker *taskWorker) Status() WorkerStatus {
	worker.Lock()
	defer worker.Unlock()

	return worker.currentStatus
}

func (worker *taskWorker) WakeupChan() WakeupChan {
	return worker.wakeupChan
}

func (worker *taskWorker) Label() string {
	return worker.label
}

// Close closes the wakeup channel of the worker. A sleeping worker
// will exit immediately, a working worker will exit once
// its current task returns.
func (worker *taskWorker) Close() {
	close(worker.wakeupChan)
}

// sleep blocks until the wakeup channel is signalled. Returns
// false if the channel was closed, indicating the worker should exit.
func (worker *taskWorker) sleep() (isAlive bool) {
	worker.setStatus(SLEEPING)
	_, isAlive = <-worker.wakeupChan
	if !isAlive {
		log.Emit(logger.STOP, "Wakeup channel for worker '%s' has been closed - worker is exiting\n", worker.label)
	}

	return isAlive
}

func (worker *taskWorker) setStatus(status WorkerStatus) {
	worker.Lock()
	defer worker.Unlock()

	worker.currentStatus = status
}
