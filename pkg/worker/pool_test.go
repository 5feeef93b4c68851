package worker_test

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/hbomb79/Mnemo/pkg/worker"
	"github.com/stretchr/testify/assert"
)

func Test_WorkerPool_ProcessesWorkOnWakeup(t *testing.T) {
	var pending atomic.Int32
	var processed atomic.Int32
	task := func(w worker.Worker) (bool, error) {
		if pending.Load() <= 0 {
			return false, nil
		}

		pending.Add(-1)
		processed.Add(1)
		return true, nil
	}

	pool := worker.NewWorkerPool()
	assert.NoError(t, pool.PushWorker(worker.NewWorker("test-0", task), worker.NewWorker("test-1", task)))
	assert.NoError(t, pool.Start())
	t.Cleanup(pool.Close)

	pending.Store(5)
	assert.NoError(t, pool.WakeupWorkers())

	assert.EventuallyWithT(t, func(c *assert.CollectT) {
		assert.Equal(c, int32(5), processed.Load())
	}, time.Second, 10*time.Millisecond)
}

func Test_WorkerPool_RejectsMisuse(t *testing.T) {
	pool := worker.NewWorkerPool()
	assert.Error(t, pool.WakeupWorkers(), "waking an unstarted pool must fail")

	assert.NoError(t, pool.Start())
	assert.Error(t, pool.Start(), "starting twice must fail")
	assert.Error(t, pool.PushWorker(worker.NewWorker("late", func(worker.Worker) (bool, error) { return false, nil })))

	pool.Close()
	assert.Error(t, pool.WakeupWorkers(), "waking a closed pool must fail")
}
