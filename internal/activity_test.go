package internal

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/hbomb79/Mnemo/internal/event"
	"github.com/hbomb79/Mnemo/internal/progress"
	"github.com/hbomb79/Mnemo/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	logger.SetMinLoggingLevel(logger.VERBOSE.Level())
}

type recordingBroadcaster struct {
	sync.Mutex
	calls map[string][]uuid.UUID
}

func newRecordingBroadcaster() *recordingBroadcaster {
	return &recordingBroadcaster{calls: make(map[string][]uuid.UUID)}
}

func (b *recordingBroadcaster) record(kind string, id uuid.UUID) error {
	b.Lock()
	defer b.Unlock()
	b.calls[kind] = append(b.calls[kind], id)
	return nil
}

func (b *recordingBroadcaster) count(kind string) int {
	b.Lock()
	defer b.Unlock()
	return len(b.calls[kind])
}

func (b *recordingBroadcaster) BroadcastDownloadUpdate(id uuid.UUID) error {
	return b.record("download", id)
}

func (b *recordingBroadcaster) BroadcastDownloadProgress(id uuid.UUID) error {
	return b.record("progress", id)
}

func (b *recordingBroadcaster) BroadcastDownloadComplete(id uuid.UUID) error {
	return b.record("download-complete", id)
}

func (b *recordingBroadcaster) BroadcastFramesUpdate(id uuid.UUID) error {
	return b.record("frames", id)
}

func (b *recordingBroadcaster) BroadcastFramesComplete(id uuid.UUID) error {
	return b.record("frames-complete", id)
}

func startActivityService(t *testing.T, debounce time.Duration, max time.Duration) (*recordingBroadcaster, event.EventDispatcher) {
	bus := event.New()
	broadcaster := newRecordingBroadcaster()
	service := newActivityService(broadcaster, bus)
	service.standard = debounceDurations{debounce, max}
	service.rapid = debounceDurations{debounce, max}

	ctx, cancel := context.WithCancel(context.Background())
	wg := &sync.WaitGroup{}
	wg.Add(1)
	go func() {
		defer wg.Done()
		assert.NoError(t, service.Run(ctx))
	}()
	t.Cleanup(func() {
		cancel()
		wg.Wait()
	})

	require.Eventually(t, func() bool {
		bus.Dispatch(event.FRAMES_COMPLETE, uuid.Nil)
		return broadcaster.count("frames-complete") > 0
	}, time.Second, time.Millisecond*5, "activity service never started listening")

	// Discard the broadcasts used to detect startup
	broadcaster.Lock()
	broadcaster.calls = make(map[string][]uuid.UUID)
	broadcaster.Unlock()

	return broadcaster, bus
}

func Test_Activity_DebouncesRapidProgress(t *testing.T) {
	broadcaster, bus := startActivityService(t, time.Millisecond*50, time.Second)

	id := uuid.New()
	for i := 0; i < 10; i++ {
		bus.Dispatch(event.DOWNLOAD_PROGRESS, event.ProgressPayload{OperationID: id, Progress: progress.Event{Percent: float64(i * 10)}})
	}

	assert.EventuallyWithT(t, func(c *assert.CollectT) {
		assert.Equal(c, 1, broadcaster.count("progress"))
	}, time.Second, time.Millisecond*10)

	// No trailing broadcast from the max timer
	time.Sleep(time.Millisecond * 100)
	assert.Equal(t, 1, broadcaster.count("progress"))
}

func Test_Activity_MaxTimerForcesBroadcast(t *testing.T) {
	broadcaster, bus := startActivityService(t, time.Millisecond*80, time.Millisecond*150)

	id := uuid.New()
	deadline := time.Now().Add(time.Millisecond * 400)
	for time.Now().Before(deadline) {
		bus.Dispatch(event.DOWNLOAD_UPDATE, id)
		time.Sleep(time.Millisecond * 10)
	}

	assert.GreaterOrEqual(t, broadcaster.count("download"), 2, "a steady stream of updates must still be broadcast periodically")
}

func Test_Activity_DebouncesPerResource(t *testing.T) {
	broadcaster, bus := startActivityService(t, time.Millisecond*30, time.Second)

	first, second := uuid.New(), uuid.New()
	bus.Dispatch(event.FRAMES_UPDATE, first)
	bus.Dispatch(event.FRAMES_UPDATE, second)
	bus.Dispatch(event.FRAMES_UPDATE, first)

	assert.EventuallyWithT(t, func(c *assert.CollectT) {
		assert.Equal(c, 2, broadcaster.count("frames"))
	}, time.Second, time.Millisecond*10)
}

func Test_Activity_CompletionCancelsPendingUpdates(t *testing.T) {
	broadcaster, bus := startActivityService(t, time.Millisecond*100, time.Second)

	id := uuid.New()
	bus.Dispatch(event.DOWNLOAD_UPDATE, id)
	bus.Dispatch(event.DOWNLOAD_PROGRESS, event.ProgressPayload{OperationID: id})
	bus.Dispatch(event.DOWNLOAD_COMPLETE, id)

	assert.EventuallyWithT(t, func(c *assert.CollectT) {
		assert.Equal(c, 1, broadcaster.count("download-complete"))
	}, time.Second, time.Millisecond*10)

	time.Sleep(time.Millisecond * 200)
	assert.Zero(t, broadcaster.count("download"), "pending update should be dropped once the download completes")
	assert.Zero(t, broadcaster.count("progress"), "pending progress should be dropped once the download completes")
}

func Test_Activity_RejectsIllegalPayloads(t *testing.T) {
	service := newActivityService(newRecordingBroadcaster(), event.New())

	assert.Error(t, service.handleEvent(event.HandlerEvent{Event: event.DOWNLOAD_UPDATE, Payload: "not-a-uuid"}))
	assert.Error(t, service.handleEvent(event.HandlerEvent{Event: event.DOWNLOAD_PROGRESS, Payload: uuid.New()}))
	assert.Error(t, service.handleEvent(event.HandlerEvent{Event: event.Event("unknown"), Payload: uuid.New()}))
}
