package internal

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hbomb79/Mnemo/internal/event"
	"github.com/hbomb79/Mnemo/pkg/logger"
)

const (
	DEBOUNCE_DURATION  time.Duration = time.Second * 2
	MAX_TIMER_DURATION time.Duration = time.Second * 5

	RAPID_EVENT_DEBOUNCE_DURATION  time.Duration = time.Millisecond * 500
	RAPID_EVENT_MAX_TIMER_DURATION time.Duration = time.Second * 2
)

type (
	broadcastHandler func(uuid.UUID) error

	broadcaster interface {
		BroadcastDownloadUpdate(uuid.UUID) error
		BroadcastDownloadProgress(uuid.UUID) error
		BroadcastDownloadComplete(uuid.UUID) error
		BroadcastFramesUpdate(uuid.UUID) error
		BroadcastFramesComplete(uuid.UUID) error
	}

	eventKey struct {
		ev event.Event
		id uuid.UUID
	}

	debounceDurations struct {
		debounce time.Duration
		max      time.Duration
	}

	// activityService listens for events on the event bus and forwards them to
	// the broadcaster. Update and progress events are debounced per resource so
	// that rapid changes do not flood connected clients. Completion events are
	// forwarded immediately, after cancelling any pending update for the resource.
	activityService struct {
		*sync.Mutex
		broadcaster
		eventBus       event.EventHandler
		debounceTimers map[eventKey]*time.Timer
		maxTimers      map[eventKey]*time.Timer
		standard       debounceDurations
		rapid          debounceDurations
	}
)

func newActivityService(broadcaster broadcaster, eventBus event.EventHandler) *activityService {
	return &activityService{
		Mutex:          &sync.Mutex{},
		broadcaster:    broadcaster,
		eventBus:       eventBus,
		debounceTimers: make(map[eventKey]*time.Timer),
		maxTimers:      make(map[eventKey]*time.Timer),
		standard:       debounceDurations{DEBOUNCE_DURATION, MAX_TIMER_DURATION},
		rapid:          debounceDurations{RAPID_EVENT_DEBOUNCE_DURATION, RAPID_EVENT_MAX_TIMER_DURATION},
	}
}

func (service *activityService) Run(ctx context.Context) error {
	messageChan := make(chan event.HandlerEvent, 100)
	service.eventBus.RegisterHandlerChannel(messageChan,
		event.DOWNLOAD_UPDATE, event.DOWNLOAD_PROGRESS, event.DOWNLOAD_COMPLETE,
		event.FRAMES_UPDATE, event.FRAMES_COMPLETE)

	log.Emit(logger.NEW, "Activity service started\n")
	for {
		select {
		case ev := <-messageChan:
			if err := service.handleEvent(ev); err != nil {
				log.Emit(logger.ERROR, "Handling of event %v failed: %v\n", ev.Event, err)
			}
		case <-ctx.Done():
			service.stopTimers()
			log.Emit(logger.STOP, "Activity service closed\n")
			return nil
		}
	}
}

func (service *activityService) handleEvent(ev event.HandlerEvent) error {
	switch ev.Event {
	case event.DOWNLOAD_UPDATE:
		return service.withResourceID(ev, func(id uuid.UUID) {
			service.scheduleEventBroadcast(eventKey{ev.Event, id}, service.BroadcastDownloadUpdate, service.standard)
		})
	case event.DOWNLOAD_PROGRESS:
		payload, ok := ev.Payload.(event.ProgressPayload)
		if !ok {
			return errors.New("illegal payload (expected ProgressPayload)")
		}
		service.scheduleEventBroadcast(eventKey{ev.Event, payload.OperationID}, service.BroadcastDownloadProgress, service.rapid)
	case event.DOWNLOAD_COMPLETE:
		return service.withResourceID(ev, func(id uuid.UUID) {
			service.cancelPending(eventKey{event.DOWNLOAD_UPDATE, id}, eventKey{event.DOWNLOAD_PROGRESS, id})
			service.broadcastNow(id, service.BroadcastDownloadComplete)
		})
	case event.FRAMES_UPDATE:
		return service.withResourceID(ev, func(id uuid.UUID) {
			service.scheduleEventBroadcast(eventKey{ev.Event, id}, service.BroadcastFramesUpdate, service.rapid)
		})
	case event.FRAMES_COMPLETE:
		return service.withResourceID(ev, func(id uuid.UUID) {
			service.cancelPending(eventKey{event.FRAMES_UPDATE, id})
			service.broadcastNow(id, service.BroadcastFramesComplete)
		})
	default:
		return errors.New("unknown event type")
	}

	return nil
}

func (service *activityService) withResourceID(ev event.HandlerEvent, handle func(uuid.UUID)) error {
	resourceID, ok := ev.Payload.(uuid.UUID)
	if !ok {
		return errors.New("illegal payload (expected UUID)")
	}

	handle(resourceID)
	return nil
}

func (service *activityService) scheduleEventBroadcast(resourceKey eventKey, handler broadcastHandler, durations debounceDurations) {
	service.Lock()
	defer service.Unlock()

	broadcaster := func() { service.broadcast(resourceKey, handler) }

	// Cancel and re-set a debounce timer
	if t, ok := service.debounceTimers[resourceKey]; ok {
		t.Stop()
	}
	service.debounceTimers[resourceKey] = time.AfterFunc(durations.debounce, broadcaster)

	// Set a max timer if not already set
	if _, ok := service.maxTimers[resourceKey]; !ok {
		service.maxTimers[resourceKey] = time.AfterFunc(durations.max, broadcaster)
	}
}

func (service *activityService) broadcast(resourceKey eventKey, handler broadcastHandler) {
	service.Lock()
	_, debouncePending := service.debounceTimers[resourceKey]
	_, maxPending := service.maxTimers[resourceKey]
	service.clearTimers(resourceKey)
	service.Unlock()

	// Both timers fire this function, so a broadcast which has already
	// occurred (or was cancelled) is not repeated
	if !debouncePending && !maxPending {
		return
	}

	service.broadcastNow(resourceKey.id, handler)
}

func (service *activityService) broadcastNow(id uuid.UUID, handler broadcastHandler) {
	if err := handler(id); err != nil {
		log.Emit(logger.WARNING, "Broadcast for %s failed: %v\n", id, err)
	}
}

func (service *activityService) cancelPending(keys ...eventKey) {
	service.Lock()
	defer service.Unlock()

	for _, key := range keys {
		service.clearTimers(key)
	}
}

func (service *activityService) stopTimers() {
	service.Lock()
	defer service.Unlock()

	for key := range service.debounceTimers {
		service.clearTimers(key)
	}
	for key := range service.maxTimers {
		service.clearTimers(key)
	}
}

// clearTimers stops and forgets the timers for the key. The caller must hold the lock.
func (service *activityService) clearTimers(resourceKey eventKey) {
	if t, ok := service.debounceTimers[resourceKey]; ok {
		t.Stop()
		delete(service.debounceTimers, resourceKey)
	}

	if t, ok := service.maxTimers[resourceKey]; ok {
		t.Stop()
		delete(service.maxTimers, resourceKey)
	}
}
