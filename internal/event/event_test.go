package event_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/hbomb79/Mnemo/internal/event"
	"github.com/hbomb79/Mnemo/internal/progress"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_Dispatch_DeliversToFunctionsAndChannels(t *testing.T) {
	bus := event.New()
	id := uuid.New()

	received := make([]event.Payload, 0)
	bus.RegisterHandlerFunction(event.DOWNLOAD_UPDATE, func(_ event.Event, payload event.Payload) {
		received = append(received, payload)
	})

	ch := make(event.HandlerChannel, 2)
	bus.RegisterHandlerChannel(ch, event.DOWNLOAD_UPDATE, event.FRAMES_COMPLETE)

	bus.Dispatch(event.DOWNLOAD_UPDATE, id)
	bus.Dispatch(event.FRAMES_COMPLETE, id)

	assert.Equal(t, []event.Payload{id}, received)
	require.Len(t, ch, 2)
	assert.Equal(t, event.HandlerEvent{Event: event.DOWNLOAD_UPDATE, Payload: id}, <-ch)
	assert.Equal(t, event.HandlerEvent{Event: event.FRAMES_COMPLETE, Payload: id}, <-ch)
}

func Test_Dispatch_RejectsInvalidPayloads(t *testing.T) {
	bus := event.New()
	ch := make(event.HandlerChannel, 4)
	bus.RegisterHandlerChannel(ch, event.DOWNLOAD_UPDATE, event.DOWNLOAD_PROGRESS)

	bus.Dispatch(event.DOWNLOAD_UPDATE, "not a uuid")
	bus.Dispatch(event.DOWNLOAD_PROGRESS, uuid.New())
	bus.Dispatch(event.Event("unknown"), uuid.New())
	assert.Empty(t, ch)

	progressPayload := event.ProgressPayload{OperationID: uuid.New(), Progress: progress.Event{Kind: progress.KindProgress, Percent: 50}}
	bus.Dispatch(event.DOWNLOAD_PROGRESS, progressPayload)
	require.Len(t, ch, 1)
	assert.Equal(t, progressPayload, (<-ch).Payload)
}
