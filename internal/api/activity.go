package api

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/hbomb79/Mnemo/internal/api/downloads"
	"github.com/hbomb79/Mnemo/internal/api/items"
	"github.com/hbomb79/Mnemo/internal/download"
	"github.com/hbomb79/Mnemo/internal/frames"
	"github.com/hbomb79/Mnemo/internal/http/websocket"
	"github.com/hbomb79/Mnemo/internal/progress"
)

const (
	TITLE_DOWNLOAD_UPDATE   = "DOWNLOAD_UPDATE"
	TITLE_DOWNLOAD_PROGRESS = "DOWNLOAD_PROGRESS"
	TITLE_DOWNLOAD_COMPLETE = "DOWNLOAD_COMPLETE"
	TITLE_FRAMES_UPDATE     = "FRAMES_UPDATE"
	TITLE_FRAMES_COMPLETE   = "FRAMES_COMPLETE"
)

type (
	DownloadService interface {
		downloads.Service
	}

	FrameService interface {
		items.FrameService
		Task(id uuid.UUID) (frames.Task, error)
	}

	DownloadUpdate struct {
		OperationID uuid.UUID           `json:"operation_id"`
		Operation   *download.Operation `json:"operation"`
	}

	DownloadProgressUpdate struct {
		OperationID uuid.UUID       `json:"operation_id"`
		Progress    *progress.Event `json:"progress"`
	}

	FramesUpdate struct {
		TaskID uuid.UUID    `json:"task_id"`
		Task   *frames.Task `json:"task"`
	}

	broadcaster struct {
		socketHub       *websocket.SocketHub
		downloadService DownloadService
		frameService    FrameService
	}
)

func newBroadcaster(socketHub *websocket.SocketHub, downloadService DownloadService, frameService FrameService) *broadcaster {
	return &broadcaster{socketHub, downloadService, frameService}
}

func (hub *broadcaster) BroadcastDownloadUpdate(id uuid.UUID) error {
	return hub.broadcastDownload(TITLE_DOWNLOAD_UPDATE, id)
}

func (hub *broadcaster) BroadcastDownloadComplete(id uuid.UUID) error {
	return hub.broadcastDownload(TITLE_DOWNLOAD_COMPLETE, id)
}

// BroadcastDownloadProgress sends only the most recent progress of the download,
// rather than the entire operation.
func (hub *broadcaster) BroadcastDownloadProgress(id uuid.UUID) error {
	operation, err := hub.downloadService.Operation(id)
	if err != nil {
		return fmt.Errorf("failed to broadcast progress of download %s: %w", id, err)
	}

	hub.broadcast(TITLE_DOWNLOAD_PROGRESS, DownloadProgressUpdate{OperationID: id, Progress: operation.Progress})
	return nil
}

func (hub *broadcaster) BroadcastFramesUpdate(id uuid.UUID) error {
	return hub.broadcastFrames(TITLE_FRAMES_UPDATE, id)
}

func (hub *broadcaster) BroadcastFramesComplete(id uuid.UUID) error {
	return hub.broadcastFrames(TITLE_FRAMES_COMPLETE, id)
}

func (hub *broadcaster) broadcastDownload(title string, id uuid.UUID) error {
	operation, err := hub.downloadService.Operation(id)
	if err != nil {
		return fmt.Errorf("failed to broadcast %s for download %s: %w", title, id, err)
	}

	hub.broadcast(title, DownloadUpdate{OperationID: id, Operation: &operation})
	return nil
}

func (hub *broadcaster) broadcastFrames(title string, id uuid.UUID) error {
	if hub.frameService == nil {
		return fmt.Errorf("failed to broadcast %s for task %s: visual summaries are unavailable", title, id)
	}

	task, err := hub.frameService.Task(id)
	if err != nil {
		return fmt.Errorf("failed to broadcast %s for task %s: %w", title, id, err)
	}

	hub.broadcast(title, FramesUpdate{TaskID: id, Task: &task})
	return nil
}

func (hub *broadcaster) broadcast(title string, update any) {
	hub.socketHub.Send(&websocket.SocketMessage{
		Title: title,
		Body:  map[string]interface{}{"arguments": update},
		Type:  websocket.Update,
	})
}
