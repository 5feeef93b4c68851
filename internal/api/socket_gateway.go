package api

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/hbomb79/Mnemo/internal/api/search"
	"github.com/hbomb79/Mnemo/internal/download"
	"github.com/hbomb79/Mnemo/internal/http/websocket"
)

const (
	COMMAND_DOWNLOAD_START  = "DOWNLOAD_START"
	COMMAND_DOWNLOAD_CANCEL = "DOWNLOAD_CANCEL"
	COMMAND_SEARCH          = "SEARCH"

	REPLY_SUCCESS = "COMMAND_SUCCESS"
)

// socketGateway contains the handlers for the commands which clients
// may send over the activity socket.
type socketGateway struct {
	downloadService DownloadService
	store           search.Store
}

func newSocketGateway(downloadService DownloadService, store search.Store) *socketGateway {
	return &socketGateway{downloadService: downloadService, store: store}
}

func (gateway *socketGateway) bind(hub *websocket.SocketHub) {
	hub.BindCommand(COMMAND_DOWNLOAD_START, gateway.wsDownloadStart).
		BindCommand(COMMAND_DOWNLOAD_CANCEL, gateway.wsDownloadCancel).
		BindCommand(COMMAND_SEARCH, gateway.wsSearch)
}

// wsDownloadStart decodes the command arguments in to a download request and
// queues it, replying with the ID of the new operation.
func (gateway *socketGateway) wsDownloadStart(hub *websocket.SocketHub, message *websocket.SocketMessage) error {
	var request download.Request
	if err := message.DecodeArguments(&request); err != nil {
		return err
	}

	id, err := gateway.downloadService.Enqueue(request)
	if err != nil {
		return err
	}

	hub.Send(message.FormReply(REPLY_SUCCESS, map[string]interface{}{"payload": id}, websocket.Response))
	return nil
}

func (gateway *socketGateway) wsDownloadCancel(hub *websocket.SocketHub, message *websocket.SocketMessage) error {
	if err := message.ValidateArguments(map[string]string{"id": "string"}); err != nil {
		return err
	}

	id, err := uuid.Parse(message.Body["id"].(string))
	if err != nil {
		return fmt.Errorf("failed to cancel download - ID is not a valid UUID: %w", err)
	}

	if err := gateway.downloadService.Cancel(id); err != nil {
		return err
	}

	hub.Send(message.FormReply(REPLY_SUCCESS, map[string]interface{}{"payload": id}, websocket.Response))
	return nil
}

func (gateway *socketGateway) wsSearch(hub *websocket.SocketHub, message *websocket.SocketMessage) error {
	if err := message.ValidateArguments(map[string]string{"query": "string"}); err != nil {
		return err
	}

	results, err := gateway.store.Search(message.Body["query"].(string))
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	hub.Send(message.FormReply(REPLY_SUCCESS, map[string]interface{}{"payload": results}, websocket.Response))
	return nil
}
