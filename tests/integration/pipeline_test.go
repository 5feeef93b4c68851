package integration_test

import (
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hbomb79/Mnemo/internal/http/websocket"
	"github.com/hbomb79/Mnemo/pkg/logger"
	"github.com/hbomb79/Mnemo/tests/helpers"
	"github.com/hbomb79/go-chanassert"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	logger.SetMinLoggingLevel(logger.VERBOSE.Level())
}

// awaitWelcome consumes the welcome message sent by the server when the
// activity socket is first connected.
func awaitWelcome(t *testing.T, messages chan websocket.SocketMessage) websocket.SocketMessage {
	select {
	case message := <-messages:
		require.Equal(t, websocket.Welcome, message.Type)
		return message
	case <-time.After(time.Second * 5):
		t.Fatal("no welcome message received from activity socket")
	}

	return websocket.SocketMessage{}
}

// TestDownload_LaunchFailure ensures that a download whose retrieval
// tool cannot be started completes with a FAILURE outcome, and that
// the completion is broadcast over the activity socket.
func TestDownload_LaunchFailure(t *testing.T) {
	srv := helpers.RequireMnemo(t, helpers.NewMnemoServiceRequest(t))

	messages := srv.ActivityChannel(t)
	awaitWelcome(t, messages)

	status, body := srv.Do(t, http.MethodPost, "/downloads/", `{"source_url": "https://www.youtube.com/watch?v=abc123", "knowledge_base": true}`)
	require.Equal(t, http.StatusAccepted, status, "%v", body)
	id := body.(map[string]any)["id"].(string)

	exp := chanassert.NewChannelExpecter(messages).Expect(
		chanassert.ExactlyNOf(1, helpers.MatchDownloadOutcome(id, "FAILURE")),
	)
	exp.Listen()
	exp.AssertSatisfied(t, time.Second*5)

	status, body = srv.Do(t, http.MethodGet, "/downloads/"+id+"/", "")
	require.Equal(t, http.StatusOK, status)
	operation := body.(map[string]any)
	assert.Equal(t, "COMPLETE", operation["state"])
	assert.NotEmpty(t, operation["error"])

	status, body = srv.Do(t, http.MethodGet, "/stats/", "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(0), body.(map[string]any)["items"], "a failed download must not ingest anything")
}

// TestDownload_ProcessFailureCarriesTail ensures that a retrieval tool which
// exits non-zero fails the download with the tail of its output.
func TestDownload_ProcessFailureCarriesTail(t *testing.T) {
	script := filepath.Join(t.TempDir(), "yt-dlp")
	require.NoError(t, os.WriteFile(script, []byte("#!/bin/sh\nsleep 3\necho 'ERROR: [youtube] abc123: Video unavailable'\nexit 1\n"), 0o755))

	srv := helpers.RequireMnemo(t, helpers.NewMnemoServiceRequest(t).WithYtDlpPath(script))
	messages := srv.ActivityChannel(t)
	awaitWelcome(t, messages)

	status, body := srv.Do(t, http.MethodPost, "/downloads/", `{"source_url": "https://www.youtube.com/watch?v=abc123"}`)
	require.Equal(t, http.StatusAccepted, status, "%v", body)
	id := body.(map[string]any)["id"].(string)

	exp := chanassert.NewChannelExpecter(messages).Expect(
		chanassert.ExactlyNOf(1, helpers.MatchDownloadOutcome(id, "FAILURE")),
	)
	exp.Listen()

	time.Sleep(time.Second)
	status, body = srv.Do(t, http.MethodGet, "/downloads/"+id+"/", "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "RUNNING", body.(map[string]any)["state"])

	exp.AssertSatisfied(t, time.Second*6)

	status, body = srv.Do(t, http.MethodGet, "/downloads/"+id+"/", "")
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, body.(map[string]any)["error"], "Video unavailable")
}

// TestDownload_WelcomeListsOperations ensures that clients connecting to the
// activity socket are told about the downloads the server is tracking.
func TestDownload_WelcomeListsOperations(t *testing.T) {
	srv := helpers.RequireMnemo(t, helpers.NewMnemoServiceRequest(t))

	status, _ := srv.Do(t, http.MethodPost, "/downloads/", `{"source_url": "https://www.youtube.com/watch?v=abc123"}`)
	require.Equal(t, http.StatusAccepted, status)

	welcome := awaitWelcome(t, srv.ActivityChannel(t))
	downloads, ok := welcome.Body["downloads"].([]any)
	require.True(t, ok, "welcome message should list downloads: %#v", welcome.Body)
	assert.Len(t, downloads, 1)
}

// TestSocket_SearchCommand ensures that clients can query the knowledge base
// over the activity socket.
func TestSocket_SearchCommand(t *testing.T) {
	srv := helpers.RequireMnemo(t, helpers.NewMnemoServiceRequest(t))

	ws := srv.ConnectToActivitySocket(t)
	var welcome websocket.SocketMessage
	require.NoError(t, ws.ReadJSON(&welcome))

	require.NoError(t, ws.WriteJSON(map[string]any{
		"title":     "SEARCH",
		"id":        3,
		"type":      websocket.Command,
		"arguments": map[string]any{"query": "relativity"},
	}))

	var reply websocket.SocketMessage
	require.NoError(t, ws.SetReadDeadline(time.Now().Add(time.Second*5)))
	require.NoError(t, ws.ReadJSON(&reply))
	assert.Equal(t, "COMMAND_SUCCESS", reply.Title)
	assert.Equal(t, websocket.Response, reply.Type)
	assert.Equal(t, 3, reply.Id)
	assert.Equal(t, "SEARCH", reply.Body["command"])
}

// TestAPI_NotFound ensures that missing items are reported with the
// API error format.
func TestAPI_NotFound(t *testing.T) {
	srv := helpers.RequireMnemo(t, helpers.NewMnemoServiceRequest(t))

	status, body := srv.Do(t, http.MethodGet, "/items/missing/", "")
	assert.Equal(t, http.StatusNotFound, status)
	assert.NotEmpty(t, body.(map[string]any)["message"])
	assert.NotEmpty(t, body.(map[string]any)["code"])
}
