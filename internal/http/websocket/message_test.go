package websocket_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/hbomb79/Mnemo/internal/http/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type startArguments struct {
	SourceURL string   `mapstructure:"source_url"`
	Languages []string `mapstructure:"languages"`
	Interval  float64  `mapstructure:"interval"`
	Playlist  bool     `mapstructure:"playlist"`
}

func Test_DecodeArguments(t *testing.T) {
	message := &websocket.SocketMessage{
		Title: "DOWNLOAD_START",
		Body: map[string]interface{}{
			"source_url": "https://example.com/v",
			"languages":  []interface{}{"en", "fr"},
			"interval":   float64(15),
			"playlist":   true,
		},
	}

	var args startArguments
	require.NoError(t, message.DecodeArguments(&args))
	assert.Equal(t, startArguments{SourceURL: "https://example.com/v", Languages: []string{"en", "fr"}, Interval: 15, Playlist: true}, args)
}

func Test_DecodeArguments_RejectsUnknownKeys(t *testing.T) {
	message := &websocket.SocketMessage{Title: "DOWNLOAD_START", Body: map[string]interface{}{"source": "x"}}

	var args startArguments
	assert.Error(t, message.DecodeArguments(&args))
}

func Test_ValidateArguments(t *testing.T) {
	message := &websocket.SocketMessage{Body: map[string]interface{}{"query": "foo", "limit": float64(3), "empty": ""}}

	assert.NoError(t, message.ValidateArguments(map[string]string{"query": "string", "limit": "number"}))
	assert.Error(t, message.ValidateArguments(map[string]string{"missing": "string"}))
	assert.Error(t, message.ValidateArguments(map[string]string{"empty": "string"}))
	assert.Error(t, message.ValidateArguments(map[string]string{"query": "number"}))
	assert.Error(t, message.ValidateArguments(map[string]string{"query": "bool"}))
}

func Test_FormReply(t *testing.T) {
	origin := uuid.New()
	message := &websocket.SocketMessage{Title: "SEARCH", Id: 42, Origin: &origin, Type: websocket.Command}

	reply := message.FormReply("COMMAND_SUCCESS", map[string]interface{}{"payload": 1}, websocket.Response)
	assert.Equal(t, 42, reply.Id)
	assert.Equal(t, &origin, reply.Target)
	assert.Equal(t, websocket.Response, reply.Type)
	assert.Equal(t, "SEARCH", reply.Body["command"])
}
