package helpers

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	gorillaws "github.com/gorilla/websocket"
	"github.com/hbomb79/Mnemo/internal/http/websocket"
)

const (
	ServerBasePathTemplate = "%s://127.0.0.1:%d/api/mnemo/v1/"
	ActivityPath           = "activity/ws/"
)

// TestService holds information about a running Mnemo
// instance which a test can make requests to.
type TestService struct {
	Port int

	cleanup func(t *testing.T)
}

func (service *TestService) GetServerBasePath() string {
	return fmt.Sprintf(ServerBasePathTemplate, "http", service.Port)
}

func (service *TestService) GetActivityURL() string {
	return fmt.Sprintf("%s%s", fmt.Sprintf(ServerBasePathTemplate, "ws", service.Port), ActivityPath)
}

func (service *TestService) ConnectToActivitySocket(t *testing.T) *gorillaws.Conn {
	dialer := gorillaws.Dialer{HandshakeTimeout: 5 * time.Second}

	// The socket hub starts alongside the HTTP server, so the first
	// attempts may be refused
	var (
		ws   *gorillaws.Conn
		resp *http.Response
		err  error
	)
	for attempt := 0; attempt < 20; attempt++ {
		if ws, resp, err = dialer.Dial(service.GetActivityURL(), make(map[string][]string)); err == nil {
			break
		}
		time.Sleep(time.Millisecond * 50)
	}
	if err != nil {
		t.Fatalf("failed to connect to activity socket: %s", err)
	}
	t.Logf("Connected: %v [%v]", ws.RemoteAddr(), resp.Status)
	t.Cleanup(func() { ws.Close() })

	return ws
}

// ActivityChannel connects to the activity socket and returns a channel which
// receives every message sent by the server (including the welcome message).
func (service *TestService) ActivityChannel(t *testing.T) chan websocket.SocketMessage {
	ws := service.ConnectToActivitySocket(t)
	messages := make(chan websocket.SocketMessage, 100)

	go func() {
		for {
			var message websocket.SocketMessage
			if err := ws.ReadJSON(&message); err != nil {
				return
			}

			messages <- message
		}
	}()

	return messages
}

// Do performs a request against the API, returning the status code and
// the decoded JSON body.
func (service *TestService) Do(t *testing.T, method string, path string, body string) (int, any) {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}

	request, err := http.NewRequest(method, service.GetServerBasePath()+strings.TrimPrefix(path, "/"), reader)
	if err != nil {
		t.Fatalf("failed to build request: %s", err)
	}
	request.Header.Set("Content-Type", "application/json")

	response, err := http.DefaultClient.Do(request)
	if err != nil {
		t.Fatalf("request %s %s failed: %s", method, path, err)
	}
	defer response.Body.Close()

	var decoded any
	if err := json.NewDecoder(response.Body).Decode(&decoded); err != nil && err != io.EOF {
		t.Fatalf("failed to decode response of %s %s: %s", method, path, err)
	}

	return response.StatusCode, decoded
}

func (service *TestService) String() string {
	return fmt.Sprintf("TestService{port=%d}", service.Port)
}

// waitForHealthy will ping the service (every pollFrequency) until the timeout is reached.
// If no successful request has been made when the timeout is reached, then the most
// recent error is returned to the caller, indicating that the service failed to become
// healthy (i.e. the service is not accepting HTTP connections).
func (service *TestService) waitForHealthy(pollFrequency time.Duration, timeout time.Duration) error {
	client := &http.Client{Timeout: pollFrequency * 4}
	attempts := timeout.Milliseconds() / pollFrequency.Milliseconds()
	for attempt := range attempts {
		response, err := client.Get(service.GetServerBasePath() + "stats/")
		if err == nil {
			response.Body.Close()
			if response.StatusCode == http.StatusOK {
				return nil
			}
			err = fmt.Errorf("unexpected status %d", response.StatusCode)
		}

		if attempt == attempts-1 {
			return err
		}
		time.Sleep(pollFrequency)
	}

	return nil
}
