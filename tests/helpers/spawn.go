package helpers

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/hbomb79/Mnemo/internal"
	"github.com/hbomb79/Mnemo/internal/api"
	"github.com/hbomb79/Mnemo/internal/database"
	"github.com/hbomb79/Mnemo/internal/download"
	"github.com/hbomb79/Mnemo/internal/frames"
)

var (
	mutex   = sync.Mutex{}
	portInc = 42067
)

func getNextPort() int {
	mutex.Lock()
	defer mutex.Unlock()

	portInc++
	return portInc
}

// MnemoServiceRequest describes the Mnemo instance a test requires. The
// zero value is not usable, use NewMnemoServiceRequest.
type MnemoServiceRequest struct {
	config internal.MnemoConfig
}

// NewMnemoServiceRequest returns a request for a Mnemo instance backed by a
// sqlite database, with the external tools pointed at paths which do not exist
// so that every retrieval fails at launch.
func NewMnemoServiceRequest(t *testing.T) *MnemoServiceRequest {
	dir := t.TempDir()
	return &MnemoServiceRequest{config: internal.MnemoConfig{
		Database: database.DatabaseConfig{Dialect: database.SQLITE, Path: filepath.Join(dir, "library.db")},
		Download: download.Config{
			YtDlpPath:      filepath.Join(dir, "bin", "yt-dlp"),
			DestinationDir: filepath.Join(dir, "downloads"),
			Parallelism:    1,
		},
		Frames: frames.Config{
			FfmpegPath:      filepath.Join(dir, "bin", "ffmpeg"),
			FfprobePath:     filepath.Join(dir, "bin", "ffprobe"),
			IntervalSeconds: 30,
			OutputDir:       filepath.Join(dir, "downloads"),
			Parallelism:     1,
		},
		LogLevel: "verbose",
	}}
}

func (req *MnemoServiceRequest) WithYtDlpPath(path string) *MnemoServiceRequest {
	req.config.Download.YtDlpPath = path
	return req
}

func (req *MnemoServiceRequest) String() string {
	return fmt.Sprintf("MnemoServiceRequest{db=%s yt-dlp=%s}", req.config.Database.Path, req.config.Download.YtDlpPath)
}

// RequireMnemo runs a Mnemo instance in-process, listening on a fresh port. This
// function will BLOCK until the instance is accepting HTTP requests. The instance
// is stopped when the test completes.
func RequireMnemo(t *testing.T, req *MnemoServiceRequest) *TestService {
	port := getNextPort()
	t.Logf("Spawning Mnemo on port %d for request %s\n", port, req)

	config := req.config
	config.RestAPI = api.RestConfig{HostAddr: fmt.Sprintf("127.0.0.1:%d", port)}

	mnemo, err := internal.New(config)
	if err != nil {
		t.Fatalf("failed to construct Mnemo: %s", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- mnemo.Run(ctx) }()

	service := &TestService{Port: port, cleanup: func(t *testing.T) {
		cancel()
		if err := <-done; err != nil {
			t.Errorf("Mnemo exited with error: %s", err)
		}
	}}
	t.Cleanup(func() { service.cleanup(t) })

	if err := service.waitForHealthy(time.Millisecond*50, time.Second*10); err != nil {
		t.Fatalf("Mnemo failed to become healthy: %s", err)
	}

	return service
}
