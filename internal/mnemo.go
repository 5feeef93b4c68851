package internal

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/hbomb79/Mnemo/internal/api"
	"github.com/hbomb79/Mnemo/internal/database"
	"github.com/hbomb79/Mnemo/internal/download"
	"github.com/hbomb79/Mnemo/internal/event"
	"github.com/hbomb79/Mnemo/internal/frames"
	"github.com/hbomb79/Mnemo/internal/knowledge"
	"github.com/hbomb79/Mnemo/internal/process"
	"github.com/hbomb79/Mnemo/pkg/logger"
)

var log = logger.Get("Core")

type (
	RunnableService interface {
		Run(context.Context) error
	}

	DatabaseServer interface {
		database.Manager
	}

	RestGateway interface {
		RunnableService
		broadcaster
	}

	DownloadService interface {
		RunnableService
		Enqueue(download.Request) (uuid.UUID, error)
		Operation(uuid.UUID) (download.Operation, error)
		Operations() []download.Operation
		Cancel(uuid.UUID) error
	}

	FrameService interface {
		RunnableService
		Schedule(frames.Job) (uuid.UUID, error)
		Summarize(itemID string, interval float64) (uuid.UUID, error)
		Task(uuid.UUID) (frames.Task, error)
		Tasks() []frames.Task
	}
)

// Mnemo represents the top-level object for the server, and is responsible
// for initialising the database connection, services, event handling and
// the REST gateway.
type Mnemo struct {
	config          MnemoConfig
	db              DatabaseServer
	eventBus        event.EventCoordinator
	store           *knowledge.Service
	runner          *process.Runner
	downloadService DownloadService
	frameService    FrameService
	restGateway     RestGateway
	activityService *activityService
}

// New constructs every Mnemo service from the config provided. The database
// is not connected until Connect (or Run) is called, so construction errors
// indicate an invalid configuration rather than an unreachable database.
func New(config MnemoConfig) (*Mnemo, error) {
	log.Emit(logger.DEBUG, "Bootstrapping Mnemo services using config: %#v\n", config)
	mnemo := &Mnemo{
		config:   config,
		db:       database.New(),
		eventBus: event.New(),
		runner:   process.NewRunner(),
	}
	mnemo.store = knowledge.NewService(mnemo.db).WithFrameDedupe(config.Frames.Dedupe)

	if serv, err := frames.New(config.Frames, mnemo.runner, mnemo.store, mnemo.eventBus); err == nil {
		mnemo.frameService = serv
	} else {
		return nil, fmt.Errorf("failed to construct visual summary service: %w", err)
	}

	if serv, err := download.New(config.Download, mnemo.runner, download.NewYoutubeFetcher(), mnemo.store, mnemo.frameService, mnemo.eventBus); err == nil {
		mnemo.downloadService = serv
	} else {
		return nil, fmt.Errorf("failed to construct download service: %w", err)
	}

	mnemo.restGateway = api.NewRestGateway(&config.RestAPI, mnemo.downloadService, mnemo.frameService, mnemo.store)
	mnemo.activityService = newActivityService(mnemo.restGateway, mnemo.eventBus)

	return mnemo, nil
}

// Connect opens the knowledge base database and applies any pending migrations.
func (mnemo *Mnemo) Connect() error {
	log.Emit(logger.NEW, "Connecting to %s knowledge base...\n", mnemo.config.Database.Dialect)
	if err := mnemo.db.Connect(mnemo.config.Database); err != nil {
		return fmt.Errorf("failed to connect to knowledge base: %w", err)
	}

	return nil
}

func (mnemo *Mnemo) Close() error {
	return mnemo.db.Close()
}

// Run will start all of Mnemo by connecting to the database and bringing up
// the download and visual summary services, the activity broadcaster and the
// REST gateway.
//
// This function will not return until Mnemo is stopped.
// To stop Mnemo, the provided context must be cancelled. Errors from which Mnemo cannot recover
// will also cause Mnemo to stop.
func (mnemo *Mnemo) Run(parent context.Context) error {
	if err := mnemo.Connect(); err != nil {
		return err
	}
	defer mnemo.Close()

	return mnemo.spawn(parent, map[string]RunnableService{
		"download-service": mnemo.downloadService,
		"frames-service":   mnemo.frameService,
		"activity-service": mnemo.activityService,
		"rest-gateway":     mnemo.restGateway,
	})
}

// RunPipeline starts only the download and visual summary services, for use by
// callers which drive the services directly (rather than via the REST gateway).
// The database must already be connected.
func (mnemo *Mnemo) RunPipeline(parent context.Context) error {
	return mnemo.spawn(parent, map[string]RunnableService{
		"download-service": mnemo.downloadService,
		"frames-service":   mnemo.frameService,
	})
}

func (mnemo *Mnemo) spawn(parent context.Context, services map[string]RunnableService) error {
	ctx, cancel := context.WithCancelCause(parent)
	defer cancel(nil)

	crashHandler := func(label string, err error) {
		log.Emit(logger.FATAL, "Service crash (%s)! %s\n", label, err.Error())
		cancel(fmt.Errorf("service %s crashed: %w", label, err))
	}

	wg := &sync.WaitGroup{}
	for label, service := range services {
		mnemo.spawnAsyncService(ctx, wg, service, label, crashHandler)
	}
	log.Emit(logger.SUCCESS, "Mnemo services spawned!\n")

	wg.Wait()
	if cause := context.Cause(ctx); cause != ctx.Err() {
		return cause
	}

	return nil
}

// spawnAsyncService will run the provided service as it's own
// go-routine, ensuring that the service waitgroup is updated correctly
func (mnemo *Mnemo) spawnAsyncService(context context.Context, wg *sync.WaitGroup, service RunnableService, serviceLabel string, crashHandler func(string, error)) {
	log.Emit(logger.NEW, "Spawning %s\n", serviceLabel)
	wg.Add(1)

	go func(wg *sync.WaitGroup, label string, crash func(string, error)) {
		defer wg.Done()
		defer func() {
			if r := recover(); r != nil {
				crash(label, fmt.Errorf("panic %v", r))
			}
		}()

		if err := service.Run(context); err != nil {
			crash(label, err)
		}
	}(wg, serviceLabel, crashHandler)
}

func (mnemo *Mnemo) Store() *knowledge.Service { return mnemo.store }
func (mnemo *Mnemo) Downloads() DownloadService { return mnemo.downloadService }
func (mnemo *Mnemo) Frames() FrameService { return mnemo.frameService }
func (mnemo *Mnemo) EventBus() event.EventHandler { return mnemo.eventBus }
func (mnemo *Mnemo) Config() MnemoConfig { return mnemo.config }
