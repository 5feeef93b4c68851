package api

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"github.com/hbomb79/Mnemo/internal/api/downloads"
	"github.com/hbomb79/Mnemo/internal/api/items"
	"github.com/hbomb79/Mnemo/internal/api/search"
	"github.com/hbomb79/Mnemo/internal/api/util"
	"github.com/hbomb79/Mnemo/internal/http/websocket"
	"github.com/hbomb79/Mnemo/pkg/logger"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

var log = logger.Get("API")

const API_PREFIX = "/api/mnemo/v1"

type (
	RestConfig struct {
		HostAddr string `yaml:"host_address" env:"API_HOST_ADDR" env-default:"0.0.0.0:8080"`
	}

	controller interface {
		SetRoutes(*echo.Group)
	}

	// dataStore represents a union of all the controller store requirements
	dataStore interface {
		items.Store
		search.Store
	}

	// The RestGateway is a thin-wrapper around the Echo HTTP router. It's sole responsbility
	// is to create the routes Mnemo exposes, and to manage ongoing web socket connections and events.
	RestGateway struct {
		*broadcaster
		config             *RestConfig
		ec                 *echo.Echo
		socket             *websocket.SocketHub
		downloadController controller
		itemController     controller
		searchController   controller
		statsController    controller
	}
)

// NewRestGateway constructs the Echo router and populates it with all the
// routes defined by the various controllers.
func NewRestGateway(
	config *RestConfig,
	downloadService DownloadService,
	frameService FrameService,
	store dataStore,
) *RestGateway {
	ec := echo.New()
	ec.OnAddRouteHandler = func(host string, route echo.Route, handler echo.HandlerFunc, middleware []echo.MiddlewareFunc) {
		log.Emit(logger.DEBUG, "Registered new route %s %s\n", route.Method, route.Path)
	}
	ec.HidePort = true
	ec.HideBanner = true
	ec.HTTPErrorHandler = util.GetHTTPErrorHandler(ec.DefaultHTTPErrorHandler)

	socket := websocket.New()
	gateway := &RestGateway{
		broadcaster:        newBroadcaster(socket, downloadService, frameService),
		config:             config,
		ec:                 ec,
		socket:             socket,
		downloadController: downloads.New(downloadService),
		itemController:     items.New(store, frameService),
		searchController:   search.New(store),
		statsController:    search.NewStats(store),
	}

	newSocketGateway(downloadService, store).bind(socket)
	socket.WithConnectionCallback(func() map[string]interface{} {
		return map[string]interface{}{"downloads": downloadService.Operations()}
	})

	ec.Use(middleware.Logger())
	ec.Use(middleware.Recover())
	ec.Pre(middleware.AddTrailingSlash())

	ec.GET(API_PREFIX+"/activity/ws/", func(ec echo.Context) error {
		gateway.socket.UpgradeToSocket(ec.Response(), ec.Request())
		return nil
	})

	gateway.downloadController.SetRoutes(ec.Group(API_PREFIX + "/downloads"))
	gateway.itemController.SetRoutes(ec.Group(API_PREFIX + "/items"))
	gateway.searchController.SetRoutes(ec.Group(API_PREFIX + "/search"))
	gateway.statsController.SetRoutes(ec.Group(API_PREFIX + "/stats"))

	return gateway
}

// ServeHTTP allows the gateway to be used as a plain http.Handler, without
// starting the listener or activity socket.
func (gateway *RestGateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	gateway.ec.ServeHTTP(w, r)
}

func (gateway *RestGateway) Run(parentCtx context.Context) error {
	ctx, ctxCancel := context.WithCancelCause(parentCtx)
	wg := &sync.WaitGroup{}

	// Start echo router
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := gateway.ec.Start(gateway.config.HostAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			ctxCancel(err)
		}
	}()

	// Start thread to listen for context cancellation
	go func(ec *echo.Echo) {
		<-ctx.Done()
		ec.Close()
	}(gateway.ec)

	// Start websocket
	wg.Add(1)
	go func() {
		defer wg.Done()
		gateway.socket.Start(ctx)
	}()

	log.Emit(logger.SUCCESS, "REST gateway listening on %s\n", gateway.config.HostAddr)
	wg.Wait()

	// Return cancellation cause if any, otherwise nil as parent context
	// cancellation is not an error case we should report.
	if cause := context.Cause(ctx); cause != ctx.Err() {
		return cause
	}

	return nil
}
