package downloads

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/hbomb79/Mnemo/internal/api/util"
	"github.com/hbomb79/Mnemo/internal/download"
	"github.com/labstack/echo/v4"
)

type (
	Service interface {
		Enqueue(request download.Request) (uuid.UUID, error)
		Operation(id uuid.UUID) (download.Operation, error)
		Operations() []download.Operation
		Cancel(id uuid.UUID) error
	}

	// CreatedResponse is returned when a download is accepted for processing
	CreatedResponse struct {
		ID uuid.UUID `json:"id"`
	}

	// Controller is the struct which is responsible for defining the
	// routes for this controller. Additionally, it holds the reference to
	// the service used to queue and inspect downloads.
	Controller struct {
		service Service
	}
)

func New(service Service) *Controller {
	return &Controller{service: service}
}

// SetRoutes accepts the Echo group for the download endpoints
// and sets the routes on them.
func (controller *Controller) SetRoutes(eg *echo.Group) {
	eg.GET("/", controller.list)
	eg.POST("/", controller.create)
	eg.GET("/:id/", controller.get)
	eg.DELETE("/:id/", controller.cancel)
}

func (controller *Controller) list(ec echo.Context) error {
	return ec.JSON(http.StatusOK, controller.service.Operations())
}

// create binds the JSON body to a download request and queues it. The
// response contains only the ID of the new operation; progress can be
// followed using the activity stream or by polling.
func (controller *Controller) create(ec echo.Context) error {
	var request download.Request
	if err := ec.Bind(&request); err != nil {
		return util.NewBadRequestError(fmt.Sprintf("JSON body illegal: %v", err))
	}

	id, err := controller.service.Enqueue(request)
	if err != nil {
		return util.ErrorFor(err)
	}

	return ec.JSON(http.StatusAccepted, CreatedResponse{ID: id})
}

func (controller *Controller) get(ec echo.Context) error {
	id, err := uuid.Parse(ec.Param("id"))
	if err != nil {
		return util.NewBadRequestError("Download ID is not a valid UUID")
	}

	operation, err := controller.service.Operation(id)
	if err != nil {
		return errorFor(err)
	}

	return ec.JSON(http.StatusOK, operation)
}

// cancel stops the download with the 'id' path param. Cancelling a download
// which has already completed is a conflict.
func (controller *Controller) cancel(ec echo.Context) error {
	id, err := uuid.Parse(ec.Param("id"))
	if err != nil {
		return util.NewBadRequestError("Download ID is not a valid UUID")
	}

	if err := controller.service.Cancel(id); err != nil {
		return errorFor(err)
	}

	return ec.NoContent(http.StatusOK)
}

func errorFor(err error) error {
	switch {
	case errors.Is(err, download.ErrOperationNotFound):
		return util.NewNotFoundError(err.Error())
	case errors.Is(err, download.ErrOperationComplete):
		return util.APIError{Status: http.StatusConflict, Code: util.CodeConflict, Message: err.Error()}
	}

	return util.ErrorFor(err)
}
