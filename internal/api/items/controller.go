package items

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/hbomb79/Mnemo/internal/api/util"
	"github.com/hbomb79/Mnemo/internal/knowledge"
	"github.com/labstack/echo/v4"
)

type (
	Store interface {
		ListItems() ([]*knowledge.Item, error)
		GetItem(itemID string) (*knowledge.Item, error)
		ListTranscripts(itemID string) ([]*knowledge.Transcript, error)
		ListFrameSamples(itemID string) ([]*knowledge.FrameSample, error)
	}

	FrameService interface {
		Summarize(itemID string, interval float64) (uuid.UUID, error)
	}

	// SummarizeRequest is the body accepted when requesting a visual summary. An
	// omitted interval uses the configured default.
	SummarizeRequest struct {
		Interval *float64 `json:"interval"`
	}

	SummarizeResponse struct {
		ID uuid.UUID `json:"id"`
	}

	// Controller is the struct which is responsible for defining the
	// routes for this controller. Additionally, it holds the reference to
	// the store used to retrieve items from the knowledge base.
	Controller struct {
		store        Store
		frameService FrameService
	}
)

func New(store Store, frameService FrameService) *Controller {
	return &Controller{store: store, frameService: frameService}
}

// SetRoutes accepts the Echo group for the item endpoints
// and sets the routes on them.
func (controller *Controller) SetRoutes(eg *echo.Group) {
	eg.GET("/", controller.list)
	eg.GET("/:id/", controller.get)
	eg.GET("/:id/transcripts/", controller.listTranscripts)
	eg.GET("/:id/frames/", controller.listFrames)
	eg.POST("/:id/frames/", controller.summarize)
}

func (controller *Controller) list(ec echo.Context) error {
	items, err := controller.store.ListItems()
	if err != nil {
		return util.ErrorFor(err)
	}

	return ec.JSON(http.StatusOK, items)
}

func (controller *Controller) get(ec echo.Context) error {
	item, err := controller.store.GetItem(ec.Param("id"))
	if err != nil {
		return util.ErrorFor(err)
	}

	return ec.JSON(http.StatusOK, item)
}

func (controller *Controller) listTranscripts(ec echo.Context) error {
	itemID := ec.Param("id")
	if err := controller.ensureExists(itemID); err != nil {
		return err
	}

	transcripts, err := controller.store.ListTranscripts(itemID)
	if err != nil {
		return util.ErrorFor(err)
	}

	return ec.JSON(http.StatusOK, transcripts)
}

func (controller *Controller) listFrames(ec echo.Context) error {
	itemID := ec.Param("id")
	if err := controller.ensureExists(itemID); err != nil {
		return err
	}

	samples, err := controller.store.ListFrameSamples(itemID)
	if err != nil {
		return util.ErrorFor(err)
	}

	return ec.JSON(http.StatusOK, samples)
}

// summarize schedules a visual summary of the item using the media
// file recorded against it. Extraction happens in the background.
func (controller *Controller) summarize(ec echo.Context) error {
	var request SummarizeRequest
	if ec.Request().ContentLength != 0 {
		if err := ec.Bind(&request); err != nil {
			return util.NewBadRequestError(fmt.Sprintf("JSON body illegal: %v", err))
		}
	}

	id, err := controller.frameService.Summarize(ec.Param("id"), util.NotNilOrDefault(request.Interval, 0))
	if err != nil {
		return util.ErrorFor(err)
	}

	return ec.JSON(http.StatusAccepted, SummarizeResponse{ID: id})
}

func (controller *Controller) ensureExists(itemID string) error {
	if _, err := controller.store.GetItem(itemID); err != nil {
		if errors.Is(err, knowledge.ErrItemNotFound) {
			return util.NewNotFoundError(fmt.Sprintf("item %s does not exist", itemID))
		}

		return util.ErrorFor(err)
	}

	return nil
}
