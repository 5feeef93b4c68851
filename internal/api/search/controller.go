package search

import (
	"net/http"

	"github.com/hbomb79/Mnemo/internal/api/util"
	"github.com/hbomb79/Mnemo/internal/knowledge"
	"github.com/labstack/echo/v4"
)

type (
	Store interface {
		Search(query string) ([]*knowledge.SearchResult, error)
		Stats() (knowledge.Stats, error)
	}

	// Controller serves the substring search over the knowledge base, and
	// the summary counts of its contents.
	Controller struct {
		store Store
	}

	StatsController struct {
		store Store
	}
)

func New(store Store) *Controller {
	return &Controller{store: store}
}

func NewStats(store Store) *StatsController {
	return &StatsController{store: store}
}

func (controller *Controller) SetRoutes(eg *echo.Group) {
	eg.GET("/", controller.search)
}

func (controller *StatsController) SetRoutes(eg *echo.Group) {
	eg.GET("/", controller.stats)
}

// search returns every transcript matching the 'q' query param. A blank
// query matches nothing.
func (controller *Controller) search(ec echo.Context) error {
	results, err := controller.store.Search(ec.QueryParam("q"))
	if err != nil {
		return util.ErrorFor(err)
	}

	return ec.JSON(http.StatusOK, results)
}

func (controller *StatsController) stats(ec echo.Context) error {
	stats, err := controller.store.Stats()
	if err != nil {
		return util.ErrorFor(err)
	}

	return ec.JSON(http.StatusOK, stats)
}
