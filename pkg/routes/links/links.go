package links

import (
	"context"
	"net/http"
	"strconv"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/parklink/internal/repositories/parklink"
	"github.com/Ramsey-B/parklink/pkg/models"
)

type LinkReader interface {
	List(ctx context.Context, filter parklink.ListFilter) ([]models.ParkLink, error)
	GetByFederalPark(ctx context.Context, federalParkID string) (*models.ParkLink, error)
}

// GraphReader resolves SAME_AS edges from the identity graph
type GraphReader interface {
	SameAs(ctx context.Context, federalParkID string) (*models.ParkLink, error)
}

// Handler serves the park link routes. graph may be nil.
type Handler struct {
	links LinkReader
	graph GraphReader
}

func NewHandler(links LinkReader, graph GraphReader) *Handler {
	return &Handler{links: links, graph: graph}
}

// Register registers park link routes
func (h *Handler) Register(g *echo.Group) {
	g.GET("", h.ListLinks)
	g.GET("/federal/:federal_park_id", h.GetFederalParkLink)
	g.GET("/federal/:federal_park_id/same-as", h.GetSameAs)
}

// ListLinks lists persisted links with optional filters
func (h *Handler) ListLinks(c echo.Context) error {
	ctx := c.Request().Context()

	filter := parklink.ListFilter{
		FederalParkID:  c.QueryParam("federal_park_id"),
		WikidataParkID: c.QueryParam("wikidata_park_id"),
		RunID:          c.QueryParam("run_id"),
	}

	if raw := c.QueryParam("min_confidence"); raw != "" {
		minConfidence, err := strconv.ParseFloat(raw, 64)
		if err != nil || minConfidence < 0 || minConfidence > 1 {
			return httperror.NewHTTPError(http.StatusBadRequest, "min_confidence must be a number between 0 and 1")
		}
		filter.MinConfidence = minConfidence
	}
	if raw := c.QueryParam("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 {
			return httperror.NewHTTPError(http.StatusBadRequest, "limit must be a positive integer")
		}
		filter.Limit = limit
	}
	if raw := c.QueryParam("offset"); raw != "" {
		offset, err := strconv.Atoi(raw)
		if err != nil || offset < 0 {
			return httperror.NewHTTPError(http.StatusBadRequest, "offset must be a non-negative integer")
		}
		filter.Offset = offset
	}

	links, err := h.links.List(ctx, filter)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, links)
}

func (h *Handler) GetFederalParkLink(c echo.Context) error {
	link, err := h.links.GetByFederalPark(c.Request().Context(), c.Param("federal_park_id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, link)
}

// GetSameAs reads the link from the identity graph instead of the link table
func (h *Handler) GetSameAs(c echo.Context) error {
	if h.graph == nil {
		return httperror.NewHTTPError(http.StatusNotImplemented, "graph is not enabled")
	}

	federalParkID := c.Param("federal_park_id")
	link, err := h.graph.SameAs(c.Request().Context(), federalParkID)
	if err != nil {
		return err
	}
	if link == nil {
		return httperror.NewHTTPError(http.StatusNotFound, "no SAME_AS edge for federal park "+federalParkID)
	}
	return c.JSON(http.StatusOK, link)
}
