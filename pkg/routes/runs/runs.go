package runs

import (
	"context"
	"net/http"
	"strconv"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	pctx "github.com/Ramsey-B/parklink/pkg/context"
	"github.com/Ramsey-B/parklink/pkg/models"
)

// RunService starts and reports on link runs
type RunService interface {
	Run(ctx context.Context, req models.StartLinkRunRequest) (*models.LinkRun, error)
	Get(ctx context.Context, id string) (*models.LinkRun, error)
	ListRecent(ctx context.Context, limit int) ([]models.LinkRun, error)
	Progress(ctx context.Context, runID string) (*models.LinkProgress, error)
}

// Handler serves the link run routes
type Handler struct {
	service   RunService
	validator *validator.Validate
	logger    ectologger.Logger
}

func NewHandler(service RunService, logger ectologger.Logger) *Handler {
	return &Handler{
		service:   service,
		validator: validator.New(),
		logger:    logger,
	}
}

// Register registers link run routes
func (h *Handler) Register(g *echo.Group) {
	g.POST("", h.StartLinkRun)
	g.GET("", h.ListLinkRuns)
	g.GET("/:id", h.GetLinkRun)
	g.GET("/:id/progress", h.GetLinkRunProgress)
}

// StartLinkRun runs a link pass synchronously and returns the finished run
func (h *Handler) StartLinkRun(c echo.Context) error {
	ctx := c.Request().Context()

	var req models.StartLinkRunRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := h.validator.Struct(req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	run, err := h.service.Run(ctx, req)
	if err != nil {
		// a run that reached the store is returned with its failure recorded
		if run != nil && run.Status == models.LinkRunStatusFailed {
			h.logger.WithContext(pctx.SetRunID(ctx, run.ID)).WithError(err).Warn("Link run finished with an error")
			return c.JSON(http.StatusInternalServerError, run)
		}
		return err
	}

	return c.JSON(http.StatusCreated, run)
}

// ListLinkRuns lists the most recent link runs
func (h *Handler) ListLinkRuns(c echo.Context) error {
	ctx := c.Request().Context()

	limit := 20
	if raw := c.QueryParam("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			return httperror.NewHTTPError(http.StatusBadRequest, "limit must be a positive integer")
		}
		limit = parsed
	}

	runs, err := h.service.ListRecent(ctx, limit)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, runs)
}

func (h *Handler) GetLinkRun(c echo.Context) error {
	run, err := h.service.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, run)
}

func (h *Handler) GetLinkRunProgress(c echo.Context) error {
	progress, err := h.service.Progress(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, progress)
}
