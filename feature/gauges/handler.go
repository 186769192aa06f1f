package gauges

import (
	"errors"
	"net/url"

	"github.com/jancika1998-netizen/Water-Level/core/logger"
	"github.com/jancika1998-netizen/Water-Level/feature/gauges/models"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Handler handles HTTP requests for gauge data.
type Handler struct {
	service *Service
}

// NewHandler creates a new HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes registers the gauge routes.
func (h *Handler) RegisterRoutes(app fiber.Router) {
	group := app.Group("/gauges")
	group.Get("/data", h.HandleSnapshot)
	group.Get("/history/:station", h.HandleHistory)
	group.Get("/history/:station/csv", h.HandleHistoryCSV)
	group.Post("/sync", h.HandleSync)
}

// HandleSnapshot returns the latest reading for every known station.
// @Summary Get Station Snapshot
// @Description Get the latest persisted reading for each station in the directory.
// @Tags gauges
// @Produce json
// @Success 200 {array} models.StationStatus "Station Snapshot"
// @Failure 503 {object} map[string]string "Store Unavailable"
// @Router /gauges/data [get]
func (h *Handler) HandleSnapshot(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)

	snapshot, err := h.service.Snapshot(c.Context())
	if err != nil {
		l.Error("Snapshot query failed", zap.Error(err))
		return errorResponse(c, err)
	}

	return c.JSON(snapshot)
}

// HandleHistory returns the full reading history for one station.
// @Summary Get Station History
// @Description Get the ordered reading log for a single station.
// @Tags gauges
// @Produce json
// @Param station path string true "Station key (e.g. 'Blue_Nile_Station 1')"
// @Success 200 {array} models.HistoryRow "Station History"
// @Failure 503 {object} map[string]string "Store Unavailable"
// @Router /gauges/history/{station} [get]
func (h *Handler) HandleHistory(c *fiber.Ctx) error {
	station := stationParam(c)
	l := logger.WithRayID(h.service.logger, c)

	rows, err := h.service.History(c.Context(), station)
	if err != nil {
		l.Error("History query failed", zap.String("station", station), zap.Error(err))
		return errorResponse(c, err)
	}

	return c.JSON(rows)
}

// HandleHistoryCSV returns one station's history as a CSV download.
// @Summary Export Station History
// @Description Export the ordered reading log for a single station as CSV.
// @Tags gauges
// @Produce text/csv
// @Param station path string true "Station key (e.g. 'Blue_Nile_Station 1')"
// @Success 200 {string} string "CSV Export"
// @Failure 503 {object} map[string]string "Store Unavailable"
// @Router /gauges/history/{station}/csv [get]
func (h *Handler) HandleHistoryCSV(c *fiber.Ctx) error {
	station := stationParam(c)
	l := logger.WithRayID(h.service.logger, c)

	data, err := h.service.HistoryCSV(c.Context(), station)
	if err != nil {
		l.Error("History export failed", zap.String("station", station), zap.Error(err))
		return errorResponse(c, err)
	}

	c.Set(fiber.HeaderContentType, "text/csv")
	c.Set(fiber.HeaderContentDisposition,
		`attachment; filename="`+models.NormalizeStationKey(station)+`.csv"`)
	return c.Send(data)
}

// HandleSync triggers a sync cycle immediately. The cycle runs inline on
// the request; the writer mutex serializes it against the scheduler.
// @Summary Trigger Sync
// @Description Run a sync cycle now. Incremental by default; pass full=true for a full-history cycle.
// @Tags gauges
// @Produce json
// @Param full query bool false "Run a full-history cycle"
// @Success 200 {object} models.SyncSummary "Sync Summary"
// @Failure 502 {object} map[string]string "Feed Unavailable"
// @Failure 503 {object} map[string]string "Store Unavailable"
// @Router /gauges/sync [post]
func (h *Handler) HandleSync(c *fiber.Ctx) error {
	mode := models.ModeIncremental
	if c.Query("full") == "true" {
		mode = models.ModeFull
	}
	l := logger.WithRayID(h.service.logger, c)

	summary, err := h.service.Sync(c.Context(), mode)
	if err != nil {
		l.Error("Manual sync failed", zap.String("mode", string(mode)), zap.Error(err))
		return errorResponse(c, err)
	}

	l.Info("Manual sync complete",
		zap.String("mode", string(mode)),
		zap.Int("stations_updated", summary.StationsUpdated),
		zap.Int("rows_appended", summary.RowsAppended))
	return c.JSON(fiber.Map{
		"status":           "success",
		"mode":             summary.Mode,
		"stations_updated": summary.StationsUpdated,
		"rows_appended":    summary.RowsAppended,
		"skipped":          summary.Skipped,
		"partial":          summary.Partial,
	})
}

// stationParam decodes the station path segment; keys may contain spaces.
func stationParam(c *fiber.Ctx) string {
	raw := c.Params("station")
	if decoded, err := url.PathUnescape(raw); err == nil {
		return decoded
	}
	return raw
}

// errorResponse maps the error taxonomy onto HTTP statuses.
func errorResponse(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	switch {
	case errors.Is(err, models.ErrFeedUnavailable):
		status = fiber.StatusBadGateway
	case errors.Is(err, models.ErrStoreUnavailable):
		status = fiber.StatusServiceUnavailable
	}
	return c.Status(status).JSON(fiber.Map{
		"error": err.Error(),
	})
}
