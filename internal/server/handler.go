package server

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/oceanobs/sst-server/internal/grid"
	"github.com/oceanobs/sst-server/internal/query"
)

// Handler handles HTTP requests for the temporal query API.
type Handler struct {
	service *query.Service
}

// NewHandler creates a new HTTP handler.
func NewHandler(service *query.Service) *Handler {
	return &Handler{service: service}
}

// GetTemperatures handles GET /temporal/temperatures.
func (h *Handler) GetTemperatures(c *gin.Context) {
	start, end, ok := h.dateWindow(c)
	if !ok {
		return
	}
	bbox, ok := h.bboxQuery(c)
	if !ok {
		return
	}
	limit, ok := h.intQuery(c, "limit", 1)
	if !ok {
		return
	}
	offset, ok := h.intQuery(c, "offset", 0)
	if !ok {
		return
	}

	resp, err := h.service.GetTemperatures(c.Request.Context(), query.TemperaturesParams{
		Start:      start,
		End:        end,
		Resolution: c.Query("resolution"),
		BBox:       bbox,
		Dataset:    c.Query("dataset"),
		Limit:      limit,
		Offset:     offset,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// GetAnomalies handles GET /temporal/anomalies.
func (h *Handler) GetAnomalies(c *gin.Context) {
	start, end, ok := h.dateWindow(c)
	if !ok {
		return
	}
	bbox, ok := h.bboxQuery(c)
	if !ok {
		return
	}
	threshold, ok := h.floatQuery(c, "threshold")
	if !ok {
		return
	}
	limit, ok := h.intQuery(c, "limit", 1)
	if !ok {
		return
	}
	offset, ok := h.intQuery(c, "offset", 0)
	if !ok {
		return
	}

	resp, err := h.service.GetAnomalies(c.Request.Context(), query.AnomaliesParams{
		Start:          start,
		End:            end,
		BaselinePeriod: c.Query("baseline"),
		BBox:           bbox,
		Dataset:        c.Query("dataset"),
		MinAbsAnomaly:  threshold,
		Limit:          limit,
		Offset:         offset,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// GetHeatwaves handles GET /temporal/heatwaves.
func (h *Handler) GetHeatwaves(c *gin.Context) {
	start, end, ok := h.dateWindow(c)
	if !ok {
		return
	}
	bbox, ok := h.bboxQuery(c)
	if !ok {
		return
	}
	percentile, ok := h.floatQueryMin(c, "threshold", query.MinPercentile)
	if !ok {
		return
	}
	duration, ok := h.intQuery(c, "duration", query.MinQueryDuration)
	if !ok {
		return
	}
	limit, ok := h.intQuery(c, "limit", 1)
	if !ok {
		return
	}
	offset, ok := h.intQuery(c, "offset", 0)
	if !ok {
		return
	}

	resp, err := h.service.GetHeatwaves(c.Request.Context(), query.HeatwavesParams{
		Start:       start,
		End:         end,
		BBox:        bbox,
		Percentile:  percentile,
		MinDuration: duration,
		Dataset:     c.Query("dataset"),
		Limit:       limit,
		Offset:      offset,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// GetAvailability handles GET /temporal/availability.
func (h *Handler) GetAvailability(c *gin.Context) {
	resp, err := h.service.GetAvailability(c.Request.Context(), c.Query("dataset"), c.Query("resolution"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// GetSummary handles GET /temporal/stats/summary.
func (h *Handler) GetSummary(c *gin.Context) {
	start, end, ok := h.dateWindow(c)
	if !ok {
		return
	}
	bbox, ok := h.bboxQuery(c)
	if !ok {
		return
	}

	resp, err := h.service.GetSummary(c.Request.Context(), query.SummaryParams{
		Start:      start,
		End:        end,
		BBox:       bbox,
		Dataset:    c.Query("dataset"),
		Resolution: c.Query("resolution"),
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// ClearCache handles POST /temporal/cache/clear.
func (h *Handler) ClearCache(c *gin.Context) {
	resp, err := h.service.ClearCache(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// HealthCheck handles GET /healthz.
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func (h *Handler) writeError(c *gin.Context, err error) {
	if query.IsValidationError(err) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}

// dateWindow parses the start_date and end_date parameters. Missing
// parameters pass through as zero times so the service can report
// which one is required.
func (h *Handler) dateWindow(c *gin.Context) (start, end time.Time, ok bool) {
	start, ok = h.dateQuery(c, "start_date")
	if !ok {
		return
	}
	end, ok = h.dateQuery(c, "end_date")
	return
}

func (h *Handler) dateQuery(c *gin.Context, name string) (time.Time, bool) {
	raw := c.Query(name)
	if raw == "" {
		return time.Time{}, true
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid %s (expected YYYY-MM-DD): %v", name, err)})
		return time.Time{}, false
	}
	return t, true
}

func (h *Handler) bboxQuery(c *gin.Context) (*grid.BBox, bool) {
	raw := c.Query("bbox")
	if raw == "" {
		return nil, true
	}
	bbox, err := grid.ParseBBox(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid bbox: %v", err)})
		return nil, false
	}
	return bbox, true
}

// intQuery parses an optional integer parameter. A present value below
// min is rejected; an absent one passes through as zero so the service
// applies its default. An explicit "0" is therefore an error for
// parameters whose minimum is 1, not a request for the default.
func (h *Handler) intQuery(c *gin.Context, name string, min int) (int, bool) {
	raw := c.Query(name)
	if raw == "" {
		return 0, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid %s: %v", name, err)})
		return 0, false
	}
	if v < min {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("%s must be at least %d, got %d", name, min, v)})
		return 0, false
	}
	return v, true
}

func (h *Handler) floatQuery(c *gin.Context, name string) (float64, bool) {
	raw := c.Query(name)
	if raw == "" {
		return 0, true
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid %s: %v", name, err)})
		return 0, false
	}
	return v, true
}

func (h *Handler) floatQueryMin(c *gin.Context, name string, min float64) (float64, bool) {
	v, ok := h.floatQuery(c, name)
	if !ok {
		return 0, false
	}
	if c.Query(name) != "" && v < min {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("%s must be at least %g, got %g", name, min, v)})
		return 0, false
	}
	return v, true
}
