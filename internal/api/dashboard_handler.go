package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"fittrack/app/internal/sensor"
	"fittrack/app/internal/service"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

var errStreamWrite = errors.New("step stream write failed")

type DashboardHandler struct {
	dashboardService service.DashboardService
	defaultLoc       *time.Location
}

func NewDashboardHandler(dashboardService service.DashboardService, defaultLoc *time.Location) *DashboardHandler {
	return &DashboardHandler{dashboardService: dashboardService, defaultLoc: defaultLoc}
}

type RecordStepsRequest struct {
	Steps      int       `json:"steps" binding:"required,gt=0"`
	RecordedAt time.Time `json:"recordedAt"` // defaults to now
}

// GetDashboard godoc
// @Summary Home screen summary
// @Tags Dashboard
// @Produce json
// @Security BearerAuth
// @Param tz query string false "IANA time zone"
// @Success 200 {object} service.Dashboard
// @Router /dashboard [get]
func (h *DashboardHandler) GetDashboard(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	loc, ok := requestLocation(c, h.defaultLoc)
	if !ok {
		return
	}
	d, err := h.dashboardService.GetDashboard(c.Request.Context(), userID, loc)
	if err != nil {
		respondWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

// RecordSteps godoc
// @Summary Push a device step sample
// @Tags Dashboard
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param sample body RecordStepsRequest true "Steps since the previous sample"
// @Success 201 {object} domain.StepSample
// @Router /steps [post]
func (h *DashboardHandler) RecordSteps(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	var req RecordStepsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}
	sample, err := h.dashboardService.RecordSteps(c.Request.Context(), userID, req.Steps, req.RecordedAt)
	if err != nil {
		respondWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, sample)
}

// StreamSteps godoc
// @Summary Live step count (Server-Sent Events)
// @Description Emits a "steps" event with today's total, then one per recorded sample.
// @Tags Dashboard
// @Produce text/event-stream
// @Security BearerAuth
// @Param tz query string false "IANA time zone"
// @Router /dashboard/steps/stream [get]
func (h *DashboardHandler) StreamSteps(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	loc, ok := requestLocation(c, h.defaultLoc)
	if !ok {
		return
	}

	started := false
	err := h.dashboardService.WatchSteps(c.Request.Context(), userID, loc, func(u service.StepUpdate) error {
		if !started {
			c.Header("Cache-Control", "no-cache")
			c.Header("Connection", "keep-alive")
			c.Header("X-Accel-Buffering", "no")
			started = true
		}
		c.SSEvent("steps", u)
		if c.IsAborted() {
			return errStreamWrite
		}
		c.Writer.Flush()
		return nil
	})

	switch {
	case err == nil, errors.Is(err, context.Canceled), errors.Is(err, sensor.ErrClosed):
	case !started:
		respondWithServiceError(c, err)
	default:
		log.WithError(err).WithField("user_id", userID.Hex()).Debug("step stream ended")
	}
}
