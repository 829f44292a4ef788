package api

import (
	"net/http"
	"time"

	"fittrack/app/internal/schedule"
	"fittrack/app/internal/service"

	"github.com/gin-gonic/gin"
)

type ScheduleHandler struct {
	scheduleService service.ScheduleService
	defaultLoc      *time.Location
}

func NewScheduleHandler(scheduleService service.ScheduleService, defaultLoc *time.Location) *ScheduleHandler {
	return &ScheduleHandler{scheduleService: scheduleService, defaultLoc: defaultLoc}
}

// requestLocation resolves the optional tz query parameter (IANA name), falling back to def.
func requestLocation(c *gin.Context, def *time.Location) (*time.Location, bool) {
	tz := c.Query("tz")
	if tz == "" {
		return def, true
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Unknown time zone: "+tz)
		return nil, false
	}
	return loc, true
}

// GetSchedule godoc
// @Summary Calendar view
// @Description Marks overdue sessions missed, then returns day markers and the sessions of the selected date.
// @Tags Schedule
// @Produce json
// @Security BearerAuth
// @Param date query string false "Selected date, YYYY-MM-DD (default today)"
// @Param tz query string false "IANA time zone, e.g. Europe/Belgrade"
// @Success 200 {object} service.ScheduleView
// @Failure 503 {object} gin.H "Store unavailable, retryable"
// @Router /schedule [get]
func (h *ScheduleHandler) GetSchedule(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	loc, ok := requestLocation(c, h.defaultLoc)
	if !ok {
		return
	}

	var day time.Time
	if raw := c.Query("date"); raw != "" {
		parsed, err := schedule.ParseDate(raw, loc)
		if err != nil {
			abortWithError(c, http.StatusBadRequest, "date must be formatted as YYYY-MM-DD")
			return
		}
		day = parsed
	}

	view, err := h.scheduleService.GetSchedule(c.Request.Context(), userID, day, loc)
	if err != nil {
		respondWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// CompleteSession godoc
// @Summary Mark a session completed
// @Description Idempotent; completing a missed session is rejected. Returns the refreshed schedule.
// @Tags Schedule
// @Produce json
// @Security BearerAuth
// @Param sessionId path string true "Session ID"
// @Param tz query string false "IANA time zone"
// @Success 200 {object} service.CompletionResult
// @Failure 404 {object} gin.H "Session not found"
// @Failure 409 {object} gin.H "Session already missed"
// @Router /sessions/{sessionId}/complete [post]
func (h *ScheduleHandler) CompleteSession(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	sessionID, ok := pathObjectID(c, "sessionId")
	if !ok {
		return
	}
	loc, ok := requestLocation(c, h.defaultLoc)
	if !ok {
		return
	}

	res, err := h.scheduleService.CompleteSession(c.Request.Context(), userID, sessionID, loc)
	if err != nil {
		respondWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
