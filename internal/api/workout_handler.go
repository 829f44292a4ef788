package api

import (
	"net/http"
	"time"

	"fittrack/app/internal/domain"
	"fittrack/app/internal/service"

	"github.com/gin-gonic/gin"
)

type WorkoutHandler struct {
	workoutService service.WorkoutService
	defaultLoc     *time.Location
}

func NewWorkoutHandler(workoutService service.WorkoutService, defaultLoc *time.Location) *WorkoutHandler {
	return &WorkoutHandler{workoutService: workoutService, defaultLoc: defaultLoc}
}

// --- DTOs ---

type ExerciseRequest struct {
	Name string `json:"name" binding:"required"`
	Sets string `json:"sets" binding:"required"`
	Reps string `json:"reps" binding:"required"`
}

type CreateWorkoutRequest struct {
	Title         string            `json:"title" binding:"required"`
	Duration      string            `json:"duration" binding:"required"`
	Difficulty    string            `json:"difficulty" binding:"required"`
	Exercises     []ExerciseRequest `json:"exercises" binding:"required,min=1,dive"`
	VideoURL      string            `json:"videoUrl" binding:"omitempty,url"`
	ScheduledDate time.Time         `json:"scheduledDate" binding:"required"`
}

type CreateWorkoutResponse struct {
	Workout *domain.Workout        `json:"workout"`
	Session *domain.WorkoutSession `json:"session"`
}

type UpdateExercisesRequest struct {
	Exercises []ExerciseRequest `json:"exercises" binding:"required,min=1,dive"`
}

type ScheduleWorkoutRequest struct {
	ScheduledDate time.Time `json:"scheduledDate" binding:"required"`
}

type VideoUploadURLRequest struct {
	ContentType string `json:"contentType" binding:"required"`
}

type ConfirmVideoRequest struct {
	ObjectKey string `json:"objectKey" binding:"required"`
}

func mapExercises(in []ExerciseRequest) []domain.Exercise {
	out := make([]domain.Exercise, len(in))
	for i, e := range in {
		out[i] = domain.Exercise{Name: e.Name, Sets: e.Sets, Reps: e.Reps}
	}
	return out
}

// --- Handler Methods ---

// ListWorkouts godoc
// @Summary Workout library plus the user's own templates
// @Tags Workouts
// @Produce json
// @Security BearerAuth
// @Success 200 {array} domain.Workout
// @Router /workouts [get]
func (h *WorkoutHandler) ListWorkouts(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	workouts, err := h.workoutService.ListWorkouts(c.Request.Context(), userID)
	if err != nil {
		respondWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, workouts)
}

// CreateWorkout godoc
// @Summary Create a workout template and schedule its first session
// @Tags Workouts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param workout body CreateWorkoutRequest true "Template and first session date"
// @Success 201 {object} CreateWorkoutResponse
// @Failure 400 {object} gin.H "Invalid input"
// @Router /workouts [post]
func (h *WorkoutHandler) CreateWorkout(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	var req CreateWorkoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	workout, session, err := h.workoutService.CreateWorkout(c.Request.Context(), userID, service.CreateWorkoutInput{
		Title:         req.Title,
		Duration:      req.Duration,
		Difficulty:    req.Difficulty,
		Exercises:     mapExercises(req.Exercises),
		VideoURL:      req.VideoURL,
		ScheduledDate: req.ScheduledDate,
	})
	if err != nil {
		respondWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, CreateWorkoutResponse{Workout: workout, Session: session})
}

// GetStats godoc
// @Summary Library size and the user's completed and missed session counts
// @Tags Workouts
// @Produce json
// @Security BearerAuth
// @Success 200 {object} service.WorkoutStats
// @Router /workouts/stats [get]
func (h *WorkoutHandler) GetStats(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	loc, ok := requestLocation(c, h.defaultLoc)
	if !ok {
		return
	}
	stats, err := h.workoutService.GetStats(c.Request.Context(), userID, loc)
	if err != nil {
		respondWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// GetWorkout godoc
// @Summary Workout template details
// @Tags Workouts
// @Produce json
// @Security BearerAuth
// @Param workoutId path string true "Workout ID"
// @Success 200 {object} service.WorkoutDetails
// @Failure 404 {object} gin.H "Workout not found"
// @Router /workouts/{workoutId} [get]
func (h *WorkoutHandler) GetWorkout(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	workoutID, ok := pathObjectID(c, "workoutId")
	if !ok {
		return
	}
	details, err := h.workoutService.GetWorkout(c.Request.Context(), userID, workoutID)
	if err != nil {
		respondWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, details)
}

// UpdateExercises godoc
// @Summary Replace a template's exercises (creator only)
// @Tags Workouts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param workoutId path string true "Workout ID"
// @Param exercises body UpdateExercisesRequest true "New exercise list"
// @Success 200 {object} domain.Workout
// @Failure 403 {object} gin.H "Not the creator"
// @Router /workouts/{workoutId}/exercises [put]
func (h *WorkoutHandler) UpdateExercises(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	workoutID, ok := pathObjectID(c, "workoutId")
	if !ok {
		return
	}
	var req UpdateExercisesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}
	workout, err := h.workoutService.UpdateExercises(c.Request.Context(), userID, workoutID, mapExercises(req.Exercises))
	if err != nil {
		respondWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, workout)
}

// ScheduleWorkout godoc
// @Summary Schedule a session of a template
// @Tags Workouts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param workoutId path string true "Workout ID"
// @Param request body ScheduleWorkoutRequest true "Session date"
// @Success 201 {object} domain.WorkoutSession
// @Router /workouts/{workoutId}/schedule [post]
func (h *WorkoutHandler) ScheduleWorkout(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	workoutID, ok := pathObjectID(c, "workoutId")
	if !ok {
		return
	}
	var req ScheduleWorkoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}
	session, err := h.workoutService.ScheduleWorkout(c.Request.Context(), userID, workoutID, req.ScheduledDate)
	if err != nil {
		respondWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, session)
}

// RequestVideoUploadURL godoc
// @Summary Presigned URL for uploading a demo video (creator only)
// @Tags Workouts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param workoutId path string true "Workout ID"
// @Param request body VideoUploadURLRequest true "Video content type"
// @Success 200 {object} service.UploadURLResponse
// @Router /workouts/{workoutId}/video/upload-url [post]
func (h *WorkoutHandler) RequestVideoUploadURL(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	workoutID, ok := pathObjectID(c, "workoutId")
	if !ok {
		return
	}
	var req VideoUploadURLRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}
	resp, err := h.workoutService.RequestVideoUpload(c.Request.Context(), userID, workoutID, req.ContentType)
	if err != nil {
		respondWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// ConfirmVideoUpload godoc
// @Summary Attach an uploaded video to the template (creator only)
// @Tags Workouts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param workoutId path string true "Workout ID"
// @Param request body ConfirmVideoRequest true "Object key from the upload URL response"
// @Success 200 {object} domain.Workout
// @Router /workouts/{workoutId}/video/confirm [post]
func (h *WorkoutHandler) ConfirmVideoUpload(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	workoutID, ok := pathObjectID(c, "workoutId")
	if !ok {
		return
	}
	var req ConfirmVideoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}
	workout, err := h.workoutService.ConfirmVideoUpload(c.Request.Context(), userID, workoutID, req.ObjectKey)
	if err != nil {
		respondWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, workout)
}
