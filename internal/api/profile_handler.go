package api

import (
	"net/http"

	"fittrack/app/internal/domain"
	"fittrack/app/internal/service"

	"github.com/gin-gonic/gin"
)

type ProfileHandler struct {
	profileService service.ProfileService
}

func NewProfileHandler(profileService service.ProfileService) *ProfileHandler {
	return &ProfileHandler{profileService: profileService}
}

// UpdateProfileRequest carries only the fields to change.
type UpdateProfileRequest struct {
	Name   *string  `json:"name"`
	Age    *int     `json:"age" binding:"omitempty,gt=0,lte=150"`
	Weight *float64 `json:"weight" binding:"omitempty,gt=0"`
	Height *float64 `json:"height" binding:"omitempty,gt=0"`
}

// GetMe godoc
// @Summary Current user's profile
// @Tags Profile
// @Produce json
// @Security BearerAuth
// @Success 200 {object} UserResponse
// @Router /me [get]
func (h *ProfileHandler) GetMe(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	user, err := h.profileService.GetProfile(c.Request.Context(), userID)
	if err != nil {
		respondWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, MapUserToResponse(user))
}

// UpdateMe godoc
// @Summary Update name, age, weight or height
// @Tags Profile
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param profile body UpdateProfileRequest true "Fields to update"
// @Success 200 {object} UserResponse
// @Failure 400 {object} gin.H "Invalid input"
// @Router /me [patch]
func (h *ProfileHandler) UpdateMe(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	var req UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	user, err := h.profileService.UpdateProfile(c.Request.Context(), userID, domain.ProfileUpdate{
		Name:   req.Name,
		Age:    req.Age,
		Weight: req.Weight,
		Height: req.Height,
	})
	if err != nil {
		respondWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, MapUserToResponse(user))
}
