package api

import (
	"errors"
	"net/http"

	"fittrack/app/internal/service"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// errorStatuses maps service sentinels to HTTP status codes. First match wins.
var errorStatuses = []struct {
	err    error
	status int
}{
	{service.ErrInvalidInput, http.StatusBadRequest},
	{service.ErrInvalidResetToken, http.StatusBadRequest},
	{service.ErrVideoKeyMismatch, http.StatusBadRequest},
	{service.ErrSelfFriendRequest, http.StatusBadRequest},
	{service.ErrAuthenticationFailed, http.StatusUnauthorized},
	{service.ErrInvalidToken, http.StatusUnauthorized},
	{service.ErrForbidden, http.StatusForbidden},
	{service.ErrNotWorkoutCreator, http.StatusForbidden},
	{service.ErrSessionNotFound, http.StatusNotFound},
	{service.ErrWorkoutNotFound, http.StatusNotFound},
	{service.ErrUserNotFound, http.StatusNotFound},
	{service.ErrFriendRequestNotFound, http.StatusNotFound},
	{service.ErrUserAlreadyExists, http.StatusConflict},
	{service.ErrInvalidTransition, http.StatusConflict},
	{service.ErrDuplicateRequest, http.StatusConflict},
	{service.ErrAlreadyFriends, http.StatusConflict},
	{service.ErrRequestNotPending, http.StatusConflict},
	{service.ErrVideoStorageDisabled, http.StatusNotImplemented},
}

// respondWithServiceError writes the error body for err. Store failures become a
// retryable 503 so clients can offer a retry instead of giving up.
func respondWithServiceError(c *gin.Context, err error) {
	if errors.Is(err, service.ErrStoreUnavailable) {
		log.WithError(err).WithField("path", c.FullPath()).Warn("store unavailable")
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{
			"error":     "Service temporarily unavailable, please retry",
			"retryable": true,
		})
		return
	}
	for _, m := range errorStatuses {
		if errors.Is(err, m.err) {
			abortWithError(c, m.status, err.Error())
			return
		}
	}
	log.WithError(err).WithField("path", c.FullPath()).Error("unhandled service error")
	abortWithError(c, http.StatusInternalServerError, "An unexpected error occurred")
}
