package api

import (
	"context"
	"net/http"

	"fittrack/app/internal/service"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type FriendHandler struct {
	friendService service.FriendService
}

func NewFriendHandler(friendService service.FriendService) *FriendHandler {
	return &FriendHandler{friendService: friendService}
}

type DiscoverRequest struct {
	Emails []string `json:"emails" binding:"required"`
}

type SendFriendRequest struct {
	ReceiverID string `json:"receiverId" binding:"required"`
}

// ListFriends godoc
// @Summary Accepted friends with names
// @Tags Friends
// @Produce json
// @Security BearerAuth
// @Success 200 {array} service.Friend
// @Router /friends [get]
func (h *FriendHandler) ListFriends(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	friends, err := h.friendService.ListFriends(c.Request.Context(), userID)
	if err != nil {
		respondWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, friends)
}

// SearchUsers godoc
// @Summary Find users by name prefix
// @Tags Friends
// @Produce json
// @Security BearerAuth
// @Param q query string true "Name prefix (case sensitive)"
// @Success 200 {array} service.UserSummary
// @Router /friends/search [get]
func (h *FriendHandler) SearchUsers(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	users, err := h.friendService.SearchUsers(c.Request.Context(), userID, c.Query("q"))
	if err != nil {
		respondWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, users)
}

// DiscoverContacts godoc
// @Summary Registered users among the device contacts
// @Description Only the first 30 distinct emails are matched.
// @Tags Friends
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body DiscoverRequest true "Contact emails"
// @Success 200 {array} service.UserSummary
// @Router /friends/discover [post]
func (h *FriendHandler) DiscoverContacts(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	var req DiscoverRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}
	users, err := h.friendService.DiscoverContacts(c.Request.Context(), userID, req.Emails)
	if err != nil {
		respondWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, users)
}

// SendRequest godoc
// @Summary Send a friend request
// @Tags Friends
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body SendFriendRequest true "Receiver"
// @Success 201 {object} domain.FriendRequest
// @Failure 409 {object} gin.H "Pending request exists or already friends"
// @Router /friends/requests [post]
func (h *FriendHandler) SendRequest(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	var req SendFriendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}
	receiverID, err := primitive.ObjectIDFromHex(req.ReceiverID)
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid receiverId format")
		return
	}
	created, err := h.friendService.SendRequest(c.Request.Context(), userID, receiverID)
	if err != nil {
		respondWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

// IncomingRequests godoc
// @Summary Pending requests sent to the user
// @Tags Friends
// @Produce json
// @Security BearerAuth
// @Success 200 {array} service.IncomingRequest
// @Router /friends/requests [get]
func (h *FriendHandler) IncomingRequests(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	requests, err := h.friendService.IncomingRequests(c.Request.Context(), userID)
	if err != nil {
		respondWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, requests)
}

// AcceptRequest godoc
// @Summary Accept a pending request (receiver only)
// @Tags Friends
// @Security BearerAuth
// @Param requestId path string true "Friend request ID"
// @Success 204
// @Router /friends/requests/{requestId}/accept [post]
func (h *FriendHandler) AcceptRequest(c *gin.Context) {
	h.answer(c, h.friendService.AcceptRequest)
}

// DeclineRequest godoc
// @Summary Decline a pending request (receiver only)
// @Tags Friends
// @Security BearerAuth
// @Param requestId path string true "Friend request ID"
// @Success 204
// @Router /friends/requests/{requestId}/decline [post]
func (h *FriendHandler) DeclineRequest(c *gin.Context) {
	h.answer(c, h.friendService.DeclineRequest)
}

func (h *FriendHandler) answer(c *gin.Context, fn func(ctx context.Context, userID, requestID primitive.ObjectID) error) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	requestID, ok := pathObjectID(c, "requestId")
	if !ok {
		return
	}
	if err := fn(c.Request.Context(), userID, requestID); err != nil {
		respondWithServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
