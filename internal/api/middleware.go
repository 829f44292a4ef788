package api

import (
	"errors"
	"net/http"
	"strings"

	"fittrack/app/internal/service"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Constants for context keys
const (
	ContextUserIDKey = "userID"
	ContextClaimsKey = "claims"
)

// AuthMiddleware creates a Gin middleware for JWT authentication.
// Revoked (signed out) tokens are rejected like expired ones.
func AuthMiddleware(authService service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abortWithError(c, http.StatusUnauthorized, "Authorization header is missing")
			return
		}

		// Expecting "Bearer <token>"
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			abortWithError(c, http.StatusUnauthorized, "Authorization header format must be Bearer {token}")
			return
		}

		claims, err := authService.ParseToken(c.Request.Context(), parts[1])
		if err != nil {
			if errors.Is(err, service.ErrStoreUnavailable) {
				respondWithServiceError(c, err)
				return
			}
			abortWithError(c, http.StatusUnauthorized, "Invalid or expired token")
			return
		}

		c.Set(ContextUserIDKey, claims.UserID) // hex string
		c.Set(ContextClaimsKey, claims)
		c.Next()
	}
}

// Helper to return JSON error response and abort request
func abortWithError(c *gin.Context, code int, message string) {
	c.AbortWithStatusJSON(code, gin.H{"error": message})
}

// Helper function to get User ID from context (used by handlers)
func getUserIDFromContext(c *gin.Context) (primitive.ObjectID, error) {
	idRaw, exists := c.Get(ContextUserIDKey)
	if !exists {
		return primitive.NilObjectID, errors.New("user ID not found in context")
	}
	idStr, ok := idRaw.(string)
	if !ok {
		return primitive.NilObjectID, errors.New("invalid user ID type in context")
	}
	return primitive.ObjectIDFromHex(idStr)
}

// currentUserID aborts with 401 when the request carries no usable user id.
func currentUserID(c *gin.Context) (primitive.ObjectID, bool) {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify user from token")
		return primitive.NilObjectID, false
	}
	return userID, true
}

func getClaimsFromContext(c *gin.Context) (*service.Claims, bool) {
	raw, exists := c.Get(ContextClaimsKey)
	if !exists {
		return nil, false
	}
	claims, ok := raw.(*service.Claims)
	return claims, ok
}

// pathObjectID parses an ObjectID path parameter, aborting with 400 when malformed.
func pathObjectID(c *gin.Context, param string) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(c.Param(param))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid "+param+" format")
		return primitive.NilObjectID, false
	}
	return id, true
}
