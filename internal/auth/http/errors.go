package http

import (
	"errors"
	"net/http"

	fbauth "firebase.google.com/go/v4/auth"
	"github.com/gin-gonic/gin"
	"google.golang.org/api/googleapi"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/firekit-dev/firekit/internal/auth/domain"
	"github.com/firekit-dev/firekit/internal/avatars"
	"github.com/firekit-dev/firekit/internal/logging"
)

// writeError maps service errors to a status code and a JSON body. Identity
// Toolkit rejections carry the provider's error code, e.g. EMAIL_EXISTS.
func writeError(c *gin.Context, operation string, err error) {
	var apiErr *googleapi.Error
	switch {
	case errors.Is(err, domain.ErrUserNotFound), fbauth.IsUserNotFound(err):
		c.JSON(http.StatusNotFound, gin.H{"error": domain.ErrUserNotFound.Error()})
	case errors.Is(err, domain.ErrInvalidOAuthState):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrGoogleSignInDisabled), errors.Is(err, avatars.ErrStorageDisabled):
		c.JSON(http.StatusNotImplemented, gin.H{"error": err.Error()})
	case errors.Is(err, avatars.ErrUnsupportedType):
		c.JSON(http.StatusUnsupportedMediaType, gin.H{"error": err.Error()})
	case errors.Is(err, avatars.ErrTooLarge):
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": err.Error()})
	case errors.As(err, &apiErr) && apiErr.Code >= 400 && apiErr.Code < 500:
		c.JSON(apiErr.Code, gin.H{"error": apiErr.Message})
	case status.Code(err) == codes.Unavailable, status.Code(err) == codes.DeadlineExceeded:
		logging.NewLogger(c.Request.Context()).LogWarnf(operation, "backend unavailable: %v", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "backend unavailable"})
	default:
		logging.NewLogger(c.Request.Context()).LogError(operation, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
