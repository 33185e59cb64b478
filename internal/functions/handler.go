package functions

import (
	"context"
	"errors"
	"net/http"
	"regexp"

	"github.com/gin-gonic/gin"

	"github.com/firekit-dev/firekit/internal/auth"
	"github.com/firekit-dev/firekit/internal/logging"
)

var (
	functionName = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_-]{0,62}$`)

	statusCodes = map[string]int{
		"INVALID_ARGUMENT":    http.StatusBadRequest,
		"FAILED_PRECONDITION": http.StatusBadRequest,
		"OUT_OF_RANGE":        http.StatusBadRequest,
		"UNAUTHENTICATED":     http.StatusUnauthorized,
		"PERMISSION_DENIED":   http.StatusForbidden,
		"NOT_FOUND":           http.StatusNotFound,
		"ALREADY_EXISTS":      http.StatusConflict,
		"ABORTED":             http.StatusConflict,
		"RESOURCE_EXHAUSTED":  http.StatusTooManyRequests,
		"CANCELLED":           499,
		"UNIMPLEMENTED":       http.StatusNotImplemented,
		"UNAVAILABLE":         http.StatusServiceUnavailable,
		"DEADLINE_EXCEEDED":   http.StatusGatewayTimeout,
	}
)

// HTTPStatus maps the callable error status to an HTTP status code.
func (e *Error) HTTPStatus() int {
	if code, ok := statusCodes[e.Status]; ok {
		return code
	}
	return http.StatusInternalServerError
}

type Caller interface {
	Call(ctx context.Context, name, idToken string, data, out any) error
}

type Handler struct {
	client Caller
}

func NewHandler(client Caller) *Handler {
	return &Handler{client: client}
}

func (h *Handler) Register(rg *gin.RouterGroup) {
	rg.POST("/:name", h.Call)
}

// Call forwards {"data": ...} to the named function as the signed-in user.
func (h *Handler) Call(c *gin.Context) {
	name := c.Param("name")
	if !functionName.MatchString(name) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid function name"})
		return
	}

	var req struct {
		Data any `json:"data"`
	}
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
	}

	var idToken string
	if u := auth.CurrentUser(c); u != nil {
		idToken = u.IDToken
	}

	var result any
	if err := h.client.Call(c.Request.Context(), name, idToken, req.Data, &result); err != nil {
		var fnErr *Error
		if errors.As(err, &fnErr) {
			c.JSON(fnErr.HTTPStatus(), gin.H{"error": fnErr})
			return
		}
		logging.NewLogger(c.Request.Context()).LogError("functions.call", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "function call failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"result": result})
}
