package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/firekit-dev/firekit/internal/metrics"
)

// Metrics records the status code of every response.
func Metrics(rec metrics.Recorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		rec.RecordHTTPStatus(c.Writer.Status())
	}
}
