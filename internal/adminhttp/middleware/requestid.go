package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/kpopdotlink/fleetcron/internal/requestid"
)

// RequestID injects a correlation id into the context and response header,
// adapted verbatim from the teacher's transport/http/middleware/requestid.go.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = requestid.New()
		}

		ctx := requestid.WithRequestID(c.Request.Context(), id)
		c.Request = c.Request.WithContext(ctx)
		c.Header("X-Request-ID", id)
		c.Next()
	}
}
