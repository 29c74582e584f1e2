package router

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/mpdriver/mpdriver/pkg/logger"
)

const RequestIDHeader = "X-Request-ID"

// RequestID propagates or assigns a request id and attaches a request-scoped
// logger carrying it.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		c.Header(RequestIDHeader, id)
		ctx := c.Request.Context()
		log := logger.FromContext(ctx).With("request_id", id)
		c.Request = c.Request.WithContext(logger.ContextWithLogger(ctx, log))
		c.Next()
	}
}
