package size

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// DefaultBodyLimit caps a status batch body.
const DefaultBodyLimit int64 = 1 << 20

// BodySizeLimiter limits the request body size for the route group. A
// non-positive limit disables the check.
func BodySizeLimiter(limit int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limit > 0 && c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
		}
		c.Next()
	}
}
