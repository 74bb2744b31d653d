package middleware

import (
	"net/http"

	"ecash-billing-engine/pkg/apperror"
	"ecash-billing-engine/pkg/response"

	"github.com/gin-gonic/gin"
)

// BodyLimits caps request bodies. Routes are keyed by gin route template;
// anything else, unmatched paths included, gets Default.
type BodyLimits struct {
	Default int64
	Routes  map[string]int64
}

// For returns the cap for a route template.
func (l BodyLimits) For(route string) int64 {
	if n, ok := l.Routes[route]; ok && n > 0 {
		return n
	}
	return l.Default
}

// MaxBodySize rejects a declared length over the route's cap with SYS_004
// and wraps the body so undeclared lengths fail on read with
// *http.MaxBytesError.
func MaxBodySize(limits BodyLimits) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit := limits.For(c.FullPath())
		if limit <= 0 || c.Request.Body == nil {
			c.Next()
			return
		}
		if c.Request.ContentLength > limit {
			response.Error(c, apperror.ErrRequestTooLarge())
			c.Abort()
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
		c.Next()
	}
}
