package middleware

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"ecash-billing-engine/internal/core/ports"
	"ecash-billing-engine/pkg/apperror"
	"ecash-billing-engine/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	HeaderRequestID = "X-Request-Id"

	// Context keys
	CtxIdentity = "identity"
	CtxSession  = "session"
)

// RequestID assigns every request an id, reusing a well-formed one sent by
// the client, and echoes it in the response.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(HeaderRequestID)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.New().String()
		}
		c.Set(response.CtxRequestID, id)
		c.Header(HeaderRequestID, id)
		c.Next()
	}
}

// SessionAuth validates the session token and attaches the caller's open
// session. A token issued for an earlier session of the same identity is
// rejected like one whose session was logged out.
func SessionAuth(tokenSvc ports.TokenService, sessions ports.SessionManager, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenStr, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
		if !ok || tokenStr == "" {
			// EventSource cannot set headers.
			tokenStr = c.Query("access_token")
		}
		if tokenStr == "" {
			response.Error(c, apperror.ErrInvalidSessionToken())
			c.Abort()
			return
		}

		claims, err := tokenSvc.Validate(tokenStr)
		if err != nil {
			log.Debug().Err(err).Msg("rejected session token")
			response.Error(c, apperror.ErrInvalidSessionToken())
			c.Abort()
			return
		}

		sess, err := sessions.Get(claims.Identity)
		if err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}
		if sess.ID() != claims.SessionID {
			log.Debug().Str("identity", claims.Identity).Msg("token of a closed session")
			response.Error(c, apperror.ErrSessionNotFound())
			c.Abort()
			return
		}

		c.Set(CtxIdentity, claims.Identity)
		c.Set(CtxSession, sess)
		c.Next()
	}
}

// RequestLogger logs one line per request once the handler returns. Event
// streams are logged when they close, with the bytes relayed. Health checks
// log at debug.
func RequestLogger(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		status := c.Writer.Status()

		var event *zerolog.Event
		switch {
		case status >= http.StatusInternalServerError:
			event = log.Error()
		case status >= http.StatusBadRequest:
			event = log.Warn()
		case c.FullPath() == "/health":
			event = log.Debug()
		default:
			event = log.Info()
		}

		msg := "http request"
		if strings.HasPrefix(c.Writer.Header().Get("Content-Type"), "text/event-stream") {
			msg = "event stream closed"
			event = event.Int("bytes", c.Writer.Size())
		}

		event.
			Str("method", c.Request.Method).
			Str("route", c.FullPath()).
			Int("status", status).
			Dur("latency", time.Since(start)).
			Str("request_id", c.GetString(response.CtxRequestID)).
			Str("identity", c.GetString(CtxIdentity)).
			Str("error_code", c.GetString(response.CtxErrorCode)).
			Msg(msg)
	}
}

// Recovery turns a handler panic into a SYS_001 envelope. A panic after the
// headers went out, as in a stream, can only drop the connection.
func Recovery(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			r := recover()
			if r == nil {
				return
			}
			log.Error().
				Interface("panic", r).
				Str("route", c.FullPath()).
				Str("request_id", c.GetString(response.CtxRequestID)).
				Bool("streaming", c.Writer.Written()).
				Msg("panic recovered")
			if c.Writer.Written() {
				c.Abort()
				return
			}
			response.Error(c, apperror.InternalError(fmt.Errorf("panic: %v", r)))
			c.Abort()
		}()
		c.Next()
	}
}
