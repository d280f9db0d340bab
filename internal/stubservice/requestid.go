package stubservice

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type contextKey string

const requestIDKey contextKey = "requestID"

// RequestIDHeader carries the submission id between client and service.
const RequestIDHeader = "X-Request-ID"

// GetRequestID retrieves the request id stored by RequestIDMiddleware.
func GetRequestID(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	if value, ok := ctx.Value(requestIDKey).(string); ok && value != "" {
		return value, true
	}
	return "", false
}

// RequestIDMiddleware reuses the caller's X-Request-ID or mints a uuid, and echoes it back.
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := strings.TrimSpace(c.GetHeader(RequestIDHeader))
		if requestID == "" || len(requestID) > 64 {
			requestID = uuid.NewString()
		}

		ctx := context.WithValue(c.Request.Context(), requestIDKey, requestID)
		c.Request = c.Request.WithContext(ctx)
		c.Set(string(requestIDKey), requestID)
		c.Header(RequestIDHeader, requestID)

		c.Next()
	}
}
