package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// VisitRecorder stores page visits.
type VisitRecorder interface {
	RecordVisit(ctx context.Context, path string, userID *int64) error
}

// DefaultVisitSkips are path prefixes never recorded as visits.
var DefaultVisitSkips = []string{"/metrics", "/health", "/swagger", "/images/"}

// VisitLogger records the path and principal of every successful GET request.
// Recording happens after the response and never affects it.
func VisitLogger(recorder VisitRecorder, logger *zap.Logger, skip ...string) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	if len(skip) == 0 {
		skip = DefaultVisitSkips
	}
	return func(c *gin.Context) {
		c.Next()

		if c.Request.Method != http.MethodGet || c.Writer.Status() >= 400 {
			return
		}
		path := c.Request.URL.Path
		for _, prefix := range skip {
			if strings.HasPrefix(path, prefix) {
				return
			}
		}

		var userID *int64
		if claims := Claims(c); claims != nil {
			id := claims.UserID
			userID = &id
		}

		ctx, cancel := context.WithTimeout(context.WithoutCancel(c.Request.Context()), 2*time.Second)
		defer cancel()
		if err := recorder.RecordVisit(ctx, path, userID); err != nil {
			logger.Warn("visit log failed", zap.String("path", path), zap.Error(err))
		}
	}
}
