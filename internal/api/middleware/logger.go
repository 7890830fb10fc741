package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/leon37/FinChatLedger/internal/infrastructure/logging"
	"github.com/sirupsen/logrus"
)

const (
	HeaderRequestID  = "X-Request-ID"
	ContextRequestID = "requestID"
)

// RequestLogger 给每个请求分配 request id，并用 logrus 记录访问日志
func RequestLogger(log *logrus.Logger) gin.HandlerFunc {
	log = logging.OrDefault(log)
	return func(c *gin.Context) {
		start := time.Now()

		reqID := c.GetHeader(HeaderRequestID)
		if reqID == "" {
			reqID = uuid.NewString()
		}
		c.Set(ContextRequestID, reqID)
		c.Header(HeaderRequestID, reqID)

		c.Next()

		entry := log.WithFields(logrus.Fields{
			logging.FieldRequestID: reqID,
			"method":               c.Request.Method,
			"path":                 c.FullPath(),
			"status":               c.Writer.Status(),
			"latency":              time.Since(start).String(),
			"client_ip":            c.ClientIP(),
		})
		if len(c.Errors) > 0 {
			entry.Warn(c.Errors.String())
			return
		}
		entry.Info("request")
	}
}
