package logger

import (
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// CorrelationIDHeader is echoed back on every response so clients can
// reference a request in logs.
const CorrelationIDHeader = "X-Correlation-ID"

const correlationIDKey = "filedropCorrelationID"

// Init builds the process-wide zap logger. The level is taken from the
// LOG_LEVEL environment variable (default info). The logger is also
// installed as zap's global so Middleware can use it.
func Init() (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	if raw, ok := os.LookupEnv("LOG_LEVEL"); ok {
		var level zapcore.Level
		if err := level.UnmarshalText([]byte(strings.ToLower(strings.TrimSpace(raw)))); err == nil {
			cfg.Level = zap.NewAtomicLevelAt(level)
		}
	}

	logg, err := cfg.Build()
	if err != nil {
		return nil, err
	}

	zap.ReplaceGlobals(logg)
	return logg, nil
}

// Middleware assigns a correlation ID to each request, echoes it in the
// response headers and logs the request outcome.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(CorrelationIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(correlationIDKey, id)
		c.Header(CorrelationIDHeader, id)

		start := time.Now()
		c.Next()

		zap.L().Info("http request",
			zap.String("correlation_id", id),
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
		)
	}
}

// CorrelationID returns the ID assigned to the current request, if any.
func CorrelationID(c *gin.Context) string {
	value, ok := c.Get(correlationIDKey)
	if !ok {
		return ""
	}
	id, _ := value.(string)
	return id
}
