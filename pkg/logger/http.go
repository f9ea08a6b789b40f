package logger

import (
	"os"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// HTTPLogger writes one JSON line per request to the access log.
type HTTPLogger struct {
	log *zap.Logger
}

// NewHTTPLogger writes to HTTP_LOG_PATH, or stdout when it is unset or cannot
// be opened.
func NewHTTPLogger() *HTTPLogger {
	var sink zapcore.WriteSyncer = zapcore.Lock(os.Stdout)
	if path := os.Getenv("HTTP_LOG_PATH"); path != "" {
		if f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644); err == nil {
			sink = zapcore.Lock(f)
		}
	}
	return newHTTPLogger(sink)
}

func newHTTPLogger(sink zapcore.WriteSyncer) *HTTPLogger {
	enc := zap.NewProductionEncoderConfig()
	enc.TimeKey = "time"
	enc.EncodeTime = zapcore.ISO8601TimeEncoder
	core := zapcore.NewCore(zapcore.NewJSONEncoder(enc), sink, zapcore.InfoLevel)
	return &HTTPLogger{log: zap.New(core)}
}

// LogRequest records a completed request.
func (l *HTTPLogger) LogRequest(ip, method, uri string, status int, latency time.Duration, userAgent, requestID string) {
	if l == nil {
		return
	}
	l.log.Info("request",
		zap.String("ip", ip),
		zap.String("method", method),
		zap.String("uri", uri),
		zap.Int("status", status),
		zap.Duration("latency", latency),
		zap.String("user_agent", userAgent),
		zap.String("request_id", requestID),
	)
}

// Sync flushes buffered entries.
func (l *HTTPLogger) Sync() error {
	return l.log.Sync()
}
