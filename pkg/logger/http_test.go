package logger

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestHTTPLogger_LogRequest(t *testing.T) {
	var buf bytes.Buffer
	l := newHTTPLogger(zapcore.AddSync(&buf))

	l.LogRequest("10.0.0.1", "PUT", "/orgs/acme", 201, 15*time.Millisecond, "curl/8", "req-1")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "request", entry["msg"])
	assert.Equal(t, "PUT", entry["method"])
	assert.Equal(t, "/orgs/acme", entry["uri"])
	assert.Equal(t, float64(201), entry["status"])
	assert.Equal(t, "req-1", entry["request_id"])
}

func TestHTTPLogger_Nil(t *testing.T) {
	var l *HTTPLogger
	assert.NotPanics(t, func() {
		l.LogRequest("", "GET", "/", 200, 0, "", "")
	})
}
