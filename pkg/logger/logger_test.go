package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitLogger(t *testing.T) {
	tests := []struct {
		name          string
		logLevel      string
		envLevel      string
		logFormat     string
		isDevelopment bool
		expectedLevel logrus.Level
		expectJSON    bool
	}{
		{
			name:          "development defaults to debug text",
			isDevelopment: true,
			expectedLevel: logrus.DebugLevel,
			expectJSON:    false,
		},
		{
			name:          "production defaults to info json",
			expectedLevel: logrus.InfoLevel,
			expectJSON:    true,
		},
		{
			name:          "explicit level wins over environment",
			logLevel:      "warn",
			envLevel:      "debug",
			isDevelopment: true,
			expectedLevel: logrus.WarnLevel,
		},
		{
			name:          "environment level used when none given",
			envLevel:      "error",
			isDevelopment: true,
			expectedLevel: logrus.ErrorLevel,
		},
		{
			name:          "json format forced in development",
			logLevel:      "DEBUG",
			logFormat:     "JSON",
			isDevelopment: true,
			expectedLevel: logrus.DebugLevel,
			expectJSON:    true,
		},
		{
			name:          "invalid level defaults to info",
			logLevel:      "loud",
			isDevelopment: true,
			expectedLevel: logrus.InfoLevel,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("LOG_LEVEL", tt.envLevel)
			t.Setenv("LOG_FORMAT", tt.logFormat)
			Logger = nil

			log := InitLogger(tt.logLevel, tt.isDevelopment)

			assert.Equal(t, tt.expectedLevel, log.GetLevel())
			_, isJSON := log.Formatter.(*logrus.JSONFormatter)
			assert.Equal(t, tt.expectJSON, isJSON)
			assert.Same(t, log, GetLogger())
		})
	}
}

func captureJSON(t *testing.T) *bytes.Buffer {
	t.Helper()
	t.Setenv("LOG_FORMAT", "json")
	Logger = nil
	log := InitLogger("debug", true)
	var buf bytes.Buffer
	log.SetOutput(&buf)
	return &buf
}

func decodeEntry(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry), "output should be valid JSON")
	return entry
}

func TestWithJob(t *testing.T) {
	buf := captureJSON(t)

	WithJob("projections", "run-42").Info("job started")

	entry := decodeEntry(t, buf)
	assert.Equal(t, "projections", entry["job"])
	assert.Equal(t, "run-42", entry["run_id"])
	assert.Equal(t, "job started", entry["msg"])
	assert.Contains(t, entry, "time")
}

func TestWithService(t *testing.T) {
	buf := captureJSON(t)

	WithService("ingest").Warn("upstream slow")

	entry := decodeEntry(t, buf)
	assert.Equal(t, "ingest", entry["service"])
	assert.Equal(t, "warning", entry["level"])
}
