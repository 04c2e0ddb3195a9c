package audit

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// setupTestLogger creates a test logger with an observer to capture log entries.
func setupTestLogger(t *testing.T) (*zap.Logger, *observer.ObservedLogs) {
	t.Helper()
	core, recorded := observer.New(zapcore.DebugLevel)
	return zap.New(core), recorded
}

func decodeEvent(t *testing.T, entry observer.LoggedEntry) map[string]any {
	t.Helper()
	raw, ok := entry.ContextMap()["event_json"].(string)
	require.True(t, ok, "event_json field missing")

	var event map[string]any
	require.NoError(t, json.Unmarshal([]byte(raw), &event))
	return event
}

func TestNewSecurityAuditor(t *testing.T) {
	logger, _ := setupTestLogger(t)
	auditor := NewSecurityAuditor(logger)
	assert.NotNil(t, auditor.logger)

	// nil logger discards
	assert.NotPanics(t, func() {
		NewSecurityAuditor(nil).LogAdHocQuery("api", "", AdHocQueryDetails{SQL: "SELECT 1"})
	})
}

func TestLogRejectedLiteral(t *testing.T) {
	logger, recorded := setupTestLogger(t)
	auditor := NewSecurityAuditor(logger)
	fixed := time.Date(2025, 11, 15, 10, 0, 0, 0, time.UTC)
	auditor.now = func() time.Time { return fixed }

	auditor.LogRejectedLiteral("api", "10.0.0.7", RejectedLiteralDetails{
		Pattern: "cumulative_snapshot",
		Reason:  `curr_period="' OR '1'='1"`,
	})

	logs := recorded.All()
	require.Len(t, logs, 1)
	entry := logs[0]
	assert.Equal(t, zapcore.ErrorLevel, entry.Level)
	assert.Equal(t, "security_audit", entry.LoggerName)
	assert.Equal(t, "Rejected SQL literal", entry.Message)

	fields := entry.ContextMap()
	assert.Equal(t, "api", fields["source"])
	assert.Equal(t, "cumulative_snapshot", fields["pattern"])
	assert.Equal(t, "critical", fields["severity"])

	event := decodeEvent(t, entry)
	assert.Equal(t, string(EventRejectedLiteral), event["event_type"])
	assert.Equal(t, "10.0.0.7", event["client_ip"])
	assert.Equal(t, "2025-11-15T10:00:00Z", event["timestamp"])
	assert.NotEmpty(t, event["id"])
}

func TestLogAdHocQuery(t *testing.T) {
	tests := []struct {
		name         string
		details      AdHocQueryDetails
		wantLevel    zapcore.Level
		wantMessage  string
		wantSeverity string
	}{
		{
			name:         "success",
			details:      AdHocQueryDetails{SQL: "SELECT 1", Limit: 10, RowCount: 1},
			wantLevel:    zapcore.InfoLevel,
			wantMessage:  "Ad-hoc query executed",
			wantSeverity: "info",
		},
		{
			name:         "failure",
			details:      AdHocQueryDetails{SQL: "DELETE FROM t", Error: "only read-only statements are allowed"},
			wantLevel:    zapcore.WarnLevel,
			wantMessage:  "Ad-hoc query failed",
			wantSeverity: "warning",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, recorded := setupTestLogger(t)
			NewSecurityAuditor(logger).LogAdHocQuery("chat", "", tt.details)

			logs := recorded.All()
			require.Len(t, logs, 1)
			assert.Equal(t, tt.wantLevel, logs[0].Level)
			assert.Equal(t, tt.wantMessage, logs[0].Message)
			assert.Equal(t, tt.wantSeverity, logs[0].ContextMap()["severity"])

			event := decodeEvent(t, logs[0])
			assert.Equal(t, "chat", event["source"])
			assert.NotContains(t, event, "client_ip")
		})
	}
}

func TestLogAdHocQuery_TruncatesSQL(t *testing.T) {
	logger, recorded := setupTestLogger(t)
	long := "SELECT " + strings.Repeat("x", 2*maxLoggedSQL)

	NewSecurityAuditor(logger).LogAdHocQuery("api", "", AdHocQueryDetails{SQL: long})

	event := decodeEvent(t, recorded.All()[0])
	details := event["details"].(map[string]any)
	sql := details["sql"].(string)
	assert.Len(t, sql, maxLoggedSQL+len("..."))
	assert.True(t, strings.HasSuffix(sql, "..."))
}

func TestClientIP(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	r.RemoteAddr = "192.168.1.100:5432"
	assert.Equal(t, "192.168.1.100:5432", ClientIP(r))

	r.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	assert.Equal(t, "203.0.113.9", ClientIP(r))
}
