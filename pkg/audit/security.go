// Package audit logs security-relevant events as structured JSON so they can
// be filtered out of the service log and shipped to a SIEM.
package audit

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/milkyway-analytics/milkyway/pkg/logging"
)

// SecurityEventType categorizes security-relevant events for filtering and alerting.
type SecurityEventType string

const (
	// EventRejectedLiteral is logged when libinjection flags a value that
	// would have been spliced into compiled SQL.
	EventRejectedLiteral SecurityEventType = "rejected_literal"
	// EventAdHocQuery is logged for every read-only query run on behalf of a
	// user or the assistant.
	EventAdHocQuery SecurityEventType = "ad_hoc_query"
)

// maxLoggedSQL bounds the statement text copied into an event.
const maxLoggedSQL = 500

// SecurityEvent is one auditable event.
type SecurityEvent struct {
	ID        uuid.UUID         `json:"id"`
	Timestamp time.Time         `json:"timestamp"`
	EventType SecurityEventType `json:"event_type"`
	Source    string            `json:"source"` // "api", "chat", "mcp" or "cli"
	ClientIP  string            `json:"client_ip,omitempty"`
	Details   any               `json:"details"`
	Severity  string            `json:"severity"` // info, warning, critical
}

// RejectedLiteralDetails describes a flagged value.
type RejectedLiteralDetails struct {
	Pattern string `json:"pattern"`
	Reason  string `json:"reason"`
}

// AdHocQueryDetails describes an executed query.
type AdHocQueryDetails struct {
	SQL      string `json:"sql"`
	Limit    int    `json:"limit"`
	RowCount int    `json:"row_count"`
	Error    string `json:"error,omitempty"`
}

// SecurityAuditor logs security events under the "security_audit" logger name.
type SecurityAuditor struct {
	logger *zap.Logger
	now    func() time.Time
}

// NewSecurityAuditor creates an auditor. A nil logger discards events.
func NewSecurityAuditor(logger *zap.Logger) *SecurityAuditor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SecurityAuditor{logger: logger.Named("security_audit"), now: time.Now}
}

// LogRejectedLiteral records a value refused by the injection check. Logged
// at ERROR with critical severity.
func (a *SecurityAuditor) LogRejectedLiteral(source, clientIP string, details RejectedLiteralDetails) {
	event := a.event(EventRejectedLiteral, source, clientIP, details, "critical")
	a.logger.Error("Rejected SQL literal",
		zap.String("event_json", marshalEvent(event)),
		zap.String("event_id", event.ID.String()),
		zap.String("source", source),
		zap.String("pattern", details.Pattern),
		zap.String("client_ip", clientIP),
		zap.String("severity", event.Severity),
	)
}

// LogAdHocQuery records a query run. Failed queries are logged at WARN.
func (a *SecurityAuditor) LogAdHocQuery(source, clientIP string, details AdHocQueryDetails) {
	details.SQL = logging.TruncateString(details.SQL, maxLoggedSQL)

	severity := "info"
	if details.Error != "" {
		severity = "warning"
	}
	event := a.event(EventAdHocQuery, source, clientIP, details, severity)

	fields := []zap.Field{
		zap.String("event_json", marshalEvent(event)),
		zap.String("event_id", event.ID.String()),
		zap.String("source", source),
		zap.Int("row_count", details.RowCount),
		zap.String("client_ip", clientIP),
		zap.String("severity", severity),
	}
	if details.Error != "" {
		a.logger.Warn("Ad-hoc query failed", fields...)
		return
	}
	a.logger.Info("Ad-hoc query executed", fields...)
}

func (a *SecurityAuditor) event(t SecurityEventType, source, clientIP string, details any, severity string) SecurityEvent {
	return SecurityEvent{
		ID:        uuid.New(),
		Timestamp: a.now().UTC(),
		EventType: t,
		Source:    source,
		ClientIP:  clientIP,
		Details:   details,
		Severity:  severity,
	}
}

// ClientIP extracts the caller address, preferring the first
// X-Forwarded-For hop when the service runs behind a proxy.
func ClientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		return strings.TrimSpace(first)
	}
	return r.RemoteAddr
}

func marshalEvent(event SecurityEvent) string {
	// Known types only; marshalling cannot fail.
	data, _ := json.Marshal(event)
	return string(data)
}
