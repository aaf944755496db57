// Package security provides the cross-cutting security utilities for the
// clearance service: structured JSON logging, rate limiting, input
// validation, and the configuration that tunes them.
package security

import (
	"encoding/json"
	"log"
	"os"
	"time"
)

// LogLevel classifies a log entry.
type LogLevel string

const (
	LogLevelInfo     LogLevel = "INFO"
	LogLevelWarning  LogLevel = "WARNING"
	LogLevelError    LogLevel = "ERROR"
	LogLevelCritical LogLevel = "CRITICAL"
	LogLevelSecurity LogLevel = "SECURITY"
)

// SecurityEventType identifies an auditable event.
type SecurityEventType string

const (
	EventLoginSuccess        SecurityEventType = "login_success"
	EventLoginFailure        SecurityEventType = "login_failure"
	EventLogout              SecurityEventType = "logout"
	EventAccountLocked       SecurityEventType = "account_locked"
	EventUnauthorizedAccess  SecurityEventType = "unauthorized_access"
	EventRateLimitExceeded   SecurityEventType = "rate_limit_exceeded"
	EventCaseSubmit          SecurityEventType = "case_submit"
	EventCaseFinalSubmit     SecurityEventType = "case_final_submit"
	EventCaseReject          SecurityEventType = "case_reject"
	EventHODApprove          SecurityEventType = "hod_approve"
	EventITProcess           SecurityEventType = "it_process"
	EventCertificateDownload SecurityEventType = "certificate_download"
	EventCaseArchived        SecurityEventType = "case_archived"
)

// LogEntry is the JSON shape of every log line.
type LogEntry struct {
	Timestamp time.Time         `json:"timestamp"`
	Level     LogLevel          `json:"level"`
	Message   string            `json:"message"`
	Error     string            `json:"error,omitempty"`
	EventType SecurityEventType `json:"event_type,omitempty"`
	ActorID   string            `json:"actor_id,omitempty"`
	Object    string            `json:"object,omitempty"`
	ObjectID  string            `json:"object_id,omitempty"`
	IPAddress string            `json:"ip_address,omitempty"`
	Method    string            `json:"method,omitempty"`
	Path      string            `json:"path,omitempty"`
	Status    int               `json:"status,omitempty"`
	LatencyMS int64             `json:"latency_ms,omitempty"`
	Extra     map[string]any    `json:"extra,omitempty"`
}

// Logger writes structured JSON log lines, one entry per line.
type Logger struct {
	output *log.Logger
}

// NewLogger creates a logger writing to stdout.
func NewLogger() *Logger {
	return &Logger{output: log.New(os.Stdout, "", 0)}
}

// SetOutput redirects the logger, primarily for tests.
func (l *Logger) SetOutput(out *log.Logger) { l.output = out }

func (l *Logger) write(entry LogEntry) {
	entry.Timestamp = time.Now().UTC()
	data, err := json.Marshal(entry)
	if err != nil {
		// Marshaling a LogEntry can only fail on non-serializable Extra
		// values; fall back to the bare message.
		l.output.Printf(`{"level":%q,"message":%q}`, entry.Level, entry.Message)
		return
	}
	l.output.Println(string(data))
}

// Info logs an informational message.
func (l *Logger) Info(message string) {
	l.write(LogEntry{Level: LogLevelInfo, Message: message})
}

// Warn logs a warning.
func (l *Logger) Warn(message string) {
	l.write(LogEntry{Level: LogLevelWarning, Message: message})
}

// Error logs an error with its cause, if any.
func (l *Logger) Error(message string, err error) {
	entry := LogEntry{Level: LogLevelError, Message: message}
	if err != nil {
		entry.Error = err.Error()
	}
	l.write(entry)
}

// Critical logs a failure requiring immediate attention.
func (l *Logger) Critical(message string, err error) {
	entry := LogEntry{Level: LogLevelCritical, Message: message}
	if err != nil {
		entry.Error = err.Error()
	}
	l.write(entry)
}

// SecurityEvent logs an auditable action with actor and object context.
func (l *Logger) SecurityEvent(event SecurityEventType, actorID, object, objectID, ip string, extra map[string]any) {
	l.write(LogEntry{
		Level:     LogLevelSecurity,
		Message:   string(event),
		EventType: event,
		ActorID:   actorID,
		Object:    object,
		ObjectID:  objectID,
		IPAddress: ip,
		Extra:     extra,
	})
}

// HTTPRequest logs one handled request.
func (l *Logger) HTTPRequest(method, path string, status int, latencyMS int64, ip, userAgent string) {
	l.write(LogEntry{
		Level:     LogLevelInfo,
		Message:   method + " " + path,
		Method:    method,
		Path:      path,
		Status:    status,
		LatencyMS: latencyMS,
		IPAddress: ip,
		Extra:     map[string]any{"user_agent": userAgent},
	})
}
