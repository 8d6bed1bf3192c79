// Package audit provides security audit logging for SIEM consumption.
// Events are written under the "security_audit" logger namespace in structured
// JSON so they can be filtered apart from application logs.
package audit

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/edusupervise/supervision-engine/pkg/logging"
)

// SecurityEventType categorizes security-relevant events for filtering and alerting.
type SecurityEventType string

const (
	// EventAuthenticationFailure is logged when a sign-in attempt is rejected.
	EventAuthenticationFailure SecurityEventType = "authentication_failure"
	// EventAuthorizationDenied is logged when an authenticated actor is refused an action.
	EventAuthorizationDenied SecurityEventType = "authorization_denied"
	// EventInvalidToken is logged when a presented session or bearer token fails verification.
	EventInvalidToken SecurityEventType = "invalid_token"
)

// SecurityEvent represents an auditable security event.
type SecurityEvent struct {
	Timestamp time.Time         `json:"timestamp"`
	EventType SecurityEventType `json:"event_type"`
	UserID    string            `json:"user_id,omitempty"`
	Role      string            `json:"role,omitempty"`
	ClientIP  string            `json:"client_ip,omitempty"`
	Details   any               `json:"details"`
	Severity  string            `json:"severity"` // info or warning
}

// DenialDetails describes a refused action.
type DenialDetails struct {
	Method string `json:"method"`
	Path   string `json:"path"`
	Reason string `json:"reason"`
}

// SecurityAuditor logs security events for SIEM consumption.
type SecurityAuditor struct {
	logger *zap.Logger
}

// NewSecurityAuditor creates a new security auditor with a dedicated logger namespace.
func NewSecurityAuditor(logger *zap.Logger) *SecurityAuditor {
	return &SecurityAuditor{logger: logger.Named("security_audit")}
}

func (a *SecurityAuditor) emit(level zapcore.Level, msg string, event SecurityEvent, fields ...zap.Field) {
	ce := a.logger.Check(level, msg)
	if ce == nil {
		return
	}
	event.Timestamp = time.Now().UTC()
	event.Severity = severityFor(level)
	eventJSON, _ := json.Marshal(event)

	ce.Write(append(fields,
		zap.String("event_json", string(eventJSON)),
		zap.String("client_ip", event.ClientIP),
		zap.String("severity", event.Severity),
	)...)
}

func severityFor(level zapcore.Level) string {
	if level >= zapcore.WarnLevel {
		return "warning"
	}
	return "info"
}

// LogAuthenticationFailure records a rejected sign-in. The email is masked
// and the password is never recorded.
func (a *SecurityAuditor) LogAuthenticationFailure(email, reason, clientIP string) {
	masked := logging.MaskEmail(email)
	a.emit(zapcore.WarnLevel, "Authentication failed", SecurityEvent{
		EventType: EventAuthenticationFailure,
		ClientIP:  clientIP,
		Details:   map[string]string{"email": masked, "reason": reason},
	},
		zap.String("email", masked),
		zap.String("reason", reason),
	)
}

// LogInvalidToken records a session cookie or bearer token that failed verification.
func (a *SecurityAuditor) LogInvalidToken(source, reason, clientIP string) {
	a.emit(zapcore.InfoLevel, "Invalid credentials presented", SecurityEvent{
		EventType: EventInvalidToken,
		ClientIP:  clientIP,
		Details:   map[string]string{"source": source, "reason": reason},
	},
		zap.String("token_source", source),
	)
}

// LogAuthorizationDenied records an authenticated actor being refused an action.
func (a *SecurityAuditor) LogAuthorizationDenied(userID uuid.UUID, role string, details DenialDetails, clientIP string) {
	a.emit(zapcore.WarnLevel, "Authorization denied", SecurityEvent{
		EventType: EventAuthorizationDenied,
		UserID:    userID.String(),
		Role:      role,
		ClientIP:  clientIP,
		Details:   details,
	},
		zap.String("user_id", userID.String()),
		zap.String("role", role),
		zap.String("method", details.Method),
		zap.String("path", details.Path),
		zap.String("reason", details.Reason),
	)
}
