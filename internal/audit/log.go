package audit

import (
	"context"
	"errors"
	"strings"

	"github.com/sirupsen/logrus"

	"volunteerhub.org/internal/auth"
	"volunteerhub.org/internal/obs"
)

type ctxKey string

const requestIDKey ctxKey = "audit_request_id"

// WithRequestID attaches the request identifier to the context for audit logging.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	requestID = strings.TrimSpace(requestID)
	if requestID == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, requestID)
}

func requestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(requestIDKey).(string); ok {
		return v
	}
	return ""
}

// LogEvent writes a security audit entry enriched with request and identity
// context. Used for logins, token refreshes, password rotations and
// whitelist changes.
func LogEvent(ctx context.Context, event string, fields map[string]any) error {
	event = strings.TrimSpace(event)
	if event == "" {
		return errors.New("event name is required")
	}

	entry := logrus.Fields{
		"type":  "audit",
		"event": event,
	}
	if rid := requestIDFromContext(ctx); rid != "" {
		entry["request_id"] = rid
	}
	if identity, ok := auth.IdentityFromContext(ctx); ok {
		entry["actor_id"] = identity.ID()
		entry["actor_type"] = string(identity.Type)
		if orgID := identity.OrganizationID(); orgID != "" {
			entry["actor_org"] = orgID
		}
	}
	for k, v := range fields {
		if _, taken := entry[k]; !taken {
			entry[k] = v
		}
	}

	obs.Logger().WithFields(entry).Info(event)
	return nil
}
