package middleware

import (
	"context"
	"net"
	"net/http"
	"strings"

	"github.com/edusupervise/supervision-engine/pkg/logging"
	"github.com/edusupervise/supervision-engine/pkg/models"
)

type contextKey string

const requestInfoKey contextKey = "requestInfo"

const maxUserAgentLength = 255

// ClientIP returns the first X-Forwarded-For hop, falling back to RemoteAddr without its port.
func ClientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// RequestInfo stores the requester's address and user agent in context
// for activity logging.
func RequestInfo(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		info := models.RequestInfo{
			IPAddress: ClientIP(r),
			UserAgent: logging.TruncateString(r.UserAgent(), maxUserAgentLength),
		}
		next.ServeHTTP(w, r.WithContext(WithRequestInfo(r.Context(), info)))
	})
}

// WithRequestInfo returns a copy of ctx carrying info.
func WithRequestInfo(ctx context.Context, info models.RequestInfo) context.Context {
	return context.WithValue(ctx, requestInfoKey, info)
}

// GetRequestInfo returns the request info stored by RequestInfo, or the zero value.
func GetRequestInfo(ctx context.Context) models.RequestInfo {
	info, _ := ctx.Value(requestInfoKey).(models.RequestInfo)
	return info
}
