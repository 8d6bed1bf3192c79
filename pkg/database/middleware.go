package database

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"
)

// WithScopeContext returns middleware that pins one pooled connection to each
// request for repositories to find through Q. A request that cannot get a
// connection is answered with 503 before the handler runs.
func WithScopeContext(db *DB, logger *zap.Logger) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			scope, err := db.Acquire(r.Context())
			if err != nil {
				if r.Context().Err() != nil {
					// Client went away while waiting for a connection.
					return
				}
				logger.Error("No database connection for request",
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.Int32("pool_in_use", db.Stat().AcquiredConns()),
					zap.Error(err))
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("Retry-After", "5")
				w.WriteHeader(http.StatusServiceUnavailable)
				_ = json.NewEncoder(w).Encode(map[string]string{
					"error":   "database_unavailable",
					"message": "Database is temporarily unavailable",
				})
				return
			}
			defer scope.Close()

			next(w, r.WithContext(SetScope(r.Context(), scope)))
		}
	}
}
