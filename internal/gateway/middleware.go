package gateway

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/cashweb/photon-go/pkg/perr"
)

// loggingMiddleware is a direct adaptation of
// walletserver/middleware/logger.go's request-logging middleware.
func loggingMiddleware(lg *logrus.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			next.ServeHTTP(w, r)
			if lg != nil {
				lg.WithFields(logrus.Fields{
					"method":   r.Method,
					"path":     r.URL.Path,
					"duration": time.Since(start),
				}).Info("request")
			}
		})
	}
}

// writeJSON writes v as a JSON response body with the given status.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps err through perr.HTTPStatus and writes it as a JSON
// error body, never leaking the underlying error's shape beyond its
// mapped message.
func writeError(w http.ResponseWriter, err error) {
	status, msg := perr.HTTPStatus(err)
	writeJSON(w, status, map[string]string{"error": msg})
}
