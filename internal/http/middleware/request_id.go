package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/jmylchreest/m3udash/internal/observability"
)

// RequestIDHeader carries the request identifier in both directions.
const RequestIDHeader = "X-Request-ID"

// maxRequestIDLength bounds client supplied identifiers before they reach
// logs and response headers.
const maxRequestIDLength = 128

// RequestID tags every request with an identifier. A usable X-Request-ID
// from the client is kept; anything else is replaced by a random UUID. The
// identifier is echoed back and stored in the request context.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if !validRequestID(id) {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(observability.ContextWithRequestID(r.Context(), id)))
	})
}

// GetRequestID returns the identifier RequestID stored for r.
func GetRequestID(r *http.Request) string {
	return observability.RequestIDFromContext(r.Context())
}

func validRequestID(id string) bool {
	if id == "" || len(id) > maxRequestIDLength {
		return false
	}
	for i := 0; i < len(id); i++ {
		if c := id[i]; c < 0x21 || c > 0x7e {
			return false
		}
	}
	return true
}
