package middleware

import (
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/jmylchreest/m3udash/internal/models"
	"github.com/jmylchreest/m3udash/internal/observability"
)

// panicBody is the failure envelope written after a recovered panic. It is
// fixed so no encoder runs on a possibly broken request path.
var panicBody = fmt.Sprintf(`{"success":false,"error":%q}`, models.MsgInternal)

// Recovery turns a handler panic into a 500 failure envelope. Aborted
// handlers are re-panicked so net/http can drop the connection.
func Recovery(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}

				observability.WithRequestID(logger, GetRequestID(r)).ErrorContext(r.Context(), "panic recovered",
					slog.String("error", fmt.Sprint(rec)),
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path),
					slog.String("stack", string(debug.Stack())),
				)

				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusInternalServerError)
				_, _ = w.Write([]byte(panicBody))
			}()

			next.ServeHTTP(w, r)
		})
	}
}
