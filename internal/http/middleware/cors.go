package middleware

import (
	"net/http"
	"slices"
	"strconv"
	"strings"
)

// Browser front-ends call the playlist endpoints cross-origin with JSON
// bodies, so the policy covers exactly those methods and headers.
var (
	corsMethods = strings.Join([]string{http.MethodGet, http.MethodPost, http.MethodOptions}, ", ")
	corsHeaders = strings.Join([]string{"Accept", "Content-Type", RequestIDHeader}, ", ")
)

// corsMaxAge is how long browsers may cache a preflight answer.
const corsMaxAge = 24 * 60 * 60

// corsPolicy decides which origins may read responses.
type corsPolicy struct {
	anyOrigin bool
	origins   map[string]struct{}
}

func newCORSPolicy(origins []string) corsPolicy {
	if len(origins) == 0 || slices.Contains(origins, "*") {
		return corsPolicy{anyOrigin: true}
	}
	p := corsPolicy{origins: make(map[string]struct{}, len(origins))}
	for _, o := range origins {
		p.origins[strings.TrimRight(o, "/")] = struct{}{}
	}
	return p
}

// allowOrigin returns the Access-Control-Allow-Origin value for origin, or
// false when the origin is not permitted.
func (p corsPolicy) allowOrigin(origin string) (string, bool) {
	if p.anyOrigin {
		return "*", true
	}
	if _, ok := p.origins[origin]; ok {
		return origin, true
	}
	return "", false
}

// CORS returns a middleware allowing the given origins. No origins, or "*"
// among them, allows every origin. OPTIONS requests are answered directly.
func CORS(origins ...string) func(http.Handler) http.Handler {
	policy := newCORSPolicy(origins)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			if origin := r.Header.Get("Origin"); origin != "" {
				if allowed, ok := policy.allowOrigin(origin); ok {
					h.Set("Access-Control-Allow-Origin", allowed)
					h.Set("Access-Control-Expose-Headers", RequestIDHeader)
				}
				if !policy.anyOrigin {
					h.Add("Vary", "Origin")
				}
			}

			if r.Method != http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			h.Set("Access-Control-Allow-Methods", corsMethods)
			h.Set("Access-Control-Allow-Headers", corsHeaders)
			h.Set("Access-Control-Max-Age", strconv.Itoa(corsMaxAge))
			w.WriteHeader(http.StatusNoContent)
		})
	}
}
