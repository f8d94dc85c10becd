// Package observability builds the process logger and carries request scoped
// logging values through contexts.
package observability

import (
	"io"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/m-mizutani/masq"

	"github.com/jmylchreest/m3udash/internal/config"
	"github.com/jmylchreest/m3udash/internal/version"
)

// LevelTrace sits below debug and is selected with level "trace".
const LevelTrace = slog.Level(-8)

const redacted = "[REDACTED]"

// secretKeys name attributes masq hides entirely. Matching is exact, so the
// common spellings are listed.
var secretKeys = []string{
	"password", "Password",
	"secret", "Secret",
	"token", "Token",
	"apikey", "ApiKey", "api_key",
	"credential", "Credential",
}

var (
	// secretQuery finds credential query parameters inside string values.
	secretQuery = regexp.MustCompile(`(?i)\b(password|token|apikey|api_key|secret|credential)=([^&\s"]*)`)

	// livePath finds the username/password segments of Xtream stream URLs.
	livePath = regexp.MustCompile(`/live/[^/\s"]+/[^/\s"]+/`)
)

var levels = map[string]slog.Level{
	"trace": LevelTrace,
	"debug": slog.LevelDebug,
	"info":  slog.LevelInfo,
	"warn":  slog.LevelWarn,
	"error": slog.LevelError,
}

func parseLevel(name string) slog.Level {
	if lvl, ok := levels[strings.ToLower(name)]; ok {
		return lvl
	}
	return slog.LevelInfo
}

// RedactURL hides credential query values and the credentials embedded in
// /live/ stream paths.
func RedactURL(s string) string {
	s = secretQuery.ReplaceAllString(s, "$1="+redacted)
	return livePath.ReplaceAllString(s, "/live/"+redacted+"/"+redacted+"/")
}

// NewLoggerWithWriter returns a JSON or text logger writing to w. Every
// string attribute passes through RedactURL, and secret keys are masked by
// masq.
func NewLoggerWithWriter(cfg config.LoggingConfig, w io.Writer) *slog.Logger {
	maskOpts := make([]masq.Option, len(secretKeys))
	for i, key := range secretKeys {
		maskOpts[i] = masq.WithFieldName(key)
	}
	mask := masq.New(maskOpts...)

	replace := func(groups []string, a slog.Attr) slog.Attr {
		if len(groups) == 0 {
			switch a.Key {
			case slog.LevelKey:
				if lvl, ok := a.Value.Any().(slog.Level); ok && lvl <= LevelTrace {
					a.Value = slog.StringValue("TRACE")
				}
				return a
			case slog.TimeKey:
				if t, ok := a.Value.Any().(time.Time); ok && cfg.TimeFormat != "" {
					a.Value = slog.StringValue(t.Format(cfg.TimeFormat))
				}
				return a
			}
		}
		if a.Value.Kind() == slog.KindString {
			a.Value = slog.StringValue(RedactURL(a.Value.String()))
		}
		return mask(groups, a)
	}

	opts := &slog.HandlerOptions{
		Level:       parseLevel(cfg.Level),
		AddSource:   cfg.AddSource,
		ReplaceAttr: replace,
	}
	if cfg.Format == "text" {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

// SetDefault installs logger as the slog default.
func SetDefault(logger *slog.Logger) {
	slog.SetDefault(logger)
}

// WithApp adds the application name and version.
func WithApp(logger *slog.Logger) *slog.Logger {
	return logger.With(
		slog.String("app", version.ApplicationName),
		slog.String("version", version.Version),
	)
}

func WithRequestID(logger *slog.Logger, requestID string) *slog.Logger {
	return logger.With(slog.String("request_id", requestID))
}

func WithComponent(logger *slog.Logger, component string) *slog.Logger {
	return logger.With(slog.String("component", component))
}
