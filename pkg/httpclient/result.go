package httpclient

import (
	"context"
	"errors"
	"net"
	"unicode/utf8"
)

// ResultKind tags the outcome of a fetch.
type ResultKind int

const (
	// ResultSuccess means a 2xx response whose body was read in full.
	ResultSuccess ResultKind = iota
	// ResultTimeout means the connection or read did not finish in time.
	ResultTimeout
	// ResultHTTPError means the server answered with a non-2xx status.
	ResultHTTPError
	// ResultTransportError means no usable response was received.
	ResultTransportError
)

// String returns the label used in logs and metrics.
func (k ResultKind) String() string {
	switch k {
	case ResultSuccess:
		return "success"
	case ResultTimeout:
		return "timeout"
	case ResultHTTPError:
		return "http_error"
	case ResultTransportError:
		return "transport_error"
	default:
		return "unknown"
	}
}

// ExcerptLength is the number of characters of an error body kept for diagnostics.
const ExcerptLength = 200

// FetchResult is the classified outcome of a single GET. Exactly the fields
// relevant to Kind are populated.
type FetchResult struct {
	Kind ResultKind
	// Body is the full decoded body (ResultSuccess).
	Body string
	// Status is the HTTP status code (ResultSuccess, ResultHTTPError).
	Status int
	// BodyExcerpt holds the first ExcerptLength characters of an error body.
	BodyExcerpt string
	// Message describes a timeout or transport failure.
	Message string
}

// OK reports whether the fetch succeeded.
func (r FetchResult) OK() bool {
	return r.Kind == ResultSuccess
}

func success(status int, body string) FetchResult {
	return FetchResult{Kind: ResultSuccess, Status: status, Body: body}
}

func httpError(status int, excerpt string) FetchResult {
	return FetchResult{Kind: ResultHTTPError, Status: status, BodyExcerpt: excerpt}
}

// classifyError turns a request or read error into a timeout or transport result.
func classifyError(err error) FetchResult {
	if isTimeout(err) {
		return FetchResult{Kind: ResultTimeout, Message: err.Error()}
	}
	return FetchResult{Kind: ResultTransportError, Message: err.Error()}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// Excerpt returns at most n characters of s without splitting a UTF-8 sequence.
func Excerpt(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
