// Package models defines the domain types shared across m3udash packages.
package models

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a failure of playlist acquisition or sharing.
type Kind string

// Error kinds.
const (
	KindMissingField         Kind = "missing_field"
	KindInvalidScheme        Kind = "invalid_scheme"
	KindNoContent            Kind = "no_content"
	KindUpstreamTimeout      Kind = "upstream_timeout"
	KindUpstreamForbidden    Kind = "upstream_forbidden"
	KindUpstreamHTTPError    Kind = "upstream_http_error"
	KindUpstreamUnreachable  Kind = "upstream_unreachable"
	KindPanelUnauthorized    Kind = "panel_unauthorized"
	KindPanelForbidden       Kind = "panel_forbidden"
	KindPanelResponseInvalid Kind = "panel_response_invalid"
	KindNoStreamsFound       Kind = "no_streams_found"
	KindNotFound             Kind = "not_found"
	KindTraversalRejected    Kind = "traversal_rejected"
	KindInternal             Kind = "internal"
)

// User-facing messages.
const (
	MsgNoJSON             = "Invalid request. No JSON data."
	MsgNoURL              = "No URL provided."
	MsgInvalidScheme      = "Invalid URL scheme. URL must start with http:// or https://"
	MsgUpstreamTimeout    = "Connection to the provided URL timed out."
	MsgUpstreamForbidden  = "The remote server denied access (403 Forbidden)."
	MsgXtreamFields       = "Missing Xtream panel URL, username, or password."
	MsgPanelTimeout       = "Connection to Xtream panel API timed out."
	MsgPanelUnauthorized  = "Unauthorized (401). Please check your Xtream username and password."
	MsgPanelForbidden     = "Forbidden (403). The Xtream panel API blocked the request."
	MsgPanelInvalidJSON   = "Failed to understand response from Xtream panel (Invalid JSON)."
	MsgNoStreamsFound     = "No live streams found or panel returned an unexpected format."
	MsgNoContent          = "No content provided."
	MsgShareNotFound      = "Link expired or file not found."
	MsgInvalidFilename    = "Invalid filename."
	MsgShareFailed        = "Failed to generate shareable link on server."
	MsgInternal           = "An unexpected server error occurred."
	MsgRelayFailed        = "Failed to fetch playlist from the URL due to an unexpected server error."
	MsgTranslateFailed    = "Failed to fetch playlist from Xtream panel due to a server error."
	MsgServeFailed        = "Error serving file."
	MsgShareLinkExpiresIn = "Link does not automatically expire."
)

// UpstreamHTTPErrorMessage formats the message for a non-2xx playlist response.
func UpstreamHTTPErrorMessage(status int) string {
	return fmt.Sprintf("The URL returned an HTTP error: %d.", status)
}

// PanelHTTPErrorMessage formats the message for a non-2xx panel response.
func PanelHTTPErrorMessage(status int) string {
	return fmt.Sprintf("Xtream panel API returned HTTP error: %d.", status)
}

// UpstreamUnreachableMessage formats the message for a playlist transport failure.
func UpstreamUnreachableMessage(detail string) string {
	return "Error connecting to the provided URL: " + detail
}

// PanelUnreachableMessage formats the message for a panel transport failure.
func PanelUnreachableMessage(detail string) string {
	return "Error connecting to Xtream panel API: " + detail
}

// Error is a classified failure carrying the message shown to callers.
type Error struct {
	Kind    Kind
	Status  int // upstream HTTP status, when one was received
	Message string
	Err     error
}

// NewError creates a classified error.
func NewError(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// WrapError creates a classified error wrapping a cause.
func WrapError(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap returns the wrapped cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// HTTPStatus maps the error kind to the status returned by the API.
func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case KindMissingField, KindInvalidScheme, KindNoContent:
		return http.StatusBadRequest
	case KindUpstreamTimeout:
		return http.StatusGatewayTimeout
	case KindUpstreamForbidden, KindPanelForbidden:
		return http.StatusForbidden
	case KindPanelUnauthorized:
		return http.StatusUnauthorized
	case KindUpstreamHTTPError:
		if e.Status >= 400 && e.Status <= 599 {
			return e.Status
		}
		return http.StatusBadGateway
	case KindNoStreamsFound, KindNotFound, KindTraversalRejected:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// KindOf returns the kind of a classified error, or KindInternal for any
// other non-nil error. It returns "" for nil.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// IsKind reports whether err is a classified error of the given kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}

// AsError converts any error into a classified error, wrapping unknown
// errors as KindInternal.
func AsError(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return WrapError(KindInternal, MsgInternal, err)
}
