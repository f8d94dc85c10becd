package xtream

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jmylchreest/m3udash/pkg/httpclient"
)

// Decoding errors.
var (
	// ErrInvalidJSON means the panel response was not valid JSON.
	ErrInvalidJSON = errors.New("invalid JSON response")
	// ErrUnexpectedShape means the response was valid JSON but not a list.
	ErrUnexpectedShape = errors.New("unexpected response shape")
	// ErrNullResponse means the response was the JSON literal null.
	ErrNullResponse = errors.New("null response")
)

// Field is a JSON scalar coerced to text. Panels disagree on whether ids are
// numbers or strings, so both decode to the same text. Present is false when
// the key was missing or null.
type Field struct {
	Text    string
	Present bool
}

// UnmarshalJSON accepts any JSON value. Strings keep their content, null
// leaves the field absent, and everything else keeps its compact JSON text.
func (f *Field) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = Field{}
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = Field{Text: s, Present: true}
		return nil
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, data); err != nil {
		return err
	}
	*f = Field{Text: buf.String(), Present: true}
	return nil
}

// Or returns the text when present, otherwise fallback.
func (f Field) Or(fallback string) string {
	if f.Present {
		return f.Text
	}
	return fallback
}

// Category is a live stream category from get_live_categories.
type Category struct {
	CategoryID   Field `json:"category_id"`
	CategoryName Field `json:"category_name"`
	ParentID     Field `json:"parent_id"`
}

// Stream is a live stream from get_live_streams. Only the fields used to
// build a playlist entry are decoded.
type Stream struct {
	Num          Field `json:"num"`
	Name         Field `json:"name"`
	StreamID     Field `json:"stream_id"`
	StreamIcon   Field `json:"stream_icon"`
	EPGChannelID Field `json:"epg_channel_id"`
	CategoryID   Field `json:"category_id"`
}

// CategoryMap maps category ids to names.
type CategoryMap map[string]string

// DecodeCategories decodes a get_live_categories response into a map of id
// to name. Entries that are not objects or lack an id or a name are skipped,
// and later duplicates win. A null or non-list response yields an empty map
// together with ErrNullResponse or ErrUnexpectedShape.
func DecodeCategories(data []byte) (CategoryMap, error) {
	items, err := decodeList(data)
	if err != nil {
		return CategoryMap{}, err
	}

	categories := make(CategoryMap, len(items))
	for _, raw := range items {
		var c Category
		if !isObject(raw) || json.Unmarshal(raw, &c) != nil {
			continue
		}
		if !c.CategoryID.Present || !c.CategoryName.Present {
			continue
		}
		categories[c.CategoryID.Text] = c.CategoryName.Text
	}
	return categories, nil
}

// DecodeStreams decodes a get_live_streams response, preserving order.
// Entries that are not objects are returned as malformed excerpts instead of
// streams.
func DecodeStreams(data []byte) (streams []Stream, malformed []string, err error) {
	items, err := decodeList(data)
	if err != nil {
		return nil, nil, err
	}

	streams = make([]Stream, 0, len(items))
	for _, raw := range items {
		var s Stream
		if !isObject(raw) || json.Unmarshal(raw, &s) != nil {
			malformed = append(malformed, httpclient.Excerpt(string(raw), 100))
			continue
		}
		streams = append(streams, s)
	}
	return streams, malformed, nil
}

// decodeList validates data as JSON and returns its elements when it is a list.
func decodeList(data []byte) ([]json.RawMessage, error) {
	trimmed := bytes.TrimSpace(data)
	if !json.Valid(trimmed) {
		return nil, ErrInvalidJSON
	}
	switch {
	case bytes.Equal(trimmed, []byte("null")):
		return nil, ErrNullResponse
	case trimmed[0] != '[':
		return nil, fmt.Errorf("%w: %s", ErrUnexpectedShape, httpclient.Excerpt(string(trimmed), httpclient.ExcerptLength))
	}

	var items []json.RawMessage
	if err := json.Unmarshal(trimmed, &items); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidJSON, err)
	}
	return items, nil
}

func isObject(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && trimmed[0] == '{'
}
