package m3u

import (
	"fmt"
	"io"
	"sort"
	"strings"
)

// WriterOptions controls attribute escaping.
type WriterOptions struct {
	// EscapeDisplayName applies the attribute quote substitution to the
	// display name after the comma as well. Off by default, so the display
	// name is written exactly as given.
	EscapeDisplayName bool
}

// Writer provides streaming M3U playlist writing. Lines are separated by a
// single "\n" and the output has no trailing newline.
type Writer struct {
	w             io.Writer
	opts          WriterOptions
	headerWritten bool
}

// NewWriter creates a new M3U writer.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// NewWriterWithOptions creates a new M3U writer with explicit options.
func NewWriterWithOptions(w io.Writer, opts WriterOptions) *Writer {
	return &Writer{w: w, opts: opts}
}

// WriteHeader writes the M3U header.
// This is automatically called by WriteEntry if not already written.
func (w *Writer) WriteHeader() error {
	if w.headerWritten {
		return nil
	}
	if _, err := io.WriteString(w.w, Header); err != nil {
		return fmt.Errorf("writing M3U header: %w", err)
	}
	w.headerWritten = true
	return nil
}

// WriteEntry writes a single channel entry. The four tvg/group attributes are
// always written in a fixed order, even when empty. The URL line is omitted
// when the entry has no URL.
func (w *Writer) WriteEntry(entry *Entry) error {
	if err := w.WriteHeader(); err != nil {
		return err
	}

	if _, err := io.WriteString(w.w, "\n"+w.FormatExtinf(entry)); err != nil {
		return fmt.Errorf("writing EXTINF: %w", err)
	}

	if entry.URL == "" {
		return nil
	}
	if _, err := io.WriteString(w.w, "\n"+entry.URL); err != nil {
		return fmt.Errorf("writing URL: %w", err)
	}

	return nil
}

// FormatExtinf renders the EXTINF line for an entry.
func (w *Writer) FormatExtinf(entry *Entry) string {
	attrs := []string{
		fmt.Sprintf(`tvg-id="%s"`, entry.TvgID),
		fmt.Sprintf(`tvg-name="%s"`, EscapeAttr(entry.TvgName)),
		fmt.Sprintf(`tvg-logo="%s"`, entry.TvgLogo),
		fmt.Sprintf(`group-title="%s"`, EscapeAttr(entry.GroupTitle)),
	}
	if entry.ChannelNumber > 0 {
		attrs = append(attrs, fmt.Sprintf(`tvg-chno="%d"`, entry.ChannelNumber))
	}

	keys := make([]string, 0, len(entry.Extra))
	for k := range entry.Extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		attrs = append(attrs, fmt.Sprintf(`%s="%s"`, k, EscapeAttr(entry.Extra[k])))
	}

	duration := entry.Duration
	if duration == 0 {
		duration = -1 // live streams
	}

	title := entry.Title
	if w.opts.EscapeDisplayName {
		title = EscapeAttr(title)
	}

	return fmt.Sprintf("#EXTINF:%d %s,%s", duration, strings.Join(attrs, " "), title)
}

// EscapeAttr makes a value safe inside a double-quoted attribute by
// replacing double quotes with single quotes.
func EscapeAttr(s string) string {
	return strings.ReplaceAll(s, `"`, `'`)
}
