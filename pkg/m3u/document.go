package m3u

import (
	"strings"
)

// Document is an in-memory playlist.
type Document struct {
	Entries []*Entry
	Options WriterOptions
}

// Append adds an entry to the document.
func (d *Document) Append(entry *Entry) {
	d.Entries = append(d.Entries, entry)
}

// Len returns the number of entries.
func (d *Document) Len() int {
	return len(d.Entries)
}

// String renders the playlist: the header followed by each entry, joined by
// "\n" with no trailing newline.
func (d *Document) String() string {
	var sb strings.Builder
	w := NewWriterWithOptions(&sb, d.Options)
	// strings.Builder never returns a write error.
	_ = w.WriteHeader()
	for _, entry := range d.Entries {
		_ = w.WriteEntry(entry)
	}
	return sb.String()
}
