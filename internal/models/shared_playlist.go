package models

import (
	"crypto/rand"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

// SharedPlaylistExt is the file extension of a stored shared playlist.
const SharedPlaylistExt = ".m3u"

// ShareID identifies a shared playlist. It is a ULID, so identifiers sort by
// creation time and carry their own timestamp.
type ShareID ulid.ULID

// NewShareID returns a fresh identifier with 80 bits of crypto/rand entropy.
func NewShareID() ShareID {
	return ShareID(ulid.MustNew(ulid.Now(), rand.Reader))
}

// ParseShareID parses the canonical 26 character form, case-insensitively.
func ParseShareID(s string) (ShareID, error) {
	id, err := ulid.ParseStrict(s)
	if err != nil {
		return ShareID{}, fmt.Errorf("parsing share id %q: %w", s, err)
	}
	return ShareID(id), nil
}

func (id ShareID) String() string { return ulid.ULID(id).String() }

// IsZero reports whether id is the zero value.
func (id ShareID) IsZero() bool { return id == ShareID{} }

// Time returns the creation time encoded in id, in UTC.
func (id ShareID) Time() time.Time {
	return ulid.Time(ulid.ULID(id).Time()).UTC()
}

// MarshalJSON encodes the zero id as null.
func (id ShareID) MarshalJSON() ([]byte, error) {
	if id.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(id.String())
}

func (id *ShareID) UnmarshalJSON(data []byte) error {
	var s *string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("decoding share id: %w", err)
	}
	if s == nil || *s == "" {
		*id = ShareID{}
		return nil
	}
	parsed, err := ParseShareID(*s)
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// SharedPlaylist describes a playlist persisted for retrieval by link.
// Stored files are immutable and never expire.
type SharedPlaylist struct {
	ID        ShareID   `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Size      int       `json:"size"`
}

// Filename returns the on-disk name of the playlist.
func (p *SharedPlaylist) Filename() string {
	return p.ID.String() + SharedPlaylistExt
}

// DownloadName returns the attachment name offered to clients. It takes
// eight characters from the random part of the identifier, so shares made
// in the same second still get distinct names.
func (p *SharedPlaylist) DownloadName() string {
	return "filtered_playlist_" + p.ID.String()[shareIDRandomStart:] + SharedPlaylistExt
}

// shareIDRandomStart is where the last eight characters of a ULID begin.
// They encode 40 of its 80 random bits.
const shareIDRandomStart = 18

// DownloadNameFor returns the attachment name for a requested file name. A
// name that is not a share identifier falls back to its first eight
// characters.
func DownloadNameFor(name string) string {
	if id, err := ParseShareID(strings.TrimSuffix(name, SharedPlaylistExt)); err == nil {
		p := SharedPlaylist{ID: id}
		return p.DownloadName()
	}
	if len(name) > 8 {
		name = name[:8]
	}
	return "filtered_playlist_" + name + SharedPlaylistExt
}
