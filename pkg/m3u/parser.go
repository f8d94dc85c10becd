// Package m3u reads and writes extended M3U playlists.
//
// Entries carry the IPTV attribute set (tvg-id, tvg-name, tvg-logo,
// group-title, tvg-chno) plus any extra attributes verbatim. The parser is
// streaming and callback based; the writer renders the fixed attribute order
// IPTV players expect.
package m3u

import (
	"bufio"
	"bytes"
	"compress/bzip2"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/ulikunitz/xz"
)

// Header is the first line of an extended M3U playlist.
const Header = "#EXTM3U"

// extinfPrefix starts every entry metadata line.
const extinfPrefix = "#EXTINF:"

// MaxAttributeLineLength is the longest EXTINF line whose attributes are
// parsed. Longer lines keep their title but lose their attributes.
const MaxAttributeLineLength = 4096

// maxLineSize bounds a single playlist line. Some providers emit very long
// tokenized URLs.
const maxLineSize = 1 << 20

// ErrInvalidExtinf is reported through OnError for EXTINF lines without a
// numeric duration.
var ErrInvalidExtinf = errors.New("invalid EXTINF line")

// attrPattern matches key="value" and unquoted key=value attribute pairs.
var attrPattern = regexp.MustCompile(`([a-zA-Z0-9_-]+)=(?:"([^"]*)"|([^\s,"]+))`)

// Entry is one channel of a playlist.
type Entry struct {
	// Duration in seconds; -1 marks a live stream.
	Duration int

	TvgID         string
	TvgName       string
	TvgLogo       string
	GroupTitle    string
	ChannelNumber int

	// Title is the display name after the EXTINF comma.
	Title string

	// URL is empty when the EXTINF line had no URL line.
	URL string

	// Extra holds attributes other than the ones above, keyed lower-case.
	Extra map[string]string
}

// Parser streams entries out of a playlist.
type Parser struct {
	// OnEntry receives each entry. It is required; a returned error stops
	// parsing.
	OnEntry func(entry *Entry) error

	// OnHeader receives the first #EXTM3U line.
	OnHeader func(line string)

	// OnDirective receives other comment lines, such as #EXTVLCOPT.
	OnDirective func(line string)

	// OnError receives recoverable line errors. Nil ignores them.
	OnError func(lineNum int, err error)
}

// Parse reads a plain-text playlist.
//
// An EXTINF line with no URL line after it is emitted with an empty URL. A
// bare URL line is emitted with a title derived from the URL, but only once
// an #EXTM3U header has been seen.
func (p *Parser) Parse(r io.Reader) error {
	if p.OnEntry == nil {
		return fmt.Errorf("OnEntry callback is required")
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)

	st := &parseState{parser: p}
	for scanner.Scan() {
		st.lineNum++
		if err := st.handle(strings.TrimSpace(scanner.Text())); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("scanning M3U: %w", err)
	}
	return st.flush()
}

// ParseString parses an in-memory playlist.
func (p *Parser) ParseString(content string) error {
	return p.Parse(strings.NewReader(content))
}

// decompressor recognizes a compressed stream by its leading bytes.
type decompressor struct {
	magic []byte
	open  func(io.Reader) (io.Reader, error)
}

var decompressors = []decompressor{
	{magic: []byte{0x1f, 0x8b}, open: func(r io.Reader) (io.Reader, error) { return gzip.NewReader(r) }},
	{magic: []byte("BZh"), open: func(r io.Reader) (io.Reader, error) { return bzip2.NewReader(r), nil }},
	{magic: []byte{0xfd, '7', 'z', 'X', 'Z', 0x00}, open: func(r io.Reader) (io.Reader, error) { return xz.NewReader(r) }},
}

// ParseCompressed parses a playlist that may be gzip, bzip2 or xz
// compressed, detected from its magic bytes.
func (p *Parser) ParseCompressed(r io.Reader) error {
	br := bufio.NewReader(r)
	head, err := br.Peek(6)
	if err != nil && err != io.EOF {
		return fmt.Errorf("peeking header: %w", err)
	}

	var reader io.Reader = br
	for _, d := range decompressors {
		if !bytes.HasPrefix(head, d.magic) {
			continue
		}
		if reader, err = d.open(br); err != nil {
			return fmt.Errorf("opening compressed playlist: %w", err)
		}
		if c, ok := reader.(io.Closer); ok {
			defer c.Close()
		}
		break
	}

	return p.Parse(reader)
}

// ParseAll parses a possibly compressed playlist into a slice.
func ParseAll(r io.Reader) ([]*Entry, error) {
	var entries []*Entry
	p := &Parser{
		OnEntry: func(entry *Entry) error {
			entries = append(entries, entry)
			return nil
		},
	}
	if err := p.ParseCompressed(r); err != nil {
		return nil, err
	}
	return entries, nil
}

// parseState tracks the entry awaiting its URL line.
type parseState struct {
	parser   *Parser
	lineNum  int
	extended bool
	pending  *Entry
}

func (st *parseState) emit(entry *Entry) error {
	if err := st.parser.OnEntry(entry); err != nil {
		return fmt.Errorf("callback error at line %d: %w", st.lineNum, err)
	}
	return nil
}

// flush emits the pending entry, if any, without a URL.
func (st *parseState) flush() error {
	if st.pending == nil {
		return nil
	}
	entry := st.pending
	st.pending = nil
	return st.emit(entry)
}

func (st *parseState) handle(line string) error {
	switch {
	case line == "":
		return nil

	case hasPrefixFold(line, Header):
		if !st.extended && st.parser.OnHeader != nil {
			st.parser.OnHeader(line)
		}
		st.extended = true
		return nil

	case strings.HasPrefix(line, extinfPrefix):
		if err := st.flush(); err != nil {
			return err
		}
		entry, err := parseExtinf(line)
		if err != nil {
			if st.parser.OnError != nil {
				st.parser.OnError(st.lineNum, err)
			}
			return nil
		}
		st.pending = entry
		return nil

	case strings.HasPrefix(line, "#"):
		if err := st.flush(); err != nil {
			return err
		}
		if st.parser.OnDirective != nil {
			st.parser.OnDirective(line)
		}
		return nil
	}

	if st.pending != nil {
		entry := st.pending
		st.pending = nil
		entry.URL = line
		return st.emit(entry)
	}
	if !st.extended {
		return nil
	}
	return st.emit(&Entry{Duration: -1, URL: line, Title: extractTitleFromURL(line)})
}

// parseExtinf parses "#EXTINF:<duration> <attributes>,<title>".
func parseExtinf(line string) (*Entry, error) {
	rest := strings.TrimLeft(strings.TrimPrefix(line, extinfPrefix), " \t")

	n := 0
	if n < len(rest) && rest[n] == '-' {
		n++
	}
	digits := n
	for n < len(rest) && rest[n] >= '0' && rest[n] <= '9' {
		n++
	}
	if n == digits {
		return nil, fmt.Errorf("%w: %q", ErrInvalidExtinf, excerpt(line))
	}
	duration, _ := strconv.Atoi(rest[:n])
	rest = strings.TrimLeft(rest[n:], " \t")

	entry := &Entry{Duration: duration, Extra: map[string]string{}}

	if i := findTitleStart(rest); i >= 0 {
		entry.Title = strings.TrimSpace(rest[i+1:])
		rest = rest[:i]
	}
	if len(line) > MaxAttributeLineLength {
		return entry, nil
	}

	for _, m := range attrPattern.FindAllStringSubmatch(rest, -1) {
		value := m[2]
		if value == "" {
			value = m[3]
		}
		entry.setAttr(strings.ToLower(m[1]), value)
	}
	return entry, nil
}

func (e *Entry) setAttr(key, value string) {
	switch key {
	case "tvg-id":
		e.TvgID = value
	case "tvg-name":
		e.TvgName = value
	case "tvg-logo":
		e.TvgLogo = value
	case "group-title":
		e.GroupTitle = value
	case "tvg-chno":
		e.ChannelNumber, _ = strconv.Atoi(value)
	default:
		e.Extra[key] = value
	}
}

// findTitleStart returns the index of the first comma outside a quoted
// attribute value, or -1. The title may itself contain commas and quotes.
func findTitleStart(s string) int {
	quoted := false
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '"':
			quoted = !quoted
		case ',':
			if !quoted {
				return i
			}
		}
	}
	return -1
}

// extractTitleFromURL names a bare URL entry after its last path segment
// without query or extension.
func extractTitleFromURL(rawURL string) string {
	u, _, _ := strings.Cut(rawURL, "?")
	name := u[strings.LastIndex(u, "/")+1:]
	if i := strings.LastIndex(name, "."); i > 0 {
		name = name[:i]
	}
	if name == "" {
		return "Unknown"
	}
	return name
}

func hasPrefixFold(s, prefix string) bool {
	return len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix)
}

func excerpt(s string) string {
	const n = 80
	if len(s) <= n {
		return s
	}
	return s[:n]
}
