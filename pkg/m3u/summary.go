package m3u

import (
	"io"
	"sort"
	"strings"
)

// NoGroupName is the group assigned to entries without a group-title.
const NoGroupName = "[No Group / Uncategorized]"

// unknownChannelName is used when an EXTINF line has no display name.
const unknownChannelName = "Unknown Channel"

// Channel is one entry of a summarized group.
type Channel struct {
	Name    string `json:"name"`
	URL     string `json:"url,omitempty"`
	TvgID   string `json:"tvg_id,omitempty"`
	TvgName string `json:"tvg_name,omitempty"`
	TvgLogo string `json:"tvg_logo,omitempty"`
}

// Group collects the channels sharing a group-title.
type Group struct {
	Name     string    `json:"name"`
	Channels []Channel `json:"channels"`
}

// Summary is a grouped view of a playlist.
type Summary struct {
	Header       string   `json:"header"`
	Groups       []Group  `json:"groups"`
	ChannelCount int      `json:"channel_count"`
	Directives   []string `json:"directives,omitempty"`
}

// Summarize parses a (possibly compressed) playlist and groups its entries.
// Groups are ordered case-insensitively with NoGroupName first, and channels
// within a group are ordered case-insensitively by name.
//
// An EXTINF line with no URL after it, including one at the end of the
// input, still counts as a channel with an empty URL. The dashboard's
// browser-side worker dropped such a trailing entry.
func Summarize(r io.Reader) (*Summary, error) {
	summary := &Summary{Header: Header}
	groups := make(map[string][]Channel)

	p := &Parser{
		OnHeader: func(line string) {
			summary.Header = line
		},
		OnDirective: func(line string) {
			summary.Directives = append(summary.Directives, line)
		},
		OnEntry: func(entry *Entry) error {
			group := entry.GroupTitle
			if group == "" {
				group = NoGroupName
			}
			name := entry.Title
			if name == "" {
				name = unknownChannelName
			}
			groups[group] = append(groups[group], Channel{
				Name:    name,
				URL:     entry.URL,
				TvgID:   entry.TvgID,
				TvgName: entry.TvgName,
				TvgLogo: entry.TvgLogo,
			})
			summary.ChannelCount++
			return nil
		},
	}
	if err := p.ParseCompressed(r); err != nil {
		return nil, err
	}

	names := make([]string, 0, len(groups))
	for name := range groups {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if names[i] == NoGroupName {
			return names[j] != NoGroupName
		}
		if names[j] == NoGroupName {
			return false
		}
		return lessFold(names[i], names[j])
	})

	summary.Groups = make([]Group, 0, len(names))
	for _, name := range names {
		channels := groups[name]
		sort.SliceStable(channels, func(i, j int) bool {
			return lessFold(channels[i].Name, channels[j].Name)
		})
		summary.Groups = append(summary.Groups, Group{Name: name, Channels: channels})
	}

	return summary, nil
}

// SummarizeString summarizes an in-memory playlist.
func SummarizeString(content string) (*Summary, error) {
	return Summarize(strings.NewReader(content))
}

// lessFold orders case-insensitively, breaking ties on the raw strings so
// the result is deterministic.
func lessFold(a, b string) bool {
	la, lb := strings.ToLower(a), strings.ToLower(b)
	if la != lb {
		return la < lb
	}
	return a < b
}
