package m3u

import (
	"bytes"
	"strings"
	"testing"
)

func TestWriter_FixedAttributeOrder(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	err := w.WriteEntry(&Entry{
		Duration:   -1,
		TvgName:    "CNN",
		GroupTitle: "News",
		Title:      "CNN",
		URL:        "http://panel/live/u/p/10.ts",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := "#EXTM3U\n#EXTINF:-1 tvg-id=\"\" tvg-name=\"CNN\" tvg-logo=\"\" group-title=\"News\",CNN\nhttp://panel/live/u/p/10.ts"
	if buf.String() != want {
		t.Errorf("got\n%q\nwant\n%q", buf.String(), want)
	}
}

func TestWriter_EscapesQuotesInAttributes(t *testing.T) {
	entry := &Entry{TvgName: `CN"N`, GroupTitle: `Big "News"`, Title: `CN"N`}

	t.Run("display name kept verbatim", func(t *testing.T) {
		line := NewWriter(&bytes.Buffer{}).FormatExtinf(entry)
		if !strings.Contains(line, `tvg-name="CN'N"`) {
			t.Errorf("tvg-name not escaped: %s", line)
		}
		if !strings.Contains(line, `group-title="Big 'News'"`) {
			t.Errorf("group-title not escaped: %s", line)
		}
		if !strings.HasSuffix(line, `,CN"N`) {
			t.Errorf("display name should be unescaped: %s", line)
		}
	})

	t.Run("display name escaped on request", func(t *testing.T) {
		line := NewWriterWithOptions(&bytes.Buffer{}, WriterOptions{EscapeDisplayName: true}).FormatExtinf(entry)
		if !strings.HasSuffix(line, `,CN'N`) {
			t.Errorf("display name should be escaped: %s", line)
		}
	})
}

func TestWriter_OmitsEmptyURL(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	if err := w.WriteEntry(&Entry{Title: "No URL"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := w.WriteEntry(&Entry{Title: "Next", URL: "http://x/1.ts"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	lines := strings.Split(buf.String(), "\n")
	if len(lines) != 4 {
		t.Fatalf("expected 4 lines, got %d: %q", len(lines), lines)
	}
	if !strings.HasSuffix(lines[1], ",No URL") || !strings.HasSuffix(lines[2], ",Next") {
		t.Errorf("unexpected lines %q", lines)
	}
	if strings.HasSuffix(buf.String(), "\n") {
		t.Error("output must not end with a newline")
	}
}

func TestWriter_ExtrasSorted(t *testing.T) {
	line := NewWriter(&bytes.Buffer{}).FormatExtinf(&Entry{
		ChannelNumber: 7,
		Extra:         map[string]string{"z-attr": "1", "a-attr": `q"`},
		Title:         "T",
	})
	want := `#EXTINF:-1 tvg-id="" tvg-name="" tvg-logo="" group-title="" tvg-chno="7" a-attr="q'" z-attr="1",T`
	if line != want {
		t.Errorf("got %s\nwant %s", line, want)
	}
}

func TestDocument_String(t *testing.T) {
	doc := &Document{}
	if doc.String() != Header {
		t.Errorf("empty document should be the bare header, got %q", doc.String())
	}

	doc.Append(&Entry{Title: "A", URL: "http://x/a"})
	doc.Append(&Entry{Title: "B", URL: "http://x/b"})
	if doc.Len() != 2 {
		t.Fatalf("expected 2 entries, got %d", doc.Len())
	}

	first := doc.String()
	if first != doc.String() {
		t.Error("rendering must be deterministic")
	}

	// Written output parses back to the same entries.
	parsed, err := ParseAll(strings.NewReader(first))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(parsed) != 2 || parsed[0].Title != "A" || parsed[1].URL != "http://x/b" {
		t.Errorf("unexpected round trip %+v", parsed)
	}
}
