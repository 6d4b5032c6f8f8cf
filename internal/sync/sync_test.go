package sync

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testAtomMediaFeed = `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns="http://www.w3.org/2005/Atom" xmlns:media="http://search.yahoo.com/mrss/">
  <title>Test Channel</title>
  <entry>
    <title>Video One</title>
    <link rel="alternate" href="https://example.com/watch?v=1"/>
    <published>2024-01-01T12:00:00+00:00</published>
    <author><name>Creator One</name></author>
    <media:group>
      <media:thumbnail url="https://img.example.com/1.jpg" width="480" height="360"/>
      <media:content url="https://example.com/v/1" type="video/mp4"/>
      <media:description>First video description</media:description>
    </media:group>
  </entry>
  <entry>
    <title>Video Two</title>
    <link rel="alternate" href="https://example.com/watch?v=2"/>
    <published>2024-01-02T12:00:00+00:00</published>
    <author><name>Creator One</name></author>
  </entry>
</feed>`

const testRSSFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
  <channel>
    <title>Test RSS Feed</title>
    <description>A test RSS feed</description>
    <link>https://example.com</link>
    <item>
      <title>RSS Post &lt;b&gt;One&lt;/b&gt;</title>
      <link>https://example.com/post-1</link>
      <description>First post description</description>
      <pubDate>Mon, 01 Jan 2024 12:00:00 GMT</pubDate>
    </item>
  </channel>
</rss>`

func TestParse_AtomWithMediaGroup(t *testing.T) {
	parsed, err := Parse([]byte(testAtomMediaFeed))
	require.NoError(t, err)

	assert.Equal(t, "Test Channel", parsed.Title)
	require.Len(t, parsed.Entries, 2)

	first := parsed.Entries[0]
	assert.Equal(t, "Video One", first.Title)
	assert.Equal(t, "https://example.com/watch?v=1", first.URL)
	assert.Equal(t, "https://img.example.com/1.jpg", first.ThumbnailURL)
	assert.Equal(t, "https://example.com/v/1\nFirst video description", first.Content)
	assert.Equal(t, "Creator One", first.Creator)
	require.NotNil(t, first.PublishedAt)
	assert.Equal(t, 2024, first.PublishedAt.Year())

	// Second entry has no media group: optional fields fall back to empty.
	second := parsed.Entries[1]
	assert.Equal(t, "Video Two", second.Title)
	assert.Empty(t, second.ThumbnailURL)
	assert.Empty(t, second.Content)
}

func TestParse_RSSStripsHTML(t *testing.T) {
	parsed, err := Parse([]byte(testRSSFeed))
	require.NoError(t, err)

	require.Len(t, parsed.Entries, 1)
	assert.Equal(t, "RSS Post One", parsed.Entries[0].Title)
	assert.Equal(t, "First post description", parsed.Entries[0].Content)
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{
			name:  "not xml",
			input: "this is not a feed",
		},
		{
			name:  "no entries",
			input: `<?xml version="1.0"?><feed xmlns="http://www.w3.org/2005/Atom"><title>Empty</title></feed>`,
		},
		{
			name:  "entries missing title and link",
			input: `<?xml version="1.0"?><feed xmlns="http://www.w3.org/2005/Atom"><title>Bad</title><entry><published>2024-01-01T12:00:00Z</published></entry></feed>`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.input))
			assert.Error(t, err)
		})
	}
}

func TestFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/atom+xml")
		w.Write([]byte(testAtomMediaFeed))
	}))
	defer srv.Close()

	raw, err := Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, testAtomMediaFeed, string(raw))
}

func TestFetch_Errors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := Fetch(context.Background(), srv.URL)
	assert.Error(t, err)

	// Unreachable host is a transport failure, not a panic.
	_, err = Fetch(context.Background(), "http://127.0.0.1:1/feed.xml")
	assert.Error(t, err)
}
