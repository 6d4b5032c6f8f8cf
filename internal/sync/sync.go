// Package sync fetches remote feeds, normalizes their entries, and runs the
// per-subscription sync fan-out.
package sync

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/mmcdole/gofeed"
)

var fetchClient = &http.Client{
	Timeout: time.Second * 10,
}

// Fetch grabs the raw feed document from the url.
//
// Any transport failure or non-2xx status is an error; there are no retries
// here, the next user-triggered sync is the retry.
func Fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("error building feed request: %w", err)
	}

	resp, err := fetchClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error getting feed url: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("error reading feed body: %w", err)
	}

	return raw, nil
}

type (
	// ParsedFeed is the normalized in-memory form of a fetched document.
	ParsedFeed struct {
		Title       string
		Description string
		Entries     []Entry
	}

	// Entry is one normalized feed entry. Title and URL are always set;
	// everything else is best effort.
	Entry struct {
		Title        string
		URL          string
		ThumbnailURL string
		Content      string
		Creator      string
		PublishedAt  *time.Time
	}
)

// Parse turns a raw RSS/Atom document into a ParsedFeed.
//
// Optional fields (description, thumbnail, author) fall back to zero values.
// Entries missing a title or link are dropped rather than failing the whole
// document; a document that is not a feed or yields no usable entries is an
// error.
func Parse(raw []byte) (ParsedFeed, error) {
	feed, err := gofeed.NewParser().Parse(bytes.NewReader(raw))
	if err != nil {
		return ParsedFeed{}, fmt.Errorf("error decoding feed: %w", err)
	}

	parsed := ParsedFeed{
		Title:       sanitize(feed.Title),
		Description: sanitize(feed.Description),
	}
	for _, item := range feed.Items {
		if item.Title == "" || item.Link == "" {
			continue
		}

		parsed.Entries = append(parsed.Entries, Entry{
			Title:        sanitize(item.Title),
			URL:          item.Link,
			ThumbnailURL: thumbnail(item),
			Content:      content(item),
			Creator:      creator(item),
			PublishedAt:  item.PublishedParsed,
		})
	}
	if len(parsed.Entries) == 0 {
		return ParsedFeed{}, fmt.Errorf("feed %q has no usable entries", feed.Title)
	}

	return parsed, nil
}

// Pulls the thumbnail from the media extension group or the item image.
func thumbnail(item *gofeed.Item) string {
	if item.Image != nil && item.Image.URL != "" {
		return item.Image.URL
	}
	for _, group := range item.Extensions["media"]["group"] {
		for _, thumb := range group.Children["thumbnail"] {
			if url := thumb.Attrs["url"]; url != "" {
				return url
			}
		}
	}

	return ""
}

// The content body is the media content url plus the media description when
// the entry carries a media group, otherwise the entry's own content or
// description.
func content(item *gofeed.Item) string {
	for _, group := range item.Extensions["media"]["group"] {
		var mediaURL, mediaDesc string
		for _, c := range group.Children["content"] {
			if url := c.Attrs["url"]; url != "" {
				mediaURL = url
				break
			}
		}
		for _, d := range group.Children["description"] {
			if d.Value != "" {
				mediaDesc = sanitize(d.Value)
				break
			}
		}
		if mediaURL != "" || mediaDesc != "" {
			return strings.TrimSpace(mediaURL + "\n" + mediaDesc)
		}
	}
	if item.Content != "" {
		return sanitize(item.Content)
	}

	return sanitize(item.Description)
}

func creator(item *gofeed.Item) string {
	for _, author := range item.Authors {
		if author.Name != "" {
			return author.Name
		}
	}

	return ""
}

var stripPolicy = bluemonday.StrictPolicy()

// Removes all html tags from the string, usually a title or description.
//
// Also limits the length so there's not a massive chunk of text being stored.
func sanitize(s string) string {
	s = strings.TrimSpace(s)
	s = stripPolicy.Sanitize(s)
	if len(s) > 2048 {
		s = s[:2048]
	}

	return s
}
