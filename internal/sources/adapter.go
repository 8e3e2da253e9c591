// Package sources provides intelligence source adapters and scan aggregation
package sources

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"trendpulse/internal/core"
)

// maxSummaryRunes clamps item content carried into the pipeline.
const maxSummaryRunes = 500

// Adapter fetches raw items from a single configured source.
type Adapter interface {
	Name() string
	Fetch(ctx context.Context) ([]core.RawItem, error)
}

// RSS represents an RSS feed structure
type RSS struct {
	XMLName xml.Name `xml:"rss"`
	Channel Channel  `xml:"channel"`
}

// Channel represents an RSS channel
type Channel struct {
	Title string    `xml:"title"`
	Items []RSSItem `xml:"item"`
}

// RSSItem represents an RSS item
type RSSItem struct {
	Title       string   `xml:"title"`
	Link        string   `xml:"link"`
	Description string   `xml:"description"`
	Author      string   `xml:"author"`
	PubDate     string   `xml:"pubDate"`
	GUID        string   `xml:"guid"`
	Categories  []string `xml:"category"`
}

// Atom represents an Atom feed structure
type Atom struct {
	XMLName xml.Name    `xml:"feed"`
	Title   string      `xml:"title"`
	Entries []AtomEntry `xml:"entry"`
}

// AtomLink represents an Atom link element
type AtomLink struct {
	Href string `xml:"href,attr"`
	Rel  string `xml:"rel,attr"`
}

// AtomCategory represents an Atom category element
type AtomCategory struct {
	Term string `xml:"term,attr"`
}

// AtomAuthor represents an Atom author element
type AtomAuthor struct {
	Name string `xml:"name"`
}

// AtomEntry represents an Atom entry
type AtomEntry struct {
	Title      string         `xml:"title"`
	Link       []AtomLink     `xml:"link"`
	Summary    string         `xml:"summary"`
	Author     AtomAuthor     `xml:"author"`
	Published  string         `xml:"published"`
	Updated    string         `xml:"updated"`
	ID         string         `xml:"id"`
	Categories []AtomCategory `xml:"category"`
}

// FeedAdapter fetches items from a live RSS/Atom feed.
type FeedAdapter struct {
	name      string
	url       string
	client    *http.Client
	userAgent string
}

// NewFeedAdapter creates a live feed adapter for a single source.
func NewFeedAdapter(name, url string, timeout time.Duration, userAgent string) *FeedAdapter {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &FeedAdapter{
		name:      name,
		url:       url,
		client:    &http.Client{Timeout: timeout},
		userAgent: userAgent,
	}
}

// Name returns the configured source name.
func (a *FeedAdapter) Name() string { return a.name }

// Fetch retrieves and parses the feed, converting entries into RawItems.
func (a *FeedAdapter) Fetch(ctx context.Context) ([]core.RawItem, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", a.userAgent)

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch feed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("feed returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read feed body: %w", err)
	}

	return a.parseBody(body)
}

// parseBody attempts to parse the payload as RSS first, then Atom.
func (a *FeedAdapter) parseBody(body []byte) ([]core.RawItem, error) {
	var rss RSS
	if err := xml.Unmarshal(body, &rss); err == nil && rss.Channel.Title != "" {
		return a.fromRSS(rss), nil
	}

	var atom Atom
	if err := xml.Unmarshal(body, &atom); err == nil && atom.Title != "" {
		return a.fromAtom(atom), nil
	}

	return nil, fmt.Errorf("unable to parse as RSS or Atom feed")
}

func (a *FeedAdapter) fromRSS(rss RSS) []core.RawItem {
	var items []core.RawItem
	for _, entry := range rss.Channel.Items {
		if entry.Title == "" || entry.Link == "" {
			continue
		}
		items = append(items, core.RawItem{
			Title:       strings.TrimSpace(entry.Title),
			Content:     cleanHTML(entry.Description),
			Author:      strings.TrimSpace(entry.Author),
			PublishedAt: parseFeedDate(entry.PubDate),
			Tags:        entry.Categories,
			ExternalID:  entry.Link,
			URL:         entry.Link,
			Source:      a.name,
		})
	}
	return items
}

func (a *FeedAdapter) fromAtom(atom Atom) []core.RawItem {
	var items []core.RawItem
	for _, entry := range atom.Entries {
		var link string
		for _, l := range entry.Link {
			if l.Rel == "" || l.Rel == "alternate" {
				link = l.Href
				break
			}
		}
		if entry.Title == "" || link == "" {
			continue
		}

		tags := make([]string, 0, len(entry.Categories))
		for _, c := range entry.Categories {
			tags = append(tags, c.Term)
		}

		published := entry.Published
		if published == "" {
			published = entry.Updated
		}

		items = append(items, core.RawItem{
			Title:       strings.TrimSpace(entry.Title),
			Content:     cleanHTML(entry.Summary),
			Author:      strings.TrimSpace(entry.Author.Name),
			PublishedAt: parseFeedDate(published),
			Tags:        tags,
			ExternalID:  entry.ID,
			URL:         link,
			Source:      a.name,
		})
	}
	return items
}

var htmlTagPattern = regexp.MustCompile(`<[^>]+>`)

// cleanHTML strips markup and clamps the text to the summary budget.
func cleanHTML(text string) string {
	if text == "" {
		return ""
	}
	text = strings.TrimSpace(htmlTagPattern.ReplaceAllString(text, ""))
	runes := []rune(text)
	if len(runes) > maxSummaryRunes {
		return string(runes[:maxSummaryRunes])
	}
	return text
}

// parseFeedDate parses the date formats seen across RSS and Atom feeds.
func parseFeedDate(dateStr string) time.Time {
	dateStr = strings.TrimSpace(dateStr)
	if dateStr == "" {
		return time.Time{}
	}

	formats := []string{
		time.RFC3339,
		time.RFC1123,
		time.RFC1123Z,
		"Mon, 2 Jan 2006 15:04:05 -0700",
		"Mon, 2 Jan 2006 15:04:05 MST",
		"2006-01-02T15:04:05Z",
		"2006-01-02 15:04:05",
	}
	for _, format := range formats {
		if t, err := time.Parse(format, dateStr); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}
