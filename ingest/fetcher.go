// Package ingest pulls articles from RSS/Atom feeds, extracts their full
// text, fingerprints them, and persists new records to the article store.
package ingest

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/anujpatel512/bias-lens/types"
)

// FeedPresets maps friendly names to feeds of outlets worth comparing.
var FeedPresets = map[string]string{
	"bbc":      "https://feeds.bbci.co.uk/news/world/rss.xml",
	"npr":      "https://feeds.npr.org/1001/rss.xml",
	"guardian": "https://www.theguardian.com/world/rss",
	"politico": "https://www.politico.com/rss/politicopicks.xml",
}

// ResolveFeedURL resolves a preset name to its URL, passing through anything
// that is not a preset (assumed to be a direct URL).
func ResolveFeedURL(feedInput string) string {
	if u, exists := FeedPresets[feedInput]; exists {
		return u
	}
	return feedInput
}

// FetchFeed retrieves and parses a feed, returning up to maxCount article
// records with metadata populated. Content is filled in later by the
// extractor; fingerprints are computed after extraction.
func FetchFeed(feedURL string, maxCount int) ([]*types.Article, error) {
	parser := gofeed.NewParser()
	feed, err := parser.ParseURL(feedURL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch feed: %w", err)
	}

	count := len(feed.Items)
	if maxCount > 0 && count > maxCount {
		count = maxCount
	}

	outlet := outletFromFeed(feed, feedURL)
	articles := make([]*types.Article, 0, count)

	for i := 0; i < count; i++ {
		item := feed.Items[i]
		if item.Link == "" {
			continue
		}

		var publishedAt time.Time
		if item.PublishedParsed != nil {
			publishedAt = *item.PublishedParsed
		} else if item.UpdatedParsed != nil {
			publishedAt = *item.UpdatedParsed
		}

		author := ""
		if item.Author != nil {
			author = item.Author.Name
		}

		articles = append(articles, &types.Article{
			ID:           types.GenerateID(item.Link),
			SourceOutlet: outlet,
			Title:        item.Title,
			URL:          item.Link,
			Author:       author,
			PublishedAt:  publishedAt,
			FetchedAt:    time.Now(),
			// Seed content with the feed summary; extraction replaces it
			// with the full article body when it succeeds.
			Content: strings.TrimSpace(item.Description),
		})
	}

	return articles, nil
}

func outletFromFeed(feed *gofeed.Feed, feedURL string) string {
	if feed.Title != "" {
		return feed.Title
	}
	if u, err := url.Parse(feedURL); err == nil && u.Host != "" {
		return strings.TrimPrefix(strings.ToLower(u.Host), "www.")
	}
	return feedURL
}
