package ingest

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	readability "github.com/go-shiori/go-readability"

	"github.com/anujpatel512/bias-lens/store"
	"github.com/anujpatel512/bias-lens/types"
)

const (
	// WorkerCount bounds concurrent full-text fetches.
	WorkerCount      = 5
	extractorTimeout = 30 * time.Second
)

// ExtractAllContent fetches and extracts full text for all articles using a
// worker pool, replacing the feed-summary placeholder content. Articles
// whose extraction fails keep their summary content; the error is logged and
// the article remains usable if the summary is long enough to score.
func ExtractAllContent(articles []*types.Article) {
	var wg sync.WaitGroup
	queue := make(chan *types.Article, len(articles))

	for i := 0; i < WorkerCount; i++ {
		go func(workerID int) {
			for article := range queue {
				if err := extractContent(article); err != nil {
					log.Printf("[Worker %d] Failed to extract %s: %v", workerID, article.URL, err)
				}
				wg.Done()
			}
		}(i)
	}

	for _, article := range articles {
		wg.Add(1)
		queue <- article
	}

	wg.Wait()
	close(queue)
}

func extractContent(article *types.Article) error {
	if article.URL == "" {
		return fmt.Errorf("article URL is empty")
	}

	extracted, err := readability.FromURL(article.URL, extractorTimeout)
	if err != nil {
		return fmt.Errorf("readability extraction failed: %w", err)
	}

	if extracted.TextContent != "" {
		article.Content = extracted.TextContent
	}
	if article.Author == "" {
		article.Author = extracted.Byline
	}
	return nil
}

// Run fetches a feed, extracts content, fingerprints, and persists new
// articles. Returns the number of articles saved. Articles whose text was
// already ingested under another ID are skipped by the store.
func Run(ctx context.Context, articles store.ArticleStore, feedInput string, maxCount int) (int, error) {
	feedURL := ResolveFeedURL(feedInput)

	fetched, err := FetchFeed(feedURL, maxCount)
	if err != nil {
		return 0, err
	}
	log.Printf("Fetched %d articles from %s", len(fetched), feedURL)

	ExtractAllContent(fetched)

	saved := 0
	for _, article := range fetched {
		article.ContentFingerprint = types.Fingerprint(article.Title, article.Content)
		if err := articles.SaveArticle(ctx, article); err != nil {
			log.Printf("Warning: failed to save article %s: %v", article.ID, err)
			continue
		}
		saved++
	}
	return saved, nil
}
