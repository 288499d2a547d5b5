package pipeline

import (
	"context"
	"log"

	"github.com/anujpatel512/bias-lens/kafka"
)

// IngestedEvent announces that articles landed in the store and scoring
// should run. FeedURL is informational; the scoring pass always walks the
// unscored set.
type IngestedEvent struct {
	FeedURL      string `json:"feed_url,omitempty"`
	ArticleCount int    `json:"article_count"`
}

// NewIngestedHandler returns a Kafka handler that triggers a scoring pass
// followed by a reclustering run for each ingestion event.
func NewIngestedHandler(p *Pipeline) kafka.MessageHandler {
	return &kafka.TypedMessageHandler[IngestedEvent]{
		Validate: func(msg *IngestedEvent) bool {
			return msg.ArticleCount > 0
		},
		Process: func(ctx context.Context, msg *IngestedEvent) error {
			log.Printf("Ingestion event: %d article(s) from %s", msg.ArticleCount, msg.FeedURL)
			if _, err := p.ScoreUnscored(ctx); err != nil {
				return err
			}
			_, err := p.Recluster(ctx)
			return err
		},
	}
}
