// Command pipeline runs one end-to-end cycle from the terminal: ingest a
// feed (or seed demo articles), score whatever is unscored, and recluster.
package main

import (
	"context"
	"flag"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/anujpatel512/bias-lens/config"
	"github.com/anujpatel512/bias-lens/ingest"
	"github.com/anujpatel512/bias-lens/pipeline"
	"github.com/anujpatel512/bias-lens/types"
)

func main() {
	feed := flag.String("feed", "bbc", "feed preset or RSS URL to ingest (empty to skip)")
	count := flag.Int("count", 10, "maximum articles to pull from the feed")
	seed := flag.Bool("seed", false, "load built-in demo articles instead of fetching a feed")
	flag.Parse()

	_ = godotenv.Load()

	cfg := config.FromEnv()
	if cfg.OpenAIAPIKey == "" {
		log.Fatal("OPENAI_API_KEY is required")
	}

	ctx := context.Background()

	p, cleanup, err := pipeline.Build(ctx, cfg, true)
	if err != nil {
		log.Fatalf("Failed to wire pipeline: %v", err)
	}
	defer cleanup()

	if *seed {
		saved := 0
		for _, article := range demoArticles() {
			if err := p.Articles.SaveArticle(ctx, article); err != nil {
				log.Fatalf("Failed to seed article %s: %v", article.ID, err)
			}
			saved++
		}
		log.Printf("Seeded %d demo article(s)", saved)
		*feed = ""
	} else if *feed != "" {
		log.Printf("Feed: %s", ingest.ResolveFeedURL(*feed))
	}

	if err := p.RunOnce(ctx, *feed, *count); err != nil {
		log.Fatalf("Pipeline run failed: %v", err)
	}

	printSummary(ctx, p)
}

func printSummary(ctx context.Context, p *pipeline.Pipeline) {
	clusters, err := p.Articles.ListClusters(ctx)
	if err != nil {
		log.Printf("Failed to load clusters: %v", err)
		return
	}

	log.Printf("--- %d narrative cluster(s) ---", len(clusters))
	for _, cluster := range clusters {
		label := cluster.Label
		if label == "" {
			label = "(unlabeled)"
		}
		log.Printf("%s  %s  [%s]", cluster.ClusterID, label, strings.Join(cluster.MemberArticleIDs, ", "))

		for _, id := range cluster.MemberArticleIDs {
			assessment, err := p.Articles.GetAssessment(ctx, id)
			if err != nil {
				log.Printf("  %s: no assessment", id)
				continue
			}
			parts := make([]string, 0, len(types.Dimensions))
			for _, dim := range types.Dimensions {
				parts = append(parts, string(dim)+"="+strconv.Itoa(assessment.Scores[dim]))
			}
			log.Printf("  %s: %s", id, strings.Join(parts, " "))
		}
	}
}

// demoArticles returns a small fixture set covering two overlapping
// narratives plus an outlier, for offline runs without a feed or Redis.
func demoArticles() []*types.Article {
	now := time.Now().UTC()
	specs := []struct {
		outlet, title, url, content string
	}{
		{
			outlet: "Daily Chronicle",
			title:  "Senate passes sweeping climate bill after marathon session",
			url:    "https://example.com/chronicle/senate-climate-bill",
			content: "The Senate passed a sweeping climate bill early Saturday after a " +
				"marathon overnight session, sending the legislation to the House. " +
				"Supporters said the measure would cut emissions by forty percent by 2035, " +
				"citing an analysis from the Congressional Budget Office. Opponents argued " +
				"the bill would raise energy prices for working families. Senator Ruiz said " +
				"the vote was a turning point for the country's energy policy, while " +
				"industry groups announced they would challenge several provisions in court. " +
				"A study released last month found that similar state-level programs reduced " +
				"emissions without measurable price increases.",
		},
		{
			outlet: "Metro Ledger",
			title:  "Climate bill clears Senate as critics warn of energy costs",
			url:    "https://example.com/ledger/climate-bill-senate",
			content: "A contentious climate bill cleared the Senate this weekend over unified " +
				"opposition, with critics warning that household energy costs could climb. " +
				"The legislation, which supporters say would cut national emissions by forty " +
				"percent by 2035, now heads to the House. Senator Ruiz called the vote a " +
				"turning point, but utility executives reported that compliance costs remain " +
				"unclear. Data from the Energy Information Administration shows residential " +
				"prices have risen three percent over the past year, a figure both sides " +
				"cited during the floor debate.",
		},
		{
			outlet: "Harbor Times",
			title:  "City council approves waterfront stadium deal despite protests",
			url:    "https://example.com/harbor/stadium-deal",
			content: "The city council approved a waterfront stadium deal on Tuesday despite " +
				"weeks of protests from neighborhood groups. The agreement commits three " +
				"hundred million dollars in public financing over twenty years. Council " +
				"president Okafor said the project would anchor the harbor district's " +
				"redevelopment, while opponents reported that an independent audit found the " +
				"city's revenue projections optimistic. Research on comparable stadium deals " +
				"suggests public returns rarely match initial forecasts, according to a " +
				"university study cited at the hearing.",
		},
	}

	articles := make([]*types.Article, 0, len(specs))
	for _, s := range specs {
		article := &types.Article{
			ID:           types.GenerateID(s.url),
			SourceOutlet: s.outlet,
			Title:        s.title,
			Content:      s.content,
			URL:          s.url,
			PublishedAt:  now.Add(-6 * time.Hour),
			FetchedAt:    now,
		}
		article.ContentFingerprint = types.Fingerprint(article.Title, article.Content)
		articles = append(articles, article)
	}
	return articles
}
