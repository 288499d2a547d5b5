// Package archive writes JSON snapshots of scored articles and cluster
// partitions to S3 for downstream consumers and audit. Optional: the
// pipeline runs fine without a configured bucket.
package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"

	"github.com/anujpatel512/bias-lens/types"
)

// Config selects the target bucket. Region falls back to the standard AWS
// config/credential chain when empty.
type Config struct {
	Bucket string
	Region string
	Prefix string
}

// Archiver uploads snapshot objects to one bucket/prefix.
type Archiver struct {
	client *s3.Client
	bucket string
	prefix string
}

// New creates an archiver using the default AWS configuration chain.
func New(ctx context.Context, cfg Config) (*Archiver, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("archive bucket is required")
	}

	var loadOpts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(cfg.Region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, err
	}

	return &Archiver{
		client: s3.NewFromConfig(awsCfg),
		bucket: cfg.Bucket,
		prefix: cfg.Prefix,
	}, nil
}

// PutAssessment writes one scored article's assessment snapshot. Articles
// already archived are skipped, so a batch retried after a partial failure
// does not re-upload what the first pass landed.
func (a *Archiver) PutAssessment(ctx context.Context, article *types.Article, assessment *types.BiasAssessment) error {
	relKey := "assessments/" + article.ID + ".json"
	if archived, err := a.Exists(ctx, relKey); err == nil && archived {
		log.Printf("Assessment for %s already archived, skipping", article.ID)
		return nil
	}

	payload := map[string]interface{}{
		"article_id":    article.ID,
		"source_outlet": article.SourceOutlet,
		"title":         article.Title,
		"url":           article.URL,
		"published_at":  article.PublishedAt,
		"fingerprint":   article.ContentFingerprint,
		"assessment":    assessment,
	}
	return a.putJSON(ctx, a.prefix+relKey, payload)
}

// PutClusters writes the whole cluster partition of a run as one object.
func (a *Archiver) PutClusters(ctx context.Context, runID string, clusters []*types.NarrativeCluster) error {
	key := a.prefix + "clusters/" + runID + ".json"
	return a.putJSON(ctx, key, clusters)
}

// Exists reports whether an object is already archived (200 from HeadObject;
// false on 404/NotFound).
func (a *Archiver) Exists(ctx context.Context, key string) (bool, error) {
	_, err := a.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(a.prefix + key),
	})
	if err == nil {
		return true, nil
	}

	var respErr *awshttp.ResponseError
	if errors.As(err, &respErr) && respErr.HTTPStatusCode() == 404 {
		return false, nil
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) && apiErr.ErrorCode() == "NotFound" {
		return false, nil
	}
	return false, err
}

func (a *Archiver) putJSON(ctx context.Context, key string, payload interface{}) error {
	b, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal archive object %s: %w", key, err)
	}

	_, err = a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(b),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("upload %s: %w", key, err)
	}
	return nil
}
