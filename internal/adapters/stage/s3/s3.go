// Package s3 is the stage store: windows are exported to an s3 prefix and
// this adapter purges that prefix before a retry overwrites it
package s3

import (
	"context"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	perr "slipway/internal/platform/errors"
	"slipway/internal/platform/logger"
)

// deleteBatch is the s3 DeleteObjects hard limit per request
const deleteBatch = 1000

// Config holds the stage bucket connection settings
type Config struct {
	Region string

	// Endpoint overrides the s3 endpoint for minio and friends; empty means AWS
	Endpoint string

	// Static credentials; empty falls back to the default chain
	AccessKey string
	SecretKey string

	// UsePathStyle must be set for most non-AWS endpoints
	UsePathStyle bool
}

// Store implements the s3 stage cleanup
type Store struct {
	client *s3.Client
}

// New builds the stage store from config
func New(ctx context.Context, cfg Config) (*Store, error) {
	loaders := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKey != "" {
		loaders = append(loaders, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	ac, err := awsconfig.LoadDefaultConfig(ctx, loaders...)
	if err != nil {
		return nil, perr.Configf("load aws config: %v", err)
	}

	client := s3.NewFromConfig(ac, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})
	return &Store{client: client}, nil
}

// Clean deletes every object under the prefix of uri ("s3://bucket/prefix/").
// A prefix with nothing under it is not an error
func (s *Store) Clean(ctx context.Context, uri string) error {
	bucket, prefix, err := SplitURI(uri)
	if err != nil {
		return err
	}

	var deleted int
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(bucket),
		Prefix: aws.String(prefix),
	})

	batch := make([]types.ObjectIdentifier, 0, deleteBatch)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		_, err := s.client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
			Bucket: aws.String(bucket),
			Delete: &types.Delete{
				Objects: batch,
				Quiet:   aws.Bool(true),
			},
		})
		if err != nil {
			return perr.Wrap(err, perr.ErrorCodeUnavailable, "stage delete failed")
		}
		deleted += len(batch)
		batch = batch[:0]
		return nil
	}

	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return perr.Wrap(err, perr.ErrorCodeUnavailable, "stage list failed")
		}
		for _, obj := range page.Contents {
			batch = append(batch, types.ObjectIdentifier{Key: obj.Key})
			if len(batch) == deleteBatch {
				if err := flush(); err != nil {
					return err
				}
			}
		}
	}
	if err := flush(); err != nil {
		return err
	}

	if deleted > 0 {
		logger.C(ctx).Info().
			Str("bucket", bucket).
			Str("prefix", prefix).
			Int("objects", deleted).
			Msg("stage prefix cleaned")
	}
	return nil
}

// SplitURI splits "s3://bucket/key/prefix/" into bucket and prefix
func SplitURI(uri string) (bucket, prefix string, err error) {
	rest, ok := strings.CutPrefix(uri, "s3://")
	if !ok {
		return "", "", perr.Configf("stage uri %q is not an s3 uri", uri)
	}
	bucket, prefix, ok = strings.Cut(rest, "/")
	if !ok || bucket == "" {
		return "", "", perr.Configf("stage uri %q has no bucket", uri)
	}
	return bucket, prefix, nil
}
