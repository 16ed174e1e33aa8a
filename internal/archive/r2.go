// Package archive mirrors persisted digests to S3-compatible object storage
// such as CloudFlare R2.
package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/bilgisen/newsdigest/internal/models"
)

// Options configures the R2 archive.
type Options struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	Prefix    string
}

type objectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// R2 writes each digest as a JSON object.
type R2 struct {
	client objectPutter
	bucket string
	prefix string
}

func NewR2(ctx context.Context, opts Options) (*R2, error) {
	if opts.AccessKey == "" || opts.SecretKey == "" {
		return nil, errors.New("archive: access key and secret are required")
	}
	if opts.Bucket == "" {
		return nil, errors.New("archive: bucket is required")
	}
	if opts.Region == "" {
		opts.Region = "auto"
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(opts.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(opts.AccessKey, opts.SecretKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("archive: load aws config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(strings.TrimSuffix(opts.Endpoint, "/"+opts.Bucket))
		}
		o.UsePathStyle = true
	})

	return newR2(client, opts.Bucket, opts.Prefix), nil
}

func newR2(client objectPutter, bucket, prefix string) *R2 {
	if prefix == "" {
		prefix = "digests"
	}
	return &R2{client: client, bucket: bucket, prefix: prefix}
}

// Key returns the object key of a digest:
// <prefix>/<subscriber>/<yyyy>/<mm>/<dd>/<id>.json.
func (a *R2) Key(d *models.Digest) string {
	return path.Join(
		a.prefix,
		url.PathEscape(d.SubscriberID),
		d.CreatedAt.UTC().Format("2006/01/02"),
		d.ID+".json",
	)
}

func (a *R2) Archive(ctx context.Context, d *models.Digest) error {
	if d == nil || d.ID == "" {
		return errors.New("archive: digest has no id")
	}

	body, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("archive: marshal digest: %w", err)
	}

	_, err = a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(a.Key(d)),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
		Metadata: map[string]string{
			"subscriber": d.SubscriberID,
			"topic":      d.Topic,
		},
	})
	if err != nil {
		return fmt.Errorf("archive: put %s: %w", d.ID, err)
	}
	return nil
}
