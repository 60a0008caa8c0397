package compile

import (
	"context"
	"mime"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"golang.org/x/sync/errgroup"

	"github.com/vango-dev/firebolt/internal/config"
	"github.com/vango-dev/firebolt/internal/errors"
)

// PublishConcurrency bounds parallel uploads.
const PublishConcurrency = 8

// PutObjectAPI is the part of the S3 client Publisher needs.
type PutObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Publisher uploads a build output directory to a bucket.
type Publisher struct {
	Client PutObjectAPI
	Bucket string
	Prefix string
}

// NewPublisher creates a publisher backed by an S3 client. Credentials
// come from AWS_ACCESS_KEY_ID, AWS_SECRET_ACCESS_KEY and
// AWS_SESSION_TOKEN.
func NewPublisher(cfg config.PublishConfig) *Publisher {
	opts := s3.Options{
		Region: cfg.Region,
		Credentials: aws.NewCredentialsCache(aws.CredentialsProviderFunc(func(context.Context) (aws.Credentials, error) {
			return aws.Credentials{
				AccessKeyID:     os.Getenv("AWS_ACCESS_KEY_ID"),
				SecretAccessKey: os.Getenv("AWS_SECRET_ACCESS_KEY"),
				SessionToken:    os.Getenv("AWS_SESSION_TOKEN"),
				Source:          "environment",
			}, nil
		})),
	}
	if cfg.Endpoint != "" {
		opts.BaseEndpoint = aws.String(cfg.Endpoint)
		opts.UsePathStyle = true
	}
	return &Publisher{
		Client: s3.New(opts),
		Bucket: cfg.Bucket,
		Prefix: cfg.Prefix,
	}
}

// ObjectKey returns the key for a file at rel under the published root.
func (p *Publisher) ObjectKey(rel string) string {
	return path.Join(strings.Trim(p.Prefix, "/"), filepath.ToSlash(rel))
}

// Publish uploads every regular file under dir and returns the keys
// written.
func (p *Publisher) Publish(ctx context.Context, dir string) ([]string, error) {
	if p.Bucket == "" {
		return nil, errors.New("E032").WithDetail("build.publish.bucket is not set")
	}

	var files []string
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type().IsRegular() {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, errors.New("E032").Wrap(err)
	}

	keys := make([]string, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(PublishConcurrency)
	for i, file := range files {
		rel, err := filepath.Rel(dir, file)
		if err != nil {
			return nil, errors.New("E032").Wrap(err)
		}
		key := p.ObjectKey(rel)
		keys[i] = key
		g.Go(func() error {
			return p.put(gctx, file, key)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, errors.New("E032").WithField("bucket", p.Bucket).Wrap(err)
	}
	return keys, nil
}

func (p *Publisher) put(ctx context.Context, file, key string) error {
	f, err := os.Open(file)
	if err != nil {
		return err
	}
	defer f.Close()

	input := &s3.PutObjectInput{
		Bucket: aws.String(p.Bucket),
		Key:    aws.String(key),
		Body:   f,
	}
	if ct := mime.TypeByExtension(filepath.Ext(file)); ct != "" {
		input.ContentType = aws.String(ct)
	}
	_, err = p.Client.PutObject(ctx, input)
	return err
}
