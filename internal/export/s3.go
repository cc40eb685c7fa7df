package export

import (
	"context"
	"fmt"
	"os"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/sirupsen/logrus"

	"fknsrs.biz/p/ytmetrics/internal/ctxhttpclient"
	"fknsrs.biz/p/ytmetrics/internal/ctxlogger"
)

type UploaderOptions struct {
	Bucket string
	Prefix string
	Region string
	// Endpoint points at an S3-compatible service instead of AWS. Requests
	// then use path-style addressing.
	Endpoint  string
	AccessKey string
	SecretKey string
}

type Uploader struct {
	client *s3.Client
	bucket string
	prefix string
}

func NewUploader(ctx context.Context, opts UploaderOptions) (*Uploader, error) {
	if opts.Bucket == "" {
		return nil, fmt.Errorf("export.NewUploader: bucket is required")
	}

	region := opts.Region
	if region == "" {
		region = "us-east-1"
	}

	loadOpts := []func(*config.LoadOptions) error{
		config.WithRegion(region),
		config.WithHTTPClient(ctxhttpclient.GetHTTPClient(ctx)),
	}
	if opts.AccessKey != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(opts.AccessKey, opts.SecretKey, "")))
	}

	cfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("export.NewUploader: could not load aws config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
			o.UsePathStyle = true
		}
	})

	return &Uploader{
		client: client,
		bucket: opts.Bucket,
		prefix: strings.Trim(opts.Prefix, "/"),
	}, nil
}

// Key is the object key a file named name is uploaded under.
func (u *Uploader) Key(name string) string {
	if u.prefix == "" {
		return name
	}

	return path.Join(u.prefix, name)
}

// Upload puts the file at filePath into the bucket under Key(name).
func (u *Uploader) Upload(ctx context.Context, name, filePath string) error {
	fd, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("export.Uploader.Upload: %w", err)
	}
	defer fd.Close()

	key := u.Key(name)

	if _, err := u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      &u.bucket,
		Key:         &key,
		Body:        fd,
		ContentType: aws.String("text/csv; charset=utf-8"),
	}); err != nil {
		return fmt.Errorf("export.Uploader.Upload: %s: %w", key, err)
	}

	ctxlogger.GetLogger(ctx).WithFields(logrus.Fields{
		"export.bucket": u.bucket,
		"export.key":    key,
	}).Info("uploaded export")

	return nil
}
