// Package objstore provides the S3 object handles used by the
// conversion pipeline: a streaming reader for the source object and an
// uploader for the finished parquet buffer. Source objects compressed
// with gzip or zstd are decompressed transparently based on the key
// suffix, so the line decoder always sees plain text.
package objstore

import (
	"bytes"
	"context"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"go.uber.org/zap"

	"github.com/parquetry/parquetry/pkg/errors"
)

const (
	uploadPartSize    = 16 * 1024 * 1024
	uploadConcurrency = 4
)

// Config holds the optional S3 client knobs. The zero value uses the
// default AWS credential chain and endpoints.
type Config struct {
	Region    string
	Endpoint  string // custom endpoint, e.g. a local MinIO
	PathStyle bool   // path-style addressing, required by MinIO
}

// Client is a thin S3 wrapper satisfying the pipeline's source and sink
// interfaces. Build one per process and share it across jobs.
type Client struct {
	s3       *s3.Client
	uploader *manager.Uploader
	logger   *zap.Logger
}

// NewClient builds an S3 client from the default credential chain plus
// the given overrides.
func NewClient(ctx context.Context, cfg Config, logger *zap.Logger) (*Client, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to load AWS configuration")
	}

	var s3Opts []func(*s3.Options)
	if cfg.Endpoint != "" {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		})
	}
	if cfg.PathStyle {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.UsePathStyle = true
		})
	}

	client := s3.NewFromConfig(awsCfg, s3Opts...)
	uploader := manager.NewUploader(client, func(u *manager.Uploader) {
		u.PartSize = uploadPartSize
		u.Concurrency = uploadConcurrency
	})

	return &Client{s3: client, uploader: uploader, logger: logger}, nil
}

// Open returns the object body as a sequential stream, decompressing
// gzip and zstd payloads by key suffix.
func (c *Client) Open(ctx context.Context, bucket, key string) (io.ReadCloser, error) {
	out, err := c.s3.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeIO, "failed to get object").
			WithDetail("bucket", bucket).
			WithDetail("key", key)
	}

	size := int64(-1)
	if out.ContentLength != nil {
		size = *out.ContentLength
	}
	c.logger.Debug("opened source object",
		zap.String("bucket", bucket),
		zap.String("key", key),
		zap.Int64("size", size))

	reader, err := DecompressByKey(out.Body, key)
	if err != nil {
		out.Body.Close()
		return nil, err
	}
	return reader, nil
}

// Put uploads a complete buffer. Large buffers go up in parts; the
// object becomes visible only when the whole upload succeeds.
func (c *Client) Put(ctx context.Context, bucket, key string, data []byte) error {
	contentType := "application/octet-stream"
	if strings.HasSuffix(key, ".parquet") {
		contentType = "application/vnd.apache.parquet"
	}

	_, err := c.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeUpload, "failed to upload object").
			WithDetail("bucket", bucket).
			WithDetail("key", key)
	}

	c.logger.Info("uploaded object",
		zap.String("bucket", bucket),
		zap.String("key", key),
		zap.Int("size", len(data)))
	return nil
}

// Head returns the stored size of an object.
func (c *Client) Head(ctx context.Context, bucket, key string) (int64, error) {
	out, err := c.s3.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return 0, errors.Wrap(err, errors.ErrorTypeIO, "failed to head object").
			WithDetail("bucket", bucket).
			WithDetail("key", key)
	}
	if out.ContentLength == nil {
		return 0, nil
	}
	return *out.ContentLength, nil
}

// DecompressByKey wraps body with a decompressor chosen by the key's
// file extension. Unrecognized extensions pass through untouched.
func DecompressByKey(body io.ReadCloser, key string) (io.ReadCloser, error) {
	switch {
	case strings.HasSuffix(key, ".gz"):
		gz, err := gzip.NewReader(body)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeIO, "failed to open gzip stream").
				WithDetail("key", key)
		}
		return &decompressedStream{reader: gz, underlying: body}, nil

	case strings.HasSuffix(key, ".zst"):
		zr, err := zstd.NewReader(body)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeIO, "failed to open zstd stream").
				WithDetail("key", key)
		}
		return &decompressedStream{reader: zr.IOReadCloser(), underlying: body}, nil

	default:
		return body, nil
	}
}

// decompressedStream closes both the decompressor and the transport
// body underneath it.
type decompressedStream struct {
	reader     io.ReadCloser
	underlying io.ReadCloser
}

func (d *decompressedStream) Read(p []byte) (int, error) {
	return d.reader.Read(p)
}

func (d *decompressedStream) Close() error {
	err := d.reader.Close()
	if cerr := d.underlying.Close(); err == nil {
		err = cerr
	}
	return err
}
