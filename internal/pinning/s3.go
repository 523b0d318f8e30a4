package pinning

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/dmitrijs2005/docverify/internal/logging"
)

// Seams for tests.
var (
	loadDefaultAWSConfig  = config.LoadDefaultConfig
	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}
	putObject = func(c *s3.Client, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
		return c.PutObject(ctx, in, optFns...)
	}
)

// S3Config addresses an S3-compatible bucket.
type S3Config struct {
	AccessKey    string
	SecretKey    string
	Bucket       string
	Region       string
	BaseEndpoint string
}

// S3Pinner stores content in an S3 bucket under a digest-derived key and
// uses s3://bucket/key as the content identifier. Identical content always
// lands on the same key.
type S3Pinner struct {
	cfg    S3Config
	logger logging.Logger
}

func NewS3Pinner(cfg S3Config, logger logging.Logger) *S3Pinner {
	return &S3Pinner{cfg: cfg, logger: logger.With("module", "pinning", "backend", "s3")}
}

func (p *S3Pinner) client(ctx context.Context) (*s3.Client, error) {
	cfg, err := loadDefaultAWSConfig(ctx,
		config.WithRegion(p.cfg.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			p.cfg.AccessKey,
			p.cfg.SecretKey,
			"",
		)),
	)
	if err != nil {
		return nil, err
	}

	return newS3ClientFromConfig(cfg, func(o *s3.Options) {
		if p.cfg.BaseEndpoint != "" {
			o.BaseEndpoint = aws.String(p.cfg.BaseEndpoint)
			o.UsePathStyle = true
		}
	}), nil
}

// ObjectKey is the bucket key content is stored under.
func ObjectKey(name string, content []byte) string {
	sum := sha256.Sum256(content)
	return path.Join("pins", hex.EncodeToString(sum[:]), path.Base(name))
}

func (p *S3Pinner) Pin(ctx context.Context, name string, content []byte) (string, error) {
	if err := validate(name, content); err != nil {
		return "", err
	}

	c, err := p.client(ctx)
	if err != nil {
		return "", &PinningError{Err: fmt.Errorf("s3 client: %w", err)}
	}

	key := ObjectKey(name, content)
	_, err = putObject(c, ctx, &s3.PutObjectInput{
		Bucket:        aws.String(p.cfg.Bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(content),
		ContentLength: aws.Int64(int64(len(content))),
	})
	if err != nil {
		p.logger.Error(ctx, "put object failed", "key", key, "error", err)
		return "", &PinningError{Err: err}
	}

	id := fmt.Sprintf("s3://%s/%s", p.cfg.Bucket, key)
	p.logger.Info(ctx, "file pinned", "name", name, "cid", id)
	return id, nil
}
