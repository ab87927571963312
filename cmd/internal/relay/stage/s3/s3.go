package s3

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"go.uber.org/zap"
)

// staged artifacts expire after one week, same contract as the anonymous
// staging service
const linkExpiry = 7 * 24 * time.Hour

// Uploader stages artifacts in a private s3 bucket and hands out presigned
// retrieval links instead of anonymous ones
type Uploader struct {
	log     *zap.SugaredLogger
	c       *s3.Client
	presign *s3.PresignClient
	config  *Config
}

// Config provides configuration for the s3 staging uploader
type Config struct {
	BucketName   string
	Endpoint     string
	Region       string
	AccessKey    string
	SecretKey    string
	ObjectPrefix string
}

func (c *Config) validate() error {
	if c.BucketName == "" {
		return errors.New("s3 bucket name must not be empty")
	}
	if c.AccessKey == "" {
		return errors.New("s3 accesskey must not be empty")
	}
	if c.SecretKey == "" {
		return errors.New("s3 secretkey must not be empty")
	}

	return nil
}

// New returns a s3 staging uploader
func New(ctx context.Context, log *zap.SugaredLogger, cfg *Config) (*Uploader, error) {
	if cfg == nil {
		return nil, errors.New("s3 staging requires a config")
	}

	err := cfg.validate()
	if err != nil {
		return nil, err
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")),
	)
	if err != nil {
		return nil, err
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return &Uploader{
		log:     log,
		c:       client,
		presign: s3.NewPresignClient(client),
		config:  cfg,
	}, nil
}

// EnsureStagingBucket ensures that the staging bucket exists
func (u *Uploader) EnsureStagingBucket(ctx context.Context) error {
	_, err := u.c.CreateBucket(ctx, &s3.CreateBucketInput{
		Bucket: aws.String(u.config.BucketName),
	})
	if err != nil {
		var owned *types.BucketAlreadyOwnedByYou
		var exists *types.BucketAlreadyExists
		if errors.As(err, &owned) || errors.As(err, &exists) {
			return nil
		}
		return fmt.Errorf("error ensuring staging bucket: %w", err)
	}

	return nil
}

// Upload stages the file at the given path in the bucket and returns a
// presigned retrieval link that expires after one week
func (u *Uploader) Upload(ctx context.Context, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("error opening artifact: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()

	key := filepath.Join(u.config.ObjectPrefix, filepath.Base(path))

	uploader := manager.NewUploader(u.c)
	_, err = uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket: aws.String(u.config.BucketName),
		Key:    aws.String(key),
		Body:   f,
	})
	if err != nil {
		return "", fmt.Errorf("error staging artifact: %w", err)
	}

	req, err := u.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(u.config.BucketName),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(linkExpiry))
	if err != nil {
		return "", fmt.Errorf("error presigning staged artifact: %w", err)
	}

	return req.URL, nil
}
