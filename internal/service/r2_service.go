package service

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	config "github.com/maheshrc27/postflow/configs"
	"github.com/maheshrc27/postflow/internal/logger"
)

// MediaStorage stores uploaded media and returns its public URL.
type MediaStorage interface {
	Upload(ctx context.Context, key string, file []byte, contentType string) (string, error)
}

type objectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type R2Service struct {
	client    objectPutter
	bucket    string
	publicURL string
}

// NewR2Service builds an S3 client against the Cloudflare R2 endpoint of
// the configured account.
func NewR2Service(ctx context.Context, cfg config.R2) (*R2Service, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")),
		awsconfig.WithRegion("auto"),
	)
	if err != nil {
		logger.L().Info(err.Error())
		return nil, err
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(fmt.Sprintf("https://%s.r2.cloudflarestorage.com", cfg.AccountID))
	})
	return newR2Service(client, cfg.BucketName, cfg.PublicURL), nil
}

func newR2Service(client objectPutter, bucket, publicURL string) *R2Service {
	return &R2Service{client: client, bucket: bucket, publicURL: strings.TrimRight(publicURL, "/")}
}

func (r *R2Service) Upload(ctx context.Context, key string, file []byte, contentType string) (string, error) {
	input := &s3.PutObjectInput{
		Bucket:      aws.String(r.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(file),
		ContentType: aws.String(contentType),
	}

	if _, err := r.client.PutObject(ctx, input); err != nil {
		logger.L().Info(err.Error())
		return "", err
	}
	return fmt.Sprintf("%s/%s", r.publicURL, key), nil
}
