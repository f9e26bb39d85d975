package client

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"vsgifts-api/internal/config"
	"vsgifts-api/internal/util"
)

// S3Client presigns direct browser uploads of product images.
type S3Client struct {
	presign *s3.PresignClient
	config  *config.S3Config
}

type PresignedUpload struct {
	URL       string              `json:"uploadUrl"`
	Method    string              `json:"method"`
	Key       string              `json:"key"`
	Headers   map[string][]string `json:"headers,omitempty"`
	ExpiresAt time.Time           `json:"expiresAt"`
}

func NewS3Client(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*S3Client, error) {
	s3Config := cfg.S3

	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(s3Config.Region),
	}
	if s3Config.AccessKey != "" && s3Config.SecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(s3Config.AccessKey, s3Config.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if s3Config.Endpoint != "" {
			o.BaseEndpoint = aws.String(s3Config.Endpoint)
			o.UsePathStyle = true
		}
	})

	logger.Info("S3 presign client initialized",
		util.String("bucket", s3Config.Bucket),
		util.String("region", s3Config.Region),
	)

	return &S3Client{
		presign: s3.NewPresignClient(client),
		config:  &s3Config,
	}, nil
}

// PresignProductImageUpload returns a PUT URL for a new object under products/.
func (c *S3Client) PresignProductImageUpload(ctx context.Context, filename, contentType string) (*PresignedUpload, error) {
	key := "products/" + uuid.NewString() + "-" + cleanFilename(filename)

	req, err := c.presign.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(c.config.Bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
	}, s3.WithPresignExpires(c.config.URLExpiry))
	if err != nil {
		return nil, fmt.Errorf("failed to presign upload: %w", err)
	}

	return &PresignedUpload{
		URL:       req.URL,
		Method:    req.Method,
		Key:       key,
		Headers:   req.SignedHeader,
		ExpiresAt: time.Now().Add(c.config.URLExpiry),
	}, nil
}

func cleanFilename(name string) string {
	name = path.Base(strings.ReplaceAll(name, "\\", "/"))
	name = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, name)
	if name == "." || name == "" || name == "/" {
		return "image"
	}
	return name
}
