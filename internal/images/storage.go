package images

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	appconfig "ambitious/internal/config"
	"ambitious/internal/logging"
)

// R2Storage writes objects to a Cloudflare R2 bucket through the S3 API.
type R2Storage struct {
	client    *s3.Client
	bucket    string
	publicURL string
}

func NewR2Storage(ctx context.Context, accountID, accessKey, secretKey, bucket, publicURL string) (*R2Storage, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(accessKey, secretKey, "")),
		awsconfig.WithRegion("auto"),
	)
	if err != nil {
		return nil, fmt.Errorf("r2 config: %w", err)
	}
	endpoint := fmt.Sprintf("https://%s.r2.cloudflarestorage.com", accountID)
	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(endpoint)
		o.UsePathStyle = true
	})
	return &R2Storage{client: client, bucket: bucket, publicURL: strings.TrimRight(publicURL, "/")}, nil
}

func (s *R2Storage) Put(ctx context.Context, key string, img Image) (string, error) {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(img.Data),
		ContentType: aws.String(img.MIMEType),
	})
	if err != nil {
		return "", fmt.Errorf("r2 put %s: %w", key, err)
	}
	return s.publicURL + "/" + key, nil
}

// LocalStorage writes under a directory served at baseURL.
type LocalStorage struct {
	dir     string
	baseURL string
}

func NewLocalStorage(dir, baseURL string) *LocalStorage {
	return &LocalStorage{dir: dir, baseURL: strings.TrimRight(baseURL, "/")}
}

func (s *LocalStorage) Put(_ context.Context, key string, img Image) (string, error) {
	if strings.Contains(key, "..") {
		return "", errors.New("invalid object key")
	}
	path := filepath.Join(s.dir, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(path, img.Data, 0o644); err != nil {
		return "", err
	}
	return s.baseURL + "/" + key, nil
}

// FallbackStorage tries the primary store and falls back to the secondary on error.
type FallbackStorage struct {
	Primary   Storage
	Secondary Storage
}

func (s FallbackStorage) Put(ctx context.Context, key string, img Image) (string, error) {
	url, err := s.Primary.Put(ctx, key, img)
	if err == nil {
		return url, nil
	}
	logging.Warn("primary image storage failed, using fallback", map[string]any{"key": key, "error": err})
	return s.Secondary.Put(ctx, key, img)
}

// NewStorage uses R2 with local fallback when R2 is configured, local disk otherwise.
func NewStorage(ctx context.Context, cfg appconfig.ImagesConfig) (Storage, error) {
	local := NewLocalStorage(cfg.LocalDir, cfg.LocalBaseURL)
	if cfg.R2AccountID == "" || cfg.R2AccessKey == "" || cfg.R2SecretKey == "" || cfg.R2Bucket == "" {
		return local, nil
	}
	r2, err := NewR2Storage(ctx, cfg.R2AccountID, cfg.R2AccessKey, cfg.R2SecretKey, cfg.R2Bucket, cfg.R2PublicURL)
	if err != nil {
		return nil, err
	}
	return FallbackStorage{Primary: r2, Secondary: local}, nil
}
