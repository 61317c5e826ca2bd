package photostore

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/sethvargo/go-retry"
)

const (
	uploadRetryBase = 250 * time.Millisecond
	uploadRetryCap  = 5 * time.Second
	uploadRetryMax  = 4
)

// s3Client is an interface for testability.
type s3Client interface {
	PutObject(ctx context.Context, input *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, input *s3.DeleteObjectInput, opts ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// Config holds S3-compatible storage configuration. PublicBaseURL is the
// prefix recorded on photo rows; when empty, a path-style URL against the
// endpoint is used.
type Config struct {
	Endpoint      string
	Bucket        string
	Region        string
	AccessKey     string
	SecretKey     string
	PublicBaseURL string
}

// Manager uploads team photos to S3-compatible storage. A Manager with no
// credentials is disabled; photo submissions then carry an external URL.
type Manager struct {
	cfg    Config
	client s3Client
}

func New(cfg Config) *Manager {
	m := &Manager{cfg: cfg}
	if cfg.Bucket != "" && cfg.AccessKey != "" && cfg.SecretKey != "" {
		m.client = newS3Client(cfg)
	}
	return m
}

func newS3Client(cfg Config) *s3.Client {
	opts := s3.Options{
		Region:       cfg.Region,
		Credentials:  credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		UsePathStyle: true,
	}
	if cfg.Endpoint != "" {
		opts.BaseEndpoint = aws.String(cfg.Endpoint)
	}
	return s3.New(opts)
}

// Enabled reports whether uploads are configured.
func (m *Manager) Enabled() bool {
	return m != nil && m.client != nil
}

// Upload stores the photo bytes under photos/<team_id>/<timestamp>-<name> and
// returns the public URL. Transient failures are retried with capped
// exponential backoff.
func (m *Manager) Upload(ctx context.Context, teamID int64, name, contentType string, data []byte) (string, error) {
	if !m.Enabled() {
		return "", fmt.Errorf("photo storage not configured")
	}

	key := fmt.Sprintf("photos/%d/%d-%s", teamID, time.Now().UTC().Unix(), sanitizeName(name))

	backoff := retry.WithMaxRetries(uploadRetryMax, retry.WithCappedDuration(uploadRetryCap, retry.NewExponential(uploadRetryBase)))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		_, err := m.client.PutObject(ctx, &s3.PutObjectInput{
			Bucket:      aws.String(m.cfg.Bucket),
			Key:         aws.String(key),
			Body:        bytes.NewReader(data),
			ContentType: aws.String(contentType),
		})
		if err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("upload photo: %w", err)
	}

	return m.publicURL(key), nil
}

// Delete removes a previously uploaded photo. URLs that did not come from this
// manager (external submissions) are left alone.
func (m *Manager) Delete(ctx context.Context, photoURL string) error {
	if !m.Enabled() {
		return nil
	}
	key, ok := m.keyFromURL(photoURL)
	if !ok {
		return nil
	}
	_, err := m.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(m.cfg.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("delete photo: %w", err)
	}
	return nil
}

func (m *Manager) publicURL(key string) string {
	if m.cfg.PublicBaseURL != "" {
		return strings.TrimSuffix(m.cfg.PublicBaseURL, "/") + "/" + key
	}
	return strings.TrimSuffix(m.cfg.Endpoint, "/") + "/" + m.cfg.Bucket + "/" + key
}

func (m *Manager) keyFromURL(photoURL string) (string, bool) {
	prefix := m.publicURL("")
	if !strings.HasPrefix(photoURL, prefix) {
		return "", false
	}
	key := strings.TrimPrefix(photoURL, prefix)
	if key == "" {
		return "", false
	}
	return key, true
}

// sanitizeName strips path components and characters that do not belong in an
// object key.
func sanitizeName(name string) string {
	name = path.Base(strings.ReplaceAll(name, "\\", "/"))
	if name == "." || name == ".." || name == "/" {
		return "photo"
	}
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	if b.Len() == 0 {
		return "photo"
	}
	return b.String()
}
