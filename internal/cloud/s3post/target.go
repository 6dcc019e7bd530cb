// Package s3post posts files straight to an S3 bucket using presigned
// browser-style POST policies. Each file gets its own policy, so the upload
// itself is an ordinary multipart form POST.
package s3post

import (
	"context"
	"fmt"
	nethttp "net/http"
	"path"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	awscreds "github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/nebula-ui/nebula-upload/internal/models"
	"github.com/nebula-ui/nebula-upload/internal/upload"
)

// DefaultExpires is how long a presigned policy stays valid.
const DefaultExpires = 15 * time.Minute

// Options configures a Target.
type Options struct {
	Bucket   string
	Prefix   string // Prepended to the file name to form the object key
	Region   string
	Endpoint string // S3-compatible endpoint; enables path-style addressing
	Expires  time.Duration

	// Static credentials. Empty means the default AWS credential chain
	// (environment, shared config, instance role).
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string

	// HTTPClient is used for credential lookups; proxy settings apply.
	HTTPClient *nethttp.Client
}

// presigner is the subset of *s3.PresignClient used here.
type presigner interface {
	PresignPostObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.PresignPostOptions)) (*s3.PresignedPostRequest, error)
}

// Target resolves one presigned POST endpoint per file.
type Target struct {
	bucket    string
	prefix    string
	expires   time.Duration
	presigner presigner
}

// New loads AWS configuration and builds a Target for opts.Bucket.
func New(ctx context.Context, opts Options) (*Target, error) {
	if opts.Bucket == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}

	loadOpts := []func(*config.LoadOptions) error{}
	if opts.Region != "" {
		loadOpts = append(loadOpts, config.WithRegion(opts.Region))
	}
	if opts.HTTPClient != nil {
		loadOpts = append(loadOpts, config.WithHTTPClient(opts.HTTPClient))
	}
	if opts.AccessKeyID != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			awscreds.NewStaticCredentialsProvider(opts.AccessKeyID, opts.SecretAccessKey, opts.SessionToken),
		))
	}

	cfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
			o.UsePathStyle = true
		}
	})

	return newTarget(opts, s3.NewPresignClient(client)), nil
}

func newTarget(opts Options, p presigner) *Target {
	expires := opts.Expires
	if expires <= 0 {
		expires = DefaultExpires
	}
	return &Target{
		bucket:    opts.Bucket,
		prefix:    opts.Prefix,
		expires:   expires,
		presigner: p,
	}
}

// Key returns the object key used for f.
func (t *Target) Key(f *models.File) string {
	return t.prefix + path.Base(f.Name)
}

// Resolve presigns a POST policy for f. The policy values become form
// fields; S3 requires them ahead of the file part, which is how the
// multipart body is laid out.
func (t *Target) Resolve(ctx context.Context, f *models.File) (upload.Endpoint, error) {
	key := t.Key(f)
	req, err := t.presigner.PresignPostObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(t.bucket),
		Key:    aws.String(key),
	}, func(o *s3.PresignPostOptions) {
		o.Expires = t.expires
	})
	if err != nil {
		return upload.Endpoint{}, fmt.Errorf("failed to presign upload for %s: %w", key, err)
	}

	fields := make(map[string]string, len(req.Values))
	for k, v := range req.Values {
		fields[k] = v
	}
	return upload.Endpoint{URL: req.URL, Fields: fields}, nil
}

var _ upload.Target = (*Target)(nil)
