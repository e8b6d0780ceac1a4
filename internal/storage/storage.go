package storage

import (
	"context"
	"fmt"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Backend names a FileProvider implementation.
type Backend string

const (
	BackendLocal Backend = "local"
	BackendS3    Backend = "s3"
	BackendGit   Backend = "git"
)

// Config selects and configures a backend.
type Config struct {
	Backend Backend

	LocalDir string

	S3Bucket   string
	S3Prefix   string
	S3Region   string
	S3Endpoint string
	S3Profile  string
	// S3Client overrides the client built from the default AWS config chain.
	S3Client S3API

	GitPath        string
	GitAuthorName  string
	GitAuthorEmail string
}

// New builds the FileProvider described by cfg.
func New(ctx context.Context, cfg Config) (FileProvider, error) {
	switch cfg.Backend {
	case BackendLocal, "":
		if cfg.LocalDir == "" {
			return nil, fmt.Errorf("local storage requires a directory")
		}
		return NewDirProvider(cfg.LocalDir), nil

	case BackendS3:
		if cfg.S3Bucket == "" {
			return nil, fmt.Errorf("s3 storage requires a bucket")
		}
		api := cfg.S3Client
		if api == nil {
			client, err := newS3Client(ctx, cfg)
			if err != nil {
				return nil, err
			}
			api = client
		}
		return NewS3Provider(api, cfg.S3Bucket, cfg.S3Prefix), nil

	case BackendGit:
		return NewGitProvider(GitOptions{
			Path:          cfg.GitPath,
			AuthorName:    cfg.GitAuthorName,
			AuthorEmail:   cfg.GitAuthorEmail,
			InitIfMissing: true,
		})

	default:
		return nil, fmt.Errorf("unsupported storage backend: %s", cfg.Backend)
	}
}

func newS3Client(ctx context.Context, cfg Config) (*s3.Client, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if cfg.S3Profile != "" {
		opts = append(opts, awsconfig.WithSharedConfigProfile(cfg.S3Profile))
	}
	if cfg.S3Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.S3Region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.S3Endpoint != "" {
			o.BaseEndpoint = &cfg.S3Endpoint
			o.UsePathStyle = true
		}
	}), nil
}
