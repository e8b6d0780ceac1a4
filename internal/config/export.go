package config

import (
	"fmt"

	"github.com/lewisedginton/attendance_bot/internal/storage"
)

// ExportConfig selects where CSV exports and prompt overrides are stored.
type ExportConfig struct {
	Backend   string `env:"STORAGE_BACKEND" yaml:"backend" default:"local"` // "local", "s3", or "git"
	LocalDir  string `env:"STORAGE_LOCAL_DIR" yaml:"local_dir" default:"./data"`
	S3Bucket  string `env:"STORAGE_S3_BUCKET" yaml:"s3_bucket"`
	S3Prefix  string `env:"STORAGE_S3_PREFIX" yaml:"s3_prefix"`
	S3Region  string `env:"STORAGE_S3_REGION" yaml:"s3_region"`
	S3Profile string `env:"STORAGE_S3_PROFILE" yaml:"s3_profile"`
	// S3Endpoint points at an S3 compatible service such as MinIO.
	S3Endpoint string `env:"STORAGE_S3_ENDPOINT" yaml:"s3_endpoint"`

	GitPath        string `env:"STORAGE_GIT_PATH" yaml:"git_path" default:"./data/exports"`
	GitAuthorName  string `env:"STORAGE_GIT_AUTHOR_NAME" yaml:"git_author_name"`
	GitAuthorEmail string `env:"STORAGE_GIT_AUTHOR_EMAIL" yaml:"git_author_email"`
}

func (c ExportConfig) Validate() error {
	switch storage.Backend(c.Backend) {
	case storage.BackendLocal, storage.BackendGit:
		return nil
	case storage.BackendS3:
		if c.S3Bucket == "" {
			return fmt.Errorf("STORAGE_S3_BUCKET is required for the s3 backend")
		}
		return nil
	default:
		return fmt.Errorf("unsupported storage backend %q", c.Backend)
	}
}

// StorageConfig converts to the storage package's configuration.
func (c ExportConfig) StorageConfig() storage.Config {
	return storage.Config{
		Backend:        storage.Backend(c.Backend),
		LocalDir:       c.LocalDir,
		S3Bucket:       c.S3Bucket,
		S3Prefix:       c.S3Prefix,
		S3Region:       c.S3Region,
		S3Profile:      c.S3Profile,
		S3Endpoint:     c.S3Endpoint,
		GitPath:        c.GitPath,
		GitAuthorName:  c.GitAuthorName,
		GitAuthorEmail: c.GitAuthorEmail,
	}
}
