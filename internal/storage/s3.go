package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
)

// S3API is the subset of *s3.Client used by S3Provider.
type S3API interface {
	GetObject(ctx context.Context, in *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, in *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	HeadObject(ctx context.Context, in *s3.HeadObjectInput, opts ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, opts ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, opts ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// S3Provider stores objects in a bucket, optionally below a key prefix.
type S3Provider struct {
	api         S3API
	bucket      string
	prefix      string
	contentType string
}

func NewS3Provider(api S3API, bucket, prefix string) *S3Provider {
	return &S3Provider{api: api, bucket: bucket, prefix: strings.Trim(prefix, "/")}
}

// WithContentType sets the Content-Type sent on Write.
func (p *S3Provider) WithContentType(ct string) *S3Provider {
	p.contentType = ct
	return p
}

func (p *S3Provider) key(path string) string {
	path = strings.TrimLeft(path, "/")
	if p.prefix == "" {
		return path
	}
	return p.prefix + "/" + path
}

func (p *S3Provider) Read(ctx context.Context, path string) ([]byte, error) {
	key := p.key(path)
	out, err := p.api.GetObject(ctx, &s3.GetObjectInput{Bucket: aws.String(p.bucket), Key: aws.String(key)})
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("s3://%s/%s: %w", p.bucket, key, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get s3://%s/%s: %w", p.bucket, key, err)
	}
	defer func() { _ = out.Body.Close() }()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read s3://%s/%s: %w", p.bucket, key, err)
	}
	return data, nil
}

func (p *S3Provider) Write(ctx context.Context, path string, data []byte) error {
	key := p.key(path)
	in := &s3.PutObjectInput{
		Bucket: aws.String(p.bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(data),
	}
	if p.contentType != "" {
		in.ContentType = aws.String(p.contentType)
	}
	if _, err := p.api.PutObject(ctx, in); err != nil {
		return fmt.Errorf("failed to put s3://%s/%s: %w", p.bucket, key, err)
	}
	return nil
}

func (p *S3Provider) Exists(ctx context.Context, path string) (bool, error) {
	key := p.key(path)
	_, err := p.api.HeadObject(ctx, &s3.HeadObjectInput{Bucket: aws.String(p.bucket), Key: aws.String(key)})
	if err == nil {
		return true, nil
	}
	if isNotFound(err) {
		return false, nil
	}
	return false, fmt.Errorf("failed to head s3://%s/%s: %w", p.bucket, key, err)
}

func (p *S3Provider) Delete(ctx context.Context, path string) error {
	key := p.key(path)
	if _, err := p.api.DeleteObject(ctx, &s3.DeleteObjectInput{Bucket: aws.String(p.bucket), Key: aws.String(key)}); err != nil {
		return fmt.Errorf("failed to delete s3://%s/%s: %w", p.bucket, key, err)
	}
	return nil
}

// List pages through ListObjectsV2. A missing bucket lists as empty.
func (p *S3Provider) List(ctx context.Context, prefix string) ([]string, error) {
	in := &s3.ListObjectsV2Input{
		Bucket: aws.String(p.bucket),
		Prefix: aws.String(p.key(prefix)),
	}

	var keys []string
	pager := s3.NewListObjectsV2Paginator(p.api, in)
	for pager.HasMorePages() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			var noBucket *types.NoSuchBucket
			if errors.As(err, &noBucket) || isNotFound(err) {
				return []string{}, nil
			}
			return nil, fmt.Errorf("failed to list s3://%s/%s: %w", p.bucket, p.key(prefix), err)
		}
		for _, obj := range page.Contents {
			k := aws.ToString(obj.Key)
			if p.prefix != "" {
				k = strings.TrimPrefix(k, p.prefix+"/")
			}
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func isNotFound(err error) bool {
	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}
	var nf *types.NotFound
	if errors.As(err, &nf) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NotFound", "NoSuchKey":
			return true
		}
	}
	return false
}
