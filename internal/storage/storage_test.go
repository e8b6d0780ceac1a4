package storage

import (
	"context"
	"errors"
	"io"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exerciseProvider(t *testing.T, p FileProvider) {
	t.Helper()
	ctx := context.Background()

	_, err := p.Read(ctx, "attendance/missing.csv")
	assert.True(t, errors.Is(err, ErrNotFound), "got %v", err)

	ok, err := p.Exists(ctx, "attendance/a.csv")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, p.Write(ctx, "attendance/a.csv", []byte("a")))
	require.NoError(t, p.Write(ctx, "attendance/b.csv", []byte("b")))
	require.NoError(t, p.Write(ctx, "prompts/classify.tmpl", []byte("c")))

	data, err := p.Read(ctx, "attendance/a.csv")
	require.NoError(t, err)
	assert.Equal(t, "a", string(data))

	ok, err = p.Exists(ctx, "attendance/a.csv")
	require.NoError(t, err)
	assert.True(t, ok)

	files, err := p.List(ctx, "attendance")
	require.NoError(t, err)
	assert.Equal(t, []string{"attendance/a.csv", "attendance/b.csv"}, files)

	require.NoError(t, p.Delete(ctx, "attendance/a.csv"))
	require.NoError(t, p.Delete(ctx, "attendance/a.csv"))
	ok, err = p.Exists(ctx, "attendance/a.csv")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDirProvider(t *testing.T) {
	exerciseProvider(t, NewDirProvider(t.TempDir()))
}

func TestDirProviderStaysInsideBase(t *testing.T) {
	dir := t.TempDir()
	p := NewDirProvider(dir)
	require.NoError(t, p.Write(context.Background(), "../../escape.txt", []byte("x")))

	files, err := p.List(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, []string{"escape.txt"}, files)
}

func TestPrefixed(t *testing.T) {
	base := NewDirProvider(t.TempDir())
	p := NewPrefixed(base, "tenant/")
	exerciseProvider(t, p)

	ok, err := base.Exists(context.Background(), "tenant/attendance/b.csv")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestGitProvider(t *testing.T) {
	t.Run("requires a path", func(t *testing.T) {
		_, err := NewGitProvider(GitOptions{})
		assert.Error(t, err)
	})

	t.Run("missing repository without init", func(t *testing.T) {
		_, err := NewGitProvider(GitOptions{Path: t.TempDir() + "/nope"})
		assert.Error(t, err)
	})

	t.Run("commits writes and deletes", func(t *testing.T) {
		path := t.TempDir() + "/exports"
		p, err := NewGitProvider(GitOptions{Path: path, InitIfMissing: true, AuthorName: "exporter"})
		require.NoError(t, err)

		exerciseProvider(t, p)

		// rewriting identical content does not add a commit
		require.NoError(t, p.Write(context.Background(), "attendance/b.csv", []byte("b")))

		repo, err := git.PlainOpen(path)
		require.NoError(t, err)
		iter, err := repo.Log(&git.LogOptions{})
		require.NoError(t, err)

		var msgs []string
		require.NoError(t, iter.ForEach(func(c *object.Commit) error {
			assert.Equal(t, "exporter", c.Author.Name)
			msgs = append(msgs, c.Message)
			return nil
		}))
		assert.Equal(t, []string{
			"Delete attendance/a.csv",
			"Write prompts/classify.tmpl",
			"Write attendance/b.csv",
			"Write attendance/a.csv",
		}, msgs)
	})

	t.Run("rejects the git directory", func(t *testing.T) {
		p, err := NewGitProvider(GitOptions{Path: t.TempDir(), InitIfMissing: true})
		require.NoError(t, err)
		assert.Error(t, p.Write(context.Background(), ".git/config", []byte("x")))
	})
}

type fakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: map[string][]byte{}, types: map[string]string{}}
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(strings.NewReader(string(data)))}, nil
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[aws.ToString(in.Key)] = data
	f.types[aws.ToString(in.Key)] = aws.ToString(in.ContentType)
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) HeadObject(_ context.Context, in *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.objects[aws.ToString(in.Key)]; !ok {
		return nil, &types.NotFound{}
	}
	return &s3.HeadObjectOutput{}, nil
}

func (f *fakeS3) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, aws.ToString(in.Key))
	return &s3.DeleteObjectOutput{}, nil
}

func (f *fakeS3) ListObjectsV2(_ context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var keys []string
	for k := range f.objects {
		if strings.HasPrefix(k, aws.ToString(in.Prefix)) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	out := &s3.ListObjectsV2Output{}
	for _, k := range keys {
		out.Contents = append(out.Contents, types.Object{Key: aws.String(k)})
	}
	return out, nil
}

func TestS3Provider(t *testing.T) {
	api := newFakeS3()
	p := NewS3Provider(api, "bucket", "/exports/").WithContentType("text/csv")
	exerciseProvider(t, p)

	_, ok := api.objects["exports/attendance/b.csv"]
	assert.True(t, ok)
	assert.Equal(t, "text/csv", api.types["exports/attendance/b.csv"])
}

func TestNew(t *testing.T) {
	ctx := context.Background()

	p, err := New(ctx, Config{Backend: BackendLocal, LocalDir: t.TempDir()})
	require.NoError(t, err)
	assert.IsType(t, &DirProvider{}, p)

	p, err = New(ctx, Config{Backend: BackendS3, S3Bucket: "b", S3Client: newFakeS3()})
	require.NoError(t, err)
	assert.IsType(t, &S3Provider{}, p)

	p, err = New(ctx, Config{Backend: BackendGit, GitPath: t.TempDir()})
	require.NoError(t, err)
	assert.IsType(t, &GitProvider{}, p)

	_, err = New(ctx, Config{Backend: BackendLocal})
	assert.Error(t, err)
	_, err = New(ctx, Config{Backend: BackendS3})
	assert.Error(t, err)
	_, err = New(ctx, Config{Backend: "ftp"})
	assert.Error(t, err)
}
