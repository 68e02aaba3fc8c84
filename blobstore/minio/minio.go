package minio

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/poiesic/recall/blobstore"
)

// Store implements blobstore.BlobStore for MinIO and S3-compatible storage.
type Store struct {
	client *minio.Client
	bucket string
	prefix string
}

// Options configures a connection to an S3-compatible endpoint.
type Options struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Bucket    string

	// RootPrefix is prepended to all keys (e.g. "knowledge-base/").
	RootPrefix string
}

// Connect dials an S3-compatible endpoint and returns a store over one bucket.
func Connect(opts Options) (*Store, error) {
	client, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure: opts.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", opts.Endpoint, err)
	}
	return NewStore(client, opts.Bucket, opts.RootPrefix), nil
}

// NewStore creates a blob store over an existing client.
// bucket is the bucket name; rootPrefix is prepended to all keys.
func NewStore(client *minio.Client, bucket, rootPrefix string) *Store {
	return &Store{
		client: client,
		bucket: bucket,
		prefix: rootPrefix,
	}
}

var _ blobstore.BlobStore = (*Store)(nil)

func (s *Store) key(name string) string {
	return path.Join(s.prefix, name)
}

// Put writes a blob. Writes on S3-compatible stores are atomic per object.
func (s *Store) Put(ctx context.Context, name string, data []byte, contentType string, metadata map[string]string) error {
	key := s.key(name)
	_, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType:  contentType,
		UserMetadata: metadata,
	})
	return err
}

// Get downloads the blob stored under name.
func (s *Store) Get(ctx context.Context, name string) ([]byte, error) {
	key := s.key(name)

	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, mapNotFound(err, name)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, mapNotFound(err, name)
	}
	return data, nil
}

// List returns all blob names with the given prefix. The client pages
// through the bucket listing transparently, so the full key set is returned
// regardless of corpus size.
func (s *Store) List(ctx context.Context, prefix string) ([]string, error) {
	fullPrefix := s.key(prefix)

	var names []string
	for obj := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{
		Prefix:    fullPrefix,
		Recursive: true,
	}) {
		if obj.Err != nil {
			return nil, obj.Err
		}
		// Strip our root prefix
		name := strings.TrimPrefix(obj.Key, s.prefix)
		name = strings.TrimPrefix(name, "/")
		if name != "" {
			names = append(names, name)
		}
	}

	sort.Strings(names)
	return names, nil
}

func mapNotFound(err error, name string) error {
	errResp := minio.ToErrorResponse(err)
	if errResp.Code == "NoSuchKey" || errResp.Code == "NotFound" {
		return fmt.Errorf("%w: %s", blobstore.ErrNotFound, name)
	}
	return err
}
