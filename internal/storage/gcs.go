package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	gcs "cloud.google.com/go/storage"
	"go.uber.org/zap"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

const gcsPublicHost = "https://storage.googleapis.com"

// GCSStore uses a Google Cloud Storage bucket.
type GCSStore struct {
	client *gcs.Client
	bucket string
	logger *zap.Logger
}

// NewGCSStore creates a GCSStore for the given bucket. opts are passed
// through to the underlying GCS client, allowing credential injection.
func NewGCSStore(ctx context.Context, bucket string, logger *zap.Logger, opts ...option.ClientOption) (*GCSStore, error) {
	client, err := gcs.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("storage: failed to create GCS client: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GCSStore{client: client, bucket: bucket, logger: logger}, nil
}

func (s *GCSStore) Bucket() string {
	return s.bucket
}

// PublicURL returns the storage.googleapis.com URL for name.
func (s *GCSStore) PublicURL(name string) string {
	return gcsPublicHost + "/" + url.PathEscape(s.bucket) + "/" + escapeObjectName(name)
}

// Upload writes content to GCS at ObjectName.
func (s *GCSStore) Upload(ctx context.Context, req *UploadRequest) (*UploadResult, error) {
	w := s.client.Bucket(s.bucket).Object(req.ObjectName).NewWriter(ctx)
	w.ContentType = req.ContentType

	var content io.Reader = req.Content
	if content == nil {
		content = strings.NewReader("")
	}
	if _, err := io.Copy(w, content); err != nil {
		_ = w.Close()
		return nil, gcsError("upload", req.ObjectName, err)
	}
	if err := w.Close(); err != nil {
		return nil, gcsError("upload", req.ObjectName, err)
	}

	s.logger.Debug("gcs object written", zap.String("bucket", s.bucket), zap.String("object", req.ObjectName))
	return &UploadResult{ObjectName: req.ObjectName, StatusCode: http.StatusOK}, nil
}

// List walks the bucket iterator until limit objects have been collected.
func (s *GCSStore) List(ctx context.Context, limit int) ([]ObjectInfo, error) {
	it := s.client.Bucket(s.bucket).Objects(ctx, nil)
	it.PageInfo().MaxSize = limit

	var objects []ObjectInfo
	for len(objects) < limit {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, gcsError("list", s.bucket, err)
		}
		objects = append(objects, ObjectInfo{Name: attrs.Name, Size: attrs.Size})
	}
	return objects, nil
}

func (s *GCSStore) Delete(ctx context.Context, name string) error {
	if err := s.client.Bucket(s.bucket).Object(name).Delete(ctx); err != nil {
		return gcsError("delete", name, err)
	}
	return nil
}

// Close releases the underlying client.
func (s *GCSStore) Close() error {
	return s.client.Close()
}

// gcsError maps API failures onto *StatusError so callers can tell a
// rejected request from a failed connection.
func gcsError(op, name string, err error) error {
	var apiErr *googleapi.Error
	switch {
	case errors.As(err, &apiErr):
		body := apiErr.Body
		if body == "" {
			body = apiErr.Message
		}
		return &StatusError{Op: op, StatusCode: apiErr.Code, Body: body}
	case errors.Is(err, gcs.ErrObjectNotExist), errors.Is(err, gcs.ErrBucketNotExist):
		return &StatusError{Op: op, StatusCode: http.StatusNotFound, Body: err.Error()}
	}
	return fmt.Errorf("storage: %s %q: %w", op, name, err)
}

func escapeObjectName(name string) string {
	parts := strings.Split(name, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return strings.Join(parts, "/")
}
