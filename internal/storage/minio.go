package storage

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"
)

// MinioOptions configures a MinioStore.
type MinioOptions struct {
	// Endpoint is host[:port] without a scheme.
	Endpoint  string
	AccessKey string
	SecretKey string
	Region    string
	UseSSL    bool
	Bucket    string

	// Transport overrides the HTTP transport; nil uses the minio default.
	Transport http.RoundTripper

	Logger *zap.Logger
}

// MinioStore uses any S3-compatible service through minio-go.
type MinioStore struct {
	client *minio.Client
	bucket string
	logger *zap.Logger
}

func NewMinioStore(opts MinioOptions) (*MinioStore, error) {
	client, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:     credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure:    opts.UseSSL,
		Region:    opts.Region,
		Transport: opts.Transport,
	})
	if err != nil {
		return nil, fmt.Errorf("storage: failed to initialise MinIO client: %w", err)
	}

	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MinioStore{client: client, bucket: opts.Bucket, logger: logger}, nil
}

func (s *MinioStore) Bucket() string {
	return s.bucket
}

// PublicURL returns the path-style URL for name on the configured endpoint.
func (s *MinioStore) PublicURL(name string) string {
	u := *s.client.EndpointURL()
	return u.String() + "/" + url.PathEscape(s.bucket) + "/" + escapeObjectName(name)
}

func (s *MinioStore) Upload(ctx context.Context, req *UploadRequest) (*UploadResult, error) {
	contentType := req.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	info, err := s.client.PutObject(ctx, s.bucket, req.ObjectName, req.Content, req.Size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return nil, minioError("upload", req.ObjectName, err)
	}

	s.logger.Debug("minio object written",
		zap.String("bucket", s.bucket),
		zap.String("object", req.ObjectName),
		zap.Int64("size", info.Size),
	)
	return &UploadResult{ObjectName: req.ObjectName, StatusCode: http.StatusOK}, nil
}

// List stops the listing as soon as limit objects have been read.
func (s *MinioStore) List(ctx context.Context, limit int) ([]ObjectInfo, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var objects []ObjectInfo
	for object := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{
		Recursive: true,
		MaxKeys:   limit,
	}) {
		if object.Err != nil {
			return nil, minioError("list", s.bucket, object.Err)
		}
		objects = append(objects, ObjectInfo{Name: object.Key, Size: object.Size})
		if len(objects) >= limit {
			break
		}
	}
	return objects, nil
}

func (s *MinioStore) Delete(ctx context.Context, name string) error {
	if err := s.client.RemoveObject(ctx, s.bucket, name, minio.RemoveObjectOptions{}); err != nil {
		return minioError("delete", name, err)
	}
	return nil
}

func minioError(op, name string, err error) error {
	resp := minio.ToErrorResponse(err)
	if resp.StatusCode != 0 {
		body := resp.Message
		if resp.Code != "" {
			body = resp.Code + ": " + resp.Message
		}
		return &StatusError{Op: op, StatusCode: resp.StatusCode, Body: body}
	}
	return fmt.Errorf("storage: %s %q: %w", op, name, err)
}
