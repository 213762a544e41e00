// Package storage provides an abstraction over the object-storage backends a
// smoke run can exercise. Every backend can upload an object, list the bucket,
// delete an object and derive the unauthenticated URL an object is publicly
// readable at.
package storage

import (
	"context"
	"io"
)

// Store is implemented by every backend.
type Store interface {
	// Upload writes a new object to the configured bucket.
	Upload(ctx context.Context, req *UploadRequest) (*UploadResult, error)

	// List returns at most limit objects in the order the service reports
	// them.
	List(ctx context.Context, limit int) ([]ObjectInfo, error)

	// Delete removes an object from the configured bucket.
	Delete(ctx context.Context, name string) error

	// PublicURL is the unauthenticated read URL for name. It only resolves
	// when the bucket is configured for public access.
	PublicURL(name string) string

	// Bucket is the configured bucket name.
	Bucket() string
}

type UploadRequest struct {
	// ObjectName is the object path within the configured bucket.
	ObjectName string

	// Content is the data to be uploaded.
	Content io.Reader

	// Size is the length of Content in bytes, or -1 when unknown.
	Size int64

	// ContentType is the MIME type of the content, e.g. "text/plain".
	ContentType string
}

// UploadResult is the outcome of a successful upload.
type UploadResult struct {
	// ObjectName is the object path within the configured bucket.
	ObjectName string

	// StatusCode is the HTTP status the service answered with, when the
	// backend exposes one.
	StatusCode int

	// Body is the raw response body, when the backend exposes one.
	Body string
}

// ObjectInfo describes a single listed object. Name is empty when the
// service returned an entry without one.
type ObjectInfo struct {
	Name string
	Size int64
}
