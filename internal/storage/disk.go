package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
)

// LocalStore keeps objects in a directory on the local filesystem, one
// subdirectory per bucket. The public URL is a file:// URL, so a client
// reading it back needs a transport that understands the file scheme.
type LocalStore struct {
	baseDir string
	bucket  string
}

// NewLocalStore creates a LocalStore under baseDir. The bucket directory is
// created if it does not already exist.
func NewLocalStore(baseDir, bucket string) (*LocalStore, error) {
	abs, err := filepath.Abs(baseDir)
	if err != nil {
		return nil, fmt.Errorf("storage: failed to resolve absolute path for %q: %w", baseDir, err)
	}
	if err := os.MkdirAll(filepath.Join(abs, bucket), 0o755); err != nil {
		return nil, fmt.Errorf("storage: failed to create bucket directory under %q: %w", abs, err)
	}
	return &LocalStore{baseDir: abs, bucket: bucket}, nil
}

func (s *LocalStore) Bucket() string {
	return s.bucket
}

func (s *LocalStore) PublicURL(name string) string {
	u := &url.URL{Scheme: "file", Path: filepath.ToSlash(s.path(name))}
	return u.String()
}

// Upload writes content to baseDir/bucket/objectName, creating any
// intermediate directories as needed.
func (s *LocalStore) Upload(_ context.Context, req *UploadRequest) (*UploadResult, error) {
	dest := s.path(req.ObjectName)

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return nil, fmt.Errorf("storage: failed to create directory for %q: %w", req.ObjectName, err)
	}

	f, err := os.Create(dest)
	if err != nil {
		return nil, fmt.Errorf("storage: failed to create file %q: %w", dest, err)
	}
	defer f.Close()

	if req.Content != nil {
		if _, err := io.Copy(f, req.Content); err != nil {
			return nil, fmt.Errorf("storage: failed to write file %q: %w", dest, err)
		}
	}

	return &UploadResult{ObjectName: req.ObjectName, StatusCode: http.StatusOK}, nil
}

// List returns regular files directly inside the bucket directory in
// lexical order.
func (s *LocalStore) List(_ context.Context, limit int) ([]ObjectInfo, error) {
	entries, err := os.ReadDir(filepath.Join(s.baseDir, s.bucket))
	if err != nil {
		return nil, fmt.Errorf("storage: failed to read bucket %q: %w", s.bucket, err)
	}

	var objects []ObjectInfo
	for _, e := range entries {
		if len(objects) >= limit {
			break
		}
		if !e.Type().IsRegular() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			return nil, fmt.Errorf("storage: failed to stat %q: %w", e.Name(), err)
		}
		objects = append(objects, ObjectInfo{Name: e.Name(), Size: info.Size()})
	}
	return objects, nil
}

func (s *LocalStore) Delete(_ context.Context, name string) error {
	err := os.Remove(s.path(name))
	if errors.Is(err, fs.ErrNotExist) {
		return &StatusError{Op: "delete", StatusCode: http.StatusNotFound, Body: err.Error()}
	}
	if err != nil {
		return fmt.Errorf("storage: failed to delete %q: %w", name, err)
	}
	return nil
}

func (s *LocalStore) path(name string) string {
	return filepath.Join(s.baseDir, s.bucket, filepath.FromSlash(name))
}
