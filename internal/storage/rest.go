package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"
)

// maxBodySize bounds how much of a response body is retained for reporting.
const maxBodySize = 1 << 20

// RESTOptions configures a RESTStore.
type RESTOptions struct {
	// BaseURL is the service root, e.g. https://project.supabase.co.
	BaseURL string

	// Token is sent as a bearer credential on authenticated calls.
	Token string

	Bucket string

	// HTTPClient defaults to http.DefaultClient when nil.
	HTTPClient *http.Client

	Logger *zap.Logger
}

// RESTStore talks to a Supabase-style storage REST API:
//
//	POST   {base}/storage/v1/object/{bucket}/{name}        upload
//	POST   {base}/storage/v1/object/list/{bucket}          list
//	DELETE {base}/storage/v1/object/{bucket}/{name}        delete
//	GET    {base}/storage/v1/object/public/{bucket}/{name} public read
type RESTStore struct {
	client  *http.Client
	baseURL string
	token   string
	bucket  string
	logger  *zap.Logger
}

// NewRESTStore creates a RESTStore. No request is made until the first call.
func NewRESTStore(opts RESTOptions) (*RESTStore, error) {
	if opts.BaseURL == "" {
		return nil, fmt.Errorf("storage: base URL is required")
	}
	if opts.Bucket == "" {
		return nil, fmt.Errorf("storage: bucket is required")
	}

	client := opts.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &RESTStore{
		client:  client,
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		token:   opts.Token,
		bucket:  opts.Bucket,
		logger:  logger,
	}, nil
}

func (s *RESTStore) Bucket() string {
	return s.bucket
}

// PublicURL returns {base}/storage/v1/object/public/{bucket}/{name}.
func (s *RESTStore) PublicURL(name string) string {
	return s.objectURL("public", s.bucket, name)
}

// Upload posts the content as the raw request body. Any status other than
// 200 is returned as a *StatusError.
func (s *RESTStore) Upload(ctx context.Context, req *UploadRequest) (*UploadResult, error) {
	endpoint := s.objectURL(s.bucket, req.ObjectName)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, req.Content)
	if err != nil {
		return nil, fmt.Errorf("storage: failed to build upload request: %w", err)
	}
	if req.Size >= 0 {
		httpReq.ContentLength = req.Size
		if req.Size == 0 {
			httpReq.Body = http.NoBody
			httpReq.GetBody = func() (io.ReadCloser, error) { return http.NoBody, nil }
		}
	}
	httpReq.Header.Set("Content-Type", req.ContentType)
	s.authorize(httpReq)

	status, body, err := s.do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("storage: upload %q: %w", req.ObjectName, err)
	}
	if status != http.StatusOK {
		return nil, &StatusError{Op: "upload", StatusCode: status, Body: string(body)}
	}

	return &UploadResult{
		ObjectName: req.ObjectName,
		StatusCode: status,
		Body:       string(body),
	}, nil
}

type listRequest struct {
	Limit int `json:"limit"`
}

type listEntry struct {
	Name     *string `json:"name"`
	Metadata *struct {
		Size int64 `json:"size"`
	} `json:"metadata"`
}

// List asks for at most limit entries. No prefix, offset or sort order is
// sent, so ordering is whatever the service defaults to.
func (s *RESTStore) List(ctx context.Context, limit int) ([]ObjectInfo, error) {
	payload, err := json.Marshal(listRequest{Limit: limit})
	if err != nil {
		return nil, fmt.Errorf("storage: failed to encode list request: %w", err)
	}

	endpoint := s.objectURL("list", s.bucket)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("storage: failed to build list request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	s.authorize(httpReq)

	status, body, err := s.do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("storage: list %q: %w", s.bucket, err)
	}
	if status != http.StatusOK {
		return nil, &StatusError{Op: "list", StatusCode: status, Body: string(body)}
	}

	var entries []listEntry
	if err := json.Unmarshal(body, &entries); err != nil {
		return nil, &DecodeError{Op: "list", Err: err}
	}

	objects := make([]ObjectInfo, 0, len(entries))
	for _, e := range entries {
		var info ObjectInfo
		if e.Name != nil {
			info.Name = *e.Name
		}
		if e.Metadata != nil {
			info.Size = e.Metadata.Size
		}
		objects = append(objects, info)
	}
	return objects, nil
}

// Delete removes a single object.
func (s *RESTStore) Delete(ctx context.Context, name string) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodDelete, s.objectURL(s.bucket, name), nil)
	if err != nil {
		return fmt.Errorf("storage: failed to build delete request: %w", err)
	}
	s.authorize(httpReq)

	status, body, err := s.do(httpReq)
	if err != nil {
		return fmt.Errorf("storage: delete %q: %w", name, err)
	}
	if status != http.StatusOK {
		return &StatusError{Op: "delete", StatusCode: status, Body: string(body)}
	}
	return nil
}

func (s *RESTStore) authorize(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+s.token)
	req.Header.Set("apikey", s.token)
}

// do sends req and returns the status and the (bounded) body.
func (s *RESTStore) do(req *http.Request) (int, []byte, error) {
	s.logger.Debug("storage request",
		zap.String("method", req.Method),
		zap.String("url", req.URL.String()),
	)

	resp, err := s.client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("failed to read response body: %w", err)
	}

	s.logger.Debug("storage response",
		zap.String("method", req.Method),
		zap.String("url", req.URL.String()),
		zap.Int("status", resp.StatusCode),
		zap.Int("bytes", len(body)),
	)
	return resp.StatusCode, body, nil
}

// objectURL joins path segments onto {base}/storage/v1/object, escaping each
// segment of an object name but keeping its slashes.
func (s *RESTStore) objectURL(segments ...string) string {
	var b strings.Builder
	b.WriteString(s.baseURL)
	b.WriteString("/storage/v1/object")
	for _, seg := range segments {
		for _, part := range strings.Split(seg, "/") {
			b.WriteByte('/')
			b.WriteString(url.PathEscape(part))
		}
	}
	return b.String()
}
