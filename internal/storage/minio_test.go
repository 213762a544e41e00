package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMinioStore_PublicURL(t *testing.T) {
	store, err := NewMinioStore(MinioOptions{
		Endpoint:  "play.min.io",
		AccessKey: "a",
		SecretKey: "b",
		Region:    "us-east-1",
		UseSSL:    true,
		Bucket:    "smoke",
	})
	require.NoError(t, err)

	assert.Equal(t, "smoke", store.Bucket())
	assert.Equal(t, "https://play.min.io/smoke/test_1.txt", store.PublicURL("test_1.txt"))
}

func TestMinioStore_Upload_StatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(io.Discard, r.Body)
		w.Header().Set("Content-Type", "application/xml")
		w.WriteHeader(http.StatusForbidden)
		_, _ = io.WriteString(w, `<?xml version="1.0" encoding="UTF-8"?>
<Error><Code>AccessDenied</Code><Message>Access Denied.</Message><BucketName>smoke</BucketName><Resource>/smoke/test.txt</Resource></Error>`)
	}))
	defer srv.Close()

	u, err := url.Parse(srv.URL)
	require.NoError(t, err)

	store, err := NewMinioStore(MinioOptions{
		Endpoint:  u.Host,
		AccessKey: "a",
		SecretKey: "b",
		Region:    "us-east-1",
		Bucket:    "smoke",
	})
	require.NoError(t, err)

	content := []byte("hello")
	_, err = store.Upload(context.Background(), &UploadRequest{
		ObjectName:  "test.txt",
		Content:     bytes.NewReader(content),
		Size:        int64(len(content)),
		ContentType: "text/plain",
	})

	var se *StatusError
	require.True(t, errors.As(err, &se), "got %v", err)
	assert.Equal(t, http.StatusForbidden, se.StatusCode)
	assert.Contains(t, se.Body, "AccessDenied")
}

func TestMinioError_Transport(t *testing.T) {
	err := minioError("upload", "test.txt", errors.New("dial tcp: connection refused"))
	assert.Equal(t, 0, StatusCode(err))
	assert.ErrorContains(t, err, "connection refused")
}
