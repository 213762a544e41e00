package storage

import (
	"context"
	"fmt"
	"net/http"

	"go.uber.org/zap"
	"google.golang.org/api/option"

	"github.com/tomasbasham/storage-smoke/internal/config"
)

// Open returns the Store selected by cfg.Backend. client carries the
// configured timeout and is used by the backends that accept one. The
// caller should validate cfg first.
func Open(ctx context.Context, cfg config.Config, client *http.Client, logger *zap.Logger) (Store, error) {
	switch cfg.Backend {
	case config.BackendSupabase:
		return NewRESTStore(RESTOptions{
			BaseURL:    cfg.BaseURL,
			Token:      cfg.Token,
			Bucket:     cfg.Bucket,
			HTTPClient: client,
			Logger:     logger,
		})
	case config.BackendGCS:
		var opts []option.ClientOption
		if cfg.GCS.CredentialsFile != "" {
			opts = append(opts, option.WithCredentialsFile(cfg.GCS.CredentialsFile))
		}
		return NewGCSStore(ctx, cfg.Bucket, logger, opts...)
	case config.BackendMinio:
		var transport http.RoundTripper
		if client != nil {
			transport = client.Transport
		}
		return NewMinioStore(MinioOptions{
			Endpoint:  cfg.Minio.Endpoint,
			AccessKey: cfg.Minio.AccessKey,
			SecretKey: cfg.Minio.SecretKey,
			Region:    cfg.Minio.Region,
			UseSSL:    cfg.Minio.UseSSL,
			Bucket:    cfg.Bucket,
			Transport: transport,
			Logger:    logger,
		})
	case config.BackendLocal:
		return NewLocalStore(cfg.Local.Dir, cfg.Bucket)
	}
	return nil, fmt.Errorf("storage: unknown backend %q", cfg.Backend)
}
