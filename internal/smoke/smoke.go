// Package smoke runs end-to-end checks against an object-storage bucket.
//
// The upload check writes a uniquely named text object, then reads it back
// through its unauthenticated public URL. The list check asks the service
// for the first entries in the bucket. Checks run one after the other and
// never retry: every failure is final for that check and is returned as a
// typed result rather than raised.
package smoke

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tomasbasham/storage-smoke/internal/storage"
)

const (
	// DefaultTimeout bounds every network call made by a Tester built
	// without an explicit HTTP client.
	DefaultTimeout = 30 * time.Second

	// DefaultListLimit is the number of entries requested by the list check.
	DefaultListLimit = 10

	contentType = "text/plain"

	maxFetchSize = 1 << 20
)

// Options configures a Tester.
type Options struct {
	// Store is the backend under test. Required.
	Store storage.Store

	// HTTPClient performs the unauthenticated public read. Defaults to
	// NewHTTPClient(DefaultTimeout).
	HTTPClient *http.Client

	Logger *zap.Logger

	// ListLimit defaults to DefaultListLimit when zero.
	ListLimit int

	// Cleanup deletes the uploaded object after it has been read back.
	Cleanup bool

	// Content replaces the generated object body when non-nil. An empty,
	// non-nil slice uploads a zero-length object.
	Content []byte

	// Now and NewID generate object names; they default to time.Now and a
	// random UUID fragment.
	Now   func() time.Time
	NewID func() string
}

// Tester drives the smoke checks against a single bucket.
type Tester struct {
	store     storage.Store
	client    *http.Client
	logger    *zap.Logger
	listLimit int
	cleanup   bool
	content   []byte
	now       func() time.Time
	newID     func() string
}

func New(opts Options) (*Tester, error) {
	if opts.Store == nil {
		return nil, fmt.Errorf("smoke: store is required")
	}

	t := &Tester{
		store:     opts.Store,
		client:    opts.HTTPClient,
		logger:    opts.Logger,
		listLimit: opts.ListLimit,
		cleanup:   opts.Cleanup,
		content:   opts.Content,
		now:       opts.Now,
		newID:     opts.NewID,
	}
	if t.client == nil {
		t.client = NewHTTPClient(DefaultTimeout)
	}
	if t.logger == nil {
		t.logger = zap.NewNop()
	}
	if t.listLimit <= 0 {
		t.listLimit = DefaultListLimit
	}
	if t.now == nil {
		t.now = time.Now
	}
	if t.newID == nil {
		t.newID = randomID
	}
	return t, nil
}

// WithCleanup returns a copy of t with the cleanup step switched on or off.
func (t *Tester) WithCleanup(cleanup bool) *Tester {
	c := *t
	c.cleanup = cleanup
	return &c
}

// NewHTTPClient returns a client with the given timeout that can also read
// file:// URLs, which is how the local backend exposes objects.
func NewHTTPClient(timeout time.Duration) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.RegisterProtocol("file", http.NewFileTransport(http.Dir("/")))
	return &http.Client{Transport: transport, Timeout: timeout}
}

// Object is the payload written by the upload check.
type Object struct {
	Name        string
	Content     []byte
	ContentType string
}

// NewObject builds a test object named after the current local time to the
// second plus a random suffix, so two runs within the same second do not
// collide.
func (t *Tester) NewObject() Object {
	now := t.now()
	content := t.content
	if content == nil {
		content = []byte("Test file created at " + now.Format("2006-01-02 15:04:05.000000"))
	}
	return Object{
		Name:        ObjectName(now, t.newID()),
		Content:     content,
		ContentType: contentType,
	}
}

// ObjectName formats test_YYYYmmdd_HHMMSS_<id>.txt.
func ObjectName(now time.Time, id string) string {
	return fmt.Sprintf("test_%s_%s.txt", now.Format("20060102_150405"), id)
}

func randomID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}

// Run executes the selected checks in order, upload before list. With no
// checks selected every check runs.
func (t *Tester) Run(ctx context.Context, checks ...Check) *Report {
	if len(checks) == 0 {
		checks = AllChecks
	}
	selected := make(map[Check]bool, len(checks))
	for _, c := range checks {
		selected[c] = true
	}

	report := &Report{StartedAt: t.now()}
	if selected[CheckUpload] {
		report.Upload = t.RunUploadCheck(ctx)
	}
	if selected[CheckList] {
		report.List = t.RunListCheck(ctx)
	}
	report.FinishedAt = t.now()
	return report
}

// RunUploadCheck uploads a freshly generated object and reads it back.
func (t *Tester) RunUploadCheck(ctx context.Context) *UploadResult {
	return t.UploadObject(ctx, t.NewObject())
}

// UploadObject uploads obj and, only if the upload succeeded, fetches it
// from its public URL without credentials.
func (t *Tester) UploadObject(ctx context.Context, obj Object) *UploadResult {
	start := time.Now()
	log := t.logger.With(zap.String("check", string(CheckUpload)), zap.String("object", obj.Name))

	if obj.ContentType == "" {
		obj.ContentType = contentType
	}
	res := &UploadResult{
		ObjectName: obj.Name,
		Content:    string(obj.Content),
	}
	defer func() { res.Duration = time.Since(start) }()

	log.Info("uploading object", zap.String("bucket", t.store.Bucket()), zap.Int("bytes", len(obj.Content)))
	uploaded, err := t.store.Upload(ctx, &storage.UploadRequest{
		ObjectName:  obj.Name,
		Content:     bytes.NewReader(obj.Content),
		Size:        int64(len(obj.Content)),
		ContentType: obj.ContentType,
	})
	if err != nil {
		res.Upload.Failure = classify(err)
		res.Upload.StatusCode = res.Upload.Failure.StatusCode
		res.Upload.Body = res.Upload.Failure.Body
		log.Warn("upload failed", zap.String("kind", string(res.Upload.Failure.Kind)), zap.Error(err))
		return res
	}
	res.Upload.StatusCode = uploaded.StatusCode
	res.Upload.Body = uploaded.Body

	res.PublicURL = t.store.PublicURL(obj.Name)
	res.Fetch = t.fetch(ctx, res.PublicURL)
	if res.Fetch.OK() {
		res.ContentMatch = res.Fetch.Body == res.Content
		if !res.ContentMatch {
			log.Warn("fetched content differs from upload")
		}
	} else {
		log.Warn("public fetch failed", zap.String("kind", string(res.Fetch.Failure.Kind)), zap.Error(res.Fetch.Failure))
	}

	if t.cleanup {
		res.Cleanup = &Step{}
		if err := t.store.Delete(ctx, obj.Name); err != nil {
			res.Cleanup.Failure = classify(err)
			res.Cleanup.StatusCode = res.Cleanup.Failure.StatusCode
			log.Warn("cleanup failed", zap.Error(err))
		}
	}

	log.Info("upload check finished", zap.Bool("passed", res.Passed()))
	return res
}

func (t *Tester) fetch(ctx context.Context, url string) *Step {
	step := &Step{URL: url}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		step.Failure = &Failure{Kind: KindTransport, Message: fmt.Sprintf("smoke: invalid public URL: %v", err), Err: err}
		return step
	}

	resp, err := t.client.Do(req)
	if err != nil {
		step.Failure = &Failure{Kind: KindTransport, Message: fmt.Sprintf("smoke: public fetch: %v", err), Err: err}
		return step
	}
	defer resp.Body.Close()

	step.StatusCode = resp.StatusCode
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFetchSize))
	if err != nil {
		step.Failure = &Failure{Kind: KindTransport, StatusCode: resp.StatusCode, Message: fmt.Sprintf("smoke: public fetch: failed to read body: %v", err), Err: err}
		return step
	}
	step.Body = string(body)

	if resp.StatusCode != http.StatusOK {
		step.Failure = &Failure{
			Kind:       KindProtocol,
			StatusCode: resp.StatusCode,
			Body:       step.Body,
			Message:    fmt.Sprintf("smoke: public fetch: unexpected status %d", resp.StatusCode),
		}
	}
	return step
}

// RunListCheck lists at most the configured number of entries. Entries
// without a name are reported as UnknownName.
func (t *Tester) RunListCheck(ctx context.Context) *ListResult {
	start := time.Now()
	log := t.logger.With(zap.String("check", string(CheckList)))

	res := &ListResult{Bucket: t.store.Bucket(), Limit: t.listLimit}
	defer func() { res.Duration = time.Since(start) }()

	log.Info("listing bucket", zap.String("bucket", res.Bucket), zap.Int("limit", res.Limit))
	objects, err := t.store.List(ctx, t.listLimit)
	if err != nil {
		res.Failure = classify(err)
		log.Warn("list failed", zap.String("kind", string(res.Failure.Kind)), zap.Error(err))
		return res
	}

	res.Names = make([]string, 0, len(objects))
	for _, o := range objects {
		name := o.Name
		if name == "" {
			name = UnknownName
		}
		res.Names = append(res.Names, name)
	}

	log.Info("list check finished", zap.Int("entries", len(res.Names)))
	return res
}
