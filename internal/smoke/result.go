package smoke

import (
	"errors"
	"fmt"
	"time"

	"github.com/tomasbasham/storage-smoke/internal/storage"
)

// Check identifies one of the independent smoke checks.
type Check string

const (
	CheckUpload Check = "upload"
	CheckList   Check = "list"
)

// AllChecks lists every check in the order Run executes them.
var AllChecks = []Check{CheckUpload, CheckList}

// ParseCheck returns the Check named s.
func ParseCheck(s string) (Check, error) {
	switch Check(s) {
	case CheckUpload, CheckList:
		return Check(s), nil
	}
	return "", fmt.Errorf("unknown check %q (want upload or list)", s)
}

// ErrorKind classifies a failed step.
type ErrorKind string

const (
	// KindTransport covers connection, TLS, DNS and timeout failures.
	KindTransport ErrorKind = "transport"

	// KindProtocol is an unexpected status code.
	KindProtocol ErrorKind = "protocol"

	// KindDecode is a response body that could not be parsed.
	KindDecode ErrorKind = "decode"
)

// Failure explains why a step did not pass.
type Failure struct {
	Kind       ErrorKind `json:"kind"`
	StatusCode int       `json:"status_code,omitempty"`
	Body       string    `json:"body,omitempty"`
	Message    string    `json:"message"`

	Err error `json:"-"`
}

func (f *Failure) Error() string {
	return f.Message
}

func (f *Failure) Unwrap() error {
	return f.Err
}

// classify turns a storage or transport error into a Failure.
func classify(err error) *Failure {
	var se *storage.StatusError
	if errors.As(err, &se) {
		return &Failure{Kind: KindProtocol, StatusCode: se.StatusCode, Body: se.Body, Message: err.Error(), Err: err}
	}
	var de *storage.DecodeError
	if errors.As(err, &de) {
		return &Failure{Kind: KindDecode, Message: err.Error(), Err: err}
	}
	return &Failure{Kind: KindTransport, Message: err.Error(), Err: err}
}

// Step is a single network call made by a check.
type Step struct {
	URL        string   `json:"url,omitempty"`
	StatusCode int      `json:"status_code,omitempty"`
	Body       string   `json:"body,omitempty"`
	Failure    *Failure `json:"failure,omitempty"`
}

// OK reports whether the step ran and passed.
func (s *Step) OK() bool {
	return s != nil && s.Failure == nil
}

// UploadResult is the outcome of the upload check. Fetch is nil when the
// upload failed and the public read was never attempted.
type UploadResult struct {
	ObjectName string        `json:"object_name"`
	Content    string        `json:"content"`
	Upload     Step          `json:"upload"`
	PublicURL  string        `json:"public_url,omitempty"`
	Fetch      *Step         `json:"fetch,omitempty"`
	Cleanup    *Step         `json:"cleanup,omitempty"`
	Duration   time.Duration `json:"duration"`

	// ContentMatch is informational: a mismatch is reported but does not
	// fail the check.
	ContentMatch bool `json:"content_match"`
}

// Passed is true when both the upload and the public read returned 200.
// The cleanup step does not affect the outcome.
func (r *UploadResult) Passed() bool {
	return r != nil && r.Upload.OK() && r.Fetch.OK()
}

// UnknownName is reported for listed entries that carry no name.
const UnknownName = "Unknown"

// ListResult is the outcome of the list check.
type ListResult struct {
	Bucket   string        `json:"bucket"`
	Limit    int           `json:"limit"`
	Names    []string      `json:"names"`
	Failure  *Failure      `json:"failure,omitempty"`
	Duration time.Duration `json:"duration"`
}

func (r *ListResult) Passed() bool {
	return r != nil && r.Failure == nil
}

// Report collects the results of a run. A nil result means the check was
// not selected.
type Report struct {
	Upload     *UploadResult `json:"upload,omitempty"`
	List       *ListResult   `json:"list,omitempty"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`
}

// Failed is true when any check that ran did not pass.
func (r *Report) Failed() bool {
	if r.Upload != nil && !r.Upload.Passed() {
		return true
	}
	if r.List != nil && !r.List.Passed() {
		return true
	}
	return false
}
