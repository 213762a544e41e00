package smoke

import (
	"fmt"
	"io"
	"strings"
)

const rule = "=================================================="

// Print writes a human readable account of the run to w.
func (r *Report) Print(w io.Writer) {
	fmt.Fprintln(w, "Storage smoke test")
	fmt.Fprintln(w, rule)

	if r.Upload != nil {
		r.Upload.Print(w)
	}
	if r.List != nil {
		fmt.Fprintln(w)
		r.List.Print(w)
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, rule)
	if r.Failed() {
		fmt.Fprintln(w, "Smoke test FAILED")
	} else {
		fmt.Fprintln(w, "Smoke test passed")
	}
}

func (r *UploadResult) Print(w io.Writer) {
	fmt.Fprintln(w, "Testing upload...")
	fmt.Fprintf(w, "File: %s\n", r.ObjectName)
	fmt.Fprintf(w, "Content: %s\n", r.Content)

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Upload response:")
	if f := r.Upload.Failure; f != nil {
		printFailure(w, "Upload failed", f)
		return
	}
	if r.Upload.StatusCode != 0 {
		fmt.Fprintf(w, "Status code: %d\n", r.Upload.StatusCode)
	}
	fmt.Fprintln(w, "[PASS] Upload successful")

	fmt.Fprintf(w, "Public URL: %s\n", r.PublicURL)
	if r.Fetch == nil {
		return
	}
	if f := r.Fetch.Failure; f != nil {
		printFailure(w, "Download failed", f)
	} else {
		fmt.Fprintln(w, "[PASS] Download successful")
		fmt.Fprintf(w, "Downloaded content: %s\n", r.Fetch.Body)
		if !r.ContentMatch {
			fmt.Fprintln(w, "[WARN] Downloaded content does not match the uploaded content")
		}
	}

	if r.Cleanup != nil {
		if f := r.Cleanup.Failure; f != nil {
			printFailure(w, "Cleanup failed", f)
		} else {
			fmt.Fprintf(w, "Deleted %s\n", r.ObjectName)
		}
	}
}

func (r *ListResult) Print(w io.Writer) {
	fmt.Fprintf(w, "Testing bucket listing (%s, limit %d)...\n", r.Bucket, r.Limit)
	if f := r.Failure; f != nil {
		printFailure(w, "List failed", f)
		return
	}
	fmt.Fprintf(w, "[PASS] Found %d files:\n", len(r.Names))
	for _, name := range r.Names {
		fmt.Fprintf(w, "  - %s\n", name)
	}
}

func printFailure(w io.Writer, what string, f *Failure) {
	switch f.Kind {
	case KindProtocol:
		fmt.Fprintf(w, "Status code: %d\n", f.StatusCode)
		fmt.Fprintf(w, "[FAIL] %s\n", what)
		if body := strings.TrimSpace(f.Body); body != "" {
			fmt.Fprintf(w, "Response: %s\n", body)
		}
	default:
		fmt.Fprintf(w, "[FAIL] %s (%s error): %s\n", what, f.Kind, f.Message)
	}
}
