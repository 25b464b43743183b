// Package readme fetches profile README documents from a rate-limited
// raw-content host and records the outcome on roster users.
package readme

import "fmt"

// FailureKind classifies why a fetch did not produce a document.
type FailureKind string

const (
	// FailureNotFound means the document is confirmed absent. Never retried.
	FailureNotFound FailureKind = "not_found"
	// FailureTransient means every attempt failed with a retryable error.
	FailureTransient FailureKind = "transient"
)

// Failure describes a failed fetch. Detail is never empty.
type Failure struct {
	Kind   FailureKind
	Detail string
}

func (f *Failure) String() string {
	return fmt.Sprintf("%s: %s", f.Kind, f.Detail)
}

// Outcome is the result of a fetch: either Content (Failure == nil) or a
// Failure with empty Content.
type Outcome struct {
	Content string
	Failure *Failure
}

// Success builds a successful outcome.
func Success(content string) Outcome {
	return Outcome{Content: content}
}

// Fail builds a failed outcome.
func Fail(kind FailureKind, detail string) Outcome {
	if detail == "" {
		detail = "unknown error"
	}
	return Outcome{Failure: &Failure{Kind: kind, Detail: detail}}
}

// OK reports whether the fetch produced a document.
func (o Outcome) OK() bool {
	return o.Failure == nil
}

// NotFound reports whether the document is confirmed absent.
func (o Outcome) NotFound() bool {
	return o.Failure != nil && o.Failure.Kind == FailureNotFound
}

// Status is a short label for logs and the run ledger.
func (o Outcome) Status() string {
	if o.Failure == nil {
		return "ok"
	}
	return string(o.Failure.Kind)
}

// Detail returns the failure detail, or "" on success.
func (o Outcome) Detail() string {
	if o.Failure == nil {
		return ""
	}
	return o.Failure.Detail
}
