package resumable

import (
	"context"
	"net/http"
	"net/url"
)

// Response is the minimal shape of an HTTP response the protocol cares
// about: status code, headers, and a fully-read body. HTTPSession
// implementations are responsible for draining and closing the underlying
// transport response before returning one of these.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// FilePart is the single multipart file part a chunk upload carries,
// always named "file" per the wire protocol (spec.md §6).
type FilePart struct {
	FieldName string
	FileName  string
	Content   []byte
}

// HTTPSession issues GET and POST requests against a single preconfigured
// target URL, merging any caller-supplied headers into every request. It is
// the sole external collaborator chunks talk to; callers may supply their
// own implementation (wrapping any HTTP client library) via WithHTTPSession,
// or leave it unset to get the default one built on the transport subpackage.
//
// Implementations must be safe for concurrent use — the Scheduler shares a
// single HTTPSession across every worker.
type HTTPSession interface {
	Get(ctx context.Context, query url.Values) (*Response, error)
	Post(ctx context.Context, query url.Values, file FilePart) (*Response, error)
}

// FixedURLSession adapts a base HTTPSession bound to the Session's target
// URL for a single chunk task, per spec.md §4.6. It carries no state of its
// own beyond the base session it wraps — its only purpose is to spare
// Chunk code from knowing the target URL.
//
// In this implementation the "base" session is already URL-fixed (the
// default transport receives the target once, in New; a session supplied
// through WithHTTPSession carries its own), so FixedURLSession is an
// identity passthrough that
// documents the §4.6 contract at the type level; implementations that want
// a single HTTPSession shared across multiple targets can still rebind the
// URL per call by wrapping it here.
type FixedURLSession struct {
	session HTTPSession
}

// NewFixedURLSession wraps session for use by a single chunk task.
func NewFixedURLSession(session HTTPSession) *FixedURLSession {
	return &FixedURLSession{session: session}
}

// Get probes the target with data as URL query parameters.
func (f *FixedURLSession) Get(ctx context.Context, data url.Values) (*Response, error) {
	return f.session.Get(ctx, data)
}

// Post uploads file to the target, with data as multipart form fields.
func (f *FixedURLSession) Post(ctx context.Context, data url.Values, file FilePart) (*Response, error) {
	return f.session.Post(ctx, data, file)
}
