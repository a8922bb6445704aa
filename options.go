package resumable

import (
	"log/slog"
	"net/http"
)

// MB is one mebibyte, the protocol's default chunk size (spec.md §6).
const MB = 1024 * 1024

const defaultConcurrency = 3

// Options holds a Session's resolved configuration. Build one with New and
// functional Option values rather than constructing it directly.
type Options struct {
	Concurrency     int
	ChunkSize       int64
	Headers         http.Header
	Logger          *slog.Logger
	HTTPSession     HTTPSession
	IdentifierFunc  IdentifierFunc
	ChunkSourceFunc ChunkSourceFunc
}

func defaultOptions() Options {
	return Options{
		Concurrency:    defaultConcurrency,
		ChunkSize:      MB,
		Headers:        make(http.Header),
		IdentifierFunc: DefaultIdentifierFunc,
	}
}

// Option configures a Session at construction time.
type Option func(*Options)

// WithConcurrency sets the scheduler's fixed worker width. Default 3.
func WithConcurrency(n int) Option {
	return func(o *Options) {
		if n > 0 {
			o.Concurrency = n
		}
	}
}

// WithChunkSize sets the number of bytes per chunk. Default 1 MiB.
func WithChunkSize(bytes int64) Option {
	return func(o *Options) {
		if bytes > 0 {
			o.ChunkSize = bytes
		}
	}
}

// WithHeaders merges extra headers into every request the Session's default
// transport issues. A session supplied through WithHTTPSession does not
// receive these headers.
func WithHeaders(headers map[string]string) Option {
	return func(o *Options) {
		for k, v := range headers {
			o.Headers.Set(k, v)
		}
	}
}

// WithLogger sets the *slog.Logger used for session-level diagnostics.
// Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *Options) {
		o.Logger = logger
	}
}

// WithHTTPSession overrides the default transport.Session with a
// caller-supplied HTTPSession (e.g. wrapping a different HTTP client or a
// fake for testing).
func WithHTTPSession(session HTTPSession) Option {
	return func(o *Options) {
		o.HTTPSession = session
	}
}

// WithIdentifierFunc overrides DefaultIdentifierFunc, letting a caller
// derive a deterministic resumableIdentifier (e.g. a hash of path, size,
// and mtime) instead of a fresh random UUID per run (spec.md §9).
func WithIdentifierFunc(f IdentifierFunc) Option {
	return func(o *Options) {
		if f != nil {
			o.IdentifierFunc = f
		}
	}
}

// WithChunkSourceFunc overrides the default file-backed ChunkSource,
// letting a caller plug in a different chunk reader entirely (network
// backed, already in memory, encrypted at rest).
func WithChunkSourceFunc(f ChunkSourceFunc) Option {
	return func(o *Options) {
		if f != nil {
			o.ChunkSourceFunc = f
		}
	}
}
