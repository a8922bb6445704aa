// Package transport provides the default HTTPSession implementation: a
// single preconfigured target URL, a shared *http.Client, header merging,
// and bounded retry with backoff on requests that never reached the server
// (connect/DNS/TLS/timeout failures) — adapted from the retry loop in
// internal/graph/client.go, narrowed to transport-level failures only.
// Non-2xx responses are returned to the caller untouched: per the
// resumable-upload protocol a non-200 probe is meaningful (not an error)
// and a non-2xx upload response is a terminal failure the chunk layer does
// not auto-retry.
package transport

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"math/rand/v2"
	"mime/multipart"
	"net/http"
	"net/url"
	"runtime"
	"time"
)

// Response is the minimal shape of an HTTP response the protocol cares
// about: status code, headers, and a fully-read body.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// FilePart is the single multipart file part a chunk upload carries.
type FilePart struct {
	FieldName string
	FileName  string
	Content   []byte
}

const (
	maxRetries     = 3
	baseBackoff    = 500 * time.Millisecond
	maxBackoff     = 10 * time.Second
	backoffFactor  = 2.0
	jitterFraction = 0.25
)

// Version is the library version reported in the default User-Agent.
const Version = "0.1.0"

// Session is the default implementation of the resumable package's
// HTTPSession interface: a single target URL, a shared *http.Client, and
// caller-supplied headers merged into every request.
type Session struct {
	target     string
	httpClient *http.Client
	headers    http.Header
	logger     *slog.Logger
	userAgent  string

	// sleepFunc waits between retries; tests override it to avoid real delays.
	sleepFunc func(ctx context.Context, d time.Duration) error
}

// New creates a Session targeting url. httpClient defaults to
// http.DefaultClient when nil; logger defaults to slog.Default() when nil.
func New(target string, httpClient *http.Client, headers http.Header, logger *slog.Logger) *Session {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	if logger == nil {
		logger = slog.Default()
	}

	if headers == nil {
		headers = make(http.Header)
	}

	return &Session{
		target:     target,
		httpClient: httpClient,
		headers:    headers,
		logger:     logger,
		userAgent:  fmt.Sprintf("resumable-go/%s (%s/%s)", Version, runtime.GOOS, runtime.GOARCH),
		sleepFunc:  timeSleep,
	}
}

// Get issues a GET against the target URL with query as URL parameters.
func (s *Session) Get(ctx context.Context, query url.Values) (*Response, error) {
	fullURL := s.target
	if encoded := query.Encode(); encoded != "" {
		fullURL += "?" + encoded
	}

	resp, err := s.doRetry(ctx, func() (*http.Request, error) {
		req, reqErr := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, http.NoBody)

		return req, reqErr
	})
	if err != nil {
		return nil, err
	}

	return resp, nil
}

// Post issues a POST against the target URL with query and file encoded as
// a multipart/form-data body, per spec.md §6.
func (s *Session) Post(ctx context.Context, query url.Values, file FilePart) (*Response, error) {
	body, contentType, err := encodeMultipart(query, file)
	if err != nil {
		return nil, fmt.Errorf("transport: encoding multipart body: %w", err)
	}

	resp, err := s.doRetry(ctx, func() (*http.Request, error) {
		req, reqErr := http.NewRequestWithContext(ctx, http.MethodPost, s.target, bytes.NewReader(body))
		if reqErr != nil {
			return nil, reqErr
		}

		req.Header.Set("Content-Type", contentType)

		return req, nil
	})
	if err != nil {
		return nil, err
	}

	return resp, nil
}

// encodeMultipart builds a multipart/form-data body carrying every query
// field plus a "file" part (name configurable via file.FieldName) with
// file.Content as its bytes.
func encodeMultipart(query url.Values, file FilePart) ([]byte, string, error) {
	var buf bytes.Buffer

	w := multipart.NewWriter(&buf)

	for key, values := range query {
		for _, v := range values {
			if err := w.WriteField(key, v); err != nil {
				return nil, "", err
			}
		}
	}

	part, err := w.CreateFormFile(file.FieldName, file.FileName)
	if err != nil {
		return nil, "", err
	}

	if _, err := part.Write(file.Content); err != nil {
		return nil, "", err
	}

	if err := w.Close(); err != nil {
		return nil, "", err
	}

	return buf.Bytes(), w.FormDataContentType(), nil
}

// doRetry executes makeReq, retrying only requests that never produced an
// HTTP response (connect/DNS/TLS/timeout failures). Any response the server
// did send — 2xx, 4xx, or 5xx — is returned as-is for the chunk layer to
// interpret; this transport does not retry on status code.
func (s *Session) doRetry(ctx context.Context, makeReq func() (*http.Request, error)) (*Response, error) {
	var lastErr error

	for attempt := 0; attempt <= maxRetries; attempt++ {
		req, err := makeReq()
		if err != nil {
			return nil, fmt.Errorf("transport: building request: %w", err)
		}

		s.applyHeaders(req)

		resp, err := s.httpClient.Do(req)
		if err == nil {
			return s.readResponse(resp)
		}

		lastErr = err

		if ctx.Err() != nil {
			return nil, fmt.Errorf("transport: request canceled: %w", ctx.Err())
		}

		if attempt == maxRetries {
			break
		}

		backoff := calcBackoff(attempt)
		s.logger.Warn("retrying after transport error",
			slog.String("url", s.target),
			slog.Int("attempt", attempt+1),
			slog.Duration("backoff", backoff),
			slog.String("error", err.Error()),
		)

		if sleepErr := s.sleepFunc(ctx, backoff); sleepErr != nil {
			return nil, fmt.Errorf("transport: request canceled: %w", sleepErr)
		}
	}

	return nil, fmt.Errorf("transport: request to %s failed after %d retries: %w", s.target, maxRetries, lastErr)
}

func (s *Session) applyHeaders(req *http.Request) {
	for key, values := range s.headers {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}

	req.Header.Set("User-Agent", s.userAgent)
}

func (s *Session) readResponse(resp *http.Response) (*Response, error) {
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("transport: reading response body: %w", err)
	}

	s.logger.Debug("request completed",
		slog.String("url", s.target),
		slog.Int("status", resp.StatusCode),
	)

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       body,
	}, nil
}

// calcBackoff returns exponential backoff with jitter for the given attempt
// number (0-based). The base delay is capped at maxBackoff before jitter of
// up to ±jitterFraction is applied, so the result can exceed maxBackoff by
// up to jitterFraction of it.
func calcBackoff(attempt int) time.Duration {
	d := float64(baseBackoff) * math.Pow(backoffFactor, float64(attempt))
	if d > float64(maxBackoff) {
		d = float64(maxBackoff)
	}

	jitter := d * jitterFraction * (rand.Float64()*2 - 1)

	return time.Duration(d + jitter)
}

func timeSleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
