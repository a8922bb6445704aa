package resumable

import (
	"errors"
	"fmt"
)

// Sentinel errors for classifying chunk-level failures. Use errors.Is to
// check a returned error against these.
var (
	// ErrUpload wraps a non-2xx response to a chunk POST, or a chunk GET/POST
	// that failed at the HTTP layer (status 0) (spec: TransportError).
	ErrUpload = errors.New("resumable: chunk upload failed")
	// ErrSource wraps a failure to read chunk bytes from the ChunkSource
	// (spec: SourceError, propagated identically to ErrUpload).
	ErrSource = errors.New("resumable: reading chunk from source failed")
)

// UploadError carries the HTTP status code and chunk identity for a failed
// chunk upload, in addition to the ErrUpload sentinel it wraps.
type UploadError struct {
	FileIdentifier string
	ChunkIndex     int
	StatusCode     int
	Body           string
	Err            error
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("resumable: chunk %d of file %s: HTTP %d: %s",
		e.ChunkIndex, e.FileIdentifier, e.StatusCode, e.Body)
}

func (e *UploadError) Unwrap() error {
	return e.Err
}

// SourceError wraps a ChunkSource read failure with chunk identity.
type SourceError struct {
	FileIdentifier string
	ChunkIndex     int
	Err            error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("resumable: reading chunk %d of file %s: %s",
		e.ChunkIndex, e.FileIdentifier, e.Err)
}

func (e *SourceError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrSource, so errors.Is(err, ErrSource) holds
// for every SourceError while Unwrap still exposes the underlying error.
func (e *SourceError) Is(target error) bool {
	return target == ErrSource
}

// classifyUploadStatus maps a non-2xx POST response to an *UploadError
// wrapping ErrUpload, mirroring the teacher's classifyStatus convention of
// turning HTTP status codes into sentinel-wrapped errors.
func classifyUploadStatus(fileIdentifier string, chunkIndex, status int, body string) error {
	return &UploadError{
		FileIdentifier: fileIdentifier,
		ChunkIndex:     chunkIndex,
		StatusCode:     status,
		Body:           body,
		Err:            ErrUpload,
	}
}

// classifyTransportFailure wraps a GET/POST that never reached the server at
// all (connection, DNS, TLS failure) as an *UploadError with StatusCode 0,
// per spec.md §7: "a POST returned non-2xx, or the HTTP layer failed" are
// both TransportError. This is distinct from SourceError, which is reserved
// for ChunkSource read failures (spec.md §7: "SourceError: the ChunkSource
// failed to produce bytes").
func classifyTransportFailure(fileIdentifier string, chunkIndex int, err error) error {
	return &UploadError{
		FileIdentifier: fileIdentifier,
		ChunkIndex:     chunkIndex,
		Body:           err.Error(),
		Err:            ErrUpload,
	}
}
