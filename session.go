package resumable

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/tonimelisma/resumable-go/chunksource"
	"github.com/tonimelisma/resumable-go/transport"
)

// Session is the top-level handle: it owns an HTTPSession, the list of
// Files added to it, and a Scheduler whose task provider scans all Files
// for the next queued Chunk (spec.md §2, §4.5).
type Session struct {
	target  string
	opts    Options
	session HTTPSession
	logger  *slog.Logger

	filesMu sync.Mutex
	files   []*File

	bus       *Bus
	scheduler *Scheduler
}

// New creates a Session targeting target and starts its scheduler. Files
// must be added before WaitUntilComplete is called: it returns once the
// workers go idle and does not wait for a File added after that (spec.md
// §5). The task provider reads the file list under filesMu, so AddFile may
// run while workers are scanning.
func New(target string, opts ...Option) *Session {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	if o.Logger == nil {
		o.Logger = slog.Default()
	}

	session := o.HTTPSession
	if session == nil {
		session = &transportAdapter{inner: transport.New(target, nil, o.Headers, o.Logger)}
	}

	if o.ChunkSourceFunc == nil {
		o.ChunkSourceFunc = func(path string, chunkSize int64) (ChunkSource, error) {
			return chunksource.Open(path, chunkSize)
		}
	}

	s := &Session{
		target:  target,
		opts:    o,
		session: session,
		logger:  o.Logger,
		bus:     NewBus(),
	}

	s.scheduler = NewScheduler(o.Concurrency, s.nextTask)
	s.scheduler.Start(context.Background())

	s.logger.Info("session started",
		slog.String("target", target),
		slog.Int("concurrency", o.Concurrency),
		slog.Int64("chunk_size", o.ChunkSize),
	)

	return s
}

// Register subscribes handler to kind on the Session's own bus. Handlers
// run in registration order, synchronously on the emitting goroutine.
func (s *Session) Register(kind Signal, handler Handler) {
	s.bus.Register(kind, handler)
}

// AddFile opens path with the Session's configured ChunkSourceFunc and
// chunk size, derives its Chunks, wires its signals up to the Session's
// bus, and emits FileAdded.
func (s *Session) AddFile(path string) error {
	source, err := s.opts.ChunkSourceFunc(path, s.opts.ChunkSize)
	if err != nil {
		return fmt.Errorf("resumable: adding file %s: %w", path, err)
	}

	mimeType := inferMimeType(path, source)

	f := newFile(path, source, s.opts.IdentifierFunc, mimeType)
	f.bus.ProxyTo(s.bus)

	s.filesMu.Lock()
	s.files = append(s.files, f)
	s.filesMu.Unlock()

	s.logger.Info("file added",
		slog.String("path", path),
		slog.String("identifier", f.identifier),
		slog.Int64("size", f.totalSize),
		slog.Int("chunks", len(f.chunks)),
	)

	s.bus.Emit(FileAdded)

	return nil
}

// sampleSource is satisfied by the default chunksource.FileSource; a
// custom ChunkSource that doesn't implement it just gets extension-only
// mime inference.
type sampleSource interface {
	Sample() []byte
}

func inferMimeType(path string, source ChunkSource) string {
	var sample []byte
	if ss, ok := source.(sampleSource); ok {
		sample = ss.Sample()
	}

	return chunksource.InferMimeType(path, sample)
}

// Files returns the Files added to this Session so far, in insertion
// order. Callers check per-File completion explicitly via File.Completed.
func (s *Session) Files() []*File {
	s.filesMu.Lock()
	defer s.filesMu.Unlock()

	out := make([]*File, len(s.files))
	copy(out, s.files)

	return out
}

// nextTask is the Session's task provider (spec.md §4.5): it scans Files
// in insertion order and, within each File, Chunks in index order; the
// first Chunk whose state is StateQueued wins. Because the Scheduler
// serializes provider calls, this scan-and-pop is atomic with respect to
// other workers.
func (s *Session) nextTask() (TaskFunc, bool) {
	s.filesMu.Lock()
	files := s.files
	s.filesMu.Unlock()

	for _, f := range files {
		for _, c := range f.chunks {
			if c.State() == StateQueued {
				wrapped := NewFixedURLSession(s.session)

				return c.createTask(wrapped), true
			}
		}
	}

	return nil, false
}

// WaitUntilComplete blocks until no more work is available — every worker
// is idle and the task provider's most recent call found nothing queued.
// It returns whether or not every File finished; callers check per-File
// completion explicitly (spec.md §7).
func (s *Session) WaitUntilComplete() {
	s.scheduler.Join()
}

// Errors returns the errors recorded by the Scheduler so far (one per
// failed chunk task) and how many additional errors were dropped once the
// diagnostic list filled up.
func (s *Session) Errors() (errs []error, dropped int64) {
	return s.scheduler.Errors()
}

// Close stops the Scheduler's workers and releases every File's underlying
// ChunkSource. Call after WaitUntilComplete returns.
func (s *Session) Close() error {
	s.scheduler.Stop()

	s.filesMu.Lock()
	files := s.files
	s.filesMu.Unlock()

	var firstErr error

	for _, f := range files {
		if err := f.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	return firstErr
}
