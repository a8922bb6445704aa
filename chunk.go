package resumable

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"sync/atomic"
)

// ChunkState is a Chunk's position in its upload lifecycle. States are
// monotonic: once StateDone, a Chunk never transitions again.
type ChunkState int32

const (
	// StateQueued is the initial state: not yet picked up by a worker.
	StateQueued ChunkState = iota
	// StatePopped means a worker's task provider has claimed this chunk;
	// it is mutually exclusive with every other worker claiming the same
	// chunk (spec.md §4.2, §4.4).
	StatePopped
	// StateUploading means the chunk's POST is in flight.
	StateUploading
	// StateDone means the server has the chunk, either via a matching
	// probe or a successful upload. Terminal.
	StateDone
)

func (s ChunkState) String() string {
	switch s {
	case StateQueued:
		return "QUEUED"
	case StatePopped:
		return "POPPED"
	case StateUploading:
		return "UPLOADING"
	case StateDone:
		return "DONE"
	default:
		return "UNKNOWN"
	}
}

// Chunk owns one chunk's upload state machine and the protocol logic that
// advances it: probe (test), upload (send), and the idempotent
// send-unless-already-done recovery path.
type Chunk struct {
	file  *File
	index int
	size  int64

	state atomic.Int32

	bus *Bus
}

func newChunk(file *File, index int, size int64) *Chunk {
	c := &Chunk{
		file:  file,
		index: index,
		size:  size,
		bus:   NewBus(),
	}
	c.state.Store(int32(StateQueued))

	return c
}

// Index returns the chunk's 0-based position within its File.
func (c *Chunk) Index() int { return c.index }

// Size returns the chunk's byte length (the configured chunk size, except
// for the final chunk, which may be shorter).
func (c *Chunk) Size() int64 { return c.size }

// State returns the chunk's current state.
func (c *Chunk) State() ChunkState { return ChunkState(c.state.Load()) }

// File returns the owning File.
func (c *Chunk) File() *File { return c.file }

// Equal reports whether two Chunks are the same chunk of the same file in
// the same state, per spec.md §3's equality definition (for test/debug use).
func (c *Chunk) Equal(other *Chunk) bool {
	if other == nil {
		return false
	}

	return c.file == other.file && c.index == other.index && c.State() == other.State()
}

// Query returns the merged Chunk+File query fields for this chunk: the two
// chunk-level fields (resumableChunkNumber, resumableCurrentChunkSize)
// plus every field from the owning File's query (spec.md §4.2).
func (c *Chunk) Query() url.Values {
	q := c.file.Query()
	q.Set("resumableChunkNumber", strconv.Itoa(c.index+1))
	q.Set("resumableCurrentChunkSize", strconv.FormatInt(c.size, 10))

	return q
}

// test probes the server for this chunk. A 200 response means the server
// already has it: the chunk transitions directly to StateDone and emits
// ChunkCompleted. Any other status is a no-op — the chunk remains in its
// current state and the caller proceeds to send (spec.md §4.2).
func (c *Chunk) test(ctx context.Context, session HTTPSession) error {
	resp, err := session.Get(ctx, c.Query())
	if err != nil {
		return classifyTransportFailure(c.file.identifier, c.index, err)
	}

	if resp.StatusCode == 200 {
		c.markDone()
	}

	return nil
}

// send uploads the chunk. Any non-2xx response is a TransportError that
// escapes the task; the chunk is left in StateUploading and is not
// re-queued by the default scheduler (spec.md §4.2, §7).
func (c *Chunk) send(ctx context.Context, session HTTPSession) error {
	c.state.Store(int32(StateUploading))

	data, err := c.file.readChunkBytes(ctx, c.index)
	if err != nil {
		return &SourceError{FileIdentifier: c.file.identifier, ChunkIndex: c.index, Err: err}
	}

	resp, err := session.Post(ctx, c.Query(), FilePart{
		FieldName: "file",
		FileName:  c.file.fileName(),
		Content:   data,
	})
	if err != nil {
		return classifyTransportFailure(c.file.identifier, c.index, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return classifyUploadStatus(c.file.identifier, c.index, resp.StatusCode, string(resp.Body))
	}

	c.markDone()

	return nil
}

// sendIfNotDone calls send unless the chunk is already StateDone — the
// idempotent recovery path that lets create_task's deferred task run test
// then send without double-uploading a chunk the probe already matched.
func (c *Chunk) sendIfNotDone(ctx context.Context, session HTTPSession) error {
	if c.State() == StateDone {
		return nil
	}

	return c.send(ctx, session)
}

// createTask transitions the chunk from StateQueued to StatePopped — the
// step that makes task acquisition mutually exclusive — and returns a
// deferred unit of work that, when invoked, probes then uploads (if
// needed). The caller (the Session's task provider) must hold whatever
// lock makes this transition exclusive with respect to other chunks being
// popped concurrently; createTask itself does not lock anything beyond the
// atomic state store.
func (c *Chunk) createTask(session HTTPSession) func() error {
	c.state.Store(int32(StatePopped))

	return func() error {
		if err := c.test(context.Background(), session); err != nil {
			return err
		}

		return c.sendIfNotDone(context.Background(), session)
	}
}

// markDone transitions the chunk to StateDone and emits ChunkCompleted.
// Idempotent in effect — StateDone is terminal and test/send only ever
// call it once per chunk in practice — but guards against double-emission
// if invoked twice regardless.
func (c *Chunk) markDone() {
	if ChunkState(c.state.Swap(int32(StateDone))) == StateDone {
		return
	}

	c.bus.Emit(ChunkCompleted)
}

func (c *Chunk) String() string {
	return fmt.Sprintf("Chunk{file=%s index=%d state=%s}", c.file.identifier, c.index, c.State())
}
