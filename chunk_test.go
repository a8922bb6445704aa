package resumable

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestFile(t *testing.T, data []byte, chunkSize int64) *File {
	t.Helper()

	source := newFakeChunkSource("report.txt", data, chunkSize)

	return newFile("report.txt", source, DefaultIdentifierFunc, "text/plain")
}

func TestChunk_InitialStateIsQueued(t *testing.T) {
	t.Parallel()

	f := newTestFile(t, []byte("hello world"), 4)
	assert.Equal(t, StateQueued, f.Chunks()[0].State())
}

func TestChunk_TestMarksDoneOnProbeMatch(t *testing.T) {
	t.Parallel()

	f := newTestFile(t, []byte("hello world"), 4)
	c := f.Chunks()[0]

	session := newFakeSession()
	session.probeMatch = true

	var completed bool
	c.bus.Register(ChunkCompleted, func(Signal) { completed = true })

	require.NoError(t, c.test(context.Background(), session))

	assert.Equal(t, StateDone, c.State())
	assert.True(t, completed)
	assert.Equal(t, 1, session.numGetCalls())
	assert.Equal(t, 0, session.numPostCalls())
}

func TestChunk_TestLeavesStateUnchangedOnNoMatch(t *testing.T) {
	t.Parallel()

	f := newTestFile(t, []byte("hello world"), 4)
	c := f.Chunks()[0]

	session := newFakeSession()

	require.NoError(t, c.test(context.Background(), session))
	assert.Equal(t, StateQueued, c.State())
}

func TestChunk_SendUploadsAndMarksDone(t *testing.T) {
	t.Parallel()

	f := newTestFile(t, []byte("hello world"), 4)
	c := f.Chunks()[0]

	session := newFakeSession()

	var completed bool
	c.bus.Register(ChunkCompleted, func(Signal) { completed = true })

	require.NoError(t, c.send(context.Background(), session))

	assert.Equal(t, StateDone, c.State())
	assert.True(t, completed)
	assert.Equal(t, 1, session.numPostCalls())
}

func TestChunk_SendNonTwoxxReturnsUploadError(t *testing.T) {
	t.Parallel()

	f := newTestFile(t, []byte("hello world"), 4)
	c := f.Chunks()[0]

	session := newFakeSession()
	session.uploadStatus = 500

	err := c.send(context.Background(), session)
	require.Error(t, err)

	var uploadErr *UploadError
	require.ErrorAs(t, err, &uploadErr)
	assert.Equal(t, 500, uploadErr.StatusCode)
	assert.ErrorIs(t, err, ErrUpload)

	// Failed upload leaves the chunk in StateUploading, not StateDone, and
	// it is not auto-retried (spec.md §7).
	assert.Equal(t, StateUploading, c.State())
}

func TestChunk_TestTransportFailureIsNotSourceError(t *testing.T) {
	t.Parallel()

	f := newTestFile(t, []byte("hello world"), 4)
	c := f.Chunks()[0]

	session := newFakeSession()
	session.getErr = errors.New("dial tcp: connection refused")

	err := c.test(context.Background(), session)
	require.Error(t, err)

	assert.ErrorIs(t, err, ErrUpload)
	assert.False(t, errors.Is(err, ErrSource))

	var uploadErr *UploadError
	require.ErrorAs(t, err, &uploadErr)
	assert.Equal(t, 0, uploadErr.StatusCode)
	assert.Contains(t, uploadErr.Error(), "connection refused")

	// A probe that never reached the server must not advance the state
	// machine.
	assert.Equal(t, StateQueued, c.State())
}

func TestChunk_SendTransportFailureIsNotSourceError(t *testing.T) {
	t.Parallel()

	f := newTestFile(t, []byte("hello world"), 4)
	c := f.Chunks()[0]

	session := newFakeSession()
	session.postErr = errors.New("dial tcp: connection refused")

	err := c.send(context.Background(), session)
	require.Error(t, err)

	assert.ErrorIs(t, err, ErrUpload)
	assert.False(t, errors.Is(err, ErrSource))

	var uploadErr *UploadError
	require.ErrorAs(t, err, &uploadErr)
	assert.Equal(t, 0, uploadErr.StatusCode)
}

func TestChunk_SendSourceReadFailureIsSourceError(t *testing.T) {
	t.Parallel()

	f := newTestFile(t, []byte("hello world"), 4)
	c := f.Chunks()[0]
	f.source = &failingChunkSource{fakeChunkSource: *newFakeChunkSource("report.txt", []byte("hello world"), 4)}

	session := newFakeSession()

	err := c.send(context.Background(), session)
	require.Error(t, err)

	assert.ErrorIs(t, err, ErrSource)
	assert.False(t, errors.Is(err, ErrUpload))
}

func TestChunk_SendIfNotDoneSkipsAlreadyDoneChunk(t *testing.T) {
	t.Parallel()

	f := newTestFile(t, []byte("hello world"), 4)
	c := f.Chunks()[0]
	c.markDone()

	session := newFakeSession()

	require.NoError(t, c.sendIfNotDone(context.Background(), session))
	assert.Equal(t, 0, session.numPostCalls())
}

func TestChunk_CreateTaskTransitionsToPoppedImmediately(t *testing.T) {
	t.Parallel()

	f := newTestFile(t, []byte("hello world"), 4)
	c := f.Chunks()[0]

	session := newFakeSession()
	task := c.createTask(session)

	assert.Equal(t, StatePopped, c.State())

	require.NoError(t, task())
	assert.Equal(t, StateDone, c.State())
}

func TestChunk_CreateTaskSkipsSendWhenProbeMatches(t *testing.T) {
	t.Parallel()

	f := newTestFile(t, []byte("hello world"), 4)
	c := f.Chunks()[0]

	session := newFakeSession()
	session.probeMatch = true
	task := c.createTask(session)

	require.NoError(t, task())

	assert.Equal(t, StateDone, c.State())
	assert.Equal(t, 0, session.numPostCalls())
}

func TestChunk_MarkDoneEmitsOnlyOnce(t *testing.T) {
	t.Parallel()

	f := newTestFile(t, []byte("hello world"), 4)
	c := f.Chunks()[0]

	var emitCount int
	c.bus.Register(ChunkCompleted, func(Signal) { emitCount++ })

	c.markDone()
	c.markDone()

	assert.Equal(t, 1, emitCount)
}

func TestChunk_Equal(t *testing.T) {
	t.Parallel()

	f := newTestFile(t, []byte("hello world"), 4)
	c0 := f.Chunks()[0]
	c1 := f.Chunks()[1]

	assert.True(t, c0.Equal(c0))
	assert.False(t, c0.Equal(c1))
	assert.False(t, c0.Equal(nil))
}

func TestChunk_QueryMergesFileAndChunkFields(t *testing.T) {
	t.Parallel()

	f := newTestFile(t, []byte("hello world"), 4)
	c := f.Chunks()[1]

	q := c.Query()
	assert.Equal(t, "2", q.Get("resumableChunkNumber"))
	assert.Equal(t, "4", q.Get("resumableCurrentChunkSize"))
	assert.Equal(t, f.Identifier(), q.Get("resumableIdentifier"))
}

func TestChunkState_String(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "QUEUED", StateQueued.String())
	assert.Equal(t, "POPPED", StatePopped.String())
	assert.Equal(t, "UPLOADING", StateUploading.String())
	assert.Equal(t, "DONE", StateDone.String())
	assert.Equal(t, "UNKNOWN", ChunkState(99).String())
}
