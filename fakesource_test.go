package resumable

import (
	"context"
	"errors"
)

// fakeChunkSource is an in-memory ChunkSource for tests that don't need a
// real file on disk.
type fakeChunkSource struct {
	path      string
	data      []byte
	chunkSize int64
	closed    bool
}

func newFakeChunkSource(path string, data []byte, chunkSize int64) *fakeChunkSource {
	return &fakeChunkSource{path: path, data: data, chunkSize: chunkSize}
}

func (f *fakeChunkSource) Path() string     { return f.path }
func (f *fakeChunkSource) Size() int64      { return int64(len(f.data)) }
func (f *fakeChunkSource) ChunkSize() int64 { return f.chunkSize }

func (f *fakeChunkSource) Close() error {
	f.closed = true

	return nil
}

func (f *fakeChunkSource) NumChunks() int {
	n := int(f.Size() / f.chunkSize)
	if f.Size()%f.chunkSize != 0 || n == 0 {
		n++
	}

	return n
}

func (f *fakeChunkSource) ReadChunk(_ context.Context, index int) ([]byte, error) {
	start := int64(index) * f.chunkSize
	end := start + f.chunkSize
	if end > int64(len(f.data)) {
		end = int64(len(f.data))
	}

	return f.data[start:end], nil
}

// failingChunkSource wraps a fakeChunkSource but always fails to read chunk
// bytes, so a test can exercise the SourceError path independently of the
// transport-failure path.
type failingChunkSource struct {
	fakeChunkSource
}

func (f *failingChunkSource) ReadChunk(context.Context, int) ([]byte, error) {
	return nil, errors.New("disk read failed")
}
