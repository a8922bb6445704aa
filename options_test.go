package resumable

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultOptions(t *testing.T) {
	t.Parallel()

	o := defaultOptions()

	assert.Equal(t, defaultConcurrency, o.Concurrency)
	assert.Equal(t, int64(MB), o.ChunkSize)
	assert.NotNil(t, o.IdentifierFunc)
}

func TestWithConcurrency_IgnoresNonPositive(t *testing.T) {
	t.Parallel()

	o := defaultOptions()
	WithConcurrency(0)(&o)
	assert.Equal(t, defaultConcurrency, o.Concurrency)

	WithConcurrency(7)(&o)
	assert.Equal(t, 7, o.Concurrency)
}

func TestWithChunkSize_IgnoresNonPositive(t *testing.T) {
	t.Parallel()

	o := defaultOptions()
	WithChunkSize(-1)(&o)
	assert.Equal(t, int64(MB), o.ChunkSize)

	WithChunkSize(2 * MB)(&o)
	assert.Equal(t, int64(2*MB), o.ChunkSize)
}

func TestWithHeaders_MergesIntoExisting(t *testing.T) {
	t.Parallel()

	o := defaultOptions()
	WithHeaders(map[string]string{"Authorization": "Bearer xyz"})(&o)
	WithHeaders(map[string]string{"X-Trace": "1"})(&o)

	assert.Equal(t, "Bearer xyz", o.Headers.Get("Authorization"))
	assert.Equal(t, "1", o.Headers.Get("X-Trace"))
}

func TestWithIdentifierFunc_IgnoresNil(t *testing.T) {
	t.Parallel()

	o := defaultOptions()

	var called bool
	WithIdentifierFunc(func(string, int64) string { called = true; return "fixed" })(&o)
	WithIdentifierFunc(nil)(&o)

	assert.Equal(t, "fixed", o.IdentifierFunc("x", 1))
	assert.True(t, called)
}

func TestWithChunkSourceFunc_IgnoresNil(t *testing.T) {
	t.Parallel()

	o := defaultOptions()
	WithChunkSourceFunc(nil)(&o)
	assert.Nil(t, o.ChunkSourceFunc)
}
