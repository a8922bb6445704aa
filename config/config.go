// Package config provides an optional, file-based override layer for a
// resumable.Session's tuning options. Nothing in the core protocol requires
// a config file — callers can always configure a Session purely with
// resumable.Option values — but large deployments often want to externalize
// upload tuning the way onedrive-go externalizes its sync tuning: a small
// TOML file under an [upload] table.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/tonimelisma/resumable-go"
)

// Overrides is the [upload] table of a config file: the subset of
// resumable.Options a deployment typically wants to externalize.
type Overrides struct {
	Target              string            `toml:"target"`
	SimultaneousUploads int               `toml:"simultaneous_uploads"`
	ChunkSize           string            `toml:"chunk_size"`
	Headers             map[string]string `toml:"headers"`
}

// Options converts the overrides into resumable.Option values, skipping any
// field left at its zero value so defaults still apply. Target is returned
// separately since resumable.New takes it as a positional argument, not an
// Option.
func (o Overrides) Options() (target string, opts []resumable.Option, err error) {
	target = o.Target

	if o.SimultaneousUploads > 0 {
		opts = append(opts, resumable.WithConcurrency(o.SimultaneousUploads))
	}

	if o.ChunkSize != "" {
		bytes, sizeErr := o.ChunkSizeBytes()
		if sizeErr != nil {
			return "", nil, sizeErr
		}

		opts = append(opts, resumable.WithChunkSize(bytes))
	}

	if len(o.Headers) > 0 {
		opts = append(opts, resumable.WithHeaders(o.Headers))
	}

	return target, opts, nil
}

// fileShape is the on-disk TOML shape: a single [upload] table.
type fileShape struct {
	Upload Overrides `toml:"upload"`
}

// Load reads path and returns its [upload] overrides. A missing file is not
// an error — callers typically treat config files as optional and fall
// back to resumable.Option defaults.
func Load(path string) (Overrides, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Overrides{}, nil
		}

		return Overrides{}, fmt.Errorf("config: reading %s: %w", path, err)
	}

	var shape fileShape
	if _, err := toml.Decode(string(data), &shape); err != nil {
		return Overrides{}, fmt.Errorf("config: parsing %s: %w", path, err)
	}

	return shape.Upload, nil
}

// ChunkSizeBytes parses the ChunkSize field (e.g. "1MiB", "512KB", "2097152")
// into a byte count. An empty string returns 0, "not set".
func (o Overrides) ChunkSizeBytes() (int64, error) {
	return parseSize(o.ChunkSize)
}

// Size multiplier constants (binary / IEC), matching the teacher's
// internal/config size parsing convention.
const (
	kibibyte = 1024
	mebibyte = 1024 * kibibyte
	gibibyte = 1024 * mebibyte
)

// Size multiplier constants (decimal / SI).
const (
	kilobyte = 1000
	megabyte = 1000 * kilobyte
	gigabyte = 1000 * megabyte
)

// parseSize converts a human-readable size string ("1MiB", "512KB", or a
// bare number of bytes) into an int64 byte count.
func parseSize(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "0" {
		return 0, nil
	}

	upper := strings.ToUpper(s)

	suffixes := []struct {
		suffix     string
		multiplier int64
	}{
		{"GIB", gibibyte},
		{"MIB", mebibyte},
		{"KIB", kibibyte},
		{"GB", gigabyte},
		{"MB", megabyte},
		{"KB", kilobyte},
		{"B", 1},
	}

	for _, sf := range suffixes {
		if strings.HasSuffix(upper, sf.suffix) {
			numStr := strings.TrimSpace(s[:len(s)-len(sf.suffix)])

			n, err := strconv.ParseInt(numStr, 10, 64)
			if err != nil {
				return 0, fmt.Errorf("config: invalid size %q: %w", s, err)
			}

			return n * sf.multiplier, nil
		}
	}

	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("config: invalid size %q: %w", s, err)
	}

	return n, nil
}
