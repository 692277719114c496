// Package cache stores checker results keyed by a digest of the text they
// were computed from, so unchanged paragraphs are not checked twice.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"time"
)

// ErrClosed is returned by a cache used after Close.
var ErrClosed = errors.New("cache: closed")

type Cache interface {
	// Get returns the value stored under key.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Put stores value under key, replacing any previous value.
	Put(ctx context.Context, key string, value []byte) error

	// Prune drops entries not used since before and returns how many.
	Prune(ctx context.Context, before time.Time) (int64, error)

	Close() error
}

// Key digests its parts into a cache key. Parts are length-prefixed so
// ("ab", "c") and ("a", "bc") differ.
func Key(parts ...string) string {
	h := sha256.New()
	var n [8]byte
	for _, p := range parts {
		binary.LittleEndian.PutUint64(n[:], uint64(len(p)))
		h.Write(n[:])
		h.Write([]byte(p))
	}
	return hex.EncodeToString(h.Sum(nil))
}
