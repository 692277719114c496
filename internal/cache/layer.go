package cache

import (
	"context"
	"sync"
	"time"
)

type entry struct {
	value    []byte
	lastUsed time.Time
}

// hashmapLayer is an in-process map of entries.
type hashmapLayer struct {
	entries map[string]entry
	mu      sync.RWMutex
}

func newHashmapLayer() *hashmapLayer {
	return &hashmapLayer{entries: make(map[string]entry)}
}

func (l *hashmapLayer) get(key string) ([]byte, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.entries[key]
	if ok {
		e.lastUsed = time.Now()
		l.entries[key] = e
	}
	return e.value, ok
}

func (l *hashmapLayer) put(key string, value []byte) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries[key] = entry{value: value, lastUsed: time.Now()}
}

func (l *hashmapLayer) prune(before time.Time) int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	var n int64
	for k, e := range l.entries {
		if e.lastUsed.Before(before) {
			delete(l.entries, k)
			n++
		}
	}
	return n
}

func (l *hashmapLayer) len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

// HybridCache serves reads from memory and falls back to a persistent
// layer, copying hits into memory. Writes go to both layers.
type HybridCache struct {
	tmpLayer *hashmapLayer
	pstLayer Cache

	mu     sync.RWMutex
	closed bool
}

// NewHybridCache puts a memory layer in front of pst. A nil pst keeps
// entries in memory only.
func NewHybridCache(pst Cache) *HybridCache {
	return &HybridCache{tmpLayer: newHashmapLayer(), pstLayer: pst}
}

func (hc *HybridCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	hc.mu.RLock()
	defer hc.mu.RUnlock()
	if hc.closed {
		return nil, false, ErrClosed
	}

	if v, ok := hc.tmpLayer.get(key); ok {
		return v, true, nil
	}
	if hc.pstLayer == nil {
		return nil, false, nil
	}
	v, ok, err := hc.pstLayer.Get(ctx, key)
	if err != nil || !ok {
		return nil, false, err
	}
	hc.tmpLayer.put(key, v)
	return v, true, nil
}

func (hc *HybridCache) Put(ctx context.Context, key string, value []byte) error {
	hc.mu.RLock()
	defer hc.mu.RUnlock()
	if hc.closed {
		return ErrClosed
	}

	hc.tmpLayer.put(key, value)
	if hc.pstLayer == nil {
		return nil
	}
	return hc.pstLayer.Put(ctx, key, value)
}

// Prune drops old entries from both layers. It reports the persistent
// layer's count when there is one.
func (hc *HybridCache) Prune(ctx context.Context, before time.Time) (int64, error) {
	hc.mu.RLock()
	defer hc.mu.RUnlock()
	if hc.closed {
		return 0, ErrClosed
	}

	n := hc.tmpLayer.prune(before)
	if hc.pstLayer == nil {
		return n, nil
	}
	return hc.pstLayer.Prune(ctx, before)
}

// Close closes the persistent layer. Later calls return ErrClosed.
func (hc *HybridCache) Close() error {
	hc.mu.Lock()
	defer hc.mu.Unlock()
	if hc.closed {
		return ErrClosed
	}
	hc.closed = true
	if hc.pstLayer == nil {
		return nil
	}
	return hc.pstLayer.Close()
}
