// Package dedupe remembers recently seen block ticks so a tick replayed by
// a reconnecting feed, or delivered by two feeds, is published once.
package dedupe

import (
	"context"
	"strings"
	"sync"

	"github.com/okian/tradesync/internal/domain/model"
)

const defaultMaxSize = 4096

// Deduper records seen keys.
type Deduper interface {
	// SeenAndRecord atomically checks if key was seen and records it if not.
	// Returns true if key was already seen.
	SeenAndRecord(ctx context.Context, key string) bool

	// Unrecord forgets key so it is accepted again. Reorged blocks are
	// unrecorded when their removal arrives.
	Unrecord(ctx context.Context, key string)

	Size() int64
}

// BlockKey returns the dedupe key of a block tick: its block hash,
// case-folded. Other events and ticks without a hash have no key.
func BlockKey(ev model.Event) (string, bool) {
	if ev.Name != model.NewBlock {
		return "", false
	}
	h := strings.ToLower(ev.String(model.FieldBlockHash))
	return h, h != ""
}

// inMemoryDeduper keeps the last maxSize keys in a ring; the oldest key is
// evicted first. Unrecorded slots are left as tombstones and reused when
// the ring wraps.
type inMemoryDeduper struct {
	mu      sync.Mutex
	maxSize int
	seen    map[string]int
	ring    []string
	next    int
}

// NewInMemoryDeduper creates a bounded in-memory deduper.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &inMemoryDeduper{maxSize: defaultMaxSize}
	for _, opt := range opts {
		opt(d)
	}
	d.seen = make(map[string]int, d.maxSize)
	d.ring = make([]string, d.maxSize)
	return d
}

func (d *inMemoryDeduper) SeenAndRecord(_ context.Context, key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.seen[key]; ok {
		return true
	}
	if old := d.ring[d.next]; old != "" {
		delete(d.seen, old)
	}
	d.ring[d.next] = key
	d.seen[key] = d.next
	d.next = (d.next + 1) % d.maxSize
	return false
}

func (d *inMemoryDeduper) Unrecord(_ context.Context, key string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if slot, ok := d.seen[key]; ok {
		delete(d.seen, key)
		d.ring[slot] = ""
	}
}

func (d *inMemoryDeduper) Size() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return int64(len(d.seen))
}
