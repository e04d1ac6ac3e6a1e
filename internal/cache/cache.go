package cache

import (
	"encoding/hex"
	"time"

	"github.com/zeebo/blake3"

	"github.com/ppiankov/relmark/internal/model"
)

// Cache stores output envelopes by content key
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}

// Key derives the cache key for an input. The fingerprint must change whenever
// anything that affects the output changes: producer, collaborators, policy.
func Key(fingerprint string, input []byte) string {
	h := blake3.New()
	_, _ = h.Write([]byte(fingerprint))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write(input)
	return "relmark:v1:" + hex.EncodeToString(h.Sum(nil))
}

// New builds the cache described by cfg; a disabled cache stores nothing
func New(cfg model.CacheConfig) Cache {
	if !cfg.Enabled {
		return Nop{}
	}
	return NewLayeredCache(cfg.MemoryTTL, cfg.Dir, cfg.DiskTTL)
}

// Nop is a cache that never hits
type Nop struct{}

func (Nop) Get(string) ([]byte, bool)               { return nil, false }
func (Nop) Set(string, []byte, time.Duration) error { return nil }
func (Nop) Delete(string) error                     { return nil }
func (Nop) Clear() error                            { return nil }
