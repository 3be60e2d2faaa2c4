package da

import (
	"encoding/hex"

	lru "github.com/hashicorp/golang-lru/v2"
)

// defaultCacheSize bounds the in-memory read cache shared by every
// backend. Adapted from the teacher's hand-rolled diskLRU (core/storage.go)
// into a real library-backed cache: the file backend already persists
// content forever, so only a bounded in-memory read-through cache is
// needed here to avoid re-hitting network backends (IPFS gateway,
// Celestia node) on repeated Get calls for the same typed hash.
const defaultCacheSize = 4096

type readCache struct {
	lru *lru.Cache[string, []byte]
}

func newReadCache(size int) *readCache {
	c, err := lru.New[string, []byte](size)
	if err != nil {
		// size is a positive compile-time constant; New only errors on
		// size <= 0.
		panic(err)
	}
	return &readCache{lru: c}
}

func (c *readCache) get(typedHash []byte) ([]byte, bool) {
	return c.lru.Get(hex.EncodeToString(typedHash))
}

func (c *readCache) set(typedHash, payload []byte) {
	c.lru.Add(hex.EncodeToString(typedHash), payload)
}
