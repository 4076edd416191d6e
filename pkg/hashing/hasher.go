/*
 * Copyright 2021-present by Nedim Sabic Sabic
 * https://www.fibratus.io
 * All Rights Reserved.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package hashing

import (
	"crypto/sha256"
	"encoding/hex"
	"expvar"
	"sync"

	"github.com/golang/groupcache/lru"
	"github.com/valyala/bytebufferpool"
)

// HashLen is the length of the argument hash slot in hex characters.
const HashLen = 64

var (
	cacheHits   = expvar.NewInt("hashing.cache.hits")
	cacheMisses = expvar.NewInt("hashing.cache.misses")
)

// Hash computes the SHA-256 digest of the blob and places its hex form into
// a HashLen slot. Digests longer than the slot are truncated.
func Hash(blob []byte) string {
	sum := sha256.Sum256(blob)
	digest := hex.EncodeToString(sum[:])
	if len(digest) > HashLen {
		digest = digest[:HashLen]
	}
	return digest
}

// Hasher computes argument hashes for hash contexts. Recently seen
// blobs are memoized in a LRU cache, since hot call sites tend to
// hash the same metadata over and over. It is safe for concurrent use.
type Hasher struct {
	mu    sync.Mutex
	cache *lru.Cache
	pool  bytebufferpool.Pool
}

// NewHasher builds a hasher with the given cache capacity. Zero
// or negative capacity disables memoization.
func NewHasher(cacheSize int) *Hasher {
	h := &Hasher{}
	if cacheSize > 0 {
		h.cache = lru.New(cacheSize)
	}
	return h
}

// Sum returns the argument hash of the hash context.
func (h *Hasher) Sum(ctx *Context) string {
	b := h.pool.Get()
	defer h.pool.Put(b)
	b.B = ctx.AppendBinary(b.B[:0])

	if h.cache == nil {
		return Hash(b.B)
	}

	key := string(b.B)
	h.mu.Lock()
	v, ok := h.cache.Get(key)
	h.mu.Unlock()
	if ok {
		cacheHits.Add(1)
		return v.(string)
	}
	cacheMisses.Add(1)

	digest := Hash(b.B)
	h.mu.Lock()
	h.cache.Add(key, digest)
	h.mu.Unlock()
	return digest
}
