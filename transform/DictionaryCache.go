/*
Copyright 2011-2024 Frederic Langlet
Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
you may obtain a copy of the License at

                http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package transform

import (
	"bytes"
	"fmt"

	"github.com/cespare/xxhash/v2"
	lru "github.com/hashicorp/golang-lru/v2"
)

const (
	_TC_DICT_CACHE_SIZE  = 16
	_TC_MAX_CUSTOM_WORDS = _TC_MAX_DICT_SIZE - _TC_RESERVED_WORDS - 1
)

var _TC_CUSTOM_DICTIONARIES = newDictionaryCache(_TC_DICT_CACHE_SIZE)

type cachedDictionary struct {
	source []byte // blob as provided, to detect checksum collisions
	seed   *seedDictionary
}

// dictionaryCache keeps the most recently used custom dictionaries unpacked.
// Codecs built per block with the same blob share the cached words, which
// are never modified.
type dictionaryCache struct {
	cache *lru.Cache[uint64, *cachedDictionary]
}

func newDictionaryCache(size int) *dictionaryCache {
	cache, err := lru.New[uint64, *cachedDictionary](size)

	if err != nil {
		panic(fmt.Errorf("Cannot create dictionary cache: %w", err))
	}

	return &dictionaryCache{cache: cache}
}

func (this *dictionaryCache) get(blob []byte) (*seedDictionary, error) {
	key := xxhash.Sum64(blob)

	if cd, ok := this.cache.Get(key); ok && bytes.Equal(cd.source, blob) {
		return cd.seed, nil
	}

	seed, err := unpackDictionary(blob, _TC_MAX_CUSTOM_WORDS)

	if err != nil {
		return nil, err
	}

	source := make([]byte, len(blob))
	copy(source, blob)
	this.cache.Add(key, &cachedDictionary{source: source, seed: seed})
	return seed, nil
}

// Len returns the number of cached dictionaries
func (this *dictionaryCache) Len() int {
	return this.cache.Len()
}
