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
// Package hash provides the 32 bit XXHash used for block checksums and
// dictionary cache keys.
package hash

import (
	"encoding/binary"
	"math/bits"
)

// XXHash32 is an extremely fast hash algorithm written by Yann Collet.
// See https://github.com/Cyan4973/xxHash

const (
	_XXHASH_PRIME32_1 = uint32(2654435761)
	_XXHASH_PRIME32_2 = uint32(2246822519)
	_XXHASH_PRIME32_3 = uint32(3266489917)
	_XXHASH_PRIME32_4 = uint32(668265263)
	_XXHASH_PRIME32_5 = uint32(374761393)
)

// XXHash32 computes seeded 32 bit hashes of byte slices.
type XXHash32 struct {
	seed uint32
}

// NewXXHash32 creates a new instance of XXHash32
func NewXXHash32(seed uint32) (*XXHash32, error) {
	return &XXHash32{seed: seed}, nil
}

// SetSeed sets the hash seed
func (this *XXHash32) SetSeed(seed uint32) {
	this.seed = seed
}

// Seed returns the hash seed
func (this *XXHash32) Seed() uint32 {
	return this.seed
}

// Hash hashes the provided data
func (this *XXHash32) Hash(data []byte) uint32 {
	length := len(data)
	var h32 uint32

	if length >= 16 {
		v1 := this.seed + _XXHASH_PRIME32_1 + _XXHASH_PRIME32_2
		v2 := this.seed + _XXHASH_PRIME32_2
		v3 := this.seed
		v4 := this.seed - _XXHASH_PRIME32_1

		for len(data) >= 16 {
			v1 = xxRound32(v1, binary.LittleEndian.Uint32(data[0:4]))
			v2 = xxRound32(v2, binary.LittleEndian.Uint32(data[4:8]))
			v3 = xxRound32(v3, binary.LittleEndian.Uint32(data[8:12]))
			v4 = xxRound32(v4, binary.LittleEndian.Uint32(data[12:16]))
			data = data[16:]
		}

		h32 = bits.RotateLeft32(v1, 1) + bits.RotateLeft32(v2, 7) +
			bits.RotateLeft32(v3, 12) + bits.RotateLeft32(v4, 18)
	} else {
		h32 = this.seed + _XXHASH_PRIME32_5
	}

	h32 += uint32(length)

	for len(data) >= 4 {
		h32 += binary.LittleEndian.Uint32(data[0:4]) * _XXHASH_PRIME32_3
		h32 = bits.RotateLeft32(h32, 17) * _XXHASH_PRIME32_4
		data = data[4:]
	}

	for _, b := range data {
		h32 += uint32(b) * _XXHASH_PRIME32_5
		h32 = bits.RotateLeft32(h32, 11) * _XXHASH_PRIME32_1
	}

	h32 ^= h32 >> 15
	h32 *= _XXHASH_PRIME32_2
	h32 ^= h32 >> 13
	h32 *= _XXHASH_PRIME32_3
	return h32 ^ (h32 >> 16)
}

// Sum32 hashes data with a zero seed.
func Sum32(data []byte) uint32 {
	h := XXHash32{}
	return h.Hash(data)
}

func xxRound32(acc, val uint32) uint32 {
	acc += val * _XXHASH_PRIME32_2
	return bits.RotateLeft32(acc, 13) * _XXHASH_PRIME32_1
}
