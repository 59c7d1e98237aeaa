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
	"fmt"

	kzpipe "github.com/kzpipe/kzpipe"
)

// Sort by rank transforms re-rank every byte by the recency of its previous
// occurrences. The rank of a symbol depends on a key built from the last
// two access times of that symbol:
//   - MTF: key is the last access time (move to front)
//   - RANK: key is the average of the last two access times
//   - TIMESTAMP: key is the second to last access time
//
// Both directions run in linear time with a 256 entry rank table. The
// output has the same length as the input so the transform never skips.

const (
	SBRT_MODE_MTF       = 1 // mode MoveToFront
	SBRT_MODE_RANK      = 2 // mode Rank
	SBRT_MODE_TIMESTAMP = 3 // mode TimeStamp
)

// SBRT Sort By Rank Transform
type SBRT struct {
	mode int
}

// rankTable tracks symbol ranks ordered by decreasing key
type rankTable struct {
	mode   int
	last   [256]int
	key    [256]int
	byRank [256]int
	rankOf [256]int
}

func newRankTable(mode int) *rankTable {
	rt := &rankTable{mode: mode}

	for i := range rt.byRank {
		rt.byRank[i] = i
		rt.rankOf[i] = i
	}

	return rt
}

// touch records an access to symbol c at time t, currently ranked r,
// and moves it up the table to keep keys sorted.
func (rt *rankTable) touch(c, r, t int) {
	var k int

	switch rt.mode {
	case SBRT_MODE_MTF:
		k = t
	case SBRT_MODE_RANK:
		k = (t + rt.last[c]) >> 1
	default:
		k = rt.last[c]
	}

	rt.last[c] = t
	rt.key[c] = k

	for r > 0 && rt.key[rt.byRank[r-1]] <= k {
		prev := rt.byRank[r-1]
		rt.byRank[r] = prev
		rt.rankOf[prev] = r
		r--
	}

	rt.byRank[r] = c
	rt.rankOf[c] = r
}

// NewSBRT creates a new instance of SBRT
func NewSBRT(mode int) (*SBRT, error) {
	if mode != SBRT_MODE_MTF && mode != SBRT_MODE_RANK && mode != SBRT_MODE_TIMESTAMP {
		return nil, fmt.Errorf("%w: invalid sort by rank mode %d", kzpipe.ErrInvalidConfig, mode)
	}

	return &SBRT{mode: mode}, nil
}

// Mode returns the ranking mode
func (this *SBRT) Mode() int {
	return this.mode
}

func checkRankBuffers(src, dst []byte, length uint) error {
	if uint(len(src)) < length {
		return fmt.Errorf("%w: block length %d exceeds input buffer size %d", kzpipe.ErrInvalidArgument, length, len(src))
	}

	if uint(len(dst)) < length {
		return fmt.Errorf("%w: output buffer too small (%d < %d)", kzpipe.ErrInvalidArgument, len(dst), length)
	}

	if kzpipe.SameByteSlices(src, dst) {
		return fmt.Errorf("%w: input and output buffers cannot be equal", kzpipe.ErrInvalidArgument)
	}

	return nil
}

// Forward replaces every byte of src[0:length] with its current rank.
// Returns number of bytes read, number of bytes written and possibly an error.
func (this *SBRT) Forward(src, dst []byte, length uint) (uint, uint, error) {
	if length == 0 {
		return 0, 0, nil
	}

	if err := checkRankBuffers(src, dst, length); err != nil {
		return 0, 0, err
	}

	rt := newRankTable(this.mode)

	for i := 0; i < int(length); i++ {
		c := int(src[i])
		r := rt.rankOf[c]
		dst[i] = byte(r)
		rt.touch(c, r, i)
	}

	return length, length, nil
}

// Inverse maps every rank of src[0:length] back to its symbol.
// Returns number of bytes read, number of bytes written and possibly an error.
func (this *SBRT) Inverse(src, dst []byte, length uint) (uint, uint, error) {
	if length == 0 {
		return 0, 0, nil
	}

	if err := checkRankBuffers(src, dst, length); err != nil {
		return 0, 0, err
	}

	rt := newRankTable(this.mode)

	for i := 0; i < int(length); i++ {
		r := int(src[i])
		c := rt.byRank[r]
		dst[i] = byte(c)
		rt.touch(c, r, i)
	}

	return length, length, nil
}

// MaxEncodedLen returns the max size required for the encoding output buffer
func (this SBRT) MaxEncodedLen(srcLen int) int {
	return srcLen
}

// MaxDecodedLen returns the max size of the inverse output
func (this SBRT) MaxDecodedLen(srcLen int) int {
	return srcLen
}
