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
	"errors"
	"fmt"

	kzpipe "github.com/kzpipe/kzpipe"
	"github.com/kzpipe/kzpipe/internal"
)

const (
	_TC_ESCAPE_TOKEN1   = byte('@') // followed by a 1 byte word index
	_TC_ESCAPE_TOKEN2   = byte('^') // followed by a 2 byte word index
	_TC_MASK_FLIP_CASE  = 0x80      // first index byte: flip case of 1st letter
	_TC_COMPACT_INDEXES = 128
	_TC_LOG_HASHES_SIZE = 18
	_TC_LOG_DICT_SIZE   = 15
	_TC_MAX_DICT_SIZE   = 1 << 15
	_TC_MIN_LOG_HASH    = 8
	_TC_MAX_LOG_HASH    = 24
	_TC_MIN_STATS_SIZE  = 64 // smaller blocks skip the text detection
)

var errNotText = errors.New("Text transform skipped: input is not text")

// TextCodec is a one-pass text transform that replaces words with indexes
// into a dictionary. The dictionary starts with a static list of seed words
// and grows with the words met in the block, in order of first occurrence.
//
// A reference to an index lower than 128 is encoded as escape1 + 1 byte,
// any other as escape2 + 2 bytes (big endian). The top bit of the first
// index byte tells the decoder to flip the case of the first letter, so
// "The" is a reference to the seed word "the". Literal escape bytes are
// encoded as references to the reserved indexes 0 and 1.
type TextCodec struct {
	dict        *textDictionary
	escape1     byte
	escape2     byte
	logHashSize uint
	dictSize    int
}

// NewTextCodec creates a new instance of TextCodec with the default seed
// dictionary and escape tokens.
func NewTextCodec() (*TextCodec, error) {
	return newTextCodec(_TC_DEFAULT_SEED, _TC_LOG_HASHES_SIZE, 1<<_TC_LOG_DICT_SIZE,
		_TC_ESCAPE_TOKEN1, _TC_ESCAPE_TOKEN2)
}

// NewTextCodecWithDictionary creates a new instance of TextCodec seeded with
// the words of a custom blob of capitalized words (eg. "TheAndOf").
// The hash table has 1<<logHashSize slots and the dictionary holds at most
// dictSize words (reserved and seed words included).
func NewTextCodecWithDictionary(dict []byte, logHashSize uint, dictSize int, escape1, escape2 byte) (*TextCodec, error) {
	if len(dict) == 0 {
		return nil, fmt.Errorf("%w: empty text dictionary", kzpipe.ErrInvalidConfig)
	}

	seed, err := _TC_CUSTOM_DICTIONARIES.get(dict)

	if err != nil {
		return nil, fmt.Errorf("%w: %v", kzpipe.ErrInvalidConfig, err)
	}

	return newTextCodec(seed, logHashSize, dictSize, escape1, escape2)
}

// NewTextCodecWithCtx creates a new instance of TextCodec using a
// configuration map as parameter. Recognized keys: "textDictionary" ([]byte),
// "textLogHash" (uint), "textDictSize" (uint) and "textEscapes" ([2]byte).
func NewTextCodecWithCtx(ctx *map[string]any) (*TextCodec, error) {
	if ctx == nil {
		return NewTextCodec()
	}

	logHashSize, err := ctxUint(*ctx, "textLogHash", _TC_LOG_HASHES_SIZE)

	if err != nil {
		return nil, err
	}

	dictSize, err := ctxUint(*ctx, "textDictSize", 1<<_TC_LOG_DICT_SIZE)

	if err != nil {
		return nil, err
	}

	escape1, escape2 := _TC_ESCAPE_TOKEN1, _TC_ESCAPE_TOKEN2

	if val, containsKey := (*ctx)["textEscapes"]; containsKey {
		esc, ok := val.([2]byte)

		if !ok {
			return nil, fmt.Errorf("%w: textEscapes must be a [2]byte, got %T", kzpipe.ErrInvalidConfig, val)
		}

		escape1, escape2 = esc[0], esc[1]
	}

	if val, containsKey := (*ctx)["textDictionary"]; containsKey {
		blob, ok := val.([]byte)

		if !ok {
			return nil, fmt.Errorf("%w: textDictionary must be a []byte, got %T", kzpipe.ErrInvalidConfig, val)
		}

		return NewTextCodecWithDictionary(blob, logHashSize, int(dictSize), escape1, escape2)
	}

	return newTextCodec(_TC_DEFAULT_SEED, logHashSize, int(dictSize), escape1, escape2)
}

func newTextCodec(seed *seedDictionary, logHashSize uint, dictSize int, escape1, escape2 byte) (*TextCodec, error) {
	if logHashSize < _TC_MIN_LOG_HASH || logHashSize > _TC_MAX_LOG_HASH {
		return nil, fmt.Errorf("%w: text codec hash size exponent must be in [%d..%d], got %d",
			kzpipe.ErrInvalidConfig, _TC_MIN_LOG_HASH, _TC_MAX_LOG_HASH, logHashSize)
	}

	minSize := _TC_RESERVED_WORDS + len(seed.entries)

	if dictSize <= minSize || dictSize > _TC_MAX_DICT_SIZE {
		return nil, fmt.Errorf("%w: text dictionary size must be in [%d..%d], got %d",
			kzpipe.ErrInvalidConfig, minSize+1, _TC_MAX_DICT_SIZE, dictSize)
	}

	if 1<<logHashSize <= dictSize {
		return nil, fmt.Errorf("%w: text codec hash table (%d slots) must be larger than the dictionary (%d words)",
			kzpipe.ErrInvalidConfig, 1<<logHashSize, dictSize)
	}

	if escape1 == escape2 {
		return nil, fmt.Errorf("%w: text codec escape tokens must differ", kzpipe.ErrInvalidConfig)
	}

	if isText(escape1) || isText(escape2) {
		return nil, fmt.Errorf("%w: text codec escape tokens cannot be letters", kzpipe.ErrInvalidConfig)
	}

	this := &TextCodec{}
	this.escape1 = escape1
	this.escape2 = escape2
	this.logHashSize = logHashSize
	this.dictSize = dictSize
	this.dict = newTextDictionary(seed, logHashSize, dictSize, escape1, escape2)
	return this, nil
}

// computeTextStats rejects blocks with few letters and delimiters and
// blocks starting with a known binary format header.
func computeTextStats(block []byte) bool {
	count := len(block)

	if count < _TC_MIN_STATS_SIZE {
		return true
	}

	if internal.GetMagicType(block) != internal.NO_MAGIC {
		return false
	}

	nbText := 0
	nbDelim := 0

	for _, c := range block {
		if isText(c) {
			nbText++
		} else if isDelimiter(c) {
			nbDelim++
		}
	}

	return nbText >= count/4 && nbText+nbDelim >= count/2
}

// refLength returns the size of the encoded reference to a word index
func refLength(idx int) int {
	if idx < _TC_COMPACT_INDEXES {
		return 2
	}

	return 3
}

func (this *TextCodec) emitReference(dst []byte, idx int, flipCase bool) int {
	flip := byte(0)

	if flipCase {
		flip = _TC_MASK_FLIP_CASE
	}

	if idx < _TC_COMPACT_INDEXES {
		dst[0] = this.escape1
		dst[1] = flip | byte(idx)
		return 2
	}

	dst[0] = this.escape2
	dst[1] = flip | byte(idx>>8)
	dst[2] = byte(idx)
	return 3
}

// Forward replaces known words with references and grows the dictionary with
// new words. Fails if the output is not smaller than the input.
// Returns number of bytes read, number of bytes written and possibly an error.
func (this *TextCodec) Forward(src, dst []byte, length uint) (uint, uint, error) {
	if length == 0 {
		return 0, 0, nil
	}

	if kzpipe.SameByteSlices(src, dst) {
		return 0, 0, fmt.Errorf("%w: input and output buffers cannot be equal", kzpipe.ErrInvalidArgument)
	}

	if uint(len(src)) < length {
		return 0, 0, fmt.Errorf("%w: block length %d exceeds input buffer size %d", kzpipe.ErrInvalidArgument, length, len(src))
	}

	count := int(length)

	if !computeTextStats(src[0:count]) {
		return 0, 0, errNotText
	}

	// Output must be strictly smaller than the input
	limit := count - 1

	if limit > len(dst) {
		limit = len(dst)
	}

	this.dict.reset()
	srcIdx := 0
	dstIdx := 0

	for srcIdx < count {
		c := src[srcIdx]

		if c == this.escape1 || c == this.escape2 {
			if dstIdx+2 > limit {
				return uint(srcIdx), uint(dstIdx), this.noGainError(count)
			}

			idx := 0

			if c == this.escape2 {
				idx = 1
			}

			dstIdx += this.emitReference(dst[dstIdx:], idx, false)
			srcIdx++
			continue
		}

		if !isText(c) {
			if dstIdx >= limit {
				return uint(srcIdx), uint(dstIdx), this.noGainError(count)
			}

			dst[dstIdx] = c
			dstIdx++
			srcIdx++
			continue
		}

		start := srcIdx

		for srcIdx < count && isText(src[srcIdx]) {
			srcIdx++
		}

		n := srcIdx - start

		if n >= _TC_MIN_WORD_LENGTH && n <= _TC_MAX_WORD_LENGTH {
			h1, h2 := hashWordPair(src[start:srcIdx])

			if e, flipped := this.dict.lookup(src, start, n, h1, h2); e != nil {
				if refLength(e.idx) < n {
					if dstIdx+refLength(e.idx) > limit {
						return uint(start), uint(dstIdx), this.noGainError(count)
					}

					dstIdx += this.emitReference(dst[dstIdx:], e.idx, flipped)
					continue
				}
			} else {
				this.dict.add(src, start, n, h1)
			}
		}

		if dstIdx+n > limit {
			return uint(start), uint(dstIdx), this.noGainError(count)
		}

		dstIdx += copy(dst[dstIdx:], src[start:srcIdx])
	}

	return uint(srcIdx), uint(dstIdx), nil
}

func (this *TextCodec) noGainError(count int) error {
	return fmt.Errorf("Text transform skipped: output size would reach input size (%d bytes)", count)
}

// Inverse expands the references and replays the dictionary insertions
// driven by the literal words.
// Returns number of bytes read, number of bytes written and possibly an error.
func (this *TextCodec) Inverse(src, dst []byte, length uint) (uint, uint, error) {
	if length == 0 {
		return 0, 0, nil
	}

	if kzpipe.SameByteSlices(src, dst) {
		return 0, 0, fmt.Errorf("%w: input and output buffers cannot be equal", kzpipe.ErrInvalidArgument)
	}

	if uint(len(src)) < length {
		return 0, 0, fmt.Errorf("%w: block length %d exceeds input buffer size %d", kzpipe.ErrInvalidArgument, length, len(src))
	}

	this.dict.reset()
	count := int(length)
	srcIdx := 0
	dstIdx := 0

	for srcIdx < count {
		c := src[srcIdx]

		if c == this.escape1 || c == this.escape2 {
			refLen := 2

			if c == this.escape2 {
				refLen = 3
			}

			if srcIdx+refLen > count {
				return uint(srcIdx), uint(dstIdx), fmt.Errorf("%w: truncated word reference at offset %d", kzpipe.ErrCorruptedData, srcIdx)
			}

			flipCase := src[srcIdx+1]&_TC_MASK_FLIP_CASE != 0
			idx := int(src[srcIdx+1] &^ _TC_MASK_FLIP_CASE)

			if refLen == 3 {
				idx = idx<<8 | int(src[srcIdx+2])
			}

			srcIdx += refLen
			e := this.dict.get(idx)

			if e == nil {
				return uint(srcIdx), uint(dstIdx), fmt.Errorf("%w: reference to unknown word index %d (dictionary holds %d words)",
					kzpipe.ErrCorruptedData, idx, this.dict.words())
			}

			if dstIdx+e.length > len(dst) {
				return uint(srcIdx), uint(dstIdx), fmt.Errorf("%w: output buffer too small", kzpipe.ErrCorruptedData)
			}

			copy(dst[dstIdx:], e.word())

			if flipCase {
				if !isText(dst[dstIdx]) {
					return uint(srcIdx), uint(dstIdx), fmt.Errorf("%w: case flip on reserved word index %d", kzpipe.ErrCorruptedData, idx)
				}

				dst[dstIdx] ^= 0x20
			}

			dstIdx += e.length
			continue
		}

		if !isText(c) {
			if dstIdx >= len(dst) {
				return uint(srcIdx), uint(dstIdx), fmt.Errorf("%w: output buffer too small", kzpipe.ErrCorruptedData)
			}

			dst[dstIdx] = c
			dstIdx++
			srcIdx++
			continue
		}

		start := srcIdx

		for srcIdx < count && isText(src[srcIdx]) {
			srcIdx++
		}

		n := srcIdx - start

		if dstIdx+n > len(dst) {
			return uint(start), uint(dstIdx), fmt.Errorf("%w: output buffer too small", kzpipe.ErrCorruptedData)
		}

		copy(dst[dstIdx:], src[start:srcIdx])

		// Entries point to the output so that they outlive the input.
		// Same insertion rule as forward: only words missed by both lookups.
		if n >= _TC_MIN_WORD_LENGTH && n <= _TC_MAX_WORD_LENGTH {
			h1, h2 := hashWordPair(src[start:srcIdx])

			if e, _ := this.dict.lookup(dst, dstIdx, n, h1, h2); e == nil {
				this.dict.add(dst, dstIdx, n, h1)
			}
		}

		dstIdx += n
	}

	return uint(srcIdx), uint(dstIdx), nil
}

// MaxEncodedLen returns the max size required for the encoding output buffer.
// The transform never expands data.
func (this *TextCodec) MaxEncodedLen(srcLen int) int {
	return srcLen
}

// MaxDecodedLen returns the max size of the inverse output: a 2 byte
// reference expands to at most _TC_MAX_WORD_LENGTH bytes.
func (this *TextCodec) MaxDecodedLen(srcLen int) int {
	return srcLen * ((_TC_MAX_WORD_LENGTH + 1) / 2)
}
