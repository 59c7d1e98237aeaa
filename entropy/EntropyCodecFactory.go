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
package entropy

import (
	"fmt"
	"strings"

	kzpipe "github.com/kzpipe/kzpipe"
)

const (
	NONE_TYPE    = uint32(0) // No compression
	HUFFMAN_TYPE = uint32(1) // Huffman
	FPAQ_TYPE    = uint32(2) // Fast PAQ (order 0)
	PAQ_TYPE     = uint32(3) // PAQ (order 0 with APM)
	RANGE_TYPE   = uint32(4) // Range
	ANS0_TYPE    = uint32(5) // Asymmetric Numerical System order 0
	CM_TYPE      = uint32(6) // Context Model
	TPAQ_TYPE    = uint32(7) // Tangelo PAQ
	ANS1_TYPE    = uint32(8) // Asymmetric Numerical System order 1

	_TPAQ_SMALL_BLOCK  = 1 << 20
	_TPAQ_MEDIUM_BLOCK = 1 << 26

	// A coded bit costs at least log2(4096/4095) bits, a symbol of the
	// range coder at least log2(65536/65281) bits.
	_ADAPTIVE_MAX_RATIO = 4096
)

var _ENTROPY_NAMES = [...]string{
	NONE_TYPE:    "NONE",
	HUFFMAN_TYPE: "HUFFMAN",
	FPAQ_TYPE:    "FPAQ",
	PAQ_TYPE:     "PAQ",
	RANGE_TYPE:   "RANGE",
	ANS0_TYPE:    "ANS0",
	CM_TYPE:      "CM",
	TPAQ_TYPE:    "TPAQ",
	ANS1_TYPE:    "ANS1",
}

// NewEntropyEncoder creates a new entropy encoder using the provided type and bitstream
func NewEntropyEncoder(obs kzpipe.OutputBitStream, ctx map[string]any,
	entropyType uint32) (kzpipe.EntropyEncoder, error) {
	if obs == nil {
		return nil, errNullBitStream("Entropy codec factory")
	}

	var res kzpipe.EntropyEncoder
	var err error

	switch entropyType {

	case NONE_TYPE:
		res, err = NewNullEntropyEncoder(obs)

	case HUFFMAN_TYPE:
		res, err = NewHuffmanEncoder(obs)

	case ANS0_TYPE:
		res, err = NewANSRangeEncoder(obs, 0)

	case ANS1_TYPE:
		res, err = NewANSRangeEncoder(obs, 1)

	case RANGE_TYPE:
		res, err = NewRangeEncoder(obs)

	case FPAQ_TYPE, PAQ_TYPE, CM_TYPE, TPAQ_TYPE:
		var predictor kzpipe.Predictor

		if predictor, err = newPredictor(ctx, entropyType); err == nil {
			res, err = NewBinaryEntropyEncoder(obs, predictor)
		}

	default:
		return nil, fmt.Errorf("%w: unsupported entropy codec type: '%d'", kzpipe.ErrInvalidConfig, entropyType)
	}

	if err != nil {
		return nil, err
	}

	return res, nil
}

// NewEntropyDecoder creates a new entropy decoder using the provided type and bitstream
func NewEntropyDecoder(ibs kzpipe.InputBitStream, ctx map[string]any,
	entropyType uint32) (kzpipe.EntropyDecoder, error) {
	if ibs == nil {
		return nil, errNullBitStream("Entropy codec factory")
	}

	var res kzpipe.EntropyDecoder
	var err error

	switch entropyType {

	case NONE_TYPE:
		res, err = NewNullEntropyDecoder(ibs)

	case HUFFMAN_TYPE:
		res, err = NewHuffmanDecoder(ibs)

	case ANS0_TYPE:
		res, err = NewANSRangeDecoder(ibs, 0)

	case ANS1_TYPE:
		res, err = NewANSRangeDecoder(ibs, 1)

	case RANGE_TYPE:
		res, err = NewRangeDecoder(ibs)

	case FPAQ_TYPE, PAQ_TYPE, CM_TYPE, TPAQ_TYPE:
		var predictor kzpipe.Predictor

		if predictor, err = newPredictor(ctx, entropyType); err == nil {
			res, err = NewBinaryEntropyDecoder(ibs, predictor)
		}

	default:
		return nil, fmt.Errorf("%w: unsupported entropy codec type: '%d'", kzpipe.ErrInvalidConfig, entropyType)
	}

	if err != nil {
		return nil, err
	}

	return res, nil
}

func newPredictor(ctx map[string]any, entropyType uint32) (kzpipe.Predictor, error) {
	switch entropyType {
	case FPAQ_TYPE:
		return NewFPAQPredictor()

	case PAQ_TYPE:
		return NewPAQPredictor()

	case CM_TYPE:
		return NewCMPredictor()

	case TPAQ_TYPE:
		logHash, err := TPAQLogHash(ctx)

		if err != nil {
			return nil, err
		}

		return NewTPAQPredictor(logHash)
	}

	return nil, fmt.Errorf("%w: no predictor for entropy codec type: '%d'", kzpipe.ErrInvalidConfig, entropyType)
}

// TPAQLogHash returns the log of the TPAQ hash table size for the block
// size found in the context: 22 under 1 MiB, 23 under 64 MiB, else 24.
// A missing block size selects the smallest table.
func TPAQLogHash(ctx map[string]any) (uint, error) {
	val, containsKey := ctx["blockSize"]

	if !containsKey {
		return 22, nil
	}

	var blockSize uint64

	switch v := val.(type) {
	case uint:
		blockSize = uint64(v)
	case uint32:
		blockSize = uint64(v)
	case uint64:
		blockSize = v
	case int:
		if v < 0 {
			return 0, fmt.Errorf("%w: invalid block size: %d", kzpipe.ErrInvalidConfig, v)
		}

		blockSize = uint64(v)
	default:
		return 0, fmt.Errorf("%w: invalid block size: %v", kzpipe.ErrInvalidConfig, val)
	}

	if blockSize < _TPAQ_SMALL_BLOCK {
		return 22, nil
	}

	if blockSize < _TPAQ_MEDIUM_BLOCK {
		return 23, nil
	}

	return 24, nil
}

// MaxDecodedLen returns an upper bound of the number of bytes a decoder of
// the given type can produce from encodedLen bytes of valid input.
func MaxDecodedLen(entropyType uint32, encodedLen int) int {
	var res int

	switch entropyType {
	case NONE_TYPE:
		res = encodedLen

	case HUFFMAN_TYPE, ANS0_TYPE, ANS1_TYPE:
		// Every chunk takes at least 2 bytes (run length chunk)
		res = (encodedLen/2 + 1) * _ENTROPY_CHUNK_SIZE

	default:
		res = encodedLen * _ADAPTIVE_MAX_RATIO
	}

	return min(res, kzpipe.MAX_BLOCK_SIZE)
}

// GetName returns the name of the entropy codec given its type
func GetName(entropyType uint32) (string, error) {
	if entropyType >= uint32(len(_ENTROPY_NAMES)) {
		return "", fmt.Errorf("%w: unsupported entropy codec type: '%d'", kzpipe.ErrInvalidConfig, entropyType)
	}

	return _ENTROPY_NAMES[entropyType], nil
}

// GetType returns the type of the entropy codec given its name (case insensitive)
func GetType(entropyName string) (uint32, error) {
	name := strings.ToUpper(entropyName)

	for i, n := range _ENTROPY_NAMES {
		if n == name {
			return uint32(i), nil
		}
	}

	return 0, fmt.Errorf("%w: unsupported entropy codec type: '%v'", kzpipe.ErrInvalidConfig, entropyName)
}
