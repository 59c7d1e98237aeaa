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
	"github.com/pierrec/lz4/v4"
)

// LZ4Codec wraps the LZ4 block format (no frame, no checksum).
// The decoded size is not stored: the inverse needs an output buffer large
// enough for the original block.
type LZ4Codec struct {
	compressor lz4.Compressor
}

// NewLZ4Codec creates a new instance of LZ4Codec
func NewLZ4Codec() (*LZ4Codec, error) {
	return &LZ4Codec{}, nil
}

// Forward applies the function to the src and writes the result
// to the destination. Fails if the data does not shrink.
// Returns number of bytes read, number of bytes written and possibly an error.
func (this *LZ4Codec) Forward(src, dst []byte, length uint) (uint, uint, error) {
	if length == 0 {
		return 0, 0, nil
	}

	if kzpipe.SameByteSlices(src, dst) {
		return 0, 0, fmt.Errorf("%w: input and output buffers cannot be equal", kzpipe.ErrInvalidArgument)
	}

	if uint(len(src)) < length {
		return 0, 0, fmt.Errorf("%w: block length %d exceeds input buffer size %d", kzpipe.ErrInvalidArgument, length, len(src))
	}

	n, err := this.compressor.CompressBlock(src[0:length], dst)

	if err != nil {
		return 0, 0, fmt.Errorf("LZ4 forward transform failed: %w", err)
	}

	// n == 0 means incompressible
	if n == 0 || uint(n) >= length {
		return 0, 0, fmt.Errorf("LZ4 forward transform skipped: no gain")
	}

	return length, uint(n), nil
}

// Inverse applies the reverse function to the src and writes the result
// to the destination. Returns number of bytes read, number of bytes
// written and possibly an error.
func (this *LZ4Codec) Inverse(src, dst []byte, length uint) (uint, uint, error) {
	if length == 0 {
		return 0, 0, nil
	}

	if kzpipe.SameByteSlices(src, dst) {
		return 0, 0, fmt.Errorf("%w: input and output buffers cannot be equal", kzpipe.ErrInvalidArgument)
	}

	if uint(len(src)) < length {
		return 0, 0, fmt.Errorf("%w: block length %d exceeds input buffer size %d", kzpipe.ErrInvalidArgument, length, len(src))
	}

	n, err := lz4.UncompressBlock(src[0:length], dst)

	if err != nil {
		return 0, 0, fmt.Errorf("%w: LZ4 inverse transform failed: %v", kzpipe.ErrCorruptedData, err)
	}

	return length, uint(n), nil
}

// MaxEncodedLen returns the max size required for the encoding output buffer
func (this LZ4Codec) MaxEncodedLen(srcLen int) int {
	return lz4.CompressBlockBound(srcLen)
}

// MaxDecodedLen returns the max size of the inverse output. Each extra
// match length byte adds at most 255 bytes.
func (this LZ4Codec) MaxDecodedLen(srcLen int) int {
	return 255*srcLen + 16
}
