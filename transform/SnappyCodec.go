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

	"github.com/golang/snappy"
	kzpipe "github.com/kzpipe/kzpipe"
)

// SnappyCodec wraps the Snappy block format. The encoded block starts with
// the varint decoded length.
type SnappyCodec struct {
}

// NewSnappyCodec creates a new instance of SnappyCodec
func NewSnappyCodec() (*SnappyCodec, error) {
	return &SnappyCodec{}, nil
}

// Forward applies the function to the src and writes the result
// to the destination. Fails if the data does not shrink.
// Returns number of bytes read, number of bytes written and possibly an error.
func (this *SnappyCodec) Forward(src, dst []byte, length uint) (uint, uint, error) {
	if length == 0 {
		return 0, 0, nil
	}

	if kzpipe.SameByteSlices(src, dst) {
		return 0, 0, fmt.Errorf("%w: input and output buffers cannot be equal", kzpipe.ErrInvalidArgument)
	}

	if uint(len(src)) < length {
		return 0, 0, fmt.Errorf("%w: block length %d exceeds input buffer size %d", kzpipe.ErrInvalidArgument, length, len(src))
	}

	if n := snappy.MaxEncodedLen(int(length)); n < 0 || len(dst) < n {
		return 0, 0, fmt.Errorf("Snappy forward transform skipped: output buffer too small (%d < %d)", len(dst), n)
	}

	// Encode writes to dst since dst is large enough
	res := snappy.Encode(dst, src[0:length])

	if uint(len(res)) >= length {
		return 0, 0, fmt.Errorf("Snappy forward transform skipped: no gain")
	}

	return length, uint(len(res)), nil
}

// Inverse applies the reverse function to the src and writes the result
// to the destination. Returns number of bytes read, number of bytes
// written and possibly an error.
func (this *SnappyCodec) Inverse(src, dst []byte, length uint) (uint, uint, error) {
	if length == 0 {
		return 0, 0, nil
	}

	if kzpipe.SameByteSlices(src, dst) {
		return 0, 0, fmt.Errorf("%w: input and output buffers cannot be equal", kzpipe.ErrInvalidArgument)
	}

	if uint(len(src)) < length {
		return 0, 0, fmt.Errorf("%w: block length %d exceeds input buffer size %d", kzpipe.ErrInvalidArgument, length, len(src))
	}

	n, err := snappy.DecodedLen(src[0:length])

	if err != nil {
		return 0, 0, fmt.Errorf("%w: Snappy inverse transform failed: %v", kzpipe.ErrCorruptedData, err)
	}

	if n > len(dst) {
		return 0, 0, fmt.Errorf("%w: Snappy inverse transform: output buffer too small (%d < %d)", kzpipe.ErrCorruptedData, len(dst), n)
	}

	res, err := snappy.Decode(dst, src[0:length])

	if err != nil {
		return 0, 0, fmt.Errorf("%w: Snappy inverse transform failed: %v", kzpipe.ErrCorruptedData, err)
	}

	return length, uint(len(res)), nil
}

// MaxEncodedLen returns the max size required for the encoding output buffer
func (this SnappyCodec) MaxEncodedLen(srcLen int) int {
	return snappy.MaxEncodedLen(srcLen)
}

// MaxDecodedLen returns the max size of the inverse output. The best
// element is a 3 byte copy of 64 bytes.
func (this SnappyCodec) MaxDecodedLen(srcLen int) int {
	return 22 * srcLen
}
