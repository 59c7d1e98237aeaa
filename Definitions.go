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

// Package kzpipe defines the top level interfaces of the block pipeline:
// byte transforms applied before entropy coding, the bitstreams the
// entropy coders write to and read from, and the coders themselves.
//
// The implementations live in sub-packages: transform (transform chain,
// text codec), entropy (coder registry and coders), bitstream and block
// (one block through the whole pipeline).
package kzpipe

import (
	"errors"
)

const (
	ERR_MISSING_PARAM     = 1
	ERR_BLOCK_SIZE        = 2
	ERR_INVALID_CODEC     = 3
	ERR_CREATE_BITSTREAM  = 9
	ERR_READ_FILE         = 11
	ERR_WRITE_FILE        = 12
	ERR_PROCESS_BLOCK     = 13
	ERR_CREATE_CODEC      = 14
	ERR_INVALID_FILE      = 15
	ERR_INVALID_PARAM     = 18
	ERR_CRC_CHECK         = 19
	ERR_UNKNOWN           = 127
	TRANSFORM_SLOTS       = 4
	TRANSFORM_SKIP_MASK   = byte(0x0F)
	MAX_BLOCK_SIZE        = 1 << 30
	DEFAULT_BUFFER_LENGTH = 16384
)

var (
	// ErrInvalidConfig reports bad constructor arguments or an unknown
	// codec type or name.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrInvalidArgument reports nil, aliased or undersized buffers.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrTransformSkipped reports that every configured transform of a
	// sequence failed and the block was copied verbatim.
	ErrTransformSkipped = errors.New("all transforms skipped")

	// ErrCorruptedData reports an inverse transform or a decoder that met
	// data it cannot have produced.
	ErrCorruptedData = errors.New("corrupted data")
)

// ByteTransform is a reversible operation that reads 'length' bytes of the
// source slice and writes the result at the start of the destination slice.
// The result may have a different size.
// Implementations keep no state between blocks that the inverse would need.
type ByteTransform interface {
	// Forward applies the transform to src[0:length] and writes the result
	// to dst. Returns number of bytes read, number of bytes written and
	// possibly an error. An error means the transform did not apply
	// (eg. no gain) and dst must be ignored.
	Forward(src, dst []byte, length uint) (uint, uint, error)

	// Inverse applies the reverse transform to src[0:length] and writes the
	// result to dst. Returns number of bytes read, the position reached in
	// dst and possibly an error.
	Inverse(src, dst []byte, length uint) (uint, uint, error)
}

// ByteFunction is a ByteTransform able to predict the size of its output.
// Transforms that may expand data must implement it.
type ByteFunction interface {
	ByteTransform

	// MaxEncodedLen returns the max size required for the encoding output buffer
	MaxEncodedLen(srcLen int) int
}

// InputBitStream is a bitstream reader
type InputBitStream interface {
	// ReadBit returns the next bit in the bitstream. Panics if closed or EOS is reached.
	ReadBit() int

	// ReadBits reads 'length' (in [1..64]) bits from the bitstream.
	// Returns the bits read as an uint64.
	// Panics if closed or EOS is reached.
	ReadBits(length uint) uint64

	// ReadArray reads 'length' bits from the bitstream and put them in the byte slice.
	// Returns the number of bits read.
	// Panics if closed or EOS is reached.
	ReadArray(bits []byte, length uint) uint

	// Close makes the bitstream unavailable for further reads.
	Close() error

	// Read returns the number of bits read
	Read() uint64

	// HasMoreToRead returns false when the bitstream is closed or the EOS has been reached
	HasMoreToRead() (bool, error)
}

// OutputBitStream is a bitstream writer
type OutputBitStream interface {
	// WriteBit writes the least significant bit of the input integer.
	// Panics if closed or an IO error is received.
	WriteBit(bit int)

	// WriteBits writes the least significant bits of 'bits' to the bitstream.
	// Length is the number of bits to write (in [1..64]).
	// Returns the number of bits written.
	// Panics if closed or an IO error is received.
	WriteBits(bits uint64, length uint) uint

	// WriteArray writes bits out of the byte slice. Length is the number of bits.
	// Returns the number of bits written.
	// Panics if closed or an IO error is received.
	WriteArray(bits []byte, length uint) uint

	// Close makes the bitstream unavailable for further writes.
	Close() error

	// Written returns the number of bits written
	Written() uint64
}

// Predictor predicts the probability of the next bit being 1.
type Predictor interface {
	// Update updates the internal probability model based on the observed bit
	Update(bit byte)

	// Get returns the value representing the probability of the next bit being 1
	// in the [0..4095] range.
	// E.G. 410 represents roughly a probability of 10% for 1
	Get() int
}

// EntropyEncoder entropy encodes data to a bitstream
type EntropyEncoder interface {
	// Write encodes the data provided into the bitstream. Return the number of bytes
	// written to the bitstream
	Write(block []byte) (int, error)

	// BitStream returns the underlying bitstream
	BitStream() OutputBitStream

	// Dispose must be called before getting rid of the entropy encoder
	// Trying to encode after a call to dispose gives undefined behavior
	Dispose()
}

// EntropyDecoder entropy decodes data from a bitstream
type EntropyDecoder interface {
	// Read decodes data from the bitstream and return it in the provided buffer.
	// Return the number of bytes read from the bitstream
	Read(block []byte) (int, error)

	// BitStream returns the underlying bitstream
	BitStream() InputBitStream

	// Dispose must be called before getting rid of the entropy decoder
	// Trying to decode after a call to dispose gives undefined behavior
	Dispose()
}

// SameByteSlices returns true if both slices share the same first element.
// Empty slices are never considered aliased.
func SameByteSlices(b1, b2 []byte) bool {
	if len(b1) == 0 || len(b2) == 0 {
		return false
	}

	return &b1[0] == &b2[0]
}
