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
	"errors"
	"fmt"

	"github.com/klauspost/compress/fse"
	kzpipe "github.com/kzpipe/kzpipe"
)

// Asymmetric Numeral System codec built on tabled ANS (FSE).
// Order 0 codes each chunk of 64 KB with one table. Order 1 splits each chunk
// into one stream per previous byte and codes every stream with its own
// table. The previous byte is 0 at the start of a chunk.

// ANSRangeEncoder entropy encoder based on tANS
type ANSRangeEncoder struct {
	bitstream kzpipe.OutputBitStream
	order     uint
	scratch   *fse.Scratch
	buffer    []byte
}

// NewANSRangeEncoder creates a new instance of ANSRangeEncoder.
// The order must be 0 or 1.
func NewANSRangeEncoder(bs kzpipe.OutputBitStream, order uint) (*ANSRangeEncoder, error) {
	if bs == nil {
		return nil, errNullBitStream("ANS codec")
	}

	if order != 0 && order != 1 {
		return nil, fmt.Errorf("%w: ANS codec: invalid order %d (must be 0 or 1)", kzpipe.ErrInvalidConfig, order)
	}

	this := &ANSRangeEncoder{}
	this.bitstream = bs
	this.order = order
	this.scratch = &fse.Scratch{}
	this.buffer = make([]byte, 0)
	return this, nil
}

func (this *ANSRangeEncoder) compress(in []byte) ([]byte, error) {
	out, err := fse.Compress(in, this.scratch)

	switch {
	case err == nil:
		return out, nil
	case errors.Is(err, fse.ErrIncompressible):
		return nil, errIncompressible
	case errors.Is(err, fse.ErrUseRLE):
		return nil, errUseRLE
	default:
		return nil, fmt.Errorf("ANS codec: %w", err)
	}
}

// Write encodes the data provided into the bitstream. Return the number of bytes
// consumed from the block
func (this *ANSRangeEncoder) Write(block []byte) (int, error) {
	for start := 0; start < len(block); start += _ENTROPY_CHUNK_SIZE {
		end := min(start+_ENTROPY_CHUNK_SIZE, len(block))
		var err error

		if this.order == 0 {
			_, err = writeChunk(this.bitstream, block[start:end], this.compress)
		} else {
			err = this.encodeChunkOrder1(block[start:end])
		}

		if err != nil {
			return start, err
		}
	}

	return len(block), nil
}

// encodeChunkOrder1 writes a 256 bit map of the contexts present, then
// the size and the symbols of each present context.
func (this *ANSRangeEncoder) encodeChunkOrder1(chunk []byte) error {
	var counts [256]int
	prv := byte(0)

	for _, c := range chunk {
		counts[prv]++
		prv = c
	}

	if len(this.buffer) < len(chunk) {
		this.buffer = make([]byte, len(chunk))
	}

	// Gather the symbols of each context in a contiguous stream
	var starts [256]int
	sum := 0

	for i := range counts {
		starts[i] = sum
		sum += counts[i]
	}

	pos := starts
	prv = 0

	for _, c := range chunk {
		this.buffer[pos[prv]] = c
		pos[prv]++
		prv = c
	}

	for i := 0; i < 256; i += 64 {
		bits := uint64(0)

		for j := 0; j < 64; j++ {
			if counts[i+j] != 0 {
				bits |= uint64(1) << uint(63-j)
			}
		}

		this.bitstream.WriteBits(bits, 64)
	}

	for i := range counts {
		if counts[i] == 0 {
			continue
		}

		WriteVarInt(this.bitstream, uint32(counts[i]))

		if _, err := writeChunk(this.bitstream, this.buffer[starts[i]:starts[i]+counts[i]], this.compress); err != nil {
			return err
		}
	}

	return nil
}

// BitStream returns the underlying bitstream
func (this *ANSRangeEncoder) BitStream() kzpipe.OutputBitStream {
	return this.bitstream
}

// Dispose this implementation does nothing
func (this *ANSRangeEncoder) Dispose() {
}

// ANSRangeDecoder entropy decoder matching ANSRangeEncoder
type ANSRangeDecoder struct {
	bitstream kzpipe.InputBitStream
	order     uint
	scratch   *fse.Scratch
	buffer    []byte
	streams   []byte
}

// NewANSRangeDecoder creates a new instance of ANSRangeDecoder.
// The order must be 0 or 1.
func NewANSRangeDecoder(bs kzpipe.InputBitStream, order uint) (*ANSRangeDecoder, error) {
	if bs == nil {
		return nil, errNullBitStream("ANS codec")
	}

	if order != 0 && order != 1 {
		return nil, fmt.Errorf("%w: ANS codec: invalid order %d (must be 0 or 1)", kzpipe.ErrInvalidConfig, order)
	}

	this := &ANSRangeDecoder{}
	this.bitstream = bs
	this.order = order
	this.scratch = &fse.Scratch{}
	this.buffer = make([]byte, 0)
	this.streams = make([]byte, 0)
	return this, nil
}

func (this *ANSRangeDecoder) decompress(in, dst []byte) error {
	// The limit is checked approximately: leave some headroom, the size
	// is verified below.
	this.scratch.DecompressLimit = len(dst) + 1024
	out, err := fse.Decompress(in, this.scratch)

	if err != nil {
		return fmt.Errorf("ANS codec: %v", err)
	}

	if len(out) != len(dst) {
		return fmt.Errorf("ANS codec: decoded %d bytes, expected %d", len(out), len(dst))
	}

	copy(dst, out)
	return nil
}

// Read decodes data from the bitstream and return it in the provided buffer.
// Return the number of bytes decoded
func (this *ANSRangeDecoder) Read(block []byte) (int, error) {
	var err error

	for start := 0; start < len(block); start += _ENTROPY_CHUNK_SIZE {
		end := min(start+_ENTROPY_CHUNK_SIZE, len(block))

		if this.order == 0 {
			this.buffer, err = readChunk(this.bitstream, block[start:end], this.buffer, this.decompress)
		} else {
			err = this.decodeChunkOrder1(block[start:end])
		}

		if err != nil {
			return start, err
		}
	}

	return len(block), nil
}

func (this *ANSRangeDecoder) decodeChunkOrder1(chunk []byte) error {
	var present [4]uint64

	for i := range present {
		present[i] = this.bitstream.ReadBits(64)
	}

	if len(this.streams) < len(chunk) {
		this.streams = make([]byte, len(chunk))
	}

	var starts, counts [256]int
	sum := 0
	var err error

	for i := 0; i < 256; i++ {
		starts[i] = sum

		if present[i>>6]&(uint64(1)<<uint(63-(i&63))) == 0 {
			continue
		}

		n := int(ReadVarInt(this.bitstream))

		if n == 0 || n > len(chunk)-sum {
			return fmt.Errorf("%w: ANS codec: invalid size %d for context %d", kzpipe.ErrCorruptedData, n, i)
		}

		if this.buffer, err = readChunk(this.bitstream, this.streams[sum:sum+n], this.buffer, this.decompress); err != nil {
			return err
		}

		counts[i] = n
		sum += n
	}

	if sum != len(chunk) {
		return fmt.Errorf("%w: ANS codec: context sizes add up to %d, expected %d", kzpipe.ErrCorruptedData, sum, len(chunk))
	}

	prv := byte(0)

	for i := range chunk {
		if counts[prv] == 0 {
			return fmt.Errorf("%w: ANS codec: context %d exhausted", kzpipe.ErrCorruptedData, prv)
		}

		c := this.streams[starts[prv]]
		starts[prv]++
		counts[prv]--
		chunk[i] = c
		prv = c
	}

	return nil
}

// BitStream returns the underlying bitstream
func (this *ANSRangeDecoder) BitStream() kzpipe.InputBitStream {
	return this.bitstream
}

// Dispose this implementation does nothing
func (this *ANSRangeDecoder) Dispose() {
}
