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
	"encoding/binary"
	"fmt"

	kzpipe "github.com/kzpipe/kzpipe"
)

const (
	_BINARY_ENTROPY_TOP       = uint64(0x00FFFFFFFFFFFFFF)
	_MASK_0_56                = uint64(0x00FFFFFFFFFFFFFF)
	_MASK_0_24                = uint64(0x0000000000FFFFFF)
	_MASK_0_32                = uint64(0x00000000FFFFFFFF)
	_BINARY_ENTROPY_MAX_BLOCK = kzpipe.MAX_BLOCK_SIZE
	_BINARY_ENTROPY_MAX_CHUNK = 1 << 26
	_BINARY_ENTROPY_MIN_CHUNK = 64
)

// binaryChunkLength returns the number of bytes coded per chunk for a block
// of 'count' bytes. Big blocks are split to bound the size of the buffer.
func binaryChunkLength(count int) int {
	if count >= _BINARY_ENTROPY_MAX_CHUNK {
		if count < 8*_BINARY_ENTROPY_MAX_CHUNK {
			return count >> 3
		}

		return count >> 4
	}

	if count < _BINARY_ENTROPY_MIN_CHUNK {
		return _BINARY_ENTROPY_MIN_CHUNK
	}

	return count
}

// BinaryEntropyEncoder entropy encoder based on arithmetic coding and
// using an external probability predictor.
// Each chunk is coded with a fresh interval: varint(size of the coded
// bytes), the coded bytes then the 56 bits left in the interval. The
// predictor keeps learning across chunks and blocks.
type BinaryEntropyEncoder struct {
	predictor kzpipe.Predictor
	low       uint64
	high      uint64
	bitstream kzpipe.OutputBitStream
	buffer    []byte
}

// NewBinaryEntropyEncoder creates an instance of BinaryEntropyEncoder using the
// given predictor to predict the probability of the next bit to be one. It outputs
// to the given OutputBitstream
func NewBinaryEntropyEncoder(bs kzpipe.OutputBitStream, predictor kzpipe.Predictor) (*BinaryEntropyEncoder, error) {
	if bs == nil {
		return nil, errNullBitStream("Binary entropy codec")
	}

	if predictor == nil {
		return nil, fmt.Errorf("%w: Binary entropy codec: Invalid null predictor parameter", kzpipe.ErrInvalidArgument)
	}

	this := &BinaryEntropyEncoder{}
	this.predictor = predictor
	this.bitstream = bs
	this.buffer = make([]byte, 0, 256)
	return this, nil
}

// EncodeByte encodes the given value into the bitstream bit by bit,
// most significant bit first
func (this *BinaryEntropyEncoder) EncodeByte(val byte) {
	for shift := 7; shift >= 0; shift-- {
		this.EncodeBit((val>>uint(shift))&1, this.predictor.Get())
	}
}

// EncodeBit encodes one bit using arithmetic coding and the probability
// 'pred' (12 bits) of the bit being 1.
func (this *BinaryEntropyEncoder) EncodeBit(bit byte, pred int) {
	// Written in a way to maximize accuracy of multiplication/division
	split := (((this.high - this.low) >> 4) * uint64(pred)) >> 8

	if bit == 0 {
		this.low += split + 1
	} else {
		this.high = this.low + split
	}

	this.predictor.Update(bit)

	// Emit the settled leading 32 bits
	for (this.low ^ this.high) < (1 << 24) {
		this.flush()
	}
}

func (this *BinaryEntropyEncoder) flush() {
	this.buffer = binary.BigEndian.AppendUint32(this.buffer, uint32(this.high>>24))
	this.low <<= 32
	this.high = (this.high << 32) | _MASK_0_32
}

// Write encodes the data provided into the bitstream. Return the number of bytes
// consumed from the block.
func (this *BinaryEntropyEncoder) Write(block []byte) (int, error) {
	count := len(block)

	if count > _BINARY_ENTROPY_MAX_BLOCK {
		return -1, fmt.Errorf("%w: Binary entropy codec: Invalid block size parameter (max is %d)", kzpipe.ErrInvalidArgument, _BINARY_ENTROPY_MAX_BLOCK)
	}

	length := binaryChunkLength(count)

	for startChunk := 0; startChunk < count; startChunk += length {
		endChunk := min(startChunk+length, count)
		this.low = 0
		this.high = _BINARY_ENTROPY_TOP
		this.buffer = this.buffer[:0]

		for _, val := range block[startChunk:endChunk] {
			this.EncodeByte(val)
		}

		WriteVarInt(this.bitstream, uint32(len(this.buffer)))

		if len(this.buffer) > 0 {
			this.bitstream.WriteArray(this.buffer, uint(8*len(this.buffer)))
		}

		this.bitstream.WriteBits(this.low|_MASK_0_24, 56)
	}

	return count, nil
}

// BitStream returns the underlying bitstream
func (this *BinaryEntropyEncoder) BitStream() kzpipe.OutputBitStream {
	return this.bitstream
}

// Dispose this implementation does nothing, every chunk is complete
// once written.
func (this *BinaryEntropyEncoder) Dispose() {
}

// BinaryEntropyDecoder entropy decoder based on arithmetic coding and
// using an external probability predictor.
type BinaryEntropyDecoder struct {
	predictor kzpipe.Predictor
	low       uint64
	high      uint64
	current   uint64
	bitstream kzpipe.InputBitStream
	buffer    []byte
	index     int
	overrun   bool
}

// NewBinaryEntropyDecoder creates an instance of BinaryEntropyDecoder using the
// given predictor to predict the probability of the next bit to be one. It reads
// from the given InputBitstream
func NewBinaryEntropyDecoder(bs kzpipe.InputBitStream, predictor kzpipe.Predictor) (*BinaryEntropyDecoder, error) {
	if bs == nil {
		return nil, errNullBitStream("Binary entropy codec")
	}

	if predictor == nil {
		return nil, fmt.Errorf("%w: Binary entropy codec: Invalid null predictor parameter", kzpipe.ErrInvalidArgument)
	}

	// Defer stream reading. We are creating the object, we should not do any I/O
	this := &BinaryEntropyDecoder{}
	this.predictor = predictor
	this.bitstream = bs
	this.buffer = make([]byte, 0)
	return this, nil
}

// DecodeByte decodes one byte from the bitstream bit by bit
func (this *BinaryEntropyDecoder) DecodeByte() byte {
	res := byte(0)

	for i := 0; i < 8; i++ {
		res = (res << 1) | this.DecodeBit(this.predictor.Get())
	}

	return res
}

// DecodeBit decodes one bit using arithmetic coding and the probability
// 'pred' (12 bits) of the bit being 1.
func (this *BinaryEntropyDecoder) DecodeBit(pred int) byte {
	split := ((((this.high - this.low) >> 4) * uint64(pred)) >> 8) + this.low
	var bit byte

	if split >= this.current {
		bit = 1
		this.high = split
	} else {
		this.low = -^split
	}

	this.predictor.Update(bit)

	for (this.low ^ this.high) < (1 << 24) {
		this.read()
	}

	return bit
}

func (this *BinaryEntropyDecoder) read() {
	this.low = (this.low << 32) & _MASK_0_56
	this.high = ((this.high << 32) | _MASK_0_32) & _MASK_0_56
	val := uint64(0)

	if this.index+4 <= len(this.buffer) {
		val = uint64(binary.BigEndian.Uint32(this.buffer[this.index:]))
	} else {
		this.overrun = true
	}

	this.current = ((this.current << 32) | val) & _MASK_0_56
	this.index += 4
}

// Read decodes data from the bitstream and return it in the provided buffer.
// Return the number of bytes decoded.
func (this *BinaryEntropyDecoder) Read(block []byte) (int, error) {
	count := len(block)

	if count > _BINARY_ENTROPY_MAX_BLOCK {
		return -1, fmt.Errorf("%w: Binary entropy codec: Invalid block size parameter (max is %d)", kzpipe.ErrInvalidArgument, _BINARY_ENTROPY_MAX_BLOCK)
	}

	length := binaryChunkLength(count)

	for startChunk := 0; startChunk < count; startChunk += length {
		endChunk := min(startChunk+length, count)
		szBytes := int(ReadVarInt(this.bitstream))

		// A coded bit never costs much more than 12 bits
		if szBytes&3 != 0 || szBytes > 16*(endChunk-startChunk)+64 {
			return startChunk, fmt.Errorf("%w: Binary entropy codec: invalid chunk size %d", kzpipe.ErrCorruptedData, szBytes)
		}

		this.low = 0
		this.high = _BINARY_ENTROPY_TOP
		this.current = this.bitstream.ReadBits(56)

		if cap(this.buffer) < szBytes {
			this.buffer = make([]byte, szBytes)
		}

		this.buffer = this.buffer[:szBytes]

		if szBytes != 0 {
			this.bitstream.ReadArray(this.buffer, uint(8*szBytes))
		}

		this.index = 0
		this.overrun = false

		for i := startChunk; i < endChunk; i++ {
			block[i] = this.DecodeByte()
		}

		if this.overrun {
			return startChunk, fmt.Errorf("%w: Binary entropy codec: chunk shorter than expected", kzpipe.ErrCorruptedData)
		}
	}

	return count, nil
}

// BitStream returns the underlying bitstream
func (this *BinaryEntropyDecoder) BitStream() kzpipe.InputBitStream {
	return this.bitstream
}

// Dispose this implementation does nothing
func (this *BinaryEntropyDecoder) Dispose() {
}
