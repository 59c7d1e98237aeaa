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

	kzpipe "github.com/kzpipe/kzpipe"
)

// Adaptive order 0 range coder. Carryless range coder derived from the one
// by Dmitry Subbotin: 32 bit low/range, bytes are emitted when the top byte
// of the interval is settled or when the range gets too small.
// Symbol frequencies start uniform and are incremented after each symbol,
// then halved when their sum would exceed the bottom value.

const (
	_RC_TOP       = uint32(1 << 24)
	_RC_BOTTOM    = uint32(1 << 16)
	_RC_INCREMENT = 24
	_RC_MAX_TOTAL = int(_RC_BOTTOM)
)

type rangeModel struct {
	freqs [256]int
	total int
}

func (this *rangeModel) reset() {
	for i := range this.freqs {
		this.freqs[i] = 1
	}

	this.total = len(this.freqs)
}

func (this *rangeModel) update(symbol byte) {
	if this.total+_RC_INCREMENT > _RC_MAX_TOTAL {
		this.total = 0

		for i := range this.freqs {
			this.freqs[i] = (this.freqs[i] + 1) >> 1
			this.total += this.freqs[i]
		}
	}

	this.freqs[symbol] += _RC_INCREMENT
	this.total += _RC_INCREMENT
}

// RangeEncoder entropy encoder based on an adaptive range coder
type RangeEncoder struct {
	bitstream kzpipe.OutputBitStream
	model     rangeModel
	low       uint32
	rng       uint32
}

// NewRangeEncoder creates a new instance of RangeEncoder
func NewRangeEncoder(bs kzpipe.OutputBitStream) (*RangeEncoder, error) {
	if bs == nil {
		return nil, errNullBitStream("Range codec")
	}

	this := &RangeEncoder{}
	this.bitstream = bs
	return this, nil
}

// Write encodes the data provided into the bitstream. Return the number of bytes
// consumed from the block. The statistics are reset for each call.
func (this *RangeEncoder) Write(block []byte) (int, error) {
	if len(block) == 0 {
		return 0, nil
	}

	this.model.reset()
	this.low = 0
	this.rng = 0xFFFFFFFF

	for _, c := range block {
		this.encodeByte(c)
	}

	// Flush the 4 bytes of low
	for i := 0; i < 4; i++ {
		this.bitstream.WriteBits(uint64(this.low>>24), 8)
		this.low <<= 8
	}

	return len(block), nil
}

func (this *RangeEncoder) encodeByte(c byte) {
	cumFreq := 0

	for _, f := range this.model.freqs[0:c] {
		cumFreq += f
	}

	this.rng /= uint32(this.model.total)
	this.low += uint32(cumFreq) * this.rng
	this.rng *= uint32(this.model.freqs[c])

	for {
		if (this.low ^ (this.low + this.rng)) >= _RC_TOP {
			if this.rng >= _RC_BOTTOM {
				break
			}

			this.rng = -this.low & (_RC_BOTTOM - 1)
		}

		this.bitstream.WriteBits(uint64(this.low>>24), 8)
		this.low <<= 8
		this.rng <<= 8
	}

	this.model.update(c)
}

// BitStream returns the underlying bitstream
func (this *RangeEncoder) BitStream() kzpipe.OutputBitStream {
	return this.bitstream
}

// Dispose this implementation does nothing
func (this *RangeEncoder) Dispose() {
}

// RangeDecoder entropy decoder matching RangeEncoder
type RangeDecoder struct {
	bitstream kzpipe.InputBitStream
	model     rangeModel
	low       uint32
	rng       uint32
	code      uint32
}

// NewRangeDecoder creates a new instance of RangeDecoder
func NewRangeDecoder(bs kzpipe.InputBitStream) (*RangeDecoder, error) {
	if bs == nil {
		return nil, errNullBitStream("Range codec")
	}

	this := &RangeDecoder{}
	this.bitstream = bs
	return this, nil
}

// Read decodes data from the bitstream and return it in the provided buffer.
// Return the number of bytes decoded
func (this *RangeDecoder) Read(block []byte) (int, error) {
	if len(block) == 0 {
		return 0, nil
	}

	this.model.reset()
	this.low = 0
	this.rng = 0xFFFFFFFF
	this.code = uint32(this.bitstream.ReadBits(32))

	for i := range block {
		c, err := this.decodeByte()

		if err != nil {
			return i, err
		}

		block[i] = c
	}

	return len(block), nil
}

func (this *RangeDecoder) decodeByte() (byte, error) {
	this.rng /= uint32(this.model.total)
	value := int((this.code - this.low) / this.rng)

	if value >= this.model.total {
		return 0, fmt.Errorf("%w: Range codec: invalid frequency %d (total is %d)", kzpipe.ErrCorruptedData, value, this.model.total)
	}

	c := 0
	cumFreq := 0

	for cumFreq+this.model.freqs[c] <= value {
		cumFreq += this.model.freqs[c]
		c++
	}

	this.low += uint32(cumFreq) * this.rng
	this.rng *= uint32(this.model.freqs[c])

	for {
		if (this.low ^ (this.low + this.rng)) >= _RC_TOP {
			if this.rng >= _RC_BOTTOM {
				break
			}

			this.rng = -this.low & (_RC_BOTTOM - 1)
		}

		this.code = (this.code << 8) | uint32(this.bitstream.ReadBits(8))
		this.low <<= 8
		this.rng <<= 8
	}

	this.model.update(byte(c))
	return byte(c), nil
}

// BitStream returns the underlying bitstream
func (this *RangeDecoder) BitStream() kzpipe.InputBitStream {
	return this.bitstream
}

// Dispose this implementation does nothing
func (this *RangeDecoder) Dispose() {
}
