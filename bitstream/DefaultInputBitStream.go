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
package bitstream

import (
	"bufio"
	"errors"
	"fmt"
	"io"

	"github.com/icza/bitio"
)

var errClosedInput = errors.New("Stream closed")

// DefaultInputBitStream is the default implementation of InputBitStream.
// Reading past the end of the stream or from a closed stream panics.
type DefaultInputBitStream struct {
	closed bool
	read   uint64
	br     *bufio.Reader
	bits   *bitio.Reader
}

// NewDefaultInputBitStream creates a bitstream for reading, using the provided stream as
// the underlying I/O object.
func NewDefaultInputBitStream(stream io.Reader, bufferSize uint) (*DefaultInputBitStream, error) {
	if stream == nil {
		return nil, errors.New("Invalid null input stream parameter")
	}

	if bufferSize < 1024 {
		return nil, errors.New("Invalid buffer size parameter (must be at least 1024 bytes)")
	}

	if bufferSize > 1<<29 {
		return nil, errors.New("Invalid buffer size parameter (must be at most 536870912 bytes)")
	}

	if bufferSize&7 != 0 {
		return nil, errors.New("Invalid buffer size (must be a multiple of 8)")
	}

	this := &DefaultInputBitStream{}
	this.br = bufio.NewReaderSize(stream, int(bufferSize))

	// bufio.Reader is an io.ByteReader: bitio reads through it directly,
	// which keeps Peek() in HasMoreToRead() consistent.
	this.bits = bitio.NewReader(this.br)
	return this, nil
}

// ReadBit returns the next bit
func (this *DefaultInputBitStream) ReadBit() int {
	if this.closed {
		panic(errClosedInput)
	}

	b, err := this.bits.ReadBool()

	if err != nil {
		panic(fmt.Errorf("Cannot read bit: %w", err))
	}

	this.read++

	if b {
		return 1
	}

	return 0
}

// ReadBits reads 'count' bits and returns them as an uint64
func (this *DefaultInputBitStream) ReadBits(count uint) uint64 {
	if count == 0 || count > 64 {
		panic(errBitCount)
	}

	if this.closed {
		panic(errClosedInput)
	}

	v, err := this.bits.ReadBits(uint8(count))

	if err != nil {
		panic(fmt.Errorf("Cannot read bits: %w", err))
	}

	this.read += uint64(count)
	return v
}

// ReadArray reads 'count' bits into the byte slice, MSB first.
// Returns the number of bits read.
func (this *DefaultInputBitStream) ReadArray(bits []byte, count uint) uint {
	if this.closed {
		panic(errClosedInput)
	}

	if count > uint(len(bits))<<3 {
		panic(fmt.Errorf("Invalid length: %d bits requested, slice holds %d", count, len(bits)<<3))
	}

	n := count >> 3

	if n > 0 {
		if _, err := io.ReadFull(this.bits, bits[0:n]); err != nil {
			panic(fmt.Errorf("Cannot read bytes: %w", err))
		}
	}

	if r := count & 7; r != 0 {
		v, err := this.bits.ReadBits(uint8(r))

		if err != nil {
			panic(fmt.Errorf("Cannot read bits: %w", err))
		}

		bits[n] = byte(v << (8 - r))
	}

	this.read += uint64(count)
	return count
}

// HasMoreToRead returns false when the bitstream is closed or the end of
// stream has been reached.
func (this *DefaultInputBitStream) HasMoreToRead() (bool, error) {
	if this.closed {
		return false, nil
	}

	// Bits left in a partially consumed byte
	if this.read&7 != 0 {
		return true, nil
	}

	if _, err := this.br.Peek(1); err != nil {
		if errors.Is(err, io.EOF) {
			return false, nil
		}

		return false, err
	}

	return true, nil
}

// Close makes the bitstream unavailable for further reads.
func (this *DefaultInputBitStream) Close() error {
	this.closed = true
	return nil
}

// Read returns the number of bits read
func (this *DefaultInputBitStream) Read() uint64 {
	return this.read
}

// Closed says whether this stream can be read from
func (this *DefaultInputBitStream) Closed() bool {
	return this.closed
}
