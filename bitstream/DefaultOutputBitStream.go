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
// Package bitstream implements the bitstreams the entropy coders read from
// and write to. Bits are stored MSB first.
package bitstream

import (
	"bufio"
	"errors"
	"fmt"
	"io"

	"github.com/icza/bitio"
)

var (
	errClosedOutput = errors.New("Stream closed")
	errBitCount     = errors.New("Invalid bit count (must be in [1..64])")
)

// DefaultOutputBitStream is the default implementation of OutputBitStream.
// I/O failures and writes to a closed stream panic.
type DefaultOutputBitStream struct {
	closed  bool
	written uint64
	bw      *bufio.Writer
	bits    *bitio.Writer
}

// NewDefaultOutputBitStream creates a bitstream for writing, using the provided stream as
// the underlying I/O object. The stream is flushed but not closed by Close().
func NewDefaultOutputBitStream(stream io.Writer, bufferSize uint) (*DefaultOutputBitStream, error) {
	if stream == nil {
		return nil, errors.New("Invalid null output stream parameter")
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

	this := &DefaultOutputBitStream{}
	this.bw = bufio.NewWriterSize(stream, int(bufferSize))
	this.bits = bitio.NewWriter(this.bw)
	return this, nil
}

// WriteBit writes the least significant bit of the input integer.
func (this *DefaultOutputBitStream) WriteBit(bit int) {
	if this.closed {
		panic(errClosedOutput)
	}

	if err := this.bits.WriteBool(bit&1 == 1); err != nil {
		panic(fmt.Errorf("Cannot write bit: %w", err))
	}

	this.written++
}

// WriteBits writes the 'count' least significant bits of 'value'.
// Returns the number of bits written.
func (this *DefaultOutputBitStream) WriteBits(value uint64, count uint) uint {
	if count == 0 || count > 64 {
		panic(errBitCount)
	}

	if this.closed {
		panic(errClosedOutput)
	}

	if count < 64 {
		value &= (uint64(1) << count) - 1
	}

	if err := this.bits.WriteBits(value, uint8(count)); err != nil {
		panic(fmt.Errorf("Cannot write bits: %w", err))
	}

	this.written += uint64(count)
	return count
}

// WriteArray writes 'count' bits out of the byte slice, MSB first.
// Returns the number of bits written.
func (this *DefaultOutputBitStream) WriteArray(bits []byte, count uint) uint {
	if this.closed {
		panic(errClosedOutput)
	}

	if count > uint(len(bits))<<3 {
		panic(fmt.Errorf("Invalid length: %d bits requested, slice holds %d", count, len(bits)<<3))
	}

	n := count >> 3

	if n > 0 {
		if _, err := this.bits.Write(bits[0:n]); err != nil {
			panic(fmt.Errorf("Cannot write bytes: %w", err))
		}
	}

	if r := count & 7; r != 0 {
		if err := this.bits.WriteBits(uint64(bits[n]>>(8-r)), uint8(r)); err != nil {
			panic(fmt.Errorf("Cannot write bits: %w", err))
		}
	}

	this.written += uint64(count)
	return count
}

// Close pads the last byte with zeros and flushes the buffered bytes.
// Closing twice is a no-op.
func (this *DefaultOutputBitStream) Close() error {
	if this.closed {
		return nil
	}

	if err := this.bits.Close(); err != nil {
		return err
	}

	if err := this.bw.Flush(); err != nil {
		return err
	}

	this.closed = true
	return nil
}

// Written returns the number of bits written
func (this *DefaultOutputBitStream) Written() uint64 {
	return this.written
}

// Closed says whether this stream can be written to
func (this *DefaultOutputBitStream) Closed() bool {
	return this.closed
}
