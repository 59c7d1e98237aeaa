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

	"github.com/klauspost/compress/huff0"
	kzpipe "github.com/kzpipe/kzpipe"
)

// HuffmanEncoder is a static order 0 Huffman encoder. The block is split into
// chunks of 64 KB, each with its own code table.
type HuffmanEncoder struct {
	bitstream kzpipe.OutputBitStream
	scratch   *huff0.Scratch
}

// NewHuffmanEncoder creates a new instance of HuffmanEncoder
func NewHuffmanEncoder(bs kzpipe.OutputBitStream) (*HuffmanEncoder, error) {
	if bs == nil {
		return nil, errNullBitStream("Huffman codec")
	}

	this := &HuffmanEncoder{}
	this.bitstream = bs
	this.scratch = &huff0.Scratch{Reuse: huff0.ReusePolicyNone}
	return this, nil
}

func (this *HuffmanEncoder) compress(in []byte) ([]byte, error) {
	// Each chunk carries its table
	this.scratch.Reuse = huff0.ReusePolicyNone
	out, _, err := huff0.Compress1X(in, this.scratch)

	switch {
	case err == nil:
		return out, nil
	case errors.Is(err, huff0.ErrIncompressible):
		return nil, errIncompressible
	case errors.Is(err, huff0.ErrUseRLE):
		return nil, errUseRLE
	default:
		return nil, fmt.Errorf("Huffman codec: %w", err)
	}
}

// Write encodes the data provided into the bitstream. Return the number of bytes
// consumed from the block
func (this *HuffmanEncoder) Write(block []byte) (int, error) {
	for start := 0; start < len(block); start += _ENTROPY_CHUNK_SIZE {
		end := min(start+_ENTROPY_CHUNK_SIZE, len(block))

		if _, err := writeChunk(this.bitstream, block[start:end], this.compress); err != nil {
			return start, err
		}
	}

	return len(block), nil
}

// BitStream returns the underlying bitstream
func (this *HuffmanEncoder) BitStream() kzpipe.OutputBitStream {
	return this.bitstream
}

// Dispose this implementation does nothing
func (this *HuffmanEncoder) Dispose() {
}

// HuffmanDecoder is the decoder matching HuffmanEncoder
type HuffmanDecoder struct {
	bitstream kzpipe.InputBitStream
	scratch   *huff0.Scratch
	buffer    []byte
}

// NewHuffmanDecoder creates a new instance of HuffmanDecoder
func NewHuffmanDecoder(bs kzpipe.InputBitStream) (*HuffmanDecoder, error) {
	if bs == nil {
		return nil, errNullBitStream("Huffman codec")
	}

	this := &HuffmanDecoder{}
	this.bitstream = bs
	this.buffer = make([]byte, 0)
	return this, nil
}

func (this *HuffmanDecoder) decompress(in, dst []byte) error {
	s, remain, err := huff0.ReadTable(in, this.scratch)

	if err != nil {
		return fmt.Errorf("Huffman codec: invalid code table: %v", err)
	}

	this.scratch = s
	out, err := s.Decoder().Decompress1X(dst[0:0:len(dst)], remain)

	if err != nil {
		return fmt.Errorf("Huffman codec: %v", err)
	}

	if len(out) != len(dst) {
		return fmt.Errorf("Huffman codec: decoded %d bytes, expected %d", len(out), len(dst))
	}

	copy(dst, out)
	return nil
}

// Read decodes data from the bitstream and return it in the provided buffer.
// Return the number of bytes decoded
func (this *HuffmanDecoder) Read(block []byte) (int, error) {
	var err error

	for start := 0; start < len(block); start += _ENTROPY_CHUNK_SIZE {
		end := min(start+_ENTROPY_CHUNK_SIZE, len(block))

		if this.buffer, err = readChunk(this.bitstream, block[start:end], this.buffer, this.decompress); err != nil {
			return start, err
		}
	}

	return len(block), nil
}

// BitStream returns the underlying bitstream
func (this *HuffmanDecoder) BitStream() kzpipe.InputBitStream {
	return this.bitstream
}

// Dispose this implementation does nothing
func (this *HuffmanDecoder) Dispose() {
}
