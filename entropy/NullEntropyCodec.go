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
	kzpipe "github.com/kzpipe/kzpipe"
)

// NullEntropyEncoder pass through entropy encoder (writes the input bytes directly
// to the bitstream)
type NullEntropyEncoder struct {
	bitstream kzpipe.OutputBitStream
}

// NewNullEntropyEncoder creates a new instance of NullEntropyEncoder
func NewNullEntropyEncoder(bs kzpipe.OutputBitStream) (*NullEntropyEncoder, error) {
	if bs == nil {
		return nil, errNullBitStream("Null entropy codec")
	}

	return &NullEntropyEncoder{bitstream: bs}, nil
}

// Write copies the data provided into the bitstream. Return the number of bytes
// written to the bitstream
func (this *NullEntropyEncoder) Write(block []byte) (int, error) {
	res := 0

	for len(block) > 0 {
		ckSize := min(len(block), _NULL_CHUNK_SIZE)
		res += int(this.bitstream.WriteArray(block, uint(8*ckSize)) >> 3)
		block = block[ckSize:]
	}

	return res, nil
}

// BitStream returns the underlying bitstream
func (this *NullEntropyEncoder) BitStream() kzpipe.OutputBitStream {
	return this.bitstream
}

// Dispose this implementation does nothing
func (this *NullEntropyEncoder) Dispose() {
}

// NullEntropyDecoder pass through entropy decoder (reads the input bytes directly
// from the bitstream)
type NullEntropyDecoder struct {
	bitstream kzpipe.InputBitStream
}

// NewNullEntropyDecoder creates a new instance of NullEntropyDecoder
func NewNullEntropyDecoder(bs kzpipe.InputBitStream) (*NullEntropyDecoder, error) {
	if bs == nil {
		return nil, errNullBitStream("Null entropy codec")
	}

	return &NullEntropyDecoder{bitstream: bs}, nil
}

// Read copies data from the bitstream into the provided buffer.
// Return the number of bytes read from the bitstream
func (this *NullEntropyDecoder) Read(block []byte) (int, error) {
	res := 0

	for len(block) > 0 {
		ckSize := min(len(block), _NULL_CHUNK_SIZE)
		res += int(this.bitstream.ReadArray(block, uint(8*ckSize)) >> 3)
		block = block[ckSize:]
	}

	return res, nil
}

// BitStream returns the underlying bitstream
func (this *NullEntropyDecoder) BitStream() kzpipe.InputBitStream {
	return this.bitstream
}

// Dispose this implementation does nothing
func (this *NullEntropyDecoder) Dispose() {
}
