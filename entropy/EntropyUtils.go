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

	kzpipe "github.com/kzpipe/kzpipe"
)

const (
	_CHUNK_RAW    = 0 // bytes stored as is
	_CHUNK_RLE    = 1 // one byte repeated
	_CHUNK_PACKED = 2 // compressed payload preceded by its size

	_ENTROPY_CHUNK_SIZE = 1 << 16 // must be less than huff0.BlockSizeMax
	_MIN_PACKED_CHUNK   = 32      // smaller chunks are stored raw
	_NULL_CHUNK_SIZE    = 1 << 23
)

var (
	errIncompressible = errors.New("incompressible chunk")
	errUseRLE         = errors.New("single symbol chunk")
)

func errNullBitStream(codec string) error {
	return fmt.Errorf("%w: %s: invalid null bitstream parameter", kzpipe.ErrInvalidArgument, codec)
}

// chunkCompressor compresses a chunk of at most _ENTROPY_CHUNK_SIZE bytes.
// It returns errIncompressible or errUseRLE when the chunk should be
// stored raw or run length encoded.
type chunkCompressor func(in []byte) ([]byte, error)

// chunkDecompressor decompresses a payload into dst, filling it exactly.
type chunkDecompressor func(in, dst []byte) error

// WriteVarInt writes the provided value to the bitstream as a VarInt.
// Returns the number of bytes written.
func WriteVarInt(bs kzpipe.OutputBitStream, value uint32) int {
	res := 1

	for value >= 128 {
		bs.WriteBits(uint64(0x80|(value&0x7F)), 8)
		value >>= 7
		res++
	}

	bs.WriteBits(uint64(value), 8)
	return res
}

// ReadVarInt reads a VarInt from the bitstream and returns it as an uint32.
func ReadVarInt(bs kzpipe.InputBitStream) uint32 {
	res := uint32(0)

	for shift := uint(0); shift < 35; shift += 7 {
		value := uint32(bs.ReadBits(8))
		res |= (value & 0x7F) << shift

		if value < 128 {
			break
		}
	}

	return res
}

// writeChunk encodes one chunk with the provided compressor, falling back to
// raw or run length encoding. Returns the number of bytes written.
func writeChunk(bs kzpipe.OutputBitStream, chunk []byte, compress chunkCompressor) (int, error) {
	var out []byte
	err := errIncompressible

	if len(chunk) >= _MIN_PACKED_CHUNK {
		out, err = compress(chunk)
	}

	if err == nil && len(out)+5 >= len(chunk) {
		err = errIncompressible
	}

	switch err {
	case nil:
		bs.WriteBits(_CHUNK_PACKED, 8)
		n := WriteVarInt(bs, uint32(len(out)))
		bs.WriteArray(out, uint(8*len(out)))
		return 1 + n + len(out), nil

	case errUseRLE:
		bs.WriteBits(_CHUNK_RLE, 8)
		bs.WriteBits(uint64(chunk[0]), 8)
		return 2, nil

	case errIncompressible:
		bs.WriteBits(_CHUNK_RAW, 8)
		bs.WriteArray(chunk, uint(8*len(chunk)))
		return 1 + len(chunk), nil

	default:
		return 0, err
	}
}

// readChunk decodes one chunk written by writeChunk into dst. The scratch
// buffer is grown as needed and returned.
func readChunk(bs kzpipe.InputBitStream, dst []byte, scratch []byte, decompress chunkDecompressor) ([]byte, error) {
	switch mode := bs.ReadBits(8); mode {
	case _CHUNK_RAW:
		bs.ReadArray(dst, uint(8*len(dst)))

	case _CHUNK_RLE:
		b := byte(bs.ReadBits(8))

		for i := range dst {
			dst[i] = b
		}

	case _CHUNK_PACKED:
		size := int(ReadVarInt(bs))

		// A packed chunk is always smaller than the raw chunk
		if size >= len(dst) {
			return scratch, fmt.Errorf("%w: invalid packed chunk size %d for %d bytes", kzpipe.ErrCorruptedData, size, len(dst))
		}

		if len(scratch) < size {
			scratch = make([]byte, size)
		}

		bs.ReadArray(scratch, uint(8*size))

		if err := decompress(scratch[0:size], dst); err != nil {
			return scratch, fmt.Errorf("%w: %v", kzpipe.ErrCorruptedData, err)
		}

	default:
		return scratch, fmt.Errorf("%w: invalid chunk mode %d", kzpipe.ErrCorruptedData, mode)
	}

	return scratch, nil
}
