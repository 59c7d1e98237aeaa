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
	"math/rand"
	"testing"

	"github.com/kzpipe/kzpipe/internal"
)

func TestBitStreamValues(t *testing.T) {
	for test := 0; test < 20; test++ {
		counts := make([]uint, 200)
		values := make([]uint64, 200)
		bs := internal.NewBufferStream()
		obs, err := NewDefaultOutputBitStream(bs, 16384)

		if err != nil {
			t.Fatalf("Cannot create output bitstream: %v", err)
		}

		total := uint64(0)

		for i := range values {
			counts[i] = 1 + uint(rand.Intn(64))
			values[i] = rand.Uint64()

			if counts[i] < 64 {
				values[i] &= (uint64(1) << counts[i]) - 1
			}

			obs.WriteBits(values[i], counts[i])
			total += uint64(counts[i])
		}

		obs.WriteBit(1)
		total++

		if obs.Written() != total {
			t.Fatalf("Written: expected %d, got %d", total, obs.Written())
		}

		if err := obs.Close(); err != nil {
			t.Fatalf("Close failed: %v", err)
		}

		if bs.Len() != int((total+7)>>3) {
			t.Fatalf("Stream length: expected %d, got %d", (total+7)>>3, bs.Len())
		}

		ibs, _ := NewDefaultInputBitStream(bs, 16384)

		for i := range values {
			if v := ibs.ReadBits(counts[i]); v != values[i] {
				t.Fatalf("Test %d, value %d: expected %x, got %x", test, i, values[i], v)
			}
		}

		if ibs.ReadBit() != 1 {
			t.Fatalf("Test %d: last bit mismatch", test)
		}

		if ibs.Read() != total {
			t.Errorf("Read: expected %d, got %d", total, ibs.Read())
		}
	}
}

func TestBitStreamMisalignedArray(t *testing.T) {
	input := make([]byte, 1000)

	for i := range input {
		input[i] = byte(rand.Intn(256))
	}

	for shift := uint(0); shift < 8; shift++ {
		bs := internal.NewBufferStream()
		obs, _ := NewDefaultOutputBitStream(bs, 1024)

		if shift > 0 {
			obs.WriteBits(0x55, shift)
		}

		count := uint(len(input)<<3) - shift
		obs.WriteArray(input, count)
		obs.Close()

		ibs, _ := NewDefaultInputBitStream(bs, 1024)

		if shift > 0 {
			if v := ibs.ReadBits(shift); v != 0x55&((1<<shift)-1) {
				t.Fatalf("Shift %d: prefix mismatch %x", shift, v)
			}
		}

		output := make([]byte, len(input))
		ibs.ReadArray(output, count)
		last := len(input) - 1

		for i := 0; i < last; i++ {
			if output[i] != input[i] {
				t.Fatalf("Shift %d: byte %d differs", shift, i)
			}
		}

		mask := byte(0xFF << shift)

		if output[last]&mask != input[last]&mask {
			t.Fatalf("Shift %d: last byte differs", shift)
		}

		if more, _ := ibs.HasMoreToRead(); more {
			t.Errorf("Shift %d: stream should be exhausted", shift)
		}
	}
}

func TestBitStreamClosed(t *testing.T) {
	bs := internal.NewBufferStream()
	obs, _ := NewDefaultOutputBitStream(bs, 1024)
	obs.WriteBits(0xABCD, 16)
	obs.Close()

	defer func() {
		if recover() == nil {
			t.Errorf("Writing to a closed bitstream should panic")
		}
	}()

	obs.WriteBit(0)
}

func TestBitStreamReadPastEnd(t *testing.T) {
	ibs, _ := NewDefaultInputBitStream(internal.NewBufferStream([]byte{0xFF}), 1024)

	if v := ibs.ReadBits(8); v != 0xFF {
		t.Fatalf("Expected 0xFF, got %x", v)
	}

	if more, _ := ibs.HasMoreToRead(); more {
		t.Fatalf("Stream should be exhausted")
	}

	defer func() {
		if recover() == nil {
			t.Errorf("Reading past the end should panic")
		}
	}()

	ibs.ReadBit()
}

func TestBitStreamInvalidParams(t *testing.T) {
	if _, err := NewDefaultOutputBitStream(nil, 1024); err == nil {
		t.Errorf("Nil stream accepted")
	}

	if _, err := NewDefaultOutputBitStream(internal.NewBufferStream(), 1000); err == nil {
		t.Errorf("Buffer size not multiple of 8 accepted")
	}

	if _, err := NewDefaultInputBitStream(internal.NewBufferStream(), 512); err == nil {
		t.Errorf("Small buffer size accepted")
	}
}
