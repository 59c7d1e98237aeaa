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
package transform

import (
	"bytes"
	"errors"
	"math/rand"
	"testing"

	kzpipe "github.com/kzpipe/kzpipe"
)

func TestSBRTRoundTrip(t *testing.T) {
	rnd := rand.New(rand.NewSource(7))
	random := make([]byte, 20000)
	rnd.Read(random)
	inputs := [][]byte{
		[]byte("a"),
		[]byte("mississippi"),
		bytes.Repeat([]byte{0, 0, 1, 1, 2, 2, 255}, 500),
		random,
		generateText(rnd, 20000),
	}

	for _, mode := range []int{SBRT_MODE_MTF, SBRT_MODE_RANK, SBRT_MODE_TIMESTAMP} {
		sbrt, err := NewSBRT(mode)

		if err != nil {
			t.Fatalf("Cannot create SBRT(%d): %v", mode, err)
		}

		for _, input := range inputs {
			ranks := make([]byte, sbrt.MaxEncodedLen(len(input)))
			_, n, err := sbrt.Forward(input, ranks, uint(len(input)))

			if err != nil || int(n) != len(input) {
				t.Fatalf("Mode %d: forward failed (%d bytes): %v", mode, n, err)
			}

			output := make([]byte, len(input))
			_, m, err := sbrt.Inverse(ranks[0:n], output, n)

			if err != nil || int(m) != len(input) {
				t.Fatalf("Mode %d: inverse failed (%d bytes): %v", mode, m, err)
			}

			if !bytes.Equal(output, input) {
				t.Errorf("Mode %d: round trip mismatch on %d bytes", mode, len(input))
			}
		}
	}
}

func TestSBRTMoveToFront(t *testing.T) {
	sbrt, _ := NewSBRT(SBRT_MODE_MTF)
	input := []byte{2, 2, 0, 2, 1}
	expected := []byte{2, 0, 1, 1, 2}
	output := make([]byte, len(input))

	if _, _, err := sbrt.Forward(input, output, uint(len(input))); err != nil {
		t.Fatalf("Forward failed: %v", err)
	}

	if !bytes.Equal(output, expected) {
		t.Errorf("Expected %v, got %v", expected, output)
	}
}

func TestSBRTInvalid(t *testing.T) {
	for _, mode := range []int{0, 4, -1} {
		if _, err := NewSBRT(mode); !errors.Is(err, kzpipe.ErrInvalidConfig) {
			t.Errorf("Mode %d accepted", mode)
		}
	}

	sbrt, _ := NewSBRT(SBRT_MODE_RANK)
	buf := make([]byte, 8)

	if _, _, err := sbrt.Forward(buf, buf, 8); !errors.Is(err, kzpipe.ErrInvalidArgument) {
		t.Errorf("Aliased buffers accepted")
	}

	if _, _, err := sbrt.Forward(buf, make([]byte, 4), 8); !errors.Is(err, kzpipe.ErrInvalidArgument) {
		t.Errorf("Short output accepted")
	}

	if _, _, err := sbrt.Inverse(buf[0:4], make([]byte, 8), 8); !errors.Is(err, kzpipe.ErrInvalidArgument) {
		t.Errorf("Short input accepted")
	}
}

func TestSBRTFactory(t *testing.T) {
	typ, err := GetType("mtft+RANK")

	if err != nil {
		t.Fatalf("GetType failed: %v", err)
	}

	if typ != MTFT_TYPE<<18|RANK_TYPE<<12 {
		t.Errorf("Unexpected packed type %x", typ)
	}

	if name, _ := GetName(typ); name != "MTFT+RANK" {
		t.Errorf("Expected MTFT+RANK, got %s", name)
	}

	seq, err := New(nil, typ)

	if err != nil || seq.Len() != 2 {
		t.Fatalf("New failed: %v", err)
	}
}
