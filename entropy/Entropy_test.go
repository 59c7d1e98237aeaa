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
	"bytes"
	"errors"
	"math/rand"
	"strings"
	"testing"

	kzpipe "github.com/kzpipe/kzpipe"
	"github.com/kzpipe/kzpipe/bitstream"
	"github.com/kzpipe/kzpipe/internal"
)

var entropyNames = []string{"NONE", "HUFFMAN", "FPAQ", "PAQ", "RANGE", "ANS0", "CM", "TPAQ", "ANS1"}

func randomBlock(rnd *rand.Rand, size, alphabet int) []byte {
	res := make([]byte, size)

	for i := range res {
		res[i] = byte(rnd.Intn(alphabet))
	}

	return res
}

func textBlock(rnd *rand.Rand, size int) []byte {
	words := []string{"the", "compression", "of", "block", "entropy", "and", "model",
		"context", "mixing", "Huffman", "range", "coder", "bits", "predictor"}
	var sb strings.Builder

	for sb.Len() < size {
		sb.WriteString(words[rnd.Intn(len(words))])

		if rnd.Intn(12) == 0 {
			sb.WriteString(".\n")
		} else {
			sb.WriteByte(' ')
		}
	}

	return []byte(sb.String()[0:size])
}

// encodeBlocks encodes the blocks in sequence with one encoder and returns
// the bitstream content.
func encodeBlocks(t testing.TB, name string, ctx map[string]any, blocks ...[]byte) []byte {
	t.Helper()
	eType, err := GetType(name)

	if err != nil {
		t.Fatalf("GetType(%s): %v", name, err)
	}

	bs := internal.NewBufferStream()
	obs, _ := bitstream.NewDefaultOutputBitStream(bs, 16384)
	enc, err := NewEntropyEncoder(obs, ctx, eType)

	if err != nil {
		t.Fatalf("Cannot create %s encoder: %v", name, err)
	}

	for _, block := range blocks {
		n, err := enc.Write(block)

		if err != nil {
			t.Fatalf("%s: encoding failed: %v", name, err)
		}

		if n != len(block) {
			t.Fatalf("%s: encoded %d bytes, expected %d", name, n, len(block))
		}
	}

	enc.Dispose()

	if err := obs.Close(); err != nil {
		t.Fatalf("%s: cannot close bitstream: %v", name, err)
	}

	return bs.Bytes()
}

// decodeBlocks decodes blocks of the given sizes with one decoder.
func decodeBlocks(t testing.TB, name string, ctx map[string]any, encoded []byte, sizes ...int) ([][]byte, error) {
	t.Helper()
	eType, _ := GetType(name)
	ibs, _ := bitstream.NewDefaultInputBitStream(internal.NewBufferStream(encoded), 16384)
	dec, err := NewEntropyDecoder(ibs, ctx, eType)

	if err != nil {
		t.Fatalf("Cannot create %s decoder: %v", name, err)
	}

	defer dec.Dispose()
	res := make([][]byte, len(sizes))

	for i, size := range sizes {
		res[i] = make([]byte, size)

		if _, err := dec.Read(res[i]); err != nil {
			return res, err
		}
	}

	return res, nil
}

func entropyRoundTrip(t *testing.T, name string, block []byte) int {
	t.Helper()
	ctx := map[string]any{"blockSize": len(block)}
	encoded := encodeBlocks(t, name, ctx, block)
	decoded, err := decodeBlocks(t, name, ctx, encoded, len(block))

	if err != nil {
		t.Fatalf("%s: decoding failed: %v", name, err)
	}

	if !bytes.Equal(block, decoded[0]) {
		t.Fatalf("%s: round trip mismatch for a block of %d bytes", name, len(block))
	}

	return len(encoded)
}

func TestEntropyRoundTrip(t *testing.T) {
	rnd := rand.New(rand.NewSource(12345))
	blocks := map[string][]byte{
		"empty":    {},
		"single":   {0x41},
		"small":    {0, 0, 32, 15, 0xFC, 16, 0, 16, 0, 7, 0xFF, 0xFC, 0xE0, 0, 31, 0xFF},
		"twoSyms":  bytes.Repeat([]byte{2, 3}, 40),
		"random":   randomBlock(rnd, 50000, 256),
		"skewed":   randomBlock(rnd, 50000, 8),
		"text":     textBlock(rnd, 100000),
		"constant": bytes.Repeat([]byte{'z'}, 20000),
		"chunks":   textBlock(rnd, 3*_ENTROPY_CHUNK_SIZE+17),
	}

	for _, name := range entropyNames {
		for label, block := range blocks {
			t.Run(name+"/"+label, func(t *testing.T) {
				entropyRoundTrip(t, name, block)
			})
		}
	}
}

func TestEntropyCompresses(t *testing.T) {
	rnd := rand.New(rand.NewSource(777))
	constant := bytes.Repeat([]byte{0x55}, 100000)
	text := textBlock(rnd, 200000)

	for _, name := range entropyNames[1:] {
		if n := entropyRoundTrip(t, name, constant); n > len(constant)/10 {
			t.Errorf("%s: constant block of %d bytes encoded to %d bytes", name, len(constant), n)
		}

		// Order 0 entropy of the text is below 4.5 bits per byte
		if n := entropyRoundTrip(t, name, text); n > len(text)*6/8 {
			t.Errorf("%s: text block of %d bytes encoded to %d bytes", name, len(text), n)
		}
	}
}

func TestEntropyMaxDecodedLen(t *testing.T) {
	rnd := rand.New(rand.NewSource(31))
	blocks := [][]byte{make([]byte, 1<<20), textBlock(rnd, 100000), randomBlock(rnd, 50000, 256), {7}}

	for _, name := range entropyNames {
		eType, _ := GetType(name)

		for _, block := range blocks {
			n := entropyRoundTrip(t, name, block)

			if maxLen := MaxDecodedLen(eType, n); len(block) > maxLen {
				t.Errorf("%s: %d bytes decoded from %d bytes, bound is %d", name, len(block), n, maxLen)
			}
		}
	}

	if n := MaxDecodedLen(NONE_TYPE, 10); n != 10 {
		t.Errorf("Expected 10, got %d", n)
	}

	if n := MaxDecodedLen(CM_TYPE, kzpipe.MAX_BLOCK_SIZE/2); n != kzpipe.MAX_BLOCK_SIZE {
		t.Errorf("Bound should be capped, got %d", n)
	}
}

func TestEntropyMatchModel(t *testing.T) {
	rnd := rand.New(rand.NewSource(99))
	segment := randomBlock(rnd, 1000, 26)
	block := bytes.Repeat(segment, 50)
	tpaq := entropyRoundTrip(t, "TPAQ", block)
	fpaq := entropyRoundTrip(t, "FPAQ", block)

	if tpaq > len(block)/4 {
		t.Errorf("TPAQ: repeated block of %d bytes encoded to %d bytes", len(block), tpaq)
	}

	if tpaq >= fpaq {
		t.Errorf("TPAQ (%d bytes) should beat FPAQ (%d bytes) on repeated data", tpaq, fpaq)
	}
}

func TestEntropyMultipleBlocks(t *testing.T) {
	rnd := rand.New(rand.NewSource(5))
	blocks := [][]byte{textBlock(rnd, 3000), randomBlock(rnd, 10, 256), {}, textBlock(rnd, 70000)}
	sizes := make([]int, len(blocks))

	for i := range blocks {
		sizes[i] = len(blocks[i])
	}

	for _, name := range entropyNames {
		encoded := encodeBlocks(t, name, nil, blocks...)
		decoded, err := decodeBlocks(t, name, nil, encoded, sizes...)

		if err != nil {
			t.Fatalf("%s: decoding failed: %v", name, err)
		}

		for i := range blocks {
			if !bytes.Equal(blocks[i], decoded[i]) {
				t.Errorf("%s: block %d differs after round trip", name, i)
			}
		}
	}
}

func TestEntropyRegistry(t *testing.T) {
	for i, name := range entropyNames {
		eType, err := GetType(strings.ToLower(name))

		if err != nil || eType != uint32(i) {
			t.Errorf("GetType(%q) = %d, %v; expected %d", strings.ToLower(name), eType, err, i)
		}

		n, err := GetName(uint32(i))

		if err != nil || n != name {
			t.Errorf("GetName(%d) = %q, %v; expected %q", i, n, err, name)
		}
	}

	if eType, err := GetType("Tpaq"); err != nil || eType != TPAQ_TYPE {
		t.Errorf("GetType(\"Tpaq\") = %d, %v", eType, err)
	}

	if _, err := GetName(9); !errors.Is(err, kzpipe.ErrInvalidConfig) {
		t.Errorf("GetName(9): expected ErrInvalidConfig, got %v", err)
	}

	for _, name := range []string{"", "TPAQX", "ANS2", "huff"} {
		if _, err := GetType(name); !errors.Is(err, kzpipe.ErrInvalidConfig) {
			t.Errorf("GetType(%q): expected ErrInvalidConfig, got %v", name, err)
		}
	}

	obs, _ := bitstream.NewDefaultOutputBitStream(internal.NewBufferStream(), 16384)
	ibs, _ := bitstream.NewDefaultInputBitStream(internal.NewBufferStream(), 16384)

	if _, err := NewEntropyEncoder(obs, nil, 9); !errors.Is(err, kzpipe.ErrInvalidConfig) {
		t.Errorf("Encoder type 9: expected ErrInvalidConfig, got %v", err)
	}

	if _, err := NewEntropyDecoder(ibs, nil, 42); !errors.Is(err, kzpipe.ErrInvalidConfig) {
		t.Errorf("Decoder type 42: expected ErrInvalidConfig, got %v", err)
	}

	if _, err := NewEntropyEncoder(nil, nil, HUFFMAN_TYPE); !errors.Is(err, kzpipe.ErrInvalidArgument) {
		t.Errorf("Nil output bitstream: expected ErrInvalidArgument, got %v", err)
	}

	if _, err := NewEntropyDecoder(nil, nil, CM_TYPE); !errors.Is(err, kzpipe.ErrInvalidArgument) {
		t.Errorf("Nil input bitstream: expected ErrInvalidArgument, got %v", err)
	}

	if _, err := NewANSRangeEncoder(obs, 2); !errors.Is(err, kzpipe.ErrInvalidConfig) {
		t.Errorf("ANS order 2: expected ErrInvalidConfig, got %v", err)
	}
}

func TestTPAQLogHash(t *testing.T) {
	tests := []struct {
		ctx      map[string]any
		expected uint
	}{
		{nil, 22},
		{map[string]any{}, 22},
		{map[string]any{"blockSize": uint(0)}, 22},
		{map[string]any{"blockSize": (1 << 20) - 1}, 22},
		{map[string]any{"blockSize": 1 << 20}, 23},
		{map[string]any{"blockSize": uint(64<<20) - 1}, 23},
		{map[string]any{"blockSize": uint32(64 << 20)}, 24},
		{map[string]any{"blockSize": uint64(1 << 30)}, 24},
	}

	for _, tt := range tests {
		logHash, err := TPAQLogHash(tt.ctx)

		if err != nil || logHash != tt.expected {
			t.Errorf("TPAQLogHash(%v) = %d, %v; expected %d", tt.ctx, logHash, err, tt.expected)
		}
	}

	for _, v := range []any{-1, "1M", 1.5} {
		if _, err := TPAQLogHash(map[string]any{"blockSize": v}); !errors.Is(err, kzpipe.ErrInvalidConfig) {
			t.Errorf("TPAQLogHash(%v): expected ErrInvalidConfig, got %v", v, err)
		}
	}

	obs, _ := bitstream.NewDefaultOutputBitStream(internal.NewBufferStream(), 16384)
	enc, err := NewEntropyEncoder(obs, map[string]any{"blockSize": 2 << 20}, TPAQ_TYPE)

	if err != nil {
		t.Fatalf("Cannot create TPAQ encoder: %v", err)
	}

	predictor := enc.(*BinaryEntropyEncoder).predictor.(*TPAQPredictor)

	if predictor.LogHash() != 23 || len(predictor.table) != 1<<23 {
		t.Errorf("TPAQ table: log %d, size %d; expected 23", predictor.LogHash(), len(predictor.table))
	}

	if _, err := NewTPAQPredictor(12); !errors.Is(err, kzpipe.ErrInvalidConfig) {
		t.Errorf("TPAQ log hash 12: expected ErrInvalidConfig, got %v", err)
	}
}

func TestEntropyCorrupted(t *testing.T) {
	// Unknown chunk mode
	for _, name := range []string{"HUFFMAN", "ANS0"} {
		_, err := decodeBlocks(t, name, nil, []byte{7, 0, 0, 0, 0, 0, 0, 0}, 4)

		if !errors.Is(err, kzpipe.ErrCorruptedData) {
			t.Errorf("%s: expected ErrCorruptedData, got %v", name, err)
		}
	}

	// Packed chunk larger than the raw chunk
	if _, err := decodeBlocks(t, "HUFFMAN", nil, []byte{_CHUNK_PACKED, 100, 0, 0}, 40); !errors.Is(err, kzpipe.ErrCorruptedData) {
		t.Errorf("HUFFMAN: expected ErrCorruptedData, got %v", err)
	}

	// Frequency beyond the total
	if _, err := decodeBlocks(t, "RANGE", nil, bytes.Repeat([]byte{0xFF}, 16), 4); !errors.Is(err, kzpipe.ErrCorruptedData) {
		t.Errorf("RANGE: expected ErrCorruptedData, got %v", err)
	}

	// Coded size not a multiple of 4
	bad := append([]byte{5}, make([]byte, 20)...)

	for _, name := range []string{"FPAQ", "PAQ", "CM", "TPAQ"} {
		if _, err := decodeBlocks(t, name, nil, bad, 10); !errors.Is(err, kzpipe.ErrCorruptedData) {
			t.Errorf("%s: expected ErrCorruptedData, got %v", name, err)
		}
	}

	// Coded bytes missing
	rnd := rand.New(rand.NewSource(3))
	block := randomBlock(rnd, 500, 256)
	encoded := encodeBlocks(t, "CM", nil, block)
	encoded[0] = 0 // varint size of the chunk
	truncated := encoded[0 : 1+7+len(encoded)/2]

	if _, err := decodeBlocks(t, "CM", nil, truncated, len(block)); !errors.Is(err, kzpipe.ErrCorruptedData) {
		t.Errorf("CM: expected ErrCorruptedData, got %v", err)
	}
}

func TestPredictors(t *testing.T) {
	fpaq, _ := NewFPAQPredictor()
	paq, _ := NewPAQPredictor()
	cm, _ := NewCMPredictor()
	tpaq, _ := NewTPAQPredictor(16)
	predictors := map[string]kzpipe.Predictor{"FPAQ": fpaq, "PAQ": paq, "CM": cm, "TPAQ": tpaq}
	rnd := rand.New(rand.NewSource(11))

	for name, p := range predictors {
		// Random bits keep every prediction in range
		for i := 0; i < 20000; i++ {
			if pr := p.Get(); pr < 1 || pr > 4095 {
				t.Fatalf("%s: prediction %d out of range", name, pr)
			}

			p.Update(byte(rnd.Intn(2)))
		}

		// Align on a byte boundary then learn a constant byte
		for i := 0; i < 8-(20000%8); i++ {
			p.Update(0)
		}

		for i := 0; i < 2000; i++ {
			for shift := 7; shift >= 0; shift-- {
				p.Update(('a' >> uint(shift)) & 1)
			}
		}

		// 'a' starts with a 0 bit then a 1 bit
		if pr := p.Get(); pr > 1024 {
			t.Errorf("%s: probability of a 1 for the first bit is %d", name, pr)
		}

		p.Update(0)

		if pr := p.Get(); pr < 3072 {
			t.Errorf("%s: probability of a 1 for the second bit is %d", name, pr)
		}
	}
}

func TestLogisticProbMap(t *testing.T) {
	if _, err := NewLogisticProbMap(0, 7); !errors.Is(err, kzpipe.ErrInvalidConfig) {
		t.Errorf("Zero contexts: expected ErrInvalidConfig, got %v", err)
	}

	if _, err := NewLogisticProbMap(16, 0); !errors.Is(err, kzpipe.ErrInvalidConfig) {
		t.Errorf("Zero rate: expected ErrInvalidConfig, got %v", err)
	}

	apm, err := NewLogisticProbMap(4, 7)

	if err != nil {
		t.Fatalf("Cannot create APM: %v", err)
	}

	// Neutral before training
	if pr := apm.Get(0, 2048, 1); pr < 1900 || pr > 2200 {
		t.Errorf("Untrained APM returned %d for 2048", pr)
	}

	pr := 0

	for i := 0; i < 3000; i++ {
		pr = apm.Get(1, 2048, 1)
	}

	if pr < 3900 {
		t.Errorf("APM trained on 1s returned %d", pr)
	}

	// Other contexts are untouched
	if pr := apm.Get(1, 2048, 2); pr < 1900 || pr > 2200 {
		t.Errorf("Untrained context returned %d", pr)
	}
}

func TestVarInt(t *testing.T) {
	values := []uint32{0, 1, 127, 128, 300, 16383, 16384, 1 << 21, 1<<28 - 1, 1 << 28, 0xFFFFFFFF}
	bs := internal.NewBufferStream()
	obs, _ := bitstream.NewDefaultOutputBitStream(bs, 16384)
	total := 0

	for _, v := range values {
		total += WriteVarInt(obs, v)
	}

	obs.Close()

	if bs.Len() != total {
		t.Fatalf("Reported %d bytes, wrote %d", total, bs.Len())
	}

	ibs, _ := bitstream.NewDefaultInputBitStream(bs, 16384)

	for _, v := range values {
		if r := ReadVarInt(ibs); r != v {
			t.Errorf("ReadVarInt: got %d, expected %d", r, v)
		}
	}
}

func BenchmarkEntropyEncode(b *testing.B) {
	block := textBlock(rand.New(rand.NewSource(1)), 1<<16)

	for _, name := range entropyNames {
		b.Run(name, func(b *testing.B) {
			b.SetBytes(int64(len(block)))

			for i := 0; i < b.N; i++ {
				encodeBlocks(b, name, nil, block)
			}
		})
	}
}

func BenchmarkEntropyDecode(b *testing.B) {
	block := textBlock(rand.New(rand.NewSource(1)), 1<<16)

	for _, name := range entropyNames {
		encoded := encodeBlocks(b, name, nil, block)

		b.Run(name, func(b *testing.B) {
			b.SetBytes(int64(len(block)))

			for i := 0; i < b.N; i++ {
				if _, err := decodeBlocks(b, name, nil, encoded, len(block)); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}
