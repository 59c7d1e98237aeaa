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

func newSmallTextCodec(t *testing.T, blob string) *TextCodec {
	codec, err := NewTextCodecWithDictionary([]byte(blob), 12, 2048, '@', '^')

	if err != nil {
		t.Fatalf("Cannot create text codec: %v", err)
	}

	return codec
}

func dictionaryWords(d *textDictionary) []string {
	res := make([]string, d.words())

	for i := range res {
		res[i] = string(d.get(i).word())
	}

	return res
}

// generateText builds text from a vocabulary larger than 256 words so that
// both reference sizes are used. Escape bytes, single letters and long words
// are mixed in.
func generateText(rnd *rand.Rand, size int) []byte {
	vocabulary := make([]string, 600)

	for i := range vocabulary {
		n := 2 + rnd.Intn(9)
		w := make([]byte, n)

		for j := range w {
			w[j] = byte('a' + rnd.Intn(26))
		}

		vocabulary[i] = string(w)
	}

	vocabulary = append(vocabulary, "the", "of", "and", "The", "x", "@", "^", "@@",
		"abcdefghijklmnopqrstuvwxyzabcdefghij", "^cat@")
	separators := []string{" ", " ", " ", ", ", ". ", "\n", "\t", "-", "(", ") "}
	var buf bytes.Buffer

	for buf.Len() < size {
		buf.WriteString(vocabulary[rnd.Intn(len(vocabulary))])
		buf.WriteString(separators[rnd.Intn(len(separators))])
	}

	return buf.Bytes()
}

func textRoundTrip(t *testing.T, codec *TextCodec, input []byte) []byte {
	encoded := make([]byte, codec.MaxEncodedLen(len(input)))
	_, dstIdx, err := codec.Forward(input, encoded, uint(len(input)))

	if err != nil {
		t.Fatalf("Forward failed: %v", err)
	}

	if int(dstIdx) >= len(input) {
		t.Fatalf("Forward succeeded without gain: %d -> %d", len(input), dstIdx)
	}

	decoded := make([]byte, len(input))
	_, n, err := codec.Inverse(encoded, decoded, dstIdx)

	if err != nil {
		t.Fatalf("Inverse failed: %v", err)
	}

	if int(n) != len(input) || !bytes.Equal(decoded[0:n], input) {
		t.Fatalf("Round trip mismatch: expected %d bytes, got %d", len(input), n)
	}

	return encoded[0:dstIdx]
}

func TestTextCodecCatScenario(t *testing.T) {
	codec := newSmallTextCodec(t, "AndOfToThe")

	if e := codec.dict.get(5); e == nil || string(e.word()) != "the" {
		t.Fatalf("Seed word 'the' should have index 5")
	}

	input := []byte("the cat sat on the mat")
	encoded := textRoundTrip(t, codec, input)
	expected := []byte("@\x05 cat sat on @\x05 mat")

	if !bytes.Equal(encoded, expected) {
		t.Fatalf("Expected %q, got %q", expected, encoded)
	}

	// Inverse replayed the insertions of forward
	words := dictionaryWords(codec.dict)
	newWords := []string{"cat", "sat", "on", "mat"}

	if len(words) != 6+len(newWords) {
		t.Fatalf("Expected %d words, got %d: %v", 6+len(newWords), len(words), words)
	}

	for i, w := range newWords {
		if words[6+i] != w {
			t.Errorf("Index %d: expected '%s', got '%s'", 6+i, w, words[6+i])
		}
	}
}

func TestTextCodecRoundTrip(t *testing.T) {
	rnd := rand.New(rand.NewSource(12345))
	codec, _ := NewTextCodec()

	for _, size := range []int{2000, 20000, 200000} {
		input := generateText(rnd, size)
		encoded := textRoundTrip(t, codec, input)
		hasLongRef := false

		for _, c := range encoded {
			if c == _TC_ESCAPE_TOKEN2 {
				hasLongRef = true
				break
			}
		}

		if size >= 20000 && !hasLongRef {
			t.Errorf("Size %d: expected references with 2 byte indexes", size)
		}
	}
}

func TestTextCodecEscapes(t *testing.T) {
	codec, _ := NewTextCodec()
	input := []byte("user@example the the the ^^ @@ the the the mail@example")
	encoded := textRoundTrip(t, codec, input)

	if bytes.Contains(encoded, []byte("@e")) {
		t.Errorf("Literal escape byte leaked into the output: %q", encoded)
	}
}

func TestTextCodecReplay(t *testing.T) {
	rnd := rand.New(rand.NewSource(777))
	input := generateText(rnd, 6000)
	codec := newSmallTextCodec(t, "TheOfAndToInIsThat")
	encoded := make([]byte, len(input))
	decoded := make([]byte, len(input))
	checked := 0

	for end := 500; end <= len(input); end++ {
		if input[end-1] != ' ' || end%7 != 0 {
			continue
		}

		_, dstIdx, err := codec.Forward(input, encoded, uint(end))

		if err != nil {
			continue
		}

		forwardWords := dictionaryWords(codec.dict)

		if _, _, err = codec.Inverse(encoded, decoded, dstIdx); err != nil {
			t.Fatalf("Prefix %d: inverse failed: %v", end, err)
		}

		inverseWords := dictionaryWords(codec.dict)

		if len(forwardWords) != len(inverseWords) {
			t.Fatalf("Prefix %d: %d words after forward, %d after inverse", end, len(forwardWords), len(inverseWords))
		}

		for i := range forwardWords {
			if forwardWords[i] != inverseWords[i] {
				t.Fatalf("Prefix %d, index %d: '%s' vs '%s'", end, i, forwardWords[i], inverseWords[i])
			}
		}

		checked++
	}

	if checked == 0 {
		t.Fatalf("No prefix checked")
	}
}

func findCollision(t *testing.T) (string, string) {
	rnd := rand.New(rand.NewSource(1))
	seen := make(map[int32]string, 1<<19)
	w := make([]byte, 7)

	for i := 0; i < 1<<20; i++ {
		for j := range w {
			w[j] = byte('a' + rnd.Intn(26))
		}

		h := hashWord(w)

		if prev, ok := seen[h]; ok && prev != string(w) {
			return prev, string(w)
		}

		seen[h] = string(w)
	}

	t.Skip("No hash collision found")
	return "", ""
}

func TestTextCodecCaseFlip(t *testing.T) {
	codec, _ := NewTextCodec()
	input := []byte("The cat. The dog. The end. The man. The day.")
	encoded := textRoundTrip(t, codec, input)
	ref := []byte{_TC_ESCAPE_TOKEN1, _TC_MASK_FLIP_CASE | 2}

	if !bytes.HasPrefix(encoded, ref) {
		t.Errorf("Expected leading 'The' to reference seed word 'the', got %q", encoded)
	}

	if n := bytes.Count(encoded, ref); n != 5 {
		t.Errorf("Expected 5 case flipped references, got %d in %q", n, encoded)
	}

	if bytes.Contains(encoded, []byte("The")) {
		t.Errorf("Capitalized word emitted literally: %q", encoded)
	}

	if e := codec.dict.find([]byte("The"), 0, 3, hashWord([]byte("The"))); e != nil {
		t.Errorf("Case flipped hit must not create an entry")
	}

	// Dynamic words match with either case of the first letter
	input = []byte("Zorblax met zorblax, then zorblax met Zorblax again.")
	encoded = textRoundTrip(t, codec, input)

	if bytes.Count(encoded, []byte("orblax")) != 1 {
		t.Errorf("Expected a single literal occurrence of the word, got %q", encoded)
	}

	idx := bytes.IndexByte(encoded, _TC_ESCAPE_TOKEN2)

	if idx < 0 || encoded[idx+1]&_TC_MASK_FLIP_CASE == 0 {
		t.Errorf("Expected a case flipped 2 byte index reference, got %q", encoded)
	}
}

func TestTextCodecHashCollision(t *testing.T) {
	w1, w2 := findCollision(t)
	h := hashWord([]byte(w1))
	seed, _ := unpackDictionary([]byte("TheOf"), 16)
	d := newTextDictionary(seed, 10, 64, '@', '^')
	idx1 := d.add([]byte(w1), 0, len(w1), h)

	if d.find([]byte(w2), 0, len(w2), h) != nil {
		t.Fatalf("'%s' matched '%s' (same hash)", w2, w1)
	}

	idx2 := d.add([]byte(w2), 0, len(w2), h)

	if idx1 == idx2 || idx1 < 0 || idx2 < 0 {
		t.Fatalf("Invalid indexes %d and %d", idx1, idx2)
	}

	if e := d.find([]byte(w1), 0, len(w1), h); e == nil || e.idx != idx1 {
		t.Errorf("Cannot find '%s'", w1)
	}

	if e := d.find([]byte(w2), 0, len(w2), h); e == nil || e.idx != idx2 {
		t.Errorf("Cannot find '%s'", w2)
	}

	// Both words must survive a round trip
	codec := newSmallTextCodec(t, "TheOf")
	input := []byte{}

	for i := 0; i < 20; i++ {
		input = append(input, w1...)
		input = append(input, ' ')
		input = append(input, w2...)
		input = append(input, ". "...)
	}

	textRoundTrip(t, codec, input)
}

func TestTextCodecGainGuard(t *testing.T) {
	codec, _ := NewTextCodec()
	input := []byte("a b c d e f g h i j k l m n o p q r s t u v w x y z")
	output := make([]byte, len(input))
	_, _, err := codec.Forward(input, output, uint(len(input)))

	if err == nil {
		t.Fatalf("Forward should fail when there is no gain")
	}

	if errors.Is(err, kzpipe.ErrInvalidArgument) {
		t.Errorf("Unexpected error kind: %v", err)
	}

	binary := make([]byte, 4096)
	rand.New(rand.NewSource(5)).Read(binary)
	output = make([]byte, len(binary))

	if _, _, err = codec.Forward(binary, output, uint(len(binary))); err == nil {
		t.Errorf("Forward should fail on binary data")
	}
}

func TestTextCodecCorrupted(t *testing.T) {
	codec, _ := NewTextCodec()
	output := make([]byte, 1024)
	inputs := [][]byte{
		[]byte("hello ^\xFF\xFF world"), // index never created
		[]byte("hello @"),               // truncated
		[]byte("hello ^\x01"),           // truncated
		[]byte("hello @\x80 world"),     // case flip on a reserved index
	}

	for _, input := range inputs {
		if _, _, err := codec.Inverse(input, output, uint(len(input))); !errors.Is(err, kzpipe.ErrCorruptedData) {
			t.Errorf("Input %q: expected corrupted data error, got %v", input, err)
		}
	}

	small := make([]byte, 4)

	if _, _, err := codec.Inverse([]byte("@\x02@\x02"), small, 4); !errors.Is(err, kzpipe.ErrCorruptedData) {
		t.Errorf("Expected overflow error, got %v", err)
	}
}

func TestTextCodecInvalidConfig(t *testing.T) {
	cases := []struct {
		name        string
		dict        []byte
		logHashSize uint
		dictSize    int
		escape1     byte
		escape2     byte
	}{
		{"EmptyDictionary", nil, 12, 1000, '@', '^'},
		{"SameEscapes", []byte("TheOf"), 12, 1000, '@', '@'},
		{"LetterEscape", []byte("TheOf"), 12, 1000, 'x', '^'},
		{"HashTooSmall", []byte("TheOf"), 4, 10, '@', '^'},
		{"HashTooLarge", []byte("TheOf"), 30, 1000, '@', '^'},
		{"DictTooSmall", []byte("TheOfAndTo"), 12, 6, '@', '^'},
		{"DictTooLarge", []byte("TheOf"), 20, 70000, '@', '^'},
		{"TableNotLarger", []byte("TheOf"), 10, 1024, '@', '^'},
		{"NoWord", []byte("123"), 12, 1000, '@', '^'},
	}

	for _, tc := range cases {
		_, err := NewTextCodecWithDictionary(tc.dict, tc.logHashSize, tc.dictSize, tc.escape1, tc.escape2)

		if !errors.Is(err, kzpipe.ErrInvalidConfig) {
			t.Errorf("%s: expected configuration error, got %v", tc.name, err)
		}
	}

	ctx := map[string]any{"textEscapes": "@^"}

	if _, err := NewTextCodecWithCtx(&ctx); !errors.Is(err, kzpipe.ErrInvalidConfig) {
		t.Errorf("Invalid textEscapes type accepted")
	}
}

func TestTextCodecWithCtx(t *testing.T) {
	blob := []byte("TheCatSatMat")
	ctx := map[string]any{
		"textDictionary": blob,
		"textLogHash":    uint(12),
		"textDictSize":   1000,
		"textEscapes":    [2]byte{0x0F, 0x0E},
	}

	c1, err := NewTextCodecWithCtx(&ctx)

	if err != nil {
		t.Fatalf("Cannot create text codec: %v", err)
	}

	c2, _ := NewTextCodecWithCtx(&ctx)

	if c1.dict.seed != c2.dict.seed {
		t.Errorf("Custom dictionary should be unpacked once")
	}

	input := []byte("the cat sat on the mat, the cat sat on the mat")
	encoded := textRoundTrip(t, c1, input)

	if encoded[0] != 0x0F || encoded[1] != 2 {
		t.Errorf("Expected reference to index 2 with escape 0x0F, got %q", encoded[0:2])
	}

	if blob[0] != 'T' {
		t.Errorf("Custom dictionary blob was modified")
	}
}

func TestDefaultSeedDictionary(t *testing.T) {
	if n := len(_TC_DEFAULT_SEED.entries); n != _TC_SEED_CAPACITY {
		t.Errorf("Expected %d seed words, got %d", _TC_SEED_CAPACITY, n)
	}

	codec, _ := NewTextCodec()

	if e := codec.dict.get(2); e == nil || string(e.word()) != "the" {
		t.Errorf("First seed word should be 'the'")
	}

	if codec.dict.words() != _TC_SEED_CAPACITY+_TC_RESERVED_WORDS {
		t.Errorf("Unexpected word count %d", codec.dict.words())
	}
}
