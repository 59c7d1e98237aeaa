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
package hash

import (
	"math/rand"
	"testing"
)

func TestXXHash32KnownValue(t *testing.T) {
	if h := Sum32(nil); h != 0x02CC5D05 {
		t.Errorf("Empty input: expected 0x02CC5D05, got 0x%08X", h)
	}
}

func TestXXHash32Seed(t *testing.T) {
	buf := make([]byte, 1000)

	for i := range buf {
		buf[i] = byte(rand.Intn(256))
	}

	h1, _ := NewXXHash32(0)
	h2, _ := NewXXHash32(0x9E3779B9)

	for _, n := range []int{0, 3, 15, 16, 17, 63, 1000} {
		if h1.Hash(buf[0:n]) != Sum32(buf[0:n]) {
			t.Errorf("Length %d: seeded and unseeded hash differ for seed 0", n)
		}

		if h1.Hash(buf[0:n]) == h2.Hash(buf[0:n]) {
			t.Errorf("Length %d: distinct seeds gave the same hash", n)
		}
	}

	h2.SetSeed(0)

	if h2.Hash(buf) != h1.Hash(buf) || h2.Seed() != 0 {
		t.Errorf("SetSeed did not apply")
	}
}

func TestXXHash32Sensitivity(t *testing.T) {
	buf := []byte("the cat sat on the mat, the cat sat on the mat")
	ref := Sum32(buf)

	for i := range buf {
		buf[i] ^= 1

		if Sum32(buf) == ref {
			t.Errorf("Flipping byte %d did not change the hash", i)
		}

		buf[i] ^= 1
	}
}
