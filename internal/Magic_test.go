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
package internal

import (
	"testing"
)

func TestGetMagicType(t *testing.T) {
	tests := []struct {
		data       []byte
		magic      uint32
		compressed bool
	}{
		{[]byte{0xFF, 0xD8, 0xFF, 0xE1, 0x00}, JPG_MAGIC, true},
		{[]byte("GIF89a"), GIF_MAGIC, true},
		{[]byte("%PDF-1.7"), PDF_MAGIC, false},
		{[]byte{0x1F, 0x8B, 0x08, 0x00}, GZIP_MAGIC, true},
		{[]byte("BZh91AY"), BZIP2_MAGIC, true},
		{[]byte{0x04, 0x22, 0x4D, 0x18, 0x64}, LZ4_MAGIC, true},
		{[]byte{0x7F, 'E', 'L', 'F', 2}, ELF_MAGIC, false},
		{[]byte("MZ\x90\x00"), WIN_MAGIC, false},
		{[]byte("the quick brown fox"), NO_MAGIC, false},
		{[]byte("PK"), NO_MAGIC, false},
		{nil, NO_MAGIC, false},
	}

	for _, tt := range tests {
		magic := GetMagicType(tt.data)

		if magic != tt.magic {
			t.Errorf("GetMagicType(%q) = %x, expected %x", tt.data, magic, tt.magic)
		}

		if IsDataCompressed(magic) != tt.compressed {
			t.Errorf("IsDataCompressed(%x) should be %v", magic, tt.compressed)
		}
	}
}
