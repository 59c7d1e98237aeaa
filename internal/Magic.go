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
	"encoding/binary"
)

const (
	NO_MAGIC     = 0
	JPG_MAGIC    = 0xFFD8FFE0 // low nibble varies (JFIF, EXIF, ...)
	GIF_MAGIC    = 0x47494638
	PDF_MAGIC    = 0x25504446
	ZIP_MAGIC    = 0x504B0304 // Works for jar & office docs
	LZMA_MAGIC   = 0x377ABCAF // 7z
	PNG_MAGIC    = 0x89504E47
	ELF_MAGIC    = 0x7F454C46
	MAC_MAGIC32  = 0xFEEDFACE
	MAC_CIGAM32  = 0xCEFAEDFE
	MAC_MAGIC64  = 0xFEEDFACF
	MAC_CIGAM64  = 0xCFFAEDFE
	ZSTD_MAGIC   = 0x28B52FFD
	BROTLI_MAGIC = 0x81CFB2CE
	RIFF_MAGIC   = 0x52494646 // WAV, AVI, WEBP
	CAB_MAGIC    = 0x4D534346
	XZ_MAGIC     = 0xFD377A58
	LZ4_MAGIC    = 0x04224D18
	BZIP2_MAGIC  = 0x425A68 // 24 bits
	GZIP_MAGIC   = 0x1F8B   // 16 bits
	BMP_MAGIC    = 0x424D   // 16 bits
	WIN_MAGIC    = 0x4D5A   // 16 bits
)

var (
	_MAGIC_KEYS32 = [...]uint32{
		GIF_MAGIC, PDF_MAGIC, ZIP_MAGIC, LZMA_MAGIC, PNG_MAGIC, ELF_MAGIC,
		MAC_MAGIC32, MAC_CIGAM32, MAC_MAGIC64, MAC_CIGAM64, ZSTD_MAGIC,
		BROTLI_MAGIC, RIFF_MAGIC, CAB_MAGIC, XZ_MAGIC, LZ4_MAGIC,
	}

	_MAGIC_KEYS16 = [...]uint32{GZIP_MAGIC, BMP_MAGIC, WIN_MAGIC}
)

// GetMagicType returns the file format magic value found at the start of
// the slice or NO_MAGIC. A slice of less than 4 bytes has no magic.
func GetMagicType(src []byte) uint32 {
	if len(src) < 4 {
		return NO_MAGIC
	}

	key := binary.BigEndian.Uint32(src)

	if key&^0x0F == JPG_MAGIC {
		return JPG_MAGIC
	}

	if key>>8 == BZIP2_MAGIC {
		return BZIP2_MAGIC
	}

	for _, k := range _MAGIC_KEYS32 {
		if key == k {
			return key
		}
	}

	for _, k := range _MAGIC_KEYS16 {
		if key>>16 == k {
			return k
		}
	}

	return NO_MAGIC
}

// IsDataCompressed returns true if the magic value is the one of an already
// compressed format (images, archives, compressed streams).
func IsDataCompressed(magic uint32) bool {
	switch magic {
	case JPG_MAGIC, GIF_MAGIC, PNG_MAGIC, ZIP_MAGIC, LZMA_MAGIC, ZSTD_MAGIC,
		BROTLI_MAGIC, CAB_MAGIC, XZ_MAGIC, LZ4_MAGIC, BZIP2_MAGIC, GZIP_MAGIC:
		return true
	}

	return false
}
