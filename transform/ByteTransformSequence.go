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
	"errors"
	"fmt"

	kzpipe "github.com/kzpipe/kzpipe"
)

// ByteTransformSequence encapsulates a sequence of 1 to 4 transforms.
// The skip flags record which slots did not apply: bit 3-i is set when
// slot i was skipped, unused slots included. The flags computed by Forward
// must be provided (SetSkipFlags) before calling Inverse on another instance.
type ByteTransformSequence struct {
	transforms []kzpipe.ByteTransform
	skipFlags  byte
}

// NewByteTransformSequence creates a new instance of ByteTransformSequence
// containing the transforms provided as parameter.
func NewByteTransformSequence(transforms []kzpipe.ByteTransform) (*ByteTransformSequence, error) {
	if transforms == nil {
		return nil, fmt.Errorf("%w: invalid null transforms parameter", kzpipe.ErrInvalidConfig)
	}

	if len(transforms) == 0 || len(transforms) > kzpipe.TRANSFORM_SLOTS {
		return nil, fmt.Errorf("%w: only 1 to %d transforms allowed, got %d", kzpipe.ErrInvalidConfig,
			kzpipe.TRANSFORM_SLOTS, len(transforms))
	}

	for i, t := range transforms {
		if t == nil {
			return nil, fmt.Errorf("%w: invalid null transform at slot %d", kzpipe.ErrInvalidConfig, i)
		}
	}

	this := &ByteTransformSequence{}
	this.transforms = transforms
	return this, nil
}

func skipBit(slot int) byte {
	return 1 << uint(kzpipe.TRANSFORM_SLOTS-1-slot)
}

// growBuffer extends *buf to at least size bytes, keeping its content.
func growBuffer(buf *[]byte, size int) {
	if len(*buf) >= size {
		return
	}

	if cap(*buf) >= size {
		*buf = (*buf)[0:size]
		return
	}

	newBuf := make([]byte, size)
	copy(newBuf, *buf)
	*buf = newBuf
}

func checkBuffers(src, dst *[]byte, length uint) error {
	if src == nil || *src == nil {
		return fmt.Errorf("%w: invalid null source buffer", kzpipe.ErrInvalidArgument)
	}

	if dst == nil || *dst == nil {
		return fmt.Errorf("%w: invalid null destination buffer", kzpipe.ErrInvalidArgument)
	}

	if src == dst || kzpipe.SameByteSlices(*src, *dst) {
		return fmt.Errorf("%w: input and output buffers cannot be equal", kzpipe.ErrInvalidArgument)
	}

	if uint(len(*src)) < length {
		return fmt.Errorf("%w: block length %d exceeds input buffer size %d", kzpipe.ErrInvalidArgument, length, len(*src))
	}

	return nil
}

// Forward runs Forward on each transform of the sequence. Both buffers are
// used in turn as input and output and may be reallocated to fit the largest
// predicted output. A failed transform is replaced by a copy and its slot
// flagged as skipped. The result always ends in *dst; the content of *src is
// undefined on return.
// Returns number of bytes read, number of bytes written and an error only if
// no transform applied.
func (this *ByteTransformSequence) Forward(src, dst *[]byte, length uint) (uint, uint, error) {
	if err := checkBuffers(src, dst, length); err != nil {
		return 0, 0, err
	}

	if length == 0 {
		return 0, 0, nil
	}

	requiredSize := this.MaxEncodedLen(int(length))
	this.skipFlags = 0
	sa := [2]*[]byte{src, dst}
	saIdx := 0
	count := length
	var err error

	for i, t := range this.transforms {
		growBuffer(sa[saIdx^1], requiredSize)
		in := *sa[saIdx]
		out := *sa[saIdx^1]
		_, oIdx, err1 := t.Forward(in[0:count], out, count)

		if err1 != nil {
			// The transform does not apply to this data => revert
			copy(out[0:count], in[0:count])
			oIdx = count
			this.skipFlags |= skipBit(i)

			if err == nil {
				err = err1
			}
		}

		count = oIdx
		saIdx ^= 1
	}

	for i := len(this.transforms); i < kzpipe.TRANSFORM_SLOTS; i++ {
		this.skipFlags |= skipBit(i)
	}

	if saIdx != 1 {
		growBuffer(dst, int(count))
		copy(*dst, (*src)[0:count])
	}

	if this.skipFlags != kzpipe.TRANSFORM_SKIP_MASK {
		return length, count, nil
	}

	return length, count, fmt.Errorf("%w: %w", kzpipe.ErrTransformSkipped, err)
}

// Inverse runs Inverse on each transform not flagged as skipped, in reverse
// order. Skipped slots do not use a buffer swap. *dst must be large enough
// for the original block; both buffers may be grown to that size.
// Returns number of bytes read, number of bytes written and possibly an error.
func (this *ByteTransformSequence) Inverse(src, dst *[]byte, length uint) (uint, uint, error) {
	if err := checkBuffers(src, dst, length); err != nil {
		return 0, 0, err
	}

	if length == 0 {
		return 0, 0, nil
	}

	if this.skipFlags == kzpipe.TRANSFORM_SKIP_MASK {
		growBuffer(dst, int(length))
		copy(*dst, (*src)[0:length])
		return length, length, nil
	}

	bufSize := len(*dst)

	if len(*src) > bufSize {
		bufSize = len(*src)
	}

	bufSize = this.MaxEncodedLen(bufSize)
	growBuffer(src, bufSize)
	growBuffer(dst, bufSize)
	sa := [2]*[]byte{src, dst}
	saIdx := 0
	count := length

	for i := len(this.transforms) - 1; i >= 0; i-- {
		if this.skipFlags&skipBit(i) != 0 {
			continue
		}

		in := *sa[saIdx]
		saIdx ^= 1
		out := *sa[saIdx]

		// Each stage writes from the start of its output: the cursor it
		// reports is the length of this stage's output.
		_, oIdx, err := this.transforms[i].Inverse(in[0:count], out, count)

		if err != nil {
			if !errors.Is(err, kzpipe.ErrCorruptedData) && !errors.Is(err, kzpipe.ErrInvalidArgument) {
				err = fmt.Errorf("%w: inverse transform in slot %d failed: %w", kzpipe.ErrCorruptedData, i, err)
			}

			return length, 0, err
		}

		count = oIdx
	}

	if saIdx != 1 {
		copy(*dst, (*src)[0:count])
	}

	return length, count, nil
}

// MaxEncodedLen returns the max size required for the encoding output buffer
func (this ByteTransformSequence) MaxEncodedLen(srcLen int) int {
	requiredSize := srcLen

	for _, t := range this.transforms {
		if f, isFunction := t.(kzpipe.ByteFunction); isFunction {
			if reqSize := f.MaxEncodedLen(srcLen); reqSize > requiredSize {
				requiredSize = reqSize
			}
		}
	}

	return requiredSize
}

// inverseBound is implemented by transforms that can bound the size of
// their inverse output.
type inverseBound interface {
	MaxDecodedLen(srcLen int) int
}

// MaxDecodedLen returns an upper bound of the size of the data Inverse can
// produce from srcLen bytes with the current skip flags. A transform without
// a bound yields kzpipe.MAX_BLOCK_SIZE.
func (this *ByteTransformSequence) MaxDecodedLen(srcLen int) int {
	res := srcLen

	for i := len(this.transforms) - 1; i >= 0; i-- {
		if this.skipFlags&skipBit(i) != 0 {
			continue
		}

		b, ok := this.transforms[i].(inverseBound)

		if !ok {
			return kzpipe.MAX_BLOCK_SIZE
		}

		if res = b.MaxDecodedLen(res); res >= kzpipe.MAX_BLOCK_SIZE {
			return kzpipe.MAX_BLOCK_SIZE
		}
	}

	return res
}

// Len returns the number of transforms in the sequence (in [1..4])
func (this *ByteTransformSequence) Len() int {
	return len(this.transforms)
}

// SkipFlags returns the flags describing which transform to
// skip (bit set to 1)
func (this *ByteTransformSequence) SkipFlags() byte {
	return this.skipFlags
}

// SetSkipFlags sets the flags describing which transform to skip.
// Only the 4 low bits are meaningful.
func (this *ByteTransformSequence) SetSkipFlags(flags byte) bool {
	if flags&^kzpipe.TRANSFORM_SKIP_MASK != 0 {
		return false
	}

	this.skipFlags = flags
	return true
}
