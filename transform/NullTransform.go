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
	"fmt"

	kzpipe "github.com/kzpipe/kzpipe"
)

// NullTransform is a pass through byte function
type NullTransform struct {
}

// NewNullTransform creates a new instance of NullTransform
func NewNullTransform() (*NullTransform, error) {
	return &NullTransform{}, nil
}

func doCopy(src, dst []byte, length uint) (uint, uint, error) {
	if length == 0 {
		return 0, 0, nil
	}

	if uint(len(src)) < length {
		return 0, 0, fmt.Errorf("%w: block length %d exceeds input buffer size %d", kzpipe.ErrInvalidArgument, length, len(src))
	}

	if uint(len(dst)) < length {
		return 0, 0, fmt.Errorf("%w: output buffer too small (%d < %d)", kzpipe.ErrInvalidArgument, len(dst), length)
	}

	if !kzpipe.SameByteSlices(src, dst) {
		copy(dst, src[0:length])
	}

	return length, length, nil
}

// Forward copies src[0:length] to dst
func (this *NullTransform) Forward(src, dst []byte, length uint) (uint, uint, error) {
	return doCopy(src, dst, length)
}

// Inverse copies src[0:length] to dst
func (this *NullTransform) Inverse(src, dst []byte, length uint) (uint, uint, error) {
	return doCopy(src, dst, length)
}

// MaxEncodedLen returns the max size required for the encoding output buffer
func (this NullTransform) MaxEncodedLen(srcLen int) int {
	return srcLen
}

// MaxDecodedLen returns the max size of the inverse output
func (this NullTransform) MaxDecodedLen(srcLen int) int {
	return srcLen
}
