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

package kzpipe

import (
	"errors"
	"math/bits"
)

// array with 33 elements: 65536/(1 + exp(-alpha*x))
var _INV_EXP = [33]int{
	// alpha = 0.54
	0, 8, 22, 47, 88, 160, 283, 492,
	848, 1451, 2459, 4117, 6766, 10819, 16608, 24127,
	32768, 41409, 48928, 54717, 58770, 61419, 63077, 64085,
	64688, 65044, 65253, 65376, 65448, 65489, 65514, 65528,
	65536,
}

// SQUASH contains p = 1/(1 + exp(-d)), d scaled by 8 bits, p scaled by 12 bits
var SQUASH [4096]int

// STRETCH is the inverse of squash. d = ln(p/(1-p)), d scaled by 8 bits, p by 12 bits.
// d has range -2047 to 2047 representing -8 to 8. p in [0..4095].
var STRETCH [4096]int

func init() {
	for x := -2047; x <= 2047; x++ {
		w := x & 127
		y := (x >> 7) + 16
		SQUASH[x+2047] = (_INV_EXP[y]*(128-w) + _INV_EXP[y+1]*w) >> 11
	}

	pi := 0

	for x := -2047; x <= 2047; x++ {
		i := Squash(x)

		for pi <= i {
			STRETCH[pi] = x
			pi++
		}
	}

	STRETCH[4095] = 2047
}

// Squash returns p = 1/(1 + exp(-d)), d scaled by 8 bits, p scaled by 12 bits
func Squash(d int) int {
	if d >= 2048 {
		return 4095
	}

	if d <= -2048 {
		return 0
	}

	return SQUASH[d+2047]
}

// Log2 returns the integer part of log2(x)
func Log2(x uint32) (uint32, error) {
	if x == 0 {
		return 0, errors.New("Cannot calculate log of a negative or null value")
	}

	return Log2NoCheck(x), nil
}

// Log2NoCheck does the same as Log2() minus a null check on input value
func Log2NoCheck(x uint32) uint32 {
	return uint32(bits.Len32(x) - 1)
}
