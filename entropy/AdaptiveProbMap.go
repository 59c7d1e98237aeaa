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
	"fmt"

	kzpipe "github.com/kzpipe/kzpipe"
)

const _APM_BUCKETS = 33

// LogisticProbMap refines a probability given a context (secondary symbol
// estimation). The input probability is stretched and quantized into 33
// buckets per context, the output is interpolated between the two nearest
// buckets. Both buckets move towards the observed bit on the next call.
type LogisticProbMap struct {
	index    int      // first bucket used by the last prediction
	rate     uint     // update rate
	data     []uint16 // context, stretched prob -> prob (16 bits)
	gradient [2]int
}

// NewLogisticProbMap creates a map with 'n' contexts and the given update
// rate (a shift, higher is slower).
func NewLogisticProbMap(n int, rate uint) (*LogisticProbMap, error) {
	if n <= 0 {
		return nil, fmt.Errorf("%w: APM: the number of contexts must be positive, got %d", kzpipe.ErrInvalidConfig, n)
	}

	if rate == 0 || rate > 15 {
		return nil, fmt.Errorf("%w: APM: the update rate must be in [1..15], got %d", kzpipe.ErrInvalidConfig, rate)
	}

	this := &LogisticProbMap{}
	this.data = make([]uint16, n*_APM_BUCKETS)
	this.rate = rate

	for j := 0; j < _APM_BUCKETS; j++ {
		this.data[j] = uint16(kzpipe.Squash((j-16)<<7) << 4)
	}

	for i := 1; i < n; i++ {
		copy(this.data[i*_APM_BUCKETS:], this.data[0:_APM_BUCKETS])
	}

	this.gradient[1] = 65528 + (1 << rate)
	return this, nil
}

// Get updates the buckets of the previous prediction with 'bit', then returns
// the refined probability (12 bits) for 'pr' (12 bits) in context 'ctx'.
func (this *LogisticProbMap) Get(bit int, pr int, ctx int) int {
	g := this.gradient[bit&1]
	this.data[this.index] += uint16((g - int(this.data[this.index])) >> this.rate)
	this.data[this.index+1] += uint16((g - int(this.data[this.index+1])) >> this.rate)

	pr = kzpipe.STRETCH[pr]
	this.index = ((pr + 2048) >> 7) + _APM_BUCKETS*ctx
	w := pr & 127
	return (int(this.data[this.index+1])*w + int(this.data[this.index])*(128-w)) >> 11
}
