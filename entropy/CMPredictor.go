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

const (
	_CM_FAST_RATE   = 2
	_CM_MEDIUM_RATE = 4
	_CM_SLOW_RATE   = 6
	_CM_PSCALE      = 65536
)

// CMPredictor context model predictor derived from BCM by Ilya Muravyov.
// Order 0 and order 1 counters are mixed with a fixed ratio, then refined
// by an interpolated secondary estimation indexed by the partial byte and
// by whether the last 2 bytes were equal.
type CMPredictor struct {
	c1       byte
	c2       byte
	ctx      int32 // partial byte with a leading 1
	runMask  int32
	counter1 [256][257]int32 // [partial byte][previous byte], slot 256 is order 0
	counter2 [512][17]int32  // [run flag | partial byte][quantized prob]
	idx      int
}

// NewCMPredictor creates a new instance of CMPredictor
func NewCMPredictor() (*CMPredictor, error) {
	this := &CMPredictor{}
	this.ctx = 1

	for i := range this.counter1 {
		for j := range this.counter1[i] {
			this.counter1[i][j] = _CM_PSCALE >> 1
		}
	}

	for i := range this.counter2 {
		for j := 0; j < 16; j++ {
			this.counter2[i][j] = int32(j << 12)
		}

		this.counter2[i][16] = _CM_PSCALE - 1
	}

	return this, nil
}

// Update updates the probability model based on the internal bit counters
func (this *CMPredictor) Update(bit byte) {
	pc1 := &this.counter1[this.ctx]
	pc2 := &this.counter2[this.ctx|this.runMask]

	if bit == 0 {
		pc1[256] -= pc1[256] >> _CM_FAST_RATE
		pc1[this.c1] -= pc1[this.c1] >> _CM_MEDIUM_RATE
		pc2[this.idx] -= pc2[this.idx] >> _CM_SLOW_RATE
		pc2[this.idx+1] -= pc2[this.idx+1] >> _CM_SLOW_RATE
		this.ctx += this.ctx
	} else {
		pc1[256] -= (pc1[256] - _CM_PSCALE + 16) >> _CM_FAST_RATE
		pc1[this.c1] -= (pc1[this.c1] - _CM_PSCALE + 16) >> _CM_MEDIUM_RATE
		pc2[this.idx] -= (pc2[this.idx] - _CM_PSCALE + 16) >> _CM_SLOW_RATE
		pc2[this.idx+1] -= (pc2[this.idx+1] - _CM_PSCALE + 16) >> _CM_SLOW_RATE
		this.ctx += this.ctx + 1
	}

	if this.ctx > 255 {
		this.c2 = this.c1
		this.c1 = byte(this.ctx)
		this.ctx = 1

		if this.c1 == this.c2 {
			this.runMask = 0x100
		} else {
			this.runMask = 0
		}
	}
}

// Get returns the value representing the probability of the next bit being 1
// in the [1..4095] range.
func (this *CMPredictor) Get() int {
	pc1 := &this.counter1[this.ctx]
	pc2 := &this.counter2[this.ctx|this.runMask]
	p := int(13*(pc1[256]+pc1[this.c1])+6*pc1[this.c2]) >> 5
	this.idx = p >> 12
	x1 := int(pc2[this.idx])
	x2 := int(pc2[this.idx+1])
	return clampPrediction((p + p + 3*(x1+x2) + 64) >> 7)
}
