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
	_FPAQ_PSCALE = 1 << 16
	_FPAQ_RATE   = 6
)

// FPAQPredictor simple (and fast) adaptive order 0 predictor derived
// from fpaq0r by Matt Mahoney and Alexander Ratushnyak.
// The context is the partial byte plus the 2 top bits of the previous byte.
type FPAQPredictor struct {
	probs  [4][256]int // probability of bit=1 (16 bits)
	ctx    int         // partial byte with a leading 1
	prev   int         // top 2 bits of the previous byte
	pscale int
}

// NewFPAQPredictor creates a new instance of FPAQPredictor
func NewFPAQPredictor() (*FPAQPredictor, error) {
	this := &FPAQPredictor{}
	this.ctx = 1
	this.pscale = _FPAQ_PSCALE

	for i := range this.probs {
		for j := range this.probs[i] {
			this.probs[i][j] = _FPAQ_PSCALE >> 1
		}
	}

	return this, nil
}

// Update updates the probability model based on the observed bit
func (this *FPAQPredictor) Update(bit byte) {
	p := &this.probs[this.prev][this.ctx]

	if bit == 0 {
		*p -= *p >> _FPAQ_RATE
		this.ctx <<= 1
	} else {
		*p -= (*p - this.pscale + 64) >> _FPAQ_RATE
		this.ctx = (this.ctx << 1) | 1
	}

	if this.ctx > 255 {
		this.prev = (this.ctx & 0xFF) >> 6
		this.ctx = 1
	}
}

// Get returns the value representing the probability of the next bit being 1
// in the [1..4095] range.
func (this *FPAQPredictor) Get() int {
	return clampPrediction(this.probs[this.prev][this.ctx] >> 4)
}

// clampPrediction keeps a probability away from 0 and 4096 so that the
// arithmetic coder never gets an empty interval.
func clampPrediction(p int) int {
	if p < 1 {
		return 1
	}

	if p > 4095 {
		return 4095
	}

	return p
}
