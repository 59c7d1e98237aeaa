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
	_PAQ_FAST_RATE = 4
	_PAQ_SLOW_RATE = 7
	_PAQ_APM_RATE  = 7
)

// PAQPredictor order 0 predictor mixing a fast and a slow adapting counter
// per partial byte. The average is refined by an APM indexed by the
// partial byte.
type PAQPredictor struct {
	fast [256]int // probability of bit=1 (16 bits)
	slow [256]int
	apm  *LogisticProbMap
	ctx  int // partial byte with a leading 1
	pr   int
}

// NewPAQPredictor creates a new instance of PAQPredictor
func NewPAQPredictor() (*PAQPredictor, error) {
	apm, err := NewLogisticProbMap(256, _PAQ_APM_RATE)

	if err != nil {
		return nil, err
	}

	this := &PAQPredictor{}
	this.apm = apm
	this.ctx = 1

	for i := range this.fast {
		this.fast[i] = 1 << 15
		this.slow[i] = 1 << 15
	}

	this.pr = this.predict(0)
	return this, nil
}

// Update updates the counters of the current context, moves to the next
// context and computes the next prediction.
func (this *PAQPredictor) Update(bit byte) {
	if bit == 0 {
		this.fast[this.ctx] -= this.fast[this.ctx] >> _PAQ_FAST_RATE
		this.slow[this.ctx] -= this.slow[this.ctx] >> _PAQ_SLOW_RATE
		this.ctx <<= 1
	} else {
		this.fast[this.ctx] += (65536 - this.fast[this.ctx]) >> _PAQ_FAST_RATE
		this.slow[this.ctx] += (65536 - this.slow[this.ctx]) >> _PAQ_SLOW_RATE
		this.ctx = (this.ctx << 1) | 1
	}

	if this.ctx > 255 {
		this.ctx = 1
	}

	this.pr = this.predict(int(bit))
}

func (this *PAQPredictor) predict(bit int) int {
	p := clampPrediction((this.fast[this.ctx] + this.slow[this.ctx]) >> 5)
	return clampPrediction((p + 3*this.apm.Get(bit, p, this.ctx)) >> 2)
}

// Get returns the value representing the probability of the next bit being 1
// in the [1..4095] range.
func (this *PAQPredictor) Get() int {
	return this.pr
}
