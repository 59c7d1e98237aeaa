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

// Tangelo style context mixing predictor: bit histories of orders 0 to 4,
// order 6 and the current word are kept as 16 bit probabilities in one
// hashed table, a match model predicts the bit following the longest
// recent repetition, a gated linear mixer in the logistic domain combines
// everything and an APM indexed by the last byte and partial byte refines
// the result.

const (
	_TPAQ_MIN_LOG_HASH  = 16
	_TPAQ_MAX_LOG_HASH  = 24
	_TPAQ_NB_CTX        = 7 // orders 0, 1, 2, 3, 4, 6 and word
	_TPAQ_NB_INPUTS     = _TPAQ_NB_CTX + 2
	_TPAQ_MATCH_LOG_BUF = 22
	_TPAQ_MATCH_LOG_MAP = 20
	_TPAQ_MATCH_MIN_LEN = 6
	_TPAQ_MATCH_MAX_LEN = 28
	_TPAQ_MATCH_VERIFY  = 32
	_TPAQ_MIXER_INIT    = 16384
	_TPAQ_MIXER_RATE    = 6
	_TPAQ_COUNTER_RATE  = 4
	_TPAQ_APM_RATE      = 7
	_TPAQ_BIAS          = 256
	_TPAQ_HASH1         = uint32(0x9E3779B1)
	_TPAQ_HASH2         = uint32(0x85EBCA77)
	_TPAQ_HASH3         = uint32(0xC2B2AE3D)
)

func tpaqHash(x, y uint32) uint32 {
	h := x*_TPAQ_HASH1 ^ y*_TPAQ_HASH2
	h ^= h >> 15
	h *= _TPAQ_HASH3
	return h ^ (h >> 13)
}

// TPAQPredictor context mixing predictor for the binary entropy coder
type TPAQPredictor struct {
	pr       int // final prediction
	mixerPr  int // mixer output before the APM
	c0       int // partial byte with a leading 1
	bpos     uint
	c4       uint32 // last 4 bytes
	c8       uint32 // 4 bytes before c4
	wordHash uint32
	logHash  uint
	hashMask int
	table    []uint16 // hashed bit histories, 256 slots per context
	order0   [256]uint16
	bases    [_TPAQ_NB_CTX - 1]int
	probs    [_TPAQ_NB_CTX]*uint16 // counters used by the current bit
	inputs   [_TPAQ_NB_INPUTS]int
	weights  []int // [partial byte][input]
	apm      *LogisticProbMap

	// match model
	buffer   []byte
	pos      int
	matchMap []int32
	matchPtr int
	matchLen int
}

// NewTPAQPredictor creates a predictor whose hashed context table holds
// 1<<logHash counters.
func NewTPAQPredictor(logHash uint) (*TPAQPredictor, error) {
	if logHash < _TPAQ_MIN_LOG_HASH || logHash > _TPAQ_MAX_LOG_HASH {
		return nil, fmt.Errorf("%w: TPAQ predictor: the log of the hash table size must be in [%d..%d], got %d",
			kzpipe.ErrInvalidConfig, _TPAQ_MIN_LOG_HASH, _TPAQ_MAX_LOG_HASH, logHash)
	}

	apm, err := NewLogisticProbMap(65536, _TPAQ_APM_RATE)

	if err != nil {
		return nil, err
	}

	this := &TPAQPredictor{}
	this.logHash = logHash
	this.hashMask = (1 << logHash) - 1
	this.table = make([]uint16, 1<<logHash)
	this.weights = make([]int, 256*_TPAQ_NB_INPUTS)
	this.buffer = make([]byte, 1<<_TPAQ_MATCH_LOG_BUF)
	this.matchMap = make([]int32, 1<<_TPAQ_MATCH_LOG_MAP)
	this.apm = apm
	this.c0 = 1

	for i := range this.table {
		this.table[i] = 1 << 15
	}

	for i := range this.order0 {
		this.order0[i] = 1 << 15
	}

	for i := range this.weights {
		this.weights[i] = _TPAQ_MIXER_INIT
	}

	this.computeBases()
	this.predict(0)
	return this, nil
}

// LogHash returns the log of the size of the hashed context table
func (this *TPAQPredictor) LogHash() uint {
	return this.logHash
}

// Update updates all the models with the observed bit and computes the
// prediction for the next bit.
func (this *TPAQPredictor) Update(bit byte) {
	y := int(bit)

	for _, p := range this.probs {
		if y == 0 {
			*p -= *p >> _TPAQ_COUNTER_RATE
		} else {
			*p += uint16((65536 - int(*p)) >> _TPAQ_COUNTER_RATE)
		}
	}

	// Mixer training
	err := ((y << 12) - this.mixerPr) * _TPAQ_MIXER_RATE
	w := this.weights[this.c0*_TPAQ_NB_INPUTS : (this.c0+1)*_TPAQ_NB_INPUTS]

	for i, x := range this.inputs {
		w[i] += (x * err) >> 16
	}

	this.c0 = (this.c0 << 1) | y
	this.bpos++

	if this.bpos == 8 {
		this.endOfByte(byte(this.c0))
		this.c0 = 1
		this.bpos = 0
	}

	this.predict(y)
}

func (this *TPAQPredictor) endOfByte(c byte) {
	this.c8 = (this.c8 << 8) | (this.c4 >> 24)
	this.c4 = (this.c4 << 8) | uint32(c)

	if lc := c | 0x20; lc >= 'a' && lc <= 'z' {
		this.wordHash = (this.wordHash + uint32(lc)) * _TPAQ_HASH1
	} else {
		this.wordHash = 0
	}

	this.updateMatch(c)
	this.computeBases()
}

func (this *TPAQPredictor) updateMatch(c byte) {
	bufMask := len(this.buffer) - 1
	this.buffer[this.pos&bufMask] = c
	this.pos++

	if this.matchLen > 0 {
		if this.buffer[this.matchPtr&bufMask] == c {
			this.matchPtr++

			if this.matchLen < 65535 {
				this.matchLen++
			}
		} else {
			this.matchLen = 0
		}
	}

	if this.pos < _TPAQ_MATCH_MIN_LEN {
		return
	}

	h := tpaqHash(this.c4, this.c8&0xFFFF) >> (32 - _TPAQ_MATCH_LOG_MAP)

	if this.matchLen == 0 {
		if ptr := int(this.matchMap[h]); ptr > 0 && this.pos-ptr < len(this.buffer) {
			n := 0

			for n < _TPAQ_MATCH_VERIFY && n < ptr &&
				this.buffer[(ptr-1-n)&bufMask] == this.buffer[(this.pos-1-n)&bufMask] {
				n++
			}

			if n >= _TPAQ_MATCH_MIN_LEN {
				this.matchLen = n
				this.matchPtr = ptr
			}
		}
	}

	this.matchMap[h] = int32(this.pos)
}

func (this *TPAQPredictor) computeBases() {
	shift := 32 - this.logHash
	c4 := this.c4
	ctxs := [_TPAQ_NB_CTX - 1]uint32{
		c4 & 0xFF,
		c4 & 0xFFFF,
		c4 & 0xFFFFFF,
		c4,
		c4 ^ ((this.c8 & 0xFFFF) * _TPAQ_HASH3),
		this.wordHash ^ (c4 & 0xFF),
	}

	for i, v := range ctxs {
		this.bases[i] = int(tpaqHash(uint32(i+1), v)>>shift) &^ 0xFF
	}
}

func (this *TPAQPredictor) predict(bit int) {
	this.probs[0] = &this.order0[this.c0]

	for i, base := range this.bases {
		this.probs[i+1] = &this.table[(base|this.c0)&this.hashMask]
	}

	for i, p := range this.probs {
		this.inputs[i] = kzpipe.STRETCH[*p>>4]
	}

	this.inputs[_TPAQ_NB_CTX] = this.matchInput()
	this.inputs[_TPAQ_NB_CTX+1] = _TPAQ_BIAS
	w := this.weights[this.c0*_TPAQ_NB_INPUTS : (this.c0+1)*_TPAQ_NB_INPUTS]
	dot := 0

	for i, x := range this.inputs {
		dot += x * w[i]
	}

	this.mixerPr = kzpipe.Squash(dot >> 16)
	ctx := this.c0 | int(this.c4&0xFF)<<8
	this.pr = clampPrediction((this.mixerPr + 3*this.apm.Get(bit, this.mixerPr, ctx)) >> 2)
}

// matchInput returns a stretched vote for the bit following the match, or 0
// when there is no match or the partial byte already disagrees with it.
func (this *TPAQPredictor) matchInput() int {
	if this.matchLen == 0 {
		return 0
	}

	expected := int(this.buffer[this.matchPtr&(len(this.buffer)-1)]) | 0x100

	if expected>>(8-this.bpos) != this.c0 {
		return 0
	}

	vote := min(this.matchLen, _TPAQ_MATCH_MAX_LEN) << 6

	if (expected>>(7-this.bpos))&1 == 0 {
		return -vote
	}

	return vote
}

// Get returns the value representing the probability of the next bit being 1
// in the [1..4095] range.
func (this *TPAQPredictor) Get() int {
	return this.pr
}
