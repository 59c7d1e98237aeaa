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
package block

import (
	"fmt"
	"io"
	"sync"
	"time"

	kzpipe "github.com/kzpipe/kzpipe"
)

const (
	ENCODING = 0
	DECODING = 1
)

type blockInfo struct {
	time0      time.Time
	time1      time.Time
	time2      time.Time
	stage0Size int64
	stage1Size int64
}

// InfoPrinter is a Listener printing per block sizes and timings (verbose
// output). Level 4 prints one line per block, level 5 also prints every event.
type InfoPrinter struct {
	writer     io.Writer
	infoType   uint
	blocks     map[int]blockInfo
	thresholds [4]int
	lock       sync.Mutex
	level      uint
}

// NewInfoPrinter creates a new instance of InfoPrinter for encoding or
// decoding events.
func NewInfoPrinter(infoLevel, infoType uint, writer io.Writer) (*InfoPrinter, error) {
	if writer == nil {
		return nil, fmt.Errorf("%w: invalid null writer parameter", kzpipe.ErrInvalidArgument)
	}

	this := &InfoPrinter{}
	this.infoType = infoType & 1
	this.level = infoLevel
	this.writer = writer
	this.blocks = make(map[int]blockInfo)

	if this.infoType == ENCODING {
		this.thresholds = [4]int{
			kzpipe.EVT_BEFORE_TRANSFORM,
			kzpipe.EVT_AFTER_TRANSFORM,
			kzpipe.EVT_BEFORE_ENTROPY,
			kzpipe.EVT_AFTER_ENTROPY,
		}
	} else {
		this.thresholds = [4]int{
			kzpipe.EVT_BEFORE_ENTROPY,
			kzpipe.EVT_AFTER_ENTROPY,
			kzpipe.EVT_BEFORE_TRANSFORM,
			kzpipe.EVT_AFTER_TRANSFORM,
		}
	}

	return this, nil
}

// ProcessEvent records the event and prints the block summary once the
// last stage of a block is reached.
func (this *InfoPrinter) ProcessEvent(evt *kzpipe.Event) {
	id := evt.ID()

	if this.level >= 5 {
		this.lock.Lock()
		fmt.Fprintln(this.writer, evt)
		this.lock.Unlock()
	}

	this.lock.Lock()
	defer this.lock.Unlock()

	switch evt.Type() {
	case this.thresholds[0]:
		this.blocks[id] = blockInfo{time0: evt.Time(), stage0Size: evt.Size()}

	case this.thresholds[1]:
		if bi, exists := this.blocks[id]; exists {
			bi.time1 = evt.Time()
			this.blocks[id] = bi
		}

	case this.thresholds[2]:
		if bi, exists := this.blocks[id]; exists {
			bi.time2 = evt.Time()
			bi.stage1Size = evt.Size()
			this.blocks[id] = bi
		}

	case this.thresholds[3]:
		bi, exists := this.blocks[id]

		if !exists {
			return
		}

		delete(this.blocks, id)

		if this.level < 4 {
			return
		}

		duration1 := bi.time1.Sub(bi.time0).Milliseconds()
		duration2 := evt.Time().Sub(bi.time2).Milliseconds()
		stage2Size := evt.Size()
		msg := fmt.Sprintf("Block %d: %d => %d [%d ms] => %d [%d ms]", id,
			bi.stage0Size, bi.stage1Size, duration1, stage2Size, duration2)

		if this.infoType == ENCODING && bi.stage0Size != 0 {
			msg += fmt.Sprintf(" (%d%%)", stage2Size*100/bi.stage0Size)
		}

		if evt.Hashing() {
			msg += fmt.Sprintf("  [%08x]", evt.Hash())
		}

		fmt.Fprintln(this.writer, msg)
	}
}
