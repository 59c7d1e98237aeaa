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
// Package block runs one block of bytes through a transform sequence and an
// entropy coder, and back.
//
// Encoded block layout:
//
//	mask byte (low nibble: transform skip flags, high nibble: zero)
//	varint    original length
//	varint    transformed length
//	uint32    XXHash32 of the original block (only with checksum)
//	...       entropy coded transformed block
package block

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	kzpipe "github.com/kzpipe/kzpipe"
	"github.com/kzpipe/kzpipe/bitstream"
	"github.com/kzpipe/kzpipe/entropy"
	"github.com/kzpipe/kzpipe/hash"
	"github.com/kzpipe/kzpipe/internal"
	"github.com/kzpipe/kzpipe/transform"
)

const (
	_BLOCK_HASH_SEED   = 0x4B5A5031
	_BLOCK_BUFFER_SIZE = 16384
	_RESERVED_MASK     = ^kzpipe.TRANSFORM_SKIP_MASK
)

// BlockCodec compresses and decompresses independent blocks with a fixed
// transform sequence and entropy coder. A fresh sequence and coder are
// built for each block so one instance can be shared between goroutines.
type BlockCodec struct {
	ctx           map[string]any
	transformType uint64
	entropyType   uint32
	hasher        *hash.XXHash32
	skipBlocks    bool
	listeners     []kzpipe.Listener
	lock          sync.RWMutex
	blockID       atomic.Int32
}

// NewBlockCodec creates a new instance of BlockCodec. Recognized keys:
// "transform" (eg. "TEXT+LZ4", default "NONE"), "entropy" (eg. "HUFFMAN",
// default "NONE"), "checksum" (bool) and "skipBlocks" (bool: do not
// transform blocks starting with the header of a compressed format).
// The other keys (text codec options) are passed to the transforms.
func NewBlockCodec(ctx map[string]any) (*BlockCodec, error) {
	this := &BlockCodec{}
	this.ctx = make(map[string]any, len(ctx)+1)

	for k, v := range ctx {
		this.ctx[k] = v
	}

	tName, err := ctxString(ctx, "transform", "NONE")

	if err != nil {
		return nil, newError(kzpipe.ERR_INVALID_PARAM, err)
	}

	if this.transformType, err = transform.GetType(tName); err != nil {
		return nil, newError(kzpipe.ERR_INVALID_CODEC, err)
	}

	eName, err := ctxString(ctx, "entropy", "NONE")

	if err != nil {
		return nil, newError(kzpipe.ERR_INVALID_PARAM, err)
	}

	if this.entropyType, err = entropy.GetType(eName); err != nil {
		return nil, newError(kzpipe.ERR_INVALID_CODEC, err)
	}

	checksum, err := ctxBool(ctx, "checksum")

	if err != nil {
		return nil, newError(kzpipe.ERR_INVALID_PARAM, err)
	}

	if checksum {
		this.hasher, _ = hash.NewXXHash32(_BLOCK_HASH_SEED)
	}

	if this.skipBlocks, err = ctxBool(ctx, "skipBlocks"); err != nil {
		return nil, newError(kzpipe.ERR_INVALID_PARAM, err)
	}

	// Fail early on bad transform options
	checkCtx := this.blockContext(0)

	if _, err = transform.New(&checkCtx, this.transformType); err != nil {
		return nil, newError(kzpipe.ERR_INVALID_PARAM, err)
	}

	return this, nil
}

func ctxString(ctx map[string]any, key, defaultValue string) (string, error) {
	val, containsKey := ctx[key]

	if !containsKey {
		return defaultValue, nil
	}

	if s, isString := val.(string); isString {
		return s, nil
	}

	return "", fmt.Errorf("%w: invalid value for '%s': %v", kzpipe.ErrInvalidConfig, key, val)
}

func ctxBool(ctx map[string]any, key string) (bool, error) {
	val, containsKey := ctx[key]

	if !containsKey {
		return false, nil
	}

	if b, isBool := val.(bool); isBool {
		return b, nil
	}

	return false, fmt.Errorf("%w: invalid value for '%s': %v", kzpipe.ErrInvalidConfig, key, val)
}

func (this *BlockCodec) blockContext(blockSize int) map[string]any {
	res := make(map[string]any, len(this.ctx)+1)

	for k, v := range this.ctx {
		res[k] = v
	}

	res["blockSize"] = blockSize
	return res
}

// AddListener adds an event listener to this codec.
// Returns true if the listener has been added.
func (this *BlockCodec) AddListener(bl kzpipe.Listener) bool {
	if bl == nil {
		return false
	}

	this.lock.Lock()
	this.listeners = append(this.listeners, bl)
	this.lock.Unlock()
	return true
}

// RemoveListener removes an event listener from this codec.
// Returns true if the listener has been removed.
func (this *BlockCodec) RemoveListener(bl kzpipe.Listener) bool {
	this.lock.Lock()
	defer this.lock.Unlock()

	for i, e := range this.listeners {
		if e == bl {
			this.listeners = append(this.listeners[:i], this.listeners[i+1:]...)
			return true
		}
	}

	return false
}

func (this *BlockCodec) notify(evtType, id int, size int64, checksum uint32) {
	this.lock.RLock()
	listeners := this.listeners
	this.lock.RUnlock()

	if len(listeners) == 0 {
		return
	}

	evt := kzpipe.NewEvent(evtType, id, size, checksum, this.hasher != nil, time.Now())
	notifyListeners(listeners, evt)
}

func notifyListeners(listeners []kzpipe.Listener, evt *kzpipe.Event) {
	defer func() {
		//lint:ignore SA9003 ignore panics in listeners
		if r := recover(); r != nil {
			// Ignore panics in block listeners
		}
	}()

	for _, bl := range listeners {
		bl.ProcessEvent(evt)
	}
}

// recoverError turns a panic (bitstream failure) into an Error
func recoverError(r any, res *error) {
	if err, isErr := r.(error); isErr {
		*res = newError(kzpipe.ERR_PROCESS_BLOCK, err)
	} else {
		*res = newErrorf(kzpipe.ERR_PROCESS_BLOCK, "%v", r)
	}
}

func (this *BlockCodec) skipTransforms(block []byte) bool {
	return this.skipBlocks && internal.IsDataCompressed(internal.GetMagicType(block))
}

// Compress encodes the block and returns the encoded bytes.
func (this *BlockCodec) Compress(block []byte) (res []byte, err error) {
	if len(block) > kzpipe.MAX_BLOCK_SIZE {
		return nil, newErrorf(kzpipe.ERR_BLOCK_SIZE, "%w: block size %d exceeds %d", kzpipe.ErrInvalidArgument,
			len(block), kzpipe.MAX_BLOCK_SIZE)
	}

	defer func() {
		if r := recover(); r != nil {
			res = nil
			recoverError(r, &err)
		}
	}()

	id := int(this.blockID.Add(1))
	checksum := uint32(0)

	if this.hasher != nil {
		checksum = this.hasher.Hash(block)
	}

	this.notify(kzpipe.EVT_BEFORE_TRANSFORM, id, int64(len(block)), checksum)
	ctx := this.blockContext(len(block))
	seq, err := transform.New(&ctx, this.transformType)

	if err != nil {
		return nil, newError(kzpipe.ERR_CREATE_CODEC, err)
	}

	// The sequence uses both buffers in turn: work on a copy of the block
	data := make([]byte, len(block))
	copy(data, block)
	buffer := make([]byte, seq.MaxEncodedLen(len(block)))
	mask := kzpipe.TRANSFORM_SKIP_MASK
	postTransformLength := uint(len(block))

	if len(block) > 0 && !this.skipTransforms(block) {
		_, postTransformLength, err = seq.Forward(&data, &buffer, uint(len(block)))

		if err != nil && !errors.Is(err, kzpipe.ErrTransformSkipped) {
			return nil, newError(kzpipe.ERR_PROCESS_BLOCK, err)
		}

		mask = seq.SkipFlags()
	} else {
		buffer = data
	}

	this.notify(kzpipe.EVT_AFTER_TRANSFORM, id, int64(postTransformLength), checksum)

	bs := internal.NewBufferStream()
	obs, _ := bitstream.NewDefaultOutputBitStream(bs, _BLOCK_BUFFER_SIZE)
	obs.WriteBits(uint64(mask), 8)
	entropy.WriteVarInt(obs, uint32(len(block)))
	entropy.WriteVarInt(obs, uint32(postTransformLength))

	if this.hasher != nil {
		obs.WriteBits(uint64(checksum), 32)
	}

	this.notify(kzpipe.EVT_BEFORE_ENTROPY, id, int64(postTransformLength), checksum)

	// Rebuild the entropy encoder to reset block statistics
	ee, err := entropy.NewEntropyEncoder(obs, ctx, this.entropyType)

	if err != nil {
		return nil, newError(kzpipe.ERR_CREATE_CODEC, err)
	}

	if _, err = ee.Write(buffer[0:postTransformLength]); err != nil {
		return nil, newError(kzpipe.ERR_PROCESS_BLOCK, err)
	}

	// Dispose may write to the bitstream
	ee.Dispose()

	if err = obs.Close(); err != nil {
		return nil, newError(kzpipe.ERR_WRITE_FILE, err)
	}

	this.notify(kzpipe.EVT_AFTER_ENTROPY, id, int64(bs.Len()), checksum)
	return bs.Bytes(), nil
}

// Decompress decodes a block produced by Compress with the same
// configuration and returns the original bytes.
func (this *BlockCodec) Decompress(encoded []byte) (res []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			res = nil
			recoverError(r, &err)
		}
	}()

	id := int(this.blockID.Add(1))
	ibs, _ := bitstream.NewDefaultInputBitStream(internal.NewBufferStream(encoded), _BLOCK_BUFFER_SIZE)
	mask := byte(ibs.ReadBits(8))

	if mask&_RESERVED_MASK != 0 {
		return nil, newErrorf(kzpipe.ERR_INVALID_FILE, "%w: invalid block mode 0x%02x", kzpipe.ErrCorruptedData, mask)
	}

	preTransformLength := int(entropy.ReadVarInt(ibs))
	postTransformLength := int(entropy.ReadVarInt(ibs))

	if preTransformLength > kzpipe.MAX_BLOCK_SIZE || postTransformLength > kzpipe.MAX_BLOCK_SIZE {
		return nil, newErrorf(kzpipe.ERR_BLOCK_SIZE, "%w: invalid block lengths %d, %d", kzpipe.ErrCorruptedData,
			preTransformLength, postTransformLength)
	}

	if (mask == kzpipe.TRANSFORM_SKIP_MASK || postTransformLength == 0) && preTransformLength != postTransformLength {
		return nil, newErrorf(kzpipe.ERR_BLOCK_SIZE, "%w: untransformed block with lengths %d, %d", kzpipe.ErrCorruptedData,
			preTransformLength, postTransformLength)
	}

	// Reject lengths the payload cannot hold before allocating buffers
	if maxLen := entropy.MaxDecodedLen(this.entropyType, len(encoded)); postTransformLength > maxLen {
		return nil, newErrorf(kzpipe.ERR_BLOCK_SIZE, "%w: transformed length %d exceeds what %d encoded bytes can hold (%d)",
			kzpipe.ErrCorruptedData, postTransformLength, len(encoded), maxLen)
	}

	checksum1 := uint32(0)

	if this.hasher != nil {
		checksum1 = uint32(ibs.ReadBits(32))
	}

	// The block size in the bitstream is unknown
	this.notify(kzpipe.EVT_BEFORE_ENTROPY, id, int64(len(encoded)), checksum1)
	ctx := this.blockContext(preTransformLength)

	seq, err := transform.New(&ctx, this.transformType)

	if err != nil {
		return nil, newError(kzpipe.ERR_CREATE_CODEC, err)
	}

	seq.SetSkipFlags(mask)

	if maxLen := seq.MaxDecodedLen(postTransformLength); preTransformLength > maxLen {
		return nil, newErrorf(kzpipe.ERR_BLOCK_SIZE, "%w: original length %d exceeds what %d transformed bytes can hold (%d)",
			kzpipe.ErrCorruptedData, preTransformLength, postTransformLength, maxLen)
	}

	// Rebuild the entropy decoder to reset block statistics
	ed, err := entropy.NewEntropyDecoder(ibs, ctx, this.entropyType)

	if err != nil {
		return nil, newError(kzpipe.ERR_INVALID_CODEC, err)
	}

	data := make([]byte, postTransformLength)
	_, err = ed.Read(data)
	ed.Dispose()

	if err != nil {
		return nil, newError(kzpipe.ERR_PROCESS_BLOCK, err)
	}

	this.notify(kzpipe.EVT_AFTER_ENTROPY, id, int64(postTransformLength), checksum1)
	this.notify(kzpipe.EVT_BEFORE_TRANSFORM, id, int64(postTransformLength), checksum1)
	buffer := make([]byte, preTransformLength)

	if postTransformLength > 0 {
		_, decoded, err := seq.Inverse(&data, &buffer, uint(postTransformLength))

		if err != nil {
			return nil, newError(kzpipe.ERR_PROCESS_BLOCK, err)
		}

		if int(decoded) != preTransformLength {
			return nil, newErrorf(kzpipe.ERR_PROCESS_BLOCK, "%w: decoded %d bytes, expected %d", kzpipe.ErrCorruptedData,
				decoded, preTransformLength)
		}
	}

	res = buffer[0:preTransformLength]

	if this.hasher != nil {
		if checksum2 := this.hasher.Hash(res); checksum2 != checksum1 {
			return nil, newErrorf(kzpipe.ERR_CRC_CHECK, "%w: corrupted block: expected checksum %x, found %x",
				kzpipe.ErrCorruptedData, checksum1, checksum2)
		}
	}

	this.notify(kzpipe.EVT_AFTER_TRANSFORM, id, int64(preTransformLength), checksum1)
	return res, nil
}
