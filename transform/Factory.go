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
// Package transform provides the byte transforms applied to a block before
// entropy coding and the sequence chaining up to 4 of them.
package transform

import (
	"fmt"
	"strings"

	kzpipe "github.com/kzpipe/kzpipe"
)

const (
	_BFF_ONE_SHIFT = 6                                            // bits per transform
	_BFF_MAX_SHIFT = (kzpipe.TRANSFORM_SLOTS - 1) * _BFF_ONE_SHIFT // 4 transforms
	_BFF_MASK      = (1 << _BFF_ONE_SHIFT) - 1

	// Up to 64 transforms can be declared (6 bit index)
	NONE_TYPE   = uint64(0)  // Copy
	LZ4_TYPE    = uint64(3)  // LZ4 block
	SNAPPY_TYPE = uint64(4)  // Snappy block
	MTFT_TYPE   = uint64(7)  // Move to front
	RANK_TYPE   = uint64(8)  // Sort by rank
	TEXT_TYPE   = uint64(10) // Text codec
)

// New creates a new instance of ByteTransformSequence based on the provided
// packed transform type (see GetType). NONE slots are dropped unless all
// slots are NONE, in which case a single copy transform is used.
func New(ctx *map[string]any, transformType uint64) (*ByteTransformSequence, error) {
	transforms := make([]kzpipe.ByteTransform, 0, kzpipe.TRANSFORM_SLOTS)

	for i := 0; i < kzpipe.TRANSFORM_SLOTS; i++ {
		t := (transformType >> uint(_BFF_MAX_SHIFT-_BFF_ONE_SHIFT*i)) & _BFF_MASK

		if t == NONE_TYPE {
			continue
		}

		tr, err := newToken(ctx, t)

		if err != nil {
			return nil, err
		}

		transforms = append(transforms, tr)
	}

	if len(transforms) == 0 {
		transforms = append(transforms, &NullTransform{})
	}

	return NewByteTransformSequence(transforms)
}

func newToken(ctx *map[string]any, transformType uint64) (kzpipe.ByteTransform, error) {
	switch transformType {
	case TEXT_TYPE:
		return NewTextCodecWithCtx(ctx)

	case LZ4_TYPE:
		return NewLZ4Codec()

	case SNAPPY_TYPE:
		return NewSnappyCodec()

	case MTFT_TYPE:
		return NewSBRT(SBRT_MODE_MTF)

	case RANK_TYPE:
		return NewSBRT(SBRT_MODE_RANK)

	case NONE_TYPE:
		return NewNullTransform()

	default:
		return nil, fmt.Errorf("%w: unknown transform type: '%d'", kzpipe.ErrInvalidConfig, transformType)
	}
}

// GetName transforms the packed transform type into a transform name
// ("TEXT+LZ4"). Returns "NONE" if all slots are empty.
func GetName(transformType uint64) (string, error) {
	var sb strings.Builder

	for i := 0; i < kzpipe.TRANSFORM_SLOTS; i++ {
		t := (transformType >> uint(_BFF_MAX_SHIFT-_BFF_ONE_SHIFT*i)) & _BFF_MASK

		if t == NONE_TYPE {
			continue
		}

		name, err := getTransformNameToken(t)

		if err != nil {
			return "", err
		}

		if sb.Len() > 0 {
			sb.WriteByte('+')
		}

		sb.WriteString(name)
	}

	if sb.Len() == 0 {
		return "NONE", nil
	}

	return sb.String(), nil
}

func getTransformNameToken(transformType uint64) (string, error) {
	switch transformType {
	case TEXT_TYPE:
		return "TEXT", nil

	case LZ4_TYPE:
		return "LZ4", nil

	case SNAPPY_TYPE:
		return "SNAPPY", nil

	case MTFT_TYPE:
		return "MTFT", nil

	case RANK_TYPE:
		return "RANK", nil

	case NONE_TYPE:
		return "NONE", nil

	default:
		return "", fmt.Errorf("%w: unknown transform type: '%d'", kzpipe.ErrInvalidConfig, transformType)
	}
}

// GetType transforms a transform name ("TEXT+LZ4") into a packed transform
// type. Names are case insensitive and NONE tokens are dropped.
func GetType(name string) (uint64, error) {
	tokens := strings.Split(name, "+")

	if len(tokens) > kzpipe.TRANSFORM_SLOTS {
		return 0, fmt.Errorf("%w: only %d transforms allowed: '%s'", kzpipe.ErrInvalidConfig, kzpipe.TRANSFORM_SLOTS, name)
	}

	res := uint64(0)
	shift := _BFF_MAX_SHIFT

	for _, token := range tokens {
		tkType, err := getTransformTypeToken(token)

		if err != nil {
			return 0, err
		}

		// Skip null transform
		if tkType != NONE_TYPE {
			res |= tkType << uint(shift)
			shift -= _BFF_ONE_SHIFT
		}
	}

	return res, nil
}

func getTransformTypeToken(name string) (uint64, error) {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "TEXT":
		return TEXT_TYPE, nil

	case "LZ4":
		return LZ4_TYPE, nil

	case "SNAPPY":
		return SNAPPY_TYPE, nil

	case "MTFT":
		return MTFT_TYPE, nil

	case "RANK":
		return RANK_TYPE, nil

	case "NONE":
		return NONE_TYPE, nil

	default:
		return 0, fmt.Errorf("%w: unknown transform type: '%s'", kzpipe.ErrInvalidConfig, name)
	}
}

// ctxUint reads an optional unsigned integer from the configuration map.
// Values of type uint, int, uint32 and int32 are accepted.
func ctxUint(ctx map[string]any, key string, defaultValue uint) (uint, error) {
	val, containsKey := ctx[key]

	if !containsKey {
		return defaultValue, nil
	}

	switch v := val.(type) {
	case uint:
		return v, nil
	case uint32:
		return uint(v), nil
	case int:
		if v >= 0 {
			return uint(v), nil
		}
	case int32:
		if v >= 0 {
			return uint(v), nil
		}
	}

	return 0, fmt.Errorf("%w: invalid value for '%s': %v", kzpipe.ErrInvalidConfig, key, val)
}
