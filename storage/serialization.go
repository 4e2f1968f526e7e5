// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package storage

import (
	"errors"
	"fmt"

	"github.com/go-crypt/x/blake2b"
	"github.com/mus-format/mus-go"
	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/raw"
)

// VectorMUS encodes a vector as a varint length followed by fixed-size
// float32 values.
var VectorMUS = ord.NewSliceSer[float32](raw.Float32)

// ContentKey derives a 32-byte cache key from the model name and text.
// The model is part of the key so vectors from different models never mix.
func ContentKey(model, text string) []byte {
	h, _ := blake2b.New(32, nil)
	h.Write([]byte(model))
	h.Write([]byte{0})
	h.Write([]byte(text))
	return h.Sum(nil)
}

// MarshalVector serializes a vector to bytes.
func MarshalVector(v []float32) []byte {
	buf := make([]byte, VectorMUS.Size(v))
	VectorMUS.Marshal(v, buf)
	return buf
}

// UnmarshalVector deserializes a vector written by MarshalVector.
func UnmarshalVector(data []byte) ([]float32, error) {
	v, n, err := VectorMUS.Unmarshal(data)
	if err != nil {
		if errors.Is(err, mus.ErrTooSmallByteSlice) {
			return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, ErrTruncatedData)
		}
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	if n != len(data) {
		return nil, fmt.Errorf("%w: %d trailing bytes", ErrSerializationFailed, len(data)-n)
	}
	return v, nil
}
