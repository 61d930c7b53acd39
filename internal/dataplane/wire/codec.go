// Copyright 2025 Esteban Alvarez. All Rights Reserved.
//
// Created: October 2025
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

package wire

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
)

// byteOrder is little-endian, matching the host byte order the original
// C++ stage runs on; this module has no socket transport of its own, so
// this only matters for anyone decoding a capture against these structs.
var byteOrder = binary.LittleEndian

// Marshal encodes any of this package's fixed-size wire structs (or any
// value made up entirely of fixed-width fields and byte arrays) into its
// bit-exact byte representation.
func Marshal(v interface{}) ([]byte, error) {
	buf := new(bytes.Buffer)
	if err := binary.Write(buf, byteOrder, v); err != nil {
		return nil, fmt.Errorf("wire: marshal: %w", err)
	}
	return buf.Bytes(), nil
}

// Unmarshal decodes data into v, which must be a pointer to one of this
// package's wire structs.
func Unmarshal(data []byte, v interface{}) error {
	r := bytes.NewReader(data)
	if err := binary.Read(r, byteOrder, v); err != nil {
		return fmt.Errorf("wire: unmarshal: %w", err)
	}
	return nil
}

// PutString copies s into dst, truncating if s is longer than dst and
// zero-padding the remainder otherwise. It is the helper every StageInfoRaw
// /-like fixed char-array field uses, since Go has no native fixed-width
// string type to assign into those array fields directly.
func PutString(dst []byte, s string) {
	for i := range dst {
		dst[i] = 0
	}
	copy(dst, s)
}

// GetString reads a NUL-terminated (or fully-used) string out of a fixed
// char-array field.
func GetString(src []byte) string {
	n := bytes.IndexByte(src, 0)
	if n < 0 {
		n = len(src)
	}
	return string(src[:n])
}

// MarshalProperties encodes a property map as a length-prefixed sequence
// of (key-length, key-bytes, float64-value) tuples. The wire structs in
// this package carry only fixed-size fields, so any variable-length
// payload (a housekeeping or enforcement rule's property bag) is appended
// after the fixed struct using this encoding rather than folded into the
// struct itself.
func MarshalProperties(props map[string]float64) ([]byte, error) {
	buf := new(bytes.Buffer)
	if err := binary.Write(buf, byteOrder, int32(len(props))); err != nil {
		return nil, err
	}
	for k, v := range props {
		if err := binary.Write(buf, byteOrder, int32(len(k))); err != nil {
			return nil, err
		}
		if _, err := buf.WriteString(k); err != nil {
			return nil, err
		}
		if err := binary.Write(buf, byteOrder, v); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

// UnmarshalProperties decodes a property map encoded by MarshalProperties.
func UnmarshalProperties(data []byte) (map[string]float64, error) {
	r := bytes.NewReader(data)
	var count int32
	if err := binary.Read(r, byteOrder, &count); err != nil {
		return nil, err
	}
	props := make(map[string]float64, count)
	for i := int32(0); i < count; i++ {
		var keyLen int32
		if err := binary.Read(r, byteOrder, &keyLen); err != nil {
			return nil, err
		}
		keyBytes := make([]byte, keyLen)
		if _, err := io.ReadFull(r, keyBytes); err != nil {
			return nil, err
		}
		var value float64
		if err := binary.Read(r, byteOrder, &value); err != nil {
			return nil, err
		}
		props[string(keyBytes)] = value
	}
	return props, nil
}
