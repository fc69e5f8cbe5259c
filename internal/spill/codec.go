// Copyright (C) 2025 CardinalHQ, Inc
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, version 3.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <http://www.gnu.org/licenses/>.

// Package spill provides CBOR-backed temp-file buffers for records in
// flight between pipeline stages. The encoding is process-local: spill
// files never leave the machine and are deleted when the buffer closes.
//
// CBOR type behavior worth knowing:
//   - all integer widths decode back as int64 (IntDecConvertSigned)
//   - float32 widens to float64
//   - nil pointers round-trip as nil
package spill

import (
	"fmt"
	"io"
	"reflect"

	"github.com/fxamacker/cbor/v2"
)

// Codec holds CBOR encoder and decoder modes tuned for record spills.
type Codec struct {
	encMode cbor.EncMode
	decMode cbor.DecMode
}

// NewCodec creates a Codec. Mode construction only fails on invalid
// option combinations, so most callers treat an error here as a bug.
func NewCodec() (*Codec, error) {
	encMode, err := cbor.EncOptions{
		Sort:          cbor.SortNone,
		ShortestFloat: cbor.ShortestFloatNone,
		BigIntConvert: cbor.BigIntConvertNone,
		Time:          cbor.TimeUnixMicro,
		TimeTag:       cbor.EncTagNone,
	}.EncMode()
	if err != nil {
		return nil, fmt.Errorf("failed to create CBOR encoder: %w", err)
	}

	decMode, err := cbor.DecOptions{
		BigIntDec:      cbor.BigIntDecodeValue,
		IntDec:         cbor.IntDecConvertSigned,
		DefaultMapType: reflect.TypeOf(map[string]any{}),
		UTF8:           cbor.UTF8DecodeInvalid,
	}.DecMode()
	if err != nil {
		return nil, fmt.Errorf("failed to create CBOR decoder: %w", err)
	}

	return &Codec{encMode: encMode, decMode: decMode}, nil
}

// NewEncoder creates a streaming CBOR encoder on w.
func (c *Codec) NewEncoder(w io.Writer) *cbor.Encoder {
	return c.encMode.NewEncoder(w)
}

// NewDecoder creates a streaming CBOR decoder on r. Decode returns
// io.EOF at end of stream.
func (c *Codec) NewDecoder(r io.Reader) *cbor.Decoder {
	return c.decMode.NewDecoder(r)
}
