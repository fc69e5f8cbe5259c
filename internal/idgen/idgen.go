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

// Package idgen produces the identifiers a run needs: ULIDs for run
// ids (time-ordered, so ledger rows sort by creation), flake ids for
// unique local scratch files, and short base32 ids for temp dirs.
// Remote object names are NOT generated here; those are deterministic
// by partition so that re-runs overwrite.
package idgen

import (
	crand "crypto/rand"
	"encoding/base32"
	"errors"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/sony/sonyflake"
)

var DefaultFlakeGenerator *SonyFlakeGenerator

func init() {
	var err error
	DefaultFlakeGenerator, err = NewFlakeGenerator()
	if err != nil {
		panic(err)
	}
}

type SonyFlakeGenerator struct {
	sf *sonyflake.Sonyflake
}

func NewFlakeGenerator() (*SonyFlakeGenerator, error) {
	settings := sonyflake.Settings{
		StartTime: time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
	}

	sf, err := sonyflake.New(settings)
	if err != nil {
		// No private interface to derive a machine id from (common on
		// bare CI hosts). These ids only need local uniqueness, so a
		// random machine id will do.
		settings.MachineID = randomMachineID
		sf, err = sonyflake.New(settings)
		if err != nil {
			return nil, err
		}
	}
	if sf == nil {
		return nil, errors.New("failed to create Sonyflake instance")
	}
	return &SonyFlakeGenerator{sf: sf}, nil
}

func randomMachineID() (uint16, error) {
	return uint16(rand.Uint32()), nil
}

// NextID returns a positive int64 that'll increase roughly in time order.
func (sf *SonyFlakeGenerator) NextID() int64 {
	v, err := sf.sf.NextID()
	if err != nil {
		return rand.Int64()
	}
	return int64(v)
}

// GenerateShortBase32ID creates a short random base32 ID for scratch
// dirs and operation tracking. 8 characters, not security-sensitive.
func GenerateShortBase32ID() string {
	b := make([]byte, 5) // 5 bytes = 8 base32 chars
	_, _ = crand.Read(b)
	return strings.ToLower(base32.StdEncoding.EncodeToString(b))
}
