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

// Package datagen produces sample sales and customer feeds shaped like
// the upstream systems this pipeline ingests: a sales CSV with evenly
// spaced timestamps across a trailing window, and a customer NDJSON
// reference file. Generation is deterministic for a given seed.
package datagen

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"math/rand"
	"strconv"
	"time"
)

var (
	Products        = []string{"Laptop", "Mouse", "Keyboard", "Monitor", "Webcam", "Headphones", "USB Cable", "Desk Mat"}
	Regions         = []string{"North", "South", "East", "West"}
	AgeGroups       = []string{"18-25", "26-35", "36-45", "46-55", "56+"}
	MembershipTiers = []string{"Bronze", "Silver", "Gold", "Platinum"}
)

const (
	defaultSeed      = 42
	defaultRecords   = 10000
	defaultCustomers = 500
	defaultWindow    = 90 * 24 * time.Hour

	// Signup dates spread over the last two years.
	maxSignupAgeDays = 730
)

// TimestampLayout is the sales feed's timestamp text. Only the first
// ten characters matter downstream; the rest rides along verbatim.
const TimestampLayout = "2006-01-02 15:04:05.000000"

type SalesConfig struct {
	Records   int
	Customers int
	Start     time.Time
	End       time.Time
	Seed      int64
}

func (c *SalesConfig) applyDefaults() {
	if c.Records <= 0 {
		c.Records = defaultRecords
	}
	if c.Customers <= 0 {
		c.Customers = defaultCustomers
	}
	if c.Seed == 0 {
		c.Seed = defaultSeed
	}
	if c.End.IsZero() {
		c.End = time.Now().UTC()
	}
	if c.Start.IsZero() {
		c.Start = c.End.Add(-defaultWindow)
	}
}

type CustomersConfig struct {
	Count int
	Seed  int64
	Now   time.Time
}

func (c *CustomersConfig) applyDefaults() {
	if c.Count <= 0 {
		c.Count = defaultCustomers
	}
	if c.Seed == 0 {
		c.Seed = defaultSeed
	}
	if c.Now.IsZero() {
		c.Now = time.Now().UTC()
	}
}

// WriteSales writes cfg.Records transaction rows as CSV with a header.
// Timestamps step evenly from Start to End so every month in the
// window gets rows. Returns the number of data rows written.
func WriteSales(w io.Writer, cfg SalesConfig) (int, error) {
	cfg.applyDefaults()
	rng := rand.New(rand.NewSource(cfg.Seed))

	cw := csv.NewWriter(w)
	header := []string{
		"transaction_id", "timestamp", "customer_id", "product",
		"quantity", "unit_price", "region", "total_amount",
	}
	if err := cw.Write(header); err != nil {
		return 0, fmt.Errorf("failed to write header: %w", err)
	}

	// Interpolate in microseconds so the last row lands exactly on End.
	// The layout only keeps microsecond precision anyway.
	spanUS := cfg.End.Sub(cfg.Start).Microseconds()

	for i := range cfg.Records {
		ts := cfg.Start
		if cfg.Records > 1 {
			offUS := spanUS * int64(i) / int64(cfg.Records-1)
			ts = ts.Add(time.Duration(offUS) * time.Microsecond)
		}
		quantity := rng.Intn(9) + 1
		unitPrice := round2(10 + rng.Float64()*490)
		total := round2(float64(quantity) * unitPrice)

		row := []string{
			fmt.Sprintf("TXN%06d", i+1),
			ts.Format(TimestampLayout),
			fmt.Sprintf("CUST%04d", rng.Intn(cfg.Customers)+1),
			Products[rng.Intn(len(Products))],
			strconv.Itoa(quantity),
			strconv.FormatFloat(unitPrice, 'f', 2, 64),
			Regions[rng.Intn(len(Regions))],
			strconv.FormatFloat(total, 'f', 2, 64),
		}
		if err := cw.Write(row); err != nil {
			return i, fmt.Errorf("failed to write row %d: %w", i, err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return cfg.Records, err
	}
	return cfg.Records, nil
}

type customerLine struct {
	CustomerID     string `json:"customer_id"`
	AgeGroup       string `json:"age_group"`
	MembershipTier string `json:"membership_tier"`
	SignupDate     string `json:"signup_date"`
}

// WriteCustomers writes cfg.Count reference rows as NDJSON, one
// self-contained object per line, ids CUST0001 upward. Returns the
// number of lines written.
func WriteCustomers(w io.Writer, cfg CustomersConfig) (int, error) {
	cfg.applyDefaults()
	rng := rand.New(rand.NewSource(cfg.Seed))

	for i := range cfg.Count {
		daysAgo := rng.Intn(maxSignupAgeDays) + 1
		line := customerLine{
			CustomerID:     fmt.Sprintf("CUST%04d", i+1),
			AgeGroup:       AgeGroups[rng.Intn(len(AgeGroups))],
			MembershipTier: MembershipTiers[rng.Intn(len(MembershipTiers))],
			SignupDate:     cfg.Now.AddDate(0, 0, -daysAgo).Format("2006-01-02"),
		}

		data, err := json.Marshal(line)
		if err != nil {
			return i, fmt.Errorf("failed to marshal customer %d: %w", i, err)
		}
		if _, err := w.Write(append(data, '\n')); err != nil {
			return i, fmt.Errorf("failed to write customer %d: %w", i, err)
		}
	}

	return cfg.Count, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
