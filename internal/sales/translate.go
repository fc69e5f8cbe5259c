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

package sales

import (
	"fmt"
	"strings"

	"github.com/cardinalhq/martrunner/internal/pipeline"
)

// Raw source column names. Readers produce rows keyed by these.
const (
	FieldTransactionID = "transaction_id"
	FieldTimestamp     = "timestamp"
	FieldCustomerID    = "customer_id"
	FieldProduct       = "product"
	FieldQuantity      = "quantity"
	FieldUnitPrice     = "unit_price"
	FieldRegion        = "region"
	FieldTotalAmount   = "total_amount"

	FieldAgeGroup       = "age_group"
	FieldMembershipTier = "membership_tier"
	FieldSignupDate     = "signup_date"
)

func requireString(row pipeline.Row, field string) (string, error) {
	v := strings.TrimSpace(row.GetString(field))
	if v == "" {
		return "", fmt.Errorf("missing or empty field %q", field)
	}
	return v, nil
}

func requireInt64(row pipeline.Row, field string) (int64, error) {
	v, ok := row.GetInt64(field)
	if !ok {
		return 0, fmt.Errorf("field %q is not numeric", field)
	}
	return v, nil
}

func requireFloat64(row pipeline.Row, field string) (float64, error) {
	v, ok := row.GetFloat64(field)
	if !ok {
		return 0, fmt.Errorf("field %q is not numeric", field)
	}
	return v, nil
}

// TransactionFromRow validates and converts one raw sales row. Any
// error means the row is malformed and must be skipped, not that the
// run should stop. A blank customer_id is allowed: the record simply
// joins to nothing.
func TransactionFromRow(row pipeline.Row) (TransactionRecord, error) {
	var rec TransactionRecord
	var err error

	if rec.TransactionID, err = requireString(row, FieldTransactionID); err != nil {
		return rec, err
	}
	if rec.Timestamp, err = requireString(row, FieldTimestamp); err != nil {
		return rec, err
	}
	if rec.Product, err = requireString(row, FieldProduct); err != nil {
		return rec, err
	}
	if rec.Region, err = requireString(row, FieldRegion); err != nil {
		return rec, err
	}
	if rec.Quantity, err = requireInt64(row, FieldQuantity); err != nil {
		return rec, err
	}
	if rec.UnitPrice, err = requireFloat64(row, FieldUnitPrice); err != nil {
		return rec, err
	}
	if rec.TotalAmount, err = requireFloat64(row, FieldTotalAmount); err != nil {
		return rec, err
	}

	rec.CustomerID = strings.TrimSpace(row.GetString(FieldCustomerID))
	return rec, nil
}

// CustomerFromRow validates and converts one customer reference row.
// Only customer_id is required; descriptive fields default to empty.
func CustomerFromRow(row pipeline.Row) (CustomerRecord, error) {
	var rec CustomerRecord
	var err error

	if rec.CustomerID, err = requireString(row, FieldCustomerID); err != nil {
		return rec, err
	}
	rec.AgeGroup = row.GetString(FieldAgeGroup)
	rec.MembershipTier = row.GetString(FieldMembershipTier)
	rec.SignupDate = row.GetString(FieldSignupDate)
	return rec, nil
}
