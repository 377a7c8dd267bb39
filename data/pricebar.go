// Copyright 2024
// SPDX-License-Identifier: Apache-2.0
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package data

import (
	"math"
	"time"
)

// PriceBar is one trading day of open/high/low/close/volume for an
// instrument. Numeric fields are nil when the upstream source had no value
// for that day; they are stored as NULL, never coerced to zero.
type PriceBar struct {
	Date   time.Time `json:"date"`
	Open   *float64  `json:"open"`
	High   *float64  `json:"high"`
	Low    *float64  `json:"low"`
	Close  *float64  `json:"close"`
	Volume *int64    `json:"volume"`
}

// FiniteOrNil drops NaN and infinite values so they land in the database as
// NULL instead of failing the insert.
func FiniteOrNil(value *float64) *float64 {
	if value == nil {
		return nil
	}

	if math.IsNaN(*value) || math.IsInf(*value, 0) {
		return nil
	}

	return value
}
