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

// Fundamental is a point-in-time snapshot of scalar metrics for a single
// instrument. The field set is fixed; a metric the upstream source does not
// report is nil, never zero. DividendYield is a percentage (e.g. 1.23 for
// 1.23%), already rescaled from the upstream fraction.
type Fundamental struct {
	Symbol           string   `json:"symbol"`
	MarketCap        *float64 `json:"market_cap"`
	EnterpriseValue  *float64 `json:"enterprise_value"`
	Revenue          *float64 `json:"revenue"`
	EBITDA           *float64 `json:"ebitda"`
	PERatio          *float64 `json:"pe_ratio"`
	DividendYield    *float64 `json:"dividend_yield"`
	DividendPerShare *float64 `json:"dividend_per_share"`
	Beta             *float64 `json:"beta"`
}
