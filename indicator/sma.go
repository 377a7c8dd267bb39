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

// Package indicator holds the rolling average math used by the technical
// analysis view.
package indicator

import "github.com/stockboard/stockboard/data"

// SMA computes a simple moving average over the series. Each output element
// is the mean of the trailing window ending at that index; the output is nil
// until the window is filled, and any window containing a missing value
// yields nil instead of a partial mean.
func SMA(values []*float64, window int) []*float64 {
	averages := make([]*float64, len(values))
	if window <= 0 {
		return averages
	}

	for idx := window - 1; idx < len(values); idx++ {
		sum := 0.0
		complete := true

		for offset := 0; offset < window; offset++ {
			value := values[idx-offset]
			if value == nil {
				complete = false
				break
			}

			sum += *value
		}

		if complete {
			mean := sum / float64(window)
			averages[idx] = &mean
		}
	}

	return averages
}

// Closes extracts the closing price series from a list of daily bars.
func Closes(bars []*data.PriceBar) []*float64 {
	closes := make([]*float64, len(bars))
	for idx, bar := range bars {
		closes[idx] = bar.Close
	}

	return closes
}

// Latest returns the last non-nil element of a series, or nil when the
// series has no usable values.
func Latest(values []*float64) *float64 {
	for idx := len(values) - 1; idx >= 0; idx-- {
		if values[idx] != nil {
			return values[idx]
		}
	}

	return nil
}
