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
package pipeline

import (
	"context"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/stockboard/stockboard/data"
)

// ValidSymbol reports whether the symbol resolves to a known instrument with
// a display name. Lookup failures of any kind degrade to false rather than
// propagating. Empty or whitespace-only input is rejected before any network
// call. On success the resolved identity is returned so callers do not need
// a second lookup.
func (myPipeline *Pipeline) ValidSymbol(ctx context.Context, symbol string) (*data.Instrument, bool) {
	if strings.TrimSpace(symbol) == "" {
		return nil, false
	}

	instrument, err := myPipeline.Market.Profile(ctx, symbol)
	if err != nil {
		log.Debug().Err(err).Str("Symbol", symbol).Msg("symbol lookup failed during validation")
		return nil, false
	}

	if instrument.Name == "" {
		return nil, false
	}

	return instrument, true
}
