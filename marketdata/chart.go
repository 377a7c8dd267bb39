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
package marketdata

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"
	"github.com/stockboard/stockboard/data"
)

type chartResponse struct {
	Chart struct {
		Result []chartResult `json:"result"`
		Error  *yahooError   `json:"error"`
	} `json:"chart"`
}

type chartResult struct {
	Meta struct {
		ExchangeTimezoneName string `json:"exchangeTimezoneName"`
	} `json:"meta"`
	Timestamp  []int64 `json:"timestamp"`
	Indicators struct {
		Quote []chartQuote `json:"quote"`
	} `json:"indicators"`
}

type chartQuote struct {
	Open   []*float64 `json:"open"`
	High   []*float64 `json:"high"`
	Low    []*float64 `json:"low"`
	Close  []*float64 `json:"close"`
	Volume []*int64   `json:"volume"`
}

type yahooError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

// DailyHistory returns one year of daily price bars for the symbol, ordered
// by date ascending. ErrNotFound is returned when the upstream does not know
// the symbol and ErrNoData when it knows the symbol but has no bars for it.
func (client *Client) DailyHistory(ctx context.Context, symbol string) ([]*data.PriceBar, error) {
	if err := client.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait failed: %w", err)
	}

	respContent := &chartResponse{}
	resp, err := client.http.R().
		SetContext(ctx).
		SetQueryParam("range", "1y").
		SetQueryParam("interval", "1d").
		SetResult(respContent).
		Get(fmt.Sprintf("%s/v8/finance/chart/%s", client.baseURL, url.PathEscape(symbol)))
	if err != nil {
		return nil, fmt.Errorf("fetch daily history: %w", err)
	}

	// unknown symbols come back as a 404 with an error envelope
	if resp.StatusCode() == http.StatusNotFound {
		if err := json.Unmarshal(resp.Body(), respContent); err == nil && respContent.Chart.Error != nil {
			log.Debug().Str("Symbol", symbol).Str("Code", respContent.Chart.Error.Code).
				Str("Description", respContent.Chart.Error.Description).Msg("chart endpoint reported an error")
		}

		return nil, ErrNotFound
	}

	if resp.StatusCode() >= 300 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidStatusCode, resp.StatusCode())
	}

	if respContent.Chart.Error != nil {
		return nil, ErrNotFound
	}

	if len(respContent.Chart.Result) == 0 {
		return nil, ErrNoData
	}

	result := respContent.Chart.Result[0]
	if len(result.Timestamp) == 0 || len(result.Indicators.Quote) == 0 {
		return nil, ErrNoData
	}

	loc, err := time.LoadLocation(result.Meta.ExchangeTimezoneName)
	if err != nil {
		log.Warn().Err(err).Str("Timezone", result.Meta.ExchangeTimezoneName).
			Msg("could not load exchange timezone, falling back to America/New_York")

		loc, err = time.LoadLocation("America/New_York")
		if err != nil {
			return nil, fmt.Errorf("load timezone: %w", err)
		}
	}

	quote := result.Indicators.Quote[0]
	bars := make([]*data.PriceBar, 0, len(result.Timestamp))

	for idx, ts := range result.Timestamp {
		barTime := time.Unix(ts, 0).In(loc)
		bars = append(bars, &data.PriceBar{
			Date:   time.Date(barTime.Year(), barTime.Month(), barTime.Day(), 0, 0, 0, 0, time.UTC),
			Open:   data.FiniteOrNil(floatAt(quote.Open, idx)),
			High:   data.FiniteOrNil(floatAt(quote.High, idx)),
			Low:    data.FiniteOrNil(floatAt(quote.Low, idx)),
			Close:  data.FiniteOrNil(floatAt(quote.Close, idx)),
			Volume: intAt(quote.Volume, idx),
		})
	}

	sort.Slice(bars, func(i, j int) bool {
		return bars[i].Date.Before(bars[j].Date)
	})

	return bars, nil
}

func floatAt(values []*float64, idx int) *float64 {
	if idx >= len(values) {
		return nil
	}

	return values[idx]
}

func intAt(values []*int64, idx int) *int64 {
	if idx >= len(values) {
		return nil
	}

	return values[idx]
}
