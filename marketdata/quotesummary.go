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
	"math"
	"net/http"
	"net/url"
	"strings"

	"github.com/stockboard/stockboard/data"
	"github.com/tidwall/gjson"
)

// Profile returns the display name, sector, and industry for a symbol. Fields
// the upstream does not report are left empty; an unknown symbol returns
// ErrNotFound.
func (client *Client) Profile(ctx context.Context, symbol string) (*data.Instrument, error) {
	result, err := client.quoteSummary(ctx, symbol, "price,assetProfile")
	if err != nil {
		return nil, err
	}

	return &data.Instrument{
		Symbol:   strings.ToUpper(symbol),
		Name:     result.Get("price.longName").String(),
		Sector:   result.Get("assetProfile.sector").String(),
		Industry: result.Get("assetProfile.industry").String(),
	}, nil
}

// Fundamentals returns the fixed set of scalar metrics for a symbol. Every
// field of the result is present; metrics absent upstream are nil. The
// dividend yield is rescaled from a fraction to a percentage and rounded to
// two decimal places.
func (client *Client) Fundamentals(ctx context.Context, symbol string) (*data.Fundamental, error) {
	result, err := client.quoteSummary(ctx, symbol, "summaryDetail,defaultKeyStatistics,financialData")
	if err != nil {
		return nil, err
	}

	fundamental := &data.Fundamental{
		Symbol:           strings.ToUpper(symbol),
		MarketCap:        rawValue(result, "summaryDetail.marketCap"),
		EnterpriseValue:  rawValue(result, "defaultKeyStatistics.enterpriseValue"),
		Revenue:          rawValue(result, "financialData.totalRevenue"),
		EBITDA:           rawValue(result, "financialData.ebitda"),
		PERatio:          rawValue(result, "summaryDetail.trailingPE"),
		DividendPerShare: rawValue(result, "summaryDetail.dividendRate"),
		Beta:             rawValue(result, "summaryDetail.beta"),
	}

	if yield := rawValue(result, "summaryDetail.dividendYield"); yield != nil {
		pct := math.Round(*yield*10000) / 100
		fundamental.DividendYield = &pct
	}

	return fundamental, nil
}

func (client *Client) quoteSummary(ctx context.Context, symbol string, modules string) (gjson.Result, error) {
	if err := client.limiter.Wait(ctx); err != nil {
		return gjson.Result{}, fmt.Errorf("rate limit wait failed: %w", err)
	}

	resp, err := client.http.R().
		SetContext(ctx).
		SetQueryParam("modules", modules).
		Get(fmt.Sprintf("%s/v10/finance/quoteSummary/%s", client.baseURL, url.PathEscape(symbol)))
	if err != nil {
		return gjson.Result{}, fmt.Errorf("query quote summary: %w", err)
	}

	if resp.StatusCode() == http.StatusNotFound {
		return gjson.Result{}, ErrNotFound
	}

	if resp.StatusCode() >= 300 {
		return gjson.Result{}, fmt.Errorf("%w: %d", ErrInvalidStatusCode, resp.StatusCode())
	}

	// the error member is JSON null on success
	body := string(resp.Body())
	if apiErr := gjson.Get(body, "quoteSummary.error"); apiErr.Exists() && apiErr.Type != gjson.Null {
		return gjson.Result{}, ErrNotFound
	}

	result := gjson.Get(body, "quoteSummary.result.0")
	if !result.Exists() {
		return gjson.Result{}, ErrNotFound
	}

	return result, nil
}

// rawValue plucks the numeric "raw" member of a wrapped quote summary value.
func rawValue(result gjson.Result, path string) *float64 {
	value := result.Get(path + ".raw")
	if !value.Exists() {
		return nil
	}

	parsed := value.Float()

	return data.FiniteOrNil(&parsed)
}
