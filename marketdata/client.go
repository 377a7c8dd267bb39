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
	"errors"
	"strings"

	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"
)

const DefaultBaseURL = "https://query1.finance.yahoo.com"

var (
	ErrNotFound          = errors.New("symbol not found")
	ErrNoData            = errors.New("no price history available")
	ErrInvalidStatusCode = errors.New("invalid status code received")
)

// Client reads identity, fundamentals, and daily price history from a Yahoo
// Finance style quote API. All requests pass through a shared rate limiter.
type Client struct {
	http    *resty.Client
	limiter *rate.Limiter
	baseURL string
}

// New creates a market data client. An empty baseURL selects the public
// Yahoo Finance endpoint; requestsPerMinute <= 0 selects a default of 120.
func New(baseURL string, requestsPerMinute int) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	if requestsPerMinute <= 0 {
		requestsPerMinute = 120
	}

	return &Client{
		http:    resty.New().SetHeader("User-Agent", "stockboard quote client"),
		limiter: rate.NewLimiter(rate.Limit(float64(requestsPerMinute)/float64(61)), 1),
		baseURL: strings.TrimSuffix(baseURL, "/"),
	}
}
