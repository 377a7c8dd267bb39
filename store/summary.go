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
package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/xeonx/timeago"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// NumInstruments returns the count of instruments ever ingested
func (myStore *Store) NumInstruments(ctx context.Context) (int, error) {
	count := 0
	err := myStore.Pool.QueryRow(ctx, `SELECT count(*) FROM stocks`).Scan(&count)
	return count, err
}

// NumPriceBars returns the count of daily price rows currently loaded
func (myStore *Store) NumPriceBars(ctx context.Context) (int, error) {
	count := 0
	err := myStore.Pool.QueryRow(ctx, `SELECT count(*) FROM prices_daily`).Scan(&count)
	return count, err
}

// NumFundamentals returns the count of fundamentals snapshots currently loaded
func (myStore *Store) NumFundamentals(ctx context.Context) (int, error) {
	count := 0
	err := myStore.Pool.QueryRow(ctx, `SELECT count(*) FROM fundamentals`).Scan(&count)
	return count, err
}

// LastRun returns the finish time of the most recent ingestion batch
func (myStore *Store) LastRun(ctx context.Context) (time.Time, error) {
	var lastRun time.Time
	err := myStore.Pool.QueryRow(ctx,
		`SELECT coalesce(max(finished_at), '0001-01-01'::timestamptz) FROM ingestion_runs`).Scan(&lastRun)
	return lastRun, err
}

// Summary returns a description of the data library in markdown
func (myStore *Store) Summary(ctx context.Context) (string, error) {
	p := message.NewPrinter(language.English)
	builder := strings.Builder{}

	builder.WriteString("# Stockboard data library\n")
	builder.WriteString("## Details\n\n")
	builder.WriteString(fmt.Sprintf("Database: %s\n\n", myStore.DBUrl))

	numInstruments, err := myStore.NumInstruments(ctx)
	if err != nil {
		return "", err
	}

	builder.WriteString(p.Sprintf("  * Instruments Tracked: %d\n", numInstruments))

	numPriceBars, err := myStore.NumPriceBars(ctx)
	if err != nil {
		return "", err
	}

	builder.WriteString(p.Sprintf("  * Daily Price Rows: %d\n", numPriceBars))

	numFundamentals, err := myStore.NumFundamentals(ctx)
	if err != nil {
		return "", err
	}

	builder.WriteString(p.Sprintf("  * Fundamentals Snapshots: %d\n\n", numFundamentals))

	lastRun, err := myStore.LastRun(ctx)
	if err != nil {
		return "", err
	}

	if lastRun.Equal(time.Time{}) {
		builder.WriteString("Last Ingestion: Never\n\n")
	} else {
		age := timeago.English.Format(lastRun)
		builder.WriteString(fmt.Sprintf("Last Ingestion: %s (%s)\n\n", age, lastRun.Local().Format("01/02/2006")))
	}

	return builder.String(), nil
}
