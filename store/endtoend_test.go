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
	"testing"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/stockboard/stockboard/data"
	"github.com/stockboard/stockboard/marketdata"
	"github.com/stockboard/stockboard/pipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// cannedMarket serves a fixed symbol universe so batches can run against a
// real database without touching the network.
type cannedMarket struct {
	instruments map[string]*data.Instrument
}

func newCannedMarket(symbols ...string) *cannedMarket {
	market := &cannedMarket{instruments: make(map[string]*data.Instrument)}
	for _, symbol := range symbols {
		market.instruments[symbol] = &data.Instrument{
			Symbol: symbol,
			Name:   fmt.Sprintf("%s Corp", symbol),
			Sector: "Technology",
		}
	}

	return market
}

func (myMarket *cannedMarket) Profile(_ context.Context, symbol string) (*data.Instrument, error) {
	instrument, ok := myMarket.instruments[symbol]
	if !ok {
		return nil, marketdata.ErrNotFound
	}

	return instrument, nil
}

func (myMarket *cannedMarket) Fundamentals(_ context.Context, symbol string) (*data.Fundamental, error) {
	if _, ok := myMarket.instruments[symbol]; !ok {
		return nil, marketdata.ErrNotFound
	}

	yield := 1.5
	return &data.Fundamental{Symbol: symbol, DividendYield: &yield}, nil
}

func (myMarket *cannedMarket) DailyHistory(_ context.Context, symbol string) ([]*data.PriceBar, error) {
	if _, ok := myMarket.instruments[symbol]; !ok {
		return nil, marketdata.ErrNotFound
	}

	return testBars(20), nil
}

func symbolsWithRows(t *testing.T, myStore *Store, table string) []string {
	t.Helper()

	symbols := []string{}
	err := pgxscan.Select(context.Background(), myStore.Pool, &symbols,
		fmt.Sprintf(`SELECT DISTINCT stock_symbol FROM %s ORDER BY stock_symbol`, table))
	require.NoError(t, err)

	return symbols
}

func TestBatchEndToEnd(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()
	myStore := SetupTestStore(t)

	t.Run("a bad symbol does not block the rest of the batch", func(t *testing.T) {
		myStore.TruncateAll(t)

		myPipeline := pipeline.New(newCannedMarket("AAPL"), myStore)
		results, err := myPipeline.RunBatch(ctx, []string{"AAPL", "BOGUSXYZ"})
		require.NoError(t, err)
		require.Len(t, results, 2)

		assert.NoError(t, results[0].Err)
		assert.Equal(t, 20, results[0].NumBars)
		require.Error(t, results[1].Err)
		assert.ErrorIs(t, results[1].Err, pipeline.ErrInvalidSymbol)

		assert.Equal(t, []string{"AAPL"}, symbolsWithRows(t, myStore, "prices_daily"))
		assert.Equal(t, []string{"AAPL"}, symbolsWithRows(t, myStore, "fundamentals"))
	})

	t.Run("a new batch purges volatile data but instruments accumulate", func(t *testing.T) {
		myStore.TruncateAll(t)

		market := newCannedMarket("AAPL", "MSFT", "GOOG")

		results, err := pipeline.New(market, myStore).RunBatch(ctx, []string{"AAPL", "MSFT"})
		require.NoError(t, err)
		require.Len(t, results, 2)
		assert.Equal(t, []string{"AAPL", "MSFT"}, symbolsWithRows(t, myStore, "prices_daily"))

		results, err = pipeline.New(market, myStore).RunBatch(ctx, []string{"GOOG"})
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.NoError(t, results[0].Err)

		assert.Equal(t, []string{"GOOG"}, symbolsWithRows(t, myStore, "prices_daily"))
		assert.Equal(t, []string{"GOOG"}, symbolsWithRows(t, myStore, "fundamentals"))

		names, err := myStore.InstrumentNames(ctx)
		require.NoError(t, err)
		assert.Equal(t, map[string]string{
			"AAPL": "AAPL Corp",
			"MSFT": "MSFT Corp",
			"GOOG": "GOOG Corp",
		}, names)
	})

	t.Run("batches record a run summary", func(t *testing.T) {
		myStore.TruncateAll(t)

		_, err := pipeline.New(newCannedMarket("AAPL"), myStore).RunBatch(ctx, []string{"AAPL"})
		require.NoError(t, err)

		var numObservations int
		err = myStore.Pool.QueryRow(ctx,
			`SELECT num_observations FROM ingestion_runs`).Scan(&numObservations)
		require.NoError(t, err)
		assert.Equal(t, 20, numObservations)
	})
}
