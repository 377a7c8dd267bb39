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
	"errors"
	"testing"
	"time"

	"github.com/stockboard/stockboard/data"
	"github.com/stockboard/stockboard/marketdata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMarket struct {
	profiles     map[string]*data.Instrument
	fundamentals map[string]*data.Fundamental
	history      map[string][]*data.PriceBar

	profileCalls    int
	fundamentalsErr error
	historyErrors   map[string]error
	profileErrors   map[string]error
}

func (market *fakeMarket) Profile(_ context.Context, symbol string) (*data.Instrument, error) {
	market.profileCalls++

	if err := market.profileErrors[symbol]; err != nil {
		return nil, err
	}

	instrument, ok := market.profiles[symbol]
	if !ok {
		return nil, marketdata.ErrNotFound
	}

	return instrument, nil
}

func (market *fakeMarket) Fundamentals(_ context.Context, symbol string) (*data.Fundamental, error) {
	if market.fundamentalsErr != nil {
		return nil, market.fundamentalsErr
	}

	fundamental, ok := market.fundamentals[symbol]
	if !ok {
		return nil, marketdata.ErrNotFound
	}

	return fundamental, nil
}

func (market *fakeMarket) DailyHistory(_ context.Context, symbol string) ([]*data.PriceBar, error) {
	if err := market.historyErrors[symbol]; err != nil {
		return nil, err
	}

	bars, ok := market.history[symbol]
	if !ok {
		return nil, marketdata.ErrNoData
	}

	return bars, nil
}

type savedSymbol struct {
	instrument  *data.Instrument
	bars        []*data.PriceBar
	fundamental *data.Fundamental
}

type fakeStore struct {
	ops      []string
	saved    []savedSymbol
	runs     []*data.RunSummary
	clearErr error
	saveErr  error
}

func (store *fakeStore) ClearVolatileData(_ context.Context) error {
	store.ops = append(store.ops, "clear")
	return store.clearErr
}

func (store *fakeStore) SaveSymbol(_ context.Context, instrument *data.Instrument, bars []*data.PriceBar, fundamental *data.Fundamental) (int, error) {
	store.ops = append(store.ops, "save:"+instrument.Symbol)
	if store.saveErr != nil {
		return 0, store.saveErr
	}

	store.saved = append(store.saved, savedSymbol{instrument: instrument, bars: bars, fundamental: fundamental})

	return len(bars), nil
}

func (store *fakeStore) RecordRun(_ context.Context, run *data.RunSummary) error {
	store.ops = append(store.ops, "record-run")
	store.runs = append(store.runs, run)

	return nil
}

func yearOfBars(t *testing.T) []*data.PriceBar {
	t.Helper()

	bars := make([]*data.PriceBar, 0, 252)
	day := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)

	for idx := 0; idx < 252; idx++ {
		price := 100.0 + float64(idx)
		volume := int64(1000 + idx)
		bars = append(bars, &data.PriceBar{
			Date:   day,
			Open:   &price,
			High:   &price,
			Low:    &price,
			Close:  &price,
			Volume: &volume,
		})
		day = day.AddDate(0, 0, 1)
	}

	return bars
}

func newFakes(t *testing.T) (*fakeMarket, *fakeStore) {
	t.Helper()

	yield := 1.23
	market := &fakeMarket{
		profiles: map[string]*data.Instrument{
			"AAPL": {Symbol: "AAPL", Name: "Apple Inc.", Sector: "Technology", Industry: "Consumer Electronics"},
			"MSFT": {Symbol: "MSFT", Name: "Microsoft Corporation", Sector: "Technology", Industry: "Software"},
		},
		fundamentals: map[string]*data.Fundamental{
			"AAPL": {Symbol: "AAPL", DividendYield: &yield},
			"MSFT": {Symbol: "MSFT"},
		},
		history: map[string][]*data.PriceBar{
			"AAPL": yearOfBars(t),
			"MSFT": yearOfBars(t),
		},
		historyErrors: map[string]error{},
		profileErrors: map[string]error{},
	}

	return market, &fakeStore{}
}

func TestIngestUnknownSymbol(t *testing.T) {
	market, store := newFakes(t)
	myPipeline := New(market, store)

	_, err := myPipeline.Ingest(context.Background(), "BOGUSXYZ")
	require.ErrorIs(t, err, ErrInvalidSymbol)
	assert.Empty(t, store.saved, "no rows may be written for an unknown symbol")
}

func TestIngestEmptySymbolSkipsLookup(t *testing.T) {
	market, store := newFakes(t)
	myPipeline := New(market, store)

	for _, symbol := range []string{"", "   ", "\t"} {
		_, err := myPipeline.Ingest(context.Background(), symbol)
		require.ErrorIs(t, err, ErrInvalidSymbol)
	}

	assert.Zero(t, market.profileCalls, "blank input must not reach the network")
	assert.Empty(t, store.saved)
}

func TestIngestNoPriceData(t *testing.T) {
	market, store := newFakes(t)
	market.history = map[string][]*data.PriceBar{}
	myPipeline := New(market, store)

	_, err := myPipeline.Ingest(context.Background(), "AAPL")
	require.ErrorIs(t, err, ErrNoPriceData)
	assert.NotErrorIs(t, err, ErrInvalidSymbol, "missing history is a distinct condition from an unknown symbol")
	assert.Empty(t, store.saved)
}

func TestIngestValidationErrorDegradesToInvalid(t *testing.T) {
	market, store := newFakes(t)
	market.profileErrors["AAPL"] = errors.New("connection reset")
	myPipeline := New(market, store)

	_, err := myPipeline.Ingest(context.Background(), "AAPL")
	require.ErrorIs(t, err, ErrInvalidSymbol)
	assert.Empty(t, store.saved)
}

func TestIngestFundamentalsAreBestEffort(t *testing.T) {
	market, store := newFakes(t)
	market.fundamentalsErr = errors.New("upstream timeout")
	myPipeline := New(market, store)

	result, err := myPipeline.Ingest(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.Equal(t, 252, result.NumBars)

	require.Len(t, store.saved, 1)
	assert.Nil(t, store.saved[0].fundamental)
	assert.Len(t, store.saved[0].bars, 252)
}

func TestIngestPersistsAllThreeShapes(t *testing.T) {
	market, store := newFakes(t)
	myPipeline := New(market, store)

	result, err := myPipeline.Ingest(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.Equal(t, "AAPL", result.Symbol)
	assert.Equal(t, "Apple Inc.", result.Name)

	require.Len(t, store.saved, 1)
	saved := store.saved[0]
	assert.Equal(t, "Apple Inc.", saved.instrument.Name)
	assert.Len(t, saved.bars, 252)
	require.NotNil(t, saved.fundamental)
	require.NotNil(t, saved.fundamental.DividendYield)
	assert.InDelta(t, 1.23, *saved.fundamental.DividendYield, 0.0001)
}

func TestRunBatchPurgesOnceBeforeAnyWrite(t *testing.T) {
	market, store := newFakes(t)
	myPipeline := New(market, store)

	results, err := myPipeline.RunBatch(context.Background(), []string{"AAPL", "MSFT"})
	require.NoError(t, err)
	require.Len(t, results, 2)

	require.GreaterOrEqual(t, len(store.ops), 3)
	assert.Equal(t, "clear", store.ops[0], "purge must precede every write")
	assert.Equal(t, []string{"clear", "save:AAPL", "save:MSFT", "record-run"}, store.ops)
}

func TestRunBatchContinuesPastFailures(t *testing.T) {
	market, store := newFakes(t)
	myPipeline := New(market, store)

	results, err := myPipeline.RunBatch(context.Background(), []string{"BOGUSXYZ", "AAPL"})
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.ErrorIs(t, results[0].Err, ErrInvalidSymbol)
	assert.NoError(t, results[1].Err)
	assert.Equal(t, 252, results[1].NumBars)

	require.Len(t, store.saved, 1)
	assert.Equal(t, "AAPL", store.saved[0].instrument.Symbol)
}

func TestRunBatchClearFailureAbortsBatch(t *testing.T) {
	market, store := newFakes(t)
	store.clearErr = errors.New("database unreachable")
	myPipeline := New(market, store)

	_, err := myPipeline.RunBatch(context.Background(), []string{"AAPL"})
	require.Error(t, err)
	assert.Empty(t, store.saved)
}

func TestRunBatchRecordsRunSummary(t *testing.T) {
	market, store := newFakes(t)
	myPipeline := New(market, store)

	_, err := myPipeline.RunBatch(context.Background(), []string{"AAPL", "BOGUSXYZ"})
	require.NoError(t, err)

	require.Len(t, store.runs, 1)
	run := store.runs[0]
	assert.Equal(t, 2, run.NumSymbols)
	assert.Equal(t, 252, run.NumObservations)
	assert.False(t, run.EndTime.Before(run.StartTime))
}
