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
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/stockboard/stockboard/data"
	"github.com/stockboard/stockboard/marketdata"
)

var (
	// ErrInvalidSymbol marks input that does not resolve to a known instrument.
	ErrInvalidSymbol = errors.New("symbol not recognized")

	// ErrNoPriceData marks a recognized symbol with an empty price history.
	ErrNoPriceData = errors.New("no price data for symbol")
)

// MarketData is the upstream quote gateway consumed by the pipeline.
type MarketData interface {
	Profile(ctx context.Context, symbol string) (*data.Instrument, error)
	Fundamentals(ctx context.Context, symbol string) (*data.Fundamental, error)
	DailyHistory(ctx context.Context, symbol string) ([]*data.PriceBar, error)
}

// Store is the persistence surface consumed by the pipeline.
type Store interface {
	ClearVolatileData(ctx context.Context) error
	SaveSymbol(ctx context.Context, instrument *data.Instrument, bars []*data.PriceBar, fundamental *data.Fundamental) (int, error)
	RecordRun(ctx context.Context, run *data.RunSummary) error
}

// Pipeline runs the fetch, validate, persist sequence for analysis requests.
type Pipeline struct {
	Market MarketData
	Store  Store
}

// Result reports the outcome of ingesting one symbol. Bars are retained so
// callers can render the series without a read back from the database.
type Result struct {
	Symbol  string
	Name    string
	NumBars int
	Bars    []*data.PriceBar
	Err     error
}

func New(market MarketData, store Store) *Pipeline {
	return &Pipeline{Market: market, Store: store}
}

// Ingest validates one symbol, fetches its price history, fundamentals, and
// identity data, and persists everything in a single transaction. Identity
// and fundamentals are best-effort: they may come back partially empty
// without failing the run. A missing price history fails it.
func (myPipeline *Pipeline) Ingest(ctx context.Context, symbol string) (*Result, error) {
	instrument, ok := myPipeline.ValidSymbol(ctx, symbol)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidSymbol, symbol)
	}

	bars, err := myPipeline.Market.DailyHistory(ctx, symbol)
	if err != nil {
		if errors.Is(err, marketdata.ErrNoData) || errors.Is(err, marketdata.ErrNotFound) {
			return nil, fmt.Errorf("%w: %q", ErrNoPriceData, symbol)
		}

		return nil, fmt.Errorf("fetch price history for %q: %w", symbol, err)
	}

	fundamental, err := myPipeline.Market.Fundamentals(ctx, symbol)
	if err != nil {
		log.Warn().Err(err).Str("Symbol", symbol).Msg("could not fetch fundamentals, continuing without them")
		fundamental = nil
	}

	numBars, err := myPipeline.Store.SaveSymbol(ctx, instrument, bars, fundamental)
	if err != nil {
		return nil, fmt.Errorf("persist %q: %w", symbol, err)
	}

	return &Result{
		Symbol:  instrument.Symbol,
		Name:    instrument.Name,
		NumBars: numBars,
		Bars:    bars,
	}, nil
}

// RunBatch ingests the given symbols sequentially. The destructive purge of
// prices and fundamentals happens exactly once, before the first symbol runs;
// symbols not resubmitted in this batch lose their volatile data. A failure
// on one symbol never stops the remaining symbols. The returned error covers
// only the purge; per-symbol failures live on their Result.
func (myPipeline *Pipeline) RunBatch(ctx context.Context, symbols []string) ([]*Result, error) {
	run := &data.RunSummary{
		ID:         uuid.New(),
		StartTime:  time.Now(),
		NumSymbols: len(symbols),
	}

	if err := myPipeline.Store.ClearVolatileData(ctx); err != nil {
		return nil, fmt.Errorf("clear volatile data: %w", err)
	}

	results := make([]*Result, 0, len(symbols))
	for _, symbol := range symbols {
		result, err := myPipeline.Ingest(ctx, symbol)
		if err != nil {
			log.Warn().Err(err).Str("Symbol", symbol).Msg("symbol ingestion failed")
			results = append(results, &Result{Symbol: symbol, Err: err})
			continue
		}

		run.NumObservations += result.NumBars
		results = append(results, result)
	}

	run.EndTime = time.Now()
	if err := myPipeline.Store.RecordRun(ctx, run); err != nil {
		log.Error().Err(err).Str("RunID", run.ID.String()).Msg("could not record ingestion run")
	}

	return results, nil
}
