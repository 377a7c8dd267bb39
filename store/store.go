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

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
	"github.com/stockboard/stockboard/data"
)

// Store persists market data to the stockboard PostgreSQL schema. Prices and
// fundamentals are volatile: every ingestion batch purges them wholesale
// before re-populating. Instrument rows accumulate across batches.
type Store struct {
	DBUrl string
	Pool  *pgxpool.Pool
}

// querier is satisfied by both pgxpool.Pool and pgx.Tx so the write helpers
// run the same inside and outside a transaction.
type querier interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	SendBatch(ctx context.Context, batch *pgx.Batch) pgx.BatchResults
}

// Connect opens a connection pool against the database and verifies it is
// reachable.
func Connect(ctx context.Context, dbURL string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return &Store{DBUrl: dbURL, Pool: pool}, nil
}

// Close the database pool
func (myStore *Store) Close() {
	myStore.Pool.Close()
}

// ClearVolatileData deletes every fundamentals and daily price row for every
// symbol. Instrument rows are kept so the symbol to name mapping survives
// across sessions.
func (myStore *Store) ClearVolatileData(ctx context.Context) error {
	conn, err := myStore.Pool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()

	tx, err := conn.Begin(ctx)
	if err != nil {
		return err
	}

	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if _, err := tx.Exec(ctx, `DELETE FROM prices_daily`); err != nil {
		return err
	}

	if _, err := tx.Exec(ctx, `DELETE FROM fundamentals`); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// UpsertInstrument inserts an instrument identity row. Existing rows are left
// untouched: the first write for a symbol wins.
func (myStore *Store) UpsertInstrument(ctx context.Context, instrument *data.Instrument) error {
	return upsertInstrument(ctx, myStore.Pool, instrument)
}

// AppendFundamentals inserts a new fundamentals snapshot. Snapshots are never
// deduplicated; the batch purge is what bounds their number.
func (myStore *Store) AppendFundamentals(ctx context.Context, fundamental *data.Fundamental) error {
	return appendFundamentals(ctx, myStore.Pool, fundamental)
}

// AppendPriceBars bulk inserts one row per bar and returns the number of rows
// written.
func (myStore *Store) AppendPriceBars(ctx context.Context, symbol string, bars []*data.PriceBar) (int, error) {
	return appendPriceBars(ctx, myStore.Pool, symbol, bars)
}

// SaveSymbol writes the identity row, price bars, and fundamentals snapshot
// for one symbol inside a single transaction, so a failed write leaves no
// partial rows behind. The instrument row goes first to satisfy the foreign
// keys. Returns the number of price rows written.
func (myStore *Store) SaveSymbol(ctx context.Context, instrument *data.Instrument, bars []*data.PriceBar, fundamental *data.Fundamental) (int, error) {
	conn, err := myStore.Pool.Acquire(ctx)
	if err != nil {
		return 0, err
	}
	defer conn.Release()

	tx, err := conn.Begin(ctx)
	if err != nil {
		return 0, err
	}

	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if err := upsertInstrument(ctx, tx, instrument); err != nil {
		return 0, err
	}

	numBars, err := appendPriceBars(ctx, tx, instrument.Symbol, bars)
	if err != nil {
		return 0, err
	}

	if fundamental != nil {
		if err := appendFundamentals(ctx, tx, fundamental); err != nil {
			return 0, err
		}
	}

	return numBars, tx.Commit(ctx)
}

// InstrumentNames returns the symbol to display name mapping for every
// instrument ever ingested. Rows without a name are omitted.
func (myStore *Store) InstrumentNames(ctx context.Context) (map[string]string, error) {
	var rows []struct {
		Symbol string
		Name   *string
	}

	err := pgxscan.Select(ctx, myStore.Pool, &rows, `SELECT symbol, name FROM stocks`)
	if err != nil {
		return nil, err
	}

	names := make(map[string]string, len(rows))
	for _, row := range rows {
		if row.Name == nil || *row.Name == "" {
			continue
		}

		names[row.Symbol] = *row.Name
	}

	return names, nil
}

// RecordRun saves bookkeeping information about a completed ingestion batch.
func (myStore *Store) RecordRun(ctx context.Context, run *data.RunSummary) error {
	_, err := myStore.Pool.Exec(ctx, `INSERT INTO ingestion_runs (
		"id",
		"started_at",
		"finished_at",
		"num_symbols",
		"num_observations"
	) VALUES ($1, $2, $3, $4, $5)`,
		run.ID, run.StartTime, run.EndTime, run.NumSymbols, run.NumObservations)

	return err
}

func upsertInstrument(ctx context.Context, dbConn querier, instrument *data.Instrument) error {
	_, err := dbConn.Exec(ctx, `INSERT INTO stocks (
		"symbol",
		"name",
		"sector",
		"industry"
	) VALUES ($1, $2, $3, $4)
	ON CONFLICT (symbol) DO NOTHING`,
		instrument.Symbol, textOrNil(instrument.Name), textOrNil(instrument.Sector),
		textOrNil(instrument.Industry))

	return err
}

func appendFundamentals(ctx context.Context, dbConn querier, fundamental *data.Fundamental) error {
	_, err := dbConn.Exec(ctx, `INSERT INTO fundamentals (
		"stock_symbol",
		"market_cap",
		"enterprise_value",
		"revenue",
		"ebitda",
		"pe_ratio",
		"dividend_yield",
		"dividend_per_share",
		"beta"
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		fundamental.Symbol,
		data.FiniteOrNil(fundamental.MarketCap),
		data.FiniteOrNil(fundamental.EnterpriseValue),
		data.FiniteOrNil(fundamental.Revenue),
		data.FiniteOrNil(fundamental.EBITDA),
		data.FiniteOrNil(fundamental.PERatio),
		data.FiniteOrNil(fundamental.DividendYield),
		data.FiniteOrNil(fundamental.DividendPerShare),
		data.FiniteOrNil(fundamental.Beta))

	return err
}

func appendPriceBars(ctx context.Context, dbConn querier, symbol string, bars []*data.PriceBar) (int, error) {
	if len(bars) == 0 {
		return 0, nil
	}

	batch := &pgx.Batch{}
	for _, bar := range bars {
		batch.Queue(`INSERT INTO prices_daily (
			"stock_symbol",
			"date",
			"open",
			"high",
			"low",
			"close",
			"volume"
		) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			symbol, bar.Date,
			data.FiniteOrNil(bar.Open),
			data.FiniteOrNil(bar.High),
			data.FiniteOrNil(bar.Low),
			data.FiniteOrNil(bar.Close),
			bar.Volume)
	}

	results := dbConn.SendBatch(ctx, batch)
	for range bars {
		if _, err := results.Exec(); err != nil {
			if closeErr := results.Close(); closeErr != nil {
				log.Error().Err(closeErr).Msg("error closing price bar batch after failed insert")
			}

			return 0, err
		}
	}

	return len(bars), results.Close()
}

func textOrNil(value string) any {
	if value == "" {
		return nil
	}

	return value
}
