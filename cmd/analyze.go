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
package cmd

import (
	"context"
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stockboard/stockboard/healthcheck"
	"github.com/stockboard/stockboard/indicator"
	"github.com/stockboard/stockboard/marketdata"
	"github.com/stockboard/stockboard/pipeline"
	"github.com/stockboard/stockboard/store"
)

var headerStyle = lipgloss.NewStyle().Bold(true)

// analyzeCmd represents the analyze command
var analyzeCmd = &cobra.Command{
	Use:   "analyze <symbol> [symbol...]",
	Short: "Fetch and store market data for the given ticker symbols",
	Long: `The analyze sub-command replaces the loaded price and fundamentals data
with fresh data for the given symbols. Symbols are processed sequentially; a
symbol that fails validation or has no price history is reported and skipped
without aborting the rest of the batch. Note that any previously analyzed
symbol not listed again loses its price and fundamentals rows.`,
	Args: cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()

		myStore, err := store.Connect(ctx, viper.GetString("db.url"))
		if err != nil {
			log.Fatal().Err(err).Msg("could not connect to database")
		}
		defer myStore.Close()

		market := marketdata.New(viper.GetString("yahoo.base_url"), viper.GetInt("yahoo.rate_limit"))
		myPipeline := pipeline.New(market, myStore)

		results, err := myPipeline.RunBatch(ctx, args)
		if err != nil {
			if pingErr := healthcheck.PingFailure(); pingErr != nil {
				log.Error().Err(pingErr).Msg("could not ping healthcheck")
			}

			log.Fatal().Err(err).Msg("ingestion batch failed")
		}

		numFailed := 0
		rows := make([][]string, 0, len(results))

		for _, result := range results {
			if result.Err != nil {
				numFailed++
				log.Warn().Err(result.Err).Str("Symbol", result.Symbol).Msg("symbol was not ingested")
				continue
			}

			closes := indicator.Closes(result.Bars)
			rows = append(rows, []string{
				result.Symbol,
				result.Name,
				fmt.Sprintf("%d", result.NumBars),
				formatValue(indicator.Latest(closes)),
				formatValue(indicator.Latest(indicator.SMA(closes, 20))),
				formatValue(indicator.Latest(indicator.SMA(closes, 50))),
			})
		}

		if len(rows) > 0 {
			t := table.New().
				Border(lipgloss.NormalBorder()).
				StyleFunc(func(row, _ int) lipgloss.Style {
					if row == 0 {
						return headerStyle.Copy().Padding(0, 1)
					}

					return lipgloss.NewStyle().Padding(0, 1)
				}).
				Headers("SYMBOL", "NAME", "BARS", "CLOSE", "MA20", "MA50").
				Rows(rows...)
			fmt.Println(t.Render())
		}

		if numFailed == len(results) {
			if pingErr := healthcheck.PingFailure(); pingErr != nil {
				log.Error().Err(pingErr).Msg("could not ping healthcheck")
			}

			log.Fatal().Int("NumSymbols", len(results)).Msg("no symbol could be ingested")
		}

		if pingErr := healthcheck.Ping(); pingErr != nil {
			log.Error().Err(pingErr).Msg("could not ping healthcheck")
		}
	},
}

func formatValue(value *float64) string {
	if value == nil {
		return "-"
	}

	return fmt.Sprintf("%.2f", *value)
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
}
