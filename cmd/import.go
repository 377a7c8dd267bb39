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
	"os"
	"strings"

	"github.com/gocarina/gocsv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stockboard/stockboard/data"
	"github.com/stockboard/stockboard/store"
)

// importCmd represents the import command
var importCmd = &cobra.Command{
	Use:   "import <csv-file>",
	Short: "Load instrument identities from a CSV file",
	Long: `The import sub-command pre-loads the instrument table from a CSV file with
a symbol,name,sector,industry header row. Symbols already present keep their
existing identity fields.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()

		csvFile, err := os.Open(args[0])
		if err != nil {
			log.Fatal().Err(err).Str("FileName", args[0]).Msg("could not open csv file")
		}
		defer csvFile.Close()

		instruments := []*data.Instrument{}
		if err := gocsv.UnmarshalFile(csvFile, &instruments); err != nil {
			log.Fatal().Err(err).Str("FileName", args[0]).Msg("could not parse csv file")
		}

		myStore, err := store.Connect(ctx, viper.GetString("db.url"))
		if err != nil {
			log.Fatal().Err(err).Msg("could not connect to database")
		}
		defer myStore.Close()

		numImported := 0
		for _, instrument := range instruments {
			instrument.Symbol = strings.ToUpper(strings.TrimSpace(instrument.Symbol))
			if instrument.Symbol == "" {
				continue
			}

			if err := myStore.UpsertInstrument(ctx, instrument); err != nil {
				log.Error().Err(err).Str("Symbol", instrument.Symbol).Msg("could not save instrument")
				continue
			}

			numImported++
		}

		log.Info().Int("NumImported", numImported).Int("NumRows", len(instruments)).Msg("instrument import finished")
	},
}

func init() {
	rootCmd.AddCommand(importCmd)
}
