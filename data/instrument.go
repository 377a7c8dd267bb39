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
package data

// Instrument identifies a tradable security. Rows are insert-if-absent: once
// a symbol is known its name, sector, and industry are never overwritten.
type Instrument struct {
	Symbol   string `json:"symbol" csv:"symbol"`
	Name     string `json:"name" csv:"name"`
	Sector   string `json:"sector" csv:"sector"`
	Industry string `json:"industry" csv:"industry"`
}
