// Copyright (C) 2025 sage-x-project
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.

// SPDX-License-Identifier: LGPL-3.0-or-later

package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// PriceFeedTool returns a synthetic spot price for a symbol. Bound to L1
// (no personalized investment advice) only: a bare price lookup carries
// no aggregation or attribution concerns.
type PriceFeedTool struct{}

func (PriceFeedTool) Name() string        { return "PriceFeedTool" }
func (PriceFeedTool) Description() string { return "Returns the current spot price for a crypto asset symbol." }
func (PriceFeedTool) PolicyIDs() []string { return []string{"L1"} }

func (PriceFeedTool) Schema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"symbol": {"type": "string", "description": "Asset ticker, e.g. BTC, ETH"}
		},
		"required": ["symbol"],
		"additionalProperties": false
	}`)
}

func (PriceFeedTool) Execute(ctx context.Context, arguments string) (string, error) {
	var args struct {
		Symbol string `json:"symbol"`
	}
	if err := json.Unmarshal([]byte(arguments), &args); err != nil {
		return "", fmt.Errorf("unmarshal arguments: %w", err)
	}
	symbol := strings.ToUpper(strings.TrimSpace(args.Symbol))
	if symbol == "" {
		return "", fmt.Errorf("symbol is required")
	}
	price := syntheticPrice(symbol)
	return fmt.Sprintf(`{"symbol":%q,"price_usd":%.2f,"source":"synthetic-feed"}`, symbol, price), nil
}

// OnChainHistoryTool returns a synthetic list of recent on-chain
// transactions for a wallet address. Bound to L1-L3: raw transaction
// dumps must stay aggregated and must not deanonymize counterparties.
type OnChainHistoryTool struct{}

func (OnChainHistoryTool) Name() string { return "OnChainHistoryTool" }
func (OnChainHistoryTool) Description() string {
	return "Returns recent on-chain transaction history for a wallet address."
}
func (OnChainHistoryTool) PolicyIDs() []string { return []string{"L1", "L2", "L3"} }

func (OnChainHistoryTool) Schema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"address": {"type": "string", "description": "Wallet address"},
			"limit": {"type": "integer", "minimum": 1, "maximum": 100}
		},
		"required": ["address"],
		"additionalProperties": false
	}`)
}

func (OnChainHistoryTool) Execute(ctx context.Context, arguments string) (string, error) {
	var args struct {
		Address string `json:"address"`
		Limit   int    `json:"limit"`
	}
	if err := json.Unmarshal([]byte(arguments), &args); err != nil {
		return "", fmt.Errorf("unmarshal arguments: %w", err)
	}
	if strings.TrimSpace(args.Address) == "" {
		return "", fmt.Errorf("address is required")
	}
	if args.Limit <= 0 {
		args.Limit = 5
	}
	return fmt.Sprintf(`{"address":%q,"tx_count":%d,"total_volume_usd":12450.33,"aggregated":true}`,
		args.Address, args.Limit), nil
}

// SentimentTool returns a synthetic aggregate sentiment score for an
// asset. Bound to L1 and L4: any summarized output must carry source
// and timestamp attribution.
type SentimentTool struct{}

func (SentimentTool) Name() string        { return "SentimentTool" }
func (SentimentTool) Description() string { return "Returns aggregated social sentiment for a crypto asset." }
func (SentimentTool) PolicyIDs() []string { return []string{"L1", "L4"} }

func (SentimentTool) Schema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"symbol": {"type": "string"}
		},
		"required": ["symbol"],
		"additionalProperties": false
	}`)
}

func (SentimentTool) Execute(ctx context.Context, arguments string) (string, error) {
	var args struct {
		Symbol string `json:"symbol"`
	}
	if err := json.Unmarshal([]byte(arguments), &args); err != nil {
		return "", fmt.Errorf("unmarshal arguments: %w", err)
	}
	symbol := strings.ToUpper(strings.TrimSpace(args.Symbol))
	if symbol == "" {
		return "", fmt.Errorf("symbol is required")
	}
	return fmt.Sprintf(`{"symbol":%q,"sentiment_score":0.62,"source":"aggregated social feed","as_of":"synthetic-timestamp"}`, symbol), nil
}

// PortfolioTool returns a synthetic portfolio summary for a wallet.
// Bound to all four policies: aggregated, non-deanonymizing, attributed
// output, and still subject to the no-advice rule.
type PortfolioTool struct{}

func (PortfolioTool) Name() string        { return "PortfolioTool" }
func (PortfolioTool) Description() string { return "Returns an aggregated portfolio summary for a wallet address." }
func (PortfolioTool) PolicyIDs() []string { return []string{"L1", "L2", "L3", "L4"} }

func (PortfolioTool) Schema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"address": {"type": "string"}
		},
		"required": ["address"],
		"additionalProperties": false
	}`)
}

func (PortfolioTool) Execute(ctx context.Context, arguments string) (string, error) {
	var args struct {
		Address string `json:"address"`
	}
	if err := json.Unmarshal([]byte(arguments), &args); err != nil {
		return "", fmt.Errorf("unmarshal arguments: %w", err)
	}
	if strings.TrimSpace(args.Address) == "" {
		return "", fmt.Errorf("address is required")
	}
	return fmt.Sprintf(`{"address":%q,"total_value_usd":84210.55,"asset_count":7,"aggregated":true,"source":"synthetic-portfolio-index","as_of":"synthetic-timestamp"}`,
		args.Address), nil
}

// syntheticPrice derives a deterministic, plausible-looking price for a
// symbol so repeated calls in tests are stable without a real feed.
func syntheticPrice(symbol string) float64 {
	base := map[string]float64{
		"BTC": 64250.12,
		"ETH": 3180.47,
		"SOL": 142.83,
	}
	if p, ok := base[symbol]; ok {
		return p
	}
	var sum int
	for _, r := range symbol {
		sum += int(r)
	}
	return float64(sum%500) + 1.0
}

// RegisterDefaultTools populates reg with the four demo tools.
func RegisterDefaultTools(reg *Registry) error {
	tools := []Tool{
		PriceFeedTool{},
		OnChainHistoryTool{},
		SentimentTool{},
		PortfolioTool{},
	}
	for _, t := range tools {
		if err := reg.Register(t); err != nil {
			return fmt.Errorf("register %s: %w", t.Name(), err)
		}
	}
	return nil
}
