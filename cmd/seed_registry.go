package main

import (
	"tuma-ledger/internal/logger"
	"tuma-ledger/internal/registry"
)

// Default allow-lists for a fresh deployment. Asset refs for on-chain
// currencies are the mainnet token contracts the escrow checker reads from;
// off-chain rails carry an empty ref.
var (
	seedCurrencies = map[string]string{
		"KES":   "",
		"USDC":  "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48",
		"CUSD":  "0x765DE816845861e75A25fCA122bb6898B8B1282a",
		"ETH":   "",
		"MATIC": "",
	}
	seedNetworks = map[string]string{
		"ethereum": "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48",
		"polygon":  "0x2791Bca1f2de4661ED88A30C99A7a9449Aa84174",
		"aleo":     "",
		"mpesa":    "",
	}
	seedPairs = [][2]string{
		{"ethereum", "polygon"},
		{"polygon", "ethereum"},
		{"ethereum", "aleo"},
		{"mpesa", "ethereum"},
	}
)

func seedRegistry(reg *registry.Registry, authority string) {
	for code, assetRef := range seedCurrencies {
		if err := reg.AddSupportedCurrency(authority, code, assetRef); err != nil {
			logger.GetLogger().Fatal().Err(err).Str("currency", code).Msg("Failed to seed currency")
		}
	}
	for name, assetRef := range seedNetworks {
		if err := reg.AddSupportedNetwork(authority, name, assetRef); err != nil {
			logger.GetLogger().Fatal().Err(err).Str("network", name).Msg("Failed to seed network")
		}
	}
	for _, pair := range seedPairs {
		if err := reg.AddNetworkPair(authority, pair[0], pair[1]); err != nil {
			logger.GetLogger().Fatal().Err(err).
				Str("source", pair[0]).
				Str("target", pair[1]).
				Msg("Failed to seed network pair")
		}
	}

	logger.GetLogger().Info().
		Int("currencies", len(seedCurrencies)).
		Int("networks", len(seedNetworks)).
		Int("pairs", len(seedPairs)).
		Msg("Registry seeded")
}
