package topics

import (
	"strings"

	"ingestflow/config"
)

const (
	tradeSuffix  = "@trade"
	tickerSuffix = "@ticker"

	// TickerModeAggregate is the ticker mode that subscribes the single
	// all-market aggregate feed instead of one ticker stream per symbol.
	TickerModeAggregate = "!ticker@arr"
)

// Build derives the wire subscription topics for a venue from its channel
// configuration and resolved symbol universe. It is pure and performs no
// deduplication; the venue protocol tolerates redundant topics.
func Build(cfg config.VenueConfig, symbols []string) []string {
	var out []string

	if cfg.Channels.TradesEnabled() {
		for _, sym := range symbols {
			out = append(out, strings.ToLower(sym)+tradeSuffix)
		}
	}

	if cfg.Channels.Ticker.Enabled {
		if cfg.Channels.Ticker.Mode == TickerModeAggregate {
			// The aggregate feed covers every symbol; per-symbol ticker
			// topics are suppressed.
			out = append(out, TickerModeAggregate)
		} else {
			for _, sym := range symbols {
				out = append(out, strings.ToLower(sym)+tickerSuffix)
			}
		}
	}

	return out
}
