package symbols

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"ingestflow/config"
	"ingestflow/internal/exception"
	"ingestflow/logger"
)

const statusTrading = "TRADING"

// Resolver produces the effective tradable-symbol universe for a venue. An
// explicit symbol list in the configuration wins outright; otherwise the
// universe is discovered from the venue's REST metadata and filtered.
type Resolver struct {
	client  *http.Client
	limiter *rate.Limiter
	log     *logger.Log
}

// NewResolver builds a resolver with the given request timeout and rate
// limit settings.
func NewResolver(timeout time.Duration, rl config.RateLimitConfig) *Resolver {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	rps := rl.RequestsPerSecond
	if rps <= 0 {
		rps = 5
	}
	burst := rl.BurstSize
	if burst <= 0 {
		burst = 1
	}
	return &Resolver{
		client:  &http.Client{Timeout: timeout},
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
		log:     logger.GetLogger(),
	}
}

type exchangeInfo struct {
	Symbols []exchangeSymbol `json:"symbols"`
}

type exchangeSymbol struct {
	Symbol     string `json:"symbol"`
	QuoteAsset string `json:"quoteAsset"`
	Status     string `json:"status"`
}

// Resolve returns the ordered symbol universe for the venue. Failures are
// always surfaced as typed errors; falling back to an empty universe is the
// caller's policy, not the resolver's.
func (r *Resolver) Resolve(ctx context.Context, cfg config.VenueConfig) ([]string, error) {
	if len(cfg.Symbols) > 0 {
		out := make([]string, len(cfg.Symbols))
		copy(out, cfg.Symbols)
		return out, nil
	}

	if !cfg.Discovery.Enabled {
		return nil, nil
	}

	if cfg.RESTBase == "" {
		return nil, exception.Validationf("venue %s: discovery enabled but rest_base is not configured", cfg.Name)
	}

	reqURL := strings.TrimRight(cfg.RESTBase, "/") + "/exchangeInfo"
	log := r.log.WithComponent("symbol_resolver").WithFields(logger.Fields{
		"venue": cfg.Name,
		"url":   reqURL,
	})

	if err := r.limiter.Wait(ctx); err != nil {
		return nil, exception.IOf("rate limiter wait: %v", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, exception.Validationf("build discovery request %s: %v", reqURL, err)
	}

	start := time.Now()
	resp, err := r.client.Do(req)
	if err != nil {
		return nil, exception.IOf("discovery request %s: %v", reqURL, err)
	}
	defer resp.Body.Close()

	logger.LogPerformanceEntry(log, "symbol_resolver", "exchange_info", time.Since(start), nil)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, exception.Validationf("discovery request %s failed with status %d", reqURL, resp.StatusCode)
	}

	var info exchangeInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, exception.Decodef("discovery response from %s: %v", reqURL, err)
	}

	symbols := filterSymbols(info.Symbols, cfg.Discovery)

	log.WithFields(logger.Fields{
		"listed":   len(info.Symbols),
		"selected": len(symbols),
	}).Info("symbol universe resolved")

	return symbols, nil
}

// filterSymbols keeps trading entries passing the quote whitelist and symbol
// blacklist, preserving source order among survivors.
func filterSymbols(listed []exchangeSymbol, d config.DiscoveryConfig) []string {
	whitelist := make(map[string]struct{}, len(d.QuoteWhitelist))
	for _, q := range d.QuoteWhitelist {
		whitelist[Canonical(q)] = struct{}{}
	}
	blacklist := make(map[string]struct{}, len(d.SymbolBlacklist))
	for _, s := range d.SymbolBlacklist {
		blacklist[Canonical(s)] = struct{}{}
	}

	var out []string
	for _, entry := range listed {
		if entry.Status != statusTrading {
			continue
		}
		if len(whitelist) > 0 {
			if _, ok := whitelist[Canonical(entry.QuoteAsset)]; !ok {
				continue
			}
		}
		if _, banned := blacklist[Canonical(entry.Symbol)]; banned {
			continue
		}
		out = append(out, entry.Symbol)
	}
	return out
}
