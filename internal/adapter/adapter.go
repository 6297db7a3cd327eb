package adapter

import (
	"context"
	"strings"
	"sync"

	"ingestflow/config"
	"ingestflow/internal/event"
)

// Adapter streams a venue's market data into the output channel. Connect
// runs until the socket closes or an unrecoverable error occurs; an empty
// topic set is a documented no-op, not an error. Restart policy belongs to
// the caller (or the venue's configured reconnect settings).
type Adapter interface {
	Connect(ctx context.Context, cfg config.VenueConfig, out chan<- event.NormalizedEvent) error
}

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Adapter)
)

// Register makes an adapter available under the given venue name. It is the
// extension point for new venues and is typically called from the adapter
// package's init function.
func Register(name string, a Adapter) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[name] = a
}

// Lookup finds the adapter for a venue. Names like "binance_spot" fall back
// to the registration for their leading segment ("binance"), so multiple
// venue instances can share one implementation.
func Lookup(name string) (Adapter, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	if a, ok := registry[name]; ok {
		return a, true
	}
	if idx := strings.IndexByte(name, '_'); idx > 0 {
		a, ok := registry[name[:idx]]
		return a, ok
	}
	return nil, false
}

// Names lists the registered venue names.
func Names() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	return names
}
