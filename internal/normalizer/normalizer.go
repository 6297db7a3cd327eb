package normalizer

import (
	"encoding/json"
	"time"

	"ingestflow/internal/event"
	"ingestflow/internal/exception"
	"ingestflow/internal/symbols"
)

// Normalize turns a raw venue payload into a NormalizedEvent stamped with
// the current UTC time. The symbol is canonicalized; the payload is kept
// verbatim.
func Normalize(venue, symbol string, raw []byte) (event.NormalizedEvent, error) {
	return NormalizeAt(venue, symbol, raw, time.Now().UTC())
}

// NormalizeAt is Normalize with a caller-supplied timestamp, used by the
// live adapters which extract the venue event time from the frame itself.
func NormalizeAt(venue, symbol string, raw []byte, ts time.Time) (event.NormalizedEvent, error) {
	var payload json.RawMessage
	if err := json.Unmarshal(raw, &payload); err != nil {
		return event.NormalizedEvent{}, exception.Decodef("payload for %s/%s: %v", venue, symbol, err)
	}
	return event.NormalizedEvent{
		Venue:     venue,
		Symbol:    symbols.Canonical(symbol),
		Timestamp: ts.UTC(),
		Payload:   payload,
	}, nil
}
