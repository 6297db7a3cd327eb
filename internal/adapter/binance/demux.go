package binance

import (
	"bytes"
	"encoding/json"
	"time"

	"ingestflow/internal/event"
	"ingestflow/internal/exception"
	"ingestflow/internal/symbols"
)

// combinedFrame is the combined-stream envelope. Bare single-topic frames
// have no "data" key and leave Data empty.
type combinedFrame struct {
	Stream string          `json:"stream"`
	Data   json.RawMessage `json:"data"`
}

// payloadMeta carries the optional fields shared by venue payloads: the
// instrument symbol and the event time in epoch milliseconds.
type payloadMeta struct {
	Symbol    string `json:"s"`
	EventTime int64  `json:"E"`
}

// demux splits a text frame into its payload objects. A top-level array is
// an aggregate feed on the direct per-stream path and yields one payload per
// element. A frame carrying a "data" field is a combined-stream envelope
// whose data is either a single payload or an array of payloads; otherwise
// the whole frame is the payload.
func demux(frame []byte) ([]json.RawMessage, error) {
	if trimmed := bytes.TrimSpace(frame); len(trimmed) > 0 && trimmed[0] == '[' {
		var items []json.RawMessage
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil, exception.Decodef("malformed frame: %v", err)
		}
		return items, nil
	}

	var env combinedFrame
	if err := json.Unmarshal(frame, &env); err != nil {
		return nil, exception.Decodef("malformed frame: %v", err)
	}

	data := bytes.TrimSpace(env.Data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return []json.RawMessage{json.RawMessage(frame)}, nil
	}

	if data[0] == '[' {
		var items []json.RawMessage
		if err := json.Unmarshal(data, &items); err != nil {
			return nil, exception.Decodef("malformed aggregate payload: %v", err)
		}
		return items, nil
	}

	return []json.RawMessage{env.Data}, nil
}

// buildEvent extracts the symbol and venue event time from the payload and
// wraps it as a NormalizedEvent. Missing fields fall back to "unknown" and
// the current UTC instant.
func buildEvent(venue string, payload json.RawMessage) event.NormalizedEvent {
	var meta payloadMeta
	// Payloads without the shared fields still produce an event.
	_ = json.Unmarshal(payload, &meta)

	sym := meta.Symbol
	if sym == "" {
		sym = "unknown"
	}

	ts := time.Now().UTC()
	if meta.EventTime > 0 {
		ts = time.UnixMilli(meta.EventTime).UTC()
	}

	return event.NormalizedEvent{
		Venue:     venue,
		Symbol:    symbols.Canonical(sym),
		Timestamp: ts,
		Payload:   payload,
	}
}
