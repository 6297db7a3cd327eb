package event

import (
	"encoding/json"
	"time"
)

// NormalizedEvent is the canonical unit flowing from venue adapters to
// consumers. Payload holds the venue message (or the relevant sub-object of
// a multiplexed frame) exactly as received. Instances are never mutated
// after construction and are safe to copy.
type NormalizedEvent struct {
	Venue     string          `json:"venue"`
	Symbol    string          `json:"symbol"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
}
