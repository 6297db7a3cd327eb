package binance

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"ingestflow/config"
	"ingestflow/internal/event"
)

// newStreamServer serves one websocket connection, writes the given text
// frames and closes cleanly.
func newStreamServer(t *testing.T, frames []string) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer conn.Close()
		for _, frame := range frames {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(frame)); err != nil {
				t.Errorf("write frame: %v", err)
				return
			}
		}
		deadline := time.Now().Add(time.Second)
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
	}))
}

func wsBase(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func venueConfig(base string) config.VenueConfig {
	return config.VenueConfig{
		Name:        "binance",
		Symbols:     []string{"BTCUSDT"},
		WSBase:      base,
		HTTPTimeout: time.Second,
	}
}

func collect(t *testing.T, out <-chan event.NormalizedEvent, n int) []event.NormalizedEvent {
	t.Helper()
	events := make([]event.NormalizedEvent, 0, n)
	for len(events) < n {
		select {
		case evt := <-out:
			events = append(events, evt)
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for event %d of %d", len(events)+1, n)
		}
	}
	return events
}

func TestConnectStreamsBarePayload(t *testing.T) {
	srv := newStreamServer(t, []string{
		`{"e":"trade","E":1717171717001,"s":"btcusdt","p":"67512.01"}`,
	})
	defer srv.Close()

	out := make(chan event.NormalizedEvent, 8)
	if err := New().Connect(context.Background(), venueConfig(wsBase(srv)), out); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}

	events := collect(t, out, 1)
	evt := events[0]
	if evt.Venue != "binance" || evt.Symbol != "BTCUSDT" {
		t.Errorf("unexpected event: %+v", evt)
	}
	if evt.Timestamp != time.UnixMilli(1717171717001).UTC() {
		t.Errorf("timestamp: %v", evt.Timestamp)
	}
}

func TestConnectDemuxesAggregateArray(t *testing.T) {
	srv := newStreamServer(t, []string{
		`{"stream":"!ticker@arr","data":[` +
			`{"e":"24hrTicker","E":1717171717001,"s":"BTCUSDT","c":"67512.01"},` +
			`{"e":"24hrTicker","E":1717171717002,"s":"ethusdt","c":"3521.44"}]}`,
	})
	defer srv.Close()

	out := make(chan event.NormalizedEvent, 8)
	if err := New().Connect(context.Background(), venueConfig(wsBase(srv)), out); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}

	events := collect(t, out, 2)
	if events[0].Symbol != "BTCUSDT" || events[1].Symbol != "ETHUSDT" {
		t.Errorf("symbols: %s, %s", events[0].Symbol, events[1].Symbol)
	}
	for _, evt := range events {
		if evt.Venue != "binance" {
			t.Errorf("venue: %s", evt.Venue)
		}
	}
}

func TestConnectAggregateDirectPathArrayFrame(t *testing.T) {
	// An aggregate-only subscription uses the direct per-stream path, where
	// the server delivers the ticker array as the top-level frame.
	srv := newStreamServer(t, []string{
		`[{"e":"24hrTicker","E":1717171717001,"s":"BTCUSDT"},` +
			`{"e":"24hrTicker","E":1717171717002,"s":"ETHUSDT"}]`,
	})
	defer srv.Close()

	trades := false
	cfg := config.VenueConfig{
		Name:    "binance",
		Symbols: []string{"BTCUSDT", "ETHUSDT"},
		WSBase:  wsBase(srv),
		Channels: config.ChannelConfig{
			Trades: &trades,
			Ticker: config.TickerConfig{Enabled: true, Mode: "!ticker@arr"},
		},
	}

	out := make(chan event.NormalizedEvent, 8)
	if err := New().Connect(context.Background(), cfg, out); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}

	events := collect(t, out, 2)
	if events[0].Symbol != "BTCUSDT" || events[1].Symbol != "ETHUSDT" {
		t.Errorf("symbols: %s, %s", events[0].Symbol, events[1].Symbol)
	}
}

func TestConnectNoTopicsIsNoOp(t *testing.T) {
	cfg := config.VenueConfig{Name: "binance", WSBase: "ws://127.0.0.1:1"}
	out := make(chan event.NormalizedEvent, 1)

	// Empty universe with discovery disabled: no dial, clean exit.
	if err := New().Connect(context.Background(), cfg, out); err != nil {
		t.Fatalf("expected nil for empty topic set, got %v", err)
	}
}

func TestConnectEmptyUniverseAggregateTickerIsNoOp(t *testing.T) {
	cfg := config.VenueConfig{
		Name:   "binance",
		WSBase: "ws://127.0.0.1:1",
		Channels: config.ChannelConfig{
			Ticker: config.TickerConfig{Enabled: true, Mode: "!ticker@arr"},
		},
	}
	out := make(chan event.NormalizedEvent, 1)

	// The aggregate ticker needs no symbols to form a topic, but an empty
	// universe still means a clean exit without dialing.
	if err := New().Connect(context.Background(), cfg, out); err != nil {
		t.Fatalf("expected nil for empty universe, got %v", err)
	}
}

func TestConnectDialFailureIsFatal(t *testing.T) {
	cfg := venueConfig("ws://127.0.0.1:1")
	out := make(chan event.NormalizedEvent, 1)

	if err := New().Connect(context.Background(), cfg, out); err == nil {
		t.Fatal("expected connection error")
	}
}

func TestConnectMalformedFrameIsFatal(t *testing.T) {
	srv := newStreamServer(t, []string{`{not-json`})
	defer srv.Close()

	out := make(chan event.NormalizedEvent, 1)
	if err := New().Connect(context.Background(), venueConfig(wsBase(srv)), out); err == nil {
		t.Fatal("expected decode error for malformed frame")
	}
}

func TestConnectFullOutputDoesNotAbort(t *testing.T) {
	srv := newStreamServer(t, []string{
		`{"e":"trade","E":1,"s":"BTCUSDT"}`,
		`{"e":"trade","E":2,"s":"BTCUSDT"}`,
	})
	defer srv.Close()

	// Unbuffered channel with no reader: both sends drop, session still
	// runs to clean close.
	out := make(chan event.NormalizedEvent)
	if err := New().Connect(context.Background(), venueConfig(wsBase(srv)), out); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
}

func TestStreamURL(t *testing.T) {
	single := streamURL("", []string{"btcusdt@trade"})
	if single != "wss://stream.binance.com:9443/ws/btcusdt@trade" {
		t.Errorf("single: %s", single)
	}

	multi := streamURL("wss://example", []string{"btcusdt@trade", "ethusdt@trade"})
	if multi != "wss://example/stream?streams=btcusdt@trade/ethusdt@trade" {
		t.Errorf("multi: %s", multi)
	}
}
