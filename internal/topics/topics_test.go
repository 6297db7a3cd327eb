package topics

import (
	"reflect"
	"testing"

	"ingestflow/config"
)

func boolPtr(b bool) *bool { return &b }

func TestBuildTradesAndTicker(t *testing.T) {
	cfg := config.VenueConfig{
		Channels: config.ChannelConfig{
			Ticker: config.TickerConfig{Enabled: true},
		},
	}

	got := Build(cfg, []string{"BTCUSDT"})
	want := []string{"btcusdt@trade", "btcusdt@ticker"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestBuildAggregateTickerSuppressesPerSymbol(t *testing.T) {
	cfg := config.VenueConfig{
		Channels: config.ChannelConfig{
			Trades: boolPtr(false),
			Ticker: config.TickerConfig{Enabled: true, Mode: TickerModeAggregate},
		},
	}

	got := Build(cfg, []string{"BTCUSDT", "ETHUSDT"})
	want := []string{TickerModeAggregate}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestBuildNoChannels(t *testing.T) {
	cfg := config.VenueConfig{
		Channels: config.ChannelConfig{Trades: boolPtr(false)},
	}
	if got := Build(cfg, []string{"BTCUSDT"}); len(got) != 0 {
		t.Errorf("expected no topics, got %v", got)
	}
}

func TestBuildEmptySymbols(t *testing.T) {
	cfg := config.VenueConfig{
		Channels: config.ChannelConfig{
			Ticker: config.TickerConfig{Enabled: true},
		},
	}
	if got := Build(cfg, nil); len(got) != 0 {
		t.Errorf("expected no topics, got %v", got)
	}
}

func TestBuildMultipleSymbolsPreservesOrder(t *testing.T) {
	cfg := config.VenueConfig{}
	got := Build(cfg, []string{"ETHUSDT", "BTCUSDT"})
	want := []string{"ethusdt@trade", "btcusdt@trade"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}
