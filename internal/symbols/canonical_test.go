package symbols

import "testing"

func TestCanonicalUppercase(t *testing.T) {
	if got := Canonical("btcusdt"); got != "BTCUSDT" {
		t.Errorf("Canonical(btcusdt) = %s", got)
	}
}

func TestCanonicalIdempotent(t *testing.T) {
	for _, sym := range []string{"btcusdt", "BtcUsdt", "ETH-PERP", ""} {
		once := Canonical(sym)
		if twice := Canonical(once); twice != once {
			t.Errorf("Canonical not idempotent for %q: %q != %q", sym, once, twice)
		}
	}
}
