package symbols

import "strings"

// Canonical converts a venue-specific instrument identifier to our uppercase
// format. Applying it twice is a no-op.
func Canonical(sym string) string {
	return strings.ToUpper(sym)
}
