package exposure

import (
	"strings"
)

var currencies = map[string]bool{
	"USD": true, "EUR": true, "GBP": true, "JPY": true, "CHF": true, "AUD": true,
	"NZD": true, "CAD": true, "SEK": true, "NOK": true, "DKK": true, "SGD": true,
	"HKD": true, "ZAR": true, "MXN": true, "TRY": true, "PLN": true, "CNH": true,
	"HUF": true, "CZK": true,
}

var sectorPrefixes = []struct {
	sector   string
	prefixes []string
}{
	{"metals", []string{"XAU", "XAG", "XPT", "XPD", "GOLD", "SILVER"}},
	{"crypto", []string{"BTC", "ETH", "LTC", "XRP", "SOL", "ADA", "DOGE", "BNB"}},
	{"energy", []string{"XTI", "XBR", "XNG", "WTI", "BRENT", "UKOIL", "USOIL", "NGAS"}},
	{"indices", []string{"US30", "US500", "US100", "USTEC", "SPX", "NAS", "NDX", "DJ", "GER", "DE40", "DAX",
		"UK100", "FTSE", "JP225", "NIKKEI", "FRA40", "AUS200", "HK50", "STOXX", "EU50"}},
}

// normalize strips broker suffixes such as "EURUSD.m" or "EURUSDpro".
func normalize(symbol string) string {
	s := strings.ToUpper(strings.TrimSpace(symbol))
	if i := strings.IndexAny(s, ".#_-"); i > 0 {
		s = s[:i]
	}
	return s
}

// Currencies splits an FX symbol into base and quote.
func Currencies(symbol string) (string, string, bool) {
	s := normalize(symbol)
	if len(s) < 6 {
		return "", "", false
	}
	base, quote := s[:3], s[3:6]
	if !currencies[base] || !currencies[quote] {
		return "", "", false
	}
	return base, quote, true
}

// Sector groups an instrument for concentration purposes. FX pairs are
// grouped by base currency.
func Sector(symbol string) string {
	s := normalize(symbol)
	for _, group := range sectorPrefixes {
		for _, p := range group.prefixes {
			if strings.HasPrefix(s, p) {
				return group.sector
			}
		}
	}
	if base, _, ok := Currencies(s); ok {
		return base
	}
	return "other"
}
