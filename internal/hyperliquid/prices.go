package hyperliquid

import (
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// Perp prices accept at most 5 significant figures and at most
// 6 - szDecimals decimal places. Integral prices are always accepted, so
// the significant-figure limit only ever removes decimals.
const maxPriceSigFigs = 5

// FormatPrice renders a price for the wire, rounded to what the exchange
// accepts for an asset with the given size precision.
func FormatPrice(px float64, szDecimals int) string {
	maxDecimals := 6 - szDecimals
	if maxDecimals < 0 {
		maxDecimals = 0
	}

	places := maxDecimals
	if abs := math.Abs(px); abs > 0 {
		sigPlaces := maxPriceSigFigs - 1 - int(math.Floor(math.Log10(abs)))
		if sigPlaces < places {
			places = sigPlaces
		}
	}
	if places < 0 {
		places = 0
	}

	return trimZeros(decimal.NewFromFloat(px).Round(int32(places)).String())
}

// FormatSize renders an order size rounded to the asset's szDecimals.
func FormatSize(sz float64, szDecimals int) string {
	return trimZeros(decimal.NewFromFloat(sz).Round(int32(szDecimals)).String())
}

// trimZeros strips trailing fractional zeros; the exchange rejects
// "130.0" where "130" is meant.
func trimZeros(s string) string {
	if !strings.Contains(s, ".") {
		return s
	}
	s = strings.TrimRight(s, "0")
	return strings.TrimRight(s, ".")
}
