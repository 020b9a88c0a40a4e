package pivot

import (
	"math"

	"go-retail-pivot/internal/model"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// DefaultCurrencySymbol prefixes currency values when none is configured.
const DefaultCurrencySymbol = "$"

// Formatter renders aggregate values for display.
//
//	currency  $1,234.50  (-$12.00 when negative)
//	percent   12.5%
//	count     1,234
//	number    1,234.57
type Formatter struct {
	symbol  string
	printer *message.Printer
}

// NewFormatter builds a formatter for a currency symbol and a BCP 47 locale.
// An empty or unparsable locale falls back to English.
func NewFormatter(symbol, locale string) *Formatter {
	tag := language.English
	if locale != "" {
		if parsed, err := language.Parse(locale); err == nil {
			tag = parsed
		}
	}
	if symbol == "" {
		symbol = DefaultCurrencySymbol
	}
	return &Formatter{symbol: symbol, printer: message.NewPrinter(tag)}
}

// Format dispatches on the display format.
func (f *Formatter) Format(v float64, format model.DisplayFormat) string {
	switch format {
	case model.FormatCurrency:
		return f.Currency(v)
	case model.FormatPercent:
		return f.Percent(v)
	case model.FormatCount:
		return f.Count(v)
	default:
		return f.Number(v)
	}
}

// Currency renders the symbol and exactly two fraction digits.
func (f *Formatter) Currency(v float64) string {
	d := round(v, 2)
	if d.IsNegative() {
		return "-" + f.symbol + f.printer.Sprintf("%.2f", d.Abs().InexactFloat64())
	}
	return f.symbol + f.printer.Sprintf("%.2f", d.InexactFloat64())
}

// Percent renders one fraction digit and a trailing percent sign. The value
// is already scaled (12.5 renders as 12.5%).
func (f *Formatter) Percent(v float64) string {
	return f.printer.Sprintf("%.1f%%", round(v, 1).InexactFloat64())
}

// Count renders a grouped integer.
func (f *Formatter) Count(v float64) string {
	return f.printer.Sprintf("%d", int64(math.Round(sane(v))))
}

// Number renders a grouped value with two fraction digits.
func (f *Formatter) Number(v float64) string {
	return f.printer.Sprintf("%.2f", round(v, 2).InexactFloat64())
}

func round(v float64, places int32) decimal.Decimal {
	return decimal.NewFromFloat(sane(v)).Round(places)
}

// sane maps NaN and infinities to 0 so empty min/max seeds never render.
func sane(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
