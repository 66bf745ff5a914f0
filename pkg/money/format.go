package money

import "strings"

// SymbolPosition places the currency symbol around the number.
type SymbolPosition string

const (
	SymbolBefore SymbolPosition = "before"
	SymbolAfter  SymbolPosition = "after"
)

// Format carries locale display settings.
type Format struct {
	Symbol             string
	Position           SymbolPosition
	DecimalSeparator   string
	ThousandsSeparator string
	Precision          int32
}

// DefaultFormat renders "$1,234.50".
var DefaultFormat = Format{
	Symbol:             "$",
	Position:           SymbolBefore,
	DecimalSeparator:   ".",
	ThousandsSeparator: ",",
	Precision:          2,
}

// Formatted renders m using the default format.
func (m Money) Formatted() string {
	return DefaultFormat.Format(m)
}

// Format rounds to the configured precision and applies separators and symbol.
func (f Format) Format(m Money) string {
	fixed := m.amount.Abs().StringFixed(f.Precision)
	whole, frac, _ := strings.Cut(fixed, ".")

	var b strings.Builder
	if m.amount.Round(f.Precision).IsNegative() {
		b.WriteString("-")
	}
	if f.Position != SymbolAfter {
		b.WriteString(f.Symbol)
	}
	b.WriteString(groupThousands(whole, f.ThousandsSeparator))
	if frac != "" {
		sep := f.DecimalSeparator
		if sep == "" {
			sep = "."
		}
		b.WriteString(sep)
		b.WriteString(frac)
	}
	if f.Position == SymbolAfter {
		b.WriteString(f.Symbol)
	}
	return b.String()
}

func groupThousands(digits, sep string) string {
	if sep == "" || len(digits) <= 3 {
		return digits
	}
	lead := len(digits) % 3
	var b strings.Builder
	if lead > 0 {
		b.WriteString(digits[:lead])
	}
	for i := lead; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteString(sep)
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}
