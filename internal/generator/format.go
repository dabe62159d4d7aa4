package generator

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// FormatThousands groups digits in threes from the right ("950000" -> "950,000").
func FormatThousands(value int64) string {
	return message.NewPrinter(language.Korean).Sprintf("%d", value)
}

// PriceAt renders the price tag at the given step index of r.
func PriceAt(r PriceRange, index int64) string {
	return FormatThousands(r.Min+index*r.Step) + r.Suffix
}
