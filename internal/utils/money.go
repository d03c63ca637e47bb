package utils

import (
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// FormatPrice renders amount with the currency symbol and digit grouping of locale.
// Unknown locales fall back to French and unknown currency codes to EUR.
func FormatPrice(locale, currencyCode string, amount float64) string {
	tag, err := language.Parse(locale)
	if err != nil {
		tag = language.French
	}
	unit, err := currency.ParseISO(currencyCode)
	if err != nil {
		unit = currency.EUR
	}
	p := message.NewPrinter(tag)
	return p.Sprintf("%v %.2f", currency.Symbol(unit), amount)
}
