package utils

import (
	"fmt"
	"strings"

	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const DefaultCurrency = "USD"

// NormalizeCurrency validates an ISO 4217 code and returns it upper-cased.
func NormalizeCurrency(code string) (string, error) {
	code = strings.TrimSpace(code)
	if len(code) != 3 {
		return "", fmt.Errorf("invalid currency code %q", code)
	}
	unit, err := currency.ParseISO(code)
	if err != nil {
		return "", fmt.Errorf("invalid currency code %q: %w", code, err)
	}
	return unit.String(), nil
}

func IsValidCurrency(code string) bool {
	_, err := NormalizeCurrency(code)
	return err == nil
}

// FormatCurrency renders an expense total with the currency symbol for
// the user's language. Unknown codes fall back to "12.50 CODE".
func FormatCurrency(amount float64, code, lang string) string {
	unit, err := currency.ParseISO(strings.TrimSpace(code))
	if err != nil {
		return fmt.Sprintf("%.2f %s", amount, strings.ToUpper(strings.TrimSpace(code)))
	}
	tag, err := language.Parse(lang)
	if err != nil {
		tag = language.English
	}
	p := message.NewPrinter(tag)
	return p.Sprintf("%v", currency.Symbol(unit.Amount(amount)))
}
