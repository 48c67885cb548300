package statement

import (
	"strings"
	"time"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"

	"github.com/cleared-dev/kbstatement/internal/model"
)

const dateFormat = "2.1.2006"

// parseAmount parses a Czech formatted amount such as "-1 234,56" or "1.234,56".
func parseAmount(s string) (decimal.Decimal, bool) {
	s = strings.TrimSpace(s)
	negative := strings.HasPrefix(s, "-")
	s = strings.ReplaceAll(s, "-", "")
	s = strings.NewReplacer(" ", "", "\u00a0", "", "\t", "").Replace(s)
	if strings.Contains(s, ",") {
		s = strings.ReplaceAll(s, ".", "")
	}
	s = strings.ReplaceAll(s, ",", ".")

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, false
	}
	if negative {
		d = d.Neg()
	}
	return d, true
}

// parseDate parses "3. 1. 2025" or "03.01.2025".
func parseDate(s string) (time.Time, bool) {
	s = strings.Join(strings.Fields(s), "")
	t, err := time.Parse(dateFormat, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// normalizeCurrency maps a printed currency token to its ISO code.
// A K-prefixed token that is not an ISO code is the domestic "Kč".
// Unknown codes yield "".
func normalizeCurrency(token string) string {
	token = strings.ToUpper(strings.TrimSpace(token))
	if token == "" {
		return ""
	}
	if money.GetCurrency(token) != nil {
		return token
	}
	if strings.HasPrefix(token, "K") {
		return model.DomesticCurrency
	}
	return ""
}
