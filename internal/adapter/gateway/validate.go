package gateway

import (
	"strings"

	"github.com/shopspring/decimal"

	domainErrors "github.com/polkiloo/gophercheckout/internal/domain/errors"
)

type currencySet map[string]struct{}

func newCurrencySet(currencies []string, fallback string) currencySet {
	set := make(currencySet, len(currencies)+1)
	for _, c := range currencies {
		if c = strings.ToUpper(strings.TrimSpace(c)); c != "" {
			set[c] = struct{}{}
		}
	}
	if len(set) == 0 && fallback != "" {
		set[strings.ToUpper(fallback)] = struct{}{}
	}
	return set
}

func (s currencySet) check(currency string) error {
	if _, ok := s[strings.ToUpper(currency)]; !ok {
		return domainErrors.NewValidationError("currency", "unsupported currency "+currency)
	}
	return nil
}

func checkAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return domainErrors.NewValidationError("amount", "must be positive")
	}
	if !amount.Equal(amount.Round(2)) {
		return domainErrors.NewValidationError("amount", "must have at most two decimal places")
	}
	return nil
}

func requireDetail(details map[string]string, key string) (string, error) {
	value := strings.TrimSpace(details[key])
	if value == "" {
		return "", domainErrors.NewValidationError(key, "is required")
	}
	return value, nil
}

func trimMessage(msg, fallback string) string {
	if msg = strings.TrimSpace(msg); msg == "" {
		return fallback
	}
	return msg
}

var oneUnit = decimal.NewFromInt(1)
