package ledger

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

const fingerprintDescLen = 20

// Fingerprint derives a stable identity string from date, amount, and
// description. Two transactions with identical date, amount to the cent, and
// the same leading 20 normalized description characters collide on purpose:
// the fingerprint exists for exact-duplicate detection, not as a general hash.
func Fingerprint(date string, amount decimal.Decimal, description string) string {
	norm := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return unicode.ToUpper(r)
		}
		return -1
	}, description)
	if runes := []rune(norm); len(runes) > fingerprintDescLen {
		norm = string(runes[:fingerprintDescLen])
	}
	return fmt.Sprintf("%s-%s-%s", date, amount.Round(2).StringFixed(2), norm)
}
