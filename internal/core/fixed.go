package core

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// FixedChargeNames is the closed set of monthly charges, in display order.
var FixedChargeNames = []string{"Internet", "Energia", "Apartamento", "Gás", "Pensão"}

// CanonicalFixedCharge maps user input such as "gas" or "PENSAO" to the
// stored name. It fails with a ValidationError for names outside the set.
func CanonicalFixedCharge(name string) (string, error) {
	key := Fold(name)
	for _, n := range FixedChargeNames {
		if Fold(n) == key {
			return n, nil
		}
	}
	return "", &ValidationError{Field: "nome", Err: ErrUnknownFixedCharge}
}

// Fold lowercases s and strips diacritics so that "Salário" matches "salario".
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.ToLower(strings.TrimSpace(out))
}
