package graph

import "strings"

// NormalizePhone reduces a phone number to its digits so that formatting
// differences do not hide a shared number. Persian and Arabic-Indic digits are
// folded to ASCII and the +98/0098 country prefix is rewritten to the local 0.
func NormalizePhone(phone string) string {
	var b strings.Builder
	b.Grow(len(phone))
	for i, r := range strings.TrimSpace(phone) {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r >= '۰' && r <= '۹':
			b.WriteRune('0' + (r - '۰'))
		case r >= '٠' && r <= '٩':
			b.WriteRune('0' + (r - '٠'))
		case r == '+' && i == 0:
			b.WriteRune(r)
		}
	}

	out := b.String()
	switch {
	case strings.HasPrefix(out, "+98"):
		out = "0" + out[3:]
	case strings.HasPrefix(out, "0098"):
		out = "0" + out[4:]
	}
	return out
}

var addressReplacer = strings.NewReplacer(
	"ي", "ی", // Arabic yeh
	"ك", "ک", // Arabic kaf
	"\u200c", " ", // zero-width non-joiner
)

// NormalizeAddress collapses whitespace, folds case and unifies Arabic/Persian
// letter variants.
func NormalizeAddress(address string) string {
	address = addressReplacer.Replace(address)
	return strings.ToLower(strings.Join(strings.Fields(address), " "))
}
