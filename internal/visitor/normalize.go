package visitor

import "strings"

// NormalizePhone reduces a raw phone number to its bare 10-digit form:
// punctuation is stripped, and a leading country-code prefix is dropped
// when the digit count exceeds 10. Shorter inputs are returned as-is so the
// caller can decide whether they are acceptable.
func NormalizePhone(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if len(digits) > 10 {
		digits = digits[len(digits)-10:]
	}
	return digits
}

// standardFieldKeys maps the normalized form of a custom-field key to the
// standard visitor attribute it duplicates. Keys are compared with spaces,
// underscores and hyphens removed, case-insensitively.
var standardFieldKeys = map[string]struct{}{
	"name":         {},
	"fullname":     {},
	"visitorname":  {},
	"phone":        {},
	"phonenumber":  {},
	"mobile":       {},
	"mobilenumber": {},
	"contact":      {},
	"contactno":    {},
	"email":        {},
	"emailaddress": {},
	"emailid":      {},
	"company":      {},
	"companyname":  {},
	"organization": {},
	"organisation": {},
	"firm":         {},
	"designation":  {},
	"jobtitle":     {},
	"title":        {},
	"address":      {},
	"city":         {},
	"state":        {},
	"pincode":      {},
	"pin":          {},
	"zip":          {},
	"zipcode":      {},
	"postalcode":   {},
}

func normalizeKey(key string) string {
	replacer := strings.NewReplacer(" ", "", "_", "", "-", "")
	return strings.ToLower(replacer.Replace(key))
}

// StripStandardFields returns a copy of the custom-fields bag with every key
// that duplicates a standard visitor attribute removed, so the same logical
// attribute is never stored twice in different places.
func StripStandardFields(fields map[string]string) map[string]string {
	if len(fields) == 0 {
		return nil
	}
	out := make(map[string]string, len(fields))
	for key, value := range fields {
		if _, standard := standardFieldKeys[normalizeKey(key)]; standard {
			continue
		}
		out[key] = value
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
