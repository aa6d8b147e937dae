// Package phone normalizes, classifies and pre-flight validates phone numbers
// before any automation is attempted against them.
package phone

import (
	"regexp"
	"strings"

	"github.com/sells-group/wa-outreach/internal/model"
)

// Portugal is the country assumed when no dial-code pattern matches.
var Portugal = model.CountryInfo{Name: "Portugal", Code: "PT", Prefix: "+351"}

type countryPattern struct {
	re      *regexp.Regexp
	country model.CountryInfo
}

// countryPatterns is evaluated in order and the first match wins. Canada
// shares +1 with the US and sits after it, so a bare +1 number resolves to US.
var countryPatterns = []countryPattern{
	{regexp.MustCompile(`^1(\d{10})$`), model.CountryInfo{Name: "United States", Code: "US", Prefix: "+1"}},
	{regexp.MustCompile(`^44(\d{10})$`), model.CountryInfo{Name: "United Kingdom", Code: "GB", Prefix: "+44"}},
	{regexp.MustCompile(`^49(\d{10,11})$`), model.CountryInfo{Name: "Germany", Code: "DE", Prefix: "+49"}},
	{regexp.MustCompile(`^33(\d{9})$`), model.CountryInfo{Name: "France", Code: "FR", Prefix: "+33"}},
	{regexp.MustCompile(`^34(\d{9})$`), model.CountryInfo{Name: "Spain", Code: "ES", Prefix: "+34"}},
	{regexp.MustCompile(`^39(\d{9,10})$`), model.CountryInfo{Name: "Italy", Code: "IT", Prefix: "+39"}},
	{regexp.MustCompile(`^351(\d{9})$`), Portugal},
	{regexp.MustCompile(`^55(\d{10,11})$`), model.CountryInfo{Name: "Brazil", Code: "BR", Prefix: "+55"}},
	{regexp.MustCompile(`^86(\d{11})$`), model.CountryInfo{Name: "China", Code: "CN", Prefix: "+86"}},
	{regexp.MustCompile(`^81(\d{10,11})$`), model.CountryInfo{Name: "Japan", Code: "JP", Prefix: "+81"}},
	{regexp.MustCompile(`^91(\d{10})$`), model.CountryInfo{Name: "India", Code: "IN", Prefix: "+91"}},
	{regexp.MustCompile(`^61(\d{9})$`), model.CountryInfo{Name: "Australia", Code: "AU", Prefix: "+61"}},
	{regexp.MustCompile(`^1(\d{10})$`), model.CountryInfo{Name: "Canada", Code: "CA", Prefix: "+1"}},
}

// Normalize strips every non-digit character.
func Normalize(phone string) string {
	var b strings.Builder
	b.Grow(len(phone))
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// ExtractCountry detects the dialing country of phone and returns it together
// with the local number. Unmatched numbers fall back to Portugal with the full
// normalized string as the local part.
func ExtractCountry(phone string) (model.CountryInfo, string) {
	return Resolve(phone, Portugal)
}

// Resolve is ExtractCountry with fallback used instead of Portugal for
// numbers that carry no recognizable dial code.
func Resolve(phone string, fallback model.CountryInfo) (model.CountryInfo, string) {
	normalized := Normalize(phone)
	for _, p := range countryPatterns {
		if m := p.re.FindStringSubmatch(normalized); m != nil {
			return p.country, m[1]
		}
	}
	return fallback, normalized
}

// LookupCountry finds a table entry by ISO code, case-insensitively.
func LookupCountry(code string) (model.CountryInfo, bool) {
	for _, p := range countryPatterns {
		if strings.EqualFold(p.country.Code, code) {
			return p.country, true
		}
	}
	return model.CountryInfo{}, false
}

// Countries returns the dial-code table in match order.
func Countries() []model.CountryInfo {
	out := make([]model.CountryInfo, len(countryPatterns))
	for i, p := range countryPatterns {
		out[i] = p.country
	}
	return out
}

const (
	ptMobilePrefix = '9'
	ptLocalDigits  = 9
)

// ptLandlinePrefixes are geographic and nomadic ranges that WhatsApp cannot reach.
var ptLandlinePrefixes = []string{"2", "3"}

// IsMobile reports whether phone can be reached over the messaging network.
// Only the default country is filtered: its local part must be nine digits
// starting with 9. Numbers of any other detected country pass.
func IsMobile(phone string) bool {
	country, local := ExtractCountry(phone)
	if country.Code != Portugal.Code {
		return true
	}
	for _, p := range ptLandlinePrefixes {
		if strings.HasPrefix(local, p) {
			return false
		}
	}
	return len(local) == ptLocalDigits && local[0] == ptMobilePrefix
}
