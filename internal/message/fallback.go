package message

import (
	"regexp"
	"strings"

	"github.com/sells-group/wa-outreach/internal/model"
)

const genericOpener = "Hi are you open for business today"

// cityPattern picks the city out of "street, City, ST ZIP".
var cityPattern = regexp.MustCompile(`,\s*([^,]+),\s*[A-Z]{2}`)

// ExtractCity returns the city part of a US-style address, or "".
func ExtractCity(address string) string {
	m := cityPattern.FindStringSubmatch(address)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(m[1])
}

type industryOpener struct {
	keywords []string
	opener   string
	// withCity, when set, is completed with the city if one is known.
	withCity string
}

// industryOpeners is evaluated in order; the first keyword hit wins.
var industryOpeners = []industryOpener{
	{keywords: []string{"gym", "fitness"}, opener: "Hey do you still offer trial passes"},
	{keywords: []string{"dentist", "dental"}, opener: "Hi are you taking new patients this month"},
	{keywords: []string{"restaurant", "food", "pizza"}, opener: "Hi are you taking reservations this week"},
	{keywords: []string{"salon", "hair", "beauty"}, opener: "Hi do you have openings this week"},
	{keywords: []string{"auto", "repair", "mechanic"}, opener: "Hi do you handle urgent repairs today", withCity: "Hi do you handle urgent repairs in "},
	{keywords: []string{"marketing", "agency"}, opener: "Hi do you take on new clients this month"},
	{keywords: []string{"club", "bar", "nightclub"}, opener: "Hi whats the price for the club"},
	{keywords: []string{"hotel", "accommodation"}, opener: "Hi do you have availability this week"},
	{keywords: []string{"ecommerce", "online", "shop"}, opener: "Hi do you answer product questions here"},
	{keywords: []string{"service", "home"}, opener: "Hi do you handle urgent jobs", withCity: "Hi do you handle urgent jobs in "},
}

// FallbackOpener picks a one-line opener from the lead's industry without
// calling any external service.
func FallbackOpener(lead model.Lead) string {
	industry := strings.ToLower(lead.Industry)
	city := ExtractCity(lead.Address)

	for _, o := range industryOpeners {
		for _, kw := range o.keywords {
			if !strings.Contains(industry, kw) {
				continue
			}
			if city != "" && o.withCity != "" {
				return o.withCity + city
			}
			return o.opener
		}
	}
	return genericOpener
}
