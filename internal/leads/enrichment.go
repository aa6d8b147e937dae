package leads

import (
	"slices"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/wa-outreach/internal/model"
	"github.com/sells-group/wa-outreach/internal/phone"
)

// enrichmentColumns holds resolved column positions; -1 means absent.
type enrichmentColumns struct {
	name             int
	business         int
	title            int
	rating           int
	reviews          int
	phone            int
	additionalPhones int
	industry         int
	address          int
	website          int
	mapsLink         int
	email            int
	city             int
}

// Signature headers of a Google Maps scraper export. They are matched
// exactly, so exports written by WriteCSV stay in the legacy dialect.
const (
	headerTitle    = "Title"
	headerPhone    = "Phone"
	headerIndustry = "Industry"
)

// detectEnrichment reports whether header carries the Title/Phone/Industry
// signature and, if so, where each known column lives. Once the dialect is
// known, columns are located by case-insensitive match so export variants
// ("Phone Number", "Additional Phones") resolve without a fixed layout.
func detectEnrichment(header []string) (enrichmentColumns, bool) {
	if !slices.Contains(header, headerTitle) || !slices.Contains(header, headerIndustry) {
		return enrichmentColumns{}, false
	}

	lower := make([]string, len(header))
	for i, h := range header {
		lower[i] = strings.ToLower(h)
	}

	find := func(match func(string) bool) int {
		for i, h := range lower {
			if match(h) {
				return i
			}
		}
		return -1
	}
	has := func(sub string) func(string) bool {
		return func(h string) bool { return strings.Contains(h, sub) }
	}
	is := func(name string) func(string) bool {
		return func(h string) bool { return h == name }
	}
	first := func(idx ...int) int {
		for _, i := range idx {
			if i >= 0 {
				return i
			}
		}
		return -1
	}

	cols := enrichmentColumns{
		name:             find(is("name")),
		business:         find(is("businessname")),
		title:            slices.Index(header, headerTitle),
		rating:           find(has("rating")),
		reviews:          find(has("review")),
		phone:            first(slices.Index(header, headerPhone), find(isPrimaryPhone)),
		additionalPhones: find(isAdditionalPhones),
		industry:         slices.Index(header, headerIndustry),
		address:          first(find(is("address")), find(isAddress)),
		website:          find(has("website")),
		mapsLink:         find(isMapsLink),
		email:            find(has("email")),
		city:             find(has("city")),
	}

	hasPhone := slices.Contains(header, headerPhone) || cols.additionalPhones >= 0
	return cols, hasPhone
}

func isAdditionalPhones(h string) bool {
	return h == "phones" || (strings.Contains(h, "additional") && strings.Contains(h, "phone"))
}

func isPrimaryPhone(h string) bool {
	return strings.Contains(h, "phone") && !isAdditionalPhones(h)
}

// isAddress skips "Email Address" style headers.
func isAddress(h string) bool {
	return strings.Contains(h, "address") && !strings.Contains(h, "email")
}

func isMapsLink(h string) bool {
	return strings.Contains(h, "maps") || (strings.Contains(h, "google") && strings.Contains(h, "link"))
}

func parseEnrichment(cols enrichmentColumns, width int, rows [][]string) []model.Lead {
	var out []model.Lead
	for n, row := range rows {
		if len(row) < width {
			zap.L().Debug("leads: skipping short row", zap.Int("row", n+2), zap.Int("fields", len(row)))
			continue
		}

		get := func(idx int) string {
			if idx < 0 || idx >= len(row) {
				return ""
			}
			return row[idx]
		}

		title := get(cols.title)
		name := valueOr(get(cols.name), title)
		lead := model.Lead{
			Name:             valueOr(name, unknownName),
			BusinessName:     valueOr(valueOr(get(cols.business), title), unknownBusiness),
			Phone:            get(cols.phone),
			Title:            title,
			Rating:           get(cols.rating),
			Reviews:          get(cols.reviews),
			Industry:         get(cols.industry),
			Address:          get(cols.address),
			Website:          get(cols.website),
			GoogleMapsLink:   get(cols.mapsLink),
			Email:            get(cols.email),
			AdditionalPhones: get(cols.additionalPhones),
			City:             get(cols.city),
		}

		if cols.phone < 0 && lead.AdditionalPhones != "" {
			lead.Phone = strings.TrimSpace(strings.Split(lead.AdditionalPhones, ",")[0])
		}

		if lead.Phone == "" {
			zap.L().Debug("leads: skipping row without phone", zap.Int("row", n+2), zap.String("name", lead.Name))
			continue
		}
		out = append(out, lead)
	}
	return out
}

// Dedupe drops leads whose normalized phone was already seen, keeping the
// first occurrence.
func Dedupe(in []model.Lead) []model.Lead {
	seen := make(map[string]struct{}, len(in))
	out := make([]model.Lead, 0, len(in))
	for _, l := range in {
		key := phone.Normalize(l.Phone)
		if _, dup := seen[key]; dup {
			zap.L().Debug("leads: dropping duplicate phone", zap.String("name", l.Name), zap.String("phone", key))
			continue
		}
		seen[key] = struct{}{}
		out = append(out, l)
	}
	return out
}

// ExpandPhones merges each lead's primary and additional phones, keeps the
// distinct mobile numbers and rewrites the lead so Phone holds the first one
// as a local number without its country code. Remaining numbers are kept in
// AdditionalPhones. Leads left with no mobile number are dropped.
func ExpandPhones(in []model.Lead) []model.Lead {
	out := make([]model.Lead, 0, len(in))
	for _, l := range in {
		locals := mobileLocals(l)
		if len(locals) == 0 {
			zap.L().Info("leads: no mobile number, dropping lead",
				zap.String("name", l.Name),
				zap.String("phone", l.Phone),
				zap.String("additional_phones", l.AdditionalPhones),
			)
			continue
		}
		l.Phone = locals[0]
		l.AdditionalPhones = strings.Join(locals[1:], ",")
		out = append(out, l)
	}
	return out
}

func mobileLocals(l model.Lead) []string {
	candidates := []string{l.Phone}
	if l.AdditionalPhones != "" {
		candidates = append(candidates, strings.Split(l.AdditionalPhones, ",")...)
	}

	seen := make(map[string]struct{}, len(candidates))
	var locals []string
	for _, c := range candidates {
		digits := phone.Normalize(c)
		if digits == "" || !phone.IsMobile(digits) {
			continue
		}
		_, local := phone.ExtractCountry(digits)
		if _, dup := seen[local]; dup {
			continue
		}
		seen[local] = struct{}{}
		locals = append(locals, local)
	}
	return locals
}
