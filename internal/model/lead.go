package model

// Lead is one prospective contact read from a lead file.
type Lead struct {
	Name          string `json:"name"`
	Phone         string `json:"phone"`
	BusinessName  string `json:"businessName"`
	PromptVariant string `json:"promptVariant,omitempty"`

	// Enrichment columns, populated by the Google Maps export dialect.
	Title            string `json:"title,omitempty"`
	Rating           string `json:"rating,omitempty"`
	Reviews          string `json:"reviews,omitempty"`
	Industry         string `json:"industry,omitempty"`
	Address          string `json:"address,omitempty"`
	Website          string `json:"website,omitempty"`
	GoogleMapsLink   string `json:"googleMapsLink,omitempty"`
	Email            string `json:"email,omitempty"`
	AdditionalPhones string `json:"additionalPhones,omitempty"`
	City             string `json:"city,omitempty"`
}

// Label renders a lead as "Name (phone)" for logs.
func (l Lead) Label() string {
	return l.Name + " (" + l.Phone + ")"
}

// CountryInfo identifies a dialing country.
type CountryInfo struct {
	Name   string `json:"name"`
	Code   string `json:"code"`
	Prefix string `json:"prefix"`
}
