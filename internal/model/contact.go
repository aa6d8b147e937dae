package model

import "time"

// ContactStatus is the lifecycle state of a ledger entry.
type ContactStatus string

const (
	ContactStatusPending       ContactStatus = "pending"
	ContactStatusMessaged      ContactStatus = "messaged"
	ContactStatusFailed        ContactStatus = "failed"
	ContactStatusNotOnWhatsApp ContactStatus = "not_on_whatsapp"
	ContactStatusInvalidPhone  ContactStatus = "invalid_phone"
	ContactStatusSkipped       ContactStatus = "skipped"
)

// ContactStatuses lists every ledger status in display order.
var ContactStatuses = []ContactStatus{
	ContactStatusPending,
	ContactStatusMessaged,
	ContactStatusFailed,
	ContactStatusNotOnWhatsApp,
	ContactStatusInvalidPhone,
	ContactStatusSkipped,
}

// Valid reports whether s is a known ledger status.
func (s ContactStatus) Valid() bool {
	for _, known := range ContactStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// StoredContact is a ledger entry. NormalizedPhone is unique across the ledger.
type StoredContact struct {
	ID              string        `json:"id"`
	Lead            Lead          `json:"lead"`
	Status          ContactStatus `json:"status"`
	DateAdded       time.Time     `json:"dateAdded"`
	DateMessaged    *time.Time    `json:"dateMessaged,omitempty"`
	LastUpdated     time.Time     `json:"lastUpdated"`
	Error           string        `json:"error,omitempty"`
	NormalizedPhone string        `json:"normalizedPhone"`
}

// LedgerStats counts ledger entries per status.
type LedgerStats struct {
	Total    int                   `json:"total"`
	ByStatus map[ContactStatus]int `json:"byStatus"`
}

// TrackingStatus is the outcome recorded in the legacy tracking list.
type TrackingStatus string

const (
	TrackingStatusProcessed     TrackingStatus = "processed"
	TrackingStatusNotOnWhatsApp TrackingStatus = "not_on_whatsapp"
	TrackingStatusFailed        TrackingStatus = "failed"
	TrackingStatusInvalidPhone  TrackingStatus = "invalid_phone"
)

// TrackedContact is one entry of the tracking list, keyed by (Name, Phone).
type TrackedContact struct {
	Name      string         `json:"name"`
	Phone     string         `json:"phone"`
	Status    TrackingStatus `json:"status"`
	Timestamp time.Time      `json:"timestamp"`
	Error     string         `json:"error,omitempty"`
}

// TrackingStats counts tracking entries per status.
type TrackingStats struct {
	Total         int `json:"total"`
	Processed     int `json:"processed"`
	NotOnWhatsApp int `json:"notOnWhatsApp"`
	Failed        int `json:"failed"`
	InvalidPhone  int `json:"invalidPhone"`
}
