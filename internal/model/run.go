package model

// RunStatus represents the state of a bulk run.
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
	RunStatusStopped   RunStatus = "stopped"
)

// Terminal reports whether no further transitions are possible.
func (s RunStatus) Terminal() bool {
	return s != RunStatusRunning
}

// MessageMode selects how outbound text is produced.
type MessageMode string

const (
	MessageModeTemplate MessageMode = "template"
	MessageModeAI       MessageMode = "ai-prompt"
)

// BulkProgress is the aggregate state of one bulk run. Pollers only ever see
// copies produced by Clone.
type BulkProgress struct {
	ID                    string    `json:"id"`
	TotalContacts         int       `json:"totalContacts"`
	ProcessedContacts     int       `json:"processedContacts"`
	SuccessfulContacts    int       `json:"successfulContacts"`
	FailedContacts        int       `json:"failedContacts"`
	NotOnWhatsAppContacts int       `json:"notOnWhatsAppContacts"`
	SkippedContacts       int       `json:"skippedContacts"`
	CurrentContact        string    `json:"currentContact,omitempty"`
	Status                RunStatus `json:"status"`
	CapReached            bool      `json:"capReached,omitempty"`
	Logs                  []string  `json:"logs"`
}

// Clone returns a deep copy safe to hand to readers.
func (p *BulkProgress) Clone() *BulkProgress {
	if p == nil {
		return nil
	}
	cp := *p
	cp.Logs = append([]string(nil), p.Logs...)
	return &cp
}
