package models

import (
	"encoding/json"
	"time"
)

// Audit event kinds.
const (
	EventGenerate = "GENERATE"
	EventApprove  = "APPROVE"
	EventReject   = "REJECT"
	EventExecute  = "EXECUTE"
	EventRetrain  = "RETRAIN"
)

// ActorAgent identifies engine-originated audit entries.
const ActorAgent = "AI Agent"

// Audit outcomes.
const (
	OutcomeApproved = "approved"
	OutcomeRejected = "rejected"
	OutcomeModified = "modified"
	OutcomeExecuted = "executed"
)

// AuditEntry is an immutable, append-only log row covering every engine
// decision and every human decision.
type AuditEntry struct {
	ID         string
	Timestamp  time.Time
	UserID     *string // nil for engine-originated entries
	UserEmail  string
	EventType  string
	EntityType string
	EntityID   string
	Detail     string
	Outcome    string
	Metadata   string // JSON, see AuditMetadata
}

// AuditMetadata is the structured payload attached to audit entries. Only
// the fields relevant to the event are set.
type AuditMetadata struct {
	SKUsScanned    int                `json:"skus_scanned,omitempty"`
	ActionsCreated int                `json:"actions_created,omitempty"`
	QtyOverride    *int               `json:"qty_override,omitempty"`
	OriginalQty    *int               `json:"original_qty,omitempty"`
	Notes          string             `json:"notes,omitempty"`
	Reason         string             `json:"reason,omitempty"`
	EmailSent      *bool              `json:"email_sent,omitempty"`
	Weights        json.RawMessage    `json:"weights,omitempty"`
	Counts         map[string]float64 `json:"counts,omitempty"`
}

// SetMetadata serializes m into the entry.
func (e *AuditEntry) SetMetadata(m *AuditMetadata) error {
	if m == nil {
		e.Metadata = ""
		return nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return err
	}
	e.Metadata = string(b)
	return nil
}

// ParseMetadata deserializes the entry's payload; nil when absent.
func (e *AuditEntry) ParseMetadata() (*AuditMetadata, error) {
	if e.Metadata == "" {
		return nil, nil
	}
	var m AuditMetadata
	if err := json.Unmarshal([]byte(e.Metadata), &m); err != nil {
		return nil, err
	}
	return &m, nil
}
