package models

import (
	"encoding/json"
	"time"
)

// Action types.
const (
	ActionTypeOrder    = "order"
	ActionTypeTransfer = "transfer"
	ActionTypePrice    = "price"
	ActionTypeReturn   = "return"
	ActionTypeDisposal = "disposal"
)

// Action priorities.
const (
	PriorityUrgent = "urgent"
	PriorityHigh   = "high"
	PriorityNormal = "normal"
)

// Action lifecycle. Pending actions are created by the engine and reviewed
// exactly once by a human; approved actions transition to executed as a
// side effect of approval. Rejected and executed are terminal.
const (
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusRejected = "rejected"
	StatusExecuted = "executed"
)

// Type families group action types that exclude each other while pending:
// at most one pending action per (SKU, family) at a time.
const (
	FamilyOrder    = "order"
	FamilyMarkdown = "markdown"
)

// TypeFamily maps an action type to its mutual-exclusion family. Types
// without a shared family (transfer, disposal) exclude only themselves, so
// a pending transfer never blocks a new order.
func TypeFamily(actionType string) string {
	switch actionType {
	case ActionTypeOrder:
		return FamilyOrder
	case ActionTypePrice, ActionTypeReturn:
		return FamilyMarkdown
	default:
		return actionType
	}
}

// PendingAction is the engine's output unit: a reviewable recommendation.
type PendingAction struct {
	ID               string
	SKUID            string
	Type             string
	Priority         string
	Title            string
	Justification    string
	Risks            string
	Alternatives     string
	RecommendedQty   *int
	RecommendedValue *float64
	SupplierID       *string
	ConfidenceScore  float64
	Status           string
	Metadata         *ActionMetadata
	CreatedAt        time.Time
	ReviewedAt       *time.Time
	ReviewedBy       *string
}

// ActionMetadata is the typed record stored alongside an action. It carries
// the intermediate quantities and the market snapshot the recommendation
// was derived from, so reviewers and the feedback learner can see how the
// final number was reached.
type ActionMetadata struct {
	BaseQty         int      `json:"base_qty,omitempty"`
	MarketAdjQty    int      `json:"market_adj_qty,omitempty"`
	FinalQty        int      `json:"final_qty,omitempty"`
	MarketSentiment string   `json:"market_sentiment,omitempty"`
	ShippingStress  string   `json:"shipping_stress,omitempty"`
	MarketSignals   []string `json:"market_signals,omitempty"`
	FeedbackNote    string   `json:"feedback_note,omitempty"`
	DaysOfSupply    *float64 `json:"days_of_supply,omitempty"`
	ForecastModel   string   `json:"forecast_model,omitempty"`
	ForecastDemand  *float64 `json:"forecast_demand_30d,omitempty"`
}

// MarshalMetadata serializes the metadata for storage. Returns the empty
// string when there is nothing to store.
func (a *PendingAction) MarshalMetadata() (string, error) {
	if a.Metadata == nil {
		return "", nil
	}
	b, err := json.Marshal(a.Metadata)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// UnmarshalMetadata restores the typed metadata from its stored form.
func (a *PendingAction) UnmarshalMetadata(raw string) error {
	if raw == "" {
		a.Metadata = nil
		return nil
	}
	var m ActionMetadata
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return err
	}
	a.Metadata = &m
	return nil
}

// IsReviewed reports whether the action has left the pending state.
func (a *PendingAction) IsReviewed() bool {
	return a.Status != StatusPending
}
