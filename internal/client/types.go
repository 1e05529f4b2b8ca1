package client

import (
	"time"

	"github.com/foxzi/reachgate/internal/admission"
	"github.com/foxzi/reachgate/internal/money"
	"github.com/foxzi/reachgate/internal/segment"
)

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Error string `json:"error"`
}

// HealthResponse represents health check response
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
	Uptime  string `json:"uptime"`
}

// CountResponse is the answer to POST /segments/count
type CountResponse struct {
	Count int `json:"count"`
}

// SegmentsResponse lists segments
type SegmentsResponse struct {
	Segments []*segment.Segment `json:"segments"`
}

// BalanceResponse carries the wallet balance
type BalanceResponse struct {
	Balance money.Amount `json:"balance"`
}

// TopUpRequest adds funds to the wallet
type TopUpRequest struct {
	Amount money.Amount `json:"amount"`
}

// CreditsResponse carries the remaining reboost credits
type CreditsResponse struct {
	Credits int `json:"credits"`
}

// ReboostRequest asks whether a reboost to RecipientCount contacts is covered
type ReboostRequest struct {
	RecipientCount int `json:"recipient_count"`
}

// ReboostResponse is the reboost admission decision
type ReboostResponse struct {
	admission.ReboostDecision
	Credits int `json:"credits"`
}

// EstimateRequest asks for a campaign quote. The audience is either an
// explicit RecipientCount or the size of a saved segment.
type EstimateRequest struct {
	RecipientCount int           `json:"recipient_count"`
	SegmentID      string        `json:"segment_id,omitempty"`
	BudgetCap      *money.Amount `json:"budget_cap,omitempty"`
	Additional     int           `json:"additional,omitempty"`
}

// EstimateResponse is the quote plus the budget cap check when a cap was given
type EstimateResponse struct {
	Estimate admission.Estimate        `json:"estimate"`
	Budget   *admission.BudgetDecision `json:"budget,omitempty"`
}

// ImportContactsRequest uploads contacts
type ImportContactsRequest struct {
	Contacts []*segment.Contact `json:"contacts"`
}

// ImportContactsResponse summarises an upload
type ImportContactsResponse struct {
	Created int `json:"created"`
	Updated int `json:"updated"`
}

// ContactsResponse lists contacts
type ContactsResponse struct {
	Contacts []*segment.Contact `json:"contacts"`
	Limit    int                `json:"limit,omitempty"`
	Offset   int                `json:"offset,omitempty"`
}

// Options tunes a Client
type Options struct {
	Timeout time.Duration
}
