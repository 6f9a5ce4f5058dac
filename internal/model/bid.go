package model

import "time"

// BidStatus is the lifecycle state of a provider's bid
type BidStatus string

const (
	BidPending   BidStatus = "pending"
	BidAccepted  BidStatus = "accepted"
	BidRejected  BidStatus = "rejected"
	BidWithdrawn BidStatus = "withdrawn"
)

// BidAction is the client's response to a pending bid
type BidAction string

const (
	BidActionAccept BidAction = "accept"
	BidActionReject BidAction = "reject"
)

// Bid is a provider's proposed price and terms for a task
type Bid struct {
	ID              string     `json:"id"`
	TaskID          string     `json:"task_id"`
	ProviderID      string     `json:"provider_id"`
	Amount          int64      `json:"amount"`
	Message         string     `json:"message,omitempty"`
	Status          BidStatus  `json:"status"`
	ResponseMessage string     `json:"response_message,omitempty"`
	RespondedAt     *time.Time `json:"responded_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}
