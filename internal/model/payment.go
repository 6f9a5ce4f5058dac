package model

import "time"

// PaymentStatus is the lifecycle state of a task payment
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentRequired  PaymentStatus = "payment_required"
	PaymentSubmitted PaymentStatus = "payment_submitted"
	PaymentHeld      PaymentStatus = "held"
	PaymentReleased  PaymentStatus = "released"
	PaymentRefunded  PaymentStatus = "refunded"
	PaymentFailed    PaymentStatus = "failed"
)

// VerifyAction is the admin decision on a submitted payment proof
type VerifyAction string

const (
	VerifyApprove VerifyAction = "approve"
	VerifyReject  VerifyAction = "reject"
)

// Payment is created when a bid is accepted and outlives the bid.
// Amount always equals CommissionAmount + ProviderAmount.
type Payment struct {
	ID               string        `json:"id"`
	TaskID           string        `json:"task_id"`
	BidID            string        `json:"bid_id"`
	ClientID         string        `json:"client_id"`
	ProviderID       string        `json:"provider_id"`
	Amount           int64         `json:"amount"`
	CommissionAmount int64         `json:"commission_amount"`
	ProviderAmount   int64         `json:"provider_amount"`
	Status           PaymentStatus `json:"status"`
	ScreenshotURL    string        `json:"screenshot_url,omitempty"`
	Reference        string        `json:"reference,omitempty"`
	SubmittedAt      *time.Time    `json:"submitted_at,omitempty"`
	VerifiedBy       string        `json:"verified_by,omitempty"`
	VerifiedAt       *time.Time    `json:"verified_at,omitempty"`
	CreatedAt        time.Time     `json:"created_at"`
	UpdatedAt        time.Time     `json:"updated_at"`
}
