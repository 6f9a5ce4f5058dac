package model

import "time"

// TaskStatus is the lifecycle state of a task posting
type TaskStatus string

const (
	TaskOpen       TaskStatus = "open"
	TaskAssigned   TaskStatus = "assigned"
	TaskInProgress TaskStatus = "in_progress"
	TaskCompleted  TaskStatus = "completed"
	TaskCancelled  TaskStatus = "cancelled"
)

// HasProvider reports whether a task in status s must carry an assigned provider
func (s TaskStatus) HasProvider() bool {
	switch s {
	case TaskAssigned, TaskInProgress, TaskCompleted:
		return true
	}
	return false
}

// BudgetType describes how the budget amount is interpreted
type BudgetType string

const (
	BudgetFixed      BudgetType = "fixed"
	BudgetHourly     BudgetType = "hourly"
	BudgetNegotiable BudgetType = "negotiable"
)

// Valid reports whether t is a known budget type
func (t BudgetType) Valid() bool {
	switch t {
	case BudgetFixed, BudgetHourly, BudgetNegotiable:
		return true
	}
	return false
}

// Budget is the client's price expectation for a task, amount in minor units
type Budget struct {
	Amount int64      `json:"amount"`
	Type   BudgetType `json:"type"`
}

// Task is a unit of work posted by a client and open for provider bidding
type Task struct {
	ID                 string     `json:"id"`
	ClientID           string     `json:"client_id"`
	Title              string     `json:"title"`
	Description        string     `json:"description"`
	Category           string     `json:"category"`
	Budget             Budget     `json:"budget"`
	Status             TaskStatus `json:"status"`
	AssignedProviderID string     `json:"assigned_provider_id,omitempty"`
	// BidsCount is cumulative; withdrawn or rejected bids are never subtracted.
	BidsCount int       `json:"bids_count"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Consistent reports whether the provider assignment agrees with the status
func (t *Task) Consistent() bool {
	return (t.AssignedProviderID != "") == t.Status.HasProvider()
}

// TaskFilter narrows task listings; empty fields match everything
type TaskFilter struct {
	Status   TaskStatus
	Category string
	ClientID string
	Limit    int
	Offset   int
}
