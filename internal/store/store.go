// Package store declares the persistence contract for the marketplace
// entities. Every read and write happens inside a transaction opened with
// Store.InTx; state transitions go through UpdateIfStatus, which only writes
// when the stored status still equals the expected one.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/sudo-init-do/taskmarket/internal/model"
)

var (
	// ErrNotFound is returned when the referenced row does not exist
	ErrNotFound = errors.New("store: not found")
	// ErrStatusMismatch is returned by UpdateIfStatus when the stored status
	// differs from the expected one
	ErrStatusMismatch = errors.New("store: status mismatch")
	// ErrConflict is returned on uniqueness violations
	ErrConflict = errors.New("store: conflict")
)

// Store opens transactions. fn's writes are committed only if it returns nil.
type Store interface {
	InTx(ctx context.Context, fn func(tx Tx) error) error
	Ping(ctx context.Context) error
}

// Tx exposes the repositories bound to one transaction
type Tx interface {
	Users() UserRepo
	Tasks() TaskRepo
	Bids() BidRepo
	Payments() PaymentRepo
	Services() ServiceRepo
	Bookings() BookingRepo
	Reviews() ReviewRepo
}

type UserRepo interface {
	Create(ctx context.Context, u *model.User) error
	Find(ctx context.Context, id string) (*model.User, error)
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	List(ctx context.Context) ([]model.User, error)
	Update(ctx context.Context, u *model.User) error
}

type TaskRepo interface {
	Create(ctx context.Context, t *model.Task) error
	Find(ctx context.Context, id string) (*model.Task, error)
	// FindForUpdate locks the row until the transaction ends
	FindForUpdate(ctx context.Context, id string) (*model.Task, error)
	List(ctx context.Context, f model.TaskFilter) ([]model.Task, error)
	UpdateIfStatus(ctx context.Context, t *model.Task, expected model.TaskStatus) error
}

type BidRepo interface {
	Create(ctx context.Context, b *model.Bid) error
	Find(ctx context.Context, id string) (*model.Bid, error)
	FindForUpdate(ctx context.Context, id string) (*model.Bid, error)
	ListByTask(ctx context.Context, taskID string) ([]model.Bid, error)
	// UpdateIfStatus returns ErrConflict when the write would leave two
	// accepted bids on one task
	UpdateIfStatus(ctx context.Context, b *model.Bid, expected model.BidStatus) error
}

type PaymentRepo interface {
	Create(ctx context.Context, p *model.Payment) error
	Find(ctx context.Context, id string) (*model.Payment, error)
	FindForUpdate(ctx context.Context, id string) (*model.Payment, error)
	ListByStatus(ctx context.Context, status model.PaymentStatus) ([]model.Payment, error)
	UpdateIfStatus(ctx context.Context, p *model.Payment, expected model.PaymentStatus) error
}

type ServiceRepo interface {
	Create(ctx context.Context, s *model.Service) error
	Find(ctx context.Context, id string) (*model.Service, error)
	List(ctx context.Context, sort model.ServiceSort) ([]model.Service, error)
	ListIDs(ctx context.Context) ([]string, error)
	UpdateStats(ctx context.Context, id string, rating model.Rating, popularity float64) error
}

type BookingRepo interface {
	Create(ctx context.Context, b *model.Booking) error
	Find(ctx context.Context, id string) (*model.Booking, error)
	FindForUpdate(ctx context.Context, id string) (*model.Booking, error)
	UpdateIfStatus(ctx context.Context, b *model.Booking, expected model.BookingStatus) error
	// RatedScores returns the scores of completed bookings that carry a rating
	RatedScores(ctx context.Context, serviceID string) ([]int, error)
	// CountCreatedSince counts bookings with created_at >= since
	CountCreatedSince(ctx context.Context, serviceID string, since time.Time) (int, error)
}

type ReviewRepo interface {
	// Create returns ErrConflict if the task already has a review
	Create(ctx context.Context, r *model.Review) error
	FindByTask(ctx context.Context, taskID string) (*model.Review, error)
	ListByProvider(ctx context.Context, providerID string) ([]model.Review, error)
}
