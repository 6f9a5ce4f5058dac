// Package catalog manages the provider service catalog, bookings of its
// packages, and the rating and popularity statistics derived from them.
package catalog

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sudo-init-do/taskmarket/internal/apperr"
	"github.com/sudo-init-do/taskmarket/internal/model"
	"github.com/sudo-init-do/taskmarket/internal/store"
)

// Recomputer schedules a statistics refresh for one service
type Recomputer interface {
	EnqueueRecompute(ctx context.Context, serviceID string) error
}

// SyncRecomputer recomputes in the calling goroutine
type SyncRecomputer struct {
	Aggregator *Aggregator
}

func (s SyncRecomputer) EnqueueRecompute(ctx context.Context, serviceID string) error {
	_, err := s.Aggregator.Recompute(ctx, serviceID)
	return err
}

type PackageInput struct {
	Name         string `json:"name" validate:"required,max=60"`
	Description  string `json:"description" validate:"max=1000"`
	Price        int64  `json:"price" validate:"required,gt=0"`
	DeliveryDays int    `json:"delivery_days" validate:"gte=0,lte=365"`
}

type CreateServiceInput struct {
	Title       string         `json:"title" validate:"required,max=200"`
	Description string         `json:"description" validate:"max=5000"`
	Category    string         `json:"category" validate:"max=100"`
	Packages    []PackageInput `json:"packages" validate:"required,min=1,max=5,dive"`
}

type CreateBookingInput struct {
	PackageName string `json:"package_name" validate:"required"`
}

type RateBookingInput struct {
	Score int `json:"score" validate:"required,gte=1,lte=5"`
}

// Catalog holds the service and booking operations
type Catalog struct {
	store     store.Store
	recompute Recomputer
	now       func() time.Time
}

func New(s store.Store, r Recomputer) *Catalog {
	return &Catalog{store: s, recompute: r, now: time.Now}
}

// CreateService lists a new service with at least one package
func (c *Catalog) CreateService(ctx context.Context, actor model.Actor, in CreateServiceInput) (*model.Service, error) {
	if len(in.Packages) == 0 {
		return nil, apperr.ValidationFields(map[string]string{"packages": "packages is required"})
	}
	seen := make(map[string]bool, len(in.Packages))
	pkgs := make([]model.Package, 0, len(in.Packages))
	for _, p := range in.Packages {
		name := strings.TrimSpace(p.Name)
		if seen[strings.ToLower(name)] {
			return nil, apperr.ValidationFields(map[string]string{"packages": "package names must be unique"})
		}
		if p.Price <= 0 {
			return nil, apperr.ValidationFields(map[string]string{"packages.price": "price must be greater than 0"})
		}
		seen[strings.ToLower(name)] = true
		pkgs = append(pkgs, model.Package{
			Name:         name,
			Description:  strings.TrimSpace(p.Description),
			Price:        p.Price,
			DeliveryDays: p.DeliveryDays,
		})
	}

	now := c.now()
	svc := &model.Service{
		ID:          uuid.New().String(),
		ProviderID:  actor.UserID,
		Title:       strings.TrimSpace(in.Title),
		Description: strings.TrimSpace(in.Description),
		Category:    strings.ToLower(strings.TrimSpace(in.Category)),
		Packages:    pkgs,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	err := c.store.InTx(ctx, func(tx store.Tx) error {
		return tx.Services().Create(ctx, svc)
	})
	if err != nil {
		return nil, store.AppError(err, "service")
	}
	return svc, nil
}

func (c *Catalog) GetService(ctx context.Context, id string) (*model.Service, error) {
	var svc *model.Service
	err := c.store.InTx(ctx, func(tx store.Tx) error {
		var err error
		svc, err = tx.Services().Find(ctx, id)
		return err
	})
	if err != nil {
		return nil, store.AppError(err, "service")
	}
	return svc, nil
}

// ListServices orders the catalog by sort; empty means newest first
func (c *Catalog) ListServices(ctx context.Context, sort model.ServiceSort) ([]model.Service, error) {
	switch sort {
	case "":
		sort = model.SortNewest
	case model.SortNewest, model.SortPopularity, model.SortRating:
	default:
		return nil, apperr.ValidationFields(map[string]string{"sort": "sort must be one of [newest popularity rating]"})
	}

	var out []model.Service
	err := c.store.InTx(ctx, func(tx store.Tx) error {
		var err error
		out, err = tx.Services().List(ctx, sort)
		return err
	})
	if err != nil {
		return nil, apperr.Internal(err, "failed to fetch services")
	}
	return out, nil
}

// CreateBooking books one package of a service at its listed price
func (c *Catalog) CreateBooking(ctx context.Context, actor model.Actor, serviceID string, in CreateBookingInput) (*model.Booking, error) {
	var b *model.Booking
	err := c.store.InTx(ctx, func(tx store.Tx) error {
		svc, err := tx.Services().Find(ctx, serviceID)
		if err != nil {
			return store.AppError(err, "service")
		}
		if svc.ProviderID == actor.UserID {
			return apperr.Forbidden("you cannot book your own service")
		}
		pkg, ok := svc.FindPackage(strings.TrimSpace(in.PackageName))
		if !ok {
			return apperr.ValidationFields(map[string]string{"package_name": "package does not exist on this service"})
		}

		b = &model.Booking{
			ID:          uuid.New().String(),
			ServiceID:   svc.ID,
			ClientID:    actor.UserID,
			ProviderID:  svc.ProviderID,
			PackageName: pkg.Name,
			Price:       pkg.Price,
			Status:      model.BookingPending,
			CreatedAt:   c.now(),
		}
		return store.AppError(tx.Bookings().Create(ctx, b), "booking")
	})
	if err != nil {
		return nil, err
	}
	c.enqueue(ctx, b.ServiceID)
	return b, nil
}

// CompleteBooking is called by the provider once the package is delivered
func (c *Catalog) CompleteBooking(ctx context.Context, actor model.Actor, id string) (*model.Booking, error) {
	return c.transition(ctx, id, func(b *model.Booking) error {
		if b.ProviderID != actor.UserID {
			return apperr.Forbidden("only the provider can complete this booking")
		}
		if b.Status != model.BookingPending {
			return apperr.InvalidState("booking is %s, expected %s", b.Status, model.BookingPending)
		}
		now := c.now()
		b.Status = model.BookingCompleted
		b.CompletedAt = &now
		return nil
	}, model.BookingPending)
}

// CancelBooking drops a pending booking; either party may cancel
func (c *Catalog) CancelBooking(ctx context.Context, actor model.Actor, id string) (*model.Booking, error) {
	return c.transition(ctx, id, func(b *model.Booking) error {
		if b.ClientID != actor.UserID && b.ProviderID != actor.UserID && !actor.IsAdmin() {
			return apperr.Forbidden("not a party to this booking")
		}
		if b.Status != model.BookingPending {
			return apperr.InvalidState("booking is %s, expected %s", b.Status, model.BookingPending)
		}
		b.Status = model.BookingCancelled
		return nil
	}, model.BookingPending)
}

// RateBooking records the client's score on a completed booking, once, and
// schedules a statistics refresh for its service.
func (c *Catalog) RateBooking(ctx context.Context, actor model.Actor, id string, in RateBookingInput) (*model.Booking, error) {
	if in.Score < 1 || in.Score > 5 {
		return nil, apperr.ValidationFields(map[string]string{"score": "score must be between 1 and 5"})
	}
	b, err := c.transition(ctx, id, func(b *model.Booking) error {
		if b.ClientID != actor.UserID {
			return apperr.Forbidden("only the client can rate this booking")
		}
		if b.Status != model.BookingCompleted {
			return apperr.InvalidState("only completed bookings can be rated")
		}
		if b.RatingScore != 0 {
			return apperr.Conflict("booking has already been rated")
		}
		now := c.now()
		b.RatingScore = in.Score
		b.RatedAt = &now
		return nil
	}, model.BookingCompleted)
	if err != nil {
		return nil, err
	}
	c.enqueue(ctx, b.ServiceID)
	return b, nil
}

// transition locks the booking, applies fn and writes it back if the stored
// status still equals expected
func (c *Catalog) transition(ctx context.Context, id string, fn func(b *model.Booking) error, expected model.BookingStatus) (*model.Booking, error) {
	var b *model.Booking
	err := c.store.InTx(ctx, func(tx store.Tx) error {
		var err error
		b, err = tx.Bookings().FindForUpdate(ctx, id)
		if err != nil {
			return store.AppError(err, "booking")
		}
		if err := fn(b); err != nil {
			return err
		}
		err = tx.Bookings().UpdateIfStatus(ctx, b, expected)
		if errors.Is(err, store.ErrStatusMismatch) {
			return apperr.InvalidState("booking is no longer %s", expected)
		}
		return store.AppError(err, "booking")
	})
	if err != nil {
		return nil, err
	}
	return b, nil
}

// enqueue failures are logged; the periodic recompute catches up
func (c *Catalog) enqueue(ctx context.Context, serviceID string) {
	if c.recompute == nil {
		return
	}
	if err := c.recompute.EnqueueRecompute(ctx, serviceID); err != nil {
		zap.L().Warn("enqueue recompute failed", zap.String("service_id", serviceID), zap.Error(err))
	}
}
