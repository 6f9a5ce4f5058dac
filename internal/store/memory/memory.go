// Package memory is an in-process store used by the mock server and tests.
// Transactions are serialised by a single mutex and run against a copy of
// the data, which replaces the live copy only when fn succeeds.
package memory

import (
	"context"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/sudo-init-do/taskmarket/internal/model"
	"github.com/sudo-init-do/taskmarket/internal/store"
)

type dataset struct {
	users    map[string]model.User
	tasks    map[string]model.Task
	bids     map[string]model.Bid
	payments map[string]model.Payment
	services map[string]model.Service
	bookings map[string]model.Booking
	reviews  map[string]model.Review
}

func newDataset() *dataset {
	return &dataset{
		users:    map[string]model.User{},
		tasks:    map[string]model.Task{},
		bids:     map[string]model.Bid{},
		payments: map[string]model.Payment{},
		services: map[string]model.Service{},
		bookings: map[string]model.Booking{},
		reviews:  map[string]model.Review{},
	}
}

func (d *dataset) clone() *dataset {
	return &dataset{
		users:    cloneMap(d.users),
		tasks:    cloneMap(d.tasks),
		bids:     cloneMap(d.bids),
		payments: cloneMap(d.payments),
		services: cloneMap(d.services),
		bookings: cloneMap(d.bookings),
		reviews:  cloneMap(d.reviews),
	}
}

func cloneMap[V any](m map[string]V) map[string]V {
	out := make(map[string]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Store is a store.Store backed by maps
type Store struct {
	mu   sync.Mutex
	data *dataset
}

// New returns an empty store
func New() *Store {
	return &Store{data: newDataset()}
}

var _ store.Store = (*Store)(nil)

func (s *Store) InTx(ctx context.Context, fn func(tx store.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	work := s.data.clone()
	if err := fn(&tx{d: work}); err != nil {
		return err
	}
	s.data = work
	return nil
}

func (s *Store) Ping(ctx context.Context) error { return ctx.Err() }

type tx struct{ d *dataset }

func (t *tx) Users() store.UserRepo       { return users{t.d} }
func (t *tx) Tasks() store.TaskRepo       { return tasks{t.d} }
func (t *tx) Bids() store.BidRepo         { return bids{t.d} }
func (t *tx) Payments() store.PaymentRepo { return payments{t.d} }
func (t *tx) Services() store.ServiceRepo { return services{t.d} }
func (t *tx) Bookings() store.BookingRepo { return bookings{t.d} }
func (t *tx) Reviews() store.ReviewRepo   { return reviews{t.d} }

// ===== users =====

type users struct{ d *dataset }

func (r users) Create(_ context.Context, u *model.User) error {
	if _, ok := r.d.users[u.ID]; ok {
		return store.ErrConflict
	}
	for _, existing := range r.d.users {
		if strings.EqualFold(existing.Email, u.Email) {
			return store.ErrConflict
		}
	}
	r.d.users[u.ID] = *u
	return nil
}

func (r users) Find(_ context.Context, id string) (*model.User, error) {
	u, ok := r.d.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &u, nil
}

func (r users) FindByEmail(_ context.Context, email string) (*model.User, error) {
	for _, u := range r.d.users {
		if strings.EqualFold(u.Email, email) {
			return &u, nil
		}
	}
	return nil, store.ErrNotFound
}

func (r users) List(_ context.Context) ([]model.User, error) {
	out := make([]model.User, 0, len(r.d.users))
	for _, u := range r.d.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return newer(out[i].CreatedAt, out[j].CreatedAt, out[i].ID, out[j].ID) })
	return out, nil
}

func (r users) Update(_ context.Context, u *model.User) error {
	if _, ok := r.d.users[u.ID]; !ok {
		return store.ErrNotFound
	}
	r.d.users[u.ID] = *u
	return nil
}

// ===== tasks =====

type tasks struct{ d *dataset }

func (r tasks) Create(_ context.Context, t *model.Task) error {
	if _, ok := r.d.tasks[t.ID]; ok {
		return store.ErrConflict
	}
	r.d.tasks[t.ID] = *t
	return nil
}

func (r tasks) Find(_ context.Context, id string) (*model.Task, error) {
	t, ok := r.d.tasks[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &t, nil
}

// FindForUpdate needs no extra locking; the transaction holds the store mutex
func (r tasks) FindForUpdate(ctx context.Context, id string) (*model.Task, error) {
	return r.Find(ctx, id)
}

func (r tasks) List(_ context.Context, f model.TaskFilter) ([]model.Task, error) {
	out := []model.Task{}
	for _, t := range r.d.tasks {
		if f.Status != "" && t.Status != f.Status {
			continue
		}
		if f.Category != "" && t.Category != f.Category {
			continue
		}
		if f.ClientID != "" && t.ClientID != f.ClientID {
			continue
		}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return newer(out[i].CreatedAt, out[j].CreatedAt, out[i].ID, out[j].ID) })
	return page(out, f.Offset, f.Limit), nil
}

func (r tasks) UpdateIfStatus(_ context.Context, t *model.Task, expected model.TaskStatus) error {
	cur, ok := r.d.tasks[t.ID]
	if !ok {
		return store.ErrNotFound
	}
	if cur.Status != expected {
		return store.ErrStatusMismatch
	}
	r.d.tasks[t.ID] = *t
	return nil
}

// ===== bids =====

type bids struct{ d *dataset }

func (r bids) Create(_ context.Context, b *model.Bid) error {
	if _, ok := r.d.bids[b.ID]; ok {
		return store.ErrConflict
	}
	if b.Status == model.BidAccepted && r.hasAccepted(b.TaskID, b.ID) {
		return store.ErrConflict
	}
	r.d.bids[b.ID] = *b
	return nil
}

func (r bids) Find(_ context.Context, id string) (*model.Bid, error) {
	b, ok := r.d.bids[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &b, nil
}

func (r bids) FindForUpdate(ctx context.Context, id string) (*model.Bid, error) {
	return r.Find(ctx, id)
}

func (r bids) ListByTask(_ context.Context, taskID string) ([]model.Bid, error) {
	out := []model.Bid{}
	for _, b := range r.d.bids {
		if b.TaskID == taskID {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return newer(out[i].CreatedAt, out[j].CreatedAt, out[i].ID, out[j].ID) })
	return out, nil
}

func (r bids) UpdateIfStatus(_ context.Context, b *model.Bid, expected model.BidStatus) error {
	cur, ok := r.d.bids[b.ID]
	if !ok {
		return store.ErrNotFound
	}
	if cur.Status != expected {
		return store.ErrStatusMismatch
	}
	// mirrors the partial unique index on bids(task_id) where status = 'accepted'
	if b.Status == model.BidAccepted && r.hasAccepted(b.TaskID, b.ID) {
		return store.ErrConflict
	}
	r.d.bids[b.ID] = *b
	return nil
}

func (r bids) hasAccepted(taskID, exceptID string) bool {
	for _, other := range r.d.bids {
		if other.ID != exceptID && other.TaskID == taskID && other.Status == model.BidAccepted {
			return true
		}
	}
	return false
}

// ===== payments =====

type payments struct{ d *dataset }

func (r payments) Create(_ context.Context, p *model.Payment) error {
	if _, ok := r.d.payments[p.ID]; ok {
		return store.ErrConflict
	}
	r.d.payments[p.ID] = *p
	return nil
}

func (r payments) Find(_ context.Context, id string) (*model.Payment, error) {
	p, ok := r.d.payments[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &p, nil
}

func (r payments) FindForUpdate(ctx context.Context, id string) (*model.Payment, error) {
	return r.Find(ctx, id)
}

func (r payments) ListByStatus(_ context.Context, status model.PaymentStatus) ([]model.Payment, error) {
	out := []model.Payment{}
	for _, p := range r.d.payments {
		if p.Status == status {
			out = append(out, p)
		}
	}
	// oldest first so the admin queue is worked in arrival order
	sort.Slice(out, func(i, j int) bool { return newer(out[j].UpdatedAt, out[i].UpdatedAt, out[j].ID, out[i].ID) })
	return out, nil
}

func (r payments) UpdateIfStatus(_ context.Context, p *model.Payment, expected model.PaymentStatus) error {
	cur, ok := r.d.payments[p.ID]
	if !ok {
		return store.ErrNotFound
	}
	if cur.Status != expected {
		return store.ErrStatusMismatch
	}
	r.d.payments[p.ID] = *p
	return nil
}

// ===== services =====

type services struct{ d *dataset }

func (r services) Create(_ context.Context, s *model.Service) error {
	if _, ok := r.d.services[s.ID]; ok {
		return store.ErrConflict
	}
	c := *s
	c.Packages = slices.Clone(s.Packages)
	r.d.services[s.ID] = c
	return nil
}

func (r services) Find(_ context.Context, id string) (*model.Service, error) {
	s, ok := r.d.services[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	s.Packages = slices.Clone(s.Packages)
	return &s, nil
}

func (r services) List(_ context.Context, order model.ServiceSort) ([]model.Service, error) {
	out := make([]model.Service, 0, len(r.d.services))
	for _, s := range r.d.services {
		s.Packages = slices.Clone(s.Packages)
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		switch order {
		case model.SortPopularity:
			if a.PopularityScore != b.PopularityScore {
				return a.PopularityScore > b.PopularityScore
			}
		case model.SortRating:
			if a.Rating.Average != b.Rating.Average {
				return a.Rating.Average > b.Rating.Average
			}
		}
		return newer(a.CreatedAt, b.CreatedAt, a.ID, b.ID)
	})
	return out, nil
}

func (r services) ListIDs(_ context.Context) ([]string, error) {
	ids := make([]string, 0, len(r.d.services))
	for id := range r.d.services {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (r services) UpdateStats(_ context.Context, id string, rating model.Rating, popularity float64) error {
	s, ok := r.d.services[id]
	if !ok {
		return store.ErrNotFound
	}
	s.Rating = rating
	s.PopularityScore = popularity
	s.UpdatedAt = time.Now()
	r.d.services[id] = s
	return nil
}

// ===== bookings =====

type bookings struct{ d *dataset }

func (r bookings) Create(_ context.Context, b *model.Booking) error {
	if _, ok := r.d.bookings[b.ID]; ok {
		return store.ErrConflict
	}
	r.d.bookings[b.ID] = *b
	return nil
}

func (r bookings) Find(_ context.Context, id string) (*model.Booking, error) {
	b, ok := r.d.bookings[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &b, nil
}

func (r bookings) FindForUpdate(ctx context.Context, id string) (*model.Booking, error) {
	return r.Find(ctx, id)
}

func (r bookings) UpdateIfStatus(_ context.Context, b *model.Booking, expected model.BookingStatus) error {
	cur, ok := r.d.bookings[b.ID]
	if !ok {
		return store.ErrNotFound
	}
	if cur.Status != expected {
		return store.ErrStatusMismatch
	}
	r.d.bookings[b.ID] = *b
	return nil
}

func (r bookings) RatedScores(_ context.Context, serviceID string) ([]int, error) {
	scores := []int{}
	for _, b := range r.d.bookings {
		if b.ServiceID == serviceID && b.Status == model.BookingCompleted && b.RatingScore > 0 {
			scores = append(scores, b.RatingScore)
		}
	}
	return scores, nil
}

func (r bookings) CountCreatedSince(_ context.Context, serviceID string, since time.Time) (int, error) {
	n := 0
	for _, b := range r.d.bookings {
		if b.ServiceID == serviceID && !b.CreatedAt.Before(since) {
			n++
		}
	}
	return n, nil
}

// ===== reviews =====

type reviews struct{ d *dataset }

func (r reviews) Create(_ context.Context, rv *model.Review) error {
	for _, existing := range r.d.reviews {
		if existing.TaskID == rv.TaskID {
			return store.ErrConflict
		}
	}
	r.d.reviews[rv.ID] = *rv
	return nil
}

func (r reviews) FindByTask(_ context.Context, taskID string) (*model.Review, error) {
	for _, rv := range r.d.reviews {
		if rv.TaskID == taskID {
			return &rv, nil
		}
	}
	return nil, store.ErrNotFound
}

func (r reviews) ListByProvider(_ context.Context, providerID string) ([]model.Review, error) {
	out := []model.Review{}
	for _, rv := range r.d.reviews {
		if rv.ProviderID == providerID {
			out = append(out, rv)
		}
	}
	sort.Slice(out, func(i, j int) bool { return newer(out[i].CreatedAt, out[j].CreatedAt, out[i].ID, out[j].ID) })
	return out, nil
}

// newer orders by creation time descending, breaking ties by id
func newer(a, b time.Time, aID, bID string) bool {
	if !a.Equal(b) {
		return a.After(b)
	}
	return aID < bID
}

func page[T any](items []T, offset, limit int) []T {
	if offset > 0 {
		if offset >= len(items) {
			return []T{}
		}
		items = items[offset:]
	}
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
