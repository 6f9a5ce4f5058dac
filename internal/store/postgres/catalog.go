package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/sudo-init-do/taskmarket/internal/model"
	"github.com/sudo-init-do/taskmarket/internal/store"
)

// =========================
// services
// =========================

type services struct{ tx pgx.Tx }

const serviceColumns = `id::text, provider_id::text, title, description, category, packages,
       rating_average, rating_count, popularity_score, created_at, updated_at`

func scanService(row pgx.Row) (*model.Service, error) {
	var s model.Service
	err := row.Scan(&s.ID, &s.ProviderID, &s.Title, &s.Description, &s.Category, &s.Packages,
		&s.Rating.Average, &s.Rating.Count, &s.PopularityScore, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, mapErr(err)
	}
	return &s, nil
}

func (r services) Create(ctx context.Context, s *model.Service) error {
	_, err := r.tx.Exec(ctx,
		`INSERT INTO services (id, provider_id, title, description, category, packages,
		                       rating_average, rating_count, popularity_score, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		s.ID, s.ProviderID, s.Title, s.Description, s.Category, s.Packages,
		s.Rating.Average, s.Rating.Count, s.PopularityScore, s.CreatedAt, s.UpdatedAt,
	)
	return mapErr(err)
}

func (r services) Find(ctx context.Context, id string) (*model.Service, error) {
	return scanService(r.tx.QueryRow(ctx, `SELECT `+serviceColumns+` FROM services WHERE id = $1`, id))
}

func (r services) List(ctx context.Context, sort model.ServiceSort) ([]model.Service, error) {
	order := "created_at DESC, id"
	switch sort {
	case model.SortPopularity:
		order = "popularity_score DESC, created_at DESC, id"
	case model.SortRating:
		order = "rating_average DESC, created_at DESC, id"
	}

	rows, err := r.tx.Query(ctx, `SELECT `+serviceColumns+` FROM services ORDER BY `+order)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	out := []model.Service{}
	for rows.Next() {
		s, err := scanService(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *s)
	}
	return out, mapErr(rows.Err())
}

func (r services) ListIDs(ctx context.Context) ([]string, error) {
	rows, err := r.tx.Query(ctx, `SELECT id::text FROM services ORDER BY id`)
	if err != nil {
		return nil, mapErr(err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	return ids, mapErr(err)
}

func (r services) UpdateStats(ctx context.Context, id string, rating model.Rating, popularity float64) error {
	tag, err := r.tx.Exec(ctx,
		`UPDATE services SET rating_average = $2, rating_count = $3, popularity_score = $4, updated_at = NOW()
		 WHERE id = $1`,
		id, rating.Average, rating.Count, popularity,
	)
	if err != nil {
		return mapErr(err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

// =========================
// bookings
// =========================

type bookings struct{ tx pgx.Tx }

const bookingColumns = `id::text, service_id::text, client_id::text, provider_id::text, package_name, price,
       status, COALESCE(rating_score, 0), rated_at, completed_at, created_at`

func scanBooking(row pgx.Row) (*model.Booking, error) {
	var b model.Booking
	err := row.Scan(&b.ID, &b.ServiceID, &b.ClientID, &b.ProviderID, &b.PackageName, &b.Price,
		&b.Status, &b.RatingScore, &b.RatedAt, &b.CompletedAt, &b.CreatedAt)
	if err != nil {
		return nil, mapErr(err)
	}
	return &b, nil
}

func scoreOrNull(score int) *int {
	if score == 0 {
		return nil
	}
	return &score
}

func (r bookings) Create(ctx context.Context, b *model.Booking) error {
	_, err := r.tx.Exec(ctx,
		`INSERT INTO bookings (id, service_id, client_id, provider_id, package_name, price, status,
		                       rating_score, rated_at, completed_at, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		b.ID, b.ServiceID, b.ClientID, b.ProviderID, b.PackageName, b.Price, b.Status,
		scoreOrNull(b.RatingScore), b.RatedAt, b.CompletedAt, b.CreatedAt,
	)
	return mapErr(err)
}

func (r bookings) Find(ctx context.Context, id string) (*model.Booking, error) {
	return scanBooking(r.tx.QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = $1`, id))
}

func (r bookings) FindForUpdate(ctx context.Context, id string) (*model.Booking, error) {
	return scanBooking(r.tx.QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = $1 FOR UPDATE`, id))
}

func (r bookings) UpdateIfStatus(ctx context.Context, b *model.Booking, expected model.BookingStatus) error {
	tag, err := r.tx.Exec(ctx,
		`UPDATE bookings SET status = $3, rating_score = $4, rated_at = $5, completed_at = $6
		 WHERE id = $1 AND status = $2`,
		b.ID, expected, b.Status, scoreOrNull(b.RatingScore), b.RatedAt, b.CompletedAt,
	)
	if err != nil {
		return mapErr(err)
	}
	return guarded(ctx, r.tx, tag, "bookings", b.ID)
}

func (r bookings) RatedScores(ctx context.Context, serviceID string) ([]int, error) {
	rows, err := r.tx.Query(ctx,
		`SELECT rating_score FROM bookings
		 WHERE service_id = $1 AND status = 'completed' AND rating_score IS NOT NULL`, serviceID)
	if err != nil {
		return nil, mapErr(err)
	}
	scores, err := pgx.CollectRows(rows, pgx.RowTo[int])
	return scores, mapErr(err)
}

func (r bookings) CountCreatedSince(ctx context.Context, serviceID string, since time.Time) (int, error) {
	var n int
	err := r.tx.QueryRow(ctx,
		`SELECT COUNT(*) FROM bookings WHERE service_id = $1 AND created_at >= $2`, serviceID, since,
	).Scan(&n)
	return n, mapErr(err)
}
