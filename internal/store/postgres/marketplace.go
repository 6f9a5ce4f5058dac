package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/sudo-init-do/taskmarket/internal/model"
	"github.com/sudo-init-do/taskmarket/internal/store"
)

// =========================
// users
// =========================

type users struct{ tx pgx.Tx }

const userColumns = `id::text, name, email, password, role, COALESCE(is_active, TRUE), created_at`

func scanUser(row pgx.Row) (*model.User, error) {
	var u model.User
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Role, &u.IsActive, &u.CreatedAt); err != nil {
		return nil, mapErr(err)
	}
	return &u, nil
}

func (r users) Create(ctx context.Context, u *model.User) error {
	_, err := r.tx.Exec(ctx,
		`INSERT INTO users (id, name, email, password, role, is_active, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		u.ID, u.Name, u.Email, u.PasswordHash, u.Role, u.IsActive, u.CreatedAt,
	)
	return mapErr(err)
}

func (r users) Find(ctx context.Context, id string) (*model.User, error) {
	return scanUser(r.tx.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

func (r users) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	return scanUser(r.tx.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE LOWER(email) = LOWER($1)`, email))
}

func (r users) List(ctx context.Context) ([]model.User, error) {
	rows, err := r.tx.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	out := []model.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *u)
	}
	return out, mapErr(rows.Err())
}

func (r users) Update(ctx context.Context, u *model.User) error {
	tag, err := r.tx.Exec(ctx,
		`UPDATE users SET name = $2, role = $3, is_active = $4 WHERE id = $1`,
		u.ID, u.Name, u.Role, u.IsActive,
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
// tasks
// =========================

type tasks struct{ tx pgx.Tx }

const taskColumns = `id::text, client_id::text, title, description, category, budget_amount, budget_type,
       status, COALESCE(assigned_provider_id::text, ''), bids_count, created_at, updated_at`

func scanTask(row pgx.Row) (*model.Task, error) {
	var t model.Task
	err := row.Scan(&t.ID, &t.ClientID, &t.Title, &t.Description, &t.Category, &t.Budget.Amount, &t.Budget.Type,
		&t.Status, &t.AssignedProviderID, &t.BidsCount, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, mapErr(err)
	}
	return &t, nil
}

func (r tasks) Create(ctx context.Context, t *model.Task) error {
	_, err := r.tx.Exec(ctx,
		`INSERT INTO tasks (id, client_id, title, description, category, budget_amount, budget_type,
		                    status, assigned_provider_id, bids_count, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		t.ID, t.ClientID, t.Title, t.Description, t.Category, t.Budget.Amount, t.Budget.Type,
		t.Status, nullable(t.AssignedProviderID), t.BidsCount, t.CreatedAt, t.UpdatedAt,
	)
	return mapErr(err)
}

func (r tasks) Find(ctx context.Context, id string) (*model.Task, error) {
	return scanTask(r.tx.QueryRow(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = $1`, id))
}

func (r tasks) FindForUpdate(ctx context.Context, id string) (*model.Task, error) {
	return scanTask(r.tx.QueryRow(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = $1 FOR UPDATE`, id))
}

func (r tasks) List(ctx context.Context, f model.TaskFilter) ([]model.Task, error) {
	var where []string
	var args []any
	if f.Status != "" {
		args = append(args, f.Status)
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	if f.Category != "" {
		args = append(args, f.Category)
		where = append(where, fmt.Sprintf("category = $%d", len(args)))
	}
	if f.ClientID != "" {
		// a malformed id would abort the transaction; it matches nothing
		if !validID(f.ClientID) {
			return []model.Task{}, nil
		}
		args = append(args, f.ClientID)
		where = append(where, fmt.Sprintf("client_id = $%d", len(args)))
	}

	query := `SELECT ` + taskColumns + ` FROM tasks`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC, id"
	if f.Limit > 0 {
		args = append(args, f.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if f.Offset > 0 {
		args = append(args, f.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := r.tx.Query(ctx, query, args...)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	out := []model.Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	return out, mapErr(rows.Err())
}

func (r tasks) UpdateIfStatus(ctx context.Context, t *model.Task, expected model.TaskStatus) error {
	tag, err := r.tx.Exec(ctx,
		`UPDATE tasks
		 SET title = $3, description = $4, category = $5, budget_amount = $6, budget_type = $7,
		     status = $8, assigned_provider_id = $9, bids_count = $10, updated_at = $11
		 WHERE id = $1 AND status = $2`,
		t.ID, expected, t.Title, t.Description, t.Category, t.Budget.Amount, t.Budget.Type,
		t.Status, nullable(t.AssignedProviderID), t.BidsCount, t.UpdatedAt,
	)
	if err != nil {
		return mapErr(err)
	}
	return guarded(ctx, r.tx, tag, "tasks", t.ID)
}

// =========================
// bids
// =========================

type bids struct{ tx pgx.Tx }

const bidColumns = `id::text, task_id::text, provider_id::text, amount, message, status,
       response_message, responded_at, created_at`

func scanBid(row pgx.Row) (*model.Bid, error) {
	var b model.Bid
	err := row.Scan(&b.ID, &b.TaskID, &b.ProviderID, &b.Amount, &b.Message, &b.Status,
		&b.ResponseMessage, &b.RespondedAt, &b.CreatedAt)
	if err != nil {
		return nil, mapErr(err)
	}
	return &b, nil
}

func (r bids) Create(ctx context.Context, b *model.Bid) error {
	_, err := r.tx.Exec(ctx,
		`INSERT INTO bids (id, task_id, provider_id, amount, message, status, response_message, responded_at, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		b.ID, b.TaskID, b.ProviderID, b.Amount, b.Message, b.Status, b.ResponseMessage, b.RespondedAt, b.CreatedAt,
	)
	return mapErr(err)
}

func (r bids) Find(ctx context.Context, id string) (*model.Bid, error) {
	return scanBid(r.tx.QueryRow(ctx, `SELECT `+bidColumns+` FROM bids WHERE id = $1`, id))
}

func (r bids) FindForUpdate(ctx context.Context, id string) (*model.Bid, error) {
	return scanBid(r.tx.QueryRow(ctx, `SELECT `+bidColumns+` FROM bids WHERE id = $1 FOR UPDATE`, id))
}

func (r bids) ListByTask(ctx context.Context, taskID string) ([]model.Bid, error) {
	rows, err := r.tx.Query(ctx,
		`SELECT `+bidColumns+` FROM bids WHERE task_id = $1 ORDER BY created_at DESC, id`, taskID)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	out := []model.Bid{}
	for rows.Next() {
		b, err := scanBid(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *b)
	}
	return out, mapErr(rows.Err())
}

func (r bids) UpdateIfStatus(ctx context.Context, b *model.Bid, expected model.BidStatus) error {
	tag, err := r.tx.Exec(ctx,
		`UPDATE bids SET amount = $3, message = $4, status = $5, response_message = $6, responded_at = $7
		 WHERE id = $1 AND status = $2`,
		b.ID, expected, b.Amount, b.Message, b.Status, b.ResponseMessage, b.RespondedAt,
	)
	if err != nil {
		return mapErr(err)
	}
	return guarded(ctx, r.tx, tag, "bids", b.ID)
}

// =========================
// reviews
// =========================

type reviews struct{ tx pgx.Tx }

const reviewColumns = `id::text, task_id::text, author_id::text, provider_id::text, rating, comment, created_at`

func scanReview(row pgx.Row) (*model.Review, error) {
	var rv model.Review
	if err := row.Scan(&rv.ID, &rv.TaskID, &rv.AuthorID, &rv.ProviderID, &rv.Rating, &rv.Comment, &rv.CreatedAt); err != nil {
		return nil, mapErr(err)
	}
	return &rv, nil
}

func (r reviews) Create(ctx context.Context, rv *model.Review) error {
	_, err := r.tx.Exec(ctx,
		`INSERT INTO reviews (id, task_id, author_id, provider_id, rating, comment, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		rv.ID, rv.TaskID, rv.AuthorID, rv.ProviderID, rv.Rating, rv.Comment, rv.CreatedAt,
	)
	return mapErr(err)
}

func (r reviews) FindByTask(ctx context.Context, taskID string) (*model.Review, error) {
	return scanReview(r.tx.QueryRow(ctx, `SELECT `+reviewColumns+` FROM reviews WHERE task_id = $1`, taskID))
}

func (r reviews) ListByProvider(ctx context.Context, providerID string) ([]model.Review, error) {
	rows, err := r.tx.Query(ctx,
		`SELECT `+reviewColumns+` FROM reviews WHERE provider_id = $1 ORDER BY created_at DESC, id`, providerID)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	out := []model.Review{}
	for rows.Next() {
		rv, err := scanReview(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *rv)
	}
	return out, mapErr(rows.Err())
}
