package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/sudo-init-do/taskmarket/internal/model"
)

type payments struct{ tx pgx.Tx }

const paymentColumns = `id::text, task_id::text, bid_id::text, client_id::text, provider_id::text,
       amount, commission_amount, provider_amount, status, screenshot_url, reference,
       submitted_at, COALESCE(verified_by::text, ''), verified_at, created_at, updated_at`

func scanPayment(row pgx.Row) (*model.Payment, error) {
	var p model.Payment
	err := row.Scan(&p.ID, &p.TaskID, &p.BidID, &p.ClientID, &p.ProviderID,
		&p.Amount, &p.CommissionAmount, &p.ProviderAmount, &p.Status, &p.ScreenshotURL, &p.Reference,
		&p.SubmittedAt, &p.VerifiedBy, &p.VerifiedAt, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, mapErr(err)
	}
	return &p, nil
}

func (r payments) Create(ctx context.Context, p *model.Payment) error {
	_, err := r.tx.Exec(ctx,
		`INSERT INTO payments (id, task_id, bid_id, client_id, provider_id, amount, commission_amount,
		                       provider_amount, status, screenshot_url, reference, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		p.ID, p.TaskID, p.BidID, p.ClientID, p.ProviderID, p.Amount, p.CommissionAmount,
		p.ProviderAmount, p.Status, p.ScreenshotURL, p.Reference, p.CreatedAt, p.UpdatedAt,
	)
	return mapErr(err)
}

func (r payments) Find(ctx context.Context, id string) (*model.Payment, error) {
	return scanPayment(r.tx.QueryRow(ctx, `SELECT `+paymentColumns+` FROM payments WHERE id = $1`, id))
}

func (r payments) FindForUpdate(ctx context.Context, id string) (*model.Payment, error) {
	return scanPayment(r.tx.QueryRow(ctx, `SELECT `+paymentColumns+` FROM payments WHERE id = $1 FOR UPDATE`, id))
}

func (r payments) ListByStatus(ctx context.Context, status model.PaymentStatus) ([]model.Payment, error) {
	rows, err := r.tx.Query(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE status = $1 ORDER BY updated_at ASC, id`, status)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	out := []model.Payment{}
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, mapErr(rows.Err())
}

func (r payments) UpdateIfStatus(ctx context.Context, p *model.Payment, expected model.PaymentStatus) error {
	tag, err := r.tx.Exec(ctx,
		`UPDATE payments
		 SET status = $3, screenshot_url = $4, reference = $5, submitted_at = $6,
		     verified_by = $7, verified_at = $8, updated_at = $9
		 WHERE id = $1 AND status = $2`,
		p.ID, expected, p.Status, p.ScreenshotURL, p.Reference, p.SubmittedAt,
		nullable(p.VerifiedBy), p.VerifiedAt, p.UpdatedAt,
	)
	if err != nil {
		return mapErr(err)
	}
	return guarded(ctx, r.tx, tag, "payments", p.ID)
}
