package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// EnsureSchema creates the tables and indexes the store relies on.
// Every statement is idempotent so it runs on each startup.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	steps := []struct {
		name string
		sql  string
	}{
		{"users", usersTable},
		{"tasks", tasksTable},
		{"bids", bidsTable},
		{"payments", paymentsTable},
		{"services", servicesTable},
		{"bookings", bookingsTable},
		{"reviews", reviewsTable},
	}
	for _, s := range steps {
		if _, err := pool.Exec(ctx, s.sql); err != nil {
			return fmt.Errorf("ensure %s schema: %w", s.name, err)
		}
	}

	// Ensure users.is_active exists for suspend/activate on databases created before it
	if err := ensureColumn(ctx, pool, "users", "is_active", "BOOLEAN DEFAULT TRUE"); err != nil {
		return err
	}
	zap.L().Info("database schema ensured")
	return nil
}

func ensureColumn(ctx context.Context, pool *pgxpool.Pool, table, column, ddl string) error {
	var exists bool
	err := pool.QueryRow(ctx, `
        SELECT EXISTS (
            SELECT 1 FROM information_schema.columns
            WHERE table_schema = 'public' AND table_name = $1 AND column_name = $2
        )`, table, column).Scan(&exists)
	if err != nil {
		return fmt.Errorf("schema check %s.%s: %w", table, column, err)
	}
	if exists {
		return nil
	}
	if _, err := pool.Exec(ctx, fmt.Sprintf(`ALTER TABLE %s ADD COLUMN IF NOT EXISTS %s %s`, table, column, ddl)); err != nil {
		return fmt.Errorf("add %s.%s: %w", table, column, err)
	}
	zap.L().Info("column ensured", zap.String("table", table), zap.String("column", column))
	return nil
}

const usersTable = `
CREATE TABLE IF NOT EXISTS users (
    id UUID PRIMARY KEY,
    name TEXT NOT NULL,
    email TEXT NOT NULL,
    password TEXT NOT NULL,
    role TEXT NOT NULL CHECK (role IN ('client','provider','admin')),
    is_active BOOLEAN DEFAULT TRUE,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_users_email ON users (LOWER(email));`

const tasksTable = `
CREATE TABLE IF NOT EXISTS tasks (
    id UUID PRIMARY KEY,
    client_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    title TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    category TEXT NOT NULL DEFAULT '',
    budget_amount BIGINT NOT NULL DEFAULT 0,
    budget_type TEXT NOT NULL CHECK (budget_type IN ('fixed','hourly','negotiable')),
    status TEXT NOT NULL CHECK (status IN ('open','assigned','in_progress','completed','cancelled')),
    assigned_provider_id UUID NULL REFERENCES users(id) ON DELETE SET NULL,
    bids_count INTEGER NOT NULL DEFAULT 0,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    CONSTRAINT tasks_assignment_check CHECK (
        (assigned_provider_id IS NOT NULL) = (status IN ('assigned','in_progress','completed'))
    )
);
CREATE INDEX IF NOT EXISTS idx_tasks_status ON tasks(status);
CREATE INDEX IF NOT EXISTS idx_tasks_client ON tasks(client_id);`

// idx_bids_one_accepted is the storage-level guard for one accepted bid per task
const bidsTable = `
CREATE TABLE IF NOT EXISTS bids (
    id UUID PRIMARY KEY,
    task_id UUID NOT NULL REFERENCES tasks(id) ON DELETE CASCADE,
    provider_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    amount BIGINT NOT NULL CHECK (amount > 0),
    message TEXT NOT NULL DEFAULT '',
    status TEXT NOT NULL CHECK (status IN ('pending','accepted','rejected','withdrawn')),
    response_message TEXT NOT NULL DEFAULT '',
    responded_at TIMESTAMPTZ NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    CONSTRAINT bids_responded_check CHECK ((responded_at IS NULL) = (status = 'pending'))
);
CREATE INDEX IF NOT EXISTS idx_bids_task ON bids(task_id, created_at);
CREATE UNIQUE INDEX IF NOT EXISTS idx_bids_one_accepted ON bids(task_id) WHERE status = 'accepted';`

const paymentsTable = `
CREATE TABLE IF NOT EXISTS payments (
    id UUID PRIMARY KEY,
    task_id UUID NOT NULL REFERENCES tasks(id) ON DELETE CASCADE,
    bid_id UUID NOT NULL,
    client_id UUID NOT NULL REFERENCES users(id),
    provider_id UUID NOT NULL REFERENCES users(id),
    amount BIGINT NOT NULL,
    commission_amount BIGINT NOT NULL,
    provider_amount BIGINT NOT NULL,
    status TEXT NOT NULL CHECK (status IN (
        'pending','payment_required','payment_submitted','held','released','refunded','failed'
    )),
    screenshot_url TEXT NOT NULL DEFAULT '',
    reference TEXT NOT NULL DEFAULT '',
    submitted_at TIMESTAMPTZ NULL,
    verified_by UUID NULL,
    verified_at TIMESTAMPTZ NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    CONSTRAINT payments_split_check CHECK (amount = commission_amount + provider_amount)
);
CREATE INDEX IF NOT EXISTS idx_payments_status ON payments(status, updated_at);`

const servicesTable = `
CREATE TABLE IF NOT EXISTS services (
    id UUID PRIMARY KEY,
    provider_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    title TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    category TEXT NOT NULL DEFAULT '',
    packages JSONB NOT NULL DEFAULT '[]',
    rating_average DOUBLE PRECISION NOT NULL DEFAULT 0,
    rating_count INTEGER NOT NULL DEFAULT 0,
    popularity_score DOUBLE PRECISION NOT NULL DEFAULT 0,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);`

const bookingsTable = `
CREATE TABLE IF NOT EXISTS bookings (
    id UUID PRIMARY KEY,
    service_id UUID NOT NULL REFERENCES services(id) ON DELETE CASCADE,
    client_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    provider_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    package_name TEXT NOT NULL,
    price BIGINT NOT NULL,
    status TEXT NOT NULL CHECK (status IN ('pending','completed','cancelled')),
    rating_score INTEGER NULL CHECK (rating_score BETWEEN 1 AND 5),
    rated_at TIMESTAMPTZ NULL,
    completed_at TIMESTAMPTZ NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_bookings_service_created ON bookings(service_id, created_at);`

const reviewsTable = `
CREATE TABLE IF NOT EXISTS reviews (
    id UUID PRIMARY KEY,
    task_id UUID NOT NULL UNIQUE REFERENCES tasks(id) ON DELETE CASCADE,
    author_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    provider_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    rating INTEGER NOT NULL CHECK (rating BETWEEN 1 AND 5),
    comment TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_reviews_provider ON reviews(provider_id, created_at);`
