package datastore

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stackpilot/stackpilot/internal/config"
	"github.com/stackpilot/stackpilot/internal/provider"
)

// PostgresAdapter is the relational primary data-store adapter.
type PostgresAdapter struct {
	cfg  config.DatabaseConfig
	pool *pgxpool.Pool
}

var _ provider.Adapter = (*PostgresAdapter)(nil)

// NewPostgresAdapter creates a PostgreSQL adapter. The pool is established
// in Connect.
func NewPostgresAdapter(cfg config.DatabaseConfig) *PostgresAdapter {
	return &PostgresAdapter{cfg: cfg}
}

// Name returns the provider id.
func (a *PostgresAdapter) Name() string { return ProviderPostgres }

// Connect creates the connection pool and verifies it.
func (a *PostgresAdapter) Connect(ctx context.Context) error {
	if a.pool != nil {
		return nil
	}

	poolConfig, err := pgxpool.ParseConfig(a.cfg.ConnectionString())
	if err != nil {
		return fmt.Errorf("parse connection string: %w", err)
	}

	poolConfig.MaxConns = int32(a.cfg.MaxOpenConns) //nolint:gosec // bounded by config validation
	poolConfig.MinConns = int32(a.cfg.MaxIdleConns) //nolint:gosec // bounded by config validation
	poolConfig.MaxConnLifetime = a.cfg.ConnMaxLifetime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return fmt.Errorf("create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return fmt.Errorf("ping database: %w", err)
	}

	a.pool = pool
	return nil
}

// Ping verifies the backing database is reachable.
func (a *PostgresAdapter) Ping(ctx context.Context) error {
	if a.pool == nil {
		return errors.New("postgres adapter not connected")
	}
	return a.pool.Ping(ctx)
}

// Close releases the connection pool.
func (a *PostgresAdapter) Close() error {
	if a.pool != nil {
		a.pool.Close()
		a.pool = nil
	}
	return nil
}

// Execute runs a storage command against PostgreSQL.
func (a *PostgresAdapter) Execute(ctx context.Context, payload any) (any, error) {
	cmd, err := decodeCommand(payload)
	if err != nil {
		return nil, err
	}
	if a.pool == nil {
		return nil, errors.New("postgres adapter not connected")
	}

	switch cmd.Op {
	case OpCreate:
		return a.upsert(ctx, cmd.Org)
	case OpUpdate:
		return a.upsert(ctx, cmd.Org)
	case OpGet:
		return a.get(ctx, cmd.OrgID)
	case OpList:
		return a.list(ctx, cmd.Limit)
	case OpDelete:
		return a.delete(ctx, cmd.OrgID)
	default:
		return nil, fmt.Errorf("%w: unknown op %q", ErrInvalidCommand, cmd.Op)
	}
}

func (a *PostgresAdapter) upsert(ctx context.Context, org *Organization) (*CommandResult, error) {
	query := `
		INSERT INTO organizations (id, name, plan, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			plan = EXCLUDED.plan,
			notes = EXCLUDED.notes,
			updated_at = EXCLUDED.updated_at
	`

	_, err := a.pool.Exec(ctx, query,
		org.ID, org.Name, org.Plan, org.Notes, org.CreatedAt, org.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("upsert organization: %w", err)
	}

	return &CommandResult{Org: org, Found: true}, nil
}

func (a *PostgresAdapter) get(ctx context.Context, id string) (*CommandResult, error) {
	query := `
		SELECT id, name, plan, notes, created_at, updated_at
		FROM organizations
		WHERE id = $1
	`

	var org Organization
	err := a.pool.QueryRow(ctx, query, id).Scan(
		&org.ID, &org.Name, &org.Plan, &org.Notes, &org.CreatedAt, &org.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return &CommandResult{Found: false}, nil
		}
		return nil, fmt.Errorf("get organization: %w", err)
	}

	return &CommandResult{Org: &org, Found: true}, nil
}

func (a *PostgresAdapter) list(ctx context.Context, limit int) (*CommandResult, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, name, plan, notes, created_at, updated_at
		FROM organizations
		ORDER BY created_at DESC
		LIMIT $1
	`

	rows, err := a.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list organizations: %w", err)
	}
	defer rows.Close()

	var orgs []*Organization
	for rows.Next() {
		var org Organization
		if err := rows.Scan(&org.ID, &org.Name, &org.Plan, &org.Notes, &org.CreatedAt, &org.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan organization: %w", err)
		}
		orgs = append(orgs, &org)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list organizations: %w", err)
	}

	return &CommandResult{Orgs: orgs, Found: true}, nil
}

func (a *PostgresAdapter) delete(ctx context.Context, id string) (*CommandResult, error) {
	tag, err := a.pool.Exec(ctx, `DELETE FROM organizations WHERE id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("delete organization: %w", err)
	}
	return &CommandResult{Found: tag.RowsAffected() > 0}, nil
}
