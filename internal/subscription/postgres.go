package subscription

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PGStore backs the subscription store with Postgres, for deployments that
// want registrations to survive a restart. Expects the dockhook.subscriptions
// table from migrations/001_subscriptions.sql.
type PGStore struct {
	pool *pgxpool.Pool
}

func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

func (p *PGStore) Register(ctx context.Context, rawURL string, events []string, secret string, enabled bool) (Subscription, error) {
	if err := validate(rawURL, events); err != nil {
		return Subscription{}, err
	}

	id := uuid.NewString()
	var createdAt time.Time
	err := p.pool.QueryRow(ctx, `
		INSERT INTO dockhook.subscriptions(id, url, events, secret, enabled)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at`,
		id, rawURL, events, secret, enabled,
	).Scan(&createdAt)
	if err != nil {
		return Subscription{}, err
	}

	return Subscription{
		ID:        id,
		URL:       rawURL,
		Events:    append([]string(nil), events...),
		Secret:    secret,
		Enabled:   enabled,
		CreatedAt: createdAt,
	}, nil
}

func (p *PGStore) Get(ctx context.Context, id string) (Subscription, error) {
	var sub Subscription
	err := p.pool.QueryRow(ctx, `
		SELECT id, url, events, secret, enabled, created_at
		FROM dockhook.subscriptions
		WHERE id = $1`,
		id,
	).Scan(&sub.ID, &sub.URL, &sub.Events, &sub.Secret, &sub.Enabled, &sub.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Subscription{}, &NotFoundError{ID: id}
	}
	if err != nil {
		return Subscription{}, err
	}
	return sub, nil
}

func (p *PGStore) List(ctx context.Context) ([]Subscription, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT id, url, events, secret, enabled, created_at
		FROM dockhook.subscriptions
		ORDER BY position ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Subscription
	for rows.Next() {
		var sub Subscription
		if err := rows.Scan(&sub.ID, &sub.URL, &sub.Events, &sub.Secret, &sub.Enabled, &sub.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, sub)
	}
	return out, rows.Err()
}

func (p *PGStore) Delete(ctx context.Context, id string) (bool, error) {
	ct, err := p.pool.Exec(ctx, `DELETE FROM dockhook.subscriptions WHERE id = $1`, id)
	if err != nil {
		return false, err
	}
	return ct.RowsAffected() > 0, nil
}

func (p *PGStore) SetEnabled(ctx context.Context, id string, enabled bool) (Subscription, error) {
	var sub Subscription
	err := p.pool.QueryRow(ctx, `
		UPDATE dockhook.subscriptions
		SET enabled = $2
		WHERE id = $1
		RETURNING id, url, events, secret, enabled, created_at`,
		id, enabled,
	).Scan(&sub.ID, &sub.URL, &sub.Events, &sub.Secret, &sub.Enabled, &sub.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Subscription{}, &NotFoundError{ID: id}
	}
	if err != nil {
		return Subscription{}, err
	}
	return sub, nil
}
