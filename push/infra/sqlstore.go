package infra

import (
	"context"
	"fmt"
	"time"

	"delivery-gateway/push/domain"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type subscriptionRow struct {
	ID       string `db:"id"`
	Endpoint string `db:"endpoint"`
	P256dh   string `db:"p256dh"`
	Auth     string `db:"auth"`
}

func (r subscriptionRow) endpoint() domain.Endpoint {
	return domain.Endpoint{
		ID:   r.ID,
		URI:  r.Endpoint,
		Keys: domain.Keys{P256dh: r.P256dh, Auth: r.Auth},
	}
}

// SQLSubscriptionStore guarda as inscrições na tabela push_subscriptions.
type SQLSubscriptionStore struct {
	db  *sqlx.DB
	now func() time.Time
}

func NewSQLSubscriptionStore(db *sqlx.DB) *SQLSubscriptionStore {
	return &SQLSubscriptionStore{db: db, now: time.Now}
}

func (s *SQLSubscriptionStore) List(ctx context.Context) ([]domain.Endpoint, error) {
	var rows []subscriptionRow
	if err := s.db.SelectContext(ctx, &rows,
		`SELECT id, endpoint, p256dh, auth FROM push_subscriptions ORDER BY created_at, id`,
	); err != nil {
		return nil, fmt.Errorf("select push_subscriptions: %w", err)
	}
	out := make([]domain.Endpoint, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.endpoint())
	}
	return out, nil
}

func (s *SQLSubscriptionStore) Delete(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx,
		s.db.Rebind(`DELETE FROM push_subscriptions WHERE id = ?`), id,
	); err != nil {
		return fmt.Errorf("delete push_subscription %s: %w", id, err)
	}
	return nil
}

// Save faz upsert pela URI: reinscrever o mesmo navegador só troca as chaves.
func (s *SQLSubscriptionStore) Save(ctx context.Context, ep domain.Endpoint) (domain.Endpoint, error) {
	if ep.ID == "" {
		ep.ID = uuid.NewString()
	}

	q := s.db.Rebind(`
		INSERT INTO push_subscriptions (id, endpoint, p256dh, auth, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (endpoint) DO UPDATE SET
			p256dh = excluded.p256dh,
			auth   = excluded.auth`)
	if _, err := s.db.ExecContext(ctx, q,
		ep.ID, ep.URI, ep.Keys.P256dh, ep.Keys.Auth, s.now().UTC(),
	); err != nil {
		return domain.Endpoint{}, fmt.Errorf("upsert push_subscription: %w", err)
	}

	var row subscriptionRow
	if err := s.db.GetContext(ctx, &row,
		s.db.Rebind(`SELECT id, endpoint, p256dh, auth FROM push_subscriptions WHERE endpoint = ?`), ep.URI,
	); err != nil {
		return domain.Endpoint{}, fmt.Errorf("reload push_subscription: %w", err)
	}
	return row.endpoint(), nil
}

func (s *SQLSubscriptionStore) DeleteByURI(ctx context.Context, uri string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		s.db.Rebind(`DELETE FROM push_subscriptions WHERE endpoint = ?`), uri,
	)
	if err != nil {
		return false, fmt.Errorf("delete push_subscription by endpoint: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}
