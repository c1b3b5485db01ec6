package progress

import (
	"context"
	"database/sql"
	"errors"
)

// PGBackend stores snapshots in the wizard_progress table.
type PGBackend struct {
	db *sql.DB
}

func NewPGBackend(db *sql.DB) *PGBackend {
	return &PGBackend{db: db}
}

func (b *PGBackend) Load(ctx context.Context, key string) ([]byte, error) {
	var doc []byte
	err := b.db.QueryRowContext(ctx,
		`SELECT snapshot FROM wizard_progress WHERE session_key = $1`, key,
	).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return doc, err
}

func (b *PGBackend) Save(ctx context.Context, key string, doc []byte) error {
	_, err := b.db.ExecContext(ctx, `
		INSERT INTO wizard_progress (session_key, snapshot, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (session_key) DO UPDATE
		SET snapshot = EXCLUDED.snapshot, updated_at = NOW()
	`, key, string(doc))
	return err
}

func (b *PGBackend) Delete(ctx context.Context, key string) error {
	res, err := b.db.ExecContext(ctx, `DELETE FROM wizard_progress WHERE session_key = $1`, key)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}
