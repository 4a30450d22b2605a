package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/whyme0/chattings/internal/apperror"
	"github.com/whyme0/chattings/internal/model"
	"github.com/whyme0/chattings/internal/repository"
)

// compile-time check that *TokenDB implements repository.TokenRepository
var _ repository.TokenRepository = (*TokenDB)(nil)

// TokenDB implements repository.TokenRepository.
type TokenDB struct {
	db *DB
}

// insertTokenTx issues a fresh token row inside tx. Shared by Create and
// Upsert so the value/expiry invariants live in one place.
func insertTokenTx(ctx context.Context, tx *sql.Tx, profileID int64, kind model.Kind) (*model.Token, error) {
	now := time.Now()
	t := &model.Token{
		ProfileID: profileID,
		Kind:      kind,
		Value:     model.NewTokenValue(),
		CreatedAt: now,
		ExpiresAt: now.Add(model.TokenTTL),
	}

	res, err := tx.ExecContext(ctx,
		`INSERT INTO tokens (profile_id, kind, value, created_at, expires_at)
		 VALUES (?, ?, ?, ?, ?)`,
		t.ProfileID, t.Kind, t.Value, t.CreatedAt, t.ExpiresAt,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: inserting %s token for profile %d: %w", kind, profileID, err)
	}
	t.ID, err = res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("sqlite: reading token id: %w", err)
	}
	return t, nil
}

func getTokenTx(ctx context.Context, tx *sql.Tx, kind model.Kind, value string) (*model.Token, error) {
	var t model.Token
	err := tx.QueryRowContext(ctx,
		`SELECT id, profile_id, kind, value, created_at, expires_at
		 FROM tokens WHERE kind = ? AND value = ?`,
		kind, value,
	).Scan(&t.ID, &t.ProfileID, &t.Kind, &t.Value, &t.CreatedAt, &t.ExpiresAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFoundMsg("Invalid token. Make sure your token is valid and not deleted.")
		}
		return nil, fmt.Errorf("sqlite: looking up %s token: %w", kind, err)
	}
	return &t, nil
}

// Upsert issues a token of the given kind, replacing the profile's
// existing row of that kind if present. A replaced token gets a brand new
// value and validity window. This is the "refresh" used by both resend
// flows.
func (r *TokenDB) Upsert(ctx context.Context, profileID int64, kind model.Kind) (*model.Token, error) {
	var issued *model.Token

	err := r.db.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM tokens WHERE profile_id = ? AND kind = ?`, profileID, kind,
		); err != nil {
			return fmt.Errorf("sqlite: superseding %s token for profile %d: %w", kind, profileID, err)
		}

		var err error
		issued, err = insertTokenTx(ctx, tx, profileID, kind)
		return err
	})
	if err != nil {
		return nil, err
	}
	return issued, nil
}

func (r *TokenDB) GetByValue(ctx context.Context, kind model.Kind, value string) (*model.Token, error) {
	var t model.Token
	err := r.db.conn.QueryRowContext(ctx,
		`SELECT id, profile_id, kind, value, created_at, expires_at
		 FROM tokens WHERE kind = ? AND value = ?`,
		kind, value,
	).Scan(&t.ID, &t.ProfileID, &t.Kind, &t.Value, &t.CreatedAt, &t.ExpiresAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFoundMsg("Invalid token. Make sure your token is valid and not deleted.")
		}
		return nil, fmt.Errorf("sqlite: getting %s token by value: %w", kind, err)
	}
	return &t, nil
}

func (r *TokenDB) GetByProfile(ctx context.Context, kind model.Kind, profileID int64) (*model.Token, error) {
	var t model.Token
	err := r.db.conn.QueryRowContext(ctx,
		`SELECT id, profile_id, kind, value, created_at, expires_at
		 FROM tokens WHERE kind = ? AND profile_id = ?`,
		kind, profileID,
	).Scan(&t.ID, &t.ProfileID, &t.Kind, &t.Value, &t.CreatedAt, &t.ExpiresAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound(string(kind)+" token", fmt.Sprint(profileID))
		}
		return nil, fmt.Errorf("sqlite: getting %s token for profile %d: %w", kind, profileID, err)
	}
	return &t, nil
}

func (r *TokenDB) Delete(ctx context.Context, id int64) error {
	res, err := r.db.conn.ExecContext(ctx, `DELETE FROM tokens WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting token %d: %w", id, err)
	}
	return requireRow(res, "token", id)
}
