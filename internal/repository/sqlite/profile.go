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

// compile-time check that *ProfileDB implements repository.ProfileRepository
var _ repository.ProfileRepository = (*ProfileDB)(nil)

// ProfileDB implements repository.ProfileRepository.
type ProfileDB struct {
	db *DB
}

const profileColumns = `id, username, email, password_hash, avatar_url, email_confirmed, date_joined`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProfile(row rowScanner) (*model.Profile, error) {
	var p model.Profile
	err := row.Scan(
		&p.ID,
		&p.Username,
		&p.Email,
		&p.PasswordHash,
		&p.AvatarURL,
		&p.EmailConfirmed,
		&p.DateJoined,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Create inserts the profile, its privacy settings row, and a fresh
// email-verification token as one transaction. Uniqueness of username and
// email is checked up front so the caller gets a field-level conflict
// instead of a raw constraint error.
func (r *ProfileDB) Create(ctx context.Context, p *model.Profile) (*model.Token, error) {
	var issued *model.Token

	err := r.db.inTx(ctx, func(tx *sql.Tx) error {
		var exists int
		err := tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM profiles WHERE username = ?`, p.Username,
		).Scan(&exists)
		if err != nil {
			return fmt.Errorf("sqlite: checking username %q: %w", p.Username, err)
		}
		if exists > 0 {
			return apperror.Conflict("username", "A user with that username already exists.")
		}

		err = tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM profiles WHERE email = ?`, p.Email,
		).Scan(&exists)
		if err != nil {
			return fmt.Errorf("sqlite: checking email %q: %w", p.Email, err)
		}
		if exists > 0 {
			return apperror.Conflict("email", "A user with that email already exists.")
		}

		p.DateJoined = time.Now()
		if p.AvatarURL == "" {
			p.AvatarURL = model.DefaultAvatarURL
		}

		res, err := tx.ExecContext(ctx,
			`INSERT INTO profiles (username, email, password_hash, avatar_url, email_confirmed, date_joined)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			p.Username, p.Email, p.PasswordHash, p.AvatarURL, p.EmailConfirmed, p.DateJoined,
		)
		if err != nil {
			return fmt.Errorf("sqlite: inserting profile %q: %w", p.Username, err)
		}
		p.ID, err = res.LastInsertId()
		if err != nil {
			return fmt.Errorf("sqlite: reading profile id: %w", err)
		}

		_, err = tx.ExecContext(ctx,
			`INSERT INTO privacy_settings (profile_id) VALUES (?)`, p.ID,
		)
		if err != nil {
			return fmt.Errorf("sqlite: inserting privacy settings for profile %d: %w", p.ID, err)
		}

		issued, err = insertTokenTx(ctx, tx, p.ID, model.KindEmailVerification)
		if err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return issued, nil
}

func (r *ProfileDB) GetByID(ctx context.Context, id int64) (*model.Profile, error) {
	row := r.db.conn.QueryRowContext(ctx,
		`SELECT `+profileColumns+` FROM profiles WHERE id = ?`, id,
	)
	p, err := scanProfile(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("profile", fmt.Sprint(id))
		}
		return nil, fmt.Errorf("sqlite: getting profile %d: %w", id, err)
	}
	return p, nil
}

// FindByIdentifier matches username or email case-insensitively (the
// columns carry COLLATE NOCASE).
func (r *ProfileDB) FindByIdentifier(ctx context.Context, identifier string) (*model.Profile, error) {
	row := r.db.conn.QueryRowContext(ctx,
		`SELECT `+profileColumns+` FROM profiles WHERE username = ? OR email = ?`,
		identifier, identifier,
	)
	p, err := scanProfile(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("profile", identifier)
		}
		return nil, fmt.Errorf("sqlite: finding profile %q: %w", identifier, err)
	}
	return p, nil
}

func (r *ProfileDB) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	res, err := r.db.conn.ExecContext(ctx,
		`UPDATE profiles SET password_hash = ? WHERE id = ?`, passwordHash, id,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating password for profile %d: %w", id, err)
	}
	return requireRow(res, "profile", id)
}

func (r *ProfileDB) UpdateAvatar(ctx context.Context, id int64, avatarURL string) error {
	res, err := r.db.conn.ExecContext(ctx,
		`UPDATE profiles SET avatar_url = ? WHERE id = ?`, avatarURL, id,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating avatar for profile %d: %w", id, err)
	}
	return requireRow(res, "profile", id)
}

// Delete removes a profile. Privacy settings and tokens cascade; owned
// chats survive with owner_id nulled.
func (r *ProfileDB) Delete(ctx context.Context, id int64) error {
	res, err := r.db.conn.ExecContext(ctx, `DELETE FROM profiles WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting profile %d: %w", id, err)
	}
	return requireRow(res, "profile", id)
}

// ConfirmEmail consumes an email-verification token. Expired tokens leave
// every row untouched so the resend flow can still refresh them.
func (r *ProfileDB) ConfirmEmail(ctx context.Context, tokenValue string) (*model.Profile, error) {
	var confirmed *model.Profile

	err := r.db.inTx(ctx, func(tx *sql.Tx) error {
		token, err := getTokenTx(ctx, tx, model.KindEmailVerification, tokenValue)
		if err != nil {
			return err
		}
		if token.Expired() {
			return apperror.Expired("EmailVerification expired.")
		}

		if _, err := tx.ExecContext(ctx,
			`UPDATE profiles SET email_confirmed = 1 WHERE id = ?`, token.ProfileID,
		); err != nil {
			return fmt.Errorf("sqlite: confirming profile %d: %w", token.ProfileID, err)
		}
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM tokens WHERE id = ?`, token.ID,
		); err != nil {
			return fmt.Errorf("sqlite: deleting verification token %d: %w", token.ID, err)
		}

		row := tx.QueryRowContext(ctx,
			`SELECT `+profileColumns+` FROM profiles WHERE id = ?`, token.ProfileID,
		)
		confirmed, err = scanProfile(row)
		if err != nil {
			return fmt.Errorf("sqlite: reading confirmed profile %d: %w", token.ProfileID, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return confirmed, nil
}

// RecoverPassword consumes a password-recovery token: force-confirms the
// email (recovering a password proves ownership of the mailbox), deletes
// the recovery row, and sets the new hash in one transaction, so a reset
// can never consume the token without changing the password.
func (r *ProfileDB) RecoverPassword(ctx context.Context, tokenValue, newPasswordHash string) (*model.Profile, error) {
	var recovered *model.Profile

	err := r.db.inTx(ctx, func(tx *sql.Tx) error {
		token, err := getTokenTx(ctx, tx, model.KindPasswordRecovery, tokenValue)
		if err != nil {
			return err
		}
		if token.Expired() {
			return apperror.Expired("Token expired.")
		}

		// Force-confirm: drop any outstanding verification token and set
		// the flag, bypassing the normal confirmation flow.
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM tokens WHERE profile_id = ? AND kind = ?`,
			token.ProfileID, model.KindEmailVerification,
		); err != nil {
			return fmt.Errorf("sqlite: force-confirming profile %d: %w", token.ProfileID, err)
		}

		if _, err := tx.ExecContext(ctx,
			`UPDATE profiles SET email_confirmed = 1, password_hash = ? WHERE id = ?`,
			newPasswordHash, token.ProfileID,
		); err != nil {
			return fmt.Errorf("sqlite: resetting password for profile %d: %w", token.ProfileID, err)
		}

		if _, err := tx.ExecContext(ctx,
			`DELETE FROM tokens WHERE id = ?`, token.ID,
		); err != nil {
			return fmt.Errorf("sqlite: deleting recovery token %d: %w", token.ID, err)
		}

		row := tx.QueryRowContext(ctx,
			`SELECT `+profileColumns+` FROM profiles WHERE id = ?`, token.ProfileID,
		)
		recovered, err = scanProfile(row)
		if err != nil {
			return fmt.Errorf("sqlite: reading recovered profile %d: %w", token.ProfileID, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return recovered, nil
}

func (r *ProfileDB) PrivacySettings(ctx context.Context, profileID int64) (*model.PrivacySettings, error) {
	var s model.PrivacySettings
	err := r.db.conn.QueryRowContext(ctx,
		`SELECT profile_id, show_username, show_email, show_date_joined
		 FROM privacy_settings WHERE profile_id = ?`,
		profileID,
	).Scan(&s.ProfileID, &s.ShowUsername, &s.ShowEmail, &s.ShowDateJoined)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("privacy settings", fmt.Sprint(profileID))
		}
		return nil, fmt.Errorf("sqlite: getting privacy settings for profile %d: %w", profileID, err)
	}
	return &s, nil
}

func (r *ProfileDB) UpdatePrivacySettings(ctx context.Context, s *model.PrivacySettings) error {
	res, err := r.db.conn.ExecContext(ctx,
		`UPDATE privacy_settings SET show_username = ?, show_email = ?, show_date_joined = ?
		 WHERE profile_id = ?`,
		s.ShowUsername, s.ShowEmail, s.ShowDateJoined, s.ProfileID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating privacy settings for profile %d: %w", s.ProfileID, err)
	}
	return requireRow(res, "privacy settings", s.ProfileID)
}

// requireRow converts a zero-row update/delete into ErrNotFound.
func requireRow(res sql.Result, resource string, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: reading rows affected: %w", err)
	}
	if n == 0 {
		return apperror.NotFound(resource, fmt.Sprint(id))
	}
	return nil
}
