package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/whyme0/chattings/internal/model"
)

// newTestDB returns a DB backed by a fresh in-memory database.
func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(":memory:")
	if err != nil {
		t.Fatalf("failed to open in-memory database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// createTestProfile inserts a profile (with its privacy settings and
// verification token) and fails the test on error.
func createTestProfile(t *testing.T, db *DB, username, email string) (*model.Profile, *model.Token) {
	t.Helper()
	p := &model.Profile{
		Username:     username,
		Email:        email,
		PasswordHash: "$2a$04$testhashtesthashtesthash",
	}
	token, err := db.Profiles().Create(context.Background(), p)
	if err != nil {
		t.Fatalf("failed to create test profile %q: %v", username, err)
	}
	return p, token
}

// expireToken rewinds a token's validity window so it reads as expired.
func expireToken(t *testing.T, db *DB, tokenID int64) {
	t.Helper()
	past := time.Now().Add(-2 * model.TokenTTL)
	_, err := db.conn.Exec(
		`UPDATE tokens SET created_at = ?, expires_at = ? WHERE id = ?`,
		past, past.Add(model.TokenTTL), tokenID,
	)
	if err != nil {
		t.Fatalf("failed to expire token %d: %v", tokenID, err)
	}
}

// countTokens returns how many token rows of the given kind the profile has.
func countTokens(t *testing.T, db *DB, profileID int64, kind model.Kind) int {
	t.Helper()
	var n int
	err := db.conn.QueryRow(
		`SELECT COUNT(*) FROM tokens WHERE profile_id = ? AND kind = ?`,
		profileID, kind,
	).Scan(&n)
	if err != nil {
		t.Fatalf("failed to count tokens: %v", err)
	}
	return n
}
