// Package repository declares the persistence interfaces the service layer
// programs against. The sqlite subpackage is the only implementation;
// tests substitute in-memory mocks.
package repository

import (
	"context"

	"github.com/whyme0/chattings/internal/model"
)

type ListOptions struct {
	Limit  int
	Offset int
}

// ProfileRepository persists profiles, their privacy settings, and the
// token-consuming workflow transitions.
//
// Create, ConfirmEmail, and RecoverPassword are composite: each runs its
// whole sequence inside one transaction. A reset must never leave the
// token consumed without the password changed, and vice versa.
type ProfileRepository interface {
	// Create inserts the profile together with its default privacy
	// settings row and a fresh email-verification token, all in one
	// transaction. Fills p.ID and p.DateJoined and returns the token.
	Create(ctx context.Context, p *model.Profile) (*model.Token, error)

	GetByID(ctx context.Context, id int64) (*model.Profile, error)

	// FindByIdentifier looks a profile up by username or email,
	// case-insensitively.
	FindByIdentifier(ctx context.Context, identifier string) (*model.Profile, error)

	UpdatePassword(ctx context.Context, id int64, passwordHash string) error
	UpdateAvatar(ctx context.Context, id int64, avatarURL string) error
	Delete(ctx context.Context, id int64) error

	// ConfirmEmail consumes an email-verification token: marks the owning
	// profile confirmed and deletes the token row. An unknown value yields
	// ErrNotFound; an expired token yields ErrExpired and leaves both the
	// row and the profile untouched.
	ConfirmEmail(ctx context.Context, tokenValue string) (*model.Profile, error)

	// RecoverPassword consumes a password-recovery token: force-confirms
	// the profile's email if still unconfirmed (deleting any verification
	// token), deletes the recovery token, and sets the new password hash.
	// Same NotFound/Expired contract as ConfirmEmail.
	RecoverPassword(ctx context.Context, tokenValue, newPasswordHash string) (*model.Profile, error)

	PrivacySettings(ctx context.Context, profileID int64) (*model.PrivacySettings, error)
	UpdatePrivacySettings(ctx context.Context, s *model.PrivacySettings) error
}

// TokenRepository manages token rows outside the consuming transitions.
type TokenRepository interface {
	// Upsert issues a token of the given kind for the profile, refreshing
	// the existing row (new value, new validity window) if one exists.
	Upsert(ctx context.Context, profileID int64, kind model.Kind) (*model.Token, error)

	GetByValue(ctx context.Context, kind model.Kind, value string) (*model.Token, error)

	// GetByProfile returns the profile's token of the given kind, or
	// ErrNotFound, which for email verification means "already confirmed".
	GetByProfile(ctx context.Context, kind model.Kind, profileID int64) (*model.Token, error)

	Delete(ctx context.Context, id int64) error
}

type ChatRepository interface {
	Create(ctx context.Context, c *model.Chat) error
	GetByID(ctx context.Context, id int64) (*model.Chat, error)
	List(ctx context.Context, opts ListOptions) ([]model.Chat, error)
	ListByOwner(ctx context.Context, ownerID int64) ([]model.Chat, error)

	// ListByMember returns the chats whose member list contains the
	// profile, in creation order.
	ListByMember(ctx context.Context, profileID int64) ([]model.Chat, error)
	Update(ctx context.Context, c *model.Chat) error
	Delete(ctx context.Context, id int64) error
}
