package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/whyme0/chattings/internal/apperror"
	"github.com/whyme0/chattings/internal/auth"
	"github.com/whyme0/chattings/internal/mail"
	"github.com/whyme0/chattings/internal/model"
	"github.com/whyme0/chattings/internal/repository"
)

// RecoveryService handles the password-recovery workflow.
type RecoveryService struct {
	profiles  repository.ProfileRepository
	tokens    repository.TokenRepository
	passwords *auth.PasswordService
	mailer    mail.Mailer
	baseURL   string
	logger    *slog.Logger
}

func NewRecoveryService(
	profiles repository.ProfileRepository,
	tokens repository.TokenRepository,
	passwords *auth.PasswordService,
	mailer mail.Mailer,
	baseURL string,
	logger *slog.Logger,
) *RecoveryService {
	return &RecoveryService{
		profiles:  profiles,
		tokens:    tokens,
		passwords: passwords,
		mailer:    mailer,
		baseURL:   baseURL,
		logger:    logger,
	}
}

// Request issues (or refreshes) a recovery token for the profile matching
// the identifier and dispatches the recovery email. Re-requesting is
// idempotent: the existing row gets a new value and a new validity window.
func (s *RecoveryService) Request(ctx context.Context, identifier string) error {
	profile, err := s.profiles.FindByIdentifier(ctx, identifier)
	if err != nil {
		// A miss here is a form error, not a missing resource.
		if errors.Is(err, apperror.ErrNotFound) {
			if strings.Contains(identifier, "@") {
				return apperror.ValidationFailed("identifier", "User with this email doesn't exist.")
			}
			return apperror.ValidationFailed("identifier", "User with this username doesn't exist.")
		}
		return err
	}

	token, err := s.tokens.Upsert(ctx, profile.ID, model.KindPasswordRecovery)
	if err != nil {
		return err
	}
	s.logger.Info("password recovery requested", slog.Int64("profile_id", profile.ID))

	go func() {
		msg := mail.RecoveryMessage(profile.Email, s.baseURL, token.Value)
		if err := s.mailer.Send(context.Background(), msg); err != nil {
			s.logger.Error("sending recovery email failed",
				slog.String("to", profile.Email),
				slog.String("error", err.Error()),
			)
		}
	}()
	return nil
}

// Check verifies that a recovery token exists and has not expired without
// consuming it, so the reset form can be shown or refused up front.
func (s *RecoveryService) Check(ctx context.Context, tokenValue string) error {
	token, err := s.tokens.GetByValue(ctx, model.KindPasswordRecovery, tokenValue)
	if err != nil {
		return err
	}
	if token.Expired() {
		return apperror.Expired("Token expired.")
	}
	return nil
}

// Reset consumes the recovery token and sets the new password. Recovering
// a password proves email ownership, so an unconfirmed profile comes out
// of this confirmed.
func (s *RecoveryService) Reset(ctx context.Context, tokenValue, newPassword string) (*model.Profile, error) {
	if utf8.RuneCountInString(newPassword) < MinPasswordLength {
		return nil, apperror.ValidationFailed("password",
			fmt.Sprintf("Password must be at least %d characters.", MinPasswordLength))
	}

	hash, err := s.passwords.Hash(newPassword)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	profile, err := s.profiles.RecoverPassword(ctx, tokenValue, hash)
	if err != nil {
		return nil, err
	}
	s.logger.Info("password recovered", slog.Int64("profile_id", profile.ID))
	return profile, nil
}
