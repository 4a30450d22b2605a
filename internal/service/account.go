// Package service contains the business logic layer: validation, workflow
// orchestration, and authorization rules. Services speak in domain types
// and apperror values; they know nothing about HTTP.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/whyme0/chattings/internal/apperror"
	"github.com/whyme0/chattings/internal/auth"
	"github.com/whyme0/chattings/internal/mail"
	"github.com/whyme0/chattings/internal/metrics"
	"github.com/whyme0/chattings/internal/model"
	"github.com/whyme0/chattings/internal/repository"
)

const (
	MaxUsernameLength = 45
	MinPasswordLength = 8
)

var (
	usernamePattern = regexp.MustCompile(`^[\w-]+$`)
	emailPattern    = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
)

// AccountService handles registration, login, and the email-confirmation
// workflow.
type AccountService struct {
	profiles  repository.ProfileRepository
	tokens    repository.TokenRepository
	passwords *auth.PasswordService
	mailer    mail.Mailer
	baseURL   string
	logger    *slog.Logger
}

func NewAccountService(
	profiles repository.ProfileRepository,
	tokens repository.TokenRepository,
	passwords *auth.PasswordService,
	mailer mail.Mailer,
	baseURL string,
	logger *slog.Logger,
) *AccountService {
	return &AccountService{
		profiles:  profiles,
		tokens:    tokens,
		passwords: passwords,
		mailer:    mailer,
		baseURL:   baseURL,
		logger:    logger,
	}
}

// Register creates an unconfirmed profile and dispatches the confirmation
// email. Mail delivery is fire-and-forget: a failed send never rolls back
// the registration, the user can always ask for a resend.
func (s *AccountService) Register(ctx context.Context, username, email, password string) (*model.Profile, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)

	if username == "" {
		return nil, apperror.ValidationFailed("username", "Field is empty.")
	}
	if utf8.RuneCountInString(username) > MaxUsernameLength {
		return nil, apperror.ValidationFailed("username",
			fmt.Sprintf("Username must be %d characters or less.", MaxUsernameLength))
	}
	if !usernamePattern.MatchString(username) {
		return nil, apperror.ValidationFailed("username",
			"Username may contain only letters, numbers, underscores and hyphens.")
	}
	if !emailPattern.MatchString(email) {
		return nil, apperror.ValidationFailed("email", "Enter a valid email address.")
	}
	if utf8.RuneCountInString(password) < MinPasswordLength {
		return nil, apperror.ValidationFailed("password",
			fmt.Sprintf("Password must be at least %d characters.", MinPasswordLength))
	}

	hash, err := s.passwords.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	profile := &model.Profile{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
	}
	token, err := s.profiles.Create(ctx, profile)
	if err != nil {
		return nil, err
	}

	s.logger.Info("profile registered",
		slog.Int64("profile_id", profile.ID),
		slog.String("username", profile.Username),
	)
	metrics.RegistrationsTotal.Inc()

	s.sendAsync(model.KindEmailVerification, mail.ConfirmationMessage(profile.Email, s.baseURL, token.Value))
	return profile, nil
}

// Login authenticates by username or email. Unconfirmed profiles are
// rejected even with the correct password, pointing the user at the
// resend-confirmation path.
func (s *AccountService) Login(ctx context.Context, identifier, password string) (*model.Profile, error) {
	profile, err := s.profiles.FindByIdentifier(ctx, identifier)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			if strings.Contains(identifier, "@") {
				return nil, apperror.NotFoundMsg("User with this email doesn't exist.")
			}
			return nil, apperror.NotFoundMsg("User with this username doesn't exist.")
		}
		return nil, err
	}

	if err := s.passwords.Verify(profile.PasswordHash, password); err != nil {
		return nil, apperror.ValidationFailed("password", "Enter correct password.")
	}
	if !profile.EmailConfirmed {
		return nil, apperror.Forbidden("Confirm your email to login.")
	}
	return profile, nil
}

// ConfirmEmail consumes a verification token.
func (s *AccountService) ConfirmEmail(ctx context.Context, tokenValue string) (*model.Profile, error) {
	profile, err := s.profiles.ConfirmEmail(ctx, tokenValue)
	if err != nil {
		return nil, err
	}
	s.logger.Info("email confirmed", slog.Int64("profile_id", profile.ID))
	return profile, nil
}

// ResendConfirmation refreshes the profile's verification token and sends
// the confirmation email again. Once the profile is confirmed there is no
// token left to refresh and the request is not applicable.
func (s *AccountService) ResendConfirmation(ctx context.Context, username string) error {
	profile, err := s.profiles.FindByIdentifier(ctx, username)
	if err != nil {
		return err
	}
	if _, err := s.tokens.GetByProfile(ctx, model.KindEmailVerification, profile.ID); err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return apperror.NotApplicable("Email is already confirmed.")
		}
		return err
	}

	token, err := s.tokens.Upsert(ctx, profile.ID, model.KindEmailVerification)
	if err != nil {
		return err
	}
	s.sendAsync(model.KindEmailVerification, mail.ConfirmationMessage(profile.Email, s.baseURL, token.Value))
	return nil
}

// sendAsync dispatches mail in the background. Delivery failures are
// logged and counted but never surface to the caller.
func (s *AccountService) sendAsync(kind model.Kind, msg mail.Message) {
	go func() {
		if err := s.mailer.Send(context.Background(), msg); err != nil {
			s.logger.Error("sending email failed",
				slog.String("kind", string(kind)),
				slog.String("to", msg.To),
				slog.String("error", err.Error()),
			)
			metrics.EmailsSentTotal.WithLabelValues(string(kind), "error").Inc()
			return
		}
		metrics.EmailsSentTotal.WithLabelValues(string(kind), "ok").Inc()
	}()
}
