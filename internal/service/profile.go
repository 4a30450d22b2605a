package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"unicode/utf8"

	"github.com/whyme0/chattings/internal/apperror"
	"github.com/whyme0/chattings/internal/auth"
	"github.com/whyme0/chattings/internal/model"
	"github.com/whyme0/chattings/internal/repository"
	"github.com/whyme0/chattings/internal/storage"
)

// avatarFolder groups profile avatars in the storage backend.
const avatarFolder = "chattings/avatars"

// ProfileService handles profile reads and self-service mutations
// (privacy flags, password change, avatar upload).
type ProfileService struct {
	profiles  repository.ProfileRepository
	chats     repository.ChatRepository
	passwords *auth.PasswordService
	uploader  storage.Uploader
	logger    *slog.Logger
}

func NewProfileService(
	profiles repository.ProfileRepository,
	chats repository.ChatRepository,
	passwords *auth.PasswordService,
	uploader storage.Uploader,
	logger *slog.Logger,
) *ProfileService {
	return &ProfileService{
		profiles:  profiles,
		chats:     chats,
		passwords: passwords,
		uploader:  uploader,
		logger:    logger,
	}
}

func (s *ProfileService) Get(ctx context.Context, id int64) (*model.Profile, error) {
	return s.profiles.GetByID(ctx, id)
}

// PublicProfile is the anonymous view of a profile: its guarded fields
// filtered through the privacy settings plus the chats it belongs to.
type PublicProfile struct {
	Info  map[string]string `json:"profile"`
	Chats []model.Chat      `json:"chats"`
}

// PublicInfo returns the profile's guarded fields filtered through its
// privacy settings. Hidden fields come back as the "Hidden" sentinel, so
// the shape of the response never reveals what is set.
func (s *ProfileService) PublicInfo(ctx context.Context, username string) (*PublicProfile, error) {
	profile, err := s.profiles.FindByIdentifier(ctx, username)
	if err != nil {
		return nil, err
	}
	settings, err := s.profiles.PrivacySettings(ctx, profile.ID)
	if err != nil {
		return nil, err
	}
	info := settings.PublicInfo(profile)
	info["avatar"] = profile.AvatarURL

	chats, err := s.chats.ListByMember(ctx, profile.ID)
	if err != nil {
		return nil, err
	}
	return &PublicProfile{Info: info, Chats: chats}, nil
}

func (s *ProfileService) PrivacySettings(ctx context.Context, profileID int64) (*model.PrivacySettings, error) {
	return s.profiles.PrivacySettings(ctx, profileID)
}

func (s *ProfileService) UpdatePrivacySettings(ctx context.Context, profileID int64, showUsername, showEmail, showDateJoined bool) error {
	return s.profiles.UpdatePrivacySettings(ctx, &model.PrivacySettings{
		ProfileID:      profileID,
		ShowUsername:   showUsername,
		ShowEmail:      showEmail,
		ShowDateJoined: showDateJoined,
	})
}

// ChangePassword requires the current password before accepting a new one.
func (s *ProfileService) ChangePassword(ctx context.Context, profileID int64, oldPassword, newPassword string) error {
	profile, err := s.profiles.GetByID(ctx, profileID)
	if err != nil {
		return err
	}
	if err := s.passwords.Verify(profile.PasswordHash, oldPassword); err != nil {
		return apperror.ValidationFailed("old_password", "Enter correct password.")
	}
	if utf8.RuneCountInString(newPassword) < MinPasswordLength {
		return apperror.ValidationFailed("new_password",
			fmt.Sprintf("Password must be at least %d characters.", MinPasswordLength))
	}

	hash, err := s.passwords.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}
	if err := s.profiles.UpdatePassword(ctx, profileID, hash); err != nil {
		return err
	}
	s.logger.Info("password changed", slog.Int64("profile_id", profileID))
	return nil
}

// UpdateAvatar uploads the image and points the profile at the stored URL.
func (s *ProfileService) UpdateAvatar(ctx context.Context, profileID int64, image io.Reader) (string, error) {
	url, err := s.uploader.Upload(ctx, image, avatarFolder)
	if err != nil {
		return "", fmt.Errorf("storing avatar: %w", err)
	}
	if err := s.profiles.UpdateAvatar(ctx, profileID, url); err != nil {
		return "", err
	}
	return url, nil
}
