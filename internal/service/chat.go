package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/whyme0/chattings/internal/apperror"
	"github.com/whyme0/chattings/internal/model"
	"github.com/whyme0/chattings/internal/repository"
)

const (
	MaxChatLabelLength       = 70
	MaxChatNameLength        = 50 // before the "@" prefix
	MaxChatDescriptionLength = 200

	DefaultChatListLimit = 20
	MaxChatListLimit     = 100
)

// ChatService handles chat CRUD and membership. Only the owner may mutate
// or delete a chat; the name is immutable for every actor after creation.
type ChatService struct {
	chats  repository.ChatRepository
	logger *slog.Logger
}

func NewChatService(chats repository.ChatRepository, logger *slog.Logger) *ChatService {
	return &ChatService{chats: chats, logger: logger}
}

// Create validates the fields, "@"-prefixes the name if the caller did not,
// and stores the chat with the creator as owner and first member.
func (s *ChatService) Create(ctx context.Context, ownerID int64, label, name, description string) (*model.Chat, error) {
	label = strings.TrimSpace(label)
	name = strings.TrimSpace(name)
	description = strings.TrimSpace(description)

	if label == "" {
		return nil, apperror.ValidationFailed("label", "Field is empty.")
	}
	if utf8.RuneCountInString(label) > MaxChatLabelLength {
		return nil, apperror.ValidationFailed("label",
			fmt.Sprintf("Label must be %d characters or less.", MaxChatLabelLength))
	}
	if strings.TrimPrefix(name, "@") == "" {
		return nil, apperror.ValidationFailed("name", "Field is empty.")
	}
	if utf8.RuneCountInString(strings.TrimPrefix(name, "@")) > MaxChatNameLength {
		return nil, apperror.ValidationFailed("name",
			fmt.Sprintf("Name must be %d characters or less.", MaxChatNameLength))
	}
	if utf8.RuneCountInString(description) > MaxChatDescriptionLength {
		return nil, apperror.ValidationFailed("description",
			fmt.Sprintf("Description must be %d characters or less.", MaxChatDescriptionLength))
	}
	if !strings.HasPrefix(name, "@") {
		name = "@" + name
	}

	chat := &model.Chat{
		OwnerID:     &ownerID,
		Label:       label,
		Name:        name,
		Description: description,
		Moderators:  []int64{ownerID},
		Members:     []int64{ownerID},
	}
	if err := s.chats.Create(ctx, chat); err != nil {
		return nil, err
	}
	s.logger.Info("chat created",
		slog.Int64("chat_id", chat.ID),
		slog.String("name", chat.Name),
	)
	return chat, nil
}

func (s *ChatService) Get(ctx context.Context, id int64) (*model.Chat, error) {
	return s.chats.GetByID(ctx, id)
}

func (s *ChatService) List(ctx context.Context, limit, offset int) ([]model.Chat, error) {
	if limit <= 0 {
		limit = DefaultChatListLimit
	}
	if limit > MaxChatListLimit {
		limit = MaxChatListLimit
	}
	if offset < 0 {
		offset = 0
	}
	return s.chats.List(ctx, repository.ListOptions{Limit: limit, Offset: offset})
}

func (s *ChatService) ListByOwner(ctx context.Context, ownerID int64) ([]model.Chat, error) {
	return s.chats.ListByOwner(ctx, ownerID)
}

func (s *ChatService) ListByMember(ctx context.Context, profileID int64) ([]model.Chat, error) {
	return s.chats.ListByMember(ctx, profileID)
}

// Update lets the owner change label, description, and avatar. A non-empty
// name differing from the stored one is rejected: the name never changes
// after creation, for any actor.
func (s *ChatService) Update(ctx context.Context, actorID, chatID int64, label, description, name string) (*model.Chat, error) {
	chat, err := s.chats.GetByID(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if !chat.OwnedBy(actorID) {
		return nil, apperror.Forbidden("Only the chat owner may edit it.")
	}
	if name != "" && name != chat.Name {
		return nil, apperror.ValidationFailed("name", "Chat name cannot be changed.")
	}

	label = strings.TrimSpace(label)
	if label == "" {
		return nil, apperror.ValidationFailed("label", "Field is empty.")
	}
	if utf8.RuneCountInString(label) > MaxChatLabelLength {
		return nil, apperror.ValidationFailed("label",
			fmt.Sprintf("Label must be %d characters or less.", MaxChatLabelLength))
	}
	description = strings.TrimSpace(description)
	if utf8.RuneCountInString(description) > MaxChatDescriptionLength {
		return nil, apperror.ValidationFailed("description",
			fmt.Sprintf("Description must be %d characters or less.", MaxChatDescriptionLength))
	}

	chat.Label = label
	chat.Description = description
	if err := s.chats.Update(ctx, chat); err != nil {
		return nil, err
	}
	return chat, nil
}

func (s *ChatService) Delete(ctx context.Context, actorID, chatID int64) error {
	chat, err := s.chats.GetByID(ctx, chatID)
	if err != nil {
		return err
	}
	if !chat.OwnedBy(actorID) {
		return apperror.Forbidden("Only the chat owner may delete it.")
	}
	if err := s.chats.Delete(ctx, chatID); err != nil {
		return err
	}
	s.logger.Info("chat deleted",
		slog.Int64("chat_id", chatID),
		slog.Int64("actor_id", actorID),
	)
	return nil
}

// AddMember appends the profile to the member list if not already present.
// Adding an existing member is a no-op, not an error.
func (s *ChatService) AddMember(ctx context.Context, chatID, profileID int64) (*model.Chat, error) {
	chat, err := s.chats.GetByID(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if !chat.AddMember(profileID) {
		return chat, nil
	}
	if err := s.chats.Update(ctx, chat); err != nil {
		return nil, err
	}
	return chat, nil
}

// Members returns the raw member id list.
func (s *ChatService) Members(ctx context.Context, chatID int64) ([]int64, error) {
	chat, err := s.chats.GetByID(ctx, chatID)
	if err != nil {
		return nil, err
	}
	return chat.Members, nil
}
