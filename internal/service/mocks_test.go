package service

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/whyme0/chattings/internal/apperror"
	"github.com/whyme0/chattings/internal/auth"
	"github.com/whyme0/chattings/internal/mail"
	"github.com/whyme0/chattings/internal/model"
	"github.com/whyme0/chattings/internal/repository"
)

// In-memory repository mocks. The services only see the repository
// interfaces, so these stand in for the sqlite implementation.

type mockProfileRepo struct {
	profiles map[int64]*model.Profile
	privacy  map[int64]*model.PrivacySettings
	tokens   *mockTokenRepo
	nextID   int64
}

func newMockProfileRepo(tokens *mockTokenRepo) *mockProfileRepo {
	return &mockProfileRepo{
		profiles: make(map[int64]*model.Profile),
		privacy:  make(map[int64]*model.PrivacySettings),
		tokens:   tokens,
	}
}

func (m *mockProfileRepo) Create(_ context.Context, p *model.Profile) (*model.Token, error) {
	for _, existing := range m.profiles {
		if strings.EqualFold(existing.Username, p.Username) {
			return nil, apperror.Conflict("username", "A user with that username already exists.")
		}
		if strings.EqualFold(existing.Email, p.Email) {
			return nil, apperror.Conflict("email", "A user with that email already exists.")
		}
	}
	m.nextID++
	p.ID = m.nextID
	p.DateJoined = time.Now()
	if p.AvatarURL == "" {
		p.AvatarURL = model.DefaultAvatarURL
	}
	stored := *p
	m.profiles[p.ID] = &stored
	m.privacy[p.ID] = &model.PrivacySettings{ProfileID: p.ID}
	return m.tokens.Upsert(context.Background(), p.ID, model.KindEmailVerification)
}

func (m *mockProfileRepo) GetByID(_ context.Context, id int64) (*model.Profile, error) {
	p, ok := m.profiles[id]
	if !ok {
		return nil, apperror.NotFound("profile", strconv.FormatInt(id, 10))
	}
	result := *p
	return &result, nil
}

func (m *mockProfileRepo) FindByIdentifier(_ context.Context, identifier string) (*model.Profile, error) {
	for _, p := range m.profiles {
		if strings.EqualFold(p.Username, identifier) || strings.EqualFold(p.Email, identifier) {
			result := *p
			return &result, nil
		}
	}
	return nil, apperror.NotFound("profile", identifier)
}

func (m *mockProfileRepo) UpdatePassword(_ context.Context, id int64, hash string) error {
	p, ok := m.profiles[id]
	if !ok {
		return apperror.NotFound("profile", strconv.FormatInt(id, 10))
	}
	p.PasswordHash = hash
	return nil
}

func (m *mockProfileRepo) UpdateAvatar(_ context.Context, id int64, url string) error {
	p, ok := m.profiles[id]
	if !ok {
		return apperror.NotFound("profile", strconv.FormatInt(id, 10))
	}
	p.AvatarURL = url
	return nil
}

func (m *mockProfileRepo) Delete(_ context.Context, id int64) error {
	if _, ok := m.profiles[id]; !ok {
		return apperror.NotFound("profile", strconv.FormatInt(id, 10))
	}
	delete(m.profiles, id)
	delete(m.privacy, id)
	return nil
}

func (m *mockProfileRepo) ConfirmEmail(ctx context.Context, tokenValue string) (*model.Profile, error) {
	token, err := m.tokens.GetByValue(ctx, model.KindEmailVerification, tokenValue)
	if err != nil {
		return nil, err
	}
	if token.Expired() {
		return nil, apperror.Expired("EmailVerification expired.")
	}
	p := m.profiles[token.ProfileID]
	p.EmailConfirmed = true
	_ = m.tokens.Delete(ctx, token.ID)
	result := *p
	return &result, nil
}

func (m *mockProfileRepo) RecoverPassword(ctx context.Context, tokenValue, newHash string) (*model.Profile, error) {
	token, err := m.tokens.GetByValue(ctx, model.KindPasswordRecovery, tokenValue)
	if err != nil {
		return nil, err
	}
	if token.Expired() {
		return nil, apperror.Expired("Token expired.")
	}
	p := m.profiles[token.ProfileID]
	p.EmailConfirmed = true
	p.PasswordHash = newHash
	m.tokens.deleteByProfile(token.ProfileID, model.KindEmailVerification)
	_ = m.tokens.Delete(ctx, token.ID)
	result := *p
	return &result, nil
}

func (m *mockProfileRepo) PrivacySettings(_ context.Context, profileID int64) (*model.PrivacySettings, error) {
	s, ok := m.privacy[profileID]
	if !ok {
		return nil, apperror.NotFound("privacy settings", strconv.FormatInt(profileID, 10))
	}
	result := *s
	return &result, nil
}

func (m *mockProfileRepo) UpdatePrivacySettings(_ context.Context, s *model.PrivacySettings) error {
	if _, ok := m.privacy[s.ProfileID]; !ok {
		return apperror.NotFound("privacy settings", strconv.FormatInt(s.ProfileID, 10))
	}
	stored := *s
	m.privacy[s.ProfileID] = &stored
	return nil
}

type mockTokenRepo struct {
	tokens map[int64]*model.Token
	nextID int64
}

func newMockTokenRepo() *mockTokenRepo {
	return &mockTokenRepo{tokens: make(map[int64]*model.Token)}
}

func (m *mockTokenRepo) Upsert(_ context.Context, profileID int64, kind model.Kind) (*model.Token, error) {
	m.deleteByProfile(profileID, kind)
	m.nextID++
	now := time.Now()
	token := &model.Token{
		ID:        m.nextID,
		ProfileID: profileID,
		Kind:      kind,
		Value:     model.NewTokenValue(),
		CreatedAt: now,
		ExpiresAt: now.Add(model.TokenTTL),
	}
	m.tokens[token.ID] = token
	result := *token
	return &result, nil
}

func (m *mockTokenRepo) GetByValue(_ context.Context, kind model.Kind, value string) (*model.Token, error) {
	for _, t := range m.tokens {
		if t.Kind == kind && t.Value == value {
			result := *t
			return &result, nil
		}
	}
	return nil, apperror.NotFoundMsg("Invalid token. Make sure your token is valid and not deleted.")
}

func (m *mockTokenRepo) GetByProfile(_ context.Context, kind model.Kind, profileID int64) (*model.Token, error) {
	for _, t := range m.tokens {
		if t.Kind == kind && t.ProfileID == profileID {
			result := *t
			return &result, nil
		}
	}
	return nil, apperror.NotFound("token", strconv.FormatInt(profileID, 10))
}

func (m *mockTokenRepo) Delete(_ context.Context, id int64) error {
	if _, ok := m.tokens[id]; !ok {
		return apperror.NotFound("token", strconv.FormatInt(id, 10))
	}
	delete(m.tokens, id)
	return nil
}

func (m *mockTokenRepo) deleteByProfile(profileID int64, kind model.Kind) {
	for id, t := range m.tokens {
		if t.ProfileID == profileID && t.Kind == kind {
			delete(m.tokens, id)
		}
	}
}

func (m *mockTokenRepo) expire(value string) {
	for _, t := range m.tokens {
		if t.Value == value {
			t.CreatedAt = t.CreatedAt.Add(-2 * model.TokenTTL)
			t.ExpiresAt = t.ExpiresAt.Add(-2 * model.TokenTTL)
		}
	}
}

type mockChatRepo struct {
	chats  map[int64]*model.Chat
	nextID int64
}

func newMockChatRepo() *mockChatRepo {
	return &mockChatRepo{chats: make(map[int64]*model.Chat)}
}

func (m *mockChatRepo) Create(_ context.Context, c *model.Chat) error {
	for _, existing := range m.chats {
		if existing.Name == c.Name {
			return apperror.Conflict("name", "A chat with that name already exists.")
		}
	}
	m.nextID++
	c.ID = m.nextID
	c.CreatedAt = time.Now()
	if c.AvatarURL == "" {
		c.AvatarURL = model.DefaultChatAvatarURL
	}
	stored := *c
	m.chats[c.ID] = &stored
	return nil
}

func (m *mockChatRepo) GetByID(_ context.Context, id int64) (*model.Chat, error) {
	c, ok := m.chats[id]
	if !ok {
		return nil, apperror.NotFound("chat", strconv.FormatInt(id, 10))
	}
	result := *c
	result.Members = append([]int64(nil), c.Members...)
	result.Moderators = append([]int64(nil), c.Moderators...)
	return &result, nil
}

func (m *mockChatRepo) List(_ context.Context, opts repository.ListOptions) ([]model.Chat, error) {
	result := make([]model.Chat, 0, len(m.chats))
	for id := int64(1); id <= m.nextID; id++ {
		if c, ok := m.chats[id]; ok {
			result = append(result, *c)
		}
	}
	if opts.Offset >= len(result) {
		return []model.Chat{}, nil
	}
	result = result[opts.Offset:]
	if opts.Limit > 0 && opts.Limit < len(result) {
		result = result[:opts.Limit]
	}
	return result, nil
}

func (m *mockChatRepo) ListByOwner(_ context.Context, ownerID int64) ([]model.Chat, error) {
	result := []model.Chat{}
	for id := int64(1); id <= m.nextID; id++ {
		if c, ok := m.chats[id]; ok && c.OwnedBy(ownerID) {
			result = append(result, *c)
		}
	}
	return result, nil
}

func (m *mockChatRepo) ListByMember(_ context.Context, profileID int64) ([]model.Chat, error) {
	result := []model.Chat{}
	for id := int64(1); id <= m.nextID; id++ {
		if c, ok := m.chats[id]; ok && c.HasMember(profileID) {
			result = append(result, *c)
		}
	}
	return result, nil
}

func (m *mockChatRepo) Update(_ context.Context, c *model.Chat) error {
	stored, ok := m.chats[c.ID]
	if !ok {
		return apperror.NotFound("chat", strconv.FormatInt(c.ID, 10))
	}
	name := stored.Name // immutable at the storage layer too
	updated := *c
	updated.Name = name
	m.chats[c.ID] = &updated
	return nil
}

func (m *mockChatRepo) Delete(_ context.Context, id int64) error {
	if _, ok := m.chats[id]; !ok {
		return apperror.NotFound("chat", strconv.FormatInt(id, 10))
	}
	delete(m.chats, id)
	return nil
}

// mockMailer records sent messages so tests can assert on dispatch. A
// non-nil failWith makes every Send fail without recording anything.
type mockMailer struct {
	mu       sync.Mutex
	failWith error
	messages []mail.Message
}

func (m *mockMailer) Send(_ context.Context, msg mail.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return m.failWith
	}
	m.messages = append(m.messages, msg)
	return nil
}

func (m *mockMailer) failAll(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failWith = err
}

func (m *mockMailer) sent() []mail.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]mail.Message(nil), m.messages...)
}

type mockUploader struct {
	uploads int
}

func (m *mockUploader) Upload(_ context.Context, r io.Reader, folder string) (string, error) {
	_, _ = io.Copy(io.Discard, r)
	m.uploads++
	return "https://cdn.example.com/" + folder + "/uploaded.png", nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func testPasswords(t *testing.T) *auth.PasswordService {
	t.Helper()
	return auth.NewPasswordServiceForTest(4)
}
