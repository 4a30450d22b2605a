package sqlite

import (
	"context"
	"errors"
	"testing"

	"github.com/whyme0/chattings/internal/apperror"
	"github.com/whyme0/chattings/internal/model"
	"github.com/whyme0/chattings/internal/repository"
)

func TestChatCreate(t *testing.T) {
	db := newTestDB(t)
	p, _ := createTestProfile(t, db, "temp2", "temp2@mail.com")

	chat := &model.Chat{
		OwnerID: &p.ID,
		Label:   "Test Chat",
		Name:    "@chat1",
		Members: []int64{p.ID},
	}
	if err := db.Chats().Create(context.Background(), chat); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if chat.ID == 0 {
		t.Error("Create() did not set chat ID")
	}
	if chat.AvatarURL != model.DefaultChatAvatarURL {
		t.Errorf("AvatarURL = %q, want default", chat.AvatarURL)
	}
	if chat.CreatedAt.IsZero() {
		t.Error("Create() did not set CreatedAt")
	}

	dup := &model.Chat{OwnerID: &p.ID, Label: "Another", Name: "@chat1"}
	if err := db.Chats().Create(context.Background(), dup); !errors.Is(err, apperror.ErrConflict) {
		t.Fatalf("Create() duplicate name error = %v, want ErrConflict", err)
	}
}

func TestChatGetByID(t *testing.T) {
	db := newTestDB(t)
	p, _ := createTestProfile(t, db, "temp2", "temp2@mail.com")

	chat := &model.Chat{
		OwnerID:     &p.ID,
		Label:       "Test Chat",
		Description: "about testing",
		Name:        "@chat1",
		Members:     []int64{p.ID, 42},
		Moderators:  []int64{p.ID},
	}
	if err := db.Chats().Create(context.Background(), chat); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	got, err := db.Chats().GetByID(context.Background(), chat.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.Label != chat.Label || got.Description != chat.Description || got.Name != chat.Name {
		t.Errorf("GetByID() = %+v", got)
	}
	if len(got.Members) != 2 || got.Members[0] != p.ID || got.Members[1] != 42 {
		t.Errorf("Members = %v", got.Members)
	}
	if len(got.Moderators) != 1 || got.Moderators[0] != p.ID {
		t.Errorf("Moderators = %v", got.Moderators)
	}

	_, err = db.Chats().GetByID(context.Background(), 999)
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Fatalf("GetByID(999) error = %v, want ErrNotFound", err)
	}
}

func TestChatList(t *testing.T) {
	db := newTestDB(t)
	p, _ := createTestProfile(t, db, "temp2", "temp2@mail.com")

	for _, name := range []string{"@one", "@two", "@three"} {
		c := &model.Chat{OwnerID: &p.ID, Label: "Chat " + name, Name: name}
		if err := db.Chats().Create(context.Background(), c); err != nil {
			t.Fatalf("Create(%s) error = %v", name, err)
		}
	}

	all, err := db.Chats().List(context.Background(), repository.ListOptions{Limit: 10})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("List() returned %d chats, want 3", len(all))
	}

	page, err := db.Chats().List(context.Background(), repository.ListOptions{Limit: 2, Offset: 1})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(page) != 2 || page[0].Name != "@two" {
		t.Errorf("List(limit=2, offset=1) = %v", chatNames(page))
	}
}

func TestChatListByOwner(t *testing.T) {
	db := newTestDB(t)
	a, _ := createTestProfile(t, db, "alice", "alice@mail.com")
	b, _ := createTestProfile(t, db, "bob", "bob@mail.com")

	for _, c := range []*model.Chat{
		{OwnerID: &a.ID, Label: "A1", Name: "@a1"},
		{OwnerID: &b.ID, Label: "B1", Name: "@b1"},
		{OwnerID: &a.ID, Label: "A2", Name: "@a2"},
	} {
		if err := db.Chats().Create(context.Background(), c); err != nil {
			t.Fatalf("Create(%s) error = %v", c.Name, err)
		}
	}

	got, err := db.Chats().ListByOwner(context.Background(), a.ID)
	if err != nil {
		t.Fatalf("ListByOwner() error = %v", err)
	}
	if len(got) != 2 || got[0].Name != "@a1" || got[1].Name != "@a2" {
		t.Errorf("ListByOwner() = %v", chatNames(got))
	}
}

func TestChatListByMember(t *testing.T) {
	db := newTestDB(t)
	a, _ := createTestProfile(t, db, "alice", "alice@mail.com")
	b, _ := createTestProfile(t, db, "bob", "bob@mail.com")

	for _, c := range []*model.Chat{
		{OwnerID: &a.ID, Label: "A1", Name: "@a1", Members: []int64{a.ID, b.ID}},
		{OwnerID: &a.ID, Label: "A2", Name: "@a2", Members: []int64{a.ID}},
	} {
		if err := db.Chats().Create(context.Background(), c); err != nil {
			t.Fatalf("Create(%s) error = %v", c.Name, err)
		}
	}

	got, err := db.Chats().ListByMember(context.Background(), b.ID)
	if err != nil {
		t.Fatalf("ListByMember() error = %v", err)
	}
	if len(got) != 1 || got[0].Name != "@a1" {
		t.Errorf("ListByMember() = %v", chatNames(got))
	}

	got, err = db.Chats().ListByMember(context.Background(), a.ID)
	if err != nil {
		t.Fatalf("ListByMember() error = %v", err)
	}
	if len(got) != 2 {
		t.Errorf("ListByMember(owner) = %v", chatNames(got))
	}
}

func TestChatUpdate(t *testing.T) {
	db := newTestDB(t)
	p, _ := createTestProfile(t, db, "temp2", "temp2@mail.com")

	chat := &model.Chat{OwnerID: &p.ID, Label: "Old Label", Name: "@chat1"}
	if err := db.Chats().Create(context.Background(), chat); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	chat.Label = "New Label"
	chat.Description = "now described"
	chat.Members = []int64{p.ID, 7}
	chat.Moderators = []int64{7}
	chat.Name = "@renamed" // must not stick
	if err := db.Chats().Update(context.Background(), chat); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	got, err := db.Chats().GetByID(context.Background(), chat.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.Label != "New Label" || got.Description != "now described" {
		t.Errorf("Update() did not persist fields: %+v", got)
	}
	if len(got.Members) != 2 || len(got.Moderators) != 1 {
		t.Errorf("Update() did not persist lists: members=%v moderators=%v", got.Members, got.Moderators)
	}
	if got.Name != "@chat1" {
		t.Errorf("Name = %q, the name column must stay immutable", got.Name)
	}
}

func TestChatDelete(t *testing.T) {
	db := newTestDB(t)
	p, _ := createTestProfile(t, db, "temp2", "temp2@mail.com")

	chat := &model.Chat{OwnerID: &p.ID, Label: "Test Chat", Name: "@chat1"}
	if err := db.Chats().Create(context.Background(), chat); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if err := db.Chats().Delete(context.Background(), chat.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := db.Chats().GetByID(context.Background(), chat.ID); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetByID() after delete error = %v, want ErrNotFound", err)
	}
	if err := db.Chats().Delete(context.Background(), chat.ID); !errors.Is(err, apperror.ErrNotFound) {
		t.Fatalf("second Delete() error = %v, want ErrNotFound", err)
	}
}

func chatNames(chats []model.Chat) []string {
	names := make([]string, len(chats))
	for i, c := range chats {
		names[i] = c.Name
	}
	return names
}
