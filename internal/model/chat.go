package model

import "time"

// DefaultChatAvatarURL is assigned to new chats until the owner uploads one.
const DefaultChatAvatarURL = "/static/chats_avatars/default_chat_avatar.png"

// Chat is a named, owned conversation entity.
//
// OwnerID is a pointer because a chat survives its owner's deletion with
// the reference nulled. Name is the unique "@"-prefixed slug and is
// immutable after creation for every actor, the owner included; the
// validation layer enforces that, not the storage layer.
//
// Members and Moderators are ordered lists of profile ids. AddMember is
// the sole mutator of Members; callers must not append directly, and the
// mutation is in-memory only; persist the chat afterwards.
type Chat struct {
	ID          int64     `json:"id"`
	OwnerID     *int64    `json:"ownerId"`
	Label       string    `json:"label"`
	Description string    `json:"description"`
	Name        string    `json:"name"`
	AvatarURL   string    `json:"avatarUrl"`
	Moderators  []int64   `json:"moderators"`
	Members     []int64   `json:"members"`
	CreatedAt   time.Time `json:"createdAt"`
}

// AddMember appends profileID to Members iff it is not already present.
// First add wins position; repeated adds are no-ops. Reports whether the
// list changed.
func (c *Chat) AddMember(profileID int64) bool {
	for _, id := range c.Members {
		if id == profileID {
			return false
		}
	}
	c.Members = append(c.Members, profileID)
	return true
}

// HasMember reports whether profileID is in the members list.
func (c *Chat) HasMember(profileID int64) bool {
	for _, id := range c.Members {
		if id == profileID {
			return true
		}
	}
	return false
}

// OwnedBy reports whether the chat still has an owner and it is profileID.
func (c *Chat) OwnedBy(profileID int64) bool {
	return c.OwnerID != nil && *c.OwnerID == profileID
}
