// Package model defines the data structures used throughout the application.
package model

import "time"

// DefaultAvatarURL is assigned to new profiles until they upload one.
const DefaultAvatarURL = "/static/user_avatars/default_user_avatar.png"

// Profile represents a registered user account.
//
// IDs are int64 because chat member and moderator lists are stored as raw
// lists of integer profile ids. EmailConfirmed is an explicit field rather
// than a permission entry: a profile cannot authenticate until it is set,
// and it is set either by the email-confirmation workflow or force-set by
// a successful password reset.
type Profile struct {
	ID             int64     `json:"id"`
	Username       string    `json:"username"`
	Email          string    `json:"email"`
	PasswordHash   string    `json:"-"`
	AvatarURL      string    `json:"avatarUrl"`
	EmailConfirmed bool      `json:"emailConfirmed"`
	DateJoined     time.Time `json:"dateJoined"`
}

// HiddenValue is the sentinel shown in place of a field the profile's
// privacy settings keep private.
const HiddenValue = "Hidden"

// PrivacySettings holds the per-field visibility flags for one profile.
// A row is created together with the profile and removed with it. All
// flags default to false: a fresh profile shows nothing until its owner
// opts in.
type PrivacySettings struct {
	ProfileID      int64 `json:"profileId"`
	ShowUsername   bool  `json:"showUsername"`
	ShowEmail      bool  `json:"showEmail"`
	ShowDateJoined bool  `json:"showDateJoined"`
}

// PublicInfo maps each guarded field of p to either its real value or
// HiddenValue, according to the flags.
func (s *PrivacySettings) PublicInfo(p *Profile) map[string]string {
	info := map[string]string{
		"username":    HiddenValue,
		"email":       HiddenValue,
		"date_joined": HiddenValue,
	}
	if s.ShowUsername {
		info["username"] = p.Username
	}
	if s.ShowEmail {
		info["email"] = p.Email
	}
	if s.ShowDateJoined {
		info["date_joined"] = p.DateJoined.Format("2006-01-02")
	}
	return info
}
