package domain

import (
	"fmt"
	"time"
)

type ChannelID string
type UserID string
type MessageID string
type RoleID string

// SystemUser is the acting user recorded for operations initiated by the
// bot itself (automatic disposal, rotation cleanup).
const SystemUser UserID = "system"

// RegionAutomatic lets the platform pick the voice region.
const RegionAutomatic = "automatic"

type PrivacyMode string

const (
	PrivacyLocked         PrivacyMode = "locked"
	PrivacyUnlockedUnseen PrivacyMode = "unlocked-unseen"
	PrivacyUnlockedSeen   PrivacyMode = "unlocked-seen"
)

func (m PrivacyMode) Valid() bool {
	switch m {
	case PrivacyLocked, PrivacyUnlockedUnseen, PrivacyUnlockedSeen:
		return true
	}
	return false
}

type ChannelSettings struct {
	Name    string
	Limit   int // 0 = unlimited
	Privacy PrivacyMode
	Region  string
}

type VoiceChannel struct {
	ID             ChannelID
	OwnerID        UserID
	TrustedUsers   []UserID
	BlockedUsers   []UserID
	Settings       ChannelSettings
	PanelMessageID MessageID
	CreatedAt      time.Time
}

// Clone returns a deep copy safe to hand across the service boundary.
func (c *VoiceChannel) Clone() *VoiceChannel {
	cp := *c
	cp.TrustedUsers = append([]UserID(nil), c.TrustedUsers...)
	cp.BlockedUsers = append([]UserID(nil), c.BlockedUsers...)
	return &cp
}

func (c *VoiceChannel) IsTrusted(userID UserID) bool {
	for _, id := range c.TrustedUsers {
		if id == userID {
			return true
		}
	}
	return false
}

func (c *VoiceChannel) IsBlocked(userID UserID) bool {
	for _, id := range c.BlockedUsers {
		if id == userID {
			return true
		}
	}
	return false
}

// DefaultSettings returns the settings a fresh channel starts with when its
// owner has no stored preference.
func DefaultSettings(displayName string) ChannelSettings {
	return ChannelSettings{
		Name:    fmt.Sprintf("%s's Room", displayName),
		Limit:   0,
		Privacy: PrivacyUnlockedSeen,
		Region:  RegionAutomatic,
	}
}
