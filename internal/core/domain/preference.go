package domain

// UserPreference remembers a user's last-used channel setup across channel
// lifetimes. It is copied, never shared, so edits by one owner cannot leak
// into another owner's future channels.
type UserPreference struct {
	PreferredName    string
	TrustedUsers     []UserID
	BlockedUsers     []UserID
	PreferredPrivacy PrivacyMode
}

func (p *UserPreference) Clone() *UserPreference {
	if p == nil {
		return nil
	}
	cp := &UserPreference{
		PreferredName:    p.PreferredName,
		PreferredPrivacy: p.PreferredPrivacy,
	}
	cp.TrustedUsers = append([]UserID(nil), p.TrustedUsers...)
	cp.BlockedUsers = append([]UserID(nil), p.BlockedUsers...)
	return cp
}
