package domain

// OverlayState is the tri-state value of a single permission bit in a
// per-principal overlay: explicit allow, explicit deny, or fall through to
// the channel's ambient rule.
type OverlayState string

const (
	OverlayAllow   OverlayState = "allow"
	OverlayDeny    OverlayState = "deny"
	OverlayInherit OverlayState = "inherit"
)

// PermissionOverlay is a per-principal override applied on top of a
// channel's default permissions.
type PermissionOverlay struct {
	View    OverlayState
	Connect OverlayState
}

// EveryoneOverlay derives the ambient overlay for the whole server from a
// privacy mode: locked channels are visible but not joinable, unseen
// channels are joinable but hidden, seen channels are both.
func EveryoneOverlay(mode PrivacyMode) PermissionOverlay {
	switch mode {
	case PrivacyLocked:
		return PermissionOverlay{View: OverlayAllow, Connect: OverlayDeny}
	case PrivacyUnlockedUnseen:
		return PermissionOverlay{View: OverlayDeny, Connect: OverlayAllow}
	default:
		return PermissionOverlay{View: OverlayAllow, Connect: OverlayAllow}
	}
}

// TrustedOverlay is the standing grant applied to trusted users and owners.
func TrustedOverlay() PermissionOverlay {
	return PermissionOverlay{View: OverlayAllow, Connect: OverlayAllow}
}

// BlockedOverlay is the standing denial applied to blocked users and the
// configured blocked role.
func BlockedOverlay() PermissionOverlay {
	return PermissionOverlay{View: OverlayDeny, Connect: OverlayDeny}
}
