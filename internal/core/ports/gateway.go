package ports

import (
	"context"

	"voicekeeper/internal/core/domain"
)

// OverlayEntry pairs a principal (user id, role id, or the everyone
// principal) with its permission overlay.
type OverlayEntry struct {
	Principal string
	Overlay   domain.PermissionOverlay
}

// VoiceChannelSpec describes a voice channel to create.
type VoiceChannelSpec struct {
	Name      string
	ParentID  domain.ChannelID
	UserLimit int
	Overlays  []OverlayEntry
}

// TextChannelSpec describes a text channel to create. Attribute fields are
// cloned from the rotation template channel.
type TextChannelSpec struct {
	Name             string
	ParentID         domain.ChannelID
	Topic            string
	NSFW             bool
	RateLimitPerUser int
	Overlays         []OverlayEntry
}

// ChannelInfo is a read-only snapshot of a platform channel, used by the
// rotation scheduler to clone templates and compute positions.
type ChannelInfo struct {
	ID               domain.ChannelID
	Name             string
	ParentID         domain.ChannelID
	Position         int
	Topic            string
	NSFW             bool
	RateLimitPerUser int
}

// ResourceGateway is the platform side of every operation. Each call is
// independently fallible; callers decide which failures are fatal.
type ResourceGateway interface {
	CreateVoiceChannel(ctx context.Context, spec VoiceChannelSpec) (domain.ChannelID, error)
	CreateTextChannel(ctx context.Context, spec TextChannelSpec) (domain.ChannelID, error)
	DeleteChannel(ctx context.Context, channelID domain.ChannelID) error
	RenameChannel(ctx context.Context, channelID domain.ChannelID, name string) error
	SetUserLimit(ctx context.Context, channelID domain.ChannelID, limit int) error
	SetRegion(ctx context.Context, channelID domain.ChannelID, region string) error
	SetChannelPosition(ctx context.Context, channelID domain.ChannelID, position int) error

	SetPermissionOverlay(ctx context.Context, channelID domain.ChannelID, principal string, overlay domain.PermissionOverlay) error
	RemovePermissionOverlay(ctx context.Context, channelID domain.ChannelID, principal string) error

	ListOccupants(ctx context.Context, channelID domain.ChannelID) ([]domain.UserID, error)
	GetChannelInfo(ctx context.Context, channelID domain.ChannelID) (*ChannelInfo, error)
	ListChannelsInCategory(ctx context.Context, categoryID domain.ChannelID) ([]*ChannelInfo, error)

	MoveUser(ctx context.Context, userID domain.UserID, channelID domain.ChannelID) error
	DisconnectUser(ctx context.Context, channelID domain.ChannelID, userID domain.UserID) error
	IsAdministrator(ctx context.Context, userID domain.UserID) (bool, error)

	SendMessage(ctx context.Context, channelID domain.ChannelID, content string) (domain.MessageID, error)
	DeleteMessage(ctx context.Context, channelID domain.ChannelID, messageID domain.MessageID) error
}
