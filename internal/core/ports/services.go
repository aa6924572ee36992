package ports

import (
	"context"

	"voicekeeper/internal/core/domain"
)

type VoiceService interface {
	CreateChannel(ctx context.Context, userID domain.UserID, displayName string) (*domain.VoiceChannel, error)
	Rename(ctx context.Context, channelID domain.ChannelID, actor domain.UserID, newName string) error
	SetLimit(ctx context.Context, channelID domain.ChannelID, actor domain.UserID, limit int) error
	SetPrivacy(ctx context.Context, channelID domain.ChannelID, actor domain.UserID, mode domain.PrivacyMode) error
	SetRegion(ctx context.Context, channelID domain.ChannelID, actor domain.UserID, region string) error
	Trust(ctx context.Context, channelID domain.ChannelID, actor, target domain.UserID) error
	Untrust(ctx context.Context, channelID domain.ChannelID, actor, target domain.UserID) error
	Block(ctx context.Context, channelID domain.ChannelID, actor, target domain.UserID) error
	Unblock(ctx context.Context, channelID domain.ChannelID, actor, target domain.UserID) error
	Kick(ctx context.Context, channelID domain.ChannelID, actor, target domain.UserID) error
	Claim(ctx context.Context, channelID domain.ChannelID, actor domain.UserID) error
	Transfer(ctx context.Context, channelID domain.ChannelID, actor, target domain.UserID) error
	Delete(ctx context.Context, channelID domain.ChannelID, actor domain.UserID) error

	GetChannelData(ctx context.Context, channelID domain.ChannelID) (*domain.VoiceChannel, error)
	GetUserCurrentChannel(userID domain.UserID) (domain.ChannelID, bool)
	IsOwner(ctx context.Context, channelID domain.ChannelID, userID domain.UserID) bool

	HandleVoiceUpdate(ctx context.Context, userID domain.UserID, displayName string, oldChannel, newChannel domain.ChannelID) error
}

// DisposalScheduler watches live channels and disposes the ones that sit
// empty for a full check interval.
type DisposalScheduler interface {
	Arm(channelID domain.ChannelID)
	Cancel(channelID domain.ChannelID)
	Stop()
}
