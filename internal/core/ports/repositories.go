package ports

import (
	"context"

	"voicekeeper/internal/core/domain"
)

type ChannelRepository interface {
	Create(ctx context.Context, channel *domain.VoiceChannel) error
	GetByID(ctx context.Context, id domain.ChannelID) (*domain.VoiceChannel, error)
	Update(ctx context.Context, channel *domain.VoiceChannel) error
	Delete(ctx context.Context, id domain.ChannelID) error
	List(ctx context.Context) ([]*domain.VoiceChannel, error)
}

type PreferenceRepository interface {
	Get(ctx context.Context, userID domain.UserID) (*domain.UserPreference, error)
	Put(ctx context.Context, userID domain.UserID, pref *domain.UserPreference) error
}
