package memory

import (
	"context"
	"fmt"
	"sync"

	"voicekeeper/internal/core/domain"
	"voicekeeper/internal/core/ports"
)

// ChannelRepository keeps the authoritative channel registry for the
// process lifetime. Entries are cloned on every read and write so the
// voice service and the admin API never share slice memory.
type ChannelRepository struct {
	channels map[domain.ChannelID]*domain.VoiceChannel
	mu       sync.RWMutex
}

func NewChannelRepository() ports.ChannelRepository {
	return &ChannelRepository{
		channels: make(map[domain.ChannelID]*domain.VoiceChannel),
	}
}

func (r *ChannelRepository) Create(ctx context.Context, channel *domain.VoiceChannel) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.channels[channel.ID]; exists {
		return fmt.Errorf("channel already registered: %s", channel.ID)
	}

	r.channels[channel.ID] = channel.Clone()
	return nil
}

func (r *ChannelRepository) GetByID(ctx context.Context, id domain.ChannelID) (*domain.VoiceChannel, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	channel, exists := r.channels[id]
	if !exists {
		return nil, domain.ErrChannelNotFound
	}

	return channel.Clone(), nil
}

func (r *ChannelRepository) Update(ctx context.Context, channel *domain.VoiceChannel) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.channels[channel.ID]; !exists {
		return domain.ErrChannelNotFound
	}

	r.channels[channel.ID] = channel.Clone()
	return nil
}

func (r *ChannelRepository) Delete(ctx context.Context, id domain.ChannelID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.channels[id]; !exists {
		return domain.ErrChannelNotFound
	}

	delete(r.channels, id)
	return nil
}

func (r *ChannelRepository) List(ctx context.Context) ([]*domain.VoiceChannel, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	channels := make([]*domain.VoiceChannel, 0, len(r.channels))
	for _, channel := range r.channels {
		channels = append(channels, channel.Clone())
	}

	return channels, nil
}
