package memory

import (
	"context"
	"sync"

	"voicekeeper/internal/core/domain"
	"voicekeeper/internal/core/ports"
)

// PreferenceRepository keeps per-user channel preferences for the process
// lifetime. Get returns nil without error for users that have never owned
// a channel.
type PreferenceRepository struct {
	prefs map[domain.UserID]*domain.UserPreference
	mu    sync.RWMutex
}

func NewPreferenceRepository() ports.PreferenceRepository {
	return &PreferenceRepository{
		prefs: make(map[domain.UserID]*domain.UserPreference),
	}
}

func (r *PreferenceRepository) Get(ctx context.Context, userID domain.UserID) (*domain.UserPreference, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	pref, exists := r.prefs[userID]
	if !exists {
		return nil, nil
	}

	return pref.Clone(), nil
}

func (r *PreferenceRepository) Put(ctx context.Context, userID domain.UserID, pref *domain.UserPreference) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.prefs[userID] = pref.Clone()
	return nil
}
