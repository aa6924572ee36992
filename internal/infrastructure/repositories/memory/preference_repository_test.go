package memory

import (
	"context"
	"testing"

	"voicekeeper/internal/core/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPreferenceRepositoryAbsentUser(t *testing.T) {
	repo := NewPreferenceRepository()

	pref, err := repo.Get(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Nil(t, pref)
}

func TestPreferenceRepositoryRoundTrip(t *testing.T) {
	repo := NewPreferenceRepository()
	ctx := context.Background()

	stored := &domain.UserPreference{
		PreferredName:    "Foo",
		PreferredPrivacy: domain.PrivacyLocked,
		TrustedUsers:     []domain.UserID{"t1", "t2"},
	}
	require.NoError(t, repo.Put(ctx, "u1", stored))

	got, err := repo.Get(ctx, "u1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, stored, got)
}

func TestPreferenceRepositoryIsolatesCallers(t *testing.T) {
	repo := NewPreferenceRepository()
	ctx := context.Background()

	stored := &domain.UserPreference{
		PreferredName: "Foo",
		TrustedUsers:  []domain.UserID{"t1"},
	}
	require.NoError(t, repo.Put(ctx, "u1", stored))

	// Mutating what was stored or what was read must not leak back.
	stored.TrustedUsers[0] = "hacked"

	got, err := repo.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, domain.UserID("t1"), got.TrustedUsers[0])

	got.PreferredName = "changed"
	again, err := repo.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "Foo", again.PreferredName)
}
