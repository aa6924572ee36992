package services

import (
	"context"
	"testing"
	"time"

	"voicekeeper/internal/core/domain"
	"voicekeeper/internal/core/ports"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newRotationFixture(gw *MockResourceGateway) *RotationScheduler {
	return NewRotationScheduler(RotationConfig{
		CategoryID:        "category",
		TemplateChannelID: "template",
		TargetChannelName: "daily-chat",
		ReferenceChannels: []domain.ChannelID{"ref-a", "ref-b"},
		HourUTC:           3,
		MinuteUTC:         0,
	}, gw, nil, zap.NewNop())
}

func TestNextRotationAfter(t *testing.T) {
	tests := []struct {
		name string
		now  time.Time
		want time.Time
	}{
		{
			name: "before the boundary fires same day",
			now:  time.Date(2024, 5, 10, 1, 30, 0, 0, time.UTC),
			want: time.Date(2024, 5, 10, 3, 0, 0, 0, time.UTC),
		},
		{
			name: "after the boundary fires next day",
			now:  time.Date(2024, 5, 10, 3, 0, 1, 0, time.UTC),
			want: time.Date(2024, 5, 11, 3, 0, 0, 0, time.UTC),
		},
		{
			name: "exactly at the boundary fires next day",
			now:  time.Date(2024, 5, 10, 3, 0, 0, 0, time.UTC),
			want: time.Date(2024, 5, 11, 3, 0, 0, 0, time.UTC),
		},
		{
			name: "month boundary rolls over",
			now:  time.Date(2024, 5, 31, 4, 0, 0, 0, time.UTC),
			want: time.Date(2024, 6, 1, 3, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, nextRotationAfter(tt.now, 3, 0))
		})
	}
}

func TestRotateRecreatesChannel(t *testing.T) {
	gw := new(MockResourceGateway)
	scheduler := newRotationFixture(gw)

	gw.On("GetChannelInfo", mock.Anything, domain.ChannelID("template")).
		Return(&ports.ChannelInfo{
			ID:               "template",
			Topic:            "daily talk",
			NSFW:             false,
			RateLimitPerUser: 5,
		}, nil).Once()

	gw.On("ListChannelsInCategory", mock.Anything, domain.ChannelID("category")).
		Return([]*ports.ChannelInfo{
			{ID: "ref-a", Name: "rules", Position: 3},
			{ID: "ref-b", Name: "announcements", Position: 7},
			{ID: "old-daily", Name: "daily-chat", Position: 8},
			{ID: "unrelated", Name: "general", Position: 12},
		}, nil).Once()

	var spec ports.TextChannelSpec
	gw.On("CreateTextChannel", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			spec = args.Get(1).(ports.TextChannelSpec)
		}).
		Return(domain.ChannelID("new-daily"), nil).Once()

	// New channel sits just below the highest reference channel.
	gw.On("SetChannelPosition", mock.Anything, domain.ChannelID("new-daily"), 8).Return(nil).Once()
	gw.On("DeleteChannel", mock.Anything, domain.ChannelID("old-daily")).Return(nil).Once()
	gw.On("SendMessage", mock.Anything, domain.ChannelID("new-daily"), mock.Anything).
		Return(domain.MessageID("msg-1"), nil).Once()

	require.NoError(t, scheduler.Rotate(context.Background()))

	assert.Equal(t, "daily-chat", spec.Name)
	assert.Equal(t, domain.ChannelID("category"), spec.ParentID)
	assert.Equal(t, "daily talk", spec.Topic)
	assert.Equal(t, 5, spec.RateLimitPerUser)

	state := scheduler.State()
	assert.Equal(t, 1, state.RotationCount)
	assert.False(t, state.LastRotationAt.IsZero())
	assert.True(t, state.NextRotationAt.After(state.LastRotationAt))

	gw.AssertExpectations(t)
}

func TestRotateWithoutPreviousChannel(t *testing.T) {
	gw := new(MockResourceGateway)
	scheduler := newRotationFixture(gw)

	gw.On("GetChannelInfo", mock.Anything, domain.ChannelID("template")).
		Return(&ports.ChannelInfo{ID: "template"}, nil).Once()
	gw.On("ListChannelsInCategory", mock.Anything, domain.ChannelID("category")).
		Return([]*ports.ChannelInfo{
			{ID: "ref-a", Name: "rules", Position: 2},
		}, nil).Once()
	gw.On("CreateTextChannel", mock.Anything, mock.Anything).
		Return(domain.ChannelID("new-daily"), nil).Once()
	gw.On("SetChannelPosition", mock.Anything, domain.ChannelID("new-daily"), 3).Return(nil).Once()
	gw.On("SendMessage", mock.Anything, domain.ChannelID("new-daily"), mock.Anything).
		Return(domain.MessageID("msg-1"), nil).Once()

	require.NoError(t, scheduler.Rotate(context.Background()))
	gw.AssertNotCalled(t, "DeleteChannel", mock.Anything, mock.Anything)
}

func TestRotateFailsWhenTemplateMissing(t *testing.T) {
	gw := new(MockResourceGateway)
	scheduler := newRotationFixture(gw)

	gw.On("GetChannelInfo", mock.Anything, domain.ChannelID("template")).
		Return(nil, assert.AnError).Once()

	err := scheduler.Rotate(context.Background())
	require.Error(t, err)
	assert.True(t, domain.IsGatewayError(err))
	gw.AssertNotCalled(t, "CreateTextChannel", mock.Anything, mock.Anything)

	assert.Equal(t, 0, scheduler.State().RotationCount)
}

func TestRotateFailsWithoutReferenceChannels(t *testing.T) {
	gw := new(MockResourceGateway)
	scheduler := newRotationFixture(gw)

	gw.On("GetChannelInfo", mock.Anything, domain.ChannelID("template")).
		Return(&ports.ChannelInfo{ID: "template"}, nil).Once()
	gw.On("ListChannelsInCategory", mock.Anything, domain.ChannelID("category")).
		Return([]*ports.ChannelInfo{
			{ID: "unrelated", Name: "general", Position: 1},
		}, nil).Once()

	err := scheduler.Rotate(context.Background())
	require.Error(t, err)
	gw.AssertNotCalled(t, "CreateTextChannel", mock.Anything, mock.Anything)
}

func TestRotateToleratesPositioningFailure(t *testing.T) {
	gw := new(MockResourceGateway)
	scheduler := newRotationFixture(gw)

	gw.On("GetChannelInfo", mock.Anything, domain.ChannelID("template")).
		Return(&ports.ChannelInfo{ID: "template"}, nil).Once()
	gw.On("ListChannelsInCategory", mock.Anything, domain.ChannelID("category")).
		Return([]*ports.ChannelInfo{
			{ID: "ref-a", Name: "rules", Position: 2},
		}, nil).Once()
	gw.On("CreateTextChannel", mock.Anything, mock.Anything).
		Return(domain.ChannelID("new-daily"), nil).Once()
	gw.On("SetChannelPosition", mock.Anything, domain.ChannelID("new-daily"), 3).
		Return(assert.AnError).Once()
	gw.On("SendMessage", mock.Anything, domain.ChannelID("new-daily"), mock.Anything).
		Return(domain.MessageID("msg-1"), nil).Once()

	require.NoError(t, scheduler.Rotate(context.Background()))
	assert.Equal(t, 1, scheduler.State().RotationCount)
}
