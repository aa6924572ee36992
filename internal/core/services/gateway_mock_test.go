package services

import (
	"context"

	"voicekeeper/internal/core/domain"
	"voicekeeper/internal/core/ports"

	"github.com/stretchr/testify/mock"
)

type MockResourceGateway struct {
	mock.Mock
}

func (m *MockResourceGateway) CreateVoiceChannel(ctx context.Context, spec ports.VoiceChannelSpec) (domain.ChannelID, error) {
	args := m.Called(ctx, spec)
	return args.Get(0).(domain.ChannelID), args.Error(1)
}

func (m *MockResourceGateway) CreateTextChannel(ctx context.Context, spec ports.TextChannelSpec) (domain.ChannelID, error) {
	args := m.Called(ctx, spec)
	return args.Get(0).(domain.ChannelID), args.Error(1)
}

func (m *MockResourceGateway) DeleteChannel(ctx context.Context, channelID domain.ChannelID) error {
	args := m.Called(ctx, channelID)
	return args.Error(0)
}

func (m *MockResourceGateway) RenameChannel(ctx context.Context, channelID domain.ChannelID, name string) error {
	args := m.Called(ctx, channelID, name)
	return args.Error(0)
}

func (m *MockResourceGateway) SetUserLimit(ctx context.Context, channelID domain.ChannelID, limit int) error {
	args := m.Called(ctx, channelID, limit)
	return args.Error(0)
}

func (m *MockResourceGateway) SetRegion(ctx context.Context, channelID domain.ChannelID, region string) error {
	args := m.Called(ctx, channelID, region)
	return args.Error(0)
}

func (m *MockResourceGateway) SetChannelPosition(ctx context.Context, channelID domain.ChannelID, position int) error {
	args := m.Called(ctx, channelID, position)
	return args.Error(0)
}

func (m *MockResourceGateway) SetPermissionOverlay(ctx context.Context, channelID domain.ChannelID, principal string, overlay domain.PermissionOverlay) error {
	args := m.Called(ctx, channelID, principal, overlay)
	return args.Error(0)
}

func (m *MockResourceGateway) RemovePermissionOverlay(ctx context.Context, channelID domain.ChannelID, principal string) error {
	args := m.Called(ctx, channelID, principal)
	return args.Error(0)
}

func (m *MockResourceGateway) ListOccupants(ctx context.Context, channelID domain.ChannelID) ([]domain.UserID, error) {
	args := m.Called(ctx, channelID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.UserID), args.Error(1)
}

func (m *MockResourceGateway) GetChannelInfo(ctx context.Context, channelID domain.ChannelID) (*ports.ChannelInfo, error) {
	args := m.Called(ctx, channelID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ports.ChannelInfo), args.Error(1)
}

func (m *MockResourceGateway) ListChannelsInCategory(ctx context.Context, categoryID domain.ChannelID) ([]*ports.ChannelInfo, error) {
	args := m.Called(ctx, categoryID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*ports.ChannelInfo), args.Error(1)
}

func (m *MockResourceGateway) MoveUser(ctx context.Context, userID domain.UserID, channelID domain.ChannelID) error {
	args := m.Called(ctx, userID, channelID)
	return args.Error(0)
}

func (m *MockResourceGateway) DisconnectUser(ctx context.Context, channelID domain.ChannelID, userID domain.UserID) error {
	args := m.Called(ctx, channelID, userID)
	return args.Error(0)
}

func (m *MockResourceGateway) IsAdministrator(ctx context.Context, userID domain.UserID) (bool, error) {
	args := m.Called(ctx, userID)
	return args.Bool(0), args.Error(1)
}

func (m *MockResourceGateway) SendMessage(ctx context.Context, channelID domain.ChannelID, content string) (domain.MessageID, error) {
	args := m.Called(ctx, channelID, content)
	return args.Get(0).(domain.MessageID), args.Error(1)
}

func (m *MockResourceGateway) DeleteMessage(ctx context.Context, channelID domain.ChannelID, messageID domain.MessageID) error {
	args := m.Called(ctx, channelID, messageID)
	return args.Error(0)
}
