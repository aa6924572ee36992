package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"voicekeeper/internal/core/domain"
	"voicekeeper/internal/core/ports"

	"go.uber.org/zap"
)

// VoiceConfig carries the static parameters of the temp-channel system.
type VoiceConfig struct {
	TriggerChannelID  domain.ChannelID
	CategoryID        domain.ChannelID
	EveryonePrincipal string
	BlockedRoleID     domain.RoleID
	MaxTrustedUsers   int
}

const panelMessageContent = "Voice room controls: use the control panel to rename the room, " +
	"set a user limit, change privacy or region, and manage trusted or blocked users."

type voiceService struct {
	cfg      VoiceConfig
	channels ports.ChannelRepository
	prefs    ports.PreferenceRepository
	gateway  ports.ResourceGateway
	disposal ports.DisposalScheduler
	metrics  ports.MetricsRecorder
	logger   *zap.Logger

	// locks serializes the operation sequence of each channel id. Entries
	// are kept for the process lifetime so a late waiter never races a
	// fresh lock for the same id.
	lockMu sync.Mutex
	locks  map[domain.ChannelID]*sync.Mutex

	// presence is the last channel each user was observed in, fed by
	// voice-state events. Occupancy checks that gate claim and disposal
	// use live gateway enumeration instead.
	presMu   sync.RWMutex
	presence map[domain.UserID]domain.ChannelID
}

func NewVoiceService(
	cfg VoiceConfig,
	channels ports.ChannelRepository,
	prefs ports.PreferenceRepository,
	gateway ports.ResourceGateway,
	disposal ports.DisposalScheduler,
	metrics ports.MetricsRecorder,
	logger *zap.Logger,
) ports.VoiceService {
	return &voiceService{
		cfg:      cfg,
		channels: channels,
		prefs:    prefs,
		gateway:  gateway,
		disposal: disposal,
		metrics:  metrics,
		logger:   logger,
		locks:    make(map[domain.ChannelID]*sync.Mutex),
		presence: make(map[domain.UserID]domain.ChannelID),
	}
}

func (s *voiceService) lockChannel(id domain.ChannelID) func() {
	s.lockMu.Lock()
	mu, ok := s.locks[id]
	if !ok {
		mu = &sync.Mutex{}
		s.locks[id] = mu
	}
	s.lockMu.Unlock()

	mu.Lock()
	return mu.Unlock
}

// authorize is the gate for the mutate capability: only the current owner
// passes. Claim and delete have their own rules.
func (s *voiceService) authorize(channel *domain.VoiceChannel, actor domain.UserID) error {
	if channel.OwnerID != actor {
		return domain.ErrNotAuthorized
	}
	return nil
}

func (s *voiceService) CreateChannel(ctx context.Context, userID domain.UserID, displayName string) (*domain.VoiceChannel, error) {
	pref, err := s.prefs.Get(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to read preferences for %s: %w", userID, err)
	}

	settings := domain.DefaultSettings(displayName)
	var trusted, blocked []domain.UserID
	if pref != nil {
		if pref.PreferredName != "" {
			settings.Name = pref.PreferredName
		}
		if pref.PreferredPrivacy.Valid() {
			settings.Privacy = pref.PreferredPrivacy
		}
		trusted = append(trusted, pref.TrustedUsers...)
		blocked = append(blocked, pref.BlockedUsers...)
	}

	overlays := []ports.OverlayEntry{
		{Principal: s.cfg.EveryonePrincipal, Overlay: domain.EveryoneOverlay(settings.Privacy)},
		{Principal: string(userID), Overlay: domain.TrustedOverlay()},
	}
	if s.cfg.BlockedRoleID != "" {
		overlays = append(overlays, ports.OverlayEntry{
			Principal: string(s.cfg.BlockedRoleID),
			Overlay:   domain.BlockedOverlay(),
		})
	}
	for _, id := range trusted {
		overlays = append(overlays, ports.OverlayEntry{Principal: string(id), Overlay: domain.TrustedOverlay()})
	}
	for _, id := range blocked {
		overlays = append(overlays, ports.OverlayEntry{Principal: string(id), Overlay: domain.BlockedOverlay()})
	}

	channelID, err := s.gateway.CreateVoiceChannel(ctx, ports.VoiceChannelSpec{
		Name:      settings.Name,
		ParentID:  s.cfg.CategoryID,
		UserLimit: settings.Limit,
		Overlays:  overlays,
	})
	if err != nil {
		return nil, domain.NewGatewayError("create_channel", "", err)
	}

	channel := &domain.VoiceChannel{
		ID:           channelID,
		OwnerID:      userID,
		TrustedUsers: trusted,
		BlockedUsers: blocked,
		Settings:     settings,
		CreatedAt:    time.Now(),
	}
	if err := s.channels.Create(ctx, channel); err != nil {
		return nil, fmt.Errorf("failed to register channel %s: %w", channelID, err)
	}

	if err := s.gateway.MoveUser(ctx, userID, channelID); err != nil {
		s.logger.Warn("failed to move user into new channel",
			zap.String("channel_id", string(channelID)),
			zap.String("user_id", string(userID)),
			zap.Error(err))
	}

	if msgID, err := s.gateway.SendMessage(ctx, channelID, panelMessageContent); err != nil {
		s.logger.Warn("failed to post control panel",
			zap.String("channel_id", string(channelID)), zap.Error(err))
	} else {
		channel.PanelMessageID = msgID
		if err := s.channels.Update(ctx, channel); err != nil {
			s.logger.Warn("failed to record panel message",
				zap.String("channel_id", string(channelID)), zap.Error(err))
		}
	}

	s.disposal.Arm(channelID)
	if s.metrics != nil {
		s.metrics.RecordChannelCreated()
	}

	s.logger.Info("temp channel created",
		zap.String("channel_id", string(channelID)),
		zap.String("owner_id", string(userID)),
		zap.String("name", settings.Name))

	return channel, nil
}

func (s *voiceService) Rename(ctx context.Context, channelID domain.ChannelID, actor domain.UserID, newName string) error {
	unlock := s.lockChannel(channelID)
	defer unlock()

	channel, err := s.channels.GetByID(ctx, channelID)
	if err != nil {
		return err
	}
	if err := s.authorize(channel, actor); err != nil {
		return err
	}
	if newName == "" {
		return domain.ErrInvalidArgument
	}
	if channel.Settings.Name == newName {
		return nil
	}

	if err := s.gateway.RenameChannel(ctx, channelID, newName); err != nil {
		return domain.NewGatewayError("rename", channelID, err)
	}

	channel.Settings.Name = newName
	if err := s.channels.Update(ctx, channel); err != nil {
		return err
	}
	s.saveOwnerPreference(ctx, channel)
	return nil
}

func (s *voiceService) SetLimit(ctx context.Context, channelID domain.ChannelID, actor domain.UserID, limit int) error {
	unlock := s.lockChannel(channelID)
	defer unlock()

	channel, err := s.channels.GetByID(ctx, channelID)
	if err != nil {
		return err
	}
	if err := s.authorize(channel, actor); err != nil {
		return err
	}
	if limit < 0 || limit > 99 {
		return domain.ErrInvalidArgument
	}

	if err := s.gateway.SetUserLimit(ctx, channelID, limit); err != nil {
		return domain.NewGatewayError("set_limit", channelID, err)
	}

	channel.Settings.Limit = limit
	return s.channels.Update(ctx, channel)
}

func (s *voiceService) SetPrivacy(ctx context.Context, channelID domain.ChannelID, actor domain.UserID, mode domain.PrivacyMode) error {
	unlock := s.lockChannel(channelID)
	defer unlock()

	channel, err := s.channels.GetByID(ctx, channelID)
	if err != nil {
		return err
	}
	if err := s.authorize(channel, actor); err != nil {
		return err
	}
	if !mode.Valid() {
		return domain.ErrInvalidArgument
	}

	if err := s.gateway.SetPermissionOverlay(ctx, channelID, s.cfg.EveryonePrincipal, domain.EveryoneOverlay(mode)); err != nil {
		return domain.NewGatewayError("set_privacy", channelID, err)
	}

	// Standing denials and trust grants sit on top of the ambient rule;
	// re-assert them so the coarse mode never widens or narrows them.
	if s.cfg.BlockedRoleID != "" {
		if err := s.gateway.SetPermissionOverlay(ctx, channelID, string(s.cfg.BlockedRoleID), domain.BlockedOverlay()); err != nil {
			return domain.NewGatewayError("set_privacy", channelID, err)
		}
	}
	for _, id := range channel.TrustedUsers {
		if err := s.gateway.SetPermissionOverlay(ctx, channelID, string(id), domain.TrustedOverlay()); err != nil {
			return domain.NewGatewayError("set_privacy", channelID, err)
		}
	}

	channel.Settings.Privacy = mode
	if err := s.channels.Update(ctx, channel); err != nil {
		return err
	}
	s.saveOwnerPreference(ctx, channel)
	return nil
}

func (s *voiceService) SetRegion(ctx context.Context, channelID domain.ChannelID, actor domain.UserID, region string) error {
	unlock := s.lockChannel(channelID)
	defer unlock()

	channel, err := s.channels.GetByID(ctx, channelID)
	if err != nil {
		return err
	}
	if err := s.authorize(channel, actor); err != nil {
		return err
	}
	if region == "" {
		return domain.ErrInvalidArgument
	}

	if err := s.gateway.SetRegion(ctx, channelID, region); err != nil {
		return domain.NewGatewayError("set_region", channelID, err)
	}

	channel.Settings.Region = region
	return s.channels.Update(ctx, channel)
}

func (s *voiceService) Trust(ctx context.Context, channelID domain.ChannelID, actor, target domain.UserID) error {
	unlock := s.lockChannel(channelID)
	defer unlock()

	channel, err := s.channels.GetByID(ctx, channelID)
	if err != nil {
		return err
	}
	if err := s.authorize(channel, actor); err != nil {
		return err
	}
	if channel.IsTrusted(target) {
		return nil
	}
	if len(channel.TrustedUsers) >= s.cfg.MaxTrustedUsers {
		return domain.ErrTrustLimitExceeded
	}

	if err := s.gateway.SetPermissionOverlay(ctx, channelID, string(target), domain.TrustedOverlay()); err != nil {
		return domain.NewGatewayError("trust", channelID, err)
	}

	// Trust and block are mutually exclusive; trusting clears any block.
	channel.BlockedUsers = removeUser(channel.BlockedUsers, target)
	channel.TrustedUsers = append(channel.TrustedUsers, target)
	if err := s.channels.Update(ctx, channel); err != nil {
		return err
	}
	s.saveOwnerPreference(ctx, channel)
	if s.metrics != nil {
		s.metrics.RecordTrustChange(1)
	}
	return nil
}

func (s *voiceService) Untrust(ctx context.Context, channelID domain.ChannelID, actor, target domain.UserID) error {
	unlock := s.lockChannel(channelID)
	defer unlock()

	channel, err := s.channels.GetByID(ctx, channelID)
	if err != nil {
		return err
	}
	if err := s.authorize(channel, actor); err != nil {
		return err
	}
	if !channel.IsTrusted(target) {
		return nil
	}

	// The owner's own overlay must survive an accidental self-untrust.
	if target != channel.OwnerID {
		if err := s.gateway.RemovePermissionOverlay(ctx, channelID, string(target)); err != nil {
			return domain.NewGatewayError("untrust", channelID, err)
		}
	}

	channel.TrustedUsers = removeUser(channel.TrustedUsers, target)
	if err := s.channels.Update(ctx, channel); err != nil {
		return err
	}
	s.saveOwnerPreference(ctx, channel)
	if s.metrics != nil {
		s.metrics.RecordTrustChange(-1)
	}
	return nil
}

func (s *voiceService) Block(ctx context.Context, channelID domain.ChannelID, actor, target domain.UserID) error {
	unlock := s.lockChannel(channelID)
	defer unlock()

	channel, err := s.channels.GetByID(ctx, channelID)
	if err != nil {
		return err
	}
	if err := s.authorize(channel, actor); err != nil {
		return err
	}
	if target == channel.OwnerID {
		return domain.ErrInvalidArgument
	}
	if channel.IsBlocked(target) {
		return nil
	}

	if err := s.gateway.SetPermissionOverlay(ctx, channelID, string(target), domain.BlockedOverlay()); err != nil {
		return domain.NewGatewayError("block", channelID, err)
	}

	channel.TrustedUsers = removeUser(channel.TrustedUsers, target)
	channel.BlockedUsers = append(channel.BlockedUsers, target)
	if err := s.channels.Update(ctx, channel); err != nil {
		return err
	}
	s.saveOwnerPreference(ctx, channel)
	return nil
}

func (s *voiceService) Unblock(ctx context.Context, channelID domain.ChannelID, actor, target domain.UserID) error {
	unlock := s.lockChannel(channelID)
	defer unlock()

	channel, err := s.channels.GetByID(ctx, channelID)
	if err != nil {
		return err
	}
	if err := s.authorize(channel, actor); err != nil {
		return err
	}
	if !channel.IsBlocked(target) {
		return nil
	}

	if target != channel.OwnerID {
		if err := s.gateway.RemovePermissionOverlay(ctx, channelID, string(target)); err != nil {
			return domain.NewGatewayError("unblock", channelID, err)
		}
	}

	channel.BlockedUsers = removeUser(channel.BlockedUsers, target)
	if err := s.channels.Update(ctx, channel); err != nil {
		return err
	}
	s.saveOwnerPreference(ctx, channel)
	return nil
}

func (s *voiceService) Kick(ctx context.Context, channelID domain.ChannelID, actor, target domain.UserID) error {
	unlock := s.lockChannel(channelID)
	defer unlock()

	channel, err := s.channels.GetByID(ctx, channelID)
	if err != nil {
		return err
	}
	if err := s.authorize(channel, actor); err != nil {
		return err
	}

	occupants, err := s.gateway.ListOccupants(ctx, channelID)
	if err != nil {
		return domain.NewGatewayError("kick", channelID, err)
	}
	if !containsUser(occupants, target) {
		return domain.ErrUserNotInChannel
	}

	if err := s.gateway.DisconnectUser(ctx, channelID, target); err != nil {
		return domain.NewGatewayError("kick", channelID, err)
	}
	return nil
}

// Claim reassigns ownership to an occupant while the current owner is
// absent. The occupancy check and the ownership write span a gateway call
// and are deliberately not atomic; last writer wins if two claims race.
func (s *voiceService) Claim(ctx context.Context, channelID domain.ChannelID, actor domain.UserID) error {
	unlock := s.lockChannel(channelID)
	defer unlock()

	channel, err := s.channels.GetByID(ctx, channelID)
	if err != nil {
		return err
	}
	if channel.OwnerID == actor {
		return nil
	}

	occupants, err := s.gateway.ListOccupants(ctx, channelID)
	if err != nil {
		return domain.NewGatewayError("claim", channelID, err)
	}
	if !containsUser(occupants, actor) {
		return domain.ErrUserNotInChannel
	}
	if containsUser(occupants, channel.OwnerID) {
		return domain.ErrOwnerPresent
	}

	if err := s.gateway.SetPermissionOverlay(ctx, channelID, string(actor), domain.TrustedOverlay()); err != nil {
		return domain.NewGatewayError("claim", channelID, err)
	}

	// Soft claim: the previous owner keeps their standing overlay and only
	// loses the implicit owner authority carried by OwnerID.
	previousOwner := channel.OwnerID
	channel.OwnerID = actor
	if err := s.channels.Update(ctx, channel); err != nil {
		return err
	}

	s.inheritPreference(ctx, previousOwner, actor)

	s.logger.Info("channel claimed",
		zap.String("channel_id", string(channelID)),
		zap.String("previous_owner", string(previousOwner)),
		zap.String("new_owner", string(actor)))
	return nil
}

func (s *voiceService) Transfer(ctx context.Context, channelID domain.ChannelID, actor, target domain.UserID) error {
	unlock := s.lockChannel(channelID)
	defer unlock()

	channel, err := s.channels.GetByID(ctx, channelID)
	if err != nil {
		return err
	}
	if err := s.authorize(channel, actor); err != nil {
		return err
	}
	if target == "" || target == actor {
		return domain.ErrInvalidArgument
	}

	if err := s.gateway.SetPermissionOverlay(ctx, channelID, string(target), domain.TrustedOverlay()); err != nil {
		return domain.NewGatewayError("transfer", channelID, err)
	}
	// The outgoing owner drops to an ordinary standing grant.
	if err := s.gateway.SetPermissionOverlay(ctx, channelID, string(actor), domain.TrustedOverlay()); err != nil {
		return domain.NewGatewayError("transfer", channelID, err)
	}

	channel.OwnerID = target
	if err := s.channels.Update(ctx, channel); err != nil {
		return err
	}

	s.inheritPreference(ctx, actor, target)

	s.logger.Info("ownership transferred",
		zap.String("channel_id", string(channelID)),
		zap.String("previous_owner", string(actor)),
		zap.String("new_owner", string(target)))
	return nil
}

func (s *voiceService) Delete(ctx context.Context, channelID domain.ChannelID, actor domain.UserID) error {
	unlock := s.lockChannel(channelID)
	defer unlock()

	channel, err := s.channels.GetByID(ctx, channelID)
	if err != nil {
		return err
	}

	if actor != domain.SystemUser && actor != channel.OwnerID {
		admin, err := s.gateway.IsAdministrator(ctx, actor)
		if err != nil {
			return domain.NewGatewayError("delete", channelID, err)
		}
		if !admin {
			return domain.ErrNotAuthorized
		}
	}

	// Stop the disposal timer before anything else so a late tick cannot
	// race the teardown.
	s.disposal.Cancel(channelID)

	occupants, err := s.gateway.ListOccupants(ctx, channelID)
	if err != nil {
		s.logger.Warn("failed to enumerate occupants before delete",
			zap.String("channel_id", string(channelID)), zap.Error(err))
	}
	for _, userID := range occupants {
		if err := s.gateway.DisconnectUser(ctx, channelID, userID); err != nil {
			s.logger.Warn("failed to disconnect occupant",
				zap.String("channel_id", string(channelID)),
				zap.String("user_id", string(userID)),
				zap.Error(err))
		}
	}

	if channel.PanelMessageID != "" {
		if err := s.gateway.DeleteMessage(ctx, channelID, channel.PanelMessageID); err != nil {
			s.logger.Warn("failed to delete panel message",
				zap.String("channel_id", string(channelID)), zap.Error(err))
		}
	}

	if err := s.gateway.DeleteChannel(ctx, channelID); err != nil {
		// Keep the registry entry so a later delete can retry.
		return domain.NewGatewayError("delete", channelID, err)
	}

	// Registry removal is the commit point: a concurrent second delete
	// observes ErrChannelNotFound from here on.
	if err := s.channels.Delete(ctx, channelID); err != nil {
		return err
	}

	s.clearPresence(channelID)
	if s.metrics != nil {
		reason := "owner"
		if actor == domain.SystemUser {
			reason = "auto"
		}
		s.metrics.RecordChannelDisposed(reason)
	}

	s.logger.Info("temp channel deleted",
		zap.String("channel_id", string(channelID)),
		zap.String("actor", string(actor)))
	return nil
}

func (s *voiceService) GetChannelData(ctx context.Context, channelID domain.ChannelID) (*domain.VoiceChannel, error) {
	// The registry clones on read, so the snapshot is already private.
	return s.channels.GetByID(ctx, channelID)
}

func (s *voiceService) GetUserCurrentChannel(userID domain.UserID) (domain.ChannelID, bool) {
	s.presMu.RLock()
	defer s.presMu.RUnlock()
	id, ok := s.presence[userID]
	return id, ok
}

func (s *voiceService) IsOwner(ctx context.Context, channelID domain.ChannelID, userID domain.UserID) bool {
	channel, err := s.channels.GetByID(ctx, channelID)
	if err != nil {
		return false
	}
	return channel.OwnerID == userID
}

// HandleVoiceUpdate is fed by the gateway event listener. Joining the
// trigger channel spawns a new temp channel for the user.
func (s *voiceService) HandleVoiceUpdate(ctx context.Context, userID domain.UserID, displayName string, oldChannel, newChannel domain.ChannelID) error {
	s.presMu.Lock()
	if newChannel == "" {
		delete(s.presence, userID)
	} else {
		s.presence[userID] = newChannel
	}
	s.presMu.Unlock()

	if newChannel == s.cfg.TriggerChannelID {
		_, err := s.CreateChannel(ctx, userID, displayName)
		return err
	}
	return nil
}

// saveOwnerPreference snapshots the channel's current setup into the
// owner's preference entry so their next channel starts the same way.
func (s *voiceService) saveOwnerPreference(ctx context.Context, channel *domain.VoiceChannel) {
	pref := &domain.UserPreference{
		PreferredName:    channel.Settings.Name,
		PreferredPrivacy: channel.Settings.Privacy,
		TrustedUsers:     append([]domain.UserID(nil), channel.TrustedUsers...),
		BlockedUsers:     append([]domain.UserID(nil), channel.BlockedUsers...),
	}
	if err := s.prefs.Put(ctx, channel.OwnerID, pref); err != nil {
		s.logger.Warn("failed to save owner preference",
			zap.String("owner_id", string(channel.OwnerID)), zap.Error(err))
	}
}

// inheritPreference copies the outgoing owner's preference snapshot to the
// incoming owner. The copy is deep so later edits stay independent.
func (s *voiceService) inheritPreference(ctx context.Context, from, to domain.UserID) {
	pref, err := s.prefs.Get(ctx, from)
	if err != nil || pref == nil {
		return
	}
	if err := s.prefs.Put(ctx, to, pref.Clone()); err != nil {
		s.logger.Warn("failed to inherit preference",
			zap.String("from", string(from)),
			zap.String("to", string(to)),
			zap.Error(err))
	}
}

func (s *voiceService) clearPresence(channelID domain.ChannelID) {
	s.presMu.Lock()
	defer s.presMu.Unlock()
	for userID, id := range s.presence {
		if id == channelID {
			delete(s.presence, userID)
		}
	}
}

func removeUser(list []domain.UserID, target domain.UserID) []domain.UserID {
	out := list[:0]
	for _, id := range list {
		if id != target {
			out = append(out, id)
		}
	}
	return out
}

func containsUser(list []domain.UserID, target domain.UserID) bool {
	for _, id := range list {
		if id == target {
			return true
		}
	}
	return false
}
