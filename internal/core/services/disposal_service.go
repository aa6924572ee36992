package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"voicekeeper/internal/core/domain"
	"voicekeeper/internal/core/ports"

	"go.uber.org/zap"
)

// DisposeFunc removes an empty channel. Wired to VoiceService.Delete with
// the system actor.
type DisposeFunc func(ctx context.Context, channelID domain.ChannelID) error

// DisposalScheduler runs one occupancy watch per live channel. A channel
// observed empty on a tick is disposed immediately; the tick interval is
// the grace window.
type DisposalScheduler struct {
	interval     time.Duration
	checkTimeout time.Duration
	gateway      ports.ResourceGateway
	logger       *zap.Logger

	mu      sync.Mutex
	dispose DisposeFunc
	watches map[domain.ChannelID]chan struct{}
	stopped bool
}

func NewDisposalScheduler(interval time.Duration, gateway ports.ResourceGateway, logger *zap.Logger) *DisposalScheduler {
	return &DisposalScheduler{
		interval:     interval,
		checkTimeout: 10 * time.Second,
		gateway:      gateway,
		logger:       logger,
		watches:      make(map[domain.ChannelID]chan struct{}),
	}
}

// SetDisposeFunc must be called before the first Arm. It exists because the
// scheduler and the voice service reference each other.
func (s *DisposalScheduler) SetDisposeFunc(fn DisposeFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dispose = fn
}

// Arm starts the occupancy watch for a channel. Arming an already-watched
// channel replaces the previous watch, so at most one is ever active per id.
func (s *DisposalScheduler) Arm(channelID domain.ChannelID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	if prev, ok := s.watches[channelID]; ok {
		close(prev)
	}
	stop := make(chan struct{})
	s.watches[channelID] = stop
	go s.watch(channelID, stop)
}

// Cancel stops the watch for a channel. Safe to call for unknown ids and
// safe to race with the watch's own disposal.
func (s *DisposalScheduler) Cancel(channelID domain.ChannelID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if stop, ok := s.watches[channelID]; ok {
		delete(s.watches, channelID)
		close(stop)
	}
}

// Stop cancels every watch. Used on process shutdown.
func (s *DisposalScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
	for id, stop := range s.watches {
		delete(s.watches, id)
		close(stop)
	}
}

func (s *DisposalScheduler) watch(channelID domain.ChannelID, stop chan struct{}) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if s.checkOnce(channelID) {
				s.release(channelID, stop)
				return
			}
		case <-stop:
			return
		}
	}
}

// checkOnce returns true when the watch should end, either because the
// channel was disposed or because disposal found it already gone.
func (s *DisposalScheduler) checkOnce(channelID domain.ChannelID) bool {
	ctx, cancel := context.WithTimeout(context.Background(), s.checkTimeout)
	defer cancel()

	occupants, err := s.gateway.ListOccupants(ctx, channelID)
	if err != nil {
		// Transient failures are not retried here; the next tick is the retry.
		s.logger.Warn("occupancy check failed",
			zap.String("channel_id", string(channelID)), zap.Error(err))
		return false
	}
	if len(occupants) > 0 {
		return false
	}

	s.mu.Lock()
	dispose := s.dispose
	s.mu.Unlock()
	if dispose == nil {
		return false
	}

	if err := dispose(ctx, channelID); err != nil {
		if errors.Is(err, domain.ErrChannelNotFound) {
			return true
		}
		s.logger.Warn("automatic disposal failed",
			zap.String("channel_id", string(channelID)), zap.Error(err))
		return false
	}

	s.logger.Info("disposed empty channel", zap.String("channel_id", string(channelID)))
	return true
}

// release drops the watch entry unless it was already replaced or canceled.
func (s *DisposalScheduler) release(channelID domain.ChannelID, stop chan struct{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cur, ok := s.watches[channelID]; ok && cur == stop {
		delete(s.watches, channelID)
	}
}
