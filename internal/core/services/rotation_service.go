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

// RotationConfig describes the daily delete-and-recreate job for one text
// channel.
type RotationConfig struct {
	CategoryID        domain.ChannelID
	TemplateChannelID domain.ChannelID
	TargetChannelName string
	ReferenceChannels []domain.ChannelID
	HourUTC           int
	MinuteUTC         int
}

// RotationScheduler recreates a named text channel once a day at a fixed
// UTC wall-clock time, positioned just below the reference channels.
type RotationScheduler struct {
	cfg     RotationConfig
	gateway ports.ResourceGateway
	metrics ports.MetricsRecorder
	logger  *zap.Logger

	mu       sync.Mutex
	state    domain.RotationState
	stopChan chan struct{}
}

func NewRotationScheduler(cfg RotationConfig, gateway ports.ResourceGateway, metrics ports.MetricsRecorder, logger *zap.Logger) *RotationScheduler {
	return &RotationScheduler{
		cfg:      cfg,
		gateway:  gateway,
		metrics:  metrics,
		logger:   logger,
		stopChan: make(chan struct{}),
	}
}

// Start blocks until Stop is called or ctx is canceled. A failed rotation
// attempt is logged and does not affect the next scheduled firing.
func (s *RotationScheduler) Start(ctx context.Context) {
	for {
		next := nextRotationAfter(time.Now().UTC(), s.cfg.HourUTC, s.cfg.MinuteUTC)
		s.mu.Lock()
		s.state.NextRotationAt = next
		s.mu.Unlock()

		s.logger.Info("rotation scheduled",
			zap.Time("next_rotation_at", next),
			zap.Duration("in", time.Until(next)))

		timer := time.NewTimer(time.Until(next))
		select {
		case <-timer.C:
			if err := s.Rotate(ctx); err != nil {
				s.logger.Error("rotation failed", zap.Error(err))
			}
		case <-s.stopChan:
			timer.Stop()
			return
		case <-ctx.Done():
			timer.Stop()
			return
		}
	}
}

func (s *RotationScheduler) Stop() {
	close(s.stopChan)
}

// State returns a copy of the rotation bookkeeping for the status API.
func (s *RotationScheduler) State() domain.RotationState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Rotate performs one rotation: clone the template's attributes into a new
// channel below the reference channels, delete the old channel of the same
// name, and announce.
func (s *RotationScheduler) Rotate(ctx context.Context) error {
	template, err := s.gateway.GetChannelInfo(ctx, s.cfg.TemplateChannelID)
	if err != nil {
		return domain.NewGatewayError("rotate", s.cfg.TemplateChannelID, err)
	}

	channels, err := s.gateway.ListChannelsInCategory(ctx, s.cfg.CategoryID)
	if err != nil {
		return domain.NewGatewayError("rotate", s.cfg.CategoryID, err)
	}

	highest := 0
	found := 0
	var old *ports.ChannelInfo
	for _, ch := range channels {
		for _, ref := range s.cfg.ReferenceChannels {
			if ch.ID == ref {
				found++
				if ch.Position > highest {
					highest = ch.Position
				}
			}
		}
		if ch.Name == s.cfg.TargetChannelName {
			old = ch
		}
	}
	if found == 0 && len(s.cfg.ReferenceChannels) > 0 {
		return fmt.Errorf("no reference channel present in category %s", s.cfg.CategoryID)
	}
	targetPosition := highest + 1

	newID, err := s.gateway.CreateTextChannel(ctx, ports.TextChannelSpec{
		Name:             s.cfg.TargetChannelName,
		ParentID:         s.cfg.CategoryID,
		Topic:            template.Topic,
		NSFW:             template.NSFW,
		RateLimitPerUser: template.RateLimitPerUser,
	})
	if err != nil {
		return domain.NewGatewayError("rotate", "", err)
	}

	if err := s.gateway.SetChannelPosition(ctx, newID, targetPosition); err != nil {
		s.logger.Warn("failed to position rotated channel",
			zap.String("channel_id", string(newID)),
			zap.Int("position", targetPosition),
			zap.Error(err))
	}

	if old != nil {
		if err := s.gateway.DeleteChannel(ctx, old.ID); err != nil {
			s.logger.Warn("failed to delete previous rotation channel",
				zap.String("channel_id", string(old.ID)), zap.Error(err))
		}
	}

	s.mu.Lock()
	s.state.RotationCount++
	s.state.LastRotationAt = time.Now().UTC()
	s.state.NextRotationAt = nextRotationAfter(time.Now().UTC(), s.cfg.HourUTC, s.cfg.MinuteUTC)
	count := s.state.RotationCount
	next := s.state.NextRotationAt
	s.mu.Unlock()

	announcement := fmt.Sprintf("Channel auto-rotated (#%d). Next rotation at %s.",
		count, next.Format(time.RFC1123))
	if _, err := s.gateway.SendMessage(ctx, newID, announcement); err != nil {
		s.logger.Warn("failed to announce rotation",
			zap.String("channel_id", string(newID)), zap.Error(err))
	}

	if s.metrics != nil {
		s.metrics.RecordRotation()
	}

	s.logger.Info("rotation completed",
		zap.Int("rotation_count", count),
		zap.String("channel_id", string(newID)),
		zap.Int("position", targetPosition))
	return nil
}

// nextRotationAfter computes the next daily occurrence of hour:minute UTC
// strictly after now.
func nextRotationAfter(now time.Time, hour, minute int) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, time.UTC)
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}
