package gateway

import (
	"context"
	"encoding/json"
	"time"

	"voicekeeper/internal/core/domain"
	"voicekeeper/internal/core/ports"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	eventVoiceStateUpdate = "voice_state_update"

	readTimeout         = 90 * time.Second
	reconnectBaseDelay  = time.Second
	reconnectMaxDelay   = 30 * time.Second
	reconnectResetAfter = time.Minute
)

// backoff yields the wait before each reconnect attempt. Consecutive short
// sessions double the wait up to the cap; a session that stayed up past
// reconnectResetAfter starts the progression over.
type backoff struct {
	delay time.Duration
}

func (b *backoff) next(sessionLength time.Duration) time.Duration {
	if b.delay == 0 || sessionLength >= reconnectResetAfter {
		b.delay = reconnectBaseDelay
		return b.delay
	}
	b.delay *= 2
	if b.delay > reconnectMaxDelay {
		b.delay = reconnectMaxDelay
	}
	return b.delay
}

type gatewayEvent struct {
	Type string          `json:"t"`
	Data json.RawMessage `json:"d"`
}

type voiceStatePayload struct {
	UserID       string `json:"user_id"`
	DisplayName  string `json:"display_name"`
	ChannelID    string `json:"channel_id"`
	OldChannelID string `json:"old_channel_id"`
}

type identifyPayload struct {
	Op    string `json:"op"`
	Token string `json:"token"`
}

// EventListener maintains the websocket connection to the platform gateway
// and forwards voice membership transitions to the voice service.
type EventListener struct {
	url    string
	token  string
	voice  ports.VoiceService
	logger *zap.Logger
}

func NewEventListener(url, token string, voice ports.VoiceService, logger *zap.Logger) *EventListener {
	return &EventListener{
		url:    url,
		token:  token,
		voice:  voice,
		logger: logger,
	}
}

// Run blocks until ctx is canceled, reconnecting with exponential backoff
// whenever the connection drops.
func (l *EventListener) Run(ctx context.Context) {
	var bo backoff
	for {
		if ctx.Err() != nil {
			return
		}

		start := time.Now()
		err := l.connectAndRead(ctx)
		if ctx.Err() != nil {
			return
		}

		delay := bo.next(time.Since(start))
		l.logger.Warn("gateway connection lost", zap.Error(err), zap.Duration("reconnect_in", delay))

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return
		}
	}
}

func (l *EventListener) connectAndRead(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, l.url, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	if err := conn.WriteJSON(identifyPayload{Op: "identify", Token: l.token}); err != nil {
		return err
	}
	l.logger.Info("connected to platform gateway", zap.String("url", l.url))

	// Close the socket when ctx ends so the read loop unblocks.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for {
		if err := conn.SetReadDeadline(time.Now().Add(readTimeout)); err != nil {
			return err
		}
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		l.handleMessage(ctx, data)
	}
}

func (l *EventListener) handleMessage(ctx context.Context, data []byte) {
	var event gatewayEvent
	if err := json.Unmarshal(data, &event); err != nil {
		l.logger.Warn("undecodable gateway event", zap.Error(err))
		return
	}

	switch event.Type {
	case eventVoiceStateUpdate:
		var payload voiceStatePayload
		if err := json.Unmarshal(event.Data, &payload); err != nil {
			l.logger.Warn("undecodable voice state payload", zap.Error(err))
			return
		}
		if err := l.voice.HandleVoiceUpdate(ctx,
			domain.UserID(payload.UserID),
			payload.DisplayName,
			domain.ChannelID(payload.OldChannelID),
			domain.ChannelID(payload.ChannelID),
		); err != nil {
			l.logger.Error("voice update handling failed",
				zap.String("user_id", payload.UserID),
				zap.Error(err))
		}
	default:
		// Other event families are not consumed by this bot.
	}
}
