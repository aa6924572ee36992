package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"voicekeeper/internal/core/domain"
	"voicekeeper/internal/core/ports"
	"voicekeeper/internal/infrastructure/monitoring"
	"voicekeeper/pkg/retry"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	channelTypeText  = 0
	channelTypeVoice = 2
)

// RESTClient implements ports.ResourceGateway over the platform's HTTP API.
// Transient failures are retried with exponential backoff; 4xx responses
// are returned as-is.
type RESTClient struct {
	baseURL    string
	token      string
	guildID    string
	httpClient *http.Client
	retryCfg   retry.Config
	metrics    *monitoring.PrometheusCollector
	logger     *zap.Logger
}

func NewRESTClient(baseURL, token, guildID string, metrics *monitoring.PrometheusCollector, logger *zap.Logger) ports.ResourceGateway {
	return &RESTClient{
		baseURL:    baseURL,
		token:      token,
		guildID:    guildID,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		retryCfg:   retry.DefaultConfig(),
		metrics:    metrics,
		logger:     logger,
	}
}

type apiError struct {
	StatusCode int
	Body       string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("api responded %d: %s", e.StatusCode, e.Body)
}

// retryable reports whether a request should be attempted again. Client
// errors are final; everything else is assumed transient.
func retryable(err error) bool {
	if apiErr, ok := err.(*apiError); ok {
		return apiErr.StatusCode >= 500 || apiErr.StatusCode == http.StatusTooManyRequests
	}
	return true
}

func (c *RESTClient) do(ctx context.Context, op, method, path string, body, out interface{}) error {
	requestID := uuid.NewString()
	start := time.Now()

	err := retry.Do(ctx, c.retryCfg, func() error {
		var reader io.Reader
		if body != nil {
			data, err := json.Marshal(body)
			if err != nil {
				return fmt.Errorf("failed to encode request body: %w", err)
			}
			reader = bytes.NewReader(data)
		}

		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
		if err != nil {
			return err
		}
		req.Header.Set("Authorization", "Bot "+c.token)
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Request-ID", requestID)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			apiErr := &apiError{StatusCode: resp.StatusCode, Body: string(data)}
			if !retryable(apiErr) {
				return retry.Unrecoverable(apiErr)
			}
			return apiErr
		}

		if out != nil {
			if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
				return fmt.Errorf("failed to decode response: %w", err)
			}
		}
		return nil
	})

	if c.metrics != nil {
		c.metrics.RecordGatewayRequest(op, time.Since(start), err)
	}
	if err != nil {
		c.logger.Warn("gateway request failed",
			zap.String("op", op),
			zap.String("method", method),
			zap.String("path", path),
			zap.String("request_id", requestID),
			zap.Error(err))
	}
	return err
}

type overlayPayload struct {
	Principal string `json:"principal,omitempty"`
	View      string `json:"view"`
	Connect   string `json:"connect"`
}

func overlayBody(entry ports.OverlayEntry) overlayPayload {
	return overlayPayload{
		Principal: entry.Principal,
		View:      string(entry.Overlay.View),
		Connect:   string(entry.Overlay.Connect),
	}
}

type channelPayload struct {
	ID               string `json:"id,omitempty"`
	Type             int    `json:"type"`
	Name             string `json:"name"`
	ParentID         string `json:"parent_id,omitempty"`
	UserLimit        int    `json:"user_limit,omitempty"`
	Topic            string `json:"topic,omitempty"`
	NSFW             bool   `json:"nsfw,omitempty"`
	RateLimitPerUser int    `json:"rate_limit_per_user,omitempty"`
	Position         int    `json:"position,omitempty"`

	Overlays []overlayPayload `json:"permission_overlays,omitempty"`
}

func (c *RESTClient) CreateVoiceChannel(ctx context.Context, spec ports.VoiceChannelSpec) (domain.ChannelID, error) {
	payload := channelPayload{
		Type:      channelTypeVoice,
		Name:      spec.Name,
		ParentID:  string(spec.ParentID),
		UserLimit: spec.UserLimit,
	}
	for _, entry := range spec.Overlays {
		payload.Overlays = append(payload.Overlays, overlayBody(entry))
	}

	var created channelPayload
	if err := c.do(ctx, "create_voice_channel", http.MethodPost,
		"/guilds/"+c.guildID+"/channels", payload, &created); err != nil {
		return "", err
	}
	return domain.ChannelID(created.ID), nil
}

func (c *RESTClient) CreateTextChannel(ctx context.Context, spec ports.TextChannelSpec) (domain.ChannelID, error) {
	payload := channelPayload{
		Type:             channelTypeText,
		Name:             spec.Name,
		ParentID:         string(spec.ParentID),
		Topic:            spec.Topic,
		NSFW:             spec.NSFW,
		RateLimitPerUser: spec.RateLimitPerUser,
	}
	for _, entry := range spec.Overlays {
		payload.Overlays = append(payload.Overlays, overlayBody(entry))
	}

	var created channelPayload
	if err := c.do(ctx, "create_text_channel", http.MethodPost,
		"/guilds/"+c.guildID+"/channels", payload, &created); err != nil {
		return "", err
	}
	return domain.ChannelID(created.ID), nil
}

func (c *RESTClient) DeleteChannel(ctx context.Context, channelID domain.ChannelID) error {
	return c.do(ctx, "delete_channel", http.MethodDelete, "/channels/"+string(channelID), nil, nil)
}

func (c *RESTClient) RenameChannel(ctx context.Context, channelID domain.ChannelID, name string) error {
	return c.do(ctx, "rename_channel", http.MethodPatch, "/channels/"+string(channelID),
		map[string]string{"name": name}, nil)
}

func (c *RESTClient) SetUserLimit(ctx context.Context, channelID domain.ChannelID, limit int) error {
	return c.do(ctx, "set_user_limit", http.MethodPatch, "/channels/"+string(channelID),
		map[string]int{"user_limit": limit}, nil)
}

func (c *RESTClient) SetRegion(ctx context.Context, channelID domain.ChannelID, region string) error {
	body := map[string]interface{}{"rtc_region": region}
	if region == domain.RegionAutomatic {
		body["rtc_region"] = nil
	}
	return c.do(ctx, "set_region", http.MethodPatch, "/channels/"+string(channelID), body, nil)
}

func (c *RESTClient) SetChannelPosition(ctx context.Context, channelID domain.ChannelID, position int) error {
	return c.do(ctx, "set_position", http.MethodPatch, "/channels/"+string(channelID),
		map[string]int{"position": position}, nil)
}

func (c *RESTClient) SetPermissionOverlay(ctx context.Context, channelID domain.ChannelID, principal string, overlay domain.PermissionOverlay) error {
	return c.do(ctx, "set_permission_overlay", http.MethodPut,
		"/channels/"+string(channelID)+"/permissions/"+principal,
		overlayPayload{View: string(overlay.View), Connect: string(overlay.Connect)}, nil)
}

func (c *RESTClient) RemovePermissionOverlay(ctx context.Context, channelID domain.ChannelID, principal string) error {
	return c.do(ctx, "remove_permission_overlay", http.MethodDelete,
		"/channels/"+string(channelID)+"/permissions/"+principal, nil, nil)
}

func (c *RESTClient) ListOccupants(ctx context.Context, channelID domain.ChannelID) ([]domain.UserID, error) {
	var ids []string
	if err := c.do(ctx, "list_occupants", http.MethodGet,
		"/channels/"+string(channelID)+"/occupants", nil, &ids); err != nil {
		return nil, err
	}
	occupants := make([]domain.UserID, 0, len(ids))
	for _, id := range ids {
		occupants = append(occupants, domain.UserID(id))
	}
	return occupants, nil
}

func (c *RESTClient) GetChannelInfo(ctx context.Context, channelID domain.ChannelID) (*ports.ChannelInfo, error) {
	var payload channelPayload
	if err := c.do(ctx, "get_channel", http.MethodGet, "/channels/"+string(channelID), nil, &payload); err != nil {
		return nil, err
	}
	return channelInfoFromPayload(&payload), nil
}

func (c *RESTClient) ListChannelsInCategory(ctx context.Context, categoryID domain.ChannelID) ([]*ports.ChannelInfo, error) {
	var payloads []channelPayload
	if err := c.do(ctx, "list_category_channels", http.MethodGet,
		"/guilds/"+c.guildID+"/categories/"+string(categoryID)+"/channels", nil, &payloads); err != nil {
		return nil, err
	}
	infos := make([]*ports.ChannelInfo, 0, len(payloads))
	for i := range payloads {
		infos = append(infos, channelInfoFromPayload(&payloads[i]))
	}
	return infos, nil
}

func (c *RESTClient) MoveUser(ctx context.Context, userID domain.UserID, channelID domain.ChannelID) error {
	return c.do(ctx, "move_user", http.MethodPatch,
		"/guilds/"+c.guildID+"/members/"+string(userID),
		map[string]string{"channel_id": string(channelID)}, nil)
}

func (c *RESTClient) DisconnectUser(ctx context.Context, channelID domain.ChannelID, userID domain.UserID) error {
	return c.do(ctx, "disconnect_user", http.MethodPatch,
		"/guilds/"+c.guildID+"/members/"+string(userID),
		map[string]interface{}{"channel_id": nil}, nil)
}

func (c *RESTClient) IsAdministrator(ctx context.Context, userID domain.UserID) (bool, error) {
	var result struct {
		Administrator bool `json:"administrator"`
	}
	if err := c.do(ctx, "member_permissions", http.MethodGet,
		"/guilds/"+c.guildID+"/members/"+string(userID)+"/permissions", nil, &result); err != nil {
		return false, err
	}
	return result.Administrator, nil
}

func (c *RESTClient) SendMessage(ctx context.Context, channelID domain.ChannelID, content string) (domain.MessageID, error) {
	var created struct {
		ID string `json:"id"`
	}
	if err := c.do(ctx, "send_message", http.MethodPost,
		"/channels/"+string(channelID)+"/messages",
		map[string]string{"content": content}, &created); err != nil {
		return "", err
	}
	return domain.MessageID(created.ID), nil
}

func (c *RESTClient) DeleteMessage(ctx context.Context, channelID domain.ChannelID, messageID domain.MessageID) error {
	return c.do(ctx, "delete_message", http.MethodDelete,
		"/channels/"+string(channelID)+"/messages/"+string(messageID), nil, nil)
}

func channelInfoFromPayload(p *channelPayload) *ports.ChannelInfo {
	return &ports.ChannelInfo{
		ID:               domain.ChannelID(p.ID),
		Name:             p.Name,
		ParentID:         domain.ChannelID(p.ParentID),
		Position:         p.Position,
		Topic:            p.Topic,
		NSFW:             p.NSFW,
		RateLimitPerUser: p.RateLimitPerUser,
	}
}
