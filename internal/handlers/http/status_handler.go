package http

import (
	"errors"
	"net/http"
	"time"

	"voicekeeper/internal/core/domain"
	"voicekeeper/internal/core/ports"
	"voicekeeper/internal/core/services"
	"voicekeeper/internal/infrastructure/monitoring"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// StatusHandler exposes the read-only operational surface: health, rotation
// bookkeeping, and live channel snapshots.
type StatusHandler struct {
	voiceService ports.VoiceService
	channels     ports.ChannelRepository
	rotation     *services.RotationScheduler
	health       *monitoring.HealthChecker
}

func NewStatusHandler(
	voiceService ports.VoiceService,
	channels ports.ChannelRepository,
	rotation *services.RotationScheduler,
	health *monitoring.HealthChecker,
) *StatusHandler {
	return &StatusHandler{
		voiceService: voiceService,
		channels:     channels,
		rotation:     rotation,
		health:       health,
	}
}

// SetupRoutes registers the public endpoints on the root router and the
// authenticated endpoints on the /api/v1 group.
func (h *StatusHandler) SetupRoutes(router *gin.Engine, api *gin.RouterGroup) {
	router.GET("/health", h.Health)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api.GET("/rotation", h.GetRotation)
	api.GET("/channels", h.ListChannels)
	api.GET("/channels/:id", h.GetChannel)
}

func (h *StatusHandler) Health(c *gin.Context) {
	status := h.health.CheckAll(c.Request.Context())
	code := http.StatusOK
	if status.Status != "healthy" {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, status)
}

func (h *StatusHandler) GetRotation(c *gin.Context) {
	if h.rotation == nil {
		c.JSON(http.StatusOK, gin.H{"enabled": false})
		return
	}

	state := h.rotation.State()
	c.JSON(http.StatusOK, gin.H{
		"enabled":          true,
		"rotation_count":   state.RotationCount,
		"last_rotation_at": formatTime(state.LastRotationAt),
		"next_rotation_at": formatTime(state.NextRotationAt),
	})
}

func (h *StatusHandler) ListChannels(c *gin.Context) {
	channels, err := h.channels.List(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	out := make([]gin.H, 0, len(channels))
	for _, ch := range channels {
		out = append(out, channelView(ch))
	}
	c.JSON(http.StatusOK, gin.H{"channels": out})
}

func (h *StatusHandler) GetChannel(c *gin.Context) {
	channelID := domain.ChannelID(c.Param("id"))

	channel, err := h.voiceService.GetChannelData(c.Request.Context(), channelID)
	if err != nil {
		if errors.Is(err, domain.ErrChannelNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "channel not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"channel": channelView(channel)})
}

func channelView(ch *domain.VoiceChannel) gin.H {
	return gin.H{
		"id":            ch.ID,
		"owner_id":      ch.OwnerID,
		"name":          ch.Settings.Name,
		"limit":         ch.Settings.Limit,
		"privacy":       ch.Settings.Privacy,
		"region":        ch.Settings.Region,
		"trusted_users": ch.TrustedUsers,
		"blocked_users": ch.BlockedUsers,
		"created_at":    ch.CreatedAt,
	}
}

func formatTime(t time.Time) interface{} {
	if t.IsZero() {
		return nil
	}
	return t.UTC().Format(time.RFC3339)
}
