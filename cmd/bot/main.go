package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"voicekeeper/internal/core/domain"
	"voicekeeper/internal/core/services"
	handlers "voicekeeper/internal/handlers/http"
	"voicekeeper/internal/infrastructure/gateway"
	"voicekeeper/internal/infrastructure/middleware"
	"voicekeeper/internal/infrastructure/monitoring"
	"voicekeeper/internal/infrastructure/repositories/memory"
	"voicekeeper/pkg/config"
	"voicekeeper/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	configPaths := []string{
		"configs/config.yaml",
		"./configs/config.yaml",
		"config.yaml",
	}

	var cfg *config.Config
	var err error
	for _, path := range configPaths {
		cfg, err = config.Load(path)
		if err == nil {
			break
		}
	}
	if err != nil {
		log.Fatalf("could not load config: %v", err)
	}

	zlog, err := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		log.Fatalf("could not build logger: %v", err)
	}
	defer zlog.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	collector := monitoring.NewPrometheusCollector()

	channelRepo := memory.NewChannelRepository()
	prefRepo := memory.NewPreferenceRepository()

	restClient := gateway.NewRESTClient(
		cfg.Bot.APIBaseURL, cfg.Bot.Token, cfg.Bot.GuildID,
		collector, zlog.Named("gateway"))

	disposal := services.NewDisposalScheduler(
		cfg.Voice.DisposalCheckInterval, restClient, zlog.Named("disposal"))

	voiceService := services.NewVoiceService(
		services.VoiceConfig{
			TriggerChannelID:  domain.ChannelID(cfg.Voice.TriggerChannelID),
			CategoryID:        domain.ChannelID(cfg.Voice.CategoryID),
			EveryonePrincipal: cfg.Bot.GuildID,
			BlockedRoleID:     domain.RoleID(cfg.Voice.BlockedRoleID),
			MaxTrustedUsers:   cfg.Voice.MaxTrustedUsers,
		},
		channelRepo, prefRepo, restClient, disposal, collector,
		zlog.Named("voice"))

	disposal.SetDisposeFunc(func(ctx context.Context, channelID domain.ChannelID) error {
		return voiceService.Delete(ctx, channelID, domain.SystemUser)
	})

	var rotation *services.RotationScheduler
	if cfg.Rotation.Enabled {
		refs := make([]domain.ChannelID, 0, len(cfg.Rotation.ReferenceChannels))
		for _, id := range cfg.Rotation.ReferenceChannels {
			refs = append(refs, domain.ChannelID(id))
		}
		rotation = services.NewRotationScheduler(
			services.RotationConfig{
				CategoryID:        domain.ChannelID(cfg.Rotation.CategoryID),
				TemplateChannelID: domain.ChannelID(cfg.Rotation.TemplateChannelID),
				TargetChannelName: cfg.Rotation.TargetChannelName,
				ReferenceChannels: refs,
				HourUTC:           cfg.Rotation.HourUTC,
				MinuteUTC:         cfg.Rotation.MinuteUTC,
			},
			restClient, collector, zlog.Named("rotation"))
		go rotation.Start(ctx)
	}

	listener := gateway.NewEventListener(
		cfg.Bot.GatewayURL, cfg.Bot.Token, voiceService, zlog.Named("events"))
	go listener.Run(ctx)

	health := monitoring.NewHealthChecker()
	health.AddCheck("registry", func(ctx context.Context) error {
		_, err := channelRepo.List(ctx)
		return err
	}, 2*time.Second)
	health.AddCheck("gateway", func(ctx context.Context) error {
		_, err := restClient.GetChannelInfo(ctx, domain.ChannelID(cfg.Voice.TriggerChannelID))
		return err
	}, 5*time.Second)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.NewRateLimitMiddleware(cfg))

	api := router.Group("/api/v1", middleware.AuthMiddleware(cfg.Admin.JWTSecret))
	handlers.NewStatusHandler(voiceService, channelRepo, rotation, health).SetupRoutes(router, api)

	server := &http.Server{
		Addr:    cfg.Admin.Address,
		Handler: router,
	}
	go func() {
		zlog.Info("admin server listening", zap.String("address", cfg.Admin.Address))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zlog.Fatal("admin server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	zlog.Info("shutting down")

	cancel()
	if rotation != nil {
		rotation.Stop()
	}
	disposal.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Admin.ShutdownTimeout)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		zlog.Error("admin server shutdown failed", zap.Error(err))
	}
}
