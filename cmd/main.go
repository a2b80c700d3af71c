package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"rashid-gateway/internal/client/platform"
	"rashid-gateway/internal/client/rag"
	"rashid-gateway/internal/config"
	"rashid-gateway/internal/handler"
	"rashid-gateway/internal/service"
	"rashid-gateway/internal/voice"
	"rashid-gateway/pkg/logger"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "./configs/config.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := logger.Init(cfg.Log.Level, cfg.Log.Format); err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}

	ragClient := rag.NewHTTPClient(cfg.RAG.BaseURL, cfg.RAG.Prefix, cfg.RAG.Timeout)
	platformClient := platform.NewClient(cfg.Platform.BaseURL, cfg.Platform.Timeout)

	sessions := service.NewSessionService(cfg, ragClient)

	agent := voice.NewAgent(nil, nil, func(ctx context.Context, matchResultID, role, text string) {
		if err := sessions.AppendTranscript(ctx, matchResultID, role, text); err != nil {
			logger.Warnf("voice transcript for %s: %v", matchResultID, err)
		}
	})
	sessions.OnTurnState = func(matchResultID string, inFlight bool) {
		agent.Gate().SetThinking(inFlight)
	}
	if cfg.Voice.WSURL != "" {
		dialCtx, cancel := context.WithTimeout(context.Background(), cfg.Voice.DialTimeout)
		if err := agent.Connect(dialCtx, cfg.Voice.WSURL, cfg.Voice.DialTimeout); err != nil {
			logger.Warnf("voice companion unavailable, continuing without it: %v", err)
		}
		cancel()
	}

	assistantHandler := handler.NewAssistantHandler(sessions)
	platformHandler := handler.NewPlatformHandler(platformClient)
	voiceHandler := handler.NewVoiceHandler(agent)

	router := setupRouter(cfg, assistantHandler, platformHandler, voiceHandler)

	server := &http.Server{
		Addr:           fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:        router,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		MaxHeaderBytes: cfg.Server.MaxHeaderBytes,
	}

	go func() {
		logger.Infof("assistant gateway listening on port %d", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down...")
	agent.Close()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Errorf("server shutdown: %v", err)
	}
	if err := sessions.GetStorage().Close(); err != nil {
		logger.Errorf("storage close: %v", err)
	}
	logger.Info("stopped")
}

func setupRouter(cfg *config.Config, assistant *handler.AssistantHandler, plat *handler.PlatformHandler, vh *handler.VoiceHandler) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	corsConfig := cors.Config{
		AllowOrigins:     cfg.CORS.AllowedOrigins,
		AllowMethods:     cfg.CORS.AllowedMethods,
		AllowHeaders:     cfg.CORS.AllowedHeaders,
		ExposeHeaders:    cfg.CORS.ExposedHeaders,
		AllowCredentials: cfg.CORS.AllowCredentials,
		MaxAge:           time.Duration(cfg.CORS.MaxAge) * time.Second,
	}
	router.Use(cors.New(corsConfig))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"timestamp": time.Now().Unix(),
		})
	})

	api := router.Group("/api")
	{
		assistantGroup := api.Group("/assistant")
		{
			assistantGroup.POST("/init", assistant.Init)
			assistantGroup.POST("/chat", assistant.Chat)
			assistantGroup.POST("/summary", assistant.ToggleSummary)
			assistantGroup.POST("/reset", assistant.Reset)
			assistantGroup.GET("/session/:match_result_id", assistant.GetSession)
			assistantGroup.GET("/session/:match_result_id/messages", assistant.GetMessages)
		}

		voiceGroup := api.Group("/voice")
		{
			voiceGroup.POST("/attach", vh.Attach)
			voiceGroup.POST("/toggle", vh.Toggle)
			voiceGroup.POST("/text", vh.Text)
			voiceGroup.GET("/state", vh.State)
		}

		api.POST("/predict", plat.Predict)
		api.GET("/projects/:id", plat.GetProject)
		api.GET("/projects/:id/matches", plat.GetMatches)
	}

	return router
}
