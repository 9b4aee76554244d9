package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"hanchat/hanchat/config"
	"hanchat/hanchat/controllers"
	"hanchat/hanchat/routes"
	"hanchat/hanchat/services/llm"
	"hanchat/hanchat/session"
	"hanchat/hanchat/sources/kvstore"
	"hanchat/hanchat/utils/logging"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

func main() {
	cfg := config.LoadConfig()
	logging.InitLogger(cfg.LogDir)
	if cfg.GroqAPIKey == "" {
		logging.AppLogger.Warn("GROQ_API_KEY is empty, every send will fall back")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	history, err := kvstore.Open(cfg)
	if err != nil {
		logging.ErrorLogger.Error("storage open error", zap.Error(err))
		os.Exit(1)
	}

	tutorCtrl := controllers.NewTutorController(llm.NewGroqClient(cfg.GroqAPIKey), cfg.GroqModel)
	healthCtrl := controllers.NewHealthController()

	store := session.NewStore(tutorCtrl)
	store.Subscribe(kvstore.Mirror(history))
	store.Initialize(ctx, history)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Mount("/api/chat", routes.ChatRoutes(tutorCtrl))
	r.Mount("/api/sessions", routes.SessionRoutes(store))
	r.Mount("/health", routes.HealthRoutes(healthCtrl))

	srv := &http.Server{
		Addr:    cfg.Addr,
		Handler: r,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.ErrorLogger.Error("server listen error", zap.Error(err))
		}
	}()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logging.ErrorLogger.Error("server shutdown error", zap.Error(err))
	}
	logging.AppLogger.Info("server shutdown complete")
}
