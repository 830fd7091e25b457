package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/mentorway/mentorway-be/internal/config"
	"github.com/mentorway/mentorway-be/internal/notify"
	"github.com/mentorway/mentorway-be/internal/server"
	"github.com/mentorway/mentorway-be/internal/storage/postgres"
	"github.com/mentorway/mentorway-be/internal/uploads"
)

func main() {
	loadLocalEnv()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx := context.Background()
	store, err := postgres.NewStore(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("init database: %v", err)
	}
	defer store.Close()

	var notifier notify.Notifier = notify.LogNotifier{}
	if cfg.SMTPHost != "" {
		notifier = notify.NewMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.EmailFrom)
	}

	uploadStore, err := uploads.NewLocalStore(cfg.UploadDir, cfg.UploadBaseURL)
	if err != nil {
		log.Fatalf("init upload store: %v", err)
	}

	srv := server.New(cfg, store, notifier, uploadStore)

	go func() {
		log.Printf("MentorWay backend listening on %s", cfg.HTTPAddress())
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("http server error: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctxShutdown); err != nil {
		log.Printf("graceful shutdown error: %v", err)
	}
}

func loadLocalEnv() {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found; relying on existing environment")
	}
}
