package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/blogplatform/auth_service/internal/audit"
	"github.com/blogplatform/auth_service/internal/config"
	"github.com/blogplatform/auth_service/internal/es"
	"github.com/blogplatform/auth_service/internal/httpserver"
	"github.com/blogplatform/auth_service/internal/logging"
	authmw "github.com/blogplatform/auth_service/internal/middleware/auth"
	"github.com/blogplatform/auth_service/internal/mykafka"
	"github.com/blogplatform/auth_service/internal/repo"
	"github.com/blogplatform/auth_service/internal/service"
	"github.com/blogplatform/auth_service/internal/session"
	"github.com/blogplatform/auth_service/internal/tokens"
)

func main() {
	cfg := config.Load()
	logger := logging.New(cfg.LogLevel)

	db, err := config.InitDB(cfg)
	if err != nil {
		log.Fatalf("db init error: %v", err)
	}

	var producer *mykafka.Producer
	if len(cfg.KafkaBrokers) > 0 {
		producer = mykafka.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopic)
		defer producer.Close()
	}

	var search *es.Client
	if cfg.ESURL != "" {
		search, err = es.NewClient(cfg.ESURL, cfg.ESUser, cfg.ESPassword)
		if err != nil {
			log.Fatalf("elasticsearch init error: %v", err)
		}
	}

	recorder := audit.NewRecorder(producer, search, "auth_audit", cfg.AuditBuffer, logger)
	defer recorder.Close()

	sessions := session.NewGormStore(db)
	svc := &service.AuthService{
		Users:    repo.NewGormRepo(db),
		Sessions: sessions,
		Tokens:   tokens.NewService(cfg.JWTSecret, cfg.RefreshSecret),
		Audit:    recorder,
	}

	e := echo.New()
	e.HideBanner = true
	e.Server.ReadTimeout = 10 * time.Second
	e.Server.WriteTimeout = 15 * time.Second
	e.Server.ReadHeaderTimeout = 3 * time.Second
	e.Use(logging.RequestLogger(logger))

	httpserver.Register(e, &httpserver.Deps{
		AuthHandler: &httpserver.AuthHTTP{
			Svc:           svc,
			SecureCookies: cfg.IsProduction(),
		},
		Guard: authmw.NewGuard(svc),
	})

	janitorCtx, stopJanitor := context.WithCancel(context.Background())
	defer stopJanitor()
	janitor := &session.Janitor{
		Store:    sessions,
		Interval: cfg.SessionCleanupInterval,
		Logger:   logger,
	}
	go janitor.Run(janitorCtx)

	go func() {
		if err := e.Start(cfg.HTTPAddr); err != nil && err != http.ErrServerClosed {
			log.Fatalf("echo start: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)
	<-stop

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Printf("echo shutdown: %v", err)
	}
}
