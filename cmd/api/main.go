package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/glowpoint/makeup_shop/internal/config"
	"github.com/glowpoint/makeup_shop/internal/httpserver"
	authmw "github.com/glowpoint/makeup_shop/internal/middleware/auth"
	"github.com/glowpoint/makeup_shop/internal/mykafka"
	"github.com/glowpoint/makeup_shop/internal/repo"
	"github.com/glowpoint/makeup_shop/internal/service"
	"github.com/glowpoint/makeup_shop/pkg/logging"
	loggingmw "github.com/glowpoint/makeup_shop/pkg/middleware/logging"
	"github.com/glowpoint/makeup_shop/pkg/tokens"
)

func main() {
	cfg := config.Load()
	config.MustNonEmptyBytes(cfg.JWTSecret, "JWT_SECRET")
	config.MustNonEmptyBytes(cfg.RefreshSecret, "REFRESH_SECRET")

	logger := logging.New(os.Getenv("LOG_LEVEL"))

	e := echo.New()
	e.HideBanner = true
	e.Server.ReadTimeout = 10 * time.Second
	e.Server.WriteTimeout = 15 * time.Second
	e.Server.ReadHeaderTimeout = 3 * time.Second
	e.Use(loggingmw.RequestLogger(logger))

	initCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	db, err := config.InitDB(initCtx, cfg.DatabaseURL)
	cancel()
	if err != nil {
		log.Fatalf("db init error: %v", err)
	}

	maker := tokens.NewMaker(cfg.JWTSecret, cfg.RefreshSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
	svc := &service.AuthService{
		Repo:   &repo.GormStore{DB: db},
		Tokens: maker,
	}

	var producer *mykafka.Producer
	if len(cfg.KafkaBrokers) > 0 {
		producer = mykafka.NewProducer(cfg.KafkaBrokers, "user_events")
		defer producer.Close()
	}

	httpserver.Register(e, &httpserver.Deps{
		AuthHandler: &httpserver.AuthHTTP{
			Svc:          svc,
			Producer:     producer,
			CookieSecure: cfg.CookieSecure(),
		},
		Guard: authmw.NewGuard(maker),
	})

	serveErr := make(chan error, 1)
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Port)
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			serveErr <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)

	// a failed listen goes through the same shutdown path as an interrupt
	// so deferred cleanup still runs
	select {
	case <-stop:
	case err := <-serveErr:
		logger.Error("echo start", "error", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Printf("echo shutdown: %v", err)
	}
}
