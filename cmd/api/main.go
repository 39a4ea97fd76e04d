package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"grantly.org/internal/account"
	"grantly.org/internal/auth"
	"grantly.org/internal/config"
	"grantly.org/internal/httpapi"
	"grantly.org/internal/migrate"
	"grantly.org/internal/obs"
	"grantly.org/internal/store/pg"
)

var (
	version = "0.3.0"
	commit  = "none"
)

func main() {
	obs.Init()
	obs.InitBuildInfo(version, commit)

	cfg := config.Load()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, err := pg.NewConnector(cfg.DSN).Connect(ctx, cfg.ConnectRetries)
	if err != nil {
		log.Fatalf("connect db: %v", err)
	}
	defer store.Close()

	migrateCtx, migrateCancel := context.WithTimeout(ctx, 60*time.Second)
	if err := migrate.NewManager(store.DB(), cfg.MigrationsDir).Up(migrateCtx); err != nil {
		migrateCancel()
		log.Fatalf("migrate: %v", err)
	}
	migrateCancel()

	authSvc := auth.NewService(auth.WithTokenSecret(cfg.AuthSecret))
	accounts := account.NewService(store.DB(), store.Accounts(), store.Permissions())

	unlisten := accounts.OnCreated.Listen(func(ctx context.Context, acc account.Account) error {
		obs.Log(map[string]any{
			"msg":        "account created",
			"account_id": acc.ID,
		})
		return nil
	})
	defer unlisten()

	api := httpapi.New(httpapi.ReadyProbe{DB: store.DB()}, version, authSvc, accounts)
	api.SetRateLimit(cfg.RateBurst, cfg.RatePerSec)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	obs.Log(map[string]any{
		"msg":     "starting grantly-api",
		"version": version,
		"addr":    srv.Addr,
	})

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	obs.Log(map[string]any{"msg": "shutting down"})

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	_ = srv.Shutdown(shutdownCtx)
	obs.Log(map[string]any{"msg": "stopped"})
}
