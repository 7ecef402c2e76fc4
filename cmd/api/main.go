package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"rabbithaven.tw/internal/audit"
	"rabbithaven.tw/internal/auth"
	"rabbithaven.tw/internal/config"
	"rabbithaven.tw/internal/donation"
	"rabbithaven.tw/internal/httpapi"
	"rabbithaven.tw/internal/ids"
	"rabbithaven.tw/internal/obs"
	"rabbithaven.tw/internal/store/pg"
	"rabbithaven.tw/internal/stream"
)

var version = "0.3.0"

func main() {
	obs.Init()
	obs.InitBuildInfo(version, os.Getenv("GIT_COMMIT"))

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	var (
		donations donation.Service
		users     auth.UserStore
		auditLog  audit.Store
		probe     httpapi.ReadyProbe
		closeFn   = func() {}
	)
	if cfg.PGDSN != "" {
		store, err := pg.Open(cfg.PGDSN)
		if err != nil {
			log.Fatalf("open db: %v", err)
		}
		donations = store
		users = auth.NewPGUserStore(store.DB())
		auditLog = pg.NewAuditStore(store.DB())
		probe = httpapi.ReadyProbe{DB: store.DB()}
		closeFn = func() { _ = store.Close() }
	} else {
		log.Println("RESCUE_PG_DSN not set, using in-memory stores")
		donations = donation.NewInMemory()
		users = auth.NewMemoryUserStore()
		auditLog = audit.NewMemoryStore()
	}

	if err := bootstrapAdmin(cfg, users); err != nil {
		log.Fatalf("bootstrap admin: %v", err)
	}

	api := httpapi.New(probe, version, donations, users, auditLog, stream.New(), cfg.Features, cfg.RateBurst, cfg.RatePerSec)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	log.Printf("Starting rabbithaven-api %s on %s", version, srv.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	log.Println("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = srv.Shutdown(ctx)
	closeFn()
	log.Println("Stopped")
}

// bootstrapAdmin seeds the first admin account from config if no account
// with that email exists yet. A lone server without staff accounts cannot
// be logged into at all.
func bootstrapAdmin(cfg config.Config, users auth.UserStore) error {
	email := cfg.BootstrapAdminEmail
	if email == "" {
		return nil
	}
	if cfg.BootstrapAdminPassword == "" {
		return errors.New("bootstrap admin password is empty")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := users.FindByEmail(ctx, email); err == nil {
		return nil
	} else if !errors.Is(err, auth.ErrNotFound) {
		return err
	}

	hash, err := auth.HashPassword(cfg.BootstrapAdminPassword)
	if err != nil {
		return err
	}
	user := &auth.User{
		ID:           ids.New(),
		Name:         "Administrator",
		Email:        email,
		Role:         auth.RoleAdmin,
		PasswordHash: hash,
		Status:       auth.UserStatusActive,
		CreatedAt:    time.Now().UTC(),
	}
	if err := users.Create(ctx, user); err != nil {
		return err
	}
	log.Printf("bootstrapped admin account %s", email)
	return nil
}
