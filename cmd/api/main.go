package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"authline.org/internal/auditlog"
	"authline.org/internal/config"
	"authline.org/internal/database"
	"authline.org/internal/httpapi"
	"authline.org/internal/identity"
	"authline.org/internal/obs"
)

var version = "0.3.1"

func main() {
	obs.Init()
	obs.InitBuildInfo(version, os.Getenv("AUTHLINE_COMMIT"))

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	if err := database.Ping(context.Background(), db); err != nil {
		log.Fatalf("ping db: %v", err)
	}
	if cfg.RunMigrations {
		if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
			log.Fatalf("migrations: %v", err)
		}
	}

	auditSvc := auditlog.NewService(auditlog.NewPGStore(db))

	issuer, err := identity.NewTokenIssuer([]byte(cfg.JWTSecret), cfg.JWTIssuer)
	if err != nil {
		log.Fatalf("token issuer: %v", err)
	}
	identitySvc, err := identity.NewService(
		identity.NewPGStore(db),
		issuer,
		auditSvc,
		identity.WithAccessTTL(cfg.AccessTTL()),
		identity.WithRefreshTTL(cfg.RefreshTTL()),
		identity.WithBcryptCost(cfg.BcryptCost),
	)
	if err != nil {
		log.Fatalf("identity service: %v", err)
	}

	api := httpapi.New(identitySvc, auditSvc, httpapi.ReadyProbe{DB: db}, version)
	api.SetLimits(cfg.RateBurst, cfg.RatePerSec, cfg.MaxBodyBytes)

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	log.Printf("Starting authline-api %s on %s", version, srv.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	// Periodic sweep of expired refresh tokens.
	sweepCtx, stopSweep := context.WithCancel(context.Background())
	go func() {
		ticker := time.NewTicker(cfg.SweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-sweepCtx.Done():
				return
			case <-ticker.C:
				n, err := identitySvc.SweepExpired(sweepCtx)
				if err != nil {
					log.Printf("refresh token sweep: %v", err)
					continue
				}
				if n > 0 {
					log.Printf("refresh token sweep removed %d expired tokens", n)
				}
			}
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	log.Println("Shutting down...")
	stopSweep()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = srv.Shutdown(ctx)
	_ = db.Close()
	log.Println("Stopped")
}
