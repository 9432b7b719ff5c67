// @title ZeroTouch MicroPolicy API
// @version 1.0
// @description Storefront de micro-pólizas paramétricas con payout automático por eventos simulados.
// @BasePath /
package main

import (
	"database/sql"
	"net/http"
	"os"
	"time"

	_ "zerotouch-micropolicy/docs"
	"zerotouch-micropolicy/internal/adapters/auth/jwtauth"
	"zerotouch-micropolicy/internal/adapters/storage/postgres"
	"zerotouch-micropolicy/internal/platform/config"
	"zerotouch-micropolicy/internal/platform/logger"
	"zerotouch-micropolicy/internal/ports/auth"
	"zerotouch-micropolicy/internal/router"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.New(logger.Options{}).Error("config error", logger.Fields{"err": err.Error()})
		os.Exit(1)
	}

	log := logger.New(logger.Options{
		Level:  logger.ParseLevel(cfg.LogLevel),
		Format: logger.ParseFormat(cfg.LogFormat),
		App:    cfg.AppName,
	})

	var verifier auth.AuthVerifier
	if cfg.JWTSecret != "" {
		v, err := jwtauth.NewVerifier(jwtauth.Config{
			Secret: cfg.JWTSecret,
			Issuer: cfg.JWTIssuer,
		})
		if err != nil {
			log.Error("jwt verifier init failed", logger.Fields{"err": err.Error()})
			os.Exit(1)
		}
		verifier = v
	} else {
		log.Warn("JWT_SECRET not set, running auth in dev mode", nil)
	}

	var db *sql.DB
	if cfg.DBDSN != "" {
		db, err = postgres.Open(cfg.DBDSN)
		if err != nil {
			log.Error("postgres connect failed", logger.Fields{"err": err.Error()})
			os.Exit(1)
		}
		defer db.Close()
		log.Info("using postgres storage", nil)
	} else {
		log.Warn("DB_DSN not set, using in-memory storage", nil)
	}

	r := router.NewRouter(router.Options{
		AuthVerifier: verifier,
		DB:           db,
		Log:          log,
	})

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      r,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	log.Info("starting server", logger.Fields{"addr": cfg.Addr()})
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("server error", logger.Fields{"err": err.Error()})
		os.Exit(1)
	}
}
