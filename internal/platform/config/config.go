package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Config agrupa la configuración del servicio, cargada desde env vars.
// DBDSN vacío => repos in-memory (modo dev). JWTSecret vacío => auth en modo
// dev via headers X-Debug-* (nunca usar así fuera de local).
type Config struct {
	Port string `env:"PORT" envDefault:"8080"`

	DBDSN     string `env:"DB_DSN"`
	JWTSecret string `env:"JWT_SECRET"`
	JWTIssuer string `env:"JWT_ISSUER"`

	AppName   string `env:"APP_NAME" envDefault:"zerotouch-micropolicy"`
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"`
}

func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

func (c Config) Addr() string {
	return ":" + c.Port
}
