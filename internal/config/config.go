package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	HTTPAddr  string        `env:"HTTP_ADDR" envDefault:":8080"`
	DBPath    string        `env:"DB_PATH" envDefault:"data/quickvotes.db"`
	RedisURL  string        `env:"REDIS_URL" envDefault:"redis://localhost:6379/0"`
	JWTSecret string        `env:"JWT_SECRET,required"`
	JWTTTL    time.Duration `env:"JWT_TTL" envDefault:"168h"`
	LogLevel  slog.Level    `env:"LOG_LEVEL" envDefault:"INFO"`
	SPADir    string        `env:"SPA_DIR" envDefault:"../web/dist"`
}

func Load() (*Config, error) {
	// A local .env is optional; real deployments set the environment.
	_ = godotenv.Load()

	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}
	return &cfg, nil
}
