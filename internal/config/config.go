package config

import (
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config contains runtime configuration required by the service.
//
// DB_URL is optional: when empty the service runs on the in-memory store,
// which is the reference deployment for a single-process live dashboard.
type Config struct {
	HTTPAddr  string `env:"HTTP_ADDR" env-default:":8080"`
	DBURL     string `env:"DB_URL"`
	LogLevel  string `env:"LOG_LEVEL" env-default:"info"`
	LogFormat string `env:"LOG_FORMAT" env-default:"text"`

	// Fan-out tuning: per-subscriber send buffer and the per-write deadline
	// after which a stalled subscriber is dropped.
	WSSendBuffer   int           `env:"WS_SEND_BUFFER" env-default:"32"`
	WSWriteTimeout time.Duration `env:"WS_WRITE_TIMEOUT" env-default:"10s"`
}

// Load reads configuration from environment variables.
func Load() (Config, error) {
	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
