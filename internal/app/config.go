package app

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/Carolmelon/threejs-game-network/logging"
)

type Config struct {
	Addr        string `env:"ADDR" envDefault:":8000"`
	ClientDir   string `env:"CLIENT_DIR" envDefault:"static"`
	LogSeverity string `env:"LOG_SEVERITY" envDefault:"info"`
	LogJSONPath string `env:"LOG_JSON_PATH"`
}

// LoadConfig reads an optional .env file and then the process environment.
// A missing .env is not an error; anything else wrong with it is.
func LoadConfig() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse environment: %w", err)
	}
	return cfg, nil
}

func (c Config) minimumSeverity() (logging.Severity, error) {
	switch c.LogSeverity {
	case "debug":
		return logging.SeverityDebug, nil
	case "info":
		return logging.SeverityInfo, nil
	case "warn":
		return logging.SeverityWarn, nil
	case "error":
		return logging.SeverityError, nil
	default:
		return logging.SeverityInfo, fmt.Errorf("unknown LOG_SEVERITY %q", c.LogSeverity)
	}
}
