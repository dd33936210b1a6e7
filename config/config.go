// Package config loads runtime settings from the environment.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

type Logging struct {
	Level       string `env:"JAFFRE_LOG_LEVEL" envDefault:"info"`
	Development bool   `env:"JAFFRE_LOG_DEV" envDefault:"false"`
}

type Server struct {
	Addr           string        `env:"JAFFRE_SERVER_ADDR" envDefault:":8080"`
	WriteTimeout   time.Duration `env:"JAFFRE_WS_WRITE_TIMEOUT" envDefault:"5s"`
	AllowedOrigins []string      `env:"JAFFRE_ALLOWED_ORIGINS" envSeparator:","`
	Logging
}

type Client struct {
	ServerURL   string        `env:"JAFFRE_SERVER_URL" envDefault:"ws://localhost:8080"`
	GameID      string        `env:"JAFFRE_GAME_ID"`
	DialTimeout time.Duration `env:"JAFFRE_DIAL_TIMEOUT" envDefault:"10s"`
	Logging
}

// ParseServer loads server settings.
func ParseServer() (Server, error) {
	var cfg Server
	if err := parse(&cfg); err != nil {
		return Server{}, err
	}
	return cfg, nil
}

// ParseClient loads client settings.
func ParseClient() (Client, error) {
	var cfg Client
	if err := parse(&cfg); err != nil {
		return Client{}, err
	}
	return cfg, nil
}

// ParseLogging loads only the logging settings.
func ParseLogging() (Logging, error) {
	var cfg Logging
	if err := parse(&cfg); err != nil {
		return Logging{}, err
	}
	return cfg, nil
}

func parse(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}
