package main

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	ServerAddr string `envconfig:"CHAT_SERVER_ADDR" default:"http://localhost:8080"`
	Nickname   string `envconfig:"CHAT_NICKNAME" default:"익명"`
	// CHAT_COLOURS enables colorized warnings
	Colours        bool          `envconfig:"CHAT_COLOURS" default:"true"`
	LogLevel       string        `envconfig:"LOG_LEVEL" default:"WARN"`
	RequestTimeout time.Duration `envconfig:"CHAT_REQUEST_TIMEOUT" default:"5s"`
	ReconnectDelay time.Duration `envconfig:"CHAT_RECONNECT_DELAY" default:"500ms"`
	LogHeight      int           `envconfig:"CHAT_LOG_HEIGHT" default:"20"`
}

func LoadConfig() (Config, error) {
	var cfg Config
	err := envconfig.Process("", &cfg)
	return cfg, err
}
