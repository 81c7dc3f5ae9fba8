package internal

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

type Config struct {
	LogLevel             string        `env:"LOG_LEVEL,default=INFO"`
	Host                 string        `env:"HOST,default=localhost"`
	Port                 int           `env:"PORT,default=8080" validate:"gt=0,lt=65536"`
	TickerBaseURL        string        `env:"TICKER_BASE_URL,required=true" validate:"required,url"`
	Markets              string        `env:"MARKETS"`
	RefreshInterval      time.Duration `env:"REFRESH_INTERVAL,default=1s" validate:"gt=0"`
	HTTPTimeout          time.Duration `env:"HTTP_TIMEOUT,default=5s" validate:"gt=0"`
	Locale               string        `env:"LOCALE,default=ko"`
	BadgerFilepath       string        `env:"BADGER_FILEPATH,required=true" validate:"required"`
	BlugeFilepath        string        `env:"BLUGE_FILEPATH,required=true" validate:"required"`
	LimitMessages        *int          `env:"LIMIT_MESSAGES" validate:"omitempty,gt=0"`
	MaxContentLength     int           `env:"MAX_CONTENT_LENGTH,default=500" validate:"gte=0"`
	CharReplacement      string        `env:"CHARACTER_REPLACEMENT,default=*"`
	CensoredWords        string        `env:"CENSORED_WORDS"`
	CoinCatalogPath      string        `env:"COIN_CATALOG_PATH"`
	TerminalOutput       *bool         `env:"TERMINAL_OUTPUT"`
	TerminalColours      bool          `env:"TERMINAL_COLOURS,default=true"`
	RestartInterval      time.Duration `env:"RESTART_INTERVAL,default=2s" validate:"gt=0"`
	MetricInterval       time.Duration `env:"METRIC_INTERVAL,default=1m" validate:"gt=0"`
	ConnectionBufferSize int           `env:"CONNECTION_BUFFER_SIZE,default=1024" validate:"gt=0"`
}

// Validate checks the values go-env cannot: ranges, URL shape, replacement character.
func (c Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	_, err := CharacterRune(c.CharReplacement)
	return err
}

func (c Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Terminal reports whether the table is drawn on stdout.
// Unset, it is drawn only when the log level keeps the console quiet.
func (c Config) Terminal() bool {
	if c.TerminalOutput != nil {
		return *c.TerminalOutput
	}
	switch strings.ToUpper(strings.TrimSpace(c.LogLevel)) {
	case "WARN", "WARNING", "ERROR":
		return true
	default:
		return false
	}
}

// MarketIDs returns the configured markets, or fallback when none are set.
func (c Config) MarketIDs(fallback []string) []string {
	if markets := SplitList(c.Markets); len(markets) > 0 {
		return markets
	}
	return fallback
}

// SplitList splits a comma separated value, dropping blanks.
func SplitList(value string) []string {
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func CharacterRune(str string) (rune, error) {
	r := []rune(str)
	if len(r) != 1 {
		return 0, fmt.Errorf(
			"CHARACTER_REPLACEMENT must be a single character, got %q",
			str,
		)
	}
	return r[0], nil
}
