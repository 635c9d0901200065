package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

var (
	ErrInvalidPingInterval = errors.New("ping-interval must be shorter than pong-timeout")
	ErrInvalidSendBuffer   = errors.New("send-buffer must be positive")
	ErrInvalidSocketPath   = errors.New("socket-path must start with /")
)

type Config struct {
	LogLevel       string    `yaml:"log-level" env:"LOG_LEVEL" env-default:"info"`
	HTTPPort       string    `yaml:"http-port" env:"HTTP_PORT" env-default:"9090"`
	SocketPort     string    `yaml:"socket-port" env:"SOCKET_PORT" env-default:"8080"`
	SocketPath     string    `yaml:"socket-path" env:"SOCKET_PATH" env-default:"/api/ws"`
	AllowedOrigins []string  `yaml:"allowed-origins" env:"ALLOWED_ORIGINS" env-separator:","`
	Transport      Transport `yaml:"transport"`
	Session        Session   `yaml:"session"`
	Redis          Redis     `yaml:"redis"`
}

type Transport struct {
	WriteTimeout   time.Duration `yaml:"write-timeout" env-default:"10s"`
	PongTimeout    time.Duration `yaml:"pong-timeout" env-default:"60s"`
	PingInterval   time.Duration `yaml:"ping-interval" env-default:"30s"`
	MaxMessageSize int64         `yaml:"max-message-size" env-default:"4096"`
	SendBuffer     int           `yaml:"send-buffer" env-default:"32"`
}

// Session controls game lifetime. Games live as long as the process unless
// ReclaimAbandoned is set, then a game is removed when its last connection closes.
type Session struct {
	ReclaimAbandoned bool `yaml:"reclaim-abandoned" env:"SESSION_RECLAIM_ABANDONED"`
}

// Redis holds the archive of finished games. The server runs without it when disabled.
type Redis struct {
	Enabled      bool          `yaml:"enabled" env:"REDIS_ENABLED" env-default:"false"`
	Host         string        `yaml:"host" env:"REDIS_HOST" env-default:"localhost"`
	Port         string        `yaml:"port" env:"REDIS_PORT" env-default:"6379"`
	ResultTTL    time.Duration `yaml:"result-ttl" env-default:"24h"`
	ResultsLimit int64         `yaml:"results-limit" env-default:"100"`
}

// MustLoad - load all configurations in config.yml file.
func MustLoad(path string) *Config {
	config, err := Load(path)
	if err != nil {
		panic(err)
	}

	return config
}

// Load reads path with environment overrides. A missing file falls back to the
// environment and defaults only.
func Load(path string) (*Config, error) {
	config := &Config{}

	var err error
	if _, statErr := os.Stat(path); statErr == nil {
		err = cleanenv.ReadConfig(path, config)
	} else {
		err = cleanenv.ReadEnv(config)
	}

	if err != nil {
		return nil, fmt.Errorf("unable to load config file: %w", err)
	}

	if err = config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return config, nil
}

func (that *Config) Validate() error {
	if that.Transport.PingInterval >= that.Transport.PongTimeout {
		return ErrInvalidPingInterval
	}

	if that.Transport.SendBuffer <= 0 {
		return ErrInvalidSendBuffer
	}

	if len(that.SocketPath) == 0 || that.SocketPath[0] != '/' {
		return ErrInvalidSocketPath
	}

	return nil
}

func (that *Redis) GetRedisAddr() string {
	return fmt.Sprintf("%s:%s", that.Host, that.Port)
}
