// config — загрузка конфигурации клиента (quizctl) и dev-стаба (quiz-stub).
//
// Источники (по убыванию приоритета):
//  1. явный путь --config;
//  2. CONFIG_PATH;
//  3. ./local.yaml;
//  4. только ENV (cleanenv).
//
// Переменные окружения всегда перекрывают значения из файла.
package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Бэкенды хранилища сессии.
const (
	BackendBolt   = "bolt"
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

var ErrInvalidConfig = errors.New("invalid config")

type Config struct {
	Env      string        `yaml:"env" env:"ENV" env-default:"local"`
	API      APIConfig     `yaml:"api"`
	Session  SessionConfig `yaml:"session"`
	Timeouts TimeoutConfig `yaml:"timeouts"`
	Stub     StubConfig    `yaml:"stub"`
}

// APIConfig — адрес удалённого API и пути его эндпоинтов.
type APIConfig struct {
	BaseURL           string `yaml:"base_url" env:"QUIZ_API_URL" env-default:"http://localhost:8000"`
	LoginPath         string `yaml:"login_path" env:"QUIZ_LOGIN_PATH" env-default:"/api/auth/login"`
	RegisterPath      string `yaml:"register_path" env:"QUIZ_REGISTER_PATH" env-default:"/api/auth/register"`
	RefreshPath       string `yaml:"refresh_path" env:"QUIZ_REFRESH_PATH" env-default:"/auth/refresh"`
	ProfilePath       string `yaml:"profile_path" env:"QUIZ_PROFILE_PATH" env-default:"/api/auth/profile"`
	QuizPrefix        string `yaml:"quiz_prefix" env:"QUIZ_QUIZ_PREFIX" env-default:"/api/quiz"`
	LeaderboardPrefix string `yaml:"leaderboard_prefix" env:"QUIZ_LEADERBOARD_PREFIX" env-default:"/api/leaderboard"`
	UserAgent         string `yaml:"user_agent" env:"QUIZ_USER_AGENT" env-default:"quizctl"`
}

// SessionConfig — где хранится сессия (аналог localStorage браузера).
type SessionConfig struct {
	Backend     string `yaml:"backend" env:"SESSION_BACKEND" env-default:"bolt"`
	Path        string `yaml:"path" env:"SESSION_PATH"`
	Key         string `yaml:"key" env:"SESSION_KEY" env-default:"auth-storage"`
	RedisURL    string `yaml:"redis_url" env:"SESSION_REDIS_URL" env-default:"redis://localhost:6379/0"`
	RedisPrefix string `yaml:"redis_prefix" env:"SESSION_REDIS_PREFIX" env-default:"quiz:"`
}

// ResolvedPath — путь файла bbolt; пустой Path заменяется на
// <UserConfigDir>/quizctl/session.db.
func (s SessionConfig) ResolvedPath() (string, error) {
	if s.Path != "" {
		return s.Path, nil
	}

	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve session path: %w", err)
	}

	return filepath.Join(dir, "quizctl", "session.db"), nil
}

// TimeoutConfig — таймаут одного исходящего вызова (и запроса в стабе).
type TimeoutConfig struct {
	Request time.Duration `yaml:"request" env:"REQUEST_TIMEOUT" env-default:"15s"`
}

// HTTPConfig — сетевые настройки HTTP-сервера стаба.
type HTTPConfig struct {
	Host string `yaml:"host" env:"HTTP_HOST" env-default:"0.0.0.0"`
	Port string `yaml:"port" env:"HTTP_PORT" env-default:"8000"`
}

func (h HTTPConfig) Addr() string { return net.JoinHostPort(h.Host, h.Port) }

// StubConfig — параметры dev-стаба API.
type StubConfig struct {
	HTTP       HTTPConfig    `yaml:"http"`
	JWTSecret  string        `yaml:"jwt_secret" env:"STUB_JWT_SECRET" env-default:"dev-secret-change-me"`
	AccessTTL  time.Duration `yaml:"access_ttl" env:"STUB_ACCESS_TTL" env-default:"15m"`
	RefreshTTL time.Duration `yaml:"refresh_ttl" env:"STUB_REFRESH_TTL" env-default:"720h"`
	Issuer     string        `yaml:"issuer" env:"STUB_ISSUER" env-default:"quiz-stub"`
	// Leaderboard — memory или redis (ZSET, как в исходном сервисе).
	Leaderboard string `yaml:"leaderboard" env:"STUB_LEADERBOARD" env-default:"memory"`
	RedisURL    string `yaml:"redis_url" env:"STUB_REDIS_URL" env-default:"redis://localhost:6379/0"`
}

// Validate проверяет значения, которые cleanenv не может проверить сам.
func (c *Config) Validate() error {
	switch c.Session.Backend {
	case BackendBolt, BackendRedis, BackendMemory:
	default:
		return fmt.Errorf("%w: session.backend %q (want bolt|redis|memory)", ErrInvalidConfig, c.Session.Backend)
	}

	switch c.Stub.Leaderboard {
	case BackendMemory, BackendRedis:
	default:
		return fmt.Errorf("%w: stub.leaderboard %q (want memory|redis)", ErrInvalidConfig, c.Stub.Leaderboard)
	}

	if c.API.BaseURL == "" {
		return fmt.Errorf("%w: api.base_url is empty", ErrInvalidConfig)
	}
	if c.Timeouts.Request < 0 {
		return fmt.Errorf("%w: timeouts.request is negative", ErrInvalidConfig)
	}

	return nil
}

// MustLoad — паника при ошибке загрузки.
func MustLoad(path string) *Config {
	cfg, err := Load(path)
	if err != nil {
		panic(err)
	}

	return cfg
}

func Load(path string) (*Config, error) {
	var cfg Config

	fromFile := func(p string) (*Config, error) {
		if err := cleanenv.ReadConfig(p, &cfg); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}

		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, fmt.Errorf("failed to overlay env: %w", err)
		}

		if err := cfg.Validate(); err != nil {
			return nil, err
		}

		return &cfg, nil
	}

	tryRead := func(p string) (*Config, error) {
		if _, err := os.Stat(p); err != nil {
			return nil, fmt.Errorf("config file %q stat failed: %w", p, err)
		}

		return fromFile(p)
	}

	// 1) --config
	if path != "" {
		return tryRead(path)
	}

	// 2) CONFIG_PATH
	if envPath := os.Getenv("CONFIG_PATH"); envPath != "" {
		return tryRead(envPath)
	}

	// 3) ./local.yaml
	if _, err := os.Stat("local.yaml"); err == nil {
		return fromFile("local.yaml")
	}

	// 4) только ENV
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("config not found: provide --config, CONFIG_PATH, local.yaml or env vars: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}
