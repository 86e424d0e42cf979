// Package clients — типизированные клиенты API платформы квизов поверх
// аутентифицированного шлюза (internal/gateway).
package clients

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/pribylovaa/go-quiz-client/internal/apierrors"
	"github.com/pribylovaa/go-quiz-client/internal/config"
	"github.com/pribylovaa/go-quiz-client/internal/gateway"
	"github.com/pribylovaa/go-quiz-client/internal/session"
	"github.com/pribylovaa/go-quiz-client/internal/transport"
)

// ErrInvalidArgument — локальная проверка аргументов не прошла, вызов не делался.
var ErrInvalidArgument = errors.New("invalid argument")

// Options — необязательные зависимости агрегатора.
type Options struct {
	// OnInvalidated передаётся в шлюз: реакция на очистку сессии.
	OnInvalidated func(ctx context.Context, reason error)
	// Registerer — куда регистрировать метрики шлюза; nil — без метрик.
	Registerer prometheus.Registerer
	// Store подменяет хранилище сессии из конфигурации; закрывает его вызывающий.
	Store session.Store
	// Transport — базовый RoundTripper; nil — http.DefaultTransport.
	Transport http.RoundTripper
}

// Clients агрегирует сессию, шлюз и типизированные клиенты API.
type Clients struct {
	Session     *session.Session
	Gateway     *gateway.Gateway
	Auth        *AuthClient
	Quiz        *QuizClient
	Leaderboard *LeaderboardClient

	store     session.Store
	ownsStore bool
}

// New собирает хранилище сессии, цепочку транспорта и шлюз по конфигурации.
func New(ctx context.Context, cfg *config.Config, log *slog.Logger, opts Options) (*Clients, error) {
	const op = "clients.New"

	if log == nil {
		log = slog.Default()
	}

	store := opts.Store
	if store == nil {
		st, err := OpenStore(ctx, cfg.Session)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		store = st
	}

	sess := session.New(store, cfg.Session.Key)

	// Цепочка транспорта: metadata -> logging -> timeout.
	rt := transport.Chain(opts.Transport,
		transport.WithMetadata(cfg.API.UserAgent),
		transport.WithLogging(log),
		transport.WithTimeout(cfg.Timeouts.Request),
	)

	var metrics *gateway.Metrics
	if opts.Registerer != nil {
		metrics = gateway.NewMetrics(opts.Registerer)
	}

	gw, err := gateway.New(cfg.API.BaseURL, sess, gateway.Options{
		HTTPClient:    &http.Client{Transport: rt},
		RefreshPath:   cfg.API.RefreshPath,
		OnInvalidated: opts.OnInvalidated,
		Metrics:       metrics,
	})
	if err != nil {
		if opts.Store == nil {
			_ = store.Close()
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &Clients{
		Session:     sess,
		Gateway:     gw,
		Auth:        NewAuthClient(gw, cfg.API),
		Quiz:        NewQuizClient(gw, cfg.API.QuizPrefix),
		Leaderboard: NewLeaderboardClient(gw, cfg.API.LeaderboardPrefix),
		store:       store,
		ownsStore:   opts.Store == nil,
	}, nil
}

// OpenStore открывает хранилище сессии выбранного бэкенда.
func OpenStore(ctx context.Context, cfg config.SessionConfig) (session.Store, error) {
	switch cfg.Backend {
	case config.BackendMemory:
		return session.NewMemoryStore(), nil
	case config.BackendRedis:
		return session.NewRedisStore(ctx, cfg.RedisURL, cfg.RedisPrefix)
	case config.BackendBolt, "":
		path, err := cfg.ResolvedPath()
		if err != nil {
			return nil, err
		}
		return session.OpenBolt(path)
	default:
		return nil, fmt.Errorf("%w: unknown session backend %q", ErrInvalidArgument, cfg.Backend)
	}
}

// Close закрывает хранилище сессии, если оно открыто по конфигурации;
// переданное через Options.Store остаётся за вызывающим.
func (c *Clients) Close() error {
	if !c.ownsStore {
		return nil
	}
	return c.store.Close()
}

// decode закрывает тело ответа; 2xx — JSON в out (nil — тело игнорируется),
// иначе — *apierrors.APIError с сообщением из "detail".
func decode(resp *http.Response, out any) error {
	defer func() {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return apierrors.FromResponse(resp)
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	return nil
}
