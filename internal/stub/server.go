package stub

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/pribylovaa/go-quiz-client/internal/config"
	"github.com/pribylovaa/go-quiz-client/internal/stub/middleware"
)

// Server — собранный стаб: хранилища, рейтинг и роутер.
type Server struct {
	handler http.Handler
	board   Board
}

// NewServer собирает стаб по конфигурации. reg == nil — без метрик.
func NewServer(ctx context.Context, cfg *config.Config, log *slog.Logger, reg prometheus.Registerer) (*Server, error) {
	const op = "stub.NewServer"

	var board Board
	switch cfg.Stub.Leaderboard {
	case config.BackendRedis:
		rb, err := NewRedisBoard(ctx, cfg.Stub.RedisURL, "")
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		board = rb
	default:
		board = NewMemoryBoard()
	}

	h := NewHandlers(Deps{
		Users: NewUsers(),
		Tokens: NewTokens(TokenConfig{
			Secret:     cfg.Stub.JWTSecret,
			Issuer:     cfg.Stub.Issuer,
			AccessTTL:  cfg.Stub.AccessTTL,
			RefreshTTL: cfg.Stub.RefreshTTL,
		}),
		Quizzes: NewQuizzes(),
		Board:   board,
	})

	var metrics *middleware.HTTPMetrics
	if reg != nil {
		metrics = middleware.NewHTTPMetrics(reg)
	}

	return &Server{
		handler: NewRouter(h, Options{Logger: log, Timeout: cfg.Timeouts.Request, Metrics: metrics}),
		board:   board,
	}, nil
}

func (s *Server) Handler() http.Handler { return s.handler }

// Close освобождает соединение с Redis (для memory — no-op).
func (s *Server) Close() error { return s.board.Close() }
