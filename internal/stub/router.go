package stub

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/pribylovaa/go-quiz-client/internal/stub/middleware"
)

// Options — параметры сборки HTTP-роутера стаба.
type Options struct {
	Logger  *slog.Logger
	Timeout time.Duration
	Metrics *middleware.HTTPMetrics
}

// NewRouter собирает http.Handler стаба с chi и подключёнными middleware/роутами.
func NewRouter(h *Handlers, opts Options) http.Handler {
	root := chi.NewRouter()

	// Middleware (внешний -> внутренний).
	root.Use(
		middleware.Recover(),
		middleware.RequestID(), // до логирования: id попадает в логгер запроса
		middleware.Logging(opts.Logger),
		middleware.Metrics(opts.Metrics),
		middleware.Timeout(opts.Timeout), // 504 пишется внутри Logging/Metrics
	)

	root.Mount("/api/auth", authRoutes(h))
	// refresh шлюза ходит без префикса /api.
	root.Mount("/auth", authRoutes(h))

	root.Route("/api/quiz", func(r chi.Router) { registerQuizRoutes(r, h) })
	root.Route("/api/leaderboard", func(r chi.Router) { registerLeaderboardRoutes(r, h) })

	return root
}

func authRoutes(h *Handlers) chi.Router {
	r := chi.NewRouter()

	r.Post("/register", h.Register)
	r.Post("/login", h.Login)
	r.Post("/refresh", h.Refresh)
	r.Get("/user/{user_id}", h.UserByID)
	r.With(middleware.RequireBearer(h.tokens.ValidateAccess)).Post("/profile", h.Profile)

	return r
}

func registerQuizRoutes(r chi.Router, h *Handlers) {
	r.Use(middleware.RequireBearer(h.tokens.ValidateAccess))

	r.Post("/", h.CreateQuiz)
	r.Get("/search", h.SearchQuizzes)
	r.Get("/search/", h.SearchQuizzes)
	r.Get("/tags", h.Tags)
	r.Get("/tags/", h.Tags)
	r.Post("/generate-with-ai", h.GenerateWithAI)
	r.Get("/user/{user_id}", h.UserQuizzes)
	r.Get("/user/{user_id}/count", h.UserQuizCount)
	r.Get("/{quiz_id}", h.GetQuiz)
	r.Put("/{quiz_id}", h.UpdateQuiz)
	r.Delete("/{quiz_id}", h.DeleteQuiz)
	r.Post("/{quiz_id}/calculate-result", h.CalculateResult)
}

func registerLeaderboardRoutes(r chi.Router, h *Handlers) {
	// чтение чужих баллов и соседей не требует входа.
	r.Get("/user/{user_id}/score", h.UserScore)
	r.Get("/user/{user_id}/around", h.Around)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireBearer(h.tokens.ValidateAccess))

		r.Get("/", h.Leaderboard)
		r.Post("/user/{user_id}/score", h.SetScore)
		r.Delete("/user/{user_id}", h.RemoveUser)
		r.Delete("/clear", h.ClearLeaderboard)
	})
}
