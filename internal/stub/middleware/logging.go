package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	logctx "github.com/pribylovaa/go-quiz-client/pkg/log"
)

// Logging пишет одну запись "http" на запрос: маршрут chi, статус,
// длительность, размер ответа и ID пользователя, если RequireBearer его
// установил. Уровень зависит от статуса: 5xx — Error, 4xx — Warn.
// Логгер с request_id кладётся в контекст для хендлеров.
func Logging(l *slog.Logger) Middleware {
	if l == nil {
		l = slog.Default()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqLogger := l
			if rid := RequestIDFrom(r.Context()); rid != "" {
				reqLogger = reqLogger.With(slog.String("request_id", rid))
			}

			ex := &exchange{}
			ctx := context.WithValue(logctx.Into(r.Context(), reqLogger), ctxExchange, ex)
			r = r.WithContext(ctx)

			sw := newStatusWriter(w)
			start := time.Now()
			next.ServeHTTP(sw, r)

			status := sw.code()
			attrs := []slog.Attr{
				slog.String("method", r.Method),
				slog.String("route", routePattern(r)),
				slog.String("path", r.URL.Path),
				slog.Int("status", status),
				slog.Duration("dur", time.Since(start)),
				slog.Int("bytes", sw.count),
			}
			if ex.userID != "" {
				attrs = append(attrs, slog.String("user_id", ex.userID))
			}

			reqLogger.LogAttrs(ctx, levelFor(status), "http", attrs...)
		})
	}
}

func levelFor(status int) slog.Level {
	switch {
	case status >= http.StatusInternalServerError:
		return slog.LevelError
	case status >= http.StatusBadRequest:
		return slog.LevelWarn
	}
	return slog.LevelInfo
}

// routePattern — шаблон маршрута chi ("/api/quiz/{quiz_id}") или "unmatched".
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			return p
		}
	}
	return "unmatched"
}
