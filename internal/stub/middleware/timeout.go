package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/pribylovaa/go-quiz-client/internal/apierrors"
	logctx "github.com/pribylovaa/go-quiz-client/pkg/log"
)

// Timeout ограничивает время хендлера (в т.ч. походы RedisBoard в Redis).
// Запрос с уже заданным deadline не трогается; d <= 0 — no-op.
// Хендлер, не успевший ответить до deadline, получает за себя
// 504 {"detail": "request timed out"}.
func Timeout(d time.Duration) Middleware {
	return func(next http.Handler) http.Handler {
		if d <= 0 {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := r.Context().Deadline(); ok {
				next.ServeHTTP(w, r)
				return
			}

			ctx, cancel := context.WithTimeout(r.Context(), d)
			defer cancel()

			sw := newStatusWriter(w)
			next.ServeHTTP(sw, r.WithContext(ctx))

			if sw.written() || !errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return
			}

			logctx.From(ctx).Warn("request_timeout",
				slog.String("route", routePattern(r)),
				slog.Duration("limit", d),
			)
			apierrors.WriteError(sw, r, apierrors.Detail(apierrors.ErrTimeout, "request timed out"))
		})
	}
}
