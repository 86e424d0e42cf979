package transport

import (
	"log/slog"
	"net/http"
	"time"

	logctx "github.com/pribylovaa/go-quiz-client/pkg/log"
)

// WithLogging — логирование исходящих HTTP-вызовов.
// Поведение:
//   - берёт X-Request-Id из заголовков запроса (его выставляет WithMetadata);
//   - прокладывает обогащённый логгер (request_id, method, path) в контекст запроса;
//   - пишет одну финальную запись: msg="http_client", status, dur
//     (Info для ответа, Warn для транспортной ошибки).
//
// Безопасность: не логирует тело и заголовок Authorization.
func WithLogging(base *slog.Logger) Middleware {
	if base == nil {
		base = slog.Default()
	}

	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
			start := time.Now()

			rid := r.Header.Get(HeaderRequestID)
			if rid == "" {
				rid = "-"
			}

			l := base.With(
				slog.String("request_id", rid),
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
			)
			ctx := logctx.Into(r.Context(), l)

			resp, err := next.RoundTrip(r.WithContext(ctx))
			dur := time.Since(start)

			if err != nil {
				l.LogAttrs(ctx, slog.LevelWarn, "http_client",
					slog.String("err", err.Error()),
					slog.Duration("dur", dur),
				)
				return nil, err
			}

			l.LogAttrs(ctx, slog.LevelInfo, "http_client",
				slog.Int("status", resp.StatusCode),
				slog.Duration("dur", dur),
			)

			return resp, nil
		})
	}
}
