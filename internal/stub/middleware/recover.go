package middleware

import (
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/pribylovaa/go-quiz-client/internal/apierrors"
	logctx "github.com/pribylovaa/go-quiz-client/pkg/log"
)

// Recover перехватывает panic хендлера. Клиент получает 500 с request id
// в detail, чтобы его можно было найти в логе; текст паники не утекает.
// Если ответ уже начат, запись только логируется.
func Recover() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sw := newStatusWriter(w)

			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}

				// Recover стоит снаружи RequestID: id берётся из заголовка,
				// который RequestID дописывает в общий http.Header запроса.
				rid := r.Header.Get("X-Request-Id")
				logctx.From(r.Context()).LogAttrs(r.Context(), slog.LevelError, "handler_panic",
					slog.String("request_id", rid),
					slog.String("route", routePattern(r)),
					slog.Any("reason", rec),
					slog.String("stack", string(debug.Stack())),
				)

				if sw.written() {
					return
				}

				detail := "internal error"
				if rid != "" {
					detail = fmt.Sprintf("internal error (request %s)", rid)
				}
				apierrors.WriteError(sw, r, apierrors.Detail(apierrors.ErrInternal, detail))
			}()

			next.ServeHTTP(sw, r)
		})
	}
}
