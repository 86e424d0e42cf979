package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/pribylovaa/go-quiz-client/internal/apierrors"
)

// TokenValidator проверяет access-токен и возвращает ID пользователя.
type TokenValidator func(token string) (userID string, err error)

// RequireBearer пропускает запрос дальше только с валидным
// Authorization: Bearer <token>; ID пользователя кладётся в контекст (UserIDFrom).
// Иначе — 401 {"detail": "Could not validate credentials"} и WWW-Authenticate: Bearer.
func RequireBearer(validate TokenValidator) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			const prefix = "Bearer "

			auth := r.Header.Get("Authorization")
			if !strings.HasPrefix(auth, prefix) {
				unauthorized(w, r)
				return
			}

			token := strings.TrimSpace(auth[len(prefix):])
			if token == "" {
				unauthorized(w, r)
				return
			}

			uid, err := validate(token)
			if err != nil || uid == "" {
				unauthorized(w, r)
				return
			}

			if ex := exchangeFrom(r.Context()); ex != nil {
				ex.userID = uid
			}

			ctx := context.WithValue(r.Context(), ctxUserID, uid)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func unauthorized(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("WWW-Authenticate", "Bearer")
	apierrors.WriteError(w, r, apierrors.Detail(apierrors.ErrUnauthenticated, "Could not validate credentials"))
}

// UserIDFrom возвращает ID аутентифицированного пользователя или "".
func UserIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(ctxUserID).(string)
	return id
}

// WithUserID кладёт ID пользователя в контекст (тесты хендлеров).
func WithUserID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxUserID, id)
}
