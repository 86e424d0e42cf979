package transport

import (
	"net/http"

	"github.com/google/uuid"
)

// WithMetadata добавляет в исходящий запрос заголовки:
//   - X-Request-Id (сохраняется, если уже задан; иначе генерируется UUID),
//   - User-Agent (если передан параметром).
//
// Исходный запрос не модифицируется: RoundTripper работает с клоном.
func WithMetadata(userAgent string) Middleware {
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
			r = r.Clone(r.Context())

			if r.Header.Get(HeaderRequestID) == "" {
				r.Header.Set(HeaderRequestID, uuid.NewString())
			}
			if userAgent != "" {
				r.Header.Set("User-Agent", userAgent)
			}

			return next.RoundTrip(r)
		})
	}
}
