// Package transport предоставляет набор мидлваров http.RoundTripper для
// исходящих вызовов клиента: метаданные запроса, таймаут и логирование.
package transport

import "net/http"

// HeaderRequestID — заголовок корреляции запросов.
const HeaderRequestID = "X-Request-Id"

// Middleware оборачивает http.RoundTripper.
type Middleware func(http.RoundTripper) http.RoundTripper

// RoundTripperFunc — адаптер функции к http.RoundTripper.
type RoundTripperFunc func(*http.Request) (*http.Response, error)

func (f RoundTripperFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

// Chain применяет мидлвары к base в порядке их перечисления:
// первый в списке выполняется первым. nil base заменяется на http.DefaultTransport.
func Chain(base http.RoundTripper, mws ...Middleware) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}

	rt := base
	for i := len(mws) - 1; i >= 0; i-- {
		rt = mws[i](rt)
	}

	return rt
}
