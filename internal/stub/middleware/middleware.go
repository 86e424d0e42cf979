// Package middleware — net/http мидлвары dev-стаба API.
package middleware

import (
	"context"
	"net/http"
)

// Middleware — стандартный net/http мидлвар (совместим с chi.Router.Use).
type Middleware func(http.Handler) http.Handler

type ctxKey string

const (
	ctxRequestID ctxKey = "request_id"
	ctxUserID    ctxKey = "user_id"
	ctxExchange  ctxKey = "exchange"
)

// exchange — сведения о запросе, которые внутренние мидлвары (RequireBearer)
// оставляют для внешних (Logging): контекст наружу не возвращается.
type exchange struct {
	userID string
}

func exchangeFrom(ctx context.Context) *exchange {
	ex, _ := ctx.Value(ctxExchange).(*exchange)
	return ex
}

// statusWriter оборачивает ResponseWriter, чтобы перехватить статус и размер.
type statusWriter struct {
	http.ResponseWriter
	status int
	count  int
}

func (w *statusWriter) WriteHeader(code int) {
	if w.status == 0 {
		w.status = code
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Write(p []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}

	count, err := w.ResponseWriter.Write(p)
	w.count += count
	return count, err
}

// written — хендлер уже начал ответ.
func (w *statusWriter) written() bool { return w.status != 0 }

// code — статус ответа; хендлер, не записавший ничего, отвечает 200.
func (w *statusWriter) code() int {
	if w.status == 0 {
		return http.StatusOK
	}
	return w.status
}

// newStatusWriter не оборачивает повторно: внешний мидлвар видит те же
// status/count, что и внутренний.
func newStatusWriter(w http.ResponseWriter) *statusWriter {
	if sw, ok := w.(*statusWriter); ok {
		return sw
	}
	return &statusWriter{ResponseWriter: w}
}
