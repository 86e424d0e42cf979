// Package gateway — аутентифицированный шлюз запросов к API.
//
// Каждая операция Do проходит конечный автомат
// Authenticated -> (401) -> Refreshing -> Authenticated -> (401) -> Unauthenticated
// и поэтому делает не больше одного refresh и одного повтора запроса.
// Ответы со статусом, отличным от 401, возвращаются вызывающему как есть.
// Единственная ошибка аутентификации — ErrAuthFailed: при ней сессия
// очищается, а внешнему слою сообщается через Options.OnInvalidated.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pribylovaa/go-quiz-client/internal/session"
	logctx "github.com/pribylovaa/go-quiz-client/pkg/log"
	"golang.org/x/net/http/httpguts"
	"golang.org/x/sync/singleflight"
)

// DefaultRefreshPath — эндпоинт обмена refresh-токена.
const DefaultRefreshPath = "/auth/refresh"

// maxDrain — сколько байт тела 401-ответа дочитываем перед закрытием.
const maxDrain = 64 << 10

var (
	// ErrAuthFailed — аутентификация невозможна, сессия очищена.
	ErrAuthFailed = errors.New("authentication failed")

	// Причины ErrAuthFailed; возвращаются вместе с ним.
	ErrNoCredential      = errors.New("no valid access credential")
	ErrRefreshFailed     = errors.New("credential refresh failed")
	ErrUnauthorizedRetry = errors.New("request unauthorized after refresh")

	errNoRefreshToken   = errors.New("no valid refresh credential")
	errMalformedRefresh = errors.New("refresh response carries malformed credentials")
	errRefreshStatus    = errors.New("refresh rejected")
	errInvalidBaseURL   = errors.New("invalid base url")
	errNilSession       = errors.New("nil session")
)

// Options — необязательные зависимости шлюза.
type Options struct {
	// HTTPClient — клиент для всех вызовов; nil — &http.Client{}.
	HTTPClient *http.Client
	// RefreshPath — путь refresh относительно baseURL; "" — DefaultRefreshPath.
	RefreshPath string
	// OnInvalidated вызывается один раз на каждом проходе терминального пути,
	// после очистки сессии. reason — одна из причин ErrAuthFailed.
	OnInvalidated func(ctx context.Context, reason error)
	// Metrics — nil отключает сбор метрик.
	Metrics *Metrics
}

// Gateway выполняет запросы к API от имени текущей сессии.
type Gateway struct {
	baseURL       string
	sess          *session.Session
	hc            *http.Client
	refreshPath   string
	onInvalidated func(context.Context, error)
	metrics       *Metrics
	flight        singleflight.Group
}

// New создаёт шлюз. baseURL — абсолютный http(s) URL API.
func New(baseURL string, sess *session.Session, opts Options) (*Gateway, error) {
	const op = "gateway.New"

	if sess == nil {
		return nil, fmt.Errorf("%s: %w", op, errNilSession)
	}

	u, err := url.Parse(baseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%s: %w: %q", op, errInvalidBaseURL, baseURL)
	}

	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{}
	}

	rp := opts.RefreshPath
	if rp == "" {
		rp = DefaultRefreshPath
	}

	return &Gateway{
		baseURL:       strings.TrimRight(baseURL, "/"),
		sess:          sess,
		hc:            hc,
		refreshPath:   rp,
		onInvalidated: opts.OnInvalidated,
		metrics:       opts.Metrics,
	}, nil
}

// Session возвращает сессию, от имени которой работает шлюз.
func (g *Gateway) Session() *session.Session { return g.sess }

type authState int

const (
	stateUnauthenticated authState = iota
	stateAuthenticated
	stateRefreshing
)

// Do выполняет один логический вызов API с текущими учётными данными.
//
// body кодируется в JSON один раз ([]byte и json.RawMessage уходят как есть)
// и повторно используется при повторе. headers с непечатными значениями
// молча отбрасываются. Ответ, отличный от 401, возвращается без изменений;
// закрыть его тело должен вызывающий.
//
// Ошибки: ErrAuthFailed (вместе с причиной) — терминальный путь;
// ошибка контекста — отмена, сессия не трогается; session.ErrSessionChanged —
// во время вызова выполнен вход или выход, новая сессия не трогается;
// прочее — транспорт.
func (g *Gateway) Do(ctx context.Context, method, path string, body any, headers map[string]string) (*http.Response, error) {
	const op = "gateway.Do"

	payload, err := encodeBody(body)
	if err != nil {
		return nil, fmt.Errorf("%s: encode body: %w", op, err)
	}

	var (
		reason    error
		refreshed bool
		st        = stateAuthenticated
	)

	cred, ok := g.sess.Credential(ctx)
	if !ok {
		st, reason = stateUnauthenticated, ErrNoCredential
	}

	for {
		switch st {
		case stateAuthenticated:
			resp, err := g.send(ctx, method, path, payload, headers, cred.AccessToken)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", op, err)
			}
			if resp.StatusCode != http.StatusUnauthorized {
				return resp, nil
			}
			drain(resp)

			if refreshed {
				st, reason = stateUnauthenticated, ErrUnauthorizedRetry
				continue
			}
			st = stateRefreshing

		case stateRefreshing:
			newTok, err := g.refresh(ctx, cred)
			if err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return nil, fmt.Errorf("%s: %w", op, ctxErr)
				}
				// Вход или выход во время вызова: новую сессию не очищаем.
				if errors.Is(err, session.ErrSessionChanged) {
					logctx.From(ctx).Info("gateway_session_changed", slog.String("op", op))
					return nil, fmt.Errorf("%s: %w", op, err)
				}
				logctx.From(ctx).Warn("gateway_refresh_failed",
					slog.String("op", op),
					slog.String("err", err.Error()),
				)
				st, reason = stateUnauthenticated, fmt.Errorf("%w: %w", ErrRefreshFailed, err)
				continue
			}
			cred.AccessToken, refreshed, st = newTok, true, stateAuthenticated

		case stateUnauthenticated:
			return nil, g.invalidate(ctx, op, reason)
		}
	}
}

// Get — Do с методом GET без тела.
func (g *Gateway) Get(ctx context.Context, path string, headers map[string]string) (*http.Response, error) {
	return g.Do(ctx, http.MethodGet, path, nil, headers)
}

// Post — Do с методом POST; body кодируется в JSON.
func (g *Gateway) Post(ctx context.Context, path string, body any, headers map[string]string) (*http.Response, error) {
	return g.Do(ctx, http.MethodPost, path, body, headers)
}

// Put — Do с методом PUT; body кодируется в JSON.
func (g *Gateway) Put(ctx context.Context, path string, body any, headers map[string]string) (*http.Response, error) {
	return g.Do(ctx, http.MethodPut, path, body, headers)
}

// Delete — Do с методом DELETE без тела.
func (g *Gateway) Delete(ctx context.Context, path string, headers map[string]string) (*http.Response, error) {
	return g.Do(ctx, http.MethodDelete, path, nil, headers)
}

// Anonymous выполняет вызов без учётных данных и без refresh-логики
// (login/register). Ответ возвращается как есть при любом статусе.
func (g *Gateway) Anonymous(ctx context.Context, method, path string, body any, headers map[string]string) (*http.Response, error) {
	const op = "gateway.Anonymous"

	payload, err := encodeBody(body)
	if err != nil {
		return nil, fmt.Errorf("%s: encode body: %w", op, err)
	}

	resp, err := g.send(ctx, method, path, payload, headers, "")
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return resp, nil
}

// invalidate — терминальный путь: очистка сессии, уведомление, ErrAuthFailed.
func (g *Gateway) invalidate(ctx context.Context, op string, reason error) error {
	lg := logctx.From(ctx)

	// Очистка не должна сорваться из-за отменённого контекста вызова.
	if err := g.sess.Clear(context.WithoutCancel(ctx)); err != nil {
		lg.Error("session_clear_failed",
			slog.String("op", op),
			slog.String("err", err.Error()),
		)
	}

	g.metrics.observeAuthFailure(reasonLabel(reason))
	lg.Warn("session_invalidated",
		slog.String("op", op),
		slog.String("reason", reason.Error()),
	)

	if g.onInvalidated != nil {
		g.onInvalidated(ctx, reason)
	}

	return fmt.Errorf("%s: %w: %w", op, ErrAuthFailed, reason)
}

func reasonLabel(reason error) string {
	switch {
	case errors.Is(reason, ErrNoCredential):
		return "no_credential"
	case errors.Is(reason, ErrRefreshFailed):
		return "refresh_failed"
	case errors.Is(reason, ErrUnauthorizedRetry):
		return "retry_unauthorized"
	}
	return "other"
}

// send — один сетевой вызов. tok == "" — без Authorization.
func (g *Gateway) send(ctx context.Context, method, path string, payload []byte, headers map[string]string, tok string) (*http.Response, error) {
	var rdr io.Reader
	if payload != nil {
		rdr = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, g.url(path), rdr)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		if !httpguts.ValidHeaderFieldName(k) || !printable(v) {
			continue
		}
		req.Header.Set(k, v)
	}
	if tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	} else {
		req.Header.Del("Authorization")
	}

	start := time.Now()
	resp, err := g.hc.Do(req)
	if err != nil {
		g.metrics.observeRequest(method, 0, time.Since(start))
		return nil, err
	}
	g.metrics.observeRequest(method, resp.StatusCode, time.Since(start))

	return resp, nil
}

func (g *Gateway) url(path string) string {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return g.baseURL + path
}

func encodeBody(body any) ([]byte, error) {
	switch b := body.(type) {
	case nil:
		return nil, nil
	case []byte:
		return b, nil
	case json.RawMessage:
		return b, nil
	default:
		return json.Marshal(b)
	}
}

// printable — каждый байт значения в 0x20..0x7E. Пустое значение допустимо.
func printable(s string) bool {
	return s == "" || session.ValidToken(s)
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxDrain))
	_ = resp.Body.Close()
}
