package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/pribylovaa/go-quiz-client/internal/models"
	"github.com/pribylovaa/go-quiz-client/internal/session"
	logctx "github.com/pribylovaa/go-quiz-client/pkg/log"
)

// maxRefreshBody — верхняя граница тела ответа refresh.
const maxRefreshBody = 64 << 10

// refreshResponse — тело ответа refresh. RefreshToken — указатель:
// отсутствие поля и невалидное значение обрабатываются по-разному.
type refreshResponse struct {
	AccessToken  string  `json:"access_token"`
	RefreshToken *string `json:"refresh_token"`
}

// refresh возвращает access-токен, которым можно повторить запрос,
// получивший 401 с учётными данными stale.
//
//   - если с момента чтения stale был выполнен вход или выход,
//     возвращается session.ErrSessionChanged: чужие токены не используются;
//   - если в сессии уже лежит другой валидный access-токен (его получила
//     параллельная операция), он используется без сетевого вызова;
//   - иначе одновременные refresh с одним и тем же refresh-токеном
//     объединяются в один сетевой вызов (singleflight).
//
// Общий вызов не отменяется вместе с контекстом одного из ожидающих.
func (g *Gateway) refresh(ctx context.Context, stale session.Credential) (string, error) {
	cur, ok := g.sess.Credential(ctx)
	if cur.Generation != stale.Generation {
		g.metrics.observeRefresh("session_changed")
		return "", session.ErrSessionChanged
	}
	if ok && cur.AccessToken != stale.AccessToken {
		g.metrics.observeRefresh("reused")
		logctx.From(ctx).Debug("gateway_refresh_reused")
		return cur.AccessToken, nil
	}

	rt := cur.RefreshToken
	if rt == "" {
		g.metrics.observeRefresh("no_credential")
		return "", errNoRefreshToken
	}

	fctx := context.WithoutCancel(ctx)
	ch := g.flight.DoChan(rt, func() (any, error) {
		// Между чтением токенов и стартом вызова параллельный refresh мог завершиться.
		if cur, ok := g.sess.Credential(fctx); ok && cur.Generation == stale.Generation && cur.AccessToken != stale.AccessToken {
			g.metrics.observeRefresh("reused")
			return cur.AccessToken, nil
		}
		return g.exchange(fctx, rt, stale.Generation)
	})

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	}
}

// exchange — один POST на refresh-эндпоинт и ротация токенов в сессии
// поколения gen.
func (g *Gateway) exchange(ctx context.Context, rt string, gen uint64) (string, error) {
	const op = "gateway.exchange"

	lg := logctx.From(ctx)

	resp, err := g.send(ctx, http.MethodPost, g.refreshPath, mustJSON(models.AuthRefreshRequest{RefreshToken: rt}), nil, "")
	if err != nil {
		g.metrics.observeRefresh("error")
		return "", fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxDrain))
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		g.metrics.observeRefresh("rejected")
		return "", fmt.Errorf("%s: %w: status %d", op, errRefreshStatus, resp.StatusCode)
	}

	var out refreshResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxRefreshBody)).Decode(&out); err != nil {
		g.metrics.observeRefresh("invalid")
		return "", fmt.Errorf("%s: decode: %w", op, err)
	}

	// access-токен обязателен; refresh-токен проверяется, только если он пришёл.
	pair := session.TokenPair{AccessToken: out.AccessToken}
	if out.RefreshToken != nil {
		if !session.ValidToken(*out.RefreshToken) {
			g.metrics.observeRefresh("invalid")
			return "", fmt.Errorf("%s: %w", op, errMalformedRefresh)
		}
		pair.RefreshToken = *out.RefreshToken
	}
	if !session.ValidToken(pair.AccessToken) {
		g.metrics.observeRefresh("invalid")
		return "", fmt.Errorf("%s: %w", op, errMalformedRefresh)
	}

	// Без нового refresh-токена сохранённый стирается: он уже израсходован.
	if err := g.sess.RotateIfCurrent(ctx, gen, pair); err != nil {
		if errors.Is(err, session.ErrSessionChanged) {
			g.metrics.observeRefresh("session_changed")
		} else {
			g.metrics.observeRefresh("error")
		}
		return "", fmt.Errorf("%s: %w", op, err)
	}

	g.metrics.observeRefresh("success")
	lg.Info("gateway_refreshed",
		slog.String("op", op),
		slog.Bool("refresh_rotated", pair.RefreshToken != ""),
	)

	return out.AccessToken, nil
}

func mustJSON(v any) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return b
}
