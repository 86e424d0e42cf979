package gateway

// Тесты шлюза (internal/gateway).
//
//  Проверяем:
//  - сквозную передачу любых ответов, кроме 401, ровно одним вызовом;
//  - терминальный путь без токена: ноль сетевых вызовов, очистка, хук;
//  - 401 -> refresh -> один повтор с новым токеном;
//  - неуспешный refresh (статус, битый токен, нет refresh_token): ровно один
//    refresh, ноль повторов, очистка сессии;
//  - повторный 401 после refresh: без второго refresh;
//  - идемпотентность терминального пути;
//  - фильтр заголовков и повтор тела;
//  - объединение параллельных refresh;
//  - отмену контекста (сессия сохраняется);
//  - метрики.
//
// Запуск:
//   go test ./internal/gateway -v -race -count=1

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/pribylovaa/go-quiz-client/internal/session"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeAPI — httptest-сервер с раздельными счётчиками ресурсных и refresh-вызовов.
type fakeAPI struct {
	mu            sync.Mutex
	resourceCalls int
	refreshCalls  int
	authSeen      []string
	bodies        []string
	headers       []http.Header
	refreshBodies []string

	resource func(w http.ResponseWriter, r *http.Request, call int)
	refresh  func(w http.ResponseWriter, r *http.Request, call int)
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b, _ := io.ReadAll(r.Body)

	f.mu.Lock()
	if r.URL.Path == DefaultRefreshPath {
		f.refreshCalls++
		call := f.refreshCalls
		f.refreshBodies = append(f.refreshBodies, string(b))
		f.mu.Unlock()
		f.refresh(w, r, call)
		return
	}
	f.resourceCalls++
	call := f.resourceCalls
	f.authSeen = append(f.authSeen, r.Header.Get("Authorization"))
	f.bodies = append(f.bodies, string(b))
	f.headers = append(f.headers, r.Header.Clone())
	f.mu.Unlock()
	f.resource(w, r, call)
}

func (f *fakeAPI) counts() (resource, refresh int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.resourceCalls, f.refreshCalls
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// okUnlessT1 — 401 для старого токена T1, 200 для любого другого.
func okUnlessT1(w http.ResponseWriter, r *http.Request, _ int) {
	if r.Header.Get("Authorization") == "Bearer T1" {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Could not validate credentials"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"ok": "yes"})
}

func refreshOK(w http.ResponseWriter, _ *http.Request, _ int) {
	writeJSON(w, http.StatusOK, map[string]string{"access_token": "T2", "refresh_token": "R2"})
}

func refreshNeverCalled(t *testing.T) func(http.ResponseWriter, *http.Request, int) {
	return func(w http.ResponseWriter, _ *http.Request, _ int) {
		t.Errorf("refresh must not be called")
		w.WriteHeader(http.StatusInternalServerError)
	}
}

type hookRec struct {
	mu      sync.Mutex
	reasons []error
}

func (h *hookRec) fn(_ context.Context, reason error) {
	h.mu.Lock()
	h.reasons = append(h.reasons, reason)
	h.mu.Unlock()
}

func (h *hookRec) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.reasons)
}

type env struct {
	api   *fakeAPI
	srv   *httptest.Server
	store *session.MemoryStore
	sess  *session.Session
	gw    *Gateway
	hook  *hookRec
	m     *Metrics
}

func newEnv(t *testing.T, api *fakeAPI) *env {
	t.Helper()

	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)

	store := session.NewMemoryStore()
	sess := session.New(store, "")
	hook := &hookRec{}
	m := NewMetrics(prometheus.NewRegistry())

	gw, err := New(srv.URL, sess, Options{
		HTTPClient:    srv.Client(),
		OnInvalidated: hook.fn,
		Metrics:       m,
	})
	require.NoError(t, err)

	return &env{api: api, srv: srv, store: store, sess: sess, gw: gw, hook: hook, m: m}
}

func (e *env) login(t *testing.T, access, refresh string) {
	t.Helper()
	require.NoError(t, e.sess.Establish(context.Background(),
		session.TokenPair{AccessToken: access, RefreshToken: refresh},
		session.User{ID: "u1", Email: "a@b.com"}))
}

func (e *env) requireCleared(t *testing.T) {
	t.Helper()
	_, ok, err := e.store.Get(context.Background(), session.DefaultKey)
	require.NoError(t, err)
	require.False(t, ok, "session record must be erased")
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(b)
}

// Валидный токен и ответ не-401: ответ без изменений, ровно один вызов.
func TestDo_PassThroughNon401(t *testing.T) {
	t.Parallel()

	for _, status := range []int{http.StatusOK, http.StatusCreated, http.StatusForbidden, http.StatusNotFound, http.StatusUnprocessableEntity, http.StatusInternalServerError} {
		status := status
		t.Run(http.StatusText(status), func(t *testing.T) {
			t.Parallel()

			api := &fakeAPI{
				resource: func(w http.ResponseWriter, _ *http.Request, _ int) {
					writeJSON(w, status, map[string]string{"detail": "payload"})
				},
				refresh: refreshNeverCalled(t),
			}
			e := newEnv(t, api)
			e.login(t, "T1", "R1")

			resp, err := e.gw.Get(context.Background(), "/api/quiz/1", nil)
			require.NoError(t, err)
			require.Equal(t, status, resp.StatusCode)
			require.JSONEq(t, `{"detail":"payload"}`, readBody(t, resp))

			res, ref := api.counts()
			require.Equal(t, 1, res)
			require.Equal(t, 0, ref)
			require.Equal(t, []string{"Bearer T1"}, api.authSeen)
			require.Equal(t, "application/json", api.headers[0].Get("Content-Type"))
			require.Equal(t, 0, e.hook.count())

			at, ok := e.sess.AccessToken(context.Background())
			require.True(t, ok)
			require.Equal(t, "T1", at)
		})
	}
}

// Без токена: ноль сетевых вызовов, терминальный путь.
func TestDo_NoCredential_ZeroCalls(t *testing.T) {
	t.Parallel()

	api := &fakeAPI{
		resource: func(w http.ResponseWriter, _ *http.Request, _ int) {
			t.Errorf("resource must not be called")
		},
		refresh: refreshNeverCalled(t),
	}
	e := newEnv(t, api)

	_, err := e.gw.Get(context.Background(), "/api/quiz/1", nil)
	require.ErrorIs(t, err, ErrAuthFailed)
	require.ErrorIs(t, err, ErrNoCredential)

	res, ref := api.counts()
	require.Equal(t, 0, res)
	require.Equal(t, 0, ref)
	require.Equal(t, 1, e.hook.count())
	require.ErrorIs(t, e.hook.reasons[0], ErrNoCredential)
	require.Equal(t, 1.0, testutil.ToFloat64(e.m.authFailures.WithLabelValues("no_credential")))
}

// Токен с байтом вне 0x20..0x7E в хранилище == отсутствие токена.
func TestDo_StoredNonPrintableToken_TreatedAsMissing(t *testing.T) {
	t.Parallel()

	api := &fakeAPI{
		resource: func(w http.ResponseWriter, _ *http.Request, _ int) {
			t.Errorf("resource must not be called")
		},
		refresh: refreshNeverCalled(t),
	}
	e := newEnv(t, api)

	raw, err := json.Marshal(session.Record{State: session.State{AccessToken: "T\x01", RefreshToken: "R1", IsAuthenticated: true}})
	require.NoError(t, err)
	require.NoError(t, e.store.Put(context.Background(), session.DefaultKey, raw))

	_, err = e.gw.Get(context.Background(), "/api/quiz/1", nil)
	require.ErrorIs(t, err, ErrAuthFailed)
	e.requireCleared(t)
}

// Пример: 401, затем refresh {T2,R2} — один повтор с Bearer T2, сессия обновлена.
func TestDo_401_RefreshSucceeds_RetriesOnce(t *testing.T) {
	t.Parallel()

	api := &fakeAPI{resource: okUnlessT1, refresh: refreshOK}
	e := newEnv(t, api)
	e.login(t, "T1", "R1")

	resp, err := e.gw.Get(context.Background(), "/api/leaderboard/", nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.JSONEq(t, `{"ok":"yes"}`, readBody(t, resp))

	res, ref := api.counts()
	require.Equal(t, 2, res, "original call + exactly one retry")
	require.Equal(t, 1, ref)
	require.Equal(t, []string{"Bearer T1", "Bearer T2"}, api.authSeen)
	require.JSONEq(t, `{"refresh_token":"R1"}`, api.refreshBodies[0])

	st, err := e.sess.State(context.Background())
	require.NoError(t, err)
	require.Equal(t, "T2", st.AccessToken)
	require.Equal(t, "R2", st.RefreshToken)
	require.True(t, st.IsAuthenticated)
	require.Equal(t, &session.User{ID: "u1", Email: "a@b.com"}, st.User)

	require.Equal(t, 0, e.hook.count())
	require.Equal(t, 1.0, testutil.ToFloat64(e.m.refreshes.WithLabelValues("success")))
	require.Equal(t, 1.0, testutil.ToFloat64(e.m.requests.WithLabelValues(http.MethodGet, "401")))
	require.Equal(t, 1.0, testutil.ToFloat64(e.m.requests.WithLabelValues(http.MethodGet, "200")))
}

// Неуспешный refresh: ровно один refresh, ноль повторов, очистка, ErrAuthFailed.
func TestDo_401_RefreshFails(t *testing.T) {
	t.Parallel()

	tcs := []struct {
		name    string
		refresh func(http.ResponseWriter, *http.Request, int)
		metric  string
	}{
		{
			name: "status_401",
			refresh: func(w http.ResponseWriter, _ *http.Request, _ int) {
				writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Invalid refresh token"})
			},
			metric: "rejected",
		},
		{
			name: "status_500",
			refresh: func(w http.ResponseWriter, _ *http.Request, _ int) {
				w.WriteHeader(http.StatusInternalServerError)
			},
			metric: "rejected",
		},
		{
			name: "non_ascii_access_token",
			refresh: func(w http.ResponseWriter, _ *http.Request, _ int) {
				writeJSON(w, http.StatusOK, map[string]string{"access_token": "Tä2", "refresh_token": "R2"})
			},
			metric: "invalid",
		},
		{
			name: "control_char_refresh_token",
			refresh: func(w http.ResponseWriter, _ *http.Request, _ int) {
				writeJSON(w, http.StatusOK, map[string]string{"access_token": "T2", "refresh_token": "R\n2"})
			},
			metric: "invalid",
		},
		{
			name: "empty_refresh_token",
			refresh: func(w http.ResponseWriter, _ *http.Request, _ int) {
				writeJSON(w, http.StatusOK, map[string]string{"access_token": "T2", "refresh_token": ""})
			},
			metric: "invalid",
		},
		{
			name: "missing_access_token",
			refresh: func(w http.ResponseWriter, _ *http.Request, _ int) {
				writeJSON(w, http.StatusOK, map[string]string{"refresh_token": "R2"})
			},
			metric: "invalid",
		},
		{
			name: "not_json",
			refresh: func(w http.ResponseWriter, _ *http.Request, _ int) {
				w.WriteHeader(http.StatusOK)
				_, _ = w.Write([]byte("<html>"))
			},
			metric: "invalid",
		},
	}

	for _, tc := range tcs {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			api := &fakeAPI{resource: okUnlessT1, refresh: tc.refresh}
			e := newEnv(t, api)
			e.login(t, "T1", "R1")

			_, err := e.gw.Get(context.Background(), "/api/quiz/1", nil)
			require.ErrorIs(t, err, ErrAuthFailed)
			require.ErrorIs(t, err, ErrRefreshFailed)

			res, ref := api.counts()
			require.Equal(t, 1, res, "no retry of the original call")
			require.Equal(t, 1, ref, "exactly one refresh")
			e.requireCleared(t)
			require.Equal(t, 1, e.hook.count())
			require.Equal(t, 1.0, testutil.ToFloat64(e.m.refreshes.WithLabelValues(tc.metric)))
			require.Equal(t, 1.0, testutil.ToFloat64(e.m.authFailures.WithLabelValues("refresh_failed")))
		})
	}
}

// Ответ refresh без refresh_token: новый access сохраняется, старый
// refresh-токен стирается, запрос повторяется с Bearer T2.
func TestDo_401_RefreshWithoutRefreshToken_RetriesWithNewAccess(t *testing.T) {
	t.Parallel()

	api := &fakeAPI{
		resource: okUnlessT1,
		refresh: func(w http.ResponseWriter, _ *http.Request, _ int) {
			writeJSON(w, http.StatusOK, map[string]string{"access_token": "T2"})
		},
	}
	e := newEnv(t, api)
	e.login(t, "T1", "R1")

	resp, err := e.gw.Get(context.Background(), "/api/quiz/1", nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	_ = readBody(t, resp)

	res, ref := api.counts()
	require.Equal(t, 2, res)
	require.Equal(t, 1, ref)
	require.Equal(t, []string{"Bearer T1", "Bearer T2"}, api.authSeen)

	st, err := e.sess.State(context.Background())
	require.NoError(t, err)
	require.Equal(t, "T2", st.AccessToken)
	require.Empty(t, st.RefreshToken)
	require.True(t, st.IsAuthenticated)

	require.Equal(t, 0, e.hook.count())
	require.Equal(t, 1.0, testutil.ToFloat64(e.m.refreshes.WithLabelValues("success")))
}

// Вход другим пользователем, пока вызов в полёте: повтор не идёт с чужим
// токеном, новая сессия не очищается и не перетирается.
func TestDo_SessionReplacedDuringCall(t *testing.T) {
	t.Parallel()

	relogin := func(t *testing.T, e *env) {
		assert.NoError(t, e.sess.Clear(context.Background()))
		assert.NoError(t, e.sess.Establish(context.Background(),
			session.TokenPair{AccessToken: "B1", RefreshToken: "BR1"},
			session.User{ID: "bob", Email: "bob@b.com"}))
	}

	tcs := []struct {
		name        string
		duringCall  bool
		wantRefresh int
	}{
		{name: "before_refresh", duringCall: true, wantRefresh: 0},
		{name: "while_refreshing", duringCall: false, wantRefresh: 1},
	}

	for _, tc := range tcs {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			api := &fakeAPI{}
			e := newEnv(t, api)
			api.resource = func(w http.ResponseWriter, r *http.Request, call int) {
				if tc.duringCall {
					relogin(t, e)
				}
				okUnlessT1(w, r, call)
			}
			api.refresh = func(w http.ResponseWriter, r *http.Request, call int) {
				relogin(t, e)
				refreshOK(w, r, call)
			}
			e.login(t, "T1", "R1")

			_, err := e.gw.Get(context.Background(), "/api/quiz/1", nil)
			require.ErrorIs(t, err, session.ErrSessionChanged)
			require.NotErrorIs(t, err, ErrAuthFailed)

			res, ref := api.counts()
			require.Equal(t, 1, res, "no retry with another session's token")
			require.Equal(t, tc.wantRefresh, ref)
			require.Equal(t, []string{"Bearer T1"}, api.authSeen)

			st, err := e.sess.State(context.Background())
			require.NoError(t, err)
			require.Equal(t, "B1", st.AccessToken)
			require.Equal(t, "BR1", st.RefreshToken)
			require.Equal(t, "bob", st.User.ID)
			require.Equal(t, 0, e.hook.count())
		})
	}
}

// Нет refresh-токена: refresh проваливается без сетевого вызова.
func TestDo_401_NoRefreshCredential(t *testing.T) {
	t.Parallel()

	api := &fakeAPI{resource: okUnlessT1, refresh: refreshNeverCalled(t)}
	e := newEnv(t, api)

	raw, err := json.Marshal(session.Record{State: session.State{AccessToken: "T1", RefreshToken: "", IsAuthenticated: true}})
	require.NoError(t, err)
	require.NoError(t, e.store.Put(context.Background(), session.DefaultKey, raw))

	_, err = e.gw.Get(context.Background(), "/api/quiz/1", nil)
	require.ErrorIs(t, err, ErrAuthFailed)

	res, ref := api.counts()
	require.Equal(t, 1, res)
	require.Equal(t, 0, ref)
	e.requireCleared(t)
}

// Повтор после успешного refresh снова 401: терминальный путь без второго refresh.
func TestDo_RetryAlso401_NoSecondRefresh(t *testing.T) {
	t.Parallel()

	api := &fakeAPI{
		resource: func(w http.ResponseWriter, _ *http.Request, _ int) {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "nope"})
		},
		refresh: refreshOK,
	}
	e := newEnv(t, api)
	e.login(t, "T1", "R1")

	_, err := e.gw.Get(context.Background(), "/api/quiz/1", nil)
	require.ErrorIs(t, err, ErrAuthFailed)
	require.ErrorIs(t, err, ErrUnauthorizedRetry)

	res, ref := api.counts()
	require.Equal(t, 2, res)
	require.Equal(t, 1, ref)
	require.Equal(t, []string{"Bearer T1", "Bearer T2"}, api.authSeen)
	e.requireCleared(t)
	require.Equal(t, 1.0, testutil.ToFloat64(e.m.authFailures.WithLabelValues("retry_unauthorized")))
}

// Терминальный путь многократно: хранилище пусто, ошибок очистки нет.
func TestDo_TerminalPath_Idempotent(t *testing.T) {
	t.Parallel()

	api := &fakeAPI{resource: okUnlessT1, refresh: refreshNeverCalled(t)}
	e := newEnv(t, api)

	for i := 0; i < 3; i++ {
		_, err := e.gw.Delete(context.Background(), "/api/quiz/1", nil)
		require.ErrorIs(t, err, ErrAuthFailed)
		e.requireCleared(t)
	}
	require.Equal(t, 3, e.hook.count())
}

// Заголовки с непечатными значениями отбрасываются молча; Authorization
// всегда из сессии; тело POST повторяется байт-в-байт при retry.
func TestDo_HeaderFilter_AndBodyReplay(t *testing.T) {
	t.Parallel()

	api := &fakeAPI{resource: okUnlessT1, refresh: refreshOK}
	e := newEnv(t, api)
	e.login(t, "T1", "R1")

	body := map[string]any{"title": "Go", "tags": []string{"lang"}}
	resp, err := e.gw.Post(context.Background(), "/api/quiz/", body, map[string]string{
		"X-Client":      "quizctl",
		"X-Bad":         "значение",
		"X-Ctl":         "a\x00b",
		"Bad Name":      "x",
		"Authorization": "Bearer forged",
	})
	require.NoError(t, err)
	_ = readBody(t, resp)

	require.Len(t, api.bodies, 2)
	require.Equal(t, api.bodies[0], api.bodies[1])
	require.JSONEq(t, `{"title":"Go","tags":["lang"]}`, api.bodies[1])

	for _, h := range api.headers {
		require.Equal(t, "quizctl", h.Get("X-Client"))
		require.Empty(t, h.Get("X-Bad"))
		require.Empty(t, h.Get("X-Ctl"))
		require.Equal(t, "application/json", h.Get("Content-Type"))
	}
	require.Equal(t, []string{"Bearer T1", "Bearer T2"}, api.authSeen)
}

// Параллельные операции, получившие 401, делают ровно один refresh.
func TestDo_ConcurrentRefreshCoalesced(t *testing.T) {
	t.Parallel()

	api := &fakeAPI{
		resource: okUnlessT1,
		refresh: func(w http.ResponseWriter, r *http.Request, call int) {
			time.Sleep(50 * time.Millisecond)
			refreshOK(w, r, call)
		},
	}
	e := newEnv(t, api)
	e.login(t, "T1", "R1")

	const n = 16
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp, err := e.gw.Get(context.Background(), "/api/quiz/tags/", nil)
			if err != nil {
				errs <- err
				return
			}
			_, _ = io.Copy(io.Discard, resp.Body)
			_ = resp.Body.Close()
			if resp.StatusCode != http.StatusOK {
				errs <- errors.New(resp.Status)
			}
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}

	_, ref := api.counts()
	require.Equal(t, 1, ref)
	require.Equal(t, 0, e.hook.count())

	st, err := e.sess.State(context.Background())
	require.NoError(t, err)
	require.Equal(t, "T2", st.AccessToken)
	require.Equal(t, "R2", st.RefreshToken)
}

// Отмена контекста во время вызова — не ошибка аутентификации.
func TestDo_ContextCanceled_SessionKept(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	api := &fakeAPI{
		resource: func(w http.ResponseWriter, r *http.Request, _ int) {
			select {
			case <-release:
			case <-r.Context().Done():
			}
		},
		refresh: refreshNeverCalled(t),
	}
	e := newEnv(t, api)
	t.Cleanup(func() { close(release) })
	e.login(t, "T1", "R1")

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := e.gw.Get(ctx, "/api/quiz/1", nil)
	require.Error(t, err)
	require.False(t, errors.Is(err, ErrAuthFailed))
	require.Equal(t, 0, e.hook.count())

	at, ok := e.sess.AccessToken(context.Background())
	require.True(t, ok)
	require.Equal(t, "T1", at)
}

// Отмена во время refresh: вызывающий получает ошибку контекста, сессия не очищается.
func TestDo_ContextCanceledDuringRefresh(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	api := &fakeAPI{
		resource: okUnlessT1,
		refresh: func(w http.ResponseWriter, r *http.Request, _ int) {
			<-release
			writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "late"})
		},
	}
	e := newEnv(t, api)
	e.login(t, "T1", "R1")

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := e.gw.Get(ctx, "/api/quiz/1", nil)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.False(t, errors.Is(err, ErrAuthFailed))
	require.Equal(t, 0, e.hook.count())

	_, ok := e.sess.RefreshToken(context.Background())
	require.True(t, ok)

	close(release)
}

// Транспортная ошибка пробрасывается, сессия не трогается.
func TestDo_TransportError(t *testing.T) {
	t.Parallel()

	sess := session.New(session.NewMemoryStore(), "")
	require.NoError(t, sess.Establish(context.Background(), session.TokenPair{AccessToken: "T1", RefreshToken: "R1"}, session.User{}))

	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	gw, err := New(url, sess, Options{})
	require.NoError(t, err)

	_, err = gw.Get(context.Background(), "/api/quiz/1", nil)
	require.Error(t, err)
	require.False(t, errors.Is(err, ErrAuthFailed))
	require.True(t, sess.IsAuthenticated(context.Background()))
}

// Anonymous не отправляет Authorization и не делает refresh на 401.
func TestAnonymous_NoBearerNoRefresh(t *testing.T) {
	t.Parallel()

	api := &fakeAPI{
		resource: func(w http.ResponseWriter, _ *http.Request, _ int) {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Invalid credentials"})
		},
		refresh: refreshNeverCalled(t),
	}
	e := newEnv(t, api)
	e.login(t, "T1", "R1")

	resp, err := e.gw.Anonymous(context.Background(), http.MethodPost, "/api/auth/login",
		map[string]string{"email": "a@b.com", "password": "secret"}, nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	_ = readBody(t, resp)

	require.Equal(t, []string{""}, api.authSeen)
	require.Equal(t, 0, e.hook.count())
	require.True(t, e.sess.IsAuthenticated(context.Background()))
}

func TestNew_Validation(t *testing.T) {
	t.Parallel()

	sess := session.New(session.NewMemoryStore(), "")

	_, err := New("http://localhost:8000", nil, Options{})
	require.Error(t, err)

	for _, bad := range []string{"", "localhost:8000", "ftp://host", "http://"} {
		_, err := New(bad, sess, Options{})
		require.Error(t, err, bad)
	}

	gw, err := New("http://localhost:8000/", sess, Options{})
	require.NoError(t, err)
	require.Equal(t, "http://localhost:8000/api/quiz/1", gw.url("/api/quiz/1"))
	require.Equal(t, "http://localhost:8000/api/quiz/search/?q=go", gw.url("api/quiz/search/?q=go"))
	require.Equal(t, DefaultRefreshPath, gw.refreshPath)
	require.Same(t, sess, gw.Session())
}

// Nil Metrics не паникует.
func TestMetrics_NilSafe(t *testing.T) {
	t.Parallel()

	var m *Metrics
	m.observeRequest(http.MethodGet, 200, time.Millisecond)
	m.observeRefresh("success")
	m.observeAuthFailure("no_credential")
}
