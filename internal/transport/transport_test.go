package transport

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	logctx "github.com/pribylovaa/go-quiz-client/pkg/log"
	"github.com/stretchr/testify/require"
)

type capHandler struct {
	base    []slog.Attr
	lastMsg string
	lastLvl slog.Level
	attrs   map[string]any
	count   map[string]int
}

func (h *capHandler) Enabled(context.Context, slog.Level) bool { return true }
func (h *capHandler) Handle(_ context.Context, r slog.Record) error {
	out := make(map[string]any, len(h.base)+8)
	for _, a := range h.base {
		out[a.Key] = a.Value.Any()
	}
	r.Attrs(func(a slog.Attr) bool {
		out[a.Key] = a.Value.Any()
		return true
	})
	if h.count == nil {
		h.count = make(map[string]int)
	}
	h.count[r.Message]++
	h.lastMsg = r.Message
	h.lastLvl = r.Level
	h.attrs = out
	return nil
}

func (h *capHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	h.base = append(h.base, attrs...)
	return h
}

func (h *capHandler) WithGroup(string) slog.Handler { return h }

// okRT — конечный RoundTripper: сохраняет запрос и отвечает 200.
type okRT struct {
	last *http.Request
}

func (o *okRT) RoundTrip(r *http.Request) (*http.Response, error) {
	o.last = r
	return &http.Response{
		StatusCode: http.StatusOK,
		Body:       io.NopCloser(strings.NewReader("ok")),
		Header:     http.Header{},
		Request:    r,
	}, nil
}

func newReq(t *testing.T, ctx context.Context) *http.Request {
	t.Helper()
	r, err := http.NewRequestWithContext(ctx, http.MethodGet, "http://api.local/api/quiz/1", nil)
	require.NoError(t, err)
	return r
}

func TestChain_Order(t *testing.T) {
	t.Parallel()

	var order []string
	mw := func(name string) Middleware {
		return func(next http.RoundTripper) http.RoundTripper {
			return RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
				order = append(order, name)
				return next.RoundTrip(r)
			})
		}
	}

	rt := Chain(&okRT{}, mw("a"), mw("b"), mw("c"))
	resp, err := rt.RoundTrip(newReq(t, context.Background()))
	require.NoError(t, err)
	_ = resp.Body.Close()
	require.Equal(t, []string{"a", "b", "c"}, order)
}

func TestWithMetadata_SetsHeaders(t *testing.T) {
	t.Parallel()

	base := &okRT{}
	rt := Chain(base, WithMetadata("quizctl/1.0"))

	req := newReq(t, context.Background())
	resp, err := rt.RoundTrip(req)
	require.NoError(t, err)
	_ = resp.Body.Close()

	_, err = uuid.Parse(base.last.Header.Get(HeaderRequestID))
	require.NoError(t, err)
	require.Equal(t, "quizctl/1.0", base.last.Header.Get("User-Agent"))

	// исходный запрос не тронут.
	require.Empty(t, req.Header.Get(HeaderRequestID))
}

func TestWithMetadata_KeepsExistingRequestID_SkipsEmptyUA(t *testing.T) {
	t.Parallel()

	base := &okRT{}
	rt := Chain(base, WithMetadata(""))

	req := newReq(t, context.Background())
	req.Header.Set(HeaderRequestID, "rid-123")
	resp, err := rt.RoundTrip(req)
	require.NoError(t, err)
	_ = resp.Body.Close()

	require.Equal(t, "rid-123", base.last.Header.Get(HeaderRequestID))
	require.Empty(t, base.last.Header.Get("User-Agent"))
}

func TestWithTimeout_SetsDeadline_CanceledOnBodyClose(t *testing.T) {
	t.Parallel()

	base := &okRT{}
	rt := Chain(base, WithTimeout(time.Second))

	resp, err := rt.RoundTrip(newReq(t, context.Background()))
	require.NoError(t, err)

	ctx := base.last.Context()
	_, ok := ctx.Deadline()
	require.True(t, ok)
	require.NoError(t, ctx.Err(), "context must stay alive while body is open")

	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Equal(t, "ok", string(b))

	require.NoError(t, resp.Body.Close())
	require.ErrorIs(t, ctx.Err(), context.Canceled)
}

func TestWithTimeout_DoesNotOverrideExistingDeadline(t *testing.T) {
	t.Parallel()

	parent, cancel := context.WithTimeout(context.Background(), 25*time.Millisecond)
	defer cancel()
	parentDL, _ := parent.Deadline()

	base := &okRT{}
	rt := Chain(base, WithTimeout(time.Second))
	resp, err := rt.RoundTrip(newReq(t, parent))
	require.NoError(t, err)
	_ = resp.Body.Close()

	childDL, ok := base.last.Context().Deadline()
	require.True(t, ok)
	require.WithinDuration(t, parentDL, childDL, time.Millisecond)
}

func TestWithTimeout_ZeroDuration_PassThrough(t *testing.T) {
	t.Parallel()

	base := &okRT{}
	rt := Chain(base, WithTimeout(0))
	resp, err := rt.RoundTrip(newReq(t, context.Background()))
	require.NoError(t, err)
	_ = resp.Body.Close()

	_, ok := base.last.Context().Deadline()
	require.False(t, ok, "no deadline expected when d <= 0")
}

// Медленный сервер: вызов обрывается по дедлайну.
func TestWithTimeout_SlowServer_DeadlineExceeded(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	client := &http.Client{Transport: Chain(http.DefaultTransport, WithTimeout(40*time.Millisecond))}
	req, err := http.NewRequest(http.MethodGet, srv.URL, nil)
	require.NoError(t, err)

	start := time.Now()
	_, err = client.Do(req)
	require.Error(t, err)
	require.GreaterOrEqual(t, time.Since(start), 40*time.Millisecond)
}

func TestWithLogging_LogsAndPutsLoggerIntoContext(t *testing.T) {
	t.Parallel()

	h := &capHandler{}
	probe := RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
		logctx.From(r.Context()).Info("probe")
		return (&okRT{}).RoundTrip(r)
	})

	rt := Chain(probe, WithMetadata("ua"), WithLogging(slog.New(h)))
	resp, err := rt.RoundTrip(newReq(t, context.Background()))
	require.NoError(t, err)
	_ = resp.Body.Close()

	require.Equal(t, 1, h.count["probe"])
	require.Equal(t, "http_client", h.lastMsg)
	require.Equal(t, slog.LevelInfo, h.lastLvl)
	require.Equal(t, int64(http.StatusOK), h.attrs["status"])
	require.Equal(t, "/api/quiz/1", h.attrs["path"])
	require.Equal(t, http.MethodGet, h.attrs["method"])

	rid, _ := h.attrs["request_id"].(string)
	_, err = uuid.Parse(rid)
	require.NoError(t, err)

	d, ok := h.attrs["dur"].(time.Duration)
	require.True(t, ok)
	require.GreaterOrEqual(t, d, time.Duration(0))
}

func TestWithLogging_TransportError_Warn(t *testing.T) {
	t.Parallel()

	h := &capHandler{}
	boom := errors.New("connection refused")
	failing := RoundTripperFunc(func(*http.Request) (*http.Response, error) { return nil, boom })

	rt := Chain(failing, WithLogging(slog.New(h)))
	_, err := rt.RoundTrip(newReq(t, context.Background()))
	require.ErrorIs(t, err, boom)

	require.Equal(t, "http_client", h.lastMsg)
	require.Equal(t, slog.LevelWarn, h.lastLvl)
	require.Equal(t, "connection refused", h.attrs["err"])
	require.Equal(t, "-", h.attrs["request_id"])
}

// Authorization не попадает в запись лога.
func TestWithLogging_DoesNotLogAuthorization(t *testing.T) {
	t.Parallel()

	h := &capHandler{}
	rt := Chain(&okRT{}, WithLogging(slog.New(h)))

	req := newReq(t, context.Background())
	req.Header.Set("Authorization", "Bearer secret")
	resp, err := rt.RoundTrip(req)
	require.NoError(t, err)
	_ = resp.Body.Close()

	for k, v := range h.attrs {
		require.NotContains(t, k, "uthorization")
		if s, ok := v.(string); ok {
			require.NotContains(t, s, "secret")
		}
	}
}
