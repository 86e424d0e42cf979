package session

// Тесты Session (internal/session/session.go).
//
//  Проверяем:
//  - проверку набора символов ValidToken;
//  - чтение токенов: отсутствие записи, повреждённый JSON, невалидные байты;
//  - формат записи {"state": {...}} после Establish;
//  - Rotate: перезапись токенов без изменения user/флага, ErrNoSession после Clear,
//    пустой refresh-токен стирает сохранённый;
//  - Generation/RotateIfCurrent: поколение меняют только Establish и Clear;
//  - идемпотентность Clear;
//  - ошибки хранилища (через gomock).
//
// Запуск:
//   go test ./internal/session -v -race -count=1

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/pribylovaa/go-quiz-client/mocks"
	"github.com/stretchr/testify/require"
)

func TestValidToken_Table(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want bool
	}{
		{name: "empty", in: "", want: false},
		{name: "ascii", in: "eyJhbGciOi.x-y_z", want: true},
		{name: "space_and_tilde", in: " ~", want: true},
		{name: "control_char", in: "abc\x01", want: false},
		{name: "del", in: "abc\x7f", want: false},
		{name: "newline", in: "abc\n", want: false},
		{name: "non_ascii", in: "токен", want: false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tt.want, ValidToken(tt.in))
		})
	}
}

func TestSession_EmptyStore(t *testing.T) {
	t.Parallel()

	s := New(NewMemoryStore(), "")
	ctx := context.Background()

	_, ok := s.AccessToken(ctx)
	require.False(t, ok)
	_, ok = s.RefreshToken(ctx)
	require.False(t, ok)
	require.False(t, s.IsAuthenticated(ctx))

	st, err := s.State(ctx)
	require.NoError(t, err)
	require.Equal(t, State{}, st)
}

// Повреждённая запись трактуется как отсутствие токена, не как ошибка.
func TestSession_CorruptedRecord(t *testing.T) {
	t.Parallel()

	ms := NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, ms.Put(ctx, DefaultKey, []byte("{not json")))

	s := New(ms, DefaultKey)
	_, ok := s.AccessToken(ctx)
	require.False(t, ok)
	require.False(t, s.IsAuthenticated(ctx))
}

// Байт вне 0x20..0x7E в сохранённом токене == отсутствие токена.
func TestSession_StoredTokenWithBadBytes(t *testing.T) {
	t.Parallel()

	ms := NewMemoryStore()
	ctx := context.Background()
	raw, err := json.Marshal(Record{State: State{AccessToken: "Té1", RefreshToken: "R1", IsAuthenticated: true}})
	require.NoError(t, err)
	require.NoError(t, ms.Put(ctx, DefaultKey, raw))

	s := New(ms, "")
	_, ok := s.AccessToken(ctx)
	require.False(t, ok)
	require.False(t, s.IsAuthenticated(ctx))

	rt, ok := s.RefreshToken(ctx)
	require.True(t, ok)
	require.Equal(t, "R1", rt)
}

// Establish пишет запись в формате {"state": {...}} под фиксированным ключом.
func TestSession_Establish_RecordLayout(t *testing.T) {
	t.Parallel()

	ms := NewMemoryStore()
	ctx := context.Background()
	s := New(ms, "")

	err := s.Establish(ctx, TokenPair{AccessToken: "T1", RefreshToken: "R1"}, User{ID: "u1", Email: "a@b.com"})
	require.NoError(t, err)

	raw, ok, err := ms.Get(ctx, "auth-storage")
	require.NoError(t, err)
	require.True(t, ok)

	var got map[string]map[string]any
	require.NoError(t, json.Unmarshal(raw, &got))
	require.Equal(t, "T1", got["state"]["accessToken"])
	require.Equal(t, "R1", got["state"]["refreshToken"])
	require.Equal(t, true, got["state"]["isAuthenticated"])
	require.Equal(t, map[string]any{"id": "u1", "email": "a@b.com"}, got["state"]["user"])

	require.True(t, s.IsAuthenticated(ctx))
}

func TestSession_Establish_RejectsInvalidPair(t *testing.T) {
	t.Parallel()

	s := New(NewMemoryStore(), "")
	ctx := context.Background()

	err := s.Establish(ctx, TokenPair{AccessToken: "T1", RefreshToken: ""}, User{})
	require.ErrorIs(t, err, ErrInvalidCredential)

	err = s.Establish(ctx, TokenPair{AccessToken: "T\x00", RefreshToken: "R1"}, User{})
	require.ErrorIs(t, err, ErrInvalidCredential)

	_, ok := s.AccessToken(ctx)
	require.False(t, ok)
}

// Rotate меняет только токены: user и isAuthenticated сохраняются.
func TestSession_Rotate_KeepsUserAndFlag(t *testing.T) {
	t.Parallel()

	s := New(NewMemoryStore(), "")
	ctx := context.Background()
	require.NoError(t, s.Establish(ctx, TokenPair{AccessToken: "T1", RefreshToken: "R1"}, User{ID: "u1", Email: "a@b.com"}))

	require.NoError(t, s.Rotate(ctx, TokenPair{AccessToken: "T2", RefreshToken: "R2"}))

	st, err := s.State(ctx)
	require.NoError(t, err)
	require.Equal(t, "T2", st.AccessToken)
	require.Equal(t, "R2", st.RefreshToken)
	require.True(t, st.IsAuthenticated)
	require.Equal(t, &User{ID: "u1", Email: "a@b.com"}, st.User)
}

func TestSession_Rotate_AfterClear_NoSession(t *testing.T) {
	t.Parallel()

	s := New(NewMemoryStore(), "")
	ctx := context.Background()
	require.NoError(t, s.Establish(ctx, TokenPair{AccessToken: "T1", RefreshToken: "R1"}, User{}))
	require.NoError(t, s.Clear(ctx))

	err := s.Rotate(ctx, TokenPair{AccessToken: "T2", RefreshToken: "R2"})
	require.ErrorIs(t, err, ErrNoSession)

	_, ok := s.AccessToken(ctx)
	require.False(t, ok)
}

func TestSession_Rotate_RejectsInvalidPair(t *testing.T) {
	t.Parallel()

	s := New(NewMemoryStore(), "")
	ctx := context.Background()
	require.NoError(t, s.Establish(ctx, TokenPair{AccessToken: "T1", RefreshToken: "R1"}, User{}))

	err := s.Rotate(ctx, TokenPair{AccessToken: "T2", RefreshToken: "R€"})
	require.ErrorIs(t, err, ErrInvalidCredential)

	at, ok := s.AccessToken(ctx)
	require.True(t, ok)
	require.Equal(t, "T1", at)
}

// Refresh без нового refresh-токена: access обновлён, refresh стёрт.
func TestSession_Rotate_EmptyRefreshClearsStoredOne(t *testing.T) {
	t.Parallel()

	s := New(NewMemoryStore(), "")
	ctx := context.Background()
	require.NoError(t, s.Establish(ctx, TokenPair{AccessToken: "T1", RefreshToken: "R1"}, User{ID: "u1"}))

	require.NoError(t, s.Rotate(ctx, TokenPair{AccessToken: "T2"}))

	at, ok := s.AccessToken(ctx)
	require.True(t, ok)
	require.Equal(t, "T2", at)

	_, ok = s.RefreshToken(ctx)
	require.False(t, ok)
	require.True(t, s.IsAuthenticated(ctx))
}

func TestSession_Rotate_RequiresAccessToken(t *testing.T) {
	t.Parallel()

	s := New(NewMemoryStore(), "")
	ctx := context.Background()
	require.NoError(t, s.Establish(ctx, TokenPair{AccessToken: "T1", RefreshToken: "R1"}, User{}))

	err := s.Rotate(ctx, TokenPair{RefreshToken: "R2"})
	require.ErrorIs(t, err, ErrInvalidCredential)
}

// Поколение меняют Establish и Clear, но не Rotate.
func TestSession_Generation(t *testing.T) {
	t.Parallel()

	s := New(NewMemoryStore(), "")
	ctx := context.Background()

	cred, ok := s.Credential(ctx)
	require.False(t, ok)
	g0 := cred.Generation

	require.NoError(t, s.Establish(ctx, TokenPair{AccessToken: "T1", RefreshToken: "R1"}, User{}))
	cred, ok = s.Credential(ctx)
	require.True(t, ok)
	require.Equal(t, "T1", cred.AccessToken)
	require.Equal(t, "R1", cred.RefreshToken)
	require.Greater(t, cred.Generation, g0)
	g1 := cred.Generation

	require.NoError(t, s.Rotate(ctx, TokenPair{AccessToken: "T2", RefreshToken: "R2"}))
	require.Equal(t, g1, s.Generation())

	require.NoError(t, s.Clear(ctx))
	require.Greater(t, s.Generation(), g1)
}

// Новый вход между чтением токена и ротацией: токены новой сессии не трогаются.
func TestSession_RotateIfCurrent_StaleGeneration(t *testing.T) {
	t.Parallel()

	s := New(NewMemoryStore(), "")
	ctx := context.Background()
	require.NoError(t, s.Establish(ctx, TokenPair{AccessToken: "T1", RefreshToken: "R1"}, User{ID: "ann"}))
	stale := s.Generation()

	require.NoError(t, s.Clear(ctx))
	require.NoError(t, s.Establish(ctx, TokenPair{AccessToken: "B1", RefreshToken: "BR1"}, User{ID: "bob"}))

	err := s.RotateIfCurrent(ctx, stale, TokenPair{AccessToken: "T2", RefreshToken: "R2"})
	require.ErrorIs(t, err, ErrSessionChanged)

	st, err := s.State(ctx)
	require.NoError(t, err)
	require.Equal(t, "B1", st.AccessToken)
	require.Equal(t, "BR1", st.RefreshToken)

	require.NoError(t, s.RotateIfCurrent(ctx, s.Generation(), TokenPair{AccessToken: "B2", RefreshToken: "BR2"}))
	at, _ := s.AccessToken(ctx)
	require.Equal(t, "B2", at)
}

// Повторный Clear на пустом хранилище — no-op.
func TestSession_Clear_Idempotent(t *testing.T) {
	t.Parallel()

	ms := NewMemoryStore()
	s := New(ms, "")
	ctx := context.Background()
	require.NoError(t, s.Establish(ctx, TokenPair{AccessToken: "T1", RefreshToken: "R1"}, User{}))

	for i := 0; i < 3; i++ {
		require.NoError(t, s.Clear(ctx))
	}

	_, ok, err := ms.Get(ctx, DefaultKey)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestSession_ConcurrentRotate(t *testing.T) {
	t.Parallel()

	s := New(NewMemoryStore(), "")
	ctx := context.Background()
	require.NoError(t, s.Establish(ctx, TokenPair{AccessToken: "T0", RefreshToken: "R0"}, User{ID: "u"}))

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.Rotate(ctx, TokenPair{AccessToken: "T", RefreshToken: "R"})
		}()
	}
	wg.Wait()

	st, err := s.State(ctx)
	require.NoError(t, err)
	require.Equal(t, "T", st.AccessToken)
	require.Equal(t, &User{ID: "u"}, st.User)
}

// Ошибка чтения хранилища: токена нет, State возвращает обёрнутую ошибку.
func TestSession_StoreGetError(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	st := mocks.NewMockStore(ctrl)
	boom := errors.New("disk failure")
	st.EXPECT().Get(gomock.Any(), DefaultKey).Return(nil, false, boom).Times(2)

	s := New(st, "")
	_, ok := s.AccessToken(context.Background())
	require.False(t, ok)

	_, err := s.State(context.Background())
	require.ErrorIs(t, err, boom)
}

func TestSession_ClearStoreError(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	st := mocks.NewMockStore(ctrl)
	boom := errors.New("read-only")
	st.EXPECT().Delete(gomock.Any(), "custom").Return(boom)

	err := New(st, "custom").Clear(context.Background())
	require.ErrorIs(t, err, boom)
}

func TestSession_EstablishStorePutError(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	st := mocks.NewMockStore(ctrl)
	boom := errors.New("quota")
	st.EXPECT().Put(gomock.Any(), DefaultKey, gomock.Any()).Return(boom)

	err := New(st, "").Establish(context.Background(), TokenPair{AccessToken: "T", RefreshToken: "R"}, User{})
	require.ErrorIs(t, err, boom)
}
