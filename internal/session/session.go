// Package session хранит сессию клиента: пару токенов, пользователя и флаг
// аутентификации. Запись лежит под фиксированным ключом в Store и имеет вид
// {"state": {"user", "accessToken", "refreshToken", "isAuthenticated"}}.
//
// Все изменения сессии проходят через методы Session и сериализуются мьютексом.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
)

// DefaultKey — ключ записи сессии в хранилище.
const DefaultKey = "auth-storage"

var (
	// ErrInvalidCredential — токен пуст или содержит байты вне 0x20..0x7E.
	ErrInvalidCredential = errors.New("invalid credential")
	// ErrNoSession — в хранилище нет сессии, которую можно обновить.
	ErrNoSession = errors.New("no session")
	// ErrSessionChanged — после чтения учётных данных был выполнен вход
	// или выход; операция работала от имени уже завершённой сессии.
	ErrSessionChanged = errors.New("session changed")
)

// User — данные пользователя, сохраняемые вместе с токенами.
type User struct {
	ID    string `json:"id" yaml:"id"`
	Email string `json:"email" yaml:"email"`
}

// State — содержимое сессии.
type State struct {
	User            *User  `json:"user" yaml:"user"`
	AccessToken     string `json:"accessToken" yaml:"-"`
	RefreshToken    string `json:"refreshToken" yaml:"-"`
	IsAuthenticated bool   `json:"isAuthenticated" yaml:"is_authenticated"`
}

// Record — формат хранимой записи.
type Record struct {
	State State `json:"state"`
}

// TokenPair — пара токенов, выданная login/register/refresh.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// Credential — снимок токенов вместе с поколением сессии, в котором он сделан.
// Токен, не прошедший ValidToken, представлен пустой строкой.
type Credential struct {
	AccessToken  string
	RefreshToken string
	Generation   uint64
}

// Session — объект сессии поверх Store.
//
// gen растёт при каждом Establish и Clear (но не Rotate): по нему операция
// отличает refresh своей сессии от нового входа, случившегося в процессе.
type Session struct {
	mu    sync.Mutex
	store Store
	key   string
	gen   uint64
}

// New создаёт Session поверх store. Пустой key заменяется на DefaultKey.
func New(store Store, key string) *Session {
	if key == "" {
		key = DefaultKey
	}

	return &Session{store: store, key: key}
}

// ValidToken — проверка набора символов: строка непуста и каждый байт
// лежит в печатном 7-битном диапазоне 0x20..0x7E.
func ValidToken(s string) bool {
	if s == "" {
		return false
	}

	for i := 0; i < len(s); i++ {
		if c := s[i]; c < 0x20 || c > 0x7e {
			return false
		}
	}

	return true
}

// AccessToken возвращает access-токен, если он сохранён и проходит ValidToken.
// Отсутствующая, нечитаемая или повреждённая запись трактуется как отсутствие токена.
func (s *Session) AccessToken(ctx context.Context) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok, err := s.load(ctx)
	if err != nil || !ok || !ValidToken(rec.State.AccessToken) {
		return "", false
	}

	return rec.State.AccessToken, true
}

// Credential — оба токена и текущее поколение сессии одним снимком.
// ok сообщает, есть ли валидный access-токен.
func (s *Session) Credential(ctx context.Context) (Credential, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cred := Credential{Generation: s.gen}

	rec, ok, err := s.load(ctx)
	if err != nil || !ok {
		return cred, false
	}
	if ValidToken(rec.State.RefreshToken) {
		cred.RefreshToken = rec.State.RefreshToken
	}
	if !ValidToken(rec.State.AccessToken) {
		return cred, false
	}
	cred.AccessToken = rec.State.AccessToken

	return cred, true
}

// Generation — текущее поколение сессии.
func (s *Session) Generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.gen
}

// RefreshToken — аналог AccessToken для refresh-токена.
func (s *Session) RefreshToken(ctx context.Context) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok, err := s.load(ctx)
	if err != nil || !ok || !ValidToken(rec.State.RefreshToken) {
		return "", false
	}

	return rec.State.RefreshToken, true
}

// State возвращает снимок сессии; пустой State, если сохранённой сессии нет.
func (s *Session) State(ctx context.Context) (State, error) {
	const op = "session.State"

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, _, err := s.load(ctx)
	if err != nil {
		return State{}, fmt.Errorf("%s: %w", op, err)
	}

	return rec.State, nil
}

// IsAuthenticated — флаг сессии выставлен и access-токен валиден.
func (s *Session) IsAuthenticated(ctx context.Context) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok, err := s.load(ctx)
	if err != nil || !ok {
		return false
	}

	return rec.State.IsAuthenticated && ValidToken(rec.State.AccessToken)
}

// Establish сохраняет новую сессию после login/register.
func (s *Session) Establish(ctx context.Context, pair TokenPair, user User) error {
	const op = "session.Establish"

	if !ValidToken(pair.AccessToken) || !ValidToken(pair.RefreshToken) {
		return fmt.Errorf("%s: %w", op, ErrInvalidCredential)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.gen++
	u := user
	rec := Record{State: State{
		User:            &u,
		AccessToken:     pair.AccessToken,
		RefreshToken:    pair.RefreshToken,
		IsAuthenticated: true,
	}}

	if err := s.save(ctx, rec); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// Rotate перезаписывает токены после успешного refresh.
// Пользователь и флаг аутентификации не меняются. Пустой RefreshToken
// означает, что сервер новый refresh-токен не выдал: сохранённый стирается.
// Если сессия была очищена, пока шёл refresh, возвращается ErrNoSession
// и запись не создаётся.
func (s *Session) Rotate(ctx context.Context, pair TokenPair) error {
	const op = "session.Rotate"

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.rotate(ctx, pair); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// RotateIfCurrent — Rotate, только если поколение сессии всё ещё gen.
// Иначе ErrSessionChanged: токены новой сессии не перетираются.
func (s *Session) RotateIfCurrent(ctx context.Context, gen uint64, pair TokenPair) error {
	const op = "session.RotateIfCurrent"

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.gen != gen {
		return fmt.Errorf("%s: %w", op, ErrSessionChanged)
	}

	if err := s.rotate(ctx, pair); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (s *Session) rotate(ctx context.Context, pair TokenPair) error {
	if !ValidToken(pair.AccessToken) {
		return ErrInvalidCredential
	}
	if pair.RefreshToken != "" && !ValidToken(pair.RefreshToken) {
		return ErrInvalidCredential
	}

	rec, ok, err := s.load(ctx)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNoSession
	}

	rec.State.AccessToken = pair.AccessToken
	rec.State.RefreshToken = pair.RefreshToken

	return s.save(ctx, rec)
}

// Clear удаляет запись сессии целиком. Повторный вызов — no-op.
func (s *Session) Clear(ctx context.Context) error {
	const op = "session.Clear"

	s.mu.Lock()
	defer s.mu.Unlock()

	s.gen++
	if err := s.store.Delete(ctx, s.key); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// load читает запись. Повреждённый JSON трактуется как отсутствие записи.
func (s *Session) load(ctx context.Context) (Record, bool, error) {
	raw, ok, err := s.store.Get(ctx, s.key)
	if err != nil {
		return Record{}, false, err
	}
	if !ok || len(raw) == 0 {
		return Record{}, false, nil
	}

	var rec Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return Record{}, false, nil
	}

	return rec, true, nil
}

func (s *Session) save(ctx context.Context, rec Record) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return err
	}

	return s.store.Put(ctx, s.key, raw)
}
