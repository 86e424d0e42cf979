package stub

import (
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrEmailTaken         = errors.New("email already taken")
	ErrInvalidEmail       = errors.New("invalid email")
	ErrWeakPassword       = errors.New("password must be 6..128 characters")
	ErrUserNotFound       = errors.New("user not found")
)

type User struct {
	ID           string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

// Users — in-memory учётные записи с bcrypt-хэшами паролей.
type Users struct {
	mu      sync.RWMutex
	byID    map[string]*User
	byEmail map[string]*User
	cost    int
}

func NewUsers() *Users {
	return &Users{
		byID:    make(map[string]*User),
		byEmail: make(map[string]*User),
		cost:    bcrypt.DefaultCost,
	}
}

// Register создаёт пользователя. Email нормализуется (trim + lower).
func (s *Users) Register(email, password string) (*User, error) {
	const op = "stub.Users.Register"

	norm, err := normalizeEmail(email)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if n := len([]rune(password)); n < 6 || n > 128 {
		return nil, fmt.Errorf("%s: %w", op, ErrWeakPassword)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byEmail[norm]; ok {
		return nil, fmt.Errorf("%s: %w", op, ErrEmailTaken)
	}

	u := &User{
		ID:           uuid.NewString(),
		Email:        norm,
		PasswordHash: string(hash),
		CreatedAt:    time.Now().UTC(),
	}
	s.byID[u.ID] = u
	s.byEmail[norm] = u

	return u, nil
}

// Authenticate проверяет пару email/пароль.
func (s *Users) Authenticate(email, password string) (*User, error) {
	const op = "stub.Users.Authenticate"

	norm, err := normalizeEmail(email)
	if err != nil || password == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}

	s.mu.RLock()
	u, ok := s.byEmail[norm]
	s.mu.RUnlock()

	if !ok || bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}

	return u, nil
}

func (s *Users) ByID(id string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.byID[id]
	if !ok {
		return nil, ErrUserNotFound
	}

	return u, nil
}

func normalizeEmail(raw string) (string, error) {
	email := strings.TrimSpace(raw)
	if email == "" {
		return "", ErrInvalidEmail
	}

	if _, err := mail.ParseAddress(email); err != nil {
		return "", ErrInvalidEmail
	}

	return strings.ToLower(email), nil
}
