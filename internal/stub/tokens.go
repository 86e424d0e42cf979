package stub

import (
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/pribylovaa/go-quiz-client/internal/models"
)

// Типы токенов (claim "typ").
const (
	tokenAccess  = "access"
	tokenRefresh = "refresh"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenRevoked = errors.New("token revoked")
)

type claims struct {
	Type  string `json:"typ"`
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// TokenConfig — параметры подписи и жизни токенов.
type TokenConfig struct {
	Secret     string
	Issuer     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// Tokens выпускает HS256 JWT и ведёт список использованных refresh-токенов:
// каждый refresh-токен обменивается ровно один раз.
type Tokens struct {
	cfg TokenConfig
	now func() time.Time

	mu   sync.Mutex
	used map[string]time.Time // sha256(refresh) -> exp
}

func NewTokens(cfg TokenConfig) *Tokens {
	return &Tokens{cfg: cfg, now: time.Now, used: make(map[string]time.Time)}
}

// Issue выпускает пару access/refresh для пользователя.
func (t *Tokens) Issue(u *User) (models.TokenResponse, error) {
	const op = "stub.Tokens.Issue"

	now := t.now().UTC()

	access, err := t.sign(u, tokenAccess, now, t.cfg.AccessTTL)
	if err != nil {
		return models.TokenResponse{}, fmt.Errorf("%s: %w", op, err)
	}

	refresh, err := t.sign(u, tokenRefresh, now, t.cfg.RefreshTTL)
	if err != nil {
		return models.TokenResponse{}, fmt.Errorf("%s: %w", op, err)
	}

	return models.TokenResponse{AccessToken: access, RefreshToken: refresh, TokenType: "bearer"}, nil
}

func (t *Tokens) sign(u *User, typ string, now time.Time, ttl time.Duration) (string, error) {
	c := claims{
		Type:  typ,
		Email: u.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   u.ID,
			Issuer:    t.cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString([]byte(t.cfg.Secret))
}

func (t *Tokens) parse(tok, typ string) (*claims, error) {
	var c claims

	parsed, err := jwt.ParseWithClaims(tok, &c,
		func(*jwt.Token) (any, error) { return []byte(t.cfg.Secret), nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(t.cfg.Issuer),
		jwt.WithTimeFunc(t.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	if c.Type != typ || c.Subject == "" {
		return nil, ErrInvalidToken
	}

	return &c, nil
}

// ValidateAccess возвращает ID пользователя из валидного access-токена.
func (t *Tokens) ValidateAccess(tok string) (string, error) {
	c, err := t.parse(tok, tokenAccess)
	if err != nil {
		return "", err
	}

	return c.Subject, nil
}

// Consume проверяет refresh-токен и помечает его использованным.
// Повторное предъявление того же токена — ErrTokenRevoked.
func (t *Tokens) Consume(tok string) (string, error) {
	const op = "stub.Tokens.Consume"

	c, err := t.parse(tok, tokenRefresh)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	sum := sha256.Sum256([]byte(tok))
	hash := base64.RawURLEncoding.EncodeToString(sum[:])

	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	for h, exp := range t.used {
		if now.After(exp) {
			delete(t.used, h)
		}
	}

	if _, ok := t.used[hash]; ok {
		return "", fmt.Errorf("%s: %w", op, ErrTokenRevoked)
	}
	t.used[hash] = c.ExpiresAt.Time

	return c.Subject, nil
}
