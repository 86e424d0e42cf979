// Package token — просмотр содержимого JWT без проверки подписи.
// Клиент не знает секрета сервера: подпись проверяет API, а здесь
// только читаются поля для отображения (subject, срок действия).
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrMalformed — строка не является JWT.
var ErrMalformed = errors.New("malformed token")

// Info — поля токена, полезные клиенту.
type Info struct {
	Subject   string     `json:"sub,omitempty" yaml:"sub,omitempty"`
	Type      string     `json:"typ,omitempty" yaml:"typ,omitempty"`
	Issuer    string     `json:"iss,omitempty" yaml:"iss,omitempty"`
	IssuedAt  *time.Time `json:"iat,omitempty" yaml:"iat,omitempty"`
	ExpiresAt *time.Time `json:"exp,omitempty" yaml:"exp,omitempty"`
}

// Expired — токен с exp в прошлом относительно now. Токен без exp не истекает.
func (i Info) Expired(now time.Time) bool {
	return i.ExpiresAt != nil && !now.Before(*i.ExpiresAt)
}

type claims struct {
	Type string `json:"typ,omitempty"`
	jwt.RegisteredClaims
}

// Claims разбирает JWT без проверки подписи.
func Claims(tok string) (Info, error) {
	const op = "token.Claims"

	var c claims
	if _, _, err := jwt.NewParser().ParseUnverified(tok, &c); err != nil {
		return Info{}, fmt.Errorf("%s: %w: %v", op, ErrMalformed, err)
	}

	info := Info{Subject: c.Subject, Type: c.Type, Issuer: c.Issuer}
	if c.IssuedAt != nil {
		t := c.IssuedAt.Time.UTC()
		info.IssuedAt = &t
	}
	if c.ExpiresAt != nil {
		t := c.ExpiresAt.Time.UTC()
		info.ExpiresAt = &t
	}

	return info, nil
}

// Subject возвращает claim "sub" или "" при любой ошибке разбора.
func Subject(tok string) string {
	info, err := Claims(tok)
	if err != nil {
		return ""
	}

	return info.Subject
}
