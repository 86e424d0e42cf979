// Package stub — dev-реализация REST API платформы квизов: аутентификация
// (HS256 JWT + одноразовые refresh-токены), квизы и рейтинг. Нужен для
// локальной разработки quizctl и e2e-тестов шлюза.
package stub

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/pribylovaa/go-quiz-client/internal/apierrors"
)

// Handlers — HTTP-обработчики стаба поверх in-memory хранилищ и рейтинга.
type Handlers struct {
	users   *Users
	tokens  *Tokens
	quizzes *Quizzes
	board   Board
}

// Deps — хранилища стаба.
type Deps struct {
	Users   *Users
	Tokens  *Tokens
	Quizzes *Quizzes
	Board   Board
}

func NewHandlers(d Deps) *Handlers {
	return &Handlers{users: d.Users, tokens: d.Tokens, quizzes: d.Quizzes, board: d.Board}
}

func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

// decodeStrict — строгий JSON-декодер: запрещаем неизвестные поля.
func decodeStrict(r *http.Request, value any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(value); err != nil {
		return apierrors.Detail(apierrors.ErrInvalidArgument, "invalid request body: "+err.Error())
	}

	return nil
}

// queryInt читает целый query-параметр в пределах [lo, hi]; отсутствие — def.
func queryInt(r *http.Request, name string, def, lo, hi int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}

	v, err := strconv.Atoi(raw)
	if err != nil || v < lo || v > hi {
		return 0, apierrors.Detail(apierrors.ErrInvalidArgument, fmt.Sprintf("%s must be an integer in [%d, %d]", name, lo, hi))
	}

	return v, nil
}
