package stub

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pribylovaa/go-quiz-client/internal/apierrors"
	"github.com/pribylovaa/go-quiz-client/internal/models"
	"github.com/pribylovaa/go-quiz-client/internal/stub/middleware"
	logctx "github.com/pribylovaa/go-quiz-client/pkg/log"
	"github.com/pribylovaa/go-quiz-client/pkg/redact"
)

// Register — POST /auth/register.
func (h *Handlers) Register(w http.ResponseWriter, r *http.Request) {
	var req models.AuthRegisterRequest
	if err := decodeStrict(r, &req); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	u, err := h.users.Register(req.Email, req.Password)
	switch {
	case errors.Is(err, ErrEmailTaken):
		apierrors.WriteError(w, r, apierrors.Detail(apierrors.ErrAlreadyExists, "Username already exists"))
		return
	case errors.Is(err, ErrInvalidEmail), errors.Is(err, ErrWeakPassword):
		apierrors.WriteError(w, r, apierrors.Detail(apierrors.ErrInvalidArgument, errors.Unwrap(err).Error()))
		return
	case err != nil:
		apierrors.WriteError(w, r, err)
		return
	}

	logctx.From(r.Context()).Info("user_registered",
		slog.String("user_id", u.ID),
		slog.String("email", redact.Email(u.Email)),
	)

	h.issue(w, r, u)
}

// Login — POST /auth/login.
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var req models.AuthLoginRequest
	if err := decodeStrict(r, &req); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	u, err := h.users.Authenticate(req.Email, req.Password)
	if err != nil {
		logctx.From(r.Context()).Warn("login_rejected", slog.String("email", redact.Email(req.Email)))
		apierrors.WriteError(w, r, apierrors.Detail(apierrors.ErrInvalidArgument, "Invalid credentials"))
		return
	}

	h.issue(w, r, u)
}

// Refresh — POST /auth/refresh: одноразовый обмен refresh-токена на новую пару.
func (h *Handlers) Refresh(w http.ResponseWriter, r *http.Request) {
	invalid := apierrors.Detail(apierrors.ErrUnauthenticated, "Invalid refresh token")

	var req models.AuthRefreshRequest
	if err := decodeStrict(r, &req); err != nil || req.RefreshToken == "" {
		apierrors.WriteError(w, r, invalid)
		return
	}

	uid, err := h.tokens.Consume(req.RefreshToken)
	if err != nil {
		logctx.From(r.Context()).Warn("refresh_rejected", slog.String("err", err.Error()))
		apierrors.WriteError(w, r, invalid)
		return
	}

	u, err := h.users.ByID(uid)
	if err != nil {
		apierrors.WriteError(w, r, invalid)
		return
	}

	logctx.From(r.Context()).Info("tokens_refreshed", slog.String("user_id", u.ID))
	h.issue(w, r, u)
}

func (h *Handlers) issue(w http.ResponseWriter, r *http.Request, u *User) {
	pair, err := h.tokens.Issue(u)
	if err != nil {
		logctx.From(r.Context()).Error("token_issue_failed", slog.String("err", err.Error()))
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, pair)
}

// Profile — POST /auth/profile: текущий пользователь по access-токену.
func (h *Handlers) Profile(w http.ResponseWriter, r *http.Request) {
	u, err := h.users.ByID(middleware.UserIDFrom(r.Context()))
	if err != nil {
		apierrors.WriteError(w, r, apierrors.Detail(apierrors.ErrUnauthenticated, "Could not validate credentials"))
		return
	}

	writeJSON(w, http.StatusOK, models.User{ID: u.ID, Email: u.Email})
}

// UserByID — GET /auth/user/{user_id}.
func (h *Handlers) UserByID(w http.ResponseWriter, r *http.Request) {
	u, err := h.users.ByID(chi.URLParam(r, "user_id"))
	if err != nil {
		apierrors.WriteError(w, r, apierrors.Detail(apierrors.ErrNotFound, "User not found"))
		return
	}

	writeJSON(w, http.StatusOK, models.User{ID: u.ID, Email: u.Email})
}
