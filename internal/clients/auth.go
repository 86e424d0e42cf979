package clients

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/pribylovaa/go-quiz-client/internal/config"
	"github.com/pribylovaa/go-quiz-client/internal/gateway"
	"github.com/pribylovaa/go-quiz-client/internal/models"
	"github.com/pribylovaa/go-quiz-client/internal/session"
	"github.com/pribylovaa/go-quiz-client/internal/token"
	logctx "github.com/pribylovaa/go-quiz-client/pkg/log"
	"github.com/pribylovaa/go-quiz-client/pkg/redact"
)

// FallbackUserID — ID пользователя, если access-токен не JWT или без "sub".
const FallbackUserID = "temp"

// ErrMalformedTokens — API вернул токены, не прошедшие проверку набора символов.
var ErrMalformedTokens = errors.New("malformed tokens in auth response")

// AuthClient — вход, регистрация и выход.
type AuthClient struct {
	gw           *gateway.Gateway
	loginPath    string
	registerPath string
	profilePath  string
}

func NewAuthClient(gw *gateway.Gateway, cfg config.APIConfig) *AuthClient {
	return &AuthClient{
		gw:           gw,
		loginPath:    cfg.LoginPath,
		registerPath: cfg.RegisterPath,
		profilePath:  cfg.ProfilePath,
	}
}

// Login — POST login без Bearer; при успехе сессия устанавливается заново.
func (a *AuthClient) Login(ctx context.Context, email, password string) (session.User, error) {
	const op = "clients.AuthClient.Login"

	u, err := a.authenticate(ctx, a.loginPath, email, password)
	if err != nil {
		return session.User{}, fmt.Errorf("%s: %w", op, err)
	}

	return u, nil
}

// Register — POST register без Bearer; при успехе пользователь сразу в сессии.
func (a *AuthClient) Register(ctx context.Context, email, password string) (session.User, error) {
	const op = "clients.AuthClient.Register"

	u, err := a.authenticate(ctx, a.registerPath, email, password)
	if err != nil {
		return session.User{}, fmt.Errorf("%s: %w", op, err)
	}

	return u, nil
}

func (a *AuthClient) authenticate(ctx context.Context, path, email, password string) (session.User, error) {
	lg := logctx.From(ctx)

	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return session.User{}, fmt.Errorf("%w: email and password are required", ErrInvalidArgument)
	}

	resp, err := a.gw.Anonymous(ctx, http.MethodPost, path, models.AuthLoginRequest{Email: email, Password: password}, nil)
	if err != nil {
		return session.User{}, err
	}

	var out models.TokenResponse
	if err := decode(resp, &out); err != nil {
		lg.Warn("auth_rejected",
			slog.String("path", path),
			slog.String("email", redact.Email(email)),
			slog.String("err", err.Error()),
		)
		return session.User{}, err
	}

	if !session.ValidToken(out.AccessToken) || !session.ValidToken(out.RefreshToken) {
		return session.User{}, ErrMalformedTokens
	}

	user := session.User{ID: UserIDFromToken(out.AccessToken), Email: email}
	pair := session.TokenPair{AccessToken: out.AccessToken, RefreshToken: out.RefreshToken}
	if err := a.gw.Session().Establish(ctx, pair, user); err != nil {
		return session.User{}, err
	}

	lg.Info("session_established",
		slog.String("path", path),
		slog.String("email", redact.Email(email)),
		slog.String("user_id", user.ID),
	)

	return user, nil
}

// Logout очищает сессию. Вызов на пустой сессии — no-op.
func (a *AuthClient) Logout(ctx context.Context) error {
	const op = "clients.AuthClient.Logout"

	if err := a.gw.Session().Clear(ctx); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	logctx.From(ctx).Info("session_cleared", slog.String("op", op))
	return nil
}

// Whoami — локальная информация о сессии без сетевых вызовов.
type Whoami struct {
	Authenticated bool          `json:"authenticated" yaml:"authenticated"`
	User          *session.User `json:"user,omitempty" yaml:"user,omitempty"`
	Access        *token.Info   `json:"access_token,omitempty" yaml:"access_token,omitempty"`
	Refresh       *token.Info   `json:"refresh_token,omitempty" yaml:"refresh_token,omitempty"`
}

func (a *AuthClient) Whoami(ctx context.Context) (Whoami, error) {
	const op = "clients.AuthClient.Whoami"

	sess := a.gw.Session()
	st, err := sess.State(ctx)
	if err != nil {
		return Whoami{}, fmt.Errorf("%s: %w", op, err)
	}

	out := Whoami{Authenticated: sess.IsAuthenticated(ctx), User: st.User}
	if info, err := token.Claims(st.AccessToken); err == nil {
		out.Access = &info
	}
	if info, err := token.Claims(st.RefreshToken); err == nil {
		out.Refresh = &info
	}

	return out, nil
}

// Profile — профиль текущего пользователя с сервера (через шлюз).
func (a *AuthClient) Profile(ctx context.Context) (*models.User, error) {
	const op = "clients.AuthClient.Profile"

	resp, err := a.gw.Post(ctx, a.profilePath, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var out models.User
	if err := decode(resp, &out); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &out, nil
}

// UserIDFromToken — "sub" access-токена или FallbackUserID.
func UserIDFromToken(tok string) string {
	if sub := token.Subject(tok); sub != "" {
		return sub
	}

	return FallbackUserID
}

// CurrentUserID — ID пользователя текущей сессии: из сохранённого
// пользователя, иначе из access-токена, иначе FallbackUserID.
func (c *Clients) CurrentUserID(ctx context.Context) string {
	st, err := c.Session.State(ctx)
	if err == nil && st.User != nil && st.User.ID != "" && st.User.ID != FallbackUserID {
		return st.User.ID
	}
	if err == nil {
		return UserIDFromToken(st.AccessToken)
	}

	return FallbackUserID
}
