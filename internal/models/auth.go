// Входные/выходные модели REST API платформы квизов.
package models

type AuthLoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type AuthRegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type AuthRefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// TokenResponse — ответ login/register/refresh.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type,omitempty"`
}

// MessageResponse — ответ операций без полезной нагрузки.
type MessageResponse struct {
	Message string `json:"message"`
}

// User — профиль пользователя (/auth/profile, /auth/user/{id}).
type User struct {
	ID    string `json:"id" yaml:"id"`
	Email string `json:"email" yaml:"email"`
}
