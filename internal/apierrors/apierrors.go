// Package apierrors описывает ошибки удалённого API в обе стороны:
//   - клиент: FromResponse превращает не-2xx ответ в *APIError
//     (сообщение берётся из поля "detail", как его отдаёт API);
//   - dev-стаб: WriteError пишет ошибку в том же формате {"detail": ...}.
package apierrors

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// Нестандартный код часто используемый для "клиент закрыл соединение".
const StatusClientClosedRequest = 499

// maxErrorBody — сколько байт тела ответа читаем при разборе ошибки.
const maxErrorBody = 64 << 10

// APIError — ошибка удалённого API, видимая вызывающему коду.
// Code — короткий стабильный код, выведенный из HTTP-статуса.
// Message — поле "detail" ответа (или текст статуса, если detail нет).
// RequestID — из заголовка ответа X-Request-Id, если есть.
type APIError struct {
	Status    int    `json:"status" yaml:"status"`
	Code      string `json:"code" yaml:"code"`
	Message   string `json:"message" yaml:"message"`
	RequestID string `json:"request_id,omitempty" yaml:"request_id,omitempty"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d (%s): %s", e.Status, e.Code, e.Message)
}

// Is позволяет сравнивать *APIError с серверными категориями ошибок:
// errors.Is(err, apierrors.ErrNotFound) истинно для 404.
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrInvalidArgument:
		return e.Status == http.StatusBadRequest || e.Status == http.StatusUnprocessableEntity
	case ErrUnauthenticated:
		return e.Status == http.StatusUnauthorized
	case ErrPermissionDenied:
		return e.Status == http.StatusForbidden
	case ErrNotFound:
		return e.Status == http.StatusNotFound
	case ErrAlreadyExists:
		return e.Status == http.StatusConflict
	case ErrUnimplemented:
		return e.Status == http.StatusNotImplemented
	}

	return false
}

// FromResponse читает тело не-2xx ответа и собирает *APIError.
// Тело не закрывается: это ответственность вызывающего.
//
// Поддерживаемые форматы тела:
//   - {"detail": "text"};
//   - {"detail": [{"loc": [...], "msg": "text", ...}, ...]} (ошибки валидации);
//   - {"error": {"code": "...", "message": "..."}};
//   - всё остальное — сообщение из текста статуса.
func FromResponse(resp *http.Response) *APIError {
	e := &APIError{
		Status:    resp.StatusCode,
		Code:      CodeFromStatus(resp.StatusCode),
		RequestID: resp.Header.Get("X-Request-Id"),
	}

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	e.Message = messageFromBody(raw)
	if e.Message == "" {
		e.Message = strings.ToLower(http.StatusText(resp.StatusCode))
	}
	if e.Message == "" {
		e.Message = "unexpected status"
	}

	return e
}

func messageFromBody(raw []byte) string {
	var body struct {
		Detail json.RawMessage `json:"detail"`
		Error  *struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return ""
	}

	if len(body.Detail) > 0 {
		var s string
		if err := json.Unmarshal(body.Detail, &s); err == nil {
			return s
		}

		var items []struct {
			Msg string `json:"msg"`
		}
		if err := json.Unmarshal(body.Detail, &items); err == nil {
			msgs := make([]string, 0, len(items))
			for _, it := range items {
				if it.Msg != "" {
					msgs = append(msgs, it.Msg)
				}
			}
			return strings.Join(msgs, "; ")
		}

		return string(body.Detail)
	}

	if body.Error != nil {
		return body.Error.Message
	}

	return ""
}

// CodeFromStatus — HTTP-статус -> стабильный код.
func CodeFromStatus(status int) string {
	switch status {
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return "invalid_argument"
	case http.StatusUnauthorized:
		return "unauthenticated"
	case http.StatusForbidden:
		return "permission_denied"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusConflict:
		return "already_exists"
	case http.StatusPreconditionFailed:
		return "failed_precondition"
	case http.StatusTooManyRequests:
		return "resource_exhausted"
	case StatusClientClosedRequest:
		return "canceled"
	case http.StatusGatewayTimeout:
		return "deadline_exceeded"
	case http.StatusServiceUnavailable:
		return "unavailable"
	case http.StatusNotImplemented:
		return "unimplemented"
	}

	if status >= 500 {
		return "internal"
	}

	return "unknown"
}

// Категории ошибок dev-стаба. Хендлеры возвращают их (обёрнутыми через
// Detail), а WriteError выбирает по ним HTTP-статус.
var (
	ErrInvalidArgument  = errors.New("invalid argument")
	ErrUnauthenticated  = errors.New("unauthenticated")
	ErrPermissionDenied = errors.New("permission denied")
	ErrNotFound         = errors.New("not found")
	ErrAlreadyExists    = errors.New("already exists")
	ErrUnimplemented    = errors.New("unimplemented")
	ErrInternal         = errors.New("internal error")
	ErrTimeout          = errors.New("request timed out")
)

// detailError — категория + человекочитаемое сообщение для поля "detail".
type detailError struct {
	kind   error
	detail string
}

func (e *detailError) Error() string { return e.detail }
func (e *detailError) Unwrap() error { return e.kind }

// Detail связывает категорию ошибки с сообщением для клиента.
func Detail(kind error, detail string) error {
	return &detailError{kind: kind, detail: detail}
}

// DetailResponse — тело ошибки в формате API.
type DetailResponse struct {
	Detail string `json:"detail"`
}

// ToHTTP конвертирует ошибку хендлера в HTTP-статус и тело.
//
// Поведение:
//   - err == nil — программная ошибка вызова: 500, чтобы не отдать
//     "200 OK" с телом ошибки;
//   - известная категория — соответствующий статус; detail из Detail(),
//     иначе текст категории;
//   - прочее — 500/"internal error" без утечки деталей.
func ToHTTP(err error) (int, DetailResponse) {
	if err == nil {
		return http.StatusInternalServerError, DetailResponse{Detail: "internal error"}
	}

	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, ErrInvalidArgument):
		status = http.StatusBadRequest
	case errors.Is(err, ErrUnauthenticated):
		status = http.StatusUnauthorized
	case errors.Is(err, ErrPermissionDenied):
		status = http.StatusForbidden
	case errors.Is(err, ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, ErrAlreadyExists):
		status = http.StatusConflict
	case errors.Is(err, ErrUnimplemented):
		status = http.StatusNotImplemented
	case errors.Is(err, ErrInternal):
		status = http.StatusInternalServerError
	case errors.Is(err, ErrTimeout):
		status = http.StatusGatewayTimeout
	default:
		return status, DetailResponse{Detail: "internal error"}
	}

	var de *detailError
	if errors.As(err, &de) {
		return status, DetailResponse{Detail: de.detail}
	}

	for _, k := range []error{ErrInvalidArgument, ErrUnauthenticated, ErrPermissionDenied, ErrNotFound, ErrAlreadyExists, ErrUnimplemented, ErrInternal, ErrTimeout} {
		if errors.Is(err, k) {
			return status, DetailResponse{Detail: k.Error()}
		}
	}

	return status, DetailResponse{Detail: "internal error"}
}

// WriteError — хелпер для HTTP-хендлеров стаба.
// Пишет статус и тело {"detail": ...}; X-Request-Id запроса дублируется в ответ.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	status, resp := ToHTTP(err)

	if rid := r.Header.Get("X-Request-Id"); rid != "" {
		w.Header().Set("X-Request-Id", rid)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}
