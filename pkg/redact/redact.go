// redact предоставляет утилиты безопасного редактирования чувствительных
// данных для логов клиента (e-mail, токены, пароли, заголовки запроса).
package redact

import (
	"net/http"
	"strings"
)

// Email маскирует e-mail для логирования.
//
// Правила:
//   - строка должна содержать ровно один '@', иначе возвращается "***";
//   - локальная часть заменяется на первые два символа (по рунам) + "***";
//   - если локальная часть не длиннее двух символов — "***@<domain>";
//   - домен возвращается без изменений.
func Email(s string) string {
	if strings.Count(s, "@") != 1 {
		return "***"
	}

	i := strings.IndexByte(s, '@')
	local, domain := s[:i], s[i+1:]

	lr := []rune(local)
	if len(lr) > 2 {
		local = string(lr[:2]) + "***"
	} else {
		local = "***"
	}

	return local + "@" + domain
}

// Token возвращает литерал-заглушку для токена в логах.
func Token() string { return "[REDACTED_TOKEN]" }

// Password возвращает литерал-заглушку для пароля в логах.
func Password() string { return "[REDACTED_PASSWORD]" }

// sensitiveHeaders — заголовки, значения которых не попадают в логи.
var sensitiveHeaders = map[string]struct{}{
	"Authorization": {},
	"Cookie":        {},
	"Set-Cookie":    {},
}

// Headers возвращает плоскую копию заголовков для логирования,
// заменяя значения чувствительных заголовков заглушкой.
func Headers(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for k, v := range h {
		ck := http.CanonicalHeaderKey(k)
		if _, ok := sensitiveHeaders[ck]; ok {
			out[ck] = Token()
			continue
		}
		out[ck] = strings.Join(v, ",")
	}

	return out
}
