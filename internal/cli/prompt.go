package cli

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"golang.org/x/term"
)

// Переменные окружения с учётными данными (в т.ч. из ~/.quizctl.env).
const (
	envEmail    = "QUIZ_EMAIL"
	envPassword = "QUIZ_PASSWORD"
)

var errNoPassword = errors.New("password is required: use --password-stdin, " + envPassword + " or an interactive terminal")

func stdinIsTerminal() bool { return term.IsTerminal(int(os.Stdin.Fd())) }

// credentials собирает email и пароль: флаги, затем окружение, затем терминал.
func (a *app) credentials(email string, passwordStdin bool) (string, string, error) {
	if email == "" {
		email = os.Getenv(envEmail)
	}
	if email == "" {
		return "", "", fmt.Errorf("email is required: use --email or %s", envEmail)
	}

	if passwordStdin {
		line, err := bufio.NewReader(a.deps.Stdin).ReadString('\n')
		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			if err != nil {
				return "", "", fmt.Errorf("read password from stdin: %w", err)
			}
			return "", "", errNoPassword
		}
		return email, line, nil
	}

	if pw := os.Getenv(envPassword); pw != "" {
		return email, pw, nil
	}

	if !a.deps.IsTerminal() {
		return "", "", errNoPassword
	}

	fmt.Fprint(a.deps.Stderr, "Password: ")
	raw, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(a.deps.Stderr)
	if err != nil {
		return "", "", fmt.Errorf("read password: %w", err)
	}
	if len(raw) == 0 {
		return "", "", errNoPassword
	}

	return email, string(raw), nil
}
