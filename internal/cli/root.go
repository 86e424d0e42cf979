// Package cli — команды quizctl поверх типизированных клиентов API.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/pribylovaa/go-quiz-client/internal/clients"
	"github.com/pribylovaa/go-quiz-client/internal/config"
	"github.com/pribylovaa/go-quiz-client/internal/gateway"
	"github.com/pribylovaa/go-quiz-client/internal/session"
	logctx "github.com/pribylovaa/go-quiz-client/pkg/log"
)

// Коды завершения quizctl.
const (
	ExitOK         = 0
	ExitError      = 1
	ExitAuthFailed = 2
)

// EnvFile — dotenv-файл в домашнем каталоге с QUIZ_* переменными.
const EnvFile = ".quizctl.env"

// Deps — окружение команд. Нулевые поля заменяются значениями процесса.
type Deps struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
	// Store — хранилище сессии вместо заданного конфигурацией.
	Store session.Store
	// IsTerminal сообщает, можно ли спрашивать пароль интерактивно.
	IsTerminal func() bool
}

type app struct {
	deps Deps

	configPath string
	output     string
	verbose    bool

	cfg *config.Config
	log *slog.Logger
	cl  *clients.Clients
}

// Execute разбирает args, выполняет команду и возвращает код завершения.
// Сессия, очищенная шлюзом, даёт ExitAuthFailed.
func Execute(ctx context.Context, args []string, deps Deps) int {
	if deps.Stdin == nil {
		deps.Stdin = os.Stdin
	}
	if deps.Stdout == nil {
		deps.Stdout = os.Stdout
	}
	if deps.Stderr == nil {
		deps.Stderr = os.Stderr
	}
	if deps.IsTerminal == nil {
		deps.IsTerminal = stdinIsTerminal
	}

	a := &app{deps: deps}
	root := a.rootCmd()
	root.SetArgs(args)
	root.SetIn(deps.Stdin)
	root.SetOut(deps.Stdout)
	root.SetErr(deps.Stderr)

	err := root.ExecuteContext(ctx)
	if a.cl != nil {
		if cerr := a.cl.Close(); cerr != nil && a.log != nil {
			a.log.Warn("session_store_close_failed", slog.String("err", cerr.Error()))
		}
	}

	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, gateway.ErrAuthFailed):
		return ExitAuthFailed
	default:
		fmt.Fprintln(deps.Stderr, "error:", err)
		return ExitError
	}
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "quizctl",
		Short:         "Command-line client for the quiz platform",
		Long:          "quizctl talks to the quiz platform API: sign in, manage quizzes, submit answers and check the leaderboard.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
	}
	root.CompletionOptions.DisableDefaultCmd = true

	root.PersistentFlags().StringVar(&a.configPath, "config", "", "path to config file")
	root.PersistentFlags().StringVarP(&a.output, "output", "o", "yaml", "output format: yaml|json")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "log HTTP calls to stderr")

	root.AddCommand(a.loginCmd())
	root.AddCommand(a.registerCmd())
	root.AddCommand(a.logoutCmd())
	root.AddCommand(a.whoamiCmd())
	root.AddCommand(a.profileCmd())
	root.AddCommand(a.quizCmd())
	root.AddCommand(a.leaderboardCmd())

	return root
}

// setup загружает ~/.quizctl.env, конфигурацию и собирает клиентов.
func (a *app) setup(cmd *cobra.Command) error {
	switch a.output {
	case formatYAML, formatJSON:
	default:
		return fmt.Errorf("unknown output format %q (want yaml|json)", a.output)
	}

	if home, err := os.UserHomeDir(); err == nil {
		// отсутствие файла — норма; уже заданные переменные не перекрываются.
		_ = godotenv.Load(filepath.Join(home, EnvFile))
	}

	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	a.cfg = cfg

	level := slog.LevelWarn
	if a.verbose {
		level = slog.LevelDebug
	}
	a.log = slog.New(slog.NewTextHandler(a.deps.Stderr, &slog.HandlerOptions{Level: level}))
	cmd.SetContext(logctx.Into(cmd.Context(), a.log))

	cl, err := clients.New(cmd.Context(), cfg, a.log, clients.Options{
		Store:         a.deps.Store,
		OnInvalidated: a.onInvalidated,
	})
	if err != nil {
		return err
	}
	a.cl = cl

	return nil
}

func (a *app) onInvalidated(ctx context.Context, reason error) {
	logctx.From(ctx).Debug("session_invalidated", slog.String("reason", reason.Error()))
	fmt.Fprintln(a.deps.Stderr, `session expired, run "quizctl login"`)
}
