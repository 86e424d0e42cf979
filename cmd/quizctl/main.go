// quizctl — консольный клиент платформы квизов.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/pribylovaa/go-quiz-client/internal/cli"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := cli.Execute(ctx, os.Args[1:], cli.Deps{})
	cancel()

	os.Exit(code)
}
