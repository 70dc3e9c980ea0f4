package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/joho/godotenv"

	"kbase/internal/cli"
)

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cli.Execute(ctx)
}
