package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/lewisedginton/attendance_bot/internal/cli"
)

var version = "dev"

func main() {
	// .env is optional; real environment variables take precedence
	_ = godotenv.Load()

	app := cli.NewApp(version, os.Stdout)
	if err := app.RunContext(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
