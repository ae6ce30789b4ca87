package main

import (
	"context"
	"fmt"
	"os"

	"bizdash/internal/cli"
	"bizdash/internal/decode"
	"bizdash/internal/log"
)

func main() {
	cli.LoadEnvFile()

	cfg, err := cli.LoadAndValidateConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}
	logger := cli.SetupLogger(cfg.LogLevel)

	ctx := context.Background()
	app, err := cli.NewApp(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize", log.FieldError, err.Error())
		os.Exit(1)
	}
	decode.SetFailureRecorder(app.Metrics)

	err = cli.NewRootCmd(app).ExecuteContext(ctx)
	if cerr := app.Close(); cerr != nil {
		logger.Warn("Cleanup failed", log.FieldError, cerr.Error())
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
