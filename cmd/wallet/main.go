// Package main provides the wallet command-line entry point.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/samber/do/v2"

	"github.com/walletapp/wallet-core/internal/config"
	"github.com/walletapp/wallet-core/internal/di"
	"github.com/walletapp/wallet-core/internal/errors"
	"github.com/walletapp/wallet-core/internal/logger"
	"github.com/walletapp/wallet-core/internal/service"
)

func main() {
	cfg, args, err := config.LoadConfig(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(2)
	}

	// infer never touches storage, so it runs without the container.
	if len(args) > 0 && args[0] == "infer" {
		if err := run(context.Background(), nil, args, os.Stdout); err != nil {
			exit(err)
		}
		return
	}

	injector := di.NewContainer(cfg)
	if err := di.Bootstrap(injector); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to start wallet: %v\n", err)
		os.Exit(exitCode(err))
	}

	log := do.MustInvoke[*logger.Logger](injector)
	svc := do.MustInvoke[*service.CardService](injector)

	runErr := run(context.Background(), svc, args, os.Stdout)

	if err := injector.Shutdown(); err != nil {
		log.Error("Shutdown error", "error", err)
	}

	if runErr != nil {
		exit(runErr)
	}
}

func exit(err error) {
	fmt.Fprintf(os.Stderr, "wallet: %v\n", err)
	os.Exit(exitCode(err))
}

// exitCode maps coded errors to a process status; anything else is 1.
func exitCode(err error) int {
	var domainErr *errors.Error
	if errors.As(err, &domainErr) {
		return domainErr.Code.ExitCode()
	}
	return 1
}
