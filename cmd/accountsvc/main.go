package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/mkrupp/homecase-accounts/internal/infra/config"
	"github.com/mkrupp/homecase-accounts/internal/infra/logging"
	"github.com/mkrupp/homecase-accounts/internal/infra/transport/console"
	"github.com/mkrupp/homecase-accounts/internal/infra/transport/http"
	"github.com/mkrupp/homecase-accounts/internal/repo/accountfile"
	"github.com/mkrupp/homecase-accounts/internal/repo/session"
	"github.com/mkrupp/homecase-accounts/internal/svc/accountsvc"
)

const (
	appName = "accounts"
	svcName = "accountsvc"
)

var errNoTransport = errors.New("neither HTTP nor console transport is enabled")

type Config struct {
	config.EnvConfig

	Log     logging.LoggerConfig                    `envPrefix:"LOG_"`
	Account accountsvc.AccountConfig                `envPrefix:"ACCOUNT_"`
	Store   accountfile.FileAccountRepositoryConfig `envPrefix:"STORE_"`
	Session session.RepositoryConfig                `envPrefix:"SESSION_"`
	HTTP    accountsvc.HTTPTransportConfig          `envPrefix:"HTTP_"`
	Console accountsvc.ConsoleTransportConfig       `envPrefix:"CONSOLE_"`
}

func main() {
	var (
		cfg Config
		ctx = context.Background()

		configPrefix = strings.ToUpper(strings.Join([]string{appName, svcName}, "_"))
		loggerName   = strings.ToLower(strings.Join([]string{appName, svcName}, "."))
	)

	if err := config.Parse(ctx, &cfg, configPrefix); err != nil {
		panic(err)
	}

	if err := logging.Configure(ctx, cfg.Log, loggerName); err != nil {
		panic(err)
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, stop, cfg); err != nil {
		stop()
		os.Exit(1)
	}
}

// run serves the enabled transports until ctx is cancelled or the console
// operator exits. Leaving the console stops the HTTP server as well.
func run(ctx context.Context, stop context.CancelFunc, cfg Config) (err error) {
	log := logging.GetLogger("cmd.accountsvc")

	defer func() {
		if err != nil {
			log.ErrorContext(ctx, "error", "err", err)
		} else {
			log.InfoContext(ctx, "shutdown")
		}
	}()

	if !cfg.HTTP.Enabled && !cfg.Console.Enabled {
		return errNoTransport
	}

	accountSvc, err := accountsvc.NewFileAccountService(
		ctx,
		accountfile.FileAccountRepositoryFactory(cfg.Store),
		session.RepositoryFactoryFor(cfg.Session),
		cfg.Account,
	)
	if err != nil {
		return fmt.Errorf("new account service: %w", err)
	}

	defer func() {
		if closeErr := accountSvc.Close(); closeErr != nil {
			err = errors.Join(err, fmt.Errorf("close account service: %w", closeErr))
		}
	}()

	group, groupCtx := errgroup.WithContext(ctx)

	if cfg.HTTP.Enabled {
		httpTransport := accountsvc.NewHTTPTransport(accountSvc, cfg.HTTP)

		group.Go(func() error {
			if err := http.ListenAndServe(groupCtx, httpTransport, cfg.HTTP.HTTPTransportConfig); err != nil {
				return fmt.Errorf("listen and serve: %w", err)
			}

			return nil
		})
	}

	if cfg.Console.Enabled {
		consoleTransport := accountsvc.NewConsoleTransport(accountSvc, console.NewPrompter(os.Stdin, os.Stdout))

		group.Go(func() error {
			defer stop()

			if err := consoleTransport.Run(groupCtx); err != nil {
				return fmt.Errorf("run console: %w", err)
			}

			return nil
		})
	}

	return group.Wait()
}
