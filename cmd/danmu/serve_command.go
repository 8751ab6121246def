package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"strings"
	"syscall"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"danmu/internal/api"
	"danmu/internal/logging"
	"danmu/internal/preflight"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	var bind string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), ctx, bind)
		},
	}

	cmd.Flags().StringVar(&bind, "bind", "", "Override server.bind")
	return cmd
}

func runServer(cmdCtx context.Context, ctx *commandContext, bindOverride string) error {
	if cmdCtx == nil {
		cmdCtx = context.Background()
	}
	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := ctx.ensureConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	lock := flock.New(cfg.LockPath())
	ok, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another danmu server is already running for this data directory")
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			logger.Warn("failed to release server lock", logging.Error(err))
		}
	}()

	eng, closeFn, err := buildEngine(cfg, logger)
	if err != nil {
		return err
	}
	defer closeFn()

	for _, result := range preflight.Failed(preflight.RunAll(signalCtx, cfg, nil)) {
		logging.WarnWithContext(logger, "preflight check failed", "preflight_failed",
			logging.String("check", result.Name),
			logging.String(logging.FieldErrorHint, result.Detail),
		)
	}

	bind := strings.TrimSpace(bindOverride)
	if bind == "" {
		bind = cfg.Server.Bind
	}

	logger.Info("danmu server starting",
		logging.String("bind", bind),
		logging.String("lock", cfg.LockPath()),
		logging.String("providers", strings.Join(eng.Providers(), ",")),
	)
	server := api.NewServer(eng, cfg.Server.Token, logger)
	if err := server.ListenAndServe(signalCtx, bind); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logger.Info("danmu server stopped")
	return nil
}
