package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xaenox/gamer-card/internal/bot"
	"github.com/xaenox/gamer-card/internal/server"
	"github.com/xaenox/gamer-card/internal/supervisor"
)

func runServe(cmd *cobra.Command, args []string) error {
	a, err := loadApp()
	if err != nil {
		return err
	}
	defer a.close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tree := supervisor.NewTree(supervisor.TreeConfig{ShutdownTimeout: a.cfg.HTTP.ShutdownTimeout}, a.logger)

	srv := server.New(a.runner, a.results, server.Config{
		AnalysisTimeout: a.cfg.HTTP.AnalysisTimeout,
		RateLimit:       a.cfg.HTTP.RateLimit,
		CORSOrigins:     a.cfg.HTTP.CORSOrigins,
	}, a.logger)
	httpServer := &http.Server{
		Addr:              a.cfg.HTTP.Addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	tree.AddFrontend(supervisor.NewHTTPService(httpServer, a.cfg.HTTP.ShutdownTimeout))

	if a.cfg.Telegram.Token != "" {
		b, err := bot.New(a.cfg.Telegram.Token, a.runner, a.cfg.HTTP.AnalysisTimeout, a.logger)
		if err != nil {
			return err
		}
		tree.AddFrontend(b)
	} else {
		a.logger.Info("No Telegram token configured, bot disabled")
	}

	tree.AddMaintenance(supervisor.NewJanitor(supervisor.DefaultJanitorSchedule, a.results, a.cache, a.logger))

	a.logger.Info("Serving", zap.String("addr", a.cfg.HTTP.Addr))
	return serveTree(ctx, tree)
}

func runBot(cmd *cobra.Command, args []string) error {
	a, err := loadApp()
	if err != nil {
		return err
	}
	defer a.close()

	if a.cfg.Telegram.Token == "" {
		return errors.New("telegram token is not set (TELEGRAM_TOKEN or telegram.token)")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	b, err := bot.New(a.cfg.Telegram.Token, a.runner, a.cfg.HTTP.AnalysisTimeout, a.logger)
	if err != nil {
		return err
	}

	tree := supervisor.NewTree(supervisor.DefaultTreeConfig(), a.logger)
	tree.AddFrontend(b)
	tree.AddMaintenance(supervisor.NewJanitor(supervisor.DefaultJanitorSchedule, nil, a.cache, a.logger))
	return serveTree(ctx, tree)
}

func serveTree(ctx context.Context, tree *supervisor.Tree) error {
	if err := tree.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("supervisor stopped: %w", err)
	}
	return nil
}
