// Package cmd holds the surveyflow command line.
package cmd

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/mbolis/surveyflow/config"
	"github.com/mbolis/surveyflow/log"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "surveyflow",
		Short: "Survey web frontend and development API",
		Long: `surveyflow serves surveys to respondents and their results to admins.

"serve" runs the web frontend against a survey API, "devapi" runs a
self-contained API on SQLite for development, and "check" validates a
survey definition file before it is uploaded.`,
		SilenceUsage: true,
	}
	root.AddCommand(newServeCmd(), newDevAPICmd(), newCheckCmd())
	return root
}

// Execute runs the command line and returns the process exit code. The .env
// file is read first, since flag defaults come from the environment.
func Execute() int {
	if err := config.LoadEnv(); err != nil {
		log.Error("main.env:", err)
		return 1
	}
	if err := newRootCmd().Execute(); err != nil {
		return 1
	}
	return 0
}

func setLogLevel(cfg config.Config) {
	if cfg.Debug {
		log.SetLevel(log.DebugLevel)
	}
}

// runServer listens until the process is interrupted, then lets requests in
// flight finish before calling shutdown.
func runServer(cfg config.Config, handler http.Handler, shutdown func(context.Context)) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := &http.Server{
		Addr:         cfg.Addr,
		Handler:      handler,
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("Listening on " + cfg.Url())
		err := srv.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("Shutting down")

		sctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		err := srv.Shutdown(sctx)
		if shutdown != nil {
			shutdown(sctx)
		}
		return err
	})
	return g.Wait()
}
