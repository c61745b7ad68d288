package cmd

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/mbolis/surveyflow/app"
	"github.com/mbolis/surveyflow/config"
	"github.com/mbolis/surveyflow/database"
	"github.com/mbolis/surveyflow/devapi"
	"github.com/mbolis/surveyflow/httpx"
	"github.com/mbolis/surveyflow/log"
)

func newDevAPICmd() *cobra.Command {
	cfg := config.Config{}
	cmd := &cobra.Command{
		Use:   "devapi",
		Short: "Run a development survey API on SQLite",
		Long: `Runs a survey API backed by a local SQLite file, with password login
instead of an external identity provider. Use --admin-user and
--admin-password to create the first administrator.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDevAPI(cmd.Context(), cfg)
		},
	}
	config.BindDevAPI(cmd.Flags(), &cfg)
	return cmd
}

func runDevAPI(ctx context.Context, cfg config.Config) error {
	cfg.Finish()
	if err := cfg.ValidateDevAPI(); err != nil {
		return err
	}
	setLogLevel(cfg)

	db, err := database.Open(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	if cfg.AdminUser != "" {
		err = devapi.EnsureUser(ctx, db, cfg.AdminUser, cfg.AdminPassword, true)
		if err != nil {
			return err
		}
		log.Infof("Admin user %q is ready", cfg.AdminUser)
	}

	handler := devapi.Wire(app.API{
		DB:           db,
		BearerServer: httpx.NewBearerServer(db, cfg),
		Config:       cfg,
		Now:          time.Now,
	})

	return runServer(cfg, handler, nil)
}
