package cmd

import (
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/mbolis/surveyflow/apiclient"
	"github.com/mbolis/surveyflow/app"
	"github.com/mbolis/surveyflow/config"
	"github.com/mbolis/surveyflow/form"
	"github.com/mbolis/surveyflow/log"
	"github.com/mbolis/surveyflow/routes"
	"github.com/mbolis/surveyflow/session"
	"github.com/mbolis/surveyflow/survey"
	"github.com/mbolis/surveyflow/views"
)

func newServeCmd() *cobra.Command {
	cfg := config.Config{}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the web frontend",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cfg)
		},
	}
	config.BindServe(cmd.Flags(), &cfg)
	return cmd
}

func runServe(cfg config.Config) error {
	cfg.Finish()
	if err := cfg.ValidateServe(); err != nil {
		return err
	}
	setLogLevel(cfg)

	api := apiclient.New(cfg.APIUrl, &http.Client{Timeout: cfg.RequestTimeout})

	opts := []session.Option{
		session.WithSecureCookies(strings.HasPrefix(cfg.PublicURL, "https://")),
	}
	if cfg.LoginURL != "" {
		opts = append(opts, session.WithLoginURL(cfg.LoginURL))
	}
	sessions := session.NewManager(api, opts...)

	widgets, err := survey.NewRenderer()
	if err != nil {
		return err
	}
	pages, err := views.New(widgets, time.Now)
	if err != nil {
		return err
	}

	forms := form.NewRegistry(cfg.FormIdleTTL)

	handler := routes.Wire(app.Web{
		Config:   cfg,
		API:      api,
		Sessions: sessions,
		Forms:    forms,
		Widgets:  widgets,
		Views:    pages,
		Now:      time.Now,
	})

	log.Infof("Using API at %s", cfg.APIUrl)
	// pending drafts are saved before exiting
	return runServer(cfg, handler, forms.Close)
}
