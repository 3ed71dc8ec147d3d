package main

import (
	"github.com/spf13/cobra"

	"devdash/internal/dashboard"
	appLog "devdash/internal/log"
	"devdash/internal/web"
)

var listenAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the dashboard and refresh it on a schedule",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&listenAddr, "listen", "", "HTTP listen address (overrides config if set)")
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	appLog.Info("devdash starting", "version", version)

	a, err := newApp()
	if err != nil {
		return err
	}
	if listenAddr != "" {
		a.cfg.Listen = listenAddr
	}

	rt, err := dashboard.NewRuntime(ctx, a.dash, a.cfg.Debounce(), a.cfg.RefreshCron, a.cfg.Location())
	if err != nil {
		return err
	}

	srv, err := web.NewServer(web.Deps{
		Config:    a.cfg,
		Board:     a.dash.Board(),
		Settings:  a.settings,
		Refresher: rt,
		OAuth:     a.oauth,
		Metrics:   a.metrics,
	})
	if err != nil {
		return err
	}

	go func() {
		if err := a.settings.Watch(ctx, rt.SettingsChanged); err != nil {
			appLog.Error("settings watcher stopped", err)
		}
	}()

	rt.Start()
	err = web.Serve(ctx, a.cfg.Listen, srv.Handler())
	rt.Stop()
	appLog.Info("devdash exiting")
	return err
}
