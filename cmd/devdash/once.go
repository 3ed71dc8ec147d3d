package main

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"devdash/internal/capture"
	"devdash/internal/dashboard"
	appLog "devdash/internal/log"
	"devdash/internal/render"
	"devdash/internal/web"
)

var (
	showLinks bool

	snapshotOut    string
	snapshotWidth  int
	snapshotHeight int
)

var onceCmd = &cobra.Command{
	Use:   "once",
	Short: "Run one refresh cycle and print the dashboard",
	RunE:  runOnce,
}

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Run one refresh cycle and save a PNG screenshot of the page",
	RunE:  runSnapshot,
}

func init() {
	onceCmd.Flags().BoolVar(&showLinks, "links", false, "Print item links")

	snapshotCmd.Flags().StringVarP(&snapshotOut, "out", "o", "dashboard.png", "Output PNG path")
	snapshotCmd.Flags().IntVar(&snapshotWidth, "width", capture.DefaultWidth, "Viewport width in pixels")
	snapshotCmd.Flags().IntVar(&snapshotHeight, "height", capture.DefaultHeight, "Viewport height in pixels")
}

func runOnce(cmd *cobra.Command, _ []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	a.dash.Refresh(cmd.Context(), dashboard.TriggerOnce)

	out := cmd.OutOrStdout()
	for _, b := range a.dash.Bindings() {
		term := &render.TermRegion{Title: b.Label, ShowLinks: showLinks}
		a.dash.Board().Replay(b.ID, term)
		fmt.Fprintln(out, term.String())
	}
	return nil
}

// runSnapshot serves the page on a loopback port just long enough for
// headless Chromium to capture it.
func runSnapshot(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	a, err := newApp()
	if err != nil {
		return err
	}
	a.dash.Refresh(ctx, dashboard.TriggerOnce)

	srv, err := web.NewServer(web.Deps{
		Config:    a.cfg,
		Board:     a.dash.Board(),
		Settings:  a.settings,
		Refresher: nopRefresher{},
		Metrics:   a.metrics,
	})
	if err != nil {
		return err
	}

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return err
	}
	hs := &http.Server{Handler: srv.Handler(), ReadHeaderTimeout: 10 * time.Second}
	go func() {
		if err := hs.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLog.Error("snapshot server failed", err)
		}
	}()
	defer hs.Close()

	url := "http://" + ln.Addr().String() + "/"
	appLog.Info("capturing dashboard", "url", url, "out", snapshotOut)
	if err := capture.CaptureDashboardPNG(ctx, capture.CaptureOptions{
		URL:        url,
		OutputPath: snapshotOut,
		Width:      snapshotWidth,
		Height:     snapshotHeight,
		BasicAuth:  a.cfg.BasicAuth,
	}); err != nil {
		return err
	}
	appLog.Info("snapshot written", "out", snapshotOut)
	return nil
}

// nopRefresher ignores refresh requests made while a snapshot is taken.
type nopRefresher struct{}

func (nopRefresher) RequestRefresh()   {}
func (nopRefresher) RefreshNow(string) {}
