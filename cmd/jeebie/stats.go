package main

import (
	"log/slog"

	"github.com/go-echarts/statsview"
	"github.com/go-echarts/statsview/viewer"
)

const statsviewPath = "/debug/statsview"

// launchStatsview serves Go runtime charts in the background.
func launchStatsview(addr string) {
	go func() {
		viewer.SetConfiguration(viewer.WithAddr(addr))
		mgr := statsview.New()
		if err := mgr.Start(); err != nil {
			slog.Warn("statsview stopped", "error", err)
		}
	}()
	slog.Info("stats server available", "url", "http://"+addr+statsviewPath)
}
