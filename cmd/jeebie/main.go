package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/urfave/cli"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		slog.Error("Error running emulator", "error", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	app := cli.NewApp()
	app.Name = "jeebie"
	app.Description = "A cycle-accurate Game Boy (DMG) core"
	app.Usage = "run, trace and test DMG programs"
	app.Version = "1.0.0"
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "log-level",
			Usage: "debug, info, warn or error",
			Value: "info",
		},
		cli.StringFlag{
			Name:  "statsview",
			Usage: "Serve runtime stats on this address, e.g. localhost:12600",
		},
	}
	app.Before = func(c *cli.Context) error {
		level, err := parseLevel(c.String("log-level"))
		if err != nil {
			return err
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
		if addr := c.String("statsview"); addr != "" {
			launchStatsview(addr)
		}
		return nil
	}
	app.Commands = []cli.Command{
		runCommand,
		headlessCommand,
		testCommand,
		traceCommand,
	}
	return app
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(s))); err != nil {
		return 0, fmt.Errorf("invalid log level %q", s)
	}
	return level, nil
}
