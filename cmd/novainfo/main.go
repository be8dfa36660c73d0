package main

import (
	"fmt"
	"os"

	"github.com/coler706/nova-renderer/config"
	"github.com/coler706/nova-renderer/logging"
	"github.com/urfave/cli/v2"
	"golang.org/x/exp/slog"
)

// session is the state every command starts from
type session struct {
	settings *config.Settings
	logger   *slog.Logger
}

func main() {
	s := &session{}

	app := &cli.App{
		Name:  "novainfo",
		Usage: "Inspect GPU adapters and bring up the Nova render context",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Usage:   "Path to a settings YAML file",
				EnvVars: []string{"NOVA_CONFIG"},
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "One of trace, debug, info, warning, error, fatal",
			},
			&cli.IntFlag{
				Name:  "frames",
				Usage: "Frames in flight",
			},
			&cli.IntFlag{
				Name:  "workers",
				Usage: "Command recording workers, 0 for one per CPU",
			},
		},
		Before: func(c *cli.Context) error {
			return s.load(c)
		},
		Commands: []*cli.Command{
			adaptersCommand(s),
			initCommand(s),
			statsCommand(s),
		},
	}

	err := app.Run(os.Args)
	if err != nil {
		if s.logger == nil {
			fmt.Fprintf(os.Stderr, "Error: %+v\n", err)
			os.Exit(1)
		}
		logging.Fatal(s.logger, "novainfo failed", err)
	}
}

func (s *session) load(c *cli.Context) error {
	var settings *config.Settings
	var err error

	if path := c.String("config"); path != "" {
		settings, err = config.Load(path)
		if err != nil {
			return err
		}
	} else {
		defaults := config.Default()
		settings = &defaults
	}

	if c.IsSet("log-level") {
		settings.LogLevel = c.String("log-level")
	}
	if c.IsSet("frames") {
		settings.FramesInFlight = c.Int("frames")
	}
	if c.IsSet("workers") {
		settings.CommandWorkers = c.Int("workers")
	}

	err = settings.Validate()
	if err != nil {
		return err
	}

	level, err := logging.ParseLevel(settings.LogLevel)
	if err != nil {
		return err
	}

	s.settings = settings
	s.logger = logging.New(os.Stderr, level)
	return nil
}
