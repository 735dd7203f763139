package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	cli "github.com/urfave/cli/v3"

	"photocurate/internal/models"
)

func main() {
	// .env is optional; real environment variables win.
	_ = godotenv.Load()

	cmd := &cli.Command{
		Name:  "photocurate",
		Usage: "Photo curation API: variations, approval, captions and publishing",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to the YAML config file",
				Value:   "config.yaml",
				Sources: cli.EnvVars("CONFIG_PATH"),
			},
		},
		Commands: []*cli.Command{
			newServeCommand(),
			newMigrateCommand(),
		},
		DefaultCommand: "serve",
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadConfig(cmd *cli.Command) (*models.Config, error) {
	path := cmd.String("config")
	if _, err := os.Stat(path); os.IsNotExist(err) && !cmd.IsSet("config") {
		path = ""
	}
	cfg, err := models.LoadConfig(path)
	if err != nil {
		return nil, err
	}
	if addr := cmd.String("addr"); addr != "" {
		cfg.ServerAddr = addr
	}
	if mode := cmd.String("log-mode"); mode != "" {
		cfg.LogMode = mode
	}
	return cfg, nil
}
