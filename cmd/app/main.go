package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/othala/internal"
	pkgconfig "github.com/starford/othala/pkg/config"
)

// loadConfig builds the effective configuration: defaults, then the YAML
// file when present, then command-line overrides.
func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	cfg := internal.NewDefaultConfig()
	if err := pkgconfig.LoadOptional(cmd.String("config"), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if storePath := cmd.String("store"); storePath != "" {
		cfg.Store.Path = storePath
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func runExport(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	out := os.Stdout
	if path := cmd.String("output"); path != "" {
		f, createErr := os.Create(path)
		if createErr != nil {
			return fmt.Errorf("create output file: %w", createErr)
		}
		defer f.Close()
		out = f
	}

	return internal.RunExport(ctx, cfg, out, !cmd.Bool("metadata-only"))
}

func runServe(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := internal.Run(ctx, internal.WithConfig(cfg)); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}
	return nil
}

func runMCP(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	return internal.RunMCP(ctx, cfg)
}

func main() {
	cmd := &cli.Command{
		Name:  "othala",
		Usage: "Read-only access to Apple Notes stores: schema detection, content decoding, export, REST API, and MCP tools",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("APP_CONFIG_FILE"),
			},
			&cli.StringFlag{
				Name:    "store",
				Aliases: []string{"s"},
				Usage:   "Path to the NoteStore.sqlite database (overrides config)",
				Sources: cli.EnvVars("OTHALA_STORE_PATH"),
			},
		},
		// Bare invocation exports to stdout with content included.
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			return internal.RunExport(ctx, cfg, os.Stdout, true)
		},
		Commands: []*cli.Command{
			{
				Name:   "export",
				Usage:  "Decode the store and write a JSON export",
				Action: runExport,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Write the export to a file instead of stdout",
					},
					&cli.BoolFlag{
						Name:  "metadata-only",
						Usage: "Skip note text in the export",
					},
				},
			},
			{
				Name:   "serve",
				Usage:  "Serve the REST API and SSE events over HTTP",
				Action: runServe,
			},
			{
				Name:   "mcp",
				Usage:  "Serve MCP tools on stdio for LLM integration",
				Action: runMCP,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
