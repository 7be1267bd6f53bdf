package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/f1r3fly-io/rholang-language-server/internal/config"
	"github.com/f1r3fly-io/rholang-language-server/internal/core"
	"github.com/f1r3fly-io/rholang-language-server/internal/debug"
	"github.com/f1r3fly-io/rholang-language-server/internal/server"
	"github.com/f1r3fly-io/rholang-language-server/internal/version"
)

// loadConfigWithOverrides loads configuration and applies CLI flag overrides
func loadConfigWithOverrides(c *cli.Context) (*config.Config, error) {
	root := c.String("root")
	cfg, err := config.Load(root)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if includeFlags := c.StringSlice("include"); len(includeFlags) > 0 {
		cfg.Include = includeFlags
	}
	if excludeFlags := c.StringSlice("exclude"); len(excludeFlags) > 0 {
		cfg.Exclude = append(cfg.Exclude, excludeFlags...)
	}
	if c.IsSet("no-cache") {
		cfg.Cache.Persistent = false
	}
	if c.IsSet("debounce-ms") {
		cfg.Index.WatchDebounceMs = c.Int("debounce-ms")
	}
	return cfg, nil
}

func main() {
	app := &cli.App{
		Name:                   "rholang-ls",
		Usage:                  "Language server for Rholang and MeTTa",
		Version:                version.Version,
		UseShortOptionHandling: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "root",
				Aliases: []string{"r"},
				Usage:   "Workspace root directory (overrides config and client-provided root)",
			},
			&cli.StringSliceFlag{
				Name:  "include",
				Usage: "Include files matching glob patterns (e.g., --include '**/*.rho')",
			},
			&cli.StringSliceFlag{
				Name:  "exclude",
				Usage: "Exclude files matching glob patterns (e.g., --exclude '**/generated/**')",
			},
			&cli.BoolFlag{
				Name:  "no-cache",
				Usage: "Disable the persistent on-disk cache",
			},
			&cli.IntFlag{
				Name:  "debounce-ms",
				Usage: "Debounce window for re-indexing in milliseconds",
			},
			&cli.BoolFlag{
				Name:  "debug-log",
				Usage: "Write debug logs to a file under the system temp directory",
			},
		},
		Commands: []*cli.Command{
			serveCommand(),
			indexCommand(),
			statusCommand(),
		},
		// Plain `rholang-ls` serves stdio, matching editor expectations.
		Action: func(c *cli.Context) error {
			return runServe(c)
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:   "serve",
		Usage:  "Serve the Language Server Protocol over stdio",
		Action: runServe,
	}
}

func runServe(c *cli.Context) error {
	// Anything written to stdout other than JSON-RPC corrupts the stream.
	debug.SetStdioMode(true)
	log.SetOutput(os.Stderr)
	if c.Bool("debug-log") {
		if path, err := debug.InitDebugLogFile(); err == nil {
			defer debug.CloseDebugLog()
			log.Printf("debug log: %s", path)
		}
	}

	logger, err := newStderrLogger()
	if err != nil {
		return err
	}
	defer logger.Sync()

	cfg, err := loadConfigWithOverrides(c)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("starting", zap.String("version", version.FullInfo()))
	return server.RunStdio(ctx, cfg, logger)
}

func indexCommand() *cli.Command {
	return &cli.Command{
		Name:  "index",
		Usage: "Index the workspace once and persist the cache",
		Action: func(c *cli.Context) error {
			cfg, err := loadConfigWithOverrides(c)
			if err != nil {
				return err
			}
			engine := core.NewEngine(cfg, nil)
			ctx := context.Background()
			if err := engine.Initialize(ctx); err != nil {
				return err
			}
			if err := engine.Shutdown(ctx); err != nil {
				return err
			}
			stats := engine.Stats()
			fmt.Printf("indexed %d documents (%d cache hits, %d misses)\n",
				stats.Entries, stats.Hits, stats.Misses)
			return nil
		},
	}
}

func statusCommand() *cli.Command {
	return &cli.Command{
		Name:  "status",
		Usage: "Show cache statistics for a workspace",
		Action: func(c *cli.Context) error {
			cfg, err := loadConfigWithOverrides(c)
			if err != nil {
				return err
			}
			engine := core.NewEngine(cfg, nil)
			ctx := context.Background()
			if err := engine.Initialize(ctx); err != nil {
				return err
			}
			defer engine.Shutdown(ctx)

			stats := engine.Stats()
			abs, _ := filepath.Abs(cfg.Project.Root)
			fmt.Printf("workspace: %s\n", abs)
			fmt.Printf("documents: %d / %d capacity\n", stats.Entries, stats.Capacity)
			fmt.Printf("queries:   %d (%.0f%% hit rate)\n", stats.Queries, stats.HitRate()*100)
			fmt.Printf("evictions: %d\n", stats.Evictions)
			return nil
		},
	}
}

// newStderrLogger builds a zap logger that never touches stdout.
func newStderrLogger() (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	return cfg.Build()
}
