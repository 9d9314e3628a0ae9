// Package main is the entry point for the snippet API.
//
// COMMANDS:
//
//	server serve                                   run the HTTP API (default)
//	server migrate                                 apply schema migrations and exit
//	server createuser --username U --password P    add a local account
//
// All commands share --config, an optional settings file; environment
// variables override it. See internal/config for the keys.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/urfave/cli"

	"github.com/sakif/snippet-api/internal/auth"
	"github.com/sakif/snippet-api/internal/config"
	sqliteRepo "github.com/sakif/snippet-api/internal/repository/sqlite"
	"github.com/sakif/snippet-api/internal/server"
	"github.com/sakif/snippet-api/internal/service"
)

var serveCmd = cli.Command{
	Name:   "serve",
	Usage:  "run the HTTP API",
	Action: serve,
}

var migrateCmd = cli.Command{
	Name:  "migrate",
	Usage: "apply database migrations and exit",
	Action: func(c *cli.Context) error {
		cfg, logger, err := setup(c)
		if err != nil {
			return err
		}

		db, err := openDB(cfg, logger)
		if err != nil {
			return err
		}
		defer db.Close()

		version, dirty, err := db.SchemaVersion()
		if err != nil {
			return cli.NewExitError(err.Error(), 1)
		}
		logger.Info("database migrated",
			slog.String("database", cfg.DBPath),
			slog.Uint64("version", uint64(version)),
			slog.Bool("dirty", dirty),
		)
		return nil
	},
}

var createUserCmd = cli.Command{
	Name:  "createuser",
	Usage: "create a local user who can log in with a password",
	Flags: []cli.Flag{
		cli.StringFlag{
			Name:  "username",
			Usage: "login name (letters, digits and @.+-_)",
		},
		cli.StringFlag{
			Name:   "password",
			Usage:  "password, at least 8 characters",
			EnvVar: "SNIPPET_PASSWORD",
		},
	},
	Action: func(c *cli.Context) error {
		cfg, logger, err := setup(c)
		if err != nil {
			return err
		}

		db, err := openDB(cfg, logger)
		if err != nil {
			return err
		}
		defer db.Close()

		// The token service is never used to sign here; any valid secret will do.
		tokens, err := auth.NewTokenService("createuser-unused-secret", 0)
		if err != nil {
			return cli.NewExitError(err.Error(), 1)
		}
		svc := service.NewAuthService(db.Users(), tokens, auth.NewPasswordService(), logger)

		user, err := svc.CreateUser(context.Background(), c.String("username"), c.String("password"))
		if err != nil {
			return cli.NewExitError(fmt.Sprintf("createuser: %v", err), 1)
		}
		fmt.Fprintf(c.App.Writer, "created user %q with id %d\n", user.Username, user.ID)
		return nil
	},
}

func main() {
	app := cli.NewApp()
	app.Name = "server"
	app.Usage = "code snippet API with syntax highlighting"
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:   "config",
			Usage:  "optional config file (yaml, toml, json or env)",
			EnvVar: "SNIPPET_CONFIG",
		},
	}
	app.Commands = []cli.Command{
		serveCmd,
		migrateCmd,
		createUserCmd,
	}
	app.Action = serve

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func serve(c *cli.Context) error {
	cfg, logger, err := setup(c)
	if err != nil {
		return err
	}
	if err := ensureDBDir(cfg.DBPath); err != nil {
		return cli.NewExitError(err.Error(), 1)
	}

	srv, err := server.New(cfg, logger)
	if err != nil {
		return cli.NewExitError(fmt.Sprintf("failed to create server: %v", err), 1)
	}

	// Start blocks until SIGINT or SIGTERM.
	if err := srv.Start(); err != nil {
		return cli.NewExitError(fmt.Sprintf("server error: %v", err), 1)
	}
	return nil
}

// setup loads the configuration named by the global --config flag and
// builds the logger at the configured level.
func setup(c *cli.Context) (*config.Config, *slog.Logger, error) {
	file := c.GlobalString("config")
	if file == "" {
		file = c.String("config")
	}

	cfg, err := config.Load(file)
	if err != nil {
		return nil, nil, cli.NewExitError(err.Error(), 2)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.Level(),
	}))
	slog.SetDefault(logger)
	return cfg, logger, nil
}

func openDB(cfg *config.Config, logger *slog.Logger) (*sqliteRepo.DB, error) {
	if err := ensureDBDir(cfg.DBPath); err != nil {
		return nil, cli.NewExitError(err.Error(), 1)
	}
	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		logger.Error("failed to open database", slog.String("database", cfg.DBPath), slog.String("error", err.Error()))
		return nil, cli.NewExitError(err.Error(), 1)
	}
	return db, nil
}

// ensureDBDir creates the database's parent directory, like mkdir -p.
func ensureDBDir(dbPath string) error {
	if dbPath == sqliteRepo.MemoryPath {
		return nil
	}
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating database directory %s: %w", dir, err)
	}
	return nil
}
