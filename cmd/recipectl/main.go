// Command recipectl manages accounts and the database schema from the shell:
//
//	recipectl migrate
//	recipectl createsuperuser --email admin@example.com --password secret
//	recipectl createuser --email cook@example.com --password secret --name Cook
//	recipectl changepassword --email cook@example.com --password newsecret
//
// It talks to the same SQLite file as the server (--db or DB_PATH) and goes
// through the same service layer, so email normalisation and password rules
// are identical.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"

	"github.com/sakif/recipe-api/internal/auth"
	sqliteRepo "github.com/sakif/recipe-api/internal/repository/sqlite"
	"github.com/sakif/recipe-api/internal/service"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp(os.Stdout).Run(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newApp(out io.Writer) *cli.Command {
	return &cli.Command{
		Name:      "recipectl",
		Usage:     "Recipe API administration",
		Writer:    out,
		ErrWriter: out,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "db",
				Usage:   "path to the SQLite database",
				Sources: cli.EnvVars("DB_PATH"),
				Value:   "data/recipes.db",
			},
			&cli.IntFlag{
				Name:    "bcrypt-cost",
				Usage:   "bcrypt work factor for new password hashes",
				Sources: cli.EnvVars("BCRYPT_COST"),
				Value:   auth.DefaultCost,
			},
			&cli.IntFlag{
				Name:    "min-password-length",
				Usage:   "minimum accepted password length",
				Sources: cli.EnvVars("MIN_PASSWORD_LENGTH"),
				Value:   service.DefaultMinPasswordLength,
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "log level (debug, info, warn, error)",
				Sources: cli.EnvVars("LOG_LEVEL"),
				Value:   "warn",
			},
		},
		Commands: []*cli.Command{
			migrateCmd(),
			createUserCmd("createuser", "Create a regular user account", false),
			createUserCmd("createsuperuser", "Create a staff superuser account", true),
			changePasswordCmd(),
		},
	}
}

func credentialFlags(withName bool) []cli.Flag {
	flags := []cli.Flag{
		&cli.StringFlag{Name: "email", Usage: "account email", Required: true},
		&cli.StringFlag{
			Name:     "password",
			Usage:    "account password",
			Sources:  cli.EnvVars("RECIPECTL_PASSWORD"),
			Required: true,
		},
	}
	if withName {
		flags = append(flags, &cli.StringFlag{Name: "name", Usage: "display name"})
	}
	return flags
}

func migrateCmd() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "Create or upgrade the database schema",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			// sqlite.New applies the schema on open.
			db, err := openDB(cmd)
			if err != nil {
				return err
			}
			defer db.Close()

			fmt.Fprintf(cmd.Root().Writer, "database %s is up to date\n", cmd.String("db"))
			return nil
		},
	}
}

func createUserCmd(name, usage string, super bool) *cli.Command {
	return &cli.Command{
		Name:  name,
		Usage: usage,
		Flags: credentialFlags(true),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			db, err := openDB(cmd)
			if err != nil {
				return err
			}
			defer db.Close()

			users := newUserService(cmd, db)
			create := users.CreateUser
			if super {
				create = users.CreateSuperuser
			}

			user, err := create(ctx, cmd.String("email"), cmd.String("password"), cmd.String("name"))
			if err != nil {
				return fmt.Errorf("%s: %w", name, err)
			}
			fmt.Fprintf(cmd.Root().Writer, "created %s (id %s, staff=%t, superuser=%t)\n",
				user.Email, user.ID, user.IsStaff, user.IsSuperuser)
			return nil
		},
	}
}

func changePasswordCmd() *cli.Command {
	return &cli.Command{
		Name:  "changepassword",
		Usage: "Set a new password for an existing account",
		Flags: credentialFlags(false),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			db, err := openDB(cmd)
			if err != nil {
				return err
			}
			defer db.Close()

			email := cmd.String("email")
			if err := newUserService(cmd, db).SetPassword(ctx, email, cmd.String("password")); err != nil {
				return fmt.Errorf("changepassword: %w", err)
			}
			fmt.Fprintf(cmd.Root().Writer, "password changed for %s\n", service.NormalizeEmail(email))
			return nil
		},
	}
}

func openDB(cmd *cli.Command) (*sqliteRepo.DB, error) {
	db, err := sqliteRepo.New(cmd.String("db"))
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	return db, nil
}

func newUserService(cmd *cli.Command, db *sqliteRepo.DB) *service.UserService {
	return service.NewUserService(
		db,
		auth.NewPasswordService(int(cmd.Int("bcrypt-cost"))),
		nil,
		int(cmd.Int("min-password-length")),
		newLogger(cmd.String("log-level"), cmd.Root().ErrWriter),
	)
}

func newLogger(level string, w io.Writer) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelWarn
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl}))
}
