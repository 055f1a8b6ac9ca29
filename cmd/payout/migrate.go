package main

import (
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"payoutScope/internal/config"
)

func newMigrateCommand() *cobra.Command {
	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or roll back the Postgres schema",
	}

	upCmd := &cobra.Command{
		Use:   "up [N]",
		Short: "Apply all or N up migrations",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrate(cmd, args, true)
		},
	}
	downCmd := &cobra.Command{
		Use:   "down [N]",
		Short: "Roll back all or N migrations",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrate(cmd, args, false)
		},
	}

	for _, c := range []*cobra.Command{upCmd, downCmd} {
		c.Flags().String("pg-dsn", "", "Postgres DSN")
		c.Flags().String("source", "migrations", "migrations directory")
		c.Flags().String("log-level", "info", "log level (debug, info, warn, error)")
		migrateCmd.AddCommand(c)
	}
	return migrateCmd
}

func runMigrate(cmd *cobra.Command, args []string, up bool) error {
	steps := 0
	if len(args) > 0 {
		n, err := strconv.Atoi(args[0])
		if err != nil {
			return errors.Wrap(err, "failed to parse N")
		}
		if n <= 0 {
			return errors.Errorf("N must be positive, got %d", n)
		}
		steps = n
	}

	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadMigrate(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.PGDSN == "" {
		return errors.New("pg dsn is required")
	}

	m, err := migrate.New("file://"+cfg.Source, cfg.PGDSN)
	if err != nil {
		return errors.Wrap(err, "failed to create Migrate instance")
	}
	defer m.Close()
	m.Log = &migrateLogger{logger: logger.Sugar()}

	switch {
	case up && steps == 0:
		err = m.Up()
	case up:
		err = m.Steps(steps)
	case steps == 0:
		err = m.Down()
	default:
		err = m.Steps(-steps)
	}
	if err != nil {
		if !errors.Is(err, migrate.ErrNoChange) {
			return errors.Wrap(err, "failed to apply migrations")
		}
		logger.Info("migrations already up-to-date")
	}

	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return errors.Wrap(err, "read migration version")
	}
	logger.Info("migrate done", zap.Bool("up", up), zap.Uint("version", version), zap.Bool("dirty", dirty))
	return nil
}

var _ migrate.Logger = (*migrateLogger)(nil)

type migrateLogger struct {
	logger *zap.SugaredLogger
}

func (l *migrateLogger) Printf(format string, v ...interface{}) {
	l.logger.Infof(strings.TrimSuffix(format, "\n"), v...)
}

func (l *migrateLogger) Verbose() bool {
	return l.logger.Desugar().Core().Enabled(zap.DebugLevel)
}
