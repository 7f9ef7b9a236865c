package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"ai-chat/internal/config"
	"ai-chat/internal/logger"
	"ai-chat/internal/repository/postgres"

	"github.com/golang-migrate/migrate/v4"
	"github.com/sirupsen/logrus"
)

func main() {
	steps := flag.Int("steps", 0, "number of migrations to apply or roll back; 0 means all")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: migrate [-steps n] up|down|version\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	if err := run(flag.Arg(0), *steps); err != nil {
		logger.Log.WithError(err).Fatal("Migration failed")
	}
}

func run(command string, steps int) error {
	appConfig, err := config.LoadConfig()
	if err != nil {
		return err
	}

	conn, err := postgres.Open(context.Background(), appConfig.Database)
	if err != nil {
		return err
	}

	m, err := postgres.NewMigrate(conn, appConfig.Database.MigrationsPath)
	if err != nil {
		conn.Close()
		return err
	}
	defer m.Close()

	switch command {
	case "up":
		if steps > 0 {
			err = m.Steps(steps)
		} else {
			err = m.Up()
		}
	case "down":
		if steps > 0 {
			err = m.Steps(-steps)
		} else {
			err = m.Down()
		}
	case "version":
	default:
		return fmt.Errorf("unknown command %q", command)
	}
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}

	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return err
	}
	logger.Log.WithFields(logrus.Fields{
		"command": command,
		"version": version,
		"dirty":   dirty,
	}).Info("Migration finished")
	return nil
}
