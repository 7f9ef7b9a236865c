package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"ai-chat/internal/config"
	"ai-chat/internal/logger"
	"ai-chat/internal/repository/db"
	"ai-chat/internal/repository/postgres/migrations"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"
)

// Ensure PostgresDB implements db.Database interface
var _ db.Database = (*PostgresDB)(nil)

// PostgresDB implements the db.Database interface
type PostgresDB struct {
	conn *sql.DB
}

// Open connects to PostgreSQL and applies the pool settings without touching the schema.
func Open(ctx context.Context, dbConfig config.DatabaseConfig) (*sql.DB, error) {
	if dbConfig.URL == "" {
		return nil, errors.New("database URL is empty")
	}

	conn, err := sql.Open("postgres", dbConfig.URL)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}

	conn.SetMaxOpenConns(dbConfig.MaxOpenConns)
	conn.SetMaxIdleConns(dbConfig.MaxIdleConns)
	conn.SetConnMaxLifetime(dbConfig.ConnMaxLifetime)

	// Test the connection
	if err = conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("error connecting to database: %w", err)
	}
	return conn, nil
}

// NewPostgresDB creates a new PostgresDB instance with a new connection and an
// up-to-date schema
func NewPostgresDB(ctx context.Context, dbConfig config.DatabaseConfig) (*PostgresDB, error) {
	logger.Log.WithFields(logrus.Fields{
		"max_open_conns": dbConfig.MaxOpenConns,
		"max_idle_conns": dbConfig.MaxIdleConns,
	}).Info("Connecting to PostgreSQL")

	conn, err := Open(ctx, dbConfig)
	if err != nil {
		return nil, err
	}

	logger.Log.Info("Successfully connected to PostgreSQL")

	if err = RunMigrations(conn, dbConfig.MigrationsPath); err != nil {
		conn.Close()
		return nil, fmt.Errorf("error running migrations: %w", err)
	}

	return &PostgresDB{conn: conn}, nil
}

// Close closes the database connection
func (p *PostgresDB) Close() error {
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}

func (p *PostgresDB) Ping(ctx context.Context) error {
	return p.conn.PingContext(ctx)
}

// NewMigrate builds a migrator over conn. Migrations are read from path when set and
// from the embedded set otherwise. Closing the migrator closes conn.
func NewMigrate(conn *sql.DB, path string) (*migrate.Migrate, error) {
	driver, err := postgres.WithInstance(conn, &postgres.Config{})
	if err != nil {
		return nil, fmt.Errorf("error creating migration driver: %w", err)
	}

	if path != "" {
		m, err := migrate.NewWithDatabaseInstance("file://"+path, "postgres", driver)
		if err != nil {
			return nil, fmt.Errorf("error creating migration instance: %w", err)
		}
		return m, nil
	}

	source, err := iofs.New(migrations.FS, ".")
	if err != nil {
		return nil, fmt.Errorf("error reading embedded migrations: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return nil, fmt.Errorf("error creating migration instance: %w", err)
	}
	return m, nil
}

// RunMigrations runs database migrations using golang-migrate
func RunMigrations(conn *sql.DB, path string) error {
	m, err := NewMigrate(conn, path)
	if err != nil {
		return err
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("error running migrations: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("error reading schema version: %w", err)
	}

	logger.Log.WithFields(logrus.Fields{
		"version": version,
		"dirty":   dirty,
	}).Info("Database migrations applied successfully")
	return nil
}
