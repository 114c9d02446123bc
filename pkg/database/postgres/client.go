package pg

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	_ "github.com/newrelic/go-agent/v3/integrations/nrpgx"
)

const (
	driverName = "nrpgx"

	defaultMaxOpenConnections = 10
	defaultMaxIdleConnections = 5
	defaultConnMaxLifetime    = 30 * time.Minute
)

// Config describes how to reach a postgres database.
type Config struct {
	User               string
	Host               string
	Password           string
	Port               int
	DbName             string
	SslMode            string
	MaxOpenConnections int
	MaxIdleConnections int
}

// DSN returns the connection URL for the config
func (c *Config) DSN() string {
	sslMode := c.SslMode
	if sslMode == "" {
		sslMode = "disable"
	}

	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DbName, sslMode,
	)
}

// Open gets a DB connection pool using username/password credentials. The pool
// is instrumented through the New Relic pgx driver.
func Open(ctx context.Context, c *Config) (*sqlx.DB, error) {
	db, err := sqlx.Open(driverName, c.DSN())
	if err != nil {
		return nil, errors.Wrap(err, "error opening db connection pool")
	}

	maxOpen := c.MaxOpenConnections
	if maxOpen <= 0 {
		maxOpen = defaultMaxOpenConnections
	}
	maxIdle := c.MaxIdleConnections
	if maxIdle <= 0 {
		maxIdle = defaultMaxIdleConnections
	}

	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxIdle)
	db.SetConnMaxLifetime(defaultConnMaxLifetime)

	// Check if the connection was successful
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "error pinging db")
	}

	return db, nil
}
