package database

import (
	"context"
	"crypto/tls"
	"database/sql"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	_ "modernc.org/sqlite"

	"ingestion-gateway/internal/config"
	"ingestion-gateway/internal/utils"
)

// Connector opens store connections from configuration. A per-request
// credential, when given, replaces the configured password.
type Connector struct {
	cfg     config.StoreConfig
	dialect Dialect
}

// NewConnector validates the driver and returns a connector for it
func NewConnector(cfg config.StoreConfig) (*Connector, error) {
	dialect, err := DialectFor(cfg.Driver)
	if err != nil {
		return nil, err
	}
	return &Connector{cfg: cfg, dialect: dialect}, nil
}

func (c *Connector) Dialect() Dialect {
	return c.dialect
}

// Open opens and pings a connection. Any failure to reach or authenticate
// against the store is a connectivity failure.
func (c *Connector) Open(ctx context.Context, credential string) (*sql.DB, error) {
	var db *sql.DB
	switch c.dialect.Name {
	case ClickHouse.Name:
		db = c.openClickHouse(credential)
	case SQLite.Name:
		var err error
		db, err = sql.Open(c.dialect.DriverName, c.cfg.Path)
		if err != nil {
			return nil, utils.NewConnectivityError(err, fmt.Sprintf("open %s", c.cfg.Path))
		}
	default:
		return nil, fmt.Errorf("unsupported store driver: %s", c.dialect.Name)
	}

	c.configureConnectionPool(db)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, utils.NewConnectivityError(err, fmt.Sprintf("ping %s store", c.dialect.Name))
	}
	return db, nil
}

func (c *Connector) openClickHouse(credential string) *sql.DB {
	password := c.cfg.Password
	if credential != "" {
		password = credential
	}

	protocol := clickhouse.Native
	if c.cfg.Protocol == "http" {
		protocol = clickhouse.HTTP
	}

	opts := &clickhouse.Options{
		Addr: []string{c.cfg.Addr()},
		Auth: clickhouse.Auth{
			Database: c.cfg.Database,
			Username: c.cfg.Username,
			Password: password,
		},
		Protocol:    protocol,
		DialTimeout: c.cfg.DialTimeout,
	}
	if c.cfg.Secure {
		opts.TLS = &tls.Config{}
	}
	return clickhouse.OpenDB(opts)
}

// configureConnectionPool applies pool limits, defaulting unset values
func (c *Connector) configureConnectionPool(db *sql.DB) {
	maxOpenConns := c.cfg.MaxOpenConns
	if maxOpenConns <= 0 {
		maxOpenConns = 10
	}
	db.SetMaxOpenConns(maxOpenConns)

	maxIdleConns := c.cfg.MaxIdleConns
	if maxIdleConns <= 0 {
		maxIdleConns = maxOpenConns / 2
	}
	db.SetMaxIdleConns(maxIdleConns)

	maxLifetime := c.cfg.ConnMaxLifetime
	if maxLifetime <= 0 {
		maxLifetime = 30 * time.Minute
	}
	db.SetConnMaxLifetime(maxLifetime)
}
