package db

import (
	"context"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
)

type MySQLOpts struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	PingTimeout     time.Duration
}

// OpenMySQL configures a *sqlx.DB pool without touching the server. The
// pool connects lazily, so a primary that is down at startup can recover
// later.
func OpenMySQL(dsn string, opts MySQLOpts) (*sqlx.DB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("empty MySQL DSN")
	}
	db, err := sqlx.Open("mysql", dsn)
	if err != nil {
		return nil, err
	}

	if opts.MaxOpenConns > 0 {
		db.SetMaxOpenConns(opts.MaxOpenConns)
	}
	if opts.MaxIdleConns > 0 {
		db.SetMaxIdleConns(opts.MaxIdleConns)
	}
	if opts.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(opts.ConnMaxLifetime)
	}
	if opts.ConnMaxIdleTime > 0 {
		db.SetConnMaxIdleTime(opts.ConnMaxIdleTime)
	}
	return db, nil
}

// PingMySQL checks connectivity with opts.PingTimeout (default 5s).
func PingMySQL(db *sqlx.DB, opts MySQLOpts) error {
	timeout := opts.PingTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return db.PingContext(ctx)
}

// NewMySQLConnection opens a *sqlx.DB and fails unless the server answers.
func NewMySQLConnection(dsn string, opts MySQLOpts) (*sqlx.DB, error) {
	db, err := OpenMySQL(dsn, opts)
	if err != nil {
		return nil, err
	}
	if err := PingMySQL(db, opts); err != nil {
		_ = db.Close()
		return nil, err
	}

	return db, nil
}
