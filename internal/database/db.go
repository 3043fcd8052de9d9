// Package database opens the MySQL connection the repositories share.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"

	"github.com/worldautistic/worldautistic-api/internal/config"
)

// Open connects to MySQL using the configured credentials and pool tuning
// and verifies connectivity before returning. The DSN forces parseTime so
// DATETIME columns scan into time.Time, and pins loc=UTC: subscription
// expiries and streak dates are compared in UTC everywhere.
func Open(cfg config.Config) (*sql.DB, error) {
	db, err := sql.Open("mysql", buildDSN(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName))
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(cfg.DBMaxOpenConns)
	db.SetMaxIdleConns(cfg.DBMaxIdleConns)
	db.SetConnMaxLifetime(cfg.DBConnMaxLifetime)

	timeout := cfg.DBPingTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// buildDSN assembles the driver DSN. The password segment is omitted
// entirely when empty so local setups without one still connect.
func buildDSN(user, pass, host, port, name string) string {
	auth := user
	if pass != "" {
		auth = user + ":" + pass
	}
	return fmt.Sprintf("%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=true&loc=UTC",
		auth, host, port, name)
}
