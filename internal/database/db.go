// Package database opens the MySQL pool shared by every repository.
package database

import (
	"context"
	"database/sql"
	"net"
	"time"

	"github.com/go-sql-driver/mysql"
)

// Options carries the connection target and pool sizing for Open.
type Options struct {
	User string
	Pass string
	Host string
	Port string
	Name string

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// Open builds the DSN through the driver's own config type, sizes the
// pool and verifies the connection with a short ping.  DATETIME columns
// are parsed into UTC time.Time values; every query in the repositories
// assumes UTC on both sides of the comparison.
func Open(o Options) (*sql.DB, error) {
	dc := mysql.NewConfig()
	dc.User = o.User
	dc.Passwd = o.Pass
	dc.Net = "tcp"
	dc.Addr = net.JoinHostPort(o.Host, o.Port)
	dc.DBName = o.Name
	dc.ParseTime = true
	dc.Loc = time.UTC
	dc.Params = map[string]string{"charset": "utf8mb4"}

	db, err := sql.Open("mysql", dc.FormatDSN())
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(o.MaxOpenConns)
	db.SetMaxIdleConns(o.MaxIdleConns)
	db.SetConnMaxLifetime(o.ConnMaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}
