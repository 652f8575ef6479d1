// Package dbio opens a database for the pipeline and classifies errors that
// come from it.
package dbio

import (
	"database/sql"
	"fmt"
	"log/slog"
	"net"
	"path/filepath"
	"strconv"

	"github.com/gnames/epidump/pkg/config"
	"github.com/gnames/epidump/pkg/io/modelio"
	"github.com/gnames/gnsys"
	"github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jinzhu/gorm"
	_ "modernc.org/sqlite"
)

// Open connects to the database given in the config. The connection pool is
// limited to one connection, so callers must not run queries concurrently.
func Open(cfg config.Config) (*gorm.DB, error) {
	driver, dialect, dsn, err := source(cfg)
	if err != nil {
		return nil, err
	}

	sqlDB, err := sql.Open(driver, dsn)
	if err != nil {
		slog.Error("Cannot open database", "driver", driver, "error", err)
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)

	db, err := gorm.Open(dialect, sqlDB)
	if err != nil {
		_ = sqlDB.Close()
		slog.Error("Cannot connect to database", "driver", driver, "error", err)
		return nil, err
	}
	db.LogMode(false)
	return db, nil
}

// OpenMigrated connects to the database and creates missing tables.
func OpenMigrated(cfg config.Config) (*gorm.DB, error) {
	db, err := Open(cfg)
	if err != nil {
		return nil, err
	}
	if err = modelio.New(db).Migrate(); err != nil {
		_ = db.Close()
		slog.Error("Cannot migrate database", "error", err)
		return nil, err
	}
	return db, nil
}

// source returns sql driver name, gorm dialect and connection string.
func source(cfg config.Config) (string, string, string, error) {
	switch cfg.DbDriver {
	case "mysql":
		port := cfg.DbPort
		if port == 0 {
			port = 3306
		}
		mc := mysql.NewConfig()
		mc.User = cfg.DbUser
		mc.Passwd = cfg.DbPass
		mc.Net = "tcp"
		mc.Addr = net.JoinHostPort(cfg.DbHost, strconv.Itoa(port))
		mc.DBName = cfg.DbName
		mc.ParseTime = true
		return "mysql", "mysql", mc.FormatDSN(), nil
	case "postgres":
		port := cfg.DbPort
		if port == 0 {
			port = 5432
		}
		dsn := fmt.Sprintf(
			"host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
			cfg.DbHost, port, cfg.DbUser, cfg.DbPass, cfg.DbName,
		)
		return "pgx", "postgres", dsn, nil
	case "sqlite":
		path := cfg.SqlitePath
		if path == ":memory:" {
			return "sqlite", "sqlite3", path, nil
		}
		err := gnsys.MakeDir(filepath.Dir(path))
		if err != nil {
			slog.Error("Cannot create directory", "dir", filepath.Dir(path), "error", err)
			return "", "", "", err
		}
		return "sqlite", "sqlite3", path + "?_pragma=busy_timeout(5000)", nil
	default:
		return "", "", "", fmt.Errorf("unknown database driver '%s'", cfg.DbDriver)
	}
}
