package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/MechDevelopment/mrbeam-backend/internal/config"
)

type dialect int

const (
	dialectPostgres dialect = iota
	dialectSQLite
)

func (d dialect) String() string {
	if d == dialectPostgres {
		return "postgres"
	}
	return "sqlite3"
}

// DB is the pooled database handle shared by all repositories.
type DB struct {
	conn    *sql.DB
	dialect dialect
}

// OpenDB connects to the database named by cfg.URL and creates the schema.
// postgres:// and postgresql:// URLs use lib/pq, sqlite:// URLs a local file.
func OpenDB(ctx context.Context, cfg config.DatabaseConfig) (*DB, error) {
	d, dsn, err := parseDatabaseURL(cfg.URL)
	if err != nil {
		return nil, err
	}

	conn, err := sql.Open(d.String(), dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if d == dialectSQLite {
		conn.SetMaxOpenConns(1)
		conn.SetMaxIdleConns(1)
		conn.SetConnMaxLifetime(0)
	} else {
		conn.SetMaxOpenConns(cfg.MaxOpenConns)
		conn.SetMaxIdleConns(cfg.MaxIdleConns)
		conn.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	db := &DB{conn: conn, dialect: d}

	pingCtx, cancel := context.WithTimeout(ctx, cfg.QueryTimeout)
	defer cancel()
	if err := conn.PingContext(pingCtx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.migrate(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return db, nil
}

func parseDatabaseURL(url string) (dialect, string, error) {
	switch {
	case strings.HasPrefix(url, "postgres://"), strings.HasPrefix(url, "postgresql://"):
		return dialectPostgres, url, nil
	case strings.HasPrefix(url, "sqlite://"):
		path := strings.TrimPrefix(url, "sqlite://")
		if path == "" {
			return 0, "", fmt.Errorf("sqlite url %q has no path", url)
		}
		sep := "?"
		if strings.Contains(path, "?") {
			sep = "&"
		}
		return dialectSQLite, path + sep + "_journal_mode=WAL&_busy_timeout=5000", nil
	default:
		return 0, "", fmt.Errorf("unsupported database url %q", url)
	}
}

func (db *DB) migrate(ctx context.Context) error {
	schema := sqliteSchema
	if db.dialect == dialectPostgres {
		schema = postgresSchema
	}

	_, err := db.conn.ExecContext(ctx, schema)
	return err
}

// rebind turns ? placeholders into the $n form lib/pq expects.
func (db *DB) rebind(query string) string {
	if db.dialect != dialectPostgres {
		return query
	}

	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) Conn() *sql.DB {
	return db.conn
}
