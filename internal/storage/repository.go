// Package storage persists user accounts in SQLite.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"spendwise/internal/auth"
	"spendwise/internal/core"
)

const (
	insertUser = `INSERT INTO users (first_name, last_name, email, pincode, username, password_hash, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?)`
	selectUserByUsername = `SELECT id, first_name, last_name, email, pincode, username, password_hash, created_at
FROM users WHERE username = ?`
)

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// SQLite serialises writers; a single connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	if err := r.db.PingContext(ctx); err != nil {
		return core.Transient("ping sqlite", err)
	}
	return nil
}

// CreateUser implements auth.Repository
func (r *SQLiteRepository) CreateUser(ctx context.Context, u auth.User) (auth.User, error) {
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	res, err := r.db.ExecContext(ctx, insertUser,
		u.FirstName, u.LastName, u.Email, u.Pincode, u.Username, u.PasswordHash, u.CreatedAt.Unix())
	if err != nil {
		if isUniqueViolation(err) {
			return auth.User{}, core.Conflict("username already exists")
		}
		return auth.User{}, fmt.Errorf("insert user: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return auth.User{}, fmt.Errorf("read user id: %w", err)
	}
	u.ID = id

	slog.InfoContext(ctx, "User saved to SQLite", "id", u.ID, "username", u.Username)
	return u, nil
}

// FindByUsername implements auth.Repository
func (r *SQLiteRepository) FindByUsername(ctx context.Context, username string) (auth.User, error) {
	var (
		u       auth.User
		created int64
	)
	err := r.db.QueryRowContext(ctx, selectUserByUsername, username).Scan(
		&u.ID, &u.FirstName, &u.LastName, &u.Email, &u.Pincode, &u.Username, &u.PasswordHash, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return auth.User{}, core.NotFound("user")
	}
	if err != nil {
		return auth.User{}, fmt.Errorf("select user %s: %w", username, err)
	}
	u.CreatedAt = time.Unix(created, 0).UTC()
	return u, nil
}

func isUniqueViolation(err error) bool {
	var se *sqlite.Error
	if errors.As(err, &se) {
		code := se.Code()
		if code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY {
			return true
		}
		if code&0xff == sqlite3.SQLITE_CONSTRAINT {
			return strings.Contains(se.Error(), "UNIQUE")
		}
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

var _ auth.Repository = (*SQLiteRepository)(nil)
