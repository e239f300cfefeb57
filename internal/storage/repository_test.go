package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"spendwise/internal/auth"
	"spendwise/internal/core"
)

func newTestRepository(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "nested", "users.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository() failed: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestCreateAndFindUser(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	created := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	u, err := repo.CreateUser(ctx, auth.User{
		FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.com", Pincode: "12345",
		Username: "ada", PasswordHash: "$2a$10$hash", CreatedAt: created,
	})
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	if u.ID == 0 {
		t.Fatal("expected generated id")
	}

	got, err := repo.FindByUsername(ctx, "ADA")
	if err != nil {
		t.Fatalf("FindByUsername() failed: %v", err)
	}
	if got.ID != u.ID || got.Email != "ada@example.com" || got.PasswordHash != "$2a$10$hash" || !got.CreatedAt.Equal(created) {
		t.Fatalf("unexpected user %+v", got)
	}
}

func TestDuplicateUsernameConflicts(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	if _, err := repo.CreateUser(ctx, auth.User{Username: "ada", PasswordHash: "h"}); err != nil {
		t.Fatal(err)
	}
	_, err := repo.CreateUser(ctx, auth.User{Username: "Ada", PasswordHash: "h"})
	if !errors.Is(err, core.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestFindUnknownUser(t *testing.T) {
	repo := newTestRepository(t)
	if _, err := repo.FindByUsername(context.Background(), "ghost"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestMigrationsAreIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "users.db")
	for i := 0; i < 2; i++ {
		repo, err := NewSQLiteRepository(path)
		if err != nil {
			t.Fatalf("open %d: %v", i, err)
		}
		if err := repo.Ping(context.Background()); err != nil {
			t.Fatalf("ping: %v", err)
		}
		repo.Close()
	}
}

func TestServiceOverSQLite(t *testing.T) {
	svc := auth.NewService(newTestRepository(t), nil)
	ctx := context.Background()
	if _, err := svc.Register(ctx, auth.Profile{Username: "ada", Password: "secret"}); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := svc.Register(ctx, auth.Profile{Username: "ada", Password: "other"}); !errors.Is(err, core.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	if _, err := svc.Login(ctx, "ada", "secret"); err != nil {
		t.Fatalf("login: %v", err)
	}
	if _, err := svc.Login(ctx, "ada", "bad"); !errors.Is(err, core.ErrAuth) {
		t.Fatalf("expected auth error, got %v", err)
	}
}
