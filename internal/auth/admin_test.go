package auth_test

import (
	"context"
	"database/sql"
	"testing"

	"github.com/abbosc/imajor-quiz-sub001/internal/auth"
	"github.com/abbosc/imajor-quiz-sub001/internal/db"

	_ "modernc.org/sqlite" // driver for "sqlite"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	h, err := sql.Open("sqlite", "file:"+t.Name()+"?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = h.Close() })
	// memory DBs vanish when the last conn closes
	h.SetMaxIdleConns(1)
	if err := db.EnsureSchema(context.Background(), h, db.DriverSQLite); err != nil {
		t.Fatalf("ensure schema: %v", err)
	}
	return h
}

func TestEnsureAdmin_SeedsAndRotates(t *testing.T) {
	h := newTestDB(t)
	ctx := context.Background()

	if err := auth.EnsureAdmin(ctx, h, "Admin@iMajor.app", "hash-one"); err != nil {
		t.Fatalf("first seed: %v", err)
	}

	var id, role, hash string
	if err := h.QueryRow(`SELECT id, role, password_hash FROM users WHERE email='admin@imajor.app'`).
		Scan(&id, &role, &hash); err != nil {
		t.Fatalf("lookup admin: %v", err)
	}
	if role != "admin" || hash != "hash-one" {
		t.Fatalf("seeded role=%q hash=%q, want admin/hash-one", role, hash)
	}

	// a restart with a new hash rotates in place
	if err := auth.EnsureAdmin(ctx, h, "admin@imajor.app", "hash-two"); err != nil {
		t.Fatalf("second seed: %v", err)
	}
	var id2, hash2 string
	var count int
	if err := h.QueryRow(`SELECT COUNT(*) FROM users WHERE role='admin'`).Scan(&count); err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Fatalf("admin rows after reseed: %d, want 1", count)
	}
	if err := h.QueryRow(`SELECT id, password_hash FROM users WHERE email='admin@imajor.app'`).
		Scan(&id2, &hash2); err != nil {
		t.Fatal(err)
	}
	if id2 != id {
		t.Fatalf("reseed replaced the user id: %q -> %q", id, id2)
	}
	if hash2 != "hash-two" {
		t.Fatalf("hash not rotated: %q", hash2)
	}
}

func TestEnsureAdmin_BlankHashIsNoOp(t *testing.T) {
	h := newTestDB(t)
	if err := auth.EnsureAdmin(context.Background(), h, "admin@imajor.app", ""); err != nil {
		t.Fatalf("blank hash: %v", err)
	}
	var count int
	if err := h.QueryRow(`SELECT COUNT(*) FROM users`).Scan(&count); err != nil {
		t.Fatal(err)
	}
	if count != 0 {
		t.Fatalf("blank hash seeded %d users, want 0", count)
	}
}
