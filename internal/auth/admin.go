package auth

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"
)

// EnsureAdmin provisions the operator account at startup. The hash is
// supplied pre-computed (bcrypt) via ADMIN_PASS_HASH so no plaintext
// admin password ever touches the environment; a blank hash means no
// admin login is provisioned. Re-running keeps the existing user id and
// refreshes hash and role, so rotating the hash is just a restart.
func EnsureAdmin(ctx context.Context, db *sql.DB, email, passHash string) error {
	if email == "" || passHash == "" {
		return nil
	}
	email = strings.ToLower(strings.TrimSpace(email))
	_, err := db.ExecContext(ctx, `INSERT INTO users (id,email,name,password_hash,role,created_at)
		VALUES ($1,$2,'Admin',$3,'admin',$4)
		ON CONFLICT (email) DO UPDATE SET password_hash=EXCLUDED.password_hash, role='admin'`,
		uuid.NewString(), email, passHash, time.Now().Unix())
	return err
}
