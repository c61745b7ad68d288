package devapi

import (
	"context"
	"database/sql"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// EnsureUser creates username, or resets its password and admin flag when it
// already exists.
func EnsureUser(ctx context.Context, db *sql.DB, username, password string, admin bool) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	id, err := newID()
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO user (id, username, password_hash, is_admin, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (username) DO UPDATE SET
			password_hash = excluded.password_hash,
			is_admin = excluded.is_admin`,
		id,
		username,
		hash,
		admin,
		time.Now().UTC(),
	)
	return err
}
