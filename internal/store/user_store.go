// Package store holds the sqlx repositories for users and locations. Queries
// are written with ? placeholders and rebound for the active driver.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"mercamaps/internal/models"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("store: not found")

type UserStore struct {
	db *sqlx.DB
}

func NewUserStore(db *sqlx.DB) *UserStore {
	return &UserStore{db: db}
}

// UserUpdate carries the optional fields of a partial update. Nil means
// "leave unchanged"; PasswordHash must already be hashed.
type UserUpdate struct {
	Name         *string
	Email        *string
	Role         *string
	PasswordHash *string
}

func (u UserUpdate) empty() bool {
	return u.Name == nil && u.Email == nil && u.Role == nil && u.PasswordHash == nil
}

func (s *UserStore) GetByID(ctx context.Context, id int64) (*models.User, error) {
	var u models.User
	err := s.db.GetContext(ctx, &u,
		s.db.Rebind(`SELECT id, name, email, password_hash, role, created_at FROM users WHERE id = ?`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user %d: %w", id, err)
	}
	return &u, nil
}

func (s *UserStore) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	err := s.db.GetContext(ctx, &u,
		s.db.Rebind(`SELECT id, name, email, password_hash, role, created_at FROM users WHERE email = ?`), email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user by email: %w", err)
	}
	return &u, nil
}

// List returns all accounts, newest first.
func (s *UserStore) List(ctx context.Context) ([]models.User, error) {
	users := []models.User{}
	err := s.db.SelectContext(ctx, &users,
		`SELECT id, name, email, password_hash, role, created_at FROM users ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

// EmailTaken reports whether another account (id <> excludeID) owns email.
// Pass excludeID 0 when creating.
func (s *UserStore) EmailTaken(ctx context.Context, email string, excludeID int64) (bool, error) {
	var n int
	err := s.db.GetContext(ctx, &n,
		s.db.Rebind(`SELECT COUNT(*) FROM users WHERE email = ? AND id <> ?`), email, excludeID)
	if err != nil {
		return false, fmt.Errorf("check email: %w", err)
	}
	return n > 0, nil
}

func (s *UserStore) Create(ctx context.Context, name, email, passwordHash, role string) (*models.User, error) {
	var id int64
	if s.db.DriverName() == "postgres" {
		err := s.db.QueryRowContext(ctx,
			`INSERT INTO users (name, email, password_hash, role) VALUES ($1, $2, $3, $4) RETURNING id`,
			name, email, passwordHash, role).Scan(&id)
		if err != nil {
			return nil, fmt.Errorf("create user: %w", err)
		}
	} else {
		res, err := s.db.ExecContext(ctx,
			s.db.Rebind(`INSERT INTO users (name, email, password_hash, role) VALUES (?, ?, ?, ?)`),
			name, email, passwordHash, role)
		if err != nil {
			return nil, fmt.Errorf("create user: %w", err)
		}
		id, err = res.LastInsertId()
		if err != nil {
			return nil, fmt.Errorf("create user id: %w", err)
		}
	}
	return s.GetByID(ctx, id)
}

// Update applies the supplied fields in a single UPDATE and returns the
// refreshed row.
func (s *UserStore) Update(ctx context.Context, id int64, upd UserUpdate) (*models.User, error) {
	if upd.empty() {
		return nil, errors.New("store: nothing to update")
	}

	fields := []string{}
	args := []interface{}{}
	if upd.Name != nil {
		fields = append(fields, "name = ?")
		args = append(args, *upd.Name)
	}
	if upd.Email != nil {
		fields = append(fields, "email = ?")
		args = append(args, *upd.Email)
	}
	if upd.Role != nil {
		fields = append(fields, "role = ?")
		args = append(args, *upd.Role)
	}
	if upd.PasswordHash != nil {
		fields = append(fields, "password_hash = ?")
		args = append(args, *upd.PasswordHash)
	}
	args = append(args, id)

	query := s.db.Rebind("UPDATE users SET " + strings.Join(fields, ", ") + " WHERE id = ?")
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return nil, fmt.Errorf("update user %d: %w", id, err)
	}
	return s.GetByID(ctx, id)
}

// Delete removes the row; deleting an absent id is not an error.
func (s *UserStore) Delete(ctx context.Context, id int64) error {
	if _, err := s.db.ExecContext(ctx, s.db.Rebind(`DELETE FROM users WHERE id = ?`), id); err != nil {
		return fmt.Errorf("delete user %d: %w", id, err)
	}
	return nil
}
