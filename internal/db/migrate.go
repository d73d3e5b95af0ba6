package db

import (
	"fmt"

	"github.com/jmoiron/sqlx"
	"golang.org/x/crypto/bcrypt"

	"mercamaps/internal/logging"
)

// Default administrator created when no admin-role account exists yet.
const (
	DefaultAdminName     = "Administrador"
	DefaultAdminEmail    = "admin@local"
	DefaultAdminPassword = "admin123"
)

type seedLocation struct {
	name string
	lat  float64
	lng  float64
}

// seedLocations are inserted by name when missing; installations keep working
// if some were renamed or deleted later.
var seedLocations = []seedLocation{
	{"DIMEGSA", 20.66086566989181, -103.35498266582181},
	{"DEASA", 20.6626029222324, -103.35564905319303},
	{"AIESA", 20.647442138464317, -103.35303451136468},
	{"SEGSA", 20.68075274311637, -103.36740059908436},
	{"FESA", 20.680876941064735, -103.36717413301479},
	{"TAPATIA", 20.660080259250343, -103.35598648741274},
	{"GABSA", 21.1017480510419, -101.68149017883717},
	{"ILUMINACION", 20.660385131570916, -103.35616304721444},
	{"VALLARTA", 20.708876281913774, -105.27453124524618},
	{"QUERETARO", 20.652475013556035, -100.43190554642169},
	{"CODI", 20.660511385115246, -103.35846367710215},
}

// Migrate runs the ordered schema steps and seeds. Every step is idempotent,
// so re-running on each boot is safe.
func Migrate(d *sqlx.DB) error {
	steps := []struct {
		name string
		fn   func(*sqlx.DB) error
	}{
		{"create users table", createUsersTable},
		{"create locations table", createLocationsTable},
		{"add locations.color column", ensureColorColumn},
		{"ensure unique email index", ensureEmailIndex},
		{"seed default admin", seedAdmin},
		{"seed example locations", ensureSeedLocations},
	}
	for _, step := range steps {
		if err := step.fn(d); err != nil {
			return fmt.Errorf("db: migrate: %s: %w", step.name, err)
		}
	}
	return nil
}

func createUsersTable(d *sqlx.DB) error {
	var ddl string
	if d.DriverName() == "sqlite3" {
		ddl = `CREATE TABLE IF NOT EXISTS users (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			email TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			role TEXT NOT NULL DEFAULT 'user',
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`
	} else {
		ddl = `CREATE TABLE IF NOT EXISTS users (
			id SERIAL PRIMARY KEY,
			name VARCHAR(120) NOT NULL,
			email VARCHAR(190) NOT NULL UNIQUE,
			password_hash VARCHAR(255) NOT NULL,
			role VARCHAR(10) NOT NULL DEFAULT 'user',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`
	}
	_, err := d.Exec(ddl)
	return err
}

func createLocationsTable(d *sqlx.DB) error {
	var ddl string
	if d.DriverName() == "sqlite3" {
		ddl = `CREATE TABLE IF NOT EXISTS locations (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			type TEXT NOT NULL,
			lat REAL NOT NULL,
			lng REAL NOT NULL,
			notes TEXT NOT NULL DEFAULT '',
			color TEXT NULL,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`
	} else {
		ddl = `CREATE TABLE IF NOT EXISTS locations (
			id SERIAL PRIMARY KEY,
			name VARCHAR(200) NOT NULL,
			type VARCHAR(50) NOT NULL,
			lat DOUBLE PRECISION NOT NULL,
			lng DOUBLE PRECISION NOT NULL,
			notes TEXT NOT NULL DEFAULT '',
			color VARCHAR(16) NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`
	}
	_, err := d.Exec(ddl)
	return err
}

// ensureColorColumn upgrades legacy locations tables created before pin
// colors existed.
func ensureColorColumn(d *sqlx.DB) error {
	has, err := hasColumn(d, "locations", "color")
	if err != nil || has {
		return err
	}
	logging.Info().Msg("db: adding locations.color column")
	if d.DriverName() == "sqlite3" {
		_, err = d.Exec(`ALTER TABLE locations ADD COLUMN color TEXT NULL`)
	} else {
		_, err = d.Exec(`ALTER TABLE locations ADD COLUMN color VARCHAR(16) NULL`)
	}
	return err
}

func hasColumn(d *sqlx.DB, table, column string) (bool, error) {
	var n int
	var err error
	if d.DriverName() == "sqlite3" {
		err = d.Get(&n, `SELECT COUNT(*) FROM pragma_table_info(?) WHERE name = ?`, table, column)
	} else {
		err = d.Get(&n, `SELECT COUNT(*) FROM information_schema.columns
			WHERE table_name = $1 AND column_name = $2`, table, column)
	}
	return n > 0, err
}

// ensureEmailIndex covers legacy users tables that predate the inline UNIQUE
// constraint. Fresh tables already carry one, so the check avoids stacking a
// second index.
func ensureEmailIndex(d *sqlx.DB) error {
	var n int
	var err error
	if d.DriverName() == "sqlite3" {
		err = d.Get(&n, `SELECT COUNT(*) FROM pragma_index_list('users') WHERE "unique" = 1`)
	} else {
		err = d.Get(&n, `SELECT COUNT(*) FROM pg_indexes
			WHERE tablename = 'users' AND indexdef LIKE '%(email)%'`)
	}
	if err != nil || n > 0 {
		return err
	}
	_, err = d.Exec(`CREATE UNIQUE INDEX IF NOT EXISTS users_email_unique ON users (email)`)
	return err
}

func seedAdmin(d *sqlx.DB) error {
	var n int
	if err := d.Get(&n, d.Rebind(`SELECT COUNT(*) FROM users WHERE role = ?`), "admin"); err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(DefaultAdminPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	_, err = d.Exec(
		d.Rebind(`INSERT INTO users (name, email, password_hash, role) VALUES (?, ?, ?, ?)`),
		DefaultAdminName, DefaultAdminEmail, string(hash), "admin",
	)
	if err != nil {
		return err
	}
	logging.Info().Str("email", DefaultAdminEmail).Msg("db: seeded default admin")
	return nil
}

func ensureSeedLocations(d *sqlx.DB) error {
	check := d.Rebind(`SELECT COUNT(*) FROM locations WHERE name = ?`)
	insert := d.Rebind(`INSERT INTO locations (name, type, lat, lng, notes) VALUES (?, ?, ?, ?, ?)`)
	for _, s := range seedLocations {
		var n int
		if err := d.Get(&n, check, s.name); err != nil {
			return err
		}
		if n > 0 {
			continue
		}
		if _, err := d.Exec(insert, s.name, "sucursal", s.lat, s.lng, ""); err != nil {
			return err
		}
	}
	return nil
}
