package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"golang.org/x/crypto/bcrypt"
)

// Databases written by the browser edition use camelCase columns, keep one
// role per user and store passwords in the clear.
var legacyTables = []string{"users", "people", "cases", "attachments", "incidents"}

var legacyUserColumns = []string{"password", "fullName", "role", "createdAt"}

type legacyUser struct {
	ID        string `db:"id"`
	Username  string `db:"username"`
	Password  string `db:"password"`
	FullName  string `db:"full_name"`
	Role      string `db:"role"`
	CreatedAt string `db:"created_at"`
}

var legacyCopies = []string{
	`INSERT INTO people (id, type, full_name, national_id, passport_no, birth_date, gender, religion, sect,
		address, city, country, phone, email, student_number, faculty, program, enrollment_year, is_foreign,
		employee_number, department, position, faculty_type, rank, specialization, notes, attachments,
		created_at, updated_at)
	 SELECT id, type, fullName, nationalId, passportNo, birthDate, gender, religion, sect,
		address, city, country, phone, email, studentNumber, faculty, program, enrollmentYear, isForeign,
		employeeNumber, department, position, facultyType, rank, specialization, notes,
		COALESCE(NULLIF(attachments, ''), '[]'), createdAt, updatedAt
	 FROM legacy_people`,

	`INSERT INTO cases (id, title, status, summary, related_persons, attachments, created_by, created_at, updated_at)
	 SELECT id, title, status, COALESCE(summary, ''), COALESCE(NULLIF(relatedPersons, ''), '[]'),
		COALESCE(NULLIF(attachments, ''), '[]'), COALESCE(createdBy, ''), createdAt, updatedAt
	 FROM legacy_cases`,

	`INSERT INTO attachments (id, file_name, file_type, file_data, uploaded_at)
	 SELECT id, fileName, fileType, fileData, uploadedAt
	 FROM legacy_attachments`,

	`INSERT INTO incidents (id, title, date, importance, status, description, follow_up, records_and_notes,
		security_opinion, involved_persons, updates, created_by, created_at, updated_at)
	 SELECT id, title, date, importance, status, description, COALESCE(followUp, ''), COALESCE(recordsAndNotes, ''),
		COALESCE(securityOpinion, ''), COALESCE(NULLIF(involvedPersons, ''), '[]'), COALESCE(NULLIF(updates, ''), '[]'),
		COALESCE(createdBy, ''), createdAt, updatedAt
	 FROM legacy_incidents`,
}

// isLegacy reports whether db holds the browser edition's tables.
func isLegacy(ctx context.Context, db *sql.DB) (bool, error) {
	cols, err := readColumns(ctx, db, legacyTables...)
	if err != nil {
		return false, err
	}
	for _, t := range legacyTables {
		if _, ok := cols[t]; !ok {
			return false, nil
		}
	}
	for _, c := range legacyUserColumns {
		if !cols["users"][c] {
			return false, nil
		}
	}
	return true, nil
}

// upgradeLegacy rewrites a browser-edition database into the current schema
// in place. Passwords are hashed and every migrated account must choose a new
// one. Stored status and importance labels are kept as written; readers
// normalize them. It reports false when db is not a legacy database.
func upgradeLegacy(ctx context.Context, db *sql.DB) (bool, error) {
	legacy, err := isLegacy(ctx, db)
	if err != nil || !legacy {
		return false, err
	}

	for _, t := range legacyTables {
		if _, err := db.ExecContext(ctx, fmt.Sprintf("ALTER TABLE %s RENAME TO legacy_%s", t, t)); err != nil {
			return false, fmt.Errorf("failed to set aside %s: %w", t, err)
		}
	}
	if _, err := migrate(ctx, db); err != nil {
		return false, err
	}

	if err := copyLegacyUsers(ctx, db); err != nil {
		return false, err
	}
	for _, stmt := range legacyCopies {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return false, fmt.Errorf("failed to copy legacy rows: %w", err)
		}
	}

	for _, t := range legacyTables {
		if _, err := db.ExecContext(ctx, "DROP TABLE legacy_"+t); err != nil {
			return false, fmt.Errorf("failed to drop legacy %s: %w", t, err)
		}
	}
	return true, nil
}

func copyLegacyUsers(ctx context.Context, db *sql.DB) error {
	var users []legacyUser
	err := sqlx.NewDb(db, driverName).SelectContext(ctx, &users,
		"SELECT id, username, password, fullName AS full_name, role, createdAt AS created_at FROM legacy_users")
	if err != nil {
		return fmt.Errorf("failed to read legacy users: %w", err)
	}

	for _, u := range users {
		hash, err := bcrypt.GenerateFromPassword([]byte(u.Password), bcrypt.DefaultCost)
		if err != nil {
			return fmt.Errorf("failed to hash password of %s: %w", u.Username, err)
		}
		_, err = db.ExecContext(ctx,
			"INSERT INTO users (id, username, password_hash, full_name, must_change_password, created_at) VALUES (?, ?, ?, ?, 1, ?)",
			u.ID, u.Username, string(hash), u.FullName, u.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to copy user %s: %w", u.Username, err)
		}
		_, err = db.ExecContext(ctx,
			"INSERT INTO user_roles (id, user_id, role, created_at) VALUES (?, ?, ?, ?)",
			uuid.NewString(), u.ID, u.Role, u.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to copy role of %s: %w", u.Username, err)
		}
	}
	return nil
}
