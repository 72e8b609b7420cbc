package db

import (
	"errors"
	"strings"

	"gorm.io/gorm"
)

func IsDuplicateKeyErr(err error) bool {
	if err == nil {
		return false
	}

	// GORM may translate driver errors into gorm.ErrDuplicatedKey.
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}

	// PostgreSQL (error code 23505)
	if strings.Contains(err.Error(), "duplicate key value violates unique constraint") {
		return true
	}

	// SQLite (error code 2067)
	if strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return true
	}

	return false
}

// IsRetryableErr reports transient write conflicts: unique violations,
// serialization failures, deadlocks and SQLite lock contention. The whole
// transaction can be retried after any of them.
func IsRetryableErr(err error) bool {
	if err == nil {
		return false
	}
	if IsDuplicateKeyErr(err) {
		return true
	}

	msg := err.Error()
	for _, marker := range []string{
		"could not serialize access", // PostgreSQL 40001
		"deadlock detected",          // PostgreSQL 40P01
		"database is locked",         // SQLITE_BUSY
		"database table is locked",   // SQLITE_LOCKED
		"SQLITE_BUSY",
	} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
