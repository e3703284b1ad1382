package domain

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// SettingsMap holds free-form user preferences. It serializes to JSON for
// both the flat-file store and the Postgres JSONB column.
type SettingsMap map[string]any

// Value implements driver.Valuer.
func (s SettingsMap) Value() (driver.Value, error) {
	if s == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(s)
}

// Scan implements sql.Scanner.
func (s *SettingsMap) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*s = SettingsMap{}
		return nil
	case []byte:
		return json.Unmarshal(v, s)
	case string:
		return json.Unmarshal([]byte(v), s)
	default:
		return fmt.Errorf("settings: unsupported scan type %T", src)
	}
}

// User represents a bank customer. Immutable once created except Settings.
// The password hash is an opaque credential and is never exposed through
// the query API.
type User struct {
	UserID       string      `db:"user_id" json:"user_id"`
	Username     string      `db:"username" json:"username"`
	PasswordHash string      `db:"password_hash" json:"password_hash"`
	FirstName    string      `db:"first_name" json:"first_name"`
	LastName     string      `db:"last_name" json:"last_name"`
	Email        string      `db:"email" json:"email"`
	City         string      `db:"city" json:"city"`
	CreatedAt    string      `db:"created_at" json:"created_at"`
	Settings     SettingsMap `db:"settings" json:"settings"`
}

// FullName returns the user's display name.
func (u *User) FullName() string {
	return u.FirstName + " " + u.LastName
}

// Validate checks the record for required fields.
func (u *User) Validate() error {
	if u.UserID == "" {
		return &ValidationError{Entity: "user", Field: "user_id"}
	}
	if u.Username == "" {
		return &ValidationError{Entity: "user", Field: "username"}
	}
	return nil
}
