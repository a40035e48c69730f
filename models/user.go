package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// SecretSlots maps a provider id to its encrypted API key. A missing entry
// means no key is configured for that provider. Stored as a JSONB object.
type SecretSlots map[string]string

// Value implements driver.Valuer
func (s SecretSlots) Value() (driver.Value, error) {
	if s == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(s)
}

// Scan implements sql.Scanner
func (s *SecretSlots) Scan(src interface{}) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*s = SecretSlots{}
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("unsupported type for secret slots: %T", src)
	}

	slots := SecretSlots{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &slots); err != nil {
			return fmt.Errorf("failed to decode secret slots: %w", err)
		}
	}
	*s = slots
	return nil
}

// Has reports whether a non-empty secret is stored for the provider
func (s SecretSlots) Has(providerID string) bool {
	return s[providerID] != ""
}

// User represents a user signed in with Google. APIKeys hold ciphertext only
// and are excluded from JSON.
type User struct {
	ID        uuid.UUID   `json:"id" db:"id"`
	GoogleID  string      `json:"-" db:"google_id"`
	Email     string      `json:"email" db:"email"`
	Name      string      `json:"name" db:"name"`
	Picture   string      `json:"picture,omitempty" db:"picture"`
	APIKeys   SecretSlots `json:"-" db:"api_keys"`
	LastLogin time.Time   `json:"last_login" db:"last_login"`
	CreatedAt time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt time.Time   `json:"updated_at" db:"updated_at"`
}

// NewUser creates a new User instance
func NewUser(googleID, email, name, picture string) *User {
	now := time.Now()
	return &User{
		ID:        uuid.New(),
		GoogleID:  googleID,
		Email:     email,
		Name:      name,
		Picture:   picture,
		APIKeys:   SecretSlots{},
		LastLogin: now,
		CreatedAt: now,
		UpdatedAt: now,
	}
}
