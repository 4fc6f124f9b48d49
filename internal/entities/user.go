package entities

import (
	"encoding/json"
	"fmt"
)

// EmailVerifiedAtKey is the profile field the verification guards look at.
const EmailVerifiedAtKey = "email_verified_at"

// User is the profile returned by the backend user endpoint. The shape is owned
// by the backend, so it is kept as an opaque JSON object.
type User map[string]any

// ParseUser decodes a profile payload. JSON null and empty bodies yield a nil User.
func ParseUser(data []byte) (User, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var u User
	if err := json.Unmarshal(data, &u); err != nil {
		return nil, fmt.Errorf("failed to decode user: %w", err)
	}
	return u, nil
}

// EmailVerifiedAt returns the raw verification timestamp, or nil when the
// field is absent or null.
func (u User) EmailVerifiedAt() any {
	if u == nil {
		return nil
	}
	return u[EmailVerifiedAtKey]
}

// IsVerified reports whether the verification timestamp is set to a truthy value.
func (u User) IsVerified() bool {
	switch v := u.EmailVerifiedAt().(type) {
	case nil:
		return false
	case string:
		return v != ""
	case bool:
		return v
	case float64:
		return v != 0
	default:
		return true
	}
}

// String returns a string field or "" when missing or not a string.
func (u User) String(key string) string {
	if u == nil {
		return ""
	}
	s, _ := u[key].(string)
	return s
}

// ID returns the backend identifier rendered as a string.
func (u User) ID() string {
	if u == nil {
		return ""
	}
	switch v := u["id"].(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return fmt.Sprintf("%.0f", v)
	default:
		return fmt.Sprint(v)
	}
}
