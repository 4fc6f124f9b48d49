package entities

import "time"

// StoredCookie is one cookie of the CLI's browser jar, persisted between runs.
type StoredCookie struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Profile separates jars when one state file serves several backends or accounts
	Profile string `gorm:"type:varchar(100);not null;uniqueIndex:idx_cookie_identity" json:"profile"`

	// Origin is the scheme://host the cookie was received from
	Origin string `gorm:"type:varchar(255);not null;uniqueIndex:idx_cookie_identity" json:"origin"`

	Name string `gorm:"type:varchar(255);not null;uniqueIndex:idx_cookie_identity" json:"name"`
	Path string `gorm:"type:varchar(255);not null;uniqueIndex:idx_cookie_identity" json:"path"`

	// Value is stored as base64-encoded AES-256-GCM ciphertext
	Value string `gorm:"type:text" json:"-"`

	Domain   string     `gorm:"type:varchar(255)" json:"domain,omitempty"`
	Secure   bool       `json:"secure"`
	HttpOnly bool       `json:"http_only"`
	Expires  *time.Time `json:"expires,omitempty"`
}

// TableName specifies the table name for GORM
func (StoredCookie) TableName() string {
	return "browser_cookies"
}

// IsExpired reports whether the cookie should no longer be sent.
func (c *StoredCookie) IsExpired() bool {
	if c.Expires == nil {
		return false
	}
	return time.Now().After(*c.Expires)
}
