// Package cookiestore keeps the CLI's browser cookie jar in SQLite between
// runs. Cookie values are encrypted at rest with AES-256-GCM.
package cookiestore

import (
	"fmt"
	"log"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/publicsuffix"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/mrlokans/sanctum-auth/internal/crypto"
	"github.com/mrlokans/sanctum-auth/internal/entities"
)

// DefaultProfile is used when the caller does not name one.
const DefaultProfile = "default"

// Store provides persisted cookie jars, one per profile.
type Store struct {
	db        *gorm.DB
	encryptor *crypto.Encryptor
}

// Config holds configuration for the cookie store
type Config struct {
	// DatabasePath is the path to the SQLite database file
	DatabasePath string

	// EncryptionKey is the base64-encoded 32-byte encryption key.
	// If empty, the key file is used, and created when missing.
	EncryptionKey string

	// KeyFilePath is the path to the encryption key file
	KeyFilePath string
}

// New opens the store, creating the database and key as needed.
func New(cfg Config) (*Store, error) {
	key, err := crypto.ResolveKey(cfg.EncryptionKey, cfg.KeyFilePath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve encryption key: %w", err)
	}

	encryptor, err := crypto.NewEncryptorFromBase64(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create encryptor: %w", err)
	}

	db, err := gorm.Open(sqlite.Open(cfg.DatabasePath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.AutoMigrate(&entities.StoredCookie{}); err != nil {
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}

	return &Store{
		db:        db,
		encryptor: encryptor,
	}, nil
}

// Jar loads the profile's cookies into a jar that writes changes back to the
// store. Expired cookies and cookies that no longer decrypt are dropped.
func (s *Store) Jar(profile string) (*Jar, error) {
	if profile == "" {
		profile = DefaultProfile
	}

	mem, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	var rows []entities.StoredCookie
	if err := s.db.Where("profile = ?", profile).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to load cookies: %w", err)
	}

	for i := range rows {
		row := &rows[i]
		if row.IsExpired() {
			s.db.Delete(row)
			continue
		}

		value, err := s.encryptor.Decrypt(row.Value, label(row.Profile, row.Origin, row.Name, row.Path))
		if err != nil {
			log.Printf("[COOKIESTORE] dropping unreadable cookie %s for %s: %v", row.Name, row.Origin, err)
			s.db.Delete(row)
			continue
		}

		u, err := url.Parse(row.Origin)
		if err != nil {
			s.db.Delete(row)
			continue
		}
		u.Path = row.Path

		cookie := &http.Cookie{
			Name:     row.Name,
			Value:    value,
			Path:     row.Path,
			Domain:   row.Domain,
			Secure:   row.Secure,
			HttpOnly: row.HttpOnly,
		}
		if row.Expires != nil {
			cookie.Expires = *row.Expires
		}
		mem.SetCookies(u, []*http.Cookie{cookie})
	}

	return &Jar{store: s, profile: profile, jar: mem}, nil
}

// Clear forgets every cookie of a profile.
func (s *Store) Clear(profile string) error {
	if profile == "" {
		profile = DefaultProfile
	}
	if err := s.db.Where("profile = ?", profile).Delete(&entities.StoredCookie{}).Error; err != nil {
		return fmt.Errorf("failed to clear cookies: %w", err)
	}
	return nil
}

// Count returns how many cookies a profile has stored.
func (s *Store) Count(profile string) (int64, error) {
	var count int64
	err := s.db.Model(&entities.StoredCookie{}).Where("profile = ?", profile).Count(&count).Error
	return count, err
}

// Close closes the database connection
func (s *Store) Close() error {
	db, err := s.db.DB()
	if err != nil {
		return err
	}
	return db.Close()
}

func (s *Store) save(profile, origin string, c *http.Cookie, path string, expires *time.Time) error {
	value, err := s.encryptor.Encrypt(c.Value, label(profile, origin, c.Name, path))
	if err != nil {
		return fmt.Errorf("failed to encrypt cookie value: %w", err)
	}

	row := &entities.StoredCookie{
		Profile:  profile,
		Origin:   origin,
		Name:     c.Name,
		Path:     path,
		Value:    value,
		Domain:   c.Domain,
		Secure:   c.Secure,
		HttpOnly: c.HttpOnly,
		Expires:  expires,
	}

	// Upsert: update if exists, create if not
	result := s.db.Where("profile = ? AND origin = ? AND name = ? AND path = ?", profile, origin, c.Name, path).
		Assign(map[string]interface{}{
			"value":      value,
			"domain":     c.Domain,
			"secure":     c.Secure,
			"http_only":  c.HttpOnly,
			"expires":    expires,
			"updated_at": time.Now(),
		}).
		FirstOrCreate(row)
	if result.Error != nil {
		return fmt.Errorf("failed to save cookie: %w", result.Error)
	}
	return nil
}

func (s *Store) delete(profile, origin, name, path string) error {
	result := s.db.Where("profile = ? AND origin = ? AND name = ? AND path = ?", profile, origin, name, path).
		Delete(&entities.StoredCookie{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete cookie: %w", result.Error)
	}
	return nil
}

// Jar is an http.CookieJar whose cookies outlive the process. Reads are
// served from memory; every accepted cookie is written through to the store.
type Jar struct {
	store   *Store
	profile string
	jar     *cookiejar.Jar
}

func (j *Jar) Cookies(u *url.URL) []*http.Cookie {
	return j.jar.Cookies(u)
}

// SetCookies stores cookies received from u. Persistence failures are logged,
// the in-memory jar is updated regardless.
func (j *Jar) SetCookies(u *url.URL, cookies []*http.Cookie) {
	j.jar.SetCookies(u, cookies)

	origin := u.Scheme + "://" + u.Host
	now := time.Now()
	for _, c := range cookies {
		path := c.Path
		if path == "" || !strings.HasPrefix(path, "/") {
			path = defaultPath(u.Path)
		}

		var expires *time.Time
		switch {
		case c.MaxAge < 0:
			expires = &now
		case c.MaxAge > 0:
			t := now.Add(time.Duration(c.MaxAge) * time.Second)
			expires = &t
		case !c.Expires.IsZero():
			t := c.Expires
			expires = &t
		}

		var err error
		if expires != nil && !expires.After(now) {
			err = j.store.delete(j.profile, origin, c.Name, path)
		} else {
			err = j.store.save(j.profile, origin, c, path, expires)
		}
		if err != nil {
			log.Printf("[COOKIESTORE] %s: %v", c.Name, err)
		}
	}
}

// label ties a ciphertext to the identity of the cookie it was stored for.
func label(profile, origin, name, path string) string {
	return strings.Join([]string{profile, origin, name, path}, "|")
}

// defaultPath is the cookie default-path of a request path (RFC 6265 5.1.4).
func defaultPath(path string) string {
	if path == "" || path[0] != '/' {
		return "/"
	}
	i := strings.LastIndex(path, "/")
	if i == 0 {
		return "/"
	}
	return path[:i]
}
