package config

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/lib/pq"
)

// DatabaseURL is a postgres:// URL split into the fields of DatabaseConfig
type DatabaseURL struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

// ParseDatabaseURL splits a postgres:// or postgresql:// URL. Port defaults
// to 5432 and sslmode to disable.
func ParseDatabaseURL(rawURL string) (*DatabaseURL, error) {
	if rawURL == "" {
		return nil, fmt.Errorf("database URL is empty")
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}
	if u.Scheme != "postgres" && u.Scheme != "postgresql" {
		return nil, fmt.Errorf("invalid database URL scheme: %s (expected postgres or postgresql)", u.Scheme)
	}

	parsed := &DatabaseURL{
		Host:     u.Hostname(),
		Port:     defaultDBPort,
		Database: strings.TrimPrefix(u.Path, "/"),
		SSLMode:  u.Query().Get("sslmode"),
	}
	if p := u.Port(); p != "" {
		if parsed.Port, err = strconv.Atoi(p); err != nil {
			return nil, fmt.Errorf("invalid port in database URL: %w", err)
		}
	}
	if u.User != nil {
		parsed.User = u.User.Username()
		parsed.Password, _ = u.User.Password()
	}
	if parsed.SSLMode == "" {
		parsed.SSLMode = "disable"
	}

	return parsed, nil
}

// DSN returns the lib/pq connection string. A URL wins over the individual
// fields; an unparsable URL falls back to them.
func (c *DatabaseConfig) DSN() string {
	if c.URL != "" {
		if dsn, err := pq.ParseURL(c.URL); err == nil {
			return dsn
		}
	}

	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		dsnValue(c.Host), c.Port, dsnValue(c.User), dsnValue(c.Password), dsnValue(c.Database), dsnValue(c.SSLMode))
}

var dsnEscaper = strings.NewReplacer(`\`, `\\`, `'`, `\'`)

// dsnValue quotes v for a key=value DSN when it is empty or holds spaces or quotes
func dsnValue(v string) string {
	if v != "" && !strings.ContainsAny(v, ` '\`) {
		return v
	}
	return "'" + dsnEscaper.Replace(v) + "'"
}

// fillFromURL copies URL components into fields still holding their defaults,
// so code reading Host or Database sees the real target.
func (c *DatabaseConfig) fillFromURL() {
	if c.URL == "" {
		return
	}
	parsed, err := ParseDatabaseURL(c.URL)
	if err != nil {
		return
	}

	if c.Host == "" || c.Host == "localhost" {
		c.Host = parsed.Host
	}
	if c.Port == 0 || c.Port == defaultDBPort {
		c.Port = parsed.Port
	}
	if c.User == "" || c.User == defaultDBUser {
		c.User = parsed.User
	}
	if c.Password == "" || c.Password == defaultDBPassword {
		c.Password = parsed.Password
	}
	if c.Database == "" || c.Database == defaultDBName {
		c.Database = parsed.Database
	}
	if c.SSLMode == "" || c.SSLMode == "disable" {
		c.SSLMode = parsed.SSLMode
	}
}
