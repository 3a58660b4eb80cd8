package domain

import (
	"net"
	"net/url"
	"regexp"
	"strconv"
	"strings"
)

// DefaultPort is used when a profile does not name one.
const DefaultPort = 5432

// ConnectionProfile describes how the backend should reach the database.
type ConnectionProfile struct {
	Host     string `json:"host" yaml:"host"`
	Port     int    `json:"port" yaml:"port"`
	Database string `json:"database" yaml:"database"`
	Role     string `json:"role" yaml:"role"`
	Password string `json:"password" yaml:"password"`
}

// WithDefaults fills in the default port.
func (p ConnectionProfile) WithDefaults() ConnectionProfile {
	if p.Port == 0 {
		p.Port = DefaultPort
	}
	return p
}

// SameTarget reports whether two profiles point at the same database as the
// same role. Passwords are ignored.
func (p ConnectionProfile) SameTarget(o ConnectionProfile) bool {
	return p.Host == o.Host && p.Port == o.Port && p.Database == o.Database && p.Role == o.Role
}

// DSN builds a postgres connection URL with credentials escaped.
func (p ConnectionProfile) DSN() string {
	p = p.WithDefaults()
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(p.Role, p.Password),
		Host:     net.JoinHostPort(p.Host, strconv.Itoa(p.Port)),
		Path:     "/" + p.Database,
		RawQuery: "sslmode=prefer",
	}
	return u.String()
}

var portPattern = regexp.MustCompile(`^[0-9]+$`)

// ConnectionForm is the raw text of the connection settings form.
type ConnectionForm struct {
	Host     string `json:"host"`
	Port     string `json:"port"`
	Database string `json:"database"`
	Role     string `json:"role"`
	Password string `json:"password"`
}

// Validate checks the form and converts it to a profile.
func (f ConnectionForm) Validate() (ConnectionProfile, error) {
	verr := &ValidationError{}
	host := strings.TrimSpace(f.Host)
	database := strings.TrimSpace(f.Database)
	role := strings.TrimSpace(f.Role)

	if host == "" {
		verr.Add("host", "host is required")
	}
	port := 0
	if f.Port != "" {
		if !portPattern.MatchString(f.Port) {
			verr.Add("port", "port must contain digits only")
		} else if n, err := strconv.Atoi(f.Port); err != nil || n <= 0 || n > 65535 {
			verr.Add("port", "port must be 1-65535")
		} else {
			port = n
		}
	}
	if database == "" {
		verr.Add("database", "database is required")
	}
	if role == "" {
		verr.Add("role", "role is required")
	}

	if verr.HasFields() {
		return ConnectionProfile{}, verr
	}

	return ConnectionProfile{
		Host:     host,
		Port:     port,
		Database: database,
		Role:     role,
		Password: f.Password,
	}.WithDefaults(), nil
}
