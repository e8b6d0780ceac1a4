package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// DatabaseConfig selects and configures the attendance record store.
type DatabaseConfig struct {
	// Driver is postgres or sqlite.
	Driver string `env:"DATABASE_DRIVER" yaml:"driver" default:"postgres"`

	// SQLitePath is the database file used when Driver is sqlite.
	SQLitePath string `env:"SQLITE_PATH" yaml:"sqlite_path" default:"attendance.db"`

	// URL takes precedence over the individual components below.
	URL string `env:"DATABASE_URL" yaml:"url"`

	Host     string `env:"DB_HOST" yaml:"host" default:"localhost"`
	Port     int    `env:"DB_PORT" yaml:"port" default:"5432"`
	Database string `env:"DB_NAME" yaml:"database" default:"attendance"`
	Username string `env:"DB_USER" yaml:"username" default:"postgres"`
	Password string `env:"DB_PASSWORD" yaml:"password" default:"postgres"`
	SSLMode  string `env:"DB_SSLMODE" yaml:"sslmode" default:"disable"`

	MaxConnections   int           `env:"DB_MAX_CONNECTIONS" yaml:"max_connections" default:"10"`
	MinConnections   int           `env:"DB_MIN_CONNECTIONS" yaml:"min_connections" default:"1"`
	MaxIdleTime      time.Duration `env:"DB_MAX_IDLE_TIME" yaml:"max_idle_time" default:"5m"`
	MaxLifetime      time.Duration `env:"DB_MAX_LIFETIME" yaml:"max_lifetime" default:"30m"`
	ConnectTimeout   time.Duration `env:"DB_CONNECT_TIMEOUT" yaml:"connect_timeout" default:"10s"`
	StatementTimeout time.Duration `env:"DB_STATEMENT_TIMEOUT" yaml:"statement_timeout" default:"30s"`
}

// GetConnectionString returns the bare postgres URL.
func (d DatabaseConfig) GetConnectionString() string {
	if d.URL != "" {
		return d.URL
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.Username, d.Password),
		Host:     fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:     d.Database,
		RawQuery: "sslmode=" + url.QueryEscape(d.SSLMode),
	}
	return u.String()
}

// GetConnectionConfig returns the connection string with pgxpool and timeout
// parameters appended.
func (d DatabaseConfig) GetConnectionConfig() string {
	base := d.GetConnectionString()
	params := url.Values{}
	params.Set("pool_max_conns", fmt.Sprint(d.MaxConnections))
	params.Set("pool_min_conns", fmt.Sprint(d.MinConnections))
	params.Set("pool_max_conn_idle_time", d.MaxIdleTime.String())
	params.Set("pool_max_conn_lifetime", d.MaxLifetime.String())
	params.Set("connect_timeout", fmt.Sprint(int(d.ConnectTimeout.Seconds())))
	params.Set("statement_timeout", fmt.Sprint(d.StatementTimeout.Milliseconds()))

	sep := "?"
	if strings.Contains(base, "?") {
		sep = "&"
	}
	return base + sep + params.Encode()
}

func (d DatabaseConfig) Validate() error {
	var result error

	switch d.Driver {
	case DriverSQLite:
		if d.SQLitePath == "" {
			result = multierror.Append(result, fmt.Errorf("sqlite_path is required for the sqlite driver"))
		}
		return result
	case DriverPostgres:
	default:
		return fmt.Errorf("database driver must be postgres or sqlite, got %q", d.Driver)
	}

	if d.URL == "" {
		if d.Host == "" {
			result = multierror.Append(result, fmt.Errorf("database host is required"))
		}
		if d.Port < 1 || d.Port > 65535 {
			result = multierror.Append(result, fmt.Errorf("database port must be between 1-65535, got %d", d.Port))
		}
		if d.Database == "" {
			result = multierror.Append(result, fmt.Errorf("database name is required"))
		}
	}
	if d.MaxConnections < 1 {
		result = multierror.Append(result, fmt.Errorf("max_connections must be positive, got %d", d.MaxConnections))
	}
	if d.MinConnections > d.MaxConnections {
		result = multierror.Append(result, fmt.Errorf("min_connections (%d) cannot exceed max_connections (%d)", d.MinConnections, d.MaxConnections))
	}
	return result
}
