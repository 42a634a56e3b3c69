package app

import (
	"github.com/cohesivestack/valgo"
	"github.com/joshjon/kit/log"
	"github.com/joshjon/kit/valgoutil"

	"github.com/rivulet-sh/rivulet/postgres"
)

const defaultServerPort = 5400

const (
	StorageDriverPostgres = "postgres"
	StorageDriverSQLite   = "sqlite"
)

var storageDrivers = []string{StorageDriverPostgres, StorageDriverSQLite}

// ServerConfig configures the catalog server.
type ServerConfig struct {
	Port        int             `yaml:"port" env:"PORT"` // default: 5400
	Logger      LoggerConfig    `yaml:"logger" envPrefix:"LOGGER_"`
	TLS         *TLSConfig      `yaml:"tls" envPrefix:"TLS_"`
	CorsOrigins []string        `yaml:"corsOrigins" env:"CORS_ORIGINS"`
	Storage     StorageConfig   `yaml:"storage" envPrefix:"STORAGE_"`
	Notifier    *NotifierConfig `yaml:"notifier,omitempty" envPrefix:"NOTIFIER_"`
}

func (c *ServerConfig) InitDefaults() {
	c.Port = defaultServerPort
	c.Logger.InitDefaults()
	c.Storage.InitDefaults()
}

func (c *ServerConfig) Validation() *valgo.Validation {
	v := valgo.New()
	v.Is(valgo.Int(c.Port, "port").GreaterOrEqualTo(0))
	v.In("logger", c.Logger.Validation())
	v.In("storage", c.Storage.Validation())

	for i, origin := range c.CorsOrigins {
		v.InRow("corsOrigins", i, valgo.Is(valgoutil.CORSValidator(origin, "origin")))
	}

	if c.TLS != nil {
		v.In("tls", c.TLS.Validation())
	}
	if c.Notifier != nil {
		v.In("notifier", c.Notifier.Validation())
	}

	return v
}

// Component configs

type LoggerConfig struct {
	Level      string `yaml:"level" env:"LEVEL"`           // default: info
	Structured bool   `yaml:"structured" env:"STRUCTURED"` // default: true
}

func (c *LoggerConfig) InitDefaults() {
	c.Structured = true
	c.Level = "info"
}

func (c *LoggerConfig) Validation() *valgo.Validation {
	return valgo.Is(valgo.String(c.Level, "level").Passing(func(_ string) bool {
		_, ok := log.ParseLevel(c.Level)
		return ok
	}, "Must be one of [debug, info, warn, error]"))
}

type TLSConfig struct {
	CertFile           string `yaml:"certFile" env:"CERT_FILE"`
	KeyFile            string `yaml:"keyFile" env:"KEY_FILE"`
	CACertFile         string `yaml:"caCertFile" env:"CA_CERT_FILE"`
	InsecureSkipVerify bool   `yaml:"insecureSkipVerify" env:"INSECURE_SKIP_VERIFY"` // client TLS only (not intended for production environments)
}

func (c *TLSConfig) Validation() *valgo.Validation {
	return valgo.Is(
		valgo.String(c.CertFile, "certFile").Not().Blank(),
		valgo.String(c.KeyFile, "keyFile").Not().Blank(),
	)
}

type StorageConfig struct {
	// Driver selects the backing database (postgres or sqlite).
	Driver   string         `yaml:"driver" env:"DRIVER"` // default: postgres
	Postgres PostgresConfig `yaml:"postgres" envPrefix:"POSTGRES_"`
	SQLite   SQLiteConfig   `yaml:"sqlite" envPrefix:"SQLITE_"`
}

func (c *StorageConfig) InitDefaults() {
	if c.Driver == "" {
		c.Driver = StorageDriverPostgres
	}
	c.Postgres.InitDefaults()
}

func (c *StorageConfig) Validation() *valgo.Validation {
	v := valgo.New()
	v.Is(valgo.String(c.Driver, "driver").InSlice(storageDrivers))

	switch c.Driver {
	case StorageDriverPostgres:
		v.In("postgres", c.Postgres.Validation())
	case StorageDriverSQLite:
		v.In("sqlite", c.SQLite.Validation())
	}

	return v
}

type PostgresConfig struct {
	// Database defaults to "rivulet".
	Database string     `yaml:"database" env:"DATABASE"`
	HostPort string     `yaml:"hostPort"  env:"HOST_PORT"`
	User     string     `yaml:"user"  env:"USER"`
	Password string     `yaml:"password"  env:"PASSWORD"`
	TLS      *TLSConfig `yaml:"tls" envPrefix:"TLS_"`
}

func (c *PostgresConfig) InitDefaults() {
	if c.Database == "" {
		c.Database = postgres.AppDBName
	}
}

func (c *PostgresConfig) Validation() *valgo.Validation {
	v := valgo.Is(
		valgoutil.HostPortValidator(c.HostPort, "hostPort"),
		valgo.String(c.Database, "database").Not().Blank(),
		valgo.String(c.User, "user").Not().Blank(),
	)
	if c.TLS != nil {
		v.In("tls", c.TLS.Validation())
	}
	return v
}

type SQLiteConfig struct {
	// Dir is the directory holding the database file. An empty value runs the
	// database in memory.
	Dir string `yaml:"dir" env:"DIR"`
}

func (c *SQLiteConfig) Validation() *valgo.Validation {
	return valgo.New()
}

type NotifierConfig struct {
	// Specifies the NATS URLs to publish catalog change events to. At least 1
	// URL is required. Additional URLs are permitted in a clustered setup.
	NatsURLs []string `yaml:"natsURLs"  env:"NATS_URLS"`
}

func (c *NotifierConfig) Validation() *valgo.Validation {
	v := valgo.New()
	v.Is(valgoutil.NonEmptySliceValidator(c.NatsURLs, "natsURLs", "NATS URLs"))
	return v
}
