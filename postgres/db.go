package postgres

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rivulet-sh/rivulet/constants"
)

// AppDBName is the name of the application database.
const AppDBName = constants.AppName

// DB is the query surface shared by a connection pool and an open
// transaction.
type DB interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type TLSConfig struct {
	CertFile           string
	KeyFile            string
	CACertFile         string
	InsecureSkipVerify bool
}

type dialOptions struct {
	tlsConfig *TLSConfig
}

type DialOption func(opts *dialOptions)

// WithTLS dials the database over TLS using the provided certificates.
func WithTLS(cfg TLSConfig) DialOption {
	return func(opts *dialOptions) {
		opts.tlsConfig = &cfg
	}
}

// Dial connects to a Postgres database and verifies the connection with a
// retried ping.
func Dial(ctx context.Context, user string, password string, hostPort string, database string, opts ...DialOption) (*pgxpool.Pool, error) {
	var dopts dialOptions
	for _, opt := range opts {
		opt(&dopts)
	}

	url := fmt.Sprintf("postgres://%s:%s@%s/%s", user, password, hostPort, database)
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("parse postgres config: %w", err)
	}

	if dopts.tlsConfig != nil {
		tlsCfg, err := newTLSConfig(*dopts.tlsConfig)
		if err != nil {
			return nil, err
		}
		cfg.ConnConfig.TLSConfig = tlsCfg
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create postgres pool: %w", err)
	}

	if err = waitHealthy(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return pool, nil
}

func newTLSConfig(cfg TLSConfig) (*tls.Config, error) {
	tlsCfg := &tls.Config{
		MinVersion:         tls.VersionTLS12,
		InsecureSkipVerify: cfg.InsecureSkipVerify,
	}

	if cfg.CertFile != "" && cfg.KeyFile != "" {
		cert, err := tls.LoadX509KeyPair(cfg.CertFile, cfg.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("load postgres client key pair: %w", err)
		}
		tlsCfg.Certificates = []tls.Certificate{cert}
	}

	if cfg.CACertFile != "" {
		caCert, err := os.ReadFile(cfg.CACertFile)
		if err != nil {
			return nil, fmt.Errorf("read postgres ca cert: %w", err)
		}
		caPool := x509.NewCertPool()
		if !caPool.AppendCertsFromPEM(caCert) {
			return nil, fmt.Errorf("parse postgres ca cert %q", cfg.CACertFile)
		}
		tlsCfg.RootCAs = caPool
	}

	return tlsCfg, nil
}

func waitHealthy(ctx context.Context, pool *pgxpool.Pool) error {
	b := backoff.WithContext(backoff.WithMaxRetries(backoff.NewConstantBackOff(time.Second), 5), ctx)
	return backoff.Retry(func() error {
		return pool.Ping(ctx)
	}, b)
}
