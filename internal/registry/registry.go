// Package registry holds the set of configured database connections. The
// registry is built once at startup and never mutates afterwards, so
// resolution is a pure read requiring no locking.
package registry

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/sirupsen/logrus"

	// Drivers for the three supported backends.
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/sqlgate/sqlgate/internal/dialect"
	"github.com/sqlgate/sqlgate/internal/gateway"
)

// Connection pool settings.
const (
	connectTimeout  = 10 * time.Second
	maxIdleConns    = 5
	maxOpenConns    = 10
	connMaxLifetime = time.Hour
)

// Backend identifies which SQL engine a connection targets.
type Backend int

const (
	Postgres Backend = iota
	MySQL
	SQLite
)

func (b Backend) String() string {
	switch b {
	case Postgres:
		return "postgres"
	case MySQL:
		return "mysql"
	case SQLite:
		return "sqlite"
	}
	return "unknown"
}

// BackendFromURL derives the backend kind from a connection URL scheme.
func BackendFromURL(raw string) (Backend, error) {
	switch {
	case strings.HasPrefix(raw, "postgres://"), strings.HasPrefix(raw, "postgresql://"):
		return Postgres, nil
	case strings.HasPrefix(raw, "mysql://"), strings.HasPrefix(raw, "mariadb://"):
		return MySQL, nil
	case strings.HasPrefix(raw, "sqlite:"):
		return SQLite, nil
	}
	return 0, fmt.Errorf("unsupported database URL scheme: %s", raw)
}

// Entry is one configured database: a display name, its backend kind, the
// live pool, a credential-redacted URL, and the adapter selected for it.
type Entry struct {
	Name        string
	Backend     Backend
	DB          *sql.DB
	RedactedURL string
	Adapter     dialect.Adapter
}

// Registry is the immutable set of connected databases.
type Registry struct {
	entries []*Entry
}

// New builds a registry from already-constructed entries. Used by Open and
// by tests that fabricate entries.
func New(entries ...*Entry) *Registry {
	return &Registry{entries: entries}
}

// Open connects to every URL, derives display names, and builds the
// registry. In restricted mode SQLite pools get PRAGMA query_only as
// startup hardening; the lexical gate remains their only per-statement
// guard.
func Open(ctx context.Context, urls []string, restricted bool, log *logrus.Logger) (*Registry, error) {
	r := &Registry{}
	seen := make(map[string]int)

	for _, raw := range urls {
		backend, err := BackendFromURL(raw)
		if err != nil {
			r.Close()
			return nil, err
		}

		dsn, err := buildDSN(backend, raw)
		if err != nil {
			r.Close()
			return nil, err
		}

		db, err := sql.Open(driverName(backend), dsn)
		if err != nil {
			r.Close()
			return nil, fmt.Errorf("open %s: %w", redactURL(raw), err)
		}
		db.SetMaxIdleConns(maxIdleConns)
		db.SetMaxOpenConns(maxOpenConns)
		db.SetConnMaxLifetime(connMaxLifetime)

		pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
		err = db.PingContext(pingCtx)
		cancel()
		if err != nil {
			db.Close()
			r.Close()
			return nil, fmt.Errorf("connect %s: %w", redactURL(raw), err)
		}

		if restricted && backend == SQLite {
			if _, err := db.ExecContext(ctx, "PRAGMA query_only = ON"); err != nil {
				log.Warnf("could not set query_only on %s: %v", redactURL(raw), err)
			}
		}

		name := displayName(backend, raw)
		seen[name]++
		if n := seen[name]; n > 1 {
			name = fmt.Sprintf("%s-%d", name, n)
		}

		r.entries = append(r.entries, &Entry{
			Name:        name,
			Backend:     backend,
			DB:          db,
			RedactedURL: redactURL(raw),
			Adapter:     dialect.ForBackend(backend.String()),
		})
		log.Infof("connected %s (%s)", name, backend)
	}

	return r, nil
}

// Entries returns the configured entries in startup order.
func (r *Registry) Entries() []*Entry { return r.entries }

// Resolve picks the entry a request targets. An empty name means the
// request did not specify one: it resolves only when exactly one database
// is configured.
func (r *Registry) Resolve(name string) (*Entry, error) {
	if len(r.entries) == 0 {
		return nil, gateway.ErrNoDatabaseConfigured
	}
	if name == "" {
		if len(r.entries) == 1 {
			return r.entries[0], nil
		}
		return nil, &gateway.AmbiguousDatabaseError{Available: r.Names()}
	}
	for _, e := range r.entries {
		if e.Name == name {
			return e, nil
		}
	}
	return nil, &gateway.UnknownDatabaseError{Name: name, Available: r.Names()}
}

// Names returns the configured database names in startup order.
func (r *Registry) Names() []string {
	names := make([]string, len(r.entries))
	for i, e := range r.entries {
		names[i] = e.Name
	}
	return names
}

// Close closes every pool. Safe on a partially-built registry.
func (r *Registry) Close() error {
	var firstErr error
	for _, e := range r.entries {
		if err := e.DB.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func driverName(b Backend) string {
	// modernc.org/sqlite registers as "sqlite"; the server drivers use
	// their conventional names.
	return b.String()
}

// buildDSN turns a connection URL into the driver's DSN form. lib/pq
// accepts URLs directly; go-sql-driver needs its own format, built through
// mysql.Config; sqlite takes the bare path.
func buildDSN(b Backend, raw string) (string, error) {
	switch b {
	case Postgres:
		return raw, nil
	case MySQL:
		return mysqlDSN(raw)
	case SQLite:
		return sqlitePath(raw), nil
	}
	return "", fmt.Errorf("unsupported backend %s", b)
}

func mysqlDSN(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("parse mysql URL: %w", err)
	}

	cfg := mysql.NewConfig()
	cfg.Net = "tcp"
	cfg.Addr = u.Host
	if u.Port() == "" {
		cfg.Addr = u.Host + ":3306"
	}
	cfg.DBName = strings.TrimPrefix(u.Path, "/")
	if u.User != nil {
		cfg.User = u.User.Username()
		cfg.Passwd, _ = u.User.Password()
	}
	for k, v := range u.Query() {
		if len(v) == 0 {
			continue
		}
		if cfg.Params == nil {
			cfg.Params = make(map[string]string)
		}
		cfg.Params[k] = v[0]
	}
	return cfg.FormatDSN(), nil
}

func sqlitePath(raw string) string {
	p := strings.TrimPrefix(raw, "sqlite:")
	if p == "" {
		return ":memory:"
	}
	return p
}

// displayName derives a human-friendly name from a connection URL: the
// database path component for server backends, the file stem for SQLite.
func displayName(b Backend, raw string) string {
	if b == SQLite {
		p := sqlitePath(raw)
		if p == ":memory:" || strings.HasPrefix(p, "file::memory:") {
			return "memory"
		}
		if i := strings.Index(p, "?"); i >= 0 {
			p = p[:i]
		}
		base := path.Base(p)
		return strings.TrimSuffix(base, path.Ext(base))
	}
	if u, err := url.Parse(raw); err == nil {
		if name := strings.TrimPrefix(u.Path, "/"); name != "" {
			return name
		}
	}
	return b.String()
}

// redactURL masks the password component of a connection URL for display.
func redactURL(raw string) string {
	if strings.HasPrefix(raw, "sqlite:") {
		return raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	if u.User != nil {
		if _, has := u.User.Password(); has {
			u.User = url.UserPassword(u.User.Username(), "****")
		}
	}
	return u.String()
}
