package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	c := Default()
	assert.Empty(t, c.URLs)
	assert.False(t, c.AllowWrite)
	assert.Equal(t, 100, c.RowLimit)
	assert.Equal(t, "30s", c.QueryTimeout)
	assert.Equal(t, "info", c.LogLevel)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sqlgate.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
urls:
  - sqlite:./app.db
  - postgres://user:pw@localhost/app
row_limit: 50
query_timeout: 10s
log_level: debug
`), 0o644))

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"sqlite:./app.db", "postgres://user:pw@localhost/app"}, c.URLs)
	assert.Equal(t, 50, c.RowLimit)
	assert.Equal(t, "10s", c.QueryTimeout)
	assert.Equal(t, "debug", c.LogLevel)
	// Unset keys keep their defaults.
	assert.False(t, c.AllowWrite)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("SQLGATE_URLS", "sqlite::memory:, mysql://root@localhost/app")
	t.Setenv("SQLGATE_ALLOW_WRITE", "true")
	t.Setenv("SQLGATE_ROW_LIMIT", "25")
	t.Setenv("SQLGATE_QUERY_TIMEOUT", "5s")
	t.Setenv("SQLGATE_LOG_LEVEL", "warn")

	c := Default()
	c.ApplyEnv()

	assert.Equal(t, []string{"sqlite::memory:", "mysql://root@localhost/app"}, c.URLs)
	assert.True(t, c.AllowWrite)
	assert.Equal(t, 25, c.RowLimit)
	assert.Equal(t, "5s", c.QueryTimeout)
	assert.Equal(t, "warn", c.LogLevel)
}

func TestTimeout(t *testing.T) {
	c := Default()
	d, err := c.Timeout()
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, d)

	c.QueryTimeout = "bogus"
	_, err = c.Timeout()
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	c := Default()
	assert.Error(t, c.Validate(), "no URLs")

	c.URLs = []string{"sqlite::memory:"}
	assert.NoError(t, c.Validate())

	c.RowLimit = 0
	assert.Error(t, c.Validate())

	c.RowLimit = 100
	c.QueryTimeout = "-5s"
	assert.Error(t, c.Validate())
}
