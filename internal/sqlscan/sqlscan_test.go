package sqlscan

import (
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRows(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT").WillReturnRows(
		sqlmock.NewRows([]string{"id", "name", "blob"}).
			AddRow(int64(1), "alice", []byte("raw")).
			AddRow(int64(2), nil, nil))

	rows, err := db.Query("SELECT id, name, blob FROM t")
	require.NoError(t, err)

	out, err := Rows(rows)
	require.NoError(t, err)
	require.Len(t, out, 2)

	assert.Equal(t, int64(1), out[0]["id"])
	assert.Equal(t, "alice", out[0]["name"])
	// Byte slices decode to strings for JSON output.
	assert.Equal(t, "raw", out[0]["blob"])

	assert.Nil(t, out[1]["name"])
}

func TestRowsEmpty(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT").WillReturnRows(sqlmock.NewRows([]string{"id"}))

	rows, err := db.Query("SELECT id FROM t")
	require.NoError(t, err)

	out, err := Rows(rows)
	require.NoError(t, err)
	assert.Empty(t, out)
}
