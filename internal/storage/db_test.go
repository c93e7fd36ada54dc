package storage

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedDB(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "refs.db")

	conn, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Exec(`
CREATE TABLE companies (
  id INTEGER PRIMARY KEY,
  name TEXT NOT NULL,
  city TEXT,
  revenue REAL
);
INSERT INTO companies (name, city, revenue) VALUES ('Acme Corp', 'Springfield', 1234.5);
INSERT INTO companies (name, city, revenue) VALUES ('Globex', NULL, NULL);
CREATE TABLE notes (body TEXT);
`)
	require.NoError(t, err)
	return path
}

func TestListRecords(t *testing.T) {
	db, err := Open(seedDB(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	recs, err := db.ListRecords("companies", 0)
	require.NoError(t, err)
	require.Len(t, recs, 2)

	require.NotNil(t, recs[0]["name"])
	assert.Equal(t, "Acme Corp", *recs[0]["name"])
	assert.Equal(t, "Springfield", *recs[0]["city"])
	assert.Equal(t, "1234.5", *recs[0]["revenue"])

	assert.Equal(t, "Globex", *recs[1]["name"])
	assert.Nil(t, recs[1]["city"])
	assert.Contains(t, recs[1], "city")

	limited, err := db.ListRecords("companies", 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestTables(t *testing.T) {
	db, err := Open(seedDB(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	tables, err := db.Tables()
	require.NoError(t, err)
	assert.Equal(t, []string{"companies", "notes"}, tables)
}

func TestTableErrors(t *testing.T) {
	db, err := Open(seedDB(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.ListRecords("missing", 0)
	assert.ErrorIs(t, err, ErrTableNotFound)

	_, err = db.ListRecords(`companies"; DROP TABLE companies; --`, 0)
	assert.ErrorIs(t, err, ErrInvalidTable)
}

func TestOpenIsReadOnly(t *testing.T) {
	db, err := Open(seedDB(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.conn.Exec(`INSERT INTO notes (body) VALUES ('x')`)
	assert.Error(t, err)
}

func TestOpenMissingFile(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "nope.db"))
	assert.Error(t, err)
}
