// Package storage reads reference records out of a SQLite database.
package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"os"
	"regexp"

	_ "modernc.org/sqlite"
)

var (
	ErrTableNotFound = errors.New("table not found")
	ErrInvalidTable  = errors.New("invalid table name")
)

var (
	reTableName    = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
	reWithoutRowID = regexp.MustCompile(`(?i)WITHOUT\s+ROWID`)
)

type DB struct {
	conn *sql.DB
}

// Open opens an existing database file in read-only mode.
func Open(path string) (*DB, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}

	dsn := "file:" + (&url.URL{Path: path}).EscapedPath() + "?mode=ro"
	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return &DB{conn: conn}, nil
}

func (d *DB) Close() error {
	return d.conn.Close()
}

// Tables lists user tables in name order.
func (d *DB) Tables() ([]string, error) {
	rows, err := d.conn.Query(`
SELECT name FROM sqlite_master
WHERE type = 'table' AND name NOT LIKE 'sqlite_%'
ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		out = append(out, name)
	}
	return out, rows.Err()
}

// ListRecords returns every row of table as column -> value. SQL NULL maps
// to a nil pointer; other values are rendered as text. Rows come back in
// rowid order when the table has one.
func (d *DB) ListRecords(table string, limit int) ([]map[string]*string, error) {
	if err := d.checkTable(table); err != nil {
		return nil, err
	}

	query := `SELECT * FROM "` + table + `"`
	if hasRowID, err := d.hasRowID(table); err != nil {
		return nil, err
	} else if hasRowID {
		query += ` ORDER BY rowid`
	}
	if limit > 0 {
		query += fmt.Sprintf(` LIMIT %d`, limit)
	}

	rows, err := d.conn.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var out []map[string]*string
	for rows.Next() {
		values := make([]sql.NullString, len(cols))
		dest := make([]any, len(cols))
		for i := range values {
			dest[i] = &values[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}

		rec := make(map[string]*string, len(cols))
		for i, col := range cols {
			if values[i].Valid {
				v := values[i].String
				rec[col] = &v
			} else {
				rec[col] = nil
			}
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (d *DB) checkTable(table string) error {
	if !reTableName.MatchString(table) {
		return fmt.Errorf("%w: %q", ErrInvalidTable, table)
	}
	var name string
	err := d.conn.QueryRow(`SELECT name FROM sqlite_master WHERE type IN ('table', 'view') AND name = ?`, table).Scan(&name)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %s", ErrTableNotFound, table)
	}
	return err
}

func (d *DB) hasRowID(table string) (bool, error) {
	var typ string
	var sqlText sql.NullString
	err := d.conn.QueryRow(`SELECT type, sql FROM sqlite_master WHERE name = ?`, table).Scan(&typ, &sqlText)
	if err != nil {
		return false, err
	}
	if typ != "table" {
		return false, nil
	}
	return !reWithoutRowID.MatchString(sqlText.String), nil
}
