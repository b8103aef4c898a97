package db

import (
	"database/sql"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
)

// DBTXは、*sql.DB（データベース接続プール）と*sql.Tx（トランザクション）の両方が
// 満たすことができるインターフェースです。
//
// このインターフェースを関数の引数として使用することで、同じデータベース操作のロジックを
// トランザクションの内外で再利用できます。
type DBTX interface {
	Exec(query string, args ...interface{}) (sql.Result, error)
	Query(query string, args ...interface{}) (*sql.Rows, error)
	QueryRow(query string, args ...interface{}) *sql.Row
}

// Open opens the SQLite database and verifies the connection.
// The returned handle is owned by the caller (opened once in main,
// injected into handlers, closed on shutdown).
func Open(path string) (*sql.DB, error) {
	conn, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, errors.Wrapf(err, "open sqlite database %s", path)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, errors.Wrapf(err, "ping sqlite database %s", path)
	}
	return conn, nil
}
