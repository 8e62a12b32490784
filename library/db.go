// library/db.go

// Package library inspects and rewrites extension references inside the
// exportLibrary.db SQLite database that newer Rekordbox versions write next to
// the binary catalog files.
package library

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"RekordPdbPatcher/common"

	_ "github.com/mutecomm/go-sqlcipher/v4"
)

var (
	// ErrNoPath is returned when no database path is configured
	ErrNoPath = errors.New("no database path")
	// ErrNotConnected is returned by operations that need an open connection
	ErrNotConnected = errors.New("database not connected")
	// ErrTxActive is returned when a transaction is already open
	ErrTxActive = errors.New("transaction already active")
	// ErrNoTx is returned when committing or rolling back without a transaction
	ErrNoTx = errors.New("no active transaction")
)

// DBManager wraps one connection to a device library database.
// With an empty key the file is opened as plain SQLite, otherwise as SQLCipher.
type DBManager struct {
	db                *sql.DB
	dbPath            string
	key               string
	isConnected       bool
	mutex             sync.Mutex
	logger            *common.Logger
	activeTransaction *sql.Tx
	finalized         bool
}

// NewDBManager creates a manager for dbPath. The connection is opened lazily.
func NewDBManager(dbPath, key string, logger *common.Logger) (*DBManager, error) {
	if common.IsEmptyString(dbPath) {
		return nil, ErrNoPath
	}
	return &DBManager{
		dbPath: dbPath,
		key:    key,
		logger: logger,
	}, nil
}

func (m *DBManager) dsn() string {
	if m.key == "" {
		return fmt.Sprintf("file:%s", m.dbPath)
	}
	return fmt.Sprintf("file:%s?_pragma_key=%s&_pragma_cipher_compatibility=3&_pragma_cipher_page_size=4096", m.dbPath, m.key)
}

// Connect establishes a connection to the database
func (m *DBManager) Connect() error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if m.isConnected {
		return nil
	}
	if m.finalized {
		return fmt.Errorf("%w: %s already finalized", ErrNotConnected, m.dbPath)
	}
	if !common.FileExists(m.dbPath) {
		return common.NewIOError("open database", m.dbPath, os.ErrNotExist)
	}

	db, err := sql.Open("sqlite3", m.dsn())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	// a wrong key only shows up on the first real read
	if _, err := db.Exec("SELECT count(*) FROM sqlite_master"); err != nil {
		db.Close()
		return fmt.Errorf("failed to connect to database %s: %w", m.dbPath, err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=DELETE"); err != nil {
		db.Close()
		return fmt.Errorf("failed to set journal mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA synchronous=FULL"); err != nil {
		db.Close()
		return fmt.Errorf("failed to set synchronous mode: %w", err)
	}

	m.db = db
	m.isConnected = true
	m.logger.Info("Connected to library database: %s", m.dbPath)
	return nil
}

// EnsureConnected connects unless a connection is already open
func (m *DBManager) EnsureConnected() error {
	if !m.isConnected {
		return m.Connect()
	}
	return nil
}

// BeginTransaction starts a transaction used by Execute until commit or rollback
func (m *DBManager) BeginTransaction() error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if !m.isConnected {
		return fmt.Errorf("%w: %s", ErrNotConnected, m.dbPath)
	}
	if m.activeTransaction != nil {
		return fmt.Errorf("%w: %s", ErrTxActive, m.dbPath)
	}

	tx, err := m.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	m.activeTransaction = tx
	return nil
}

// CommitTransaction commits the current transaction
func (m *DBManager) CommitTransaction() error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if m.activeTransaction == nil {
		return fmt.Errorf("%w: %s", ErrNoTx, m.dbPath)
	}
	err := m.activeTransaction.Commit()
	m.activeTransaction = nil
	if err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// RollbackTransaction rolls back the current transaction
func (m *DBManager) RollbackTransaction() error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if m.activeTransaction == nil {
		return fmt.Errorf("%w: %s", ErrNoTx, m.dbPath)
	}
	err := m.activeTransaction.Rollback()
	m.activeTransaction = nil
	if err != nil {
		return fmt.Errorf("failed to roll back transaction: %w", err)
	}
	return nil
}

// Execute runs a statement, inside the active transaction if there is one,
// and returns the number of affected rows.
func (m *DBManager) Execute(query string, args ...interface{}) (int64, error) {
	if err := m.EnsureConnected(); err != nil {
		return 0, err
	}

	m.mutex.Lock()
	defer m.mutex.Unlock()

	var (
		res sql.Result
		err error
	)
	if m.activeTransaction != nil {
		res, err = m.activeTransaction.Exec(query, args...)
	} else {
		res, err = m.db.Exec(query, args...)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to execute query: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// Query executes an SQL query and returns rows
func (m *DBManager) Query(query string, args ...interface{}) (*sql.Rows, error) {
	if err := m.EnsureConnected(); err != nil {
		return nil, err
	}

	m.mutex.Lock()
	defer m.mutex.Unlock()

	var (
		rows *sql.Rows
		err  error
	)
	if m.activeTransaction != nil {
		rows, err = m.activeTransaction.Query(query, args...)
	} else {
		rows, err = m.db.Query(query, args...)
	}
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	return rows, nil
}

// QueryInt runs a query returning a single integer
func (m *DBManager) QueryInt(query string, args ...interface{}) (int, error) {
	rows, err := m.Query(query, args...)
	if err != nil {
		return 0, err
	}
	defer rows.Close()

	var n int
	if rows.Next() {
		if err := rows.Scan(&n); err != nil {
			return 0, fmt.Errorf("failed to scan row: %w", err)
		}
	}
	return n, rows.Err()
}

// TableExists checks if a table exists in the database
func (m *DBManager) TableExists(tableName string) (bool, error) {
	n, err := m.QueryInt(`SELECT count(*) FROM sqlite_master WHERE type='table' AND name=?`, tableName)
	if err != nil {
		return false, fmt.Errorf("failed to check table %s: %w", tableName, err)
	}
	return n > 0, nil
}

// Tables lists the user tables, sorted by name
func (m *DBManager) Tables() ([]string, error) {
	rows, err := m.Query(`SELECT name FROM sqlite_master WHERE type='table' AND name NOT LIKE 'sqlite_%' ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan table name: %w", err)
		}
		tables = append(tables, name)
	}
	return tables, rows.Err()
}

// TextColumns returns the columns of table whose declared type has text affinity.
// Columns without a declared type are included as well.
func (m *DBManager) TextColumns(table string) ([]string, error) {
	rows, err := m.Query(fmt.Sprintf("PRAGMA table_info(%s)", quoteIdent(table)))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var columns []string
	for rows.Next() {
		var (
			cid       int
			name      string
			declType  sql.NullString
			notNull   int
			dfltValue sql.NullString
			pk        int
		)
		if err := rows.Scan(&cid, &name, &declType, &notNull, &dfltValue, &pk); err != nil {
			return nil, fmt.Errorf("failed to scan column info of %s: %w", table, err)
		}
		if hasTextAffinity(declType.String) {
			columns = append(columns, name)
		}
	}
	return columns, rows.Err()
}

// BackupDatabase copies the database file next to itself with a timestamped name
// and returns the backup path. It must not run while a transaction is open.
func (m *DBManager) BackupDatabase() (string, error) {
	if !common.FileExists(m.dbPath) {
		return "", common.NewIOError("backup database", m.dbPath, os.ErrNotExist)
	}

	stem := strings.TrimSuffix(filepath.Base(m.dbPath), filepath.Ext(m.dbPath))
	backupFileName := fmt.Sprintf("%s_backup_%s.db", stem, time.Now().Format(common.BackupTimeFormat))
	backupPath := filepath.Join(filepath.Dir(m.dbPath), backupFileName)

	if err := common.CopyFile(m.dbPath, backupPath); err != nil {
		return "", common.NewIOError("backup database", backupPath, err)
	}

	m.logger.Info("Database backup created: %s", backupPath)
	return backupPath, nil
}

// Finalize rolls back any open transaction and closes the connection.
// It is safe to call more than once.
func (m *DBManager) Finalize() error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if m.finalized {
		return nil
	}
	m.finalized = true

	if !m.isConnected || m.db == nil {
		return nil
	}

	if m.activeTransaction != nil {
		m.logger.Warning("Rolling back active transaction during finalization")
		m.activeTransaction.Rollback()
		m.activeTransaction = nil
	}

	if _, err := m.db.Exec("PRAGMA optimize"); err != nil {
		m.logger.Warning("Failed to optimize database: %v", err)
	}

	m.isConnected = false
	if err := m.db.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	m.logger.Info("Database connection finalized: %s", m.dbPath)
	return nil
}

// GetDatabasePath returns the configured database path
func (m *DBManager) GetDatabasePath() string {
	return m.dbPath
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func hasTextAffinity(declType string) bool {
	t := strings.ToUpper(declType)
	if t == "" {
		return true
	}
	return strings.Contains(t, "CHAR") || strings.Contains(t, "CLOB") || strings.Contains(t, "TEXT")
}
