package storage

import (
	"database/sql"
	"errors"
	"time"

	"executorjenkins/internal/logger"
	"executorjenkins/internal/storage/models"

	_ "github.com/mattn/go-sqlite3"
)

const timestampFormat = "2006-01-02 15:04:05.000000"

// ErrNotInitialized is returned when the database has not been opened
var ErrNotInitialized = errors.New("database not initialized")

var db *sql.DB

// Init initializes the SQLite database
func Init(dbPath string) error {
	var err error

	db, err = sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_synchronous=NORMAL&_foreign_keys=ON")
	if err != nil {
		return err
	}

	// SQLite doesn't support multiple writers, but we can optimize for concurrent reads
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err = db.Ping(); err != nil {
		return err
	}

	if err = createTables(); err != nil {
		return err
	}

	logger.Info("Database initialized successfully", "path", dbPath)
	return nil
}

// createTables creates the audit table and its build index
func createTables() error {
	_, err := db.Exec(`
	CREATE TABLE IF NOT EXISTS audit_logs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		timestamp DATETIME NOT NULL,
		key_id TEXT NOT NULL,
		method TEXT NOT NULL,
		path TEXT NOT NULL,
		status INTEGER NOT NULL,
		operation TEXT NOT NULL,
		build_id INTEGER NOT NULL,
		job_name TEXT,
		result TEXT,
		error TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_audit_logs_build_id ON audit_logs (build_id);
	`)

	return err
}

// Ping checks that the database is reachable
func Ping() error {
	if db == nil {
		return ErrNotInitialized
	}
	return db.Ping()
}

// InsertAuditLog inserts a new audit log entry
func InsertAuditLog(log models.AuditLog) error {
	if db == nil {
		return ErrNotInitialized
	}

	_, err := db.Exec(
		`INSERT INTO audit_logs (timestamp, key_id, method, path, status, operation, build_id, job_name, result, error) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		log.Timestamp.UTC().Format(timestampFormat),
		log.KeyID,
		log.Method,
		log.Path,
		log.Status,
		log.Operation,
		log.BuildID,
		log.JobName,
		log.Result,
		log.Error,
	)

	if err != nil {
		logger.Error("Failed to insert audit log", "error", err)
		return err
	}

	return nil
}

// GetAuditLogs retrieves audit logs with pagination, newest first
func GetAuditLogs(limit, offset int) ([]models.AuditLog, error) {
	if db == nil {
		return nil, ErrNotInitialized
	}

	rows, err := db.Query(
		`SELECT id, timestamp, key_id, method, path, status, operation, build_id, job_name, result, error FROM audit_logs ORDER BY id DESC LIMIT ? OFFSET ?`,
		limit,
		offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanAuditLogs(rows)
}

// GetAuditLogsForBuild retrieves every audit log of one build, newest first
func GetAuditLogsForBuild(buildID int64) ([]models.AuditLog, error) {
	if db == nil {
		return nil, ErrNotInitialized
	}

	rows, err := db.Query(
		`SELECT id, timestamp, key_id, method, path, status, operation, build_id, job_name, result, error FROM audit_logs WHERE build_id = ? ORDER BY id DESC`,
		buildID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanAuditLogs(rows)
}

func scanAuditLogs(rows *sql.Rows) ([]models.AuditLog, error) {
	logs := []models.AuditLog{}
	for rows.Next() {
		var log models.AuditLog
		var timestampStr string
		var jobName, result, errMsg sql.NullString

		if err := rows.Scan(
			&log.ID,
			&timestampStr,
			&log.KeyID,
			&log.Method,
			&log.Path,
			&log.Status,
			&log.Operation,
			&log.BuildID,
			&jobName,
			&result,
			&errMsg,
		); err != nil {
			return nil, err
		}
		log.JobName = jobName.String
		log.Result = result.String
		log.Error = errMsg.String
		log.Timestamp = parseTimestamp(timestampStr)

		logs = append(logs, log)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return logs, nil
}

// parseTimestamp accepts the stored format, with or without microseconds
func parseTimestamp(s string) time.Time {
	for _, layout := range []string{timestampFormat, "2006-01-02 15:04:05", time.RFC3339Nano} {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts
		}
	}
	return time.Time{}
}

// Close closes the database connection
func Close() error {
	if db != nil {
		err := db.Close()
		db = nil
		return err
	}
	return nil
}
