package store

import (
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"net/url"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// Store versions, kept in PRAGMA user_version:
//
//	0  tables only
//	1  sessions indexed by participant
const currentSchemaVersion = 1

// ErrNewerSchema is returned when the database was migrated by a newer
// cogtask than this one.
var ErrNewerSchema = errors.New("database schema is newer than this build")

// ErrNotSessionStore is returned when the file holds a trial_results table
// that cannot store export rows.
var ErrNotSessionStore = errors.New("not a cogtask session store")

// rowColumns are the trial_results columns WriteRows fills, in bind order.
var rowColumns = []string{
	"row_id", "session_id", "idx", "block_type", "block_csv", "correct",
	"is_correct", "response", "flanker_type", "flanker_correct_direction",
	"stroop_text", "stroop_color", "response_time_ns",
	"participant_id", "participant_type",
}

// Store keeps sessions and their trial rows in one SQLite file.
type Store struct {
	db *sql.DB
}

// Open opens the session store at path, creating it if needed.
//
// Connections run in WAL mode with foreign keys on, so trial rows can only
// reference stored sessions. Opening an existing store upgrades it; a
// store written by a newer build, or a file whose trial_results table
// lacks export columns, is refused.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", dsn(path))
	if err != nil {
		return nil, fmt.Errorf("open session store: %w", err)
	}
	// One connection: rows of a block are written in a single transaction
	// and SQLite allows one writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := prepare(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("open session store %s: %w", path, err)
	}
	return &Store{db: db}, nil
}

// Close releases the database.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// dsn applies the connection pragmas through go-sqlite3's DSN parameters
// so every pooled connection gets them.
func dsn(path string) string {
	q := url.Values{}
	q.Set("_journal_mode", "WAL")
	q.Set("_synchronous", "NORMAL")
	q.Set("_busy_timeout", "5000")
	q.Set("_foreign_keys", "on")
	return path + "?" + q.Encode()
}

func prepare(db *sql.DB) error {
	if err := db.Ping(); err != nil {
		return err
	}

	version, err := userVersion(db)
	if err != nil {
		return err
	}
	if version > currentSchemaVersion {
		return fmt.Errorf("%w: version %d, supported %d", ErrNewerSchema, version, currentSchemaVersion)
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("create tables: %w", err)
	}
	if err := checkRowColumns(db); err != nil {
		return err
	}
	return migrate(db, version)
}

func userVersion(db *sql.DB) (int, error) {
	var v int
	if err := db.QueryRow("PRAGMA user_version").Scan(&v); err != nil {
		return 0, fmt.Errorf("read user_version: %w", err)
	}
	return v, nil
}

// checkRowColumns makes sure an existing trial_results table can hold
// every export column. CREATE TABLE IF NOT EXISTS leaves a foreign table
// of the same name untouched.
func checkRowColumns(db *sql.DB) error {
	rows, err := db.Query("SELECT name FROM pragma_table_info('trial_results')")
	if err != nil {
		return fmt.Errorf("inspect trial_results: %w", err)
	}
	defer rows.Close()

	have := make(map[string]bool, len(rowColumns))
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return fmt.Errorf("inspect trial_results: %w", err)
		}
		have[name] = true
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("inspect trial_results: %w", err)
	}

	var missing []string
	for _, c := range rowColumns {
		if !have[c] {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: trial_results lacks %s", ErrNotSessionStore, strings.Join(missing, ", "))
	}
	return nil
}

// migrate brings a store at version from up to currentSchemaVersion.
func migrate(db *sql.DB, from int) error {
	steps := []func(*sql.DB) error{
		1: indexParticipants,
	}
	for v := from + 1; v <= currentSchemaVersion; v++ {
		if err := steps[v](db); err != nil {
			return fmt.Errorf("migrate to v%d: %w", v, err)
		}
	}
	if from == currentSchemaVersion {
		return nil
	}
	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}
	return nil
}

// indexParticipants lets `sessions --participant` avoid a table scan.
func indexParticipants(db *sql.DB) error {
	_, err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_sessions_participant ON sessions(participant_id, id)`)
	return err
}

// verifyPragma reports whether pragma name currently reads as want.
func (s *Store) verifyPragma(name, want string) error {
	var got string
	if err := s.db.QueryRow("PRAGMA " + name).Scan(&got); err != nil {
		return fmt.Errorf("read %s: %w", name, err)
	}
	if got != want {
		return fmt.Errorf("%s = %q, want %q", name, got, want)
	}
	return nil
}
