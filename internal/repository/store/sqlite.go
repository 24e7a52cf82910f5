package store

import (
	"database/sql"
	"embed"
	"errors"

	"github.com/jaennil/guide_helper/backend/viewer/pkg/logger"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrations embed.FS

type SQLiteStore struct {
	db     *sql.DB
	logger logger.Logger
}

func NewSQLiteStore(path string, l logger.Logger) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	err = db.Ping()
	if err != nil {
		return nil, err
	}

	s := &SQLiteStore{
		db:     db,
		logger: l,
	}

	err = s.runMigrations()
	if err != nil {
		return nil, err
	}

	l.Info("sqlite settings store initialized", "path", path)

	return s, nil
}

func (s *SQLiteStore) runMigrations() error {
	goose.SetBaseFS(migrations)

	err := goose.SetDialect("sqlite3")
	if err != nil {
		return err
	}

	err = goose.Up(s.db, "migrations")
	if err != nil {
		return err
	}

	return nil
}

var _ Store = (*SQLiteStore)(nil)

func (s *SQLiteStore) Get(k string) (string, bool, error) {
	query := `SELECT value
	FROM settings
	WHERE key = ?`

	var value string
	err := s.db.QueryRow(query, k).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		s.logger.Error("sqlite settings get failed", "key", k, "error", err)
		return "", false, err
	}

	return value, true, nil
}

func (s *SQLiteStore) Set(k, v string) error {
	query := `INSERT INTO settings (key, value)
	VALUES (?, ?)
	ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP`

	_, err := s.db.Exec(query, k, v)
	if err != nil {
		s.logger.Error("sqlite settings set failed", "key", k, "error", err)
		return err
	}

	return nil
}

func (s *SQLiteStore) Delete(k string) error {
	_, err := s.db.Exec(`DELETE FROM settings WHERE key = ?`, k)
	if err != nil {
		s.logger.Error("sqlite settings delete failed", "key", k, "error", err)
		return err
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
