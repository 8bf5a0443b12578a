// Package database manages read-only access to the snapshotted source
// databases. The live files belong to the OS and the browsers; we only
// ever open private copies, and only ever for reading.
package database

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	dberrors "loopwatch/internal/infrastructure/errors"
	"loopwatch/internal/infrastructure/logging"
)

// Config describes how to open one source database.
type Config struct {
	Path string

	// Immutable marks the file as never changing while open, which lets
	// SQLite skip locking entirely. Safe here because we open snapshots.
	Immutable bool
}

// ConnectionString builds the go-sqlite3 DSN for a read-only open.
func (c Config) ConnectionString() string {
	dsn := fmt.Sprintf("file:%s?mode=ro", c.Path)
	if c.Immutable {
		dsn += "&immutable=1"
	}
	return dsn
}

// Service holds a read-only connection to one snapshot database.
//
// Lifecycle:
//  1. Create with NewService()
//  2. Connect() to open and verify the snapshot
//  3. Hand DB() to a repository
//  4. Close() when the run finishes
type Service struct {
	db     *sqlx.DB
	config Config
	logger logging.Logger
}

// NewService creates an unconnected service.
func NewService(logger logging.Logger) *Service {
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}
	return &Service{logger: logger}
}

// Connect opens the snapshot read-only and verifies it answers queries.
func (s *Service) Connect(ctx context.Context, config Config) error {
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			s.logger.Error("Failed to close existing connection", "error", err)
		}
		s.db = nil
	}
	s.config = config

	db, err := sqlx.Open("sqlite3", config.ConnectionString())
	if err != nil {
		return dberrors.HandleConnectionError("Connect", fmt.Sprintf("failed to open %s: %v", config.Path, err))
	}

	// A single connection is plenty for a sequential read-only pass and
	// sidesteps SQLite locking altogether.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return dberrors.WrapWithContext("Connect", err, map[string]string{
			"path": config.Path,
		})
	}

	s.db = db
	s.logger.Info("Opened snapshot database", "path", config.Path, "immutable", config.Immutable)
	return nil
}

// Close releases the connection. Safe to call on an unconnected service.
func (s *Service) Close() error {
	if s.db == nil {
		return nil
	}
	if err := s.db.Close(); err != nil {
		return dberrors.HandleConnectionError("Close", fmt.Sprintf("failed to close database: %v", err))
	}
	s.db = nil
	s.logger.Debug("Closed snapshot database", "path", s.config.Path)
	return nil
}

// Health verifies the connection still answers a trivial query.
func (s *Service) Health(ctx context.Context) error {
	if s.db == nil {
		return dberrors.HandleConnectionError("Health", "database not connected")
	}
	var result int
	if err := s.db.QueryRowContext(ctx, "SELECT 1").Scan(&result); err != nil {
		return dberrors.Wrap("Health", err)
	}
	if result != 1 {
		return dberrors.HandleValidationError("Health", "query_result", fmt.Sprintf("%d", result), "expected result 1")
	}
	return nil
}

// DB returns the underlying connection for repository use.
func (s *Service) DB() *sqlx.DB {
	return s.db
}

// HasTable reports whether the snapshot contains the named table. Used to
// distinguish a wrong-file snapshot from a missing one.
func (s *Service) HasTable(ctx context.Context, name string) (bool, error) {
	if s.db == nil {
		return false, dberrors.HandleConnectionError("HasTable", "database not connected")
	}
	var count int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?", name).Scan(&count)
	if err != nil {
		return false, dberrors.Wrap("HasTable", err)
	}
	return count > 0, nil
}
