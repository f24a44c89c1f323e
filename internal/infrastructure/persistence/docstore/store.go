// Package docstore implements port.DocumentStore on SQLite. Documents are
// JSON bodies keyed by (collection, owner, subcollection, id). Write
// transactions take the database write lock when they begin, so
// read-modify-write cycles on the same document are serialized.
package docstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/garyjia/erp-approvals/internal/application/port"
)

type contextKey string

const txnKey contextKey = "docstore.txn"

// Store is the SQLite document store
type Store struct {
	db          *sql.DB
	logger      *zap.Logger
	maxAttempts int
	backoff     time.Duration
	now         func() time.Time
}

// Option configures the store
type Option func(*Store)

// WithMaxAttempts sets how many times a conflicting transaction is run
func WithMaxAttempts(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.maxAttempts = n
		}
	}
}

// WithBackoff sets the base delay between conflicting attempts
func WithBackoff(d time.Duration) Option {
	return func(s *Store) {
		s.backoff = d
	}
}

// WithClock overrides the commit clock
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// New creates a document store over an open database. The database must be
// opened with _txlock=immediate for write serialization.
func New(db *sql.DB, logger *zap.Logger, opts ...Option) *Store {
	s := &Store{
		db:          db,
		logger:      logger,
		maxAttempts: 3,
		backoff:     20 * time.Millisecond,
		now:         func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RunTransaction implements port.DocumentStore. A transaction already carried
// by ctx is reused.
func (s *Store) RunTransaction(ctx context.Context, fn port.TxnFunc) error {
	if t := txnFrom(ctx); t != nil {
		return fn(ctx, t)
	}

	var lastErr error
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		err := s.runOnce(ctx, fn)
		if err == nil {
			return nil
		}
		if !isConflict(err) {
			return err
		}

		lastErr = err
		s.logger.Warn("Document transaction conflict",
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", s.maxAttempts),
			zap.Error(err))

		if attempt < s.maxAttempts {
			select {
			case <-ctx.Done():
				return fmt.Errorf("%w: %v", port.ErrTransientStore, ctx.Err())
			case <-time.After(time.Duration(attempt) * s.backoff):
			}
		}
	}

	return fmt.Errorf("%w: gave up after %d attempts: %v", port.ErrTransientStore, s.maxAttempts, lastErr)
}

func (s *Store) runOnce(ctx context.Context, fn port.TxnFunc) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		s.logger.Error("Failed to begin transaction", zap.Error(err))
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	t := &txn{ctx: ctx, tx: tx, now: s.now()}
	txCtx := context.WithValue(ctx, txnKey, t)

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			s.logger.Error("Transaction panicked, rolled back", zap.Any("panic", p))
			panic(p)
		}
	}()

	if err := fn(txCtx, t); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			s.logger.Error("Failed to rollback transaction", zap.Error(rbErr))
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		s.logger.Error("Failed to commit transaction", zap.Error(err))
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Get implements port.DocumentStore
func (s *Store) Get(ctx context.Context, p port.Path) (*port.Snapshot, error) {
	if t := txnFrom(ctx); t != nil {
		return t.Get(p)
	}
	return getDocument(ctx, s.db, p)
}

func txnFrom(ctx context.Context) *txn {
	if t, ok := ctx.Value(txnKey).(*txn); ok {
		return t
	}
	return nil
}

// isConflict reports SQLite lock contention, which is safe to retry
func isConflict(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code == sqlite3.ErrBusy || sqliteErr.Code == sqlite3.ErrLocked
	}
	return false
}

// executor covers both *sql.DB and *sql.Tx
type executor interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

const selectColumns = `collection, owner, subcollection, doc_id, body, version, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSnapshot(row rowScanner) (*port.Snapshot, error) {
	var (
		snap port.Snapshot
		body string
	)
	if err := row.Scan(
		&snap.Path.Collection,
		&snap.Path.Owner,
		&snap.Path.Sub,
		&snap.Path.ID,
		&body,
		&snap.Version,
		&snap.CreateTime,
		&snap.UpdateTime,
	); err != nil {
		return nil, err
	}
	snap.Data = []byte(body)
	return &snap, nil
}

func getDocument(ctx context.Context, exec executor, p port.Path) (*port.Snapshot, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	row := exec.QueryRowContext(ctx,
		`SELECT `+selectColumns+` FROM documents
		WHERE collection = ? AND owner = ? AND subcollection = ? AND doc_id = ?`,
		p.Collection, p.Owner, p.Sub, p.ID,
	)
	snap, err := scanSnapshot(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", port.ErrDocumentNotFound, p)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", p, err)
	}
	return snap, nil
}

// Verify interface compliance
var _ port.DocumentStore = (*Store)(nil)
