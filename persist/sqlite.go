package persist

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

// stateRow is the bun model for a persisted cache entry. Timestamps are
// stored as Unix milliseconds; zero expires_at means no TTL.
type stateRow struct {
	bun.BaseModel `bun:"table:client_state,alias:cs"`

	Namespace string `bun:"namespace,pk"`
	Key       string `bun:"key,pk"`
	Value     []byte `bun:"value,notnull"`
	SavedAt   int64  `bun:"saved_at,notnull"`
	ExpiresAt int64  `bun:"expires_at,notnull,default:0"`
}

// SQLiteStore persists entries to a SQLite database through bun. One
// database file can host several namespaces (cache mirror, session markers,
// badge counts) without the stores seeing each other's keys.
type SQLiteStore struct {
	db        *bun.DB
	namespace string
	ownsDB    bool
	now       func() time.Time
}

// OpenSQLite opens (creating if needed) the database at path and returns a
// store scoped to namespace. Close releases the underlying handle.
func OpenSQLite(path, namespace string) (*SQLiteStore, error) {
	sqldb, err := sql.Open(sqliteshim.ShimName, path)
	if err != nil {
		return nil, fmt.Errorf("persist: open sqlite %q: %w", path, err)
	}

	db := bun.NewDB(sqldb, sqlitedialect.New())

	s := &SQLiteStore{db: db, namespace: namespace, ownsDB: true, now: time.Now}
	if err := s.migrate(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// NewSQLiteStore scopes an existing bun database to namespace. The caller
// keeps ownership of the database handle.
func NewSQLiteStore(db *bun.DB, namespace string) (*SQLiteStore, error) {
	s := &SQLiteStore{db: db, namespace: namespace, now: time.Now}
	if err := s.migrate(context.Background()); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) migrate(ctx context.Context) error {
	if _, err := s.db.NewCreateTable().
		Model((*stateRow)(nil)).
		IfNotExists().
		Exec(ctx); err != nil {
		return fmt.Errorf("persist: create table: %w", err)
	}
	return nil
}

// Save implements Store with a last-write-wins upsert.
func (s *SQLiteStore) Save(ctx context.Context, e Entry) error {
	row := &stateRow{
		Namespace: s.namespace,
		Key:       e.Key,
		Value:     e.Value,
		SavedAt:   e.SavedAt.UnixMilli(),
	}
	if !e.ExpiresAt.IsZero() {
		row.ExpiresAt = e.ExpiresAt.UnixMilli()
	}

	if _, err := s.db.NewInsert().
		Model(row).
		On("CONFLICT (namespace, key) DO UPDATE").
		Set("value = EXCLUDED.value").
		Set("saved_at = EXCLUDED.saved_at").
		Set("expires_at = EXCLUDED.expires_at").
		Exec(ctx); err != nil {
		return fmt.Errorf("persist: save %q: %w", e.Key, err)
	}
	return nil
}

// Delete implements Store.
func (s *SQLiteStore) Delete(ctx context.Context, key string) error {
	if _, err := s.db.NewDelete().
		Model((*stateRow)(nil)).
		Where("namespace = ?", s.namespace).
		Where("key = ?", key).
		Exec(ctx); err != nil {
		return fmt.Errorf("persist: delete %q: %w", key, err)
	}
	return nil
}

// Load implements Store.
func (s *SQLiteStore) Load(ctx context.Context, key string) (Entry, bool, error) {
	var row stateRow
	err := s.db.NewSelect().
		Model(&row).
		Where("namespace = ?", s.namespace).
		Where("key = ?", key).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Entry{}, false, nil
		}
		return Entry{}, false, fmt.Errorf("persist: load %q: %w", key, err)
	}

	e := Entry{
		Key:     row.Key,
		Value:   row.Value,
		SavedAt: time.UnixMilli(row.SavedAt),
	}
	if row.ExpiresAt > 0 {
		e.ExpiresAt = time.UnixMilli(row.ExpiresAt)
	}
	if e.Expired(s.now()) {
		if err := s.Delete(ctx, key); err != nil {
			return Entry{}, false, err
		}
		return Entry{}, false, nil
	}
	return e, true, nil
}

// LoadAll implements Store. Expired rows are deleted before the remainder
// is returned, so callers never seed memory with stale state.
func (s *SQLiteStore) LoadAll(ctx context.Context) ([]Entry, error) {
	nowMilli := s.now().UnixMilli()

	if _, err := s.db.NewDelete().
		Model((*stateRow)(nil)).
		Where("namespace = ?", s.namespace).
		Where("expires_at > 0").
		Where("expires_at < ?", nowMilli).
		Exec(ctx); err != nil {
		return nil, fmt.Errorf("persist: drop expired: %w", err)
	}

	var rows []stateRow
	if err := s.db.NewSelect().
		Model(&rows).
		Where("namespace = ?", s.namespace).
		Scan(ctx); err != nil {
		return nil, fmt.Errorf("persist: load: %w", err)
	}

	entries := make([]Entry, 0, len(rows))
	for _, row := range rows {
		e := Entry{
			Key:     row.Key,
			Value:   row.Value,
			SavedAt: time.UnixMilli(row.SavedAt),
		}
		if row.ExpiresAt > 0 {
			e.ExpiresAt = time.UnixMilli(row.ExpiresAt)
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// Wipe implements Store.
func (s *SQLiteStore) Wipe(ctx context.Context) error {
	if _, err := s.db.NewDelete().
		Model((*stateRow)(nil)).
		Where("namespace = ?", s.namespace).
		Exec(ctx); err != nil {
		return fmt.Errorf("persist: wipe: %w", err)
	}
	return nil
}

// Close releases the database handle when this store opened it.
func (s *SQLiteStore) Close() error {
	if !s.ownsDB {
		return nil
	}
	return s.db.Close()
}
