package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/capshare/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/capshare/internal/core/domain"
	"github.com/custodia-labs/capshare/internal/core/ports/driven"
)

// dbFile is the database file name inside the data directory.
const dbFile = "capshare.db"

// Store is a unified SQLite-based storage that provides access to
// all store interfaces through wrapper types.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore creates a new SQLite store in the specified data directory.
// If dataDir is empty, defaults to ~/.capshare/data.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".capshare", "data")
	}

	// Ensure directory exists
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, dbFile)

	// The file holds refresh tokens.
	f, err := os.OpenFile(dbPath, os.O_RDONLY|os.O_CREATE, 0600)
	if err != nil {
		return nil, fmt.Errorf("creating database file: %w", err)
	}
	f.Close()

	// Open database with WAL mode for better concurrency
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{
		db:   db,
		path: dbPath,
	}

	// Run migrations
	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// AccountStore returns an AccountStore interface backed by this store.
func (s *Store) AccountStore() driven.AccountStore {
	return &accountStore{store: s}
}

// TargetStore returns a TargetStore interface backed by this store.
func (s *Store) TargetStore() driven.TargetStore {
	return &targetStore{store: s}
}

// ExportHistoryStore returns an ExportHistoryStore interface backed by this store.
func (s *Store) ExportHistoryStore() driven.ExportHistoryStore {
	return &exportHistoryStore{store: s}
}

// migrate runs all pending migrations. Each migration records its own
// version in schema_migrations.
func (s *Store) migrate(fsys embed.FS) error {
	// Ensure schema_migrations table exists
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	// Get current version
	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	// Find all up migrations
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// Extract version number (e.g., "001_initial.up.sql" -> 1)
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue // Skip files that don't match pattern
		}

		if version <= currentVersion {
			continue // Already applied
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}

		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
	}

	return nil
}

// =============================================================================
// AccountStore Implementation
// =============================================================================

type accountStore struct {
	store *Store
}

var _ driven.AccountStore = (*accountStore)(nil)

const accountColumns = `id, provider, display_name, email, access_token, expiry,
	refresh_token, scopes, created_at, updated_at`

// Save stores or updates an account.
func (s *accountStore) Save(ctx context.Context, account domain.Account) error {
	if account.ID == "" {
		return domain.ErrInvalidInput
	}

	scopesJSON, err := json.Marshal(account.Scopes)
	if err != nil {
		return fmt.Errorf("marshalling scopes: %w", err)
	}

	now := time.Now().UTC()
	if account.CreatedAt.IsZero() {
		account.CreatedAt = now
	}
	if account.UpdatedAt.IsZero() {
		account.UpdatedAt = now
	}

	_, err = s.store.db.ExecContext(ctx, `
		INSERT INTO accounts (`+accountColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			provider = excluded.provider,
			display_name = excluded.display_name,
			email = excluded.email,
			access_token = excluded.access_token,
			expiry = excluded.expiry,
			refresh_token = excluded.refresh_token,
			scopes = excluded.scopes,
			updated_at = excluded.updated_at
	`, account.ID, account.Provider, account.DisplayName, account.Email,
		account.AccessToken, nullTime(account.Expiry), account.RefreshToken,
		string(scopesJSON), account.CreatedAt.UTC(), account.UpdatedAt.UTC())

	if err != nil {
		return fmt.Errorf("saving account: %w", err)
	}
	return nil
}

// Get retrieves an account by ID.
func (s *accountStore) Get(ctx context.Context, id string) (*domain.Account, error) {
	row := s.store.db.QueryRowContext(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = ?`, id)
	return scanAccount(row)
}

// List returns all accounts ordered by creation time.
func (s *accountStore) List(ctx context.Context) ([]domain.Account, error) {
	rows, err := s.store.db.QueryContext(ctx, `SELECT `+accountColumns+` FROM accounts ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("querying accounts: %w", err)
	}
	defer rows.Close()

	var accounts []domain.Account //nolint:prealloc // size unknown from query
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, *account)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating accounts: %w", err)
	}
	return accounts, nil
}

// Delete removes an account. Its targets are removed by the foreign key.
func (s *accountStore) Delete(ctx context.Context, id string) error {
	_, err := s.store.db.ExecContext(ctx, "DELETE FROM accounts WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting account: %w", err)
	}
	return nil
}

// =============================================================================
// TargetStore Implementation
// =============================================================================

type targetStore struct {
	store *Store
}

var _ driven.TargetStore = (*targetStore)(nil)

const targetColumns = `id, name, provider, account_id, folder, share, copy_location`

// Save stores or updates a target. The account must exist.
func (s *targetStore) Save(ctx context.Context, target domain.Target) error {
	if target.ID == "" {
		return domain.ErrInvalidInput
	}

	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO targets (`+targetColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			provider = excluded.provider,
			account_id = excluded.account_id,
			folder = excluded.folder,
			share = excluded.share,
			copy_location = excluded.copy_location
	`, target.ID, target.Name, target.Provider, target.AccountID, target.Folder,
		target.Share, target.CopyLocation)

	if err != nil {
		return fmt.Errorf("saving target: %w", err)
	}
	return nil
}

// Get retrieves a target by ID.
func (s *targetStore) Get(ctx context.Context, id string) (*domain.Target, error) {
	row := s.store.db.QueryRowContext(ctx, `SELECT `+targetColumns+` FROM targets WHERE id = ?`, id)
	return scanTarget(row)
}

// List returns all targets ordered by name.
func (s *targetStore) List(ctx context.Context) ([]domain.Target, error) {
	return s.query(ctx, `SELECT `+targetColumns+` FROM targets ORDER BY name, id`)
}

// ListByAccount returns the targets bound to an account.
func (s *targetStore) ListByAccount(ctx context.Context, accountID string) ([]domain.Target, error) {
	return s.query(ctx, `SELECT `+targetColumns+` FROM targets WHERE account_id = ? ORDER BY name, id`, accountID)
}

func (s *targetStore) query(ctx context.Context, query string, args ...any) ([]domain.Target, error) {
	rows, err := s.store.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying targets: %w", err)
	}
	defer rows.Close()

	var targets []domain.Target //nolint:prealloc // size unknown from query
	for rows.Next() {
		target, err := scanTarget(rows)
		if err != nil {
			return nil, err
		}
		targets = append(targets, *target)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating targets: %w", err)
	}
	return targets, nil
}

// Delete removes a target by ID.
func (s *targetStore) Delete(ctx context.Context, id string) error {
	_, err := s.store.db.ExecContext(ctx, "DELETE FROM targets WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting target: %w", err)
	}
	return nil
}

// =============================================================================
// ExportHistoryStore Implementation
// =============================================================================

type exportHistoryStore struct {
	store *Store
}

var _ driven.ExportHistoryStore = (*exportHistoryStore)(nil)

const recordColumns = `id, capture_id, exporter, target_id, location, media_id,
	copied_to_clipboard, created_at`

// Append stores a new record. Records are never updated.
func (s *exportHistoryStore) Append(ctx context.Context, record domain.ExportRecord) error {
	if record.ID == "" {
		return domain.ErrInvalidInput
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now()
	}

	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO export_records (`+recordColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, record.ID, record.CaptureID, record.Exporter, record.TargetID, record.Location,
		record.MediaID, record.CopiedToClipboard, record.CreatedAt.UTC())

	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return fmt.Errorf("%w: export record %s", domain.ErrAlreadyExists, record.ID)
		}
		return fmt.Errorf("appending export record: %w", err)
	}
	return nil
}

// ListByCapture returns the records of one capture, newest first.
func (s *exportHistoryStore) ListByCapture(ctx context.Context, captureID string) ([]domain.ExportRecord, error) {
	return s.query(ctx, `SELECT `+recordColumns+` FROM export_records
		WHERE capture_id = ? ORDER BY created_at DESC, rowid DESC`, captureID)
}

// List returns up to limit records, newest first. A limit <= 0 returns all.
func (s *exportHistoryStore) List(ctx context.Context, limit int) ([]domain.ExportRecord, error) {
	if limit <= 0 {
		limit = -1 // SQLite: no limit
	}
	return s.query(ctx, `SELECT `+recordColumns+` FROM export_records
		ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit)
}

func (s *exportHistoryStore) query(ctx context.Context, query string, args ...any) ([]domain.ExportRecord, error) {
	rows, err := s.store.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying export records: %w", err)
	}
	defer rows.Close()

	var records []domain.ExportRecord //nolint:prealloc // size unknown from query
	for rows.Next() {
		var r domain.ExportRecord
		if err := rows.Scan(&r.ID, &r.CaptureID, &r.Exporter, &r.TargetID, &r.Location,
			&r.MediaID, &r.CopiedToClipboard, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning export record: %w", err)
		}
		records = append(records, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating export records: %w", err)
	}
	return records, nil
}

// =============================================================================
// Helpers
// =============================================================================

// scanner is implemented by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanAccount(row scanner) (*domain.Account, error) {
	var account domain.Account
	var expiry sql.NullTime
	var scopesJSON string

	if err := row.Scan(&account.ID, &account.Provider, &account.DisplayName, &account.Email,
		&account.AccessToken, &expiry, &account.RefreshToken, &scopesJSON,
		&account.CreatedAt, &account.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning account: %w", err)
	}

	if expiry.Valid {
		account.Expiry = expiry.Time
	}
	if err := json.Unmarshal([]byte(scopesJSON), &account.Scopes); err != nil {
		return nil, fmt.Errorf("unmarshalling scopes: %w", err)
	}
	return &account, nil
}

func scanTarget(row scanner) (*domain.Target, error) {
	var target domain.Target
	if err := row.Scan(&target.ID, &target.Name, &target.Provider, &target.AccountID,
		&target.Folder, &target.Share, &target.CopyLocation); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning target: %w", err)
	}
	return &target, nil
}

// nullTime stores the zero time as NULL.
func nullTime(t time.Time) sql.NullTime {
	if t.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}
