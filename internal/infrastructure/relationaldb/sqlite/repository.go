// Package sqlite provides a SQLite implementation of the RevisionStore interface.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Dest0re/backend-school2022/internal/domain/entities"
	"github.com/Dest0re/backend-school2022/internal/domain/ports"
	"github.com/Dest0re/backend-school2022/internal/infrastructure/config"
	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// dbtx is the subset of *sql.DB and *sql.Tx the queries need, so the same
// read methods serve both one-shot and transactional access.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Repository implements ports.RevisionStore using SQLite.
type Repository struct {
	querier
	db   *sql.DB
	path string
}

// NewRepository creates a new SQLite repository.
func NewRepository(cfg config.SQLiteConfig) (*Repository, error) {
	if cfg.Path == "" {
		return nil, errors.New("sqlite path is required")
	}

	// The pragmas ride on the DSN so that every pooled connection gets
	// them. A one-off Exec would configure only the single connection it
	// happens to run on: foreign keys (the delete cascade depends on them),
	// WAL mode, and the busy timeout must hold everywhere.
	dsn := fmt.Sprintf(
		"file:%s?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)",
		cfg.Path,
	)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite database: %w", err)
	}

	return &Repository{
		querier: querier{db: db},
		db:      db,
		path:    cfg.Path,
	}, nil
}

// Close closes the database connection.
func (r *Repository) Close() error {
	return r.db.Close()
}

// Path returns the database file path.
func (r *Repository) Path() string {
	return r.path
}

// EnsureSchema creates the database schema if it doesn't exist.
func (r *Repository) EnsureSchema(ctx context.Context) error {
	schema := `
	-- Permanent unit identities. Deleting one cascades to its revisions,
	-- which in turn drops their parent links.
	CREATE TABLE IF NOT EXISTS units (
		id TEXT PRIMARY KEY
	);

	-- Append-only revision history. Dates are stored in the canonical
	-- millisecond UTC format, so lexicographic comparison is chronological.
	CREATE TABLE IF NOT EXISTS unit_revisions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		unit_id TEXT NOT NULL REFERENCES units(id) ON DELETE CASCADE,
		date TEXT NOT NULL,
		name TEXT NOT NULL,
		type TEXT NOT NULL CHECK (type IN ('OFFER', 'CATEGORY')),
		price INTEGER,
		UNIQUE(unit_id, date)
	);
	CREATE INDEX IF NOT EXISTS idx_unit_revisions_unit_date ON unit_revisions(unit_id, date);
	CREATE INDEX IF NOT EXISTS idx_unit_revisions_type_date ON unit_revisions(type, date);

	-- Edge from one child revision to a parent identity. A unit's parent is
	-- whatever its own governing revision links to, so no dates are needed
	-- here. Removing the parent unit drops the historical edges pointing
	-- at it without touching the children themselves.
	CREATE TABLE IF NOT EXISTS parent_links (
		child_revision_id INTEGER PRIMARY KEY REFERENCES unit_revisions(id) ON DELETE CASCADE,
		parent_id TEXT NOT NULL REFERENCES units(id) ON DELETE CASCADE
	);
	CREATE INDEX IF NOT EXISTS idx_parent_links_parent ON parent_links(parent_id);
	`

	_, err := r.db.ExecContext(ctx, schema)
	if err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	return nil
}

// Begin opens a read transaction at the store's default isolation.
func (r *Repository) Begin(ctx context.Context) (ports.StoreTx, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	return &Tx{querier: querier{db: tx}, tx: tx}, nil
}

// BeginSerializable opens a serializable transaction for the mutation path.
// SQLite transactions are serializable; contention surfaces as a busy error
// after the configured timeout and is not retried here.
func (r *Repository) BeginSerializable(ctx context.Context) (ports.StoreTx, error) {
	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, fmt.Errorf("beginning serializable transaction: %w", err)
	}
	return &Tx{querier: querier{db: tx}, tx: tx}, nil
}

// Tx implements ports.StoreTx over one *sql.Tx.
type Tx struct {
	querier
	tx *sql.Tx
}

// Commit commits the transaction.
func (t *Tx) Commit() error {
	if err := t.tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// Rollback rolls the transaction back. Rolling back after a commit is a
// harmless no-op.
func (t *Tx) Rollback() error {
	err := t.tx.Rollback()
	if err != nil && !errors.Is(err, sql.ErrTxDone) {
		return fmt.Errorf("rolling back transaction: %w", err)
	}
	return nil
}

// CreateIdentity registers a unit id; re-registering is a no-op.
func (t *Tx) CreateIdentity(ctx context.Context, unitID string) error {
	query := `INSERT OR IGNORE INTO units (id) VALUES (?)`
	if _, err := t.db.ExecContext(ctx, query, unitID); err != nil {
		return fmt.Errorf("inserting unit id: %w", err)
	}
	return nil
}

// IdentityExists reports whether the unit id is registered.
func (t *Tx) IdentityExists(ctx context.Context, unitID string) (bool, error) {
	query := `SELECT 1 FROM units WHERE id = ?`
	var one int
	err := t.db.QueryRowContext(ctx, query, unitID).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("checking unit id: %w", err)
	}
	return true, nil
}

// LatestRevision returns the unit's newest revision regardless of window.
func (t *Tx) LatestRevision(ctx context.Context, unitID string) (*entities.Revision, error) {
	return t.FindGoverningRevision(ctx, unitID, entities.Window{})
}

// RevisionExists reports whether the unit has a revision at this exact date.
func (t *Tx) RevisionExists(ctx context.Context, unitID string, date time.Time) (bool, error) {
	query := `SELECT 1 FROM unit_revisions WHERE unit_id = ? AND date = ?`
	var one int
	err := t.db.QueryRowContext(ctx, query, unitID, entities.FormatDate(date)).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("checking revision date: %w", err)
	}
	return true, nil
}

// InsertRevision appends a revision and returns its sequence id.
func (t *Tx) InsertRevision(ctx context.Context, rev entities.Revision) (int64, error) {
	query := `
		INSERT INTO unit_revisions (unit_id, date, name, type, price)
		VALUES (?, ?, ?, ?, ?)
	`
	var price sql.NullInt64
	if rev.Price != nil {
		price = sql.NullInt64{Int64: *rev.Price, Valid: true}
	}

	result, err := t.db.ExecContext(ctx, query,
		rev.UnitID,
		entities.FormatDate(rev.Date),
		rev.Name,
		string(rev.Type),
		price,
	)
	if err != nil {
		return 0, fmt.Errorf("inserting revision: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("reading revision id: %w", err)
	}
	return id, nil
}

// InsertParentLink associates a child revision with a parent unit id.
func (t *Tx) InsertParentLink(ctx context.Context, childRevisionID int64, parentID string) error {
	query := `INSERT INTO parent_links (child_revision_id, parent_id) VALUES (?, ?)`
	if _, err := t.db.ExecContext(ctx, query, childRevisionID, parentID); err != nil {
		return fmt.Errorf("inserting parent link: %w", err)
	}
	return nil
}

// DeleteIdentity removes a unit id; revisions and links cascade.
func (t *Tx) DeleteIdentity(ctx context.Context, unitID string) error {
	query := `DELETE FROM units WHERE id = ?`
	if _, err := t.db.ExecContext(ctx, query, unitID); err != nil {
		return fmt.Errorf("deleting unit id: %w", err)
	}
	return nil
}

// querier holds the read queries shared by Repository and Tx.
type querier struct {
	db dbtx
}

// FindGoverningRevision returns the unit's revision with the greatest date
// inside the window, or nil if there is none.
func (q querier) FindGoverningRevision(ctx context.Context, unitID string, win entities.Window) (*entities.Revision, error) {
	args := []any{unitID}
	query := fmt.Sprintf(`
		SELECT id, unit_id, date, name, type, price
		FROM unit_revisions
		WHERE unit_id = ?%s
		ORDER BY date DESC
		LIMIT 1
	`, windowClause("date", win, &args))

	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying governing revision: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}
	rev, err := scanRevision(rows)
	if err != nil {
		return nil, err
	}
	return rev, rows.Err()
}

// FindParentID returns the parent unit id linked to a revision, or nil.
func (q querier) FindParentID(ctx context.Context, revisionID int64) (*string, error) {
	query := `SELECT parent_id FROM parent_links WHERE child_revision_id = ?`
	var parentID string
	err := q.db.QueryRowContext(ctx, query, revisionID).Scan(&parentID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying parent link: %w", err)
	}
	return &parentID, nil
}

// ListEffectiveChildren returns the units whose own governing revision in
// the window links to parentID. The governing revision is picked per unit
// first; only then is the parent filter applied.
func (q querier) ListEffectiveChildren(ctx context.Context, parentID string, win entities.Window) ([]entities.ChildRef, error) {
	var args []any
	clause := windowClause("date", win, &args)
	args = append(args, parentID)

	query := fmt.Sprintf(`
		WITH governing AS (
			SELECT unit_id, MAX(date) AS max_date
			FROM unit_revisions
			WHERE 1 = 1%s
			GROUP BY unit_id
		)
		SELECT r.unit_id, r.type
		FROM unit_revisions r
		JOIN governing g ON g.unit_id = r.unit_id AND g.max_date = r.date
		JOIN parent_links l ON l.child_revision_id = r.id
		WHERE l.parent_id = ?
		ORDER BY r.unit_id
	`, clause)

	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying effective children: %w", err)
	}
	defer rows.Close()

	children := make([]entities.ChildRef, 0, 8)
	for rows.Next() {
		var child entities.ChildRef
		var unitType string
		if err := rows.Scan(&child.ID, &unitType); err != nil {
			return nil, fmt.Errorf("scanning child: %w", err)
		}
		child.Type = entities.UnitType(unitType)
		children = append(children, child)
	}
	return children, rows.Err()
}

// ListRevisions returns all revisions of the given units inside the window.
func (q querier) ListRevisions(ctx context.Context, unitIDs []string, win entities.Window) ([]entities.Revision, error) {
	if len(unitIDs) == 0 {
		return []entities.Revision{}, nil
	}

	placeholders := make([]string, len(unitIDs))
	args := make([]any, len(unitIDs))
	for i, id := range unitIDs {
		placeholders[i] = "?"
		args[i] = id
	}

	query := fmt.Sprintf(`
		SELECT id, unit_id, date, name, type, price
		FROM unit_revisions
		WHERE unit_id IN (%s)%s
		ORDER BY date ASC
	`, strings.Join(placeholders, ","), windowClause("date", win, &args))

	return q.queryRevisions(ctx, query, args...)
}

// ListLatestOfferRevisions returns, per offer with a revision in the window,
// the one with the maximum date there.
func (q querier) ListLatestOfferRevisions(ctx context.Context, win entities.Window) ([]entities.Revision, error) {
	var args []any
	query := fmt.Sprintf(`
		WITH latest AS (
			SELECT unit_id, MAX(date) AS max_date
			FROM unit_revisions
			WHERE type = 'OFFER'%s
			GROUP BY unit_id
		)
		SELECT r.id, r.unit_id, r.date, r.name, r.type, r.price
		FROM unit_revisions r
		JOIN latest l ON l.unit_id = r.unit_id AND l.max_date = r.date
		ORDER BY r.unit_id
	`, windowClause("date", win, &args))

	return q.queryRevisions(ctx, query, args...)
}

// queryRevisions is a helper to execute revision queries.
func (q querier) queryRevisions(ctx context.Context, query string, args ...any) ([]entities.Revision, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying revisions: %w", err)
	}
	defer rows.Close()

	revisions := make([]entities.Revision, 0, 16)
	for rows.Next() {
		rev, err := scanRevision(rows)
		if err != nil {
			return nil, err
		}
		revisions = append(revisions, *rev)
	}
	return revisions, rows.Err()
}

// scanRevision is a helper to scan a revision row.
func scanRevision(rows *sql.Rows) (*entities.Revision, error) {
	var rev entities.Revision
	var date, unitType string
	var price sql.NullInt64

	if err := rows.Scan(
		&rev.ID,
		&rev.UnitID,
		&date,
		&rev.Name,
		&unitType,
		&price,
	); err != nil {
		return nil, fmt.Errorf("scanning revision: %w", err)
	}

	parsed, err := time.Parse(entities.DateFormat, date)
	if err != nil {
		return nil, fmt.Errorf("parsing revision date: %w", err)
	}
	rev.Date = parsed
	rev.Type = entities.UnitType(unitType)
	if price.Valid {
		rev.Price = &price.Int64
	}
	return &rev, nil
}

// windowClause renders the inclusive date bounds of a window as SQL
// appended to an existing WHERE, pushing bound values onto args.
func windowClause(column string, win entities.Window, args *[]any) string {
	var b strings.Builder
	if win.From != nil {
		b.WriteString(" AND " + column + " >= ?")
		*args = append(*args, entities.FormatDate(*win.From))
	}
	if win.To != nil {
		b.WriteString(" AND " + column + " <= ?")
		*args = append(*args, entities.FormatDate(*win.To))
	}
	return b.String()
}
