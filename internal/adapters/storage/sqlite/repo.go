package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hylla/stageboard/internal/app"
	"github.com/hylla/stageboard/internal/domain"
	_ "modernc.org/sqlite"
)

// driverName defines a package constant value.
const driverName = "sqlite"

// Repository is the sqlite-backed task store.
type Repository struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens (and migrates) the database at path.
func Open(path string) (*Repository, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create sqlite dir: %w", err)
	}
	db, err := sql.Open(driverName, path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	return newRepository(db)
}

// OpenInMemory opens a private in-memory database.
func OpenInMemory() (*Repository, error) {
	db, err := sql.Open(driverName, ":memory:")
	if err != nil {
		return nil, fmt.Errorf("open sqlite memory: %w", err)
	}
	// Each pooled connection would get its own empty :memory: database.
	db.SetMaxOpenConns(1)
	return newRepository(db)
}

func newRepository(db *sql.DB) (*Repository, error) {
	repo := &Repository{db: db, now: time.Now}
	if err := repo.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return repo, nil
}

// Close closes the underlying database.
func (r *Repository) Close() error {
	return r.db.Close()
}

// migrate creates the schema.
func (r *Repository) migrate(ctx context.Context) error {
	stmts := []string{
		`PRAGMA foreign_keys = ON;`,
		`CREATE TABLE IF NOT EXISTS boards (
			scope TEXT PRIMARY KEY,
			name TEXT NOT NULL DEFAULT '',
			created_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS tasks (
			id TEXT PRIMARY KEY,
			board_scope TEXT NOT NULL,
			title TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			tags_json TEXT NOT NULL DEFAULT '[]',
			priority TEXT NOT NULL DEFAULT 'medium',
			target_date TEXT,
			status TEXT NOT NULL,
			category TEXT NOT NULL DEFAULT '',
			area TEXT NOT NULL DEFAULT '',
			position INTEGER NOT NULL,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL,
			FOREIGN KEY(board_scope) REFERENCES boards(scope) ON DELETE CASCADE
		);`,
		`CREATE INDEX IF NOT EXISTS idx_tasks_board_position ON tasks(board_scope, position);`,
		`CREATE TABLE IF NOT EXISTS status_events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			task_id TEXT NOT NULL,
			operation TEXT NOT NULL,
			from_status TEXT NOT NULL DEFAULT '',
			to_status TEXT NOT NULL,
			occurred_at TEXT NOT NULL,
			FOREIGN KEY(task_id) REFERENCES tasks(id) ON DELETE CASCADE
		);`,
		`CREATE INDEX IF NOT EXISTS idx_status_events_task ON status_events(task_id, occurred_at);`,
	}
	for _, stmt := range stmts {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate sqlite: %w", err)
		}
	}
	return nil
}

// EnsureBoard creates the board scope if it does not exist yet.
func (r *Repository) EnsureBoard(ctx context.Context, scope, name string) error {
	scope = strings.TrimSpace(scope)
	if scope == "" {
		return domain.ErrInvalidID
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO boards(scope, name, created_at) VALUES (?, ?, ?)
		ON CONFLICT(scope) DO NOTHING
	`, scope, strings.TrimSpace(name), ts(r.now()))
	return err
}

// ListBoards returns every board scope in creation order.
func (r *Repository) ListBoards(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT scope FROM boards ORDER BY created_at ASC, scope ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]string, 0)
	for rows.Next() {
		var scope string
		if err := rows.Scan(&scope); err != nil {
			return nil, err
		}
		out = append(out, scope)
	}
	return out, rows.Err()
}

// CreateTask appends rec to the end of the board and records a create event.
func (r *Repository) CreateTask(ctx context.Context, scope string, rec domain.TaskRecord) (err error) {
	tagsJSON, err := json.Marshal(nonNilTags(rec.Tags))
	if err != nil {
		return err
	}
	now := r.now()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `
		INSERT INTO boards(scope, name, created_at) VALUES (?, '', ?)
		ON CONFLICT(scope) DO NOTHING
	`, scope, ts(now)); err != nil {
		return err
	}
	position, err := nextPosition(ctx, tx, scope)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO tasks(
			id, board_scope, title, description, tags_json, priority, target_date, status, category, area, position, created_at, updated_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		rec.ID,
		scope,
		rec.Title,
		rec.Description,
		string(tagsJSON),
		string(rec.Priority),
		nullableTS(rec.TargetDate),
		rec.Status,
		rec.Category,
		rec.Area,
		position,
		ts(now),
		ts(now),
	)
	if err != nil {
		return err
	}
	if err = insertStatusEvent(ctx, tx, domain.StatusEvent{
		TaskID:     rec.ID,
		Operation:  domain.ChangeOperationCreate,
		ToStatus:   rec.Status,
		OccurredAt: now,
	}); err != nil {
		return err
	}
	err = tx.Commit()
	return err
}

// GetTask returns one task record.
func (r *Repository) GetTask(ctx context.Context, id string) (domain.TaskRecord, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, title, description, tags_json, priority, target_date, status, category, area
		FROM tasks
		WHERE id = ?
	`, id)
	rec, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.TaskRecord{}, app.ErrNotFound
	}
	return rec, err
}

// ListTasks returns all tasks of a board in board order.
func (r *Repository) ListTasks(ctx context.Context, scope string) ([]domain.TaskRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, title, description, tags_json, priority, target_date, status, category, area
		FROM tasks
		WHERE board_scope = ?
		ORDER BY position ASC, created_at ASC, id ASC
	`, scope)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.TaskRecord, 0)
	for rows.Next() {
		rec, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// UpdateStatus moves a task to status, placing it last on its board, and records a move event.
// Setting the current status again is a no-op.
func (r *Repository) UpdateStatus(ctx context.Context, id, status string) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var scope, current string
	err = tx.QueryRowContext(ctx, `SELECT board_scope, status FROM tasks WHERE id = ?`, id).Scan(&scope, &current)
	if errors.Is(err, sql.ErrNoRows) {
		err = app.ErrNotFound
		return err
	}
	if err != nil {
		return err
	}
	if current == status {
		err = tx.Commit()
		return err
	}

	now := r.now()
	position, err := nextPosition(ctx, tx, scope)
	if err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, `
		UPDATE tasks SET status = ?, position = ?, updated_at = ? WHERE id = ?
	`, status, position, ts(now), id)
	if err != nil {
		return err
	}
	if err = translateNoRows(res); err != nil {
		return err
	}
	if err = insertStatusEvent(ctx, tx, domain.StatusEvent{
		TaskID:     id,
		Operation:  domain.ChangeOperationMove,
		FromStatus: current,
		ToStatus:   status,
		OccurredAt: now,
	}); err != nil {
		return err
	}
	err = tx.Commit()
	return err
}

// ListStatusEvents returns the newest status events for a task.
func (r *Repository) ListStatusEvents(ctx context.Context, taskID string, limit int) ([]domain.StatusEvent, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, task_id, operation, from_status, to_status, occurred_at
		FROM status_events
		WHERE task_id = ?
		ORDER BY occurred_at DESC, id DESC
		LIMIT ?
	`, taskID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.StatusEvent, 0)
	for rows.Next() {
		var (
			event       domain.StatusEvent
			opRaw       string
			occurredRaw string
		)
		if err := rows.Scan(&event.ID, &event.TaskID, &opRaw, &event.FromStatus, &event.ToStatus, &occurredRaw); err != nil {
			return nil, err
		}
		event.Operation = normalizeChangeOperation(opRaw)
		event.OccurredAt = parseTS(occurredRaw)
		out = append(out, event)
	}
	return out, rows.Err()
}

// queryRower represents a query-only DB contract used by DB and Tx implementations.
type queryRower interface {
	QueryRowContext(context.Context, string, ...any) *sql.Row
}

// execerContext represents a write-only DB contract used by DB and Tx implementations.
type execerContext interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
}

func nextPosition(ctx context.Context, q queryRower, scope string) (int, error) {
	var position int
	err := q.QueryRowContext(ctx, `SELECT COALESCE(MAX(position), -1) + 1 FROM tasks WHERE board_scope = ?`, scope).Scan(&position)
	if err != nil {
		return 0, fmt.Errorf("next task position: %w", err)
	}
	return position, nil
}

// insertStatusEvent appends one status-history row.
func insertStatusEvent(ctx context.Context, execer execerContext, event domain.StatusEvent) error {
	_, err := execer.ExecContext(ctx, `
		INSERT INTO status_events(task_id, operation, from_status, to_status, occurred_at)
		VALUES (?, ?, ?, ?, ?)
	`,
		event.TaskID,
		string(normalizeChangeOperation(string(event.Operation))),
		event.FromStatus,
		event.ToStatus,
		ts(event.OccurredAt),
	)
	if err != nil {
		return fmt.Errorf("insert status event: %w", err)
	}
	return nil
}

func normalizeChangeOperation(raw string) domain.ChangeOperation {
	switch domain.ChangeOperation(strings.TrimSpace(strings.ToLower(raw))) {
	case domain.ChangeOperationCreate:
		return domain.ChangeOperationCreate
	default:
		return domain.ChangeOperationMove
	}
}

// scanner represents scanner data used by this package.
type scanner interface {
	Scan(dest ...any) error
}

func scanTask(s scanner) (domain.TaskRecord, error) {
	var (
		rec         domain.TaskRecord
		tagsRaw     string
		priorityRaw string
		targetRaw   sql.NullString
	)
	if err := s.Scan(&rec.ID, &rec.Title, &rec.Description, &tagsRaw, &priorityRaw, &targetRaw, &rec.Status, &rec.Category, &rec.Area); err != nil {
		return domain.TaskRecord{}, err
	}
	if strings.TrimSpace(tagsRaw) == "" {
		tagsRaw = "[]"
	}
	if err := json.Unmarshal([]byte(tagsRaw), &rec.Tags); err != nil {
		return domain.TaskRecord{}, fmt.Errorf("decode tasks.tags_json: %w", err)
	}
	rec.Tags = nonNilTags(rec.Tags)
	rec.Priority = domain.Priority(priorityRaw)
	rec.TargetDate = parseNullTS(targetRaw)
	return rec, nil
}

func nonNilTags(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}

// translateNoRows maps a zero-row update to app.ErrNotFound.
func translateNoRows(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return app.ErrNotFound
	}
	return nil
}

func ts(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func nullableTS(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTS(v string) time.Time {
	ts, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		return time.Time{}
	}
	return ts.UTC()
}

func parseNullTS(v sql.NullString) *time.Time {
	if !v.Valid || strings.TrimSpace(v.String) == "" {
		return nil
	}
	ts := parseTS(v.String)
	return &ts
}
