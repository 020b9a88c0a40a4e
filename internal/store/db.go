package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"go-retail-pivot/internal/model"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"
)

// ErrViewNotFound is returned for unknown saved-view IDs.
var ErrViewNotFound = errors.New("view not found")

var identifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Store is the sqlite RecordSource and saved-view repository.
type Store struct {
	db  *sqlx.DB
	log logrus.FieldLogger
}

// InitDB opens the database and creates the views table if needed.
func InitDB(dbPath string, log logrus.FieldLogger) (*Store, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}
	db, err := sqlx.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// sqlite allows one writer; a single connection also keeps :memory: shared
	db.SetMaxOpenConns(1)

	viewTable := `
	CREATE TABLE IF NOT EXISTS views (
		id TEXT PRIMARY KEY,
		name TEXT,
		spec TEXT,
		created_at DATETIME,
		updated_at DATETIME
	);
	`
	if _, err := db.Exec(viewTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create views table: %w", err)
	}

	log.WithField("path", dbPath).Info("💾 Store ready")
	return &Store{db: db, log: log}, nil
}

// Close releases the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// ---------------------------------------------------------------------------
// Record source
// ---------------------------------------------------------------------------

// LoadRecords reads a table as records, applying the coarse date-range and
// status filters of q. Rows come back in insertion order.
func (s *Store) LoadRecords(ctx context.Context, q model.RecordQuery) ([]model.Record, error) {
	if !identifier.MatchString(q.Table) {
		return nil, fmt.Errorf("invalid table name %q", q.Table)
	}
	dateField := q.DateField
	if dateField == "" {
		dateField = "order_date"
	}
	if !identifier.MatchString(dateField) {
		return nil, fmt.Errorf("invalid date field %q", dateField)
	}

	var where []string
	var args []interface{}
	if q.From != nil {
		where = append(where, dateField+" >= ?")
		args = append(args, q.From.UTC())
	}
	if q.To != nil {
		where = append(where, dateField+" <= ?")
		args = append(args, q.To.UTC())
	}
	if len(q.Statuses) > 0 {
		where = append(where, "status IN (?)")
		args = append(args, q.Statuses)
	}

	query := "SELECT * FROM " + q.Table
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY rowid"
	if q.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", q.Limit)
	}

	if len(q.Statuses) > 0 {
		var err error
		query, args, err = sqlx.In(query, args...)
		if err != nil {
			return nil, fmt.Errorf("failed to expand status filter: %w", err)
		}
		query = s.db.Rebind(query)
	}

	var records []model.Record
	err := withRetry(ctx, func(ctx context.Context) error {
		records = records[:0]
		rows, err := s.db.QueryxContext(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			row := make(map[string]interface{})
			if err := rows.MapScan(row); err != nil {
				return err
			}
			records = append(records, normalize(row))
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", q.Table, err)
	}

	s.log.WithFields(logrus.Fields{"table": q.Table, "records": len(records)}).Info("📥 Records loaded")
	return records, nil
}

// normalize turns driver values into record scalars.
func normalize(row map[string]interface{}) model.Record {
	rec := make(model.Record, len(row))
	for k, v := range row {
		switch val := v.(type) {
		case []byte:
			rec[k] = string(val)
		case nil:
			// absent, so grouping reports Unknown
		default:
			rec[k] = val
		}
	}
	return rec
}

// ImportRecords creates table if needed and appends records to it. Columns
// are the union of record fields; new fields add columns.
func (s *Store) ImportRecords(ctx context.Context, table string, records []model.Record) (int, error) {
	if !identifier.MatchString(table) {
		return 0, fmt.Errorf("invalid table name %q", table)
	}
	columns := fieldNames(records)
	for _, col := range columns {
		if !identifier.MatchString(col) {
			return 0, fmt.Errorf("invalid column name %q", col)
		}
	}
	if len(columns) == 0 {
		return 0, nil
	}

	err := withRetry(ctx, func(ctx context.Context) error {
		tx, err := s.db.BeginTxx(ctx, nil)
		if err != nil {
			return err
		}
		defer tx.Rollback()

		if _, err := tx.ExecContext(ctx, "CREATE TABLE IF NOT EXISTS "+table+" ("+strings.Join(columns, ", ")+")"); err != nil {
			return err
		}
		existing := map[string]bool{}
		var names []string
		if err := tx.SelectContext(ctx, &names, "SELECT name FROM pragma_table_info(?)", table); err != nil {
			return err
		}
		for _, n := range names {
			existing[n] = true
		}
		for _, col := range columns {
			if !existing[col] {
				if _, err := tx.ExecContext(ctx, "ALTER TABLE "+table+" ADD COLUMN "+col); err != nil {
					return err
				}
			}
		}

		insert := "INSERT INTO " + table + " (" + strings.Join(columns, ", ") + ") VALUES (:" + strings.Join(columns, ", :") + ")"
		stmt, err := tx.PrepareNamedContext(ctx, insert)
		if err != nil {
			return err
		}
		defer stmt.Close()
		for _, rec := range records {
			arg := make(map[string]interface{}, len(columns))
			for _, col := range columns {
				arg[col] = rec[col]
			}
			if _, err := stmt.ExecContext(ctx, arg); err != nil {
				return err
			}
		}
		return tx.Commit()
	})
	if err != nil {
		return 0, fmt.Errorf("failed to import into %s: %w", table, err)
	}

	s.log.WithFields(logrus.Fields{"table": table, "records": len(records)}).Info("💾 Records imported")
	return len(records), nil
}

func fieldNames(records []model.Record) []string {
	seen := map[string]bool{}
	var out []string
	for _, rec := range records {
		for k := range rec {
			if !seen[k] {
				seen[k] = true
				out = append(out, k)
			}
		}
	}
	sort.Strings(out)
	return out
}

// ---------------------------------------------------------------------------
// Saved views
// ---------------------------------------------------------------------------

type viewRow struct {
	ID        string    `db:"id"`
	Name      string    `db:"name"`
	Spec      string    `db:"spec"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

func (r viewRow) toModel() (model.SavedView, error) {
	var spec model.ViewSpec
	if err := json.Unmarshal([]byte(r.Spec), &spec); err != nil {
		return model.SavedView{}, fmt.Errorf("failed to decode view %s: %w", r.ID, err)
	}
	return model.SavedView{ID: r.ID, Spec: spec, CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt}, nil
}

// SaveView stores a new view spec under a fresh ID.
func (s *Store) SaveView(ctx context.Context, spec model.ViewSpec) (model.SavedView, error) {
	specJSON, err := json.Marshal(spec)
	if err != nil {
		return model.SavedView{}, err
	}
	now := time.Now().UTC()
	row := viewRow{ID: uuid.New().String(), Name: spec.Name, Spec: string(specJSON), CreatedAt: now, UpdatedAt: now}

	err = withRetry(ctx, func(ctx context.Context) error {
		_, err := s.db.NamedExecContext(ctx,
			`INSERT INTO views (id, name, spec, created_at, updated_at) VALUES (:id, :name, :spec, :created_at, :updated_at)`, row)
		return err
	})
	if err != nil {
		return model.SavedView{}, fmt.Errorf("failed to save view: %w", err)
	}
	return model.SavedView{ID: row.ID, Spec: spec, CreatedAt: now, UpdatedAt: now}, nil
}

// UpdateView replaces the spec of an existing view.
func (s *Store) UpdateView(ctx context.Context, id string, spec model.ViewSpec) error {
	specJSON, err := json.Marshal(spec)
	if err != nil {
		return err
	}
	var affected int64
	err = withRetry(ctx, func(ctx context.Context) error {
		res, err := s.db.ExecContext(ctx, `UPDATE views SET name = ?, spec = ?, updated_at = ? WHERE id = ?`,
			spec.Name, string(specJSON), time.Now().UTC(), id)
		if err != nil {
			return err
		}
		affected, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to update view %s: %w", id, err)
	}
	if affected == 0 {
		return ErrViewNotFound
	}
	return nil
}

// GetView fetches one saved view.
func (s *Store) GetView(ctx context.Context, id string) (model.SavedView, error) {
	var row viewRow
	err := s.db.GetContext(ctx, &row, `SELECT id, name, spec, created_at, updated_at FROM views WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return model.SavedView{}, ErrViewNotFound
	}
	if err != nil {
		return model.SavedView{}, fmt.Errorf("failed to get view %s: %w", id, err)
	}
	return row.toModel()
}

// ListViews returns every saved view, newest first.
func (s *Store) ListViews(ctx context.Context) ([]model.SavedView, error) {
	var rows []viewRow
	if err := s.db.SelectContext(ctx, &rows, `SELECT id, name, spec, created_at, updated_at FROM views ORDER BY created_at DESC, rowid DESC`); err != nil {
		return nil, fmt.Errorf("failed to list views: %w", err)
	}
	views := make([]model.SavedView, 0, len(rows))
	for _, row := range rows {
		v, err := row.toModel()
		if err != nil {
			return nil, err
		}
		views = append(views, v)
	}
	return views, nil
}

// DeleteView removes a saved view.
func (s *Store) DeleteView(ctx context.Context, id string) error {
	var affected int64
	err := withRetry(ctx, func(ctx context.Context) error {
		res, err := s.db.ExecContext(ctx, `DELETE FROM views WHERE id = ?`, id)
		if err != nil {
			return err
		}
		affected, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to delete view %s: %w", id, err)
	}
	if affected == 0 {
		return ErrViewNotFound
	}
	return nil
}
