package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"praxis/internal/model"

	"github.com/google/uuid"
)

const appointmentColumns = `id, resource_id, start_ms, end_ms, category, title, notes, client_name, color, flagged, flag_note`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAppointment(s rowScanner) (model.Appointment, error) {
	var (
		a              model.Appointment
		startMs, endMs int64
		category       string
	)
	if err := s.Scan(&a.ID, &a.ResourceID, &startMs, &endMs, &category, &a.Title, &a.Notes,
		&a.ClientName, &a.Color, &a.Flagged, &a.FlagNote); err != nil {
		return model.Appointment{}, err
	}
	c, err := model.ParseCategory(category)
	if err != nil {
		return model.Appointment{}, err
	}
	a.Category = c
	a.Start = time.UnixMilli(startMs)
	a.End = time.UnixMilli(endMs)
	return a, nil
}

// ListAppointments returns appointments starting within [start, end].
func (db *DB) ListAppointments(ctx context.Context, start, end time.Time, resourceIDs []string) ([]model.Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments WHERE start_ms >= ? AND start_ms <= ?`
	args := []any{start.UnixMilli(), end.UnixMilli()}
	if len(resourceIDs) > 0 {
		query += ` AND resource_id IN (?` + strings.Repeat(",?", len(resourceIDs)-1) + `)`
		for _, id := range resourceIDs {
			args = append(args, id)
		}
	}
	query += ` ORDER BY start_ms, id`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}
	defer rows.Close()

	var out []model.Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			db.logger.Warn().Err(err).Msg("skipping unreadable appointment row")
			continue
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// GetAppointment returns one appointment by id.
func (db *DB) GetAppointment(ctx context.Context, id string) (model.Appointment, error) {
	row := db.QueryRowContext(ctx, `SELECT `+appointmentColumns+` FROM appointments WHERE id = ?`, id)
	a, err := scanAppointment(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Appointment{}, fmt.Errorf("appointment %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return model.Appointment{}, fmt.Errorf("get appointment %s: %w", id, err)
	}
	return a, nil
}

// CreateAppointment stores a draft under a fresh id.
func (db *DB) CreateAppointment(ctx context.Context, d model.Draft) (model.Appointment, error) {
	a, err := model.NewAppointment(uuid.NewString(), d)
	if err != nil {
		return model.Appointment{}, err
	}
	if err := db.insert(ctx, a); err != nil {
		return model.Appointment{}, err
	}
	db.logger.Info().Str("id", a.ID).Str("resource_id", a.ResourceID).Time("start", a.Start).Msg("appointment created")
	return a, nil
}

func (db *DB) insert(ctx context.Context, a model.Appointment) error {
	if err := db.requireResource(ctx, a.ResourceID); err != nil {
		return err
	}
	_, err := db.ExecContext(ctx, `
		INSERT INTO appointments (`+appointmentColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.ResourceID, a.Start.UnixMilli(), a.End.UnixMilli(), string(a.Category), a.Title, a.Notes,
		a.ClientName, a.Color, a.Flagged, a.FlagNote)
	if err != nil {
		return fmt.Errorf("insert appointment: %w", err)
	}
	return nil
}

// UpdateAppointment applies a partial update inside a transaction, guarded
// by the row version.
func (db *DB) UpdateAppointment(ctx context.Context, id string, u model.Update) (model.Appointment, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return model.Appointment{}, err
	}
	defer func() { _ = tx.Rollback() }()

	var version int64
	row := tx.QueryRowContext(ctx, `SELECT `+appointmentColumns+`, version FROM appointments WHERE id = ?`, id)
	current, err := scanAppointment(versionScanner{row: row, version: &version})
	if errors.Is(err, sql.ErrNoRows) {
		return model.Appointment{}, fmt.Errorf("appointment %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return model.Appointment{}, fmt.Errorf("load appointment %s: %w", id, err)
	}

	next, err := u.Apply(current)
	if err != nil {
		return model.Appointment{}, err
	}
	if next.ResourceID != current.ResourceID {
		if err := db.requireResource(ctx, next.ResourceID); err != nil {
			return model.Appointment{}, err
		}
	}

	res, err := tx.ExecContext(ctx, `
		UPDATE appointments
		SET resource_id = ?, start_ms = ?, end_ms = ?, title = ?, notes = ?,
			version = version + 1, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND version = ?`,
		next.ResourceID, next.Start.UnixMilli(), next.End.UnixMilli(), next.Title, next.Notes, id, version)
	if err != nil {
		return model.Appointment{}, fmt.Errorf("update appointment %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.Appointment{}, ErrConflict
	}
	if err := tx.Commit(); err != nil {
		return model.Appointment{}, err
	}
	return next, nil
}

// DeleteAppointment removes an appointment.
func (db *DB) DeleteAppointment(ctx context.Context, id string) error {
	res, err := db.ExecContext(ctx, `DELETE FROM appointments WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete appointment %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("appointment %s: %w", id, ErrNotFound)
	}
	return nil
}

func (db *DB) requireResource(ctx context.Context, id string) error {
	var exists int
	err := db.QueryRowContext(ctx, `SELECT 1 FROM resources WHERE id = ?`, id).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("resource %s: %w", id, ErrNotFound)
	}
	return err
}

// versionScanner appends the version column to an appointment scan.
type versionScanner struct {
	row     *sql.Row
	version *int64
}

func (v versionScanner) Scan(dest ...any) error {
	return v.row.Scan(append(dest, v.version)...)
}
