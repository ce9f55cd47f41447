package store

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"praxis/internal/model"
)

// ListResources returns every resource in display order.
func (db *DB) ListResources(ctx context.Context) ([]model.Resource, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, name, color, working_days, start_hour, end_hour
		FROM resources
		ORDER BY sort_order, id`)
	if err != nil {
		return nil, fmt.Errorf("list resources: %w", err)
	}
	defer rows.Close()

	var out []model.Resource
	for rows.Next() {
		var (
			r          model.Resource
			days       string
			start, end sql.NullInt64
		)
		if err := rows.Scan(&r.ID, &r.Name, &r.Color, &days, &start, &end); err != nil {
			return nil, fmt.Errorf("scan resource: %w", err)
		}
		r.WorkingDays = decodeWeekdays(days)
		if start.Valid && end.Valid {
			r.WorkingHours = &model.WorkingHours{StartHour: int(start.Int64), EndHour: int(end.Int64)}
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// UpsertResource inserts or replaces a resource.
func (db *DB) UpsertResource(ctx context.Context, r model.Resource, sortOrder int) error {
	if err := r.Validate(); err != nil {
		return err
	}
	var start, end sql.NullInt64
	if r.WorkingHours != nil {
		start = sql.NullInt64{Int64: int64(r.WorkingHours.StartHour), Valid: true}
		end = sql.NullInt64{Int64: int64(r.WorkingHours.EndHour), Valid: true}
	}
	_, err := db.ExecContext(ctx, `
		INSERT INTO resources (id, name, color, working_days, start_hour, end_hour, sort_order)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			color = excluded.color,
			working_days = excluded.working_days,
			start_hour = excluded.start_hour,
			end_hour = excluded.end_hour,
			sort_order = excluded.sort_order`,
		r.ID, r.Name, r.Color, encodeWeekdays(r.WorkingDays), start, end, sortOrder)
	if err != nil {
		return fmt.Errorf("upsert resource %s: %w", r.ID, err)
	}
	return nil
}

// encodeWeekdays stores days as "1,2,3". An empty string means the default set.
func encodeWeekdays(days []time.Weekday) string {
	parts := make([]string, 0, len(days))
	for _, d := range days {
		parts = append(parts, strconv.Itoa(int(d)))
	}
	return strings.Join(parts, ",")
}

func decodeWeekdays(s string) []time.Weekday {
	if s == "" {
		return nil
	}
	var days []time.Weekday
	for _, p := range strings.Split(s, ",") {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil || n < 0 || n > 6 {
			continue
		}
		days = append(days, time.Weekday(n))
	}
	return days
}
