package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"medsched/internal/model"
)

const overrideColumns = `id, date, is_available, start_time, end_time, slot_duration, break_times, reason`

// ListOverrides returns overrides in the inclusive range ordered by date.
func (db *DB) ListOverrides(ctx context.Context, doctorID string, q model.OverrideQuery) ([]model.DayOverride, error) {
	query := `SELECT ` + overrideColumns + `
		FROM schedule_overrides
		WHERE doctor_id = ? AND date >= ? AND date <= ?`
	if !q.IncludeUnavailable {
		query += ` AND is_available = 1`
	}
	query += ` ORDER BY date`

	rows, err := db.QueryContext(ctx, query, doctorID, q.From.String(), q.To.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.DayOverride{}
	for rows.Next() {
		o, err := scanOverride(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// GetOverride returns the override with the given id.
func (db *DB) GetOverride(ctx context.Context, doctorID, id string) (model.DayOverride, error) {
	row := db.QueryRowContext(ctx, `SELECT `+overrideColumns+`
		FROM schedule_overrides WHERE doctor_id = ? AND id = ?`, doctorID, id)
	o, err := scanOverride(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.DayOverride{}, ErrNotFound
	}
	return o, err
}

// CreateOverride stores o under a new id. A second record for the same
// date fails with ErrDuplicateDate.
func (db *DB) CreateOverride(ctx context.Context, doctorID string, o model.DayOverride) (model.DayOverride, error) {
	breaks, err := encodeBreaks(o.BreakTimes)
	if err != nil {
		return model.DayOverride{}, err
	}
	o.ID = uuid.NewString()
	now := time.Now()
	_, err = db.ExecContext(ctx, `
		INSERT INTO schedule_overrides (
			id, doctor_id, date, is_available, start_time, end_time,
			slot_duration, break_times, reason, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		o.ID, doctorID, o.Date.String(), o.IsAvailable, o.StartTime.String(), o.EndTime.String(),
		int(o.SlotDuration), breaks, o.Reason, now, now,
	)
	if isUniqueViolation(err) {
		return model.DayOverride{}, fmt.Errorf("%w: %s", ErrDuplicateDate, o.Date)
	}
	if err != nil {
		return model.DayOverride{}, err
	}
	o.BreakTimes = model.CloneBreaks(o.BreakTimes)
	return o, nil
}

// UpdateOverride replaces the record with the given id.
func (db *DB) UpdateOverride(ctx context.Context, doctorID, id string, o model.DayOverride) (model.DayOverride, error) {
	breaks, err := encodeBreaks(o.BreakTimes)
	if err != nil {
		return model.DayOverride{}, err
	}
	res, err := db.ExecContext(ctx, `
		UPDATE schedule_overrides SET
			date = ?, is_available = ?, start_time = ?, end_time = ?,
			slot_duration = ?, break_times = ?, reason = ?, updated_at = ?
		WHERE doctor_id = ? AND id = ?`,
		o.Date.String(), o.IsAvailable, o.StartTime.String(), o.EndTime.String(),
		int(o.SlotDuration), breaks, o.Reason, time.Now(),
		doctorID, id,
	)
	if isUniqueViolation(err) {
		return model.DayOverride{}, fmt.Errorf("%w: %s", ErrDuplicateDate, o.Date)
	}
	if err != nil {
		return model.DayOverride{}, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return model.DayOverride{}, err
	}
	if n == 0 {
		return model.DayOverride{}, ErrNotFound
	}
	o.ID = id
	return o, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOverride(r rowScanner) (model.DayOverride, error) {
	var o model.DayOverride
	var date, start, end, breaks string
	var reason sql.NullString
	if err := r.Scan(&o.ID, &date, &o.IsAvailable, &start, &end, &o.SlotDuration, &breaks, &reason); err != nil {
		return model.DayOverride{}, err
	}
	d, err := model.ParseDate(date)
	if err != nil {
		return model.DayOverride{}, err
	}
	o.Date = d
	if err := decodeHours(start, end, breaks, &o.StartTime, &o.EndTime, &o.BreakTimes); err != nil {
		return model.DayOverride{}, fmt.Errorf("override %s: %w", o.ID, err)
	}
	if reason.Valid {
		o.Reason = reason.String
	}
	return o, nil
}
