package database

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"medsched/internal/model"
)

// GetWeeklySchedule returns all seven days of a doctor. Days never written
// come back inactive with default hours.
func (db *DB) GetWeeklySchedule(ctx context.Context, doctorID string) (model.FullTemplate, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT day_of_week, is_active, start_time, end_time, slot_duration, break_times
		FROM weekly_schedules
		WHERE doctor_id = ?
		ORDER BY day_of_week`,
		doctorID,
	)
	if err != nil {
		return model.FullTemplate{}, err
	}
	defer rows.Close()

	var days []model.DaySchedule
	for rows.Next() {
		var d model.DaySchedule
		var start, end, breaks string
		if err := rows.Scan(&d.DayOfWeek, &d.IsActive, &start, &end, &d.SlotDuration, &breaks); err != nil {
			return model.FullTemplate{}, err
		}
		if err := decodeHours(start, end, breaks, &d.StartTime, &d.EndTime, &d.BreakTimes); err != nil {
			return model.FullTemplate{}, fmt.Errorf("day %d: %w", d.DayOfWeek, err)
		}
		days = append(days, d)
	}
	if err := rows.Err(); err != nil {
		return model.FullTemplate{}, err
	}
	return model.FullTemplateFromDays(days)
}

// UpsertWeeklyDays writes the given days. Days not in the list are left as they are.
func (db *DB) UpsertWeeklyDays(ctx context.Context, doctorID string, days []model.DaySchedule) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now()
	for _, d := range days {
		breaks, err := encodeBreaks(d.BreakTimes)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO weekly_schedules (
				doctor_id, day_of_week, is_active, start_time, end_time,
				slot_duration, break_times, created_at, updated_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(doctor_id, day_of_week) DO UPDATE SET
				is_active = excluded.is_active,
				start_time = excluded.start_time,
				end_time = excluded.end_time,
				slot_duration = excluded.slot_duration,
				break_times = excluded.break_times,
				updated_at = excluded.updated_at`,
			doctorID, d.DayOfWeek, d.IsActive, d.StartTime.String(), d.EndTime.String(),
			int(d.SlotDuration), breaks, now, now,
		)
		if err != nil {
			return fmt.Errorf("upsert day %d: %w", d.DayOfWeek, err)
		}
	}
	return tx.Commit()
}

func encodeBreaks(breaks []model.BreakInterval) (string, error) {
	if breaks == nil {
		breaks = []model.BreakInterval{}
	}
	data, err := json.Marshal(breaks)
	if err != nil {
		return "", fmt.Errorf("encode breaks: %w", err)
	}
	return string(data), nil
}

func decodeHours(start, end, breaks string, startOut, endOut *model.Clock, breaksOut *[]model.BreakInterval) error {
	var err error
	if *startOut, err = model.ParseClock(start); err != nil {
		return err
	}
	if *endOut, err = model.ParseClock(end); err != nil {
		return err
	}
	if breaks == "" {
		*breaksOut = []model.BreakInterval{}
		return nil
	}
	return json.Unmarshal([]byte(breaks), breaksOut)
}
