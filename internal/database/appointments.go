package database

import (
	"context"
	"fmt"

	"medsched/internal/model"
)

// Appointment is a booked visit.
type Appointment struct {
	ID          int64       `json:"id"`
	Date        model.Date  `json:"date"`
	StartTime   model.Clock `json:"start_time"`
	EndTime     model.Clock `json:"end_time"`
	PatientName string      `json:"patient_name,omitempty"`
}

// AddAppointment records a booked visit.
func (db *DB) AddAppointment(ctx context.Context, doctorID string, a Appointment) (int64, error) {
	if a.StartTime >= a.EndTime {
		return 0, fmt.Errorf("appointment %s-%s: start must be before end", a.StartTime, a.EndTime)
	}
	res, err := db.ExecContext(ctx, `
		INSERT INTO appointments (doctor_id, date, start_time, end_time, patient_name)
		VALUES (?, ?, ?, ?, ?)`,
		doctorID, a.Date.String(), a.StartTime.String(), a.EndTime.String(), a.PatientName,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// BookedAppointments returns the booked visits of a date ordered by start.
func (db *DB) BookedAppointments(ctx context.Context, doctorID string, date model.Date) ([]Appointment, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, start_time, end_time, COALESCE(patient_name, '')
		FROM appointments
		WHERE doctor_id = ? AND date = ? AND status = 'booked'
		ORDER BY start_time`,
		doctorID, date.String(),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Appointment
	for rows.Next() {
		a := Appointment{Date: date}
		var start, end string
		if err := rows.Scan(&a.ID, &start, &end, &a.PatientName); err != nil {
			return nil, err
		}
		if a.StartTime, err = model.ParseClock(start); err != nil {
			return nil, err
		}
		if a.EndTime, err = model.ParseClock(end); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
