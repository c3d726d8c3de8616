package salon

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

const appointmentColumns = `appointment_id, customer_phone, services, location, appointment_date,
	appointment_time, total_price, status, created_at, updated_at`

// Helpers

func scanUser(row pgx.Row) (*User, error) {
	var u User

	err := row.Scan(
		&u.Phone,
		&u.Name,
		&u.PasswordHash,
		&u.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	return &u, nil
}

func scanAppointment(row pgx.Row, extra ...any) (*Appointment, error) {
	var a Appointment
	var services string

	dest := []any{
		&a.ID,
		&a.CustomerPhone,
		&services,
		&a.Location,
		&a.Date,
		&a.Time,
		&a.TotalPrice,
		&a.Status,
		&a.CreatedAt,
		&a.UpdatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}

	a.Services = SplitServices(services)
	return &a, nil
}

func statusArgs(statuses []AppointmentStatus) []string {
	if len(statuses) == 0 {
		return nil
	}
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}

// Interface methods

func (r *PgRepository) GetUser(ctx context.Context, phone string) (*User, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT phone, name, password_hash, created_at
		FROM salon_users
		WHERE phone = $1
	`, phone)
	return scanUser(row)
}

func (r *PgRepository) UpsertUser(ctx context.Context, u User) (*User, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO salon_users (phone, name, password_hash, created_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (phone) DO UPDATE SET name = EXCLUDED.name
		RETURNING phone, name, password_hash, created_at
	`, u.Phone, u.Name, u.PasswordHash)
	return scanUser(row)
}

func (r *PgRepository) GetAppointment(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE appointment_id = $1
	`, id)
	return scanAppointment(row)
}

func (r *PgRepository) ListAppointmentsByCustomer(ctx context.Context, phone string, statuses []AppointmentStatus) ([]Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE customer_phone = $1
		  AND ($2::text[] IS NULL OR status = ANY($2))
		ORDER BY appointment_date, appointment_time
	`, phone, statusArgs(statuses))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *a)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	sortAppointments(result)
	return result, nil
}

func (r *PgRepository) CountAppointmentsByCustomer(ctx context.Context, phone string, statuses []AppointmentStatus, exclude uuid.UUID) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `
		SELECT count(*)
		FROM appointments
		WHERE customer_phone = $1
		  AND ($2::text[] IS NULL OR status = ANY($2))
		  AND appointment_id <> $3
	`, phone, statusArgs(statuses), exclude).Scan(&n)
	if err != nil {
		return 0, err
	}
	return n, nil
}

func (r *PgRepository) ListAllAppointments(ctx context.Context) ([]AppointmentWithCustomer, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT a.appointment_id, a.customer_phone, a.services, a.location, a.appointment_date,
		       a.appointment_time, a.total_price, a.status, a.created_at, a.updated_at, u.name
		FROM appointments a
		JOIN salon_users u ON a.customer_phone = u.phone
		ORDER BY a.appointment_date DESC, a.created_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []AppointmentWithCustomer
	for rows.Next() {
		var name string
		a, err := scanAppointment(rows, &name)
		if err != nil {
			return nil, err
		}
		result = append(result, AppointmentWithCustomer{Appointment: *a, CustomerName: name})
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	sortNewestFirst(result)
	return result, nil
}

func (r *PgRepository) InsertAppointment(ctx context.Context, a NewAppointment) (*Appointment, error) {
	id := uuid.New()

	row := r.pool.QueryRow(ctx, `
		INSERT INTO appointments (appointment_id, customer_phone, services, location, appointment_date,
		                          appointment_time, total_price, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, 'booked', now(), now())
		RETURNING `+appointmentColumns,
		id, a.CustomerPhone, JoinServices(a.Services), a.Location, a.Date, a.Time, a.TotalPrice)

	return scanAppointment(row)
}

func (r *PgRepository) UpdateAppointment(ctx context.Context, id uuid.UUID, p AppointmentPatch) (*Appointment, error) {
	if p.Empty() {
		return r.GetAppointment(ctx, id)
	}

	args := []any{id}
	var sets []string
	set := func(col string, v any) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	if p.Services != nil {
		set("services", JoinServices(p.Services))
	}
	if p.Location != nil {
		set("location", *p.Location)
	}
	if p.Date != nil {
		set("appointment_date", *p.Date)
	}
	if p.Time != nil {
		set("appointment_time", *p.Time)
	}
	if p.TotalPrice != nil {
		set("total_price", *p.TotalPrice)
	}
	sets = append(sets, "updated_at = now()")

	row := r.pool.QueryRow(ctx, `
		UPDATE appointments
		SET `+strings.Join(sets, ", ")+`
		WHERE appointment_id = $1
		RETURNING `+appointmentColumns, args...)

	return scanAppointment(row)
}

func (r *PgRepository) UpdateAppointmentStatus(ctx context.Context, id uuid.UUID, status AppointmentStatus) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE appointments
		SET status = $2,
		    updated_at = now()
		WHERE appointment_id = $1
		RETURNING `+appointmentColumns, id, status)

	return scanAppointment(row)
}

func (r *PgRepository) DeleteAppointment(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM appointments WHERE appointment_id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrAppointmentNotFound
	}
	return nil
}

func (r *PgRepository) InsertEvent(ctx context.Context, ev EventLog) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO event_logs (event_type, appointment_id, payload, created_at)
		VALUES ($1, $2, $3, COALESCE($4, now()))
	`, ev.EventType, ev.AppointmentID, ev.Payload, nullableTime(ev.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert event log: %w", err)
	}

	return nil
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
