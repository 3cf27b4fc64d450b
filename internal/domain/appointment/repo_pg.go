package appointment

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinicore/clinicore/internal/platform/db"
)

type repoPG struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

func (r *repoPG) conn(ctx context.Context) db.Querier {
	if sc := db.ScopeFromContext(ctx); sc != nil {
		return sc
	}
	return r.pool
}

const appointmentCols = `id, patient_id, doctor_id, subject, start_time, end_time,
	description, status, category_color, tooth_number, created_at`

func (r *repoPG) Create(ctx context.Context, a *Appointment) error {
	a.ID = uuid.New()
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO appointments (
			id, patient_id, doctor_id, subject, start_time, end_time,
			description, status, category_color, tooth_number
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		RETURNING created_at`,
		a.ID, a.PatientID, a.DoctorID, a.Subject, a.StartTime, a.EndTime,
		a.Description, string(a.Status), a.CategoryColor, a.ToothNumber,
	).Scan(&a.CreatedAt)
	if err != nil {
		return fmt.Errorf("appointment create: %w", err)
	}
	return nil
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	row := r.conn(ctx).QueryRow(ctx,
		`SELECT `+appointmentCols+` FROM appointments WHERE id = $1`, id)
	return scanAppointment(row)
}

func (r *repoPG) Update(ctx context.Context, a *Appointment) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE appointments SET
			patient_id = $2, doctor_id = $3, subject = $4,
			start_time = $5, end_time = $6, description = $7,
			status = $8, category_color = $9, tooth_number = $10
		WHERE id = $1`,
		a.ID, a.PatientID, a.DoctorID, a.Subject,
		a.StartTime, a.EndTime, a.Description,
		string(a.Status), a.CategoryColor, a.ToothNumber,
	)
	if err != nil {
		return fmt.Errorf("appointment update: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM appointments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("appointment delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repoPG) List(ctx context.Context, f Filter, limit, offset int) ([]*Appointment, int, error) {
	where := ""
	args := []interface{}{}
	n := 0
	if f.DoctorID != nil {
		n++
		where += fmt.Sprintf(" AND doctor_id = $%d", n)
		args = append(args, *f.DoctorID)
	}
	if f.PatientID != nil {
		n++
		where += fmt.Sprintf(" AND patient_id = $%d", n)
		args = append(args, *f.PatientID)
	}

	var total int
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT count(*) FROM appointments WHERE true`+where, args...).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("appointment count: %w", err)
	}

	query := fmt.Sprintf(
		`SELECT `+appointmentCols+` FROM appointments WHERE true`+where+
			` ORDER BY start_time LIMIT $%d OFFSET $%d`, n+1, n+2)
	args = append(args, limit, offset)

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("appointment list: %w", err)
	}
	defer rows.Close()

	var appts []*Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, 0, err
		}
		appts = append(appts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("appointment rows: %w", err)
	}
	return appts, total, nil
}

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	var status string
	err := row.Scan(
		&a.ID, &a.PatientID, &a.DoctorID, &a.Subject, &a.StartTime, &a.EndTime,
		&a.Description, &status, &a.CategoryColor, &a.ToothNumber, &a.CreatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("appointment scan: %w", err)
	}
	a.Status = Status(status)
	return &a, nil
}
