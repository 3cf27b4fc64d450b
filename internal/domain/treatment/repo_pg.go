package treatment

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinicore/clinicore/internal/platform/db"
)

// -- Tooth Finding Repository --

type findingRepoPG struct {
	pool *pgxpool.Pool
}

func NewFindingRepo(pool *pgxpool.Pool) FindingRepository {
	return &findingRepoPG{pool: pool}
}

func (r *findingRepoPG) conn(ctx context.Context) db.Querier {
	if sc := db.ScopeFromContext(ctx); sc != nil {
		return sc
	}
	return r.pool
}

func (r *findingRepoPG) Create(ctx context.Context, f *ToothFinding) error {
	f.ID = uuid.New()
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO tooth_findings (id, patient_id, tooth_number, condition, surface, notes)
		VALUES ($1,$2,$3,$4,$5,$6)
		RETURNING created_at`,
		f.ID, f.PatientID, f.ToothNumber, f.Condition, f.Surface, f.Notes,
	).Scan(&f.CreatedAt)
	if err != nil {
		return fmt.Errorf("tooth finding create: %w", err)
	}
	return nil
}

func (r *findingRepoPG) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*ToothFinding, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, patient_id, tooth_number, condition, surface, notes, created_at
		FROM tooth_findings WHERE patient_id = $1
		ORDER BY tooth_number, created_at`, patientID)
	if err != nil {
		return nil, fmt.Errorf("tooth finding list: %w", err)
	}
	defer rows.Close()

	var findings []*ToothFinding
	for rows.Next() {
		var f ToothFinding
		if err := rows.Scan(&f.ID, &f.PatientID, &f.ToothNumber, &f.Condition, &f.Surface, &f.Notes, &f.CreatedAt); err != nil {
			return nil, fmt.Errorf("tooth finding scan: %w", err)
		}
		findings = append(findings, &f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("tooth finding rows: %w", err)
	}
	return findings, nil
}

func (r *findingRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM tooth_findings WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("tooth finding delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrFindingNotFound
	}
	return nil
}

// -- Treatment Step Repository --

type stepRepoPG struct {
	pool *pgxpool.Pool
}

func NewStepRepo(pool *pgxpool.Pool) StepRepository {
	return &stepRepoPG{pool: pool}
}

func (r *stepRepoPG) conn(ctx context.Context) db.Querier {
	if sc := db.ScopeFromContext(ctx); sc != nil {
		return sc
	}
	return r.pool
}

const stepCols = `id, appointment_id, tooth_number, step_type, description, status, created_at, updated_at`

func (r *stepRepoPG) Create(ctx context.Context, s *TreatmentStep) error {
	s.ID = uuid.New()
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO treatment_steps (id, appointment_id, tooth_number, step_type, description, status)
		VALUES ($1,$2,$3,$4,$5,$6)
		RETURNING created_at, updated_at`,
		s.ID, s.AppointmentID, s.ToothNumber, string(s.StepType), s.Description, string(s.Status),
	).Scan(&s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return fmt.Errorf("treatment step create: %w", err)
	}
	return nil
}

func (r *stepRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*TreatmentStep, error) {
	return scanStep(r.conn(ctx).QueryRow(ctx,
		`SELECT `+stepCols+` FROM treatment_steps WHERE id = $1`, id))
}

func (r *stepRepoPG) ListByAppointment(ctx context.Context, appointmentID uuid.UUID) ([]*TreatmentStep, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+stepCols+` FROM treatment_steps
		WHERE appointment_id = $1
		ORDER BY created_at`, appointmentID)
	if err != nil {
		return nil, fmt.Errorf("treatment step list: %w", err)
	}
	defer rows.Close()

	var steps []*TreatmentStep
	for rows.Next() {
		s, err := scanStep(rows)
		if err != nil {
			return nil, err
		}
		steps = append(steps, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("treatment step rows: %w", err)
	}
	return steps, nil
}

func (r *stepRepoPG) Update(ctx context.Context, s *TreatmentStep) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE treatment_steps SET
			tooth_number = $2, step_type = $3, description = $4, status = $5,
			updated_at = now()
		WHERE id = $1`,
		s.ID, s.ToothNumber, string(s.StepType), s.Description, string(s.Status),
	)
	if err != nil {
		return fmt.Errorf("treatment step update: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrStepNotFound
	}
	return nil
}

func (r *stepRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM treatment_steps WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("treatment step delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrStepNotFound
	}
	return nil
}

func scanStep(row pgx.Row) (*TreatmentStep, error) {
	var s TreatmentStep
	var stepType, status string
	err := row.Scan(&s.ID, &s.AppointmentID, &s.ToothNumber, &stepType, &s.Description, &status, &s.CreatedAt, &s.UpdatedAt)
	if err == pgx.ErrNoRows {
		return nil, ErrStepNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("treatment step scan: %w", err)
	}
	s.StepType = StepType(stepType)
	s.Status = StepStatus(status)
	return &s, nil
}
