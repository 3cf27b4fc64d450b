package patient

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinicore/clinicore/internal/platform/db"
	"github.com/clinicore/clinicore/internal/platform/pii"
)

type repoPG struct {
	pool  *pgxpool.Pool
	codec *pii.Codec
}

// NewRepo creates a patient repository. The codec is mandatory: protected
// fields are always written encrypted and searched by token.
func NewRepo(pool *pgxpool.Pool, codec *pii.Codec) Repository {
	return &repoPG{pool: pool, codec: codec}
}

func (r *repoPG) conn(ctx context.Context) db.Querier {
	if sc := db.ScopeFromContext(ctx); sc != nil {
		return sc
	}
	return r.pool
}

const patientCols = `id, first_name, last_name,
	cin_cipher, cin_token, phone_cipher, phone_token,
	insurance_type, insurance_id_cipher, insurance_id_token, created_at`

// seal encrypts the protected fields for storage. Empty values stay empty:
// an absent CIN produces no ciphertext and no token.
func (r *repoPG) seal(p *Patient) (cinC, cinT, phC, phT, insC, insT string, err error) {
	if p.CIN != "" {
		cinC, cinT, err = r.codec.Encrypt(p.CIN, pii.NormalizeID)
		if err != nil {
			return "", "", "", "", "", "", fmt.Errorf("seal cin: %w", err)
		}
	}
	if p.Phone != "" {
		phC, phT, err = r.codec.Encrypt(p.Phone, pii.NormalizePhone)
		if err != nil {
			return "", "", "", "", "", "", fmt.Errorf("seal phone: %w", err)
		}
	}
	if p.InsuranceID != "" {
		insC, insT, err = r.codec.Encrypt(p.InsuranceID, pii.NormalizeID)
		if err != nil {
			return "", "", "", "", "", "", fmt.Errorf("seal insurance id: %w", err)
		}
	}
	return cinC, cinT, phC, phT, insC, insT, nil
}

// open decrypts the protected columns back into the model. Decryption
// failures propagate: a row that cannot be opened is never served partially.
func (r *repoPG) open(p *Patient, cinC, phC, insC string) error {
	var err error
	if cinC != "" {
		if p.CIN, err = r.codec.Decrypt(cinC); err != nil {
			return fmt.Errorf("open cin for patient %s: %w", p.ID, err)
		}
	}
	if phC != "" {
		if p.Phone, err = r.codec.Decrypt(phC); err != nil {
			return fmt.Errorf("open phone for patient %s: %w", p.ID, err)
		}
	}
	if insC != "" {
		if p.InsuranceID, err = r.codec.Decrypt(insC); err != nil {
			return fmt.Errorf("open insurance id for patient %s: %w", p.ID, err)
		}
	}
	return nil
}

func (r *repoPG) Create(ctx context.Context, p *Patient) error {
	p.ID = uuid.New()
	cinC, cinT, phC, phT, insC, insT, err := r.seal(p)
	if err != nil {
		return fmt.Errorf("patient create: %w", err)
	}

	err = r.conn(ctx).QueryRow(ctx, `
		INSERT INTO patients (
			id, first_name, last_name,
			cin_cipher, cin_token, phone_cipher, phone_token,
			insurance_type, insurance_id_cipher, insurance_id_token
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		RETURNING created_at`,
		p.ID, p.FirstName, p.LastName,
		cinC, cinT, phC, phT,
		string(p.InsuranceType), insC, insT,
	).Scan(&p.CreatedAt)
	if err != nil {
		return fmt.Errorf("patient create: %w", err)
	}
	return nil
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	row := r.conn(ctx).QueryRow(ctx, `SELECT `+patientCols+` FROM patients WHERE id = $1`, id)
	return r.scanPatient(row)
}

func (r *repoPG) Update(ctx context.Context, p *Patient) error {
	cinC, cinT, phC, phT, insC, insT, err := r.seal(p)
	if err != nil {
		return fmt.Errorf("patient update: %w", err)
	}

	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE patients SET
			first_name = $2, last_name = $3,
			cin_cipher = $4, cin_token = $5,
			phone_cipher = $6, phone_token = $7,
			insurance_type = $8, insurance_id_cipher = $9, insurance_id_token = $10
		WHERE id = $1`,
		p.ID, p.FirstName, p.LastName,
		cinC, cinT, phC, phT,
		string(p.InsuranceType), insC, insT,
	)
	if err != nil {
		return fmt.Errorf("patient update: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM patients WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("patient delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repoPG) List(ctx context.Context, limit, offset int) ([]*Patient, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT count(*) FROM patients`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("patient count: %w", err)
	}

	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+patientCols+` FROM patients
		ORDER BY last_name, first_name
		LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("patient list: %w", err)
	}
	defer rows.Close()

	patients, err := r.scanPatients(rows)
	if err != nil {
		return nil, 0, err
	}
	return patients, total, nil
}

// SearchByCIN finds patients by national id. The lookup compares the
// deterministic search token, so the database never sees the plaintext and
// the match is exact up to normalization.
func (r *repoPG) SearchByCIN(ctx context.Context, cin string) ([]*Patient, error) {
	token := r.codec.Token(cin, pii.NormalizeID)
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+patientCols+` FROM patients WHERE cin_token = $1`, token)
	if err != nil {
		return nil, fmt.Errorf("patient search by cin: %w", err)
	}
	defer rows.Close()
	return r.scanPatients(rows)
}

func (r *repoPG) SearchByPhone(ctx context.Context, phone string) ([]*Patient, error) {
	token := r.codec.Token(phone, pii.NormalizePhone)
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+patientCols+` FROM patients WHERE phone_token = $1`, token)
	if err != nil {
		return nil, fmt.Errorf("patient search by phone: %w", err)
	}
	defer rows.Close()
	return r.scanPatients(rows)
}

func (r *repoPG) scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	var insType string
	var cinC, cinT, phC, phT, insC, insT string
	err := row.Scan(
		&p.ID, &p.FirstName, &p.LastName,
		&cinC, &cinT, &phC, &phT,
		&insType, &insC, &insT, &p.CreatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("patient scan: %w", err)
	}
	p.InsuranceType = InsuranceType(insType)
	if err := r.open(&p, cinC, phC, insC); err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *repoPG) scanPatients(rows pgx.Rows) ([]*Patient, error) {
	var patients []*Patient
	for rows.Next() {
		p, err := r.scanPatient(rows)
		if err != nil {
			return nil, err
		}
		patients = append(patients, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("patient rows: %w", err)
	}
	return patients, nil
}
