package cases

import (
	"context"
	"errors"
	"strconv"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lakbay/lakbay/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type caseRepoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &caseRepoPG{pool: pool}
}

func (r *caseRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const caseCols = `id, patient_identifier, current_stage, classification,
	date_of_encounter, physician, institution, symptoms, findings, alert,
	imaging_date, imaging_type, completed, completion_reason, completion_date,
	version, created_at, updated_at`

func (r *caseRepoPG) scanCase(row pgx.Row) (*Case, error) {
	var c Case
	err := row.Scan(&c.ID, &c.PatientIdentifier, &c.CurrentStage, &c.Classification,
		&c.DateOfEncounter, &c.Physician, &c.Institution, &c.Symptoms, &c.Findings,
		&c.Alert, &c.ImagingDate, &c.ImagingType,
		&c.Completed, &c.CompletionReason, &c.CompletionDate,
		&c.Version, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return &c, err
}

func (r *caseRepoPG) Create(ctx context.Context, c *Case) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	c.Version = 1
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO cases (id, patient_identifier, current_stage, classification,
			date_of_encounter, physician, institution, symptoms, findings, alert,
			imaging_date, imaging_type, completed, completion_reason, completion_date, version)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)
		RETURNING created_at, updated_at`,
		c.ID, c.PatientIdentifier, c.CurrentStage, c.Classification,
		c.DateOfEncounter, c.Physician, c.Institution, c.Symptoms, c.Findings, c.Alert,
		c.ImagingDate, c.ImagingType, c.Completed, c.CompletionReason, c.CompletionDate,
		c.Version,
	).Scan(&c.CreatedAt, &c.UpdatedAt)
}

func (r *caseRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Case, error) {
	return r.scanCase(r.conn(ctx).QueryRow(ctx, `SELECT `+caseCols+` FROM cases WHERE id = $1`, id))
}

func (r *caseRepoPG) Update(ctx context.Context, c *Case) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE cases SET
			current_stage=$2, classification=$3, date_of_encounter=$4,
			physician=$5, institution=$6, symptoms=$7, findings=$8, alert=$9,
			imaging_date=$10, imaging_type=$11,
			completed=$12, completion_reason=$13, completion_date=$14,
			version=version+1, updated_at=NOW()
		WHERE id = $1 AND version = $15`,
		c.ID, c.CurrentStage, c.Classification, c.DateOfEncounter,
		c.Physician, c.Institution, c.Symptoms, c.Findings, c.Alert,
		c.ImagingDate, c.ImagingType,
		c.Completed, c.CompletionReason, c.CompletionDate,
		c.Version)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		// Distinguish a missing row from a stale version.
		var exists bool
		if err := r.conn(ctx).QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM cases WHERE id = $1)`, c.ID).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return ErrNotFound
		}
		return ErrStaleVersion
	}
	c.Version++
	return nil
}

func (r *caseRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM cases WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// filterSQL builds the WHERE clause for a Filter. Search matches the
// patient identifier, physician, and classification case-insensitively.
func filterSQL(f Filter) (string, []interface{}) {
	where := ` WHERE 1=1`
	var args []interface{}
	if f.Search != "" {
		args = append(args, "%"+f.Search+"%")
		n := len(args)
		where += ` AND (patient_identifier ILIKE $` + strconv.Itoa(n) +
			` OR physician ILIKE $` + strconv.Itoa(n) +
			` OR classification ILIKE $` + strconv.Itoa(n) + `)`
	}
	if f.Classification != "" {
		args = append(args, f.Classification)
		where += ` AND classification = $` + strconv.Itoa(len(args))
	}
	return where, args
}

func (r *caseRepoPG) List(ctx context.Context, f Filter, limit, offset int) ([]*Case, int, error) {
	where, args := filterSQL(f)

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM cases`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	n := len(args)
	query := `SELECT ` + caseCols + ` FROM cases` + where +
		` ORDER BY date_of_encounter DESC, created_at DESC LIMIT $` + strconv.Itoa(n+1) + ` OFFSET $` + strconv.Itoa(n+2)
	rows, err := r.conn(ctx).Query(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	items, err := r.collect(rows)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (r *caseRepoPG) ListAll(ctx context.Context, f Filter) ([]*Case, error) {
	where, args := filterSQL(f)
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+caseCols+` FROM cases`+where+` ORDER BY date_of_encounter DESC, created_at DESC`,
		args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return r.collect(rows)
}

func (r *caseRepoPG) ListByPatient(ctx context.Context, patientIdentifier string) ([]*Case, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+caseCols+` FROM cases WHERE patient_identifier = $1 ORDER BY date_of_encounter DESC`,
		patientIdentifier)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return r.collect(rows)
}

func (r *caseRepoPG) DistinctPatients(ctx context.Context) ([]string, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT DISTINCT patient_identifier FROM cases ORDER BY patient_identifier`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var patients []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		patients = append(patients, p)
	}
	return patients, rows.Err()
}

func (r *caseRepoPG) collect(rows pgx.Rows) ([]*Case, error) {
	var items []*Case
	for rows.Next() {
		c, err := r.scanCase(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, c)
	}
	return items, rows.Err()
}

// -- archive store --

type archiveRepoPG struct{ pool *pgxpool.Pool }

func NewArchiveRepoPG(pool *pgxpool.Pool) ArchiveRepository {
	return &archiveRepoPG{pool: pool}
}

func (r *archiveRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

func (r *archiveRepoPG) Archive(ctx context.Context, userID, caseID uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO archived_case (user_id, case_id) VALUES ($1, $2)
		ON CONFLICT (user_id, case_id) DO NOTHING`,
		userID, caseID)
	return err
}

func (r *archiveRepoPG) Unarchive(ctx context.Context, userID, caseID uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx,
		`DELETE FROM archived_case WHERE user_id = $1 AND case_id = $2`,
		userID, caseID)
	return err
}

func (r *archiveRepoPG) ArchivedIDs(ctx context.Context, userID uuid.UUID) (map[uuid.UUID]bool, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT case_id FROM archived_case WHERE user_id = $1`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := make(map[uuid.UUID]bool)
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids[id] = true
	}
	return ids, rows.Err()
}
