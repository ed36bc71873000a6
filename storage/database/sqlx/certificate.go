package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/certify/core"
	"github.com/trezcool/certify/core/certificate"
	"github.com/trezcool/certify/storage/database"
)

type certificateRow struct {
	ID        string    `db:"id"`
	Hash      string    `db:"hash"`
	OwnerID   string    `db:"owner_id"`
	CourseID  string    `db:"course_id"`
	LearnerID string    `db:"learner_id"`
	CreatedAt time.Time `db:"created_at"`
}

func (row certificateRow) toCertificate() certificate.Certificate {
	return certificate.Certificate{
		ID:        row.ID,
		Hash:      row.Hash,
		OwnerID:   row.OwnerID,
		CourseID:  row.CourseID,
		LearnerID: row.LearnerID,
		CreatedAt: row.CreatedAt.UTC(),
	}
}

const certificateColumns = "id, hash, owner_id, course_id, learner_id, created_at"

type certificateRepository struct {
	repository
}

var _ certificate.Repository = (*certificateRepository)(nil)

func NewCertificateRepository(db *sqlx.DB) *certificateRepository {
	return &certificateRepository{repository{db: db}}
}

func (repo *certificateRepository) get(ctx context.Context, db core.DBExecutor, where string, args ...interface{}) (certificate.Certificate, error) {
	var row certificateRow
	q := db.Rebind("SELECT " + certificateColumns + " FROM certificates WHERE " + where)
	if err := db.GetContext(ctx, &row, q, args...); err != nil {
		return certificate.Certificate{}, trapNoRowsErr(err, certificate.ErrNotFound)
	}
	return row.toCertificate(), nil
}

func (repo *certificateRepository) GetCertificateByHash(ctx context.Context, hash string, exec ...core.DBExecutor) (certificate.Certificate, error) {
	return repo.get(ctx, repo.exec(exec), "hash = ?", hash)
}

func (repo *certificateRepository) GetCertificate(ctx context.Context, learnerID, courseID string) (certificate.Certificate, error) {
	return repo.get(ctx, repo.db, "learner_id = ? AND course_id = ?", learnerID, courseID)
}

func (repo *certificateRepository) CreateCertificate(ctx context.Context, cert certificate.Certificate, exec ...core.DBExecutor) error {
	db := repo.exec(exec)
	q := db.Rebind("INSERT INTO certificates (" + certificateColumns + ") VALUES (?, ?, ?, ?, ?, ?)")
	_, err := db.ExecContext(ctx, q, cert.ID, cert.Hash, cert.OwnerID, cert.CourseID, cert.LearnerID, cert.CreatedAt.UTC())
	if database.IsUniqueViolation(err) {
		return certificate.ErrDuplicate
	}
	return errors.Wrap(err, "inserting certificate")
}

func (repo *certificateRepository) CreateActivity(ctx context.Context, act certificate.Activity, exec ...core.DBExecutor) error {
	db := repo.exec(exec)
	q := db.Rebind(`INSERT INTO certificate_activities (id, certificate_id, user_id, type, data, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`)
	_, err := db.ExecContext(ctx, q, act.ID, act.CertificateID, act.UserID, act.Type, act.Data, act.CreatedAt.UTC())
	return err
}
