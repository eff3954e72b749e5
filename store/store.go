// Package store persists submissions, their rejections and retrieved
// documents in Postgres. Each logical unit of work runs in one transaction;
// the status update plus its rejection rows is the only multi-row unit.
package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
)

// Status is the local submission lifecycle state. Pending is the only
// non-terminal value; terminal states may be re-applied idempotently by a
// repeated remote report.
type Status string

const (
	StatusPending         Status = "pending"
	StatusAccepted        Status = "accepted"
	StatusRejected        Status = "rejected"
	StatusParked          Status = "parked"
	StatusInternalFailure Status = "internal_failure"
)

// Submission is one filed transaction. SubmissionNumber is the remote-facing
// 6-character identifier and the join key for polled status reports; ID is
// the local identity.
type Submission struct {
	ID                 uuid.UUID
	SubmissionNumber   string
	CompanyNumber      *string
	ReceivedAt         time.Time
	CustomerReference  *string
	Status             Status
	RejectReference    *string
	ExaminerTelephone  *string
	ExaminerComment    *string
	DocumentID         *uuid.UUID
	IncorporationDate  *time.Time
	AuthenticationCode *string
	ChargeCode         *string
}

// SubmissionRejection is one reject reason reported with a rejected status.
// Append-only.
type SubmissionRejection struct {
	ID             uuid.UUID
	SubmissionID   uuid.UUID
	Code           int
	Description    string
	InstanceNumber *int
}

// Document is the metadata record of one fetched document. The content
// itself lives in the document store under StorageFilename.
type Document struct {
	ID               uuid.UUID
	CompanyNumber    string
	DocumentDate     time.Time
	DocumentType     string
	RemoteID         string
	OriginalFilename string
	StorageFilename  string
}

// Store is what the watcher and filing layers need from persistence. The
// Postgres implementation below is the production one; tests use fakes.
type Store interface {
	CountPending(ctx context.Context) (int64, error)
	CountRecentSubmissionNumber(ctx context.Context, number string, since time.Time) (int64, error)
	InsertSubmission(ctx context.Context, sub *Submission) error
	GetSubmissionByNumber(ctx context.Context, number string) (*Submission, error)
	UpdateSubmission(ctx context.Context, sub *Submission, rejections []SubmissionRejection) error
	InsertDocument(ctx context.Context, doc *Document) error
}

// Postgres is the pgx-backed store.
type Postgres struct {
	pool *pgxpool.Pool
}

var _ Store = (*Postgres)(nil)

// NewPostgres wraps a pool and bootstraps the schema.
func NewPostgres(ctx context.Context, pool *pgxpool.Pool) (*Postgres, error) {
	s := &Postgres{pool: pool}
	if err := s.ensureSchema(ctx); err != nil {
		return nil, errors.Wrap(err, "ensure schema")
	}
	return s, nil
}

func (s *Postgres) ensureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS documents (
			id                UUID PRIMARY KEY,
			company_number    TEXT NOT NULL,
			document_date     DATE NOT NULL,
			document_type     TEXT NOT NULL,
			remote_id         TEXT NOT NULL,
			original_filename TEXT NOT NULL,
			storage_filename  TEXT NOT NULL
		);
		CREATE TABLE IF NOT EXISTS submissions (
			id                  UUID PRIMARY KEY,
			submission_number   VARCHAR(6) NOT NULL,
			company_number      TEXT,
			received_at         TIMESTAMPTZ NOT NULL,
			customer_reference  TEXT,
			status              TEXT NOT NULL,
			reject_reference    TEXT,
			examiner_telephone  TEXT,
			examiner_comment    TEXT,
			document_id         UUID REFERENCES documents(id),
			incorporation_date  DATE,
			authentication_code TEXT,
			charge_code         TEXT
		);
		CREATE INDEX IF NOT EXISTS idx_submissions_number ON submissions(submission_number);
		CREATE INDEX IF NOT EXISTS idx_submissions_status ON submissions(status);
		CREATE TABLE IF NOT EXISTS submission_rejections (
			id              UUID PRIMARY KEY,
			submission_id   UUID NOT NULL REFERENCES submissions(id),
			code            INTEGER NOT NULL,
			description     TEXT NOT NULL,
			instance_number INTEGER
		);
	`)
	return err
}

func (s *Postgres) CountPending(ctx context.Context) (int64, error) {
	var n int64
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM submissions WHERE status = $1`, StatusPending,
	).Scan(&n)
	return n, err
}

func (s *Postgres) CountRecentSubmissionNumber(ctx context.Context, number string, since time.Time) (int64, error) {
	var n int64
	err := s.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM submissions
		WHERE submission_number = $1 AND received_at >= $2
	`, number, since).Scan(&n)
	return n, err
}

func (s *Postgres) InsertSubmission(ctx context.Context, sub *Submission) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO submissions
			(id, submission_number, company_number, received_at, customer_reference,
			 status, reject_reference, examiner_telephone, examiner_comment,
			 document_id, incorporation_date, authentication_code, charge_code)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`, sub.ID, sub.SubmissionNumber, sub.CompanyNumber, sub.ReceivedAt,
		sub.CustomerReference, sub.Status, sub.RejectReference,
		sub.ExaminerTelephone, sub.ExaminerComment, sub.DocumentID,
		sub.IncorporationDate, sub.AuthenticationCode, sub.ChargeCode)
	return err
}

func (s *Postgres) GetSubmissionByNumber(ctx context.Context, number string) (*Submission, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, submission_number, company_number, received_at,
		       customer_reference, status, reject_reference,
		       examiner_telephone, examiner_comment, document_id,
		       incorporation_date, authentication_code, charge_code
		FROM submissions
		WHERE submission_number = $1
	`, number)
	var sub Submission
	err := row.Scan(
		&sub.ID, &sub.SubmissionNumber, &sub.CompanyNumber, &sub.ReceivedAt,
		&sub.CustomerReference, &sub.Status, &sub.RejectReference,
		&sub.ExaminerTelephone, &sub.ExaminerComment, &sub.DocumentID,
		&sub.IncorporationDate, &sub.AuthenticationCode, &sub.ChargeCode,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

// UpdateSubmission writes the submission row and its new rejection rows in
// one transaction, so a crash mid-update never leaves a partial rejection
// set behind.
func (s *Postgres) UpdateSubmission(ctx context.Context, sub *Submission, rejections []SubmissionRejection) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		UPDATE submissions SET
			company_number = $2, customer_reference = $3, status = $4,
			reject_reference = $5, examiner_telephone = $6,
			examiner_comment = $7, document_id = $8, incorporation_date = $9,
			authentication_code = $10, charge_code = $11
		WHERE id = $1
	`, sub.ID, sub.CompanyNumber, sub.CustomerReference, sub.Status,
		sub.RejectReference, sub.ExaminerTelephone, sub.ExaminerComment,
		sub.DocumentID, sub.IncorporationDate, sub.AuthenticationCode,
		sub.ChargeCode)
	if err != nil {
		return err
	}

	for _, r := range rejections {
		_, err = tx.Exec(ctx, `
			INSERT INTO submission_rejections
				(id, submission_id, code, description, instance_number)
			VALUES ($1, $2, $3, $4, $5)
		`, r.ID, r.SubmissionID, r.Code, r.Description, r.InstanceNumber)
		if err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

func (s *Postgres) InsertDocument(ctx context.Context, doc *Document) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO documents
			(id, company_number, document_date, document_type, remote_id,
			 original_filename, storage_filename)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, doc.ID, doc.CompanyNumber, doc.DocumentDate, doc.DocumentType,
		doc.RemoteID, doc.OriginalFilename, doc.StorageFilename)
	return err
}
