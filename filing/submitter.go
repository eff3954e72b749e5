// Package filing turns a validated form payload into a gateway submission
// and a Pending row in the store. Form-specific request shapes and their
// field validation live with the callers; this layer owns the
// FormSubmission wrapper, submission-number allocation and the receipt.
package filing

import (
	"context"
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/opencorp/filing-gateway/govtalk"
	"github.com/opencorp/filing-gateway/store"
)

// SubmissionRequest is one already-validated form filing.
type SubmissionRequest struct {
	CompanyNumber      string
	CompanyType        string
	CompanyName        string
	AuthenticationCode string
	Language           govtalk.SubmissionLanguage
	CustomerReference  string
	ContactName        string
	ContactNumber      string
	DateSigned         time.Time

	// Class is the remote transaction class, FormIdentifier the form code
	// within it, Form the concrete form body.
	Class          string
	FormIdentifier string
	Form           any
	Documents      []govtalk.FormDocument
}

// Receipt identifies a successfully lodged submission.
type Receipt struct {
	TransactionID    string
	SubmissionID     uuid.UUID
	SubmissionNumber string
}

type Submitter struct {
	logger           logrus.FieldLogger
	transactor       govtalk.Transactor
	store            store.Store
	packageReference string
	rng              *rand.Rand
}

func NewSubmitter(logger logrus.FieldLogger, transactor govtalk.Transactor, st store.Store, packageReference string) *Submitter {
	return &Submitter{
		logger:           logger,
		transactor:       transactor,
		store:            st,
		packageReference: packageReference,
		rng:              rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Submit allocates a submission number, lodges the form and records the
// Pending submission. Remote failures surface synchronously with the
// transaction identifier so the caller can correlate raw logs.
func (s *Submitter) Submit(ctx context.Context, req *SubmissionRequest) (*Receipt, error) {
	if l := len(req.CompanyName); l < 3 || l > 160 {
		return nil, errors.New("invalid company name length")
	}
	if l := len(req.AuthenticationCode); l < 6 || l > 8 {
		return nil, errors.New("company authentication code of the wrong length")
	}

	number, err := store.GenerateSubmissionNumber(ctx, s.store, s.rng)
	if err != nil {
		return nil, err
	}

	header := govtalk.FormHeader{
		CompanyNumber:      req.CompanyNumber,
		CompanyType:        req.CompanyType,
		CompanyName:        strings.ToUpper(req.CompanyName),
		AuthenticationCode: req.AuthenticationCode,
		PackageReference:   s.packageReference,
		Language:           req.Language,
		FormIdentifier:     req.FormIdentifier,
		SubmissionNumber:   number,
		CustomerReference:  req.CustomerReference,
	}
	if req.ContactName != "" || req.ContactNumber != "" {
		header.ContactName = req.ContactName
		header.ContactNumber = req.ContactNumber
	}

	res, err := s.transactor.Execute(ctx, req.Class, govtalk.FormSubmission{
		FormHeader: header,
		DateSigned: govtalk.Date{Time: req.DateSigned},
		Form:       govtalk.Form{Payload: req.Form},
		Documents:  req.Documents,
	})
	if err != nil {
		return nil, err
	}

	companyNumber := req.CompanyType + req.CompanyNumber
	sub := &store.Submission{
		ID:                uuid.New(),
		SubmissionNumber:  number,
		CompanyNumber:     &companyNumber,
		ReceivedAt:        res.GatewayTimestamp,
		CustomerReference: optional(req.CustomerReference),
		Status:            store.StatusPending,
	}
	if err := s.store.InsertSubmission(ctx, sub); err != nil {
		return nil, errors.Wrap(err, "saving submission")
	}

	s.logger.WithFields(logrus.Fields{
		"submission_number": number,
		"transaction_id":    res.TransactionID,
	}).Info("Submission lodged")

	return &Receipt{
		TransactionID:    res.TransactionID,
		SubmissionID:     sub.ID,
		SubmissionNumber: number,
	}, nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
