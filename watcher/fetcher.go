// Package watcher reconciles polled submission statuses into the store and
// retrieves the documents they reference.
package watcher

import (
	"context"
	"encoding/base64"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/opencorp/filing-gateway/govtalk"
	"github.com/opencorp/filing-gateway/store"
)

// DocumentFetcher exchanges a document request key for a stored local
// document, returning its new internal identifier.
type DocumentFetcher interface {
	FetchDocument(ctx context.Context, key string) (uuid.UUID, error)
}

// Fetcher retrieves documents through the gateway and lands them in the
// content store plus a metadata row.
//
// Not idempotent: fetching the same key twice creates two local documents
// under two storage filenames. Callers fetch each reference exactly once.
type Fetcher struct {
	logger     logrus.FieldLogger
	transactor govtalk.Transactor
	store      store.Store
	fs         afero.Fs
	root       string
}

var _ DocumentFetcher = (*Fetcher)(nil)

func NewFetcher(logger logrus.FieldLogger, transactor govtalk.Transactor, st store.Store, fs afero.Fs, root string) *Fetcher {
	return &Fetcher{
		logger:     logger,
		transactor: transactor,
		store:      st,
		fs:         fs,
		root:       root,
	}
}

func (f *Fetcher) FetchDocument(ctx context.Context, key string) (uuid.UUID, error) {
	res, err := f.transactor.Execute(ctx, "GetDocument", govtalk.GetDocument{DocRequestKey: key})
	if err != nil {
		return uuid.Nil, errors.Wrap(err, "document request failed")
	}
	doc, ok := res.Body.(*govtalk.Document)
	if !ok {
		return uuid.Nil, errors.Errorf("mismatched response body %T for document request", res.Body)
	}

	ext, err := extensionFor(doc.DocumentData.ContentType)
	if err != nil {
		return uuid.Nil, err
	}
	if doc.DocumentData.ContentEncoding != govtalk.ContentEncodingBase64 {
		return uuid.Nil, errors.Errorf("unsupported content encoding %q", doc.DocumentData.ContentEncoding)
	}
	filename := fmt.Sprintf("%s.%s", uuid.New(), ext)

	contents, err := base64.StdEncoding.DecodeString(strings.ReplaceAll(doc.DocumentData.Contents, "\n", ""))
	if err != nil {
		return uuid.Nil, errors.Wrap(err, "invalid document encoding")
	}
	if err := afero.WriteFile(f.fs, filepath.Join(f.root, filename), contents, 0o644); err != nil {
		return uuid.Nil, errors.Wrap(err, "saving document")
	}

	date := time.Now().UTC()
	if doc.DocumentDate != nil {
		date = doc.DocumentDate.Time
	}
	record := &store.Document{
		ID:               uuid.New(),
		CompanyNumber:    doc.CompanyNumber,
		DocumentDate:     date,
		DocumentType:     doc.DocumentType,
		RemoteID:         doc.DocumentID,
		OriginalFilename: doc.DocumentData.Filename,
		StorageFilename:  filename,
	}
	if err := f.store.InsertDocument(ctx, record); err != nil {
		return uuid.Nil, errors.Wrap(err, "recording document")
	}

	f.logger.WithFields(logrus.Fields{
		"document_id": record.ID,
		"remote_id":   record.RemoteID,
		"filename":    filename,
	}).Debug("Document stored")

	return record.ID, nil
}

func extensionFor(ct govtalk.ContentType) (string, error) {
	switch ct {
	case govtalk.ContentTypePDF:
		return "pdf", nil
	}
	return "", errors.Errorf("unsupported content type %q", ct)
}
