package watcher

import (
	"context"
	"encoding/base64"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opencorp/filing-gateway/govtalk"
	"github.com/opencorp/filing-gateway/store"
)

type docTransactor struct {
	doc  *govtalk.Document
	body any
	err  error
	keys []string
}

func (d *docTransactor) Execute(ctx context.Context, class string, payload any) (*govtalk.Result, error) {
	req, ok := payload.(govtalk.GetDocument)
	if ok {
		d.keys = append(d.keys, req.DocRequestKey)
	}
	if d.err != nil {
		return nil, d.err
	}
	if d.body != nil {
		return &govtalk.Result{Body: d.body}, nil
	}
	return &govtalk.Result{Body: d.doc}, nil
}

type docStore struct {
	fakeStore
	docs      []*store.Document
	insertErr error
}

func (d *docStore) InsertDocument(ctx context.Context, doc *store.Document) error {
	if d.insertErr != nil {
		return d.insertErr
	}
	d.docs = append(d.docs, doc)
	return nil
}

func testDocument(contents string) *govtalk.Document {
	date := govtalk.Date{Time: time.Date(2026, 5, 4, 0, 0, 0, 0, time.UTC)}
	return &govtalk.Document{
		CompanyNumber: "12345678",
		DocumentDate:  &date,
		DocumentType:  "NEWINC",
		DocumentID:    "DOC-1",
		DocumentData: govtalk.DocumentData{
			ContentType:     govtalk.ContentTypePDF,
			ContentEncoding: govtalk.ContentEncodingBase64,
			Filename:        "certificate.pdf",
			Contents:        contents,
		},
	}
}

func TestFetchDocument(t *testing.T) {
	payload := []byte("%PDF-1.4 pretend")
	tr := &docTransactor{doc: testDocument(base64.StdEncoding.EncodeToString(payload))}
	st := &docStore{}
	fs := afero.NewMemMapFs()
	f := NewFetcher(logrus.StandardLogger(), tr, st, fs, "/documents")

	id, err := f.FetchDocument(context.Background(), "KEY-1")
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, id)
	assert.Equal(t, []string{"KEY-1"}, tr.keys)

	require.Len(t, st.docs, 1)
	doc := st.docs[0]
	assert.Equal(t, id, doc.ID)
	assert.Equal(t, "12345678", doc.CompanyNumber)
	assert.Equal(t, "NEWINC", doc.DocumentType)
	assert.Equal(t, "DOC-1", doc.RemoteID)
	assert.Equal(t, "certificate.pdf", doc.OriginalFilename)
	assert.Contains(t, doc.StorageFilename, ".pdf")

	stored, err := afero.ReadFile(fs, "/documents/"+doc.StorageFilename)
	require.NoError(t, err)
	assert.Equal(t, payload, stored)
}

func TestFetchDocumentNewlineWrappedContents(t *testing.T) {
	payload := []byte("wrapped across lines")
	encoded := base64.StdEncoding.EncodeToString(payload)
	wrapped := encoded[:8] + "\n" + encoded[8:16] + "\n" + encoded[16:]
	tr := &docTransactor{doc: testDocument(wrapped)}
	st := &docStore{}
	fs := afero.NewMemMapFs()
	f := NewFetcher(logrus.StandardLogger(), tr, st, fs, "/documents")

	_, err := f.FetchDocument(context.Background(), "KEY-1")
	require.NoError(t, err)

	require.Len(t, st.docs, 1)
	stored, err := afero.ReadFile(fs, "/documents/"+st.docs[0].StorageFilename)
	require.NoError(t, err)
	assert.Equal(t, payload, stored)
}

func TestFetchDocumentTwiceStoresTwice(t *testing.T) {
	tr := &docTransactor{doc: testDocument(base64.StdEncoding.EncodeToString([]byte("x")))}
	st := &docStore{}
	fs := afero.NewMemMapFs()
	f := NewFetcher(logrus.StandardLogger(), tr, st, fs, "/documents")

	first, err := f.FetchDocument(context.Background(), "KEY-1")
	require.NoError(t, err)
	second, err := f.FetchDocument(context.Background(), "KEY-1")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	require.Len(t, st.docs, 2)
	assert.NotEqual(t, st.docs[0].StorageFilename, st.docs[1].StorageFilename)
}

func TestFetchDocumentTransactionFailure(t *testing.T) {
	tr := &docTransactor{err: &govtalk.TransactionError{TransactionID: "T", Errors: []govtalk.RemoteError{{Code: 1}}}}
	f := NewFetcher(logrus.StandardLogger(), tr, &docStore{}, afero.NewMemMapFs(), "/documents")

	_, err := f.FetchDocument(context.Background(), "KEY-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "document request failed")
}

func TestFetchDocumentMismatchedBody(t *testing.T) {
	tr := &docTransactor{body: &govtalk.SubmissionStatus{}}
	f := NewFetcher(logrus.StandardLogger(), tr, &docStore{}, afero.NewMemMapFs(), "/documents")

	_, err := f.FetchDocument(context.Background(), "KEY-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mismatched response body")
}

func TestFetchDocumentUnsupportedContentType(t *testing.T) {
	doc := testDocument("aGk=")
	doc.DocumentData.ContentType = "image/png"
	tr := &docTransactor{doc: doc}
	f := NewFetcher(logrus.StandardLogger(), tr, &docStore{}, afero.NewMemMapFs(), "/documents")

	_, err := f.FetchDocument(context.Background(), "KEY-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported content type")
}

func TestFetchDocumentUnsupportedEncoding(t *testing.T) {
	doc := testDocument("aGk=")
	doc.DocumentData.ContentEncoding = "gzip"
	tr := &docTransactor{doc: doc}
	f := NewFetcher(logrus.StandardLogger(), tr, &docStore{}, afero.NewMemMapFs(), "/documents")

	_, err := f.FetchDocument(context.Background(), "KEY-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported content encoding")
}

func TestFetchDocumentBadBase64(t *testing.T) {
	tr := &docTransactor{doc: testDocument("!!! not base64 !!!")}
	st := &docStore{}
	f := NewFetcher(logrus.StandardLogger(), tr, st, afero.NewMemMapFs(), "/documents")

	_, err := f.FetchDocument(context.Background(), "KEY-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid document encoding")
	assert.Empty(t, st.docs)
}
