package filing

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opencorp/filing-gateway/govtalk"
	"github.com/opencorp/filing-gateway/store"
)

type fakeTransactor struct {
	result *govtalk.Result
	err    error

	class   string
	payload any
}

func (f *fakeTransactor) Execute(ctx context.Context, class string, payload any) (*govtalk.Result, error) {
	f.class = class
	f.payload = payload
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

type fakeStore struct {
	inserted  []*store.Submission
	insertErr error
}

func (f *fakeStore) CountPending(ctx context.Context) (int64, error) { return 0, nil }

func (f *fakeStore) CountRecentSubmissionNumber(ctx context.Context, number string, since time.Time) (int64, error) {
	return 0, nil
}

func (f *fakeStore) InsertSubmission(ctx context.Context, sub *store.Submission) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	f.inserted = append(f.inserted, sub)
	return nil
}

func (f *fakeStore) GetSubmissionByNumber(ctx context.Context, number string) (*store.Submission, error) {
	return nil, nil
}

func (f *fakeStore) UpdateSubmission(ctx context.Context, sub *store.Submission, rejections []store.SubmissionRejection) error {
	return nil
}

func (f *fakeStore) InsertDocument(ctx context.Context, doc *store.Document) error { return nil }

func changeOfNameRequest() *SubmissionRequest {
	return &SubmissionRequest{
		CompanyNumber:      "01234567",
		CompanyType:        "",
		CompanyName:        "Example Limited",
		AuthenticationCode: "SECRET7",
		Language:           govtalk.LanguageEnglish,
		CustomerReference:  "CUST-9",
		DateSigned:         time.Date(2026, 5, 4, 0, 0, 0, 0, time.UTC),
		Class:              "ChangeOfName",
		FormIdentifier:     "ChangeOfName",
		Form: govtalk.ChangeOfName{
			MethodOfChange:      govtalk.MethodResolution,
			ProposedCompanyName: "RENAMED LIMITED",
			NoticeGiven:         true,
		},
	}
}

func TestSubmit(t *testing.T) {
	ts := time.Date(2026, 5, 4, 10, 20, 30, 0, time.UTC)
	tr := &fakeTransactor{result: &govtalk.Result{TransactionID: "TX1", GatewayTimestamp: ts}}
	st := &fakeStore{}
	s := NewSubmitter(logrus.StandardLogger(), tr, st, "PKG-1")

	receipt, err := s.Submit(context.Background(), changeOfNameRequest())
	require.NoError(t, err)

	assert.Equal(t, "TX1", receipt.TransactionID)
	assert.Len(t, receipt.SubmissionNumber, 6)

	assert.Equal(t, "ChangeOfName", tr.class)
	form, ok := tr.payload.(govtalk.FormSubmission)
	require.True(t, ok)
	assert.Equal(t, "EXAMPLE LIMITED", form.FormHeader.CompanyName)
	assert.Equal(t, "PKG-1", form.FormHeader.PackageReference)
	assert.Equal(t, receipt.SubmissionNumber, form.FormHeader.SubmissionNumber)
	assert.Equal(t, "", form.FormHeader.ContactName)

	require.Len(t, st.inserted, 1)
	sub := st.inserted[0]
	assert.Equal(t, receipt.SubmissionID, sub.ID)
	assert.Equal(t, receipt.SubmissionNumber, sub.SubmissionNumber)
	assert.Equal(t, store.StatusPending, sub.Status)
	assert.Equal(t, ts, sub.ReceivedAt)
	require.NotNil(t, sub.CompanyNumber)
	assert.Equal(t, "01234567", *sub.CompanyNumber)
	require.NotNil(t, sub.CustomerReference)
	assert.Equal(t, "CUST-9", *sub.CustomerReference)
}

func TestSubmitCompanyTypePrefix(t *testing.T) {
	tr := &fakeTransactor{result: &govtalk.Result{TransactionID: "TX1"}}
	st := &fakeStore{}
	s := NewSubmitter(logrus.StandardLogger(), tr, st, "PKG-1")

	req := changeOfNameRequest()
	req.CompanyType = "NI"
	req.CompanyNumber = "123456"

	_, err := s.Submit(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, st.inserted, 1)
	assert.Equal(t, "NI123456", *st.inserted[0].CompanyNumber)
}

func TestSubmitRemoteFailure(t *testing.T) {
	tr := &fakeTransactor{err: &govtalk.TransactionError{
		TransactionID: "TX9",
		Errors:        []govtalk.RemoteError{{Code: 502, Message: "schema failure"}},
	}}
	st := &fakeStore{}
	s := NewSubmitter(logrus.StandardLogger(), tr, st, "PKG-1")

	_, err := s.Submit(context.Background(), changeOfNameRequest())
	require.Error(t, err)

	terr, ok := err.(*govtalk.TransactionError)
	require.True(t, ok)
	assert.Equal(t, "TX9", terr.TransactionID)
	assert.Empty(t, st.inserted)
}

func TestSubmitValidation(t *testing.T) {
	tr := &fakeTransactor{result: &govtalk.Result{}}
	s := NewSubmitter(logrus.StandardLogger(), tr, &fakeStore{}, "PKG-1")

	short := changeOfNameRequest()
	short.CompanyName = "AB"
	_, err := s.Submit(context.Background(), short)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "company name")

	long := changeOfNameRequest()
	long.CompanyName = strings.Repeat("A", 161)
	_, err = s.Submit(context.Background(), long)
	require.Error(t, err)

	badCode := changeOfNameRequest()
	badCode.AuthenticationCode = "12345"
	_, err = s.Submit(context.Background(), badCode)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "authentication code")

	assert.Equal(t, "", tr.class)
}

func TestSubmitContactsIncluded(t *testing.T) {
	tr := &fakeTransactor{result: &govtalk.Result{TransactionID: "TX1"}}
	s := NewSubmitter(logrus.StandardLogger(), tr, &fakeStore{}, "PKG-1")

	req := changeOfNameRequest()
	req.ContactName = "Jo Bloggs"
	req.ContactNumber = "020 7946 0000"

	_, err := s.Submit(context.Background(), req)
	require.NoError(t, err)

	form := tr.payload.(govtalk.FormSubmission)
	assert.Equal(t, "Jo Bloggs", form.FormHeader.ContactName)
	assert.Equal(t, "020 7946 0000", form.FormHeader.ContactNumber)
}
