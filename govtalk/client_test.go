package govtalk

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)
	creds := NewCredentials("presenter@example.com", "PRES1", "SECRET", false)
	return NewClient(logrus.StandardLogger(), ts.URL, creds, ts.Client())
}

func TestClientExecuteResponse(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "text/xml", r.Header.Get("Content-Type"))
		w.Write([]byte(`<?xml version="1.0"?>
<GovTalkMessage xmlns="http://www.govtalk.gov.uk/CM/envelope">
  <EnvelopeVersion>1.0</EnvelopeVersion>
  <Header>
    <MessageDetails>
      <Class>GetSubmissionStatus</Class>
      <Qualifier>response</Qualifier>
      <GatewayTimestamp>2026-05-04T10:20:30Z</GatewayTimestamp>
    </MessageDetails>
  </Header>
  <GovTalkDetails/>
  <Body>
    <SubmissionStatus>
      <Status>
        <SubmissionNumber>A1B2C3</SubmissionNumber>
        <StatusCode>ACCEPT</StatusCode>
      </Status>
    </SubmissionStatus>
  </Body>
</GovTalkMessage>`))
	})

	res, err := client.Execute(context.Background(), "GetSubmissionStatus", GetSubmissionStatus{PresenterID: "PRES1"})
	require.NoError(t, err)

	assert.Len(t, res.TransactionID, 32)
	assert.Equal(t, time.Date(2026, 5, 4, 10, 20, 30, 0, time.UTC), res.GatewayTimestamp)
	assert.Empty(t, res.Warnings)

	body, ok := res.Body.(*SubmissionStatus)
	require.True(t, ok)
	require.Len(t, body.Status, 1)
	assert.Equal(t, StatusCodeAccepted, body.Status[0].StatusCode)
}

func TestClientExecuteErrorQualifier(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<?xml version="1.0"?>
<GovTalkMessage xmlns="http://www.govtalk.gov.uk/CM/envelope">
  <EnvelopeVersion>1.0</EnvelopeVersion>
  <Header>
    <MessageDetails>
      <Class>GetSubmissionStatus</Class>
      <Qualifier>error</Qualifier>
    </MessageDetails>
  </Header>
  <GovTalkDetails>
    <GovTalkErrors>
      <Error>
        <RaisedBy>GovTalk</RaisedBy>
        <Number>8026</Number>
        <Type>business</Type>
        <Text>No status available</Text>
      </Error>
    </GovTalkErrors>
  </GovTalkDetails>
</GovTalkMessage>`))
	})

	_, err := client.Execute(context.Background(), "GetSubmissionStatus", GetSubmissionStatus{PresenterID: "PRES1"})
	require.Error(t, err)

	terr, ok := err.(*TransactionError)
	require.True(t, ok)
	assert.Len(t, terr.TransactionID, 32)
	require.Len(t, terr.Errors, 1)
	assert.Equal(t, 8026, terr.Errors[0].Code)
	assert.Equal(t, "No status available", terr.Errors[0].Message)
	assert.True(t, terr.AllCode(ErrCodeNoStatusAvailable))
	assert.Contains(t, terr.Error(), "No status available")
}

func TestClientExecuteWarnings(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<?xml version="1.0"?>
<GovTalkMessage xmlns="http://www.govtalk.gov.uk/CM/envelope">
  <EnvelopeVersion>1.0</EnvelopeVersion>
  <Header>
    <MessageDetails>
      <Class>StatusAck</Class>
      <Qualifier>response</Qualifier>
    </MessageDetails>
  </Header>
  <GovTalkDetails>
    <GovTalkErrors>
      <Error>
        <RaisedBy>CH</RaisedBy>
        <Number>100</Number>
        <Type>warning</Type>
        <Text>Deprecation notice</Text>
      </Error>
    </GovTalkErrors>
  </GovTalkDetails>
  <Body><status/></Body>
</GovTalkMessage>`))
	})

	res, err := client.Execute(context.Background(), "StatusAck", StatusAck{})
	require.NoError(t, err)
	require.Len(t, res.Warnings, 1)
	assert.Equal(t, 100, res.Warnings[0].Code)
}

func TestClientExecuteTimestampDefault(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<?xml version="1.0"?>
<GovTalkMessage xmlns="http://www.govtalk.gov.uk/CM/envelope">
  <EnvelopeVersion>1.0</EnvelopeVersion>
  <Header>
    <MessageDetails>
      <Class>StatusAck</Class>
      <Qualifier>response</Qualifier>
    </MessageDetails>
  </Header>
  <GovTalkDetails/>
  <Body><status/></Body>
</GovTalkMessage>`))
	})

	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	client.now = func() time.Time { return fixed }

	res, err := client.Execute(context.Background(), "StatusAck", StatusAck{})
	require.NoError(t, err)
	assert.Equal(t, fixed, res.GatewayTimestamp)
}

func TestClientExecuteTransportError(t *testing.T) {
	creds := NewCredentials("presenter@example.com", "PRES1", "SECRET", false)
	client := NewClient(logrus.StandardLogger(), "http://127.0.0.1:1", creds, nil)

	_, err := client.Execute(context.Background(), "StatusAck", StatusAck{})
	require.Error(t, err)

	terr, ok := err.(*TransactionError)
	require.True(t, ok)
	assert.Len(t, terr.TransactionID, 32)
	require.Len(t, terr.Errors, 1)
	assert.Equal(t, "transport", terr.Errors[0].RaisedBy)
	assert.Equal(t, 0, terr.Errors[0].Code)
}

func TestClientExecuteEncoderError(t *testing.T) {
	creds := NewCredentials("presenter@example.com", "PRES1", "SECRET", false)
	client := NewClient(logrus.StandardLogger(), "http://127.0.0.1:1", creds, nil)

	_, err := client.Execute(context.Background(), "Bogus", struct{ A string }{})
	require.Error(t, err)

	terr, ok := err.(*TransactionError)
	require.True(t, ok)
	assert.Equal(t, "encoder", terr.Errors[0].RaisedBy)
}

func TestClientExecuteDecoderError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`not xml at all`))
	})

	_, err := client.Execute(context.Background(), "StatusAck", StatusAck{})
	require.Error(t, err)

	terr, ok := err.(*TransactionError)
	require.True(t, ok)
	assert.Equal(t, "decoder", terr.Errors[0].RaisedBy)
}

func TestTransactionErrorAllCodeEmpty(t *testing.T) {
	terr := &TransactionError{TransactionID: "X"}
	assert.False(t, terr.AllCode(ErrCodeNoStatusAvailable))
}
