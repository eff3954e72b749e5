package govtalk

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// ErrCodeNoStatusAvailable is reported by the gateway when a status poll
// finds nothing waiting. It is a quiet no-op, not a fault.
const ErrCodeNoStatusAvailable = 8026

// RemoteError is one structured error triple reported by the remote system
// or synthesized for a local failure.
type RemoteError struct {
	RaisedBy string
	Code     int
	Message  string
}

// Result is a successful transaction outcome. Warnings carries any
// non-fatal errors the gateway attached to a non-error response.
type Result struct {
	TransactionID    string
	GatewayTimestamp time.Time
	Warnings         []RemoteError
	Body             any
}

// TransactionError is the failure outcome of a transaction. It always
// carries the transaction identifier that was (or would have been) used, so
// a failed call can be correlated with the raw envelope logs.
type TransactionError struct {
	TransactionID string
	Errors        []RemoteError
}

func (e *TransactionError) Error() string {
	msgs := make([]string, 0, len(e.Errors))
	for _, re := range e.Errors {
		msgs = append(msgs, re.Message)
	}
	return fmt.Sprintf("transaction %s: %s", e.TransactionID, strings.Join(msgs, "; "))
}

// AllCode reports whether every carried error has the given code. False for
// an empty error list.
func (e *TransactionError) AllCode(code int) bool {
	if len(e.Errors) == 0 {
		return false
	}
	for _, re := range e.Errors {
		if re.Code != code {
			return false
		}
	}
	return true
}

func localError(transactionID, raisedBy string, err error) *TransactionError {
	return &TransactionError{
		TransactionID: transactionID,
		Errors:        []RemoteError{{RaisedBy: raisedBy, Code: 0, Message: err.Error()}},
	}
}

// Transactor executes one gateway transaction. Implemented by Client;
// narrow on purpose so the watcher and filing layers can be tested against
// fakes.
type Transactor interface {
	Execute(ctx context.Context, class string, payload any) (*Result, error)
}

// Client executes transactions against a single fixed gateway endpoint.
// It never retries: retry policy belongs to the caller, and for status
// polling it falls out of the watcher's next tick.
type Client struct {
	endpoint   string
	creds      *Credentials
	httpClient *http.Client
	logger     logrus.FieldLogger

	now func() time.Time
}

func NewClient(logger logrus.FieldLogger, endpoint string, creds *Credentials, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		endpoint:   endpoint,
		creds:      creds,
		httpClient: httpClient,
		logger:     logger,
		now:        time.Now,
	}
}

var _ Transactor = (*Client)(nil)

// Execute runs one request/response cycle: encode, POST, decode, classify.
// Every returned error is a *TransactionError tagged with the transaction
// identifier generated at the top of the call.
func (c *Client) Execute(ctx context.Context, class string, payload any) (*Result, error) {
	transactionID := NewTransactionID()
	logger := c.logger.WithFields(logrus.Fields{"class": class, "transaction_id": transactionID})

	reqBody, err := Marshal(newRequest(c.creds, class, transactionID, payload))
	if err != nil {
		return nil, localError(transactionID, "encoder", err)
	}

	// Raw envelopes are logged verbatim for audit. Credentials are hashed
	// at construction, so no clear secret reaches the log.
	logger.Debugf("sending envelope: %s", reqBody)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(reqBody))
	if err != nil {
		return nil, localError(transactionID, "transport", err)
	}
	req.Header.Set("Content-Type", "text/xml")

	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, localError(transactionID, "transport", err)
	}
	defer res.Body.Close()
	resBody, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, localError(transactionID, "transport", err)
	}

	logger.Debugf("received envelope: %s", resBody)

	msg, err := Decode(resBody)
	if err != nil {
		return nil, localError(transactionID, "decoder", err)
	}

	var remoteErrors []RemoteError
	if msg.Details.Errors != nil {
		for _, re := range msg.Details.Errors.Errors {
			remoteErrors = append(remoteErrors, RemoteError{
				RaisedBy: re.RaisedBy,
				Code:     re.Number,
				Message:  strings.Join(re.Text, "; "),
			})
		}
	}

	if msg.Header.MessageDetails.Qualifier == QualifierError {
		return nil, &TransactionError{TransactionID: transactionID, Errors: remoteErrors}
	}

	// A missing gateway timestamp is tolerated protocol looseness.
	timestamp := c.now().UTC()
	if msg.Header.MessageDetails.GatewayTimestamp != nil {
		timestamp = msg.Header.MessageDetails.GatewayTimestamp.Time
	}

	result := &Result{
		TransactionID:    transactionID,
		GatewayTimestamp: timestamp,
		Warnings:         remoteErrors,
	}
	if msg.Body != nil {
		result.Body = msg.Body.Payload
	}
	return result, nil
}
