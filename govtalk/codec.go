package govtalk

import (
	"bytes"
	"encoding/hex"
	"encoding/xml"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// NewTransactionID returns a fresh 128-bit transaction identifier rendered
// as 32 uppercase hex characters, the widest form the envelope schema
// allows.
func NewTransactionID() string {
	u := uuid.New()
	return strings.ToUpper(hex.EncodeToString(u[:]))
}

// Encode builds a request-qualified envelope around the given payload with
// a freshly generated transaction identifier. Pure data transformation; the
// payload must be a registered request body.
func Encode(creds *Credentials, class string, payload any) (*Message, error) {
	return newRequest(creds, class, NewTransactionID(), payload), nil
}

func newRequest(creds *Credentials, class, transactionID string, payload any) *Message {
	details := MessageDetails{
		Class:         class,
		Qualifier:     QualifierRequest,
		TransactionID: transactionID,
	}
	if creds.Test() {
		details.GatewayTest = 1
	}
	return &Message{
		XMLName:         xml.Name{Space: EnvelopeNS, Local: envelopeRootName},
		EnvelopeVersion: EnvelopeVersion,
		Header: Header{
			MessageDetails: details,
			SenderDetails:  creds.senderDetails(),
		},
		Body: &Body{Payload: payload},
	}
}

// Marshal serializes an envelope to its wire form, XML declaration
// included.
func Marshal(msg *Message) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	if err := enc.Encode(msg); err != nil {
		return nil, err
	}
	if err := enc.Flush(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Decode parses a wire envelope. Envelope children are matched by local
// name, so responses under the legacy header namespace decode the same as
// canonical ones. An unrecognised body element is an error.
func Decode(data []byte) (*Message, error) {
	msg := &Message{}
	if err := xml.Unmarshal(data, msg); err != nil {
		return nil, err
	}
	if msg.XMLName.Local != envelopeRootName {
		return nil, errors.Errorf("unexpected root element %q", msg.XMLName.Local)
	}
	return msg, nil
}
