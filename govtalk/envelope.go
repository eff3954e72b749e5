package govtalk

import (
	"encoding/xml"
	"time"

	"github.com/pkg/errors"
)

// EnvelopeNS is the namespace of the GovTalk envelope schema. Responses
// occasionally arrive under the legacy header namespace instead; decoding
// matches envelope children by local name so both are accepted.
const (
	EnvelopeNS       = "http://www.govtalk.gov.uk/CM/envelope"
	EnvelopeVersion  = "1.0"
	envelopeRootName = "GovTalkMessage"

	xsiNS = "http://www.w3.org/2001/XMLSchema-instance"
)

// Message is the GovTalk envelope: header, routing details and an optional
// typed body.
type Message struct {
	XMLName         xml.Name
	EnvelopeVersion string  `xml:"EnvelopeVersion"`
	Header          Header  `xml:"Header"`
	Details         Details `xml:"GovTalkDetails"`
	Body            *Body   `xml:"Body"`
}

type Header struct {
	MessageDetails MessageDetails `xml:"MessageDetails"`
	SenderDetails  *SenderDetails `xml:"SenderDetails"`
}

type MessageDetails struct {
	Class            string     `xml:"Class"`
	Qualifier        Qualifier  `xml:"Qualifier"`
	Function         string     `xml:"Function,omitempty"`
	TransactionID    string     `xml:"TransactionID,omitempty"`
	AuditID          string     `xml:"AuditID,omitempty"`
	CorrelationID    string     `xml:"CorrelationID,omitempty"`
	GatewayTest      int        `xml:"GatewayTest,omitempty"`
	GatewayTimestamp *Timestamp `xml:"GatewayTimestamp"`
}

type SenderDetails struct {
	IDAuthentication *IDAuthentication `xml:"IDAuthentication"`
	EmailAddress     string            `xml:"EmailAddress,omitempty"`
}

type IDAuthentication struct {
	SenderID       string           `xml:"SenderID,omitempty"`
	Authentication []Authentication `xml:"Authentication"`
}

type Authentication struct {
	Method AuthenticationMethod `xml:"Method"`
	Role   string               `xml:"Role,omitempty"`
	Value  string               `xml:"Value"`
}

type Details struct {
	Keys           *Keys            `xml:"Keys"`
	TargetDetails  *TargetDetails   `xml:"TargetDetails"`
	ChannelRouting []ChannelRouting `xml:"ChannelRouting"`
	Errors         *Errors          `xml:"GovTalkErrors"`
}

type Keys struct {
	Keys []Key `xml:"Key"`
}

type Key struct {
	Value string `xml:",chardata"`
	Type  string `xml:"Type,attr"`
}

type TargetDetails struct {
	Organisations []string `xml:"Organisation"`
}

type ChannelRouting struct {
	Channel   Channel    `xml:"Channel"`
	ID        *ChannelID `xml:"ID"`
	Timestamp *Timestamp `xml:"Timestamp"`
}

type Channel struct {
	URI     string `xml:"URI,omitempty"`
	Name    string `xml:"Name,omitempty"`
	Product string `xml:"Product,omitempty"`
	Version string `xml:"Version,omitempty"`
}

type ChannelID struct {
	Value string `xml:",chardata"`
	Type  string `xml:"Type,attr"`
}

type Errors struct {
	Errors []Error `xml:"Error"`
}

// Error is a single remote-reported error. Number is absent for some
// gateway-raised conditions, in which case it reads as zero.
type Error struct {
	RaisedBy string    `xml:"RaisedBy"`
	Number   int       `xml:"Number"`
	Type     ErrorType `xml:"Type"`
	Text     []string  `xml:"Text"`
	Location []string  `xml:"Location"`
}

type Qualifier string

const (
	QualifierRequest         Qualifier = "request"
	QualifierAcknowledgement Qualifier = "acknowledgement"
	QualifierResponse        Qualifier = "response"
	QualifierPoll            Qualifier = "poll"
	QualifierError           Qualifier = "error"
)

type ErrorType string

const (
	ErrorTypeFatal       ErrorType = "fatal"
	ErrorTypeRecoverable ErrorType = "recoverable"
	ErrorTypeBusiness    ErrorType = "business"
	ErrorTypeWarning     ErrorType = "warning"
)

type AuthenticationMethod string

const (
	AuthenticationClear AuthenticationMethod = "clear"
	AuthenticationMD5   AuthenticationMethod = "CHMD5"
)

// Timestamp accepts the handful of datetime renderings the gateway is known
// to emit: RFC 3339, and local-form timestamps with or without fractional
// seconds.
type Timestamp struct {
	time.Time
}

var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
}

func (t *Timestamp) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	var s string
	if err := d.DecodeElement(&s, &start); err != nil {
		return err
	}
	for _, layout := range timestampLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed.UTC()
			return nil
		}
	}
	return errors.Errorf("unparseable timestamp %q", s)
}

func (t Timestamp) MarshalXML(e *xml.Encoder, start xml.StartElement) error {
	return e.EncodeElement(t.Time.UTC().Format(time.RFC3339), start)
}

// Date is a calendar date on the wire, rendered as yyyy-mm-dd.
type Date struct {
	time.Time
}

func (t *Date) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	var s string
	if err := d.DecodeElement(&s, &start); err != nil {
		return err
	}
	parsed, err := time.Parse("2006-01-02", s)
	if err != nil {
		return errors.Wrapf(err, "unparseable date %q", s)
	}
	t.Time = parsed
	return nil
}

func (t Date) MarshalXML(e *xml.Encoder, start xml.StartElement) error {
	return e.EncodeElement(t.Time.Format("2006-01-02"), start)
}
