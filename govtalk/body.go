package govtalk

import (
	"encoding/xml"
	"io"
	"reflect"

	"github.com/pkg/errors"
)

// CHNS is the namespace most business payloads are declared under on the
// request side. Responses come back wrapped in the envelope namespace, so
// the decode path falls back to a local-name match.
const (
	CHNS       = "http://xmlgw.companieshouse.gov.uk"
	FormNS     = "http://xmlgw.companieshouse.gov.uk/Header"
	schemaBase = "http://xmlgw.companieshouse.gov.uk/v1-0/schema"
)

// Body wraps one business payload. The payload set is closed: a single table
// maps each element name to its namespace, schema location and Go type, and
// both marshalling and unmarshalling consult that table so the two
// directions cannot drift apart.
type Body struct {
	Payload any
}

type bodyEntry struct {
	local  string
	ns     string
	schema string
	typ    reflect.Type // nil for response-only entries
	decode func() any   // set on response-only entries; requests build from typ
}

func (e *bodyEntry) newPayload() any {
	if e.decode != nil {
		return e.decode()
	}
	return reflect.New(e.typ).Interface()
}

var bodyTable = []bodyEntry{
	// Request payloads.
	{
		local:  "GetSubmissionStatus",
		ns:     CHNS,
		schema: schemaBase + "/forms/GetSubmissionStatus-v2-9.xsd",
		typ:    reflect.TypeOf(GetSubmissionStatus{}),
	},
	{
		local:  "StatusAck",
		ns:     CHNS,
		schema: schemaBase + "/forms/GetStatusAck-v1-1.xsd",
		typ:    reflect.TypeOf(StatusAck{}),
	},
	{
		local:  "GetDocument",
		ns:     CHNS,
		schema: schemaBase + "/forms/GetDocument-v1-1.xsd",
		typ:    reflect.TypeOf(GetDocument{}),
	},
	{
		local:  "FormSubmission",
		ns:     FormNS,
		schema: schemaBase + "/forms/FormSubmission-v2-11.xsd",
		typ:    reflect.TypeOf(FormSubmission{}),
	},
	{
		local:  "GetERemindersRequest",
		ns:     EnvelopeNS,
		schema: schemaBase + "/EReminders-v1-0.xsd",
		typ:    reflect.TypeOf(GetERemindersRequest{}),
	},
	{
		local:  "SetERemindersRequest",
		ns:     EnvelopeNS,
		schema: schemaBase + "/EReminders-v1-0.xsd",
		typ:    reflect.TypeOf(SetERemindersRequest{}),
	},

	// Response payloads.
	{local: "SubmissionStatus", ns: EnvelopeNS, decode: func() any { return new(SubmissionStatus) }},
	{local: "status", ns: EnvelopeNS, decode: func() any { return new(StatusResponse) }},
	{local: "Document", ns: EnvelopeNS, decode: func() any { return new(Document) }},
	{local: "EReminders", ns: EnvelopeNS, decode: func() any { return new(EReminders) }},
}

func entryForPayload(payload any) (*bodyEntry, error) {
	t := reflect.TypeOf(payload)
	for t != nil && t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	for i := range bodyTable {
		if bodyTable[i].typ != nil && bodyTable[i].typ == t {
			return &bodyTable[i], nil
		}
	}
	return nil, errors.Errorf("payload type %T is not a known request body", payload)
}

func entryForName(name xml.Name) *bodyEntry {
	for i := range bodyTable {
		if bodyTable[i].ns == name.Space && bodyTable[i].local == name.Local {
			return &bodyTable[i]
		}
	}
	for i := range bodyTable {
		if bodyTable[i].local == name.Local {
			return &bodyTable[i]
		}
	}
	return nil
}

func (b Body) MarshalXML(e *xml.Encoder, start xml.StartElement) error {
	entry, err := entryForPayload(b.Payload)
	if err != nil {
		return err
	}
	if err := e.EncodeToken(start); err != nil {
		return err
	}
	inner := xml.StartElement{Name: xml.Name{Space: entry.ns, Local: entry.local}}
	if entry.schema != "" {
		inner.Attr = []xml.Attr{
			{Name: xml.Name{Local: "xmlns:xsi"}, Value: xsiNS},
			{Name: xml.Name{Local: "xsi:schemaLocation"}, Value: entry.ns + " " + entry.schema},
		}
	}
	if err := e.EncodeElement(b.Payload, inner); err != nil {
		return err
	}
	return e.EncodeToken(start.End())
}

func (b *Body) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	for {
		tok, err := d.Token()
		if err != nil {
			if err == io.EOF {
				return errors.New("truncated body")
			}
			return err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			entry := entryForName(t.Name)
			if entry == nil {
				return errors.Errorf("unrecognised body element %q", t.Name.Local)
			}
			payload := entry.newPayload()
			if err := d.DecodeElement(payload, &t); err != nil {
				return err
			}
			b.Payload = payload
			return d.Skip()
		case xml.EndElement:
			// Empty body element.
			return nil
		}
	}
}
