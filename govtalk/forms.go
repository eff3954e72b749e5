package govtalk

import (
	"encoding/xml"
	"reflect"

	"github.com/pkg/errors"
)

// FormSubmission is the common wrapper for every statutory form filing. The
// concrete form goes inside Form; supporting documents ride alongside as
// base64 attachments.
type FormSubmission struct {
	FormHeader FormHeader     `xml:"FormHeader"`
	DateSigned Date           `xml:"DateSigned"`
	Form       Form           `xml:"Form"`
	Documents  []FormDocument `xml:"Document"`
}

type FormHeader struct {
	CompanyNumber      string             `xml:"CompanyNumber,omitempty"`
	CompanyType        string             `xml:"CompanyType,omitempty"`
	CompanyName        string             `xml:"CompanyName"`
	AuthenticationCode string             `xml:"CompanyAuthenticationCode,omitempty"`
	PackageReference   string             `xml:"PackageReference"`
	Language           SubmissionLanguage `xml:"Language"`
	FormIdentifier     string             `xml:"FormIdentifier"`
	SubmissionNumber   string             `xml:"SubmissionNumber"`
	ContactName        string             `xml:"ContactName,omitempty"`
	ContactNumber      string             `xml:"ContactNumber,omitempty"`
	CustomerReference  string             `xml:"CustomerReference,omitempty"`
}

type SubmissionLanguage string

const (
	LanguageEnglish SubmissionLanguage = "EN"
	LanguageWelsh   SubmissionLanguage = "CY"
)

// FormDocument is a supporting attachment filed with a form.
type FormDocument struct {
	Data        string             `xml:"Data"`
	Date        *Date              `xml:"Date"`
	Filename    string             `xml:"Filename,omitempty"`
	ContentType AttachmentType     `xml:"ContentType"`
	Category    AttachmentCategory `xml:"Category"`
}

type AttachmentType string

const (
	AttachmentTypePCL AttachmentType = "application/vnd.hp-pcl"
	AttachmentTypeXML AttachmentType = "application/xml"
	AttachmentTypePDF AttachmentType = "application/pdf"
)

type AttachmentCategory string

const (
	CategoryMemorandumAndArticles AttachmentCategory = "MEMARTS"
	CategoryMemorandum            AttachmentCategory = "MEM"
	CategoryArticles              AttachmentCategory = "ARTS"
	CategoryAccounts              AttachmentCategory = "ACCOUNTS"
	CategoryDeed                  AttachmentCategory = "DEED"
)

// Form holds one concrete form body. Forms have their own closed table,
// separate from the envelope body table; adding a form type means adding a
// table entry, nothing else.
type Form struct {
	Payload any
}

type formEntry struct {
	local  string
	schema string
	typ    reflect.Type
}

var formTable = []formEntry{
	{
		local:  "ChangeOfName",
		schema: schemaBase + "/forms/ChangeOfName-v2-6.xsd",
		typ:    reflect.TypeOf(ChangeOfName{}),
	},
}

func (f Form) MarshalXML(e *xml.Encoder, start xml.StartElement) error {
	t := reflect.TypeOf(f.Payload)
	for t != nil && t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	var entry *formEntry
	for i := range formTable {
		if formTable[i].typ == t {
			entry = &formTable[i]
			break
		}
	}
	if entry == nil {
		return errors.Errorf("form type %T is not a known form body", f.Payload)
	}
	if err := e.EncodeToken(start); err != nil {
		return err
	}
	inner := xml.StartElement{
		Name: xml.Name{Space: CHNS, Local: entry.local},
		Attr: []xml.Attr{
			{Name: xml.Name{Local: "xmlns:xsi"}, Value: xsiNS},
			{Name: xml.Name{Local: "xsi:schemaLocation"}, Value: CHNS + " " + entry.schema},
		},
	}
	if err := e.EncodeElement(f.Payload, inner); err != nil {
		return err
	}
	return e.EncodeToken(start.End())
}

func (f *Form) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	for {
		tok, err := d.Token()
		if err != nil {
			return err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			var entry *formEntry
			for i := range formTable {
				if formTable[i].local == t.Name.Local {
					entry = &formTable[i]
					break
				}
			}
			if entry == nil {
				return errors.Errorf("unrecognised form element %q", t.Name.Local)
			}
			payload := reflect.New(entry.typ)
			if err := d.DecodeElement(payload.Interface(), &t); err != nil {
				return err
			}
			f.Payload = payload.Elem().Interface()
			return d.Skip()
		case xml.EndElement:
			// Empty form element.
			return nil
		}
	}
}

// ChangeOfName is the NM01 company name change form.
type ChangeOfName struct {
	MethodOfChange      MethodOfChange `xml:"MethodOfChange"`
	ProposedCompanyName string         `xml:"ProposedCompanyName"`
	MeetingDate         *Date          `xml:"MeetingDate"`
	SameDay             bool           `xml:"SameDay,omitempty"`
	NoticeGiven         bool           `xml:"NoticeGiven"`
}

type MethodOfChange string

const (
	MethodArticles   MethodOfChange = "ARTICLES"
	MethodResolution MethodOfChange = "RESOLUTION"
	MethodLLP        MethodOfChange = "LLP"
)
