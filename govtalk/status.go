package govtalk

import "encoding/xml"

// GetSubmissionStatus asks for every outstanding status held for a
// presenter, or for a single company or submission when a reference is set.
type GetSubmissionStatus struct {
	Reference   *StatusReference
	PresenterID string
}

// StatusReference narrows a status query; at most one field may be set.
type StatusReference struct {
	CompanyNumber    string
	SubmissionNumber string
}

func (g GetSubmissionStatus) MarshalXML(e *xml.Encoder, start xml.StartElement) error {
	if err := e.EncodeToken(start); err != nil {
		return err
	}
	if g.Reference != nil {
		switch {
		case g.Reference.CompanyNumber != "":
			if err := encodeString(e, "CompanyNumber", g.Reference.CompanyNumber); err != nil {
				return err
			}
		case g.Reference.SubmissionNumber != "":
			if err := encodeString(e, "SubmissionNumber", g.Reference.SubmissionNumber); err != nil {
				return err
			}
		}
	}
	if err := encodeString(e, "PresenterID", g.PresenterID); err != nil {
		return err
	}
	return e.EncodeToken(start.End())
}

func (g *GetSubmissionStatus) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	for {
		tok, err := d.Token()
		if err != nil {
			return err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			var s string
			if err := d.DecodeElement(&s, &t); err != nil {
				return err
			}
			switch t.Name.Local {
			case "CompanyNumber":
				g.Reference = &StatusReference{CompanyNumber: s}
			case "SubmissionNumber":
				g.Reference = &StatusReference{SubmissionNumber: s}
			case "PresenterID":
				g.PresenterID = s
			}
		case xml.EndElement:
			return nil
		}
	}
}

func encodeString(e *xml.Encoder, local, value string) error {
	return e.EncodeElement(value, xml.StartElement{Name: xml.Name{Local: local}})
}

// StatusAck tells the gateway that every previously reported status has been
// consumed and may be cleared from its queue.
type StatusAck struct{}

// StatusResponse is the empty body returned for a StatusAck request.
type StatusResponse struct{}

// SubmissionStatus is the polled batch of per-submission status reports.
type SubmissionStatus struct {
	Status []Status `xml:"Status"`
}

type StatusCode string

const (
	StatusCodeAccepted        StatusCode = "ACCEPT"
	StatusCodeRejected        StatusCode = "REJECT"
	StatusCodePending         StatusCode = "PENDING"
	StatusCodeParked          StatusCode = "PARKED"
	StatusCodeInternalFailure StatusCode = "INTERNAL_FAILURE"
)

// Status carries one submission's reported state. At most one of the detail
// variants is present; each of them references a retrievable document.
type Status struct {
	SubmissionNumber  string     `xml:"SubmissionNumber"`
	StatusCode        StatusCode `xml:"StatusCode"`
	CompanyNumber     string     `xml:"CompanyNumber"`
	CustomerReference string     `xml:"CustomerReference"`
	Rejections        *Rejections
	Incorporation     *IncorporationDetails `xml:"IncorporationDetails"`
	ChangeOfName      *ChangeOfNameDetails  `xml:"ChangeOfNameDetails"`
	Charge            *ChargeDetails        `xml:"ChargeDetails"`
	Examiner          *Examiner             `xml:"Examiner"`
}

type Rejections struct {
	Rejections      []Reject `xml:"Reject"`
	RejectReference string   `xml:"RejectReference"`
}

type Reject struct {
	RejectCode     int    `xml:"RejectCode"`
	Description    string `xml:"Description"`
	InstanceNumber *int   `xml:"InstanceNumber"`
}

type IncorporationDetails struct {
	DocRequestKey      string `xml:"DocRequestKey"`
	IncorporationDate  Date   `xml:"IncorporationDate"`
	AuthenticationCode string `xml:"AuthenticationCode"`
}

type ChangeOfNameDetails struct {
	DocRequestKey string `xml:"DocRequestKey"`
}

type ChargeDetails struct {
	DocRequestKey string `xml:"DocRequestKey"`
	ChargeCode    string `xml:"ChargeCode"`
}

type Examiner struct {
	Telephone string `xml:"Telephone"`
	Comment   string `xml:"Comment"`
}

// DocumentKey returns the document request key of whichever detail variant
// is present, or "" when the status carries no document reference.
func (s *Status) DocumentKey() string {
	switch {
	case s.Incorporation != nil:
		return s.Incorporation.DocRequestKey
	case s.ChangeOfName != nil:
		return s.ChangeOfName.DocRequestKey
	case s.Charge != nil:
		return s.Charge.DocRequestKey
	}
	return ""
}
