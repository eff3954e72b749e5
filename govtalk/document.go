package govtalk

// GetDocument exchanges an opaque request key for the document it
// references.
type GetDocument struct {
	DocRequestKey string `xml:"DocRequestKey"`
}

// Document is the retrieved document and its metadata.
type Document struct {
	CompanyNumber string       `xml:"CompanyNumber"`
	DocumentDate  *Date        `xml:"DocumentDate"`
	DocumentType  string       `xml:"DocumentType"`
	DocumentID    string       `xml:"DocumentID"`
	DocumentData  DocumentData `xml:"DocumentData"`
}

// DocumentData carries the payload itself. The gateway wraps the base64
// character data across lines; strip newlines before decoding.
type DocumentData struct {
	ContentType     ContentType     `xml:"content-type,attr"`
	ContentEncoding ContentEncoding `xml:"content-encoding,attr"`
	Filename        string          `xml:"filename,attr"`
	Contents        string          `xml:",chardata"`
}

type ContentType string

// The gateway only ever serves PDFs, spelled with a dot on the wire.
const ContentTypePDF ContentType = "application.pdf"

type ContentEncoding string

const ContentEncodingBase64 ContentEncoding = "base64"
