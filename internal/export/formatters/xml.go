package formatters

import (
	"bytes"
	"encoding/xml"
	"fmt"
)

// XMLFormatter renders the document as XML.
type XMLFormatter struct{}

// NewXMLFormatter creates an XML formatter.
func NewXMLFormatter() *XMLFormatter {
	return &XMLFormatter{}
}

func (f *XMLFormatter) Name() string          { return "xml" }
func (f *XMLFormatter) ContentType() string   { return "application/xml" }
func (f *XMLFormatter) FileExtension() string { return ".xml" }

type xmlDocument struct {
	XMLName      xml.Name    `xml:"tokenization"`
	Model        string      `xml:"model,attr,omitempty"`
	Source       string      `xml:"source,attr,omitempty"`
	EncodingName string      `xml:"encoding,attr"`
	TokenCount   int         `xml:"token-count,attr"`
	CharCount    int         `xml:"char-count,attr"`
	Tokens       []flatToken `xml:"token"`
}

// Format renders the document as XML.
func (f *XMLFormatter) Format(doc *Document) ([]byte, error) {
	fd := flatten(doc)
	xd := xmlDocument{
		Model:        fd.Model,
		Source:       fd.Source,
		EncodingName: fd.EncodingName,
		TokenCount:   fd.TokenCount,
		CharCount:    fd.CharCount,
		Tokens:       fd.Tokens,
	}

	var buf bytes.Buffer
	buf.WriteString(xml.Header)

	encoder := xml.NewEncoder(&buf)
	encoder.Indent("", "  ")
	if err := encoder.Encode(xd); err != nil {
		return nil, fmt.Errorf("failed to encode XML; %w", err)
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}
