package formatters

// IDsFormatter writes the comma-joined token ids, the same string the
// visualizer copies to the clipboard.
type IDsFormatter struct{}

// NewIDsFormatter creates an ids formatter.
func NewIDsFormatter() *IDsFormatter {
	return &IDsFormatter{}
}

func (f *IDsFormatter) Name() string          { return "ids" }
func (f *IDsFormatter) ContentType() string   { return "text/plain; charset=utf-8" }
func (f *IDsFormatter) FileExtension() string { return ".txt" }

// Format renders the id list followed by a newline.
func (f *IDsFormatter) Format(doc *Document) ([]byte, error) {
	return []byte(stream(doc).IDList() + "\n"), nil
}

// RawFormatter writes the decoded tokens back to back. The output equals the
// tokenized input byte for byte.
type RawFormatter struct{}

// NewRawFormatter creates a raw formatter.
func NewRawFormatter() *RawFormatter {
	return &RawFormatter{}
}

func (f *RawFormatter) Name() string          { return "raw" }
func (f *RawFormatter) ContentType() string   { return "application/octet-stream" }
func (f *RawFormatter) FileExtension() string { return ".bin" }

// Format concatenates token bytes.
func (f *RawFormatter) Format(doc *Document) ([]byte, error) {
	return []byte(stream(doc).Text()), nil
}
