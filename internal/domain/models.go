package domain

import "time"

// PageKind identifies how a page source file must be handled.
type PageKind string

const (
	// KindStandardRaster is a directly embeddable raster image (JPG/PNG).
	KindStandardRaster PageKind = "standard"
	// KindProprietaryEncoded is an XOR-masked CNG file that must be decoded first.
	KindProprietaryEncoded PageKind = "proprietary"
)

// IssueFolder represents one directory believed to hold one issue's scanned pages.
type IssueFolder struct {
	Path    string
	DateKey string // six-digit YYYYMM, empty when not derivable
	Entries []ImageEntry
}

// ImageEntry is one candidate page file inside an issue folder.
type ImageEntry struct {
	Path    string
	Kind    PageKind
	SortKey string // base filename, lexicographic ordering key
	Extra   bool   // filename does not start with the canonical issue prefix
}

// Page is one unit of PDF assembly, in final page order.
type Page struct {
	Data   []byte // raster bytes (JPEG or PNG)
	OCRPDF string // optional path of an OCR'd single-page PDF carrying a text layer
}

// AssemblyStats summarizes one PDF assembly pass.
type AssemblyStats struct {
	Pages    int
	OCRPages int // pages whose OCR text layer survived into the document
}

// Status classifies the result of processing one issue folder.
type Status string

const (
	StatusConverted        Status = "converted"
	StatusConvertedWithOCR Status = "converted_ocr"
	StatusAlreadyExists    Status = "already_exists"
	StatusSkipped          Status = "skipped"
	StatusFailed           Status = "failed"
)

// Symbol returns the console symbol printed on the status line.
func (s Status) Symbol() string {
	switch s {
	case StatusConverted:
		return "✅"
	case StatusConvertedWithOCR:
		return "✅🔤"
	case StatusAlreadyExists:
		return "🟦"
	case StatusSkipped:
		return "⏭️"
	case StatusFailed:
		return "❌"
	default:
		return "?"
	}
}

// ConversionOutcome is the immutable result of processing one IssueFolder.
type ConversionOutcome struct {
	JobID       string
	IssuePath   string
	OutputPath  string // intended final document path, empty for skipped folders
	Status      Status
	ErrorDetail string // set when Failed
	Pages       int
	OCRPages    int
	Duration    time.Duration
}

// Succeeded reports whether the outcome left a valid PDF at the output path.
func (o ConversionOutcome) Succeeded() bool {
	return o.Status == StatusConverted || o.Status == StatusConvertedWithOCR || o.Status == StatusAlreadyExists
}
