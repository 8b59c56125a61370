package domain

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"
)

type QualityMode string

const (
	QualityBasic     QualityMode = "basic"
	QualityFormatted QualityMode = "formatted"
)

// ParseQualityMode accepts either mode name in any case. An empty value selects Formatted.
func ParseQualityMode(s string) (QualityMode, error) {
	switch QualityMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", QualityFormatted:
		return QualityFormatted, nil
	case QualityBasic:
		return QualityBasic, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownQuality, s)
	}
}

func (q QualityMode) Valid() bool {
	return q == QualityBasic || q == QualityFormatted
}

func (q QualityMode) Description() string {
	switch q {
	case QualityBasic:
		return "Fast conversion with basic formatting"
	case QualityFormatted:
		return "Slower but preserves more complex formatting"
	default:
		return ""
	}
}

type ConversionRequest struct {
	ID              string
	SourcePath      string
	DestinationPath string
	Quality         QualityMode
}

type Upload struct {
	Name    string
	Size    int64
	Content io.Reader
}

type OutcomeStatus string

const (
	OutcomeConverted OutcomeStatus = "converted"
	OutcomeSkipped   OutcomeStatus = "skipped"
	OutcomeFailed    OutcomeStatus = "failed"
)

type FileOutcome struct {
	Name           string
	ConvertedName  string
	Status         OutcomeStatus
	Error          string
	Size           int64
	EncodedPayload string
}

type BatchReport struct {
	Quality   QualityMode
	Outcomes  []FileOutcome
	Converted int
	Skipped   int
	Failed    int
}

func (r *BatchReport) Add(o FileOutcome) {
	r.Outcomes = append(r.Outcomes, o)
	switch o.Status {
	case OutcomeConverted:
		r.Converted++
	case OutcomeSkipped:
		r.Skipped++
	case OutcomeFailed:
		r.Failed++
	}
}

// ConversionEvent is published once per processed file and persisted by the recorder worker.
type ConversionEvent struct {
	ID            string        `json:"id"`
	OriginalName  string        `json:"original_name"`
	ConvertedName string        `json:"converted_name"`
	Quality       QualityMode   `json:"quality"`
	Status        OutcomeStatus `json:"status"`
	Error         string        `json:"error,omitempty"`
	SourceSize    int64         `json:"source_size"`
	OutputSize    int64         `json:"output_size"`
	ArchivePath   string        `json:"archive_path,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
}

// ConvertedName replaces the extension of a PDF file name with .docx.
func ConvertedName(original string) string {
	base := filepath.Base(original)
	ext := filepath.Ext(base)
	if strings.EqualFold(ext, PDFExtension) {
		base = strings.TrimSuffix(base, ext)
	}
	return base + DocxExtension
}

const (
	PDFExtension  = ".pdf"
	DocxExtension = ".docx"

	PDFContentType  = "application/pdf"
	DocxContentType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
)

const (
	DefaultMaxUploadSize = 10 << 20
	DefaultHistoryLimit  = 5
	DefaultScratchDir    = "temp"
	TimestampLayout      = "2006-01-02 15:04:05"
)

const (
	KafkaTopicEvents = "pdf-conversions"
	BucketConverted  = "converted"

	PathPrefixConverted = "converted/"
)
