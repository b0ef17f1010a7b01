// Package extract turns uploaded bytes into plain text. Parsing is best effort:
// an unreadable document yields placeholder text built from its file name and
// an error wrapping domain.ErrExtractionDegraded, never a hard failure.
package extract

import (
	"context"
	"fmt"
	"mime"
	"path"
	"strings"
	"unicode/utf8"

	"github.com/gabriel-vasile/mimetype"

	"github.com/kailas-cloud/docsearch/internal/domain"
	"github.com/kailas-cloud/docsearch/internal/domain/ingest"
	"github.com/kailas-cloud/docsearch/internal/domain/text"
)

// MinTextLength is the shortest extracted text kept; shorter output falls back to the file name.
const MinTextLength = 3

// Kind is a document family with its own extraction rule.
type Kind string

// Supported document families.
const (
	KindPDF   Kind = "pdf"
	KindDOCX  Kind = "docx"
	KindText  Kind = "text"
	KindExcel Kind = "excel"
	KindCSV   Kind = "csv"
	KindImage Kind = "image"
	KindJSON  Kind = "json"
	KindCode  Kind = "code"
	KindOther Kind = "other"
)

const (
	mimePDF  = "application/pdf"
	mimeDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	mimeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	mimeXLS  = "application/vnd.ms-excel"
)

var imageExts = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".bmp": true, ".webp": true,
}

var codeExts = map[string]bool{
	".js": true, ".ts": true, ".jsx": true, ".tsx": true, ".py": true, ".java": true,
	".cpp": true, ".c": true, ".go": true, ".html": true, ".css": true, ".md": true,
}

// Extractor dispatches on document kind.
type Extractor struct {
	maxChars int
}

// New creates an extractor bounding output to text.MaxStorageChars.
func New() *Extractor {
	return &Extractor{maxChars: text.MaxStorageChars}
}

// Extract returns plain text for content. On a parse failure the returned
// Extracted is still usable: it carries placeholder text and Degraded=true,
// and the error wraps domain.ErrExtractionDegraded.
func (e *Extractor) Extract(ctx context.Context, content []byte, mediaType, fileName string) (ingest.Extracted, error) {
	kind, detected := Detect(content, mediaType, fileName)
	out := ingest.Extracted{FileName: fileName, MediaType: detected}

	if err := ctx.Err(); err != nil {
		out.Text = e.finish(placeholder(kind, fileName), fileName)
		out.Degraded = true
		return out, fmt.Errorf("%w: %w", domain.ErrExtractionDegraded, err)
	}

	raw, err := extractKind(kind, content, fileName)
	out.Text = e.finish(raw, fileName)
	if err != nil {
		out.Degraded = true
		return out, fmt.Errorf("%w: %s: %w", domain.ErrExtractionDegraded, kind, err)
	}
	return out, nil
}

func extractKind(kind Kind, content []byte, fileName string) (string, error) {
	switch kind {
	case KindPDF:
		s, err := pdfText(content)
		if err != nil {
			return placeholder(kind, fileName), err
		}
		return s, nil
	case KindDOCX:
		s, err := docxText(content)
		if err != nil {
			return placeholder(kind, fileName), err
		}
		if s == "" {
			return placeholder(kind, fileName), nil
		}
		return s, nil
	case KindExcel:
		s, err := xlsxText(content)
		if err != nil {
			return placeholder(kind, fileName), err
		}
		return "Excel: " + fileName + ". Data: " + s, nil
	case KindJSON:
		s, err := jsonText(content)
		if err != nil {
			return placeholder(kind, fileName), err
		}
		return "JSON: " + fileName + ". " + s, nil
	case KindText:
		return utf8Text(content), nil
	case KindCSV:
		return "CSV: " + fileName + ". " + utf8Text(content), nil
	case KindCode:
		return fileName + ": " + utf8Text(content), nil
	default:
		return placeholder(kind, fileName), nil
	}
}

// Detect resolves the document kind from the declared media type, then the
// file extension, then content sniffing. It returns the media type it settled on.
func Detect(content []byte, mediaType, fileName string) (Kind, string) {
	mediaType = strings.ToLower(strings.TrimSpace(mediaType))
	if i := strings.IndexByte(mediaType, ';'); i >= 0 {
		mediaType = strings.TrimSpace(mediaType[:i])
	}
	ext := strings.ToLower(path.Ext(fileName))

	if k := kindOf(mediaType, ext); k != KindOther {
		return k, orDefault(mediaType, typeByExtension(ext))
	}
	if mediaType != "" && mediaType != "application/octet-stream" {
		return KindOther, mediaType
	}
	sniffed := mimetype.Detect(content)
	sniffedType := strings.ToLower(sniffed.String())
	if i := strings.IndexByte(sniffedType, ';'); i >= 0 {
		sniffedType = sniffedType[:i]
	}
	return kindOf(sniffedType, strings.ToLower(sniffed.Extension())), sniffedType
}

func kindOf(mediaType, ext string) Kind {
	switch {
	case mediaType == mimePDF || ext == ".pdf":
		return KindPDF
	case mediaType == mimeDOCX || ext == ".docx":
		return KindDOCX
	case mediaType == "text/plain" && ext != ".csv" && ext != ".json" && !codeExts[ext], ext == ".txt":
		return KindText
	case mediaType == mimeXLSX || mediaType == mimeXLS || ext == ".xlsx" || ext == ".xls":
		return KindExcel
	case mediaType == "text/csv" || ext == ".csv":
		return KindCSV
	case strings.HasPrefix(mediaType, "image/") || imageExts[ext]:
		return KindImage
	case mediaType == "application/json" || ext == ".json":
		return KindJSON
	case codeExts[ext]:
		return KindCode
	}
	return KindOther
}

func typeByExtension(ext string) string {
	t := mime.TypeByExtension(ext)
	if i := strings.IndexByte(t, ';'); i >= 0 {
		t = t[:i]
	}
	if t == "" {
		return "application/octet-stream"
	}
	return t
}

// placeholder is the text used when a document cannot be read.
func placeholder(kind Kind, fileName string) string {
	switch kind {
	case KindPDF:
		return "PDF document - automated text extraction unavailable"
	case KindDOCX:
		return "Word document: " + fileName
	case KindExcel:
		return "Excel file: " + fileName
	case KindJSON:
		return "JSON file: " + fileName
	case KindImage:
		return "Image: " + humanName(fileName)
	}
	return humanName(fileName)
}

// humanName strips the extension and turns - and _ into spaces.
func humanName(fileName string) string {
	base := strings.TrimSuffix(fileName, path.Ext(fileName))
	return strings.NewReplacer("-", " ", "_", " ").Replace(base)
}

func (e *Extractor) finish(s, fileName string) string {
	s = text.Window(text.CollapseSpace(s), e.maxChars)
	if utf8.RuneCountInString(s) < MinTextLength {
		return fileName
	}
	return s
}

func utf8Text(b []byte) string {
	return strings.ToValidUTF8(string(b), " ")
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
