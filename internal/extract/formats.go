package extract

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strings"
)

const (
	pdfMinStrings = 10
	pdfMaxStrings = 200
	pdfMinChars   = 100
	maxZipEntry   = 32 << 20
)

var (
	pdfLiteral = regexp.MustCompile(`\(([^)]+)\)`)
	pdfOctal   = regexp.MustCompile(`\\[0-9]{3}`)

	errPDFNoText = errors.New("no readable text objects")
)

// pdfText scans literal string objects of an uncompressed PDF. Compressed
// content streams yield too few literals and are reported as unreadable.
func pdfText(b []byte) (string, error) {
	latin := make([]rune, len(b))
	for i, c := range b {
		latin[i] = rune(c)
	}
	matches := pdfLiteral.FindAllStringSubmatch(string(latin), pdfMaxStrings)
	if len(matches) <= pdfMinStrings {
		return "", errPDFNoText
	}
	parts := make([]string, 0, len(matches))
	for _, m := range matches {
		parts = append(parts, m[1])
	}
	out := strings.TrimSpace(pdfOctal.ReplaceAllString(strings.Join(parts, " "), " "))
	out = strings.Map(func(r rune) rune {
		if r < 0x20 || r > 0x7e {
			return ' '
		}
		return r
	}, out)
	if len(out) <= pdfMinChars {
		return "", errPDFNoText
	}
	return out, nil
}

// docxText concatenates w:t runs of word/document.xml, one space per paragraph.
func docxText(b []byte) (string, error) {
	data, err := readZipEntry(b, "word/document.xml")
	if err != nil {
		return "", err
	}
	return xmlText(data, "t", "p")
}

// xlsxText returns the shared string table followed by inline cell strings.
func xlsxText(b []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(b), int64(len(b)))
	if err != nil {
		return "", fmt.Errorf("open workbook: %w", err)
	}
	var sheets []string
	for _, f := range zr.File {
		if strings.HasPrefix(f.Name, "xl/worksheets/") && strings.HasSuffix(f.Name, ".xml") {
			sheets = append(sheets, f.Name)
		}
	}
	if len(sheets) == 0 {
		return "", errors.New("workbook has no worksheets")
	}
	sort.Strings(sheets)

	var parts []string
	if shared, err := readZipEntry(b, "xl/sharedStrings.xml"); err == nil {
		s, err := xmlText(shared, "t", "si")
		if err != nil {
			return "", err
		}
		parts = append(parts, s)
	}
	for _, name := range sheets {
		data, err := readZipEntry(b, name)
		if err != nil {
			return "", err
		}
		s, err := xmlText(data, "t", "row")
		if err != nil {
			return "", err
		}
		if s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, " "), nil
}

// jsonText validates and compacts a JSON document.
func jsonText(b []byte) (string, error) {
	var buf bytes.Buffer
	if err := json.Compact(&buf, b); err != nil {
		return "", fmt.Errorf("parse json: %w", err)
	}
	return buf.String(), nil
}

func readZipEntry(b []byte, name string) ([]byte, error) {
	zr, err := zip.NewReader(bytes.NewReader(b), int64(len(b)))
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}
	for _, f := range zr.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", name, err)
		}
		defer rc.Close() //nolint:errcheck // read-only
		data, err := io.ReadAll(io.LimitReader(rc, maxZipEntry))
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		return data, nil
	}
	return nil, fmt.Errorf("archive entry %s not found", name)
}

// xmlText collects character data inside textElem elements, separating
// blockElem elements by a space. Namespaces are ignored.
func xmlText(data []byte, textElem, blockElem string) (string, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	var sb strings.Builder
	depth := 0
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("decode xml: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local == textElem {
				depth++
			}
		case xml.EndElement:
			switch t.Name.Local {
			case textElem:
				depth--
			case blockElem:
				sb.WriteByte(' ')
			}
		case xml.CharData:
			if depth > 0 {
				sb.Write(t)
			}
		}
	}
	return strings.TrimSpace(sb.String()), nil
}
