package convert

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"golang.org/x/text/encoding/charmap"
)

// Document is extracted text plus what is known about its layout.
type Document struct {
	Text      string
	PageCount int
}

// LocalFormats lists the extensions ExtractText understands.
var LocalFormats = []string{"txt", "md", "docx", "pdf"}

// ExtractText converts a document of the given extension to plain text.
// Paragraphs become lines.
func ExtractText(data []byte, ext string) (*Document, error) {
	switch ext {
	case "txt", "md":
		return &Document{Text: decodePlain(data)}, nil
	case "docx":
		text, err := extractDOCX(data)
		if err != nil {
			return nil, err
		}
		return &Document{Text: text}, nil
	case "pdf":
		return extractPDF(data)
	default:
		return nil, fmt.Errorf("%w: .%s", ErrUnsupportedFormat, ext)
	}
}

// decodePlain returns UTF-8 text unchanged and reads anything else as
// Windows-1252, the usual encoding of manuscripts exported on Windows.
func decodePlain(data []byte) string {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	if utf8.Valid(data) {
		return string(data)
	}
	decoded, err := charmap.Windows1252.NewDecoder().Bytes(data)
	if err != nil {
		return strings.ToValidUTF8(string(data), "\ufffd")
	}
	return string(decoded)
}

const (
	docxDocumentPath = "word/document.xml"
	docxMainType     = "application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"
)

var docxPartName = regexp.MustCompile(`<Override[^>]*PartName="([^"]+)"[^>]*ContentType="` + regexp.QuoteMeta(docxMainType) + `"`)

func extractDOCX(data []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("docx is not a zip archive: %w", err)
	}

	docPath := docxDocumentPath
	if ct, err := readZipFile(zr, "[Content_Types].xml"); err == nil {
		if m := docxPartName.FindSubmatch(ct); m != nil {
			docPath = strings.TrimPrefix(string(m[1]), "/")
		}
	}
	body, err := readZipFile(zr, docPath)
	if err != nil {
		return "", fmt.Errorf("docx: %w", err)
	}
	return wordprocessingText(body)
}

func readZipFile(zr *zip.Reader, name string) ([]byte, error) {
	for _, f := range zr.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, err
		}
		defer rc.Close()
		return io.ReadAll(rc)
	}
	return nil, fmt.Errorf("%s not found", name)
}

// wordprocessingText walks WordprocessingML, emitting one line per paragraph.
func wordprocessingText(body []byte) (string, error) {
	dec := xml.NewDecoder(bytes.NewReader(body))
	var b, para strings.Builder
	inText := false

	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("docx xml: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "t":
				inText = true
			case "tab":
				para.WriteByte('\t')
			case "br", "cr":
				para.WriteByte('\n')
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				b.WriteString(para.String())
				b.WriteByte('\n')
				para.Reset()
			}
		case xml.CharData:
			if inText {
				para.Write(t)
			}
		}
	}
	b.WriteString(para.String())
	return strings.TrimRight(b.String(), "\n"), nil
}

func extractPDF(data []byte) (*Document, error) {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	if err := api.Validate(bytes.NewReader(data), conf); err != nil {
		return nil, fmt.Errorf("invalid pdf: %w", err)
	}
	pages, err := api.PageCount(bytes.NewReader(data), conf)
	if err != nil {
		return nil, fmt.Errorf("pdf page count: %w", err)
	}

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	var b strings.Builder
	n := r.NumPage()
	for i := 1; i <= n; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("extract pdf page %d: %w", i, err)
		}
		b.WriteString(text)
		if i < n {
			b.WriteByte('\n')
		}
	}
	return &Document{Text: b.String(), PageCount: pages}, nil
}
