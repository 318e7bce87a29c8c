package parser

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"html"
	"io"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/nguyenthenguyen/docx"
	"github.com/rs/zerolog/log"
	"github.com/tealeg/xlsx"
	"github.com/xuri/excelize/v2"

	"pdf-chat/internal/models"
)

var ErrUnsupportedFormat = errors.New("unsupported file format")

var (
	wordTextRe  = regexp.MustCompile(`</w:p>|<w:t(?:\s[^>]*)?>([^<]*)</w:t>`)
	slideTextRe = regexp.MustCompile(`</a:p>|<a:t(?:\s[^>]*)?>([^<]*)</a:t>`)
	slideNameRe = regexp.MustCompile(`^ppt/slides/slide(\d+)\.xml$`)
)

// LoadDocuments extracts the text of every upload and concatenates it in
// upload order, pages in page order, with no separators. Documents that
// cannot be read are skipped and reported in the result.
func LoadDocuments(uploads []models.Upload) models.LoadResult {
	var (
		text   strings.Builder
		result models.LoadResult
	)
	for _, upload := range uploads {
		content, err := ExtractText(upload)
		if err != nil {
			log.Warn().Err(err).Str("file", upload.Name).Msg("Skipping unreadable document")
			result.Skipped = append(result.Skipped, upload.Name)
			continue
		}
		log.Debug().Str("file", upload.Name).Int("chars", len(content)).Msg("Extracted text")
		text.WriteString(content)
		result.Loaded = append(result.Loaded, upload.Name)
	}
	result.Text = text.String()
	return result
}

// ExtractText returns the plain text of a single upload, chosen by extension.
// Uploads without an extension are sniffed for a PDF header.
func ExtractText(upload models.Upload) (text string, err error) {
	// malformed input can panic inside the format readers
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("failed to parse %s: %v", upload.Name, r)
		}
	}()

	ext := strings.ToLower(filepath.Ext(upload.Name))
	if ext == "" && bytes.HasPrefix(upload.Data, []byte("%PDF-")) {
		ext = ".pdf"
	}

	switch ext {
	case ".pdf":
		return parsePDF(upload.Data)
	case ".docx":
		return parseDOCX(upload.Data)
	case ".pptx":
		return parsePPTX(upload.Data)
	case ".xlsx":
		return parseXLSX(upload.Data)
	case ".xlsm", ".xltx", ".xltm":
		return parseExcelize(upload.Data)
	case ".txt", ".md":
		return string(upload.Data), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
}

func parsePDF(data []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to open pdf: %w", err)
	}

	var text strings.Builder
	numPages := reader.NumPage()
	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		// scanned or otherwise text-less pages contribute nothing
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			log.Debug().Err(err).Int("page", i).Msg("No extractable text on page")
			continue
		}
		text.WriteString(pageText)
	}
	return text.String(), nil
}

func parseDOCX(data []byte) (string, error) {
	r, err := docx.ReadDocxFromMemory(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to open docx: %w", err)
	}
	defer r.Close()

	return extractTextFromXML(r.Editable().GetContent(), wordTextRe), nil
}

func parsePPTX(data []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to open pptx: %w", err)
	}

	type slide struct {
		num  int
		file *zip.File
	}
	var slides []slide
	for _, file := range zr.File {
		m := slideNameRe.FindStringSubmatch(file.Name)
		if m == nil {
			continue
		}
		num, _ := strconv.Atoi(m[1])
		slides = append(slides, slide{num: num, file: file})
	}
	sort.Slice(slides, func(i, j int) bool { return slides[i].num < slides[j].num })

	var text strings.Builder
	for _, s := range slides {
		rc, err := s.file.Open()
		if err != nil {
			continue
		}
		content, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			continue
		}
		text.WriteString(extractTextFromXML(string(content), slideTextRe))
	}
	return text.String(), nil
}

func parseXLSX(data []byte) (string, error) {
	f, err := xlsx.OpenBinary(data)
	if err != nil {
		return "", fmt.Errorf("failed to open xlsx: %w", err)
	}

	var text strings.Builder
	for _, sheet := range f.Sheets {
		text.WriteString(fmt.Sprintf("## Sheet: %s\n", sheet.Name))
		for _, row := range sheet.Rows {
			for _, cell := range row.Cells {
				text.WriteString(cell.String() + "\t")
			}
			text.WriteString("\n")
		}
	}
	return text.String(), nil
}

func parseExcelize(data []byte) (string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	var text strings.Builder
	for _, sheetName := range f.GetSheetList() {
		rows, err := f.GetRows(sheetName)
		if err != nil {
			continue
		}
		text.WriteString(fmt.Sprintf("## Sheet: %s\n", sheetName))
		for _, row := range rows {
			for _, cell := range row {
				text.WriteString(cell + "\t")
			}
			text.WriteString("\n")
		}
	}
	return text.String(), nil
}

// extractTextFromXML joins text runs matched by re, one line per paragraph.
func extractTextFromXML(xmlContent string, re *regexp.Regexp) string {
	var text strings.Builder
	for _, m := range re.FindAllStringSubmatch(xmlContent, -1) {
		if strings.HasPrefix(m[0], "</") {
			text.WriteString("\n")
			continue
		}
		text.WriteString(html.UnescapeString(m[1]))
	}
	return text.String()
}
