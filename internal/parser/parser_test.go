package parser

import (
	"errors"
	"strings"
	"testing"

	"pdf-chat/internal/models"
	"pdf-chat/internal/testutil"
)

func TestExtractText_PDF(t *testing.T) {
	text, err := ExtractText(models.Upload{Name: "sky.pdf", Data: testutil.BuildPDF("The sky is blue.")})
	if err != nil {
		t.Fatalf("ExtractText: %v", err)
	}
	if !strings.Contains(text, "The sky is blue.") {
		t.Errorf("text = %q, expected it to contain the page text", text)
	}
}

func TestExtractText_SniffsPDFWithoutExtension(t *testing.T) {
	text, err := ExtractText(models.Upload{Name: "upload", Data: testutil.BuildPDF("sniffed")})
	if err != nil {
		t.Fatalf("ExtractText: %v", err)
	}
	if !strings.Contains(text, "sniffed") {
		t.Errorf("text = %q", text)
	}
}

func TestExtractText_PPTXSlideOrder(t *testing.T) {
	text, err := ExtractText(models.Upload{Name: "deck.pptx", Data: testutil.BuildPPTX("first", "second", "third")})
	if err != nil {
		t.Fatalf("ExtractText: %v", err)
	}
	if text != "first\nsecond\nthird\n" {
		t.Errorf("text = %q", text)
	}
}

func TestExtractText_Unsupported(t *testing.T) {
	_, err := ExtractText(models.Upload{Name: "image.png", Data: []byte{0x89, 'P', 'N', 'G'}})
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("err = %v, expected ErrUnsupportedFormat", err)
	}
}

func TestLoadDocuments_UploadAndPageOrder(t *testing.T) {
	uploads := []models.Upload{
		{Name: "a.pdf", Data: testutil.BuildPDF("Alpha one.", "Alpha two.")},
		{Name: "notes.txt", Data: []byte("Bravo.")},
		{Name: "c.pdf", Data: testutil.BuildPDF("Charlie.")},
	}

	result := LoadDocuments(uploads)

	if len(result.Skipped) != 0 {
		t.Fatalf("skipped = %v", result.Skipped)
	}
	if len(result.Loaded) != 3 {
		t.Fatalf("loaded = %v", result.Loaded)
	}
	last := -1
	for _, want := range []string{"Alpha one.", "Alpha two.", "Bravo.", "Charlie."} {
		idx := strings.Index(result.Text, want)
		if idx < 0 {
			t.Fatalf("text %q missing %q", result.Text, want)
		}
		if idx < last {
			t.Errorf("%q appears out of order in %q", want, result.Text)
		}
		last = idx
	}
}

func TestLoadDocuments_SkipsUnreadable(t *testing.T) {
	uploads := []models.Upload{
		{Name: "broken.pdf", Data: []byte("%PDF-1.4\nthis is not really a pdf")},
		{Name: "ok.txt", Data: []byte("still here")},
	}

	result := LoadDocuments(uploads)

	if result.Text != "still here" {
		t.Errorf("text = %q", result.Text)
	}
	if len(result.Skipped) != 1 || result.Skipped[0] != "broken.pdf" {
		t.Errorf("skipped = %v", result.Skipped)
	}
}

func TestLoadDocuments_Empty(t *testing.T) {
	result := LoadDocuments(nil)
	if result.Text != "" || len(result.Loaded) != 0 {
		t.Errorf("result = %+v", result)
	}
}

func TestExtractText_DOCX(t *testing.T) {
	data := testutil.BuildDOCX("First paragraph", "Salt & pepper", "Third <one>")
	text, err := ExtractText(models.Upload{Name: "notes.docx", Data: data})
	if err != nil {
		t.Fatalf("ExtractText: %v", err)
	}
	if want := "First paragraph\nSalt & pepper\nThird <one>\n"; text != want {
		t.Errorf("text = %q, expected %q", text, want)
	}
}

var fixtureSheets = []testutil.Sheet{
	{Name: "Colors", Rows: [][]string{{"thing", "color"}, {"sky", "blue"}}},
	{Name: "Notes", Rows: [][]string{{"done"}}},
}

const fixtureSheetText = "## Sheet: Colors\nthing\tcolor\t\nsky\tblue\t\n## Sheet: Notes\ndone\t\n"

func TestExtractText_XLSX(t *testing.T) {
	text, err := ExtractText(models.Upload{Name: "colors.xlsx", Data: testutil.BuildXLSX(fixtureSheets...)})
	if err != nil {
		t.Fatalf("ExtractText: %v", err)
	}
	if text != fixtureSheetText {
		t.Errorf("text = %q, expected %q", text, fixtureSheetText)
	}
}

func TestExtractText_ExcelizeFormats(t *testing.T) {
	data := testutil.BuildWorkbook(fixtureSheets...)
	for _, name := range []string{"colors.xlsm", "colors.xltx", "colors.XLTM"} {
		t.Run(name, func(t *testing.T) {
			text, err := ExtractText(models.Upload{Name: name, Data: data})
			if err != nil {
				t.Fatalf("ExtractText: %v", err)
			}
			if text != fixtureSheetText {
				t.Errorf("text = %q, expected %q", text, fixtureSheetText)
			}
		})
	}
}

func TestExtractText_OfficeGarbage(t *testing.T) {
	for _, name := range []string{"a.docx", "a.xlsx", "a.xlsm"} {
		if _, err := ExtractText(models.Upload{Name: name, Data: []byte("not a zip")}); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}
