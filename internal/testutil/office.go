package testutil

import (
	"archive/zip"
	"bytes"
	"fmt"
	"html"

	"github.com/tealeg/xlsx"
	"github.com/xuri/excelize/v2"
)

// Sheet is one worksheet of a fixture workbook.
type Sheet struct {
	Name string
	Rows [][]string
}

// BuildDOCX returns a word document with one paragraph per entry. Every
// other paragraph uses xml:space="preserve" on its run.
func BuildDOCX(paragraphs ...string) []byte {
	var body bytes.Buffer
	for i, p := range paragraphs {
		attr := ""
		if i%2 == 1 {
			attr = ` xml:space="preserve"`
		}
		fmt.Fprintf(&body, `<w:p><w:r><w:t%s>%s</w:t></w:r></w:p>`, attr, html.EscapeString(p))
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	files := []struct{ name, content string }{
		{"word/document.xml", `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
			`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>` +
			body.String() + `</w:body></w:document>`},
		{"word/_rels/document.xml.rels", `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
			`<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships"></Relationships>`},
	}
	for _, f := range files {
		w, err := zw.Create(f.name)
		if err != nil {
			panic(err)
		}
		if _, err := w.Write([]byte(f.content)); err != nil {
			panic(err)
		}
	}
	if err := zw.Close(); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

// BuildXLSX writes the sheets with tealeg/xlsx.
func BuildXLSX(sheets ...Sheet) []byte {
	file := xlsx.NewFile()
	for _, s := range sheets {
		sheet, err := file.AddSheet(s.Name)
		if err != nil {
			panic(err)
		}
		for _, values := range s.Rows {
			row := sheet.AddRow()
			for _, v := range values {
				row.AddCell().SetString(v)
			}
		}
	}

	var buf bytes.Buffer
	if err := file.Write(&buf); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

// BuildWorkbook writes the sheets with excelize.
func BuildWorkbook(sheets ...Sheet) []byte {
	f := excelize.NewFile()
	defer f.Close()

	for i, s := range sheets {
		if i == 0 {
			if err := f.SetSheetName("Sheet1", s.Name); err != nil {
				panic(err)
			}
		} else if _, err := f.NewSheet(s.Name); err != nil {
			panic(err)
		}
		for r, values := range s.Rows {
			row := make([]interface{}, len(values))
			for c, v := range values {
				row[c] = v
			}
			if err := f.SetSheetRow(s.Name, fmt.Sprintf("A%d", r+1), &row); err != nil {
				panic(err)
			}
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		panic(err)
	}
	return buf.Bytes()
}
