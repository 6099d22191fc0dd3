package extractor

import (
	"archive/zip"
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"
)

func TestFactory_Extract(t *testing.T) {
	f := NewFactory()
	testCases := []struct {
		name   string
		data   []byte
		expect string
	}{
		{name: "notes.txt", data: []byte("Plain text."), expect: "Plain text."},
		{name: "README.MD", data: []byte("# Title\nBody."), expect: "# Title\nBody."},
		{name: "data.csv", data: []byte("a,b\n1,2"), expect: "a,b\n1,2"},
	}
	for _, tc := range testCases {
		got, err := f.Extract(tc.name, tc.data)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", tc.name, err)
		}
		if got != tc.expect {
			t.Fatalf("%s: expected %q, got %q", tc.name, tc.expect, got)
		}
	}
}

func TestFactory_Unsupported(t *testing.T) {
	f := NewFactory()
	if _, err := f.Extract("image.png", []byte{1, 2}); !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}
	if f.Supports("image.png") {
		t.Fatalf("expected png to be unsupported")
	}
	if !f.Supports("Report.PDF") {
		t.Fatalf("expected pdf to be supported")
	}
}

func TestFactory_Register(t *testing.T) {
	f := NewFactory()
	f.Register("log", Func(func(data []byte) (string, error) { return strings.ToUpper(string(data)), nil }))
	got, err := f.Extract("app.log", []byte("ok"))
	if err != nil || got != "OK" {
		t.Fatalf("expected OK, got %q (%v)", got, err)
	}
}

func TestExtractPDF_Unparsable(t *testing.T) {
	data := []byte("%PDF-1.4\nHello\nWorld\n%%EOF")
	got, err := NewFactory().Extract("dummy.pdf", data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(got, "Hello") || !strings.Contains(got, "World") {
		t.Fatalf("expected printable fallback text, got %q", got)
	}
}

func TestExtractDOCX(t *testing.T) {
	data := buildDOCX(t, `<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body><w:p><w:r><w:t>Hello</w:t></w:r></w:p><w:p><w:r><w:t>World</w:t></w:r></w:p></w:body></w:document>`)
	got, err := NewFactory().Extract("memo.docx", data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "Hello\nWorld\n" {
		t.Fatalf("unexpected text %q", got)
	}
	if _, err := NewFactory().Extract("broken.docx", []byte("not a zip")); err == nil {
		t.Fatalf("expected error for invalid docx")
	}
}

func TestExtractXLSX(t *testing.T) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	if err := f.SetSheetRow(sheet, "A1", &[]interface{}{"name", "days"}); err != nil {
		t.Fatalf("set header: %v", err)
	}
	if err := f.SetSheetRow(sheet, "A2", &[]interface{}{"vacation", 20}); err != nil {
		t.Fatalf("set row: %v", err)
	}
	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		t.Fatalf("write xlsx: %v", err)
	}
	got, err := NewFactory().Extract("leave.xlsx", buf.Bytes())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, fragment := range []string{"Sheet: " + sheet, "Header: name\tdays", "Row 2: vacation\t20"} {
		if !strings.Contains(got, fragment) {
			t.Fatalf("expected %q in %q", fragment, got)
		}
	}
}

func buildDOCX(t *testing.T, documentXML string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("word/document.xml")
	if err != nil {
		t.Fatalf("create zip entry: %v", err)
	}
	if _, err := w.Write([]byte(documentXML)); err != nil {
		t.Fatalf("write document.xml: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
	return buf.Bytes()
}
