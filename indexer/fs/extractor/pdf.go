package extractor

import (
	"bytes"
	"io"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
)

// extractPDF returns the plain text of a parsable PDF. A parsed PDF without a text layer
// yields empty text; printable bytes are salvaged only when the file cannot be parsed.
func extractPDF(data []byte) (string, error) {
	if len(data) == 0 {
		return "", nil
	}
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return string(extractPrintableText(data)), nil
	}
	reader, err := r.GetPlainText()
	if err != nil {
		return string(extractPrintableText(data)), nil
	}
	out, err := io.ReadAll(reader)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func extractPrintableText(in []byte) []byte {
	var out bytes.Buffer
	for len(in) > 0 {
		r, size := utf8.DecodeRune(in)
		if r == utf8.RuneError && size == 1 {
			if b := in[0]; isPrintableASCII(b) {
				out.WriteByte(b)
			}
			in = in[1:]
			continue
		}
		in = in[size:]
		if isPrintableRune(r) {
			out.WriteRune(r)
		}
	}
	return out.Bytes()
}

func isPrintableASCII(b byte) bool {
	return b == '\n' || b == '\r' || b == '\t' || (b >= 32 && b < 127)
}

func isPrintableRune(r rune) bool {
	switch {
	case r == '\n' || r == '\r' || r == '\t':
		return true
	case r >= 32 && r < 127:
		return true
	case r >= 160 && r <= utf8.MaxRune:
		return true
	}
	return false
}
