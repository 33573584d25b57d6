// Package encoding normalises uploaded spreadsheets to UTF-8.
package encoding

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"unicode/utf8"

	"github.com/saintfish/chardet"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// sniffSize is how much of the upload is inspected before choosing a decoder.
const sniffSize = 4096

var (
	bomUTF8    = []byte{0xEF, 0xBB, 0xBF}
	bomUTF16LE = []byte{0xFF, 0xFE}
	bomUTF16BE = []byte{0xFE, 0xFF}
)

// legacy maps chardet charset names to decoders. Sellers mostly export from
// Excel, which writes the machine's ANSI code page.
var legacy = map[string]encoding.Encoding{
	"windows-1251": charmap.Windows1251,
	"KOI8-R":       charmap.KOI8R,
	"ISO-8859-5":   charmap.ISO8859_5,
	"IBM866":       charmap.CodePage866,
	"windows-1252": charmap.Windows1252,
	"ISO-8859-1":   charmap.Windows1252,
}

// Fallback decodes anything that is neither UTF-8 nor recognised by chardet.
var Fallback encoding.Encoding = charmap.Windows1251

// NewUTF8Reader returns a reader that yields r decoded to UTF-8.
//
// A BOM wins; otherwise valid UTF-8 passes through untouched, then chardet is
// consulted, then Fallback is assumed.
func NewUTF8Reader(r io.Reader) (io.Reader, error) {
	br := bufio.NewReaderSize(r, sniffSize)

	buf, err := br.Peek(sniffSize)
	if err != nil && err != io.EOF && err != bufio.ErrBufferFull {
		return nil, fmt.Errorf("peek: %w", err)
	}

	switch {
	case bytes.HasPrefix(buf, bomUTF8):
		_, _ = br.Discard(len(bomUTF8))
		return br, nil
	case bytes.HasPrefix(buf, bomUTF16LE):
		return transform.NewReader(br, unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewDecoder()), nil
	case bytes.HasPrefix(buf, bomUTF16BE):
		return transform.NewReader(br, unicode.UTF16(unicode.BigEndian, unicode.UseBOM).NewDecoder()), nil
	}

	if validPrefix(buf) {
		return br, nil
	}

	return transform.NewReader(br, Detect(buf).NewDecoder()), nil
}

// Detect guesses the single-byte charset of sample.
func Detect(sample []byte) encoding.Encoding {
	result, err := chardet.NewTextDetector().DetectBest(sample)
	if err == nil {
		if enc, ok := legacy[result.Charset]; ok {
			return enc
		}
	}

	return Fallback
}

// validPrefix is utf8.Valid that tolerates a multi-byte rune cut off by the
// peek window.
func validPrefix(buf []byte) bool {
	if utf8.Valid(buf) {
		return true
	}

	for cut := 1; cut < utf8.UTFMax && cut <= len(buf); cut++ {
		if utf8.Valid(buf[:len(buf)-cut]) && !utf8.FullRune(buf[len(buf)-cut:]) {
			return true
		}
	}

	return false
}
