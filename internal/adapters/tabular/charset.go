package tabular

import (
	"bytes"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/encoding/unicode"
)

var (
	bomUTF8    = []byte{0xEF, 0xBB, 0xBF}
	bomUTF16LE = []byte{0xFF, 0xFE}
	bomUTF16BE = []byte{0xFE, 0xFF}
)

// decodeText определяет кодировку загрузки и возвращает текст в UTF-8.
// Порядок: BOM, UTF-8, GBK, Latin-1, иначе UTF-8 с заменой битых байтов. Никогда не падает.
func decodeText(data []byte) (string, string) {
	switch {
	case bytes.HasPrefix(data, bomUTF8):
		return strings.ToValidUTF8(string(data[len(bomUTF8):]), string(utf8.RuneError)), "utf-8-bom"
	case bytes.HasPrefix(data, bomUTF16LE):
		if text, ok := decodeWith(unicode.UTF16(unicode.LittleEndian, unicode.ExpectBOM), data); ok {
			return text, "utf-16le"
		}
	case bytes.HasPrefix(data, bomUTF16BE):
		if text, ok := decodeWith(unicode.UTF16(unicode.BigEndian, unicode.ExpectBOM), data); ok {
			return text, "utf-16be"
		}
	}

	if utf8.Valid(data) {
		return string(data), "utf-8"
	}
	if text, ok := decodeWith(simplifiedchinese.GBK, data); ok {
		return text, "gbk"
	}
	if text, ok := decodeWith(charmap.ISO8859_1, data); ok {
		return text, "latin-1"
	}
	return strings.ToValidUTF8(string(data), string(utf8.RuneError)), "utf-8-replaced"
}

// decodeWith декодирует строго: декодеры x/text подставляют U+FFFD вместо ошибки,
// поэтому наличие замены считается неудачей
func decodeWith(enc encoding.Encoding, data []byte) (string, bool) {
	out, err := enc.NewDecoder().Bytes(data)
	if err != nil || bytes.ContainsRune(out, utf8.RuneError) {
		return "", false
	}
	return string(out), true
}
