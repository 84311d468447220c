package dxf

import (
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
)

var unicodeEscape = regexp.MustCompile(`\\U\+([0-9A-Fa-f]{4})`)

// codePages maps $DWGCODEPAGE values to decoders for drawings written
// before AutoCAD 2007, which store text in a legacy code page.
var codePages = map[string]encoding.Encoding{
	"ANSI_1250": charmap.Windows1250,
	"ANSI_1251": charmap.Windows1251,
	"ANSI_1252": charmap.Windows1252,
	"ANSI_1253": charmap.Windows1253,
	"ANSI_1254": charmap.Windows1254,
	"ANSI_1257": charmap.Windows1257,
	"ISO8859-1": charmap.ISO8859_1,
}

type textDecoder struct {
	legacy encoding.Encoding
}

func newTextDecoder(doc *Document) *textDecoder {
	enc := encoding.Encoding(charmap.Windows1252)
	if tags := doc.Header["$DWGCODEPAGE"]; len(tags) > 0 {
		if e, ok := codePages[strings.ToUpper(tags[0].String())]; ok {
			enc = e
		}
	}
	return &textDecoder{legacy: enc}
}

// decode converts a raw text value to UTF-8. Values that are already valid
// UTF-8 are kept; others are decoded with the drawing's code page. \U+XXXX
// escapes are replaced by the rune they name.
func (d *textDecoder) decode(s string) string {
	if !utf8.ValidString(s) {
		if out, err := d.legacy.NewDecoder().String(s); err == nil {
			s = out
		}
	}
	if !strings.Contains(s, `\U+`) {
		return s
	}
	return unicodeEscape.ReplaceAllStringFunc(s, func(m string) string {
		r, err := strconv.ParseUint(m[3:], 16, 32)
		if err != nil {
			return m
		}
		return string(rune(r))
	})
}
