package workbook

import (
	"io"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
)

// cleanText wraps a CSV upload so the decoder only ever sees valid UTF-8.
//
// A leading byte order mark selects the encoding and is dropped, which covers
// the UTF-16 "Unicode text" exports Excel produces on Windows. Without a BOM
// the input is taken as UTF-8 and ill-formed bytes become U+FFFD.
func cleanText(r io.Reader) io.Reader {
	return transform.NewReader(r, unicode.BOMOverride(runes.ReplaceIllFormed()))
}
