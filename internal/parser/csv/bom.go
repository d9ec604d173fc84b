package csv

import (
	"io"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// utf8BOM is stripped from the first header cell if present.
const utf8BOM = "\uFEFF"

// decodeUTF8 wraps r so a leading byte-order mark is consumed and UTF-16
// exports (which carry a BOM) are transcoded to UTF-8. Input without a BOM
// passes through as UTF-8.
func decodeUTF8(r io.Reader) io.Reader {
	return transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder()))
}
