// Package textdecode turns a byte stream in a declared charset into UTF-8
// text incrementally. Multi-byte sequences split across reads are held over
// until complete; invalid input becomes U+FFFD instead of an error.
package textdecode

import (
	"io"
	"mime"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// DefaultCharset is assumed when a Content-Type carries no charset.
const DefaultCharset = "utf-8"

// Charset extracts the charset parameter of a Content-Type header value.
func Charset(contentType string) string {
	if contentType == "" {
		return DefaultCharset
	}
	_, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return DefaultCharset
	}
	cs := strings.TrimSpace(params["charset"])
	if cs == "" {
		return DefaultCharset
	}
	return strings.ToLower(cs)
}

// Lookup resolves a WHATWG charset label. Unknown labels fall back to UTF-8
// and report false.
func Lookup(charset string) (encoding.Encoding, bool) {
	enc, err := htmlindex.Get(charset)
	if err != nil || enc == nil {
		return unicode.UTF8, false
	}
	return enc, true
}

// NewReader wraps r so reads yield UTF-8 decoded from the charset declared
// in contentType. A leading UTF-8 or UTF-16 byte order mark is consumed and
// selects the encoding, as a browser TextDecoder does.
func NewReader(r io.Reader, contentType string) io.Reader {
	enc, _ := Lookup(Charset(contentType))
	return transform.NewReader(r, unicode.BOMOverride(enc.NewDecoder()))
}
