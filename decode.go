package imapfetch

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"mime"
	"mime/quotedprintable"
	"strings"
	"unicode/utf8"

	"github.com/emersion/go-message/charset"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/ianaindex"
)

// OutputCharset is the charset of all decoded text.
const OutputCharset = "utf-8"

func init() {
	// Charsets commonly mislabeled or missing from the default table
	charset.RegisterEncoding("windows-1252", charmap.Windows1252)
	charset.RegisterEncoding("iso-8859-1", charmap.ISO8859_1)
	charset.RegisterEncoding("iso-8859-15", charmap.ISO8859_15)
}

var wordDecoder = &mime.WordDecoder{CharsetReader: charsetReader}

// Decode reverses a content transfer encoding.
//
// Base64 and quoted-printable data is decoded, EncodingMIMEHeader decodes
// RFC 2047 encoded words. Any other encoding returns the input unchanged.
// Malformed input is decoded on a best-effort basis.
func Decode(b []byte, enc Encoding) []byte {
	switch enc {
	case EncodingQuotedPrintable:
		return decodeQuotedPrintable(b)
	case EncodingBase64:
		return decodeBase64(b)
	case EncodingMIMEHeader:
		return []byte(DecodeHeader(string(b)))
	default:
		return b
	}
}

// DecodeString is like Decode, but operates on strings.
func DecodeString(s string, enc Encoding) string {
	if enc == EncodingMIMEHeader {
		return DecodeHeader(s)
	}
	return string(Decode([]byte(s), enc))
}

// DecodeHeader decodes RFC 2047 encoded words in a header field value and
// converts them to UTF-8. If nothing can be decoded, the input is returned
// unchanged.
func DecodeHeader(s string) string {
	out, err := wordDecoder.DecodeHeader(s)
	if err != nil || out == "" {
		return s
	}
	return out
}

func decodeQuotedPrintable(b []byte) []byte {
	out, err := io.ReadAll(quotedprintable.NewReader(bytes.NewReader(b)))
	if err != nil {
		// Leave malformed input as-is
		return b
	}
	return out
}

func decodeBase64(b []byte) []byte {
	clean := bytes.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '\r', '\n':
			return -1
		}
		return r
	}, b)

	out := make([]byte, base64.StdEncoding.DecodedLen(len(clean)))
	n, err := base64.StdEncoding.Decode(out, clean)
	if err == nil {
		return out[:n]
	}
	// Missing padding is common in the wild
	trimmed := bytes.TrimRight(clean, "=")
	out = make([]byte, base64.RawStdEncoding.DecodedLen(len(trimmed)))
	// On corrupt input, n covers the bytes decoded before the error
	n, _ = base64.RawStdEncoding.Decode(out, trimmed)
	return out[:n]
}

// Transcode converts text from the named charset to UTF-8. Unknown charsets
// and undecodable bytes are handled on a best-effort basis: invalid sequences
// are replaced with U+FFFD.
func Transcode(b []byte, charsetName string) []byte {
	if isOutputCharset(charsetName) {
		return b
	}
	r, err := charsetReader(charsetName, bytes.NewReader(b))
	if err != nil {
		return toValidUTF8(b)
	}
	out, err := io.ReadAll(r)
	if err != nil {
		return toValidUTF8(b)
	}
	return toValidUTF8(out)
}

func isOutputCharset(name string) bool {
	name = strings.ToLower(strings.TrimSpace(name))
	return name == "" || name == OutputCharset || name == "utf8" || name == "us-ascii"
}

func toValidUTF8(b []byte) []byte {
	if utf8.Valid(b) {
		return b
	}
	return bytes.ToValidUTF8(b, []byte(string(utf8.RuneError)))
}

// charsetReader looks up a charset in go-message's table first, then in the
// IANA registry.
func charsetReader(name string, r io.Reader) (io.Reader, error) {
	// "default" is used by some clients for text in the local charset
	if isOutputCharset(name) || strings.EqualFold(name, "default") {
		return r, nil
	}
	if cr, err := charset.Reader(name, r); err == nil {
		return cr, nil
	}
	enc, _ := ianaindex.MIME.Encoding(name)
	if enc == nil {
		enc, _ = ianaindex.IANA.Encoding(name)
	}
	if enc == nil {
		return nil, fmt.Errorf("imapfetch: unknown charset %q", name)
	}
	return enc.NewDecoder().Reader(r), nil
}
