// Package imapfetch retrieves messages from a remote mailbox and decodes their
// MIME structure into plain-text bodies, HTML bodies and attachments.
//
// The package doesn't speak a mail protocol itself: it consumes a Transport,
// see the imaptransport and memtransport packages.
package imapfetch

import (
	"strconv"
	"strings"
)

// Flag is a message status flag.
type Flag string

const (
	FlagRecent   Flag = "recent" // read-only
	FlagFlagged  Flag = "flagged"
	FlagAnswered Flag = "answered"
	FlagDeleted  Flag = "deleted"
	FlagSeen     Flag = "seen"
	FlagDraft    Flag = "draft"
)

// settableFlags lists the flags accepted by Message.SetFlag.
var settableFlags = map[Flag]struct{}{
	FlagFlagged:  {},
	FlagAnswered: {},
	FlagDeleted:  {},
	FlagSeen:     {},
	FlagDraft:    {},
}

// BodyType is the primary type of a body part.
//
// The numeric values are stable and are accepted by ParseBodyType.
type BodyType int

const (
	TypeText BodyType = iota
	TypeMultipart
	TypeMessage
	TypeApplication
	TypeAudio
	TypeImage
	TypeVideo
	TypeOther
)

var bodyTypeNames = [...]string{
	TypeText:        "text",
	TypeMultipart:   "multipart",
	TypeMessage:     "message",
	TypeApplication: "application",
	TypeAudio:       "audio",
	TypeImage:       "image",
	TypeVideo:       "video",
	TypeOther:       "other",
}

func (t BodyType) String() string {
	if t < 0 || int(t) >= len(bodyTypeNames) {
		return bodyTypeNames[TypeOther]
	}
	return bodyTypeNames[t]
}

// ParseBodyType parses a primary MIME type, either by name ("text",
// "APPLICATION") or by ordinal ("0", "3"). Unknown values map to TypeOther.
func ParseBodyType(s string) BodyType {
	s = strings.ToLower(strings.TrimSpace(s))
	if n, err := strconv.Atoi(s); err == nil {
		if n < 0 || n >= len(bodyTypeNames) {
			return TypeOther
		}
		return BodyType(n)
	}
	for i, name := range bodyTypeNames {
		if name == s {
			return BodyType(i)
		}
	}
	return TypeOther
}

// Encoding is a content transfer encoding.
type Encoding int

const (
	Encoding7Bit Encoding = iota
	Encoding8Bit
	EncodingBinary
	EncodingBase64
	EncodingQuotedPrintable
	EncodingOther

	// EncodingMIMEHeader isn't a transfer encoding: it selects RFC 2047
	// encoded-word decoding for header values such as subjects and display
	// names.
	EncodingMIMEHeader Encoding = -1
)

var encodingNames = [...]string{
	Encoding7Bit:            "7bit",
	Encoding8Bit:            "8bit",
	EncodingBinary:          "binary",
	EncodingBase64:          "base64",
	EncodingQuotedPrintable: "quoted-printable",
	EncodingOther:           "other",
}

const mimeHeaderName = "mime-header"

func (enc Encoding) String() string {
	if enc == EncodingMIMEHeader {
		return mimeHeaderName
	}
	if enc < 0 || int(enc) >= len(encodingNames) {
		return encodingNames[EncodingOther]
	}
	return encodingNames[enc]
}

// ParseEncoding parses a transfer encoding given either as its ordinal ("3")
// or as its name ("base64", "QUOTED-PRINTABLE"). The "mime-header" name
// selects EncodingMIMEHeader. Unknown values map to EncodingOther.
func ParseEncoding(s string) Encoding {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == mimeHeaderName {
		return EncodingMIMEHeader
	}
	if n, err := strconv.Atoi(s); err == nil {
		if n < 0 || n >= len(encodingNames) {
			return EncodingOther
		}
		return Encoding(n)
	}
	for i, name := range encodingNames {
		if name == s {
			return Encoding(i)
		}
	}
	return EncodingOther
}

// AddressKind selects one of a message's address lists.
type AddressKind int

const (
	AddressFrom AddressKind = iota
	AddressTo
	AddressCc
	AddressReplyTo
)

func (kind AddressKind) String() string {
	switch kind {
	case AddressFrom:
		return "from"
	case AddressTo:
		return "to"
	case AddressCc:
		return "cc"
	case AddressReplyTo:
		return "reply-to"
	default:
		return "AddressKind(" + strconv.Itoa(int(kind)) + ")"
	}
}
