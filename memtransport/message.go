package memtransport

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"strings"

	"github.com/emersion/go-imapfetch"
	gomessage "github.com/emersion/go-message"
	"github.com/emersion/go-message/textproto"
)

var errNoSuchPart = errors.New("memtransport: no such message body part")

type message struct {
	// immutable
	uid uint32
	buf []byte

	// mutable, protected by Transport.mutex
	flags map[imapfetch.Flag]struct{}
}

func (msg *message) header() (textproto.Header, *bufio.Reader, error) {
	br := bufio.NewReader(bytes.NewReader(msg.buf))
	header, err := textproto.ReadHeader(br)
	return header, br, err
}

func (msg *message) overview() (*imapfetch.Overview, error) {
	header, _, err := msg.header()
	if err != nil {
		return nil, err
	}
	_, recent := msg.flags[imapfetch.FlagRecent]
	_, flagged := msg.flags[imapfetch.FlagFlagged]
	_, answered := msg.flags[imapfetch.FlagAnswered]
	_, deleted := msg.flags[imapfetch.FlagDeleted]
	_, seen := msg.flags[imapfetch.FlagSeen]
	_, draft := msg.flags[imapfetch.FlagDraft]
	return &imapfetch.Overview{
		Subject:  header.Get("Subject"),
		Date:     header.Get("Date"),
		Size:     int64(len(msg.buf)),
		Recent:   recent,
		Flagged:  flagged,
		Answered: answered,
		Deleted:  deleted,
		Seen:     seen,
		Draft:    draft,
	}, nil
}

func (msg *message) rawHeader() ([]byte, error) {
	header, _, err := msg.header()
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := textproto.WriteHeader(&buf, header); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (msg *message) bodyStructure() (*imapfetch.BodyPart, error) {
	header, br, err := msg.header()
	if err != nil {
		return nil, err
	}
	return getBodyStructure(header, br, ""), nil
}

func openMessagePart(header textproto.Header, body io.Reader, parentMediaType string) (textproto.Header, io.Reader) {
	mediaType, _ := contentType(header, parentMediaType)
	if mediaType == "message/rfc822" || mediaType == "message/global" {
		br := bufio.NewReader(body)
		header, _ = textproto.ReadHeader(br)
		return header, br
	}
	return header, body
}

// bodySection returns the raw content of the part at path, without its
// header. A nil path returns the message body.
func (msg *message) bodySection(path imapfetch.PartPath) ([]byte, error) {
	header, br, err := msg.header()
	if err != nil {
		return nil, err
	}
	var body io.Reader = br

	// First part of non-multipart message refers to the message itself
	mediaType, _ := contentType(header, "")
	if !strings.HasPrefix(mediaType, "multipart/") && len(path) > 0 && path[0] == 1 {
		path = path[1:]
	}

	var parentMediaType string
	for _, partNum := range path {
		header, body = openMessagePart(header, body, parentMediaType)

		mediaType, typeParams := contentType(header, parentMediaType)
		if !strings.HasPrefix(mediaType, "multipart/") {
			if partNum != 1 {
				return nil, errNoSuchPart
			}
			parentMediaType = mediaType
			continue
		}

		mr := textproto.NewMultipartReader(body, typeParams["boundary"])
		found := false
		for j := 1; j <= partNum; j++ {
			p, err := mr.NextPart()
			if err != nil {
				return nil, errNoSuchPart
			}
			if j == partNum {
				parentMediaType = mediaType
				header = p.Header
				body = p
				found = true
				break
			}
		}
		if !found {
			return nil, errNoSuchPart
		}
	}

	return io.ReadAll(body)
}

// contentType returns the media type of a part, applying the RFC 2046
// defaults when the Content-Type header field is missing.
func contentType(header textproto.Header, parentMediaType string) (string, map[string]string) {
	msgHeader := gomessage.Header{Header: header}
	if !msgHeader.Has("Content-Type") {
		if parentMediaType == "multipart/digest" {
			return "message/rfc822", nil
		}
		return "text/plain", map[string]string{"charset": "us-ascii"}
	}
	mediaType, params, _ := msgHeader.ContentType()
	return strings.ToLower(mediaType), params
}

func getBodyStructure(header textproto.Header, r io.Reader, parentMediaType string) *imapfetch.BodyPart {
	msgHeader := gomessage.Header{Header: header}

	mediaType, typeParams := contentType(header, parentMediaType)
	primaryType, subType, _ := strings.Cut(mediaType, "/")

	bp := &imapfetch.BodyPart{
		Type:     imapfetch.ParseBodyType(primaryType),
		Subtype:  subType,
		Encoding: imapfetch.Encoding7Bit,
		Params:   typeParams,
	}
	if enc := msgHeader.Get("Content-Transfer-Encoding"); enc != "" {
		bp.Encoding = imapfetch.ParseEncoding(enc)
	}
	if _, dispParams, err := msgHeader.ContentDisposition(); err == nil {
		bp.DispositionParams = dispParams
	}

	if primaryType == "multipart" {
		bp.Parts = []*imapfetch.BodyPart{}
		mr := textproto.NewMultipartReader(r, typeParams["boundary"])
		for {
			part, _ := mr.NextPart()
			if part == nil {
				break
			}
			bp.Parts = append(bp.Parts, getBodyStructure(part.Header, part, mediaType))
		}
		return bp
	}

	body, _ := io.ReadAll(r)
	bp.Size = int64(len(body))
	if mediaType == "message/rfc822" || mediaType == "message/global" {
		br := bufio.NewReader(bytes.NewReader(body))
		childHeader, _ := textproto.ReadHeader(br)
		child := getBodyStructure(childHeader, br, "")
		// Embedded multipart bodies are numbered like the parent's children
		if child.Parts != nil {
			bp.Parts = child.Parts
		} else {
			bp.Parts = []*imapfetch.BodyPart{child}
		}
	}
	return bp
}
