package imapfetch

import (
	"bufio"
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/emersion/go-message"
	"github.com/emersion/go-message/mail"
	"github.com/emersion/go-message/textproto"
)

// Message is a message loaded from a Transport.
//
// The overview, header and body structure of the message are fetched once
// when the message is created. They can be reloaded with Overview, Headers
// and Structure.
type Message struct {
	transport Transport
	uid       uint32

	overview  lazy[*Overview]
	header    lazy[mail.Header]
	structure lazy[*BodyPart]

	// populated from the overview
	subject string
	date    time.Time
	size    int64
	flags   map[Flag]bool

	// populated from the header
	from, to, cc, replyTo []*Address

	// populated from the body structure
	plainText   string
	html        string
	attachments []*Attachment
}

// NewMessage loads the message with the specified UID.
func NewMessage(t Transport, uid uint32) (*Message, error) {
	msg := &Message{transport: t, uid: uid}
	if _, err := msg.Overview(false); err != nil {
		return nil, err
	}
	if _, err := msg.Headers(false); err != nil {
		return nil, err
	}
	if _, err := msg.Structure(false); err != nil {
		return nil, err
	}
	return msg, nil
}

// UID returns the message's unique identifier in its mailbox.
func (msg *Message) UID() uint32 {
	return msg.uid
}

// Overview returns the message's overview. If reload is set, the overview is
// fetched again and the subject, date, size and flags are replaced.
func (msg *Message) Overview(reload bool) (*Overview, error) {
	return msg.overview.get(reload, func() (*Overview, error) {
		ov, err := msg.transport.FetchOverview(msg.uid)
		if err != nil {
			return nil, err
		}
		date, err := parseMessageDate(ov.Date)
		if err != nil {
			return nil, err
		}

		msg.subject = ov.Subject
		msg.date = date
		msg.size = ov.Size
		msg.flags = map[Flag]bool{
			FlagRecent:   ov.Recent,
			FlagFlagged:  ov.Flagged,
			FlagAnswered: ov.Answered,
			FlagDeleted:  ov.Deleted,
			FlagSeen:     ov.Seen,
			FlagDraft:    ov.Draft,
		}
		return ov, nil
	})
}

// Headers returns the message's header. If reload is set, the header is
// fetched again and the address lists are replaced.
//
// Header field values can be decoded with mail.Header.Text or
// mail.Header.AddressList.
func (msg *Message) Headers(reload bool) (mail.Header, error) {
	return msg.header.get(reload, func() (mail.Header, error) {
		raw, err := msg.transport.FetchHeader(msg.uid)
		if err != nil {
			return mail.Header{}, err
		}
		h, err := readHeader(raw)
		if err != nil {
			return mail.Header{}, err
		}

		var to, cc, replyTo []*Address
		if h.Has("To") {
			if to, err = headerAddressList(h, "To"); err != nil {
				return mail.Header{}, err
			}
		}
		if h.Has("Cc") {
			if cc, err = headerAddressList(h, "Cc"); err != nil {
				return mail.Header{}, err
			}
		}
		from, err := headerAddressList(h, "From")
		if err != nil {
			return mail.Header{}, err
		} else if len(from) == 0 {
			return mail.Header{}, ErrMissingFrom
		}
		if h.Has("Reply-To") {
			if replyTo, err = headerAddressList(h, "Reply-To"); err != nil {
				return mail.Header{}, err
			}
		} else {
			replyTo = from
		}

		msg.from, msg.to, msg.cc, msg.replyTo = from, to, cc, replyTo
		return h, nil
	})
}

func readHeader(raw []byte) (mail.Header, error) {
	// The header block may lack its terminating empty line
	if !bytes.HasSuffix(raw, []byte("\n\n")) && !bytes.HasSuffix(raw, []byte("\r\n\r\n")) {
		raw = append(append([]byte(nil), raw...), "\r\n\r\n"...)
	}
	h, err := textproto.ReadHeader(bufio.NewReader(bytes.NewReader(raw)))
	if err != nil {
		return mail.Header{}, fmt.Errorf("imapfetch: malformed header: %w", err)
	}
	return mail.Header{Header: message.Header{Header: h}}, nil
}

func headerAddressList(h mail.Header, key string) ([]*Address, error) {
	l, err := ParseAddressList(parseAddressHeader(h.Get(key)))
	if err != nil {
		return nil, fmt.Errorf("in %v: %w", key, err)
	}
	return l, nil
}

// Structure returns the message's body structure. If reload is set, the body
// structure is fetched again and the text bodies and attachments are
// replaced.
func (msg *Message) Structure(reload bool) (*BodyPart, error) {
	return msg.structure.get(reload, func() (*BodyPart, error) {
		bs, err := msg.transport.FetchStructure(msg.uid)
		if err != nil {
			return nil, err
		}

		w := bodyWalker{fetcher: msg.transport, uid: msg.uid}
		if err := w.walk(bs); err != nil {
			return nil, err
		}

		msg.plainText = w.plainText.String()
		msg.html = w.html.String()
		msg.attachments = w.attachments
		return bs, nil
	})
}

// RawSubject returns the subject as sent by the server, possibly containing
// MIME encoded words.
func (msg *Message) RawSubject() string {
	return msg.subject
}

// Subject returns the decoded subject.
func (msg *Message) Subject() string {
	return DecodeHeader(msg.subject)
}

// Date returns the date the message was sent.
func (msg *Message) Date() time.Time {
	return msg.date
}

// Size returns the size of the message in bytes.
func (msg *Message) Size() int64 {
	return msg.size
}

// Addresses returns one of the message's address lists.
func (msg *Message) Addresses(kind AddressKind) []*Address {
	switch kind {
	case AddressFrom:
		return msg.from
	case AddressTo:
		return msg.to
	case AddressCc:
		return msg.cc
	case AddressReplyTo:
		return msg.replyTo
	default:
		panic(fmt.Errorf("imapfetch: unknown address kind %v", kind))
	}
}

// From returns the first address of the From header field.
func (msg *Message) From() *Address {
	if len(msg.from) == 0 {
		return nil
	}
	return msg.from[0]
}

// PlainTextBody returns the plain-text parts of the message, separated by
// empty lines.
func (msg *Message) PlainTextBody() string {
	return msg.plainText
}

// HTMLBody returns the HTML parts of the message, separated by line breaks.
func (msg *Message) HTMLBody() string {
	return msg.html
}

// Attachments returns the message's attachments in body structure order.
func (msg *Message) Attachments() []*Attachment {
	return msg.attachments
}

// AttachmentsByFilename returns the attachments with the specified file name.
func (msg *Message) AttachmentsByFilename(filename string) []*Attachment {
	var l []*Attachment
	for _, att := range msg.attachments {
		if att.Filename() == filename {
			l = append(l, att)
		}
	}
	return l
}

// HasFlag checks whether a status flag is set on the message.
func (msg *Message) HasFlag(flag Flag) bool {
	return msg.flags[Flag(strings.ToLower(string(flag)))]
}

// SetFlag sets or clears a status flag. FlagRecent can't be changed.
func (msg *Message) SetFlag(flag Flag, enable bool) error {
	flag = Flag(strings.ToLower(string(flag)))
	if _, ok := settableFlags[flag]; !ok {
		return fmt.Errorf("%w: %q", ErrInvalidFlagName, flag)
	}
	if err := msg.transport.StoreFlag(msg.uid, flag, enable); err != nil {
		return err
	}
	if msg.flags == nil {
		msg.flags = make(map[Flag]bool)
	}
	msg.flags[flag] = enable
	return nil
}

// Delete marks the message for deletion. The message is removed when the
// mailbox is expunged.
func (msg *Message) Delete() error {
	if err := msg.transport.Delete(msg.uid); err != nil {
		return err
	}
	if msg.flags == nil {
		msg.flags = make(map[Flag]bool)
	}
	msg.flags[FlagDeleted] = true
	return nil
}

// MoveTo moves the message to another mailbox.
func (msg *Message) MoveTo(mailbox string) error {
	return msg.transport.Move(msg.uid, mailbox)
}
