package imapfetch

import (
	"errors"
	"fmt"
	"strings"

	"github.com/emersion/go-message/mail"
)

var errNameAlreadySet = errors.New("imapfetch: address name already set")

// Address is an e-mail address with an optional display name.
type Address struct {
	email   string
	name    string
	rawName string
	named   bool
}

// NewAddress creates an address from a "local@domain" string.
//
// Only the shape of the address is checked: it must contain exactly one "@"
// with a non-empty local part and a non-empty domain part.
func NewAddress(email string) (*Address, error) {
	if !isValidEmail(email) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAddress, email)
	}
	return &Address{email: email}, nil
}

func isValidEmail(s string) bool {
	local, domain, ok := strings.Cut(s, "@")
	if !ok || local == "" || domain == "" || strings.Contains(domain, "@") {
		return false
	}
	return !strings.ContainsAny(s, " \t\r\n")
}

// Email returns the address in the "local@domain" form.
func (addr *Address) Email() string {
	return addr.email
}

// Name returns the decoded display name, if any.
func (addr *Address) Name() string {
	return addr.name
}

// RawName returns the display name as it was before MIME decoding.
func (addr *Address) RawName() string {
	return addr.rawName
}

// SetName sets the display name. The raw name is decoded as a MIME header
// value. The name can only be set once.
func (addr *Address) SetName(rawName string) error {
	if addr.named {
		return errNameAlreadySet
	}
	addr.rawName = rawName
	addr.name = DecodeHeader(rawName)
	addr.named = true
	return nil
}

// String formats the address as "Name <local@domain>", or just the bare
// address when there is no display name.
func (addr *Address) String() string {
	if addr.name == "" {
		return addr.email
	}
	return (&mail.Address{Name: addr.name, Address: addr.email}).String()
}

// RawAddress is an address record as produced by a protocol-level address
// parser, e.g. an IMAP ENVELOPE address structure.
type RawAddress struct {
	Name    string // personal name, may be MIME-encoded
	Mailbox string
	Host    string
}

// IsGroupMarker reports whether the record marks the start or the end of an
// address group rather than an actual mailbox.
func (rec *RawAddress) IsGroupMarker() bool {
	return rec.Host == ""
}

// ParseAddressList converts address records into addresses. Group markers are
// skipped.
func ParseAddressList(records []RawAddress) ([]*Address, error) {
	var l []*Address
	for _, rec := range records {
		if rec.IsGroupMarker() {
			continue
		}
		addr, err := NewAddress(rec.Mailbox + "@" + rec.Host)
		if err != nil {
			return l, err
		}
		if rec.Name != "" {
			if err := addr.SetName(rec.Name); err != nil {
				return l, err
			}
		}
		l = append(l, addr)
	}
	return l, nil
}

// parseAddressHeader splits a raw address header field value into address
// records, the way an IMAP server fills ENVELOPE address lists: groups are
// delimited by group markers and entries that can't be parsed are dropped.
// Display names are left MIME-encoded.
func parseAddressHeader(value string) []RawAddress {
	var (
		records         []RawAddress
		entry           strings.Builder
		quoted, escaped bool
		comment, angle  int
	)
	flush := func() {
		if rec, ok := parseAddressEntry(entry.String()); ok {
			records = append(records, rec)
		}
		entry.Reset()
	}
	for _, r := range value {
		switch {
		case escaped:
			escaped = false
		case r == '\\' && (quoted || comment > 0):
			escaped = true
		case quoted:
			quoted = r != '"'
		case r == '"' && comment == 0:
			quoted = true
		case r == '(':
			comment++
		case r == ')' && comment > 0:
			comment--
		case comment > 0:
		case r == '<':
			angle++
		case r == '>' && angle > 0:
			angle--
		case angle > 0:
		case r == ',':
			flush()
			continue
		case r == ':':
			records = append(records, RawAddress{Mailbox: unquotePhrase(entry.String())})
			entry.Reset()
			continue
		case r == ';':
			flush()
			records = append(records, RawAddress{})
			continue
		}
		entry.WriteRune(r)
	}
	flush()
	return records
}

func parseAddressEntry(s string) (RawAddress, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return RawAddress{}, false
	}

	i := angleAddrStart(s)
	addr, err := mail.ParseAddress(s)
	if err != nil && i >= 0 {
		// The display name may use an unknown charset
		addr, err = mail.ParseAddress(s[i:])
	}
	if err != nil {
		return RawAddress{}, false
	}
	mailbox, host, ok := strings.Cut(addr.Address, "@")
	if !ok {
		return RawAddress{}, false
	}

	name := addr.Name
	if i >= 0 {
		name = unquotePhrase(s[:i])
	}
	return RawAddress{Name: name, Mailbox: mailbox, Host: host}, true
}

// angleAddrStart returns the index of the "<" starting the angle-addr of an
// entry, or -1.
func angleAddrStart(s string) int {
	quoted, escaped := false, false
	for i, r := range s {
		switch {
		case escaped:
			escaped = false
		case quoted && r == '\\':
			escaped = true
		case r == '"':
			quoted = !quoted
		case !quoted && r == '<':
			return i
		}
	}
	return -1
}

// unquotePhrase removes the quoting of a display name.
func unquotePhrase(s string) string {
	var sb strings.Builder
	quoted, escaped := false, false
	for _, r := range strings.TrimSpace(s) {
		switch {
		case escaped:
			escaped = false
		case quoted && r == '\\':
			escaped = true
			continue
		case r == '"':
			quoted = !quoted
			continue
		}
		sb.WriteRune(r)
	}
	return strings.TrimSpace(sb.String())
}

// FormatAddressList joins addresses with commas, as in a header field.
func FormatAddressList(l []*Address) string {
	s := make([]string, len(l))
	for i, addr := range l {
		s[i] = addr.String()
	}
	return strings.Join(s, ", ")
}
