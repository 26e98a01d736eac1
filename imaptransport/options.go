package imaptransport

import (
	"crypto/tls"
	"fmt"
	"io"
)

// DefaultMailbox is the mailbox selected when Options.Mailbox is empty.
const DefaultMailbox = "INBOX"

// Security selects how the connection to the server is secured.
type Security int

const (
	// SecurityTLS uses implicit TLS, usually on port 993.
	SecurityTLS Security = iota
	// SecurityStartTLS upgrades a cleartext connection with STARTTLS, usually
	// on port 143.
	SecurityStartTLS
	// SecurityNone doesn't encrypt the connection.
	SecurityNone
)

func (sec Security) String() string {
	switch sec {
	case SecurityTLS:
		return "tls"
	case SecurityStartTLS:
		return "starttls"
	case SecurityNone:
		return "none"
	default:
		return fmt.Sprintf("Security(%d)", int(sec))
	}
}

// ParseSecurity parses the name of a Security value, as returned by
// Security.String.
func ParseSecurity(s string) (Security, error) {
	for _, sec := range []Security{SecurityTLS, SecurityStartTLS, SecurityNone} {
		if sec.String() == s {
			return sec, nil
		}
	}
	return 0, fmt.Errorf("imaptransport: unknown security mode %q", s)
}

// AuthMechanism selects how the client authenticates.
type AuthMechanism string

const (
	// AuthLogin uses the LOGIN command.
	AuthLogin AuthMechanism = "LOGIN"
	// AuthPlain uses AUTHENTICATE with the SASL PLAIN mechanism.
	AuthPlain AuthMechanism = "PLAIN"
)

// Options contains options for Dial and New.
type Options struct {
	// Address is the "host:port" of the server, used by Dial.
	Address  string
	Username string
	Password string
	// Mailbox is selected after authentication. Defaults to INBOX.
	Mailbox  string
	Security Security
	// TLSConfig is used for implicit TLS and STARTTLS.
	TLSConfig *tls.Config
	// Auth defaults to AuthLogin.
	Auth AuthMechanism
	// Raw IMAP output will be written to this writer, if non-nil.
	DebugWriter io.Writer
}

func (options *Options) mailbox() string {
	if options == nil || options.Mailbox == "" {
		return DefaultMailbox
	}
	return options.Mailbox
}

func (options *Options) auth() AuthMechanism {
	if options == nil || options.Auth == "" {
		return AuthLogin
	}
	return options.Auth
}
