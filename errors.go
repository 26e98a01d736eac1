package imapfetch

import "errors"

var (
	// ErrInvalidAddress is returned when an e-mail address doesn't have the
	// local@domain shape.
	ErrInvalidAddress = errors.New("imapfetch: invalid e-mail address")
	// ErrInvalidDate is returned when a message's date can't be parsed.
	ErrInvalidDate = errors.New("imapfetch: invalid message date")
	// ErrMissingFrom is returned when a message has no From header field.
	ErrMissingFrom = errors.New("imapfetch: missing From header field")
	// ErrInvalidFlagName is returned when a flag can't be set by the client.
	ErrInvalidFlagName = errors.New("imapfetch: invalid flag name")
)
