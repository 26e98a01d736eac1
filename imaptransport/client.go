// Package imaptransport implements imapfetch.Transport on top of an IMAP
// connection.
//
// A Client authenticates and selects a mailbox when it is created. All
// message operations use UIDs and never set the \Seen flag implicitly.
//
// Like the underlying IMAP client, a Client must not be used from multiple
// goroutines at the same time.
package imaptransport

import (
	"errors"
	"fmt"
	"net"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"
	"github.com/emersion/go-sasl"

	"github.com/emersion/go-imapfetch"
)

var errNoSuchMessage = errors.New("imaptransport: no such message")

// Client is an imapfetch.Transport backed by an IMAP connection.
type Client struct {
	c           *imapclient.Client
	mailbox     string
	numMessages uint32
}

var _ imapfetch.Transport = (*Client)(nil)

// Dial connects to the server at options.Address, authenticates and selects
// the mailbox.
func Dial(options *Options) (*Client, error) {
	if options == nil || options.Address == "" {
		return nil, fmt.Errorf("imaptransport: missing server address")
	}

	clientOptions := newClientOptions(options)
	var (
		c   *imapclient.Client
		err error
	)
	switch options.Security {
	case SecurityTLS:
		c, err = imapclient.DialTLS(options.Address, clientOptions)
	case SecurityStartTLS:
		c, err = imapclient.DialStartTLS(options.Address, clientOptions)
	case SecurityNone:
		c, err = imapclient.DialInsecure(options.Address, clientOptions)
	default:
		return nil, fmt.Errorf("imaptransport: unknown security mode %v", options.Security)
	}
	if err != nil {
		return nil, fmt.Errorf("imaptransport: failed to connect to %q: %w", options.Address, err)
	}

	client, err := setup(c, options)
	if err != nil {
		c.Close()
		return nil, err
	}
	return client, nil
}

// New creates a client from an existing connection, authenticates and
// selects the mailbox. The connection is used as-is: options.Security and
// options.Address are ignored.
func New(conn net.Conn, options *Options) (*Client, error) {
	c := imapclient.New(conn, newClientOptions(options))
	client, err := setup(c, options)
	if err != nil {
		c.Close()
		return nil, err
	}
	return client, nil
}

func newClientOptions(options *Options) *imapclient.Options {
	if options == nil {
		return nil
	}
	return &imapclient.Options{
		TLSConfig:   options.TLSConfig,
		DebugWriter: options.DebugWriter,
	}
}

func setup(c *imapclient.Client, options *Options) (*Client, error) {
	var username, password string
	if options != nil {
		username, password = options.Username, options.Password
	}

	switch mech := options.auth(); mech {
	case AuthLogin:
		if err := c.Login(username, password).Wait(); err != nil {
			return nil, fmt.Errorf("imaptransport: LOGIN failed: %w", err)
		}
	case AuthPlain:
		saslClient := sasl.NewPlainClient("", username, password)
		if err := c.Authenticate(saslClient); err != nil {
			return nil, fmt.Errorf("imaptransport: AUTHENTICATE PLAIN failed: %w", err)
		}
	default:
		return nil, fmt.Errorf("imaptransport: unsupported authentication mechanism %q", mech)
	}

	client := &Client{c: c, mailbox: options.mailbox()}
	if err := client.Select(client.mailbox); err != nil {
		return nil, err
	}
	return client, nil
}

// Client returns the underlying IMAP client.
func (c *Client) Client() *imapclient.Client {
	return c.c
}

// Mailbox returns the name of the selected mailbox.
func (c *Client) Mailbox() string {
	return c.mailbox
}

// NumMessages returns the number of messages in the selected mailbox, as
// reported when it was selected.
func (c *Client) NumMessages() uint32 {
	return c.numMessages
}

// Select selects another mailbox.
func (c *Client) Select(mailbox string) error {
	data, err := c.c.Select(mailbox, nil).Wait()
	if err != nil {
		return fmt.Errorf("imaptransport: failed to select mailbox %q: %w", mailbox, err)
	}
	c.mailbox = mailbox
	c.numMessages = data.NumMessages
	return nil
}

// Search returns the UIDs of the messages matching criteria. A nil criteria
// matches all messages.
func (c *Client) Search(criteria *imap.SearchCriteria) ([]uint32, error) {
	if criteria == nil {
		criteria = &imap.SearchCriteria{}
	}
	data, err := c.c.UIDSearch(criteria, nil).Wait()
	if err != nil {
		return nil, fmt.Errorf("imaptransport: UID SEARCH failed: %w", err)
	}
	all := data.AllUIDs()
	uids := make([]uint32, len(all))
	for i, uid := range all {
		uids[i] = uint32(uid)
	}
	return uids, nil
}

// Messages loads the messages with the specified UIDs.
func (c *Client) Messages(uids []uint32) ([]*imapfetch.Message, error) {
	l := make([]*imapfetch.Message, 0, len(uids))
	for _, uid := range uids {
		msg, err := imapfetch.NewMessage(c, uid)
		if err != nil {
			return l, fmt.Errorf("imaptransport: failed to load message UID %v: %w", uid, err)
		}
		l = append(l, msg)
	}
	return l, nil
}

// Expunge permanently removes the messages flagged as deleted from the
// selected mailbox. It returns the sequence numbers of the removed messages.
func (c *Client) Expunge() ([]uint32, error) {
	seqNums, err := c.c.Expunge().Collect()
	if err != nil {
		return nil, fmt.Errorf("imaptransport: EXPUNGE failed: %w", err)
	}
	if n := uint32(len(seqNums)); n <= c.numMessages {
		c.numMessages -= n
	}
	return seqNums, nil
}

// Logout logs out and closes the connection.
func (c *Client) Logout() error {
	if err := c.c.Logout().Wait(); err != nil {
		c.c.Close()
		return err
	}
	return c.c.Close()
}

// Close closes the connection without logging out.
func (c *Client) Close() error {
	return c.c.Close()
}
