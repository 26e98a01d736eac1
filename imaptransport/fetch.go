package imaptransport

import (
	"bufio"
	"bytes"
	"fmt"
	"strings"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"
	"github.com/emersion/go-message/textproto"

	"github.com/emersion/go-imapfetch"
)

const dateLayout = "Mon, 02 Jan 2006 15:04:05 -0700"

// flagRecent isn't part of IMAP4rev2, but IMAP4rev1 servers still send it.
const flagRecent = imap.Flag(`\Recent`)

var imapFlags = map[imapfetch.Flag]imap.Flag{
	imapfetch.FlagRecent:   flagRecent,
	imapfetch.FlagFlagged:  imap.FlagFlagged,
	imapfetch.FlagAnswered: imap.FlagAnswered,
	imapfetch.FlagDeleted:  imap.FlagDeleted,
	imapfetch.FlagSeen:     imap.FlagSeen,
	imapfetch.FlagDraft:    imap.FlagDraft,
}

var (
	overviewSection = &imap.FetchItemBodySection{
		Specifier:    imap.PartSpecifierHeader,
		HeaderFields: []string{"Subject", "Date"},
		Peek:         true,
	}
	headerSection = &imap.FetchItemBodySection{
		Specifier: imap.PartSpecifierHeader,
		Peek:      true,
	}
)

func (c *Client) fetch(uid uint32, options *imap.FetchOptions) (*imapclient.FetchMessageBuffer, error) {
	options.UID = true
	msgs, err := c.c.Fetch(imap.UIDSetNum(imap.UID(uid)), options).Collect()
	if err != nil {
		return nil, fmt.Errorf("imaptransport: UID FETCH failed: %w", err)
	}
	for _, msg := range msgs {
		if uint32(msg.UID) == uid {
			return msg, nil
		}
	}
	return nil, fmt.Errorf("%w: UID %v", errNoSuchMessage, uid)
}

// FetchOverview implements imapfetch.Fetcher.
//
// The subject and date are returned as they appear in the header. If the
// message has no valid Date header field, the internal date is used instead.
func (c *Client) FetchOverview(uid uint32) (*imapfetch.Overview, error) {
	msg, err := c.fetch(uid, &imap.FetchOptions{
		Flags:        true,
		Envelope:     true,
		InternalDate: true,
		RFC822Size:   true,
		BodySection:  []*imap.FetchItemBodySection{overviewSection},
	})
	if err != nil {
		return nil, err
	}

	ov := &imapfetch.Overview{Size: msg.RFC822Size}
	if raw := msg.FindBodySection(overviewSection); raw != nil {
		h, err := textproto.ReadHeader(bufio.NewReader(bytes.NewReader(raw)))
		if err == nil {
			ov.Subject = h.Get("Subject")
			ov.Date = h.Get("Date")
		}
	}
	if env := msg.Envelope; env != nil {
		if ov.Subject == "" {
			ov.Subject = env.Subject
		}
		if env.Date.IsZero() {
			ov.Date = ""
		} else if ov.Date == "" {
			ov.Date = env.Date.Format(dateLayout)
		}
	}
	if ov.Date == "" && !msg.InternalDate.IsZero() {
		ov.Date = msg.InternalDate.Format(dateLayout)
	}

	for _, flag := range msg.Flags {
		switch {
		case strings.EqualFold(string(flag), string(flagRecent)):
			ov.Recent = true
		case strings.EqualFold(string(flag), string(imap.FlagFlagged)):
			ov.Flagged = true
		case strings.EqualFold(string(flag), string(imap.FlagAnswered)):
			ov.Answered = true
		case strings.EqualFold(string(flag), string(imap.FlagDeleted)):
			ov.Deleted = true
		case strings.EqualFold(string(flag), string(imap.FlagSeen)):
			ov.Seen = true
		case strings.EqualFold(string(flag), string(imap.FlagDraft)):
			ov.Draft = true
		}
	}
	return ov, nil
}

// FetchHeader implements imapfetch.Fetcher.
func (c *Client) FetchHeader(uid uint32) ([]byte, error) {
	msg, err := c.fetch(uid, &imap.FetchOptions{
		BodySection: []*imap.FetchItemBodySection{headerSection},
	})
	if err != nil {
		return nil, err
	}
	raw := msg.FindBodySection(headerSection)
	if raw == nil {
		return nil, fmt.Errorf("imaptransport: server didn't return the header of UID %v", uid)
	}
	return raw, nil
}

// FetchStructure implements imapfetch.Fetcher.
func (c *Client) FetchStructure(uid uint32) (*imapfetch.BodyPart, error) {
	msg, err := c.fetch(uid, &imap.FetchOptions{
		BodyStructure: &imap.FetchItemBodyStructure{Extended: true},
	})
	if err != nil {
		return nil, err
	}
	if msg.BodyStructure == nil {
		return nil, fmt.Errorf("imaptransport: server didn't return the body structure of UID %v", uid)
	}
	return convertBodyStructure(msg.BodyStructure), nil
}

// FetchBody implements imapfetch.Fetcher.
func (c *Client) FetchBody(uid uint32, path imapfetch.PartPath) ([]byte, error) {
	section := &imap.FetchItemBodySection{Peek: true}
	if path == nil {
		section.Specifier = imap.PartSpecifierText
	} else {
		section.Part = []int(path)
	}

	msg, err := c.fetch(uid, &imap.FetchOptions{
		BodySection: []*imap.FetchItemBodySection{section},
	})
	if err != nil {
		return nil, err
	}
	raw := msg.FindBodySection(section)
	if raw == nil {
		return nil, fmt.Errorf("imaptransport: server didn't return body section %q of UID %v", path, uid)
	}
	return raw, nil
}

// StoreFlag implements imapfetch.Transport.
func (c *Client) StoreFlag(uid uint32, flag imapfetch.Flag, enable bool) error {
	imapFlag, ok := imapFlags[flag]
	if !ok {
		return fmt.Errorf("%w: %q", imapfetch.ErrInvalidFlagName, flag)
	}
	op := imap.StoreFlagsDel
	if enable {
		op = imap.StoreFlagsAdd
	}
	err := c.c.Store(imap.UIDSetNum(imap.UID(uid)), &imap.StoreFlags{
		Op:     op,
		Silent: true,
		Flags:  []imap.Flag{imapFlag},
	}, nil).Close()
	if err != nil {
		return fmt.Errorf("imaptransport: UID STORE failed: %w", err)
	}
	return nil
}

// Delete implements imapfetch.Transport.
func (c *Client) Delete(uid uint32) error {
	return c.StoreFlag(uid, imapfetch.FlagDeleted, true)
}

// Move implements imapfetch.Transport.
func (c *Client) Move(uid uint32, mailbox string) error {
	if _, err := c.c.Move(imap.UIDSetNum(imap.UID(uid)), mailbox).Wait(); err != nil {
		return fmt.Errorf("imaptransport: UID MOVE failed: %w", err)
	}
	if c.numMessages > 0 {
		c.numMessages--
	}
	return nil
}
