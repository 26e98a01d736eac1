// Package memtransport implements an in-memory imapfetch.Transport.
//
// Messages are stored as raw RFC 5322 bytes, for instance read from .eml
// files. Overviews, headers and body structures are computed on the fly.
package memtransport

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/emersion/go-imapfetch"
)

// DefaultMailbox is the mailbox selected by New.
const DefaultMailbox = "INBOX"

var (
	errNoSuchMessage = errors.New("memtransport: no such message")
	errNoSuchMailbox = errors.New("memtransport: no such mailbox")
)

type mailbox struct {
	uidNext uint32
	msgs    []*message
}

// Transport is an in-memory message store.
//
// Unlike network transports, it is safe for concurrent use.
type Transport struct {
	mutex     sync.Mutex
	mailboxes map[string]*mailbox
	selected  string
}

var _ imapfetch.Transport = (*Transport)(nil)

// New creates a transport with an empty, selected INBOX.
func New() *Transport {
	return &Transport{
		mailboxes: map[string]*mailbox{DefaultMailbox: {uidNext: 1}},
		selected:  DefaultMailbox,
	}
}

// Create creates a mailbox. It is a no-op if the mailbox already exists.
func (t *Transport) Create(name string) {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	t.mailboxLocked(name, true)
}

func (t *Transport) mailboxLocked(name string, create bool) *mailbox {
	if strings.EqualFold(name, DefaultMailbox) {
		name = DefaultMailbox
	}
	mbox := t.mailboxes[name]
	if mbox == nil && create {
		mbox = &mailbox{uidNext: 1}
		t.mailboxes[name] = mbox
	}
	return mbox
}

// Select changes the mailbox messages are fetched from.
func (t *Transport) Select(name string) error {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	if t.mailboxLocked(name, false) == nil {
		return fmt.Errorf("%w: %q", errNoSuchMailbox, name)
	}
	if strings.EqualFold(name, DefaultMailbox) {
		name = DefaultMailbox
	}
	t.selected = name
	return nil
}

// Add appends a message to the selected mailbox and returns its UID. New
// messages carry the recent flag in addition to flags.
func (t *Transport) Add(buf []byte, flags ...imapfetch.Flag) uint32 {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	msg := &message{
		buf:   buf,
		flags: map[imapfetch.Flag]struct{}{imapfetch.FlagRecent: {}},
	}
	for _, flag := range flags {
		msg.flags[canonicalFlag(flag)] = struct{}{}
	}
	return t.appendLocked(t.mailboxLocked(t.selected, true), msg)
}

func (t *Transport) appendLocked(mbox *mailbox, msg *message) uint32 {
	msg.uid = mbox.uidNext
	mbox.uidNext++
	mbox.msgs = append(mbox.msgs, msg)
	return msg.uid
}

// AddFile reads a message from a file and appends it to the selected
// mailbox.
func (t *Transport) AddFile(filename string) (uint32, error) {
	buf, err := os.ReadFile(filename)
	if err != nil {
		return 0, err
	}
	return t.Add(buf), nil
}

// UIDs returns the UIDs of the messages in the selected mailbox, in
// ascending order.
func (t *Transport) UIDs() []uint32 {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	mbox := t.mailboxLocked(t.selected, false)
	if mbox == nil {
		return nil
	}
	uids := make([]uint32, len(mbox.msgs))
	for i, msg := range mbox.msgs {
		uids[i] = msg.uid
	}
	sort.Slice(uids, func(i, j int) bool { return uids[i] < uids[j] })
	return uids
}

// Expunge permanently removes the messages of the selected mailbox flagged
// as deleted and returns their UIDs.
func (t *Transport) Expunge() []uint32 {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	mbox := t.mailboxLocked(t.selected, false)
	if mbox == nil {
		return nil
	}
	var (
		expunged []uint32
		kept     []*message
	)
	for _, msg := range mbox.msgs {
		if _, ok := msg.flags[imapfetch.FlagDeleted]; ok {
			expunged = append(expunged, msg.uid)
		} else {
			kept = append(kept, msg)
		}
	}
	mbox.msgs = kept
	return expunged
}

func (t *Transport) message(uid uint32) (*message, error) {
	mbox := t.mailboxLocked(t.selected, false)
	if mbox == nil {
		return nil, fmt.Errorf("%w: %q", errNoSuchMailbox, t.selected)
	}
	for _, msg := range mbox.msgs {
		if msg.uid == uid {
			return msg, nil
		}
	}
	return nil, fmt.Errorf("%w: UID %v", errNoSuchMessage, uid)
}

// FetchOverview implements imapfetch.Fetcher.
func (t *Transport) FetchOverview(uid uint32) (*imapfetch.Overview, error) {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	msg, err := t.message(uid)
	if err != nil {
		return nil, err
	}
	return msg.overview()
}

// FetchHeader implements imapfetch.Fetcher.
func (t *Transport) FetchHeader(uid uint32) ([]byte, error) {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	msg, err := t.message(uid)
	if err != nil {
		return nil, err
	}
	return msg.rawHeader()
}

// FetchStructure implements imapfetch.Fetcher.
func (t *Transport) FetchStructure(uid uint32) (*imapfetch.BodyPart, error) {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	msg, err := t.message(uid)
	if err != nil {
		return nil, err
	}
	return msg.bodyStructure()
}

// FetchBody implements imapfetch.Fetcher.
func (t *Transport) FetchBody(uid uint32, path imapfetch.PartPath) ([]byte, error) {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	msg, err := t.message(uid)
	if err != nil {
		return nil, err
	}
	return msg.bodySection(path)
}

// StoreFlag implements imapfetch.Transport.
func (t *Transport) StoreFlag(uid uint32, flag imapfetch.Flag, enable bool) error {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	msg, err := t.message(uid)
	if err != nil {
		return err
	}
	if enable {
		msg.flags[canonicalFlag(flag)] = struct{}{}
	} else {
		delete(msg.flags, canonicalFlag(flag))
	}
	return nil
}

// Delete implements imapfetch.Transport.
func (t *Transport) Delete(uid uint32) error {
	return t.StoreFlag(uid, imapfetch.FlagDeleted, true)
}

// Move implements imapfetch.Transport. The destination mailbox is created if
// it doesn't exist yet.
func (t *Transport) Move(uid uint32, dest string) error {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	msg, err := t.message(uid)
	if err != nil {
		return err
	}
	src := t.mailboxLocked(t.selected, false)
	for i, m := range src.msgs {
		if m == msg {
			src.msgs = append(src.msgs[:i], src.msgs[i+1:]...)
			break
		}
	}

	moved := &message{buf: msg.buf, flags: msg.flags}
	t.appendLocked(t.mailboxLocked(dest, true), moved)
	return nil
}

func canonicalFlag(flag imapfetch.Flag) imapfetch.Flag {
	return imapfetch.Flag(strings.ToLower(string(flag)))
}
