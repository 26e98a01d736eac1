// Command imapfetch prints messages from an IMAP mailbox and saves their
// attachments.
//
// Messages are read from the server configured with flags or IMAPFETCH_*
// environment variables. When .eml files are given as arguments, they are
// read instead and no connection is made.
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"github.com/emersion/go-imap/v2"

	"github.com/emersion/go-imapfetch"
	"github.com/emersion/go-imapfetch/imaptransport"
	"github.com/emersion/go-imapfetch/memtransport"
)

var (
	address  string
	username string
	password string
	mailbox  string
	security string
	auth     string
	debug    bool

	unseen   bool
	from     string
	subject  string
	limit    int
	html     bool
	saveDir  string
	markSeen bool
)

func main() {
	cfg, err := loadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	flag.StringVar(&address, "address", cfg.Address, "IMAP server address (host:port)")
	flag.StringVar(&username, "username", cfg.Username, "Username")
	flag.StringVar(&password, "password", cfg.Password, "Password")
	flag.StringVar(&mailbox, "mailbox", cfg.Mailbox, "Mailbox to read messages from")
	flag.StringVar(&security, "security", cfg.Security, "Connection security: tls, starttls or none")
	flag.StringVar(&auth, "auth", cfg.Auth, "Authentication mechanism: LOGIN or PLAIN")
	flag.BoolVar(&debug, "debug", false, "Print all commands and responses")
	flag.BoolVar(&unseen, "unseen", false, "Only show messages without the \\Seen flag")
	flag.StringVar(&from, "from", "", "Only show messages whose From field contains this string")
	flag.StringVar(&subject, "subject", "", "Only show messages whose Subject field contains this string")
	flag.IntVar(&limit, "limit", 10, "Maximum number of messages to show, most recent first (0 for no limit)")
	flag.BoolVar(&html, "html", false, "Print the HTML body instead of the plain-text body")
	flag.StringVar(&saveDir, "save-dir", "", "Save attachments into this directory")
	flag.BoolVar(&markSeen, "mark-seen", false, "Set the \\Seen flag on printed messages")
	flag.Parse()

	var (
		transport imapfetch.Transport
		uids      []uint32
	)
	if flag.NArg() > 0 {
		mem := memtransport.New()
		for _, filename := range flag.Args() {
			if _, err := mem.AddFile(filename); err != nil {
				log.Fatalf("Failed to read message: %v", err)
			}
		}
		transport, uids = mem, mem.UIDs()
	} else {
		client := dial()
		defer client.Logout()

		uids, err = client.Search(searchCriteria())
		if err != nil {
			log.Fatalf("Failed to search messages: %v", err)
		}
		transport = client
	}

	if limit > 0 && len(uids) > limit {
		uids = uids[len(uids)-limit:]
	}
	for _, msg := range printMessages(os.Stdout, transport, uids, html) {
		if saveDir != "" {
			saveAttachments(msg, saveDir)
		}
		if markSeen {
			if err := msg.SetFlag(imapfetch.FlagSeen, true); err != nil {
				log.Printf("Failed to mark message UID %v as seen: %v", msg.UID(), err)
			}
		}
	}
}

// printMessages prints the messages with the specified UIDs, most recent
// first, and returns those that could be loaded.
func printMessages(w io.Writer, transport imapfetch.Transport, uids []uint32, wantHTML bool) []*imapfetch.Message {
	var msgs []*imapfetch.Message
	for i := len(uids) - 1; i >= 0; i-- {
		msg, err := imapfetch.NewMessage(transport, uids[i])
		if err != nil {
			log.Printf("Failed to load message UID %v: %v", uids[i], err)
			continue
		}
		if len(msgs) > 0 {
			fmt.Fprintln(w, strings.Repeat("-", 72))
		}
		printMessage(w, msg, wantHTML)
		msgs = append(msgs, msg)
	}
	return msgs
}

func dial() *imaptransport.Client {
	sec, err := imaptransport.ParseSecurity(security)
	if err != nil {
		log.Fatal(err)
	}

	var debugWriter io.Writer
	if debug {
		debugWriter = os.Stderr
	}

	client, err := imaptransport.Dial(&imaptransport.Options{
		Address:     address,
		Username:    username,
		Password:    password,
		Mailbox:     mailbox,
		Security:    sec,
		Auth:        imaptransport.AuthMechanism(strings.ToUpper(auth)),
		DebugWriter: debugWriter,
	})
	if err != nil {
		log.Fatalf("Failed to connect: %v", err)
	}
	log.Printf("Mailbox %v contains %v messages", client.Mailbox(), client.NumMessages())
	return client
}

func searchCriteria() *imap.SearchCriteria {
	criteria := &imap.SearchCriteria{}
	if unseen {
		criteria.NotFlag = []imap.Flag{imap.FlagSeen}
	}
	if from != "" {
		criteria.Header = append(criteria.Header, imap.SearchCriteriaHeaderField{Key: "From", Value: from})
	}
	if subject != "" {
		criteria.Header = append(criteria.Header, imap.SearchCriteriaHeaderField{Key: "Subject", Value: subject})
	}
	return criteria
}

func printMessage(w io.Writer, msg *imapfetch.Message, wantHTML bool) {
	fmt.Fprintf(w, "UID: %v\n", msg.UID())
	fmt.Fprintf(w, "Date: %v\n", msg.Date().Format(time.RFC1123Z))
	for _, kind := range []imapfetch.AddressKind{imapfetch.AddressFrom, imapfetch.AddressTo, imapfetch.AddressCc} {
		if l := msg.Addresses(kind); len(l) > 0 {
			fmt.Fprintf(w, "%v: %v\n", headerName(kind), imapfetch.FormatAddressList(l))
		}
	}
	fmt.Fprintf(w, "Subject: %v\n", msg.Subject())

	var flags []string
	for _, f := range []imapfetch.Flag{imapfetch.FlagRecent, imapfetch.FlagSeen, imapfetch.FlagAnswered, imapfetch.FlagFlagged, imapfetch.FlagDraft, imapfetch.FlagDeleted} {
		if msg.HasFlag(f) {
			flags = append(flags, string(f))
		}
	}
	if len(flags) > 0 {
		fmt.Fprintf(w, "Flags: %v\n", strings.Join(flags, " "))
	}

	for _, att := range msg.Attachments() {
		fmt.Fprintf(w, "Attachment: %v (%v, %v bytes)\n", att.Filename(), att.MIMEType(), att.Size())
	}

	body, ok := msg.Body(wantHTML)
	if ok {
		fmt.Fprintf(w, "\n%v\n", body)
	}
}

func headerName(kind imapfetch.AddressKind) string {
	switch kind {
	case imapfetch.AddressFrom:
		return "From"
	case imapfetch.AddressTo:
		return "To"
	case imapfetch.AddressCc:
		return "Cc"
	default:
		return "Reply-To"
	}
}

func saveAttachments(msg *imapfetch.Message, dir string) {
	for _, att := range msg.Attachments() {
		if !att.SaveToDirectory(dir) {
			log.Printf("Failed to save attachment %q of message UID %v", att.Filename(), msg.UID())
			continue
		}
		log.Printf("Saved attachment %q", att.Filename())
	}
}
